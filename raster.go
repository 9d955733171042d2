package codec

import (
	"image"
	stdcolor "image/color"
	"io"

	"golang.org/x/image/draw"

	"github.com/gogpu/codec/internal/swizzle"
)

// rasterDecodeFunc decodes a whole encoded image. rows is the number of
// leading rows that came from real data; it is only consulted when the
// result is IncompleteInput.
type rasterDecodeFunc func(data []byte) (img image.Image, rows int, r Result)

// rasterCodec serves backends whose library decodes a whole image at once
// (JPEG, WEBP, QOI). The encoded stream is buffered, decoded once per
// distinct length and then cropped, resampled and swizzled into each
// destination.
type rasterCodec struct {
	stream Stream
	info   ImageInfo
	decode rasterDecodeFunc

	data    []byte
	decoded bool
	img     image.Image
	rows    int
	result  Result

	// Per-request state.
	sw      *swizzle.Swizzler
	src     image.Image
	srcRows int
	y       int
	alpha   swizzle.ResultAlpha
}

// bufferStream reads everything the stream holds from its current
// position.
func bufferStream(s Stream) ([]byte, error) {
	return io.ReadAll(s)
}

func newRasterCodec(s Stream, data []byte, info ImageInfo, decode rasterDecodeFunc) *rasterCodec {
	return &rasterCodec{stream: s, data: data, info: info, decode: decode}
}

// onRewind re-reads the stream. Streams only grow, so an unchanged length
// keeps the cached decode.
func (rc *rasterCodec) onRewind() bool {
	data, err := bufferStream(rc.stream)
	if err != nil {
		return false
	}
	if len(data) != len(rc.data) {
		rc.decoded = false
		rc.img = nil
	}
	rc.data = data
	return true
}

// load decodes the buffered data if it has not been decoded yet.
func (rc *rasterCodec) load() Result {
	if rc.decoded {
		return rc.result
	}
	img, rows, r := rc.decode(rc.data)
	rc.decoded = true
	rc.result = r
	if img == nil {
		rc.img = nil
		if r == Success {
			rc.result = InvalidInput
		}
		return rc.result
	}
	rc.img = normalizeImage(img)
	rc.rows = rc.img.Bounds().Dy()
	if r == IncompleteInput {
		rc.rows = min(max(rows, 0), rc.rows)
	}
	return rc.result
}

// normalizeImage converts img to *image.Gray or *image.NRGBA so rows can
// be swizzled directly.
func normalizeImage(img image.Image) image.Image {
	switch m := img.(type) {
	case *image.Gray, *image.NRGBA:
		return m
	case *image.RGBA:
		if m.Opaque() {
			return &image.NRGBA{Pix: m.Pix, Stride: m.Stride, Rect: m.Rect}
		}
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// rowOf returns row y of a normalized image.
func rowOf(img image.Image, y int) []byte {
	switch m := img.(type) {
	case *image.Gray:
		off := m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y+y)
		return m.Pix[off : off+m.Rect.Dx()]
	case *image.NRGBA:
		off := m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y+y)
		return m.Pix[off : off+4*m.Rect.Dx()]
	}
	return nil
}

func srcConfigOf(img image.Image) swizzle.SrcConfig {
	if _, ok := img.(*image.Gray); ok {
		return swizzle.Gray
	}
	return swizzle.RGBA
}

// resample crops the decoded image to subset and scales it to size. It
// returns the new image and how many of its rows derive from valid
// source rows.
func resample(img image.Image, validRows int, subset *image.Rectangle, size Size) (image.Image, int) {
	b := img.Bounds()
	if subset != nil {
		r := subset.Add(b.Min)
		switch m := img.(type) {
		case *image.Gray:
			img = m.SubImage(r)
		case *image.NRGBA:
			img = m.SubImage(r)
		}
		validRows = min(max(validRows-subset.Min.Y, 0), subset.Dy())
		b = img.Bounds()
	}
	if b.Dx() == size.Width && b.Dy() == size.Height {
		return img, validRows
	}

	dstRect := image.Rect(0, 0, size.Width, size.Height)
	var dst draw.Image
	if _, ok := img.(*image.Gray); ok {
		dst = image.NewGray(dstRect)
	} else {
		dst = image.NewNRGBA(dstRect)
	}
	draw.CatmullRom.Scale(dst, dstRect, img, b, draw.Src, nil)
	return dst, validRows * size.Height / b.Dy()
}

// prepare decodes if needed and builds the source image and swizzler for
// req.
func (rc *rasterCodec) prepare(req *decodeRequest) Result {
	r := rc.load()
	if rc.img == nil {
		return r
	}
	rc.src, rc.srcRows = resample(rc.img, rc.rows, req.opts.Subset, req.info.Dimensions())
	sw, err := swizzle.New(swizzle.Config{
		Src:             srcConfigOf(rc.src),
		Dst:             req.info,
		SrcWidth:        rc.src.Bounds().Dx(),
		ZeroInitialized: req.opts.ZeroInitialized,
	})
	if err != nil {
		return InvalidConversion
	}
	rc.sw = sw
	rc.y = 0
	rc.alpha = swizzle.EmptyAlpha
	return Success
}

func (rc *rasterCodec) getPixels(req *decodeRequest) (Result, int) {
	if r := rc.prepare(req); r != Success {
		return r, 0
	}
	for y := range rc.srcRows {
		rc.alpha = rc.alpha.Merge(rc.sw.Swizzle(req.pixels[y*req.rowBytes:], rowOf(rc.src, y)))
	}
	if rc.result == IncompleteInput {
		return IncompleteInput, rc.srcRows
	}
	return Success, req.info.Height
}

func (rc *rasterCodec) startScanlineDecode(req *decodeRequest) Result {
	return rc.prepare(req)
}

func (rc *rasterCodec) getScanlines(dst []byte, count, rowBytes int) int {
	for i := range count {
		if rc.y >= rc.srcRows {
			return i
		}
		rc.alpha = rc.alpha.Merge(rc.sw.Swizzle(dst[i*rowBytes:], rowOf(rc.src, rc.y)))
		rc.y++
	}
	return count
}

func (rc *rasterCodec) skipScanlines(count int) bool {
	rc.y += count
	return rc.y <= rc.srcRows
}

func (rc *rasterCodec) scanlineOrder() ScanlineOrder { return ScanlineOrderTopDown }

func (rc *rasterCodec) setSampleX(sampleX int) int {
	return rc.sw.SetSampleX(sampleX)
}

func (rc *rasterCodec) reallyHasAlpha() bool {
	if rc.info.AlphaType == AlphaTypeOpaque {
		return false
	}
	return !rc.alpha.IsOpaque()
}

// modelAlpha reports whether a color model can carry alpha.
func modelAlpha(m stdcolor.Model) bool {
	switch m {
	case stdcolor.GrayModel, stdcolor.Gray16Model, stdcolor.YCbCrModel, stdcolor.CMYKModel:
		return false
	}
	return true
}
