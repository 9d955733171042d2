package codec

import (
	"math"

	"github.com/gogpu/codec/internal/raw"
	"github.com/gogpu/codec/internal/swizzle"
)

const (
	// rawMinShortEdge is the smallest short edge a scaled render may have.
	rawMinShortEdge = 80
	// rawSizeTolerance is how much larger than requested a render may
	// come out; only the overlapping region is used.
	rawSizeTolerance = 1.03
)

// isRAW matches TIFF-based raw containers: TIFF/DNG in either byte order,
// Olympus ORF and Panasonic RW2.
func isRAW(header []byte) bool {
	return raw.IsRaw(header)
}

// rawCodec renders DNG images. Non-DNG containers are only supported
// through their embedded JPEG preview, which newRAWCodec hands to a JPEG
// codec.
type rawCodec struct {
	dng  *raw.DNG
	info ImageInfo
}

func newRAWCodec(s Stream, o *factoryOptions) (*Codec, Result) {
	rs := raw.NewStream(s)
	container, err := raw.Parse(rs)
	if err != nil {
		Logger().Debug("codec: raw container", "err", err)
		return nil, InvalidInput
	}

	if o.rawPreview && !container.IsDNG() {
		preview, err := raw.FindPreview(container, rs)
		if err == nil {
			// The transfer consumes rs; only the preview bytes survive.
			data, err := rs.TransferBuffer(preview.Offset, preview.Length)
			if err != nil {
				Logger().Debug("codec: raw preview transfer", "err", err)
				return nil, InvalidInput
			}
			Logger().Debug("codec: raw preview", "offset", preview.Offset, "length", len(data),
				"width", preview.Width, "height", preview.Height)
			c, r := newJPEGCodec(NewMemoryStream(data), o)
			if r != Success {
				return nil, r
			}
			c.owned = s
			return c, Success
		}
		Logger().Debug("codec: raw preview", "err", err)
	}

	host := raw.NewHost(o.rawAllocLimit, o.workers, Logger())
	dng, err := raw.NewDNG(host, rs, container)
	if err != nil {
		Logger().Debug("codec: raw negative", "err", err)
		return nil, InvalidInput
	}
	size := dng.Size()
	info := MakeInfo(size.X, size.Y, ColorTypeN32, AlphaTypeOpaque)
	encoded := EncodedInfo{
		Width:            size.X,
		Height:           size.Y,
		Color:            EncodedRGB,
		Alpha:            EncodedOpaque,
		BitsPerComponent: dng.BitsPerSample(),
	}
	rc := &rawCodec{dng: dng, info: info}
	return newCodec(FormatRAW, encoded, info, nil, s, rc), Success
}

func (rc *rawCodec) getPixels(req *decodeRequest) (Result, int) {
	width, height := req.info.Width, req.info.Height
	img, err := rc.dng.Render(width, height)
	if err != nil {
		Logger().Warn("codec: raw render", "err", err)
		return InvalidInput, 0
	}
	if float64(img.Width)/float64(width) > rawSizeTolerance || img.Width < width ||
		float64(img.Height)/float64(height) > rawSizeTolerance || img.Height < height {
		Logger().Debug("codec: raw render size", "got", Size{Width: img.Width, Height: img.Height}, "want", req.info.Dimensions())
		return InvalidScale, 0
	}

	sw, err := swizzle.New(swizzle.Config{
		Src:             swizzle.RGB,
		Dst:             req.info,
		SrcWidth:        width,
		ZeroInitialized: req.opts.ZeroInitialized,
	})
	if err != nil {
		return InvalidConversion, 0
	}
	for y := range height {
		sw.Swizzle(req.pixels[y*req.rowBytes:], img.Row(y))
	}
	return Success, height
}

// scaledDimensions snaps to an integer downscale, keeping the short edge
// at least rawMinShortEdge. X-Trans sensors cannot render at half size and
// fall back to a third.
func (rc *rawCodec) scaledDimensions(scale float64) Size {
	dim := rc.info.Dimensions()
	if !rc.dng.IsScalable() {
		return dim
	}
	short := float64(min(dim.Width, dim.Height))
	scale = max(scale, rawMinShortEdge/short)
	if rc.dng.IsXTrans() && scale > 1.0/3 && scale < 1 {
		scale = 1.0 / 3
	}
	factor := max(math.Floor(1/scale), 1)
	return Size{
		Width:  int(math.Floor(float64(dim.Width) / factor)),
		Height: int(math.Floor(float64(dim.Height) / factor)),
	}
}

func (rc *rawCodec) dimensionsSupported(s Size) bool {
	full := rc.info.Dimensions()
	fullShort := float64(min(full.Width, full.Height))
	short := float64(min(s.Width, s.Height))
	if short <= 0 {
		return false
	}
	floor := rc.scaledDimensions(1 / math.Floor(fullShort/short))
	ceil := rc.scaledDimensions(1 / math.Ceil(fullShort/short))
	return floor == s || ceil == s
}
