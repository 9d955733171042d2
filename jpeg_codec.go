package codec

import (
	"bytes"
	"encoding/binary"
	"image"
	stdcolor "image/color"
	"math"

	"github.com/gen2brain/jpegn"
)

const (
	jpegMarkerSOS = 0xDA
	jpegMarkerEOI = 0xD9
)

var jpegEOI = []byte{0xFF, jpegMarkerEOI}

func isJPEG(header []byte) bool {
	return len(header) >= 3 && header[0] == 0xFF && header[1] == 0xD8 && header[2] == 0xFF
}

// jpegCodec decodes baseline and progressive JPEGs. Downscaled decodes
// are offered at the eight libjpeg ratios num/8.
type jpegCodec struct {
	*rasterCodec
	gray bool
}

func newJPEGCodec(s Stream, _ *factoryOptions) (*Codec, Result) {
	data, err := bufferStream(s)
	if err != nil {
		return nil, InvalidInput
	}
	cfg, err := jpegn.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		Logger().Debug("codec: jpeg header", "err", err)
		return nil, InvalidInput
	}
	j := &jpegCodec{gray: cfg.ColorModel == stdcolor.GrayModel}
	encoded := EncodedInfo{
		Width:            cfg.Width,
		Height:           cfg.Height,
		Color:            EncodedYUV,
		Alpha:            EncodedOpaque,
		BitsPerComponent: 8,
	}
	info := MakeInfo(cfg.Width, cfg.Height, ColorTypeN32, AlphaTypeOpaque)
	switch {
	case j.gray:
		encoded.Color = EncodedGray
		info = MakeInfo(cfg.Width, cfg.Height, ColorTypeGray8, AlphaTypeOpaque)
	case cfg.ColorModel == stdcolor.RGBAModel:
		encoded.Color = EncodedRGB
	}
	j.rasterCodec = newRasterCodec(s, data, info, j.decodeImage)
	return newCodec(FormatJPEG, encoded, info, s, s, j), Success
}

// jpegScaleNum maps a scale to the nearest numerator over 8.
func jpegScaleNum(scale float64) int {
	return min(max(int(math.Floor(scale*8+0.5)), 1), 8)
}

func jpegScaledSize(s Size, num int) Size {
	return Size{
		Width:  (s.Width*num + 7) / 8,
		Height: (s.Height*num + 7) / 8,
	}
}

func (j *jpegCodec) scaledDimensions(scale float64) Size {
	return jpegScaledSize(j.info.Dimensions(), jpegScaleNum(scale))
}

func (j *jpegCodec) dimensionsSupported(s Size) bool {
	for num := 1; num <= 8; num++ {
		if jpegScaledSize(j.info.Dimensions(), num) == s {
			return true
		}
	}
	return false
}

func (j *jpegCodec) options() *jpegn.Options {
	return &jpegn.Options{ToRGBA: !j.gray, UpsampleMethod: jpegn.CatmullRom}
}

// decodeImage decodes a complete stream directly. A stream without its
// EOI marker is decoded as if it ended there; the rows that do not change
// when the tail is cut shorter are the ones backed by real data.
func (j *jpegCodec) decodeImage(data []byte) (image.Image, int, Result) {
	if jpegComplete(data) {
		img, err := jpegn.Decode(bytes.NewReader(data), j.options())
		if err != nil {
			Logger().Debug("codec: jpeg decode", "err", err)
			return nil, 0, InvalidInput
		}
		return img, 0, Success
	}

	img := j.decodeTerminated(data)
	if img == nil {
		return nil, 0, IncompleteInput
	}
	full := normalizeImage(img)
	height := full.Bounds().Dy()
	for _, cut := range []int{1, 64, 4096} {
		if cut >= len(data) {
			break
		}
		shorter := j.decodeTerminated(data[:len(data)-cut])
		if shorter == nil {
			break
		}
		if rows := firstDifferentRow(full, normalizeImage(shorter)); rows < height {
			Logger().Debug("codec: jpeg truncated", "rows", rows, "height", height)
			return full, rows, IncompleteInput
		}
	}
	return full, 0, IncompleteInput
}

func (j *jpegCodec) decodeTerminated(data []byte) image.Image {
	terminated := append(data[:len(data):len(data)], jpegEOI...)
	img, err := jpegn.Decode(bytes.NewReader(terminated), j.options())
	if err != nil {
		return nil
	}
	return img
}

// firstDifferentRow returns the first row at which two normalized images
// differ, or the height if they are equal.
func firstDifferentRow(a, b image.Image) int {
	h := min(a.Bounds().Dy(), b.Bounds().Dy())
	for y := range h {
		if !bytes.Equal(rowOf(a, y), rowOf(b, y)) {
			return y
		}
	}
	return h
}

// jpegComplete walks the marker segments to the first scan and reports
// whether an EOI marker follows it. EOI markers inside earlier segments,
// such as EXIF thumbnails, do not count.
func jpegComplete(data []byte) bool {
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return false
		}
		marker := data[pos+1]
		switch {
		case marker == 0xFF:
			pos++
		case marker == jpegMarkerSOS:
			return bytes.Contains(data[pos:], jpegEOI)
		case marker == 0x01, marker >= 0xD0 && marker <= 0xD7:
			pos += 2
		default:
			pos += 2 + int(binary.BigEndian.Uint16(data[pos+2:]))
		}
	}
	return false
}
