package codec

import (
	"bytes"
	"image"

	"github.com/xfmoulet/qoi"
)

const (
	qoiHeaderBytes = 14

	qoiOpRGB  = 0xFE
	qoiOpRGBA = 0xFF
	qoiOpMask = 0xC0
	qoiOpLuma = 0x80
	qoiOpRun  = 0xC0
	qoiMaxRun = 62
)

var qoiEnd = []byte{0, 0, 0, 0, 0, 0, 0, 1}

func isQOI(header []byte) bool {
	return len(header) >= 4 && string(header[:4]) == "qoif"
}

type qoiCodec struct {
	*rasterCodec
}

func newQOICodec(s Stream, _ *factoryOptions) (*Codec, Result) {
	data, err := bufferStream(s)
	if err != nil {
		return nil, InvalidInput
	}
	if len(data) < qoiHeaderBytes {
		return nil, IncompleteInput
	}
	cfg, err := qoi.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		Logger().Debug("codec: qoi header", "err", err)
		return nil, InvalidInput
	}
	encoded := EncodedInfo{
		Width:            cfg.Width,
		Height:           cfg.Height,
		Color:            EncodedRGB,
		Alpha:            EncodedOpaque,
		BitsPerComponent: 8,
	}
	at := AlphaTypeOpaque
	if data[12] == 4 {
		at = AlphaTypeUnpremul
		encoded.Color, encoded.Alpha = EncodedRGBA, EncodedUnpremul
	}
	info := MakeInfo(cfg.Width, cfg.Height, ColorTypeN32, at)
	q := &qoiCodec{}
	q.rasterCodec = newRasterCodec(s, data, info, q.decodeImage)
	return newCodec(FormatQOI, encoded, info, s, s, q), Success
}

// decodeImage decodes a complete stream directly. A truncated stream is
// cut back to its last whole op, padded with runs up to the full pixel
// count and terminated, so the library yields the complete rows.
func (q *qoiCodec) decodeImage(data []byte) (image.Image, int, Result) {
	total := int64(q.info.Width) * int64(q.info.Height)
	pixels, end := qoiWalk(data, total)
	if pixels >= total {
		img, err := qoi.Decode(bytes.NewReader(data))
		if err != nil {
			Logger().Debug("codec: qoi decode", "err", err)
			return nil, 0, InvalidInput
		}
		return img, 0, Success
	}

	padded := make([]byte, end, end+int((total-pixels)/qoiMaxRun)+1+len(qoiEnd))
	copy(padded, data[:end])
	for rest := total - pixels; rest > 0; {
		n := min(rest, qoiMaxRun)
		padded = append(padded, byte(qoiOpRun|(n-1)))
		rest -= n
	}
	padded = append(padded, qoiEnd...)
	img, err := qoi.Decode(bytes.NewReader(padded))
	if err != nil {
		Logger().Debug("codec: qoi decode truncated", "err", err)
		return nil, 0, IncompleteInput
	}
	rows := int(pixels / int64(q.info.Width))
	Logger().Debug("codec: qoi truncated", "rows", rows, "height", q.info.Height)
	return img, rows, IncompleteInput
}

// qoiWalk counts the pixels described by whole ops in data, up to total.
// It returns the count and the offset just past the last whole op.
func qoiWalk(data []byte, total int64) (pixels int64, end int) {
	pos := qoiHeaderBytes
	for pixels < total && pos < len(data) {
		b := data[pos]
		var size int
		var n int64 = 1
		switch {
		case b == qoiOpRGB:
			size = 4
		case b == qoiOpRGBA:
			size = 5
		case b&qoiOpMask == qoiOpLuma:
			size = 2
		case b&qoiOpMask == qoiOpRun:
			size = 1
			n = int64(b&^qoiOpMask) + 1
		default:
			size = 1
		}
		if pos+size > len(data) {
			break
		}
		pos += size
		pixels = min(pixels+n, total)
	}
	return pixels, pos
}
