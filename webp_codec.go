package codec

import (
	"bytes"
	"encoding/binary"
	"image"
	stdcolor "image/color"

	"golang.org/x/image/webp"
)

func isWEBP(header []byte) bool {
	return len(header) >= 12 && string(header[:4]) == "RIFF" && string(header[8:12]) == "WEBP"
}

// webpCodec decodes still WEBP images. It supports subsets, snapped to
// even left and top edges, and any downscale.
type webpCodec struct {
	*rasterCodec
}

func newWEBPCodec(s Stream, _ *factoryOptions) (*Codec, Result) {
	data, err := bufferStream(s)
	if err != nil {
		return nil, InvalidInput
	}
	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		Logger().Debug("codec: webp header", "err", err)
		return nil, InvalidInput
	}
	encoded := EncodedInfo{
		Width:            cfg.Width,
		Height:           cfg.Height,
		Color:            EncodedYUV,
		Alpha:            EncodedOpaque,
		BitsPerComponent: 8,
	}
	at := AlphaTypeOpaque
	if modelAlpha(cfg.ColorModel) {
		at = AlphaTypeUnpremul
		encoded.Color, encoded.Alpha = EncodedYUVA, EncodedUnpremul
		if cfg.ColorModel == stdcolor.NRGBAModel {
			encoded.Color = EncodedRGBA
		}
	}
	info := MakeInfo(cfg.Width, cfg.Height, ColorTypeN32, at)
	w := &webpCodec{}
	w.rasterCodec = newRasterCodec(s, data, info, decodeWEBP)
	return newCodec(FormatWEBP, encoded, info, s, s, w), Success
}

// decodeWEBP decodes the whole image. Data shorter than the RIFF size
// decodes nothing and reports IncompleteInput.
func decodeWEBP(data []byte) (image.Image, int, Result) {
	img, err := webp.Decode(bytes.NewReader(data))
	if err == nil {
		return img, 0, Success
	}
	Logger().Debug("codec: webp decode", "err", err)
	if len(data) >= 8 && int64(binary.LittleEndian.Uint32(data[4:]))+8 > int64(len(data)) {
		return nil, 0, IncompleteInput
	}
	return nil, 0, InvalidInput
}

func (w *webpCodec) scaledDimensions(scale float64) Size {
	return Size{
		Width:  max(int(float64(w.info.Width)*scale), 1),
		Height: max(int(float64(w.info.Height)*scale), 1),
	}
}

func (w *webpCodec) dimensionsSupported(s Size) bool {
	return s.Width >= 1 && s.Width <= w.info.Width && s.Height >= 1 && s.Height <= w.info.Height
}

// validSubset snaps the left and top edges down to even coordinates.
func (w *webpCodec) validSubset(r *image.Rectangle) bool {
	if !r.In(w.info.Bounds()) {
		return false
	}
	r.Min.X &^= 1
	r.Min.Y &^= 1
	return true
}

// getPixels refuses to upscale a subset.
func (w *webpCodec) getPixels(req *decodeRequest) (Result, int) {
	if s := req.opts.Subset; s != nil && (req.info.Width > s.Dx() || req.info.Height > s.Dy()) {
		return InvalidScale, 0
	}
	return w.rasterCodec.getPixels(req)
}
