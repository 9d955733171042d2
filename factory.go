package codec

import (
	"fmt"
)

// sniffBytes is how much of the stream the factory inspects.
const sniffBytes = 32

// registration pairs a signature test with a constructor.
type registration struct {
	format Format
	sniff  func(header []byte) bool
	make   func(s Stream, o *factoryOptions) (*Codec, Result)
}

// formatRegistry lists the supported formats in dispatch order. The first
// seven keep their reference order; QOI and RAW follow.
func formatRegistry() []registration {
	return []registration{
		{FormatPNG, isPNG, newPNGCodec},
		{FormatJPEG, isJPEG, newJPEGCodec},
		{FormatWEBP, isWEBP, newWEBPCodec},
		{FormatGIF, isGIF, newGIFCodec},
		{FormatICO, isICO, newICOCodec},
		{FormatBMP, isBMP, newBMPCodec},
		{FormatWBMP, isWBMP, newWBMPCodec},
		{FormatQOI, isQOI, newQOICodec},
		{FormatRAW, isRAW, newRAWCodec},
	}
}

// Sniff returns the format whose signature matches header, or
// FormatUnknown. header should hold at least the first 32 bytes.
func Sniff(header []byte) Format {
	for _, r := range formatRegistry() {
		if r.sniff(header) {
			return r.format
		}
	}
	return FormatUnknown
}

// MakeFromStream identifies the format of s and returns a codec for it.
// The codec takes ownership of s; on failure s is closed. The returned
// error wraps a Result, usually InvalidInput.
func MakeFromStream(s Stream, opts ...Option) (*Codec, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil stream", InvalidParameters)
	}
	o := defaultFactoryOptions()
	for _, opt := range opts {
		opt(&o)
	}

	header := make([]byte, sniffBytes)
	n, ok := peekOrRead(s, header)
	if !ok {
		closeStream(s)
		return nil, fmt.Errorf("%w: stream after sniffing", CouldNotRewind)
	}
	header = header[:n]

	for _, r := range formatRegistry() {
		if !r.sniff(header) {
			continue
		}
		c, result := r.make(s, &o)
		if result != Success {
			closeStream(s)
			Logger().Debug("codec: header rejected", "format", r.format, "result", result)
			return nil, fmt.Errorf("%w: %v header: %s", InvalidInput, r.format, result.String())
		}
		if area := c.info.Dimensions().Area(); area > o.maxPixels {
			_ = c.Close()
			Logger().Debug("codec: image too large", "format", r.format, "size", c.info.Dimensions(), "limit", o.maxPixels)
			return nil, fmt.Errorf("%w: %v image %v exceeds %d pixels", InvalidInput, r.format, c.info.Dimensions(), o.maxPixels)
		}
		Logger().Debug("codec: created", "format", r.format, "info", c.info)
		return c, nil
	}

	closeStream(s)
	Logger().Debug("codec: no format matched", "bytes", n)
	return nil, fmt.Errorf("%w: unrecognized format", InvalidInput)
}

// MakeFromData is MakeFromStream over an in-memory stream.
func MakeFromData(data []byte, opts ...Option) (*Codec, error) {
	return MakeFromStream(NewMemoryStream(data), opts...)
}
