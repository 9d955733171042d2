package codec

import (
	"math"

	"github.com/gogpu/codec/internal/image"
	"github.com/gogpu/codec/internal/swizzle"
)

// SampledCodec decodes a Codec at integer fractions of its native size by
// keeping every n-th row and column. Sizes the wrapped codec decodes to
// natively are passed straight through.
type SampledCodec struct {
	c *Codec
}

// NewSampledCodec wraps c. The SampledCodec does not own c.
func NewSampledCodec(c *Codec) *SampledCodec {
	return &SampledCodec{c: c}
}

// Codec returns the wrapped codec.
func (s *SampledCodec) Codec() *Codec { return s.c }

// GetSampledDimensions returns the size produced by keeping one pixel in
// sampleSize along each axis.
func (s *SampledCodec) GetSampledDimensions(sampleSize int) Size {
	sampleSize = max(sampleSize, 1)
	return Size{
		Width:  swizzle.ScaledDimension(s.c.info.Width, sampleSize),
		Height: swizzle.ScaledDimension(s.c.info.Height, sampleSize),
	}
}

// GetScaledDimensions prefers the wrapped codec's native scaling and
// falls back to the nearest integer sample size.
func (s *SampledCodec) GetScaledDimensions(desiredScale float64) Size {
	native := s.c.GetScaledDimensions(desiredScale)
	if desiredScale <= 0 || desiredScale >= 1 || native != s.c.info.Dimensions() {
		return native
	}
	return s.GetSampledDimensions(int(math.Round(1 / desiredScale)))
}

// GetPixels decodes into info, sampling when the wrapped codec cannot
// produce info's dimensions itself.
func (s *SampledCodec) GetPixels(info ImageInfo, pixels []byte, rowBytes int, opts *Options, palette *Palette) Result {
	c := s.c
	if c.DimensionsSupported(info.Dimensions()) {
		return c.GetPixels(info, pixels, rowBytes, opts, palette)
	}
	if info.ColorType == ColorTypeUnknown {
		return InvalidConversion
	}
	if pixels == nil || rowBytes < info.MinRowBytes() || len(pixels) < info.ComputeByteSize(rowBytes) {
		return InvalidParameters
	}
	if opts != nil && opts.Subset != nil {
		return Unimplemented
	}
	smp, ok := c.b.(sampler)
	if !ok {
		return InvalidScale
	}

	src := c.info
	sampleX := swizzle.ComputeSampleSize(src.Width, info.Width)
	sampleY := swizzle.ComputeSampleSize(src.Height, info.Height)
	if swizzle.ScaledDimension(src.Width, sampleX) != info.Width ||
		swizzle.ScaledDimension(src.Height, sampleY) != info.Height {
		return InvalidScale
	}

	native := info.WithDimensions(src.Dimensions())
	o, pal, result := c.validate(native, opts, palette)
	if result != Success {
		return result
	}
	c.mode = modeNone
	if result = c.startScanline(native, o, pal, info.MinRowBytes()); result != Success {
		return result
	}
	if smp.setSampleX(sampleX) != info.Width {
		return InvalidScale
	}
	Logger().Debug("codec: sampled decode", "format", c.format, "sampleX", sampleX, "sampleY", sampleY)

	switch c.ScanlineOrder() {
	case ScanlineOrderTopDown:
		result = s.sampleTopDown(info, pixels, rowBytes, sampleY)
	case ScanlineOrderNone:
		result = s.sampleWhole(info, pixels, rowBytes, sampleY)
	default:
		result = s.sampleMapped(info, pixels, rowBytes, sampleY)
	}
	if result == Success {
		c.rowsDecoded = info.Height
	}
	return result
}

func (s *SampledCodec) sampleTopDown(info ImageInfo, pixels []byte, rowBytes, sampleY int) Result {
	c := s.c
	zeroInit := c.opts.ZeroInitialized
	if !c.SkipScanlines(swizzle.StartCoord(sampleY)) {
		c.rowsDecoded = 0
		c.fillIncompleteImage(info, pixels, rowBytes, zeroInit, info.Height, 0, true)
		return IncompleteInput
	}
	for y := range info.Height {
		if c.GetScanlines(pixels[y*rowBytes:], 1, rowBytes) != 1 {
			c.rowsDecoded = y
			c.fillIncompleteImage(info, pixels, rowBytes, zeroInit, info.Height, y+1, true)
			return IncompleteInput
		}
		if y < info.Height-1 && !c.SkipScanlines(sampleY-1) {
			c.rowsDecoded = y + 1
			c.fillIncompleteImage(info, pixels, rowBytes, zeroInit, info.Height, y+1, true)
			return IncompleteInput
		}
	}
	return Success
}

// sampleMapped handles bottom-up and out-of-order codecs, asking the
// codec where each decoded row lands.
func (s *SampledCodec) sampleMapped(info ImageInfo, pixels []byte, rowBytes, sampleY int) Result {
	c := s.c
	written := make([]bool, info.Height)
	decoded := 0
	incomplete := false
	for range c.info.Height {
		srcY := c.NextScanline()
		if !swizzle.IsCoordNecessary(srcY, sampleY, info.Height) {
			if !c.SkipScanlines(1) {
				incomplete = true
				break
			}
			continue
		}
		dstY := swizzle.DstCoord(srcY, sampleY)
		n := c.GetScanlines(pixels[dstY*rowBytes:], 1, rowBytes)
		written[dstY] = true
		if n != 1 {
			incomplete = true
			break
		}
		decoded++
	}
	if !incomplete {
		return Success
	}
	c.rowsDecoded = decoded
	for y, ok := range written {
		if !ok {
			c.fillIncompleteImage(info, pixels[y*rowBytes:], rowBytes, c.opts.ZeroInitialized, 1, 0, true)
		}
	}
	return IncompleteInput
}

// sampleWhole handles codecs that must decode every row before any is
// final: all rows are decoded at the sampled width, then picked.
func (s *SampledCodec) sampleWhole(info ImageInfo, pixels []byte, rowBytes, sampleY int) Result {
	c := s.c
	rb := info.MinRowBytes()
	scratch := image.GetRow(rb * c.info.Height)
	defer image.PutRow(scratch)
	n := c.GetScanlines(scratch, c.info.Height, rb)
	start := swizzle.StartCoord(sampleY)
	for y := range info.Height {
		srcY := start + y*sampleY
		copy(pixels[y*rowBytes:y*rowBytes+rb], scratch[srcY*rb:(srcY+1)*rb])
	}
	if n < c.info.Height {
		c.rowsDecoded = min(max(n-start+sampleY-1, 0)/sampleY, info.Height)
		return IncompleteInput
	}
	return Success
}
