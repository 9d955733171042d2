package bmp

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/codec/internal/color"
	"github.com/gogpu/codec/internal/image"
	"github.com/gogpu/codec/internal/swizzle"
)

// MaskInfo describes one channel of a bit-field pixel.
type MaskInfo struct {
	Mask  uint32
	Shift int
	Size  int
}

func newMaskInfo(mask uint32, bpp int) MaskInfo {
	if bpp < 32 {
		mask &= 1<<bpp - 1
	}
	if mask == 0 {
		return MaskInfo{}
	}
	shift := bits.TrailingZeros32(mask)
	size := bits.Len32(mask >> shift)
	return MaskInfo{Mask: mask, Shift: shift, Size: size}
}

// get extracts the channel from pixel and scales it to 8 bits.
func (m MaskInfo) get(pixel uint32) uint8 {
	if m.Size == 0 {
		return 0
	}
	v := (pixel & m.Mask) >> m.Shift
	switch {
	case m.Size == 8:
		return uint8(v)
	case m.Size > 8:
		return uint8(v >> (m.Size - 8))
	default:
		return uint8(v * 255 / (1<<m.Size - 1))
	}
}

// Masks splits packed pixels into channels.
type Masks struct {
	Red, Green, Blue, Alpha MaskInfo
	BitsPerPixel            int
}

// NewMasks returns the masks for bpp-bit pixels. Bits outside the pixel
// are dropped.
func NewMasks(r, g, b, a uint32, bpp int) *Masks {
	return &Masks{
		Red:          newMaskInfo(r, bpp),
		Green:        newMaskInfo(g, bpp),
		Blue:         newMaskInfo(b, bpp),
		Alpha:        newMaskInfo(a, bpp),
		BitsPerPixel: bpp,
	}
}

// Color returns the unpremultiplied channels of pixel. Without an alpha
// mask pixels are opaque.
func (m *Masks) Color(pixel uint32) (r, g, b, a uint8) {
	a = 0xFF
	if m.Alpha.Size != 0 {
		a = m.Alpha.get(pixel)
	}
	return m.Red.get(pixel), m.Green.get(pixel), m.Blue.get(pixel), a
}

// MaskSwizzler converts rows of bit-field pixels.
type MaskSwizzler struct {
	masks    *Masks
	bpp      int // bytes per pixel
	write    swizzle.PixelWriter
	premul   bool
	srcWidth int
	sampleX  int
	width    int
	start    int
}

// NewMaskSwizzler returns a swizzler from masked pixels to dst.
func NewMaskSwizzler(m *Masks, dst image.Info, srcWidth int) (*MaskSwizzler, error) {
	write := swizzle.WriterFor(dst)
	if write == nil || dst.ColorType == image.ColorTypeGray8 {
		return nil, fmt.Errorf("%w: masks to %v", swizzle.ErrUnsupportedConversion, dst.ColorType)
	}
	s := &MaskSwizzler{
		masks:    m,
		bpp:      m.BitsPerPixel / 8,
		write:    write,
		premul:   dst.AlphaType == image.AlphaTypePremul,
		srcWidth: srcWidth,
	}
	s.SetSampleX(1)
	return s, nil
}

// SetSampleX sets the horizontal sample size and returns the number of
// pixels each row produces.
func (s *MaskSwizzler) SetSampleX(sampleX int) int {
	s.sampleX = max(sampleX, 1)
	s.start = swizzle.StartCoord(s.sampleX)
	s.width = swizzle.ScaledDimension(s.srcWidth, s.sampleX)
	return s.width
}

// Swizzle converts one row.
func (s *MaskSwizzler) Swizzle(dst, src []byte) swizzle.ResultAlpha {
	result := swizzle.EmptyAlpha
	for x := range s.width {
		off := (s.start + x*s.sampleX) * s.bpp
		if off+s.bpp > len(src) {
			break
		}
		var p uint32
		for i := s.bpp - 1; i >= 0; i-- {
			p = p<<8 | uint32(src[off+i])
		}
		r, g, b, a := s.masks.Color(p)
		result = result.Merge(swizzle.AlphaOf(a))
		c := color.Premultiply(r, g, b, a)
		if !s.premul {
			c.R, c.G, c.B = r, g, b
		}
		s.write(dst, x, c)
	}
	return result
}
