package swizzle

import (
	"errors"
	"fmt"
	stdcolor "image/color"

	"github.com/gogpu/codec/internal/color"
	"github.com/gogpu/codec/internal/image"
)

// Errors returned by New.
var (
	ErrUnsupportedConversion = errors.New("swizzle: unsupported conversion")
	ErrMissingTable          = errors.New("swizzle: indexed source needs a color table")
	ErrInvalidGeometry       = errors.New("swizzle: invalid row geometry")
)

// Config describes one swizzle setup.
type Config struct {
	Src   SrcConfig
	Table *color.Table
	Dst   image.Info

	// SrcWidth is the number of pixels in each source row.
	SrcWidth int
	// SrcOffset is the first source pixel consumed (horizontal subset).
	SrcOffset int
	// Width is the number of source pixels consumed starting at
	// SrcOffset. Zero means through the end of the row.
	Width int
	// DstOffset is the first destination pixel written, before sampling
	// (animation frames that start right of the canvas origin).
	DstOffset int

	ZeroInitialized bool
}

// readFunc decodes the source pixel at pos, which is a bit offset for
// sub-byte configs and a byte offset otherwise.
type readFunc func(s *Swizzler, src []byte, pos int) (c stdcolor.RGBA, idx uint8)

// Swizzler converts source rows into destination rows.
type Swizzler struct {
	cfg      Config
	read     readFunc
	write    PixelWriter
	indexDst bool
	premul   bool
	grayDst  bool
	// index565 packs indexed sources through the table's 565 cache.
	index565 bool

	bitsMode     bool // offsets and deltas are in bits
	unit         int  // bits or bytes per source pixel
	srcWidth     int  // pixels consumed per row, before sampling
	sampleX      int
	sampleY      int
	swizzleWidth int // pixels written per row
	srcOffset    int // first source unit read
	srcDelta     int // units between sampled pixels
	dstOffset    int // first destination pixel written
}

// New creates a swizzler for cfg with no sampling.
func New(cfg Config) (*Swizzler, error) {
	if BitsPerPixel(cfg.Src) == 0 {
		return nil, fmt.Errorf("%w: source %v", ErrUnsupportedConversion, cfg.Src)
	}
	if cfg.SrcOffset < 0 || cfg.DstOffset < 0 || cfg.SrcOffset > cfg.SrcWidth {
		return nil, ErrInvalidGeometry
	}
	if cfg.Width == 0 {
		cfg.Width = cfg.SrcWidth - cfg.SrcOffset
	}
	if cfg.Width <= 0 || cfg.SrcOffset+cfg.Width > cfg.SrcWidth {
		return nil, ErrInvalidGeometry
	}

	s := &Swizzler{
		cfg:     cfg,
		premul:  cfg.Dst.AlphaType == image.AlphaTypePremul,
		grayDst: cfg.Dst.ColorType == image.ColorTypeGray8,
	}
	switch cfg.Dst.ColorType {
	case image.ColorTypeIndex8:
		if !cfg.Src.IsIndexed() && cfg.Src != Bit {
			return nil, fmt.Errorf("%w: %v to %v", ErrUnsupportedConversion, cfg.Src, cfg.Dst.ColorType)
		}
		s.indexDst = true
	case image.ColorTypeGray8:
		if cfg.Src != Gray && cfg.Src != Bit && cfg.Src != GrayAlpha {
			return nil, fmt.Errorf("%w: %v to %v", ErrUnsupportedConversion, cfg.Src, cfg.Dst.ColorType)
		}
	}
	s.index565 = cfg.Src.IsIndexed() && cfg.Dst.ColorType == image.ColorTypeRGB565
	if !s.indexDst {
		s.write = WriterFor(cfg.Dst)
		if s.write == nil {
			return nil, fmt.Errorf("%w: destination %v", ErrUnsupportedConversion, cfg.Dst.ColorType)
		}
	}
	if cfg.Src.IsIndexed() && cfg.Table == nil {
		return nil, ErrMissingTable
	}
	s.read = readers[cfg.Src]

	bpp := BitsPerPixel(cfg.Src)
	s.bitsMode = bpp%8 != 0
	if s.bitsMode {
		s.unit = bpp
	} else {
		s.unit = bpp / 8
	}
	s.srcWidth = cfg.Width
	s.SetSampleX(1)
	s.sampleY = 1
	return s, nil
}

// SetSampleX sets the horizontal sample size and returns the number of
// destination pixels each Swizzle call writes.
func (s *Swizzler) SetSampleX(sampleX int) int {
	if sampleX < 1 {
		sampleX = 1
	}
	s.sampleX = sampleX
	s.swizzleWidth = ScaledDimension(s.srcWidth, sampleX)
	s.srcOffset = (s.cfg.SrcOffset + StartCoord(sampleX)) * s.unit
	s.srcDelta = sampleX * s.unit
	s.dstOffset = s.cfg.DstOffset / sampleX
	if limit := s.cfg.Dst.Width - s.dstOffset; s.swizzleWidth > limit {
		s.swizzleWidth = max(limit, 0)
	}
	return s.swizzleWidth
}

// SetSampleY records the vertical sample size used by RowNeeded.
func (s *Swizzler) SetSampleY(sampleY int) {
	s.sampleY = max(sampleY, 1)
}

// SampleX returns the horizontal sample size.
func (s *Swizzler) SampleX() int { return s.sampleX }

// SampleY returns the vertical sample size.
func (s *Swizzler) SampleY() int { return s.sampleY }

// SwizzleWidth returns the number of destination pixels written per row.
func (s *Swizzler) SwizzleWidth() int { return s.swizzleWidth }

// DstOffset returns the first destination pixel written, after sampling.
func (s *Swizzler) DstOffset() int { return s.dstOffset }

// RowNeeded reports whether source row y survives vertical sampling.
func (s *Swizzler) RowNeeded(y int) bool {
	start := StartCoord(s.sampleY)
	return y >= start && (y-start)%s.sampleY == 0
}

// Swizzle converts one source row into dst. dst starts at the beginning
// of the destination row; the configured destination offset is applied
// here. A short src row converts as many whole pixels as it holds.
func (s *Swizzler) Swizzle(dst, src []byte) ResultAlpha {
	acc := newAlphaAccum()
	n := s.swizzleWidth
	if avail := s.pixelsAvailable(len(src)); avail < n {
		n = avail
	}
	pos := s.srcOffset
	for i := range n {
		c, idx := s.read(s, src, pos)
		x := s.dstOffset + i
		if s.indexDst {
			dst[x] = idx
			if s.cfg.Src == Bit {
				acc.add(0xFF)
			} else {
				acc.add(s.cfg.Table.At(int(idx)).A)
			}
		} else if s.index565 {
			acc.add(c.A)
			if v := s.cfg.Table.At16(int(idx)); !(s.cfg.ZeroInitialized && v == 0) {
				dst[x*2], dst[x*2+1] = byte(v), byte(v>>8)
			}
		} else {
			acc.add(c.A)
			if !(s.cfg.ZeroInitialized && c == (stdcolor.RGBA{})) {
				s.write(dst, x, c)
			}
		}
		pos += s.srcDelta
	}
	return acc.result()
}

// pixelsAvailable returns how many sampled pixels fit in a source row of
// srcLen bytes.
func (s *Swizzler) pixelsAvailable(srcLen int) int {
	limit := srcLen
	if s.bitsMode {
		limit = srcLen * 8
	}
	// The last pixel needs s.unit units starting at its offset.
	if limit < s.srcOffset+s.unit {
		return 0
	}
	return (limit-s.srcOffset-s.unit)/s.srcDelta + 1
}

func (s *Swizzler) colorAt(idx uint8) stdcolor.RGBA {
	c := s.cfg.Table.At(int(idx))
	if !s.premul && c.A != 0xFF {
		return stdcolor.RGBA(color.Unpremultiply(c))
	}
	return c
}

func (s *Swizzler) alpha(r, g, b, a uint8) stdcolor.RGBA {
	if s.premul {
		return color.Premultiply(r, g, b, a)
	}
	return stdcolor.RGBA{R: r, G: g, B: b, A: a}
}

func subByte(src []byte, pos, bpp int) uint8 {
	shift := 8 - bpp - pos&7
	return (src[pos>>3] >> shift) & (1<<bpp - 1)
}

var readers = [...]readFunc{
	Bit: func(_ *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		if subByte(src, pos, 1) != 0 {
			return stdcolor.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, 1
		}
		return color.Black, 0
	},
	Gray: func(_ *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		g := src[pos]
		return stdcolor.RGBA{R: g, G: g, B: g, A: 0xFF}, g
	},
	GrayAlpha: func(s *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		g := src[pos]
		return s.alpha(g, g, g, src[pos+1]), g
	},
	Index1: func(s *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		idx := subByte(src, pos, 1)
		return s.colorAt(idx), idx
	},
	Index2: func(s *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		idx := subByte(src, pos, 2)
		return s.colorAt(idx), idx
	},
	Index4: func(s *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		idx := subByte(src, pos, 4)
		return s.colorAt(idx), idx
	},
	Index: func(s *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		idx := src[pos]
		return s.colorAt(idx), idx
	},
	RGB: func(_ *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		return stdcolor.RGBA{R: src[pos], G: src[pos+1], B: src[pos+2], A: 0xFF}, 0
	},
	BGR: func(_ *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		return stdcolor.RGBA{R: src[pos+2], G: src[pos+1], B: src[pos], A: 0xFF}, 0
	},
	RGBX: func(_ *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		return stdcolor.RGBA{R: src[pos], G: src[pos+1], B: src[pos+2], A: 0xFF}, 0
	},
	BGRX: func(_ *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		return stdcolor.RGBA{R: src[pos+2], G: src[pos+1], B: src[pos], A: 0xFF}, 0
	},
	RGBA: func(s *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		return s.alpha(src[pos], src[pos+1], src[pos+2], src[pos+3]), 0
	},
	BGRA: func(s *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		return s.alpha(src[pos+2], src[pos+1], src[pos], src[pos+3]), 0
	},
	RGB565: func(_ *Swizzler, src []byte, pos int) (stdcolor.RGBA, uint8) {
		r, g, b := color.Unpack565(uint16(src[pos]) | uint16(src[pos+1])<<8)
		return stdcolor.RGBA{R: r, G: g, B: b, A: 0xFF}, 0
	},
}
