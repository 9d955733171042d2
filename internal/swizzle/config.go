package swizzle

// SrcConfig describes the layout of one encoded source pixel.
type SrcConfig uint8

const (
	Unknown SrcConfig = iota
	// Bit is one bit per pixel, MSB first, 1 meaning white.
	Bit
	Gray
	GrayAlpha
	Index1
	Index2
	Index4
	Index
	RGB
	BGR
	RGBX
	BGRX
	RGBA
	BGRA
	// RGB565 is a little-endian 16-bit pixel.
	RGB565
)

var srcConfigNames = [...]string{
	Unknown:   "Unknown",
	Bit:       "Bit",
	Gray:      "Gray",
	GrayAlpha: "GrayAlpha",
	Index1:    "Index1",
	Index2:    "Index2",
	Index4:    "Index4",
	Index:     "Index",
	RGB:       "RGB",
	BGR:       "BGR",
	RGBX:      "RGBX",
	BGRX:      "BGRX",
	RGBA:      "RGBA",
	BGRA:      "BGRA",
	RGB565:    "RGB565",
}

func (sc SrcConfig) String() string {
	if int(sc) < len(srcConfigNames) {
		return srcConfigNames[sc]
	}
	return "Unknown"
}

// BitsPerPixel returns the encoded size of one pixel in bits.
func BitsPerPixel(sc SrcConfig) int {
	switch sc {
	case Bit, Index1:
		return 1
	case Index2:
		return 2
	case Index4:
		return 4
	case Gray, Index:
		return 8
	case GrayAlpha, RGB565:
		return 16
	case RGB, BGR:
		return 24
	case RGBX, BGRX, RGBA, BGRA:
		return 32
	default:
		return 0
	}
}

// BytesPerPixel returns the encoded size of one pixel in bytes. Sub-byte
// configs report 0.
func BytesPerPixel(sc SrcConfig) int {
	return BitsPerPixel(sc) / 8
}

// IsIndexed reports whether pixels are palette indices.
func (sc SrcConfig) IsIndexed() bool {
	return sc >= Index1 && sc <= Index
}

// RowBytes returns the packed byte length of width source pixels.
func RowBytes(sc SrcConfig, width int) int {
	return (width*BitsPerPixel(sc) + 7) / 8
}

// ResultAlpha accumulates the alpha of swizzled pixels. The high byte is
// the AND of all alphas, the low byte the OR.
type ResultAlpha uint16

const (
	// Opaque means every pixel had alpha 0xFF.
	Opaque ResultAlpha = 0xFFFF
	// Transparent means every pixel had alpha 0.
	Transparent ResultAlpha = 0
)

// IsOpaque reports whether every pixel was fully opaque.
func (r ResultAlpha) IsOpaque() bool { return r == Opaque }

// IsTransparent reports whether every pixel was fully transparent.
func (r ResultAlpha) IsTransparent() bool { return r == Transparent }

// Merge combines two results as if their pixels were swizzled together.
func (r ResultAlpha) Merge(o ResultAlpha) ResultAlpha {
	maxA := uint8(r>>8) & uint8(o>>8)
	zeroA := uint8(r) | uint8(o)
	return ResultAlpha(uint16(maxA)<<8 | uint16(zeroA))
}

// alphaAccum tracks the AND and OR of alpha values.
type alphaAccum struct {
	zero uint8
	max  uint8
}

func newAlphaAccum() alphaAccum { return alphaAccum{zero: 0, max: 0xFF} }

func (a *alphaAccum) add(v uint8) {
	a.zero |= v
	a.max &= v
}

func (a alphaAccum) result() ResultAlpha {
	return ResultAlpha(uint16(a.max)<<8 | uint16(a.zero))
}

// EmptyAlpha is the ResultAlpha of zero pixels; merging pixels into it
// yields their combined result.
const EmptyAlpha ResultAlpha = 0xFF00

// AlphaOf returns the ResultAlpha of a single pixel with alpha a.
func AlphaOf(a uint8) ResultAlpha {
	return ResultAlpha(uint16(a)<<8 | uint16(a))
}
