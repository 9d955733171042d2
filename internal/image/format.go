// Package image describes destination pixel memory for the codec package.
//
// It defines the closed set of color types every codec must either honor
// or refuse, the alpha types and their canonicalization rules, and a small
// caller-side Pixmap used by tools and tests.
package image

// ColorType is a destination pixel storage format.
type ColorType uint8

const (
	// ColorTypeUnknown is never a valid decode target.
	ColorTypeUnknown ColorType = iota

	// ColorTypeRGB565 is 16-bit packed RGB, little-endian (2 bytes per pixel).
	ColorTypeRGB565

	// ColorTypeRGBA8888 is 32-bit RGBA in memory order R, G, B, A.
	ColorTypeRGBA8888

	// ColorTypeBGRA8888 is 32-bit BGRA in memory order B, G, R, A.
	ColorTypeBGRA8888

	// ColorTypeIndex8 is one palette index per pixel; the palette is
	// returned next to the pixels.
	ColorTypeIndex8

	// ColorTypeGray8 is 8-bit luminance.
	ColorTypeGray8

	// ColorTypeRGBAF16 is four little-endian IEEE half floats per pixel,
	// linear and premultiplied.
	ColorTypeRGBAF16

	// colorTypeCount is the number of color types (for internal use).
	colorTypeCount
)

// ColorTypeN32 is the native 32-bit color type.
const ColorTypeN32 = ColorTypeRGBA8888

// ColorTypeInfo contains metadata about a color type.
type ColorTypeInfo struct {
	// BytesPerPixel is the number of bytes per pixel.
	BytesPerPixel int

	// AlwaysOpaque is set for color types that cannot store alpha.
	AlwaysOpaque bool

	// IsGrayscale indicates a single luminance channel.
	IsGrayscale bool

	// Name is the String() value.
	Name string
}

var colorTypeTable = [colorTypeCount]ColorTypeInfo{
	ColorTypeUnknown:  {Name: "Unknown"},
	ColorTypeRGB565:   {BytesPerPixel: 2, AlwaysOpaque: true, Name: "RGB565"},
	ColorTypeRGBA8888: {BytesPerPixel: 4, Name: "RGBA8888"},
	ColorTypeBGRA8888: {BytesPerPixel: 4, Name: "BGRA8888"},
	ColorTypeIndex8:   {BytesPerPixel: 1, Name: "Index8"},
	ColorTypeGray8:    {BytesPerPixel: 1, AlwaysOpaque: true, IsGrayscale: true, Name: "Gray8"},
	ColorTypeRGBAF16:  {BytesPerPixel: 8, Name: "RGBAF16"},
}

// Info returns the ColorTypeInfo for this color type.
func (c ColorType) Info() ColorTypeInfo {
	if c >= colorTypeCount {
		return ColorTypeInfo{Name: "Unknown"}
	}
	return colorTypeTable[c]
}

// BytesPerPixel returns the number of bytes per pixel for this color type.
func (c ColorType) BytesPerPixel() int {
	return c.Info().BytesPerPixel
}

// IsAlwaysOpaque reports whether the color type has no alpha storage.
func (c ColorType) IsAlwaysOpaque() bool {
	return c.Info().AlwaysOpaque
}

// String returns a string representation of the color type.
func (c ColorType) String() string {
	return c.Info().Name
}

// IsValid returns true for known, decodable color types.
func (c ColorType) IsValid() bool {
	return c > ColorTypeUnknown && c < colorTypeCount
}

// RowBytes calculates the minimum number of bytes for a row of the given width.
func (c ColorType) RowBytes(width int) int {
	return width * c.BytesPerPixel()
}

// AlphaType describes how the alpha channel of a pixel is interpreted.
type AlphaType uint8

const (
	AlphaTypeUnknown AlphaType = iota
	AlphaTypeOpaque
	AlphaTypePremul
	AlphaTypeUnpremul
)

// String returns a string representation of the alpha type.
func (a AlphaType) String() string {
	switch a {
	case AlphaTypeOpaque:
		return "Opaque"
	case AlphaTypePremul:
		return "Premul"
	case AlphaTypeUnpremul:
		return "Unpremul"
	default:
		return "Unknown"
	}
}

// CanonicalAlphaType returns the alpha type a color type forces on a request.
// Opaque-only color types always canonicalize to AlphaTypeOpaque. The
// second result is false when the pair can never be valid.
func CanonicalAlphaType(c ColorType, a AlphaType) (AlphaType, bool) {
	switch {
	case c == ColorTypeUnknown:
		return AlphaTypeUnknown, true
	case !c.IsValid():
		return AlphaTypeUnknown, false
	case c.IsAlwaysOpaque():
		return AlphaTypeOpaque, true
	case a == AlphaTypeUnknown:
		return AlphaTypeUnknown, false
	default:
		return a, true
	}
}
