package codec

import (
	"image/color"

	"github.com/gogpu/codec/internal/image"
)

// ColorType is a destination pixel storage format.
type ColorType = image.ColorType

// Supported destination color types.
const (
	ColorTypeUnknown  = image.ColorTypeUnknown
	ColorTypeRGB565   = image.ColorTypeRGB565
	ColorTypeRGBA8888 = image.ColorTypeRGBA8888
	ColorTypeBGRA8888 = image.ColorTypeBGRA8888
	ColorTypeIndex8   = image.ColorTypeIndex8
	ColorTypeGray8    = image.ColorTypeGray8
	ColorTypeRGBAF16  = image.ColorTypeRGBAF16
	ColorTypeN32      = image.ColorTypeN32
)

// AlphaType describes how alpha is stored.
type AlphaType = image.AlphaType

// Alpha types.
const (
	AlphaTypeUnknown  = image.AlphaTypeUnknown
	AlphaTypeOpaque   = image.AlphaTypeOpaque
	AlphaTypePremul   = image.AlphaTypePremul
	AlphaTypeUnpremul = image.AlphaTypeUnpremul
)

// ImageInfo describes a block of pixels.
type ImageInfo = image.Info

// Size is a pair of pixel dimensions.
type Size = image.Size

// MakeInfo returns an ImageInfo.
func MakeInfo(width, height int, ct ColorType, at AlphaType) ImageInfo {
	return image.MakeInfo(width, height, ct, at)
}

// Format identifies an encoded image format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatPNG
	FormatJPEG
	FormatWEBP
	FormatGIF
	FormatICO
	FormatBMP
	FormatWBMP
	FormatQOI
	FormatRAW
)

var formatNames = [...]string{
	FormatUnknown: "unknown",
	FormatPNG:     "png",
	FormatJPEG:    "jpeg",
	FormatWEBP:    "webp",
	FormatGIF:     "gif",
	FormatICO:     "ico",
	FormatBMP:     "bmp",
	FormatWBMP:    "wbmp",
	FormatQOI:     "qoi",
	FormatRAW:     "raw",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "unknown"
}

// EncodedColor is the color layout the file declares.
type EncodedColor uint8

const (
	EncodedGray EncodedColor = iota
	EncodedGrayAlpha
	EncodedPalette
	EncodedRGB
	EncodedRGBA
	EncodedBGR
	EncodedBGRX
	EncodedBGRA
	EncodedYUV
	EncodedYUVA
	EncodedBit
)

// EncodedAlpha is the alpha disposition the file declares.
type EncodedAlpha uint8

const (
	EncodedOpaque EncodedAlpha = iota
	EncodedUnpremul
	// EncodedBinary alpha is either fully opaque or fully transparent.
	EncodedBinary
)

// EncodedInfo holds the properties a format declares in its header. It is
// immutable once the codec is created.
type EncodedInfo struct {
	Width            int
	Height           int
	Color            EncodedColor
	Alpha            EncodedAlpha
	BitsPerComponent int
	// ICCProfile is the embedded color profile, if any.
	ICCProfile []byte
}

// Dimensions returns the encoded size.
func (e EncodedInfo) Dimensions() Size {
	return Size{Width: e.Width, Height: e.Height}
}

// Palette receives the color table of an Index8 decode. Colors are
// premultiplied.
type Palette struct {
	Colors [256]color.RGBA
	Count  int
}
