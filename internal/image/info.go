package image

import (
	"fmt"
	stdimage "image"
)

// ColorSpace names the transfer characteristics of decoded pixels.
type ColorSpace uint8

const (
	// ColorSpaceSRGB is the default for 8-bit and 565 destinations.
	ColorSpaceSRGB ColorSpace = iota

	// ColorSpaceLinear is used by F16 destinations.
	ColorSpaceLinear
)

// Size is a pair of pixel dimensions.
type Size struct {
	Width  int
	Height int
}

// IsEmpty reports whether either dimension is not positive.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Area returns Width*Height as int64.
func (s Size) Area() int64 {
	return int64(s.Width) * int64(s.Height)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Info describes a block of pixels: dimensions, color type, alpha type and
// color space. It is a value type.
type Info struct {
	Width      int
	Height     int
	ColorType  ColorType
	AlphaType  AlphaType
	ColorSpace ColorSpace
}

// MakeInfo returns an Info with the given dimensions and types.
func MakeInfo(width, height int, ct ColorType, at AlphaType) Info {
	info := Info{Width: width, Height: height, ColorType: ct, AlphaType: at}
	if ct == ColorTypeRGBAF16 {
		info.ColorSpace = ColorSpaceLinear
	}
	return info
}

// MakeN32 returns an Info for the native 32-bit color type.
func MakeN32(width, height int, at AlphaType) Info {
	return MakeInfo(width, height, ColorTypeN32, at)
}

// Dimensions returns the Size of the info.
func (i Info) Dimensions() Size {
	return Size{Width: i.Width, Height: i.Height}
}

// Bounds returns the rectangle (0, 0, Width, Height).
func (i Info) Bounds() stdimage.Rectangle {
	return stdimage.Rect(0, 0, i.Width, i.Height)
}

// BytesPerPixel returns the number of bytes per pixel for the color type.
func (i Info) BytesPerPixel() int {
	return i.ColorType.BytesPerPixel()
}

// MinRowBytes returns the smallest legal row stride.
func (i Info) MinRowBytes() int {
	return i.ColorType.RowBytes(i.Width)
}

// ComputeByteSize returns the number of bytes a buffer with the given
// stride must hold. The last row only needs MinRowBytes.
func (i Info) ComputeByteSize(rowBytes int) int {
	if i.Height <= 0 {
		return 0
	}
	return (i.Height-1)*rowBytes + i.MinRowBytes()
}

// IsOpaque reports whether the alpha type is opaque.
func (i Info) IsOpaque() bool {
	return i.AlphaType == AlphaTypeOpaque
}

// WithDimensions returns a copy with new dimensions.
func (i Info) WithDimensions(s Size) Info {
	i.Width, i.Height = s.Width, s.Height
	return i
}

// WithColorType returns a copy with a new color type.
func (i Info) WithColorType(ct ColorType) Info {
	i.ColorType = ct
	if ct == ColorTypeRGBAF16 {
		i.ColorSpace = ColorSpaceLinear
	}
	return i
}

// WithAlphaType returns a copy with a new alpha type.
func (i Info) WithAlphaType(at AlphaType) Info {
	i.AlphaType = at
	return i
}

func (i Info) String() string {
	return fmt.Sprintf("%dx%d %s/%s", i.Width, i.Height, i.ColorType, i.AlphaType)
}
