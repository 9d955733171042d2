// Package color holds the color vocabulary shared by the codecs: the
// palette type used by indexed formats, premultiplication and 565 packing,
// half-float encoding and sRGB transfer lookup tables.
package color

import stdcolor "image/color"

// Transparent is the canonical fully transparent premultiplied color.
var Transparent = stdcolor.RGBA{}

// Black is opaque black.
var Black = stdcolor.RGBA{A: 0xFF}

// MulDiv255 returns round(a*b/255) for bytes.
func MulDiv255(a, b uint8) uint8 {
	prod := uint32(a)*uint32(b) + 128
	return uint8((prod + (prod >> 8)) >> 8)
}

// Premultiply scales r, g, b by a.
func Premultiply(r, g, b, a uint8) stdcolor.RGBA {
	if a == 0xFF {
		return stdcolor.RGBA{R: r, G: g, B: b, A: a}
	}
	return stdcolor.RGBA{R: MulDiv255(r, a), G: MulDiv255(g, a), B: MulDiv255(b, a), A: a}
}

// Unpremultiply reverses Premultiply, clamping components to alpha.
func Unpremultiply(c stdcolor.RGBA) stdcolor.NRGBA {
	switch c.A {
	case 0:
		return stdcolor.NRGBA{}
	case 0xFF:
		return stdcolor.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
	}
	un := func(v uint8) uint8 {
		if v >= c.A {
			return 0xFF
		}
		return uint8((uint32(v)*255 + uint32(c.A)/2) / uint32(c.A))
	}
	return stdcolor.NRGBA{R: un(c.R), G: un(c.G), B: un(c.B), A: c.A}
}

// FromARGB unpacks a 0xAARRGGBB value. The value is used as is; callers
// pass premultiplied colors.
func FromARGB(v uint32) stdcolor.RGBA {
	return stdcolor.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: uint8(v >> 24)}
}

// ToARGB packs a color as 0xAARRGGBB.
func ToARGB(c stdcolor.RGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Pack565 packs 8-bit components into RGB 5-6-5.
func Pack565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// Unpack565 expands RGB 5-6-5 to 8-bit components by bit replication.
func Unpack565(v uint16) (r, g, b uint8) {
	r5 := uint8(v>>11) & 0x1F
	g6 := uint8(v>>5) & 0x3F
	b5 := uint8(v) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// Luminance returns the BT.601 luma of an sRGB triple.
func Luminance(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}
