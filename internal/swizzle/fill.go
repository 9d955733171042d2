package swizzle

import (
	stdcolor "image/color"

	"github.com/gogpu/codec/internal/color"
	"github.com/gogpu/codec/internal/image"
)

// Fill writes a background value into info.Height rows of info.Width
// pixels starting at dst. colorOrIndex is interpreted per color type:
//
//   - Index8: a literal palette index.
//   - Gray8: an 8-bit luminance.
//   - 32-bit, 565 and F16: a premultiplied 0xAARRGGBB color.
//
// When zeroInit is set and the resolved value is zero the memory is left
// untouched.
func Fill(dst []byte, info image.Info, rowBytes int, colorOrIndex uint32, zeroInit bool) {
	if info.Width <= 0 || info.Height <= 0 {
		return
	}
	switch info.ColorType {
	case image.ColorTypeIndex8, image.ColorTypeGray8:
		v := uint8(colorOrIndex)
		if zeroInit && v == 0 {
			return
		}
		for y := range info.Height {
			row := dst[y*rowBytes : y*rowBytes+info.Width]
			for x := range row {
				row[x] = v
			}
		}
		return
	}

	c := color.FromARGB(colorOrIndex)
	if info.ColorType == image.ColorTypeRGB565 {
		c.A = 0xFF
		if zeroInit && c.R|c.G|c.B == 0 {
			return
		}
	} else if zeroInit && c == (stdcolor.RGBA{}) {
		return
	}
	if info.AlphaType == image.AlphaTypeUnpremul && c.A != 0xFF {
		c = stdcolor.RGBA(color.Unpremultiply(c))
	}
	write := WriterFor(info)
	if write == nil {
		return
	}

	// Write the first row pixel by pixel, then copy it.
	bpp := info.BytesPerPixel()
	first := dst[:info.Width*bpp]
	for x := range info.Width {
		write(first, x, c)
	}
	for y := 1; y < info.Height; y++ {
		copy(dst[y*rowBytes:y*rowBytes+len(first)], first)
	}
}
