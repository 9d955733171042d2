package swizzle

import (
	stdcolor "image/color"

	"github.com/gogpu/codec/internal/color"
	"github.com/gogpu/codec/internal/image"
)

// PixelWriter stores one color at pixel x of a destination row. The color
// is already in the destination's alpha form (premultiplied or not).
type PixelWriter func(row []byte, x int, c stdcolor.RGBA)

// WriterFor returns the PixelWriter for a destination. Index8 and
// unknown color types have no writer.
func WriterFor(info image.Info) PixelWriter {
	switch info.ColorType {
	case image.ColorTypeRGBA8888:
		return writeRGBA
	case image.ColorTypeBGRA8888:
		return writeBGRA
	case image.ColorTypeRGB565:
		return write565
	case image.ColorTypeGray8:
		return writeGray
	case image.ColorTypeRGBAF16:
		if info.AlphaType == image.AlphaTypeUnpremul {
			return writeF16Unpremul
		}
		return writeF16
	}
	return nil
}

func writeRGBA(row []byte, x int, c stdcolor.RGBA) {
	p := row[x*4 : x*4+4 : x*4+4]
	p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
}

func writeBGRA(row []byte, x int, c stdcolor.RGBA) {
	p := row[x*4 : x*4+4 : x*4+4]
	p[0], p[1], p[2], p[3] = c.B, c.G, c.R, c.A
}

func write565(row []byte, x int, c stdcolor.RGBA) {
	v := color.Pack565(c.R, c.G, c.B)
	row[x*2] = byte(v)
	row[x*2+1] = byte(v >> 8)
}

func writeGray(row []byte, x int, c stdcolor.RGBA) {
	if c.R == c.G && c.G == c.B {
		row[x] = c.R
		return
	}
	row[x] = color.Luminance(c.R, c.G, c.B)
}

// writeF16 expects a premultiplied sRGB color and stores premultiplied
// linear halfs.
func writeF16(row []byte, x int, c stdcolor.RGBA) {
	n := color.Unpremultiply(c)
	a := float32(n.A) / 255
	putF16(row[x*8:x*8+8], color.SRGBToLinear(n.R)*a, color.SRGBToLinear(n.G)*a, color.SRGBToLinear(n.B)*a, a)
}

func writeF16Unpremul(row []byte, x int, c stdcolor.RGBA) {
	putF16(row[x*8:x*8+8], color.SRGBToLinear(c.R), color.SRGBToLinear(c.G), color.SRGBToLinear(c.B), float32(c.A)/255)
}

func putF16(p []byte, r, g, b, a float32) {
	for i, v := range [4]float32{r, g, b, a} {
		h := color.HalfFromFloat32(v)
		p[i*2] = byte(h)
		p[i*2+1] = byte(h >> 8)
	}
}
