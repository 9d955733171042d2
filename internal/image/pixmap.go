package image

import (
	"errors"
	stdimage "image"
	stdcolor "image/color"

	"github.com/gogpu/codec/internal/color"
)

// Common errors for pixmap construction.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("image: invalid dimensions")

	// ErrInvalidColorType is returned for ColorTypeUnknown or out-of-range values.
	ErrInvalidColorType = errors.New("image: invalid color type")

	// ErrInvalidStride is returned when the stride is less than MinRowBytes.
	ErrInvalidStride = errors.New("image: stride too small for width")
)

// Pixmap is caller-owned pixel memory described by an Info. Codecs write
// into Pixels; they never allocate it.
type Pixmap struct {
	info     Info
	pixels   []byte
	rowBytes int

	// Palette receives the color table of Index8 decodes.
	Palette [256]stdcolor.RGBA
	// PaletteCount is the number of valid Palette entries.
	PaletteCount int
}

// NewPixmap allocates a tightly packed pixmap.
func NewPixmap(info Info) (*Pixmap, error) {
	return NewPixmapWithStride(info, info.MinRowBytes())
}

// NewPixmapWithStride allocates a pixmap with a custom row stride.
func NewPixmapWithStride(info Info, rowBytes int) (*Pixmap, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if !info.ColorType.IsValid() {
		return nil, ErrInvalidColorType
	}
	if rowBytes < info.MinRowBytes() {
		return nil, ErrInvalidStride
	}
	return &Pixmap{
		info:     info,
		pixels:   make([]byte, rowBytes*info.Height),
		rowBytes: rowBytes,
	}, nil
}

// Info returns the pixmap description.
func (p *Pixmap) Info() Info { return p.info }

// Pixels returns the backing memory.
func (p *Pixmap) Pixels() []byte { return p.pixels }

// RowBytes returns the row stride.
func (p *Pixmap) RowBytes() int { return p.rowBytes }

// Row returns the bytes of row y, MinRowBytes long.
func (p *Pixmap) Row(y int) []byte {
	off := y * p.rowBytes
	return p.pixels[off : off+p.info.MinRowBytes()]
}

// Erase sets every byte to zero.
func (p *Pixmap) Erase() {
	clear(p.pixels)
}

// NRGBAAt returns the unpremultiplied color of pixel (x, y).
func (p *Pixmap) NRGBAAt(x, y int) stdcolor.NRGBA {
	row := p.Row(y)
	switch p.info.ColorType {
	case ColorTypeRGBA8888, ColorTypeBGRA8888:
		px := row[x*4 : x*4+4]
		c := stdcolor.RGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
		if p.info.ColorType == ColorTypeBGRA8888 {
			c.R, c.B = c.B, c.R
		}
		if p.info.AlphaType == AlphaTypeUnpremul {
			return stdcolor.NRGBA(c)
		}
		return color.Unpremultiply(c)
	case ColorTypeRGB565:
		r, g, b := color.Unpack565(uint16(row[x*2]) | uint16(row[x*2+1])<<8)
		return stdcolor.NRGBA{R: r, G: g, B: b, A: 0xFF}
	case ColorTypeGray8:
		v := row[x]
		return stdcolor.NRGBA{R: v, G: v, B: v, A: 0xFF}
	case ColorTypeIndex8:
		idx := int(row[x])
		if idx >= p.PaletteCount {
			return stdcolor.NRGBA{}
		}
		return color.Unpremultiply(p.Palette[idx])
	case ColorTypeRGBAF16:
		px := row[x*8 : x*8+8]
		var ch [4]float32
		for i := range ch {
			ch[i] = color.Float32FromHalf(uint16(px[i*2]) | uint16(px[i*2+1])<<8)
		}
		a := ch[3]
		if a <= 0 {
			return stdcolor.NRGBA{}
		}
		return stdcolor.NRGBA{
			R: color.LinearToSRGB(ch[0] / a),
			G: color.LinearToSRGB(ch[1] / a),
			B: color.LinearToSRGB(ch[2] / a),
			A: uint8(min(a, 1)*255 + 0.5),
		}
	}
	return stdcolor.NRGBA{}
}

// ToStdImage converts the pixmap to a standard library image.
// Gray8 becomes *image.Gray; everything else *image.NRGBA.
func (p *Pixmap) ToStdImage() stdimage.Image {
	rect := p.info.Bounds()
	if p.info.ColorType == ColorTypeGray8 {
		gray := stdimage.NewGray(rect)
		for y := range p.info.Height {
			copy(gray.Pix[y*gray.Stride:], p.Row(y))
		}
		return gray
	}
	nrgba := stdimage.NewNRGBA(rect)
	for y := range p.info.Height {
		for x := range p.info.Width {
			nrgba.SetNRGBA(x, y, p.NRGBAAt(x, y))
		}
	}
	return nrgba
}
