package png

import (
	"io"

	"github.com/gogpu/codec/internal/swizzle"
)

// Row filter types.
const (
	filterNone = iota
	filterSub
	filterUp
	filterAverage
	filterPaeth
)

// adam7 holds the origin and step of each interlace pass.
var adam7 = [7]struct{ x, y, dx, dy int }{
	{0, 0, 8, 8},
	{4, 0, 8, 8},
	{0, 4, 4, 8},
	{2, 0, 4, 4},
	{0, 2, 2, 4},
	{1, 0, 2, 2},
	{0, 1, 1, 2},
}

// unfilter reverses the filter of cur (filter byte first) in place using
// the previous unfiltered row prev of the same pass.
func unfilter(cur, prev []byte, bpp int) error {
	f := cur[0]
	row, up := cur[1:], prev[1:]
	switch f {
	case filterNone:
	case filterSub:
		for i := bpp; i < len(row); i++ {
			row[i] += row[i-bpp]
		}
	case filterUp:
		for i := range row {
			row[i] += up[i]
		}
	case filterAverage:
		for i := range bpp {
			row[i] += up[i] / 2
		}
		for i := bpp; i < len(row); i++ {
			row[i] += uint8((int(row[i-bpp]) + int(up[i])) / 2)
		}
	case filterPaeth:
		for i := range bpp {
			row[i] += up[i]
		}
		for i := bpp; i < len(row); i++ {
			row[i] += paeth(row[i-bpp], up[i], up[i-bpp])
		}
	default:
		return FormatError("bad filter type")
	}
	return nil
}

func paeth(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	default:
		return c
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ReadRow returns the next unfiltered row of a non-interlaced image. The
// slice is reused by the next call.
func (d *Decoder) ReadRow() ([]byte, error) {
	n := 1 + d.RowBytes(d.Width)
	if d.cur == nil {
		d.cur = make([]byte, n)
		d.prev = make([]byte, n)
	}
	if _, err := io.ReadFull(d.zr, d.cur); err != nil {
		return nil, rowError(err)
	}
	if err := unfilter(d.cur, d.prev, d.filterBpp); err != nil {
		return nil, err
	}
	d.cur, d.prev = d.prev, d.cur
	return d.prev[1:], nil
}

// SkipRows reads and discards n rows, keeping the filter state.
func (d *Decoder) SkipRows(n int) error {
	for range n {
		if _, err := d.ReadRow(); err != nil {
			return err
		}
	}
	return nil
}

// ReadInterlaced decodes every Adam7 pass into dst, which holds Height
// rows of RowBytes(Width) bytes, stride bytes apart. On error dst holds
// the pixels of every pass that completed and of the rows read so far.
func (d *Decoder) ReadInterlaced(dst []byte, stride int) error {
	bits := d.BitsPerPixel()
	for _, p := range adam7 {
		if p.x >= d.Width || p.y >= d.Height {
			continue
		}
		pw := (d.Width - p.x + p.dx - 1) / p.dx
		ph := (d.Height - p.y + p.dy - 1) / p.dy
		n := 1 + d.RowBytes(pw)
		cur, prev := make([]byte, n), make([]byte, n)
		for py := range ph {
			if _, err := io.ReadFull(d.zr, cur); err != nil {
				return rowError(err)
			}
			if err := unfilter(cur, prev, d.filterBpp); err != nil {
				return err
			}
			out := dst[(p.y+py*p.dy)*stride:]
			for i := range pw {
				copyPixel(out, p.x+i*p.dx, cur[1:], i, bits)
			}
			cur, prev = prev, cur
		}
	}
	return nil
}

// copyPixel copies pixel si of src to pixel di of dst, both packed at
// bits per pixel.
func copyPixel(dst []byte, di int, src []byte, si int, bits int) {
	if bits >= 8 {
		n := bits / 8
		copy(dst[di*n:di*n+n], src[si*n:si*n+n])
		return
	}
	sb, db := si*bits, di*bits
	mask := uint8(1<<bits - 1)
	v := (src[sb>>3] >> (8 - bits - sb&7)) & mask
	shift := 8 - bits - db&7
	dst[db>>3] = dst[db>>3]&^(mask<<shift) | v<<shift
}

// SrcConfig returns the swizzler layout that Normalize produces.
func (in *Info) SrcConfig() swizzle.SrcConfig {
	switch in.ColorType {
	case ColorPalette:
		switch in.BitDepth {
		case 1:
			return swizzle.Index1
		case 2:
			return swizzle.Index2
		case 4:
			return swizzle.Index4
		default:
			return swizzle.Index
		}
	case ColorGray:
		if in.Transparent != nil {
			return swizzle.GrayAlpha
		}
		return swizzle.Gray
	case ColorGrayAlpha:
		return swizzle.GrayAlpha
	case ColorRGB:
		if in.Transparent != nil {
			return swizzle.RGBA
		}
		return swizzle.RGB
	default:
		return swizzle.RGBA
	}
}

// NormalizedRowBytes returns the size of a row after Normalize.
func (in *Info) NormalizedRowBytes() int {
	return swizzle.RowBytes(in.SrcConfig(), in.Width)
}

// Normalize converts an unfiltered row to the 8-bit layout named by
// SrcConfig. Rows that already have that layout are returned unchanged;
// otherwise the result is written to scratch, which must hold
// NormalizedRowBytes bytes.
func (in *Info) Normalize(scratch, row []byte) []byte {
	switch {
	case in.ColorType == ColorPalette:
		return row
	case in.Transparent != nil:
		return in.keyTransparent(scratch, row)
	case in.BitDepth == 8:
		return row
	case in.BitDepth == 16:
		for i := range len(row) / 2 {
			scratch[i] = row[2*i]
		}
		return scratch[:len(row)/2]
	default:
		// Gray below 8 bits.
		for x := range in.Width {
			scratch[x] = scaleSample(sample(row, x, in.BitDepth), in.BitDepth)
		}
		return scratch[:in.Width]
	}
}

// keyTransparent expands gray or RGB with a tRNS key to an alpha layout.
func (in *Info) keyTransparent(scratch, row []byte) []byte {
	ch := in.Channels()
	out := ch + 1
	for x := range in.Width {
		match := true
		for c := range ch {
			v := sample(row, x*ch+c, in.BitDepth)
			if v != in.Transparent[c] {
				match = false
			}
			scratch[x*out+c] = scaleSample(v, in.BitDepth)
		}
		scratch[x*out+ch] = 0xFF
		if match {
			scratch[x*out+ch] = 0
		}
	}
	return scratch[:in.Width*out]
}

// sample returns the i-th sample of a row at the given bit depth.
func sample(row []byte, i, depth int) uint16 {
	switch depth {
	case 16:
		return uint16(row[2*i])<<8 | uint16(row[2*i+1])
	case 8:
		return uint16(row[i])
	default:
		bit := i * depth
		return uint16(row[bit>>3]>>(8-depth-bit&7)) & (1<<depth - 1)
	}
}

func scaleSample(v uint16, depth int) uint8 {
	switch depth {
	case 16:
		return uint8(v >> 8)
	case 8:
		return uint8(v)
	default:
		return uint8(uint32(v) * 255 / (1<<depth - 1))
	}
}
