package bmp

import (
	"errors"
	"io"
)

// ErrIncomplete reports that RLE data ended before the image did.
var ErrIncomplete = errors.New("bmp: incomplete RLE data")

const (
	rleEscape = 0
	rleEOL    = 0
	rleEOF    = 1
	rleDelta  = 2
)

// RLESink receives decoded RLE pixels. y counts rows in file order, so
// bottom-up images must be flipped by the sink.
type RLESink interface {
	SetIndex(x, y int, index uint8)
	SetRGB(x, y int, r, g, b uint8)
}

// RLEDecoder decodes RLE4, RLE8 and RLE24 pixel data. It buffers the
// stream and reads more when a code straddles the end of the buffer, so
// data appended to the stream after an incomplete decode is picked up by
// a later decode.
type RLEDecoder struct {
	r   io.Reader
	bpp int
	buf []byte
	pos int
	end int
}

// NewRLEDecoder decodes bpp-bit RLE data from r, reading at most bufSize
// bytes at a time.
func NewRLEDecoder(r io.Reader, bpp, bufSize int) *RLEDecoder {
	return &RLEDecoder{r: r, bpp: bpp, buf: make([]byte, max(bufSize, 64))}
}

// need makes n bytes available and reports whether it could.
func (d *RLEDecoder) need(n int) bool {
	if d.end-d.pos >= n {
		return true
	}
	remaining := copy(d.buf, d.buf[d.pos:d.end])
	d.pos, d.end = 0, remaining
	if n > len(d.buf) {
		grown := make([]byte, n)
		copy(grown, d.buf[:remaining])
		d.buf = grown
	}
	m, _ := io.ReadAtLeast(d.r, d.buf[d.end:], n-remaining)
	d.end += m
	return d.end-d.pos >= n
}

func (d *RLEDecoder) next() uint8 {
	b := d.buf[d.pos]
	d.pos++
	return b
}

// Decode runs the RLE program against a width x height image. It returns
// the number of complete rows and ErrIncomplete if data ran out, or a
// FormatError for corrupt codes.
func (d *RLEDecoder) Decode(sink RLESink, width, height int) (int, error) {
	x, y := 0, 0
	for {
		if y >= height {
			return height, nil
		}
		if !d.need(2) {
			return y, ErrIncomplete
		}
		flag := d.next()
		task := d.next()

		if flag != rleEscape {
			n := int(flag)
			endX := min(x+n, width)
			if d.bpp == 24 {
				if !d.need(2) {
					return y, ErrIncomplete
				}
				b, g, r := task, d.next(), d.next()
				for ; x < endX; x++ {
					sink.SetRGB(x, y, r, g, b)
				}
				continue
			}
			indices := [2]uint8{task, task}
			if d.bpp == 4 {
				indices[0] >>= 4
				indices[1] &= 0xF
			}
			for which := 0; x < endX; x++ {
				sink.SetIndex(x, y, indices[which])
				which ^= 1
			}
			continue
		}

		switch task {
		case rleEOL:
			x = 0
			y++
		case rleEOF:
			return height, nil
		case rleDelta:
			if !d.need(2) {
				return y, ErrIncomplete
			}
			x += int(d.next())
			y += int(d.next())
			if x > width || y > height {
				return y, FormatError("RLE delta moves off the image")
			}
		default:
			n := int(task)
			if x+n > width {
				return y, FormatError("RLE run moves off the image")
			}
			runBytes := (n*d.bpp + 7) / 8
			aligned := (runBytes + 1) &^ 1
			if !d.need(aligned) {
				return y, ErrIncomplete
			}
			start := d.pos
			switch d.bpp {
			case 4:
				for i := 0; i < n; i++ {
					v := d.buf[start+i/2]
					if i%2 == 0 {
						v >>= 4
					} else {
						v &= 0xF
					}
					sink.SetIndex(x, y, v)
					x++
				}
			case 8:
				for i := range n {
					sink.SetIndex(x, y, d.buf[start+i])
					x++
				}
			case 24:
				for i := range n {
					p := d.buf[start+i*3:]
					sink.SetRGB(x, y, p[2], p[1], p[0])
					x++
				}
			default:
				return y, FormatError("RLE bit depth")
			}
			d.pos = start + aligned
		}
	}
}
