package gif

import "errors"

// ErrCorrupt reports an LZW code that is out of range.
var ErrCorrupt = errors.New("gif: corrupt image data")

const (
	maxCodeWidth = 12
	tableSize    = 1 << maxCodeWidth
	invalidCode  = 0xFFFF
)

// RowFunc receives a decoded row of color indices. y is the row within
// the frame, count is how many consecutive rows it stands for (more than
// one for the early passes of an interlaced frame) and pass is the
// 1-based interlace pass, always 1 for progressive frames.
type RowFunc func(row []byte, y, count, pass int)

// FrameDecoder decodes the image data of one frame. It can be paused at
// any byte when the data runs out and resumed after the Reader receives
// more.
type FrameDecoder struct {
	r      *Reader
	width  int
	height int
	interl bool

	// Sub-block position.
	pos   int
	left  int
	ended bool

	// LZW state, carried across pauses.
	litWidth uint
	codeBits uint
	bits     uint32
	nBits    uint
	clear    uint16
	eoi      uint16
	hi       uint16
	overflow uint16
	last     uint16
	suffix   [tableSize]uint8
	prefix   [tableSize]uint16
	output   [tableSize]byte

	row      []byte
	x        int
	irow     int
	pass     int
	rowsLeft int
	err      error
}

// NewFrameDecoder starts decoding f, which must belong to r.
func NewFrameDecoder(r *Reader, f *Frame) *FrameDecoder {
	d := &FrameDecoder{
		r:        r,
		width:    f.Rect.Dx(),
		height:   f.Rect.Dy(),
		interl:   f.Interlaced,
		pos:      f.dataStart,
		litWidth: uint(f.LitWidth),
		pass:     1,
	}
	d.clear = 1 << d.litWidth
	d.eoi = d.clear + 1
	d.reset()
	if d.width > 0 && d.height > 0 {
		d.row = make([]byte, d.width)
		d.rowsLeft = d.height
	}
	return d
}

func (d *FrameDecoder) reset() {
	d.codeBits = d.litWidth + 1
	d.hi = d.eoi
	d.overflow = 1 << d.codeBits
	d.last = invalidCode
}

// Finished reports whether every row of the frame has been produced.
func (d *FrameDecoder) Finished() bool { return d.rowsLeft == 0 }

// Stopped reports whether decoding cannot progress any further, either
// because the frame is finished or because its data ended early or was
// corrupt.
func (d *FrameDecoder) Stopped() bool {
	return d.rowsLeft == 0 || d.ended || d.err != nil
}

// Decode consumes the frame data received so far and calls emit for each
// completed row. It returns whether the frame is finished, and an error
// if the data is corrupt.
func (d *FrameDecoder) Decode(emit RowFunc) (bool, error) {
	for !d.Stopped() {
		code, ok := d.readCode()
		if !ok {
			break
		}
		if !d.decodeCode(code, emit) {
			break
		}
	}
	return d.Finished(), d.err
}

// nextByte returns the next image data byte, or false when the data
// received so far is exhausted or the block terminator is reached.
func (d *FrameDecoder) nextByte() (byte, bool) {
	data := d.r.data
	for d.left == 0 {
		if d.pos >= len(data) {
			return 0, false
		}
		n := int(data[d.pos])
		if n == 0 {
			d.ended = true
			return 0, false
		}
		d.pos++
		d.left = n
	}
	if d.pos >= len(data) {
		return 0, false
	}
	b := data[d.pos]
	d.pos++
	d.left--
	return b, true
}

func (d *FrameDecoder) readCode() (uint16, bool) {
	for d.nBits < d.codeBits {
		b, ok := d.nextByte()
		if !ok {
			return 0, false
		}
		d.bits |= uint32(b) << d.nBits
		d.nBits += 8
	}
	code := uint16(d.bits & (1<<d.codeBits - 1))
	d.bits >>= d.codeBits
	d.nBits -= d.codeBits
	return code, true
}

// decodeCode expands one code and reports whether decoding continues.
func (d *FrameDecoder) decodeCode(code uint16, emit RowFunc) bool {
	switch {
	case code < d.clear:
		d.output[tableSize-1] = uint8(code)
		d.put(d.output[tableSize-1:], emit)
		if d.last != invalidCode {
			d.suffix[d.hi] = uint8(code)
			d.prefix[d.hi] = d.last
		}
	case code == d.clear:
		d.reset()
		return true
	case code == d.eoi:
		d.ended = true
		return false
	case code <= d.hi:
		c, i := code, tableSize-1
		if code == d.hi && d.last != invalidCode {
			// The code being defined expands to the last expansion
			// followed by that expansion's first byte.
			c = d.last
			for c >= d.clear {
				c = d.prefix[c]
			}
			d.output[i] = uint8(c)
			i--
			c = d.last
		}
		for c >= d.clear {
			d.output[i] = d.suffix[c]
			i--
			c = d.prefix[c]
		}
		d.output[i] = uint8(c)
		d.put(d.output[i:], emit)
		if d.last != invalidCode {
			d.suffix[d.hi] = uint8(c)
			d.prefix[d.hi] = d.last
		}
	default:
		d.err = ErrCorrupt
		return false
	}
	d.last, d.hi = code, d.hi+1
	if d.hi >= d.overflow {
		if d.codeBits == maxCodeWidth {
			d.last = invalidCode
			d.hi--
		} else {
			d.codeBits++
			d.overflow = 1 << d.codeBits
		}
	}
	return true
}

// put appends decoded indices to the current row. Pixels past the last
// row are dropped.
func (d *FrameDecoder) put(pix []byte, emit RowFunc) {
	for len(pix) > 0 && d.rowsLeft > 0 {
		n := copy(d.row[d.x:], pix)
		d.x += n
		pix = pix[n:]
		if d.x == d.width {
			d.outputRow(emit)
			d.x = 0
		}
	}
}

// outputRow hands the finished row to emit and advances to the next row
// in interlace order. Rows of the first three passes are repeated
// downwards so a partial frame shows a blocky preview.
func (d *FrameDecoder) outputRow(emit RowFunc) {
	start, end := d.irow, d.irow
	if d.interl && d.pass < 4 {
		var dup, shift int
		switch d.pass {
		case 1:
			dup, shift = 7, 3
		case 2:
			dup, shift = 3, 1
		case 3:
			dup, shift = 1, 0
		}
		start -= shift
		end = start + dup
		if gap := d.height - 1 - end; gap >= 0 && gap <= shift {
			end = d.height - 1
		}
		start = max(start, 0)
		end = min(end, d.height-1)
	}
	if start < d.height {
		emit(d.row, start, end-start+1, d.pass)
	}

	d.rowsLeft--
	if !d.interl {
		d.irow++
		return
	}
	for {
		switch d.pass {
		case 1:
			d.advance(8, 4)
		case 2:
			d.advance(8, 2)
		case 3:
			d.advance(4, 1)
		case 4:
			d.advance(2, 0)
		default:
			return
		}
		if d.irow < d.height {
			return
		}
	}
}

func (d *FrameDecoder) advance(step, next int) {
	d.irow += step
	if d.irow >= d.height {
		d.pass++
		d.irow = next
	}
}
