// Package gif parses GIF containers incrementally for the codec package.
//
// A Reader holds every byte received so far and can be re-parsed after
// more data is appended. Frames are discovered in order and never change
// once recorded, except that a frame's data may become complete later.
package gif

import (
	"errors"
	"image"
	stdcolor "image/color"

	"golang.org/x/text/encoding/charmap"
)

// NoFrame marks a frame that does not depend on an earlier one.
const NoFrame = -1

// Disposal is what happens to a frame's area before the next frame.
type Disposal uint8

const (
	DisposalKeep Disposal = iota
	DisposalRestoreBG
	DisposalRestorePrevious
)

// Block introducers and extension labels.
const (
	blockExtension  = 0x21
	blockImage      = 0x2C
	blockTrailer    = 0x3B
	extPlainText    = 0x01
	extGraphicCtl   = 0xF9
	extComment      = 0xFE
	extApplication  = 0xFF
	headerBytes     = 13
	descriptorBytes = 10
)

// Errors returned by Parse.
var (
	ErrBadHeader = errors.New("gif: invalid header")
	ErrBadBlock  = errors.New("gif: unknown block type")
)

// Frame is one image of a GIF.
type Frame struct {
	Index int
	// Rect is the frame's area as declared. It may extend past the canvas.
	Rect image.Rectangle
	// Delay is the display duration in milliseconds.
	Delay      int
	Disposal   Disposal
	Interlaced bool
	// Transparent is the transparent index, or -1.
	Transparent int
	// Table is the local color table, or nil to use the global one.
	Table    []stdcolor.RGBA
	LitWidth int
	// Required is the earlier frame this frame is drawn on, or NoFrame.
	Required int

	dataStart int
	// Complete reports that every data sub-block has been received.
	Complete bool
}

// HasAlpha reports whether the frame leaves any canvas pixel transparent
// when drawn on its own.
func (f *Frame) HasAlpha(canvas image.Rectangle) bool {
	return f.Transparent >= 0 || !canvas.In(f.Rect)
}

type graphicControl struct {
	delay       int
	disposal    Disposal
	transparent int
}

// Reader is a resumable GIF parser.
type Reader struct {
	data []byte
	pos  int

	Width, Height int
	GlobalTable   []stdcolor.RGBA
	Background    int
	// LoopCount is -1 without an application extension, 0 for an
	// endless loop and n for n repetitions.
	LoopCount int
	Comments  []string
	Frames    []*Frame

	headerDone bool
	pending    *Frame
	gce        *graphicControl
	done       bool
	err        error
}

// NewReader returns an empty reader.
func NewReader() *Reader {
	return &Reader{LoopCount: -1}
}

// IsGIF reports whether header starts with a GIF signature.
func IsGIF(header []byte) bool {
	if len(header) < 6 {
		return false
	}
	s := string(header[:6])
	return s == "GIF87a" || s == "GIF89a"
}

// Append adds received bytes.
func (r *Reader) Append(b []byte) {
	r.data = append(r.data, b...)
}

// Data returns every byte received so far.
func (r *Reader) Data() []byte { return r.data }

// Done reports that the trailer or a parse error ended the stream.
func (r *Reader) Done() bool { return r.done }

// HeaderParsed reports whether the screen descriptor has been read.
func (r *Reader) HeaderParsed() bool { return r.headerDone }

// Canvas returns the logical screen bounds.
func (r *Reader) Canvas() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

// ColorTable returns the table frame f draws with, or nil if there is
// none.
func (r *Reader) ColorTable(f *Frame) []stdcolor.RGBA {
	if f.Table != nil {
		return f.Table
	}
	return r.GlobalTable
}

// Parse consumes as much of the received data as forms complete blocks.
// Running out of data is not an error; call Parse again after Append. An
// error after the first frame ends parsing without failing.
func (r *Reader) Parse() error {
	for !r.done {
		if !r.headerDone {
			ok, err := r.parseHeader()
			if err != nil || !ok {
				return err
			}
			continue
		}
		if r.pending != nil {
			if !r.skipFrameData() {
				return nil
			}
			continue
		}
		if r.pos >= len(r.data) {
			return nil
		}
		var ok bool
		var err error
		switch r.data[r.pos] {
		case blockExtension:
			ok, err = r.parseExtension()
		case blockImage:
			ok, err = r.parseDescriptor()
		case blockTrailer:
			r.pos++
			r.done = true
			return nil
		default:
			err = ErrBadBlock
		}
		if err != nil {
			r.done = true
			if len(r.Frames) > 0 {
				return nil
			}
			r.err = err
			return err
		}
		if !ok {
			return nil
		}
	}
	return r.err
}

func (r *Reader) parseHeader() (bool, error) {
	if len(r.data) < headerBytes {
		return false, nil
	}
	if !IsGIF(r.data) {
		return false, ErrBadHeader
	}
	h := r.data[:headerBytes]
	width := int(h[6]) | int(h[7])<<8
	height := int(h[8]) | int(h[9])<<8
	flags := h[10]
	pos := headerBytes
	var table []stdcolor.RGBA
	if flags&0x80 != 0 {
		n := 1 << (flags&7 + 1)
		if len(r.data) < pos+3*n {
			return false, nil
		}
		table = readTable(r.data[pos:], n)
		pos += 3 * n
	}
	if width == 0 || height == 0 {
		return false, ErrBadHeader
	}
	r.Width, r.Height = width, height
	r.GlobalTable = table
	r.Background = int(h[11])
	r.pos = pos
	r.headerDone = true
	return true, nil
}

func readTable(b []byte, n int) []stdcolor.RGBA {
	t := make([]stdcolor.RGBA, n)
	for i := range t {
		t[i] = stdcolor.RGBA{R: b[3*i], G: b[3*i+1], B: b[3*i+2], A: 0xFF}
	}
	return t
}

// subBlocksEnd returns the offset past the terminator of the sub-block
// chain starting at pos, or -1 if the chain is incomplete.
func subBlocksEnd(data []byte, pos int) int {
	for pos < len(data) {
		n := int(data[pos])
		if n == 0 {
			return pos + 1
		}
		pos += 1 + n
	}
	return -1
}

// subBlocks concatenates the sub-blocks of a complete chain.
func subBlocks(data []byte) [][]byte {
	var blocks [][]byte
	for len(data) > 0 && data[0] != 0 {
		n := int(data[0])
		if 1+n > len(data) {
			break
		}
		blocks = append(blocks, data[1:1+n])
		data = data[1+n:]
	}
	return blocks
}

func (r *Reader) parseExtension() (bool, error) {
	if len(r.data) < r.pos+2 {
		return false, nil
	}
	label := r.data[r.pos+1]
	start := r.pos + 2
	end := subBlocksEnd(r.data, start)
	if end < 0 {
		return false, nil
	}
	blocks := subBlocks(r.data[start:end])
	r.pos = end

	switch label {
	case extGraphicCtl:
		if len(blocks) == 0 || len(blocks[0]) < 4 {
			return true, nil
		}
		b := blocks[0]
		gce := &graphicControl{
			delay:       (int(b[1]) | int(b[2])<<8) * 10,
			transparent: -1,
		}
		switch (b[0] >> 2) & 7 {
		case 2:
			gce.disposal = DisposalRestoreBG
		case 3, 4:
			gce.disposal = DisposalRestorePrevious
		}
		if b[0]&1 != 0 {
			gce.transparent = int(b[3])
		}
		r.gce = gce
	case extApplication:
		if len(blocks) < 2 {
			return true, nil
		}
		id := string(blocks[0])
		if id != "NETSCAPE2.0" && id != "ANIMEXTS1.0" {
			return true, nil
		}
		if b := blocks[1]; len(b) >= 3 && b[0] == 1 {
			r.LoopCount = int(b[1]) | int(b[2])<<8
		}
	case extComment:
		var text []byte
		for _, b := range blocks {
			text = append(text, b...)
		}
		if s, err := charmap.ISO8859_1.NewDecoder().Bytes(text); err == nil {
			text = s
		}
		r.Comments = append(r.Comments, string(text))
	case extPlainText:
		r.gce = nil
	}
	return true, nil
}

func (r *Reader) parseDescriptor() (bool, error) {
	if len(r.data) < r.pos+descriptorBytes {
		return false, nil
	}
	d := r.data[r.pos : r.pos+descriptorBytes]
	x := int(d[1]) | int(d[2])<<8
	y := int(d[3]) | int(d[4])<<8
	w := int(d[5]) | int(d[6])<<8
	h := int(d[7]) | int(d[8])<<8
	flags := d[9]
	pos := r.pos + descriptorBytes

	var table []stdcolor.RGBA
	if flags&0x80 != 0 {
		n := 1 << (flags&7 + 1)
		if len(r.data) < pos+3*n {
			return false, nil
		}
		table = readTable(r.data[pos:], n)
		pos += 3 * n
	}
	if len(r.data) < pos+1 {
		return false, nil
	}
	litWidth := int(r.data[pos])
	pos++
	if litWidth < 1 || litWidth > 8 {
		return false, errors.New("gif: invalid minimum code size")
	}

	f := &Frame{
		Index:       len(r.Frames),
		Rect:        image.Rect(x, y, x+w, y+h),
		Interlaced:  flags&0x40 != 0,
		Transparent: -1,
		Table:       table,
		LitWidth:    litWidth,
		dataStart:   pos,
	}
	if r.gce != nil {
		f.Delay = r.gce.delay
		f.Disposal = r.gce.disposal
		f.Transparent = r.gce.transparent
		r.gce = nil
	}
	f.Required = r.requiredFrame(f)
	r.Frames = append(r.Frames, f)
	r.pos = pos
	r.pending = f
	return true, nil
}

// skipFrameData advances past the pending frame's sub-blocks and reports
// whether all of them have arrived.
func (r *Reader) skipFrameData() bool {
	for r.pos < len(r.data) {
		n := int(r.data[r.pos])
		if n == 0 {
			r.pos++
			r.pending.Complete = true
			r.pending = nil
			return true
		}
		if r.pos+1+n > len(r.data) {
			return false
		}
		r.pos += 1 + n
	}
	return false
}

// requiredFrame finds the frame f must be drawn on. Restore-to-previous
// frames are skipped since they leave the canvas as it was before them.
// A restore-to-background frame stays a dependency so that its area is
// erased explicitly.
func (r *Reader) requiredFrame(f *Frame) int {
	if f.Index == 0 {
		return NoFrame
	}
	if f.Transparent < 0 && f.Rect == r.Canvas() {
		return NoFrame
	}
	prev := r.Frames[f.Index-1]
	for prev.Disposal == DisposalRestorePrevious {
		if prev.Required == NoFrame {
			return NoFrame
		}
		prev = r.Frames[prev.Required]
	}
	return prev.Index
}
