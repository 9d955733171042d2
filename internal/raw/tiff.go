package raw

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrFormat reports a malformed TIFF structure.
var ErrFormat = errors.New("raw: malformed container")

// Tag is a TIFF tag number.
type Tag uint16

// Tags used by the preview finder and the DNG reader.
const (
	TagNewSubfileType     Tag = 254
	TagImageWidth         Tag = 256
	TagImageLength        Tag = 257
	TagBitsPerSample      Tag = 258
	TagCompression        Tag = 259
	TagPhotometric        Tag = 262
	TagMake               Tag = 271
	TagModel              Tag = 272
	TagStripOffsets       Tag = 273
	TagSamplesPerPixel    Tag = 277
	TagRowsPerStrip       Tag = 278
	TagStripByteCounts    Tag = 279
	TagPlanarConfig       Tag = 284
	TagPredictor          Tag = 317
	TagTileWidth          Tag = 322
	TagTileLength         Tag = 323
	TagTileOffsets        Tag = 324
	TagTileByteCounts     Tag = 325
	TagSubIFDs            Tag = 330
	TagJPEGOffset         Tag = 513
	TagJPEGLength         Tag = 514
	TagCFARepeatDim       Tag = 33421
	TagCFAPattern         Tag = 33422
	TagExifIFD            Tag = 34665
	TagDNGVersion         Tag = 50706
	TagBlackLevelRepeat   Tag = 50713
	TagBlackLevel         Tag = 50714
	TagWhiteLevel         Tag = 50717
	TagDefaultCropOrigin  Tag = 50719
	TagDefaultCropSize    Tag = 50720
	TagColorMatrix1       Tag = 50721
	TagAsShotNeutral      Tag = 50728
	TagRW2PreviewJPEG     Tag = 0x002E
)

// TIFF field types.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
	typeIFD       = 13
)

var typeSizes = [...]int{
	typeByte: 1, typeASCII: 1, typeShort: 2, typeLong: 4, typeRational: 8,
	typeSByte: 1, typeUndefined: 1, typeSShort: 2, typeSLong: 4,
	typeSRational: 8, typeFloat: 4, typeDouble: 8, typeIFD: 4,
}

// Header magics. ORF and RW2 reuse the TIFF layout with their own values.
const (
	magicTIFF  = 42
	magicORF   = 0x4F52
	magicORFS  = 0x5352
	magicRW2   = 0x55
	headerSize = 8
)

const (
	maxIFDs       = 64
	maxEntries    = 4096
	maxEntryBytes = 16 << 20
	maxIFDDepth   = 4
)

// Entry is one IFD field with its value bytes loaded.
type Entry struct {
	Tag   Tag
	Type  uint16
	Count uint32
	// ValueOffset is where the value bytes start in the file.
	ValueOffset int

	order binary.ByteOrder
	data  []byte
}

// Len returns the number of values.
func (e Entry) Len() int {
	if s := e.size(); s > 0 {
		return len(e.data) / s
	}
	return 0
}

func (e Entry) size() int {
	if int(e.Type) < len(typeSizes) {
		return typeSizes[e.Type]
	}
	return 0
}

// Uint returns value i as an unsigned integer. Rationals truncate.
func (e Entry) Uint(i int) uint32 {
	return uint32(max(e.Float(i), 0))
}

// Float returns value i as a float64, or 0 if i is out of range.
func (e Entry) Float(i int) float64 {
	if i < 0 || i >= e.Len() {
		return 0
	}
	p := e.data[i*e.size():]
	switch e.Type {
	case typeByte, typeUndefined, typeASCII:
		return float64(p[0])
	case typeSByte:
		return float64(int8(p[0]))
	case typeShort:
		return float64(e.order.Uint16(p))
	case typeSShort:
		return float64(int16(e.order.Uint16(p)))
	case typeLong, typeIFD:
		return float64(e.order.Uint32(p))
	case typeSLong:
		return float64(int32(e.order.Uint32(p)))
	case typeRational:
		num, den := e.order.Uint32(p), e.order.Uint32(p[4:])
		if den == 0 {
			return 0
		}
		return float64(num) / float64(den)
	case typeSRational:
		num, den := int32(e.order.Uint32(p)), int32(e.order.Uint32(p[4:]))
		if den == 0 {
			return 0
		}
		return float64(num) / float64(den)
	case typeFloat:
		return float64(math.Float32frombits(e.order.Uint32(p)))
	case typeDouble:
		return math.Float64frombits(e.order.Uint64(p))
	}
	return 0
}

// Uints returns every value as an unsigned integer.
func (e Entry) Uints() []uint32 {
	out := make([]uint32, e.Len())
	for i := range out {
		out[i] = e.Uint(i)
	}
	return out
}

// Floats returns every value as a float64.
func (e Entry) Floats() []float64 {
	out := make([]float64, e.Len())
	for i := range out {
		out[i] = e.Float(i)
	}
	return out
}

// Bytes returns the raw value bytes.
func (e Entry) Bytes() []byte { return e.data }

// IFD is one image file directory and the directories it points to.
type IFD struct {
	Offset  int
	Entries map[Tag]Entry
	// Sub holds SubIFDs and the EXIF directory.
	Sub []*IFD
}

// Get returns the entry for tag.
func (d *IFD) Get(tag Tag) (Entry, bool) {
	e, ok := d.Entries[tag]
	return e, ok
}

// Uint returns the first value of tag, or def if it is absent.
func (d *IFD) Uint(tag Tag, def uint32) uint32 {
	if e, ok := d.Entries[tag]; ok && e.Len() > 0 {
		return e.Uint(0)
	}
	return def
}

// Uints returns all values of tag.
func (d *IFD) Uints(tag Tag) []uint32 {
	if e, ok := d.Entries[tag]; ok {
		return e.Uints()
	}
	return nil
}

// Floats returns all values of tag.
func (d *IFD) Floats(tag Tag) []float64 {
	if e, ok := d.Entries[tag]; ok {
		return e.Floats()
	}
	return nil
}

// Walk calls fn for d and every directory below it, depth first.
func (d *IFD) Walk(fn func(*IFD)) {
	fn(d)
	for _, s := range d.Sub {
		s.Walk(fn)
	}
}

// Container is a parsed TIFF-based file.
type Container struct {
	Order binary.ByteOrder
	Magic uint16
	// IFDs is the top-level directory chain starting at IFD0.
	IFDs []*IFD
}

// IsRaw reports whether header starts a TIFF-based raw container.
func IsRaw(header []byte) bool {
	_, _, ok := parseHeader(header)
	return ok
}

func parseHeader(h []byte) (binary.ByteOrder, uint16, bool) {
	if len(h) < 4 {
		return nil, 0, false
	}
	var order binary.ByteOrder
	switch {
	case h[0] == 'I' && h[1] == 'I':
		order = binary.LittleEndian
	case h[0] == 'M' && h[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, 0, false
	}
	magic := order.Uint16(h[2:])
	switch magic {
	case magicTIFF:
	case magicORF, magicORFS, magicRW2:
		if order != binary.LittleEndian {
			return nil, 0, false
		}
	default:
		return nil, 0, false
	}
	return order, magic, true
}

// Parse reads the directory structure of a TIFF-based container.
func Parse(r io.ReaderAt) (*Container, error) {
	h := make([]byte, headerSize)
	if _, err := r.ReadAt(h, 0); err != nil {
		return nil, ErrReadFile
	}
	order, magic, ok := parseHeader(h)
	if !ok {
		return nil, ErrFormat
	}
	p := &parser{r: r, order: order, seen: make(map[int]bool)}
	c := &Container{Order: order, Magic: magic}
	next := int(order.Uint32(h[4:]))
	for next != 0 {
		d, n, err := p.readIFD(next, 0)
		if err != nil {
			if len(c.IFDs) > 0 {
				break
			}
			return nil, err
		}
		c.IFDs = append(c.IFDs, d)
		next = n
	}
	if len(c.IFDs) == 0 {
		return nil, ErrFormat
	}
	return c, nil
}

// Walk calls fn for every directory in the container.
func (c *Container) Walk(fn func(*IFD)) {
	for _, d := range c.IFDs {
		d.Walk(fn)
	}
}

// IsDNG reports whether IFD0 carries a DNG version.
func (c *Container) IsDNG() bool {
	_, ok := c.IFDs[0].Get(TagDNGVersion)
	return ok
}

type parser struct {
	r     io.ReaderAt
	order binary.ByteOrder
	seen  map[int]bool
}

func (p *parser) read(off, n int) ([]byte, error) {
	if off < 0 || n < 0 {
		return nil, ErrFormat
	}
	b := make([]byte, n)
	if _, err := p.r.ReadAt(b, int64(off)); err != nil {
		return nil, ErrReadFile
	}
	return b, nil
}

// readIFD reads the directory at off and, recursively, its SubIFDs. It
// returns the offset of the next directory in the chain.
func (p *parser) readIFD(off, depth int) (*IFD, int, error) {
	if p.seen[off] || len(p.seen) >= maxIFDs {
		return nil, 0, ErrFormat
	}
	p.seen[off] = true

	cnt, err := p.read(off, 2)
	if err != nil {
		return nil, 0, err
	}
	n := int(p.order.Uint16(cnt))
	if n == 0 || n > maxEntries {
		return nil, 0, ErrFormat
	}
	raw, err := p.read(off+2, n*12+4)
	if err != nil {
		return nil, 0, err
	}

	d := &IFD{Offset: off, Entries: make(map[Tag]Entry, n)}
	for i := range n {
		b := raw[i*12:]
		e := Entry{
			Tag:   Tag(p.order.Uint16(b)),
			Type:  p.order.Uint16(b[2:]),
			Count: p.order.Uint32(b[4:]),
			order: p.order,
		}
		size := e.size()
		if size == 0 {
			continue
		}
		total := int64(size) * int64(e.Count)
		if total > maxEntryBytes {
			continue
		}
		if total <= 4 {
			e.data = b[8 : 8+total]
			e.ValueOffset = off + 2 + i*12 + 8
		} else {
			e.ValueOffset = int(p.order.Uint32(b[8:]))
			if e.data, err = p.read(e.ValueOffset, int(total)); err != nil {
				continue
			}
		}
		d.Entries[e.Tag] = e
	}
	next := int(p.order.Uint32(raw[n*12:]))

	if depth < maxIFDDepth {
		for _, tag := range []Tag{TagSubIFDs, TagExifIFD} {
			e, ok := d.Entries[tag]
			if !ok {
				continue
			}
			for _, sub := range e.Uints() {
				if s, _, err := p.readIFD(int(sub), depth+1); err == nil {
					d.Sub = append(d.Sub, s)
				}
			}
		}
	}
	return d, next, nil
}
