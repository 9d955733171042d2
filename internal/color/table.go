package color

import (
	stdcolor "image/color"
	"sync"
)

// MaxTableColors is the largest palette an indexed format can carry.
const MaxTableColors = 256

// Table is an immutable palette of premultiplied colors shared between a
// codec, its swizzler and the caller. A 565 view is derived on first use.
//
// Table is safe for concurrent reads.
type Table struct {
	colors []stdcolor.RGBA

	once     sync.Once
	colors16 []uint16
}

// NewTable copies up to MaxTableColors entries into a new table.
func NewTable(colors []stdcolor.RGBA) *Table {
	n := min(len(colors), MaxTableColors)
	t := &Table{colors: make([]stdcolor.RGBA, n)}
	copy(t.colors, colors)
	return t
}

// NewPaddedTable copies colors and pads the table to count entries with
// pad. It is used by formats whose pixel data may index past the stored
// palette.
func NewPaddedTable(colors []stdcolor.RGBA, count int, pad stdcolor.RGBA) *Table {
	count = min(max(count, len(colors)), MaxTableColors)
	t := &Table{colors: make([]stdcolor.RGBA, count)}
	n := copy(t.colors, colors)
	for i := n; i < count; i++ {
		t.colors[i] = pad
	}
	return t
}

// Count returns the number of entries.
func (t *Table) Count() int {
	if t == nil {
		return 0
	}
	return len(t.colors)
}

// At returns entry i. Out-of-range indices read as transparent.
func (t *Table) At(i int) stdcolor.RGBA {
	if t == nil || i < 0 || i >= len(t.colors) {
		return Transparent
	}
	return t.colors[i]
}

// Colors returns the entries. The slice must not be modified.
func (t *Table) Colors() []stdcolor.RGBA {
	if t == nil {
		return nil
	}
	return t.colors
}

// Colors16 returns the entries packed as RGB 565.
func (t *Table) Colors16() []uint16 {
	if t == nil {
		return nil
	}
	t.once.Do(func() {
		t.colors16 = make([]uint16, len(t.colors))
		for i, c := range t.colors {
			t.colors16[i] = Pack565(c.R, c.G, c.B)
		}
	})
	return t.colors16
}

// At16 returns entry i as RGB 565. Out-of-range indices read as black.
func (t *Table) At16(i int) uint16 {
	c16 := t.Colors16()
	if i < 0 || i >= len(c16) {
		return 0
	}
	return c16[i]
}
