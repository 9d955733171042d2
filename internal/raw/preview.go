package raw

import (
	"errors"
	"io"
)

// ErrNoPreview reports that a container holds no usable JPEG preview.
var ErrNoPreview = errors.New("raw: no preview image")

const (
	compressionOldJPEG = 6
	compressionJPEG    = 7

	photometricCFA       = 32803
	photometricLinearRaw = 34892
)

// Preview locates an embedded JPEG preview.
type Preview struct {
	Offset int
	Length int
	// Width and Height are zero when the directory does not state them.
	Width  int
	Height int
}

func (p Preview) area() int64 { return int64(p.Width) * int64(p.Height) }

// better reports whether p should be preferred over q: larger stated
// dimensions first, then more bytes.
func (p Preview) better(q Preview) bool {
	if p.area() != q.area() {
		return p.area() > q.area()
	}
	return p.Length > q.Length
}

// FindPreview returns the largest JPEG preview in c. Candidates are JPEG
// interchange pointers, single-strip JPEG directories that are not the
// raw data itself, and the RW2 embedded JPEG. Each candidate must start
// with a JPEG SOI marker.
func FindPreview(c *Container, r io.ReaderAt) (Preview, error) {
	var best Preview
	found := false
	consider := func(p Preview) {
		if p.Length <= 2 || p.Offset <= 0 || !hasSOI(r, p.Offset) {
			return
		}
		if !found || p.better(best) {
			best, found = p, true
		}
	}

	c.Walk(func(d *IFD) {
		w := int(d.Uint(TagImageWidth, 0))
		h := int(d.Uint(TagImageLength, 0))
		if off, n := d.Uint(TagJPEGOffset, 0), d.Uint(TagJPEGLength, 0); off > 0 && n > 0 {
			consider(Preview{Offset: int(off), Length: int(n), Width: w, Height: h})
		}
		switch d.Uint(TagCompression, 0) {
		case compressionOldJPEG, compressionJPEG:
		default:
			return
		}
		switch d.Uint(TagPhotometric, 0) {
		case photometricCFA, photometricLinearRaw:
			return
		}
		offs, counts := d.Uints(TagStripOffsets), d.Uints(TagStripByteCounts)
		if len(offs) == 1 && len(counts) == 1 {
			consider(Preview{Offset: int(offs[0]), Length: int(counts[0]), Width: w, Height: h})
		}
	})
	if c.Magic == magicRW2 {
		if e, ok := c.IFDs[0].Get(TagRW2PreviewJPEG); ok {
			consider(Preview{Offset: e.ValueOffset, Length: int(e.Count)})
		}
	}

	if !found {
		return Preview{}, ErrNoPreview
	}
	return best, nil
}

func hasSOI(r io.ReaderAt, off int) bool {
	var b [2]byte
	if _, err := r.ReadAt(b[:], int64(off)); err != nil {
		return false
	}
	return b[0] == 0xFF && b[1] == 0xD8
}
