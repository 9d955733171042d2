package codec

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"sort"

	"github.com/gogpu/codec/internal/png"
)

const (
	icoHeaderBytes = 6
	icoEntryBytes  = 16
)

// isICO matches icon (type 1) and cursor (type 2) directories.
func isICO(header []byte) bool {
	if len(header) < 4 {
		return false
	}
	return bytes.Equal(header[:4], []byte{0, 0, 1, 0}) || bytes.Equal(header[:4], []byte{0, 0, 2, 0})
}

type icoEntry struct {
	offset uint32
	size   uint32
}

// icoCodec holds one codec per embedded image and forwards each decode to
// the image whose size matches the destination.
type icoCodec struct {
	embedded []*Codec
	// largest is the index of the embedded image with the most pixels.
	largest int
	// curr is the codec serving the active scanline or incremental decode.
	curr *Codec
}

func newICOCodec(s Stream, _ *factoryOptions) (*Codec, Result) {
	hdr := make([]byte, icoHeaderBytes)
	if !readFull(s, hdr) {
		return nil, IncompleteInput
	}
	count := int(binary.LittleEndian.Uint16(hdr[4:]))
	if count == 0 {
		return nil, InvalidInput
	}
	dir := make([]byte, count*icoEntryBytes)
	if !readFull(s, dir) {
		return nil, IncompleteInput
	}
	entries := make([]icoEntry, count)
	for i := range entries {
		e := dir[i*icoEntryBytes:]
		entries[i] = icoEntry{
			size:   binary.LittleEndian.Uint32(e[8:]),
			offset: binary.LittleEndian.Uint32(e[12:]),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })

	ico := &icoCodec{}
	pos := icoHeaderBytes + len(dir)
	for _, e := range entries {
		if int(e.offset) < pos {
			Logger().Debug("codec: ico entry overlaps", "offset", e.offset)
			continue
		}
		if !skipBytes(s, int(e.offset)-pos) {
			break
		}
		pos = int(e.offset)
		data, err := io.ReadAll(io.LimitReader(s, int64(e.size)))
		pos += len(data)
		if err != nil || len(data) != int(e.size) {
			Logger().Debug("codec: ico entry truncated", "offset", e.offset, "size", e.size, "read", len(data))
			break
		}
		// Each embedded image owns a private stream over its bytes.
		ms := NewMemoryStream(data)
		var c *Codec
		var r Result
		if png.IsPNG(data) {
			c, r = newPNGCodec(ms, nil)
		} else {
			c, r = newEmbeddedBMPCodec(ms)
		}
		if r != Success {
			Logger().Debug("codec: ico entry rejected", "offset", e.offset, "result", r)
			continue
		}
		ico.embedded = append(ico.embedded, c)
	}
	if len(ico.embedded) == 0 {
		return nil, InvalidInput
	}

	var most int64
	for i, c := range ico.embedded {
		if a := c.info.Dimensions().Area(); a > most {
			most, ico.largest = a, i
		}
	}
	def := ico.embedded[ico.largest]
	return newCodec(FormatICO, def.encoded, def.info, nil, s, ico), Success
}

// Close closes every embedded codec.
func (ico *icoCodec) Close() error {
	for _, c := range ico.embedded {
		_ = c.Close()
	}
	return nil
}

func (ico *icoCodec) onRewind() bool {
	ico.curr = nil
	return true
}

// scaledDimensions picks the embedded image whose area is nearest the
// requested fraction of the largest one.
func (ico *icoCodec) scaledDimensions(scale float64) Size {
	want := float64(ico.embedded[ico.largest].info.Dimensions().Area()) * scale * scale
	best, bestDiff := ico.largest, math.MaxFloat64
	for i, c := range ico.embedded {
		if d := math.Abs(float64(c.info.Dimensions().Area()) - want); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return ico.embedded[best].info.Dimensions()
}

func (ico *icoCodec) dimensionsSupported(s Size) bool {
	for _, c := range ico.embedded {
		if c.info.Dimensions() == s {
			return true
		}
	}
	return false
}

// candidates returns the embedded codecs of size s, largest entry first.
func (ico *icoCodec) candidates(s Size) []*Codec {
	var out []*Codec
	if c := ico.embedded[ico.largest]; c.info.Dimensions() == s {
		out = append(out, c)
	}
	for i, c := range ico.embedded {
		if i != ico.largest && c.info.Dimensions() == s {
			out = append(out, c)
		}
	}
	return out
}

func (ico *icoCodec) getPixels(req *decodeRequest) (Result, int) {
	for _, c := range ico.candidates(req.info.Dimensions()) {
		r := c.GetPixels(req.info, req.pixels, req.rowBytes, &req.opts, req.palette)
		if r == InvalidConversion {
			continue
		}
		ico.curr = c
		return r, c.RowsDecoded()
	}
	return InvalidScale, 0
}

func (ico *icoCodec) startScanlineDecode(req *decodeRequest) Result {
	ico.curr = nil
	for _, c := range ico.candidates(req.info.Dimensions()) {
		if c.StartScanlineDecode(req.info, &req.opts, req.palette) == Success {
			ico.curr = c
			return Success
		}
	}
	return InvalidScale
}

func (ico *icoCodec) getScanlines(dst []byte, count, rowBytes int) int {
	if ico.curr == nil {
		return 0
	}
	return ico.curr.GetScanlines(dst, count, rowBytes)
}

func (ico *icoCodec) skipScanlines(count int) bool {
	return ico.curr != nil && ico.curr.SkipScanlines(count)
}

func (ico *icoCodec) scanlineOrder() ScanlineOrder {
	if ico.curr != nil {
		return ico.curr.ScanlineOrder()
	}
	return ico.embedded[ico.largest].ScanlineOrder()
}

// setSampleX forwards horizontal sampling and narrows the embedded
// codec's row size check to the sampled width.
func (ico *icoCodec) setSampleX(sampleX int) int {
	if ico.curr == nil {
		return 0
	}
	smp, ok := ico.curr.b.(sampler)
	if !ok {
		return 0
	}
	n := smp.setSampleX(sampleX)
	ico.curr.minRowBytes = n * ico.curr.dstInfo.BytesPerPixel()
	return n
}

func (ico *icoCodec) startIncrementalDecode(req *decodeRequest) Result {
	ico.curr = nil
	result := InvalidScale
	for _, c := range ico.candidates(req.info.Dimensions()) {
		r := c.StartIncrementalDecode(req.info, req.pixels, req.rowBytes, &req.opts, req.palette)
		if r == Success {
			ico.curr = c
			return Success
		}
		if r == Unimplemented {
			result = Unimplemented
		}
	}
	return result
}

func (ico *icoCodec) incrementalDecode() (Result, int) {
	r := ico.curr.IncrementalDecode()
	return r, ico.curr.RowsDecoded()
}

func (ico *icoCodec) reallyHasAlpha() bool {
	if ico.curr != nil {
		return ico.curr.ReallyHasAlpha()
	}
	return ico.embedded[ico.largest].ReallyHasAlpha()
}
