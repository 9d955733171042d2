package codec

import (
	stdcolor "image/color"
	"io"

	"github.com/gogpu/codec/internal/color"
	"github.com/gogpu/codec/internal/swizzle"
)

// wbmpMaxDimension bounds WBMP width and height.
const wbmpMaxDimension = 0xFFFF

// readMultiByteInt reads a WBMP multi-byte integer: 7 bits per byte, high
// bit set on every byte but the last.
func readMultiByteInt(r io.ByteReader) (uint32, bool) {
	var n uint32
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, false
		}
		if n&0xFE000000 != 0 {
			return 0, false
		}
		n = n<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return n, true
		}
	}
}

type wbmpHeader struct {
	width, height int
}

// byteAtATime reads single bytes from a stream so the header parse never
// consumes pixel bytes.
type byteAtATime struct {
	r io.Reader
}

func (c byteAtATime) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(c.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readWBMPHeader(r io.Reader) (wbmpHeader, bool) {
	br := byteAtATime{r: r}
	typ, ok := readMultiByteInt(br)
	if !ok || typ != 0 {
		return wbmpHeader{}, false
	}
	fixed, err := br.ReadByte()
	if err != nil || fixed&0x9F != 0 {
		return wbmpHeader{}, false
	}
	w, ok := readMultiByteInt(br)
	if !ok || w == 0 || w > wbmpMaxDimension {
		return wbmpHeader{}, false
	}
	h, ok := readMultiByteInt(br)
	if !ok || h == 0 || h > wbmpMaxDimension {
		return wbmpHeader{}, false
	}
	return wbmpHeader{width: int(w), height: int(h)}, true
}

func isWBMP(header []byte) bool {
	_, ok := readWBMPHeader(&sliceReader{b: header})
	return ok
}

// sliceReader is a minimal io.Reader over a byte slice.
type sliceReader struct {
	b []byte
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(s.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b)
	s.b = s.b[n:]
	return n, nil
}

var wbmpTable = color.NewTable([]stdcolor.RGBA{color.Black, {R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}})

type wbmpCodec struct {
	stream Stream
	header wbmpHeader
	sw     *swizzle.Swizzler
	src    []byte
}

func newWBMPCodec(s Stream, _ *factoryOptions) (*Codec, Result) {
	h, ok := readWBMPHeader(s)
	if !ok {
		return nil, InvalidInput
	}
	b := &wbmpCodec{stream: s, header: h}
	info := MakeInfo(h.width, h.height, ColorTypeGray8, AlphaTypeOpaque)
	encoded := EncodedInfo{Width: h.width, Height: h.height, Color: EncodedBit, Alpha: EncodedOpaque, BitsPerComponent: 1}
	return newCodec(FormatWBMP, encoded, info, s, s, b), Success
}

func (b *wbmpCodec) onRewind() bool {
	_, ok := readWBMPHeader(b.stream)
	return ok
}

func (b *wbmpCodec) conversionSupported(dst ImageInfo) bool {
	switch dst.ColorType {
	case ColorTypeGray8, ColorTypeIndex8, ColorTypeRGB565, ColorTypeRGBA8888, ColorTypeBGRA8888, ColorTypeRGBAF16:
		return dst.AlphaType != AlphaTypeUnknown
	}
	return false
}

func (b *wbmpCodec) prepare(req *decodeRequest) Result {
	if req.palette != nil {
		req.palette.Count = copy(req.palette.Colors[:], wbmpTable.Colors())
	}
	sw, err := swizzle.New(swizzle.Config{
		Src:             swizzle.Bit,
		Table:           wbmpTable,
		Dst:             req.info,
		SrcWidth:        b.header.width,
		ZeroInitialized: req.opts.ZeroInitialized,
	})
	if err != nil {
		return InvalidConversion
	}
	b.sw = sw
	b.src = make([]byte, (b.header.width+7)/8)
	return Success
}

func (b *wbmpCodec) getPixels(req *decodeRequest) (Result, int) {
	if r := b.prepare(req); r != Success {
		return r, 0
	}
	for y := range req.info.Height {
		if !readFull(b.stream, b.src) {
			return IncompleteInput, y
		}
		b.sw.Swizzle(req.pixels[y*req.rowBytes:], b.src)
	}
	return Success, req.info.Height
}

func (b *wbmpCodec) startScanlineDecode(req *decodeRequest) Result {
	return b.prepare(req)
}

func (b *wbmpCodec) getScanlines(dst []byte, count, rowBytes int) int {
	for y := range count {
		if !readFull(b.stream, b.src) {
			return y
		}
		b.sw.Swizzle(dst[y*rowBytes:], b.src)
	}
	return count
}

func (b *wbmpCodec) skipScanlines(count int) bool {
	return skipBytes(b.stream, count*len(b.src))
}

func (b *wbmpCodec) scanlineOrder() ScanlineOrder { return ScanlineOrderTopDown }

func (b *wbmpCodec) setSampleX(sampleX int) int { return b.sw.SetSampleX(sampleX) }
