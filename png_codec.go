package codec

import (
	"errors"
	stdcolor "image/color"
	"io"

	"github.com/gogpu/codec/internal/color"
	"github.com/gogpu/codec/internal/png"
	"github.com/gogpu/codec/internal/swizzle"
)

func isPNG(header []byte) bool { return png.IsPNG(header) }

// pngCodec decodes PNG rows as they are inflated. Interlaced images are
// decoded whole before any row is handed out.
type pngCodec struct {
	stream Stream
	dec    *png.Decoder
	info   ImageInfo

	sw      *swizzle.Swizzler
	scratch []byte
	alpha   swizzle.ResultAlpha

	// raw holds a whole de-interlaced image in stored layout.
	raw       []byte
	rawStride int
	rawY      int

	// Incremental state. A decode that ran out of data restarts from the
	// recorded image data and skips the rows it already committed.
	inc       *decodeRequest
	incRows   int
	incReplay bool
	replay    *replayReader
}

// replayReader records everything read from r so the image data can be
// read again without rewinding the stream.
type replayReader struct {
	r   io.Reader
	buf []byte
	pos int
}

func (rr *replayReader) Read(p []byte) (int, error) {
	if rr.pos < len(rr.buf) {
		n := copy(p, rr.buf[rr.pos:])
		rr.pos += n
		return n, nil
	}
	n, err := rr.r.Read(p)
	rr.buf = append(rr.buf, p[:n]...)
	rr.pos += n
	return n, err
}

func newPNGCodec(s Stream, _ *factoryOptions) (*Codec, Result) {
	dec, err := png.NewDecoder(s)
	if err != nil {
		Logger().Debug("codec: png header", "err", err)
		return nil, InvalidInput
	}
	p := &pngCodec{stream: s, dec: dec}
	encoded := EncodedInfo{
		Width:            dec.Width,
		Height:           dec.Height,
		BitsPerComponent: dec.BitDepth,
		ICCProfile:       dec.ICCProfile,
		Alpha:            EncodedOpaque,
	}
	at := AlphaTypeOpaque
	if dec.HasAlpha() {
		at = AlphaTypeUnpremul
		encoded.Alpha = EncodedUnpremul
	}
	switch dec.ColorType {
	case png.ColorPalette:
		encoded.Color = EncodedPalette
		p.info = MakeInfo(dec.Width, dec.Height, ColorTypeIndex8, at)
	case png.ColorGray:
		encoded.Color = EncodedGray
		if at == AlphaTypeOpaque {
			p.info = MakeInfo(dec.Width, dec.Height, ColorTypeGray8, at)
		} else {
			p.info = MakeInfo(dec.Width, dec.Height, ColorTypeN32, at)
		}
	case png.ColorGrayAlpha:
		encoded.Color = EncodedGrayAlpha
		p.info = MakeInfo(dec.Width, dec.Height, ColorTypeN32, at)
	case png.ColorRGB:
		encoded.Color = EncodedRGB
		p.info = MakeInfo(dec.Width, dec.Height, ColorTypeN32, at)
	default:
		encoded.Color = EncodedRGBA
		p.info = MakeInfo(dec.Width, dec.Height, ColorTypeN32, at)
	}
	return newCodec(FormatPNG, encoded, p.info, s, s, p), Success
}

func (p *pngCodec) onRewind() bool {
	_ = p.dec.Close()
	dec, err := png.NewDecoder(p.stream)
	if err != nil {
		return false
	}
	p.dec = dec
	return true
}

// Close releases the inflater.
func (p *pngCodec) Close() error {
	return p.dec.Close()
}

func (p *pngCodec) metadata() map[string]string { return p.dec.Text }

// colorTable returns the palette premultiplied and padded with its last
// entry, so out-of-range indices stay defined.
func (p *pngCodec) colorTable() *color.Table {
	if p.dec.ColorType != png.ColorPalette {
		return nil
	}
	colors := make([]stdcolor.RGBA, len(p.dec.Palette))
	for i, c := range p.dec.Palette {
		colors[i] = color.Premultiply(c[0], c[1], c[2], c[3])
	}
	pad := color.Black
	if len(colors) > 0 {
		pad = colors[len(colors)-1]
	}
	return color.NewPaddedTable(colors, 1<<p.dec.BitDepth, pad)
}

func (p *pngCodec) prepare(req *decodeRequest) Result {
	table := p.colorTable()
	if req.palette != nil {
		req.palette.Count = copy(req.palette.Colors[:], table.Colors())
	}
	sw, err := swizzle.New(swizzle.Config{
		Src:             p.dec.SrcConfig(),
		Table:           table,
		Dst:             req.info,
		SrcWidth:        p.dec.Width,
		ZeroInitialized: req.opts.ZeroInitialized,
	})
	if err != nil {
		return InvalidConversion
	}
	p.sw = sw
	p.scratch = make([]byte, p.dec.NormalizedRowBytes())
	p.alpha = swizzle.EmptyAlpha
	p.raw = nil
	if err := p.dec.Start(); err != nil {
		Logger().Debug("codec: png image data", "err", err)
		return IncompleteInput
	}
	return Success
}

func (p *pngCodec) swizzleRow(dst, row []byte) {
	p.alpha = p.alpha.Merge(p.sw.Swizzle(dst, p.dec.Normalize(p.scratch, row)))
}

// readRows decodes rows [from, to) of a non-interlaced image into dst.
// It returns the number of rows written before the data ran out.
func (p *pngCodec) readRows(dst []byte, rowBytes, from, to int) (int, error) {
	for y := from; y < to; y++ {
		row, err := p.dec.ReadRow()
		if err != nil {
			return y - from, err
		}
		p.swizzleRow(dst[(y-from)*rowBytes:], row)
	}
	return to - from, nil
}

// readInterlaced de-interlaces the whole image into p.raw. Pixels the
// data never reached keep a zero stored value.
func (p *pngCodec) readInterlaced() error {
	p.rawStride = p.dec.RowBytes(p.dec.Width)
	p.raw = make([]byte, p.rawStride*p.dec.Height)
	p.rawY = 0
	return p.dec.ReadInterlaced(p.raw, p.rawStride)
}

func (p *pngCodec) swizzleRaw(dst []byte, rowBytes, from, count int) {
	for i := range count {
		p.swizzleRow(dst[i*rowBytes:], p.raw[(from+i)*p.rawStride:(from+i+1)*p.rawStride])
	}
}

func pngResult(err error) Result {
	var fe png.FormatError
	if errors.Is(err, png.ErrTruncated) || errors.As(err, &fe) {
		return IncompleteInput
	}
	return InvalidInput
}

func (p *pngCodec) getPixels(req *decodeRequest) (Result, int) {
	if r := p.prepare(req); r != Success {
		return r, 0
	}
	height := req.info.Height
	if p.dec.Interlaced {
		err := p.readInterlaced()
		p.swizzleRaw(req.pixels, req.rowBytes, 0, height)
		if err != nil {
			Logger().Debug("codec: png interlaced", "err", err)
			return pngResult(err), height
		}
		return Success, height
	}
	rows, err := p.readRows(req.pixels, req.rowBytes, 0, height)
	if err != nil {
		Logger().Debug("codec: png rows", "rows", rows, "err", err)
		return pngResult(err), rows
	}
	return Success, height
}

func (p *pngCodec) startScanlineDecode(req *decodeRequest) Result {
	r := p.prepare(req)
	if r != Success || !p.dec.Interlaced {
		return r
	}
	if err := p.readInterlaced(); err != nil {
		Logger().Debug("codec: png interlaced", "err", err)
	}
	return Success
}

func (p *pngCodec) getScanlines(dst []byte, count, rowBytes int) int {
	if p.raw != nil {
		p.swizzleRaw(dst, rowBytes, p.rawY, count)
		p.rawY += count
		return count
	}
	n, _ := p.readRows(dst, rowBytes, 0, count)
	return n
}

func (p *pngCodec) skipScanlines(count int) bool {
	if p.raw != nil {
		p.rawY += count
		return true
	}
	return p.dec.SkipRows(count) == nil
}

func (p *pngCodec) scanlineOrder() ScanlineOrder {
	if p.dec.Interlaced {
		return ScanlineOrderNone
	}
	return ScanlineOrderTopDown
}

func (p *pngCodec) setSampleX(sampleX int) int {
	return p.sw.SetSampleX(sampleX)
}

func (p *pngCodec) reallyHasAlpha() bool {
	if p.info.AlphaType == AlphaTypeOpaque {
		return false
	}
	return !p.alpha.IsOpaque()
}

func (p *pngCodec) startIncrementalDecode(req *decodeRequest) Result {
	// The decoder sits at the first IDAT payload here.
	p.replay = &replayReader{r: p.stream}
	p.dec.Restart(p.replay)
	r := p.prepare(req)
	if r != Success && r != IncompleteInput {
		return r
	}
	p.inc = req
	p.incRows = 0
	// Without the start of the image data there is nothing to resume.
	p.incReplay = r == IncompleteInput
	return Success
}

func (p *pngCodec) incrementalDecode() (Result, int) {
	req := p.inc
	if p.incReplay {
		p.replay.pos = 0
		p.dec.Restart(p.replay)
		if err := p.dec.Start(); err != nil {
			return IncompleteInput, p.incRows
		}
		if !p.dec.Interlaced {
			if err := p.dec.SkipRows(p.incRows); err != nil {
				return IncompleteInput, p.incRows
			}
		}
	}
	p.incReplay = true

	height := req.info.Height
	if p.dec.Interlaced {
		if err := p.readInterlaced(); err != nil {
			if pngResult(err) != IncompleteInput {
				return InvalidInput, 0
			}
			return IncompleteInput, 0
		}
		p.swizzleRaw(req.pixels, req.rowBytes, 0, height)
		return Success, height
	}
	n, err := p.readRows(req.pixels[p.incRows*req.rowBytes:], req.rowBytes, p.incRows, height)
	p.incRows += n
	if err != nil {
		if pngResult(err) != IncompleteInput {
			return InvalidInput, p.incRows
		}
		return IncompleteInput, p.incRows
	}
	return Success, height
}
