package codec

import (
	stdcolor "image/color"
	"math"
	"strings"

	"github.com/gogpu/codec/internal/color"
	"github.com/gogpu/codec/internal/gif"
	"github.com/gogpu/codec/internal/swizzle"
)

func isGIF(header []byte) bool { return gif.IsGIF(header) }

// gifReadChunk is how much the GIF codec pulls from its stream per read.
const gifReadChunk = 32 << 10

// gifCodec decodes animated and still GIFs. It buffers every byte it
// reads, so frames can be decoded in any order and the stream is never
// rewound.
type gifCodec struct {
	stream Stream
	r      *gif.Reader
	buf    []byte
	info   ImageInfo

	// Per-decode state.
	req       *decodeRequest
	sw        *swizzle.Swizzler
	table     *color.Table
	tableReal bool
	tmp       []byte
	sampleX   int
	sampleY   int

	filledBackground bool
	rowsDecoded      int
	dec              *gif.FrameDecoder
	firstIncremental bool
}

// newGIFCodec reads up to the first frame's descriptor. The first frame
// decides whether Index8 is the natural decode target.
func newGIFCodec(s Stream, _ *factoryOptions) (*Codec, Result) {
	g := &gifCodec{stream: s, r: gif.NewReader(), sampleX: 1, sampleY: 1}
	if err := g.readMore(); err != nil {
		Logger().Debug("codec: gif header", "err", err)
		return nil, InvalidInput
	}
	if !g.r.HeaderParsed() || len(g.r.Frames) == 0 {
		return nil, IncompleteInput
	}

	first := g.r.Frames[0]
	canvas := g.r.Canvas()
	hasAlpha := first.HasAlpha(canvas)
	encoded := EncodedInfo{
		Width:            g.r.Width,
		Height:           g.r.Height,
		Color:            EncodedPalette,
		Alpha:            EncodedOpaque,
		BitsPerComponent: 8,
	}
	at := AlphaTypeOpaque
	if hasAlpha {
		encoded.Alpha = EncodedBinary
		// Transparent pixels are stored as zero, so premul and unpremul
		// are the same here.
		at = AlphaTypeUnpremul
	}
	ct := ColorTypeN32
	if canvas.In(first.Rect) || (first.Transparent >= 0 && first.Transparent < len(g.r.ColorTable(first))) {
		ct = ColorTypeIndex8
	}
	g.info = MakeInfo(g.r.Width, g.r.Height, ct, at)
	return newCodec(FormatGIF, encoded, g.info, nil, s, g), Success
}

// readMore appends everything the stream currently holds and parses it.
func (g *gifCodec) readMore() error {
	if g.buf == nil {
		g.buf = make([]byte, gifReadChunk)
	}
	for {
		n, err := g.stream.Read(g.buf)
		if n > 0 {
			g.r.Append(g.buf[:n])
		}
		if err != nil || n == 0 {
			break
		}
	}
	return g.r.Parse()
}

func (g *gifCodec) onRewind() bool {
	g.dec = nil
	g.req = nil
	return true
}

func (g *gifCodec) conversionSupported(dst ImageInfo) bool {
	if dst.ColorType == ColorTypeRGBAF16 {
		return false
	}
	return conversionPossible(dst, g.info)
}

func (g *gifCodec) scaledDimensions(scale float64) Size {
	sample := max(int(math.Round(1/scale)), 1)
	return Size{
		Width:  swizzle.ScaledDimension(g.info.Width, sample),
		Height: swizzle.ScaledDimension(g.info.Height, sample),
	}
}

func (g *gifCodec) dimensionsSupported(s Size) bool {
	sx := swizzle.ComputeSampleSize(g.info.Width, s.Width)
	sy := swizzle.ComputeSampleSize(g.info.Height, s.Height)
	return swizzle.ScaledDimension(g.info.Width, sx) == s.Width &&
		swizzle.ScaledDimension(g.info.Height, sy) == s.Height
}

func (g *gifCodec) frameCount() int {
	_ = g.readMore()
	return len(g.r.Frames)
}

func (g *gifCodec) frameInfo(i int) (FrameInfo, bool) {
	if i < 0 || i >= len(g.r.Frames) {
		return FrameInfo{}, false
	}
	f := g.r.Frames[i]
	fi := FrameInfo{
		Duration:      f.Delay,
		RequiredFrame: f.Required,
		Rect:          f.Rect.Intersect(g.r.Canvas()),
		FullyReceived: f.Complete,
	}
	switch f.Disposal {
	case gif.DisposalRestoreBG:
		fi.Disposal = DisposalRestoreBGColor
	case gif.DisposalRestorePrevious:
		fi.Disposal = DisposalRestorePrevious
	}
	return fi, true
}

func (g *gifCodec) repetitionCount() int {
	_ = g.readMore()
	switch g.r.LoopCount {
	case -1:
		return 0
	case 0:
		return RepetitionInfinite
	default:
		return g.r.LoopCount
	}
}

func (g *gifCodec) metadata() map[string]string {
	if len(g.r.Comments) == 0 {
		return nil
	}
	return map[string]string{"Comment": strings.Join(g.r.Comments, "\n")}
}

// fillValue is the first frame's transparent index for Index8 and
// transparent black otherwise. The background color is ignored.
func (g *gifCodec) fillValue(info ImageInfo) uint32 {
	if info.ColorType == ColorTypeIndex8 && g.tableReal {
		if t := g.r.Frames[0].Transparent; t >= 0 && t < g.table.Count() {
			return uint32(t)
		}
	}
	return 0
}

func (g *gifCodec) prepare(req *decodeRequest) Result {
	index := req.opts.FrameIndex
	if index > 0 && req.info.ColorType == ColorTypeIndex8 {
		return InvalidConversion
	}
	if err := g.readMore(); err != nil {
		return InvalidInput
	}
	if index >= len(g.r.Frames) {
		return IncompleteInput
	}
	g.req = req
	g.sampleX = swizzle.ComputeSampleSize(g.info.Width, req.info.Width)
	g.sampleY = swizzle.ComputeSampleSize(g.info.Height, req.info.Height)
	g.tmp = make([]byte, req.info.MinRowBytes())
	g.setupFrame(index)
	if req.palette != nil {
		req.palette.Count = copy(req.palette.Colors[:], g.table.Colors())
	}
	return Success
}

// setupFrame builds the color table and swizzler for frame i. Frames
// without any color table decode against a single transparent entry and
// draw nothing.
func (g *gifCodec) setupFrame(i int) {
	f := g.r.Frames[i]
	colors := g.r.ColorTable(f)
	if colors == nil {
		g.table = color.NewTable([]stdcolor.RGBA{color.Transparent})
		g.tableReal = false
	} else {
		cp := append([]stdcolor.RGBA(nil), colors...)
		if f.Transparent >= 0 && f.Transparent < len(cp) {
			cp[f.Transparent] = stdcolor.RGBA{}
		}
		g.table = color.NewTable(cp)
		g.tableReal = true
	}

	g.sw = nil
	xBegin := f.Rect.Min.X
	xEnd := min(f.Rect.Max.X, g.info.Width)
	if xEnd <= xBegin {
		return
	}
	sw, err := swizzle.New(swizzle.Config{
		Src:       swizzle.Index,
		Table:     g.table,
		Dst:       g.req.info,
		SrcWidth:  f.Rect.Dx(),
		Width:     xEnd - xBegin,
		DstOffset: xBegin,
	})
	if err != nil {
		Logger().Debug("codec: gif swizzler", "frame", i, "err", err)
		return
	}
	sw.SetSampleX(g.sampleX)
	sw.SetSampleY(g.sampleY)
	g.sw = sw
}

func (g *gifCodec) getPixels(req *decodeRequest) (Result, int) {
	if r := g.prepare(req); r != Success {
		return r, 0
	}
	r := g.decodeFrame(true, req.opts.FrameIndex, req.opts)
	return r, g.rowsDecoded
}

func (g *gifCodec) startIncrementalDecode(req *decodeRequest) Result {
	if r := g.prepare(req); r != Success {
		return r
	}
	g.firstIncremental = true
	return Success
}

func (g *gifCodec) incrementalDecode() (Result, int) {
	if err := g.readMore(); err != nil {
		return InvalidInput, 0
	}
	first := g.firstIncremental
	g.firstIncremental = false
	r := g.decodeFrame(first, g.req.opts.FrameIndex, g.req.opts)
	return r, g.rowsDecoded
}

// decodeFrame draws frame index into the destination. On the first
// attempt it prepares the canvas: a frame that stands alone gets a
// cleared background where it does not cover every pixel, and a dependent
// frame gets its required frame decoded underneath unless the caller
// already provided it. Later attempts only resume the frame's data.
func (g *gifCodec) decodeFrame(first bool, index int, opts Options) Result {
	req := g.req
	f := g.r.Frames[index]
	if first {
		filled := false
		if f.Required == gif.NoFrame {
			if f.Rect != g.r.Canvas() || f.Transparent >= 0 || f.Interlaced {
				swizzle.Fill(req.pixels, req.info, req.rowBytes, g.fillValue(req.info), opts.ZeroInitialized)
				filled = true
			}
		} else {
			if !opts.HasPriorFrame {
				prior := opts
				prior.FrameIndex = f.Required
				prior.HasPriorFrame = false
				g.setupFrame(f.Required)
				switch r := g.decodeFrame(true, f.Required, prior); r {
				case Success:
				case IncompleteInput:
					return InvalidInput
				default:
					return r
				}
				g.setupFrame(index)
			}
			if prev := g.r.Frames[f.Required]; prev.Disposal == gif.DisposalRestoreBG {
				g.erase(prev)
			}
			filled = true
		}
		g.filledBackground = filled
		if filled {
			g.rowsDecoded = req.info.Height
		} else {
			g.rowsDecoded = 0
		}
		g.dec = gif.NewFrameDecoder(g.r, f)
	}

	done, err := g.dec.Decode(func(row []byte, y, count, pass int) {
		writeTransparent := f.Required == gif.NoFrame && pass > 1
		g.haveDecodedRow(f, row, y, count, writeTransparent)
	})
	if err != nil {
		Logger().Debug("codec: gif frame data", "frame", index, "err", err)
		return IncompleteInput
	}
	if !done {
		return IncompleteInput
	}
	return Success
}

// erase clears the area a restore-to-background frame occupied.
func (g *gifCodec) erase(prev *gif.Frame) {
	req := g.req
	r := prev.Rect.Intersect(g.r.Canvas())
	if r.Empty() {
		return
	}
	left := r.Min.X / g.sampleX
	top := r.Min.Y / g.sampleY
	width := min(swizzle.ScaledDimension(r.Dx(), g.sampleX), req.info.Width-left)
	height := min(swizzle.ScaledDimension(r.Dy(), g.sampleY), req.info.Height-top)
	if width <= 0 || height <= 0 {
		return
	}
	fi := req.info
	fi.Width, fi.Height = width, height
	off := top*req.rowBytes + left*req.info.BytesPerPixel()
	swizzle.Fill(req.pixels[off:], fi, req.rowBytes, g.fillValue(req.info), false)
}

// haveDecodedRow writes one decoded frame row, standing for count
// consecutive source rows, into the destination.
func (g *gifCodec) haveDecodedRow(f *gif.Frame, row []byte, y, count int, writeTransparent bool) {
	req := g.req
	xBegin := f.Rect.Min.X
	yBegin := f.Rect.Min.Y + y
	xEnd := min(f.Rect.Max.X, g.info.Width)
	yEnd := min(yBegin+count, g.info.Height)
	if f.Rect.Dx() == 0 || xEnd <= xBegin || yEnd <= yBegin {
		return
	}
	count = yEnd - yBegin

	dstRow := yBegin
	if g.sampleY > 1 {
		found := false
		for i := range count {
			src := yBegin + i
			if !g.sw.RowNeeded(src) {
				continue
			}
			dstRow = src / g.sampleY
			if dstRow >= req.info.Height {
				return
			}
			found = true
			count = (count-i-1)/g.sampleY + 1
			count = min(count, req.info.Height-dstRow)
			break
		}
		if !found {
			return
		}
	}

	if !g.filledBackground {
		g.rowsDecoded++
	}
	if !g.tableReal || g.sw == nil {
		return
	}

	line := req.pixels[dstRow*req.rowBytes:]
	bpp := req.info.BytesPerPixel()
	if writeTransparent || req.info.ColorType == ColorTypeRGB565 {
		g.sw.Swizzle(line, row)
	} else {
		// Transparent pixels must leave the prior frame visible.
		fill := uint8(g.fillValue(req.info))
		for i := range g.tmp {
			g.tmp[i] = fill
		}
		g.sw.Swizzle(g.tmp, row)
		start := g.sw.DstOffset() * bpp
		n := g.sw.SwizzleWidth()
		switch req.info.ColorType {
		case ColorTypeIndex8:
			trans := f.Transparent
			for i := range n {
				if v := g.tmp[start+i]; int(v) != trans {
					line[start+i] = v
				}
			}
		default:
			for i := range n {
				p := g.tmp[start+4*i : start+4*i+4]
				if p[0]|p[1]|p[2]|p[3] != 0 {
					copy(line[start+4*i:], p)
				}
			}
		}
	}

	if count > 1 {
		start := g.sw.DstOffset() * bpp
		end := start + g.sw.SwizzleWidth()*bpp
		src := line[start:end]
		for i := 1; i < count; i++ {
			copy(req.pixels[(dstRow+i)*req.rowBytes+start:], src)
		}
	}
}
