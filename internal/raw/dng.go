package raw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"
)

const (
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionDeflateOld = 32946

	predictorNone       = 1
	predictorHorizontal = 2

	planarChunky = 1

	maxCFADim = 8
)

// CFA colors.
const (
	cfaRed = iota
	cfaGreen
	cfaBlue
)

// Negative is the parsed description of a DNG's raw image.
type Negative struct {
	order binary.ByteOrder

	Width, Height int
	Bits          int
	Samples       int
	compression   int
	predictor     int
	photometric   int

	// Data layout. Strips are tiles as wide as the image whose last row
	// may be short.
	tiled           bool
	tileW, tileH    int
	offsets, counts []uint32

	// CFA repeat pattern, row-major, one color per cell.
	cfaSize image.Point
	cfa     []uint8

	blackSize image.Point
	black     []float64
	white     float64

	// Crop is the default crop in raw image coordinates.
	Crop image.Rectangle

	neutral     [3]float64
	colorMatrix []float64
}

// IsMosaic reports whether the raw data is a color filter array.
func (n *Negative) IsMosaic() bool { return n.photometric == photometricCFA }

// IsXTrans reports a 6x6 color filter array.
func (n *Negative) IsXTrans() bool {
	return n.IsMosaic() && n.cfaSize == image.Point{X: 6, Y: 6}
}

func (n *Negative) cfaColor(x, y int) uint8 {
	return n.cfa[(y%n.cfaSize.Y)*n.cfaSize.X+x%n.cfaSize.X]
}

// parseNegative finds the main raw directory of a DNG and reads its
// layout and calibration tags. It throws ErrBadFormat on anything it
// cannot render.
func parseNegative(c *Container) *Negative {
	if !c.IsDNG() {
		Throw(ErrBadFormat)
	}
	ifd0 := c.IFDs[0]
	var main *IFD
	ifd0.Walk(func(d *IFD) {
		if main != nil || d.Uint(TagNewSubfileType, 0) != 0 {
			return
		}
		switch d.Uint(TagPhotometric, 0) {
		case photometricCFA, photometricLinearRaw:
			main = d
		}
	})
	if main == nil {
		Throw(ErrBadFormat)
	}

	n := &Negative{
		order:       c.Order,
		Width:       int(main.Uint(TagImageWidth, 0)),
		Height:      int(main.Uint(TagImageLength, 0)),
		Bits:        int(main.Uint(TagBitsPerSample, 0)),
		Samples:     int(main.Uint(TagSamplesPerPixel, 1)),
		compression: int(main.Uint(TagCompression, compressionNone)),
		predictor:   int(main.Uint(TagPredictor, predictorNone)),
		photometric: int(main.Uint(TagPhotometric, 0)),
	}
	if n.Width <= 0 || n.Height <= 0 {
		Throw(ErrBadFormat)
	}
	if n.Bits != 8 && n.Bits != 16 {
		Throw(ErrBadFormat)
	}
	switch n.compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflateOld:
	default:
		Throw(ErrBadFormat)
	}
	if n.predictor != predictorNone && n.predictor != predictorHorizontal {
		Throw(ErrBadFormat)
	}
	switch {
	case n.IsMosaic() && n.Samples != 1:
		Throw(ErrBadFormat)
	case !n.IsMosaic() && n.Samples != 1 && n.Samples != 3:
		Throw(ErrBadFormat)
	}
	if n.Samples > 1 && main.Uint(TagPlanarConfig, planarChunky) != planarChunky {
		Throw(ErrBadFormat)
	}

	n.parseLayout(main)
	if n.IsMosaic() {
		n.parseCFA(main)
	}
	n.parseLevels(main)
	n.parseCrop(main)
	n.parseColor(ifd0)
	return n
}

func (n *Negative) parseLayout(d *IFD) {
	if offs := d.Uints(TagTileOffsets); offs != nil {
		n.tiled = true
		n.tileW = int(d.Uint(TagTileWidth, 0))
		n.tileH = int(d.Uint(TagTileLength, 0))
		n.offsets, n.counts = offs, d.Uints(TagTileByteCounts)
	} else {
		n.tileW = n.Width
		n.tileH = min(int(d.Uint(TagRowsPerStrip, uint32(n.Height))), n.Height)
		n.offsets, n.counts = d.Uints(TagStripOffsets), d.Uints(TagStripByteCounts)
	}
	if n.tileW <= 0 || n.tileH <= 0 {
		Throw(ErrBadFormat)
	}
	want := ceilDiv(n.Width, n.tileW) * ceilDiv(n.Height, n.tileH)
	if len(n.offsets) != want || len(n.counts) != want {
		Throw(ErrBadFormat)
	}
}

func (n *Negative) parseCFA(d *IFD) {
	dim := d.Uints(TagCFARepeatDim)
	if len(dim) != 2 {
		Throw(ErrBadFormat)
	}
	n.cfaSize = image.Point{X: int(dim[1]), Y: int(dim[0])}
	if n.cfaSize.X <= 0 || n.cfaSize.Y <= 0 || n.cfaSize.X > maxCFADim || n.cfaSize.Y > maxCFADim {
		Throw(ErrBadFormat)
	}
	e, ok := d.Get(TagCFAPattern)
	if !ok || len(e.Bytes()) != n.cfaSize.X*n.cfaSize.Y {
		Throw(ErrBadFormat)
	}
	var seen [3]bool
	n.cfa = append([]uint8(nil), e.Bytes()...)
	for _, c := range n.cfa {
		if c > cfaBlue {
			Throw(ErrBadFormat)
		}
		seen[c] = true
	}
	if !seen[cfaRed] || !seen[cfaGreen] || !seen[cfaBlue] {
		Throw(ErrBadFormat)
	}
}

func (n *Negative) parseLevels(d *IFD) {
	n.blackSize = image.Point{X: 1, Y: 1}
	if dim := d.Uints(TagBlackLevelRepeat); len(dim) == 2 && dim[0] > 0 && dim[1] > 0 &&
		dim[0] <= maxCFADim && dim[1] <= maxCFADim {
		n.blackSize = image.Point{X: int(dim[1]), Y: int(dim[0])}
	}
	cells := n.blackSize.X * n.blackSize.Y * n.Samples
	n.black = make([]float64, cells)
	switch levels := d.Floats(TagBlackLevel); {
	case len(levels) == cells:
		copy(n.black, levels)
	case len(levels) > 0:
		for i := range n.black {
			n.black[i] = levels[0]
		}
	}

	n.white = float64(int(1)<<n.Bits - 1)
	if w := d.Floats(TagWhiteLevel); len(w) > 0 {
		n.white = w[0]
	}
	for _, b := range n.black {
		if n.white <= b {
			Throw(ErrBadFormat)
		}
	}
}

func (n *Negative) blackAt(x, y, s int) float64 {
	cell := (y%n.blackSize.Y)*n.blackSize.X + x%n.blackSize.X
	return n.black[cell*n.Samples+s]
}

func (n *Negative) parseCrop(d *IFD) {
	bounds := image.Rect(0, 0, n.Width, n.Height)
	n.Crop = bounds
	origin, size := d.Floats(TagDefaultCropOrigin), d.Floats(TagDefaultCropSize)
	if len(size) == 2 {
		var x, y int
		if len(origin) == 2 {
			x, y = int(origin[0]), int(origin[1])
		}
		n.Crop = image.Rect(x, y, x+int(size[0]), y+int(size[1])).Intersect(bounds)
	}
	if n.Crop.Empty() {
		Throw(ErrBadFormat)
	}
}

func (n *Negative) parseColor(ifd0 *IFD) {
	n.neutral = [3]float64{1, 1, 1}
	if v := ifd0.Floats(TagAsShotNeutral); len(v) == 3 && v[0] > 0 && v[1] > 0 && v[2] > 0 {
		copy(n.neutral[:], v)
	}
	if m := ifd0.Floats(TagColorMatrix1); len(m) == 9 {
		n.colorMatrix = m
	}
}

// Image is a rendered 8-bit sRGB image, three bytes per pixel.
type Image struct {
	Width, Height int
	Pix           []byte
}

// Row returns row y.
func (im *Image) Row(y int) []byte {
	return im.Pix[y*im.Width*3 : (y+1)*im.Width*3]
}

// DNG renders the raw image of a DNG file.
type DNG struct {
	host *Host
	r    io.ReaderAt
	neg  *Negative
}

// NewDNG parses the negative of a DNG container read from r.
func NewDNG(host *Host, r io.ReaderAt, c *Container) (*DNG, error) {
	d := &DNG{host: host, r: r}
	if err := Catch(func() { d.neg = parseNegative(c) }); err != nil {
		return nil, err
	}
	host.Logger.Debug("raw: dng negative",
		"width", d.neg.Width, "height", d.neg.Height, "bits", d.neg.Bits,
		"compression", d.neg.compression, "crop", d.neg.Crop)
	return d, nil
}

// Size returns the default crop size.
func (d *DNG) Size() image.Point { return d.neg.Crop.Size() }

// BitsPerSample returns the raw sample depth.
func (d *DNG) BitsPerSample() int { return d.neg.Bits }

// IsScalable reports whether renders can be downscaled. Only mosaic
// images scale, during demosaicing.
func (d *DNG) IsScalable() bool { return d.neg.IsMosaic() }

// IsXTrans reports a 6x6 color filter array.
func (d *DNG) IsXTrans() bool { return d.neg.IsXTrans() }

// Render demosaics and color-converts the image at the integer downscale
// whose long edge is nearest to, and not below, max(width, height).
func (d *DNG) Render(width, height int) (*Image, error) {
	var img *Image
	err := Catch(func() {
		h := d.host
		h.SetPreferredSize(max(width, height))
		h.start()
		defer h.stop()

		stage1 := d.readStage1()
		stage2 := d.buildStage2(stage1)
		factor := d.scaleFactor()
		stage3, size := d.buildStage3(stage2, factor)
		img = d.render(stage3, size)
		h.Logger.Debug("raw: rendered", "factor", factor, "size", size)
	})
	if err != nil {
		d.host.Logger.Warn("raw: render failed", "err", err)
		return nil, err
	}
	return img, nil
}

func (d *DNG) scaleFactor() int {
	if !d.IsScalable() || d.host.preferredSize <= 0 {
		return 1
	}
	long := max(d.neg.Crop.Dx(), d.neg.Crop.Dy())
	return max(long/d.host.preferredSize, 1)
}

// readStage1 reads and decompresses every strip or tile into raw
// samples.
func (d *DNG) readStage1() []uint16 {
	n := d.neg
	a := &d.host.Allocator
	raw := a.Uint16s(n.Width * n.Height * n.Samples)
	bps := n.Bits / 8
	across := ceilDiv(n.Width, n.tileW)

	for i, off := range n.offsets {
		x0 := (i % across) * n.tileW
		y0 := (i / across) * n.tileH
		w, h := n.tileW, n.tileH
		if !n.tiled {
			h = min(h, n.Height-y0)
		}
		compressed := a.Bytes(int(n.counts[i]))
		if _, err := d.r.ReadAt(compressed, int64(off)); err != nil {
			Throw(ErrReadFile)
		}
		data := d.decompress(compressed, w*h*n.Samples*bps)
		samples := a.Uint16s(w * h * n.Samples)
		for j := range samples {
			if bps == 1 {
				samples[j] = uint16(data[j])
			} else {
				samples[j] = n.order.Uint16(data[2*j:])
			}
		}
		if n.predictor == predictorHorizontal {
			undoPredictor(samples, w*n.Samples, n.Samples, n.Bits)
		}

		rowLen := min(w, n.Width-x0) * n.Samples
		for y := range min(h, n.Height-y0) {
			dst := raw[((y0+y)*n.Width+x0)*n.Samples:]
			copy(dst[:rowLen], samples[y*w*n.Samples:])
		}
	}
	return raw
}

func (d *DNG) decompress(src []byte, size int) []byte {
	switch d.neg.compression {
	case compressionNone:
		if len(src) < size {
			Throw(ErrReadFile)
		}
		return src
	case compressionLZW:
		return d.inflate(lzw.NewReader(bytes.NewReader(src), lzw.MSB, 8), size)
	default:
		zr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			Throw(ErrBadFormat)
		}
		defer zr.Close()
		return d.inflate(zr, size)
	}
}

func (d *DNG) inflate(r io.Reader, size int) []byte {
	out := d.host.Allocator.Bytes(size)
	if _, err := io.ReadFull(r, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			Throw(ErrReadFile)
		}
		Throw(ErrBadFormat)
	}
	return out
}

// undoPredictor reverses horizontal differencing in place. Sums wrap at
// the sample bit depth.
func undoPredictor(samples []uint16, rowLen, stride, bits int) {
	mask := uint16(1<<bits - 1)
	for row := 0; row+rowLen <= len(samples); row += rowLen {
		r := samples[row : row+rowLen]
		for x := stride; x < rowLen; x++ {
			r[x] = (r[x] + r[x-stride]) & mask
		}
	}
}

// buildStage2 subtracts black levels and normalizes to [0,1].
func (d *DNG) buildStage2(raw []uint16) []float32 {
	n := d.neg
	lin := d.host.Allocator.Float32s(len(raw))
	d.host.PerformAreaTask(image.Rect(0, 0, n.Width, n.Height), defaultTileSize, func(area image.Rectangle) {
		for y := area.Min.Y; y < area.Max.Y; y++ {
			for x := area.Min.X; x < area.Max.X; x++ {
				for s := range n.Samples {
					i := (y*n.Width+x)*n.Samples + s
					b := n.blackAt(x, y, s)
					v := (float64(raw[i]) - b) / (n.white - b)
					lin[i] = float32(min(max(v, 0), 1))
				}
			}
		}
	})
	return lin
}

// buildStage3 demosaics the crop area into linear camera RGB, averaging
// factor x factor blocks.
func (d *DNG) buildStage3(lin []float32, factor int) ([]float32, image.Point) {
	n := d.neg
	size := image.Point{X: n.Crop.Dx() / factor, Y: n.Crop.Dy() / factor}
	if size.X <= 0 || size.Y <= 0 {
		Throw(ErrBadFormat)
	}
	out := d.host.Allocator.Float32s(size.X * size.Y * 3)
	d.host.PerformAreaTask(image.Rectangle{Max: size}, defaultTileSize, func(area image.Rectangle) {
		for y := area.Min.Y; y < area.Max.Y; y++ {
			for x := area.Min.X; x < area.Max.X; x++ {
				block := image.Rect(0, 0, factor, factor).Add(n.Crop.Min).Add(image.Pt(x*factor, y*factor))
				var rgb [3]float32
				if n.IsMosaic() {
					rgb = d.demosaic(lin, block, factor == 1)
				} else {
					rgb = d.average(lin, block)
				}
				copy(out[(y*size.X+x)*3:], rgb[:])
			}
		}
	})
	return out, size
}

// demosaic averages each color over block, widened until every color is
// present. Full-size renders always look at the 3x3 neighborhood.
func (d *DNG) demosaic(lin []float32, block image.Rectangle, fullSize bool) [3]float32 {
	n := d.neg
	bounds := image.Rect(0, 0, n.Width, n.Height)
	pad := 0
	if fullSize {
		pad = 1
	}
	for ; pad <= maxCFADim; pad++ {
		win := block.Inset(-pad).Intersect(bounds)
		var sum [3]float32
		var count [3]int
		for y := win.Min.Y; y < win.Max.Y; y++ {
			for x := win.Min.X; x < win.Max.X; x++ {
				c := n.cfaColor(x, y)
				sum[c] += lin[y*n.Width+x]
				count[c]++
			}
		}
		if count[0] > 0 && count[1] > 0 && count[2] > 0 {
			return [3]float32{
				sum[0] / float32(count[0]),
				sum[1] / float32(count[1]),
				sum[2] / float32(count[2]),
			}
		}
	}
	return [3]float32{}
}

// average box-filters a LinearRaw image. Single-sample images are gray.
func (d *DNG) average(lin []float32, block image.Rectangle) [3]float32 {
	n := d.neg
	block = block.Intersect(image.Rect(0, 0, n.Width, n.Height))
	var sum [3]float32
	count := 0
	for y := block.Min.Y; y < block.Max.Y; y++ {
		for x := block.Min.X; x < block.Max.X; x++ {
			i := (y*n.Width + x) * n.Samples
			for c := range 3 {
				sum[c] += lin[i+min(c, n.Samples-1)]
			}
			count++
		}
	}
	if count == 0 {
		return sum
	}
	return [3]float32{sum[0] / float32(count), sum[1] / float32(count), sum[2] / float32(count)}
}

// render converts camera RGB to 8-bit sRGB.
func (d *DNG) render(cam []float32, size image.Point) *Image {
	m := cameraToSRGB(d.neg)
	img := &Image{Width: size.X, Height: size.Y, Pix: d.host.Allocator.Bytes(size.X * size.Y * 3)}
	d.host.PerformAreaTask(image.Rectangle{Max: size}, defaultTileSize, func(area image.Rectangle) {
		for y := area.Min.Y; y < area.Max.Y; y++ {
			for x := area.Min.X; x < area.Max.X; x++ {
				i := (y*size.X + x) * 3
				encodeSRGB(img.Pix[i:i+3], m.apply(cam[i], cam[i+1], cam[i+2]))
			}
		}
	})
	return img
}
