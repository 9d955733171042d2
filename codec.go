package codec

import (
	"image"
	"io"

	"github.com/gogpu/codec/internal/color"
	pixfmt "github.com/gogpu/codec/internal/image"
	"github.com/gogpu/codec/internal/swizzle"
)

// ScanlineOrder is the order in which a codec emits decoded rows.
type ScanlineOrder uint8

const (
	// ScanlineOrderTopDown emits rows from the top of the image.
	ScanlineOrderTopDown ScanlineOrder = iota
	// ScanlineOrderBottomUp emits rows from the bottom of the image.
	ScanlineOrderBottomUp
	// ScanlineOrderOutOfOrder emits rows in a format-defined order; use
	// NextScanline to find where each row belongs.
	ScanlineOrderOutOfOrder
	// ScanlineOrderNone means the whole image is decoded before any row
	// is usable. Requesting rows one at a time works but is slow.
	ScanlineOrderNone
)

func (o ScanlineOrder) String() string {
	switch o {
	case ScanlineOrderTopDown:
		return "top-down"
	case ScanlineOrderBottomUp:
		return "bottom-up"
	case ScanlineOrderOutOfOrder:
		return "out-of-order"
	default:
		return "none"
	}
}

type decodeMode uint8

const (
	modeNone decodeMode = iota
	modeScanline
	modeIncremental
)

// decodeRequest carries a validated destination to a backend.
type decodeRequest struct {
	info     ImageInfo
	pixels   []byte
	rowBytes int
	opts     Options
	// palette is non-nil only for Index8 destinations.
	palette *Palette
}

// backend is the format-specific half of a Codec. Optional behavior is
// discovered through the capability interfaces below.
type backend interface {
	// getPixels decodes a full image and returns the number of rows
	// written when the result is IncompleteInput.
	getPixels(req *decodeRequest) (Result, int)
}

// scaler is implemented by backends that decode below native size.
type scaler interface {
	scaledDimensions(scale float64) Size
	dimensionsSupported(s Size) bool
}

// subsetter is implemented by backends that decode rectangles.
type subsetter interface {
	validSubset(r *image.Rectangle) bool
}

// rewinder is implemented by backends that need setup after the stream
// returns to its start.
type rewinder interface {
	onRewind() bool
}

// scanliner is implemented by backends with a row-at-a-time decoder.
type scanliner interface {
	startScanlineDecode(req *decodeRequest) Result
	getScanlines(dst []byte, count, rowBytes int) int
	skipScanlines(count int) bool
	scanlineOrder() ScanlineOrder
}

// outputScanliner maps decode order to destination rows for
// out-of-order backends.
type outputScanliner interface {
	outputScanline(y int) int
}

// sampler is implemented by scanline backends whose swizzler supports
// horizontal sampling. It is called after startScanlineDecode.
type sampler interface {
	setSampleX(sampleX int) int
}

// incrementer is implemented by backends that resume after more data.
type incrementer interface {
	startIncrementalDecode(req *decodeRequest) Result
	incrementalDecode() (Result, int)
}

// animator is implemented by multi-frame backends.
type animator interface {
	frameCount() int
	frameInfo(i int) (FrameInfo, bool)
	repetitionCount() int
}

type alphaReporter interface {
	reallyHasAlpha() bool
}

type filler interface {
	fillValue(info ImageInfo) uint32
}

type converter interface {
	conversionSupported(dst ImageInfo) bool
}

type metadataProvider interface {
	metadata() map[string]string
}

// Codec decodes one encoded image. It owns its stream.
//
// A Codec is not safe for concurrent use. Separate codecs share nothing
// and may run in parallel.
type Codec struct {
	format  Format
	encoded EncodedInfo
	info    ImageInfo
	// stream is nil when the backend reads the stream on its own and
	// never needs it rewound.
	stream Stream
	owned  Stream
	b      backend

	needsRewind  bool
	mode         decodeMode
	dstInfo      ImageInfo
	opts         Options
	currScanline int
	minRowBytes  int
	rowsDecoded  int
}

// newCodec assembles a Codec. rewindable is nil for backends that buffer
// the stream themselves; owned is closed by Close either way.
func newCodec(format Format, encoded EncodedInfo, info ImageInfo, rewindable, owned Stream, b backend) *Codec {
	return &Codec{
		format:  format,
		encoded: encoded,
		info:    info,
		stream:  rewindable,
		owned:   owned,
		b:       b,
	}
}

// Format returns the encoded format.
func (c *Codec) Format() Format { return c.format }

// Info returns the natural decode target: native dimensions with the
// color and alpha type that lose nothing.
func (c *Codec) Info() ImageInfo { return c.info }

// EncodedInfo returns what the file header declared.
func (c *Codec) EncodedInfo() EncodedInfo { return c.encoded }

// Close releases the stream.
func (c *Codec) Close() error {
	if cl, ok := c.b.(io.Closer); ok {
		_ = cl.Close()
	}
	if c.owned != nil {
		closeStream(c.owned)
		c.owned = nil
	}
	return nil
}

// GetScaledDimensions returns the closest size the codec can decode to
// for desiredScale. Scales >= 1 return the native size; scales <= 0
// return the zero size.
func (c *Codec) GetScaledDimensions(desiredScale float64) Size {
	if desiredScale <= 0 {
		return Size{}
	}
	if desiredScale >= 1 {
		return c.info.Dimensions()
	}
	if s, ok := c.b.(scaler); ok {
		return s.scaledDimensions(desiredScale)
	}
	return c.info.Dimensions()
}

// DimensionsSupported reports whether GetPixels accepts a destination of
// size s.
func (c *Codec) DimensionsSupported(s Size) bool {
	if s == c.info.Dimensions() {
		return true
	}
	if sc, ok := c.b.(scaler); ok {
		return sc.dimensionsSupported(s)
	}
	return false
}

// GetValidSubset snaps r to a rectangle the codec can decode and reports
// whether subset decoding is supported at all. When it returns false the
// contents of r are unspecified.
func (c *Codec) GetValidSubset(r *image.Rectangle) bool {
	if r == nil {
		return false
	}
	if s, ok := c.b.(subsetter); ok {
		return s.validSubset(r)
	}
	return false
}

// ScanlineOrder returns the order in which GetScanlines produces rows.
func (c *Codec) ScanlineOrder() ScanlineOrder {
	if s, ok := c.b.(scanliner); ok {
		return s.scanlineOrder()
	}
	return ScanlineOrderTopDown
}

// RowsDecoded returns the number of destination rows the last full or
// incremental decode committed.
func (c *Codec) RowsDecoded() int { return c.rowsDecoded }

// ReallyHasAlpha reports whether the decoded pixels contain any
// non-opaque pixel. It is meaningful only after a decode completes.
func (c *Codec) ReallyHasAlpha() bool {
	if a, ok := c.b.(alphaReporter); ok {
		return a.reallyHasAlpha()
	}
	return c.info.AlphaType != AlphaTypeOpaque
}

// Metadata returns textual metadata found in the file (PNG text chunks,
// GIF comments). It may be nil.
func (c *Codec) Metadata() map[string]string {
	if m, ok := c.b.(metadataProvider); ok {
		return m.metadata()
	}
	return nil
}

// rewindIfNeeded rewinds the stream for every read after the first.
func (c *Codec) rewindIfNeeded() bool {
	needs := c.needsRewind
	c.needsRewind = true
	if !needs {
		return true
	}
	c.mode = modeNone
	if c.stream != nil && !c.stream.Rewind() {
		Logger().Debug("codec: stream cannot rewind", "format", c.format)
		return false
	}
	if r, ok := c.b.(rewinder); ok && !r.onRewind() {
		Logger().Debug("codec: rewind hook failed", "format", c.format)
		return false
	}
	return true
}

// validate applies the checks shared by every entry point that takes a
// destination description.
func (c *Codec) validate(info ImageInfo, opts *Options, palette *Palette) (Options, *Palette, Result) {
	if info.ColorType == ColorTypeUnknown {
		return Options{}, nil, InvalidConversion
	}
	if info.ColorType == ColorTypeIndex8 {
		if palette == nil {
			return Options{}, nil, InvalidParameters
		}
	} else {
		if palette != nil {
			palette.Count = 0
		}
		palette = nil
	}
	if canonical, ok := canonicalAlpha(info); !ok || canonical != info.AlphaType {
		return Options{}, nil, InvalidConversion
	}
	if !c.conversionSupported(info) {
		return Options{}, nil, InvalidConversion
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	if o.FrameIndex < 0 {
		return o, nil, InvalidParameters
	}
	if _, ok := c.b.(animator); !ok && o.FrameIndex != 0 {
		return o, nil, InvalidParameters
	}
	if o.Subset != nil {
		subset := *o.Subset
		if subset.Empty() || !subset.In(c.info.Bounds()) {
			return o, nil, InvalidParameters
		}
		if !c.GetValidSubset(&subset) || subset != *o.Subset {
			return o, nil, Unimplemented
		}
	}
	if !c.DimensionsSupported(info.Dimensions()) {
		return o, nil, InvalidScale
	}
	return o, palette, Success
}

func canonicalAlpha(info ImageInfo) (AlphaType, bool) {
	return pixfmt.CanonicalAlphaType(info.ColorType, info.AlphaType)
}

// conversionPossible reports whether a source described by src can be
// decoded into dst without a format-specific override.
func conversionPossible(dst, src ImageInfo) bool {
	if !validAlpha(dst.AlphaType, src.AlphaType) {
		return false
	}
	switch dst.ColorType {
	case ColorTypeRGBA8888, ColorTypeBGRA8888, ColorTypeRGBAF16:
		return true
	case ColorTypeRGB565:
		return src.AlphaType == AlphaTypeOpaque
	case ColorTypeGray8:
		return src.ColorType == ColorTypeGray8
	case ColorTypeIndex8:
		return src.ColorType == ColorTypeIndex8
	default:
		return false
	}
}

// validAlpha reports whether a source alpha type can be decoded as dst.
// Opaque sources decode to anything; others need a real alpha channel.
func validAlpha(dst, src AlphaType) bool {
	switch {
	case dst == AlphaTypeUnknown:
		return false
	case dst == src, src == AlphaTypeOpaque:
		return true
	default:
		return dst == AlphaTypePremul || dst == AlphaTypeUnpremul
	}
}

func (c *Codec) conversionSupported(dst ImageInfo) bool {
	if cv, ok := c.b.(converter); ok {
		return cv.conversionSupported(dst)
	}
	return conversionPossible(dst, c.info)
}

// GetPixels decodes the image (or the frame and subset selected by opts)
// into pixels, whose rows are rowBytes apart. palette must be non-nil for
// Index8 destinations and receives the color table.
//
// On IncompleteInput the rows that could not be decoded are filled with
// the codec's fill value and RowsDecoded reports how many are real.
func (c *Codec) GetPixels(info ImageInfo, pixels []byte, rowBytes int, opts *Options, palette *Palette) Result {
	if info.ColorType == ColorTypeUnknown {
		return InvalidConversion
	}
	if pixels == nil {
		return InvalidParameters
	}
	if rowBytes < info.MinRowBytes() || len(pixels) < info.ComputeByteSize(rowBytes) {
		return InvalidParameters
	}
	o, pal, result := c.validate(info, opts, palette)
	if result != Success {
		return result
	}
	if !c.rewindIfNeeded() {
		return CouldNotRewind
	}

	// A full decode ends any scanline or incremental decode.
	c.mode = modeNone
	c.dstInfo = info
	c.opts = o
	req := &decodeRequest{info: info, pixels: pixels, rowBytes: rowBytes, opts: o, palette: pal}
	result, rows := c.b.getPixels(req)
	switch result {
	case Success:
		c.rowsDecoded = info.Height
	case IncompleteInput:
		c.rowsDecoded = min(max(rows, 0), info.Height)
		Logger().Debug("codec: incomplete input", "format", c.format, "rows", c.rowsDecoded, "height", info.Height)
		c.fillIncompleteImage(info, pixels, rowBytes, o.ZeroInitialized, info.Height, c.rowsDecoded, false)
	default:
		c.rowsDecoded = 0
	}
	return result
}

// GetImage is a convenience wrapper that decodes into a newly allocated
// buffer of info's minimum row size.
func (c *Codec) GetImage(info ImageInfo, opts *Options) ([]byte, Result) {
	if info.ColorType == ColorTypeUnknown || info.Width <= 0 || info.Height <= 0 {
		return nil, InvalidParameters
	}
	pixels := make([]byte, info.ComputeByteSize(info.MinRowBytes()))
	var pal *Palette
	if info.ColorType == ColorTypeIndex8 {
		pal = &Palette{}
	}
	return pixels, c.GetPixels(info, pixels, info.MinRowBytes(), opts, pal)
}

// StartScanlineDecode prepares a row-at-a-time decode. Starting again
// restarts from the first row.
func (c *Codec) StartScanlineDecode(info ImageInfo, opts *Options, palette *Palette) Result {
	c.mode = modeNone
	o, pal, result := c.validate(info, opts, palette)
	if result != Success {
		return result
	}
	return c.startScanline(info, o, pal, info.MinRowBytes())
}

// startScanline is StartScanlineDecode after validation. SampledCodec
// calls it with native dimensions and a narrower row.
func (c *Codec) startScanline(info ImageInfo, o Options, pal *Palette, minRowBytes int) Result {
	sl, ok := c.b.(scanliner)
	if !ok {
		return Unimplemented
	}
	if o.Subset != nil && (o.Subset.Min.Y != 0 || o.Subset.Dy() != c.info.Height) {
		return InvalidParameters
	}
	if !c.rewindIfNeeded() {
		return CouldNotRewind
	}
	result := sl.startScanlineDecode(&decodeRequest{info: info, opts: o, palette: pal})
	if result != Success {
		return result
	}
	c.mode = modeScanline
	c.dstInfo = info
	c.opts = o
	c.currScanline = 0
	c.minRowBytes = minRowBytes
	return Success
}

// GetScanlines writes the next count rows into dst and returns the
// number actually decoded. Rows the stream did not supply are filled.
// It returns 0 if no scanline decode is active or the request runs past
// the last row.
func (c *Codec) GetScanlines(dst []byte, count, rowBytes int) int {
	if c.mode != modeScanline {
		return 0
	}
	if count <= 0 || c.currScanline+count > c.dstInfo.Height {
		return 0
	}
	if rowBytes < c.minRowBytes || len(dst) < (count-1)*rowBytes+c.minRowBytes {
		return 0
	}
	sl := c.b.(scanliner)
	n := sl.getScanlines(dst, count, rowBytes)
	if n < count {
		fillInfo := c.dstInfo
		fillInfo.Width = c.minRowBytes / max(c.dstInfo.BytesPerPixel(), 1)
		c.fillIncompleteImage(fillInfo, dst, rowBytes, c.opts.ZeroInitialized, count, n, true)
	}
	c.currScanline += count
	return n
}

// SkipScanlines advances past count rows. It returns false if no
// scanline decode is active, the request runs past the last row, or the
// rows could not be decoded.
func (c *Codec) SkipScanlines(count int) bool {
	if c.mode != modeScanline {
		return false
	}
	if count < 0 || c.currScanline+count > c.dstInfo.Height {
		return false
	}
	ok := c.b.(scanliner).skipScanlines(count)
	c.currScanline += count
	return ok
}

// NextScanline returns the destination row the next GetScanlines call
// writes, or -1 without an active scanline decode.
func (c *Codec) NextScanline() int {
	if c.mode != modeScanline {
		return -1
	}
	return c.OutputScanline(c.currScanline)
}

// OutputScanline maps the y-th decoded row to its destination row.
func (c *Codec) OutputScanline(inputY int) int {
	height := c.info.Height
	if c.mode == modeScanline {
		height = c.dstInfo.Height
	}
	switch c.ScanlineOrder() {
	case ScanlineOrderBottomUp:
		return height - inputY - 1
	case ScanlineOrderOutOfOrder:
		if o, ok := c.b.(outputScanliner); ok {
			return o.outputScanline(inputY)
		}
	}
	return inputY
}

// StartIncrementalDecode prepares a decode that can be resumed after more
// bytes are appended to the stream.
func (c *Codec) StartIncrementalDecode(info ImageInfo, pixels []byte, rowBytes int, opts *Options, palette *Palette) Result {
	c.mode = modeNone
	if info.ColorType == ColorTypeUnknown {
		return InvalidConversion
	}
	if pixels == nil || rowBytes < info.MinRowBytes() || len(pixels) < info.ComputeByteSize(rowBytes) {
		return InvalidParameters
	}
	o, pal, result := c.validate(info, opts, palette)
	if result != Success {
		return result
	}
	inc, ok := c.b.(incrementer)
	if !ok {
		return Unimplemented
	}
	if !c.rewindIfNeeded() {
		return CouldNotRewind
	}
	req := &decodeRequest{info: info, pixels: pixels, rowBytes: rowBytes, opts: o, palette: pal}
	result = inc.startIncrementalDecode(req)
	if result != Success {
		return result
	}
	c.mode = modeIncremental
	c.dstInfo = info
	c.opts = o
	c.rowsDecoded = 0
	return Success
}

// IncrementalDecode decodes as much as the stream currently holds. It
// returns IncompleteInput while more data is needed; RowsDecoded then
// reports the rows committed so far. Rows are not filled.
func (c *Codec) IncrementalDecode() Result {
	if c.mode != modeIncremental {
		return ScanlineDecodingNotStarted
	}
	result, rows := c.b.(incrementer).incrementalDecode()
	switch result {
	case Success:
		c.rowsDecoded = c.dstInfo.Height
		c.mode = modeNone
	case IncompleteInput:
		c.rowsDecoded = min(max(rows, 0), c.dstInfo.Height)
	default:
		c.mode = modeNone
	}
	return result
}

// FrameCount returns the number of frames discovered so far.
func (c *Codec) FrameCount() int {
	if a, ok := c.b.(animator); ok {
		return a.frameCount()
	}
	return 1
}

// FrameInfo returns the records of every frame discovered so far. It is
// nil for single-frame formats.
func (c *Codec) FrameInfo() []FrameInfo {
	a, ok := c.b.(animator)
	if !ok {
		return nil
	}
	n := a.frameCount()
	infos := make([]FrameInfo, 0, n)
	for i := range n {
		if fi, ok := a.frameInfo(i); ok {
			infos = append(infos, fi)
		}
	}
	return infos
}

// RepetitionCount returns how many times an animation repeats after the
// first play: 0 plays once, RepetitionInfinite loops forever.
func (c *Codec) RepetitionCount() int {
	if a, ok := c.b.(animator); ok {
		return a.repetitionCount()
	}
	return 0
}

// fillValue returns the value written into rows the decoder never
// reached.
func (c *Codec) fillValue(info ImageInfo) uint32 {
	if f, ok := c.b.(filler); ok {
		return f.fillValue(info)
	}
	return defaultFillValue(info)
}

func defaultFillValue(info ImageInfo) uint32 {
	if info.AlphaType == AlphaTypeOpaque {
		return color.ToARGB(color.Black)
	}
	return 0
}

// fillIncompleteImage fills the linesRequested-linesDecoded rows that
// were not written. Scanline batches are always sequential in dst.
func (c *Codec) fillIncompleteImage(info ImageInfo, dst []byte, rowBytes int, zeroInit bool, linesRequested, linesDecoded int, sequential bool) {
	remaining := linesRequested - linesDecoded
	if remaining <= 0 {
		return
	}
	value := c.fillValue(info)
	if c.opts.Subset != nil {
		info.Width = min(info.Width, c.opts.Subset.Dx())
	}
	fill := func(start, rows int) {
		fi := info
		fi.Height = rows
		swizzle.Fill(dst[start*rowBytes:], fi, rowBytes, value, zeroInit)
	}
	order := c.ScanlineOrder()
	if sequential {
		order = ScanlineOrderTopDown
	}
	switch order {
	case ScanlineOrderBottomUp:
		fill(0, remaining)
	case ScanlineOrderOutOfOrder:
		for y := linesDecoded; y < linesRequested; y++ {
			fill(c.OutputScanline(y), 1)
		}
	default:
		fill(linesDecoded, remaining)
	}
}
