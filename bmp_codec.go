package codec

import (
	stdcolor "image/color"

	"github.com/gogpu/codec/internal/bmp"
	"github.com/gogpu/codec/internal/color"
	"github.com/gogpu/codec/internal/image"
	"github.com/gogpu/codec/internal/swizzle"
)

func isBMP(header []byte) bool { return bmp.IsBMP(header) }

// bmpCodec decodes standard, bit-field and RLE bitmaps, including the
// headerless bitmaps stored in ICO files.
type bmpCodec struct {
	stream Stream
	header *bmp.Header
	info   ImageInfo

	table *color.Table
	sw    *swizzle.Swizzler
	msw   *bmp.MaskSwizzler
	src   []byte
	alpha swizzle.ResultAlpha

	// RLE scanline state: the whole image is decoded up front.
	rle        []byte
	rleRows    int
	rleRowSize int
	rleBpp     int
	rleSampleX int
	rleWidth   int
	rleY       int
}

func newBMPCodec(s Stream, _ *factoryOptions) (*Codec, Result) {
	return makeBMPCodec(s, false, FormatBMP)
}

// newEmbeddedBMPCodec decodes a bitmap stored inside an ICO file.
func newEmbeddedBMPCodec(s Stream) (*Codec, Result) {
	return makeBMPCodec(s, true, FormatBMP)
}

func makeBMPCodec(s Stream, inICO bool, format Format) (*Codec, Result) {
	h, err := bmp.ReadHeader(s, inICO)
	if err != nil {
		Logger().Debug("codec: bmp header", "err", err)
		return nil, InvalidInput
	}
	b := &bmpCodec{stream: s, header: h}
	encoded := EncodedInfo{Width: h.Width, Height: h.Height, BitsPerComponent: 8}

	switch {
	case h.Format == bmp.FormatRLE:
		b.info = MakeInfo(h.Width, h.Height, ColorTypeN32, AlphaTypePremul)
		encoded.Color, encoded.Alpha = EncodedBGRA, EncodedBinary
		if h.BitsPerPixel <= 8 {
			encoded.Color = EncodedPalette
		}
	case h.Format == bmp.FormatBitMask:
		at := AlphaTypeOpaque
		encoded.Color, encoded.Alpha = EncodedBGRX, EncodedOpaque
		if h.Alpha {
			at = AlphaTypeUnpremul
			encoded.Color, encoded.Alpha = EncodedBGRA, EncodedUnpremul
		}
		b.info = MakeInfo(h.Width, h.Height, ColorTypeN32, at)
	case h.BitsPerPixel <= 8:
		encoded.Color, encoded.Alpha = EncodedPalette, EncodedOpaque
		encoded.BitsPerComponent = h.BitsPerPixel
		if inICO {
			b.info = MakeInfo(h.Width, h.Height, ColorTypeN32, AlphaTypePremul)
			encoded.Alpha = EncodedBinary
		} else {
			b.info = MakeInfo(h.Width, h.Height, ColorTypeIndex8, AlphaTypeOpaque)
		}
	default:
		at := AlphaTypeOpaque
		encoded.Color, encoded.Alpha = EncodedBGR, EncodedOpaque
		switch {
		case h.Alpha:
			at = AlphaTypeUnpremul
			encoded.Color, encoded.Alpha = EncodedBGRA, EncodedUnpremul
		case inICO:
			at = AlphaTypePremul
			encoded.Alpha = EncodedBinary
		}
		b.info = MakeInfo(h.Width, h.Height, ColorTypeN32, at)
	}
	return newCodec(format, encoded, b.info, s, s, b), Success
}

func (b *bmpCodec) onRewind() bool {
	h, err := bmp.ReadHeader(b.stream, b.header.InICO)
	if err != nil {
		return false
	}
	b.header = h
	return true
}

// srcConfig maps a standard bitmap to its swizzler source.
func (b *bmpCodec) srcConfig() swizzle.SrcConfig {
	switch b.header.BitsPerPixel {
	case 1:
		return swizzle.Index1
	case 2:
		return swizzle.Index2
	case 4:
		return swizzle.Index4
	case 8:
		return swizzle.Index
	case 24:
		return swizzle.BGR
	default:
		if b.header.Alpha {
			return swizzle.BGRA
		}
		return swizzle.BGRX
	}
}

// prepare reads the color table, skips to the pixels and builds the
// row converter for req.
func (b *bmpCodec) prepare(req *decodeRequest) Result {
	table, err := b.header.ReadColorTable(b.stream)
	if err != nil {
		Logger().Debug("codec: bmp color table", "err", err)
		return InvalidInput
	}
	b.table = table
	if req.palette != nil {
		req.palette.Count = copy(req.palette.Colors[:], table.Colors())
	}
	b.alpha = swizzle.EmptyAlpha
	b.sw, b.msw = nil, nil

	switch b.header.Format {
	case bmp.FormatRLE:
		return Success
	case bmp.FormatBitMask:
		msw, err := bmp.NewMaskSwizzler(b.header.Masks, req.info, b.header.Width)
		if err != nil {
			return InvalidConversion
		}
		b.msw = msw
	default:
		sw, err := swizzle.New(swizzle.Config{
			Src:             b.srcConfig(),
			Table:           table,
			Dst:             req.info,
			SrcWidth:        b.header.Width,
			ZeroInitialized: req.opts.ZeroInitialized,
		})
		if err != nil {
			return InvalidConversion
		}
		b.sw = sw
	}
	b.src = make([]byte, b.header.RowBytes())
	return Success
}

func (b *bmpCodec) swizzleRow(dst []byte) {
	if b.msw != nil {
		b.alpha = b.alpha.Merge(b.msw.Swizzle(dst, b.src))
		return
	}
	b.alpha = b.alpha.Merge(b.sw.Swizzle(dst, b.src))
}

func (b *bmpCodec) dstRow(y, height int) int {
	if b.header.TopDown {
		return y
	}
	return height - 1 - y
}

func (b *bmpCodec) getPixels(req *decodeRequest) (Result, int) {
	if r := b.prepare(req); r != Success {
		return r, 0
	}
	if b.header.Format == bmp.FormatRLE {
		return b.decodeRLE(req.info, req.pixels, req.rowBytes, req.opts.ZeroInitialized)
	}
	height := req.info.Height
	for y := range height {
		if !readFull(b.stream, b.src) {
			return IncompleteInput, y
		}
		b.swizzleRow(req.pixels[b.dstRow(y, height)*req.rowBytes:])
	}
	if b.header.InICO && !b.header.Alpha {
		b.applyANDMask(req)
	}
	return Success, height
}

// applyANDMask clears the pixels an ICO bitmap's AND mask marks as
// transparent. A missing or short mask leaves the image opaque.
func (b *bmpCodec) applyANDMask(req *decodeRequest) {
	write := swizzle.WriterFor(req.info)
	if write == nil || req.info.ColorType == ColorTypeRGB565 || req.info.ColorType == ColorTypeGray8 {
		return
	}
	mask := image.GetRow(b.header.MaskRowBytes())
	defer image.PutRow(mask)
	height := req.info.Height
	for y := range height {
		if !readFull(b.stream, mask) {
			return
		}
		row := req.pixels[b.dstRow(y, height)*req.rowBytes:]
		for x := range req.info.Width {
			if mask[x>>3]&(0x80>>(x&7)) != 0 {
				write(row, x, stdcolor.RGBA{})
				b.alpha = b.alpha.Merge(swizzle.AlphaOf(0))
			}
		}
	}
}

func (b *bmpCodec) reallyHasAlpha() bool {
	if b.info.AlphaType == AlphaTypeOpaque {
		return false
	}
	return !b.alpha.IsOpaque()
}

// rleSink writes decoded RLE pixels into a bottom-up destination.
type rleSink struct {
	dst      []byte
	rowBytes int
	width    int
	height   int
	table    *color.Table
	write    swizzle.PixelWriter
	alpha    *swizzle.ResultAlpha
}

func (s *rleSink) row(x, y int) []byte {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return nil
	}
	return s.dst[(s.height-1-y)*s.rowBytes:]
}

func (s *rleSink) SetIndex(x, y int, index uint8) {
	row := s.row(x, y)
	if row == nil {
		return
	}
	c := s.table.At(int(index))
	*s.alpha = s.alpha.Merge(swizzle.AlphaOf(c.A))
	s.write(row, x, c)
}

func (s *rleSink) SetRGB(x, y int, r, g, b uint8) {
	row := s.row(x, y)
	if row == nil {
		return
	}
	*s.alpha = s.alpha.Merge(swizzle.AlphaOf(0xFF))
	s.write(row, x, stdcolor.RGBA{R: r, G: g, B: b, A: 0xFF})
}

// decodeRLE decodes the whole RLE program into dst. Pixels the program
// skips stay transparent.
func (b *bmpCodec) decodeRLE(info ImageInfo, dst []byte, rowBytes int, zeroInit bool) (Result, int) {
	if !zeroInit {
		swizzle.Fill(dst, info, rowBytes, 0, false)
	}
	// Pixels the program skips are transparent.
	b.alpha = swizzle.AlphaOf(0)
	sink := &rleSink{
		dst:      dst,
		rowBytes: rowBytes,
		width:    info.Width,
		height:   info.Height,
		table:    b.table,
		write:    swizzle.WriterFor(info),
		alpha:    &b.alpha,
	}
	if sink.write == nil {
		return InvalidConversion, 0
	}
	dec := bmp.NewRLEDecoder(b.stream, b.header.BitsPerPixel, 4096)
	rows, err := dec.Decode(sink, info.Width, info.Height)
	switch {
	case err == nil:
		return Success, info.Height
	case err == bmp.ErrIncomplete:
		return IncompleteInput, rows
	default:
		Logger().Debug("codec: bmp rle", "err", err)
		return InvalidInput, rows
	}
}

func (b *bmpCodec) startScanlineDecode(req *decodeRequest) Result {
	if r := b.prepare(req); r != Success {
		return r
	}
	if b.header.Format != bmp.FormatRLE {
		return Success
	}
	info := req.info
	b.rleBpp = info.BytesPerPixel()
	b.rleRowSize = info.MinRowBytes()
	b.rle = make([]byte, b.rleRowSize*info.Height)
	r, rows := b.decodeRLE(info, b.rle, b.rleRowSize, false)
	if r != Success && r != IncompleteInput {
		return r
	}
	b.rleRows = rows
	b.rleY = 0
	b.rleSampleX, b.rleWidth = 1, info.Width
	return Success
}

func (b *bmpCodec) getScanlines(dst []byte, count, rowBytes int) int {
	if b.header.Format == bmp.FormatRLE {
		return b.rleScanlines(dst, count, rowBytes)
	}
	for i := range count {
		if !readFull(b.stream, b.src) {
			return i
		}
		b.swizzleRow(dst[i*rowBytes:])
	}
	return count
}

// rleScanlines hands out rows of the predecoded image bottom-up, so the
// valid rows of an incomplete image form a prefix.
func (b *bmpCodec) rleScanlines(dst []byte, count, rowBytes int) int {
	height := len(b.rle) / b.rleRowSize
	start := swizzle.StartCoord(b.rleSampleX)
	for i := range count {
		if b.rleY >= b.rleRows {
			return i
		}
		src := b.rle[(height-1-b.rleY)*b.rleRowSize:]
		out := dst[i*rowBytes:]
		for x := range b.rleWidth {
			sx := (start + x*b.rleSampleX) * b.rleBpp
			copy(out[x*b.rleBpp:(x+1)*b.rleBpp], src[sx:sx+b.rleBpp])
		}
		b.rleY++
	}
	return count
}

func (b *bmpCodec) skipScanlines(count int) bool {
	if b.header.Format == bmp.FormatRLE {
		b.rleY += count
		return b.rleY <= b.rleRows
	}
	return skipBytes(b.stream, count*len(b.src))
}

func (b *bmpCodec) scanlineOrder() ScanlineOrder {
	if b.header.TopDown {
		return ScanlineOrderTopDown
	}
	return ScanlineOrderBottomUp
}

func (b *bmpCodec) setSampleX(sampleX int) int {
	switch {
	case b.header.Format == bmp.FormatRLE:
		b.rleSampleX = max(sampleX, 1)
		b.rleWidth = swizzle.ScaledDimension(b.header.Width, b.rleSampleX)
		return b.rleWidth
	case b.msw != nil:
		return b.msw.SetSampleX(sampleX)
	default:
		return b.sw.SetSampleX(sampleX)
	}
}
