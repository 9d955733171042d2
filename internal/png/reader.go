// Package png reads PNG chunks and produces unfiltered pixel rows for the
// codec package. It walks the chunk stream itself so that the caller
// controls buffering and rewinding, and inflates image data with
// klauspost/compress.
package png

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/charmap"
)

// Signature starts every PNG file.
const Signature = "\x89PNG\r\n\x1a\n"

// Color types of the IHDR chunk.
const (
	ColorGray      = 0
	ColorRGB       = 2
	ColorPalette   = 3
	ColorGrayAlpha = 4
	ColorRGBA      = 6
)

// maxAncillary bounds the metadata chunks kept in memory. Larger chunks
// are skipped.
const maxAncillary = 16 << 20

// ErrTruncated reports that the stream ended inside the image data.
var ErrTruncated = errors.New("png: truncated image data")

// FormatError reports that the input is not a valid PNG.
type FormatError string

func (e FormatError) Error() string { return "png: invalid format: " + string(e) }

// UnsupportedError reports a valid PNG feature that is not decoded.
type UnsupportedError string

func (e UnsupportedError) Error() string { return "png: unsupported feature: " + string(e) }

// IsPNG reports whether header starts with the PNG signature.
func IsPNG(header []byte) bool {
	return bytes.HasPrefix(header, []byte(Signature))
}

// Header is the content of the IHDR chunk.
type Header struct {
	Width      int
	Height     int
	BitDepth   int
	ColorType  int
	Interlaced bool
}

// Channels returns the number of samples per pixel.
func (h *Header) Channels() int {
	switch h.ColorType {
	case ColorRGB:
		return 3
	case ColorGrayAlpha:
		return 2
	case ColorRGBA:
		return 4
	default:
		return 1
	}
}

// BitsPerPixel returns the stored size of one pixel.
func (h *Header) BitsPerPixel() int {
	return h.Channels() * h.BitDepth
}

// RowBytes returns the unfiltered size of a row of width pixels.
func (h *Header) RowBytes(width int) int {
	return (width*h.BitsPerPixel() + 7) / 8
}

func (h *Header) validate() error {
	if h.Width <= 0 || h.Height <= 0 {
		return FormatError(fmt.Sprintf("bad dimensions %dx%d", h.Width, h.Height))
	}
	ok := false
	switch h.ColorType {
	case ColorGray:
		ok = h.BitDepth == 1 || h.BitDepth == 2 || h.BitDepth == 4 || h.BitDepth == 8 || h.BitDepth == 16
	case ColorPalette:
		ok = h.BitDepth == 1 || h.BitDepth == 2 || h.BitDepth == 4 || h.BitDepth == 8
	case ColorRGB, ColorGrayAlpha, ColorRGBA:
		ok = h.BitDepth == 8 || h.BitDepth == 16
	}
	if !ok {
		return FormatError(fmt.Sprintf("color type %d with bit depth %d", h.ColorType, h.BitDepth))
	}
	return nil
}

// Info is everything that precedes the first IDAT chunk.
type Info struct {
	Header

	// Palette holds the PLTE entries with tRNS alpha applied, as
	// unpremultiplied RGBA quads.
	Palette [][4]uint8
	// Transparent holds the tRNS key of gray and RGB images, one sample
	// per channel at the native bit depth. It is nil when absent.
	Transparent []uint16

	ICCProfile []byte
	Text       map[string]string
}

// HasAlpha reports whether decoded pixels may be non-opaque.
func (in *Info) HasAlpha() bool {
	switch in.ColorType {
	case ColorGrayAlpha, ColorRGBA:
		return true
	case ColorPalette:
		for _, c := range in.Palette {
			if c[3] != 0xFF {
				return true
			}
		}
		return false
	default:
		return in.Transparent != nil
	}
}

// Decoder reads the chunks of one PNG and serves its image data.
type Decoder struct {
	Info

	r        io.Reader
	crc      hash.Hash32
	idatLeft int
	zr       io.ReadCloser

	// firstIDAT is the payload length of the first IDAT chunk.
	firstIDAT int

	prev, cur []byte
	filterBpp int
}

// NewDecoder reads the signature and every chunk up to the first IDAT,
// leaving r positioned at the image data.
func NewDecoder(r io.Reader) (*Decoder, error) {
	d := &Decoder{r: r, crc: crc32.NewIEEE()}
	var sig [len(Signature)]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return nil, err
	}
	if string(sig[:]) != Signature {
		return nil, FormatError("not a PNG file")
	}
	if err := d.readChunks(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoder) readChunkHeader() (int, string, error) {
	var b [8]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, "", err
	}
	length := binary.BigEndian.Uint32(b[:4])
	if length > 0x7FFFFFFF {
		return 0, "", FormatError("chunk length")
	}
	d.crc.Reset()
	d.crc.Write(b[4:8])
	return int(length), string(b[4:8]), nil
}

func (d *Decoder) verifyCRC() error {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return err
	}
	if binary.BigEndian.Uint32(b[:]) != d.crc.Sum32() {
		return FormatError("checksum mismatch")
	}
	return nil
}

// readBody reads a whole chunk body and its CRC.
func (d *Decoder) readBody(length int) ([]byte, error) {
	body := make([]byte, length)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return nil, err
	}
	d.crc.Write(body)
	return body, d.verifyCRC()
}

func (d *Decoder) skipBody(length int) error {
	if _, err := io.CopyN(io.Discard, d.r, int64(length)+4); err != nil {
		return err
	}
	return nil
}

func (d *Decoder) readChunks() error {
	seenHeader := false
	for {
		length, typ, err := d.readChunkHeader()
		if err != nil {
			return err
		}
		if !seenHeader && typ != "IHDR" {
			return FormatError("IHDR is not the first chunk")
		}
		switch typ {
		case "IHDR":
			if seenHeader || length != 13 {
				return FormatError("bad IHDR")
			}
			body, err := d.readBody(length)
			if err != nil {
				return err
			}
			if err := d.parseIHDR(body); err != nil {
				return err
			}
			seenHeader = true
		case "IDAT":
			if d.ColorType == ColorPalette && d.Palette == nil {
				return FormatError("palette image without PLTE")
			}
			d.idatLeft = length
			d.firstIDAT = length
			return nil
		case "IEND":
			return FormatError("no image data")
		case "PLTE", "tRNS", "iCCP", "tEXt", "zTXt", "iTXt":
			if length > maxAncillary {
				if typ == "PLTE" {
					return FormatError("bad PLTE")
				}
				if err := d.skipBody(length); err != nil {
					return err
				}
				continue
			}
			body, err := d.readBody(length)
			if err != nil {
				return err
			}
			if err := d.parseAncillary(typ, body); err != nil {
				return err
			}
		default:
			// Lowercase first letter marks an ancillary chunk.
			if typ[0]&0x20 == 0 {
				return UnsupportedError("critical chunk " + typ)
			}
			if err := d.skipBody(length); err != nil {
				return err
			}
		}
	}
}

func (d *Decoder) parseIHDR(b []byte) error {
	w := binary.BigEndian.Uint32(b[0:4])
	h := binary.BigEndian.Uint32(b[4:8])
	if w > 0x7FFFFFFF || h > 0x7FFFFFFF {
		return FormatError("dimension overflow")
	}
	d.Header = Header{
		Width:     int(w),
		Height:    int(h),
		BitDepth:  int(b[8]),
		ColorType: int(b[9]),
	}
	if b[10] != 0 || b[11] != 0 {
		return UnsupportedError("compression or filter method")
	}
	switch b[12] {
	case 0:
	case 1:
		d.Interlaced = true
	default:
		return FormatError("interlace method")
	}
	return d.validate()
}

func (d *Decoder) parseAncillary(typ string, b []byte) error {
	switch typ {
	case "PLTE":
		if len(b)%3 != 0 || len(b) == 0 || len(b)/3 > 256 {
			return FormatError("bad PLTE")
		}
		if d.ColorType != ColorPalette {
			return nil
		}
		d.Palette = make([][4]uint8, len(b)/3)
		for i := range d.Palette {
			d.Palette[i] = [4]uint8{b[3*i], b[3*i+1], b[3*i+2], 0xFF}
		}
	case "tRNS":
		switch d.ColorType {
		case ColorPalette:
			if d.Palette == nil {
				return FormatError("tRNS before PLTE")
			}
			for i := range min(len(b), len(d.Palette)) {
				d.Palette[i][3] = b[i]
			}
		case ColorGray:
			if len(b) != 2 {
				return FormatError("bad tRNS")
			}
			d.Transparent = []uint16{binary.BigEndian.Uint16(b)}
		case ColorRGB:
			if len(b) != 6 {
				return FormatError("bad tRNS")
			}
			d.Transparent = []uint16{
				binary.BigEndian.Uint16(b[0:]),
				binary.BigEndian.Uint16(b[2:]),
				binary.BigEndian.Uint16(b[4:]),
			}
		}
	case "iCCP":
		name, rest, ok := bytes.Cut(b, []byte{0})
		if !ok || len(name) == 0 || len(rest) < 1 || rest[0] != 0 {
			return nil
		}
		if profile, err := inflate(rest[1:]); err == nil {
			d.ICCProfile = profile
		}
	case "tEXt":
		key, value, ok := bytes.Cut(b, []byte{0})
		if ok {
			d.addText(latin1(key), latin1(value))
		}
	case "zTXt":
		key, rest, ok := bytes.Cut(b, []byte{0})
		if !ok || len(rest) < 1 || rest[0] != 0 {
			return nil
		}
		if value, err := inflate(rest[1:]); err == nil {
			d.addText(latin1(key), latin1(value))
		}
	case "iTXt":
		d.parseITXt(b)
	}
	return nil
}

// parseITXt reads an international text chunk. Its text is UTF-8 and
// optionally compressed.
func (d *Decoder) parseITXt(b []byte) {
	key, rest, ok := bytes.Cut(b, []byte{0})
	if !ok || len(rest) < 2 {
		return
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	_, rest, ok = bytes.Cut(rest, []byte{0}) // language tag
	if !ok {
		return
	}
	_, text, ok := bytes.Cut(rest, []byte{0}) // translated keyword
	if !ok {
		return
	}
	if compressed {
		var err error
		if text, err = inflate(text); err != nil {
			return
		}
	}
	d.addText(latin1(key), string(text))
}

func (d *Decoder) addText(key, value string) {
	if d.Text == nil {
		d.Text = make(map[string]string)
	}
	d.Text[key] = value
}

func latin1(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxAncillary))
}

// Read serves the concatenated payload of consecutive IDAT chunks. It
// returns io.EOF at the first other chunk and io.ErrUnexpectedEOF if the
// stream ends inside the image data.
func (d *Decoder) Read(p []byte) (int, error) {
	for d.idatLeft == 0 {
		if err := d.verifyCRC(); err != nil {
			return 0, eofIsUnexpected(err)
		}
		length, typ, err := d.readChunkHeader()
		if err != nil {
			return 0, eofIsUnexpected(err)
		}
		if typ != "IDAT" {
			return 0, io.EOF
		}
		d.idatLeft = length
	}
	n, err := d.r.Read(p[:min(len(p), d.idatLeft)])
	d.crc.Write(p[:n])
	d.idatLeft -= n
	if err == io.EOF {
		if n > 0 {
			return n, nil
		}
		return 0, io.ErrUnexpectedEOF
	}
	return n, err
}

func eofIsUnexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Start opens the image data for ReadRow or ReadInterlaced.
func (d *Decoder) Start() error {
	zr, err := zlib.NewReader(d)
	if err != nil {
		return rowError(err)
	}
	d.zr = zr
	d.filterBpp = max(d.BitsPerPixel()/8, 1)
	return nil
}

// Restart returns the decoder to the start of the image data, reading
// it again from r. r must begin with the payload of the first IDAT chunk.
func (d *Decoder) Restart(r io.Reader) {
	_ = d.Close()
	d.r = r
	d.idatLeft = d.firstIDAT
	d.crc.Reset()
	d.crc.Write([]byte("IDAT"))
	d.cur, d.prev = nil, nil
}

// Close releases the inflater.
func (d *Decoder) Close() error {
	if d.zr == nil {
		return nil
	}
	err := d.zr.Close()
	d.zr = nil
	return err
}

// rowError maps inflate failures: a stream that stops early is
// ErrTruncated, anything else is a FormatError.
func rowError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return FormatError(err.Error())
}
