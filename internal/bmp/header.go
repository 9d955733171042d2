// Package bmp parses BMP headers, bit-field masks and RLE pixel data for
// the codec package. It also reads the headerless BMPs embedded in ICO
// and CUR files.
package bmp

import (
	"encoding/binary"
	"fmt"
	stdcolor "image/color"
	"io"

	"github.com/gogpu/codec/internal/color"
)

// FormatError reports that the input is not a valid BMP.
type FormatError string

func (e FormatError) Error() string { return "bmp: invalid format: " + string(e) }

// UnsupportedError reports a valid BMP feature that is not decoded.
type UnsupportedError string

func (e UnsupportedError) Error() string { return "bmp: unsupported feature: " + string(e) }

// HeaderType is the BMP info header version, identified by its size.
type HeaderType uint8

const (
	HeaderOS2V1 HeaderType = iota
	HeaderOS2V2
	HeaderInfoV1
	HeaderInfoV2
	HeaderInfoV3
	HeaderInfoV4
	HeaderInfoV5
)

// InputFormat selects the pixel decoding strategy.
type InputFormat uint8

const (
	// FormatStandard rows are indexed or packed BGR(A/X).
	FormatStandard InputFormat = iota
	// FormatBitMask rows hold 16, 24 or 32-bit pixels split by masks.
	FormatBitMask
	// FormatRLE data is run-length encoded.
	FormatRLE
)

// Compression values of the info header.
const (
	compressionRGB       = 0
	compressionRLE8      = 1
	compressionRLE4      = 2
	compressionBitFields = 3
	compressionJPEG      = 4 // RLE24 in OS/2 v2 headers
	compressionPNG       = 5
	compressionAlphaBits = 6
)

const (
	fileHeaderBytes = 14
	maxInfoBytes    = 1 << 12
)

// Header is a parsed BMP header.
type Header struct {
	Type         HeaderType
	Width        int
	Height       int
	TopDown      bool
	BitsPerPixel int
	Format       InputFormat
	Masks        *Masks

	// NumColors is the number of color table entries stored in the file.
	NumColors int
	// BytesPerColor is 3 for OS/2 v1 tables and 4 otherwise.
	BytesPerColor int

	// HeaderBytes is the number of bytes ReadHeader consumed.
	HeaderBytes int
	// Offset is the position of the pixel data from the start of the
	// BMP (the file header, or the info header inside an ICO).
	Offset int

	// Alpha reports that pixels carry a usable alpha channel.
	Alpha bool
	// InICO marks a headerless BMP with an AND mask after the pixels.
	InICO bool
}

// IsBMP reports whether header starts with the BMP file signature.
func IsBMP(header []byte) bool {
	return len(header) >= 2 && header[0] == 'B' && header[1] == 'M'
}

// ReadHeader parses the headers of a BMP from r, leaving r positioned at
// the color table. inICO selects the headerless layout used inside ICO
// and CUR files, where the height counts the AND mask too.
func ReadHeader(r io.Reader, inICO bool) (*Header, error) {
	h := &Header{InICO: inICO}
	offset := 0
	if !inICO {
		var fh [fileHeaderBytes]byte
		if _, err := io.ReadFull(r, fh[:]); err != nil {
			return nil, err
		}
		if !IsBMP(fh[:]) {
			return nil, FormatError("not a BMP file")
		}
		offset = int(binary.LittleEndian.Uint32(fh[10:14]))
		h.HeaderBytes = fileHeaderBytes
	}

	var sz [4]byte
	if _, err := io.ReadFull(r, sz[:]); err != nil {
		return nil, err
	}
	infoBytes := int(binary.LittleEndian.Uint32(sz[:]))
	if infoBytes < 12 || infoBytes > maxInfoBytes {
		return nil, FormatError(fmt.Sprintf("info header size %d", infoBytes))
	}
	body := make([]byte, infoBytes-4)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	h.HeaderBytes += infoBytes

	compression := uint32(compressionRGB)
	numColors := 0
	if infoBytes == 12 {
		h.Type = HeaderOS2V1
		h.Width = int(int16(binary.LittleEndian.Uint16(body[0:2])))
		h.Height = int(int16(binary.LittleEndian.Uint16(body[2:4])))
		h.BitsPerPixel = int(binary.LittleEndian.Uint16(body[6:8]))
		h.BytesPerColor = 3
	} else {
		if infoBytes < 16 {
			return nil, FormatError(fmt.Sprintf("info header size %d", infoBytes))
		}
		h.Type = headerTypeFor(infoBytes)
		h.Width = int(int32(binary.LittleEndian.Uint32(body[0:4])))
		h.Height = int(int32(binary.LittleEndian.Uint32(body[4:8])))
		h.BitsPerPixel = int(binary.LittleEndian.Uint16(body[10:12]))
		h.BytesPerColor = 4
		if infoBytes >= 20 {
			compression = binary.LittleEndian.Uint32(body[12:16])
		}
		if infoBytes >= 36 {
			numColors = int(binary.LittleEndian.Uint32(body[28:32]))
		}
	}

	if inICO {
		h.Height /= 2
	}
	if h.Height < 0 {
		if inICO {
			return nil, FormatError("top-down ICO bitmap")
		}
		h.Height = -h.Height
		h.TopDown = true
	}
	if h.Width <= 0 || h.Height <= 0 {
		return nil, FormatError(fmt.Sprintf("bad dimensions %dx%d", h.Width, h.Height))
	}

	var rMask, gMask, bMask, aMask uint32
	if infoBytes >= 52 {
		rMask = binary.LittleEndian.Uint32(body[36:40])
		gMask = binary.LittleEndian.Uint32(body[40:44])
		bMask = binary.LittleEndian.Uint32(body[44:48])
	}
	if infoBytes >= 56 {
		aMask = binary.LittleEndian.Uint32(body[48:52])
	}

	switch compression {
	case compressionRGB:
		switch h.BitsPerPixel {
		case 1, 2, 4, 8, 24:
			h.Format = FormatStandard
		case 32:
			h.Format = FormatStandard
			h.Alpha = inICO || (h.Type >= HeaderInfoV3 && aMask != 0)
		case 16:
			h.Format = FormatBitMask
			rMask, gMask, bMask, aMask = 0x7C00, 0x03E0, 0x001F, 0
		default:
			return nil, FormatError(fmt.Sprintf("%d bits per pixel", h.BitsPerPixel))
		}
	case compressionRLE8:
		if h.BitsPerPixel != 8 {
			return nil, FormatError("RLE8 needs 8 bits per pixel")
		}
		h.Format = FormatRLE
	case compressionRLE4:
		if h.BitsPerPixel != 4 {
			return nil, FormatError("RLE4 needs 4 bits per pixel")
		}
		h.Format = FormatRLE
	case compressionBitFields, compressionAlphaBits:
		if h.Type == HeaderOS2V2 && h.BitsPerPixel == 1 {
			return nil, UnsupportedError("OS/2 Huffman compression")
		}
		switch h.BitsPerPixel {
		case 16, 24, 32:
		default:
			return nil, FormatError(fmt.Sprintf("bit fields with %d bits per pixel", h.BitsPerPixel))
		}
		if h.Type == HeaderInfoV1 {
			n := 12
			if compression == compressionAlphaBits {
				n = 16
			}
			masks := make([]byte, n)
			if _, err := io.ReadFull(r, masks); err != nil {
				return nil, err
			}
			h.HeaderBytes += n
			rMask = binary.LittleEndian.Uint32(masks[0:4])
			gMask = binary.LittleEndian.Uint32(masks[4:8])
			bMask = binary.LittleEndian.Uint32(masks[8:12])
			if n == 16 {
				aMask = binary.LittleEndian.Uint32(masks[12:16])
			}
		}
		h.Format = FormatBitMask
	case compressionJPEG:
		if h.Type == HeaderOS2V2 && h.BitsPerPixel == 24 {
			h.Format = FormatRLE
			break
		}
		return nil, UnsupportedError("embedded JPEG")
	case compressionPNG:
		return nil, UnsupportedError("embedded PNG")
	default:
		return nil, FormatError(fmt.Sprintf("compression %d", compression))
	}
	if h.TopDown && h.Format == FormatRLE {
		return nil, FormatError("top-down RLE bitmap")
	}

	if h.Format == FormatBitMask {
		h.Masks = NewMasks(rMask, gMask, bMask, aMask, h.BitsPerPixel)
		h.Alpha = h.Masks.Alpha.Mask != 0
	}

	if h.BitsPerPixel <= 8 {
		maxColors := 1 << h.BitsPerPixel
		if numColors <= 0 || numColors > maxColors {
			numColors = maxColors
		}
		h.NumColors = numColors
	}

	if inICO {
		offset = h.HeaderBytes + h.NumColors*h.BytesPerColor
	}
	if offset < h.HeaderBytes+h.NumColors*h.BytesPerColor {
		return nil, FormatError("pixel data overlaps the headers")
	}
	h.Offset = offset
	return h, nil
}

func headerTypeFor(infoBytes int) HeaderType {
	switch {
	case infoBytes >= 124:
		return HeaderInfoV5
	case infoBytes >= 108:
		return HeaderInfoV4
	case infoBytes == 64 || infoBytes < 40:
		return HeaderOS2V2
	case infoBytes >= 56:
		return HeaderInfoV3
	case infoBytes >= 52:
		return HeaderInfoV2
	default:
		return HeaderInfoV1
	}
}

// RowBytes returns the stored size of one pixel row, padded to 4 bytes.
func (h *Header) RowBytes() int {
	return ((h.Width*h.BitsPerPixel + 31) / 32) * 4
}

// MaskRowBytes returns the stored size of one ICO AND-mask row.
func (h *Header) MaskRowBytes() int {
	return ((h.Width + 31) / 32) * 4
}

// ReadColorTable reads the color table and skips to the pixel data. The
// table is padded with opaque black to 2^BitsPerPixel entries so that
// corrupt indices stay in range. It returns nil for images without a
// table.
func (h *Header) ReadColorTable(r io.Reader) (*color.Table, error) {
	tableBytes := h.NumColors * h.BytesPerColor
	var table *color.Table
	if h.BitsPerPixel <= 8 {
		buf := make([]byte, tableBytes)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		colors := make([]stdcolor.RGBA, h.NumColors)
		for i := range colors {
			p := buf[i*h.BytesPerColor:]
			colors[i] = stdcolor.RGBA{R: p[2], G: p[1], B: p[0], A: 0xFF}
		}
		table = color.NewPaddedTable(colors, 1<<h.BitsPerPixel, color.Black)
	}
	gap := h.Offset - h.HeaderBytes - tableBytes
	if gap > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(gap)); err != nil {
			return nil, err
		}
	}
	return table, nil
}
