package codec

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	stdcolor "image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
	"testing"

	"golang.org/x/image/bmp"
)

// gradient returns an opaque image whose every pixel differs from its
// neighbors.
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, stdcolor.NRGBA{R: uint8(x * 255 / max(w-1, 1)), G: uint8(y * 255 / max(h-1, 1)), B: uint8(x ^ y), A: 0xFF})
		}
	}
	return img
}

func noise(w, h int, seed uint64) *image.NRGBA {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(rng.Uint32())
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xFF
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeGIF(t testing.TB, g *gif.GIF) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeBMP(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pngChunk(typ string, data []byte) []byte {
	b := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	b = append(b, typ...)
	b = append(b, data...)
	return binary.BigEndian.AppendUint32(b, crc32.ChecksumIEEE(b[4:]))
}

// pngHeaderOnly declares an RGBA image of the given size and stops at an
// empty IDAT chunk.
func pngHeaderOnly(w, h int) []byte {
	ihdr := binary.BigEndian.AppendUint32(nil, uint32(w))
	ihdr = binary.BigEndian.AppendUint32(ihdr, uint32(h))
	ihdr = append(ihdr, 8, 6, 0, 0, 0)
	out := []byte("\x89PNG\r\n\x1a\n")
	out = append(out, pngChunk("IHDR", ihdr)...)
	return append(out, pngChunk("IDAT", nil)...)
}

// qoiFile encodes every pixel with a QOI_OP_RGB op.
func qoiFile(w, h int, channels byte, pix func(x, y int) [3]byte) []byte {
	out := []byte("qoif")
	out = binary.BigEndian.AppendUint32(out, uint32(w))
	out = binary.BigEndian.AppendUint32(out, uint32(h))
	out = append(out, channels, 0)
	for y := range h {
		for x := range w {
			p := pix(x, y)
			out = append(out, qoiOpRGB, p[0], p[1], p[2])
		}
	}
	return append(out, qoiEnd...)
}

// wbmpFile packs rows of 0/1 pixels, most significant bit first.
func wbmpFile(rows [][]byte) []byte {
	w, h := len(rows[0]), len(rows)
	out := []byte{0, 0, byte(w), byte(h)}
	for _, row := range rows {
		packed := make([]byte, (w+7)/8)
		for x, v := range row {
			if v != 0 {
				packed[x>>3] |= 0x80 >> (x & 7)
			}
		}
		out = append(out, packed...)
	}
	return out
}

// icoBitmap builds a headerless 24-bit bitmap with its AND mask, as stored
// in ICO files.
func icoBitmap(w, h int, bgr func(x, y int) [3]byte, transparent func(x, y int) bool) []byte {
	var b bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&b, le, uint32(40))
	_ = binary.Write(&b, le, int32(w))
	_ = binary.Write(&b, le, int32(2*h))
	_ = binary.Write(&b, le, uint16(1))
	_ = binary.Write(&b, le, uint16(24))
	b.Write(make([]byte, 24))

	rowBytes := (w*24 + 31) / 32 * 4
	for y := h - 1; y >= 0; y-- {
		row := make([]byte, rowBytes)
		for x := range w {
			p := bgr(x, y)
			copy(row[3*x:], p[:])
		}
		b.Write(row)
	}
	maskBytes := (w + 31) / 32 * 4
	for y := h - 1; y >= 0; y-- {
		row := make([]byte, maskBytes)
		for x := range w {
			if transparent(x, y) {
				row[x>>3] |= 0x80 >> (x & 7)
			}
		}
		b.Write(row)
	}
	return b.Bytes()
}

// icoFile lays out an icon directory followed by the images in order.
func icoFile(images ...[]byte) []byte {
	le := binary.LittleEndian
	out := []byte{0, 0, 1, 0}
	out = le.AppendUint16(out, uint16(len(images)))
	offset := icoHeaderBytes + icoEntryBytes*len(images)
	for _, img := range images {
		out = append(out, 0, 0, 0, 0)
		out = le.AppendUint16(out, 1)
		out = le.AppendUint16(out, 32)
		out = le.AppendUint32(out, uint32(len(img)))
		out = le.AppendUint32(out, uint32(offset))
		offset += len(img)
	}
	for _, img := range images {
		out = append(out, img...)
	}
	return out
}

// tiffField is one little-endian IFD entry.
type tiffField struct {
	tag, typ uint16
	values   []uint32
}

// tiffFile lays out a little-endian TIFF: header, payload at offset 8, one
// IFD, then out-of-line SHORT and LONG arrays.
func tiffFile(payload []byte, fields ...tiffField) []byte {
	le := binary.LittleEndian
	ifd := 8 + len(payload)
	ifd += ifd & 1
	extraOff := ifd + 2 + 12*len(fields) + 4

	out := make([]byte, ifd)
	copy(out, "II*\x00")
	le.PutUint32(out[4:], uint32(ifd))
	copy(out[8:], payload)

	var extra []byte
	out = le.AppendUint16(out, uint16(len(fields)))
	for _, f := range fields {
		size := 4
		if f.typ == 3 {
			size = 2
		}
		if f.typ == 1 {
			size = 1
		}
		var data []byte
		for _, v := range f.values {
			switch size {
			case 1:
				data = append(data, byte(v))
			case 2:
				data = le.AppendUint16(data, uint16(v))
			default:
				data = le.AppendUint32(data, v)
			}
		}
		out = le.AppendUint16(out, f.tag)
		out = le.AppendUint16(out, f.typ)
		out = le.AppendUint32(out, uint32(len(f.values)))
		if len(data) <= 4 {
			var v [4]byte
			copy(v[:], data)
			out = append(out, v[:]...)
			continue
		}
		out = le.AppendUint32(out, uint32(extraOff+len(extra)))
		extra = append(extra, data...)
		if len(extra)&1 == 1 {
			extra = append(extra, 0)
		}
	}
	out = le.AppendUint32(out, 0)
	return append(out, extra...)
}

const (
	tiffByte  = 1
	tiffShort = 3
	tiffLong  = 4
)

// grayDNG is an uncompressed 16-bit RGGB mosaic where every site holds
// value, so it renders as a flat gray.
func grayDNG(w, h int, value uint16) []byte {
	strip := make([]byte, 2*w*h)
	for i := 0; i < len(strip); i += 2 {
		binary.LittleEndian.PutUint16(strip[i:], value)
	}
	return tiffFile(strip,
		tiffField{254, tiffLong, []uint32{0}},
		tiffField{256, tiffLong, []uint32{uint32(w)}},
		tiffField{257, tiffLong, []uint32{uint32(h)}},
		tiffField{258, tiffShort, []uint32{16}},
		tiffField{259, tiffShort, []uint32{1}},
		tiffField{262, tiffShort, []uint32{32803}},
		tiffField{273, tiffLong, []uint32{8}},
		tiffField{277, tiffShort, []uint32{1}},
		tiffField{278, tiffLong, []uint32{uint32(h)}},
		tiffField{279, tiffLong, []uint32{uint32(len(strip))}},
		tiffField{33421, tiffShort, []uint32{2, 2}},
		tiffField{33422, tiffByte, []uint32{0, 1, 1, 2}},
		tiffField{50706, tiffByte, []uint32{1, 4, 0, 0}},
		tiffField{50717, tiffLong, []uint32{65535}},
	)
}

// tiffWithPreview is a plain TIFF whose only image is an embedded JPEG
// referenced through the JPEG interchange tags.
func tiffWithPreview(jpg []byte, w, h int) []byte {
	return tiffFile(jpg,
		tiffField{256, tiffLong, []uint32{uint32(w)}},
		tiffField{257, tiffLong, []uint32{uint32(h)}},
		tiffField{259, tiffShort, []uint32{6}},
		tiffField{513, tiffLong, []uint32{8}},
		tiffField{514, tiffLong, []uint32{uint32(len(jpg))}},
	)
}

// mustCodec creates a codec over data or fails the test.
func mustCodec(t testing.TB, data []byte, opts ...Option) *Codec {
	t.Helper()
	c, err := MakeFromData(data, opts...)
	if err != nil {
		t.Fatalf("MakeFromData() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// decode runs GetPixels into a tight buffer and fails on any result other
// than want.
func decode(t testing.TB, c *Codec, info ImageInfo, opts *Options, want Result) []byte {
	t.Helper()
	pixels := make([]byte, info.ComputeByteSize(info.MinRowBytes()))
	var pal *Palette
	if info.ColorType == ColorTypeIndex8 {
		pal = &Palette{}
	}
	if got := c.GetPixels(info, pixels, info.MinRowBytes(), opts, pal); got != want {
		t.Fatalf("GetPixels(%v) = %v, want %v", info, got, want)
	}
	return pixels
}

// rgbaAt returns the pixel at (x, y) of an RGBA8888 buffer.
func rgbaAt(pixels []byte, info ImageInfo, x, y int) stdcolor.RGBA {
	p := pixels[y*info.MinRowBytes()+4*x:]
	return stdcolor.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}
