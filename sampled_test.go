package codec

import (
	"bytes"
	"encoding/binary"
	stdcolor "image/color"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// interlacedGray encodes an Adam7 8-bit gray PNG with unfiltered rows.
func interlacedGray(t testing.TB, w, h int, pix func(x, y int) byte) []byte {
	t.Helper()
	passes := [7][4]int{{0, 0, 8, 8}, {4, 0, 8, 8}, {0, 4, 4, 8}, {2, 0, 4, 4}, {0, 2, 2, 4}, {1, 0, 2, 2}, {0, 1, 1, 2}}
	var raw []byte
	for _, p := range passes {
		if p[0] >= w || p[1] >= h {
			continue
		}
		for y := p[1]; y < h; y += p[3] {
			raw = append(raw, 0)
			for x := p[0]; x < w; x += p[2] {
				raw = append(raw, pix(x, y))
			}
		}
	}
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	hdr := binary.BigEndian.AppendUint32(nil, uint32(w))
	hdr = binary.BigEndian.AppendUint32(hdr, uint32(h))
	hdr = append(hdr, 8, 0, 0, 0, 1)
	out := []byte("\x89PNG\r\n\x1a\n")
	out = append(out, pngChunk("IHDR", hdr)...)
	out = append(out, pngChunk("IDAT", z.Bytes())...)
	return append(out, pngChunk("IEND", nil)...)
}

func TestSampledDimensions(t *testing.T) {
	s := NewSampledCodec(mustCodec(t, encodePNG(t, gradient(15, 10))))
	tests := []struct {
		sample int
		want   Size
	}{
		{0, Size{Width: 15, Height: 10}},
		{1, Size{Width: 15, Height: 10}},
		{2, Size{Width: 7, Height: 5}},
		{4, Size{Width: 3, Height: 2}},
		{11, Size{Width: 1, Height: 1}},
		{100, Size{Width: 1, Height: 1}},
	}
	for _, tt := range tests {
		if got := s.GetSampledDimensions(tt.sample); got != tt.want {
			t.Errorf("GetSampledDimensions(%d) = %v, want %v", tt.sample, got, tt.want)
		}
	}
	if got := s.GetScaledDimensions(0.25); got != (Size{Width: 3, Height: 2}) {
		t.Errorf("GetScaledDimensions(0.25) = %v", got)
	}
	if got := s.GetScaledDimensions(2); got != (Size{Width: 15, Height: 10}) {
		t.Errorf("GetScaledDimensions(2) = %v", got)
	}
}

func TestSampledDecode(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		w, h   int
		sample int
	}{
		{"png top-down", encodePNG(t, noise(16, 12, 31)), 16, 12, 2},
		{"png odd sizes", encodePNG(t, noise(17, 13, 32)), 17, 13, 3},
		{"bmp bottom-up", encodeBMP(t, noise(9, 7, 33)), 9, 7, 3},
		{"wbmp", wbmpFile([][]byte{{1, 0, 1, 1}, {0, 1, 0, 0}, {1, 1, 0, 1}, {0, 0, 1, 0}}), 4, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCodec(t, tt.data)
			fullInfo := MakeInfo(tt.w, tt.h, ColorTypeN32, AlphaTypeOpaque)
			full := decode(t, c, fullInfo, nil, Success)

			s := NewSampledCodec(c)
			size := s.GetSampledDimensions(tt.sample)
			info := MakeInfo(size.Width, size.Height, ColorTypeN32, AlphaTypeOpaque)
			pixels := make([]byte, info.ComputeByteSize(info.MinRowBytes()))
			if r := s.GetPixels(info, pixels, info.MinRowBytes(), nil, nil); r != Success {
				t.Fatalf("GetPixels(sampled) = %v", r)
			}
			start := tt.sample / 2
			for y := range size.Height {
				for x := range size.Width {
					want := rgbaAt(full, fullInfo, start+tt.sample*x, start+tt.sample*y)
					if got := rgbaAt(pixels, info, x, y); got != want {
						t.Fatalf("sampled (%d,%d) = %v, want source (%d,%d) %v",
							x, y, got, start+tt.sample*x, start+tt.sample*y, want)
					}
				}
			}
			if c.RowsDecoded() != size.Height {
				t.Errorf("RowsDecoded() = %d, want %d", c.RowsDecoded(), size.Height)
			}
		})
	}
}

func TestSampledInterlaced(t *testing.T) {
	pix := func(x, y int) byte { return byte(16*y + x) }
	c := mustCodec(t, interlacedGray(t, 11, 9, pix))
	if c.ScanlineOrder() != ScanlineOrderNone {
		t.Fatalf("ScanlineOrder() = %v, want none", c.ScanlineOrder())
	}
	s := NewSampledCodec(c)
	size := s.GetSampledDimensions(2)
	info := MakeInfo(size.Width, size.Height, ColorTypeGray8, AlphaTypeOpaque)
	pixels := make([]byte, info.ComputeByteSize(info.MinRowBytes()))
	if r := s.GetPixels(info, pixels, info.MinRowBytes(), nil, nil); r != Success {
		t.Fatalf("GetPixels(sampled) = %v", r)
	}
	for y := range size.Height {
		for x := range size.Width {
			if got, want := pixels[y*info.MinRowBytes()+x], pix(1+2*x, 1+2*y); got != want {
				t.Fatalf("sampled (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestSampledPassThrough(t *testing.T) {
	src := gradient(6, 4)
	s := NewSampledCodec(mustCodec(t, encodePNG(t, src)))
	if s.Codec() == nil {
		t.Fatal("Codec() = nil")
	}
	info := MakeInfo(6, 4, ColorTypeRGBA8888, AlphaTypeOpaque)
	pixels := make([]byte, info.ComputeByteSize(info.MinRowBytes()))
	if r := s.GetPixels(info, pixels, info.MinRowBytes(), nil, nil); r != Success || !bytes.Equal(pixels, src.Pix) {
		t.Errorf("GetPixels(native) = %v", r)
	}
}

func TestSampledRejects(t *testing.T) {
	s := NewSampledCodec(mustCodec(t, encodePNG(t, gradient(16, 16))))
	info := MakeInfo(8, 8, ColorTypeN32, AlphaTypeOpaque)
	buf := make([]byte, info.ComputeByteSize(info.MinRowBytes()))

	// 16 does not sample to 7.
	odd := MakeInfo(7, 8, ColorTypeN32, AlphaTypeOpaque)
	if r := s.GetPixels(odd, buf, odd.MinRowBytes(), nil, nil); r != InvalidScale {
		t.Errorf("GetPixels(7x8) = %v, want invalid scale", r)
	}
	if r := s.GetPixels(info, nil, info.MinRowBytes(), nil, nil); r != InvalidParameters {
		t.Errorf("GetPixels(nil) = %v, want invalid parameters", r)
	}
	if r := s.GetPixels(info.WithColorType(ColorTypeUnknown), buf, info.MinRowBytes(), nil, nil); r != InvalidConversion {
		t.Errorf("GetPixels(unknown) = %v, want invalid conversion", r)
	}
}

func TestSampledTruncated(t *testing.T) {
	full := encodePNG(t, noise(32, 32, 34))
	s := NewSampledCodec(mustCodec(t, full[:len(full)/2]))
	info := MakeInfo(16, 16, ColorTypeN32, AlphaTypeOpaque)
	pixels := make([]byte, info.ComputeByteSize(info.MinRowBytes()))
	if r := s.GetPixels(info, pixels, info.MinRowBytes(), nil, nil); r != IncompleteInput {
		t.Fatalf("GetPixels(truncated) = %v, want incomplete input", r)
	}
	rows := s.Codec().RowsDecoded()
	if rows >= 16 {
		t.Fatalf("RowsDecoded() = %d, want < 16", rows)
	}
	if got := rgbaAt(pixels, info, 15, 15); got != (stdcolor.RGBA{A: 0xFF}) {
		t.Errorf("filled pixel = %v, want opaque black", got)
	}
}
