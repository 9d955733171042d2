package codec

import (
	stdcolor "image/color"
	"testing"
)

func testIcon(t testing.TB) []byte {
	large := gradient(16, 16)
	large.Pix[3] = 0 // top-left pixel transparent
	small := icoBitmap(8, 8,
		func(x, y int) [3]byte { return [3]byte{uint8(10 * x), uint8(10 * y), 0x80} },
		func(x, y int) bool { return x == y },
	)
	return icoFile(small, encodePNG(t, large))
}

func TestICOSelectsLargest(t *testing.T) {
	c := mustCodec(t, testIcon(t))
	if c.Format() != FormatICO {
		t.Fatalf("Format() = %v", c.Format())
	}
	if got := c.Info().Dimensions(); got != (Size{Width: 16, Height: 16}) {
		t.Errorf("Info() dimensions = %v, want the largest entry", got)
	}
	if c.Info().AlphaType != AlphaTypeUnpremul {
		t.Errorf("Info().AlphaType = %v, want the PNG entry's unpremul", c.Info().AlphaType)
	}

	tests := []struct {
		scale float64
		want  Size
	}{
		{1, Size{Width: 16, Height: 16}},
		{0.5, Size{Width: 8, Height: 8}},
		{0.1, Size{Width: 8, Height: 8}},
		{0.9, Size{Width: 16, Height: 16}},
	}
	for _, tt := range tests {
		if got := c.GetScaledDimensions(tt.scale); got != tt.want {
			t.Errorf("GetScaledDimensions(%v) = %v, want %v", tt.scale, got, tt.want)
		}
	}
	if !c.DimensionsSupported(Size{Width: 8, Height: 8}) {
		t.Error("DimensionsSupported(8x8) = false")
	}
	if c.DimensionsSupported(Size{Width: 12, Height: 12}) {
		t.Error("DimensionsSupported(12x12) = true")
	}
}

func TestICODecodeEntries(t *testing.T) {
	c := mustCodec(t, testIcon(t))

	info := MakeInfo(16, 16, ColorTypeN32, AlphaTypeUnpremul)
	pixels := decode(t, c, info, nil, Success)
	if got := rgbaAt(pixels, info, 0, 0); got.A != 0 {
		t.Errorf("transparent PNG pixel = %v", got)
	}
	if !c.ReallyHasAlpha() {
		t.Error("ReallyHasAlpha() = false for the PNG entry")
	}

	small := MakeInfo(8, 8, ColorTypeN32, AlphaTypePremul)
	pixels = decode(t, c, small, nil, Success)
	for y := range 8 {
		for x := range 8 {
			want := stdcolor.RGBA{R: 0x80, G: uint8(10 * y), B: uint8(10 * x), A: 0xFF}
			if x == y {
				want = stdcolor.RGBA{}
			}
			if got := rgbaAt(pixels, small, x, y); got != want {
				t.Fatalf("bitmap pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}

	if r := c.GetPixels(MakeInfo(12, 12, ColorTypeN32, AlphaTypePremul), make([]byte, 12*12*4), 48, nil, nil); r != InvalidScale {
		t.Errorf("GetPixels(12x12) = %v, want invalid scale", r)
	}
}

func TestICOScanlines(t *testing.T) {
	c := mustCodec(t, testIcon(t))
	info := MakeInfo(8, 8, ColorTypeN32, AlphaTypePremul)
	if r := c.StartScanlineDecode(info, nil, nil); r != Success {
		t.Fatalf("StartScanlineDecode() = %v", r)
	}
	if c.ScanlineOrder() != ScanlineOrderBottomUp {
		t.Errorf("ScanlineOrder() = %v, want the bitmap's bottom-up", c.ScanlineOrder())
	}
	row := make([]byte, info.MinRowBytes())
	if n := c.GetScanlines(row, 1, len(row)); n != 1 {
		t.Fatalf("GetScanlines() = %d", n)
	}
	// The first stored row is the bottom one.
	if got := (stdcolor.RGBA{R: row[0], G: row[1], B: row[2], A: row[3]}); got != (stdcolor.RGBA{R: 0x80, G: 70, B: 0, A: 0xFF}) {
		t.Errorf("first scanline pixel = %v", got)
	}
}

func TestICORejectsEmptyDirectory(t *testing.T) {
	if _, err := MakeFromData([]byte{0, 0, 1, 0, 0, 0}); err == nil {
		t.Error("MakeFromData(empty icon) succeeded")
	}
}
