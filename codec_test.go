package codec

import (
	"bytes"
	"errors"
	"image"
	"testing"
)

// noRewindStream is a memory stream that refuses to go back.
type noRewindStream struct {
	*MemoryStream
}

func (noRewindStream) Rewind() bool { return false }

func TestGetPixelsValidation(t *testing.T) {
	data := encodePNG(t, gradient(8, 6))
	info := MakeInfo(8, 6, ColorTypeN32, AlphaTypeOpaque)
	buf := make([]byte, info.ComputeByteSize(info.MinRowBytes()))
	rect := func(r image.Rectangle) *image.Rectangle { return &r }

	tests := []struct {
		name     string
		info     ImageInfo
		pixels   []byte
		rowBytes int
		opts     *Options
		pal      *Palette
		want     Result
	}{
		{"ok", info, buf, info.MinRowBytes(), nil, nil, Success},
		{"nil pixels", info, nil, info.MinRowBytes(), nil, nil, InvalidParameters},
		{"short row bytes", info, buf, info.MinRowBytes() - 1, nil, nil, InvalidParameters},
		{"short buffer", info, buf[:len(buf)-1], info.MinRowBytes(), nil, nil, InvalidParameters},
		{"unknown color", info.WithColorType(ColorTypeUnknown), buf, info.MinRowBytes(), nil, nil, InvalidConversion},
		{"565 premul", MakeInfo(8, 6, ColorTypeRGB565, AlphaTypePremul), buf, 16, nil, nil, InvalidConversion},
		{"gray from color", MakeInfo(8, 6, ColorTypeGray8, AlphaTypeOpaque), buf, 8, nil, nil, InvalidConversion},
		{"index8 without palette", MakeInfo(8, 6, ColorTypeIndex8, AlphaTypeOpaque), buf, 8, nil, nil, InvalidParameters},
		{"negative frame", info, buf, info.MinRowBytes(), &Options{FrameIndex: -1}, nil, InvalidParameters},
		{"frame of still image", info, buf, info.MinRowBytes(), &Options{FrameIndex: 1}, nil, InvalidParameters},
		{"subset outside", info, buf, info.MinRowBytes(), &Options{Subset: rect(image.Rect(0, 0, 9, 6))}, nil, InvalidParameters},
		{"empty subset", info, buf, info.MinRowBytes(), &Options{Subset: rect(image.Rect(2, 2, 2, 4))}, nil, InvalidParameters},
		{"unsupported subset", info, buf, info.MinRowBytes(), &Options{Subset: rect(image.Rect(0, 0, 4, 4))}, nil, Unimplemented},
		{"unsupported scale", MakeInfo(4, 3, ColorTypeN32, AlphaTypeOpaque), buf, 16, nil, nil, InvalidScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCodec(t, data)
			if got := c.GetPixels(tt.info, tt.pixels, tt.rowBytes, tt.opts, tt.pal); got != tt.want {
				t.Errorf("GetPixels() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetPixelsClearsPaletteForNonIndexed(t *testing.T) {
	c := mustCodec(t, encodePNG(t, gradient(3, 3)))
	info := MakeInfo(3, 3, ColorTypeN32, AlphaTypeOpaque)
	pal := &Palette{Count: 7}
	if r := c.GetPixels(info, make([]byte, 36), 12, nil, pal); r != Success {
		t.Fatalf("GetPixels() = %v", r)
	}
	if pal.Count != 0 {
		t.Errorf("palette.Count = %d, want 0", pal.Count)
	}
}

func TestGetPixelsIsRepeatable(t *testing.T) {
	c := mustCodec(t, encodePNG(t, noise(20, 10, 3)))
	info := MakeInfo(20, 10, ColorTypeN32, AlphaTypeOpaque)
	first := decode(t, c, info, nil, Success)
	second := decode(t, c, info, nil, Success)
	if !bytes.Equal(first, second) {
		t.Error("second decode differs from the first")
	}

	// Larger row strides leave the padding alone.
	rowBytes := info.MinRowBytes() + 8
	padded := bytes.Repeat([]byte{0xAB}, info.ComputeByteSize(rowBytes))
	if r := c.GetPixels(info, padded, rowBytes, nil, nil); r != Success {
		t.Fatalf("GetPixels(padded) = %v", r)
	}
	for y := range info.Height {
		row := padded[y*rowBytes:]
		if !bytes.Equal(row[:info.MinRowBytes()], first[y*info.MinRowBytes():(y+1)*info.MinRowBytes()]) {
			t.Fatalf("row %d differs with padded stride", y)
		}
		if y < info.Height-1 && row[info.MinRowBytes()] != 0xAB {
			t.Fatalf("row %d padding overwritten", y)
		}
	}
}

func TestGetImage(t *testing.T) {
	src := gradient(5, 4)
	c := mustCodec(t, encodePNG(t, src))
	pixels, r := c.GetImage(MakeInfo(5, 4, ColorTypeRGBA8888, AlphaTypeOpaque), nil)
	if r != Success || !bytes.Equal(pixels, src.Pix) {
		t.Errorf("GetImage() = %v", r)
	}
	if _, r := c.GetImage(MakeInfo(0, 4, ColorTypeRGBA8888, AlphaTypeOpaque), nil); r != InvalidParameters {
		t.Errorf("GetImage(empty) = %v, want invalid parameters", r)
	}
}

func TestCouldNotRewind(t *testing.T) {
	s := &noRewindStream{NewMemoryStream(encodePNG(t, gradient(4, 4)))}
	c, err := MakeFromStream(s)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	info := MakeInfo(4, 4, ColorTypeN32, AlphaTypeOpaque)
	decode(t, c, info, nil, Success)
	decode(t, c, info, nil, CouldNotRewind)
	if r := c.StartScanlineDecode(info, nil, nil); r != CouldNotRewind {
		t.Errorf("StartScanlineDecode() = %v, want could not rewind", r)
	}
}

func TestScanlineDecode(t *testing.T) {
	src := noise(12, 9, 5)
	c := mustCodec(t, encodePNG(t, src))
	info := MakeInfo(12, 9, ColorTypeRGBA8888, AlphaTypeOpaque)
	rb := info.MinRowBytes()

	if n := c.GetScanlines(make([]byte, rb), 1, rb); n != 0 {
		t.Errorf("GetScanlines() before start = %d, want 0", n)
	}
	if c.SkipScanlines(1) {
		t.Error("SkipScanlines() before start = true")
	}
	if y := c.NextScanline(); y != -1 {
		t.Errorf("NextScanline() before start = %d, want -1", y)
	}

	if r := c.StartScanlineDecode(info, nil, nil); r != Success {
		t.Fatalf("StartScanlineDecode() = %v", r)
	}
	if c.ScanlineOrder() != ScanlineOrderTopDown {
		t.Fatalf("ScanlineOrder() = %v", c.ScanlineOrder())
	}
	got := make([]byte, 3*rb)
	if y := c.NextScanline(); y != 0 {
		t.Errorf("NextScanline() = %d, want 0", y)
	}
	if n := c.GetScanlines(got, 3, rb); n != 3 {
		t.Fatalf("GetScanlines(3) = %d", n)
	}
	if !bytes.Equal(got, src.Pix[:3*rb]) {
		t.Error("first three rows differ")
	}
	if !c.SkipScanlines(2) {
		t.Fatal("SkipScanlines(2) = false")
	}
	if y := c.NextScanline(); y != 5 {
		t.Errorf("NextScanline() = %d, want 5", y)
	}
	if n := c.GetScanlines(got, 1, rb); n != 1 || !bytes.Equal(got[:rb], src.Pix[5*rb:6*rb]) {
		t.Errorf("row 5: n = %d", n)
	}
	if n := c.GetScanlines(got, 4, rb); n != 0 {
		t.Errorf("GetScanlines() past the end = %d, want 0", n)
	}
	if c.SkipScanlines(4) {
		t.Error("SkipScanlines() past the end = true")
	}

	// A full decode ends the scanline decode.
	decode(t, c, info, nil, Success)
	if n := c.GetScanlines(got, 1, rb); n != 0 {
		t.Errorf("GetScanlines() after GetPixels = %d, want 0", n)
	}

	// Starting again restarts at the first row.
	if r := c.StartScanlineDecode(info, nil, nil); r != Success {
		t.Fatalf("StartScanlineDecode() again = %v", r)
	}
	if n := c.GetScanlines(got, 1, rb); n != 1 || !bytes.Equal(got[:rb], src.Pix[:rb]) {
		t.Error("restarted decode did not begin at row 0")
	}
}

func TestScanlineTruncatedFills(t *testing.T) {
	full := encodePNG(t, noise(32, 32, 21))
	c := mustCodec(t, full[:len(full)/2])
	info := MakeInfo(32, 32, ColorTypeN32, AlphaTypeOpaque)
	if r := c.StartScanlineDecode(info, nil, nil); r != Success {
		t.Fatalf("StartScanlineDecode() = %v", r)
	}
	dst := make([]byte, info.ComputeByteSize(info.MinRowBytes()))
	n := c.GetScanlines(dst, 32, info.MinRowBytes())
	if n <= 0 || n >= 32 {
		t.Fatalf("GetScanlines() = %d, want within (0, 32)", n)
	}
	if got := rgbaAt(dst, info, 31, 31); got.R != 0 || got.G != 0 || got.B != 0 || got.A != 0xFF {
		t.Errorf("filled pixel = %v, want opaque black", got)
	}
}

func TestOutputScanlineMapping(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		order ScanlineOrder
		want  []int
	}{
		{"png", encodePNG(t, gradient(3, 4)), ScanlineOrderTopDown, []int{0, 1, 2, 3}},
		{"bmp", encodeBMP(t, gradient(3, 4)), ScanlineOrderBottomUp, []int{3, 2, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustCodec(t, tt.data)
			if c.ScanlineOrder() != tt.order {
				t.Fatalf("ScanlineOrder() = %v, want %v", c.ScanlineOrder(), tt.order)
			}
			for y, want := range tt.want {
				if got := c.OutputScanline(y); got != want {
					t.Errorf("OutputScanline(%d) = %d, want %d", y, got, want)
				}
			}
		})
	}
}

func TestGetScaledDimensionsBounds(t *testing.T) {
	c := mustCodec(t, encodePNG(t, gradient(10, 6)))
	tests := []struct {
		scale float64
		want  Size
	}{
		{0, Size{}},
		{-1, Size{}},
		{1, Size{Width: 10, Height: 6}},
		{1.5, Size{Width: 10, Height: 6}},
		{0.5, Size{Width: 10, Height: 6}},
	}
	for _, tt := range tests {
		if got := c.GetScaledDimensions(tt.scale); got != tt.want {
			t.Errorf("GetScaledDimensions(%v) = %v, want %v", tt.scale, got, tt.want)
		}
	}
	if !c.DimensionsSupported(Size{Width: 10, Height: 6}) {
		t.Error("DimensionsSupported(native) = false")
	}
	var r image.Rectangle
	if c.GetValidSubset(&r) || c.GetValidSubset(nil) {
		t.Error("GetValidSubset() = true for a codec without subsets")
	}
}

func TestIncrementalNotStarted(t *testing.T) {
	c := mustCodec(t, encodePNG(t, gradient(4, 4)))
	if r := c.IncrementalDecode(); r != ScanlineDecodingNotStarted {
		t.Errorf("IncrementalDecode() = %v, want scanline decoding not started", r)
	}
	info := MakeInfo(4, 4, ColorTypeN32, AlphaTypeOpaque)
	if r := c.StartIncrementalDecode(info, nil, 16, nil, nil); r != InvalidParameters {
		t.Errorf("StartIncrementalDecode(nil) = %v, want invalid parameters", r)
	}
}

func TestResult(t *testing.T) {
	var err error = InvalidInput
	if err.Error() != "codec: invalid input" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, InvalidInput) {
		t.Error("errors.Is(InvalidInput) = false")
	}
	if !IncompleteInput.IsPartial() || InvalidScale.IsPartial() {
		t.Error("IsPartial() mismatch")
	}
	if Result(99).String() != "unknown result" {
		t.Errorf("String() = %q", Result(99).String())
	}
}
