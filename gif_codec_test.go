package codec

import (
	"bytes"
	"image"
	stdcolor "image/color"
	"image/color/palette"
	"image/gif"
	"testing"
)

var (
	gifRed   = stdcolor.RGBA{R: 255, A: 255}
	gifGreen = stdcolor.RGBA{G: 255, A: 255}
	gifBlue  = stdcolor.RGBA{B: 255, A: 255}
)

// threeFrameGIF is a 4x4 animation:
//
//	frame 0: whole canvas red, kept
//	frame 1: left half green, right half transparent, restore to background
//	frame 2: blue square at (1,1)-(3,3), kept
func threeFrameGIF(t testing.TB) []byte {
	pal := stdcolor.Palette{gifRed, gifGreen, gifBlue, stdcolor.RGBA{}}
	f0 := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
	f1 := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
	for y := range 4 {
		for x := range 4 {
			if x < 2 {
				f1.SetColorIndex(x, y, 1)
			} else {
				f1.SetColorIndex(x, y, 3)
			}
		}
	}
	f2 := image.NewPaletted(image.Rect(1, 1, 3, 3), pal)
	for i := range f2.Pix {
		f2.Pix[i] = 2
	}
	return encodeGIF(t, &gif.GIF{
		Image:    []*image.Paletted{f0, f1, f2},
		Delay:    []int{10, 20, 30},
		Disposal: []byte{gif.DisposalNone, gif.DisposalBackground, gif.DisposalNone},
	})
}

func TestGIFFrameGraph(t *testing.T) {
	c := mustCodec(t, threeFrameGIF(t))
	if c.Format() != FormatGIF {
		t.Fatalf("Format() = %v", c.Format())
	}
	if n := c.FrameCount(); n != 3 {
		t.Fatalf("FrameCount() = %d, want 3", n)
	}
	if got := c.RepetitionCount(); got != RepetitionInfinite {
		t.Errorf("RepetitionCount() = %d, want infinite", got)
	}
	want := []struct {
		duration int
		required int
		disposal DisposalMethod
		rect     image.Rectangle
	}{
		{100, NoFrame, DisposalKeep, image.Rect(0, 0, 4, 4)},
		{200, 0, DisposalRestoreBGColor, image.Rect(0, 0, 4, 4)},
		{300, 1, DisposalKeep, image.Rect(1, 1, 3, 3)},
	}
	infos := c.FrameInfo()
	if len(infos) != len(want) {
		t.Fatalf("len(FrameInfo()) = %d", len(infos))
	}
	for i, w := range want {
		fi := infos[i]
		if fi.Duration != w.duration || fi.RequiredFrame != w.required || fi.Disposal != w.disposal || fi.Rect != w.rect {
			t.Errorf("frame %d = %+v, want %+v", i, fi, w)
		}
		if !fi.FullyReceived {
			t.Errorf("frame %d not fully received", i)
		}
		if fi.RequiredFrame >= i {
			t.Errorf("frame %d requires later frame %d", i, fi.RequiredFrame)
		}
	}
}

func TestGIFFrameDecode(t *testing.T) {
	info := MakeInfo(4, 4, ColorTypeN32, AlphaTypeUnpremul)
	tests := []struct {
		frame int
		want  func(x, y int) stdcolor.RGBA
	}{
		{0, func(x, y int) stdcolor.RGBA { return gifRed }},
		{1, func(x, y int) stdcolor.RGBA {
			// Transparent pixels show frame 0.
			if x < 2 {
				return gifGreen
			}
			return gifRed
		}},
		{2, func(x, y int) stdcolor.RGBA {
			// Frame 1 restores to background, so only the square is left.
			if image.Pt(x, y).In(image.Rect(1, 1, 3, 3)) {
				return gifBlue
			}
			return stdcolor.RGBA{}
		}},
	}
	for _, tt := range tests {
		c := mustCodec(t, threeFrameGIF(t))
		pixels := decode(t, c, info, &Options{FrameIndex: tt.frame}, Success)
		for y := range 4 {
			for x := range 4 {
				if got, want := rgbaAt(pixels, info, x, y), tt.want(x, y); got != want {
					t.Errorf("frame %d pixel (%d,%d) = %v, want %v", tt.frame, x, y, got, want)
				}
			}
		}

		// Decoding again erases to the same fill value.
		again := decode(t, c, info, &Options{FrameIndex: tt.frame}, Success)
		if !bytes.Equal(pixels, again) {
			t.Errorf("frame %d differs on the second decode", tt.frame)
		}
	}
}

func TestGIFPriorFrame(t *testing.T) {
	c := mustCodec(t, threeFrameGIF(t))
	info := MakeInfo(4, 4, ColorTypeN32, AlphaTypeUnpremul)
	pixels := decode(t, c, info, &Options{FrameIndex: 0}, Success)

	// With frame 0 already in place, frame 1 draws over it directly.
	opts := &Options{FrameIndex: 1, HasPriorFrame: true}
	if r := c.GetPixels(info, pixels, info.MinRowBytes(), opts, nil); r != Success {
		t.Fatalf("GetPixels(frame 1, prior) = %v", r)
	}
	if got := rgbaAt(pixels, info, 3, 0); got != gifRed {
		t.Errorf("pixel under transparency = %v, want red", got)
	}
	if got := rgbaAt(pixels, info, 0, 0); got != gifGreen {
		t.Errorf("pixel = %v, want green", got)
	}
}

func TestGIFIndex8(t *testing.T) {
	c := mustCodec(t, threeFrameGIF(t))
	if c.Info().ColorType != ColorTypeIndex8 {
		t.Fatalf("Info().ColorType = %v, want Index8", c.Info().ColorType)
	}
	info := MakeInfo(4, 4, ColorTypeIndex8, AlphaTypeUnpremul)
	pixels := make([]byte, 16)
	var pal Palette
	if r := c.GetPixels(info, pixels, 4, nil, &pal); r != Success {
		t.Fatalf("GetPixels(Index8) = %v", r)
	}
	if pal.Count != 4 || pal.Colors[0] != gifRed || pal.Colors[3] != (stdcolor.RGBA{}) {
		t.Errorf("palette = %d %v", pal.Count, pal.Colors[:4])
	}
	for i, v := range pixels {
		if v != 0 {
			t.Fatalf("index %d = %d, want 0", i, v)
		}
	}
	// Later frames composite in color space only.
	if r := c.GetPixels(info, pixels, 4, &Options{FrameIndex: 1}, &pal); r != InvalidConversion {
		t.Errorf("GetPixels(Index8, frame 1) = %v, want invalid conversion", r)
	}
}

func stillGIF(t testing.TB, w, h int) []byte {
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette.Plan9)
	src := noise(w, h, 11)
	for y := range h {
		for x := range w {
			img.Set(x, y, src.At(x, y))
		}
	}
	return encodeGIF(t, &gif.GIF{Image: []*image.Paletted{img}, Delay: []int{0}})
}

func TestGIFTruncated(t *testing.T) {
	full := stillGIF(t, 64, 64)
	info := MakeInfo(64, 64, ColorTypeN32, AlphaTypeOpaque)

	c := mustCodec(t, full[:len(full)*2/3])
	decode(t, c, info, nil, IncompleteInput)
	partial := c.RowsDecoded()
	if partial > 64 {
		t.Fatalf("RowsDecoded() = %d, want <= 64", partial)
	}
	if fi := c.FrameInfo(); len(fi) != 1 || fi[0].FullyReceived {
		t.Errorf("FrameInfo() = %+v, want one partial frame", fi)
	}

	c = mustCodec(t, full)
	decode(t, c, info, nil, Success)
	if c.RowsDecoded() <= partial {
		t.Errorf("RowsDecoded() = %d after full data, want > %d", c.RowsDecoded(), partial)
	}
}

func TestGIFIncremental(t *testing.T) {
	full := stillGIF(t, 64, 64)
	info := MakeInfo(64, 64, ColorTypeN32, AlphaTypeOpaque)
	want := decode(t, mustCodec(t, full), info, nil, Success)

	s := NewMemoryStream(full[:len(full)/2])
	c, err := MakeFromStream(s)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	pixels := make([]byte, len(want))
	if r := c.StartIncrementalDecode(info, pixels, info.MinRowBytes(), nil, nil); r != Success {
		t.Fatalf("StartIncrementalDecode() = %v", r)
	}
	if r := c.IncrementalDecode(); r != IncompleteInput {
		t.Fatalf("IncrementalDecode() = %v, want incomplete input", r)
	}
	first := c.RowsDecoded()

	s.Append(full[len(full)/2:])
	if r := c.IncrementalDecode(); r != Success {
		t.Fatalf("IncrementalDecode() after Append = %v", r)
	}
	if c.RowsDecoded() != 64 || c.RowsDecoded() < first {
		t.Errorf("RowsDecoded() = %d, first pass %d", c.RowsDecoded(), first)
	}
	if !bytes.Equal(pixels, want) {
		t.Error("incremental result differs from a full decode")
	}
}

func TestGIFScaledDecode(t *testing.T) {
	data := stillGIF(t, 16, 16)
	c := mustCodec(t, data)
	size := c.GetScaledDimensions(0.5)
	if size != (Size{Width: 8, Height: 8}) {
		t.Fatalf("GetScaledDimensions(0.5) = %v, want 8x8", size)
	}
	full := decode(t, c, MakeInfo(16, 16, ColorTypeN32, AlphaTypeOpaque), nil, Success)
	info := MakeInfo(8, 8, ColorTypeN32, AlphaTypeOpaque)
	half := decode(t, c, info, nil, Success)
	fullInfo := MakeInfo(16, 16, ColorTypeN32, AlphaTypeOpaque)
	for y := range 8 {
		for x := range 8 {
			if got, want := rgbaAt(half, info, x, y), rgbaAt(full, fullInfo, 2*x+1, 2*y+1); got != want {
				t.Fatalf("sampled (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestGIFNeverRewinds(t *testing.T) {
	s := &noRewindStream{NewMemoryStream(threeFrameGIF(t))}
	c, err := MakeFromStream(s)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	info := MakeInfo(4, 4, ColorTypeN32, AlphaTypeUnpremul)
	for i := range 3 {
		decode(t, c, info, &Options{FrameIndex: i}, Success)
	}
}
