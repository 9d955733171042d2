package codec

import (
	"bytes"
	stdcolor "image/color"
	"testing"
)

var wbmpRows = [][]byte{
	{1, 0, 1, 0, 1, 0, 1, 0, 1, 1},
	{0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
	{1, 1, 1, 1, 1, 1, 1, 1, 1, 0},
}

func TestWBMPDecode(t *testing.T) {
	c := mustCodec(t, wbmpFile(wbmpRows))
	if c.Format() != FormatWBMP {
		t.Fatalf("Format() = %v", c.Format())
	}
	if c.Info() != MakeInfo(10, 3, ColorTypeGray8, AlphaTypeOpaque) {
		t.Fatalf("Info() = %v", c.Info())
	}

	gray := decode(t, c, c.Info(), nil, Success)
	for y, row := range wbmpRows {
		for x, v := range row {
			if want := v * 0xFF; gray[y*10+x] != want {
				t.Fatalf("gray (%d,%d) = %#x, want %#x", x, y, gray[y*10+x], want)
			}
		}
	}

	info := MakeInfo(10, 3, ColorTypeN32, AlphaTypePremul)
	rgba := decode(t, c, info, nil, Success)
	if got := rgbaAt(rgba, info, 0, 0); got != (stdcolor.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}) {
		t.Errorf("white pixel = %v", got)
	}
	if got := rgbaAt(rgba, info, 1, 0); got != (stdcolor.RGBA{A: 0xFF}) {
		t.Errorf("black pixel = %v", got)
	}

	var pal Palette
	indices := make([]byte, 30)
	if r := c.GetPixels(MakeInfo(10, 3, ColorTypeIndex8, AlphaTypeOpaque), indices, 10, nil, &pal); r != Success {
		t.Fatalf("GetPixels(Index8) = %v", r)
	}
	if pal.Count != 2 || !bytes.Equal(indices[:10], wbmpRows[0]) {
		t.Errorf("Index8 decode: count %d, row %v", pal.Count, indices[:10])
	}
}

func TestWBMPTruncated(t *testing.T) {
	data := wbmpFile(wbmpRows)
	// Header plus one full row of two bytes.
	c := mustCodec(t, data[:4+2+1])
	gray := decode(t, c, MakeInfo(10, 3, ColorTypeGray8, AlphaTypeOpaque), nil, IncompleteInput)
	if c.RowsDecoded() != 1 {
		t.Fatalf("RowsDecoded() = %d, want 1", c.RowsDecoded())
	}
	for _, v := range gray[10:] {
		if v != 0 {
			t.Fatalf("filled gray = %#x, want black", v)
		}
	}
}

func TestWBMPScanlines(t *testing.T) {
	c := mustCodec(t, wbmpFile(wbmpRows))
	info := c.Info()
	if r := c.StartScanlineDecode(info, nil, nil); r != Success {
		t.Fatalf("StartScanlineDecode() = %v", r)
	}
	if !c.SkipScanlines(2) {
		t.Fatal("SkipScanlines(2) = false")
	}
	row := make([]byte, 10)
	if n := c.GetScanlines(row, 1, 10); n != 1 {
		t.Fatalf("GetScanlines() = %d", n)
	}
	if row[0] != 0xFF || row[9] != 0 {
		t.Errorf("last row = %v", row)
	}
}

func TestWBMPRejectsOversizedHeader(t *testing.T) {
	// Width 2^21 overflows the dimension limit.
	data := []byte{0, 0, 0x81, 0x80, 0x80, 0x00, 4}
	if _, err := MakeFromData(data); err == nil {
		t.Error("MakeFromData() succeeded")
	}
}
