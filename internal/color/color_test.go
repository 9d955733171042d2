package color

import (
	stdcolor "image/color"
	"math"
	"sync"
	"testing"
)

func TestPremultiply(t *testing.T) {
	tests := []struct {
		name       string
		r, g, b, a uint8
		want       stdcolor.RGBA
	}{
		{"opaque", 10, 20, 30, 255, stdcolor.RGBA{10, 20, 30, 255}},
		{"transparent", 10, 20, 30, 0, stdcolor.RGBA{}},
		{"half", 255, 128, 0, 128, stdcolor.RGBA{128, 64, 0, 128}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Premultiply(tt.r, tt.g, tt.b, tt.a); got != tt.want {
				t.Errorf("Premultiply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnpremultiplyRoundTrip(t *testing.T) {
	for a := 1; a < 256; a += 17 {
		c := Premultiply(255, 255, 255, uint8(a))
		got := Unpremultiply(c)
		if got.A != uint8(a) || got.R != 255 {
			t.Errorf("Unpremultiply(%v) = %v, want white with alpha %d", c, got, a)
		}
	}
}

func TestPack565(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    uint16
	}{
		{0, 0, 0, 0},
		{255, 255, 255, 0xFFFF},
		{255, 0, 0, 0xF800},
		{0, 255, 0, 0x07E0},
		{0, 0, 255, 0x001F},
	}
	for _, tt := range tests {
		got := Pack565(tt.r, tt.g, tt.b)
		if got != tt.want {
			t.Errorf("Pack565(%d,%d,%d) = %#04x, want %#04x", tt.r, tt.g, tt.b, got, tt.want)
		}
		r, g, b := Unpack565(got)
		if Pack565(r, g, b) != got {
			t.Errorf("Unpack565(%#04x) does not repack", got)
		}
	}
}

func TestHalfFloat(t *testing.T) {
	tests := []struct {
		f    float32
		want uint16
	}{
		{0, 0x0000},
		{1, 0x3C00},
		{-2, 0xC000},
		{0.5, 0x3800},
		{65504, 0x7BFF},
		{1e6, 0x7C00},
		{float32(math.Ldexp(1, -24)), 0x0001},
	}
	for _, tt := range tests {
		if got := HalfFromFloat32(tt.f); got != tt.want {
			t.Errorf("HalfFromFloat32(%v) = %#04x, want %#04x", tt.f, got, tt.want)
		}
		if tt.want != 0x7C00 {
			if got := Float32FromHalf(tt.want); got != tt.f {
				t.Errorf("Float32FromHalf(%#04x) = %v, want %v", tt.want, got, tt.f)
			}
		}
	}
}

func TestSRGBTransfer(t *testing.T) {
	if SRGBToLinear(0) != 0 || SRGBToLinear(255) != 1 {
		t.Fatalf("SRGBToLinear endpoints = %v, %v", SRGBToLinear(0), SRGBToLinear(255))
	}
	for i := 0; i < 256; i++ {
		if got := LinearToSRGB(SRGBToLinear(uint8(i))); got != uint8(i) {
			diff := int(got) - i
			if diff < -1 || diff > 1 {
				t.Errorf("round trip %d = %d", i, got)
			}
		}
	}
	if LinearToSRGB(-1) != 0 || LinearToSRGB(2) != 255 {
		t.Error("LinearToSRGB does not clamp")
	}
}

func TestTableBounds(t *testing.T) {
	tbl := NewTable([]stdcolor.RGBA{{255, 0, 0, 255}, {0, 255, 0, 255}})
	if tbl.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", tbl.Count())
	}
	if got := tbl.At(1); got != (stdcolor.RGBA{0, 255, 0, 255}) {
		t.Errorf("At(1) = %v", got)
	}
	for _, i := range []int{-1, 2, 255} {
		if got := tbl.At(i); got != Transparent {
			t.Errorf("At(%d) = %v, want transparent", i, got)
		}
	}
	if got := tbl.At16(0); got != 0xF800 {
		t.Errorf("At16(0) = %#04x, want 0xF800", got)
	}

	var nilTable *Table
	if nilTable.Count() != 0 || nilTable.At(0) != Transparent {
		t.Error("nil table must be empty")
	}
}

func TestTableTruncatesAndPads(t *testing.T) {
	big := make([]stdcolor.RGBA, 300)
	if got := NewTable(big).Count(); got != MaxTableColors {
		t.Errorf("Count() = %d, want %d", got, MaxTableColors)
	}
	padded := NewPaddedTable([]stdcolor.RGBA{{1, 2, 3, 255}}, 4, Black)
	if padded.Count() != 4 || padded.At(3) != Black {
		t.Errorf("NewPaddedTable() = %v", padded.Colors())
	}
}

func TestTableColors16Concurrent(t *testing.T) {
	tbl := NewTable([]stdcolor.RGBA{{255, 255, 255, 255}})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tbl.Colors16()[0] != 0xFFFF {
				t.Error("Colors16()[0] != 0xFFFF")
			}
		}()
	}
	wg.Wait()
}
