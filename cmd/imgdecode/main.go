// Command imgdecode inspects an encoded image and decodes it to PNG.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/codec"
	"github.com/gogpu/codec/internal/image"
)

func main() {
	var (
		input   = flag.String("input", "", "encoded image to read")
		output  = flag.String("output", "decoded.png", "output PNG file")
		mode    = flag.String("mode", "full", "decode mode: full, scanline, incremental")
		scale   = flag.Float64("scale", 1, "desired scale in (0, 1]")
		frame   = flag.Int("frame", 0, "frame index of an animated image")
		gray    = flag.Bool("gray", false, "decode to Gray8 when the source allows it")
		preview = flag.Bool("raw-preview", true, "decode RAW files through their embedded JPEG preview")
		workers = flag.Int("workers", 0, "RAW render workers (0 = GOMAXPROCS)")
		verbose = flag.Bool("v", false, "log codec internals")
	)
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		codec.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("Failed to read: %v", err)
	}
	c, err := codec.MakeFromData(data, codec.WithRawPreview(*preview), codec.WithWorkers(*workers))
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *input, err)
	}
	defer c.Close()

	describe(c)

	info := c.Info()
	if *gray {
		info = info.WithColorType(codec.ColorTypeGray8).WithAlphaType(codec.AlphaTypeOpaque)
	}
	sampled := codec.NewSampledCodec(c)
	if *scale < 1 {
		info = info.WithDimensions(sampled.GetScaledDimensions(*scale))
	}

	pm, err := image.NewPixmap(info)
	if err != nil {
		log.Fatalf("Failed to allocate %v: %v", info, err)
	}
	opts := &codec.Options{FrameIndex: *frame}
	var pal codec.Palette

	var result codec.Result
	switch *mode {
	case "full":
		result = sampled.GetPixels(info, pm.Pixels(), pm.RowBytes(), opts, &pal)
	case "scanline":
		result = decodeScanlines(c, pm, opts, &pal)
	case "incremental":
		result = c.StartIncrementalDecode(info, pm.Pixels(), pm.RowBytes(), opts, &pal)
		if result == codec.Success {
			result = c.IncrementalDecode()
		}
	default:
		log.Fatalf("Unknown mode %q", *mode)
	}
	if !result.IsPartial() {
		log.Fatalf("Decode failed: %v", result)
	}
	pm.PaletteCount = copy(pm.Palette[:], pal.Colors[:pal.Count])

	if err := pm.SavePNG(*output); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Decoded %s to %s (%v, %s, %d rows)\n", *input, *output, info, result, c.RowsDecoded())
}

func describe(c *codec.Codec) {
	enc := c.EncodedInfo()
	fmt.Printf("format:     %s\n", c.Format())
	fmt.Printf("encoded:    %dx%d, %d bits per component\n", enc.Width, enc.Height, enc.BitsPerComponent)
	fmt.Printf("info:       %v\n", c.Info())
	fmt.Printf("scanlines:  %s\n", c.ScanlineOrder())
	if len(enc.ICCProfile) > 0 {
		fmt.Printf("icc:        %d bytes\n", len(enc.ICCProfile))
	}
	for k, v := range c.Metadata() {
		fmt.Printf("meta:       %s=%s\n", k, v)
	}
	frames := c.FrameInfo()
	if len(frames) == 0 {
		return
	}
	fmt.Printf("frames:     %d (repeat %d)\n", c.FrameCount(), c.RepetitionCount())
	for i, f := range frames {
		fmt.Printf("  %3d: %v %dms required=%d disposal=%s complete=%t\n",
			i, f.Rect, f.Duration, f.RequiredFrame, f.Disposal, f.FullyReceived)
	}
}

// decodeScanlines reads the image one row at a time, placing each row
// where the codec says it belongs.
func decodeScanlines(c *codec.Codec, pm *image.Pixmap, opts *codec.Options, pal *codec.Palette) codec.Result {
	info := pm.Info()
	if r := c.StartScanlineDecode(info, opts, pal); r != codec.Success {
		return r
	}
	result := codec.Success
	for range info.Height {
		y := c.OutputScanline(c.NextScanline())
		if c.GetScanlines(pm.Row(y), 1, pm.RowBytes()) != 1 {
			result = codec.IncompleteInput
		}
	}
	return result
}
