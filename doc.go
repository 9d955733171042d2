// Package codec decodes encoded images into caller-owned pixel memory.
//
// # Overview
//
// A Codec wraps one encoded image behind a single state machine. The
// same calls decode PNG, JPEG, WEBP, GIF, ICO, BMP, WBMP, QOI and
// RAW/DNG, whatever the format does internally:
//
//	c, err := codec.MakeFromData(data)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	info := c.Info()
//	pixels := make([]byte, info.ComputeByteSize(info.MinRowBytes()))
//	switch r := c.GetPixels(info, pixels, info.MinRowBytes(), nil, nil); r {
//	case codec.Success, codec.IncompleteInput:
//		// pixels holds the image; missing rows are filled.
//	default:
//		return r
//	}
//
// # Decode modes
//
// GetPixels decodes a whole image (or one frame, or a subset) at once.
// StartScanlineDecode followed by GetScanlines and SkipScanlines hands
// out rows in the order reported by ScanlineOrder. StartIncrementalDecode
// and IncrementalDecode resume as more bytes are appended to a
// MemoryStream.
//
// # Scaling
//
// GetScaledDimensions returns the nearest size a codec decodes to
// natively. JPEG scales in eighths, WEBP to any smaller size and RAW by
// integer factors. SampledCodec adds integer sampling on top of any codec
// that exposes scanlines.
//
// # Limits
//
// Images larger than DefaultMaxPixels are rejected when the codec is
// created. RAW decoding additionally bounds every allocation by
// DefaultRawAllocationLimit. Both are adjustable with options.
//
// # Logging
//
// The package is silent by default. SetLogger installs a *slog.Logger
// that receives debug records from every codec.
package codec
