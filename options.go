package codec

import "image"

// Options configures a single decode. The zero value decodes the first
// frame of the whole image into uninitialized memory.
type Options struct {
	// ZeroInitialized reports that the destination is already zeroed, so
	// codecs may skip writing transparent (zero) pixels and fills.
	ZeroInitialized bool

	// Subset, if non-nil, selects a rectangle of the encoded image. Only
	// codecs that report true from GetValidSubset support it.
	Subset *image.Rectangle

	// FrameIndex selects a frame of a multi-frame image.
	FrameIndex int

	// HasPriorFrame reports that the destination already holds the
	// frame's required frame, so it need not be decoded first.
	HasPriorFrame bool
}

// Default limits.
const (
	// DefaultMaxPixels bounds width*height at dispatch time.
	DefaultMaxPixels int64 = 1 << 27

	// DefaultRawAllocationLimit bounds any single allocation made while
	// decoding RAW images.
	DefaultRawAllocationLimit = 300 << 20
)

// Option configures a Codec during creation.
//
// Example:
//
//	c, err := codec.MakeFromStream(s, codec.WithMaxPixels(1<<24))
type Option func(*factoryOptions)

type factoryOptions struct {
	maxPixels     int64
	rawAllocLimit int
	rawPreview    bool
	workers       int
}

func defaultFactoryOptions() factoryOptions {
	return factoryOptions{
		maxPixels:     DefaultMaxPixels,
		rawAllocLimit: DefaultRawAllocationLimit,
		rawPreview:    true,
	}
}

// WithMaxPixels sets the largest width*height the factory accepts.
// Values <= 0 keep the default.
func WithMaxPixels(n int64) Option {
	return func(o *factoryOptions) {
		if n > 0 {
			o.maxPixels = n
		}
	}
}

// WithRawAllocationLimit sets the per-allocation ceiling of the RAW
// decoder. Values <= 0 keep the default.
func WithRawAllocationLimit(n int) Option {
	return func(o *factoryOptions) {
		if n > 0 {
			o.rawAllocLimit = n
		}
	}
}

// WithRawPreview controls whether RAW containers with an embedded JPEG
// preview are decoded through the preview. It is on by default.
func WithRawPreview(enabled bool) Option {
	return func(o *factoryOptions) {
		o.rawPreview = enabled
	}
}

// WithWorkers sets the number of goroutines the RAW renderer may use.
// Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *factoryOptions) {
		o.workers = n
	}
}
