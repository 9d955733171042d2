package codec

import "testing"

func TestFactoryOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want factoryOptions
	}{
		{"defaults", nil, factoryOptions{maxPixels: 1 << 27, rawAllocLimit: 300 << 20, rawPreview: true}},
		{"max pixels", []Option{WithMaxPixels(64)}, factoryOptions{maxPixels: 64, rawAllocLimit: 300 << 20, rawPreview: true}},
		{"ignore non-positive", []Option{WithMaxPixels(0), WithRawAllocationLimit(-1)}, factoryOptions{maxPixels: 1 << 27, rawAllocLimit: 300 << 20, rawPreview: true}},
		{"raw", []Option{WithRawAllocationLimit(1024), WithRawPreview(false), WithWorkers(2)}, factoryOptions{maxPixels: 1 << 27, rawAllocLimit: 1024, workers: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := defaultFactoryOptions()
			for _, opt := range tt.opts {
				opt(&got)
			}
			if got != tt.want {
				t.Errorf("options = %+v, want %+v", got, tt.want)
			}
		})
	}
}
