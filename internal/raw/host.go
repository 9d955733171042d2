package raw

import (
	"image"
	"log/slog"

	"github.com/gogpu/codec/internal/parallel"
)

// DefaultAllocationLimit is the largest single allocation the SDK may make.
const DefaultAllocationLimit = 300 << 20

// maxAreaTasks bounds how many pieces one area task is split into.
const maxAreaTasks = 32

// defaultTileSize is the tile granularity of area tasks.
var defaultTileSize = image.Point{X: 256, Y: 256}

// Allocator hands out SDK buffers, throwing ErrMemoryFull for any single
// request above Limit.
type Allocator struct {
	Limit int
}

func (a *Allocator) check(n, elemSize int) {
	limit := int64(a.Limit)
	if limit <= 0 {
		limit = DefaultAllocationLimit
	}
	if n < 0 || int64(n)*int64(elemSize) > limit {
		Throw(ErrMemoryFull)
	}
}

// Bytes allocates n bytes.
func (a *Allocator) Bytes(n int) []byte {
	a.check(n, 1)
	return make([]byte, n)
}

// Uint16s allocates n 16-bit samples.
func (a *Allocator) Uint16s(n int) []uint16 {
	a.check(n, 2)
	return make([]uint16, n)
}

// Float32s allocates n float samples.
func (a *Allocator) Float32s(n int) []float32 {
	a.check(n, 4)
	return make([]float32, n)
}

// Host carries the services the SDK calls back into: memory, logging and
// area-task scheduling.
type Host struct {
	Allocator Allocator
	Logger    *slog.Logger
	// Workers is the area-task pool size. Zero means GOMAXPROCS; one runs
	// every task on the calling goroutine.
	Workers int

	preferredSize int
	pool          *parallel.WorkerPool
}

// NewHost returns a host with the given allocation limit and pool size.
func NewHost(limit, workers int, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Host{Allocator: Allocator{Limit: limit}, Logger: logger, Workers: workers}
}

// SetPreferredSize sets the long edge the next render aims for. Zero
// means full size.
func (h *Host) SetPreferredSize(n int) { h.preferredSize = n }

// start creates the worker pool for one render; stop releases it.
func (h *Host) start() {
	if h.Workers != 1 && h.pool == nil {
		h.pool = parallel.NewWorkerPool(h.Workers)
	}
}

func (h *Host) stop() {
	if h.pool != nil {
		h.pool.Close()
		h.pool = nil
	}
}

// PerformAreaTask splits area into tile-aligned pieces and runs fn on each.
// A panic in any piece is rethrown on the calling goroutine once all
// pieces have finished.
func (h *Host) PerformAreaTask(area image.Rectangle, tile image.Point, fn func(image.Rectangle)) {
	if area.Empty() {
		return
	}
	areas := computeTaskAreas(maxAreaTasks, area, tile)
	if h.pool == nil || len(areas) == 1 {
		for _, a := range areas {
			fn(a)
		}
		return
	}

	errs := make([]error, len(areas))
	tasks := make([]func(), len(areas))
	for i, a := range areas {
		tasks[i] = func() {
			errs[i] = Catch(func() { fn(a) })
		}
	}
	h.pool.ExecuteAll(tasks)
	for _, err := range errs {
		if err != nil {
			Throw(err)
		}
	}
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// tilesPerTask grows the tiles handled by one task, horizontally first,
// until no more than maxTasks tasks cover the area.
func tilesPerTask(maxTasks int, tilesInArea image.Point) image.Point {
	per := image.Point{X: 1, Y: 1}
	for ceilDiv(tilesInArea.Y, per.Y)*ceilDiv(tilesInArea.X, per.X) > maxTasks {
		switch {
		case per.X < tilesInArea.X:
			per.X++
		case per.Y < tilesInArea.Y:
			per.Y++
		default:
			Throw(ErrProgram)
		}
	}
	return per
}

// computeTaskAreas divides area into at most maxTasks rectangles made of
// whole tiles, clipped to area.
func computeTaskAreas(maxTasks int, area image.Rectangle, tile image.Point) []image.Rectangle {
	if tile.X <= 0 || tile.Y <= 0 {
		tile = defaultTileSize
	}
	size := area.Size()
	tilesInArea := image.Point{X: ceilDiv(size.X, tile.X), Y: ceilDiv(size.Y, tile.Y)}
	per := tilesPerTask(maxTasks, tilesInArea)
	taskSize := image.Point{X: per.X * tile.X, Y: per.Y * tile.Y}

	var out []image.Rectangle
	for v := 0; v < tilesInArea.Y; v += per.Y {
		for h := 0; h < tilesInArea.X; h += per.X {
			origin := area.Min.Add(image.Point{X: h * tile.X, Y: v * tile.Y})
			out = append(out, image.Rectangle{Min: origin, Max: origin.Add(taskSize)}.Intersect(area))
		}
	}
	return out
}
