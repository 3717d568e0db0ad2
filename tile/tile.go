// Package tile holds the per-pixel output record produced by the
// perturbation loop and the aggregate statistics a tile render accumulates.
package tile

// PixelData is the per-pixel output of the perturbation loop: an iteration
// count plus enough auxiliary state (escape/glitch flags, final orbit
// magnitude, surface-normal direction) for a downstream colorizer to shade
// the pixel without re-deriving anything numerically sensitive.
type PixelData struct {
	Iterations      uint32
	MaxIterations   uint32
	Escaped         bool
	Glitched        bool
	FinalZNormSq    float32
	SurfaceNormalRe float32
	SurfaceNormalIm float32
	BLASkipped      uint32
}

// Stats accumulates rendering statistics across a tile (or a whole frame),
// for diagnostics and for judging whether BLA paid for its table-build cost.
type Stats struct {
	TotalIterations      uint64
	BLAIterationsSkipped uint64
}

// Add accumulates other's counters into s.
func (s *Stats) Add(other Stats) {
	s.TotalIterations += other.TotalIterations
	s.BLAIterationsSkipped += other.BLAIterationsSkipped
}

// Result is the output of rendering one tile: pixel data in row-major
// order, sized width*height, plus the statistics accumulated while
// producing it.
type Result struct {
	Pixels []PixelData
	Stats  Stats
}
