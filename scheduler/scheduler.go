// Package scheduler coordinates a render: it picks a reference point,
// computes its orbit and BLA table once, distributes tiles across a pool
// of goroutine workers, collects results, and drives glitch resolution
// via the quad-tree in package glitch. Tiles reach workers as plain
// viewport.PixelRect values; workers report back over channels as
// TileCompleteMsg and ErrorMsg. These, and RenderTileMsg (which no channel
// carries), are distinct structs mirroring the spec's MainToWorker/
// WorkerToMain wire protocol even though no serialization boundary exists
// here, since Go workers share memory.
package scheduler

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/whalelogic/fractalwonder/bigfloat"
	"github.com/whalelogic/fractalwonder/bla"
	"github.com/whalelogic/fractalwonder/complexdelta"
	"github.com/whalelogic/fractalwonder/fractalconfig"
	"github.com/whalelogic/fractalwonder/glitch"
	"github.com/whalelogic/fractalwonder/hdrfloat"
	"github.com/whalelogic/fractalwonder/orbit"
	"github.com/whalelogic/fractalwonder/perturbation"
	"github.com/whalelogic/fractalwonder/tile"
	"github.com/whalelogic/fractalwonder/viewport"
)

// Sentinel errors, wrapped with context via pkg/errors at each call site.
var (
	ErrInvalidViewport = errors.New("scheduler: invalid viewport")
	ErrWorkerLost       = errors.New("scheduler: worker did not return a result")
	ErrTileFailed       = errors.New("scheduler: tile render failed")
)

// hdrSwitchLog2Threshold is the |log2(δc)| above which a tile is rendered
// with HDR delta arithmetic instead of plain float64.
const hdrSwitchLog2Threshold = 900.0

// deepZoomTileSizeThresholdLog10 is the log10(zoom) above which tiles
// shrink from 128px to 64px, trading per-tile overhead for finer-grained
// glitch containment at depths where glitches are common.
const deepZoomTileSizeThresholdLog10 = 10.0

// RenderTileMsg assigns one tile to a worker.
type RenderTileMsg struct {
	RenderID      uint32
	Tile          viewport.PixelRect
	MaxIterations uint32
	TauSq         float64
}

// TileCompleteMsg reports a finished tile back to the dispatcher.
type TileCompleteMsg struct {
	RenderID uint32
	Tile     viewport.PixelRect
	Result   tile.Result
}

// ErrorMsg reports a worker-side failure back to the dispatcher.
type ErrorMsg struct {
	RenderID uint32
	Tile     viewport.PixelRect
	Err      error
}

// Options configures a render beyond the viewport/canvas/config triple.
type Options struct {
	WorkerCount   int
	PrecisionBits uint
	// Cancel, if non-nil, is polled at the start of each tile row; a true
	// value causes in-flight workers to abandon remaining rows of their
	// current tile. Coarse-grained and cooperative, per spec.
	Cancel *atomic.Bool
}

// DefaultOptions returns options with the given worker count and 128-bit
// working precision.
func DefaultOptions(workerCount int) Options {
	return Options{WorkerCount: workerCount, PrecisionBits: 128}
}

// Result is the outcome of a full render: the assembled pixel buffer in
// row-major canvas order, plus accumulated statistics.
type Result struct {
	RenderID uint32
	Width    uint32
	Height   uint32
	Pixels   []tile.PixelData
	Stats    tile.Stats
}

// Scheduler owns the render_id counter; everything else needed for a
// render is derived fresh each call, per spec's "no global mutable state"
// design note.
type Scheduler struct {
	nextRenderID uint32
	log          *log.Logger
}

// New creates a scheduler with the given logger (callers typically share
// one *log.Logger across the whole process, per the std library's own
// convention; nil falls back to the package-level default logger).
func New(logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{log: logger}
}

// Render runs one full render pass: reference orbit, BLA table, tile
// dispatch, and glitch resolution, returning the assembled frame.
func (s *Scheduler) Render(vp viewport.Viewport, canvasW, canvasH uint32, cfg fractalconfig.FractalConfig, opts Options) (*Result, error) {
	if err := vp.Validate(); err != nil {
		return nil, errors.Wrap(ErrInvalidViewport, err.Error())
	}
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.PrecisionBits == 0 {
		opts.PrecisionBits = 128
	}

	renderID := atomic.AddUint32(&s.nextRenderID, 1)
	s.log.Printf("render %d: starting, canvas %dx%d", renderID, canvasW, canvasH)

	cRefBig := bigfloat.Complex{
		Re: retypePrecision(vp.CenterX, opts.PrecisionBits),
		Im: retypePrecision(vp.CenterY, opts.PrecisionBits),
	}

	maxIterations := fractalconfig.CalculateRenderMaxIterations(vp, cfg)
	ref := orbit.Compute(cRefBig, maxIterations)

	dcMax := fractalconfig.CalculateDcMax(vp)
	var blaTable *bla.Table
	if cfg.BlaEnabled && fractalconfig.IsBlaUseful(dcMax) {
		table := bla.Build(ref, dcMax)
		blaTable = &table
	}

	pixels := make([]tile.PixelData, int(canvasW)*int(canvasH))
	var stats tile.Stats

	tileSize := chooseTileSize(vp)
	tiles := enumerateTiles(canvasW, canvasH, tileSize)

	tree := glitch.NewTree(canvasW, canvasH)

	work := renderContext{
		scheduler:     s,
		renderID:      renderID,
		vp:            vp,
		cRefBig:       cRefBig,
		ref:           ref,
		blaTable:      blaTable,
		canvasW:       canvasW,
		canvasH:       canvasH,
		maxIterations: maxIterations,
		tauSq:         cfg.TauSq,
		precisionBits: opts.PrecisionBits,
		cancel:        opts.Cancel,
	}

	if err := s.dispatchTiles(work, tiles, opts.WorkerCount, pixels, &stats); err != nil {
		return nil, err
	}

	recordGlitches(tree, pixels, canvasW)

	depth := 0
	for depth < glitch.DefaultDepthCap {
		sub := tree.SubdivideGlitchedCells()
		if !sub.Changed {
			break
		}
		depth++
		if err := s.resolveLeaves(work, tree, sub.NewLeaves, &cfg, pixels, &stats); err != nil {
			return nil, err
		}
	}

	s.log.Printf("render %d: complete, total iterations %d", renderID, stats.TotalIterations)

	return &Result{RenderID: renderID, Width: canvasW, Height: canvasH, Pixels: pixels, Stats: stats}, nil
}

// retypePrecision rebuilds a bigfloat.Float at the given precision from an
// existing one (the viewport may have been built at a different
// precision than the working precision a render wants).
func retypePrecision(f bigfloat.Float, precisionBits uint) bigfloat.Float {
	if f.Prec() == precisionBits {
		return f
	}
	return f.Add(bigfloat.Zero(precisionBits))
}

// renderContext bundles everything a tile render needs that is invariant
// across the tiles of one reference point.
type renderContext struct {
	scheduler     *Scheduler
	renderID      uint32
	vp            viewport.Viewport
	cRefBig       bigfloat.Complex
	ref           orbit.Reference
	blaTable      *bla.Table
	canvasW       uint32
	canvasH       uint32
	maxIterations uint32
	tauSq         float64
	precisionBits uint
	cancel        *atomic.Bool
}

// dispatchTiles runs a pool of opts.WorkerCount goroutines over the given
// tiles, writing results directly into pixels (each tile owns a disjoint
// region, so no locking is needed on the shared slice).
func (s *Scheduler) dispatchTiles(ctx renderContext, tiles []viewport.PixelRect, workerCount int, pixels []tile.PixelData, stats *tile.Stats) error {
	jobs := make(chan viewport.PixelRect)
	results := make(chan TileCompleteMsg, len(tiles))
	errs := make(chan ErrorMsg, len(tiles))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if ctx.cancel != nil && ctx.cancel.Load() {
					return
				}
				renderTileGuarded(ctx, t, results, errs)
			}
		}()
	}

	go func() {
		for _, t := range tiles {
			jobs <- t
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
		close(errs)
	}()

	received := 0
	for msg := range results {
		// A reply bearing another render's ID is discarded, never written
		// into this frame.
		if msg.RenderID != ctx.renderID {
			continue
		}
		writeTileIntoFrame(pixels, ctx.canvasW, msg.Tile, msg.Result.Pixels)
		stats.Add(msg.Result.Stats)
		received++
	}

	// A failed tile leaves its pixels at the zero value (unescaped, zero
	// iterations) and is not retried; it is logged as a warning, not
	// propagated as a fatal error, so the rest of the frame still renders.
	for e := range errs {
		s.log.Printf("tile (%d,%d) failed, leaving default pixels: %v", e.Tile.X, e.Tile.Y, e.Err)
		received++
	}

	if received != len(tiles) {
		s.log.Printf("expected %d tile outcomes, got %d; a worker may have been lost", len(tiles), received)
		return errors.Wrap(ErrWorkerLost, "incomplete tile results")
	}

	return nil
}

// renderTileGuarded runs renderTile with panic recovery: a single tile's
// numeric failure is reported on errs and leaves its region at the default
// (black, unescaped) pixel value rather than aborting the whole render.
func renderTileGuarded(ctx renderContext, t viewport.PixelRect, results chan<- TileCompleteMsg, errs chan<- ErrorMsg) {
	defer func() {
		if r := recover(); r != nil {
			errs <- ErrorMsg{RenderID: ctx.renderID, Tile: t, Err: errors.Wrap(ErrTileFailed, fmtPanic(r))}
		}
	}()
	result := renderTile(ctx, t)
	results <- TileCompleteMsg{RenderID: ctx.renderID, Tile: t, Result: result}
}

func fmtPanic(r interface{}) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return errors.Errorf("%v", r).Error()
}

// resolveLeaves re-renders the tiles overlapping each newly-subdivided
// leaf cell, using a fresh reference point drawn from that leaf, and
// writes only the still-glitched pixels within it back into the frame.
func (s *Scheduler) resolveLeaves(parent renderContext, tree *glitch.Tree, leafIdxs []int, cfg *fractalconfig.FractalConfig, pixels []tile.PixelData, stats *tile.Stats) error {
	for _, idx := range leafIdxs {
		cell := tree.Cells[idx]
		if len(cell.GlitchedPixels) == 0 {
			continue
		}

		refX, refY := glitch.ReferencePixel(cell)
		cRefPoint := viewport.PixelToFractal(float64(refX), float64(refY), parent.vp, parent.canvasW, parent.canvasH, parent.precisionBits)

		leafRef := orbit.Compute(cRefPoint, parent.maxIterations)
		dcMax := fractalconfig.CalculateDcMax(parent.vp)
		var leafBla *bla.Table
		if cfg.BlaEnabled && fractalconfig.IsBlaUseful(dcMax) {
			t := bla.Build(leafRef, dcMax)
			leafBla = &t
		}

		leafCtx := parent
		leafCtx.cRefBig = cRefPoint
		leafCtx.ref = leafRef
		leafCtx.blaTable = leafBla

		result := renderTileCells(leafCtx, cell.Bounds, cell.GlitchedPixels)
		writeSparsePixels(pixels, parent.canvasW, result)

		var leafStats tile.Stats
		for _, sp := range result {
			leafStats.TotalIterations += uint64(sp.Data.Iterations)
			leafStats.BLAIterationsSkipped += uint64(sp.Data.BLASkipped)
		}
		stats.Add(leafStats)
	}
	return nil
}

// writeTileIntoFrame copies a tile's row-major pixel data into its place
// in the full-canvas row-major pixel buffer.
func writeTileIntoFrame(pixels []tile.PixelData, canvasW uint32, t viewport.PixelRect, data []tile.PixelData) {
	for row := uint32(0); row < t.Height; row++ {
		srcStart := row * t.Width
		dstStart := (t.Y+row)*canvasW + t.X
		copy(pixels[dstStart:dstStart+t.Width], data[srcStart:srcStart+t.Width])
	}
}

// sparsePixel pairs an absolute canvas coordinate with its recomputed data.
type sparsePixel struct {
	X, Y uint32
	Data tile.PixelData
}

// writeSparsePixels writes individually-addressed pixels (as produced by
// glitch-resolution re-renders) back into the full-canvas buffer.
func writeSparsePixels(pixels []tile.PixelData, canvasW uint32, updates []sparsePixel) {
	for _, u := range updates {
		pixels[u.Y*canvasW+u.X] = u.Data
	}
}

// recordGlitches scans the assembled frame and records every glitched
// pixel's coordinate into the quad-tree.
func recordGlitches(tree *glitch.Tree, pixels []tile.PixelData, canvasW uint32) {
	for i, p := range pixels {
		if !p.Glitched {
			continue
		}
		x := uint32(i) % canvasW
		y := uint32(i) / canvasW
		tree.RecordGlitch(x, y)
	}
}

// chooseTileSize picks 128px tiles at shallow zoom, shrinking to 64px once
// zoom depth passes 10^10 (where glitches become common and finer tiles
// contain them to a smaller re-render cost).
func chooseTileSize(vp viewport.Viewport) uint32 {
	width := vp.Width.Float64()
	if width <= 0 {
		return 128
	}
	zoom := 4.0 / width
	if zoom > 0 {
		log10Zoom := fastLog10(zoom)
		if log10Zoom >= deepZoomTileSizeThresholdLog10 {
			return 64
		}
	}
	return 128
}

func fastLog10(v float64) float64 {
	return bigfloat.FromFloat64(v, 64).Log2Approx() / log2Of10
}

const log2Of10 = 3.321928094887362

// enumerateTiles splits a canvas into tileSize x tileSize tiles in
// row-major scan order, with the final row/column of tiles clipped to the
// canvas edge.
func enumerateTiles(canvasW, canvasH, tileSize uint32) []viewport.PixelRect {
	var tiles []viewport.PixelRect
	for y := uint32(0); y < canvasH; y += tileSize {
		h := tileSize
		if y+h > canvasH {
			h = canvasH - y
		}
		for x := uint32(0); x < canvasW; x += tileSize {
			w := tileSize
			if x+w > canvasW {
				w = canvasW - x
			}
			tiles = append(tiles, viewport.PixelRect{X: x, Y: y, Width: w, Height: h})
		}
	}
	return tiles
}

// renderTile renders every pixel of one tile, choosing f64 or HDR delta
// arithmetic once for the whole tile based on the magnitude of its
// top-left pixel's δc (spec: the cost of the numeric-kind decision is
// paid once per tile, not per pixel).
func renderTile(ctx renderContext, t viewport.PixelRect) tile.Result {
	origin, stepX, stepY := viewport.DeltaOriginAndStep(ctx.vp, ctx.cRefBig, ctx.canvasW, ctx.canvasH, t.X, t.Y, ctx.precisionBits)

	useHDR := deltaMagnitudeLog2(origin) > hdrSwitchLog2Threshold

	pixels := make([]tile.PixelData, int(t.Width)*int(t.Height))
	var stats tile.Stats

	for row := uint32(0); row < t.Height; row++ {
		if ctx.cancel != nil && ctx.cancel.Load() {
			break
		}
		for col := uint32(0); col < t.Width; col++ {
			deltaCBig := origin.Add(stepX.Scale(float64(col))).Add(stepY.Scale(float64(row)))

			var px tile.PixelData
			if useHDR {
				deltaC := hdrfloat.Complex{Re: hdrfloat.FromBigFloat(deltaCBig.Re), Im: hdrfloat.FromBigFloat(deltaCBig.Im)}
				px = perturbation.Step[hdrfloat.Complex](ctx.ref, ctx.blaTable, deltaC, ctx.maxIterations, ctx.tauSq)
			} else {
				re, im := deltaCBig.ToF64Pair()
				deltaC := complexdelta.F64Complex{Re: re, Im: im}
				px = perturbation.Step[complexdelta.F64Complex](ctx.ref, ctx.blaTable, deltaC, ctx.maxIterations, ctx.tauSq)
			}

			pixels[row*t.Width+col] = px
			stats.TotalIterations += uint64(px.Iterations)
			stats.BLAIterationsSkipped += uint64(px.BLASkipped)
		}
	}

	return tile.Result{Pixels: pixels, Stats: stats}
}

// renderTileCells re-renders only the named absolute-canvas pixel
// coordinates within bounds, used by glitch resolution where a leaf's
// previously-good pixels must be preserved untouched.
func renderTileCells(ctx renderContext, bounds viewport.PixelRect, cells [][2]uint32) []sparsePixel {
	origin, stepX, stepY := viewport.DeltaOriginAndStep(ctx.vp, ctx.cRefBig, ctx.canvasW, ctx.canvasH, bounds.X, bounds.Y, ctx.precisionBits)
	useHDR := deltaMagnitudeLog2(origin) > hdrSwitchLog2Threshold

	out := make([]sparsePixel, 0, len(cells))
	for _, coord := range cells {
		col := coord[0] - bounds.X
		row := coord[1] - bounds.Y
		deltaCBig := origin.Add(stepX.Scale(float64(col))).Add(stepY.Scale(float64(row)))

		var px tile.PixelData
		if useHDR {
			deltaC := hdrfloat.Complex{Re: hdrfloat.FromBigFloat(deltaCBig.Re), Im: hdrfloat.FromBigFloat(deltaCBig.Im)}
			px = perturbation.Step[hdrfloat.Complex](ctx.ref, ctx.blaTable, deltaC, ctx.maxIterations, ctx.tauSq)
		} else {
			re, im := deltaCBig.ToF64Pair()
			deltaC := complexdelta.F64Complex{Re: re, Im: im}
			px = perturbation.Step[complexdelta.F64Complex](ctx.ref, ctx.blaTable, deltaC, ctx.maxIterations, ctx.tauSq)
		}

		out = append(out, sparsePixel{X: coord[0], Y: coord[1], Data: px})
	}
	return out
}

// deltaMagnitudeLog2 returns the larger of |log2(re)| and |log2(im)| for a
// bigfloat delta, used to pick the f64/HDR switch point.
func deltaMagnitudeLog2(c bigfloat.Complex) float64 {
	reLog := c.Re.Log2Approx()
	imLog := c.Im.Log2Approx()
	if reLog < 0 {
		reLog = -reLog
	}
	if imLog < 0 {
		imLog = -imLog
	}
	if reLog > imLog {
		return reLog
	}
	return imLog
}
