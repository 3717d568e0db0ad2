// Package glitch implements the quad-tree glitch resolver: pixel-space
// cells that subdivide around clusters of glitched pixels, each new leaf
// getting its own reference point so a re-render can clear the glitch.
//
// The tree is stored as an arena — a slice of Cell plus index-based child
// links — rather than owning pointers, since a cell's children never
// outlive the tree itself and indices make subdivision trivially safe to
// share read-only with the scheduler's workers.
package glitch

import "github.com/whalelogic/fractalwonder/viewport"

// DefaultGlitchThreshold is the glitched-pixel count above which a cell is
// subdivided.
const DefaultGlitchThreshold = 1

// DefaultDepthCap bounds how many times a cell may be subdivided.
const DefaultDepthCap = 6

// noChild marks the absence of a child link in the arena.
const noChild = -1

// Cell is one quad-tree node. Children, when present, are four arena
// indices in row-major order (top-left, top-right, bottom-left,
// bottom-right). A leaf has all four children set to noChild.
type Cell struct {
	Bounds         viewport.PixelRect
	Depth          int
	Children       [4]int
	GlitchedPixels [][2]uint32 // pixel coordinates, absolute in canvas space
	NeedsRerender  bool
}

// IsLeaf reports whether c has no children.
func (c Cell) IsLeaf() bool {
	return c.Children[0] == noChild
}

// Tree is the arena: Cells[0] is always the root.
type Tree struct {
	Cells     []Cell
	Threshold int
	DepthCap  int
}

// NewTree creates a single-root tree covering the given canvas, with the
// default threshold and depth cap.
func NewTree(canvasW, canvasH uint32) *Tree {
	return NewTreeWithLimits(canvasW, canvasH, DefaultGlitchThreshold, DefaultDepthCap)
}

// NewTreeWithLimits is NewTree with explicit threshold/depth-cap overrides.
func NewTreeWithLimits(canvasW, canvasH uint32, threshold, depthCap int) *Tree {
	root := Cell{
		Bounds:   viewport.FullCanvas(canvasW, canvasH),
		Depth:    0,
		Children: [4]int{noChild, noChild, noChild, noChild},
	}
	return &Tree{Cells: []Cell{root}, Threshold: threshold, DepthCap: depthCap}
}

// RecordGlitch attaches a glitched pixel (in absolute canvas coordinates)
// to the leaf cell containing it.
func (t *Tree) RecordGlitch(px, py uint32) {
	idx := t.leafContaining(0, px, py)
	cell := &t.Cells[idx]
	cell.GlitchedPixels = append(cell.GlitchedPixels, [2]uint32{px, py})
}

// leafContaining walks down from the cell at idx to the leaf containing
// (px, py).
func (t *Tree) leafContaining(idx int, px, py uint32) int {
	cell := t.Cells[idx]
	if cell.IsLeaf() {
		return idx
	}
	for _, childIdx := range cell.Children {
		child := t.Cells[childIdx]
		if containsPixel(child.Bounds, px, py) {
			return t.leafContaining(childIdx, px, py)
		}
	}
	return idx
}

func containsPixel(r viewport.PixelRect, px, py uint32) bool {
	return px >= r.X && px < r.X+r.Width && py >= r.Y && py < r.Y+r.Height
}

// SubdivideResult reports which leaves were newly created by one
// subdivision pass, so the scheduler knows which cells need fresh
// reference points and re-dispatched tiles.
type SubdivideResult struct {
	NewLeaves []int // arena indices of freshly created leaf cells
	Changed   bool  // whether anything was subdivided this pass
}

// SubdivideGlitchedCells walks every current leaf and subdivides those
// whose glitched-pixel count exceeds the tree's threshold and whose depth
// is below the depth cap, into four quadrants. Returns the indices of the
// newly created leaves.
func (t *Tree) SubdivideGlitchedCells() SubdivideResult {
	var result SubdivideResult

	leaves := t.currentLeaves()
	for _, idx := range leaves {
		cell := t.Cells[idx]
		if len(cell.GlitchedPixels) <= t.Threshold {
			continue
		}
		if cell.Depth >= t.DepthCap {
			continue
		}
		children := t.subdivide(idx)
		result.NewLeaves = append(result.NewLeaves, children[:]...)
		result.Changed = true
	}

	return result
}

// currentLeaves returns the arena indices of every current leaf cell.
func (t *Tree) currentLeaves() []int {
	var leaves []int
	for i, cell := range t.Cells {
		if cell.IsLeaf() {
			leaves = append(leaves, i)
		}
	}
	return leaves
}

// subdivide splits the cell at idx into four quadrant children, appended
// to the arena, and returns their indices.
func (t *Tree) subdivide(idx int) [4]int {
	parent := t.Cells[idx]
	b := parent.Bounds

	halfW := b.Width / 2
	halfH := b.Height / 2
	// On an odd dimension the extra pixel goes to the second half; a 1px
	// dimension therefore yields a zero-size first half.
	quadrants := [4]viewport.PixelRect{
		{X: b.X, Y: b.Y, Width: halfW, Height: halfH},
		{X: b.X + halfW, Y: b.Y, Width: b.Width - halfW, Height: halfH},
		{X: b.X, Y: b.Y + halfH, Width: halfW, Height: b.Height - halfH},
		{X: b.X + halfW, Y: b.Y + halfH, Width: b.Width - halfW, Height: b.Height - halfH},
	}

	var childIdx [4]int
	for i, bounds := range quadrants {
		child := Cell{
			Bounds:   bounds,
			Depth:    parent.Depth + 1,
			Children: [4]int{noChild, noChild, noChild, noChild},
		}
		// Distribute the parent's glitched pixels into whichever quadrant
		// contains them, so each new leaf already knows its own count.
		for _, px := range parent.GlitchedPixels {
			if containsPixel(bounds, px[0], px[1]) {
				child.GlitchedPixels = append(child.GlitchedPixels, px)
			}
		}
		t.Cells = append(t.Cells, child)
		childIdx[i] = len(t.Cells) - 1
	}

	t.Cells[idx].Children = childIdx
	t.Cells[idx].GlitchedPixels = nil
	return childIdx
}

// ReferencePixel returns the pixel coordinate a new leaf's reference point
// should be drawn from: the centroid of its glitched pixels, falling back
// to the cell's center if it has none.
func ReferencePixel(cell Cell) (uint32, uint32) {
	if len(cell.GlitchedPixels) == 0 {
		return cell.Bounds.X + cell.Bounds.Width/2, cell.Bounds.Y + cell.Bounds.Height/2
	}

	var sumX, sumY uint64
	for _, px := range cell.GlitchedPixels {
		sumX += uint64(px[0])
		sumY += uint64(px[1])
	}
	n := uint64(len(cell.GlitchedPixels))
	return uint32(sumX / n), uint32(sumY / n)
}
