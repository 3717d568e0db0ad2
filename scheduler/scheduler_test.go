package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whalelogic/fractalwonder/fractalconfig"
	"github.com/whalelogic/fractalwonder/viewport"
)

func smallConfig() fractalconfig.FractalConfig {
	cfg := fractalconfig.MandelbrotConfig
	cfg.IterationMultiplier = 20
	cfg.IterationPower = 1
	return cfg
}

func TestRenderRejectsInvalidViewport(t *testing.T) {
	bad, err := viewport.FromFloat64(-0.5, 0.0, 4.0, 4.0, 64)
	if err != nil {
		t.Fatal(err)
	}
	bad.Width = bad.Width.Sub(bad.Width) // zero width, invalid

	s := New(nil)
	_, err = s.Render(bad, 16, 16, smallConfig(), DefaultOptions(2))
	if err == nil {
		t.Fatal("expected error for invalid viewport")
	}
}

func TestRenderProducesFullyPopulatedFrame(t *testing.T) {
	vp, err := viewport.FromFloat64(-0.5, 0.0, 3.0, 3.0, 64)
	if err != nil {
		t.Fatal(err)
	}

	s := New(nil)
	result, err := s.Render(vp, 32, 32, smallConfig(), DefaultOptions(4))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(result.Pixels) != 32*32 {
		t.Fatalf("got %d pixels, want %d", len(result.Pixels), 32*32)
	}

	anyIterated := false
	for _, p := range result.Pixels {
		require.NotZerof(t, p.MaxIterations, "found a pixel with zero MaxIterations: frame not fully populated")
		if p.Iterations > 0 {
			anyIterated = true
		}
	}
	assert.True(t, anyIterated, "expected at least some pixels to iterate before escaping")
}

func TestRenderIncrementsRenderID(t *testing.T) {
	vp, err := viewport.FromFloat64(-0.5, 0.0, 3.0, 3.0, 64)
	if err != nil {
		t.Fatal(err)
	}

	s := New(nil)
	first, err := s.Render(vp, 8, 8, smallConfig(), DefaultOptions(1))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Render(vp, 8, 8, smallConfig(), DefaultOptions(1))
	if err != nil {
		t.Fatal(err)
	}
	if second.RenderID <= first.RenderID {
		t.Fatalf("expected increasing render IDs, got %d then %d", first.RenderID, second.RenderID)
	}
}

func TestChooseTileSizeShrinksAtDeepZoom(t *testing.T) {
	shallow, err := viewport.FromFloat64(-0.5, 0.0, 4.0, 4.0, 64)
	if err != nil {
		t.Fatal(err)
	}
	if got := chooseTileSize(shallow); got != 128 {
		t.Errorf("chooseTileSize(shallow) = %d, want 128", got)
	}

	deep, err := viewport.FromStrings("-0.5", "0.0", "0.0000000001", "0.0000000001", 128)
	if err != nil {
		t.Fatal(err)
	}
	if got := chooseTileSize(deep); got != 64 {
		t.Errorf("chooseTileSize(deep) = %d, want 64", got)
	}
}

func TestEnumerateTilesCoversCanvasExactly(t *testing.T) {
	tiles := enumerateTiles(100, 50, 64)
	covered := make([][]bool, 50)
	for i := range covered {
		covered[i] = make([]bool, 100)
	}
	for _, tl := range tiles {
		for y := tl.Y; y < tl.Y+tl.Height; y++ {
			for x := tl.X; x < tl.X+tl.Width; x++ {
				if covered[y][x] {
					t.Fatalf("pixel (%d,%d) covered by more than one tile", x, y)
				}
				covered[y][x] = true
			}
		}
	}
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			if !covered[y][x] {
				t.Fatalf("pixel (%d,%d) not covered by any tile", x, y)
			}
		}
	}
}

func TestDefaultOptionsSetsPrecision(t *testing.T) {
	opts := DefaultOptions(4)
	assert.Equal(t, 4, opts.WorkerCount)
	assert.EqualValues(t, 128, opts.PrecisionBits)
}
