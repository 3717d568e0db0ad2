package fractalconfig

import (
	"math"
	"testing"

	"github.com/whalelogic/fractalwonder/hdrfloat"
	"github.com/whalelogic/fractalwonder/viewport"
)

func testViewport(t *testing.T, width, height float64) viewport.Viewport {
	t.Helper()
	vp, err := viewport.FromFloat64(-0.5, 0.0, width, height, 64)
	if err != nil {
		t.Fatalf("unexpected error building test viewport: %v", err)
	}
	return vp
}

func TestGetFindsMandelbrot(t *testing.T) {
	c, ok := Get("mandelbrot")
	if !ok {
		t.Fatal("expected mandelbrot config to be found")
	}
	if c.DisplayName != "Mandelbrot Set" {
		t.Errorf("display name = %q", c.DisplayName)
	}
}

func TestGetReturnsFalseForUnknown(t *testing.T) {
	_, ok := Get("unknown_fractal")
	if ok {
		t.Error("expected unknown fractal id to be absent")
	}
}

func TestCalculateDcMaxAtDefaultZoom(t *testing.T) {
	vp := testViewport(t, 4.0, 4.0)
	dcMax := CalculateDcMax(vp).ToF64()
	// sqrt(2^2 + 2^2) = sqrt(8) ~= 2.828
	if math.Abs(dcMax-2.828) > 0.01 {
		t.Errorf("dc_max = %v, want ~2.828", dcMax)
	}
}

func TestCalculateMaxIterationsIncreasesWithZoom(t *testing.T) {
	shallow := testViewport(t, 4.0, 4.0)
	deep := testViewport(t, 0.0001, 0.0001)

	shallowIter := CalculateRenderMaxIterations(shallow, MandelbrotConfig)
	deepIter := CalculateRenderMaxIterations(deep, MandelbrotConfig)

	if deepIter <= shallowIter {
		t.Errorf("deep iter = %d, shallow iter = %d, want deep > shallow", deepIter, shallowIter)
	}
}

func TestCalculateMaxIterationsClampedToFloor(t *testing.T) {
	iterations := CalculateMaxIterations(0, 200.0, 2.8)
	if iterations != 1000 {
		t.Errorf("iterations = %d, want floor of 1000", iterations)
	}
}

func TestCalculateMaxIterationsClampedToCeiling(t *testing.T) {
	iterations := CalculateMaxIterations(1000, 200.0, 2.8)
	if iterations != 10_000_000 {
		t.Errorf("iterations = %d, want ceiling of 10_000_000", iterations)
	}
}

func TestBlaUsefulAtDeepZoom(t *testing.T) {
	tinyDcMax := hdrfloat.FromF64(1e-100)
	if !IsBlaUseful(tinyDcMax) {
		t.Error("expected BLA to be useful at dc_max = 1e-100")
	}
}

func TestBlaNotUsefulAtShallowZoom(t *testing.T) {
	largeDcMax := hdrfloat.FromF64(2.0)
	if IsBlaUseful(largeDcMax) {
		t.Error("expected BLA to not be useful at dc_max = 2.0")
	}
}

func TestMandelbrotConfigValues(t *testing.T) {
	if MandelbrotConfig.TauSq != 1e-6 {
		t.Errorf("tau_sq = %v", MandelbrotConfig.TauSq)
	}
	if MandelbrotConfig.IterationMultiplier != 200.0 {
		t.Errorf("iteration_multiplier = %v", MandelbrotConfig.IterationMultiplier)
	}
	if MandelbrotConfig.IterationPower != 2.8 {
		t.Errorf("iteration_power = %v", MandelbrotConfig.IterationPower)
	}
	if !MandelbrotConfig.BlaEnabled {
		t.Error("expected bla_enabled to be true")
	}
}

func TestDefaultViewportMatchesConfig(t *testing.T) {
	vp := MandelbrotConfig.DefaultViewport(64)
	if math.Abs(vp.CenterX.Float64()+0.5) > 1e-9 {
		t.Errorf("default center x = %v, want -0.5", vp.CenterX.Float64())
	}
	if math.Abs(vp.Width.Float64()-4.0) > 1e-9 {
		t.Errorf("default width = %v, want 4.0", vp.Width.Float64())
	}
}
