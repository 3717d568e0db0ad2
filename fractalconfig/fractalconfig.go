// Package fractalconfig holds per-fractal-type rendering parameters: the
// canonical source of truth for default viewport, glitch threshold, and the
// iteration-count formula, plus the pure helper functions that derive
// render-time decisions (max iterations, BLA usefulness) from a viewport.
package fractalconfig

import (
	"math"

	"github.com/whalelogic/fractalwonder/hdrfloat"
	"github.com/whalelogic/fractalwonder/viewport"
)

// FractalConfig configures a fractal type's defaults and render-tuning
// knobs. Mirrors the Rust original's FractalConfig exactly in field meaning.
type FractalConfig struct {
	// ID is the unique identifier matching the compute-layer renderer.
	ID string
	// DisplayName is the human-readable name for UI display.
	DisplayName string
	// DefaultCenterX, DefaultCenterY are default center coordinates as
	// decimal strings, preserving arbitrary precision.
	DefaultCenterX, DefaultCenterY string
	// DefaultWidth, DefaultHeight are the default viewport extents as
	// decimal strings.
	DefaultWidth, DefaultHeight string
	// TauSq is the glitch-detection threshold squared (tau^2). Default
	// 1e-6 corresponds to tau = 1e-3.
	TauSq float64
	// IterationMultiplier and IterationPower parameterize the max
	// iterations formula: multiplier * zoomExponent^power.
	IterationMultiplier float64
	IterationPower      float64
	// BlaEnabled toggles BLA (bivariate linear approximation) iteration
	// skipping for this fractal type.
	BlaEnabled bool
}

// DefaultViewport builds the default viewport for this config at the given
// precision. Panics on malformed default coordinates, which indicates a
// programming error in the static config rather than user input.
func (c FractalConfig) DefaultViewport(precisionBits uint) viewport.Viewport {
	vp, err := viewport.FromStrings(c.DefaultCenterX, c.DefaultCenterY, c.DefaultWidth, c.DefaultHeight, precisionBits)
	if err != nil {
		panic("fractalconfig: invalid default viewport coordinates: " + err.Error())
	}
	return vp
}

// MandelbrotConfig is the canonical source of truth for Mandelbrot
// rendering parameters.
var MandelbrotConfig = FractalConfig{
	ID:                  "mandelbrot",
	DisplayName:         "Mandelbrot Set",
	DefaultCenterX:      "-0.5",
	DefaultCenterY:      "0.0",
	DefaultWidth:        "4.0",
	DefaultHeight:       "4.0",
	TauSq:               1e-6,
	IterationMultiplier: 200.0,
	IterationPower:      2.8,
	BlaEnabled:          true,
}

// registry is keyed by ID; mandelbrot is the only fractal type this build
// supports (Julia sets and other fractal families are out of scope).
var registry = map[string]FractalConfig{
	"mandelbrot": MandelbrotConfig,
}

// Get looks up a fractal configuration by ID.
func Get(id string) (FractalConfig, bool) {
	c, ok := registry[id]
	return c, ok
}

// EscapeRadiusSq is the squared escape radius shared by orbit computation
// and the perturbation loop: |z|^2 > 65536 (radius 256) is the standard
// choice for producing a smooth (fractional) iteration count.
const EscapeRadiusSq = 65536.0

// CalculateDcMax returns the maximum |delta_c| across the viewport: the
// distance from center to the farthest corner. Computed entirely in HDR to
// avoid underflow when squaring very small viewport dimensions at extreme
// zoom (e.g. a 1e-270 width, where a plain float64 square flushes to zero).
func CalculateDcMax(vp viewport.Viewport) hdrfloat.Float {
	halfWidth := hdrfloat.FromBigFloat(vp.Width).MulF64(0.5)
	halfHeight := hdrfloat.FromBigFloat(vp.Height).MulF64(0.5)
	return halfWidth.Square().Add(halfHeight.Square()).Sqrt()
}

// CalculateMaxIterations returns the iteration budget for a render, via
// multiplier * zoomExponent^power, clamped to [1000, 10_000_000].
func CalculateMaxIterations(zoomExponent, multiplier, power float64) uint32 {
	if zoomExponent < 0 {
		zoomExponent = 0
	}
	iterations := multiplier * math.Pow(zoomExponent, power)
	iterations = math.Max(1000, math.Min(10_000_000, iterations))
	return uint32(iterations)
}

// CalculateRenderMaxIterations derives the zoom exponent from a viewport's
// width (the default Mandelbrot width is ~4, so zoom = 4/width) and applies
// CalculateMaxIterations with the config's multiplier and power.
func CalculateRenderMaxIterations(vp viewport.Viewport, c FractalConfig) uint32 {
	vpWidth := vp.Width.Float64()

	zoom := 4.0 / vpWidth
	zoomExponent := 0.0
	if !math.IsInf(zoom, 0) && zoom > 0.0 {
		zoomExponent = math.Log10(zoom)
	}

	return CalculateMaxIterations(zoomExponent, c.IterationMultiplier, c.IterationPower)
}

// IsBlaUseful reports whether BLA iteration skipping is worth the table
// construction cost at the given dc_max. BLA helps at deep zoom where
// iteration counts are high; threshold matches the scale > 1e25 rule of
// thumb (dc_max < ~1e-25, i.e. log2(dc_max) < -80).
func IsBlaUseful(dcMax hdrfloat.Float) bool {
	return dcMax.Log2() < -80.0
}
