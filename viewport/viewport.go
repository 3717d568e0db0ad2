// Package viewport defines the visible fractal-space region and the
// deterministic pixel-to-fractal coordinate mapping used to derive
// per-pixel deltas from a reference point.
package viewport

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"

	"github.com/whalelogic/fractalwonder/bigfloat"
)

// ErrInvalidViewport is returned when a viewport's dimensions are
// non-finite or non-positive.
var ErrInvalidViewport = errors.New("viewport: width and height must be finite and positive")

// Viewport is the visible region: center + width + height in bigfloat.
// Precision bits are derived from the dimensions' precision.
type Viewport struct {
	CenterX, CenterY bigfloat.Float
	Width, Height    bigfloat.Float
}

// FromFloat64 builds a viewport from plain doubles at the given precision.
func FromFloat64(centerX, centerY, width, height float64, precision uint) (Viewport, error) {
	vp := Viewport{
		CenterX: bigfloat.FromFloat64(centerX, precision),
		CenterY: bigfloat.FromFloat64(centerY, precision),
		Width:   bigfloat.FromFloat64(width, precision),
		Height:  bigfloat.FromFloat64(height, precision),
	}
	return vp, vp.Validate()
}

// FromStrings builds a viewport from decimal strings, preserving full
// precision across a process boundary.
func FromStrings(centerX, centerY, width, height string, precision uint) (Viewport, error) {
	cx, err := bigfloat.FromString(centerX, precision)
	if err != nil {
		return Viewport{}, errors.Wrap(err, "viewport: center x")
	}
	cy, err := bigfloat.FromString(centerY, precision)
	if err != nil {
		return Viewport{}, errors.Wrap(err, "viewport: center y")
	}
	w, err := bigfloat.FromString(width, precision)
	if err != nil {
		return Viewport{}, errors.Wrap(err, "viewport: width")
	}
	h, err := bigfloat.FromString(height, precision)
	if err != nil {
		return Viewport{}, errors.Wrap(err, "viewport: height")
	}
	vp := Viewport{CenterX: cx, CenterY: cy, Width: w, Height: h}
	return vp, vp.Validate()
}

// Validate reports ErrInvalidViewport if width/height are non-positive or
// infinite. big.Float has no NaN but does hold ±Inf; an infinite value is
// the only one whose log2 is +Inf.
func (v Viewport) Validate() error {
	if v.Width.Sign() <= 0 || v.Height.Sign() <= 0 {
		return ErrInvalidViewport
	}
	if math.IsInf(v.Width.Log2Approx(), 1) || math.IsInf(v.Height.Log2Approx(), 1) {
		return ErrInvalidViewport
	}
	return nil
}

// PrecisionBits returns the precision shared by this viewport's fields.
func (v Viewport) PrecisionBits() uint {
	return v.Width.Prec()
}

// persistedViewport is the JSON-serializable form: decimal strings so
// arbitrary precision survives a process boundary losslessly.
type persistedViewport struct {
	CenterX string `json:"center_x"`
	CenterY string `json:"center_y"`
	Width   string `json:"width"`
	Height  string `json:"height"`
	Version int    `json:"version"`
}

// CurrentPersistVersion is bumped whenever the persisted shape changes.
const CurrentPersistVersion = 1

// MarshalJSON renders the viewport as decimal strings for lossless
// round-tripping across a process boundary.
func (v Viewport) MarshalJSON() ([]byte, error) {
	return json.Marshal(persistedViewport{
		CenterX: v.CenterX.String(),
		CenterY: v.CenterY.String(),
		Width:   v.Width.String(),
		Height:  v.Height.String(),
		Version: CurrentPersistVersion,
	})
}

// UnmarshalJSON parses the decimal-string form at a default precision of
// 128 bits; callers needing a different working precision should use
// FromStrings directly with the decoded fields.
func (v *Viewport) UnmarshalJSON(data []byte) error {
	var p persistedViewport
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.Wrap(err, "viewport: unmarshal")
	}
	parsed, err := FromStrings(p.CenterX, p.CenterY, p.Width, p.Height, 128)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// PixelRect is a sub-rectangle of the canvas in pixel coordinates.
type PixelRect struct {
	X, Y, Width, Height uint32
}

// FullCanvas returns a PixelRect covering the entire canvas.
func FullCanvas(width, height uint32) PixelRect {
	return PixelRect{Width: width, Height: height}
}

// PixelToFractal maps pixel (px, py) to a fractal-space coordinate, given
// the canvas size (w, h). Height is reconciled to the canvas aspect ratio;
// the height stored on the viewport is advisory.
func PixelToFractal(px, py float64, vp Viewport, canvasW, canvasH uint32, precision uint) bigfloat.Complex {
	aspect := float64(canvasW) / float64(canvasH)
	width := vp.Width
	height := bigfloat.FromFloat64(width.Float64()/aspect, precision)

	fx := vp.CenterX.Add(width.Mul(bigfloat.FromFloat64(px/float64(canvasW)-0.5, precision)))
	fy := vp.CenterY.Add(height.Mul(bigfloat.FromFloat64(py/float64(canvasH)-0.5, precision)))
	return bigfloat.Complex{Re: fx, Im: fy}
}

// DeltaOriginAndStep computes (delta_c_origin, delta_c_step_x,
// delta_c_step_y) for a tile's top-left pixel relative to a reference
// point, all in bigfloat, to be consumed once per tile and then stepped
// incrementally per pixel to keep cumulative error negligible.
func DeltaOriginAndStep(vp Viewport, cRef bigfloat.Complex, canvasW, canvasH uint32, tileX, tileY uint32, precision uint) (origin, stepX, stepY bigfloat.Complex) {
	aspect := float64(canvasW) / float64(canvasH)
	width := vp.Width
	height := bigfloat.FromFloat64(width.Float64()/aspect, precision)

	originPoint := PixelToFractal(float64(tileX), float64(tileY), vp, canvasW, canvasH, precision)
	origin = originPoint.Sub(cRef)

	dxPerPixel := width.Mul(bigfloat.FromFloat64(1.0/float64(canvasW), precision))
	dyPerPixel := height.Mul(bigfloat.FromFloat64(1.0/float64(canvasH), precision))

	stepX = bigfloat.Complex{Re: dxPerPixel, Im: bigfloat.Zero(precision)}
	stepY = bigfloat.Complex{Re: bigfloat.Zero(precision), Im: dyPerPixel}
	return origin, stepX, stepY
}
