package viewport

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/whalelogic/fractalwonder/bigfloat"
)

func TestFromFloat64Valid(t *testing.T) {
	vp, err := FromFloat64(-0.5, 0.0, 4.0, 4.0, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vp.Width.Float64() != 4.0 {
		t.Errorf("width = %v", vp.Width.Float64())
	}
}

func TestZeroWidthRejected(t *testing.T) {
	_, err := FromFloat64(0, 0, 0, 4, 64)
	if err != ErrInvalidViewport {
		t.Fatalf("expected ErrInvalidViewport, got %v", err)
	}
}

func TestNegativeHeightRejected(t *testing.T) {
	_, err := FromFloat64(0, 0, 4, -1, 64)
	if err != ErrInvalidViewport {
		t.Fatalf("expected ErrInvalidViewport, got %v", err)
	}
}

func TestFromStringsRoundTrip(t *testing.T) {
	vp, err := FromStrings("-0.5", "0.0", "4.0", "4.0", 128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(vp.CenterX.Float64()+0.5) > 1e-12 {
		t.Errorf("center x = %v", vp.CenterX.Float64())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	vp, err := FromStrings("-0.5", "0.25", "0.001", "0.001", 200)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(vp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Viewport
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if math.Abs(back.CenterX.Float64()-vp.CenterX.Float64()) > 1e-9 {
		t.Errorf("center x round trip: %v vs %v", back.CenterX.Float64(), vp.CenterX.Float64())
	}
	if math.Abs(back.Width.Float64()-vp.Width.Float64()) > 1e-9 {
		t.Errorf("width round trip: %v vs %v", back.Width.Float64(), vp.Width.Float64())
	}
}

func TestPixelToFractalCenterPixelIsCenter(t *testing.T) {
	vp, _ := FromFloat64(-0.5, 0.0, 4.0, 4.0, 64)
	// Pixel (50, 50) of a 100x100 canvas sits at px/W = 0.5, so it maps to
	// the center.
	c := PixelToFractal(50, 50, vp, 100, 100, 64)
	if math.Abs(c.Re.Float64()+0.5) > 0.05 {
		t.Errorf("center pixel re = %v, want ~-0.5", c.Re.Float64())
	}
}

func TestPixelToFractalCornersSpanWidth(t *testing.T) {
	vp, _ := FromFloat64(0, 0, 4.0, 4.0, 64)
	left := PixelToFractal(0, 0, vp, 100, 100, 64)
	right := PixelToFractal(100, 0, vp, 100, 100, 64)
	span := right.Re.Float64() - left.Re.Float64()
	if math.Abs(span-4.0) > 0.01 {
		t.Errorf("span across canvas width = %v, want ~4.0", span)
	}
}

func TestDeltaOriginAndStepMatchesPixelToFractal(t *testing.T) {
	vp, _ := FromFloat64(-0.5, 0.0, 4.0, 4.0, 64)
	ref := bigfloat.Complex{Re: vp.CenterX, Im: vp.CenterY}

	origin, stepX, stepY := DeltaOriginAndStep(vp, ref, 100, 100, 10, 20, 64)
	direct := PixelToFractal(10, 20, vp, 100, 100, 64).Sub(ref)

	if math.Abs(origin.Re.Float64()-direct.Re.Float64()) > 1e-9 {
		t.Errorf("origin re = %v, want %v", origin.Re.Float64(), direct.Re.Float64())
	}
	if math.Abs(origin.Im.Float64()-direct.Im.Float64()) > 1e-9 {
		t.Errorf("origin im = %v, want %v", origin.Im.Float64(), direct.Im.Float64())
	}

	// Stepping one pixel right by stepX should match a direct computation.
	nextPixel := PixelToFractal(11, 20, vp, 100, 100, 64).Sub(ref)
	stepped := origin.Add(stepX)
	if math.Abs(stepped.Re.Float64()-nextPixel.Re.Float64()) > 1e-9 {
		t.Errorf("stepped re = %v, want %v", stepped.Re.Float64(), nextPixel.Re.Float64())
	}
	_ = stepY
}
