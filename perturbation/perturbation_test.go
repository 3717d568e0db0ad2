package perturbation

import (
	"math"
	"testing"

	"github.com/whalelogic/fractalwonder/bigfloat"
	"github.com/whalelogic/fractalwonder/bla"
	"github.com/whalelogic/fractalwonder/complexdelta"
	"github.com/whalelogic/fractalwonder/hdrfloat"
	"github.com/whalelogic/fractalwonder/orbit"
)

const testTauSq = 1e-6

func buildOrbit(t *testing.T, centerRe, centerIm string, n uint32) orbit.Reference {
	t.Helper()
	re, err := bigfloat.FromString(centerRe, 128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	im, err := bigfloat.FromString(centerIm, 128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return orbit.Compute(bigfloat.Complex{Re: re, Im: im}, n)
}

func TestStepAtCenterNeverEscapes(t *testing.T) {
	ref := buildOrbit(t, "-0.5", "0.0", 1000)
	deltaC := complexdelta.F64Complex{Re: 0, Im: 0}

	result := Step[complexdelta.F64Complex](ref, nil, deltaC, 1000, testTauSq)

	if result.Escaped {
		t.Error("expected center point to not escape")
	}
	if result.Iterations != 1000 {
		t.Errorf("iterations = %d, want 1000", result.Iterations)
	}
}

func TestStepEscapesForPointOutsideSet(t *testing.T) {
	ref := buildOrbit(t, "-0.5", "0.0", 500)
	// A delta that lands near c=2, well outside the set.
	deltaC := complexdelta.F64Complex{Re: 2.5, Im: 0}

	result := Step[complexdelta.F64Complex](ref, nil, deltaC, 500, testTauSq)

	if !result.Escaped {
		t.Error("expected this point to escape")
	}
}

func TestBlaMatchesNonBlaForLargerInSetDelta(t *testing.T) {
	ref := buildOrbit(t, "-0.5", "0.0", 500)
	deltaC := hdrfloat.FromF64Pair(0.1, 0.1)
	dcMax := hdrfloat.FromF64(0.15)
	table := bla.Build(ref, dcMax)

	resultNoBla := Step[hdrfloat.Complex](ref, nil, deltaC, 500, testTauSq)
	resultBla := Step[hdrfloat.Complex](ref, &table, deltaC, 500, testTauSq)

	if resultNoBla.Escaped != resultBla.Escaped {
		t.Errorf("escaped mismatch: no_bla=%v, bla=%v", resultNoBla.Escaped, resultBla.Escaped)
	}
	if resultNoBla.Iterations != resultBla.Iterations {
		t.Errorf("iterations mismatch: no_bla=%d, bla=%d", resultNoBla.Iterations, resultBla.Iterations)
	}
}

func TestBlaMatchesNonBlaForInSetPoint(t *testing.T) {
	ref := buildOrbit(t, "-0.5", "0.0", 500)
	deltaC := hdrfloat.FromF64Pair(0.01, 0.01)
	dcMax := hdrfloat.FromF64(0.02)
	table := bla.Build(ref, dcMax)

	resultNoBla := Step[hdrfloat.Complex](ref, nil, deltaC, 500, testTauSq)
	resultBla := Step[hdrfloat.Complex](ref, &table, deltaC, 500, testTauSq)

	if resultNoBla.Escaped != resultBla.Escaped {
		t.Errorf("escaped mismatch: no_bla=%v, bla=%v", resultNoBla.Escaped, resultBla.Escaped)
	}
	if resultNoBla.Iterations != resultBla.Iterations {
		t.Errorf("iterations mismatch: no_bla=%d, bla=%d", resultNoBla.Iterations, resultBla.Iterations)
	}
}

func TestBlaMatchesNonBlaForManyDeltas(t *testing.T) {
	ref := buildOrbit(t, "-0.5", "0.0", 1000)

	deltas := []struct{ re, im float64 }{
		{0.01, 0.01},
		{-0.005, 0.002},
		{0.1, -0.05},
		{0.0, 0.001},
		{0.05, 0.05},
		{-0.02, 0.03},
	}

	for _, d := range deltas {
		deltaC := hdrfloat.FromF64Pair(d.re, d.im)
		maxAbs := math.Abs(d.re)
		if math.Abs(d.im) > maxAbs {
			maxAbs = math.Abs(d.im)
		}
		if maxAbs < 0.001 {
			maxAbs = 0.001
		}
		dcMax := hdrfloat.FromF64(maxAbs)
		table := bla.Build(ref, dcMax)

		resultNoBla := Step[hdrfloat.Complex](ref, nil, deltaC, 1000, testTauSq)
		resultBla := Step[hdrfloat.Complex](ref, &table, deltaC, 1000, testTauSq)

		if resultNoBla.Escaped != resultBla.Escaped {
			t.Errorf("delta (%v, %v): escaped mismatch no_bla=%v bla=%v", d.re, d.im, resultNoBla.Escaped, resultBla.Escaped)
		}
		if resultNoBla.Iterations != resultBla.Iterations {
			t.Errorf("delta (%v, %v): iterations mismatch no_bla=%d bla=%d", d.re, d.im, resultNoBla.Iterations, resultBla.Iterations)
		}
	}
}

func TestGlitchedWhenOrbitShorterThanIterations(t *testing.T) {
	// A reference that escapes quickly (c=2, Z = 0, 2, 6, ...) and a pixel
	// in the interior (c=0): at m=1 the pixel's z is 0 while |Z_1|^2 = 4,
	// which trips the Pauldelbrot criterion, and the rebase that follows
	// keeps m inside the short escaped orbit. The pixel must come back
	// glitched.
	ref := buildOrbit(t, "2.0", "0.0", 50)
	if ref.EscapedAt == nil {
		t.Fatal("expected reference c=2.0 to escape for this test setup")
	}

	deltaC := complexdelta.F64Complex{Re: -2.0, Im: 0}
	result := Step[complexdelta.F64Complex](ref, nil, deltaC, 200, testTauSq)

	if !result.Glitched {
		t.Error("expected pixel to be flagged glitched against the short escaped reference orbit")
	}
}

func TestEmptyOrbitIsGlitched(t *testing.T) {
	result := Step[complexdelta.F64Complex](orbit.Reference{}, nil, complexdelta.F64Complex{}, 100, testTauSq)
	if !result.Glitched {
		t.Error("expected empty orbit to produce a glitched pixel")
	}
}
