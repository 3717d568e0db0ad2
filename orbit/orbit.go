// Package orbit computes arbitrary-precision reference orbits for
// perturbation rendering: the expensive BigFloat inner loop run once per
// reference point, whose results are stored as float64 pairs since orbit
// values stay bounded by the escape radius.
package orbit

import (
	"github.com/whalelogic/fractalwonder/bigfloat"
	"github.com/whalelogic/fractalwonder/fractalconfig"
)

// Reference is a pre-computed reference orbit.
type Reference struct {
	// CRef is the reference point, as a float64 pair.
	CRef [2]float64
	// Orbit holds pre-computed Z_n values as float64 pairs.
	Orbit [][2]float64
	// Derivative holds pre-computed Der_n = dZ_n/dC values as float64 pairs.
	Derivative [][2]float64
	// EscapedAt is the iteration at which the reference escaped, or nil if
	// it never escaped within the computed length.
	EscapedAt *uint32
}

// Len returns the number of orbit steps actually computed (may be less
// than maxIterations if the reference escaped early).
func (r Reference) Len() int {
	return len(r.Orbit)
}

// Compute runs the reference orbit at full BigFloat precision, storing
// results as float64 pairs. Stops early if the orbit escapes
// (|z|^2 > fractalconfig.EscapeRadiusSq).
func Compute(cRef bigfloat.Complex, maxIterations uint32) Reference {
	precision := cRef.Re.Prec()
	orbit := make([][2]float64, 0, maxIterations)
	derivative := make([][2]float64, 0, maxIterations)

	x := bigfloat.Zero(precision)
	y := bigfloat.Zero(precision)
	derX := bigfloat.Zero(precision)
	derY := bigfloat.Zero(precision)

	escapeRadiusSq := bigfloat.FromFloat64(fractalconfig.EscapeRadiusSq, precision)
	one := bigfloat.FromFloat64(1.0, precision)
	two := bigfloat.FromFloat64(2.0, precision)

	var escapedAt *uint32

	for n := uint32(0); n < maxIterations; n++ {
		orbit = append(orbit, [2]float64{x.Float64(), y.Float64()})
		derivative = append(derivative, [2]float64{derX.Float64(), derY.Float64()})

		xSq := x.Mul(x)
		ySq := y.Mul(y)
		if xSq.Add(ySq).Gt(escapeRadiusSq) {
			escapedAt = &n
			break
		}

		// Der' = 2*Z*Der + 1:
		//   re = 2*(x*der_x - y*der_y) + 1
		//   im = 2*(x*der_y + y*der_x)
		newDerX := two.Mul(x.Mul(derX).Sub(y.Mul(derY))).Add(one)
		newDerY := two.Mul(x.Mul(derY).Add(y.Mul(derX)))

		// z = z^2 + c
		newX := xSq.Sub(ySq).Add(cRef.Re)
		newY := two.Mul(x).Mul(y).Add(cRef.Im)

		x, y = newX, newY
		derX, derY = newDerX, newDerY
	}

	cx, cy := cRef.Re.Float64(), cRef.Im.Float64()
	return Reference{
		CRef:       [2]float64{cx, cy},
		Orbit:      orbit,
		Derivative: derivative,
		EscapedAt:  escapedAt,
	}
}
