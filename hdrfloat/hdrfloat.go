// Package hdrfloat implements an extended-range float: a double-precision
// mantissa paired with a wide signed exponent, for arithmetic outside
// IEEE-754 double's range. Used throughout the perturbation pixel loop and
// BLA table at deep zoom, where f64 itself would over/underflow.
package hdrfloat

import (
	"math"

	"github.com/whalelogic/fractalwonder/bigfloat"
)

// Float is mantissa * 2^exp, mantissa normalized to [1, 2) for non-zero
// values. Zero is the sentinel mantissa == 0 (exp is then irrelevant and
// always reported as 0).
type Float struct {
	mantissa float64
	exp      int64
}

// Zero is the additive identity.
var Zero = Float{}

func normalize(mantissa float64, exp int64) Float {
	if mantissa == 0 || math.IsNaN(mantissa) {
		return Float{}
	}
	neg := mantissa < 0
	m := math.Abs(mantissa)
	// frexp gives m in [0.5, 1); shift into [1, 2) and adjust exponent by -1.
	frac, e := math.Frexp(m)
	m = frac * 2
	exp += int64(e) - 1
	if neg {
		m = -m
	}
	return Float{mantissa: m, exp: exp}
}

// FromF64 constructs a Float from a float64.
func FromF64(v float64) Float {
	if v == 0 {
		return Zero
	}
	return normalize(v, 0)
}

// FromBigFloat extracts the leading ~53 bits of mantissa and the binary
// exponent from a bigfloat.Float via MantExp, not Float64: a bigfloat value
// at extreme zoom routinely carries an exponent far outside float64's
// range, which a Float64 round-trip would flush to zero or infinity before
// hdrfloat ever got a chance to represent it.
func FromBigFloat(bf bigfloat.Float) Float {
	m, e := bf.MantExp()
	if m == 0 {
		return Zero
	}
	return normalize(m, e)
}

// IsZero reports whether the value is the zero sentinel.
func (f Float) IsZero() bool {
	return f.mantissa == 0
}

// ToF64 converts to float64, saturating to ±Inf/0 for extreme exponents.
func (f Float) ToF64() float64 {
	if f.IsZero() {
		return 0
	}
	if f.exp > 1023 {
		if f.mantissa > 0 {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	if f.exp < -1074 {
		return 0
	}
	return math.Ldexp(f.mantissa, int(f.exp))
}

// Add returns f + other. If the exponent gap exceeds the mantissa's
// precision, the smaller operand is dropped entirely: HDR trades precision
// for range, by design (spec §4.2).
func (f Float) Add(other Float) Float {
	if f.IsZero() {
		return other
	}
	if other.IsZero() {
		return f
	}
	hi, lo := f, other
	if lo.exp > hi.exp {
		hi, lo = lo, hi
	}
	gap := hi.exp - lo.exp
	if gap > 53 {
		return hi
	}
	loShifted := math.Ldexp(lo.mantissa, int(lo.exp-hi.exp))
	return normalize(hi.mantissa+loShifted, hi.exp)
}

// Sub returns f - other.
func (f Float) Sub(other Float) Float {
	return f.Add(other.Negate())
}

// Negate returns -f.
func (f Float) Negate() Float {
	if f.IsZero() {
		return f
	}
	return Float{mantissa: -f.mantissa, exp: f.exp}
}

// Mul returns f * other.
func (f Float) Mul(other Float) Float {
	if f.IsZero() || other.IsZero() {
		return Zero
	}
	return normalize(f.mantissa*other.mantissa, f.exp+other.exp)
}

// Square returns f * f.
func (f Float) Square() Float {
	if f.IsZero() {
		return Zero
	}
	return normalize(f.mantissa*f.mantissa, f.exp*2)
}

// MulF64 scales f by a plain double, exactly when factor is a power of two
// (handled by the general path below; powers of two are just a cheap case
// of the same normalization).
func (f Float) MulF64(factor float64) Float {
	if f.IsZero() || factor == 0 {
		return Zero
	}
	return normalize(f.mantissa*factor, f.exp)
}

// Sqrt returns sqrt(f). Negative inputs return the zero sentinel since this
// type has no complex-valued members; callers must not call Sqrt on a
// negative magnitude (norm-squared values are always >= 0).
func (f Float) Sqrt() Float {
	if f.IsZero() {
		return Zero
	}
	if f.mantissa < 0 {
		return Zero
	}
	exp := f.exp
	mantissa := f.mantissa
	if exp%2 != 0 {
		// Keep the mantissa in a range sqrt can normalize cleanly for odd
		// exponents by borrowing one power of two into the mantissa.
		mantissa *= 2
		exp--
	}
	return normalize(math.Sqrt(mantissa), exp/2)
}

// Div returns f / other. Dividing a non-zero value by zero returns ±Inf held
// in the mantissa with exp 0, the one non-zero result whose mantissa is not
// in [1, 2).
func (f Float) Div(other Float) Float {
	if f.IsZero() {
		return Zero
	}
	if other.IsZero() {
		if f.mantissa > 0 {
			return Float{mantissa: math.Inf(1), exp: 0}
		}
		return Float{mantissa: math.Inf(-1), exp: 0}
	}
	return normalize(f.mantissa/other.mantissa, f.exp-other.exp)
}

// Cmp returns -1, 0, +1 as f is less than, equal to, or greater than other.
func (f Float) Cmp(other Float) int {
	d := f.Sub(other)
	if d.IsZero() {
		return 0
	}
	if d.mantissa < 0 {
		return -1
	}
	return 1
}

// Gt reports whether f > other.
func (f Float) Gt(other Float) bool {
	return f.Cmp(other) > 0
}

// Lt reports whether f < other.
func (f Float) Lt(other Float) bool {
	return f.Cmp(other) < 0
}

// Sign returns -1, 0, or +1 matching the sign of f.
func (f Float) Sign() int {
	if f.IsZero() {
		return 0
	}
	if f.mantissa < 0 {
		return -1
	}
	return 1
}

// Log2 returns exponent + log2(mantissa) as a double; used by
// fractalconfig.IsBlaUseful to decide whether a BLA table is built.
func (f Float) Log2() float64 {
	if f.IsZero() {
		return math.Inf(-1)
	}
	return float64(f.exp) + math.Log2(math.Abs(f.mantissa))
}
