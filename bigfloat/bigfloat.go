// Package bigfloat provides arbitrary-precision signed floating point,
// used exclusively for reference-point coordinates and the reference-orbit
// inner loop. Everything downstream of the orbit (perturbation, BLA, tile
// rendering) runs on hdrfloat or plain float64 instead.
package bigfloat

import (
	"math"
	"math/big"

	"github.com/pkg/errors"
)

// Float is an arbitrary-precision signed float. Precision is a property of
// each value; binary operations lift to the greater of the two operand
// precisions and never alias their inputs.
type Float struct {
	v *big.Float
}

// Zero returns the zero value at the given precision (in bits).
func Zero(precision uint) Float {
	return Float{v: new(big.Float).SetPrec(precision)}
}

// FromFloat64 constructs a Float from a float64 at the given precision.
func FromFloat64(val float64, precision uint) Float {
	return Float{v: new(big.Float).SetPrec(precision).SetFloat64(val)}
}

// FromString parses a decimal string with arbitrary digit count at the
// given precision. Returns an error for malformed input.
func FromString(s string, precision uint) (Float, error) {
	f, _, err := big.ParseFloat(s, 10, precision, big.ToNearestEven)
	if err != nil {
		return Float{}, errors.Wrapf(err, "bigfloat: parse %q", s)
	}
	return Float{v: f}, nil
}

// Prec returns the value's precision in bits.
func (f Float) Prec() uint {
	if f.v == nil {
		return 0
	}
	return f.v.Prec()
}

func maxPrec(a, b Float) uint {
	if a.Prec() > b.Prec() {
		return a.Prec()
	}
	return b.Prec()
}

// Add returns f + other at precision max(f.Prec(), other.Prec()).
func (f Float) Add(other Float) Float {
	out := new(big.Float).SetPrec(maxPrec(f, other))
	out.Add(f.v, other.v)
	return Float{v: out}
}

// Sub returns f - other at precision max(f.Prec(), other.Prec()).
func (f Float) Sub(other Float) Float {
	out := new(big.Float).SetPrec(maxPrec(f, other))
	out.Sub(f.v, other.v)
	return Float{v: out}
}

// Mul returns f * other at precision max(f.Prec(), other.Prec()).
func (f Float) Mul(other Float) Float {
	out := new(big.Float).SetPrec(maxPrec(f, other))
	out.Mul(f.v, other.v)
	return Float{v: out}
}

// Gt reports whether f > other.
func (f Float) Gt(other Float) bool {
	return f.v.Cmp(other.v) > 0
}

// Equal reports whether f == other (exact comparison, not within epsilon).
func (f Float) Equal(other Float) bool {
	return f.v.Cmp(other.v) == 0
}

// Sign returns -1, 0, or +1 matching the sign of f.
func (f Float) Sign() int {
	return f.v.Sign()
}

// Log2Approx returns an approximate base-2 logarithm of |f| as a float64,
// used for precision-threshold decisions (e.g. whether a delta fits f64).
// log2(0) is defined here as -Inf, matching IEEE log2 semantics.
func (f Float) Log2Approx() float64 {
	if f.v.Sign() == 0 {
		return math.Inf(-1)
	}
	mantissa, exp := f.v.MantExp(nil)
	m, _ := mantissa.Float64()
	return float64(exp) + math.Log2(math.Abs(m))
}

// Float64 converts to float64, saturating to ±Inf outside double's range.
func (f Float) Float64() float64 {
	v, _ := f.v.Float64()
	return v
}

// MantExp decomposes f as mantissa * 2^exp, with mantissa in [0.5, 1) (or
// zero) as a float64 and exp a signed exponent that, unlike Float64, never
// saturates: big.Float's own exponent range vastly exceeds float64's,
// which is exactly why hdrfloat.FromBigFloat decomposes through this
// instead of through Float64.
func (f Float) MantExp() (float64, int64) {
	if f.v.Sign() == 0 {
		return 0, 0
	}
	mantissa := new(big.Float)
	exp := f.v.MantExp(mantissa)
	m, _ := mantissa.Float64()
	return m, int64(exp)
}

// String renders the value with enough digits to round-trip at its
// precision, used for lossless serialization across process boundaries.
func (f Float) String() string {
	digits := int(float64(f.Prec())*0.30103) + 2 // bits -> decimal digits, +guard
	return f.v.Text('g', digits)
}

// Complex is a pair of bigfloat.Float forming a complex number. It is used
// only for reference-point coordinates and the reference-orbit inner loop;
// it is intentionally NOT used for per-pixel perturbation iteration.
type Complex struct {
	Re, Im Float
}

// Add returns c + other.
func (c Complex) Add(other Complex) Complex {
	return Complex{Re: c.Re.Add(other.Re), Im: c.Im.Add(other.Im)}
}

// Sub returns c - other.
func (c Complex) Sub(other Complex) Complex {
	return Complex{Re: c.Re.Sub(other.Re), Im: c.Im.Sub(other.Im)}
}

// Mul returns c * other using the standard complex product.
func (c Complex) Mul(other Complex) Complex {
	return Complex{
		Re: c.Re.Mul(other.Re).Sub(c.Im.Mul(other.Im)),
		Im: c.Re.Mul(other.Im).Add(c.Im.Mul(other.Re)),
	}
}

// Square returns c * c.
func (c Complex) Square() Complex {
	return c.Mul(c)
}

// NormSq returns |c|^2 as a float64.
func (c Complex) NormSq() float64 {
	return c.Re.Mul(c.Re).Add(c.Im.Mul(c.Im)).Float64()
}

// Zero returns the zero value at the same precision as c. BigFloatComplex
// satisfies complexdelta.Delta so it is available for reference-orbit-style
// tests, even though the perturbation loop is never instantiated with it
// for per-pixel iteration (spec: BigFloat is reserved for orbit computation).
func (c Complex) Zero() Complex {
	p := c.Re.Prec()
	if p == 0 {
		p = 53
	}
	return Complex{Re: Zero(p), Im: Zero(p)}
}

// FromF64Pair constructs a Complex at the same precision as c.
func (c Complex) FromF64Pair(re, im float64) Complex {
	p := c.Re.Prec()
	if p == 0 {
		p = 53
	}
	return Complex{Re: FromFloat64(re, p), Im: FromFloat64(im, p)}
}

// ToF64Pair converts both components to float64.
func (c Complex) ToF64Pair() (float64, float64) {
	return c.Re.Float64(), c.Im.Float64()
}

// Scale multiplies both components by a plain double factor.
func (c Complex) Scale(factor float64) Complex {
	p := c.Re.Prec()
	if p == 0 {
		p = 53
	}
	f := FromFloat64(factor, p)
	return Complex{Re: c.Re.Mul(f), Im: c.Im.Mul(f)}
}
