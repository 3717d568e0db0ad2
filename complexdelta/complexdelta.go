// Package complexdelta defines the capability every perturbation delta type
// (float64, hdrfloat.Complex, bigfloat.Complex) must satisfy so the
// perturbation loop can be written once and instantiated per numeric kind
// via Go generics, rather than duplicated or dispatched dynamically per
// pixel.
package complexdelta

// Delta is the operation set the perturbation loop needs from a complex
// delta type T. Implementations are value types; every method returns a
// new value rather than mutating the receiver.
type Delta[T any] interface {
	// Zero returns the additive identity for this kind.
	Zero() T
	// FromF64Pair constructs a value of this kind from a float64 pair.
	FromF64Pair(re, im float64) T
	// ToF64Pair converts back to a float64 pair (used for escape output).
	ToF64Pair() (float64, float64)
	Add(other T) T
	Sub(other T) T
	Mul(other T) T
	// Scale multiplies by a plain double factor.
	Scale(factor float64) T
	Square() T
	// NormSq returns |value|^2 as a float64, used for escape/glitch tests.
	NormSq() float64
}

// F64Complex is the plain float64 complex-delta kind, the fast path used
// whenever |delta_c| comfortably fits double range.
type F64Complex struct {
	Re, Im float64
}

// Zero returns the zero value.
func (F64Complex) Zero() F64Complex { return F64Complex{} }

// FromF64Pair constructs an F64Complex from a float64 pair.
func (F64Complex) FromF64Pair(re, im float64) F64Complex {
	return F64Complex{Re: re, Im: im}
}

// ToF64Pair returns (Re, Im).
func (c F64Complex) ToF64Pair() (float64, float64) { return c.Re, c.Im }

// Add returns c + other.
func (c F64Complex) Add(other F64Complex) F64Complex {
	return F64Complex{Re: c.Re + other.Re, Im: c.Im + other.Im}
}

// Sub returns c - other.
func (c F64Complex) Sub(other F64Complex) F64Complex {
	return F64Complex{Re: c.Re - other.Re, Im: c.Im - other.Im}
}

// Mul returns the complex product c * other.
func (c F64Complex) Mul(other F64Complex) F64Complex {
	return F64Complex{
		Re: c.Re*other.Re - c.Im*other.Im,
		Im: c.Re*other.Im + c.Im*other.Re,
	}
}

// Scale returns c * factor.
func (c F64Complex) Scale(factor float64) F64Complex {
	return F64Complex{Re: c.Re * factor, Im: c.Im * factor}
}

// Square returns c * c.
func (c F64Complex) Square() F64Complex {
	return F64Complex{
		Re: c.Re*c.Re - c.Im*c.Im,
		Im: 2 * c.Re * c.Im,
	}
}

// NormSq returns |c|^2.
func (c F64Complex) NormSq() float64 {
	return c.Re*c.Re + c.Im*c.Im
}
