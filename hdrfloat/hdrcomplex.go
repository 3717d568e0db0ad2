package hdrfloat

// Complex is a complex number with HDRFloat components, used for per-pixel
// perturbation arithmetic at zoom depths where plain float64 deltas would
// under/overflow.
type Complex struct {
	Re, Im Float
}

// ZeroComplex is the additive identity.
var ZeroComplex = Complex{}

// Zero returns the additive identity, satisfying complexdelta.Delta.
func (Complex) Zero() Complex { return ZeroComplex }

// Add returns c + other.
func (c Complex) Add(other Complex) Complex {
	return Complex{Re: c.Re.Add(other.Re), Im: c.Im.Add(other.Im)}
}

// Sub returns c - other.
func (c Complex) Sub(other Complex) Complex {
	return Complex{Re: c.Re.Sub(other.Re), Im: c.Im.Sub(other.Im)}
}

// Mul returns c * other: (a+bi)(c+di) = (ac-bd) + (ad+bc)i.
func (c Complex) Mul(other Complex) Complex {
	return Complex{
		Re: c.Re.Mul(other.Re).Sub(c.Im.Mul(other.Im)),
		Im: c.Re.Mul(other.Im).Add(c.Im.Mul(other.Re)),
	}
}

// Square returns c * c, exploiting the exact-by-exponent-increment doubling
// for the cross term: (a+bi)^2 = (a^2-b^2) + 2ab*i.
func (c Complex) Square() Complex {
	reSq := c.Re.Square()
	imSq := c.Im.Square()
	reIm := c.Re.Mul(c.Im)
	twoReIm := Float{mantissa: reIm.mantissa, exp: reIm.exp + 1}
	if reIm.IsZero() {
		twoReIm = Zero
	}
	return Complex{Re: reSq.Sub(imSq), Im: twoReIm}
}

// Scale returns c * factor for a plain double factor.
func (c Complex) Scale(factor float64) Complex {
	return Complex{Re: c.Re.MulF64(factor), Im: c.Im.MulF64(factor)}
}

// NormSq returns |c|^2 as a float64, bounded since escape testing only
// needs a plain double comparison against the escape radius.
func (c Complex) NormSq() float64 {
	return c.Re.Square().Add(c.Im.Square()).ToF64()
}

// NormSqHDR returns |c|^2 as a Float, for BLA math where values may exceed
// float64's range.
func (c Complex) NormSqHDR() Float {
	return c.Re.Square().Add(c.Im.Square())
}

// NormHDR returns |c| as a Float.
func (c Complex) NormHDR() Float {
	return c.NormSqHDR().Sqrt()
}

// IsZero reports whether both components are the zero sentinel.
func (c Complex) IsZero() bool {
	return c.Re.IsZero() && c.Im.IsZero()
}

// FromF64Pair constructs a Complex from a float64 pair, satisfying the
// complexdelta.Delta zero/construction requirements.
func FromF64Pair(re, im float64) Complex {
	return Complex{Re: FromF64(re), Im: FromF64(im)}
}

// FromF64Pair is the method form required by complexdelta.Delta.
func (Complex) FromF64Pair(re, im float64) Complex {
	return FromF64Pair(re, im)
}

// ToF64Pair converts back to a float64 pair.
func (c Complex) ToF64Pair() (float64, float64) {
	return c.Re.ToF64(), c.Im.ToF64()
}
