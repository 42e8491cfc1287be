package engine

import (
	"fmt"
	"math"
	"math/big"
)

// NoPTS marks a timestamp that was never set.
const NoPTS int64 = math.MinInt64

// Rational is a fraction used for time bases and frame rates.
type Rational struct {
	Num int
	Den int
}

// NewRational returns num/den.
func NewRational(num, den int) Rational {
	return Rational{Num: num, Den: den}
}

// Valid reports whether the rational has a non-zero numerator and denominator.
func (r Rational) Valid() bool { return r.Num != 0 && r.Den != 0 }

// Float64 returns the value of r, or 0 when the denominator is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Invert returns den/num.
func (r Rational) Invert() Rational { return Rational{Num: r.Den, Den: r.Num} }

func (r Rational) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// Rescale converts v ticks of r into ticks of dst. The result is rounded to
// the nearest integer with halfway cases away from zero. ok is false when dst
// (or r) cannot express the conversion or the result overflows int64.
func (r Rational) Rescale(v int64, dst Rational) (int64, bool) {
	b := int64(r.Num) * int64(dst.Den)
	c := int64(r.Den) * int64(dst.Num)
	if c == 0 {
		return 0, false
	}
	return rescaleNearest(v, b, c)
}

// RescaleTS is Rescale that passes NoPTS through untouched.
func (r Rational) RescaleTS(v int64, dst Rational) int64 {
	if v == NoPTS {
		return NoPTS
	}
	out, ok := r.Rescale(v, dst)
	if !ok {
		return NoPTS
	}
	return out
}

func rescaleNearest(a, b, c int64) (int64, bool) {
	num := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	den := big.NewInt(c)
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}
	neg := num.Sign() < 0
	num.Abs(num)
	num.Add(num, new(big.Int).Rsh(den, 1))
	num.Quo(num, den)
	if neg {
		num.Neg(num)
	}
	if !num.IsInt64() || num.Int64() == NoPTS {
		return 0, false
	}
	return num.Int64(), true
}
