// Package decimal wraps github.com/shopspring/decimal with the exact,
// Result-returning arithmetic the engine's value math requires: no silent
// IEEE-754 rounding, explicit failure on divide-by-zero and invalid
// construction, and extended transcendental ops for the few places that need
// them (ProfitLocker drawdown curves, sizing heuristics).
package decimal

import (
	"fmt"
	"math"
	"math/big"

	shopspring "github.com/shopspring/decimal"

	"github.com/flowstate-labs/predengine/xerrors"
	"github.com/flowstate-labs/predengine/xresult"
)

func init() {
	shopspring.DivisionPrecision = 40
}

// Decimal is an immutable arbitrary-precision signed decimal. Every method
// returns a fresh value; the zero value is a valid representation of zero.
type Decimal struct {
	d shopspring.Decimal
}

var (
	Zero = Decimal{d: shopspring.Zero}
	One  = Decimal{d: shopspring.NewFromInt(1)}
)

// From parses a decimal from its string representation. Empty, whitespace,
// or non-finite ("NaN", "Inf") input fails with xerrors.KindInvalidCandle's
// sibling — InvalidCandle is reserved for candles, so From reports Config to
// signal a bad literal at construction time.
func From(s string) xresult.Result[Decimal] {
	if s == "" {
		return xresult.Err[Decimal](xerrors.New(xerrors.KindConfig, "decimal: empty numeric literal"))
	}
	switch s {
	case "NaN", "nan", "Inf", "-Inf", "+Inf", "inf", "-inf":
		return xresult.Err[Decimal](xerrors.New(xerrors.KindConfig, "decimal: non-finite literal %q", s))
	}
	d, err := shopspring.NewFromString(s)
	if err != nil {
		return xresult.Err[Decimal](xerrors.Wrap(xerrors.KindConfig, err, "decimal: parse %q", s))
	}
	return xresult.Ok(Decimal{d: d})
}

// MustFrom parses s and panics on failure. Reserved for test/bench code and
// literal constants at system boundaries, per the source's "no runtime
// exceptions for validation" redesign rule.
func MustFrom(s string) Decimal {
	r := From(s)
	return r.Unwrap()
}

// FromInt builds an exact decimal from an integer.
func FromInt(i int64) Decimal { return Decimal{d: shopspring.NewFromInt(i)} }

// FromFloat builds a decimal from a float64. This is inherently lossy for
// values that aren't exactly representable in binary floating point; prefer
// From/FromInt wherever the literal is known at compile time.
func FromFloat(f float64) Decimal { return Decimal{d: shopspring.NewFromFloat(f)} }

func (a Decimal) String() string { return a.d.String() }

// ToFixed rounds half-up to n fractional digits and renders it.
func (a Decimal) ToFixed(n int32) string { return a.d.StringFixed(n) }

// ToNumber is a best-effort, lossy conversion to float64.
func (a Decimal) ToNumber() float64 {
	f, _ := a.d.Float64()
	return f
}

func (a Decimal) Add(b Decimal) Decimal { return Decimal{d: a.d.Add(b.d)} }
func (a Decimal) Sub(b Decimal) Decimal { return Decimal{d: a.d.Sub(b.d)} }
func (a Decimal) Mul(b Decimal) Decimal { return Decimal{d: a.d.Mul(b.d)} }
func (a Decimal) Neg() Decimal          { return Decimal{d: a.d.Neg()} }
func (a Decimal) Abs() Decimal         { return Decimal{d: a.d.Abs()} }

// Div fails with xerrors.KindDivByZero rather than panicking.
func (a Decimal) Div(b Decimal) xresult.Result[Decimal] {
	if b.IsZero() {
		return xresult.Err[Decimal](xerrors.New(xerrors.KindDivByZero, "decimal: division by zero"))
	}
	return xresult.Ok(Decimal{d: a.d.DivRound(b.d, 40)})
}

// DivOr divides and falls back to orElse when the divisor is zero. Useful at
// call sites that have an established "balance=0 => allow" convention
// (GuardPipeline's Exposure guard) rather than threading Result everywhere.
func (a Decimal) DivOr(b, orElse Decimal) Decimal {
	r := a.Div(b)
	if r.IsErr() {
		return orElse
	}
	return r.Unwrap()
}

func (a Decimal) Cmp(b Decimal) int                 { return a.d.Cmp(b.d) }
func (a Decimal) Eq(b Decimal) bool                 { return a.d.Equal(b.d) }
func (a Decimal) Gt(b Decimal) bool                 { return a.d.GreaterThan(b.d) }
func (a Decimal) Gte(b Decimal) bool                { return a.d.GreaterThanOrEqual(b.d) }
func (a Decimal) Lt(b Decimal) bool                 { return a.d.LessThan(b.d) }
func (a Decimal) Lte(b Decimal) bool                { return a.d.LessThanOrEqual(b.d) }
func (a Decimal) IsZero() bool                      { return a.d.IsZero() }
func (a Decimal) IsPositive() bool                  { return a.d.IsPositive() }
func (a Decimal) IsNegative() bool                  { return a.d.IsNegative() }

// Max returns the greater of a, b.
func Max(a, b Decimal) Decimal {
	if a.Gt(b) {
		return a
	}
	return b
}

// Min returns the lesser of a, b.
func Min(a, b Decimal) Decimal {
	if a.Lt(b) {
		return a
	}
	return b
}

// Clamp bounds a to [lo, hi].
func Clamp(a, lo, hi Decimal) Decimal {
	if a.Lt(lo) {
		return lo
	}
	if a.Gt(hi) {
		return hi
	}
	return a
}

// Pow raises a to an integer power using exact repeated multiplication — no
// float fallback needed since the exponent is a small whole number in every
// call site (position sizing curves, compounding).
func (a Decimal) Pow(n int) Decimal {
	if n == 0 {
		return One
	}
	neg := n < 0
	if neg {
		n = -n
	}
	result := One
	base := a
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		n >>= 1
	}
	if neg {
		return One.DivOr(result, Zero)
	}
	return result
}

// Sqrt falls back to float64 math, as spec.md 4.1 explicitly permits for
// transcendentals. Fails with xerrors.KindConfig on a negative operand
// (there is no InvalidCandle-style dedicated kind for this case).
func (a Decimal) Sqrt() xresult.Result[Decimal] {
	if a.IsNegative() {
		return xresult.Err[Decimal](xerrors.New(xerrors.KindConfig, "decimal: sqrt of negative value"))
	}
	f := a.ToNumber()
	return xresult.Ok(FromFloat(math.Sqrt(f)))
}

// Ln fails on non-positive operands.
func (a Decimal) Ln() xresult.Result[Decimal] {
	if !a.IsPositive() {
		return xresult.Err[Decimal](xerrors.New(xerrors.KindConfig, "decimal: ln of non-positive value"))
	}
	return xresult.Ok(FromFloat(math.Log(a.ToNumber())))
}

// Exp falls back to float64 math.
func (a Decimal) Exp() Decimal {
	return FromFloat(math.Exp(a.ToNumber()))
}

// Rat exposes the exact rational form for callers needing arbitrary external
// precision (e.g. serializing to a bignum-aware store).
func (a Decimal) Rat() *big.Rat {
	r := new(big.Rat)
	r.SetString(a.d.String())
	return r
}

// MarshalJSON renders the decimal as a JSON string, matching spec.md's
// "Decimal values serialized as JSON strings" wire rule for the journal and
// any other persisted representation.
func (a Decimal) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", a.d.String())), nil
}

// UnmarshalJSON accepts either a JSON string or a bare JSON number, since
// external feeds (book_update price fields) aren't guaranteed to quote them.
func (a *Decimal) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	r := From(s)
	if r.IsErr() {
		return r.UnwrapErr()
	}
	*a = r.Unwrap()
	return nil
}
