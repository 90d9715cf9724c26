package decimal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstate-labs/predengine/xerrors"
)

func TestAddIsExactNotFloat(t *testing.T) {
	sum := MustFrom("0.1").Add(MustFrom("0.2"))
	assert.True(t, sum.Eq(MustFrom("0.3")), "0.1+0.2 must equal 0.3 exactly, got %s", sum)
}

func TestAddIsCommutative(t *testing.T) {
	a := MustFrom("1.23456789")
	b := MustFrom("-9.87654321")
	assert.True(t, a.Add(b).Eq(b.Add(a)))
}

func TestMulThenDivRoundTrips(t *testing.T) {
	a := MustFrom("7.5")
	b := MustFrom("3")
	result := a.Mul(b).Div(b)
	require.True(t, result.IsOk())
	assert.True(t, result.Unwrap().Eq(a))
}

func TestDivByZeroFails(t *testing.T) {
	result := MustFrom("1").Div(Zero)
	require.True(t, result.IsErr())
	te, ok := xerrors.As(result.UnwrapErr())
	require.True(t, ok)
	assert.Equal(t, xerrors.KindDivByZero, te.Kind())
}

func TestDivOrFallsBackOnZeroDivisor(t *testing.T) {
	got := MustFrom("1").DivOr(Zero, MustFrom("-1"))
	assert.True(t, got.Eq(MustFrom("-1")))
}

func TestFromRejectsEmptyAndNonFiniteLiterals(t *testing.T) {
	for _, s := range []string{"", "NaN", "Inf", "-Inf"} {
		result := From(s)
		assert.True(t, result.IsErr(), "expected %q to fail parsing", s)
	}
}

func TestFromAcceptsOrdinaryLiteral(t *testing.T) {
	result := From("42.5")
	require.True(t, result.IsOk())
	assert.Equal(t, "42.5", result.Unwrap().String())
}

func TestCmpOrdering(t *testing.T) {
	assert.True(t, MustFrom("1").Lt(MustFrom("2")))
	assert.True(t, MustFrom("2").Gt(MustFrom("1")))
	assert.True(t, MustFrom("1").Lte(MustFrom("1")))
	assert.True(t, MustFrom("1").Gte(MustFrom("1")))
}

func TestClampBoundsValue(t *testing.T) {
	lo, hi := MustFrom("0"), MustFrom("1")
	assert.True(t, Clamp(MustFrom("-5"), lo, hi).Eq(lo))
	assert.True(t, Clamp(MustFrom("5"), lo, hi).Eq(hi))
	assert.True(t, Clamp(MustFrom("0.5"), lo, hi).Eq(MustFrom("0.5")))
}

func TestMarshalUnmarshalJSONRoundTrips(t *testing.T) {
	d := MustFrom("123.456")
	raw, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"123.456"`, string(raw))

	var out Decimal
	require.NoError(t, out.UnmarshalJSON(raw))
	assert.True(t, out.Eq(d))

	var fromBareNumber Decimal
	require.NoError(t, fromBareNumber.UnmarshalJSON([]byte("7")))
	assert.True(t, fromBareNumber.Eq(FromInt(7)))
}

func TestSqrtRejectsNegative(t *testing.T) {
	result := MustFrom("-1").Sqrt()
	assert.True(t, result.IsErr())
}

func TestPowHandlesNegativeExponent(t *testing.T) {
	got := MustFrom("2").Pow(-1)
	assert.True(t, got.Eq(MustFrom("0.5")))
}
