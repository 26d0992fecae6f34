package scalar

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiteralRendering(t *testing.T) {
	tests := []struct {
		name string
		lit  *Literal
		want string
	}{
		{name: "string", lit: NewStringLiteral("UTC"), want: "'UTC'"},
		{name: "string with quote", lit: NewStringLiteral("o'clock"), want: "'o''clock'"},
		{name: "bool true", lit: NewBoolLiteral(true), want: "TRUE"},
		{name: "bool false", lit: NewBoolLiteral(false), want: "FALSE"},
		{name: "bigint", lit: NewBigintLiteral(1000000), want: "1000000"},
		{name: "double", lit: NewDoubleLiteral(1.5), want: "1.5"},
		{name: "decimal", lit: NewNumericLiteral(decimal.RequireFromString("12.34"), Decimal.WithPrecision(4).WithScale(2)), want: "12.34"},
		{name: "date", lit: NewTemporalLiteral("2024-06-01", Date), want: "DATE '2024-06-01'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lit.String())
		})
	}
}

func TestFieldRefRendering(t *testing.T) {
	assert.Equal(t, "$2", NewFieldRef(2, Bigint).String())
	assert.Equal(t, "created_at", NewNamedFieldRef("created_at", 0, Timestamp).String())
	assert.Equal(t, Bigint, NewFieldRef(2, Bigint).Type())
}

func TestCallRendering(t *testing.T) {
	x := NewNamedFieldRef("x", 0, Bigint)
	s := NewNamedFieldRef("s", 1, Varchar)

	eq := NewOperator("=", OpEquals, 2, FixedReturn(Boolean))
	mul := NewBuiltin("*", OpFunction, 2, OperandReturn(0))
	fn := NewBuiltin("from_unixtime", OpFunction, 1, FixedReturn(Timestamp))
	arr := NewBuiltin("array", OpArrayConstructor, Variadic, nil)
	mp := NewBuiltin("map", OpMapConstructor, Variadic, nil)

	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{name: "function", expr: NewCall(fn, Timestamp, x), want: "from_unixtime(x)"},
		{name: "equality infix", expr: NewCall(eq, Boolean, s, x), want: "(s = x)"},
		{name: "multiply infix", expr: NewCall(mul, Bigint, x, NewBigintLiteral(1000000)), want: "(x * 1000000)"},
		{name: "cast", expr: NewCall(CastOperator, Bigint, s), want: "CAST(s AS BIGINT)"},
		{name: "try cast", expr: NewCall(TryCastOperator, Bigint, s), want: "TRY_CAST(s AS BIGINT)"},
		{name: "array", expr: NewCall(arr, Array, x, s), want: "ARRAY[x, s]"},
		{name: "empty array", expr: NewCall(arr, Array), want: "ARRAY[]"},
		{name: "map", expr: NewCall(mp, Map, s, x), want: "MAP(s, x)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.String())
		})
	}
}

func TestCallAccessors(t *testing.T) {
	fn := NewBuiltin("to_unixtime", OpFunction, 1, FixedReturn(Double))
	ts := NewFieldRef(0, Timestamp)
	call := NewCall(fn, Double, ts)

	require.Equal(t, fn, call.Op())
	assert.Equal(t, Double, call.Type())
	assert.Equal(t, 1, call.Arity())
	assert.Same(t, Expr(ts), call.Operands()[0])
	assert.True(t, call.Op().IsBuiltin())
}

func TestOperatorReturnType(t *testing.T) {
	x := NewFieldRef(0, Bigint)

	fixed := NewBuiltin("random", OpFunction, 0, FixedReturn(Double))
	got, ok := fixed.ReturnType(nil)
	require.True(t, ok)
	assert.Equal(t, Double, got)

	passthrough := NewBuiltin("coalesce", OpFunction, Variadic, OperandReturn(0))
	got, ok = passthrough.ReturnType([]Expr{x})
	require.True(t, ok)
	assert.Equal(t, Bigint, got)

	_, ok = passthrough.ReturnType(nil)
	assert.False(t, ok)

	bare := NewOperator("mystery", OpFunction, 1, nil)
	_, ok = bare.ReturnType([]Expr{x})
	assert.False(t, ok)
}
