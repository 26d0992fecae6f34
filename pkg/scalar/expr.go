// Package scalar models scalar expressions: literals, field references
// and operator calls, together with the operator descriptors and scalar
// types they are built from. Expression trees are acyclic, finite and
// treated as immutable once constructed; rewrites build replacement
// trees instead of mutating in place.
package scalar

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Expr is a scalar expression node. The variant set is closed: Literal,
// FieldRef and Call.
type Expr interface {
	// Type returns the expression's declared type. Types are always set
	// explicitly at construction; nothing here re-infers them.
	Type() Type
	String() string

	isExpr()
}

var (
	_ Expr = (*Literal)(nil)
	_ Expr = (*FieldRef)(nil)
	_ Expr = (*Call)(nil)
)

// Literal is a constant value. Numeric values are carried as
// decimal.Decimal so exact integer and fixed-point literals survive
// round-trips undamaged; character and temporal values are carried as
// text.
type Literal struct {
	typ Type
	num decimal.Decimal
	str string
	b   bool
}

// NewStringLiteral returns a varchar literal.
func NewStringLiteral(s string) *Literal {
	return &Literal{typ: Varchar, str: s}
}

// NewBoolLiteral returns a boolean literal.
func NewBoolLiteral(v bool) *Literal {
	return &Literal{typ: Boolean, b: v}
}

// NewBigintLiteral returns a bigint literal.
func NewBigintLiteral(v int64) *Literal {
	return &Literal{typ: Bigint, num: decimal.NewFromInt(v)}
}

// NewDoubleLiteral returns a double literal.
func NewDoubleLiteral(v float64) *Literal {
	return &Literal{typ: Double, num: decimal.NewFromFloat(v)}
}

// NewNumericLiteral returns a literal of the given numeric type.
func NewNumericLiteral(v decimal.Decimal, t Type) *Literal {
	return &Literal{typ: t, num: v}
}

// NewTemporalLiteral returns a date or timestamp literal from its text
// form.
func NewTemporalLiteral(text string, t Type) *Literal {
	return &Literal{typ: t, str: text}
}

func (l *Literal) isExpr() {}

// Type returns the literal's type.
func (l *Literal) Type() Type { return l.typ }

// Numeric returns the value of a numeric literal.
func (l *Literal) Numeric() decimal.Decimal { return l.num }

// Text returns the value of a character or temporal literal.
func (l *Literal) Text() string { return l.str }

// Bool returns the value of a boolean literal.
func (l *Literal) Bool() bool { return l.b }

func (l *Literal) String() string {
	switch l.typ.Family() {
	case FamilyNumeric:
		return l.num.String()
	case FamilyBoolean:
		if l.b {
			return "TRUE"
		}
		return "FALSE"
	case FamilyTemporal:
		return fmt.Sprintf("%s '%s'", l.typ.Tag, l.str)
	default:
		return "'" + strings.ReplaceAll(l.str, "'", "''") + "'"
	}
}

// FieldRef refers to a field of the input row by ordinal, optionally
// carrying the field's name for rendering.
type FieldRef struct {
	ordinal int
	name    string
	typ     Type
}

// NewFieldRef returns a reference to the input field at the given
// ordinal.
func NewFieldRef(ordinal int, t Type) *FieldRef {
	return &FieldRef{ordinal: ordinal, typ: t}
}

// NewNamedFieldRef returns a field reference that renders with a name.
func NewNamedFieldRef(name string, ordinal int, t Type) *FieldRef {
	return &FieldRef{ordinal: ordinal, name: name, typ: t}
}

func (f *FieldRef) isExpr() {}

// Type returns the referenced field's type.
func (f *FieldRef) Type() Type { return f.typ }

// Ordinal returns the referenced field's position.
func (f *FieldRef) Ordinal() int { return f.ordinal }

// Name returns the referenced field's name, if known.
func (f *FieldRef) Name() string { return f.name }

func (f *FieldRef) String() string {
	if f.name != "" {
		return f.name
	}
	return fmt.Sprintf("$%d", f.ordinal)
}

// Call applies an operator to an ordered operand list. The declared
// return type is stored on the call, never recomputed.
type Call struct {
	op       *Operator
	typ      Type
	operands []Expr
}

// NewCall constructs a call with an explicit declared type. It trusts
// the caller; the Builder is the checked construction path.
func NewCall(op *Operator, t Type, operands ...Expr) *Call {
	return &Call{op: op, typ: t, operands: operands}
}

func (c *Call) isExpr() {}

// Op returns the call's operator descriptor.
func (c *Call) Op() *Operator { return c.op }

// Type returns the call's declared return type.
func (c *Call) Type() Type { return c.typ }

// Operands returns the call's operand list. Callers must not mutate it.
func (c *Call) Operands() []Expr { return c.operands }

// Arity returns the number of operands.
func (c *Call) Arity() int { return len(c.operands) }

// symbolic operator names render infix when binary.
func symbolic(name string) bool {
	switch name {
	case "+", "-", "*", "/", "%", "=", "<>", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func (c *Call) String() string {
	switch c.op.Kind() {
	case OpCast:
		return fmt.Sprintf("CAST(%s AS %s)", c.operand(0), c.typ)
	case OpTryCast:
		return fmt.Sprintf("TRY_CAST(%s AS %s)", c.operand(0), c.typ)
	case OpArrayConstructor:
		return "ARRAY[" + c.operandList() + "]"
	case OpMapConstructor:
		return "MAP(" + c.operandList() + ")"
	}
	if len(c.operands) == 2 && symbolic(c.op.Name()) {
		return fmt.Sprintf("(%s %s %s)", c.operands[0], c.op.Name(), c.operands[1])
	}
	return c.op.Name() + "(" + c.operandList() + ")"
}

func (c *Call) operand(i int) string {
	if i >= len(c.operands) {
		return "?"
	}
	return c.operands[i].String()
}

func (c *Call) operandList() string {
	parts := make([]string, len(c.operands))
	for i, o := range c.operands {
		parts[i] = o.String()
	}
	return strings.Join(parts, ", ")
}
