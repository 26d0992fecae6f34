package scalar

import "github.com/cockroachdb/errors"

// Builder is the checked construction path for expressions built during
// a rewrite. Every method validates its inputs and returns an error
// rather than producing a malformed node; builder failures are the only
// error source inside the rewrite rules.
type Builder struct{}

// NewBuilder returns an expression builder.
func NewBuilder() *Builder { return &Builder{} }

// Call builds a call whose declared type comes from the operator's
// return-type rule.
func (b *Builder) Call(op *Operator, operands ...Expr) (Expr, error) {
	if err := checkCall(op, operands); err != nil {
		return nil, err
	}
	t, ok := op.ReturnType(operands)
	if !ok {
		return nil, errors.Newf("call %s: operator has no return-type rule", op.Name())
	}
	return NewCall(op, t, operands...), nil
}

// TypedCall builds a call with an explicit declared type, for operators
// whose result type is decided per call site.
func (b *Builder) TypedCall(op *Operator, t Type, operands ...Expr) (Expr, error) {
	if err := checkCall(op, operands); err != nil {
		return nil, err
	}
	if t.Tag == TagUnknown {
		return nil, errors.Newf("call %s: unknown result type", op.Name())
	}
	return NewCall(op, t, operands...), nil
}

// Cast builds an explicit cast of operand to the target type.
func (b *Builder) Cast(target Type, operand Expr) (Expr, error) {
	if err := checkCast("cast", target, operand); err != nil {
		return nil, err
	}
	return NewCall(CastOperator, target, operand), nil
}

// TryCast builds a safe cast that yields null instead of failing at
// evaluation time. Plan-time castability rules are the same as Cast's.
func (b *Builder) TryCast(target Type, operand Expr) (Expr, error) {
	if err := checkCast("try_cast", target, operand); err != nil {
		return nil, err
	}
	return NewCall(TryCastOperator, target, operand), nil
}

func checkCall(op *Operator, operands []Expr) error {
	if op == nil {
		return errors.New("call: nil operator")
	}
	if a := op.Arity(); a != Variadic && a != len(operands) {
		return errors.Newf("call %s: want %d operands, have %d", op.Name(), a, len(operands))
	}
	for i, o := range operands {
		if o == nil {
			return errors.Newf("call %s: nil operand at position %d", op.Name(), i)
		}
	}
	return nil
}

func checkCast(verb string, target Type, operand Expr) error {
	if operand == nil {
		return errors.Newf("%s: nil operand", verb)
	}
	if target.Tag == TagUnknown {
		return errors.Newf("%s: unknown target type", verb)
	}
	if !castable(operand.Type(), target) {
		return errors.Newf("%s: cannot convert %s to %s", verb, operand.Type(), target)
	}
	return nil
}

// castable enforces the target engine's conversion lattice: character
// values parse to anything, numerics and booleans interconvert and
// render as text, temporals only move within their family or to text.
func castable(from, to Type) bool {
	if from.Tag == to.Tag {
		return true
	}
	switch from.Family() {
	case FamilyCharacter:
		return true
	case FamilyNumeric:
		switch to.Family() {
		case FamilyNumeric, FamilyCharacter, FamilyBoolean:
			return true
		}
	case FamilyBoolean:
		switch to.Family() {
		case FamilyBoolean, FamilyCharacter, FamilyNumeric:
			return true
		}
	case FamilyTemporal:
		switch to.Family() {
		case FamilyTemporal, FamilyCharacter:
			return true
		}
	}
	return false
}
