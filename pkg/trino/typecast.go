package trino

import "github.com/planshift/planshift/pkg/scalar"

// castCompat is the type compatibility matrix: for a left-operand
// family, the right-operand families whose equality comparison needs an
// inserted safe cast. The mapping is directional — character = numeric
// gets a cast, numeric = character does not. Built once, never mutated.
var castCompat = map[scalar.TypeFamily]map[scalar.TypeFamily]bool{
	scalar.FamilyCharacter: {
		scalar.FamilyNumeric: true,
		scalar.FamilyBoolean: true,
	},
}

func needsSafeCast(left, right scalar.TypeFamily) bool {
	return castCompat[left][right]
}

// adjustEquality inserts a safe cast when an equality compares operands
// across families the engine will not coerce implicitly. The left
// operand is unwrapped one cast level first so the family check sees the
// pre-cast type, and the inserted try_cast targets that unwrapped
// operand directly, converting to the right operand's exact type.
func (c *converter) adjustEquality(call *scalar.Call) (scalar.Expr, bool, error) {
	if call.Op().Kind() != scalar.OpEquals {
		return nil, false, nil
	}
	ops := call.Operands()
	if len(ops) != 2 {
		return nil, false, nil
	}
	left, right := ops[0], ops[1]

	probe := left
	if lc, ok := left.(*scalar.Call); ok && lc.Op().Kind() == scalar.OpCast && lc.Arity() == 1 {
		probe = lc.Operands()[0]
	}
	if !needsSafeCast(probe.Type().Family(), right.Type().Family()) {
		return nil, false, nil
	}

	cast, err := c.b.TryCast(right.Type(), probe)
	if err != nil {
		return nil, false, err
	}
	out, err := c.b.TypedCall(call.Op(), call.Type(), cast, right)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
