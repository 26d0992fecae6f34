package scalar

import "strings"

// OpKind is the structural classification of an operator. Rewrite rules
// dispatch on it rather than on names wherever the structure (a cast, an
// equality, a constructor) matters more than the spelling.
type OpKind int

const (
	OpFunction OpKind = iota
	OpCast
	OpTryCast
	OpEquals
	OpMapConstructor
	OpArrayConstructor
	OpGenericProject
)

func (k OpKind) String() string {
	switch k {
	case OpFunction:
		return "function"
	case OpCast:
		return "cast"
	case OpTryCast:
		return "try_cast"
	case OpEquals:
		return "equals"
	case OpMapConstructor:
		return "map"
	case OpArrayConstructor:
		return "array"
	case OpGenericProject:
		return "generic_project"
	default:
		return "unknown"
	}
}

// ParseOpKind resolves an operator kind by its name.
func ParseOpKind(s string) (OpKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "function", "":
		return OpFunction, true
	case "cast":
		return OpCast, true
	case "try_cast":
		return OpTryCast, true
	case "equals":
		return OpEquals, true
	case "map":
		return OpMapConstructor, true
	case "array":
		return OpArrayConstructor, true
	case "generic_project":
		return OpGenericProject, true
	default:
		return OpFunction, false
	}
}

// Variadic marks an operator that accepts any number of operands.
const Variadic = -1

// ReturnRule computes a call's declared return type from its operands.
type ReturnRule func(operands []Expr) Type

// FixedReturn yields the same type regardless of operands.
func FixedReturn(t Type) ReturnRule {
	return func([]Expr) Type { return t }
}

// OperandReturn yields the type of the i-th operand.
func OperandReturn(i int) ReturnRule {
	return func(operands []Expr) Type {
		if i < 0 || i >= len(operands) {
			return Type{}
		}
		return operands[i].Type()
	}
}

// Operator identifies a callable function or operator: a name, a
// structural kind, a fixed arity (or Variadic) and an optional
// return-type rule. Operators are immutable and freely shared by
// reference across expression trees.
//
// Operators minted by the converter for target-engine built-ins carry
// the builtin mark; rewrite rules never reinterpret a built-in call as a
// source-dialect function, which is what keeps the rewrite idempotent.
type Operator struct {
	name    string
	kind    OpKind
	arity   int
	ret     ReturnRule
	builtin bool
}

// NewOperator creates a source-dialect operator descriptor.
func NewOperator(name string, kind OpKind, arity int, ret ReturnRule) *Operator {
	return &Operator{name: name, kind: kind, arity: arity, ret: ret}
}

// NewBuiltin creates a target-engine operator descriptor.
func NewBuiltin(name string, kind OpKind, arity int, ret ReturnRule) *Operator {
	return &Operator{name: name, kind: kind, arity: arity, ret: ret, builtin: true}
}

// Name returns the operator's name.
func (o *Operator) Name() string { return o.name }

// Kind returns the operator's structural kind.
func (o *Operator) Kind() OpKind { return o.kind }

// Arity returns the operand count the operator requires, or Variadic.
func (o *Operator) Arity() int { return o.arity }

// IsBuiltin reports whether the descriptor names a target-engine built-in.
func (o *Operator) IsBuiltin() bool { return o.builtin }

// ReturnType computes the declared type of a call with the given
// operands. It reports false when the operator has no return-type rule
// or the rule cannot produce a known type.
func (o *Operator) ReturnType(operands []Expr) (Type, bool) {
	if o.ret == nil {
		return Type{}, false
	}
	t := o.ret(operands)
	return t, t.Tag != TagUnknown
}

// Canonical descriptors for explicit and safe casts. A cast call's
// declared type is its target type, so neither carries a return rule.
var (
	CastOperator    = NewBuiltin("cast", OpCast, 1, nil)
	TryCastOperator = NewBuiltin("try_cast", OpTryCast, 1, nil)
)
