package trino

import (
	"strings"

	"github.com/tidwall/btree"

	"github.com/planshift/planshift/pkg/scalar"
)

// Transformer rebuilds a call as a target-engine expression. It receives
// the already-rewritten operand list and the expression builder; the
// replacement may use a different operator and reorder, drop or wrap
// operands.
type Transformer func(b *scalar.Builder, operands []scalar.Expr) (scalar.Expr, error)

// tableEntry keys a transformer by lower-cased source name and exact
// operand count.
type tableEntry struct {
	name      string
	arity     int
	transform Transformer
	target    string // replacement sketch, for listings
}

func entryLess(a, b tableEntry) bool {
	if a.name != b.name {
		return a.name < b.name
	}
	return a.arity < b.arity
}

// transforms is the operator mapping table: built once here, never
// mutated afterwards, safe for unsynchronized concurrent lookups.
var transforms = buildTransforms()

func buildTransforms() *btree.BTreeG[tableEntry] {
	t := btree.NewBTreeG(entryLess)
	add := func(name string, arity int, target string, fn Transformer) {
		t.Set(tableEntry{name: name, arity: arity, transform: fn, target: target})
	}

	add("to_date", 1, "date(cast(x AS timestamp))", func(b *scalar.Builder, ops []scalar.Expr) (scalar.Expr, error) {
		ts, err := b.Cast(scalar.Timestamp, ops[0])
		if err != nil {
			return nil, err
		}
		return b.Call(opDate, ts)
	})
	add("nvl", 2, "coalesce(x, y)", rename(opCoalesce))
	add("array_contains", 2, "contains(arr, el)", rename(opContains))
	add("instr", 2, "strpos(str, sub)", rename(opStrpos))
	add("locate", 2, "strpos(str, sub)", func(b *scalar.Builder, ops []scalar.Expr) (scalar.Expr, error) {
		// locate takes (sub, str); strpos takes (str, sub)
		return b.Call(opStrpos, ops[1], ops[0])
	})
	add("rand", 0, "random()", rename(opRandom))
	add("rand", 1, "random()", func(b *scalar.Builder, ops []scalar.Expr) (scalar.Expr, error) {
		// the target engine's random() takes no seed
		return b.Call(opRandom)
	})
	add("pmod", 2, "mod(mod(a, b) + b, b)", func(b *scalar.Builder, ops []scalar.Expr) (scalar.Expr, error) {
		rem, err := b.Call(opMod, ops[0], ops[1])
		if err != nil {
			return nil, err
		}
		sum, err := b.Call(opAdd, rem, ops[1])
		if err != nil {
			return nil, err
		}
		return b.Call(opMod, sum, ops[1])
	})
	add("get_json_object", 2, "json_extract(json, path)", rename(opJSONExtract))
	add("concat_ws", 3, "array_join(array[a, b], sep)", func(b *scalar.Builder, ops []scalar.Expr) (scalar.Expr, error) {
		arr, err := b.TypedCall(opArrayConstructor, scalar.Array, ops[1], ops[2])
		if err != nil {
			return nil, err
		}
		return b.Call(opArrayJoin, arr, ops[0])
	})
	add("regexp_extract", 2, "regexp_extract(str, pattern)", rename(opRegexpExtract))

	return t
}

// rename maps a call onto a different operator, operands verbatim.
func rename(target *scalar.Operator) Transformer {
	return func(b *scalar.Builder, ops []scalar.Expr) (scalar.Expr, error) {
		return b.Call(target, ops...)
	}
}

// lookupTransform finds the transformer registered for the operator
// name (matched case-insensitively) at the given operand count. Absence
// is not an error; the caller falls through to the next rule.
func lookupTransform(name string, arity int) (Transformer, bool) {
	e, ok := transforms.Get(tableEntry{name: strings.ToLower(name), arity: arity})
	if !ok {
		return nil, false
	}
	return e.transform, true
}

// OperatorMapping describes one mapping-table entry.
type OperatorMapping struct {
	Name   string `json:"name"`
	Arity  int    `json:"arity"`
	Target string `json:"target"`
}

// Operators lists the operator mapping table in (name, arity) order.
func Operators() []OperatorMapping {
	out := make([]OperatorMapping, 0, transforms.Len())
	transforms.Scan(func(e tableEntry) bool {
		out = append(out, OperatorMapping{Name: e.name, Arity: e.arity, Target: e.target})
		return true
	})
	return out
}
