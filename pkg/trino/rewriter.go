package trino

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/planshift/planshift/pkg/scalar"
)

// rewriteRule is one link of the priority chain. A rule reports whether
// it applied; when it did not, the next rule gets the same call. Rules
// see calls whose operands are already rewritten.
type rewriteRule func(*scalar.Call) (scalar.Expr, bool, error)

// rewriteExpr rewrites an expression tree bottom-up: operands first,
// then the call itself through the rule chain. Literals and field
// references pass through untouched.
func (c *converter) rewriteExpr(e scalar.Expr) (scalar.Expr, error) {
	call, ok := e.(*scalar.Call)
	if !ok {
		return e, nil
	}
	operands, err := c.rewriteOperands(call.Operands())
	if err != nil {
		return nil, err
	}
	return c.rewriteCall(scalar.NewCall(call.Op(), call.Type(), operands...))
}

func (c *converter) rewriteOperands(operands []scalar.Expr) ([]scalar.Expr, error) {
	out := make([]scalar.Expr, len(operands))
	for i, op := range operands {
		rewritten, err := c.rewriteExpr(op)
		if err != nil {
			return nil, err
		}
		out[i] = rewritten
	}
	return out, nil
}

// rewriteCall tries each rule in priority order; the first one that
// applies wins. A call no rule recognizes is returned as-is, already
// carrying its rewritten operands.
func (c *converter) rewriteCall(call *scalar.Call) (scalar.Expr, error) {
	for _, rule := range c.rules {
		out, ok, err := rule(call)
		if err != nil {
			return nil, err
		}
		if ok {
			return out, nil
		}
	}
	return call, nil
}

// rewriteMapConstructor splits an interleaved MAP(k1, v1, k2, v2, …)
// into the two-array form MAP(ARRAY[keys], ARRAY[values]). An empty
// constructor becomes two empty arrays; an odd operand count splits
// positionally, leaving the key arm one longer.
func (c *converter) rewriteMapConstructor(call *scalar.Call) (scalar.Expr, bool, error) {
	if call.Op().Kind() != scalar.OpMapConstructor || call.Op().IsBuiltin() {
		return nil, false, nil
	}
	ops := call.Operands()
	keys := make([]scalar.Expr, 0, (len(ops)+1)/2)
	values := make([]scalar.Expr, 0, len(ops)/2)
	for i, op := range ops {
		if i%2 == 0 {
			keys = append(keys, op)
		} else {
			values = append(values, op)
		}
	}
	keyArr, err := c.b.TypedCall(opArrayConstructor, scalar.Array, keys...)
	if err != nil {
		return nil, false, err
	}
	valueArr, err := c.b.TypedCall(opArrayConstructor, scalar.Array, values...)
	if err != nil {
		return nil, false, err
	}
	out, err := c.b.TypedCall(opMapConstructor, call.Type(), keyArr, valueArr)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// rewriteTimestampToDecimalCast routes a timestamp-to-decimal cast
// through to_unixtime, since the engine has no direct conversion
// between the two.
func (c *converter) rewriteTimestampToDecimalCast(call *scalar.Call) (scalar.Expr, bool, error) {
	if call.Op().Kind() != scalar.OpCast || call.Arity() != 1 {
		return nil, false, nil
	}
	if call.Type().Tag != scalar.TagDecimal || call.Operands()[0].Type().Tag != scalar.TagTimestamp {
		return nil, false, nil
	}
	seconds, err := c.b.Call(opToUnixtime, call.Operands()[0])
	if err != nil {
		return nil, false, err
	}
	out, err := c.b.Cast(call.Type(), seconds)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// applyOperatorMapping replaces a call through the operator mapping
// table, keyed by lower-cased name and operand count. The replacement's
// operands get one more pass over the chain, but its root operator is
// final and is not matched again.
func (c *converter) applyOperatorMapping(call *scalar.Call) (scalar.Expr, bool, error) {
	name := strings.ToLower(call.Op().Name())
	if name == "to_date" && c.cfg.Bool(AvoidTransformToDateUDF) {
		return nil, false, nil
	}
	transform, ok := lookupTransform(name, call.Arity())
	if !ok {
		return nil, false, nil
	}
	out, err := transform(c.b, call.Operands())
	if err != nil {
		return nil, false, errors.Wrapf(err, "map operator %s/%d", name, call.Arity())
	}
	oc, ok := out.(*scalar.Call)
	if !ok {
		return out, true, nil
	}
	operands, err := c.rewriteOperands(oc.Operands())
	if err != nil {
		return nil, false, err
	}
	return scalar.NewCall(oc.Op(), oc.Type(), operands...), true, nil
}
