// Package planio reads and writes relational plans as JSON. The format
// is a direct rendering of the plan package's node and expression
// shapes: one object per node keyed by "kind", one object per
// expression keyed by "expr". Every expression carries its declared
// type; decoding never infers types.
package planio

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/planshift/planshift/pkg/plan"
	"github.com/planshift/planshift/pkg/scalar"
)

// ErrUnknownKind reports a node kind, expression kind, operator kind or
// type tag the codec does not recognize.
var ErrUnknownKind = errors.New("unknown kind")

type typeJSON struct {
	Tag       string `json:"tag"`
	Precision int    `json:"precision,omitempty"`
	Scale     int    `json:"scale,omitempty"`
}

type opJSON struct {
	Name    string `json:"name"`
	Kind    string `json:"kind,omitempty"`
	Arity   *int   `json:"arity,omitempty"` // absent means variadic
	Builtin bool   `json:"builtin,omitempty"`
}

type exprJSON struct {
	Expr     string      `json:"expr"`
	Type     *typeJSON   `json:"type,omitempty"`
	Num      *string     `json:"num,omitempty"`
	Str      *string     `json:"str,omitempty"`
	Bool     *bool       `json:"bool,omitempty"`
	Ordinal  *int        `json:"ordinal,omitempty"`
	Name     string      `json:"name,omitempty"`
	Op       *opJSON     `json:"op,omitempty"`
	Operands []*exprJSON `json:"operands,omitempty"`
}

type sortKeyJSON struct {
	Key        *exprJSON `json:"key"`
	Descending bool      `json:"descending,omitempty"`
}

type namedExprJSON struct {
	Name string    `json:"name,omitempty"`
	Expr *exprJSON `json:"expr"`
}

type nodeJSON struct {
	Kind string `json:"kind"`

	Table        []string        `json:"table,omitempty"`
	Input        *nodeJSON       `json:"input,omitempty"`
	Left         *nodeJSON       `json:"left,omitempty"`
	Right        *nodeJSON       `json:"right,omitempty"`
	Sources      []*nodeJSON     `json:"sources,omitempty"`
	Condition    *exprJSON       `json:"condition,omitempty"`
	Projections  []*exprJSON     `json:"projections,omitempty"`
	Names        []string        `json:"names,omitempty"`
	GroupKeys    []int           `json:"group_keys,omitempty"`
	Aggregations []*exprJSON     `json:"aggregations,omitempty"`
	JoinType     string          `json:"join_type,omitempty"`
	Correlation  string          `json:"correlation,omitempty"`
	All          bool            `json:"all,omitempty"`
	Keys         []sortKeyJSON   `json:"keys,omitempty"`
	Offset       *exprJSON       `json:"offset,omitempty"`
	Fetch        *exprJSON       `json:"fetch,omitempty"`
	Distribution string          `json:"distribution,omitempty"`
	Definitions  []namedExprJSON `json:"definitions,omitempty"`
	Rows         [][]*exprJSON   `json:"rows,omitempty"`
	Call         *exprJSON       `json:"call,omitempty"`
	Name         string          `json:"name,omitempty"`
	Exprs        []*exprJSON     `json:"exprs,omitempty"`
}

// MarshalPlan renders a plan as JSON.
func MarshalPlan(root plan.Node) ([]byte, error) {
	j, err := encodeNode(root)
	if err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

// UnmarshalPlan parses a JSON plan.
func UnmarshalPlan(data []byte) (plan.Node, error) {
	var j nodeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, errors.Wrap(err, "parse plan")
	}
	return newDecoder().node(&j)
}

// EncodePlan writes a plan to w as indented JSON.
func EncodePlan(w io.Writer, root plan.Node) error {
	j, err := encodeNode(root)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(j)
}

// DecodePlan reads one JSON plan from r.
func DecodePlan(r io.Reader) (plan.Node, error) {
	var j nodeJSON
	if err := json.NewDecoder(r).Decode(&j); err != nil {
		return nil, errors.Wrap(err, "parse plan")
	}
	return newDecoder().node(&j)
}

func encodeNode(n plan.Node) (*nodeJSON, error) {
	if n == nil {
		return nil, errors.New("encode: nil node")
	}
	switch n := n.(type) {
	case *plan.Scan:
		return &nodeJSON{Kind: n.Kind().String(), Table: n.Table}, nil

	case *plan.Filter:
		input, err := encodeNode(n.Input)
		if err != nil {
			return nil, err
		}
		cond, err := encodeExpr(n.Condition)
		if err != nil {
			return nil, err
		}
		return &nodeJSON{Kind: n.Kind().String(), Input: input, Condition: cond}, nil

	case *plan.Project:
		input, err := encodeNode(n.Input)
		if err != nil {
			return nil, err
		}
		projections, err := encodeExprs(n.Projections)
		if err != nil {
			return nil, err
		}
		return &nodeJSON{Kind: n.Kind().String(), Input: input, Projections: projections, Names: n.Names}, nil

	case *plan.Aggregate:
		input, err := encodeNode(n.Input)
		if err != nil {
			return nil, err
		}
		aggs, err := encodeExprs(n.Aggregations)
		if err != nil {
			return nil, err
		}
		return &nodeJSON{Kind: n.Kind().String(), Input: input, GroupKeys: n.GroupKeys, Aggregations: aggs, Names: n.Names}, nil

	case *plan.Join:
		left, err := encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		j := &nodeJSON{Kind: n.Kind().String(), Left: left, Right: right, JoinType: n.Type.String()}
		if n.Condition != nil {
			if j.Condition, err = encodeExpr(n.Condition); err != nil {
				return nil, err
			}
		}
		return j, nil

	case *plan.Correlate:
		left, err := encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		return &nodeJSON{Kind: n.Kind().String(), Left: left, Right: right, Correlation: n.Correlation}, nil

	case *plan.Union:
		sources, err := encodeNodes(n.Sources)
		if err != nil {
			return nil, err
		}
		return &nodeJSON{Kind: n.Kind().String(), Sources: sources, All: n.All}, nil

	case *plan.Intersect:
		sources, err := encodeNodes(n.Sources)
		if err != nil {
			return nil, err
		}
		return &nodeJSON{Kind: n.Kind().String(), Sources: sources, All: n.All}, nil

	case *plan.Minus:
		sources, err := encodeNodes(n.Sources)
		if err != nil {
			return nil, err
		}
		return &nodeJSON{Kind: n.Kind().String(), Sources: sources, All: n.All}, nil

	case *plan.Sort:
		input, err := encodeNode(n.Input)
		if err != nil {
			return nil, err
		}
		j := &nodeJSON{Kind: n.Kind().String(), Input: input}
		j.Keys = make([]sortKeyJSON, len(n.Keys))
		for i, k := range n.Keys {
			e, err := encodeExpr(k.Expr)
			if err != nil {
				return nil, err
			}
			j.Keys[i] = sortKeyJSON{Key: e, Descending: k.Descending}
		}
		if n.Offset != nil {
			if j.Offset, err = encodeExpr(n.Offset); err != nil {
				return nil, err
			}
		}
		if n.Fetch != nil {
			if j.Fetch, err = encodeExpr(n.Fetch); err != nil {
				return nil, err
			}
		}
		return j, nil

	case *plan.Exchange:
		input, err := encodeNode(n.Input)
		if err != nil {
			return nil, err
		}
		return &nodeJSON{Kind: n.Kind().String(), Input: input, Distribution: n.Distribution}, nil

	case *plan.Match:
		input, err := encodeNode(n.Input)
		if err != nil {
			return nil, err
		}
		defs := make([]namedExprJSON, len(n.Definitions))
		for i, d := range n.Definitions {
			e, err := encodeExpr(d.Expr)
			if err != nil {
				return nil, err
			}
			defs[i] = namedExprJSON{Name: d.Name, Expr: e}
		}
		return &nodeJSON{Kind: n.Kind().String(), Input: input, Definitions: defs}, nil

	case *plan.Values:
		rows := make([][]*exprJSON, len(n.Rows))
		for i, row := range n.Rows {
			r, err := encodeExprs(row)
			if err != nil {
				return nil, err
			}
			rows[i] = r
		}
		return &nodeJSON{Kind: n.Kind().String(), Names: n.Names, Rows: rows}, nil

	case *plan.TableFunctionScan:
		sources, err := encodeNodes(n.Sources)
		if err != nil {
			return nil, err
		}
		call, err := encodeExpr(n.Call)
		if err != nil {
			return nil, err
		}
		return &nodeJSON{Kind: n.Kind().String(), Sources: sources, Call: call}, nil

	case *plan.Other:
		sources, err := encodeNodes(n.Sources)
		if err != nil {
			return nil, err
		}
		exprs, err := encodeExprs(n.Attached)
		if err != nil {
			return nil, err
		}
		return &nodeJSON{Kind: n.Kind().String(), Name: n.Name, Sources: sources, Exprs: exprs}, nil

	default:
		return nil, errors.Wrapf(ErrUnknownKind, "encode node %s", n.Kind())
	}
}

func encodeNodes(nodes []plan.Node) ([]*nodeJSON, error) {
	out := make([]*nodeJSON, len(nodes))
	for i, n := range nodes {
		j, err := encodeNode(n)
		if err != nil {
			return nil, err
		}
		out[i] = j
	}
	return out, nil
}

func encodeExprs(exprs []scalar.Expr) ([]*exprJSON, error) {
	out := make([]*exprJSON, len(exprs))
	for i, e := range exprs {
		j, err := encodeExpr(e)
		if err != nil {
			return nil, err
		}
		out[i] = j
	}
	return out, nil
}

func encodeExpr(e scalar.Expr) (*exprJSON, error) {
	if e == nil {
		return nil, errors.New("encode: nil expression")
	}
	switch e := e.(type) {
	case *scalar.Literal:
		j := &exprJSON{Expr: "literal", Type: encodeType(e.Type())}
		switch e.Type().Family() {
		case scalar.FamilyNumeric:
			s := e.Numeric().String()
			j.Num = &s
		case scalar.FamilyBoolean:
			b := e.Bool()
			j.Bool = &b
		default:
			s := e.Text()
			j.Str = &s
		}
		return j, nil

	case *scalar.FieldRef:
		ord := e.Ordinal()
		return &exprJSON{Expr: "field", Type: encodeType(e.Type()), Ordinal: &ord, Name: e.Name()}, nil

	case *scalar.Call:
		operands, err := encodeExprs(e.Operands())
		if err != nil {
			return nil, err
		}
		return &exprJSON{Expr: "call", Type: encodeType(e.Type()), Op: encodeOp(e.Op()), Operands: operands}, nil

	default:
		return nil, errors.Wrapf(ErrUnknownKind, "encode expression %T", e)
	}
}

func encodeType(t scalar.Type) *typeJSON {
	return &typeJSON{Tag: t.Tag.String(), Precision: t.Precision, Scale: t.Scale}
}

func encodeOp(op *scalar.Operator) *opJSON {
	j := &opJSON{Name: op.Name(), Builtin: op.IsBuiltin()}
	if k := op.Kind(); k != scalar.OpFunction {
		j.Kind = k.String()
	}
	if a := op.Arity(); a != scalar.Variadic {
		j.Arity = &a
	}
	return j
}

type opKey struct {
	name    string
	kind    scalar.OpKind
	arity   int
	builtin bool
}

// decoder interns operator descriptors, so every call naming the same
// operator within one decoded plan shares a single *scalar.Operator.
type decoder struct {
	ops map[opKey]*scalar.Operator
}

func newDecoder() *decoder {
	return &decoder{ops: make(map[opKey]*scalar.Operator)}
}

func (d *decoder) node(j *nodeJSON) (plan.Node, error) {
	if j == nil {
		return nil, errors.New("decode: missing node")
	}
	kind, ok := plan.ParseKind(j.Kind)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "decode node kind %q", j.Kind)
	}
	switch kind {
	case plan.KindScan:
		if len(j.Table) == 0 {
			return nil, errors.New("scan node: missing table")
		}
		return &plan.Scan{Table: j.Table}, nil

	case plan.KindFilter:
		input, err := d.node(j.Input)
		if err != nil {
			return nil, err
		}
		cond, err := d.expr(j.Condition)
		if err != nil {
			return nil, err
		}
		return &plan.Filter{Input: input, Condition: cond}, nil

	case plan.KindProject:
		input, err := d.node(j.Input)
		if err != nil {
			return nil, err
		}
		projections, err := d.exprs(j.Projections)
		if err != nil {
			return nil, err
		}
		return &plan.Project{Input: input, Projections: projections, Names: j.Names}, nil

	case plan.KindAggregate:
		input, err := d.node(j.Input)
		if err != nil {
			return nil, err
		}
		aggs, err := d.exprs(j.Aggregations)
		if err != nil {
			return nil, err
		}
		return &plan.Aggregate{Input: input, GroupKeys: j.GroupKeys, Aggregations: aggs, Names: j.Names}, nil

	case plan.KindJoin:
		left, err := d.node(j.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.node(j.Right)
		if err != nil {
			return nil, err
		}
		jt, ok := plan.ParseJoinType(j.JoinType)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownKind, "decode join type %q", j.JoinType)
		}
		out := &plan.Join{Left: left, Right: right, Type: jt}
		if j.Condition != nil {
			if out.Condition, err = d.expr(j.Condition); err != nil {
				return nil, err
			}
		}
		return out, nil

	case plan.KindCorrelate:
		left, err := d.node(j.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.node(j.Right)
		if err != nil {
			return nil, err
		}
		return &plan.Correlate{Left: left, Right: right, Correlation: j.Correlation}, nil

	case plan.KindUnion:
		sources, err := d.nodes(j.Sources)
		if err != nil {
			return nil, err
		}
		return &plan.Union{Sources: sources, All: j.All}, nil

	case plan.KindIntersect:
		sources, err := d.nodes(j.Sources)
		if err != nil {
			return nil, err
		}
		return &plan.Intersect{Sources: sources, All: j.All}, nil

	case plan.KindMinus:
		sources, err := d.nodes(j.Sources)
		if err != nil {
			return nil, err
		}
		return &plan.Minus{Sources: sources, All: j.All}, nil

	case plan.KindSort:
		input, err := d.node(j.Input)
		if err != nil {
			return nil, err
		}
		out := &plan.Sort{Input: input, Keys: make([]plan.SortKey, len(j.Keys))}
		for i, k := range j.Keys {
			e, err := d.expr(k.Key)
			if err != nil {
				return nil, err
			}
			out.Keys[i] = plan.SortKey{Expr: e, Descending: k.Descending}
		}
		if j.Offset != nil {
			if out.Offset, err = d.expr(j.Offset); err != nil {
				return nil, err
			}
		}
		if j.Fetch != nil {
			if out.Fetch, err = d.expr(j.Fetch); err != nil {
				return nil, err
			}
		}
		return out, nil

	case plan.KindExchange:
		input, err := d.node(j.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Exchange{Input: input, Distribution: j.Distribution}, nil

	case plan.KindMatch:
		input, err := d.node(j.Input)
		if err != nil {
			return nil, err
		}
		defs := make([]plan.NamedExpr, len(j.Definitions))
		for i, def := range j.Definitions {
			e, err := d.expr(def.Expr)
			if err != nil {
				return nil, err
			}
			defs[i] = plan.NamedExpr{Name: def.Name, Expr: e}
		}
		return &plan.Match{Input: input, Definitions: defs}, nil

	case plan.KindValues:
		rows := make([][]scalar.Expr, len(j.Rows))
		for i, row := range j.Rows {
			r, err := d.exprs(row)
			if err != nil {
				return nil, err
			}
			rows[i] = r
		}
		return &plan.Values{Names: j.Names, Rows: rows}, nil

	case plan.KindTableFunctionScan:
		sources, err := d.nodes(j.Sources)
		if err != nil {
			return nil, err
		}
		call, err := d.expr(j.Call)
		if err != nil {
			return nil, err
		}
		return &plan.TableFunctionScan{Sources: sources, Call: call}, nil

	case plan.KindOther:
		sources, err := d.nodes(j.Sources)
		if err != nil {
			return nil, err
		}
		attached, err := d.exprs(j.Exprs)
		if err != nil {
			return nil, err
		}
		return &plan.Other{Name: j.Name, Sources: sources, Attached: attached}, nil

	default:
		return nil, errors.Wrapf(ErrUnknownKind, "decode node kind %q", j.Kind)
	}
}

func (d *decoder) nodes(js []*nodeJSON) ([]plan.Node, error) {
	out := make([]plan.Node, len(js))
	for i, j := range js {
		n, err := d.node(j)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (d *decoder) exprs(js []*exprJSON) ([]scalar.Expr, error) {
	out := make([]scalar.Expr, len(js))
	for i, j := range js {
		e, err := d.expr(j)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (d *decoder) expr(j *exprJSON) (scalar.Expr, error) {
	if j == nil {
		return nil, errors.New("decode: missing expression")
	}
	switch j.Expr {
	case "literal":
		t, err := decodeType(j.Type)
		if err != nil {
			return nil, err
		}
		switch t.Family() {
		case scalar.FamilyNumeric:
			if j.Num == nil {
				return nil, errors.New("numeric literal: missing num")
			}
			v, err := decimal.NewFromString(*j.Num)
			if err != nil {
				return nil, errors.Wrapf(err, "numeric literal %q", *j.Num)
			}
			return scalar.NewNumericLiteral(v, t), nil
		case scalar.FamilyBoolean:
			if j.Bool == nil {
				return nil, errors.New("boolean literal: missing bool")
			}
			return scalar.NewBoolLiteral(*j.Bool), nil
		case scalar.FamilyTemporal:
			if j.Str == nil {
				return nil, errors.New("temporal literal: missing str")
			}
			return scalar.NewTemporalLiteral(*j.Str, t), nil
		default:
			if j.Str == nil {
				return nil, errors.New("string literal: missing str")
			}
			return scalar.NewStringLiteral(*j.Str), nil
		}

	case "field":
		t, err := decodeType(j.Type)
		if err != nil {
			return nil, err
		}
		if j.Ordinal == nil {
			return nil, errors.New("field reference: missing ordinal")
		}
		if j.Name != "" {
			return scalar.NewNamedFieldRef(j.Name, *j.Ordinal, t), nil
		}
		return scalar.NewFieldRef(*j.Ordinal, t), nil

	case "call":
		t, err := decodeType(j.Type)
		if err != nil {
			return nil, err
		}
		op, err := d.op(j.Op)
		if err != nil {
			return nil, err
		}
		operands, err := d.exprs(j.Operands)
		if err != nil {
			return nil, err
		}
		return scalar.NewCall(op, t, operands...), nil

	default:
		return nil, errors.Wrapf(ErrUnknownKind, "decode expression %q", j.Expr)
	}
}

func (d *decoder) op(j *opJSON) (*scalar.Operator, error) {
	if j == nil {
		return nil, errors.New("call: missing operator")
	}
	if j.Name == "" {
		return nil, errors.New("operator: missing name")
	}
	kind, ok := scalar.ParseOpKind(j.Kind)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "decode operator kind %q", j.Kind)
	}
	arity := scalar.Variadic
	if j.Arity != nil {
		arity = *j.Arity
	}
	key := opKey{name: j.Name, kind: kind, arity: arity, builtin: j.Builtin}
	if op, ok := d.ops[key]; ok {
		return op, nil
	}
	var op *scalar.Operator
	if j.Builtin {
		op = scalar.NewBuiltin(j.Name, kind, arity, nil)
	} else {
		op = scalar.NewOperator(j.Name, kind, arity, nil)
	}
	d.ops[key] = op
	return op, nil
}

func decodeType(j *typeJSON) (scalar.Type, error) {
	if j == nil {
		return scalar.Type{}, errors.New("decode: missing type")
	}
	tag, ok := scalar.ParseTypeTag(j.Tag)
	if !ok {
		return scalar.Type{}, errors.Wrapf(ErrUnknownKind, "decode type tag %q", j.Tag)
	}
	return scalar.Type{Tag: tag, Precision: j.Precision, Scale: j.Scale}, nil
}
