package plan

import (
	"fmt"
	"strings"

	"github.com/planshift/planshift/pkg/scalar"
)

var (
	_ Node = (*Scan)(nil)
	_ Node = (*Filter)(nil)
	_ Node = (*Project)(nil)
	_ Node = (*Aggregate)(nil)
	_ Node = (*Join)(nil)
	_ Node = (*Correlate)(nil)
	_ Node = (*Union)(nil)
	_ Node = (*Intersect)(nil)
	_ Node = (*Minus)(nil)
	_ Node = (*Sort)(nil)
	_ Node = (*Exchange)(nil)
	_ Node = (*Match)(nil)
	_ Node = (*Values)(nil)
	_ Node = (*TableFunctionScan)(nil)
	_ Node = (*Other)(nil)
)

// Scan reads a base table.
type Scan struct {
	Table []string // qualified name parts
}

func (*Scan) isNode() {}
func (*Scan) Kind() Kind { return KindScan }
func (*Scan) Inputs() []Node { return nil }
func (*Scan) Exprs() []scalar.Expr { return nil }
func (s *Scan) Clone(_ []Node, _ []scalar.Expr) Node {
	return &Scan{Table: s.Table}
}
func (s *Scan) String() string {
	return "Scan(" + strings.Join(s.Table, ".") + ")"
}

// Filter keeps the input rows satisfying Condition.
type Filter struct {
	Input     Node
	Condition scalar.Expr
}

func (*Filter) isNode() {}
func (*Filter) Kind() Kind { return KindFilter }
func (f *Filter) Inputs() []Node { return []Node{f.Input} }
func (f *Filter) Exprs() []scalar.Expr {
	return []scalar.Expr{f.Condition}
}
func (f *Filter) Clone(inputs []Node, exprs []scalar.Expr) Node {
	return &Filter{Input: inputs[0], Condition: exprs[0]}
}
func (f *Filter) String() string {
	return fmt.Sprintf("Filter[%s]", f.Condition)
}

// Project computes one output expression per field.
type Project struct {
	Input       Node
	Projections []scalar.Expr
	Names       []string // optional output field names
}

func (*Project) isNode() {}
func (*Project) Kind() Kind { return KindProject }
func (p *Project) Inputs() []Node { return []Node{p.Input} }
func (p *Project) Exprs() []scalar.Expr { return p.Projections }
func (p *Project) Clone(inputs []Node, exprs []scalar.Expr) Node {
	return &Project{Input: inputs[0], Projections: exprs, Names: p.Names}
}
func (p *Project) String() string {
	return fmt.Sprintf("Project[%s]", exprList(p.Projections))
}

// Aggregate groups the input by the key ordinals and evaluates the
// aggregation calls per group.
type Aggregate struct {
	Input        Node
	GroupKeys    []int
	Aggregations []scalar.Expr
	Names        []string // optional aggregate output names
}

func (*Aggregate) isNode() {}
func (*Aggregate) Kind() Kind { return KindAggregate }
func (a *Aggregate) Inputs() []Node { return []Node{a.Input} }
func (a *Aggregate) Exprs() []scalar.Expr { return a.Aggregations }
func (a *Aggregate) Clone(inputs []Node, exprs []scalar.Expr) Node {
	return &Aggregate{Input: inputs[0], GroupKeys: a.GroupKeys, Aggregations: exprs, Names: a.Names}
}
func (a *Aggregate) String() string {
	return fmt.Sprintf("Aggregate[keys=%v, %s]", a.GroupKeys, exprList(a.Aggregations))
}

// Join combines two inputs on an optional condition. A nil condition is
// a cross join.
type Join struct {
	Left      Node
	Right     Node
	Type      JoinType
	Condition scalar.Expr
}

func (*Join) isNode() {}
func (*Join) Kind() Kind { return KindJoin }
func (j *Join) Inputs() []Node { return []Node{j.Left, j.Right} }
func (j *Join) Exprs() []scalar.Expr {
	if j.Condition == nil {
		return nil
	}
	return []scalar.Expr{j.Condition}
}
func (j *Join) Clone(inputs []Node, exprs []scalar.Expr) Node {
	out := &Join{Left: inputs[0], Right: inputs[1], Type: j.Type}
	if j.Condition != nil {
		out.Condition = exprs[0]
	}
	return out
}
func (j *Join) String() string {
	if j.Condition == nil {
		return fmt.Sprintf("Join(%s)", j.Type)
	}
	return fmt.Sprintf("Join(%s)[%s]", j.Type, j.Condition)
}

// Correlate evaluates the right input once per left row.
type Correlate struct {
	Left        Node
	Right       Node
	Correlation string // correlation variable name
}

func (*Correlate) isNode() {}
func (*Correlate) Kind() Kind { return KindCorrelate }
func (c *Correlate) Inputs() []Node { return []Node{c.Left, c.Right} }
func (*Correlate) Exprs() []scalar.Expr { return nil }
func (c *Correlate) Clone(inputs []Node, _ []scalar.Expr) Node {
	return &Correlate{Left: inputs[0], Right: inputs[1], Correlation: c.Correlation}
}
func (c *Correlate) String() string {
	return fmt.Sprintf("Correlate(%s)", c.Correlation)
}

// Union concatenates its sources, deduplicating unless All.
type Union struct {
	Sources []Node
	All     bool
}

func (*Union) isNode() {}
func (*Union) Kind() Kind { return KindUnion }
func (u *Union) Inputs() []Node { return u.Sources }
func (*Union) Exprs() []scalar.Expr { return nil }
func (u *Union) Clone(inputs []Node, _ []scalar.Expr) Node {
	return &Union{Sources: inputs, All: u.All}
}
func (u *Union) String() string { return setOpString("Union", u.All) }

// Intersect keeps rows present in every source.
type Intersect struct {
	Sources []Node
	All     bool
}

func (*Intersect) isNode() {}
func (*Intersect) Kind() Kind { return KindIntersect }
func (i *Intersect) Inputs() []Node { return i.Sources }
func (*Intersect) Exprs() []scalar.Expr { return nil }
func (i *Intersect) Clone(inputs []Node, _ []scalar.Expr) Node {
	return &Intersect{Sources: inputs, All: i.All}
}
func (i *Intersect) String() string { return setOpString("Intersect", i.All) }

// Minus keeps rows of the first source absent from the rest.
type Minus struct {
	Sources []Node
	All     bool
}

func (*Minus) isNode() {}
func (*Minus) Kind() Kind { return KindMinus }
func (m *Minus) Inputs() []Node { return m.Sources }
func (*Minus) Exprs() []scalar.Expr { return nil }
func (m *Minus) Clone(inputs []Node, _ []scalar.Expr) Node {
	return &Minus{Sources: inputs, All: m.All}
}
func (m *Minus) String() string { return setOpString("Minus", m.All) }

// Sort orders the input, optionally skipping Offset rows and keeping
// Fetch rows. Offset and Fetch are nullable expressions.
type Sort struct {
	Input  Node
	Keys   []SortKey
	Offset scalar.Expr
	Fetch  scalar.Expr
}

func (*Sort) isNode() {}
func (*Sort) Kind() Kind { return KindSort }
func (s *Sort) Inputs() []Node { return []Node{s.Input} }
func (s *Sort) Exprs() []scalar.Expr {
	exprs := make([]scalar.Expr, 0, len(s.Keys)+2)
	for _, k := range s.Keys {
		exprs = append(exprs, k.Expr)
	}
	if s.Offset != nil {
		exprs = append(exprs, s.Offset)
	}
	if s.Fetch != nil {
		exprs = append(exprs, s.Fetch)
	}
	return exprs
}
func (s *Sort) Clone(inputs []Node, exprs []scalar.Expr) Node {
	out := &Sort{Input: inputs[0], Keys: make([]SortKey, len(s.Keys))}
	for i, k := range s.Keys {
		out.Keys[i] = SortKey{Expr: exprs[i], Descending: k.Descending}
	}
	next := len(s.Keys)
	if s.Offset != nil {
		out.Offset = exprs[next]
		next++
	}
	if s.Fetch != nil {
		out.Fetch = exprs[next]
	}
	return out
}
func (s *Sort) String() string {
	parts := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		dir := "asc"
		if k.Descending {
			dir = "desc"
		}
		parts[i] = fmt.Sprintf("%s %s", k.Expr, dir)
	}
	return fmt.Sprintf("Sort[%s]", strings.Join(parts, ", "))
}

// Exchange redistributes rows across workers.
type Exchange struct {
	Input        Node
	Distribution string // e.g. "single", "hash", "broadcast"
}

func (*Exchange) isNode() {}
func (*Exchange) Kind() Kind { return KindExchange }
func (e *Exchange) Inputs() []Node { return []Node{e.Input} }
func (*Exchange) Exprs() []scalar.Expr { return nil }
func (e *Exchange) Clone(inputs []Node, _ []scalar.Expr) Node {
	return &Exchange{Input: inputs[0], Distribution: e.Distribution}
}
func (e *Exchange) String() string {
	return fmt.Sprintf("Exchange(%s)", e.Distribution)
}

// Match recognizes row patterns; Definitions bind pattern variables to
// predicate expressions.
type Match struct {
	Input       Node
	Definitions []NamedExpr
}

func (*Match) isNode() {}
func (*Match) Kind() Kind { return KindMatch }
func (m *Match) Inputs() []Node { return []Node{m.Input} }
func (m *Match) Exprs() []scalar.Expr {
	exprs := make([]scalar.Expr, len(m.Definitions))
	for i, d := range m.Definitions {
		exprs[i] = d.Expr
	}
	return exprs
}
func (m *Match) Clone(inputs []Node, exprs []scalar.Expr) Node {
	defs := make([]NamedExpr, len(m.Definitions))
	for i, d := range m.Definitions {
		defs[i] = NamedExpr{Name: d.Name, Expr: exprs[i]}
	}
	return &Match{Input: inputs[0], Definitions: defs}
}
func (m *Match) String() string {
	return fmt.Sprintf("Match[%d definitions]", len(m.Definitions))
}

// Values produces literal rows without reading a table.
type Values struct {
	Names []string
	Rows  [][]scalar.Expr
}

func (*Values) isNode() {}
func (*Values) Kind() Kind { return KindValues }
func (*Values) Inputs() []Node { return nil }
func (v *Values) Exprs() []scalar.Expr {
	var exprs []scalar.Expr
	for _, row := range v.Rows {
		exprs = append(exprs, row...)
	}
	return exprs
}
func (v *Values) Clone(_ []Node, exprs []scalar.Expr) Node {
	rows := make([][]scalar.Expr, len(v.Rows))
	next := 0
	for i, row := range v.Rows {
		rows[i] = exprs[next : next+len(row)]
		next += len(row)
	}
	return &Values{Names: v.Names, Rows: rows}
}
func (v *Values) String() string {
	cols := 0
	if len(v.Rows) > 0 {
		cols = len(v.Rows[0])
	}
	return fmt.Sprintf("Values(%dx%d)", len(v.Rows), cols)
}

// TableFunctionScan produces rows by calling a table function, possibly
// over input relations.
type TableFunctionScan struct {
	Sources []Node
	Call    scalar.Expr
}

func (*TableFunctionScan) isNode() {}
func (*TableFunctionScan) Kind() Kind { return KindTableFunctionScan }
func (t *TableFunctionScan) Inputs() []Node { return t.Sources }
func (t *TableFunctionScan) Exprs() []scalar.Expr {
	return []scalar.Expr{t.Call}
}
func (t *TableFunctionScan) Clone(inputs []Node, exprs []scalar.Expr) Node {
	return &TableFunctionScan{Sources: inputs, Call: exprs[0]}
}
func (t *TableFunctionScan) String() string {
	return fmt.Sprintf("TableFunctionScan[%s]", t.Call)
}

// Other carries a node kind this package does not enumerate. Generic
// passes handle it through the uniform contract.
type Other struct {
	Name     string
	Sources  []Node
	Attached []scalar.Expr
}

func (*Other) isNode() {}
func (*Other) Kind() Kind { return KindOther }
func (o *Other) Inputs() []Node { return o.Sources }
func (o *Other) Exprs() []scalar.Expr { return o.Attached }
func (o *Other) Clone(inputs []Node, exprs []scalar.Expr) Node {
	return &Other{Name: o.Name, Sources: inputs, Attached: exprs}
}
func (o *Other) String() string {
	return fmt.Sprintf("Other(%s)", o.Name)
}

func exprList(exprs []scalar.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func setOpString(name string, all bool) string {
	if all {
		return name + "(all)"
	}
	return name + "(distinct)"
}
