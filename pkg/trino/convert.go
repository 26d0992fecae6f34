// Package trino rewrites relational plans produced by a Hive-compatible
// front end so that every scalar expression calls this engine's
// built-in operators. The rewrite is structural: each plan node is
// rebuilt with converted children and rewritten expressions, bottom-up,
// and the input tree is never modified. Call rewriting runs a fixed
// priority chain — generic-projection expansion, map-constructor
// splitting, the unix-epoch timestamp functions, timestamp-to-decimal
// casts, the operator mapping table, and equality coercion — where the
// first matching rule wins.
package trino

import (
	"github.com/cockroachdb/errors"

	"github.com/planshift/planshift/pkg/log"
	"github.com/planshift/planshift/pkg/plan"
	"github.com/planshift/planshift/pkg/scalar"
)

// converter carries the state of one conversion. It is built per call
// to ConvertPlan and never shared, so conversions run concurrently
// without coordination.
type converter struct {
	cfg      Config
	expander ProjectionExpander
	logger   *log.Logger
	b        *scalar.Builder
	rules    []rewriteRule
}

// Option configures a single conversion.
type Option func(*converter)

// WithProjectionExpander supplies the collaborator that expands
// generic-projection markers. Without one, any plan containing a marker
// fails to convert.
func WithProjectionExpander(e ProjectionExpander) Option {
	return func(c *converter) { c.expander = e }
}

// WithLogger attaches a logger for conversion diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *converter) { c.logger = l }
}

func newConverter(cfg Config, opts []Option) *converter {
	c := &converter{cfg: cfg, b: scalar.NewBuilder()}
	for _, opt := range opts {
		opt(c)
	}
	c.rules = []rewriteRule{
		c.expandGenericProjection,
		c.rewriteMapConstructor,
		c.rewriteFromUTCTimestamp,
		c.rewriteFromUnixtime,
		c.rewriteTimestampToDecimalCast,
		c.applyOperatorMapping,
		c.adjustEquality,
	}
	return c
}

// ConvertPlan returns an equivalent plan whose scalar expressions call
// the target engine's built-ins. Any rule or construction failure
// aborts the whole conversion; there is no partial output.
func ConvertPlan(root plan.Node, cfg Config, opts ...Option) (plan.Node, error) {
	if root == nil {
		return nil, errors.New("convert: nil plan")
	}
	c := newConverter(cfg, opts)
	out, err := c.convertNode(root)
	if err != nil {
		return nil, err
	}
	if c.logger != nil {
		c.logger.Debug("plan converted", "nodes", plan.Count(out))
	}
	return out, nil
}

// RewriteExpr runs a single expression through the same rule chain
// ConvertPlan applies to plan-attached expressions.
func RewriteExpr(e scalar.Expr, cfg Config, opts ...Option) (scalar.Expr, error) {
	if e == nil {
		return nil, errors.New("rewrite: nil expression")
	}
	return newConverter(cfg, opts).rewriteExpr(e)
}

// convertNode rebuilds one node with converted children and rewritten
// expressions. The known kinds are enumerated; anything else converts
// through the generic Node contract in the default arm, so unknown
// implementations are carried instead of dropped.
func (c *converter) convertNode(n plan.Node) (plan.Node, error) {
	switch n := n.(type) {
	case *plan.Scan:
		return &plan.Scan{Table: n.Table}, nil

	case *plan.Filter:
		input, err := c.convertNode(n.Input)
		if err != nil {
			return nil, err
		}
		condition, err := c.rewriteNodeExpr(n, n.Condition)
		if err != nil {
			return nil, err
		}
		return &plan.Filter{Input: input, Condition: condition}, nil

	case *plan.Project:
		input, err := c.convertNode(n.Input)
		if err != nil {
			return nil, err
		}
		projections, err := c.rewriteAll(n, n.Projections)
		if err != nil {
			return nil, err
		}
		return &plan.Project{Input: input, Projections: projections, Names: n.Names}, nil

	case *plan.Aggregate:
		input, err := c.convertNode(n.Input)
		if err != nil {
			return nil, err
		}
		aggregations, err := c.rewriteAll(n, n.Aggregations)
		if err != nil {
			return nil, err
		}
		return &plan.Aggregate{Input: input, GroupKeys: n.GroupKeys, Aggregations: aggregations, Names: n.Names}, nil

	case *plan.Join:
		left, err := c.convertNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.convertNode(n.Right)
		if err != nil {
			return nil, err
		}
		out := &plan.Join{Left: left, Right: right, Type: n.Type}
		if n.Condition != nil {
			if out.Condition, err = c.rewriteNodeExpr(n, n.Condition); err != nil {
				return nil, err
			}
		}
		return out, nil

	case *plan.Correlate:
		left, err := c.convertNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.convertNode(n.Right)
		if err != nil {
			return nil, err
		}
		return &plan.Correlate{Left: left, Right: right, Correlation: n.Correlation}, nil

	case *plan.Union:
		sources, err := c.convertAll(n.Sources)
		if err != nil {
			return nil, err
		}
		return &plan.Union{Sources: sources, All: n.All}, nil

	case *plan.Intersect:
		sources, err := c.convertAll(n.Sources)
		if err != nil {
			return nil, err
		}
		return &plan.Intersect{Sources: sources, All: n.All}, nil

	case *plan.Minus:
		sources, err := c.convertAll(n.Sources)
		if err != nil {
			return nil, err
		}
		return &plan.Minus{Sources: sources, All: n.All}, nil

	case *plan.Sort:
		input, err := c.convertNode(n.Input)
		if err != nil {
			return nil, err
		}
		keys := make([]plan.SortKey, len(n.Keys))
		for i, k := range n.Keys {
			e, err := c.rewriteNodeExpr(n, k.Expr)
			if err != nil {
				return nil, err
			}
			keys[i] = plan.SortKey{Expr: e, Descending: k.Descending}
		}
		out := &plan.Sort{Input: input, Keys: keys}
		if n.Offset != nil {
			if out.Offset, err = c.rewriteNodeExpr(n, n.Offset); err != nil {
				return nil, err
			}
		}
		if n.Fetch != nil {
			if out.Fetch, err = c.rewriteNodeExpr(n, n.Fetch); err != nil {
				return nil, err
			}
		}
		return out, nil

	case *plan.Exchange:
		input, err := c.convertNode(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Exchange{Input: input, Distribution: n.Distribution}, nil

	case *plan.Match:
		input, err := c.convertNode(n.Input)
		if err != nil {
			return nil, err
		}
		defs := make([]plan.NamedExpr, len(n.Definitions))
		for i, d := range n.Definitions {
			e, err := c.rewriteNodeExpr(n, d.Expr)
			if err != nil {
				return nil, err
			}
			defs[i] = plan.NamedExpr{Name: d.Name, Expr: e}
		}
		return &plan.Match{Input: input, Definitions: defs}, nil

	case *plan.Values:
		rows := make([][]scalar.Expr, len(n.Rows))
		for i, row := range n.Rows {
			r, err := c.rewriteAll(n, row)
			if err != nil {
				return nil, err
			}
			rows[i] = r
		}
		return &plan.Values{Names: n.Names, Rows: rows}, nil

	case *plan.TableFunctionScan:
		sources, err := c.convertAll(n.Sources)
		if err != nil {
			return nil, err
		}
		call, err := c.rewriteNodeExpr(n, n.Call)
		if err != nil {
			return nil, err
		}
		return &plan.TableFunctionScan{Sources: sources, Call: call}, nil

	case *plan.Other:
		sources, err := c.convertAll(n.Sources)
		if err != nil {
			return nil, err
		}
		attached, err := c.rewriteAll(n, n.Attached)
		if err != nil {
			return nil, err
		}
		return &plan.Other{Name: n.Name, Sources: sources, Attached: attached}, nil

	default:
		inputs, err := c.convertAll(n.Inputs())
		if err != nil {
			return nil, err
		}
		exprs, err := c.rewriteAll(n, n.Exprs())
		if err != nil {
			return nil, err
		}
		return n.Clone(inputs, exprs), nil
	}
}

func (c *converter) convertAll(nodes []plan.Node) ([]plan.Node, error) {
	out := make([]plan.Node, len(nodes))
	for i, n := range nodes {
		converted, err := c.convertNode(n)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return out, nil
}

func (c *converter) rewriteAll(n plan.Node, exprs []scalar.Expr) ([]scalar.Expr, error) {
	out := make([]scalar.Expr, len(exprs))
	for i, e := range exprs {
		rewritten, err := c.rewriteNodeExpr(n, e)
		if err != nil {
			return nil, err
		}
		out[i] = rewritten
	}
	return out, nil
}

func (c *converter) rewriteNodeExpr(n plan.Node, e scalar.Expr) (scalar.Expr, error) {
	out, err := c.rewriteExpr(e)
	if err != nil {
		return nil, errors.Wrapf(err, "rewrite %s expression", n.Kind())
	}
	return out, nil
}
