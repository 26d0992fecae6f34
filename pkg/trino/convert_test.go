package trino

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planshift/planshift/pkg/log"
	"github.com/planshift/planshift/pkg/plan"
	"github.com/planshift/planshift/pkg/scalar"
)

func scanNode(parts ...string) *plan.Scan {
	return &plan.Scan{Table: parts}
}

func convert(t *testing.T, root plan.Node, opts ...Option) plan.Node {
	t.Helper()
	out, err := ConvertPlan(root, nil, opts...)
	require.NoError(t, err)
	return out
}

func TestConvertPlanNilRoot(t *testing.T) {
	_, err := ConvertPlan(nil, nil)
	require.Error(t, err)
}

func TestConvertFilter(t *testing.T) {
	cond := mustCall(t, srcFunc("array_contains", 2, scalar.Boolean),
		scalar.NewFieldRef(0, scalar.Array), scalar.NewBigintLiteral(1))
	in := &plan.Filter{Input: scanNode("sales", "orders"), Condition: cond}

	out := convert(t, in).(*plan.Filter)

	assert.Equal(t, "Filter[contains($0, 1)]", out.String())
	assert.NotSame(t, in.Input, out.Input)
	assert.Equal(t, "Scan(sales.orders)", out.Input.String())
	assert.Same(t, cond, in.Condition, "input tree untouched")
}

func TestConvertProject(t *testing.T) {
	in := &plan.Project{
		Input: scanNode("t"),
		Projections: []scalar.Expr{
			mustCall(t, srcFunc("to_date", 1, scalar.Date), scalar.NewFieldRef(0, scalar.Varchar)),
			scalar.NewFieldRef(1, scalar.Bigint),
		},
		Names: []string{"d", "n"},
	}

	out := convert(t, in).(*plan.Project)

	assert.Equal(t, []string{"d", "n"}, out.Names)
	requireCall(t, out.Projections[0], opDate)
	assert.Same(t, in.Projections[1], out.Projections[1])
}

func TestConvertAggregate(t *testing.T) {
	agg := mustCall(t, srcFunc("max", 1, scalar.Varchar),
		mustCall(t, srcFunc("from_unixtime", 1, scalar.Varchar), scalar.NewFieldRef(1, scalar.Bigint)))
	in := &plan.Aggregate{
		Input:        scanNode("t"),
		GroupKeys:    []int{0},
		Aggregations: []scalar.Expr{agg},
		Names:        []string{"latest"},
	}

	out := convert(t, in).(*plan.Aggregate)

	assert.Equal(t, []int{0}, out.GroupKeys)
	assert.Equal(t, []string{"latest"}, out.Names)
	outer := requireCall(t, out.Aggregations[0], agg.Op())
	requireCall(t, outer.Operands()[0], opFormatDatetime)
}

func TestConvertJoin(t *testing.T) {
	cond := mustCall(t, srcEqualsOp(),
		scalar.NewFieldRef(0, scalar.Varchar), scalar.NewFieldRef(1, scalar.Bigint))
	in := &plan.Join{
		Left:      scanNode("a"),
		Right:     scanNode("b"),
		Type:      plan.JoinLeft,
		Condition: cond,
	}

	out := convert(t, in).(*plan.Join)

	assert.Equal(t, plan.JoinLeft, out.Type)
	eq := requireCall(t, out.Condition, cond.Op())
	requireCall(t, eq.Operands()[0], scalar.TryCastOperator)
}

func TestConvertCrossJoinKeepsNilCondition(t *testing.T) {
	in := &plan.Join{Left: scanNode("a"), Right: scanNode("b"), Type: plan.JoinInner}

	out := convert(t, in).(*plan.Join)
	assert.Nil(t, out.Condition)
}

func TestConvertSetOperations(t *testing.T) {
	union := convert(t, &plan.Union{Sources: []plan.Node{scanNode("a"), scanNode("b")}, All: true}).(*plan.Union)
	assert.True(t, union.All)
	assert.Len(t, union.Sources, 2)

	intersect := convert(t, &plan.Intersect{Sources: []plan.Node{scanNode("a"), scanNode("b")}}).(*plan.Intersect)
	assert.False(t, intersect.All)

	minus := convert(t, &plan.Minus{Sources: []plan.Node{scanNode("a"), scanNode("b")}, All: true}).(*plan.Minus)
	assert.True(t, minus.All)
}

func TestConvertSort(t *testing.T) {
	key := mustCall(t, srcFunc("to_date", 1, scalar.Date), scalar.NewFieldRef(0, scalar.Varchar))
	tiebreak := scalar.NewFieldRef(1, scalar.Bigint)
	fetch := scalar.NewBigintLiteral(10)
	in := &plan.Sort{
		Input: scanNode("t"),
		Keys: []plan.SortKey{
			{Expr: key},
			{Expr: tiebreak, Descending: true},
		},
		Fetch: fetch,
	}

	out := convert(t, in).(*plan.Sort)

	requireCall(t, out.Keys[0].Expr, opDate)
	assert.False(t, out.Keys[0].Descending)
	assert.Same(t, tiebreak, out.Keys[1].Expr)
	assert.True(t, out.Keys[1].Descending)
	assert.Nil(t, out.Offset)
	assert.Same(t, fetch, out.Fetch)
}

func TestConvertCorrelate(t *testing.T) {
	in := &plan.Correlate{Left: scanNode("a"), Right: scanNode("b"), Correlation: "$cor0"}

	out := convert(t, in).(*plan.Correlate)
	assert.Equal(t, "$cor0", out.Correlation)
	assert.Equal(t, "Scan(b)", out.Right.String())
}

func TestConvertExchange(t *testing.T) {
	in := &plan.Exchange{Input: scanNode("t"), Distribution: "hash[0]"}

	out := convert(t, in).(*plan.Exchange)
	assert.Equal(t, "hash[0]", out.Distribution)
}

func TestConvertMatch(t *testing.T) {
	eqOp := srcEqualsOp()
	in := &plan.Match{
		Input: scanNode("t"),
		Definitions: []plan.NamedExpr{
			{Name: "UP", Expr: mustCall(t, eqOp, scalar.NewFieldRef(0, scalar.Varchar), scalar.NewBigintLiteral(1))},
		},
	}

	out := convert(t, in).(*plan.Match)

	require.Len(t, out.Definitions, 1)
	assert.Equal(t, "UP", out.Definitions[0].Name)
	eq := requireCall(t, out.Definitions[0].Expr, eqOp)
	requireCall(t, eq.Operands()[0], scalar.TryCastOperator)
}

func TestConvertValues(t *testing.T) {
	in := &plan.Values{
		Names: []string{"d", "n"},
		Rows: [][]scalar.Expr{
			{mustCall(t, srcFunc("to_date", 1, scalar.Date), scalar.NewStringLiteral("2024-01-01")), scalar.NewBigintLiteral(1)},
			{scalar.NewTemporalLiteral("2024-01-02", scalar.Date), scalar.NewBigintLiteral(2)},
		},
	}

	out := convert(t, in).(*plan.Values)

	assert.Equal(t, []string{"d", "n"}, out.Names)
	require.Len(t, out.Rows, 2)
	require.Len(t, out.Rows[0], 2)
	requireCall(t, out.Rows[0][0], opDate)
	assert.Same(t, in.Rows[1][0], out.Rows[1][0])
}

func TestConvertTableFunctionScan(t *testing.T) {
	call := mustCall(t, srcFunc("unnest_json", 1, scalar.Varchar),
		mustCall(t, srcFunc("get_json_object", 2, scalar.Varchar),
			scalar.NewFieldRef(0, scalar.Varchar), scalar.NewStringLiteral("$.items")))
	in := &plan.TableFunctionScan{Sources: []plan.Node{scanNode("t")}, Call: call}

	out := convert(t, in).(*plan.TableFunctionScan)

	outer := requireCall(t, out.Call, call.Op())
	requireCall(t, outer.Operands()[0], opJSONExtract)
}

func TestConvertOther(t *testing.T) {
	in := &plan.Other{
		Name:     "window",
		Sources:  []plan.Node{scanNode("t")},
		Attached: []scalar.Expr{mustCall(t, srcFunc("rand", 0, scalar.Double))},
	}

	out := convert(t, in).(*plan.Other)

	assert.Equal(t, "window", out.Name)
	requireCall(t, out.Attached[0], opRandom)
}

func TestConvertErrorNamesNodeKind(t *testing.T) {
	marker := scalar.NewOperator("generic_project", scalar.OpGenericProject, 1, scalar.FixedReturn(scalar.Varchar))
	in := &plan.Filter{
		Input:     scanNode("t"),
		Condition: mustCall(t, marker, scalar.NewFieldRef(0, scalar.Varchar)),
	}

	_, err := ConvertPlan(in, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoExpander))
	assert.Contains(t, err.Error(), "filter")
}

func TestConvertFailureInsideDeepTreeAborts(t *testing.T) {
	marker := scalar.NewOperator("generic_project", scalar.OpGenericProject, 1, scalar.FixedReturn(scalar.Varchar))
	in := &plan.Project{
		Input: &plan.Filter{
			Input:     scanNode("t"),
			Condition: mustCall(t, marker, scalar.NewFieldRef(0, scalar.Varchar)),
		},
		Projections: []scalar.Expr{scalar.NewFieldRef(0, scalar.Varchar)},
	}

	out, err := ConvertPlan(in, nil)
	require.Error(t, err)
	assert.Nil(t, out, "no partial plans")
}

func TestConvertBuilderFailurePropagates(t *testing.T) {
	// to_date's transformer casts its operand to timestamp; a boolean
	// operand makes that cast impossible and must fail the whole plan.
	toDate := srcFunc("to_date", 1, scalar.Date)
	in := &plan.Project{
		Input:       scanNode("t"),
		Projections: []scalar.Expr{mustCall(t, toDate, scalar.NewFieldRef(0, scalar.Boolean))},
	}

	out, err := ConvertPlan(in, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map operator to_date/1")
	assert.Contains(t, err.Error(), "cannot convert BOOLEAN to TIMESTAMP")
	assert.Nil(t, out)
}

func TestConvertWithExpander(t *testing.T) {
	expanded := scalar.NewFieldRef(4, scalar.Varchar)
	exp := &stubExpander{out: expanded}
	marker := scalar.NewOperator("generic_project", scalar.OpGenericProject, 1, scalar.FixedReturn(scalar.Varchar))
	in := &plan.Project{
		Input:       scanNode("t"),
		Projections: []scalar.Expr{mustCall(t, marker, scalar.NewFieldRef(0, scalar.Varchar))},
	}

	out := convert(t, in, WithProjectionExpander(exp)).(*plan.Project)

	assert.Same(t, expanded, out.Projections[0])
	assert.Equal(t, 1, exp.calls)
}

func TestConvertFormatsAsExpected(t *testing.T) {
	in := &plan.Filter{
		Input:     scanNode("t"),
		Condition: mustCall(t, srcFunc("to_date", 1, scalar.Date), scalar.NewFieldRef(0, scalar.Varchar)),
	}

	out := convert(t, in, WithLogger(log.Nop()))

	assert.Equal(t, "Filter[date(CAST($0 AS TIMESTAMP))]\n  Scan(t)\n", plan.Format(out))
}

func TestConvertPlanStable(t *testing.T) {
	in := &plan.Sort{
		Input: &plan.Project{
			Input: &plan.Filter{
				Input: scanNode("sales", "orders"),
				Condition: mustCall(t, srcEqualsOp(),
					scalar.NewFieldRef(0, scalar.Varchar), scalar.NewBigintLiteral(7)),
			},
			Projections: []scalar.Expr{
				mustCall(t, srcFunc("from_utc_timestamp", 2, scalar.Timestamp),
					scalar.NewFieldRef(1, scalar.Integer), scalar.NewStringLiteral("UTC")),
				scalar.NewCall(srcMapOp(), scalar.Map,
					scalar.NewStringLiteral("k"), scalar.NewFieldRef(2, scalar.Bigint)),
			},
		},
		Keys: []plan.SortKey{{Expr: scalar.NewFieldRef(0, scalar.Timestamp)}},
	}

	once := convert(t, in)
	twice := convert(t, once)

	assert.Equal(t, once, twice)
	assert.Equal(t, plan.Format(once), plan.Format(twice))
}
