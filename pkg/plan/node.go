// Package plan models relational query plans as immutable trees of
// typed nodes. The node-kind set is closed; every node exposes its
// children and attached scalar expressions through a uniform contract so
// generic passes can rebuild trees without knowing each kind.
package plan

import (
	"strings"

	"github.com/planshift/planshift/pkg/scalar"
)

// Kind tags a plan node's operation.
type Kind int

const (
	KindScan Kind = iota
	KindFilter
	KindProject
	KindAggregate
	KindJoin
	KindCorrelate
	KindUnion
	KindIntersect
	KindMinus
	KindSort
	KindExchange
	KindMatch
	KindValues
	KindTableFunctionScan
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindScan:
		return "scan"
	case KindFilter:
		return "filter"
	case KindProject:
		return "project"
	case KindAggregate:
		return "aggregate"
	case KindJoin:
		return "join"
	case KindCorrelate:
		return "correlate"
	case KindUnion:
		return "union"
	case KindIntersect:
		return "intersect"
	case KindMinus:
		return "minus"
	case KindSort:
		return "sort"
	case KindExchange:
		return "exchange"
	case KindMatch:
		return "match"
	case KindValues:
		return "values"
	case KindTableFunctionScan:
		return "table_function_scan"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseKind resolves a node kind by its name.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scan":
		return KindScan, true
	case "filter":
		return KindFilter, true
	case "project":
		return KindProject, true
	case "aggregate":
		return KindAggregate, true
	case "join":
		return KindJoin, true
	case "correlate":
		return KindCorrelate, true
	case "union":
		return KindUnion, true
	case "intersect":
		return KindIntersect, true
	case "minus":
		return KindMinus, true
	case "sort":
		return KindSort, true
	case "exchange":
		return KindExchange, true
	case "match":
		return KindMatch, true
	case "values":
		return KindValues, true
	case "table_function_scan":
		return KindTableFunctionScan, true
	case "other":
		return KindOther, true
	default:
		return KindOther, false
	}
}

// Node is one operation in a query plan tree.
//
// Exprs returns the node's attached scalar expressions in a fixed,
// kind-specific order, and Clone rebuilds the node from replacement
// children and expressions given in that same order and shape. The pair
// is what lets a generic pass transform nodes it does not enumerate.
// Returned slices must not be mutated.
type Node interface {
	Kind() Kind
	Inputs() []Node
	Exprs() []scalar.Expr
	Clone(inputs []Node, exprs []scalar.Expr) Node
	String() string

	isNode()
}

// NamedExpr pairs an expression with a name.
type NamedExpr struct {
	Name string
	Expr scalar.Expr
}

// SortKey is one ordering term of a Sort node.
type SortKey struct {
	Expr       scalar.Expr
	Descending bool
}

// JoinType classifies a Join node.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinSemi
	JoinAnti
)

func (t JoinType) String() string {
	switch t {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinFull:
		return "full"
	case JoinSemi:
		return "semi"
	case JoinAnti:
		return "anti"
	default:
		return "unknown"
	}
}

// ParseJoinType resolves a join type by its name.
func ParseJoinType(s string) (JoinType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inner", "":
		return JoinInner, true
	case "left":
		return JoinLeft, true
	case "right":
		return JoinRight, true
	case "full":
		return JoinFull, true
	case "semi":
		return JoinSemi, true
	case "anti":
		return JoinAnti, true
	default:
		return JoinInner, false
	}
}
