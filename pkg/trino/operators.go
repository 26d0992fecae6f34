package trino

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/planshift/planshift/pkg/scalar"
)

// builtins interns one descriptor per target-engine function, so every
// call the converter mints shares a single Operator per name regardless
// of how many plans are converted concurrently.
var builtins = xsync.NewMapOf[string, *scalar.Operator]()

// builtinFunc returns the interned descriptor for a target-engine
// built-in function.
func builtinFunc(name string, arity int, ret scalar.ReturnRule) *scalar.Operator {
	op, _ := builtins.LoadOrCompute(name, func() *scalar.Operator {
		return scalar.NewBuiltin(name, scalar.OpFunction, arity, ret)
	})
	return op
}

// Target-engine descriptors used by the special-case rules. The engine
// has no timezone-aware timestamp in this type vocabulary, so the
// timezone-shifting functions declare plain TIMESTAMP; only the declared
// type is affected, not evaluated semantics downstream.
var (
	opAtTimezone        = builtinFunc("at_timezone", 2, scalar.FixedReturn(scalar.Timestamp))
	opWithTimezone      = builtinFunc("with_timezone", 2, scalar.FixedReturn(scalar.Timestamp))
	opFromUnixtimeNanos = builtinFunc("from_unixtime_nanos", 1, scalar.FixedReturn(scalar.Timestamp))
	opFromUnixtime      = builtinFunc("from_unixtime", 1, scalar.FixedReturn(scalar.Timestamp))
	opToUnixtime        = builtinFunc("to_unixtime", 1, scalar.FixedReturn(scalar.Double))
	opFormatDatetime    = builtinFunc("format_datetime", 2, scalar.FixedReturn(scalar.Varchar))
	opCanonicalizeTZ    = builtinFunc("$canonicalize_hive_timezone_id", 1, scalar.FixedReturn(scalar.Varchar))
	opMultiply          = scalar.NewBuiltin("*", scalar.OpFunction, 2, scalar.OperandReturn(0))
	opMapConstructor    = scalar.NewBuiltin("map", scalar.OpMapConstructor, scalar.Variadic, nil)
	opArrayConstructor  = scalar.NewBuiltin("array", scalar.OpArrayConstructor, scalar.Variadic, nil)
)

// Descriptors the mapping-table transformers rewrite to.
var (
	opDate          = builtinFunc("date", 1, scalar.FixedReturn(scalar.Date))
	opCoalesce      = builtinFunc("coalesce", scalar.Variadic, scalar.OperandReturn(0))
	opContains      = builtinFunc("contains", 2, scalar.FixedReturn(scalar.Boolean))
	opStrpos        = builtinFunc("strpos", 2, scalar.FixedReturn(scalar.Bigint))
	opRandom        = builtinFunc("random", 0, scalar.FixedReturn(scalar.Double))
	opMod           = builtinFunc("mod", 2, scalar.OperandReturn(0))
	opAdd           = scalar.NewBuiltin("+", scalar.OpFunction, 2, scalar.OperandReturn(0))
	opJSONExtract   = builtinFunc("json_extract", 2, scalar.FixedReturn(scalar.Varchar))
	opArrayJoin     = builtinFunc("array_join", 2, scalar.FixedReturn(scalar.Varchar))
	opRegexpExtract = builtinFunc("regexp_extract", 2, scalar.FixedReturn(scalar.Varchar))
)
