package trino

import (
	"strings"

	"github.com/planshift/planshift/pkg/scalar"
)

// unixtimeFormat is the render pattern applied when from_unixtime is
// called without an explicit format.
const unixtimeFormat = "yyyy-MM-dd HH:mm:ss"

// rewriteFromUnixtime turns the source dialect's string-returning
// from_unixtime into format_datetime over the engine's own
// timestamp-returning from_unixtime. Calls on the engine descriptor are
// left alone, which keeps the identical name from looping.
func (c *converter) rewriteFromUnixtime(call *scalar.Call) (scalar.Expr, bool, error) {
	if call.Op().IsBuiltin() || !strings.EqualFold(call.Op().Name(), "from_unixtime") {
		return nil, false, nil
	}
	ops := call.Operands()

	var format scalar.Expr
	switch len(ops) {
	case 1:
		format = scalar.NewStringLiteral(unixtimeFormat)
	case 2:
		format = ops[1]
	default:
		return nil, false, nil
	}

	inner, err := c.b.Call(opFromUnixtime, ops[0])
	if err != nil {
		return nil, false, err
	}
	out, err := c.b.Call(opFormatDatetime, inner, format)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// rewriteFromUTCTimestamp expresses from_utc_timestamp(value, tz) with
// engine built-ins. The shape depends on how the value encodes an
// instant: exact integers are unix milliseconds, approximate numerics
// are unix seconds, and temporal values are wall-clock readings pinned
// to UTC. Values outside those groups fall through to the rules below.
func (c *converter) rewriteFromUTCTimestamp(call *scalar.Call) (scalar.Expr, bool, error) {
	if call.Op().IsBuiltin() || !strings.EqualFold(call.Op().Name(), "from_utc_timestamp") {
		return nil, false, nil
	}
	ops := call.Operands()
	if len(ops) != 2 {
		return nil, false, nil
	}
	value, tz := ops[0], ops[1]

	canon, err := c.b.Call(opCanonicalizeTZ, tz)
	if err != nil {
		return nil, false, err
	}

	var shifted scalar.Expr
	switch tag := value.Type().Tag; {
	case tag.IsInteger():
		asBigint, err := c.b.Cast(scalar.Bigint, value)
		if err != nil {
			return nil, false, err
		}
		nanos, err := c.b.Call(opMultiply, asBigint, scalar.NewBigintLiteral(1000000))
		if err != nil {
			return nil, false, err
		}
		if shifted, err = c.b.Call(opFromUnixtimeNanos, nanos); err != nil {
			return nil, false, err
		}
	case tag.IsApproximate():
		asDouble, err := c.b.Cast(scalar.Double, value)
		if err != nil {
			return nil, false, err
		}
		if shifted, err = c.b.Call(opFromUnixtime, asDouble); err != nil {
			return nil, false, err
		}
	case tag.IsTemporal():
		utc, err := c.b.Call(opWithTimezone, value, scalar.NewStringLiteral("UTC"))
		if err != nil {
			return nil, false, err
		}
		seconds, err := c.b.Call(opToUnixtime, utc)
		if err != nil {
			return nil, false, err
		}
		if shifted, err = c.b.Call(opFromUnixtime, seconds); err != nil {
			return nil, false, err
		}
	default:
		return nil, false, nil
	}

	at, err := c.b.Call(opAtTimezone, shifted, canon)
	if err != nil {
		return nil, false, err
	}
	out, err := c.b.Cast(scalar.Timestamp.WithPrecision(3), at)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
