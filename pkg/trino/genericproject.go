package trino

import (
	"github.com/cockroachdb/errors"

	"github.com/planshift/planshift/pkg/scalar"
)

// ProjectionExpander expands a generic-projection marker call into the
// concrete expression it stands for. The expansion algorithm is owned by
// the caller; whatever it returns is used as-is, with no further
// rewriting of the result.
type ProjectionExpander interface {
	Expand(b *scalar.Builder, call *scalar.Call) (scalar.Expr, error)
}

// ErrNoExpander reports a generic-projection marker reached in a
// conversion that has no expander configured.
var ErrNoExpander = errors.New("generic projection marker with no expander configured")

func (c *converter) expandGenericProjection(call *scalar.Call) (scalar.Expr, bool, error) {
	if call.Op().Kind() != scalar.OpGenericProject {
		return nil, false, nil
	}
	if c.expander == nil {
		return nil, false, errors.Wrapf(ErrNoExpander, "operator %q", call.Op().Name())
	}
	out, err := c.expander.Expand(c.b, call)
	if err != nil {
		return nil, false, errors.Wrap(err, "expand generic projection")
	}
	return out, true, nil
}
