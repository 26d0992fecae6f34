package trino

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// AvoidTransformToDateUDF is the single rewrite flag this package
// recognizes. When true, to_date calls skip the operator mapping table
// and pass through unchanged.
const AvoidTransformToDateUDF = "avoid_transform_to_date_udf"

// Config carries boolean rewrite flags by name. Lookups never fail: a
// missing flag reads as false, and a nil Config is a valid empty one.
type Config map[string]bool

// Bool reports the value of the named flag.
func (c Config) Bool(name string) bool { return c[name] }

// ParseFlags builds a Config from name[=value] assignments. A bare name
// means true; accepted values are true/false, 1/0, yes/no and on/off,
// case-insensitively.
func ParseFlags(args []string) (Config, error) {
	cfg := make(Config, len(args))
	for _, arg := range args {
		name, value, assigned := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.Newf("rewrite flag %q: empty name", arg)
		}
		if !assigned {
			cfg[name] = true
			continue
		}
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			cfg[name] = true
		case "false", "0", "no", "off":
			cfg[name] = false
		default:
			return nil, errors.Newf("rewrite flag %q: bad boolean %q", name, value)
		}
	}
	return cfg, nil
}
