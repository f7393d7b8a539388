package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tolerance is a compiled numeric-tolerance expression. The grammar is
// "+-N" for an absolute delta, "+-N%" for a relative one, with an optional
// leading "=" making the comparison inclusive.
type Tolerance struct {
	Value     float64
	Percent   bool
	Inclusive bool
}

// ParseTolerance compiles one tolerance expression.
func ParseTolerance(expr string) (Tolerance, error) {
	var t Tolerance
	s := strings.TrimSpace(expr)
	if s == "" {
		return t, fmt.Errorf("empty tolerance expression")
	}
	if strings.HasPrefix(s, "=") {
		t.Inclusive = true
		s = s[1:]
	}
	if !strings.HasPrefix(s, "+-") {
		return t, fmt.Errorf("tolerance %q: expected \"+-\" prefix", expr)
	}
	s = s[2:]
	if strings.HasSuffix(s, "%") {
		t.Percent = true
		s = strings.TrimSuffix(s, "%")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return t, fmt.Errorf("tolerance %q: bad number %q", expr, s)
	}
	if v < 0 {
		return t, fmt.Errorf("tolerance %q: negative delta", expr)
	}
	t.Value = v
	return t, nil
}

// Within reports whether new is within the tolerance of old.
func (t Tolerance) Within(old, new float64) bool {
	delta := math.Abs(new - old)
	limit := t.Value
	if t.Percent {
		limit = math.Abs(old) * t.Value / 100
	}
	if t.Inclusive {
		return delta <= limit
	}
	return delta < limit
}

// ParseToleranceFields parses a comma list of "field=expr" pairs into
// compiled tolerances. A compile failure names the offending field and
// expression.
func ParseToleranceFields(list string) (map[string]Tolerance, error) {
	out := make(map[string]Tolerance)
	if strings.TrimSpace(list) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(list, ",") {
		// Cut on the first "=" only: "f==+-5" means field "f" with the
		// inclusive expression "=+-5".
		name, expr, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bad tolerance pair %q: expected field=expr", pair)
		}
		t, err := ParseTolerance(expr)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}
