package engine

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dwinston/dbaudit/internal/store"
)

// ComparisonTranslator translates the small comparison language into a
// store-native filter. Clauses are comma-separated "field op value" triples
// joined with an implicit AND, e.g. "energy > 0, state = done".
type ComparisonTranslator struct{}

// NewComparisonTranslator returns the default filter translator.
func NewComparisonTranslator() *ComparisonTranslator {
	return &ComparisonTranslator{}
}

var comparisonOps = map[string]string{
	">":  "$gt",
	">=": "$gte",
	"<":  "$lt",
	"<=": "$lte",
	"!=": "$ne",
	"=":  "",
}

// Translate implements FilterTranslator.
func (t *ComparisonTranslator) Translate(expr string) (store.Filter, error) {
	filter := store.Filter{}
	for _, clause := range strings.Split(expr, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		parts := strings.Fields(clause)
		if len(parts) != 3 {
			return nil, fmt.Errorf("filter clause %q: expected \"field op value\"", clause)
		}
		field, op, raw := parts[0], parts[1], parts[2]
		mop, ok := comparisonOps[op]
		if !ok {
			return nil, fmt.Errorf("filter clause %q: unknown operator %q", clause, op)
		}
		value := parseScalar(raw)
		if mop == "" {
			filter[field] = value
		} else {
			filter[field] = bson.M{mop: value}
		}
	}
	if len(filter) == 0 {
		return nil, fmt.Errorf("empty filter expression")
	}
	return filter, nil
}

// parseScalar interprets a literal token as int, float, bool, or string.
// Single or double quotes force a string.
func parseScalar(raw string) interface{} {
	if len(raw) >= 2 {
		if (raw[0] == '\'' && raw[len(raw)-1] == '\'') || (raw[0] == '"' && raw[len(raw)-1] == '"') {
			return raw[1 : len(raw)-1]
		}
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
