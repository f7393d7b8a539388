package engine

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dwinston/dbaudit/internal/logger"
	"github.com/dwinston/dbaudit/internal/store"
)

// Validator is the built-in constraint engine. It compiles "field op value"
// expressions and evaluates them record by record against a collection.
type Validator struct {
	log logger.Logger
}

// NewValidator creates a constraint engine.
func NewValidator(log logger.Logger) *Validator {
	return &Validator{log: log}
}

type constraintSpec struct {
	exprs       []string
	constraints []Constraint
}

func (s *constraintSpec) Expressions() []string { return s.exprs }

var typeNames = map[string]bool{
	"int":    true,
	"float":  true,
	"string": true,
	"bool":   true,
	"list":   true,
	"dict":   true,
}

// BuildSpec compiles constraint expressions. Supported forms:
//
//	field <op> value     with op in {=, !=, <, <=, >, >=}
//	field exists
//	field type <name>    with name in {int, float, string, bool, list, dict}
//
// Alias field names are resolved to their canonical forms here, so the
// evaluation loop only ever sees canonical names.
func (v *Validator) BuildSpec(exprs []string, aliases map[string]string) (Spec, error) {
	spec := &constraintSpec{exprs: exprs}
	for _, expr := range exprs {
		parts := strings.Fields(expr)
		if len(parts) < 2 {
			return nil, fmt.Errorf("constraint %q: expected \"field op [value]\"", expr)
		}
		field := parts[0]
		if canonical, ok := aliases[field]; ok {
			field = canonical
		}
		op := parts[1]

		var c Constraint
		switch {
		case op == "exists":
			if len(parts) != 2 {
				return nil, fmt.Errorf("constraint %q: \"exists\" takes no value", expr)
			}
			c = Constraint{Field: field, Operator: "exists", Expected: Literal(true)}
		case op == "type":
			if len(parts) != 3 {
				return nil, fmt.Errorf("constraint %q: \"type\" takes one type name", expr)
			}
			if !typeNames[parts[2]] {
				return nil, fmt.Errorf("constraint %q: unknown type %q", expr, parts[2])
			}
			c = Constraint{Field: field, Operator: "type", Expected: TypeMarker(parts[2])}
		default:
			if _, ok := comparisonOps[op]; !ok {
				return nil, fmt.Errorf("constraint %q: unknown operator %q", expr, op)
			}
			if len(parts) != 3 {
				return nil, fmt.Errorf("constraint %q: expected \"field %s value\"", expr, op)
			}
			c = Constraint{Field: field, Operator: op, Expected: Literal(parseScalar(parts[2]))}
		}
		spec.constraints = append(spec.constraints, c)
	}
	if len(spec.constraints) == 0 {
		return nil, fmt.Errorf("no constraints given")
	}
	return spec, nil
}

// Validate evaluates the spec over every record in the collection, grouping
// violations by condition and emitting each non-empty group in the order its
// first violation appeared.
func (v *Validator) Validate(ctx context.Context, coll store.Collection, spec Spec, opts ValidateOptions, emit func(ViolationGroup) error) error {
	cs, ok := spec.(*constraintSpec)
	if !ok {
		return fmt.Errorf("spec was not built by this engine")
	}

	cur, err := coll.Find(ctx, nil)
	if err != nil {
		return fmt.Errorf("find on %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	groups := make(map[string]*ViolationGroup)
	var order []string
	records, violations := 0, 0

scan:
	for cur.Next(ctx) {
		var doc store.Document
		if err := cur.Decode(&doc); err != nil {
			return fmt.Errorf("decode record in %s: %w", coll.Name(), err)
		}
		records++
		if opts.ProgressInterval > 0 && records%opts.ProgressInterval == 0 && opts.Progress != nil {
			opts.Progress(records)
		}

		for _, c := range cs.constraints {
			val, present := lookupField(doc, c.Field)
			if !present {
				// MustExist narrows reporting to records that carry the
				// field; only the explicit "exists" operator still fires.
				if c.Operator != "exists" && opts.MustExist {
					continue
				}
				val = "<missing>"
			} else if c.Operator == "exists" || satisfies(c, val) {
				continue
			}

			cond := c.Field + " " + c.Display()
			g, seen := groups[cond]
			if !seen {
				g = &ViolationGroup{Condition: cond}
				groups[cond] = g
				order = append(order, cond)
			}
			g.Violations = append(g.Violations, Violation{
				ID:         fmt.Sprint(doc["_id"]),
				TaskID:     fmt.Sprint(doc["task_id"]),
				Field:      c.Field,
				Constraint: c,
				Value:      val,
			})

			violations++
			if opts.Limit > 0 && violations >= opts.Limit {
				v.log.Warn(fmt.Sprintf("violation limit %d reached on %s", opts.Limit, coll.Name()))
				break scan
			}
		}
	}
	if err := cur.Err(); err != nil {
		return fmt.Errorf("cursor on %s: %w", coll.Name(), err)
	}

	for _, cond := range order {
		g := groups[cond]
		if len(g.Violations) == 0 {
			continue
		}
		if err := emit(*g); err != nil {
			return err
		}
	}
	return nil
}

// lookupField resolves a possibly dotted field path inside a document.
func lookupField(doc store.Document, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := toMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case store.Document:
		return m, true
	case map[string]interface{}:
		return m, true
	case bson.D:
		out := make(map[string]interface{}, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	default:
		return nil, false
	}
}

// satisfies reports whether the present value meets the constraint.
func satisfies(c Constraint, val interface{}) bool {
	if c.Operator == "type" {
		return typeOf(val) == c.Expected.TypeName
	}

	exp := c.Expected.Value
	if lf, lok := toFloat(val); lok {
		rf, rok := toFloat(exp)
		if !rok {
			return false
		}
		return compareFloat(c.Operator, lf, rf)
	}
	ls, lok := val.(string)
	rs := fmt.Sprint(exp)
	if !lok {
		// Non-numeric, non-string values only support (in)equality.
		switch c.Operator {
		case "=":
			return fmt.Sprint(val) == rs
		case "!=":
			return fmt.Sprint(val) != rs
		}
		return false
	}
	return compareString(c.Operator, ls, rs)
}

func compareFloat(op string, l, r float64) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

func compareString(op string, l, r string) bool {
	switch op {
	case "=":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func typeOf(v interface{}) string {
	switch v.(type) {
	case int, int32, int64:
		return "int"
	case float32, float64:
		return "float"
	case string:
		return "string"
	case bool:
		return "bool"
	case bson.A, []interface{}:
		return "list"
	case store.Document, map[string]interface{}, bson.D:
		return "dict"
	default:
		return ""
	}
}
