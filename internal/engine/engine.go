// Package engine defines the contracts for the two evaluation collaborators:
// the constraint engine behind validate and the diff engine behind diff. The
// reporting core depends only on the types here, never on how the engines
// gather their results.
package engine

import (
	"context"
	"fmt"

	"github.com/dwinston/dbaudit/internal/store"
)

// ExpectedKind tags the expected side of a constraint.
type ExpectedKind int

const (
	// ExpectedLiteral means the expected value is a plain literal.
	ExpectedLiteral ExpectedKind = iota
	// ExpectedTypeMarker means the expected value names a type rather than
	// a literal; formatters show its display name instead of the value.
	ExpectedTypeMarker
)

// ExpectedValue is the tagged expected side of a constraint.
type ExpectedValue struct {
	Kind     ExpectedKind
	Value    interface{}
	TypeName string
}

// Literal wraps a plain expected value.
func Literal(v interface{}) ExpectedValue {
	return ExpectedValue{Kind: ExpectedLiteral, Value: v}
}

// TypeMarker wraps a type-name expected value.
func TypeMarker(name string) ExpectedValue {
	return ExpectedValue{Kind: ExpectedTypeMarker, TypeName: name}
}

// Display renders the expected value in printable form.
func (e ExpectedValue) Display() string {
	if e.Kind == ExpectedTypeMarker {
		return e.TypeName
	}
	return fmt.Sprint(e.Value)
}

// Constraint is one per-field rule a record must satisfy.
type Constraint struct {
	Field    string
	Operator string
	Expected ExpectedValue
}

// Display renders the constraint as "<operator> <expected>".
func (c Constraint) Display() string {
	return c.Operator + " " + c.Expected.Display()
}

// Violation is one failed constraint on one record.
type Violation struct {
	ID         string
	TaskID     string
	Field      string
	Constraint Constraint
	Value      interface{}
}

// ViolationGroup is a set of violations sharing one failed condition.
type ViolationGroup struct {
	Condition  string
	Violations []Violation
}

// Spec is an engine-built constraint specification. Opaque to callers.
type Spec interface {
	Expressions() []string
}

// ValidateOptions are the knobs the runner passes through to the engine.
type ValidateOptions struct {
	// Limit caps the number of violations collected; 0 means unlimited.
	Limit int
	// ProgressInterval invokes Progress every N records when > 0.
	ProgressInterval int
	// MustExist restricts checks to records where the constrained field
	// is present.
	MustExist bool
	// Progress receives the running record count.
	Progress func(records int)
}

// ConstraintEngine builds constraint specifications and streams grouped
// violations for one collection.
type ConstraintEngine interface {
	// BuildSpec compiles constraint expression strings, resolving alias
	// field names to their canonical forms.
	BuildSpec(exprs []string, aliases map[string]string) (Spec, error)

	// Validate evaluates the spec against the collection and emits each
	// non-empty violation group, in emission order, to emit. A store
	// error aborts the stream.
	Validate(ctx context.Context, coll store.Collection, spec Spec, opts ValidateOptions, emit func(ViolationGroup) error) error
}

// ChangeKind classifies one diff entry.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeChanged ChangeKind = "changed"
)

// ChangeEntry is one record-level difference between the two sources.
type ChangeEntry struct {
	Kind     ChangeKind             `bson:"kind" json:"kind"`
	Key      string                 `bson:"key" json:"key"`
	Field    string                 `bson:"field,omitempty" json:"field,omitempty"`
	OldValue interface{}            `bson:"old_value,omitempty" json:"old_value,omitempty"`
	NewValue interface{}            `bson:"new_value,omitempty" json:"new_value,omitempty"`
	Info     map[string]interface{} `bson:"info,omitempty" json:"info,omitempty"`
}

// DiffResult is what the diff engine hands back: change entries plus
// summary counts. The reporting core never interprets it further.
type DiffResult struct {
	Entries []ChangeEntry `bson:"entries" json:"entries"`
	Added   int           `bson:"added" json:"added"`
	Removed int           `bson:"removed" json:"removed"`
	Changed int           `bson:"changed" json:"changed"`
}

// CollectionSource describes one side of a diff: where to connect and
// which collection to read.
type CollectionSource struct {
	Params     store.Params `yaml:",inline"`
	Collection string       `yaml:"collection"`
}

// Describe is a short printable descriptor for report metadata.
func (s CollectionSource) Describe() string {
	return fmt.Sprintf("%s/%s.%s", s.Params.Addr(), s.Params.Database, s.Collection)
}

// MatchRules configures how records from the two sources are matched and
// compared.
type MatchRules struct {
	// KeyField pairs records across the two sources.
	KeyField string
	// ExtraInfoFields are carried into added/removed entries for context.
	ExtraInfoFields []string
	// MustMatchFields are compared on paired records.
	MustMatchFields []string
	// Tolerances allows per-field numeric slack on must-match fields.
	Tolerances map[string]Tolerance
	// Filter restricts which records participate, store-native form.
	Filter store.Filter
	// OnlyMissing skips value comparison and reports presence only.
	OnlyMissing bool
	// OnlyValues skips added/removed and reports value changes only.
	OnlyValues bool
}

// DiffEngine compares two collection sources.
type DiffEngine interface {
	Diff(ctx context.Context, old, new CollectionSource, rules MatchRules) (*DiffResult, error)
}

// FilterTranslator turns a filter expression in the small comparison
// language into a store-native filter.
type FilterTranslator interface {
	Translate(expr string) (store.Filter, error)
}
