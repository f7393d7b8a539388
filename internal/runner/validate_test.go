package runner

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwinston/dbaudit/internal/config"
	"github.com/dwinston/dbaudit/internal/engine"
	"github.com/dwinston/dbaudit/internal/errors"
	"github.com/dwinston/dbaudit/internal/logger"
	"github.com/dwinston/dbaudit/internal/report"
	"github.com/dwinston/dbaudit/internal/store"
)

type stubConn struct{}

func (stubConn) Collection(name string) store.Collection { return stubCollection{name: name} }
func (stubConn) Ping(ctx context.Context) error          { return nil }
func (stubConn) Close(ctx context.Context) error         { return nil }

type stubCollection struct{ name string }

func (c stubCollection) Name() string { return c.name }
func (c stubCollection) Find(ctx context.Context, f store.Filter) (store.Cursor, error) {
	return nil, stderrors.New("not used")
}
func (c stubCollection) CountDocuments(ctx context.Context, f store.Filter) (int64, error) {
	return 7, nil
}
func (c stubCollection) InsertOne(ctx context.Context, d store.Document) error { return nil }

// scriptedEngine returns canned violation groups per collection name, or an
// error for collections listed in fail.
type scriptedEngine struct {
	groups map[string][]engine.ViolationGroup
	fail   map[string]error

	specErr   error
	validated []string
	limits    []int
}

type stubSpec struct{ exprs []string }

func (s stubSpec) Expressions() []string { return s.exprs }

func (e *scriptedEngine) BuildSpec(exprs []string, aliases map[string]string) (engine.Spec, error) {
	if e.specErr != nil {
		return nil, e.specErr
	}
	return stubSpec{exprs: exprs}, nil
}

func (e *scriptedEngine) Validate(ctx context.Context, coll store.Collection, spec engine.Spec, opts engine.ValidateOptions, emit func(engine.ViolationGroup) error) error {
	e.validated = append(e.validated, coll.Name())
	e.limits = append(e.limits, opts.Limit)
	if err := e.fail[coll.Name()]; err != nil {
		return err
	}
	for _, g := range e.groups[coll.Name()] {
		if err := emit(g); err != nil {
			return err
		}
	}
	return nil
}

func newTestRunner(eng engine.ConstraintEngine) *ValidationRunner {
	r := NewValidationRunner(logger.NewNop(), eng)
	r.connect = func(ctx context.Context, p store.Params) (store.Conn, error) {
		return stubConn{}, nil
	}
	r.now = func() time.Time { return time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC) }
	return r
}

func validationConfig(collections ...string) *config.EffectiveConfig {
	cfg := &config.EffectiveConfig{
		Store: store.Params{Host: "db1", Port: 27017, Database: "vasp"},
	}
	for _, name := range collections {
		cfg.Collections = append(cfg.Collections, config.CollectionConstraints{
			Name:        name,
			Expressions: []string{"energy > 0"},
		})
	}
	return cfg
}

func violation(id, field, constraint string, value interface{}) engine.Violation {
	return engine.Violation{
		ID:    id,
		Field: field,
		Constraint: engine.Constraint{
			Field:    field,
			Operator: ">",
			Expected: engine.Literal(constraint),
		},
		Value: value,
	}
}

func TestValidationRun_BuildsGroupedReport(t *testing.T) {
	eng := &scriptedEngine{
		groups: map[string][]engine.ViolationGroup{
			"tasks": {
				{
					Condition: "energy > 0",
					Violations: []engine.Violation{
						violation("t-2", "energy", "0", 3.5),
						violation("t-1", "energy", "0", 1.2),
					},
				},
			},
		},
	}

	rep, err := newTestRunner(eng).Run(context.Background(), validationConfig("tasks"), ValidateParams{})
	require.NoError(t, err)
	assert.False(t, rep.IsEmpty())

	assert.Equal(t, "Database", rep.Header.Fields[0].Label)
	assert.Equal(t, "vasp", rep.Header.Fields[0].Value)
	assert.Equal(t, "db1:27017", rep.Header.Fields[1].Value)

	require.Len(t, rep.Sections, 1)
	sec := rep.Sections[0]
	assert.Equal(t, "Collection tasks", sec.Title)

	require.Len(t, sec.Sections, 1)
	group := sec.Sections[0]
	assert.Equal(t, "A", group.Title)
	assert.Equal(t, []string{"Id", "TaskId", "Field", "Constraint", "Value"}, group.Table.Columns)
	require.Equal(t, "Condition", group.Annotations[0].Key)
	assert.Equal(t, "energy > 0", group.Annotations[0].Value)

	// Rows come back sorted by Id.
	assert.Equal(t, "t-1", group.Table.Rows[0][0])
	assert.Equal(t, "t-2", group.Table.Rows[1][0])
}

func TestValidationRun_SectionPerCollection(t *testing.T) {
	eng := &scriptedEngine{}
	rep, err := newTestRunner(eng).Run(context.Background(), validationConfig("tasks", "materials"), ValidateParams{})
	require.NoError(t, err)

	// Clean collections still get their section; the report is empty
	// because no table has rows.
	require.Len(t, rep.Sections, 2)
	assert.Equal(t, "Collection tasks", rep.Sections[0].Title)
	assert.Equal(t, "Collection materials", rep.Sections[1].Title)
	assert.True(t, rep.IsEmpty())
}

func headerValue(rep *report.Report, label string) string {
	for _, f := range rep.Header.Fields {
		if f.Label == label {
			return f.Value
		}
	}
	return ""
}

func TestValidationRun_UserHeader(t *testing.T) {
	rep, err := newTestRunner(&scriptedEngine{}).Run(context.Background(), validationConfig("tasks"), ValidateParams{User: "auditor"})
	require.NoError(t, err)
	assert.Equal(t, "auditor", headerValue(rep, "User"))

	rep, err = newTestRunner(&scriptedEngine{}).Run(context.Background(), validationConfig("tasks"), ValidateParams{})
	require.NoError(t, err)
	assert.NotEmpty(t, headerValue(rep, "User"), "falls back to the invoking user")
}

func TestValidationRun_RecordCountAnnotated(t *testing.T) {
	rep, err := newTestRunner(&scriptedEngine{}).Run(context.Background(), validationConfig("tasks"), ValidateParams{})
	require.NoError(t, err)

	sec := rep.Sections[0]
	require.NotEmpty(t, sec.Annotations)
	assert.Equal(t, "Records", sec.Annotations[0].Key)
	assert.Equal(t, "7", sec.Annotations[0].Value)
}

func TestValidationRun_LimitSpansCollections(t *testing.T) {
	twoViolations := func(prefix string) []engine.ViolationGroup {
		return []engine.ViolationGroup{{
			Condition: "energy > 0",
			Violations: []engine.Violation{
				violation(prefix+"-1", "energy", "0", 1.0),
				violation(prefix+"-2", "energy", "0", 2.0),
			},
		}}
	}
	eng := &scriptedEngine{groups: map[string][]engine.ViolationGroup{
		"tasks":     twoViolations("t"),
		"materials": twoViolations("m"),
		"surfaces":  twoViolations("s"),
	}}

	// The cap is a run-wide budget: each collection sees what is left of
	// it, and collections after it is spent are not visited.
	rep, err := newTestRunner(eng).Run(context.Background(), validationConfig("tasks", "materials", "surfaces"), ValidateParams{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, eng.limits)
	assert.Equal(t, []string{"tasks", "materials"}, eng.validated)
	require.Len(t, rep.Sections, 2)

	unlimited := &scriptedEngine{groups: eng.groups}
	_, err = newTestRunner(unlimited).Run(context.Background(), validationConfig("tasks", "materials", "surfaces"), ValidateParams{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, unlimited.limits)
}

func TestValidationRun_GroupsAreLettered(t *testing.T) {
	eng := &scriptedEngine{
		groups: map[string][]engine.ViolationGroup{
			"tasks": {
				{Condition: "energy > 0", Violations: []engine.Violation{violation("t-1", "energy", "0", 1.0)}},
				{Condition: "state != error", Violations: []engine.Violation{violation("t-3", "state", "error", "error")}},
				{Condition: "nsites type int", Violations: []engine.Violation{violation("t-2", "nsites", "int", "x")}},
			},
		},
	}

	rep, err := newTestRunner(eng).Run(context.Background(), validationConfig("tasks"), ValidateParams{})
	require.NoError(t, err)

	groups := rep.Sections[0].Sections
	require.Len(t, groups, 3)
	assert.Equal(t, "A", groups[0].Title)
	assert.Equal(t, "B", groups[1].Title)
	assert.Equal(t, "C", groups[2].Title)
	assert.Equal(t, "state != error", groups[1].Annotations[0].Value)
}

func TestValidationRun_IgnoredCollectionsAreSkipped(t *testing.T) {
	eng := &scriptedEngine{}
	rep, err := newTestRunner(eng).Run(context.Background(), validationConfig("tasks", "_dbaudit_meta", "materials"), ValidateParams{})
	require.NoError(t, err)

	require.Len(t, rep.Sections, 2)
	assert.Equal(t, "Collection tasks", rep.Sections[0].Title)
	assert.Equal(t, "Collection materials", rep.Sections[1].Title)
	assert.NotContains(t, eng.validated, "_dbaudit_meta")
}

func TestValidationRun_StoreErrorAbortsWithPartialReport(t *testing.T) {
	eng := &scriptedEngine{
		groups: map[string][]engine.ViolationGroup{
			"tasks": {{
				Condition:  "energy > 0",
				Violations: []engine.Violation{violation("t-1", "energy", "0", 1.0)},
			}},
		},
		fail: map[string]error{"materials": stderrors.New("cursor timeout")},
	}

	rep, err := newTestRunner(eng).Run(context.Background(), validationConfig("tasks", "materials", "surfaces"), ValidateParams{})
	require.Error(t, err)
	assert.Equal(t, errors.ExitUnavailable, errors.GetExitCode(err))

	// tasks completed, materials failed, surfaces was never attempted.
	assert.Equal(t, []string{"tasks", "materials"}, eng.validated)
	require.Len(t, rep.Sections, 2)
	assert.False(t, rep.IsEmpty(), "partial results survive the abort")
}

func TestValidationRun_BadConstraintsAbort(t *testing.T) {
	eng := &scriptedEngine{specErr: stderrors.New("unknown operator \"~\"")}
	_, err := newTestRunner(eng).Run(context.Background(), validationConfig("tasks"), ValidateParams{})
	require.Error(t, err)
	assert.Equal(t, errors.ExitFunction, errors.GetExitCode(err))
	assert.Empty(t, eng.validated)
}

func TestValidationRun_ConnectFailure(t *testing.T) {
	r := NewValidationRunner(logger.NewNop(), &scriptedEngine{})
	r.connect = func(ctx context.Context, p store.Params) (store.Conn, error) {
		return nil, stderrors.New("connection refused")
	}

	_, err := r.Run(context.Background(), validationConfig("tasks"), ValidateParams{})
	require.Error(t, err)
	assert.Equal(t, errors.ExitUnavailable, errors.GetExitCode(err))
}

func TestLetterLabel(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, letterLabel(tt.index), "index %d", tt.index)
	}
}
