package runner

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dwinston/dbaudit/internal/deliver"
	"github.com/dwinston/dbaudit/internal/engine"
	"github.com/dwinston/dbaudit/internal/errors"
	"github.com/dwinston/dbaudit/internal/logger"
	"github.com/dwinston/dbaudit/internal/report"
)

// DiffParams are the per-run diff knobs from the command line.
type DiffParams struct {
	// OldFile and NewFile are source description files naming the store
	// and collection on each side.
	OldFile string
	NewFile string

	KeyField        string
	ExtraInfoFields []string
	MustMatchFields []string
	// ToleranceList is the raw "field=+-N[%]" comma list.
	ToleranceList string
	// FilterExpr is a comparison-language filter restricting both sides.
	FilterExpr string

	OnlyMissing bool
	OnlyValues  bool

	// User overrides the auto-detected OS user in the run provenance.
	User string
}

// DiffRunner drives a two-source collection diff and assembles the change
// report plus the provenance block persisted with it.
type DiffRunner struct {
	log        logger.Logger
	engine     engine.DiffEngine
	translator engine.FilterTranslator

	now func() time.Time
}

// NewDiffRunner creates a runner using the given diff engine and filter
// translator.
func NewDiffRunner(log logger.Logger, eng engine.DiffEngine, tr engine.FilterTranslator) *DiffRunner {
	return &DiffRunner{log: log, engine: eng, translator: tr, now: time.Now}
}

// Run diffs the two configured sources and returns the report plus the run
// provenance. Both source files, the filter expression, and the tolerance
// list are resolved before the engine does any store work, so a bad input
// fails fast without touching either database.
func (r *DiffRunner) Run(ctx context.Context, params DiffParams) (*report.Report, deliver.RunInfo, error) {
	var info deliver.RunInfo

	oldSrc, err := loadSource(params.OldFile)
	if err != nil {
		return nil, info, err
	}
	newSrc, err := loadSource(params.NewFile)
	if err != nil {
		return nil, info, err
	}

	rules := engine.MatchRules{
		KeyField:        params.KeyField,
		ExtraInfoFields: params.ExtraInfoFields,
		MustMatchFields: params.MustMatchFields,
		OnlyMissing:     params.OnlyMissing,
		OnlyValues:      params.OnlyValues,
	}

	if params.FilterExpr != "" {
		filter, err := r.translator.Translate(params.FilterExpr)
		if err != nil {
			return nil, info, errors.New(errors.ErrorTypeConfig, "bad filter expression").
				WithCause(err.Error()).
				WithSolutions("Use comma-separated \"field op value\" clauses, e.g. \"energy > 0, state = done\"")
		}
		rules.Filter = filter
	}

	tolerances, err := engine.ParseToleranceFields(params.ToleranceList)
	if err != nil {
		return nil, info, errors.New(errors.ErrorTypeConfig, "bad tolerance list").
			WithCause(err.Error()).
			WithSolutions("Use comma-separated \"field=+-N\" or \"field=+-N%\" pairs")
	}
	rules.Tolerances = tolerances

	r.log.WithField("old", oldSrc.Describe()).WithField("new", newSrc.Describe()).Info("diffing collections")

	start := r.now()
	result, err := r.engine.Diff(ctx, oldSrc, newSrc, rules)
	end := r.now()

	info = deliver.RunInfo{
		Start:          start,
		End:            end,
		ElapsedSeconds: end.Sub(start).Seconds(),
		Filter:         params.FilterExpr,
		OldSource:      oldSrc.Describe(),
		NewSource:      newSrc.Describe(),
		Args:           os.Args[1:],
	}
	info.User = runUser(params.User)
	if h, herr := os.Hostname(); herr == nil {
		info.Host = h
	}

	if err != nil {
		return nil, info, errors.New(errors.ErrorTypeStore, "diff failed").
			WithCause(err.Error()).
			WithSolutions("Check connectivity and credentials for both source databases")
	}

	rep := r.buildReport(oldSrc, newSrc, result, info)
	return rep, info, nil
}

// loadSource reads one source description file: store connection params
// plus the collection name, in YAML.
func loadSource(path string) (engine.CollectionSource, error) {
	var src engine.CollectionSource

	data, err := os.ReadFile(path)
	if err != nil {
		return src, errors.New(errors.ErrorTypeArgument, "cannot read source file "+path).
			WithCause(err.Error()).
			WithSolutions("Check that the file exists and is readable")
	}
	if err := yaml.Unmarshal(data, &src); err != nil {
		return src, errors.New(errors.ErrorTypeArgument, "cannot parse source file "+path).
			WithCause(err.Error())
	}
	if src.Collection == "" {
		return src, errors.New(errors.ErrorTypeArgument, "source file "+path+" names no collection").
			WithSolutions("Add a \"collection\" key to the source file")
	}
	return src, nil
}

// buildReport lays the engine's change entries out as one section per
// change kind. Empty kinds still get their section so the report reflects
// what was compared.
func (r *DiffRunner) buildReport(oldSrc, newSrc engine.CollectionSource, result *engine.DiffResult, info deliver.RunInfo) *report.Report {
	rep := report.New()
	rep.Header.Add("Old", oldSrc.Describe())
	rep.Header.Add("New", newSrc.Describe())
	rep.Header.Add("Generated", info.Start.Format(timeFormat))
	rep.Header.Add("Elapsed", fmt.Sprintf("%.2fs", info.ElapsedSeconds))
	if info.Filter != "" {
		rep.Header.Add("Filter", info.Filter)
	}

	added := report.NewSection(fmt.Sprintf("Added (%d)", result.Added))
	added.Table = report.NewTable("Key", "Info")
	removed := report.NewSection(fmt.Sprintf("Removed (%d)", result.Removed))
	removed.Table = report.NewTable("Key", "Info")
	changed := report.NewSection(fmt.Sprintf("Changed (%d)", result.Changed))
	changed.Table = report.NewTable("Key", "Field", "Old", "New")

	for _, e := range result.Entries {
		switch e.Kind {
		case engine.ChangeAdded:
			added.Table.AddRow(e.Key, formatInfo(e.Info))
		case engine.ChangeRemoved:
			removed.Table.AddRow(e.Key, formatInfo(e.Info))
		case engine.ChangeChanged:
			changed.Table.AddRow(e.Key, e.Field, fmt.Sprint(e.OldValue), fmt.Sprint(e.NewValue))
		}
	}

	rep.AddSection(added)
	rep.AddSection(removed)
	rep.AddSection(changed)
	return rep
}

// formatInfo renders the extra-info map as "k=v" pairs in sorted key
// order, so repeated renders are identical.
func formatInfo(info map[string]interface{}) string {
	if len(info) == 0 {
		return ""
	}
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, info[k]))
	}
	return strings.Join(parts, " ")
}
