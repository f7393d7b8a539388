// Package runner wires configuration, engines, and the report model into
// the two top-level operations: validate and diff. A runner produces a
// report; it never renders or delivers one.
package runner

import (
	"context"
	"fmt"
	"os/user"
	"time"

	"github.com/dwinston/dbaudit/internal/config"
	"github.com/dwinston/dbaudit/internal/engine"
	"github.com/dwinston/dbaudit/internal/errors"
	"github.com/dwinston/dbaudit/internal/logger"
	"github.com/dwinston/dbaudit/internal/report"
	"github.com/dwinston/dbaudit/internal/store"
)

// timeFormat is used for report header timestamps.
const timeFormat = "2006-01-02 15:04:05"

// ValidateParams are the per-run validation knobs from the command line.
type ValidateParams struct {
	// Limit caps collected violations across the whole run, not per
	// collection. Zero means unlimited.
	Limit            int
	ProgressInterval int
	MustExist        bool

	// User is recorded in the report header. Empty means the invoking
	// OS user.
	User string
}

// ValidationRunner drives constraint validation over every configured
// collection and assembles the violation report.
type ValidationRunner struct {
	log    logger.Logger
	engine engine.ConstraintEngine

	connect func(ctx context.Context, p store.Params) (store.Conn, error)
	now     func() time.Time
}

// NewValidationRunner creates a runner using the given constraint engine.
func NewValidationRunner(log logger.Logger, eng engine.ConstraintEngine) *ValidationRunner {
	return &ValidationRunner{
		log:     log,
		engine:  eng,
		connect: store.Connect,
		now:     time.Now,
	}
}

// Run validates every configured collection in order and returns the
// report. Collections whose names carry the ignore prefix are skipped
// without counting as processed. A spec or store error aborts the
// remaining collections; the report built so far is returned alongside the
// error so callers can still show partial results.
func (r *ValidationRunner) Run(ctx context.Context, cfg *config.EffectiveConfig, params ValidateParams) (*report.Report, error) {
	start := r.now()

	rep := report.New()
	rep.Header.Add("Database", cfg.Store.Database)
	rep.Header.Add("Server", cfg.Store.Addr())
	rep.Header.Add("Generated", start.Format(timeFormat))
	if u := runUser(params.User); u != "" {
		rep.Header.Add("User", u)
	}

	conn, err := r.connect(ctx, cfg.Store)
	if err != nil {
		return rep, errors.New(errors.ErrorTypeStore, "cannot connect to "+cfg.Store.Addr()).
			WithCause(err.Error()).
			WithSolutions("Check that the database server is running and reachable",
				"Verify credentials in the main configuration file")
	}
	defer conn.Close(ctx)

	remaining := params.Limit
	for _, cc := range cfg.Collections {
		if config.IsIgnored(cc.Name) {
			r.log.WithField("collection", cc.Name).Debug("skipping ignored collection")
			continue
		}
		if params.Limit > 0 && remaining <= 0 {
			r.log.Warn(fmt.Sprintf("violation limit %d reached, remaining collections skipped", params.Limit))
			break
		}

		p := params
		if params.Limit > 0 {
			p.Limit = remaining
		}
		sec, rows, err := r.validateCollection(ctx, conn, cc, cfg.Aliases, p)
		remaining -= rows
		if sec != nil {
			rep.AddSection(sec)
		}
		if err != nil {
			// Remaining collections are not attempted; the caller gets
			// the partial report.
			r.log.Error("aborting validation after collection "+cc.Name, err)
			r.finishHeader(rep, start)
			return rep, err
		}
	}

	r.finishHeader(rep, start)
	return rep, nil
}

func (r *ValidationRunner) finishHeader(rep *report.Report, start time.Time) {
	rep.Header.Add("Elapsed", fmt.Sprintf("%.2fs", r.now().Sub(start).Seconds()))
}

// validateCollection runs the engine over one collection and builds its
// report section, returning the number of violation rows it contributed.
// The section is appended even when no violations were found, so the
// report shows what was checked. Violation groups are lettered A, B, C in
// emission order; the engine already drops empty groups, so the sequence
// has no gaps.
func (r *ValidationRunner) validateCollection(ctx context.Context, conn store.Conn, cc config.CollectionConstraints, aliases map[string]string, params ValidateParams) (*report.Section, int, error) {
	sec := report.NewSection("Collection " + cc.Name)

	spec, err := r.engine.BuildSpec(cc.Expressions, aliases)
	if err != nil {
		return sec, 0, errors.New(errors.ErrorTypeFunction, "bad constraints for collection "+cc.Name).
			WithCause(err.Error()).
			WithSolutions("Check the constraint expressions for this collection")
	}

	coll := conn.Collection(cc.Name)
	if n, err := coll.CountDocuments(ctx, nil); err == nil {
		sec.Annotate("Records", fmt.Sprint(n))
	} else {
		r.log.WithField("collection", cc.Name).Debug("record count unavailable: " + err.Error())
	}

	r.log.WithField("collection", cc.Name).Info("validating")

	opts := engine.ValidateOptions{
		Limit:            params.Limit,
		ProgressInterval: params.ProgressInterval,
		MustExist:        params.MustExist,
	}
	if opts.ProgressInterval > 0 {
		name := cc.Name
		opts.Progress = func(records int) {
			r.log.WithField("collection", name).WithField("records", records).Info("progress")
		}
	}

	groupIdx, rows := 0, 0
	err = r.engine.Validate(ctx, coll, spec, opts, func(g engine.ViolationGroup) error {
		child := report.NewSection(letterLabel(groupIdx))
		groupIdx++
		child.Annotate("Condition", g.Condition)
		tbl := report.NewTable("Id", "TaskId", "Field", "Constraint", "Value")
		for _, v := range g.Violations {
			if err := tbl.AddRow(v.ID, v.TaskID, v.Field, v.Constraint.Display(), fmt.Sprint(v.Value)); err != nil {
				return err
			}
		}
		if err := tbl.SortBy("Id"); err != nil {
			return err
		}
		rows += len(tbl.Rows)
		child.Table = tbl
		sec.AddSection(child)
		return nil
	})
	if err != nil {
		return sec, rows, errors.New(errors.ErrorTypeStore, "validation of collection "+cc.Name+" failed").
			WithCause(err.Error()).
			WithSolutions("Check connectivity to the database server")
	}
	return sec, rows, nil
}

// runUser resolves the name recorded in the report header: an explicit
// override, else the invoking OS user.
func runUser(override string) string {
	if override != "" {
		return override
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// letterLabel turns a zero-based index into a spreadsheet-style label:
// A..Z, then AA, AB, and so on.
func letterLabel(index int) string {
	label := ""
	index++
	for index > 0 {
		index--
		label = string(rune('A'+index%26)) + label
		index /= 26
	}
	return label
}
