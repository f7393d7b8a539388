// Package deliver fans a rendered report out to its destinations: the
// console or a file, an email recipient list, and (for diffs) a report
// collection in the store. Sink failures are independent; one sink failing
// never blocks the others.
package deliver

import (
	"context"
	"fmt"

	"github.com/dwinston/dbaudit/internal/errors"
	"github.com/dwinston/dbaudit/internal/logger"
	"github.com/dwinston/dbaudit/internal/output"
	"github.com/dwinston/dbaudit/internal/report"
)

// Delivery is the unit handed to each sink: the report plus the format it
// should be rendered in. Sinks render themselves so they can adjust
// options (email inlines styles) without affecting each other.
type Delivery struct {
	Report    *report.Report
	Formatter output.Formatter
	Options   output.Options
}

// Render formats the delivery's report.
func (d Delivery) Render() ([]byte, error) {
	return d.Formatter.Format(d.Report, d.Options)
}

// Sink delivers a report to one destination.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	Deliver(ctx context.Context, d Delivery) error
}

// Outcome summarizes one dispatch.
type Outcome struct {
	// Suppressed is true when the report was empty and nothing was sent.
	Suppressed bool
	Delivered  int
	Failed     int
}

// Err folds the per-sink results into a single error so callers can
// reflect delivery failures in the process exit status. Details were
// already logged per sink during dispatch.
func (o Outcome) Err() error {
	if o.Failed == 0 {
		return nil
	}
	return errors.New(errors.ErrorTypeFunction,
		fmt.Sprintf("%d of %d delivery sink(s) failed", o.Failed, o.Failed+o.Delivered)).
		WithSolutions("Check the log output for the failing sink")
}

// Dispatcher sends a report through a set of sinks.
type Dispatcher struct {
	sinks []Sink
	log   logger.Logger
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(log logger.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, log: log}
}

// Dispatch renders and delivers the report. An empty report is suppressed
// unless sendOnEmpty is set. Each sink is attempted regardless of earlier
// failures; failures are logged and counted, not escalated.
func (p *Dispatcher) Dispatch(ctx context.Context, d Delivery, sendOnEmpty bool) Outcome {
	if d.Report.IsEmpty() && !sendOnEmpty {
		p.log.Debug("report is empty, suppressing delivery")
		return Outcome{Suppressed: true}
	}

	var out Outcome
	for _, sink := range p.sinks {
		if err := sink.Deliver(ctx, d); err != nil {
			p.log.Error("delivery via "+sink.Name()+" failed", err)
			out.Failed++
			continue
		}
		out.Delivered++
	}
	return out
}
