package deliver

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/dwinston/dbaudit/internal/logger"
)

// ConsoleSink writes the rendered report to standard output, or to a file
// when one is configured.
type ConsoleSink struct {
	out     io.Writer
	file    string
	noColor bool
	log     logger.Logger
}

// NewConsoleSink creates a console sink writing to stdout.
func NewConsoleSink(log logger.Logger, noColor bool) *ConsoleSink {
	return &ConsoleSink{out: os.Stdout, noColor: noColor, log: log}
}

// WithWriter redirects output, for tests.
func (s *ConsoleSink) WithWriter(w io.Writer) *ConsoleSink {
	s.out = w
	return s
}

// WithFile writes the report to path instead of stdout. A status line still
// goes to stdout so the invocation is not silent.
func (s *ConsoleSink) WithFile(path string) *ConsoleSink {
	s.file = path
	return s
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Deliver(ctx context.Context, d Delivery) error {
	body, err := d.Render()
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	if s.file != "" {
		if err := os.WriteFile(s.file, body, 0o644); err != nil {
			return fmt.Errorf("writing report file: %w", err)
		}
		s.status(color.FgGreen, "report written to %s (%d bytes)", s.file, len(body))
		return nil
	}

	if _, err := s.out.Write(body); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func (s *ConsoleSink) status(attr color.Attribute, format string, args ...interface{}) {
	c := color.New(attr)
	if s.noColor {
		c.DisableColor()
	}
	c.Fprintf(s.out, format+"\n", args...)
}
