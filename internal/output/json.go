package output

import (
	"encoding/json"

	"github.com/dwinston/dbaudit/internal/report"
)

// JSONFormatter serializes the report structure directly; downstream
// tooling consumes this form.
type JSONFormatter struct{}

func (f *JSONFormatter) Name() string     { return FormatJSON }
func (f *JSONFormatter) MIMEType() string { return "application/json" }

func (f *JSONFormatter) Format(r *report.Report, opts Options) ([]byte, error) {
	if opts.Pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}
