package commands

import (
	stderrors "errors"
	"strings"

	"github.com/dwinston/dbaudit/internal/config"
	"github.com/dwinston/dbaudit/internal/deliver"
	"github.com/dwinston/dbaudit/internal/errors"
	"github.com/dwinston/dbaudit/internal/output"
)

// lookupFormat resolves a format name and rejects formats outside the
// subset a command supports.
func lookupFormat(name string, allowed []string) (output.Formatter, error) {
	formatter, err := output.Lookup(name)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeFormat, err.Error())
	}
	for _, a := range allowed {
		if formatter.Name() == a {
			return formatter, nil
		}
	}
	return nil, errors.New(errors.ErrorTypeFormat,
		"format "+formatter.Name()+" is not supported here (valid: "+strings.Join(allowed, ", ")+")")
}

// configError converts a resolution error into the user-facing taxonomy.
// A missing collection or constraint set is a usage problem; malformed
// email, alias, or credential configuration is a configuration problem.
func configError(err error) error {
	var cfgErr *config.Error
	if !stderrors.As(err, &cfgErr) {
		return errors.New(errors.ErrorTypeConfig, "configuration resolution failed").
			WithCause(err.Error())
	}

	errType := errors.ErrorTypeConfig
	if cfgErr.Kind == config.KindMissingField {
		errType = errors.ErrorTypeArgument
	}
	return errors.New(errType, cfgErr.Error()).
		WithHelp("dbaudit validate --help")
}

// buildSinks assembles the delivery chain: console (or file) always, email
// when a spec is configured, plus any extra sink such as the diff path's
// report store.
func buildSinks(outputFile string, email *config.EmailSpec, extra deliver.Sink) []deliver.Sink {
	console := deliver.NewConsoleSink(log, cfg.Output.NoColor)
	if outputFile != "" {
		console = console.WithFile(outputFile)
	}

	sinks := []deliver.Sink{console}
	if email != nil && email.Host != "" {
		sinks = append(sinks, deliver.NewEmailSink(log, email))
	} else if email != nil {
		log.Warn("email spec has no host, skipping email delivery")
	}
	if extra != nil {
		sinks = append(sinks, extra)
	}
	return sinks
}
