package commands

import (
	"github.com/spf13/cobra"

	"github.com/dwinston/dbaudit/internal/config"
	"github.com/dwinston/dbaudit/internal/deliver"
	"github.com/dwinston/dbaudit/internal/engine"
	"github.com/dwinston/dbaudit/internal/errors"
	"github.com/dwinston/dbaudit/internal/output"
	"github.com/dwinston/dbaudit/internal/runner"
)

type validateOptions struct {
	constraintsFile string
	collection      string
	aliases         []string
	emailSpec       string
	format          string
	outputFile      string
	urlPrefix       string
	limit           int
	progress        int
	mustExist       bool
	sendOnEmpty     bool
	pretty          bool
	reportUser      string
}

func newValidateCommand() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate [constraint tokens...]",
		Short: "Check collections against per-field constraints",
		Long: `Validate records in one or more collections against constraint
expressions, either given inline or read from a constraints file.

Inline constraints target one collection:

  dbaudit validate -c tasks 'energy > 0, task_id exists'

A constraints file maps collection names to expression lists and may
carry aliases and email settings under reserved "_" keys:

  dbaudit validate -f constraints.yaml --format html --email \
    'audit@example.com:ops@example.com:mail.example.com:2525/Nightly audit'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.constraintsFile, "file", "f", "", "constraints file (authoritative when set)")
	cmd.Flags().StringVarP(&opts.collection, "collection", "c", "", "target collection for inline constraints")
	cmd.Flags().StringArrayVarP(&opts.aliases, "alias", "a", nil, "field alias, name=value (repeatable)")
	cmd.Flags().StringVarP(&opts.emailSpec, "email", "m", "", "email spec: sender:rcpt[,rcpt...][:host[:port[/subject]]]")
	cmd.Flags().StringVar(&opts.format, "format", "", "report format (text, html, json)")
	cmd.Flags().StringVarP(&opts.outputFile, "output-file", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&opts.urlPrefix, "url-prefix", "", "link record ids to this URL prefix in html reports")
	cmd.Flags().IntVar(&opts.limit, "limit", 50, "cap on collected violations per collection (0 = unlimited)")
	cmd.Flags().IntVar(&opts.progress, "progress", 0, "log progress every N records (0 = off)")
	cmd.Flags().BoolVar(&opts.mustExist, "exists-only", false, "check only records where the constrained field exists")
	cmd.Flags().BoolVar(&opts.sendOnEmpty, "send-on-empty", false, "deliver the report even when it is empty")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent json output")
	cmd.Flags().StringVar(&opts.reportUser, "user", "", "name recorded in the report header (default: invoking user)")

	return cmd
}

// validateFormats is the format subset the validate path accepts.
var validateFormats = []string{output.FormatText, output.FormatHTML, output.FormatJSON}

func runValidate(cmd *cobra.Command, opts *validateOptions, args []string) error {
	format := opts.format
	if format == "" {
		format = cfg.Output.Format
	}
	formatter, err := lookupFormat(format, validateFormats)
	if err != nil {
		return err
	}

	effective, err := config.Resolve(cfg, config.CLIOverrides{
		ConstraintsFile:   opts.constraintsFile,
		InlineConstraints: args,
		Collection:        opts.collection,
		AliasPairs:        opts.aliases,
		EmailSpec:         opts.emailSpec,
	})
	if err != nil {
		return configError(err)
	}

	run := runner.NewValidationRunner(log, engine.NewValidator(log))
	rep, runErr := run.Run(cmd.Context(), effective, runner.ValidateParams{
		Limit:            opts.limit,
		ProgressInterval: opts.progress,
		MustExist:        opts.mustExist,
		User:             opts.reportUser,
	})

	// A partial report from an aborted run still goes through delivery.
	var outcome deliver.Outcome
	if rep != nil {
		sinks := buildSinks(opts.outputFile, effective.Email, nil)
		outcome = deliver.NewDispatcher(log, sinks...).Dispatch(cmd.Context(), deliver.Delivery{
			Report:    rep,
			Formatter: formatter,
			Options: output.Options{
				Pretty:    opts.pretty,
				URLPrefix: opts.urlPrefix,
			},
		}, opts.sendOnEmpty)
	}

	if runErr != nil {
		return runErr
	}
	if err := outcome.Err(); err != nil {
		return err
	}
	if outcome.Suppressed {
		return errors.ErrNothingToReport
	}
	return nil
}
