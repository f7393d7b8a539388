package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dwinston/dbaudit/internal/config"
	"github.com/dwinston/dbaudit/internal/deliver"
	"github.com/dwinston/dbaudit/internal/engine"
	"github.com/dwinston/dbaudit/internal/errors"
	"github.com/dwinston/dbaudit/internal/output"
	"github.com/dwinston/dbaudit/internal/runner"
)

type diffOptions struct {
	keyField    string
	infoFields  string
	matchFields string
	tolerances  string
	filterExpr  string
	missingOnly bool
	valuesOnly  bool

	emailSpec   string
	emailServer string
	format      string
	outputFile  string
	urlPrefix   string
	print       bool
	storeReport bool
	storeIn     string
	sendOnEmpty bool
	pretty      bool
	reportUser  string
	configFile  string
}

func newDiffCommand() *cobra.Command {
	opts := &diffOptions{}

	cmd := &cobra.Command{
		Use:   "diff <old-config> <new-config>",
		Short: "Compare two collections and report the differences",
		Long: `Compare the records of two collections, which may live on different
servers, and report records added, removed, or changed between them.

Each positional argument is a YAML file describing one side:

  host: db1.example.com
  port: 27017
  database: vasp
  collection: tasks

Records are paired by the --key field. Numeric fields may be compared
with a tolerance:

  dbaudit diff old.yaml new.yaml --key task_id \
    --match energy --tolerances 'energy=+-0.01' --filter 'state = done'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.keyField, "key", "k", "task_id", "field that pairs records across the two sources")
	cmd.Flags().StringVar(&opts.infoFields, "info", "", "extra fields to show for added/removed records (comma list)")
	cmd.Flags().StringVar(&opts.matchFields, "match", "", "fields that must match on paired records (comma list)")
	cmd.Flags().StringVar(&opts.tolerances, "tolerances", "", "numeric tolerances, field=+-N[%] (comma list, = for inclusive)")
	cmd.Flags().StringVar(&opts.filterExpr, "filter", "", "restrict both sides, comma-separated \"field op value\" clauses")
	cmd.Flags().BoolVar(&opts.missingOnly, "missing-only", false, "report only added/removed records, skip value comparison")
	cmd.Flags().BoolVar(&opts.valuesOnly, "values-only", false, "report only value changes, skip added/removed")

	cmd.Flags().StringVarP(&opts.emailSpec, "email", "m", "", "email spec: sender/rcpt[,rcpt...][/subject]")
	cmd.Flags().StringVar(&opts.emailServer, "email-server", "", "mail server, host[:port]")
	cmd.Flags().StringVar(&opts.format, "format", "", "report format (text, html, json, markdown)")
	cmd.Flags().StringVarP(&opts.outputFile, "output-file", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&opts.urlPrefix, "url-prefix", "", "link record keys to this URL prefix in html/markdown reports")
	cmd.Flags().BoolVar(&opts.print, "print", true, "write the report to the console")
	cmd.Flags().BoolVar(&opts.storeReport, "store-report", false, "persist the report into the report collection")
	cmd.Flags().StringVar(&opts.storeIn, "store-collection", "", "target collection for --store-report (default: report_collection from the main config)")
	cmd.Flags().BoolVar(&opts.sendOnEmpty, "send-on-empty", false, "deliver the report even when it is empty")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent json output")
	cmd.Flags().StringVar(&opts.reportUser, "user", "", "name recorded in the run provenance (default: invoking user)")
	cmd.Flags().StringVar(&opts.configFile, "diff-config", "", "YAML file supplying any of the diff flags; flags set on the command line win")

	return cmd
}

// diffFormats adds markdown to the shared set; only the diff path offers it.
var diffFormats = []string{output.FormatText, output.FormatHTML, output.FormatJSON, output.FormatMarkdown}

func runDiff(cmd *cobra.Command, opts *diffOptions, oldFile, newFile string) error {
	if opts.configFile != "" {
		fileOpts, err := loadDiffConfigFile(opts.configFile)
		if err != nil {
			return err
		}
		applyDiffConfigFile(opts, fileOpts, cmd.Flags().Changed)
	}

	format := opts.format
	if format == "" {
		format = cfg.Output.Format
	}
	formatter, err := lookupFormat(format, diffFormats)
	if err != nil {
		return err
	}

	email, err := diffEmail(opts)
	if err != nil {
		return configError(err)
	}

	run := runner.NewDiffRunner(log, engine.NewDiffer(log), &engine.ComparisonTranslator{})
	rep, info, runErr := run.Run(cmd.Context(), runner.DiffParams{
		OldFile:         oldFile,
		NewFile:         newFile,
		KeyField:        opts.keyField,
		ExtraInfoFields: splitList(opts.infoFields),
		MustMatchFields: splitList(opts.matchFields),
		ToleranceList:   opts.tolerances,
		FilterExpr:      opts.filterExpr,
		OnlyMissing:     opts.missingOnly,
		OnlyValues:      opts.valuesOnly,
		User:            opts.reportUser,
	})
	if runErr != nil {
		return runErr
	}

	var storeSink deliver.Sink
	if opts.storeReport {
		coll := opts.storeIn
		if coll == "" {
			coll = cfg.ReportCollection
		}
		storeSink = deliver.NewStoreSink(log, cfg.StoreParams(), coll, info)
	}

	sinks := buildSinks(opts.outputFile, email, storeSink)
	if !opts.print && opts.outputFile == "" {
		// Drop the console sink; everything else still runs.
		sinks = sinks[1:]
	}
	if len(sinks) == 0 {
		return errors.New(errors.ErrorTypeArgument, "nothing to do: --print=false with no other sink").
			WithSolutions("Enable --print, set --email, or use --store-report")
	}

	outcome := deliver.NewDispatcher(log, sinks...).Dispatch(cmd.Context(), deliver.Delivery{
		Report:    rep,
		Formatter: formatter,
		Options: output.Options{
			Pretty:    opts.pretty,
			URLPrefix: opts.urlPrefix,
		},
	}, opts.sendOnEmpty)

	if err := outcome.Err(); err != nil {
		return err
	}
	if outcome.Suppressed {
		return errors.ErrNothingToReport
	}
	return nil
}

// diffEmail combines the diff-path email spec with the separately supplied
// server address.
func diffEmail(opts *diffOptions) (*config.EmailSpec, error) {
	if opts.emailSpec == "" {
		return nil, nil
	}
	spec, err := config.ParseDiffEmailSpec(opts.emailSpec)
	if err != nil {
		return nil, err
	}
	if opts.emailServer != "" {
		host, port, err := config.ParseHostPort(opts.emailServer)
		if err != nil {
			return nil, err
		}
		spec.Host = host
		spec.Port = port
	}
	return spec, nil
}

// diffFileOptions mirrors the diff flags as a YAML document, so a recurring
// comparison can keep its settings in a file and override them per
// invocation.
type diffFileOptions struct {
	Key             string `yaml:"key"`
	Info            string `yaml:"info"`
	Match           string `yaml:"match"`
	Tolerances      string `yaml:"tolerances"`
	Filter          string `yaml:"filter"`
	MissingOnly     *bool  `yaml:"missing_only"`
	ValuesOnly      *bool  `yaml:"values_only"`
	Email           string `yaml:"email"`
	EmailServer     string `yaml:"email_server"`
	Format          string `yaml:"format"`
	OutputFile      string `yaml:"output_file"`
	URLPrefix       string `yaml:"url_prefix"`
	Print           *bool  `yaml:"print"`
	StoreReport     *bool  `yaml:"store_report"`
	StoreCollection string `yaml:"store_collection"`
	SendOnEmpty     *bool  `yaml:"send_on_empty"`
	Pretty          *bool  `yaml:"pretty"`
	User            string `yaml:"user"`
}

func loadDiffConfigFile(path string) (diffFileOptions, error) {
	var f diffFileOptions
	data, err := os.ReadFile(path)
	if err != nil {
		return f, errors.New(errors.ErrorTypeArgument, "cannot read diff config file "+path).
			WithCause(err.Error()).
			WithSolutions("Check that the file exists and is readable")
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, errors.New(errors.ErrorTypeArgument, "cannot parse diff config file "+path).
			WithCause(err.Error())
	}
	return f, nil
}

// applyDiffConfigFile overlays file values onto the options for every flag
// not set on the command line; changed reports whether a flag was.
func applyDiffConfigFile(opts *diffOptions, f diffFileOptions, changed func(name string) bool) {
	setString := func(flag string, dst *string, v string) {
		if v != "" && !changed(flag) {
			*dst = v
		}
	}
	setBool := func(flag string, dst *bool, v *bool) {
		if v != nil && !changed(flag) {
			*dst = *v
		}
	}

	setString("key", &opts.keyField, f.Key)
	setString("info", &opts.infoFields, f.Info)
	setString("match", &opts.matchFields, f.Match)
	setString("tolerances", &opts.tolerances, f.Tolerances)
	setString("filter", &opts.filterExpr, f.Filter)
	setBool("missing-only", &opts.missingOnly, f.MissingOnly)
	setBool("values-only", &opts.valuesOnly, f.ValuesOnly)
	setString("email", &opts.emailSpec, f.Email)
	setString("email-server", &opts.emailServer, f.EmailServer)
	setString("format", &opts.format, f.Format)
	setString("output-file", &opts.outputFile, f.OutputFile)
	setString("url-prefix", &opts.urlPrefix, f.URLPrefix)
	setBool("print", &opts.print, f.Print)
	setBool("store-report", &opts.storeReport, f.StoreReport)
	setString("store-collection", &opts.storeIn, f.StoreCollection)
	setBool("send-on-empty", &opts.sendOnEmpty, f.SendOnEmpty)
	setBool("pretty", &opts.pretty, f.Pretty)
	setString("user", &opts.reportUser, f.User)
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
