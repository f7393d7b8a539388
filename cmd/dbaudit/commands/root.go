// Package commands wires the dbaudit CLI: flag parsing, configuration
// loading, and exit-code mapping. The real work happens in the runner and
// deliver packages.
package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dwinston/dbaudit/internal/config"
	"github.com/dwinston/dbaudit/internal/errors"
	"github.com/dwinston/dbaudit/internal/logger"
)

var (
	cfgFile string
	cfg     *config.FileConfig
	log     logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dbaudit",
	Short: "Validate and diff document-store collections",
	Long: `dbaudit checks document-store collections against per-field
constraints and compares collections across databases, producing
reports on the console, over email, or persisted back into the store.

  dbaudit validate -c tasks 'energy > 0, task_id exists'
  dbaudit validate -f constraints.yaml --format html
  dbaudit diff old_db.yaml new_db.yaml --key task_id`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command and exits with the code mapped from the
// returned error. A suppressed empty report exits 1 without noise.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if err == errors.ErrNothingToReport {
		os.Exit(errors.ExitNothingToReport)
	}

	if errors.IsUsageError(err) {
		fmt.Fprintln(os.Stderr, err.Error())
	} else {
		color.New(color.FgRed).Fprintln(os.Stderr, err.Error())
	}
	os.Exit(errors.GetExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dbaudit/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output.no_color", rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newVersionCommand())
}

func initConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return errors.New(errors.ErrorTypeConfig, "failed to load configuration").
			WithCause(err.Error()).
			WithHelp("dbaudit validate --help")
	}

	log = logger.New(cfg.Logging.Level)
	if cfg.Output.NoColor {
		color.NoColor = true
	}
	return nil
}
