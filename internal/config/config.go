// Package config resolves the tool's layered configuration (base config
// file, constraints file, and command-line overrides) into one immutable
// EffectiveConfig per invocation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/dwinston/dbaudit/internal/store"
)

// FileConfig is the tool's own configuration, loaded by viper from
// ~/.dbaudit/config.yaml, the working directory, or DBAUDIT_* environment
// variables.
type FileConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`

	// Default target collection when neither --collection nor a
	// constraints file names one.
	Collection string `mapstructure:"collection"`

	// Credential entries, scanned read-only first then admin.
	ReadonlyUser     string `mapstructure:"readonly_user"`
	ReadonlyPassword string `mapstructure:"readonly_password"`
	AdminUser        string `mapstructure:"admin_user"`
	AdminPassword    string `mapstructure:"admin_password"`

	// ReportCollection is the administrative collection diff reports are
	// persisted into.
	ReportCollection string `mapstructure:"report_collection"`

	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultFileConfig returns a configuration with sensible defaults
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Host:             "localhost",
		Port:             27017,
		ReportCollection: "diff_reports",
		Output: OutputConfig{
			Format: "text",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// StoreParams resolves the file configuration into connection parameters,
// preferring admin credentials when both entries are configured. Used by
// the report-persistence path, which needs write access; Resolve applies
// the same precedence for the read path.
func (c *FileConfig) StoreParams() store.Params {
	p := store.Params{
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
	}
	if user, password, err := resolveCredentials(c); err == nil {
		p.User, p.Password = user, password
	}
	return p
}

// Load loads the tool configuration from file and environment.
func Load(cfgFile string) (*FileConfig, error) {
	cfg := DefaultFileConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".dbaudit"))
		}
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("DBAUDIT")
	viper.AutomaticEnv()
	viper.BindEnv("logging.level", "DBAUDIT_LOG_LEVEL")
	viper.BindEnv("database", "DBAUDIT_DATABASE")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults and flags cover it.
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// CLIOverrides carries the command-line layer handed to Resolve.
type CLIOverrides struct {
	// ConstraintsFile, when set, is authoritative for constraints and
	// aliases; inline constraint tokens are ignored.
	ConstraintsFile string
	// InlineConstraints are the positional constraint tokens as split by
	// the shell.
	InlineConstraints []string
	// Collection overrides the target collection for inline constraints.
	Collection string
	// AliasPairs are repeatable name=value alias flags.
	AliasPairs []string
	// EmailSpec is the inline colon-grammar email flag.
	EmailSpec string
}

// EffectiveConfig is the merged, immutable configuration for one run.
type EffectiveConfig struct {
	Store            store.Params
	Collections      []CollectionConstraints
	Aliases          map[string]string
	Email            *EmailSpec
	ReportCollection string
}

// Resolve merges the base file configuration with command-line overrides.
//
// Precedence rules:
//   - Constraints: a constraints file is authoritative; otherwise inline
//     tokens form a one-collection constraint set. Never merged.
//   - Aliases: from the constraints file when one is used, else from
//     name=value flags. Never merged.
//   - Email: an inline spec beats the file's reserved email block.
//   - Credentials: read-only then admin entries are scanned in that fixed
//     order and the last match wins, so admin credentials overwrite
//     read-only ones when both are configured.
func Resolve(base *FileConfig, cli CLIOverrides) (*EffectiveConfig, error) {
	cfg := &EffectiveConfig{
		ReportCollection: base.ReportCollection,
	}

	user, password, err := resolveCredentials(base)
	if err != nil {
		return nil, err
	}
	cfg.Store = store.Params{
		Host:     base.Host,
		Port:     base.Port,
		Database: base.Database,
		User:     user,
		Password: password,
	}

	var fileEmail *EmailSpec
	if cli.ConstraintsFile != "" {
		f, err := loadConstraintsFile(cli.ConstraintsFile)
		if err != nil {
			return nil, err
		}
		cfg.Collections = f.Collections
		cfg.Aliases = f.Aliases
		fileEmail = f.Email
	} else {
		name := cli.Collection
		if name == "" {
			name = base.Collection
		}
		if name == "" {
			return nil, newError(KindMissingField, "collection",
				"no --collection flag and no collection in the main config")
		}
		exprs := SplitInlineConstraints(cli.InlineConstraints)
		if len(exprs) == 0 {
			return nil, newError(KindMissingField, "constraints",
				"no constraints file and no inline constraint expressions")
		}
		cfg.Collections = []CollectionConstraints{{Name: name, Expressions: exprs}}

		aliases, err := parseAliasPairs(cli.AliasPairs)
		if err != nil {
			return nil, err
		}
		cfg.Aliases = aliases
	}

	if cli.EmailSpec != "" {
		spec, err := ParseEmailSpec(cli.EmailSpec)
		if err != nil {
			return nil, err
		}
		cfg.Email = spec
	} else {
		cfg.Email = fileEmail
	}

	return cfg, nil
}

// resolveCredentials scans the recognized user types in a fixed order. The
// loop deliberately does not stop at the first match: a configured admin
// entry overwrites a read-only one.
func resolveCredentials(base *FileConfig) (string, string, error) {
	entries := []struct {
		name     string
		user     string
		password string
	}{
		{"readonly", base.ReadonlyUser, base.ReadonlyPassword},
		{"admin", base.AdminUser, base.AdminPassword},
	}

	var user, password string
	for _, e := range entries {
		if e.user == "" {
			continue
		}
		if e.password == "" {
			return "", "", newError(KindAmbiguousCredentials, e.name+"_user",
				"user configured without matching password")
		}
		user, password = e.user, e.password
	}
	return user, password, nil
}

// SplitInlineConstraints re-joins the whitespace-split positional tokens
// and splits them on commas, since constraint expressions may themselves
// contain spaces (e.g. "energy > 0, state = done").
func SplitInlineConstraints(tokens []string) []string {
	joined := strings.Join(tokens, " ")
	var exprs []string
	for _, e := range strings.Split(joined, ",") {
		e = strings.TrimSpace(e)
		if e != "" {
			exprs = append(exprs, e)
		}
	}
	return exprs
}

func parseAliasPairs(pairs []string) (map[string]string, error) {
	aliases := make(map[string]string)
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, newError(KindMalformedAliases, pair, "expected name=value")
		}
		aliases[name] = value
	}
	return aliases, nil
}
