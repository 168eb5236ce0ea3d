package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	Database    string
	Ruleset     string // optional CUE ruleset path
	LogLevel    string
	Concurrency int

	// Logger is built in PersistentPreRunE from LogLevel and Verbose.
	Logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the batonset CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "batonset",
		Short: "batonset - baton twirling contest scheduler",
		Long: `Generate lane running orders for baton twirling contests, record judges'
scores and tabulate placements, qualification and advancement.

Environment variables BATONSET_DB, BATONSET_RULESET, BATONSET_LOG_LEVEL and
BATONSET_CONCURRENCY supply defaults for the matching flags.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if err := applyConfig(cmd, opts); err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			logger, err := newLogger(cmd.ErrOrStderr(), opts.LogLevel, opts.Verbose)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $BATONSET_DB or batonset.db)")
	cmd.PersistentFlags().StringVar(&opts.Ruleset, "rules", "", "CUE ruleset file (default $BATONSET_RULESET or built-in rules)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (default $BATONSET_LOG_LEVEL or warn)")
	cmd.PersistentFlags().IntVar(&opts.Concurrency, "concurrency", 0, "events tabulated in parallel (default $BATONSET_CONCURRENCY or 4)")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewScoreCommand(opts))
	cmd.AddCommand(NewTabulateCommand(opts))
	cmd.AddCommand(NewResultsCommand(opts))
	cmd.AddCommand(NewRulesetCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// applyConfig fills options whose flags were not set from the environment.
func applyConfig(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("db") {
		opts.Database = cfg.Database
	}
	if !flags.Changed("rules") {
		opts.Ruleset = cfg.Ruleset
	}
	if !flags.Changed("log-level") {
		opts.LogLevel = cfg.LogLevel
	}
	if !flags.Changed("concurrency") {
		opts.Concurrency = cfg.Concurrency
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
