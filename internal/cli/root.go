package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/blocktrigger/internal/config"
)

// RootOptions holds global flags for all commands.
// Defaults come from BLOCKTRIGGER_* environment variables.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	DB         string // SQLite database path
	Document   string // document id in the store
	MaxCascade int    // per-drain event limit for simulations, 0 disables

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.ValidFormats

// Logger returns the logger installed by the root command, or one that
// discards everything when the command runs standalone (as in tests).
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:  o.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: o.Verbose,
	}
}

// NewRootCommand creates the root command for the blocktrigger CLI.
func NewRootCommand() *cobra.Command {
	cfg, err := config.Load()
	return newRootCommand(cfg, err)
}

// newRootCommand builds the command tree on top of cfg. A non-nil cfgErr
// is reported when any command runs.
func newRootCommand(cfg config.Config, cfgErr error) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "blocktrigger",
		Short: "Cross-object trigger rules for interactive content",
		Long: `blocktrigger validates, simulates and stores trigger rule documents.

A rule document lists rules of the form "when <object> raises <event>, if
<conditions>, do <action> on <target>". Documents are authored in CUE,
JSON or YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return WrapExitError(ExitCommandError, "invalid environment", cfgErr)
			}
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.MaxCascade < 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid max-cascade %d: must be >= 0", opts.MaxCascade))
			}

			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", cfg.Verbose, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", cfg.DB, "SQLite database path")
	cmd.PersistentFlags().StringVar(&opts.Document, "doc", cfg.Document, "document id")
	cmd.PersistentFlags().IntVar(&opts.MaxCascade, "max-cascade", cfg.MaxCascade, "events per drain before the cascade is cut (0 disables)")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewRevisionsCommand(opts))
	cmd.AddCommand(NewDocumentsCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
