package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/blocktrigger/internal/engine"
	"github.com/roach88/blocktrigger/internal/ir"
	"github.com/roach88/blocktrigger/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Handlers []string // custom action handlers the runtime provides
}

// ImportResult holds the outcome of storing a rule document.
type ImportResult struct {
	Document string `json:"document"`
	File     string `json:"file"`
	Seq      int64  `json:"seq"`
	Hash     string `json:"hash"`
	Rules    int    `json:"rules"`
	Inserted bool   `json:"inserted"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a rule document and store it as a new revision",
		Long: `Validate a rule document and store it in the database under --doc.

The document must validate and load into an engine. Custom actions may
only name handlers listed with --handler. Importing a document whose
canonical hash equals the latest revision stores nothing.

Examples:
  blocktrigger import quiz.cue --doc quiz
  blocktrigger import quiz.yaml --doc quiz --handler confetti`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Handlers, "handler", nil, "custom action handler available at runtime (repeatable)")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	logger := opts.Logger()

	loaded, err := LoadRules(path)
	if err != nil {
		code, message := loadErrorParts(err)
		return formatter.Fail(ExitCommandError, code, message)
	}
	if !loaded.Valid() {
		return outputValidationErrors(formatter, ValidationResult{
			File:   path,
			Rules:  len(loaded.Document().Rules),
			Errors: loaded.Errors,
		})
	}

	doc := loaded.Document()
	if err := checkLoadable(doc, opts.Handlers, logger); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRejected, err.Error())
	}
	for _, w := range loaded.Warnings {
		logger.Warn("rule cycle", "path", w.Path, "level", w.Level)
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error())
	}
	defer st.Close()

	rev, inserted, err := st.SaveDocument(ctx, opts.Document, doc)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error())
	}
	logger.Debug("document saved", "doc", rev.DocID, "seq", rev.Seq, "inserted", inserted)

	result := ImportResult{
		Document: rev.DocID,
		File:     path,
		Seq:      rev.Seq,
		Hash:     rev.Hash,
		Rules:    rev.RuleCount,
		Inserted: inserted,
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	if inserted {
		fmt.Fprintf(formatter.Writer, "✓ %s: stored revision %d (%d rules)\n", result.Document, result.Seq, result.Rules)
	} else {
		fmt.Fprintf(formatter.Writer, "✓ %s: unchanged, revision %d is current\n", result.Document, result.Seq)
	}
	if opts.Verbose {
		fmt.Fprintf(formatter.Writer, "  hash %s\n", result.Hash)
	}
	printWarnings(formatter, loaded.Warnings)
	return nil
}

// checkLoadable loads doc into a scratch engine that knows only the named
// handlers, so documents the runtime would refuse never reach the store.
func checkLoadable(doc ir.RuleDocument, handlers []string, logger *slog.Logger) error {
	eng := engine.New(engine.WithLogger(logger))
	defer eng.Stop()

	noop := func(context.Context, engine.StateContext, string, ir.Value) error { return nil }
	for _, name := range handlers {
		if err := eng.RegisterHandler(name, noop); err != nil {
			return err
		}
	}
	return eng.FromDocument(doc)
}

// openStore opens the database named by --db.
func openStore(opts *RootOptions) (*store.Store, error) {
	if opts.DB == "" {
		return nil, fmt.Errorf("database path is required (--db or BLOCKTRIGGER_DB)")
	}
	return store.Open(opts.DB)
}
