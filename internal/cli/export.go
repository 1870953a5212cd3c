package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/blocktrigger/internal/ir"
	"github.com/roach88/blocktrigger/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Seq  int64  // revision number, 0 for the current revision
	Hash string // revision hash
}

// ExportResult wraps an exported document for JSON output.
type ExportResult struct {
	Document string          `json:"document"`
	Seq      int64           `json:"seq"`
	Hash     string          `json:"hash"`
	Rules    json.RawMessage `json:"rules_document"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print a stored rule document",
		Long: `Print a stored rule document as JSON.

By default the current revision of --doc is printed. Use --seq or --hash
to print an earlier revision. In text format the bare document is
written, ready to be imported again.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Seq, "seq", 0, "revision number to export")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "revision hash to export")
	cmd.MarkFlagsMutuallyExclusive("seq", "hash")

	return cmd
}

func runExport(ctx context.Context, opts *ExportOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error())
	}
	defer st.Close()

	var (
		doc ir.RuleDocument
		rev store.Revision
	)
	switch {
	case opts.Seq > 0:
		doc, rev, err = st.LoadRevision(ctx, opts.Document, opts.Seq)
	case opts.Hash != "":
		doc, rev, err = st.RevisionByHash(ctx, opts.Document, opts.Hash)
	default:
		doc, rev, err = st.LoadDocument(ctx, opts.Document)
	}
	if err != nil {
		return storeFailure(formatter, err)
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if opts.Format == "json" {
		return formatter.Success(ExportResult{
			Document: rev.DocID,
			Seq:      rev.Seq,
			Hash:     rev.Hash,
			Rules:    body,
		})
	}

	fmt.Fprintln(formatter.Writer, string(body))
	return nil
}

// storeFailure reports a store error, mapping missing documents and
// revisions to ErrCodeNotFound.
func storeFailure(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error())
	}
	return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error())
}
