package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// DocumentsResult lists stored document ids.
type DocumentsResult struct {
	Documents []string `json:"documents"`
}

// NewDocumentsCommand creates the documents command and its delete
// subcommand.
func NewDocumentsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "documents",
		Short:         "List stored rule documents",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocuments(cmd.Context(), rootOpts, cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "delete <doc-id>",
		Short:         "Delete a document and its revision history",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeleteDocument(cmd.Context(), rootOpts, args[0], cmd)
		},
	})

	return cmd
}

func runDocuments(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openStore(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error())
	}
	defer st.Close()

	ids, err := st.ListDocuments(ctx)
	if err != nil {
		return storeFailure(formatter, err)
	}

	if opts.Format == "json" {
		return formatter.Success(DocumentsResult{Documents: ids})
	}
	if len(ids) == 0 {
		fmt.Fprintln(formatter.Writer, "No documents stored.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(formatter.Writer, id)
	}
	return nil
}

func runDeleteDocument(ctx context.Context, opts *RootOptions, docID string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openStore(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error())
	}
	defer st.Close()

	if err := st.DeleteDocument(ctx, docID); err != nil {
		return storeFailure(formatter, err)
	}
	opts.Logger().Debug("document deleted", "doc", docID)

	if opts.Format == "json" {
		return formatter.Success(map[string]string{"deleted": docID})
	}
	fmt.Fprintf(formatter.Writer, "✓ deleted %s\n", docID)
	return nil
}
