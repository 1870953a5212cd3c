package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// RevisionInfo is one revision as reported by the revisions command.
type RevisionInfo struct {
	Seq           int64  `json:"seq"`
	Hash          string `json:"hash"`
	Rules         int    `json:"rules"`
	EngineVersion string `json:"engine_version"`
}

// RevisionsResult lists the history of one document.
type RevisionsResult struct {
	Document  string         `json:"document"`
	Revisions []RevisionInfo `json:"revisions"`
}

// NewRevisionsCommand creates the revisions command.
func NewRevisionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "revisions",
		Short:         "List the stored revisions of a document",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRevisions(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runRevisions(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openStore(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error())
	}
	defer st.Close()

	revs, err := st.ListRevisions(ctx, opts.Document)
	if err != nil {
		return storeFailure(formatter, err)
	}

	result := RevisionsResult{
		Document:  opts.Document,
		Revisions: make([]RevisionInfo, len(revs)),
	}
	for i, rev := range revs {
		result.Revisions[i] = RevisionInfo{
			Seq:           rev.Seq,
			Hash:          rev.Hash,
			Rules:         rev.RuleCount,
			EngineVersion: rev.EngineVersion,
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	if len(result.Revisions) == 0 {
		fmt.Fprintf(formatter.Writer, "No revisions for %s.\n", opts.Document)
		return nil
	}
	for _, rev := range result.Revisions {
		fmt.Fprintf(formatter.Writer, "%4d  %s  %d rules  (engine %s)\n", rev.Seq, rev.Hash, rev.Rules, rev.EngineVersion)
	}
	return nil
}
