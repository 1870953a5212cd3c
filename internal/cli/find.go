package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/blocktrigger/internal/rulequery"
	"github.com/roach88/blocktrigger/internal/store"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	In      string // restrict to one document
	Source  string
	Target  string
	Object  string // source or target
	Event   string
	Action  string
	Handler string
	Limit   int
}

// FindResult lists the rules a search matched.
type FindResult struct {
	Rules []store.RuleRef `json:"rules"`
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Search stored rules",
		Long: `Search the current revision of every stored document for rules.

Filters combine with AND. --object matches rules that read from or act on
the object, which is what to check before deleting it from a page.

Examples:
  blocktrigger find --object video1
  blocktrigger find --event quiz-correct --in quiz
  blocktrigger find --handler confetti --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.In, "in", "", "only search this document")
	cmd.Flags().StringVar(&opts.Source, "source", "", "source object id")
	cmd.Flags().StringVar(&opts.Target, "target", "", "target object id")
	cmd.Flags().StringVar(&opts.Object, "object", "", "object id used as source or target")
	cmd.Flags().StringVar(&opts.Event, "event", "", "source event type")
	cmd.Flags().StringVar(&opts.Action, "action", "", "target action type")
	cmd.Flags().StringVar(&opts.Handler, "handler", "", "custom action handler")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of rules (0 for all)")

	return cmd
}

// query builds the search from the flags.
func (o *FindOptions) query() rulequery.Select {
	q := rulequery.Match(map[rulequery.Field]string{
		rulequery.FieldDocument: o.In,
		rulequery.FieldSource:   o.Source,
		rulequery.FieldTarget:   o.Target,
		rulequery.FieldEvent:    o.Event,
		rulequery.FieldAction:   o.Action,
		rulequery.FieldHandler:  o.Handler,
	})
	if o.Object != "" {
		preds := []rulequery.Predicate{rulequery.Involves{Object: o.Object}}
		if q.Filter != nil {
			preds = append(preds, q.Filter)
		}
		q.Filter = rulequery.And{Predicates: preds}
	}
	q.Limit = o.Limit
	return q
}

func runFind(ctx context.Context, opts *FindOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	if opts.Limit < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("invalid limit %d: must be >= 0", opts.Limit))
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, err.Error())
	}
	defer st.Close()

	refs, err := st.FindRules(ctx, opts.query())
	if err != nil {
		return storeFailure(formatter, err)
	}
	opts.Logger().Debug("rules found", "count", len(refs))

	if opts.Format == "json" {
		return formatter.Success(FindResult{Rules: refs})
	}

	if len(refs) == 0 {
		fmt.Fprintln(formatter.Writer, "No matching rules.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tRULE\tWHEN\tDO\tSTATUS")
	for _, r := range refs {
		status := "enabled"
		if !r.Enabled {
			status = "disabled"
		}
		do := r.TargetAction
		if r.TargetObjectID != "" {
			do += " " + r.TargetObjectID
		}
		if r.Handler != "" {
			do += " (" + r.Handler + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\n", r.DocID, r.RuleID, r.SourceObjectID, r.SourceEvent, do, status)
	}
	return tw.Flush()
}
