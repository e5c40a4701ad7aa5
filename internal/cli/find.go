package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baltrad/baltrad-db-sub003/internal/expr"
	"github.com/baltrad/baltrad-db-sub003/internal/store"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	*RootOptions
	Filter string
	Order  []string
	Desc   bool
	Limit  int
	Skip   int
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find stored files matching an expression",
		Long: `Find catalog entries whose metadata satisfies a filter expression.

Expressions use the canonical form printed by "bdb canonical".

Examples:
  bdb find --filter '(eq (attr "what/object" "string") "PVOL")'
  bdb find --filter '(gt (attr "where/lat" "double") 56.0)' --order '(attr "what/date" "date")' --desc --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter expression")
	cmd.Flags().StringArrayVar(&opts.Order, "order", nil, "order by expression (repeatable)")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "order descending")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 = all)")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "number of entries to skip")

	return cmd
}

// buildFileQuery parses the filter and order flags.
func buildFileQuery(filter string, order []string, desc bool, limit, skip int) (store.FileQuery, error) {
	q := store.FileQuery{Limit: limit, Skip: skip}
	if filter != "" {
		e, err := expr.Parse(filter)
		if err != nil {
			return q, fmt.Errorf("filter: %w", err)
		}
		q.Filter = e
	}
	for _, o := range order {
		e, err := expr.Parse(o)
		if err != nil {
			return q, fmt.Errorf("order: %w", err)
		}
		q.Order = append(q.Order, store.OrderTerm{Expr: e, Desc: desc})
	}
	return q, nil
}

func runFind(opts *FindOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	q, err := buildFileQuery(opts.Filter, opts.Order, opts.Desc, opts.Limit, opts.Skip)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid expression", err)
	}

	db, err := openDatabase(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.FindFiles(ctx, q)
	if err != nil {
		return formatter.Fail(ExitCommandError, "query failed", err)
	}

	views := make([]EntryView, len(entries))
	for i, e := range entries {
		views[i] = newEntryView(e)
	}
	if formatter.Format == "json" {
		return formatter.Success(views)
	}
	for _, v := range views {
		fmt.Fprintf(formatter.Writer, "%s  %-5s %s %s  %s\n", v.UUID, v.Object, v.Date, v.Time, v.Source)
	}
	formatter.VerboseLog("%d entr(y/ies) found", len(views))
	return nil
}
