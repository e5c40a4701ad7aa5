package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/querysql"
	"github.com/baltrad/baltrad-db-sub003/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Dialect string
	Order   []string
	Desc    bool
	Limit   int
	Skip    int
}

// CompiledQuery is the statement a file query runs.
type CompiledQuery struct {
	Dialect string `json:"dialect"`
	SQL     string `json:"sql"`
	Params  []any  `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <expression>",
		Short: "Show the SQL a file query compiles to",
		Long: `Translate a filter expression into the SQL statement "bdb find" runs.

No database connection is made. The dialect defaults to the configured one.

Examples:
  bdb compile '(eq (attr "what/object" "string") "PVOL")'
  bdb compile --dialect postgres '(like (attr "what/source:NOD" "string") "se*")'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect: sqlite or postgres (default: configured)")
	cmd.Flags().StringArrayVar(&opts.Order, "order", nil, "order by expression (repeatable)")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "order descending")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 = all)")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "number of entries to skip")

	return cmd
}

func runCompile(opts *CompileOptions, text string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	env, err := loadEnvironment(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	name := opts.Dialect
	if name == "" {
		name = env.cfg.Database.Dialect
	}
	dialect, ok := querysql.DialectFor(name)
	if !ok {
		return formatter.Fail(ExitCommandError, "unknown dialect", errs.Value("unknown dialect %q", name))
	}

	q, err := buildFileQuery(text, opts.Order, opts.Desc, opts.Limit, opts.Skip)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid expression", err)
	}
	sql, params, err := store.CompileFileQuery(env.mapper, dialect, q)
	if err != nil {
		return formatter.Fail(ExitCommandError, "translation failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(CompiledQuery{Dialect: name, SQL: sql, Params: params})
	}
	fmt.Fprintln(formatter.Writer, sql)
	fmt.Fprintf(formatter.Writer, "-- params: %v\n", params)
	return nil
}
