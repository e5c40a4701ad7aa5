package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baltrad/baltrad-db-sub003/internal/eval"
	"github.com/baltrad/baltrad-db-sub003/internal/expr"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <metadata.yaml> <expression>",
		Short: "Evaluate an expression against a metadata file",
		Long: `Evaluate a filter expression against a metadata file in memory.

Exits with status 0 on a match and 1 otherwise. No database is needed.
Attributes that occur in several datasets match as they do in "bdb find".

Examples:
  bdb match scan.yaml '(eq (attr "what/object" "string") "SCAN")'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runMatch(opts *RootOptions, path, text string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	e, err := expr.Parse(text)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid expression", err)
	}
	f, err := oh5.YAMLCodec{}.Read(path)
	if err != nil {
		_ = formatter.Error(ErrCodeReadFailed, fmt.Sprintf("failed to read %s", path), err.Error())
		return WrapExitError(ExitCommandError, "failed to read metadata", err)
	}
	env, err := loadEnvironment(opts, formatter)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Evaluating %s", e)

	matcher := eval.NewFileMatcherWith(eval.NewWithMapper(env.mapper))
	matched, err := matcher.MatchFile(f, e)
	if err != nil {
		return formatter.Fail(ExitCommandError, "evaluation failed", err)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(map[string]bool{"match": matched}); err != nil {
			return err
		}
	} else if matched {
		fmt.Fprintln(formatter.Writer, "match")
	} else {
		fmt.Fprintln(formatter.Writer, "no match")
	}

	if !matched {
		return NewExitError(ExitFailure, "no match")
	}
	return nil
}
