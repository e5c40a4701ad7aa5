package cli

import (
	"github.com/spf13/cobra"

	"github.com/baltrad/baltrad-db-sub003/internal/expr"
)

// NewCanonicalCommand creates the canonical command.
func NewCanonicalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "canonical <expression>",
		Short: "Print the canonical form of an expression",
		Long: `Parse an expression and print its canonical form.

The canonical form is stable: parsing it again yields the same form.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			e, err := expr.Parse(args[0])
			if err != nil {
				return formatter.Fail(ExitCommandError, "invalid expression", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string]string{"canonical": e.String()})
			}
			return formatter.Success(e.String())
		},
	}
	return cmd
}
