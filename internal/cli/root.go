package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	// Config is an optional YAML configuration file.
	Config string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bdb",
		Short: "bdb - weather radar metadata catalog",
		Long: `Store ODIM_H5 metadata trees in a relational catalog and query them
with attribute expressions.

Configuration is read from --config, a bdb.yaml in the working directory,
and BDB_* environment variables (for example BDB_DATABASE_DSN).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "configuration file (YAML)")

	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewMatchCommand(opts))
	cmd.AddCommand(NewCanonicalCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
