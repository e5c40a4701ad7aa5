package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string // output file path
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <uuid>",
		Short: "Write the stored metadata of an entry as YAML",
		Long: `Rebuild the metadata tree of a stored entry and write it as YAML.

Without --output the YAML is written to stdout.

Examples:
  bdb export 0b1f3c1e-3d2a-4f55-9b7e-0a7c0c4b7f11
  bdb export 0b1f3c1e-3d2a-4f55-9b7e-0a7c0c4b7f11 -o scan.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (default: stdout)")

	return cmd
}

func runExport(opts *ExportOptions, id string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	u, err := uuid.Parse(id)
	if err != nil {
		return formatter.Fail(ExitCommandError, fmt.Sprintf("invalid uuid %q", id), err)
	}

	db, err := openDatabase(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := db.EntryByUUID(ctx, u)
	if err != nil {
		return formatter.Fail(ExitFailure, "entry not found", err)
	}
	f, err := db.Metadata(ctx, entry)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load metadata", err)
	}

	codec := oh5.YAMLCodec{}
	if opts.Output == "" {
		return codec.Encode(f, formatter.Writer)
	}
	if err := codec.Write(f, opts.Output); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, "failed to write output", err.Error())
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	formatter.VerboseLog("Wrote %s", opts.Output)

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"uuid": u.String(), "output": opts.Output})
	}
	fmt.Fprintf(formatter.Writer, "Exported %s to %s\n", u, opts.Output)
	return nil
}
