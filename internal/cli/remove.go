package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <uuid>...",
		Short: "Remove entries from the catalog",
		Long: `Remove stored entries by UUID.

Exits with status 1 when any of the given entries was not stored.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(rootOpts, args, cmd)
		},
	}
	return cmd
}

// RemoveResult reports the outcome for one UUID.
type RemoveResult struct {
	UUID    string `json:"uuid"`
	Removed bool   `json:"removed"`
}

func runRemove(opts *RootOptions, ids []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts, cmd)

	uuids := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			return formatter.Fail(ExitCommandError, fmt.Sprintf("invalid uuid %q", id), err)
		}
		uuids[i] = u
	}

	db, err := openDatabase(ctx, opts, formatter)
	if err != nil {
		return err
	}
	defer db.Close()

	results := make([]RemoveResult, 0, len(uuids))
	missing := 0
	for _, u := range uuids {
		removed, err := db.RemoveFile(ctx, u)
		if err != nil {
			return formatter.Fail(ExitCommandError, fmt.Sprintf("failed to remove %s", u), err)
		}
		if !removed {
			missing++
		}
		results = append(results, RemoveResult{UUID: u.String(), Removed: removed})
	}

	if formatter.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			status := "removed"
			if !r.Removed {
				status = "not found"
			}
			fmt.Fprintf(formatter.Writer, "%s  %s\n", r.UUID, status)
		}
	}

	if missing > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d entr(y/ies) not found", missing))
	}
	return nil
}
