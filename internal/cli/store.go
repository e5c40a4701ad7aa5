package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
	"github.com/baltrad/baltrad-db-sub003/internal/store"
)

// StoreOptions holds flags for the store command.
type StoreOptions struct {
	*RootOptions
	AllowDuplicates bool
}

// StoredFile reports one stored metadata file.
type StoredFile struct {
	Path  string    `json:"path"`
	Entry EntryView `json:"entry"`
}

// EntryView is the printable form of a catalog entry.
type EntryView struct {
	UUID     string `json:"uuid"`
	Object   string `json:"object"`
	Source   string `json:"source"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	StoredAt string `json:"stored_at"`
	Hash     string `json:"hash"`
}

func newEntryView(e *store.FileEntry) EntryView {
	v := EntryView{
		UUID:     e.UUID.String(),
		Object:   e.Object(),
		Source:   e.Source().String(),
		StoredAt: e.StoredAt.Format("2006-01-02T15:04:05Z"),
		Hash:     e.Hash,
	}
	if d, ok := e.Specialized["what/date"]; ok && !oh5.IsNull(d) {
		v.Date = d.String()
	}
	if t, ok := e.Specialized["what/time"]; ok && !oh5.IsNull(t) {
		v.Time = t.String()
	}
	return v
}

// NewStoreCommand creates the store command.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "store <metadata.yaml>...",
		Short: "Store metadata files in the catalog",
		Long: `Store one or more YAML metadata files in the catalog.

A file whose metadata hash is already stored is not stored again unless
--allow-duplicates is given; its existing entry is reported instead.

Examples:
  bdb store scan.yaml
  bdb store --format json *.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.AllowDuplicates, "allow-duplicates", false, "store files whose hash is already in the catalog")

	return cmd
}

func runStore(opts *StoreOptions, paths []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	db, err := openDatabase(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer db.Close()

	codec := oh5.YAMLCodec{}
	results := make([]StoredFile, 0, len(paths))
	for _, path := range paths {
		f, err := codec.Read(path)
		if err != nil {
			return formatter.Fail(ExitCommandError, fmt.Sprintf("failed to read %s", path), err)
		}
		formatter.VerboseLog("Storing %s (hash %s)", path, f.Hash())

		var entry *store.FileEntry
		if opts.AllowDuplicates {
			entry, err = db.Store(ctx, f)
		} else {
			entry, err = db.GetOrStore(ctx, f)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, fmt.Sprintf("failed to store %s", path), err)
		}
		results = append(results, StoredFile{Path: path, Entry: newEntryView(entry)})
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}
	for _, r := range results {
		fmt.Fprintf(formatter.Writer, "%s  %s\n", r.Entry.UUID, r.Path)
	}
	return nil
}
