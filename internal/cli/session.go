package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baltrad/baltrad-db-sub003/internal/config"
	"github.com/baltrad/baltrad-db-sub003/internal/logging"
	"github.com/baltrad/baltrad-db-sub003/internal/mapper"
	"github.com/baltrad/baltrad-db-sub003/internal/store"
)

// newFormatter builds the formatter for a command run.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// environment is what a command needs from the configuration.
type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	mapper *mapper.Mapper
}

func loadEnvironment(opts *RootOptions, f *OutputFormatter) (*environment, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, f.Fail(ExitCommandError, "failed to load configuration", err)
	}
	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return nil, f.Fail(ExitCommandError, "failed to create logger", err)
	}

	m, err := mapper.Default()
	if cfg.Mapping.File != "" {
		m, err = mapper.LoadFile(cfg.Mapping.File)
	}
	if err != nil {
		return nil, f.Fail(ExitCommandError, "failed to load attribute mapping", err)
	}
	return &environment{cfg: cfg, logger: logger, mapper: m}, nil
}

// openDatabase loads the configuration and opens the catalog it names.
func openDatabase(ctx context.Context, opts *RootOptions, f *OutputFormatter) (*store.Database, error) {
	env, err := loadEnvironment(opts, f)
	if err != nil {
		return nil, err
	}
	storeOpts := env.cfg.StoreOptions()
	storeOpts.Mapper = env.mapper
	storeOpts.Logger = env.logger

	f.VerboseLog("Opening %s database %s", storeOpts.Dialect, storeOpts.DSN)
	db, err := store.Open(ctx, storeOpts)
	if err != nil {
		return nil, f.Fail(ExitCommandError, "failed to open database", err)
	}
	return db, nil
}
