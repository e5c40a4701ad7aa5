// Package config loads catalog configuration from an optional YAML file,
// BDB_ environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/querysql"
	"github.com/baltrad/baltrad-db-sub003/internal/store"
)

// EnvPrefix prefixes environment overrides: BDB_DATABASE_DSN sets
// database.dsn.
const EnvPrefix = "BDB"

// Config is the catalog configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Mapping  MappingConfig  `mapstructure:"mapping"`
}

// DatabaseConfig selects and sizes the database connection.
type DatabaseConfig struct {
	Dialect      string `mapstructure:"dialect"`
	DSN          string `mapstructure:"dsn"`
	PoolSize     int    `mapstructure:"pool_size"`
	PoolBlocking bool   `mapstructure:"pool_blocking"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MappingConfig points at a CUE attribute mapping. An empty File selects
// the built-in mapping.
type MappingConfig struct {
	File string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dialect", "sqlite")
	v.SetDefault("database.dsn", "bdb.sqlite")
	v.SetDefault("database.pool_size", 4)
	v.SetDefault("database.pool_blocking", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("mapping.file", "")
}

// Load reads the configuration. path names a YAML file; when empty, a
// bdb.yaml in the working directory is used if present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bdb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values Load cannot default.
func (c *Config) Validate() error {
	if _, ok := querysql.DialectFor(c.Database.Dialect); !ok {
		return errs.Value("database.dialect: unknown dialect %q", c.Database.Dialect)
	}
	if c.Database.DSN == "" {
		return errs.Value("database.dsn must not be empty")
	}
	if c.Database.PoolSize < 1 {
		return errs.Value("database.pool_size must be positive, got %d", c.Database.PoolSize)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errs.Value("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// StoreOptions converts the database section into store options. The
// mapper, logger and metrics registerer are left for the caller.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Dialect:      c.Database.Dialect,
		DSN:          c.Database.DSN,
		PoolSize:     c.Database.PoolSize,
		PoolBlocking: c.Database.PoolBlocking,
	}
}
