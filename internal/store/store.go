package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/mapper"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
	"github.com/baltrad/baltrad-db-sub003/internal/querysql"
	"github.com/baltrad/baltrad-db-sub003/internal/sqlir"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on bdb_files.hash
const currentSchemaVersion = 1

// Options configure a Database.
type Options struct {
	// Dialect is "sqlite" or "postgres".
	Dialect string
	// DSN is the driver data source name: a file path for SQLite, a
	// connection URL for PostgreSQL.
	DSN string
	// PoolSize bounds concurrently leased connections.
	PoolSize int
	// PoolBlocking makes an exhausted pool wait instead of failing.
	PoolBlocking bool
	// Mapper places attributes. Defaults to mapper.Default().
	Mapper *mapper.Mapper
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Registerer receives the store metrics. Defaults to a private
	// registry.
	Registerer prometheus.Registerer
}

// Database is the metadata catalog.
type Database struct {
	db      *sql.DB
	dialect querysql.Dialect
	mapper  *mapper.Mapper
	tables  *Tables
	pool    *Pool
	ids     *idCache
	logger  *zap.Logger
	metrics *Metrics
}

// Open opens the database described by opts, creating the schema if
// needed. This function is idempotent - safe to call multiple times.
func Open(ctx context.Context, opts Options) (*Database, error) {
	dialect, ok := querysql.DialectFor(opts.Dialect)
	if !ok {
		return nil, errs.Value("unknown dialect %q", opts.Dialect)
	}
	driverName, dsn := "sqlite3", sqliteDSN(opts.DSN)
	if dialect.Name() == "postgres" {
		driverName, dsn = "pgx", opts.DSN
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errs.Database("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Database("connect", err)
	}
	if err := applySchema(ctx, db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	d, err := New(db, dialect, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	d.logger.Info("database opened",
		zap.String("dialect", dialect.Name()),
		zap.Int("pool_size", opts.PoolSize),
	)
	return d, nil
}

// New wraps an open *sql.DB whose schema is already in place.
func New(db *sql.DB, dialect querysql.Dialect, opts Options) (*Database, error) {
	m := opts.Mapper
	if m == nil {
		var err error
		if m, err = mapper.Default(); err != nil {
			return nil, err
		}
	}
	tables, err := newTables(m)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	size := opts.PoolSize
	if size < 1 {
		size = 1
	}
	db.SetMaxOpenConns(size)

	return &Database{
		db:      db,
		dialect: dialect,
		mapper:  m,
		tables:  tables,
		pool:    NewPool(sqlFactory(db, dialect, sessionSetup(dialect)), size, opts.PoolBlocking),
		ids:     newIDCache(),
		logger:  logger,
		metrics: newMetrics(reg),
	}, nil
}

// Close releases the pool and the database handle.
func (d *Database) Close() error {
	poolErr := d.pool.Close()
	if err := d.db.Close(); err != nil {
		return errs.Database("close", err)
	}
	return poolErr
}

// Dialect returns the SQL dialect in use.
func (d *Database) Dialect() querysql.Dialect { return d.dialect }

// Mapper returns the attribute mapper.
func (d *Database) Mapper() *mapper.Mapper { return d.mapper }

// Tables returns the schema description.
func (d *Database) Tables() *Tables { return d.tables }

// Metrics returns the store's collectors.
func (d *Database) Metrics() *Metrics { return d.metrics }

// sessionSetup returns the statements run on every new connection.
func sessionSetup(d querysql.Dialect) []string {
	if d.Name() != "sqlite" {
		return nil
	}
	return []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA case_sensitive_like = ON",
	}
}

// sqliteDSN makes transactions begin IMMEDIATE, so a writer takes the write
// lock up front and waits on busy_timeout instead of failing when it
// upgrades from a read lock. Options already in dsn are kept.
func sqliteDSN(dsn string) string {
	for _, opt := range []string{"_txlock=immediate", "_busy_timeout=5000"} {
		key, _, _ := strings.Cut(opt, "=")
		if strings.Contains(dsn, key+"=") {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + opt
	}
	return dsn
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(ctx context.Context, db *sql.DB, d querysql.Dialect) error {
	schema := sqliteSchema
	if d.Name() == "postgres" {
		schema = postgresSchema
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errs.Database("execute schema", err)
	}
	if err := runMigrations(ctx, db, d); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on the stored
// schema version.
func runMigrations(ctx context.Context, db *sql.DB, d querysql.Dialect) error {
	version, err := schemaVersion(ctx, db, d)
	if err != nil {
		return err
	}

	if version < 1 {
		if err := migrateToV1(ctx, db); err != nil {
			return err
		}
	}

	return setSchemaVersion(ctx, db, d, currentSchemaVersion)
}

func schemaVersion(ctx context.Context, db *sql.DB, d querysql.Dialect) (int, error) {
	var version int
	if d.Name() == "sqlite" {
		if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
			return 0, errs.Database("get user_version", err)
		}
		return version, nil
	}
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM bdb_schema_version").Scan(&version)
	if err != nil {
		return 0, errs.Database("get schema version", err)
	}
	return version, nil
}

func setSchemaVersion(ctx context.Context, db *sql.DB, d querysql.Dialect, version int) error {
	if d.Name() == "sqlite" {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			return errs.Database("set user_version", err)
		}
		return nil
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM bdb_schema_version"); err != nil {
		return errs.Database("set schema version", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO bdb_schema_version (version) VALUES ($1)", version); err != nil {
		return errs.Database("set schema version", err)
	}
	return nil
}

// migrateToV1 indexes bdb_files.hash for IsStored lookups.
func migrateToV1(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_files_hash
		ON bdb_files(hash)
	`)
	if err != nil {
		return errs.Database("migrate to v1", err)
	}
	return nil
}

// session couples a connection with a compiler for running sqlir
// statements.
type session struct {
	conn     Connection
	compiler *querysql.SQLCompiler
	logger   *zap.Logger
}

func (d *Database) newSession(conn Connection) *session {
	return &session{
		conn:     conn,
		compiler: querysql.NewSQLCompiler(conn.Dialect()),
		logger:   d.logger,
	}
}

func (s *session) query(ctx context.Context, n sqlir.Node) (*Result, error) {
	text, params, err := s.compiler.Compile(n)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("query", zap.String("sql", text), zap.Int("params", len(params)))
	return s.conn.Query(ctx, text, params)
}

func (s *session) exec(ctx context.Context, n sqlir.Node) (ExecResult, error) {
	text, params, err := s.compiler.Compile(n)
	if err != nil {
		return ExecResult{}, err
	}
	s.logger.Debug("exec", zap.String("sql", text), zap.Int("params", len(params)))
	return s.conn.Exec(ctx, text, params)
}

// insertID runs ins and returns the generated id of column idCol, using
// RETURNING where the dialect has it.
func (s *session) insertID(ctx context.Context, ins *sqlir.Insert, idCol *sqlir.Column) (int64, error) {
	id, ok, err := s.insertNew(ctx, ins, idCol)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errs.Database("insert", fmt.Errorf("no id returned from %s", ins.Table().Name()))
	}
	return id, nil
}

// insertNew is insertID for inserts that may write no row, such as one
// with OnConflictDoNothing. ok is false when nothing was inserted.
func (s *session) insertNew(ctx context.Context, ins *sqlir.Insert, idCol *sqlir.Column) (int64, bool, error) {
	if !s.conn.Dialect().HasReturning() {
		r, err := s.exec(ctx, ins)
		if err != nil {
			return 0, false, err
		}
		if r.RowsAffected == 0 {
			return 0, false, nil
		}
		return r.LastInsertID, true, nil
	}
	ins.SetReturning(idCol)
	res, err := s.query(ctx, ins)
	if err != nil {
		return 0, false, err
	}
	if !res.Next() {
		return 0, false, nil
	}
	v, err := res.ValueAt(0)
	if err != nil {
		return 0, false, err
	}
	id, ok := v.(oh5.Int)
	if !ok {
		return 0, false, errs.Database("insert", fmt.Errorf("unexpected id %v", v))
	}
	return int64(id), true, nil
}

// withConn leases a connection for fn.
func (d *Database) withConn(ctx context.Context, fn func(*session) error) error {
	lease, err := d.pool.Get(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()
	return fn(d.newSession(lease.Conn()))
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (d *Database) withTx(ctx context.Context, fn func(*session) error) error {
	return d.withConn(ctx, func(s *session) error {
		if err := s.conn.Begin(ctx); err != nil {
			return err
		}
		if err := fn(s); err != nil {
			if rbErr := s.conn.Rollback(); rbErr != nil {
				d.logger.Warn("rollback failed", zap.Error(rbErr))
			}
			return err
		}
		return s.conn.Commit()
	})
}
