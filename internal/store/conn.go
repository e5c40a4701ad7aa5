package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/querysql"
)

// ExecResult reports the effect of a statement that returns no rows.
type ExecResult struct {
	RowsAffected int64
	// LastInsertID is set only when the dialect reports generated ids.
	LastInsertID int64
}

// Connection is one database session. It is either open or closed, and
// either inside or outside a transaction. A Connection serves one caller
// at a time.
type Connection interface {
	// Query runs a statement returning rows.
	Query(ctx context.Context, query string, params []any) (*Result, error)
	// Exec runs a statement returning no rows.
	Exec(ctx context.Context, query string, params []any) (ExecResult, error)

	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTransaction() bool

	IsOpen() bool
	Close() error

	Dialect() querysql.Dialect
}

// ErrNotInTransaction is returned by Commit and Rollback outside a
// transaction.
var ErrNotInTransaction = errors.New("not in a transaction")

// sqlConnection is a Connection over one *sql.Conn.
type sqlConnection struct {
	conn    *sql.Conn
	tx      *sql.Tx
	dialect querysql.Dialect
}

// queryer is the part of *sql.Conn and *sql.Tx used to run statements.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func newSQLConnection(conn *sql.Conn, d querysql.Dialect) *sqlConnection {
	return &sqlConnection{conn: conn, dialect: d}
}

func (c *sqlConnection) target() (queryer, error) {
	if c.conn == nil {
		return nil, errs.Database("execute", errors.New("connection is closed"))
	}
	if c.tx != nil {
		return c.tx, nil
	}
	return c.conn, nil
}

func (c *sqlConnection) Query(ctx context.Context, query string, params []any) (*Result, error) {
	q, err := c.target()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errs.Database("query", err)
	}
	defer rows.Close()
	res, err := readResult(rows)
	if err != nil {
		return nil, errs.Database("query", err)
	}
	return res, nil
}

func (c *sqlConnection) Exec(ctx context.Context, query string, params []any) (ExecResult, error) {
	q, err := c.target()
	if err != nil {
		return ExecResult{}, err
	}
	r, err := q.ExecContext(ctx, query, params...)
	if err != nil {
		return ExecResult{}, errs.Database("exec", err)
	}
	var out ExecResult
	if out.RowsAffected, err = r.RowsAffected(); err != nil {
		return ExecResult{}, errs.Database("exec", err)
	}
	if c.dialect.HasLastInsertID() {
		if out.LastInsertID, err = r.LastInsertId(); err != nil {
			return ExecResult{}, errs.Database("exec", err)
		}
	}
	return out, nil
}

func (c *sqlConnection) Begin(ctx context.Context) error {
	if c.conn == nil {
		return errs.Database("begin", errors.New("connection is closed"))
	}
	if c.tx != nil {
		return errs.Database("begin", errors.New("already in a transaction"))
	}
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return errs.Database("begin", err)
	}
	c.tx = tx
	return nil
}

func (c *sqlConnection) Commit() error {
	if c.tx == nil {
		return errs.Database("commit", ErrNotInTransaction)
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		return errs.Database("commit", err)
	}
	return nil
}

func (c *sqlConnection) Rollback() error {
	if c.tx == nil {
		return errs.Database("rollback", ErrNotInTransaction)
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil {
		return errs.Database("rollback", err)
	}
	return nil
}

func (c *sqlConnection) InTransaction() bool { return c.tx != nil }

func (c *sqlConnection) IsOpen() bool { return c.conn != nil }

// Close hands the session back to database/sql, which may reuse it.
func (c *sqlConnection) Close() error {
	if c.conn == nil {
		return nil
	}
	if c.tx != nil {
		_ = c.Rollback()
	}
	conn := c.conn
	c.conn = nil
	return conn.Close()
}

// destroy closes the session and makes database/sql discard the driver
// connection instead of reusing it.
func (c *sqlConnection) destroy() error {
	if c.conn == nil {
		return nil
	}
	if c.tx != nil {
		_ = c.Rollback()
	}
	conn := c.conn
	c.conn = nil
	rawErr := conn.Raw(func(any) error { return driver.ErrBadConn })
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	if rawErr != nil && !errors.Is(rawErr, driver.ErrBadConn) {
		return fmt.Errorf("destroy connection: %w", rawErr)
	}
	return nil
}

func (c *sqlConnection) Dialect() querysql.Dialect { return c.dialect }

// sqlFactory creates connections from a *sql.DB, running setup statements
// on each new session.
func sqlFactory(db *sql.DB, d querysql.Dialect, setup []string) Factory {
	return Factory{
		Create: func(ctx context.Context) (Connection, error) {
			conn, err := db.Conn(ctx)
			if err != nil {
				return nil, errs.Database("connect", err)
			}
			for _, stmt := range setup {
				if _, err := conn.ExecContext(ctx, stmt); err != nil {
					conn.Close()
					return nil, errs.Database(fmt.Sprintf("execute %q", stmt), err)
				}
			}
			return newSQLConnection(conn, d), nil
		},
		Destroy: func(c Connection) error {
			if sc, ok := c.(*sqlConnection); ok {
				return sc.destroy()
			}
			return c.Close()
		},
	}
}
