package querysql

import (
	"strconv"

	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// Dialect holds the rendering rules and capabilities of one backend.
type Dialect interface {
	// Name identifies the dialect ("sqlite", "postgres").
	Name() string
	// Placeholder renders the n-th (1-based) positional parameter.
	Placeholder(n int) string
	// HasReturning reports support for INSERT ... RETURNING.
	HasReturning() bool
	// HasLastInsertID reports whether the driver reports generated ids.
	HasLastInsertID() bool
	// Param converts a value into a driver argument.
	Param(v oh5.Value) any
}

// SQLite renders for SQLite through github.com/mattn/go-sqlite3.
type SQLite struct{}

func (SQLite) Name() string           { return "sqlite" }
func (SQLite) Placeholder(int) string { return "?" }
func (SQLite) HasReturning() bool     { return false }
func (SQLite) HasLastInsertID() bool  { return true }

// Param stores dates and times as ISO text, which sorts and compares
// correctly in SQLite.
func (SQLite) Param(v oh5.Value) any { return oh5.Native(v) }

// Postgres renders for PostgreSQL through pgx.
type Postgres struct{}

func (Postgres) Name() string             { return "postgres" }
func (Postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (Postgres) HasReturning() bool       { return true }
func (Postgres) HasLastInsertID() bool    { return false }

func (Postgres) Param(v oh5.Value) any {
	switch v := v.(type) {
	case oh5.Date:
		return oh5.DateTime{Date: v}.GoTime()
	case oh5.DateTime:
		return v.GoTime()
	case oh5.Time:
		return v.String()
	}
	return oh5.Native(v)
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, bool) {
	switch name {
	case "sqlite", "sqlite3":
		return SQLite{}, true
	case "postgres", "postgresql", "pgx":
		return Postgres{}, true
	default:
		return nil, false
	}
}
