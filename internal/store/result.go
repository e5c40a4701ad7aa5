package store

import (
	"database/sql"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// Result is a materialized row cursor. It starts before the first row.
type Result struct {
	columns []string
	rows    [][]oh5.Value
	pos     int
}

func newResult(columns []string, rows [][]oh5.Value) *Result {
	return &Result{columns: columns, rows: rows, pos: -1}
}

func readResult(rows *sql.Rows) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]oh5.Value
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]oh5.Value, len(columns))
		for i, v := range raw {
			if row[i], err = oh5.FromNative(v); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return newResult(columns, out), nil
}

// Next advances to the next row and reports whether there is one.
func (r *Result) Next() bool {
	if r.pos < len(r.rows) {
		r.pos++
	}
	return r.pos < len(r.rows)
}

// Seek moves to row index and reports whether it exists.
func (r *Result) Seek(index int) bool {
	if index < 0 || index >= len(r.rows) {
		return false
	}
	r.pos = index
	return true
}

// Size returns the number of rows.
func (r *Result) Size() int { return len(r.rows) }

// Columns returns the column names.
func (r *Result) Columns() []string { return append([]string(nil), r.columns...) }

// ValueAt returns the value at position i of the current row.
func (r *Result) ValueAt(i int) (oh5.Value, error) {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return nil, errs.Lookup("no current row")
	}
	if i < 0 || i >= len(r.columns) {
		return nil, errs.Lookup("column %d out of range [0, %d)", i, len(r.columns))
	}
	return r.rows[r.pos][i], nil
}

// ValueByName returns the value of the named column of the current row.
func (r *Result) ValueByName(name string) (oh5.Value, error) {
	for i, c := range r.columns {
		if c == name {
			return r.ValueAt(i)
		}
	}
	return nil, errs.Lookup("no column %q", name)
}
