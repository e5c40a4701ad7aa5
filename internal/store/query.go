package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/expr"
	"github.com/baltrad/baltrad-db-sub003/internal/mapper"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
	"github.com/baltrad/baltrad-db-sub003/internal/querysql"
	"github.com/baltrad/baltrad-db-sub003/internal/sqlir"
)

// OrderTerm orders query results by an expression.
type OrderTerm struct {
	Expr expr.Expr
	Desc bool
}

// FileQuery selects stored files.
type FileQuery struct {
	// Filter keeps files for which it holds; nil keeps all.
	Filter expr.Expr
	// Order is applied before the implicit ordering by file id.
	Order []OrderTerm
	Limit int
	Skip  int
}

// Fetch is one result column of an AttributeQuery.
type Fetch struct {
	Name string
	Expr expr.Expr
}

// AttributeQuery reads attribute values and aggregates across files.
type AttributeQuery struct {
	Fetch    []Fetch
	Filter   expr.Expr
	Group    []expr.Expr
	Order    []OrderTerm
	Distinct bool
	Limit    int
	Skip     int
}

// FileQuerySelect translates q into a statement selecting the bdb_files
// columns of the matching files. Rows are grouped by file id, so a file is
// returned once however many attribute rows the joins produce. An order
// term over a repeated attribute sorts by its smallest value ascending and
// by its largest value descending.
func (d *Database) FileQuerySelect(q FileQuery) (*sqlir.Select, error) {
	tr := newTranslator(d.mapper, d.tables)
	sel := sqlir.NewSelect(d.tables.fileColumns()...)
	id := d.tables.Files.MustColumn("id")

	if q.Filter != nil {
		where, err := tr.translate(q.Filter)
		if err != nil {
			return nil, err
		}
		sel.AppendWhere(where)
	}
	sel.GroupBy = []sqlir.Expr{id}
	for _, o := range q.Order {
		e, err := tr.translate(o.Expr)
		if err != nil {
			return nil, err
		}
		agg := "MIN"
		if o.Desc {
			agg = "MAX"
		}
		sel.AppendOrder(sqlir.Call(agg, e), o.Desc)
	}
	sel.AppendOrder(id, false)
	sel.Limit = q.Limit
	sel.Offset = q.Skip
	if err := sel.From.Add(tr.From()); err != nil {
		return nil, err
	}
	return sel, nil
}

// FindFiles returns the entries of the files matching q.
func (d *Database) FindFiles(ctx context.Context, q FileQuery) ([]*FileEntry, error) {
	sel, err := d.FileQuerySelect(q)
	if err != nil {
		return nil, err
	}
	var entries []*FileEntry
	err = d.withConn(ctx, func(s *session) error {
		res, err := s.query(ctx, sel)
		if err != nil {
			return err
		}
		for res.Next() {
			e, err := d.entryFromRow(res)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.metrics.Queries.WithLabelValues("file").Inc()
	return entries, nil
}

// AttributeQuerySelect translates q into a statement.
func (d *Database) AttributeQuerySelect(q AttributeQuery) (*sqlir.Select, error) {
	if len(q.Fetch) == 0 {
		return nil, errs.Value("attribute query fetches nothing")
	}
	tr := newTranslator(d.mapper, d.tables)
	sel := sqlir.NewSelect()
	sel.Distinct = q.Distinct

	seen := make(map[string]bool)
	for _, f := range q.Fetch {
		if f.Name == "" {
			return nil, errs.Value("fetch of %s has no name", f.Expr)
		}
		if seen[f.Name] {
			return nil, errs.Duplicate("fetch name %q used twice", f.Name)
		}
		seen[f.Name] = true
		e, err := tr.translate(f.Expr)
		if err != nil {
			return nil, err
		}
		sel.What = append(sel.What, sqlir.As(e, f.Name))
	}
	if q.Filter != nil {
		where, err := tr.translate(q.Filter)
		if err != nil {
			return nil, err
		}
		sel.AppendWhere(where)
	}
	for _, g := range q.Group {
		e, err := tr.translate(g)
		if err != nil {
			return nil, err
		}
		sel.GroupBy = append(sel.GroupBy, e)
	}
	for _, o := range q.Order {
		e, err := tr.translate(o.Expr)
		if err != nil {
			return nil, err
		}
		sel.AppendOrder(e, o.Desc)
	}
	sel.Limit = q.Limit
	sel.Offset = q.Skip
	if err := sel.From.Add(tr.From()); err != nil {
		return nil, err
	}
	return sel, nil
}

// ExecuteAttributeQuery runs q. Result columns are named after the
// fetches.
func (d *Database) ExecuteAttributeQuery(ctx context.Context, q AttributeQuery) (*Result, error) {
	sel, err := d.AttributeQuerySelect(q)
	if err != nil {
		return nil, err
	}
	var res *Result
	err = d.withConn(ctx, func(s *session) error {
		res, err = s.query(ctx, sel)
		return err
	})
	if err != nil {
		return nil, err
	}
	d.metrics.Queries.WithLabelValues("attribute").Inc()
	return res, nil
}

// FileCount returns the number of stored files.
func (d *Database) FileCount(ctx context.Context) (int64, error) {
	t := d.tables.Files
	sel := sqlir.NewSelect(sqlir.Call("COUNT", t.MustColumn("id")))
	if err := sel.From.Add(t); err != nil {
		return 0, err
	}
	var n int64
	err := d.withConn(ctx, func(s *session) error {
		res, err := s.query(ctx, sel)
		if err != nil {
			return err
		}
		if !res.Next() {
			return nil
		}
		v, err := res.ValueAt(0)
		if err != nil {
			return err
		}
		count, err := oh5.Convert(v, oh5.TypeInt)
		if err != nil {
			return err
		}
		n = int64(count.(oh5.Int))
		return nil
	})
	return n, err
}

// EntryByUUID returns the entry with id u, or a CodeLookup error.
func (d *Database) EntryByUUID(ctx context.Context, u uuid.UUID) (*FileEntry, error) {
	var e *FileEntry
	err := d.withConn(ctx, func(s *session) error {
		var err error
		e, err = d.entryByUUID(ctx, s, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errs.Lookup("no file with uuid %s", u)
	}
	return e, nil
}

func (d *Database) entryByUUID(ctx context.Context, s *session, u uuid.UUID) (*FileEntry, error) {
	return d.entryWhere(ctx, s, "uuid", oh5.String(u.String()))
}

func (d *Database) entryByHash(ctx context.Context, s *session, hash string) (*FileEntry, error) {
	return d.entryWhere(ctx, s, "hash", oh5.String(hash))
}

// entryWhere returns the first entry whose column equals v, or nil.
func (d *Database) entryWhere(ctx context.Context, s *session, column string, v oh5.Value) (*FileEntry, error) {
	t := d.tables.Files
	sel := sqlir.NewSelect(d.tables.fileColumns()...)
	if err := sel.From.Add(t); err != nil {
		return nil, err
	}
	sel.AppendWhere(sqlir.Eq(t.MustColumn(column), sqlir.Lit(v)))
	sel.AppendOrder(t.MustColumn("id"), false)
	sel.Limit = 1
	res, err := s.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if !res.Next() {
		return nil, nil
	}
	return d.entryFromRow(res)
}

// CompileFileQuery renders the statement FindFiles would run for q,
// without a connection.
func CompileFileQuery(m *mapper.Mapper, d querysql.Dialect, q FileQuery) (string, []any, error) {
	tables, err := newTables(m)
	if err != nil {
		return "", nil, err
	}
	sel, err := (&Database{mapper: m, tables: tables}).FileQuerySelect(q)
	if err != nil {
		return "", nil, err
	}
	return querysql.NewSQLCompiler(d).Compile(sel)
}
