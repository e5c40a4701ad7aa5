package querysql

import (
	"fmt"
	"strings"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
	"github.com/baltrad/baltrad-db-sub003/internal/sqlir"
)

// SQLCompiler renders sqlir nodes to parameterized SQL text.
//
// Values are never interpolated: every Literal and Bind becomes a
// placeholder with its value appended to the parameter list. Output is a
// pure function of the node and dialect.
type SQLCompiler struct {
	dialect Dialect

	// BoundValues holds the values of Bind parameters by name.
	BoundValues map[string]any
}

// NewSQLCompiler creates a compiler for d.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{
		dialect:     d,
		BoundValues: make(map[string]any),
	}
}

// Dialect returns the compiler's dialect.
func (c *SQLCompiler) Dialect() Dialect { return c.dialect }

// Compile converts a statement or expression to SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(n sqlir.Node) (string, []any, error) {
	if n == nil {
		return "", nil, errs.Value("cannot compile nil node")
	}
	w := &writer{c: c}
	if err := w.node(n); err != nil {
		return "", nil, err
	}
	return w.b.String(), w.params, nil
}

type writer struct {
	c      *SQLCompiler
	b      strings.Builder
	params []any
}

func (w *writer) write(parts ...string) {
	for _, p := range parts {
		w.b.WriteString(p)
	}
}

func (w *writer) bind(v any) {
	w.params = append(w.params, v)
	w.b.WriteString(w.c.dialect.Placeholder(len(w.params)))
}

func (w *writer) node(n sqlir.Node) error {
	switch n := n.(type) {
	case *sqlir.Select:
		return w.selectStmt(n)
	case *sqlir.Insert:
		return w.insert(n)
	case *sqlir.Delete:
		return w.delete(n)
	case *sqlir.FromClause:
		return w.from(n)
	case sqlir.Selectable:
		return w.selectable(n)
	case sqlir.Expr:
		return w.expr(n)
	default:
		return errs.Value("unsupported node type: %T", n)
	}
}

func (w *writer) selectStmt(s *sqlir.Select) error {
	w.write("SELECT ")
	if s.Distinct {
		w.write("DISTINCT ")
	}
	if len(s.What) == 0 {
		return errs.Value("select without result columns")
	}
	if err := w.exprList(s.What); err != nil {
		return err
	}
	if s.From.Len() > 0 {
		w.write(" FROM ")
		if err := w.from(&s.From); err != nil {
			return err
		}
	}
	if s.Where != nil {
		w.write(" WHERE ")
		if err := w.expr(s.Where); err != nil {
			return fmt.Errorf("compile where: %w", err)
		}
	}
	if len(s.GroupBy) > 0 {
		w.write(" GROUP BY ")
		if err := w.exprList(s.GroupBy); err != nil {
			return err
		}
	}
	for i, o := range s.OrderBy {
		if i == 0 {
			w.write(" ORDER BY ")
		} else {
			w.write(", ")
		}
		if err := w.expr(o.Expr); err != nil {
			return err
		}
		if o.Desc {
			w.write(" DESC")
		} else {
			w.write(" ASC")
		}
	}
	if s.Limit > 0 {
		w.write(" LIMIT ")
		w.bind(int64(s.Limit))
	}
	if s.Offset > 0 {
		w.write(" OFFSET ")
		w.bind(int64(s.Offset))
	}
	return nil
}

func (w *writer) from(f *sqlir.FromClause) error {
	for i, s := range f.Elements() {
		if i > 0 {
			w.write(", ")
		}
		if err := w.selectable(s); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) selectable(s sqlir.Selectable) error {
	switch s := s.(type) {
	case *sqlir.Table:
		w.write(s.Name())
		return nil
	case *sqlir.Alias:
		if err := w.aliased(s.Aliased()); err != nil {
			return err
		}
		w.write(" AS ", s.Name())
		return nil
	case *sqlir.Join:
		if err := w.selectable(s.LHS); err != nil {
			return err
		}
		w.write(" ", s.Kind.String(), " JOIN ")
		if err := w.selectable(s.RHS); err != nil {
			return err
		}
		if s.On == nil {
			return errs.Value("join without condition")
		}
		w.write(" ON ")
		return w.expr(s.On)
	case *sqlir.Select:
		return w.subquery(s)
	default:
		return errs.Value("unsupported selectable: %T", s)
	}
}

// aliased renders the target of an alias. Aliases of aliases collapse onto
// the innermost selectable.
func (w *writer) aliased(s sqlir.Selectable) error {
	switch s := s.(type) {
	case *sqlir.Alias:
		return w.aliased(s.Aliased())
	case *sqlir.Join:
		w.write("(")
		if err := w.selectable(s); err != nil {
			return err
		}
		w.write(")")
		return nil
	default:
		return w.selectable(s)
	}
}

func (w *writer) subquery(s *sqlir.Select) error {
	w.write("(")
	if err := w.selectStmt(s); err != nil {
		return err
	}
	w.write(")")
	return nil
}

func (w *writer) insert(ins *sqlir.Insert) error {
	w.write("INSERT INTO ", ins.Table().Name())
	cols := ins.Columns()
	if len(cols) == 0 {
		w.write(" DEFAULT VALUES")
	} else {
		w.write(" (")
		for i, col := range cols {
			if i > 0 {
				w.write(", ")
			}
			w.write(col.Name())
		}
		w.write(") VALUES (")
		if err := w.exprList(ins.Values()); err != nil {
			return err
		}
		w.write(")")
	}
	if target := ins.ConflictTarget(); len(target) > 0 {
		w.write(" ON CONFLICT (")
		for i, col := range target {
			if i > 0 {
				w.write(", ")
			}
			w.write(col.Name())
		}
		w.write(") DO NOTHING")
	}
	if ret := ins.Returning(); len(ret) > 0 {
		if !w.c.dialect.HasReturning() {
			return errs.Value("dialect %s does not support RETURNING", w.c.dialect.Name())
		}
		w.write(" RETURNING ")
		for i, col := range ret {
			if i > 0 {
				w.write(", ")
			}
			w.write(col.Name())
		}
	}
	return nil
}

func (w *writer) delete(d *sqlir.Delete) error {
	w.write("DELETE FROM ", d.Table.Name())
	if d.Where != nil {
		w.write(" WHERE ")
		return w.expr(d.Where)
	}
	return nil
}

func (w *writer) exprList(exprs []sqlir.Expr) error {
	for i, e := range exprs {
		if i > 0 {
			w.write(", ")
		}
		if err := w.expr(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) expr(e sqlir.Expr) error {
	switch e := e.(type) {
	case *sqlir.Column:
		w.column(e)
		return nil
	case sqlir.Literal:
		if e.Value == nil {
			w.bind(nil)
			return nil
		}
		w.bind(w.c.dialect.Param(e.Value))
		return nil
	case sqlir.Bind:
		v, ok := w.c.BoundValues[e.Name]
		if !ok {
			return errs.Lookup("no value bound to %q", e.Name)
		}
		if ov, isValue := v.(oh5.Value); isValue {
			v = w.c.dialect.Param(ov)
		}
		w.bind(v)
		return nil
	case *sqlir.Binary:
		return w.binary(e)
	case *sqlir.List:
		w.write("(")
		if err := w.exprList(e.Items); err != nil {
			return err
		}
		w.write(")")
		return nil
	case *sqlir.Func:
		w.write(e.Name, "(")
		if e.Distinct {
			w.write("DISTINCT ")
		}
		if err := w.exprList(e.Args); err != nil {
			return err
		}
		w.write(")")
		return nil
	case *sqlir.Label:
		if err := w.expr(e.Expr); err != nil {
			return err
		}
		w.write(" AS ", e.Name)
		return nil
	case nil:
		return errs.Value("cannot compile nil expression")
	default:
		return errs.Value("unsupported expression type: %T", e)
	}
}

// column renders qualified by the owning selectable's name. Columns of an
// unnamed subquery render bare.
func (w *writer) column(c *sqlir.Column) {
	if owner := c.Selectable(); owner != nil && owner.Name() != "" {
		w.write(owner.Name(), ".")
	}
	w.write(c.Name())
}

func (w *writer) binary(e *sqlir.Binary) error {
	if e.Op == sqlir.OpIn || e.Op == sqlir.OpNotIn {
		if list, ok := e.RHS.(*sqlir.List); ok && len(list.Items) == 0 {
			// IN () is not valid SQL; nothing is in an empty list.
			if e.Op == sqlir.OpIn {
				w.write("(1 = 0)")
			} else {
				w.write("(1 = 1)")
			}
			return nil
		}
	}
	w.write("(")
	if err := w.expr(e.LHS); err != nil {
		return err
	}
	w.write(" ", e.Op.Token(), " ")
	if err := w.expr(e.RHS); err != nil {
		return err
	}
	if e.Op == sqlir.OpLike {
		w.write(" ESCAPE ", likeEscape)
	}
	w.write(")")
	return nil
}

// likeEscape matches the escape character of expr.SQLLikePattern.
const likeEscape = `'\'`
