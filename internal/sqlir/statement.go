package sqlir

import (
	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

// Statement is a complete SQL statement.
type Statement interface {
	Node
	statementNode()
}

// FromClause is the ordered list of selectables a Select reads from.
type FromClause struct {
	elements []Selectable
	names    map[string]struct{}
}

func (*FromClause) sqlNode() {}

// Add appends s. A name already present is a CodeDuplicateEntry error;
// unnamed selectables are always accepted.
func (f *FromClause) Add(s Selectable) error {
	if f.names == nil {
		f.names = make(map[string]struct{})
	}
	names := selectableNames(s)
	for _, name := range names {
		if _, dup := f.names[name]; dup {
			return errs.Duplicate("from clause already contains %s", name)
		}
	}
	for _, name := range names {
		f.names[name] = struct{}{}
	}
	f.elements = append(f.elements, s)
	return nil
}

// Has reports whether a selectable named name is present.
func (f *FromClause) Has(name string) bool {
	_, ok := f.names[name]
	return ok
}

// Elements returns the selectables in insertion order.
func (f *FromClause) Elements() []Selectable {
	return append([]Selectable(nil), f.elements...)
}

// Len returns the number of elements.
func (f *FromClause) Len() int { return len(f.elements) }

// Order is one ORDER BY term.
type Order struct {
	Expr Expr
	Desc bool
}

// Select is a SELECT statement. An unnamed Select can also serve as a
// subquery; alias it to address its columns by name.
type Select struct {
	What     []Expr
	From     FromClause
	Where    Expr
	Distinct bool
	GroupBy  []Expr
	OrderBy  []Order
	// Limit and Offset are ignored when zero.
	Limit  int
	Offset int

	columns map[string]*Column
}

func (*Select) sqlNode()        {}
func (*Select) statementNode()  {}
func (*Select) selectableNode() {}

// NewSelect creates a select of the given expressions.
func NewSelect(what ...Expr) *Select {
	return &Select{What: append([]Expr(nil), what...)}
}

// AppendWhere adds a predicate, combining it with any existing one by AND.
func (s *Select) AppendWhere(e Expr) {
	s.Where = And(s.Where, e)
}

// AppendOrder adds an ORDER BY term.
func (s *Select) AppendOrder(e Expr, desc bool) {
	s.OrderBy = append(s.OrderBy, Order{Expr: e, Desc: desc})
}

func (s *Select) Name() string { return "" }

// Column returns a column named after a labeled expression or a plain
// column of the select list.
func (s *Select) Column(name string) (*Column, error) {
	for _, e := range s.What {
		if resultName(e) == name {
			return s.resultColumn(name), nil
		}
	}
	return nil, errs.Lookup("select has no result column %s", name)
}

func (s *Select) Columns() []*Column {
	var out []*Column
	for _, e := range s.What {
		if name := resultName(e); name != "" {
			out = append(out, s.resultColumn(name))
		}
	}
	return out
}

func (s *Select) resultColumn(name string) *Column {
	if s.columns == nil {
		s.columns = make(map[string]*Column)
	}
	if c, ok := s.columns[name]; ok {
		return c
	}
	c := &Column{name: name, selectable: s}
	s.columns[name] = c
	return c
}

func resultName(e Expr) string {
	switch e := e.(type) {
	case *Label:
		return e.Name
	case *Column:
		return e.name
	default:
		return ""
	}
}

// Alias names the select so it can be joined as a subquery.
func (s *Select) Alias(name string) *Alias { return NewAlias(s, name) }

type assignment struct {
	column *Column
	value  Expr
}

// Insert is an INSERT of one row into a table.
type Insert struct {
	table     *Table
	values    []assignment
	returning []*Column
	conflict  []*Column
}

func (*Insert) sqlNode()       {}
func (*Insert) statementNode() {}

// NewInsert starts an insert into t.
func NewInsert(t *Table) *Insert {
	return &Insert{table: t}
}

// Table returns the target table.
func (i *Insert) Table() *Table { return i.table }

// Value sets the value of column. A column of another table is a
// CodeLookup error, a column set twice a CodeDuplicateEntry error.
func (i *Insert) Value(column *Column, value Expr) error {
	if column == nil || column.selectable != Selectable(i.table) {
		return errs.Lookup("column %s is not a column of %s", columnName(column), i.table.name)
	}
	for _, a := range i.values {
		if a.column == column {
			return errs.Duplicate("insert into %s already sets %s", i.table.name, column.name)
		}
	}
	i.values = append(i.values, assignment{column: column, value: value})
	return nil
}

// Columns returns the columns set so far, in order.
func (i *Insert) Columns() []*Column {
	out := make([]*Column, len(i.values))
	for n, a := range i.values {
		out[n] = a.column
	}
	return out
}

// Values returns the values set so far, parallel to Columns.
func (i *Insert) Values() []Expr {
	out := make([]Expr, len(i.values))
	for n, a := range i.values {
		out[n] = a.value
	}
	return out
}

// SetReturning requests the given columns back from the insert.
func (i *Insert) SetReturning(cols ...*Column) {
	i.returning = append([]*Column(nil), cols...)
}

// Returning returns the requested columns.
func (i *Insert) Returning() []*Column { return i.returning }

// OnConflictDoNothing makes the insert a no-op when a row with the same
// values in cols already exists. cols must name a unique key of the table.
func (i *Insert) OnConflictDoNothing(cols ...*Column) error {
	for _, c := range cols {
		if c == nil || c.selectable != Selectable(i.table) {
			return errs.Lookup("column %s is not a column of %s", columnName(c), i.table.name)
		}
	}
	i.conflict = append([]*Column(nil), cols...)
	return nil
}

// ConflictTarget returns the columns set by OnConflictDoNothing.
func (i *Insert) ConflictTarget() []*Column { return i.conflict }

// Delete removes the rows of a table matching Where.
type Delete struct {
	Table *Table
	Where Expr
}

func (*Delete) sqlNode()       {}
func (*Delete) statementNode() {}

// NewDelete starts a delete from t.
func NewDelete(t *Table) *Delete {
	return &Delete{Table: t}
}

// AppendWhere adds a predicate, combining it with any existing one by AND.
func (d *Delete) AppendWhere(e Expr) {
	d.Where = And(d.Where, e)
}

func columnName(c *Column) string {
	if c == nil {
		return "<nil>"
	}
	return c.name
}
