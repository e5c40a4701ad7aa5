package sqlir

import (
	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

// Selectable is anything a FROM clause can hold.
type Selectable interface {
	Node
	// Name is the name the selectable is addressed by; empty for
	// subqueries and joins.
	Name() string
	// Column returns the named column or a CodeLookup error.
	Column(name string) (*Column, error)
	// Columns lists the columns in declaration order.
	Columns() []*Column
	selectableNode()
}

// Column is a column owned by a selectable. Columns obtained through an
// Alias are proxies: they belong to the alias but keep the reference link
// of the column they stand for.
type Column struct {
	name       string
	selectable Selectable
	references *Column
	base       *Column
}

func (*Column) sqlNode()  {}
func (*Column) exprNode() {}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Selectable returns the owner the column is rendered against.
func (c *Column) Selectable() Selectable { return c.selectable }

// References returns the column this one refers to as a foreign key, or nil.
func (c *Column) References() *Column { return c.references }

// Base returns the underlying table column of a proxy, or c itself.
func (c *Column) Base() *Column {
	if c.base != nil {
		return c.base
	}
	return c
}

// Table is a named table with an ordered column list.
type Table struct {
	name    string
	columns []*Column
	byName  map[string]*Column
}

func (*Table) sqlNode()        {}
func (*Table) selectableNode() {}

// NewTable creates a table with the given columns.
func NewTable(name string, columns ...string) *Table {
	t := &Table{name: name, byName: make(map[string]*Column)}
	for _, c := range columns {
		if _, err := t.AddColumn(c, nil); err != nil {
			panic(err)
		}
	}
	return t
}

// AddColumn appends a column, optionally referencing another column. A
// repeated name is a CodeDuplicateEntry error.
func (t *Table) AddColumn(name string, references *Column) (*Column, error) {
	if _, exists := t.byName[name]; exists {
		return nil, errs.Duplicate("table %s already has column %s", t.name, name)
	}
	c := &Column{name: name, selectable: t, references: references}
	t.columns = append(t.columns, c)
	t.byName[name] = c
	return c, nil
}

func (t *Table) Name() string { return t.name }

func (t *Table) Column(name string) (*Column, error) {
	c, ok := t.byName[name]
	if !ok {
		return nil, errs.Lookup("table %s has no column %s", t.name, name)
	}
	return c, nil
}

// MustColumn is Column for names known to exist.
func (t *Table) MustColumn(name string) *Column {
	c, err := t.Column(name)
	if err != nil {
		panic(err)
	}
	return c
}

func (t *Table) Columns() []*Column { return append([]*Column(nil), t.columns...) }

// Alias returns t under a new name.
func (t *Table) Alias(name string) *Alias { return NewAlias(t, name) }

// Alias exposes a selectable under another name.
type Alias struct {
	name    string
	aliased Selectable
	proxies map[*Column]*Column
}

func (*Alias) sqlNode()        {}
func (*Alias) selectableNode() {}

// NewAlias wraps s under name.
func NewAlias(s Selectable, name string) *Alias {
	return &Alias{name: name, aliased: s, proxies: make(map[*Column]*Column)}
}

func (a *Alias) Name() string { return a.name }

// Aliased returns the wrapped selectable.
func (a *Alias) Aliased() Selectable { return a.aliased }

// Column returns the proxy for the aliased selectable's column. The same
// proxy is returned on every call.
func (a *Alias) Column(name string) (*Column, error) {
	c, err := a.aliased.Column(name)
	if err != nil {
		return nil, errs.Lookup("alias %s: %v", a.name, err)
	}
	return a.proxy(c), nil
}

// MustColumn is Column for names known to exist.
func (a *Alias) MustColumn(name string) *Column {
	c, err := a.Column(name)
	if err != nil {
		panic(err)
	}
	return c
}

func (a *Alias) Columns() []*Column {
	cols := a.aliased.Columns()
	for i, c := range cols {
		cols[i] = a.proxy(c)
	}
	return cols
}

func (a *Alias) proxy(c *Column) *Column {
	if p, ok := a.proxies[c]; ok {
		return p
	}
	p := &Column{name: c.name, selectable: a, references: c.references, base: c.Base()}
	a.proxies[c] = p
	return p
}

// JoinKind selects inner or left outer join.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

func (k JoinKind) String() string {
	if k == LeftJoin {
		return "LEFT"
	}
	return "INNER"
}

// Join combines two selectables on a condition.
type Join struct {
	Kind JoinKind
	LHS  Selectable
	RHS  Selectable
	On   Expr
}

func (*Join) sqlNode()        {}
func (*Join) selectableNode() {}

// NewJoin joins lhs and rhs. Named selectables may appear only once across
// both sides.
func NewJoin(kind JoinKind, lhs, rhs Selectable, on Expr) (*Join, error) {
	seen := make(map[string]struct{})
	for _, name := range append(selectableNames(lhs), selectableNames(rhs)...) {
		if _, dup := seen[name]; dup {
			return nil, errs.Duplicate("join: %s appears twice", name)
		}
		seen[name] = struct{}{}
	}
	return &Join{Kind: kind, LHS: lhs, RHS: rhs, On: on}, nil
}

// Join extends j with another inner join.
func (j *Join) Join(rhs Selectable, on Expr) (*Join, error) {
	return NewJoin(InnerJoin, j, rhs, on)
}

// LeftJoin extends j with another left join.
func (j *Join) LeftJoin(rhs Selectable, on Expr) (*Join, error) {
	return NewJoin(LeftJoin, j, rhs, on)
}

func (j *Join) Name() string { return "" }

// Column returns the first column named name, searching the left side
// first.
func (j *Join) Column(name string) (*Column, error) {
	if c, err := j.LHS.Column(name); err == nil {
		return c, nil
	}
	if c, err := j.RHS.Column(name); err == nil {
		return c, nil
	}
	return nil, errs.Lookup("join has no column %s", name)
}

func (j *Join) Columns() []*Column {
	return append(j.LHS.Columns(), j.RHS.Columns()...)
}

// selectableNames lists the non-empty names s brings into a FROM clause.
func selectableNames(s Selectable) []string {
	if j, ok := s.(*Join); ok {
		return append(selectableNames(j.LHS), selectableNames(j.RHS)...)
	}
	if s.Name() == "" {
		return nil
	}
	return []string{s.Name()}
}
