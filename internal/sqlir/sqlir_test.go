package sqlir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

func TestTable_Column(t *testing.T) {
	tbl := NewTable("t1", "c1", "c2")

	c, err := tbl.Column("c2")
	require.NoError(t, err)
	assert.Equal(t, "c2", c.Name())
	assert.Same(t, tbl, c.Selectable())

	_, err = tbl.Column("c3")
	assert.True(t, errs.IsLookup(err))

	_, err = tbl.AddColumn("c1", nil)
	assert.True(t, errs.IsDuplicate(err))
	assert.Len(t, tbl.Columns(), 2)
}

func TestAlias_ColumnKeepsReference(t *testing.T) {
	t2 := NewTable("t2", "d")
	d := t2.MustColumn("d")
	t1 := NewTable("t1")
	_, err := t1.AddColumn("c", d)
	require.NoError(t, err)

	alias := t1.Alias("a1")
	proxy, err := alias.Column("c")
	require.NoError(t, err)

	assert.Same(t, d, proxy.References())
	assert.Same(t, alias, proxy.Selectable())
	assert.Same(t, t1.MustColumn("c"), proxy.Base())
	assert.Same(t, proxy, alias.MustColumn("c"))

	// Aliasing the alias still points at the base table's target.
	outer := NewAlias(alias, "a2")
	p2 := outer.MustColumn("c")
	assert.Same(t, d, p2.References())
	assert.Same(t, t1.MustColumn("c"), p2.Base())

	_, err = alias.Column("missing")
	assert.True(t, errs.IsLookup(err))
}

func TestFromClause_Add(t *testing.T) {
	var from FromClause
	require.NoError(t, from.Add(NewTable("t1")))
	err := from.Add(NewTable("t1"))
	assert.True(t, errs.IsDuplicate(err))

	require.NoError(t, from.Add(NewTable("t1").Alias("t1_2")))
	require.NoError(t, from.Add(NewSelect()))
	require.NoError(t, from.Add(NewSelect()))
	assert.Equal(t, 4, from.Len())
	assert.True(t, from.Has("t1_2"))
}

func TestFromClause_AddJoinChecksNames(t *testing.T) {
	t1 := NewTable("t1", "id")
	t2 := NewTable("t2", "t1_id")
	j, err := NewJoin(InnerJoin, t1, t2, Eq(t1.MustColumn("id"), t2.MustColumn("t1_id")))
	require.NoError(t, err)

	var from FromClause
	require.NoError(t, from.Add(j))
	assert.True(t, errs.IsDuplicate(from.Add(NewTable("t2"))))

	_, err = j.Join(NewTable("t1"), nil)
	assert.True(t, errs.IsDuplicate(err))
}

func TestSelect_AppendWhere(t *testing.T) {
	tbl := NewTable("t", "a", "b")
	s := NewSelect(tbl.MustColumn("a"))

	first := Eq(tbl.MustColumn("a"), Lit(oh5.Int(1)))
	s.AppendWhere(first)
	assert.Equal(t, first, s.Where)

	second := Gt(tbl.MustColumn("b"), Lit(oh5.Int(2)))
	s.AppendWhere(second)
	and, ok := s.Where.(*Binary)
	require.True(t, ok)
	assert.Equal(t, OpAnd, and.Op)
	assert.Equal(t, first, and.LHS)
	assert.Equal(t, second, and.RHS)
}

func TestSelect_Columns(t *testing.T) {
	tbl := NewTable("t", "a", "b")
	s := NewSelect(tbl.MustColumn("a"), As(Call("COUNT", tbl.MustColumn("b")), "n"))

	n, err := s.Column("n")
	require.NoError(t, err)
	assert.Same(t, s, n.Selectable())
	assert.Len(t, s.Columns(), 2)

	sub := s.Alias("sub")
	assert.Equal(t, "sub", sub.MustColumn("n").Selectable().Name())

	_, err = s.Column("b")
	assert.True(t, errs.IsLookup(err))
}

func TestInsert_Value(t *testing.T) {
	t1 := NewTable("t1", "c1", "c2")
	t2 := NewTable("t2", "c1")
	ins := NewInsert(t1)

	require.NoError(t, ins.Value(t1.MustColumn("c1"), Lit(oh5.String("x"))))

	err := ins.Value(t2.MustColumn("c1"), Lit(oh5.String("y")))
	assert.True(t, errs.IsLookup(err))

	err = ins.Value(t1.Alias("a").MustColumn("c2"), Lit(oh5.String("y")))
	assert.True(t, errs.IsLookup(err))

	err = ins.Value(t1.MustColumn("c1"), Lit(oh5.String("z")))
	assert.True(t, errs.IsDuplicate(err))

	require.NoError(t, ins.Value(t1.MustColumn("c2"), Param("p")))
	assert.Equal(t, []*Column{t1.MustColumn("c1"), t1.MustColumn("c2")}, ins.Columns())
	assert.Len(t, ins.Values(), 2)
}

func TestFold(t *testing.T) {
	assert.Nil(t, And())
	assert.Nil(t, Or(nil, nil))

	a := Lit(oh5.Bool(true))
	assert.Equal(t, a, And(nil, a))
}
