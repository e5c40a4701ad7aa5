package querysql

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
	"github.com/baltrad/baltrad-db-sub003/internal/sqlir"
)

type fixture struct {
	files  *sqlir.Table
	values *sqlir.Table
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	files := sqlir.NewTable("files", "id", "object", "date")
	values := sqlir.NewTable("attrs")
	for _, c := range []struct {
		name string
		ref  *sqlir.Column
	}{
		{"id", nil},
		{"file_id", files.MustColumn("id")},
		{"name", nil},
		{"value", nil},
	} {
		_, err := values.AddColumn(c.name, c.ref)
		require.NoError(t, err)
	}
	return fixture{files: files, values: values}
}

// joinAttribute left-joins an alias of the attribute table for one name,
// the way catalog queries reach generic attributes.
func (f fixture) joinAttribute(t *testing.T, lhs sqlir.Selectable, alias, name string) (*sqlir.Join, *sqlir.Alias) {
	t.Helper()
	a := f.values.Alias(alias)
	fileID := a.MustColumn("file_id")
	on := sqlir.And(
		sqlir.Eq(fileID, fileID.References()),
		sqlir.Eq(a.MustColumn("name"), sqlir.Lit(oh5.String(name))),
	)
	j, err := sqlir.NewJoin(sqlir.LeftJoin, lhs, a, on)
	require.NoError(t, err)
	return j, a
}

func compileGolden(t *testing.T, d Dialect, n sqlir.Node) []byte {
	t.Helper()
	sql, params, err := NewSQLCompiler(d).Compile(n)
	require.NoError(t, err)
	return []byte(fmt.Sprintf("%s\n%v\n", sql, params))
}

func TestCompile_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	t.Run("select_simple", func(t *testing.T) {
		f := newFixture(t)
		s := sqlir.NewSelect(f.files.MustColumn("id"), f.files.MustColumn("object"))
		require.NoError(t, s.From.Add(f.files))
		s.AppendWhere(sqlir.Eq(f.files.MustColumn("object"), sqlir.Lit(oh5.String("PVOL"))))
		s.AppendWhere(sqlir.Ge(f.files.MustColumn("date"), sqlir.Lit(oh5.Date{Year: 2000, Month: 1, Day: 2})))
		s.AppendOrder(f.files.MustColumn("id"), false)
		g.Assert(t, "select_simple_sqlite", compileGolden(t, SQLite{}, s))
		g.Assert(t, "select_simple_postgres", compileGolden(t, Postgres{}, s))
	})

	t.Run("select_alias_join", func(t *testing.T) {
		f := newFixture(t)
		j, a := f.joinAttribute(t, f.files, "a0", "where/lat")
		s := sqlir.NewSelect(f.files.MustColumn("id"))
		s.Distinct = true
		require.NoError(t, s.From.Add(j))
		s.AppendWhere(sqlir.Gt(a.MustColumn("value"), sqlir.Lit(oh5.Double(56.5))))
		s.Limit = 10
		g.Assert(t, "select_alias_join_postgres", compileGolden(t, Postgres{}, s))
	})

	t.Run("select_aggregate", func(t *testing.T) {
		f := newFixture(t)
		s := sqlir.NewSelect(
			f.files.MustColumn("object"),
			sqlir.As(sqlir.Call("COUNT", f.files.MustColumn("id")), "n"),
		)
		require.NoError(t, s.From.Add(f.files))
		s.AppendWhere(sqlir.Or(
			sqlir.Like(f.files.MustColumn("object"), sqlir.Lit(oh5.String("P%"))),
			sqlir.In(f.files.MustColumn("object"), sqlir.NewList(
				sqlir.Lit(oh5.String("SCAN")),
				sqlir.Lit(oh5.String("COMP")),
			)),
		))
		s.AppendOrder(sqlir.Call("COUNT", f.files.MustColumn("id")), true)
		g.Assert(t, "select_aggregate_sqlite", compileGolden(t, SQLite{}, s))
	})

	t.Run("insert_returning", func(t *testing.T) {
		f := newFixture(t)
		ins := sqlir.NewInsert(f.files)
		require.NoError(t, ins.Value(f.files.MustColumn("object"), sqlir.Lit(oh5.String("PVOL"))))
		require.NoError(t, ins.Value(f.files.MustColumn("date"), sqlir.Lit(oh5.Null{})))
		ins.SetReturning(f.files.MustColumn("id"))
		g.Assert(t, "insert_returning_postgres", compileGolden(t, Postgres{}, ins))
	})
}

func TestCompile_AliasColumnUsesAliasName(t *testing.T) {
	f := newFixture(t)
	a := f.files.Alias("f2")
	sql, params, err := NewSQLCompiler(SQLite{}).Compile(a.MustColumn("object"))
	require.NoError(t, err)
	assert.Equal(t, "f2.object", sql)
	assert.Empty(t, params)

	sql, _, err = NewSQLCompiler(SQLite{}).Compile(a)
	require.NoError(t, err)
	assert.Equal(t, "files AS f2", sql)
}

func TestCompile_JoinRendering(t *testing.T) {
	f := newFixture(t)
	j, err := sqlir.NewJoin(sqlir.InnerJoin, f.files, f.values,
		sqlir.Eq(f.values.MustColumn("file_id"), f.files.MustColumn("id")))
	require.NoError(t, err)

	sql, params, err := NewSQLCompiler(SQLite{}).Compile(j)
	require.NoError(t, err)
	assert.Equal(t, "files INNER JOIN attrs ON (attrs.file_id = files.id)", sql)
	assert.Empty(t, params)
}

func TestCompile_ValuesNeverInlined(t *testing.T) {
	f := newFixture(t)
	s := sqlir.NewSelect(f.files.MustColumn("id"))
	require.NoError(t, s.From.Add(f.files))
	s.AppendWhere(sqlir.Eq(f.files.MustColumn("object"), sqlir.Lit(oh5.String("x' OR 1=1 --"))))

	sql, params, err := NewSQLCompiler(SQLite{}).Compile(s)
	require.NoError(t, err)
	assert.NotContains(t, sql, "OR 1=1")
	assert.Equal(t, []any{"x' OR 1=1 --"}, params)
}

func TestCompile_Bind(t *testing.T) {
	f := newFixture(t)
	del := sqlir.NewDelete(f.files)
	del.AppendWhere(sqlir.Eq(f.files.MustColumn("id"), sqlir.Param("id")))

	c := NewSQLCompiler(Postgres{})
	_, _, err := c.Compile(del)
	assert.True(t, errs.IsLookup(err))

	c.BoundValues["id"] = int64(7)
	sql, params, err := c.Compile(del)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM files WHERE (files.id = $1)", sql)
	assert.Equal(t, []any{int64(7)}, params)
}

func TestCompile_EmptyIn(t *testing.T) {
	f := newFixture(t)
	obj := f.files.MustColumn("object")

	sql, _, err := NewSQLCompiler(SQLite{}).Compile(sqlir.In(obj, sqlir.NewList()))
	require.NoError(t, err)
	assert.Equal(t, "(1 = 0)", sql)

	sql, _, err = NewSQLCompiler(SQLite{}).Compile(sqlir.NotIn(obj, sqlir.NewList()))
	require.NoError(t, err)
	assert.Equal(t, "(1 = 1)", sql)
}

func TestCompile_Errors(t *testing.T) {
	f := newFixture(t)

	ins := sqlir.NewInsert(f.files)
	ins.SetReturning(f.files.MustColumn("id"))
	_, _, err := NewSQLCompiler(SQLite{}).Compile(ins)
	assert.True(t, errs.IsValue(err))

	_, _, err = NewSQLCompiler(SQLite{}).Compile(sqlir.NewSelect())
	assert.True(t, errs.IsValue(err))

	_, _, err = NewSQLCompiler(SQLite{}).Compile(nil)
	assert.True(t, errs.IsValue(err))
}

func TestCompile_Deterministic(t *testing.T) {
	f := newFixture(t)
	j, a := f.joinAttribute(t, f.files, "a0", "how/task")
	s := sqlir.NewSelect(f.files.MustColumn("id"), a.MustColumn("value"))
	require.NoError(t, s.From.Add(j))

	first, firstParams, err := NewSQLCompiler(Postgres{}).Compile(s)
	require.NoError(t, err)
	for range 5 {
		sql, params, err := NewSQLCompiler(Postgres{}).Compile(s)
		require.NoError(t, err)
		assert.Equal(t, first, sql)
		assert.Equal(t, firstParams, params)
	}
}

func TestInsertDefaultValues(t *testing.T) {
	f := newFixture(t)
	sql, params, err := NewSQLCompiler(SQLite{}).Compile(sqlir.NewInsert(f.files))
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO files DEFAULT VALUES", sql)
	assert.Empty(t, params)
}

func TestInsertOnConflict(t *testing.T) {
	f := newFixture(t)
	ins := sqlir.NewInsert(f.values)
	require.NoError(t, ins.Value(f.values.MustColumn("file_id"), sqlir.Lit(oh5.Int(1))))
	require.NoError(t, ins.Value(f.values.MustColumn("name"), sqlir.Lit(oh5.String("what"))))
	require.NoError(t, ins.OnConflictDoNothing(f.values.MustColumn("file_id"), f.values.MustColumn("name")))

	sql, params, err := NewSQLCompiler(SQLite{}).Compile(ins)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO attrs (file_id, name) VALUES (?, ?) ON CONFLICT (file_id, name) DO NOTHING", sql)
	assert.Equal(t, []any{int64(1), "what"}, params)

	ins.SetReturning(f.values.MustColumn("id"))
	sql, _, err = NewSQLCompiler(Postgres{}).Compile(ins)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO attrs (file_id, name) VALUES ($1, $2) ON CONFLICT (file_id, name) DO NOTHING RETURNING id", sql)

	err = ins.OnConflictDoNothing(f.files.MustColumn("id"))
	assert.True(t, errs.IsLookup(err))
}

func TestDialectFor(t *testing.T) {
	d, ok := DialectFor("sqlite3")
	require.True(t, ok)
	assert.Equal(t, "sqlite", d.Name())
	assert.True(t, d.HasLastInsertID())

	d, ok = DialectFor("postgres")
	require.True(t, ok)
	assert.Equal(t, "$3", d.Placeholder(3))
	assert.True(t, d.HasReturning())

	_, ok = DialectFor("oracle")
	assert.False(t, ok)
}
