package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/expr"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// openTestDB opens a SQLite catalog in a temporary directory.
func openTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := Open(context.Background(), Options{
		Dialect:      "sqlite",
		DSN:          filepath.Join(t.TempDir(), "bdb.sqlite"),
		PoolSize:     2,
		PoolBlocking: true,
		Logger:       zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// newScan builds a polar volume with one dataset.
func newScan(t *testing.T, source string, lat float64, date oh5.Date) *oh5.File {
	t.Helper()
	f := oh5.NewFile()
	for path, v := range map[string]oh5.Value{
		"/what/object":              oh5.String("PVOL"),
		"/what/version":             oh5.String("H5rad 2.0"),
		"/what/date":                date,
		"/what/time":                oh5.Time{Hour: 12, Minute: 5},
		"/what/source":              oh5.String(source),
		"/where/lat":                oh5.Double(lat),
		"/where/lon":                oh5.Double(12.8),
		"/dataset1/what/product":    oh5.String("SCAN"),
		"/dataset1/where/elangle":   oh5.Double(0.5),
		"/dataset1/data1/what/gain": oh5.Double(0.4),
	} {
		_, err := f.SetAttribute(path, v)
		require.NoError(t, err)
	}
	return f
}

func countRows(t *testing.T, d *Database, table string) int {
	t.Helper()
	var n int
	require.NoError(t, d.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bdb.sqlite")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := Open(ctx, Options{Dialect: "sqlite", DSN: path})
		require.NoError(t, err, "open %d", i)
		require.NoError(t, d.Close())
	}

	d, err := Open(ctx, Options{Dialect: "sqlite", DSN: path})
	require.NoError(t, err)
	defer d.Close()

	for _, table := range []string{FilesTable, NodesTable, "bdb_attribute_values"} {
		var name string
		err := d.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
	version, err := schemaVersion(ctx, d.db, d.dialect)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"bdb.sqlite", "bdb.sqlite?_txlock=immediate&_busy_timeout=5000"},
		{"file:bdb.sqlite?cache=shared", "file:bdb.sqlite?cache=shared&_txlock=immediate&_busy_timeout=5000"},
		{"bdb.sqlite?_txlock=exclusive", "bdb.sqlite?_txlock=exclusive&_busy_timeout=5000"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.dsn))
		})
	}
}

func TestGetOrStore_ConcurrentWriters(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	const writers = 8
	files := make([]*oh5.File, writers/2)
	for i := range files {
		files[i] = newScan(t, "WMO:02606,NOD:sekkr", 56.0+float64(i), oh5.Date{Year: 2000, Month: 1, Day: 2})
	}

	entries := make([]*FileEntry, writers)
	g, gctx := errgroup.WithContext(ctx)
	for i := range writers {
		g.Go(func() error {
			var err error
			entries[i], err = d.GetOrStore(gctx, files[i%len(files)])
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i := range writers {
		assert.Equal(t, entries[i%len(files)].UUID, entries[i].UUID, "writer %d", i)
	}
	n, err := d.FileCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(files)), n)

	single := openTestDB(t)
	_, err = single.Store(ctx, files[0])
	require.NoError(t, err)
	assert.Equal(t, countRows(t, single, NodesTable), countRows(t, d, NodesTable))
}

func TestOpen_UnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Options{Dialect: "oracle"})
	assert.True(t, errs.IsValue(err))
}

func TestStore_FindAndRemove(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	f := newScan(t, "WMO:02606,NOD:sekkr", 56.3, oh5.Date{Year: 2000, Month: 1, Day: 2})
	entry, err := d.Store(ctx, f)
	require.NoError(t, err)

	assert.NotZero(t, entry.ID)
	assert.NotEqual(t, uuid.Nil, entry.UUID)
	assert.Equal(t, f.Hash(), entry.Hash)
	assert.Equal(t, "PVOL", entry.Object())
	assert.Equal(t, "02606", entry.Source()["WMO"])

	stored, err := d.IsStored(ctx, f)
	require.NoError(t, err)
	assert.True(t, stored)

	got, err := d.EntryByUUID(ctx, entry.UUID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, entry.Hash, got.Hash)
	assert.Equal(t, oh5.Date{Year: 2000, Month: 1, Day: 2}, got.Specialized["what/date"])
	assert.Equal(t, oh5.Time{Hour: 12, Minute: 5}, got.Specialized["what/time"])
	assert.True(t, entry.StoredAt.Equal(got.StoredAt))

	n, err := d.FileCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	removed, err := d.RemoveFile(ctx, entry.UUID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = d.RemoveFile(ctx, entry.UUID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = d.EntryByUUID(ctx, entry.UUID)
	assert.True(t, errs.IsLookup(err))
	assert.Equal(t, 0, countRows(t, d, "bdb_attribute_values"))
}

func TestStore_GroupRowsShared(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	f := oh5.NewFile()
	_, err := f.SetAttribute("/dataset1/what/product", oh5.String("SCAN"))
	require.NoError(t, err)
	_, err = f.SetAttribute("/dataset1/what/quantity", oh5.String("DBZH"))
	require.NoError(t, err)

	_, err = d.Store(ctx, f)
	require.NoError(t, err)
	// what, dataset1, dataset1/what
	assert.Equal(t, 3, countRows(t, d, NodesTable))
	assert.Equal(t, 2, countRows(t, d, "bdb_attribute_values"))

	_, err = d.Store(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 3, countRows(t, d, NodesTable))
	assert.Equal(t, 4, countRows(t, d, "bdb_attribute_values"))
	assert.Equal(t, 3, d.ids.len())

	hits := testutil.ToFloat64(d.Metrics().IDCache.WithLabelValues("hit"))
	inserts := testutil.ToFloat64(d.Metrics().IDCache.WithLabelValues("insert"))
	assert.Equal(t, float64(3), inserts)
	assert.Equal(t, float64(3), hits)
	assert.Equal(t, float64(2), testutil.ToFloat64(d.Metrics().FilesStored))
}

func TestGetOrStore(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	f := newScan(t, "WMO:02606", 56.3, oh5.Date{Year: 2000, Month: 1, Day: 2})

	first, err := d.GetOrStore(ctx, f)
	require.NoError(t, err)
	second, err := d.GetOrStore(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, first.UUID, second.UUID)
	n, err := d.FileCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_EmptyFile(t *testing.T) {
	d := openTestDB(t)
	_, err := d.Store(context.Background(), nil)
	assert.True(t, errs.IsStructural(err))
	assert.Equal(t, 0, countRows(t, d, FilesTable))
}

func TestMetadata_RoundTrip(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	f := newScan(t, "WMO:02606,NOD:sekkr", 56.3, oh5.Date{Year: 2000, Month: 1, Day: 2})
	_, err := f.SetAttribute("/how/simulated", oh5.Bool(false))
	require.NoError(t, err)
	_, err = f.SetAttribute("/where/nbins", oh5.Int(120))
	require.NoError(t, err)
	_, err = f.SetAttribute("/how/task_args:scan", oh5.String("ppi"))
	require.NoError(t, err)

	entry, err := d.Store(ctx, f)
	require.NoError(t, err)

	got, err := d.Metadata(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, f.Hash(), got.Hash())

	v, ok := got.Attribute("/dataset1/data1/what/gain")
	require.True(t, ok)
	assert.Equal(t, oh5.Double(0.4), v)

	v, ok = got.Attribute("/where/nbins")
	require.True(t, ok)
	assert.Equal(t, oh5.Int(120), v)

	v, ok = got.Attribute("/how/simulated")
	require.True(t, ok)
	assert.Equal(t, oh5.Bool(false), v)

	v, ok = got.Attribute("/how/task_args:scan")
	require.True(t, ok)
	assert.Equal(t, oh5.String("ppi"), v)

	_, ok = got.Attribute("/what/source:WMO")
	assert.False(t, ok)
}

func TestFindFiles(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	for _, s := range []struct {
		source string
		lat    float64
		day    int
	}{
		{"WMO:02606,NOD:sekkr", 56.3, 1},
		{"WMO:02666,NOD:seang", 56.4, 2},
		{"WMO:02588,NOD:sevar", 57.1, 3},
	} {
		_, err := d.Store(ctx, newScan(t, s.source, s.lat, oh5.Date{Year: 2000, Month: 1, Day: s.day}))
		require.NoError(t, err)
	}

	sources := func(entries []*FileEntry) []string {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.Source()["NOD"]
		}
		return out
	}

	tests := []struct {
		name  string
		query FileQuery
		want  []string
	}{
		{
			name:  "all in id order",
			query: FileQuery{},
			want:  []string{"sekkr", "seang", "sevar"},
		},
		{
			name:  "generic double attribute",
			query: FileQuery{Filter: expr.Gt(expr.Attr("where/lat", oh5.TypeDouble), expr.Float(56.35))},
			want:  []string{"seang", "sevar"},
		},
		{
			name:  "specialized date column",
			query: FileQuery{Filter: expr.Le(expr.Attr("what/date", oh5.TypeDate), expr.Date(2000, 1, 2))},
			want:  []string{"sekkr", "seang"},
		},
		{
			name:  "source key",
			query: FileQuery{Filter: expr.Eq(expr.Attr("what/source:NOD", oh5.TypeString), expr.Str("sevar"))},
			want:  []string{"sevar"},
		},
		{
			name:  "like on source",
			query: FileQuery{Filter: expr.Like(expr.Attr("what/source", oh5.TypeString), expr.Str("*02666*"))},
			want:  []string{"seang"},
		},
		{
			name:  "like is case sensitive",
			query: FileQuery{Filter: expr.Like(expr.Attr("what/source", oh5.TypeString), expr.Str("*NOD:SEANG*"))},
			want:  []string{},
		},
		{
			name:  "like on source key is case sensitive",
			query: FileQuery{Filter: expr.Like(expr.Attr("what/source:NOD", oh5.TypeString), expr.Str("Se*"))},
			want:  []string{},
		},
		{
			name: "in list",
			query: FileQuery{Filter: expr.In(
				expr.Attr("what/source:WMO", oh5.TypeString),
				expr.Values(oh5.String("02606"), oh5.String("02588")),
			)},
			want: []string{"sekkr", "sevar"},
		},
		{
			name:  "ordered descending with limit and skip",
			query: FileQuery{Order: []OrderTerm{{Expr: expr.Attr("what/date", oh5.TypeDate), Desc: true}}, Limit: 2, Skip: 1},
			want:  []string{"seang", "sekkr"},
		},
		{
			name:  "missing attribute matches nothing",
			query: FileQuery{Filter: expr.Eq(expr.Attr("how/task", oh5.TypeString), expr.Str("x"))},
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.FindFiles(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sources(got))
		})
	}
}

func TestFindFiles_Errors(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	_, err := d.FindFiles(ctx, FileQuery{Filter: expr.Eq(expr.Attr("/dataset1/what/product", oh5.TypeString), expr.Str("SCAN"))})
	assert.True(t, errs.IsValue(err))

	_, err = d.FindFiles(ctx, FileQuery{Filter: expr.Like(expr.Attr("what/object", oh5.TypeString), expr.Int(1))})
	assert.True(t, errs.IsTypeMismatch(err))
}

func TestExecuteAttributeQuery(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	for _, lat := range []float64{56.3, 57.1} {
		_, err := d.Store(ctx, newScan(t, "WMO:02606", lat, oh5.Date{Year: 2000, Month: 1, Day: 2}))
		require.NoError(t, err)
	}

	res, err := d.ExecuteAttributeQuery(ctx, AttributeQuery{
		Fetch: []Fetch{
			{Name: "source", Expr: expr.Attr("what/source", oh5.TypeString)},
			{Name: "files", Expr: expr.Count(expr.Attr("what/object", oh5.TypeString))},
			{Name: "max_lat", Expr: expr.Max(expr.Attr("where/lat", oh5.TypeDouble))},
		},
		Group: []expr.Expr{expr.Attr("what/source", oh5.TypeString)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"source", "files", "max_lat"}, res.Columns())
	require.Equal(t, 1, res.Size())
	require.True(t, res.Next())

	v, err := res.ValueByName("files")
	require.NoError(t, err)
	assert.Equal(t, oh5.Int(2), v)
	v, err = res.ValueByName("max_lat")
	require.NoError(t, err)
	assert.Equal(t, oh5.Double(57.1), v)

	_, err = d.ExecuteAttributeQuery(ctx, AttributeQuery{})
	assert.True(t, errs.IsValue(err))

	_, err = d.ExecuteAttributeQuery(ctx, AttributeQuery{Fetch: []Fetch{
		{Name: "a", Expr: expr.Attr("what/object", oh5.TypeString)},
		{Name: "a", Expr: expr.Attr("what/date", oh5.TypeDate)},
	}})
	assert.True(t, errs.IsDuplicate(err))
	assert.Equal(t, float64(1), testutil.ToFloat64(d.Metrics().Queries.WithLabelValues("attribute")))
}
