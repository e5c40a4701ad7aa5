package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/mapper"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
	"github.com/baltrad/baltrad-db-sub003/internal/sqlir"
)

// Store persists f in one transaction and returns its entry. Any failure
// rolls the whole file back.
//
// Group rows are shared: a (parent, name) pair already in the catalog is
// reused. Attribute rows are not deduplicated, so storing the same file
// twice yields two entries with their own attribute rows. Use GetOrStore to
// keep one copy per content hash.
func (d *Database) Store(ctx context.Context, f *oh5.File) (*FileEntry, error) {
	var entry *FileEntry
	start := time.Now()
	var tx *storeTxn
	err := d.withTx(ctx, func(s *session) error {
		tx = d.newStoreTxn(s)
		var err error
		entry, err = tx.storeFile(ctx, f)
		return err
	})
	if err != nil {
		d.logger.Warn("store failed", zap.Error(err))
		return nil, err
	}
	d.ids.merge(tx.pending)
	d.metrics.FilesStored.Inc()
	d.metrics.StoreDuration.Observe(time.Since(start).Seconds())
	d.logger.Info("file stored",
		zap.String("uuid", entry.UUID.String()),
		zap.String("object", entry.Object()),
		zap.Int("groups", len(tx.pending)),
		zap.Int("attribute_rows", tx.attributes),
	)
	return entry, nil
}

// IsStored reports whether a file with f's content hash is in the catalog.
func (d *Database) IsStored(ctx context.Context, f *oh5.File) (bool, error) {
	var stored bool
	err := d.withConn(ctx, func(s *session) error {
		e, err := d.entryByHash(ctx, s, f.Hash())
		stored = e != nil
		return err
	})
	return stored, err
}

// GetOrStore returns the entry of the file with f's content hash, storing
// f first when there is none. The check and the store share one
// transaction.
func (d *Database) GetOrStore(ctx context.Context, f *oh5.File) (*FileEntry, error) {
	var (
		entry   *FileEntry
		tx      *storeTxn
		created bool
	)
	err := d.withTx(ctx, func(s *session) error {
		var err error
		if entry, err = d.entryByHash(ctx, s, f.Hash()); err != nil || entry != nil {
			return err
		}
		tx = d.newStoreTxn(s)
		entry, err = tx.storeFile(ctx, f)
		created = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if created {
		d.ids.merge(tx.pending)
		d.metrics.FilesStored.Inc()
		d.logger.Info("file stored", zap.String("uuid", entry.UUID.String()))
	}
	return entry, nil
}

// RemoveFile deletes the file with id u and its attribute rows. It reports
// whether a file was removed. Group rows stay, as other files may share
// them.
func (d *Database) RemoveFile(ctx context.Context, u uuid.UUID) (bool, error) {
	var removed bool
	t := d.tables
	err := d.withTx(ctx, func(s *session) error {
		e, err := d.entryByUUID(ctx, s, u)
		if err != nil || e == nil {
			return err
		}
		delValues := sqlir.NewDelete(t.Values)
		delValues.AppendWhere(sqlir.Eq(t.Values.MustColumn("file_id"), sqlir.Lit(oh5.Int(e.ID))))
		if _, err := s.exec(ctx, delValues); err != nil {
			return err
		}
		delFile := sqlir.NewDelete(t.Files)
		delFile.AppendWhere(sqlir.Eq(t.Files.MustColumn("id"), sqlir.Lit(oh5.Int(e.ID))))
		r, err := s.exec(ctx, delFile)
		removed = r.RowsAffected > 0
		return err
	})
	if err != nil {
		return false, err
	}
	if removed {
		d.metrics.FilesRemoved.Inc()
		d.logger.Info("file removed", zap.String("uuid", u.String()))
	}
	return removed, nil
}

// storeTxn is one store in progress. Group ids learned here stay in
// pending until the transaction commits.
type storeTxn struct {
	d          *Database
	s          *session
	pending    map[nodeKey]int64
	attributes int
}

func (d *Database) newStoreTxn(s *session) *storeTxn {
	return &storeTxn{d: d, s: s, pending: make(map[nodeKey]int64)}
}

func (tx *storeTxn) storeFile(ctx context.Context, f *oh5.File) (*FileEntry, error) {
	if f == nil || f.Root() == nil {
		return nil, errs.Structural("cannot store an empty file")
	}
	fileID, entry, err := tx.insertFile(ctx, f)
	if err != nil {
		return nil, err
	}

	rowIDs := map[*oh5.Node]int64{f.Root(): 0}
	for n := range f.Root().Walk() {
		switch {
		case n.Kind() == oh5.KindRoot:
			continue
		case n.Kind() == oh5.KindAttribute:
			if err := tx.insertAttribute(ctx, fileID, rowIDs[n.Parent()], n); err != nil {
				return nil, err
			}
		default:
			id, err := tx.nodeID(ctx, rowIDs[n.Parent()], n.Name(), n.Kind())
			if err != nil {
				return nil, err
			}
			rowIDs[n] = id
		}
	}
	return entry, nil
}

// isFileColumn reports whether n is written to a bdb_files column: a
// top-level attribute with a specialized mapping.
func (tx *storeTxn) isFileColumn(n *oh5.Node) bool {
	if n.Owner() != n.Root() {
		return false
	}
	m, err := tx.d.mapper.Mapping(n.AttributeName())
	return err == nil && m.Table == FilesTable
}

func (tx *storeTxn) insertFile(ctx context.Context, f *oh5.File) (int64, *FileEntry, error) {
	t := tx.d.tables
	entry := &FileEntry{
		UUID:        uuid.New(),
		Hash:        f.Hash(),
		StoredAt:    time.Now().UTC().Truncate(time.Second),
		Specialized: make(map[string]oh5.Value),
	}

	ins := sqlir.NewInsert(t.Files)
	values := []struct {
		col string
		v   oh5.Value
	}{
		{"uuid", oh5.String(entry.UUID.String())},
		{"hash", oh5.String(entry.Hash)},
		{"stored_at", oh5.FromTime(entry.StoredAt)},
	}
	for _, m := range t.Specialized {
		v, err := tx.specializedValue(f, m)
		if err != nil {
			return 0, nil, err
		}
		entry.Specialized[m.Attribute] = v
		values = append(values, struct {
			col string
			v   oh5.Value
		}{m.Column, v})
	}
	for _, cv := range values {
		if err := ins.Value(t.Files.MustColumn(cv.col), sqlir.Lit(cv.v)); err != nil {
			return 0, nil, err
		}
	}

	id, err := tx.s.insertID(ctx, ins, t.Files.MustColumn("id"))
	if err != nil {
		return 0, nil, err
	}
	entry.ID = id
	return id, entry, nil
}

func (tx *storeTxn) specializedValue(f *oh5.File, m mapper.Mapping) (oh5.Value, error) {
	v, ok := f.Attribute("/" + m.Attribute)
	if !ok {
		return oh5.Null{}, nil
	}
	conv, err := tx.d.mapper.Converter(m.Attribute)
	if err != nil {
		return nil, err
	}
	return conv(v)
}

// nodeID returns the row id of the group (parent, name): from the id
// cache, from an existing row, or from a new row.
func (tx *storeTxn) nodeID(ctx context.Context, parent int64, name string, kind oh5.Kind) (int64, error) {
	key := nodeKey{parent: parent, name: name}
	if id, ok := tx.pending[key]; ok {
		tx.d.metrics.IDCache.WithLabelValues("hit").Inc()
		return id, nil
	}
	if id, ok := tx.d.ids.get(key); ok {
		tx.d.metrics.IDCache.WithLabelValues("hit").Inc()
		return id, nil
	}

	id, ok, err := tx.selectNodeID(ctx, parent, name)
	if err != nil {
		return 0, err
	}
	if ok {
		tx.pending[key] = id
		tx.d.metrics.IDCache.WithLabelValues("select").Inc()
		return id, nil
	}

	// A concurrent writer may create the same group between the select and
	// the insert. The insert then writes nothing and the row is selected.
	t := tx.d.tables.Nodes
	ins := sqlir.NewInsert(t)
	for _, cv := range []struct {
		col string
		v   oh5.Value
	}{
		{"parent_id", oh5.Int(parent)},
		{"name", oh5.String(name)},
		{"kind", oh5.String(kind.String())},
	} {
		if err := ins.Value(t.MustColumn(cv.col), sqlir.Lit(cv.v)); err != nil {
			return 0, err
		}
	}
	if err := ins.OnConflictDoNothing(t.MustColumn("parent_id"), t.MustColumn("name")); err != nil {
		return 0, err
	}
	id, ok, err = tx.s.insertNew(ctx, ins, t.MustColumn("id"))
	if err != nil {
		return 0, err
	}
	if !ok {
		if id, ok, err = tx.selectNodeID(ctx, parent, name); err != nil {
			return 0, err
		}
		if !ok {
			return 0, errs.Database("insert", fmt.Errorf("group %q under %d was neither inserted nor found", name, parent))
		}
		tx.pending[key] = id
		tx.d.metrics.IDCache.WithLabelValues("select").Inc()
		return id, nil
	}
	tx.pending[key] = id
	tx.d.metrics.IDCache.WithLabelValues("insert").Inc()
	return id, nil
}

func (tx *storeTxn) selectNodeID(ctx context.Context, parent int64, name string) (int64, bool, error) {
	t := tx.d.tables.Nodes
	sel := sqlir.NewSelect(t.MustColumn("id"))
	if err := sel.From.Add(t); err != nil {
		return 0, false, err
	}
	sel.AppendWhere(sqlir.Eq(t.MustColumn("parent_id"), sqlir.Lit(oh5.Int(parent))))
	sel.AppendWhere(sqlir.Eq(t.MustColumn("name"), sqlir.Lit(oh5.String(name))))
	res, err := tx.s.query(ctx, sel)
	if err != nil {
		return 0, false, err
	}
	if !res.Next() {
		return 0, false, nil
	}
	v, err := res.ValueAt(0)
	if err != nil {
		return 0, false, err
	}
	id, err := oh5.Convert(v, oh5.TypeInt)
	if err != nil {
		return 0, false, err
	}
	return int64(id.(oh5.Int)), true, nil
}

// insertAttribute writes the generic row of an attribute unless it is kept
// in a bdb_files column. what/source values also get one row per KEY as
// "what/source:KEY" so keys can be queried.
func (tx *storeTxn) insertAttribute(ctx context.Context, fileID, nodeID int64, n *oh5.Node) error {
	name := n.AttributeName()
	v := tx.genericValue(name, n.Value())
	if !tx.isFileColumn(n) {
		if err := tx.insertValue(ctx, fileID, nodeID, name, v); err != nil {
			return err
		}
	}
	if name != sourceAttribute {
		return nil
	}
	s, ok := v.(oh5.String)
	if !ok {
		return nil
	}
	src := oh5.ParseSource(string(s))
	for _, k := range slices.Sorted(maps.Keys(src)) {
		if err := tx.insertValue(ctx, fileID, nodeID, name+":"+k, oh5.String(src[k])); err != nil {
			return err
		}
	}
	return nil
}

// genericValue converts v to the mapped type of name when it has one.
// Values that do not convert keep their own type.
func (tx *storeTxn) genericValue(name string, v oh5.Value) oh5.Value {
	conv, err := tx.d.mapper.Converter(name)
	if err != nil {
		return v
	}
	converted, err := conv(v)
	if err != nil {
		tx.d.logger.Debug("attribute kept unconverted",
			zap.String("attribute", name), zap.Error(err))
		return v
	}
	return converted
}

func (tx *storeTxn) insertValue(ctx context.Context, fileID, nodeID int64, name string, v oh5.Value) error {
	t := tx.d.tables.Values
	ins := sqlir.NewInsert(t)
	if err := ins.Value(t.MustColumn("file_id"), sqlir.Lit(oh5.Int(fileID))); err != nil {
		return err
	}
	if err := ins.Value(t.MustColumn("node_id"), sqlir.Lit(oh5.Int(nodeID))); err != nil {
		return err
	}
	if err := ins.Value(t.MustColumn("name"), sqlir.Lit(oh5.String(name))); err != nil {
		return err
	}
	if !oh5.IsNull(v) {
		if err := ins.Value(t.MustColumn(mapper.ValueColumn(v.Type())), sqlir.Lit(v)); err != nil {
			return err
		}
	}
	if _, err := tx.s.exec(ctx, ins); err != nil {
		return err
	}
	tx.attributes++
	return nil
}

const sourceAttribute = "what/source"

// isDerivedName reports whether name is a what/source:KEY row written by
// insertAttribute rather than stored from the tree.
func isDerivedName(name string) bool {
	return strings.HasPrefix(name, sourceAttribute+":")
}
