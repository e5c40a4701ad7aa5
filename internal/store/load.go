package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/mapper"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
	"github.com/baltrad/baltrad-db-sub003/internal/sqlir"
)

type nodeRow struct {
	parent int64
	name   string
	kind   oh5.Kind
}

// Metadata rebuilds the metadata tree of a stored file. Groups that held
// no attributes are not restored.
func (d *Database) Metadata(ctx context.Context, e *FileEntry) (*oh5.File, error) {
	if e == nil {
		return nil, errs.Value("nil file entry")
	}
	f := oh5.NewFile()
	err := d.withConn(ctx, func(s *session) error {
		t := d.tables.Values
		sel := sqlir.NewSelect(
			t.MustColumn("node_id"), t.MustColumn("name"),
			t.MustColumn("value_str"), t.MustColumn("value_int"),
			t.MustColumn("value_double"), t.MustColumn("value_bool"),
			t.MustColumn("value_date"), t.MustColumn("value_time"),
		)
		if err := sel.From.Add(t); err != nil {
			return err
		}
		sel.AppendWhere(sqlir.Eq(t.MustColumn("file_id"), sqlir.Lit(oh5.Int(e.ID))))
		sel.AppendOrder(t.MustColumn("id"), false)
		res, err := s.query(ctx, sel)
		if err != nil {
			return err
		}

		nodes := make(map[int64]nodeRow)
		for res.Next() {
			nv, err := res.ValueByName("node_id")
			if err != nil {
				return err
			}
			nodeID, err := oh5.Convert(nv, oh5.TypeInt)
			if err != nil {
				return err
			}
			name, err := res.ValueByName("name")
			if err != nil {
				return err
			}
			if isDerivedName(name.String()) {
				continue
			}
			v, err := d.storedValue(res, name.String())
			if err != nil {
				return err
			}
			container, err := d.ensureNodePath(ctx, s, f, int64(nodeID.(oh5.Int)), nodes)
			if err != nil {
				return err
			}
			leaf := name.String()[strings.LastIndex(name.String(), "/")+1:]
			if _, err := f.SetAttribute(oh5.JoinPath(container, leaf), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, m := range d.tables.Specialized {
		v, ok := e.Specialized[m.Attribute]
		if !ok || oh5.IsNull(v) {
			continue
		}
		if _, err := f.SetAttribute("/"+m.Attribute, v); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// storedValue picks the populated value column of the current row,
// preferring the column of the attribute's mapped type.
func (d *Database) storedValue(res *Result, name string) (oh5.Value, error) {
	cols := mapper.ValueColumns
	if m, err := d.mapper.Mapping(name); err == nil {
		cols = append([]string{mapper.ValueColumn(m.Type)}, cols...)
	}
	for _, col := range cols {
		v, err := res.ValueByName(col)
		if err != nil {
			return nil, err
		}
		if oh5.IsNull(v) {
			continue
		}
		return convertStored(v, col)
	}
	return oh5.Null{}, nil
}

// storedTypes maps each value column to the type it holds. Drivers return
// booleans, dates and times in their own representation.
var storedTypes = map[string]oh5.Type{
	"value_str":    oh5.TypeString,
	"value_int":    oh5.TypeInt,
	"value_double": oh5.TypeDouble,
	"value_bool":   oh5.TypeBool,
	"value_date":   oh5.TypeDate,
	"value_time":   oh5.TypeTime,
}

func convertStored(v oh5.Value, col string) (oh5.Value, error) {
	return oh5.Convert(v, storedTypes[col])
}

// ensureNodePath creates the group chain ending at node id in f and
// returns its path. Row 0 is the root.
func (d *Database) ensureNodePath(ctx context.Context, s *session, f *oh5.File, id int64, cache map[int64]nodeRow) (string, error) {
	var chain []nodeRow
	for cur := id; cur != 0; {
		row, ok := cache[cur]
		if !ok {
			var err error
			if row, err = d.loadNode(ctx, s, cur); err != nil {
				return "", err
			}
			cache[cur] = row
		}
		chain = append(chain, row)
		cur = row.parent
		if len(chain) > len(cache)+1 {
			return "", errs.Structural("node %d has a cyclic parent chain", id)
		}
	}
	path := "/"
	for i := len(chain) - 1; i >= 0; i-- {
		path = oh5.JoinPath(path, chain[i].name)
		if _, err := f.EnsureGroup(path, chain[i].kind); err != nil {
			return "", err
		}
	}
	return path, nil
}

func (d *Database) loadNode(ctx context.Context, s *session, id int64) (nodeRow, error) {
	t := d.tables.Nodes
	sel := sqlir.NewSelect(t.MustColumn("parent_id"), t.MustColumn("name"), t.MustColumn("kind"))
	if err := sel.From.Add(t); err != nil {
		return nodeRow{}, err
	}
	sel.AppendWhere(sqlir.Eq(t.MustColumn("id"), sqlir.Lit(oh5.Int(id))))
	res, err := s.query(ctx, sel)
	if err != nil {
		return nodeRow{}, err
	}
	if !res.Next() {
		return nodeRow{}, errs.Lookup("no node row %d", id)
	}
	var vals [3]oh5.Value
	for i := range vals {
		if vals[i], err = res.ValueAt(i); err != nil {
			return nodeRow{}, err
		}
	}
	parent, err := oh5.Convert(vals[0], oh5.TypeInt)
	if err != nil {
		return nodeRow{}, err
	}
	kind, err := oh5.ParseKind(vals[2].String())
	if err != nil {
		return nodeRow{}, fmt.Errorf("node %d: %w", id, err)
	}
	return nodeRow{parent: int64(parent.(oh5.Int)), name: vals[1].String(), kind: kind}, nil
}
