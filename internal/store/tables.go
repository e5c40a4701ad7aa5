package store

import (
	"github.com/baltrad/baltrad-db-sub003/internal/mapper"
	"github.com/baltrad/baltrad-db-sub003/internal/sqlir"
)

// Table names.
const (
	FilesTable = "bdb_files"
	NodesTable = "bdb_nodes"
)

// Tables describes the catalog schema for the statement builder.
type Tables struct {
	Files  *sqlir.Table
	Nodes  *sqlir.Table
	Values *sqlir.Table

	// Specialized lists the mappings stored as bdb_files columns, in
	// column order.
	Specialized []mapper.Mapping
}

func newTables(m *mapper.Mapper) (*Tables, error) {
	files := sqlir.NewTable(FilesTable, "id", "uuid", "hash", "stored_at")
	specialized := m.SpecializationsOn(FilesTable)
	for _, mapping := range specialized {
		if _, err := files.AddColumn(mapping.Column, nil); err != nil {
			return nil, err
		}
	}

	nodes := sqlir.NewTable(NodesTable, "id", "parent_id", "name", "kind")

	values := sqlir.NewTable(mapper.GenericTable, "id")
	if _, err := values.AddColumn("file_id", files.MustColumn("id")); err != nil {
		return nil, err
	}
	if _, err := values.AddColumn("node_id", nodes.MustColumn("id")); err != nil {
		return nil, err
	}
	if _, err := values.AddColumn("name", nil); err != nil {
		return nil, err
	}
	for _, c := range mapper.ValueColumns {
		if _, err := values.AddColumn(c, nil); err != nil {
			return nil, err
		}
	}

	return &Tables{Files: files, Nodes: nodes, Values: values, Specialized: specialized}, nil
}

// fileColumns returns the bdb_files columns read into a FileEntry.
func (t *Tables) fileColumns() []sqlir.Expr {
	cols := t.Files.Columns()
	out := make([]sqlir.Expr, len(cols))
	for i, c := range cols {
		out[i] = c
	}
	return out
}
