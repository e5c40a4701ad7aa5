package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// FileEntry is the catalog record of a stored file.
type FileEntry struct {
	ID       int64
	UUID     uuid.UUID
	Hash     string
	StoredAt time.Time
	// Specialized holds the values of the specialized attributes, keyed by
	// attribute name; missing attributes are Null.
	Specialized map[string]oh5.Value
}

// Object returns what/object, or "" when unset.
func (e *FileEntry) Object() string { return e.stringValue("what/object") }

// Source returns the parsed what/source.
func (e *FileEntry) Source() oh5.Source { return oh5.ParseSource(e.stringValue("what/source")) }

func (e *FileEntry) stringValue(attr string) string {
	if s, ok := e.Specialized[attr].(oh5.String); ok {
		return string(s)
	}
	return ""
}

// entryFromRow reads a FileEntry from the current row of a result holding
// the bdb_files columns.
func (d *Database) entryFromRow(res *Result) (*FileEntry, error) {
	get := func(col string) (oh5.Value, error) {
		return res.ValueByName(col)
	}
	e := &FileEntry{Specialized: make(map[string]oh5.Value)}

	v, err := get("id")
	if err != nil {
		return nil, err
	}
	id, err := oh5.Convert(v, oh5.TypeInt)
	if err != nil {
		return nil, err
	}
	e.ID = int64(id.(oh5.Int))

	if v, err = get("uuid"); err != nil {
		return nil, err
	}
	if e.UUID, err = uuid.Parse(v.String()); err != nil {
		return nil, errs.Value("invalid uuid %q in bdb_files: %v", v.String(), err)
	}

	if v, err = get("hash"); err != nil {
		return nil, err
	}
	e.Hash = v.String()

	if v, err = get("stored_at"); err != nil {
		return nil, err
	}
	dt, err := oh5.Convert(v, oh5.TypeDateTime)
	if err != nil {
		return nil, err
	}
	if !oh5.IsNull(dt) {
		e.StoredAt = dt.(oh5.DateTime).GoTime()
	}

	for _, m := range d.tables.Specialized {
		if v, err = get(m.Column); err != nil {
			return nil, err
		}
		if v, err = oh5.Convert(v, m.Type); err != nil {
			return nil, err
		}
		e.Specialized[m.Attribute] = v
	}
	return e, nil
}
