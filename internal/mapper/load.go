package mapper

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

//go:embed mappings.cue
var defaultMappings []byte

type mappingDoc struct {
	Mappings []struct {
		Attribute string `json:"attribute"`
		Type      string `json:"type"`
		Table     string `json:"table"`
		Column    string `json:"column"`
	} `json:"mappings"`
}

// Default returns a new mapper holding the built-in ODIM_H5 mappings.
func Default() (*Mapper, error) {
	return LoadCUE("mappings.cue", defaultMappings)
}

// LoadFile reads a CUE mapping document from path.
func LoadFile(path string) (*Mapper, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mappings: %w", err)
	}
	return LoadCUE(path, src)
}

// LoadCUE builds a mapper from a CUE document with a top-level "mappings"
// list. Entries targeting GenericTable may omit the column.
func LoadCUE(filename string, src []byte) (*Mapper, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, errs.Value("compile %s: %v", filename, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, errs.Value("validate %s: %v", filename, err)
	}
	if !v.LookupPath(cue.ParsePath("mappings")).Exists() {
		return nil, errs.Value("%s: missing mappings list", filename)
	}

	var doc mappingDoc
	if err := v.Decode(&doc); err != nil {
		return nil, errs.Value("decode %s: %v", filename, err)
	}

	m := New()
	for _, entry := range doc.Mappings {
		column := entry.Column
		if column == "" && entry.Table == GenericTable {
			t, err := oh5.ParseType(entry.Type)
			if err != nil {
				return nil, err
			}
			column = ValueColumn(t)
		}
		if err := m.Add(entry.Attribute, entry.Type, entry.Table, column); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}
	return m, nil
}
