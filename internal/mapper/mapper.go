// Package mapper decides where each logical attribute is stored.
//
// Every stored attribute either lives in a dedicated column of a wide table
// (it is "specialized") or in a row of the generic key/value table
// GenericTable, in the value column matching its type. The default table
// of known ODIM_H5 attributes is an embedded CUE document, see LoadCUE.
package mapper

import (
	"strings"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
	"github.com/baltrad/baltrad-db-sub003/internal/oh5"
)

// GenericTable is the key/value table holding non-specialized attributes.
const GenericTable = "bdb_attribute_values"

// Mapping places one logical attribute.
type Mapping struct {
	Attribute string
	Type      oh5.Type
	Table     string
	Column    string
}

// IsSpecialized reports whether the mapping names a dedicated column.
func (m Mapping) IsSpecialized() bool {
	return m.Table != GenericTable
}

// Converter converts a raw value into an attribute's declared type.
type Converter func(oh5.Value) (oh5.Value, error)

// Mapper is an ordered set of mappings.
//
// Attribute names are unique. Table/column pairs are unique among
// specialized mappings; generic mappings share the typed value columns of
// GenericTable.
type Mapper struct {
	mappings []Mapping
	byAttr   map[string]int
	byColumn map[string]string
}

// New creates an empty mapper.
func New() *Mapper {
	return &Mapper{
		byAttr:   make(map[string]int),
		byColumn: make(map[string]string),
	}
}

// Add registers a mapping. A malformed type name is a CodeValue error, a
// repeated attribute or specialized column a CodeDuplicateEntry error.
func (m *Mapper) Add(attribute, typeName, table, column string) error {
	if attribute == "" || table == "" || column == "" {
		return errs.Value("mapping needs attribute, table and column (got %q, %q, %q)", attribute, table, column)
	}
	t, err := oh5.ParseType(typeName)
	if err != nil {
		return err
	}
	if t == oh5.TypeNull {
		return errs.Value("attribute %q cannot be mapped to type null", attribute)
	}
	if _, exists := m.byAttr[attribute]; exists {
		return errs.Duplicate("attribute %q is already mapped", attribute)
	}
	mapping := Mapping{Attribute: attribute, Type: t, Table: table, Column: column}
	if mapping.IsSpecialized() {
		key := table + "." + column
		if other, exists := m.byColumn[key]; exists {
			return errs.Duplicate("column %s already holds attribute %q", key, other)
		}
		m.byColumn[key] = attribute
	}
	m.byAttr[attribute] = len(m.mappings)
	m.mappings = append(m.mappings, mapping)
	return nil
}

// Has reports whether attribute is mapped.
func (m *Mapper) Has(attribute string) bool {
	_, ok := m.byAttr[attribute]
	return ok
}

// Mapping returns the mapping of attribute, or a CodeLookup error.
func (m *Mapper) Mapping(attribute string) (Mapping, error) {
	i, ok := m.byAttr[attribute]
	if !ok {
		return Mapping{}, errs.Lookup("no mapping for attribute %q", attribute)
	}
	return m.mappings[i], nil
}

// IsSpecialized reports whether attribute is mapped to a dedicated column.
// Unknown attributes are not specialized.
func (m *Mapper) IsSpecialized(attribute string) bool {
	mapping, err := m.Mapping(attribute)
	return err == nil && mapping.IsSpecialized()
}

// SpecializationsOn returns the mappings whose table is exactly table, in
// the order they were added.
func (m *Mapper) SpecializationsOn(table string) []Mapping {
	var out []Mapping
	for _, mapping := range m.mappings {
		if mapping.Table == table {
			out = append(out, mapping)
		}
	}
	return out
}

// Mappings returns all mappings in insertion order.
func (m *Mapper) Mappings() []Mapping {
	out := make([]Mapping, len(m.mappings))
	copy(out, m.mappings)
	return out
}

// Converter returns the converter into attribute's declared type, or a
// CodeLookup error for unknown attributes.
func (m *Mapper) Converter(attribute string) (Converter, error) {
	mapping, err := m.Mapping(attribute)
	if err != nil {
		return nil, err
	}
	t := mapping.Type
	return func(v oh5.Value) (oh5.Value, error) {
		return oh5.Convert(v, t)
	}, nil
}

// Placement returns the table and column holding attribute when its value
// has type t. Unmapped attributes go to the generic table.
func (m *Mapper) Placement(attribute string, t oh5.Type) (table, column string) {
	if mapping, err := m.Mapping(attribute); err == nil {
		return mapping.Table, mapping.Column
	}
	return GenericTable, ValueColumn(t)
}

// ValueColumn returns the GenericTable column holding values of type t.
// Datetimes are kept in their text form.
func ValueColumn(t oh5.Type) string {
	switch t {
	case oh5.TypeInt:
		return "value_int"
	case oh5.TypeDouble:
		return "value_double"
	case oh5.TypeBool:
		return "value_bool"
	case oh5.TypeDate:
		return "value_date"
	case oh5.TypeTime:
		return "value_time"
	default:
		return "value_str"
	}
}

// ValueColumns lists the typed value columns of GenericTable.
var ValueColumns = []string{"value_str", "value_int", "value_double", "value_bool", "value_date", "value_time"}

// Name is a parsed logical attribute reference.
type Name struct {
	// Container is the owning node path for references written as full
	// paths ("/dataset1/where/elangle"); empty otherwise.
	Container string
	// Attribute is the group-prefixed attribute name ("where/elangle").
	Attribute string
	// Key selects one entry of a what/source style KEY:value list
	// ("what/source:WMO"); empty otherwise.
	Key string
}

// ParseName splits a logical reference into its parts.
//
//	"what/object"             -> {Attribute: "what/object"}
//	"what/source:WMO"         -> {Attribute: "what/source", Key: "WMO"}
//	"/dataset1/where/elangle" -> {Container: "/dataset1", Attribute: "where/elangle"}
func ParseName(ref string) Name {
	var n Name
	base, key, ok := strings.Cut(ref, ":")
	if ok {
		n.Key = key
	}
	if strings.HasPrefix(base, "/") {
		n.Attribute, n.Container = oh5.SplitPath(base)
		return n
	}
	n.Attribute = base
	return n
}
