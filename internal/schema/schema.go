package schema

import (
	"fmt"
	"strings"

	"github.com/rzpsarthak13/tabular/internal/core"
)

// Attribute is one entry of a model's registration list.
type Attribute struct {
	// Name is the column name.
	Name string

	// Type is the abstract column type.
	Type TypeTag

	// Column receives materialized values. A nil column is allocated from the catalog.
	Column Column
}

// Attr builds an Attribute.
func Attr(name string, tag TypeTag, column Column) Attribute {
	return Attribute{Name: name, Type: tag, Column: column}
}

// slot is one dispatch table entry.
type slot struct {
	keyword string
	convert Converter
	column  Column
}

// Schema is the ordered, immutable attribute list of one model together with
// the positional dispatch table that routes values into column storage.
type Schema struct {
	table    string
	attrs    []Attribute
	dispatch []slot
	index    map[string]int
}

// New validates the registration list eagerly and builds the dispatch table.
func New(table string, catalog *Catalog, attrs ...Attribute) (*Schema, error) {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if err := ValidateIdentifier(table); err != nil {
		return nil, fmt.Errorf("table name: %w", err)
	}
	if len(attrs) == 0 {
		return nil, fmt.Errorf("table %q: at least one attribute is required", table)
	}
	if err := validateAttributes(catalog, attrs); err != nil {
		return nil, fmt.Errorf("table %q: %w", table, err)
	}

	s := &Schema{
		table:    table,
		attrs:    make([]Attribute, len(attrs)),
		dispatch: make([]slot, len(attrs)),
		index:    make(map[string]int, len(attrs)),
	}
	for i, a := range attrs {
		keyword, _ := catalog.Keyword(a.Type)
		convert, _ := catalog.Converter(a.Type)
		if a.Column == nil {
			col, err := catalog.NewColumn(a.Type)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
			}
			a.Column = col
		}
		s.attrs[i] = a
		s.dispatch[i] = slot{keyword: keyword, convert: convert, column: a.Column}
		s.index[a.Name] = i
	}
	return s, nil
}

// Table returns the table name.
func (s *Schema) Table() string { return s.table }

// NumAttributes returns the number of registered attributes.
func (s *Schema) NumAttributes() int { return len(s.attrs) }

// Attribute returns the descriptor at position i.
func (s *Schema) Attribute(i int) Attribute { return s.attrs[i] }

// Attributes returns a copy of the descriptors in registration order.
func (s *Schema) Attributes() []Attribute {
	out := make([]Attribute, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Names returns the column names in registration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		names[i] = a.Name
	}
	return names
}

// Index returns the position of the named attribute.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Keyword returns the column type keyword of attribute i.
func (s *Schema) Keyword(i int) string { return s.dispatch[i].keyword }

// Column returns the storage of attribute i.
func (s *Schema) Column(i int) Column { return s.dispatch[i].column }

// Convert runs value through the converter of attribute i.
func (s *Schema) Convert(i int, value any) (any, error) {
	v, err := s.dispatch[i].convert(value)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", s.attrs[i].Name, err)
	}
	return v, nil
}

// ConvertRow checks a tuple's arity and converts every value in attribute order.
func (s *Schema) ConvertRow(row []any) ([]any, error) {
	if len(row) != len(s.attrs) {
		return nil, fmt.Errorf("%w: table %q expects %d values, got %d", core.ErrArityMismatch, s.table, len(s.attrs), len(row))
	}
	out := make([]any, len(row))
	for i, v := range row {
		converted, err := s.Convert(i, v)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return out, nil
}

// AppendRow dispatches an already converted tuple into column storage.
// The tuple must come from ConvertRow or per-position Convert calls.
func (s *Schema) AppendRow(converted []any) {
	for i := range s.dispatch {
		s.dispatch[i].column.appendValue(converted[i])
	}
}

// Rows returns the number of materialized rows.
func (s *Schema) Rows() int {
	if len(s.dispatch) == 0 {
		return 0
	}
	return s.dispatch[0].column.Len()
}

// Truncate shrinks every column to n rows.
func (s *Schema) Truncate(n int) {
	for i := range s.dispatch {
		if s.dispatch[i].column.Len() > n {
			s.dispatch[i].column.truncate(n)
		}
	}
}

// String renders the schema as "table(name type, ...)".
func (s *Schema) String() string {
	parts := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		parts[i] = a.Name + " " + a.Type.String()
	}
	return s.table + "(" + strings.Join(parts, ", ") + ")"
}
