// Package schema defines the ordered field specifications that govern the
// layout and validation of a metadata table, and loads them from the
// tab-separated keyword format files maintained per instrument.
//
// Field order is significant: it is the column order of every generated table
// and the order in which values are validated and rendered.
package schema

import "fmt"

// DataType is the declared type of a metadata column.
type DataType string

const (
	Char     DataType = "char"
	Integer  DataType = "integer"
	Double   DataType = "double"
	Date     DataType = "date"
	DateTime DataType = "datetime"
)

// ParseDataType maps a schema token to a DataType. Tokens are matched exactly;
// the keyword format files are lowercase.
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case Char, Integer, Double, Date, DateTime:
		return DataType(s), nil
	default:
		return "", fmt.Errorf("unknown data type %q", s)
	}
}

// FieldSpec describes one column of the metadata table.
type FieldSpec struct {
	Name     string   `json:"keyword"`
	Type     DataType `json:"dataType"`
	Width    int      `json:"colSize"`
	Nullable bool     `json:"allowNull"`
}

// Schema is the ordered list of fields for one instrument.
type Schema struct {
	Fields []FieldSpec

	index map[string]int
}

// MinWidth is the narrowest column a table file can carry: the reader drops
// header segments of one character.
const MinWidth = 2

// New builds a Schema from fields, checking the width invariant for each.
func New(fields []FieldSpec) (*Schema, error) {
	s := &Schema{Fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if f.Width < MinWidth {
			return nil, &ConfigError{
				Row:     i + 1,
				Keyword: f.Name,
				Reason:  fmt.Sprintf("column size %d is below the minimum of %d", f.Width, MinWidth),
			}
		}
		if f.Width < len(f.Name) {
			return nil, &ConfigError{
				Row:     i + 1,
				Keyword: f.Name,
				Reason:  fmt.Sprintf("alignment issue: keyword is bigger than column size of %d", f.Width),
			}
		}
		if _, dup := s.index[f.Name]; !dup {
			s.index[f.Name] = i
		}
	}
	return s, nil
}

// Has reports whether name is a schema keyword.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Field returns the spec for name.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.Fields[i], true
}

// Names returns the keywords in column order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}
