// Package table writes and reads the fixed-width metadata table format.
//
// A table file starts with a four-line preamble (column names, data types,
// a blank units row and a null-marker row), each cell written as '|' plus the
// cell left-justified to the column width, closed by a trailing '|'. Every
// following line is one record: each field prefixed by one space and
// left-justified to the column width, with no trailing separator.
package table

import (
	"strings"

	"dep/internal/header"
	"dep/internal/schema"
	"dep/internal/validate"
)

// PreambleLines is the number of lines written before the first record.
const PreambleLines = 4

// Preamble returns the four preamble lines for s, without line terminators.
func Preamble(s *schema.Schema) [PreambleLines]string {
	var names, types, units, nulls strings.Builder
	for _, f := range s.Fields {
		cell(&names, f.Name, f.Width)
		cell(&types, string(f.Type), f.Width)
		cell(&units, "", f.Width)
		marker := ""
		if f.Nullable {
			marker = validate.NullMarker
		}
		cell(&nulls, marker, f.Width)
	}
	out := [PreambleLines]string{}
	for i, b := range []*strings.Builder{&names, &types, &units, &nulls} {
		b.WriteByte('|')
		out[i] = b.String()
	}
	return out
}

func cell(b *strings.Builder, s string, width int) {
	b.WriteByte('|')
	b.WriteString(validate.Pad(s, width))
}

// RenderRecord validates every schema field of rec in schema order and
// renders the record line. Warnings are returned for every field checked;
// on a null violation the warnings collected so far are returned with the
// error and the line is empty.
func RenderRecord(s *schema.Schema, v *validate.Validator, rec header.Record) (string, []validate.Warning, error) {
	var (
		b     strings.Builder
		warns []validate.Warning
	)
	for _, f := range s.Fields {
		val, w, err := v.Check(f, rec)
		warns = append(warns, w...)
		if err != nil {
			return "", warns, err
		}
		b.WriteByte(' ')
		b.WriteString(validate.Pad(val, f.Width))
	}
	return b.String(), warns, nil
}
