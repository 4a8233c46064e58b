package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"dep/internal/schema"
)

// ColumnDef is one column of a table definition. Type and Width are logical;
// each backend maps them to its own SQL type.
type ColumnDef struct {
	Name       string
	Type       schema.DataType
	Width      int
	Nullable   bool
	PrimaryKey bool
}

// TableDef names a table (optionally "schema.table") and its ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnNames returns the column names in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// TableFromSchema derives the export table for a metadata schema. Only the id
// column is NOT NULL: values that failed their type check are exported as
// NULL rather than rejected.
func TableFromSchema(fqn string, s *schema.Schema, idColumn string) TableDef {
	td := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(s.Fields))}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		pk := f.Name == idColumn
		td.Columns = append(td.Columns, ColumnDef{
			Name:       f.Name,
			Type:       f.Type,
			Width:      f.Width,
			Nullable:   !pk,
			PrimaryKey: pk,
		})
	}
	return td
}

// DDLBuilder renders a backend's CREATE TABLE statement for t. Builders must
// be idempotent: the statement is a no-op when the table already exists.
type DDLBuilder func(t TableDef) (string, error)

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBuilder{}
)

// RegisterDDL registers (or replaces) the DDL builder for kind.
func RegisterDDL(kind string, fn DDLBuilder) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates t through repo using the builder registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, t TableDef) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("storage: no DDL builder registered for kind %q", kind)
	}
	stmt, err := fn(t)
	if err != nil {
		return fmt.Errorf("storage: build DDL for %s: %w", t.FQN, err)
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("storage: apply DDL for %s: %w", t.FQN, err)
	}
	return nil
}

// Dialect holds the pieces of CREATE TABLE that differ between backends.
type Dialect struct {
	// Quote quotes one identifier segment.
	Quote func(ident string) string
	// MapType returns the SQL type of a column.
	MapType func(c ColumnDef) string
	// Head renders everything before the column list, given the quoted FQN.
	Head func(quotedFQN string, t TableDef) string
	// Tail is appended after the closing parenthesis.
	Tail string
}

// QuoteFQN quotes each dot-separated segment of fqn with quote.
func QuoteFQN(fqn string, quote func(string) string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}

// BuildCreateTable renders
//
//	<head> (
//	  <col> <type> [NOT NULL],
//	  ...,
//	  PRIMARY KEY (<pk cols>)
//	)<tail>;
func (d Dialect) BuildCreateTable(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := d.MapType(c)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s has unmapped type %q", name, c.Type)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf("%s (\n  %s\n)%s;",
		d.Head(QuoteFQN(fqn, d.Quote), t),
		strings.Join(cols, ",\n  "),
		d.Tail,
	), nil
}
