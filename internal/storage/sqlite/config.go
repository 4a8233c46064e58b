package sqlite

import "dep/internal/schema"

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a file path or URI understood by modernc.org/sqlite, e.g.
	// "archive.db" or "file:archive.db?_pragma=busy_timeout(5000)".
	DSN string

	// Table is the insert target. A "main.meta" style name is quoted per
	// segment.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string
}

// MapType maps a metadata column type to a SQLite column affinity. Dates are
// stored as text.
func MapType(t schema.DataType) string {
	switch t {
	case schema.Integer:
		return "INTEGER"
	case schema.Double:
		return "REAL"
	default:
		return "TEXT"
	}
}
