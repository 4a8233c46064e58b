package schema

import "fmt"

// ConfigError reports a schema definition that cannot produce an aligned
// table. It aborts a generation run before any output is written.
type ConfigError struct {
	Path    string
	Row     int // 1-based data row, 0 when the problem is the header
	Keyword string
	Reason  string
}

func (e *ConfigError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "schema"
	}
	if e.Row > 0 {
		return fmt.Sprintf("%s: row %d (%s): %s", loc, e.Row, e.Keyword, e.Reason)
	}
	return fmt.Sprintf("%s: %s", loc, e.Reason)
}

// MissingInputError reports a schema file that could not be opened or read.
type MissingInputError struct {
	Path string
	Err  error
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("schema %s: %v", e.Path, e.Err)
}

func (e *MissingInputError) Unwrap() error { return e.Err }
