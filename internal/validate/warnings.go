package validate

import (
	"fmt"
	"sync/atomic"
)

// WarningKind classifies a non-fatal validation signal.
type WarningKind string

const (
	// TypeMismatch and Truncated are counted in the run's warning counters.
	TypeMismatch WarningKind = "type_mismatch"
	Truncated    WarningKind = "truncated"

	// KnownIssue marks a recognized upstream artifact that was coerced.
	KnownIssue WarningKind = "known_issue"

	// KeywordNotFound and UndefinedValue are advisory notes (dev mode only).
	KeywordNotFound WarningKind = "keyword_not_found"
	UndefinedValue  WarningKind = "undefined_value"
)

// Warning is one validation signal for one field of one record.
type Warning struct {
	Kind    WarningKind
	Field   string
	Message string
}

func (w Warning) String() string { return "metadata check: " + w.Message }

// NullViolationError reports a null or empty value in a non-nullable column.
type NullViolationError struct {
	Field    string
	RecordID string
}

func (e *NullViolationError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("metadata check: incorrect \"null\" value found for non-null keyword %s (record %s)", e.Field, e.RecordID)
	}
	return fmt.Sprintf("metadata check: incorrect \"null\" value found for non-null keyword %s", e.Field)
}

// Counters are the run-level warning totals reported once per generation run.
type Counters struct {
	Records      int64
	TypeMismatch int64
	Truncation   int64
}

// Tally accumulates Counters from concurrent render workers.
type Tally struct {
	records      atomic.Int64
	typeMismatch atomic.Int64
	truncation   atomic.Int64
}

// Add counts the warnings of one field.
func (t *Tally) Add(ws []Warning) {
	for _, w := range ws {
		switch w.Kind {
		case TypeMismatch:
			t.typeMismatch.Add(1)
		case Truncated:
			t.truncation.Add(1)
		}
	}
}

// Record counts one fully rendered record.
func (t *Tally) Record() { t.records.Add(1) }

// Snapshot returns the current totals.
func (t *Tally) Snapshot() Counters {
	return Counters{
		Records:      t.records.Load(),
		TypeMismatch: t.typeMismatch.Load(),
		Truncation:   t.truncation.Load(),
	}
}
