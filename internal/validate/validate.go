// Package validate turns one raw header value into the canonical string that
// is written to a metadata table column.
//
// Type mismatches and truncations are data-quality signals, not failures:
// archival proceeds with imperfect headers, and the warnings are returned so
// the caller can log and count them. The only failure is a null (or empty)
// value in a column that does not allow nulls.
package validate

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"dep/internal/header"
	"dep/internal/schema"
)

// NullMarker is the literal written for null values in nullable columns.
const NullMarker = "null"

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// DefaultSentinels are upstream error strings that are treated as null.
var DefaultSentinels = []string{"#### Error ###"}

// Validator checks field values against their FieldSpec. The zero value uses
// DefaultSentinels and suppresses advisory notes.
type Validator struct {
	// Sentinels are string values coerced to null before the null check.
	// Nil means DefaultSentinels.
	Sentinels []string

	// Dev enables the advisory keyword_not_found and undefined_value notes.
	Dev bool
}

// Check resolves spec.Name in rec (header first, then extra values) and
// validates the result.
func (v *Validator) Check(spec schema.FieldSpec, rec header.Record) (string, []Warning, error) {
	val, src := rec.Resolve(spec.Name)

	var warns []Warning
	switch {
	case src == header.FromNone:
		if v.Dev {
			warns = append(warns, Warning{
				Kind:    KeywordNotFound,
				Field:   spec.Name,
				Message: "Keyword not found in header: " + spec.Name,
			})
		}
	case val.Kind == header.KindUndefined:
		if v.Dev {
			warns = append(warns, Warning{
				Kind:    UndefinedValue,
				Field:   spec.Name,
				Message: "Keyword value is undefined: " + spec.Name,
			})
		}
		val = header.Null()
	}

	out, more, err := v.Value(spec, val)
	if err != nil {
		var nv *NullViolationError
		if errors.As(err, &nv) {
			nv.RecordID = rec.ID
		}
		return "", append(warns, more...), err
	}
	return out, append(warns, more...), nil
}

// Value validates an already resolved value for spec.
func (v *Validator) Value(spec schema.FieldSpec, val header.Value) (string, []Warning, error) {
	if val.Kind == header.KindUndefined {
		val = header.Null()
	}
	if val.Kind == header.KindString && (val.S == NullMarker || v.isSentinel(val.S)) {
		val = header.Null()
	}

	if val.IsNull() || (val.IsString() && val.S == "") {
		if !spec.Nullable {
			return "", nil, &NullViolationError{Field: spec.Name}
		}
		return NullMarker, nil, nil
	}

	var warns []Warning
	mismatch := func(msg string) {
		warns = append(warns, Warning{Kind: TypeMismatch, Field: spec.Name, Message: msg})
	}
	typeMsg := func() string {
		return fmt.Sprintf("var type %s, expected %s (%s=%s).", val.Kind, spec.Type, spec.Name, val.String())
	}

	s := val.String()
	switch spec.Type {
	case schema.Char:
		switch {
		case val.Kind == header.KindBool:
			s = "F"
			if val.B {
				s = "T"
			}
		case val.Kind == header.KindInt && val.I == 0:
			s = ""
			warns = append(warns, Warning{
				Kind:    KnownIssue,
				Field:   spec.Name,
				Message: fmt.Sprintf("found integer 0, expected %s. KNOWN ISSUE. SETTING TO BLANK!", spec.Type),
			})
		case val.Kind != header.KindString:
			mismatch(typeMsg())
		}

	case schema.Integer:
		if val.Kind != header.KindInt {
			mismatch(typeMsg())
		}

	case schema.Double:
		if val.Kind != header.KindInt && val.Kind != header.KindFloat {
			mismatch(typeMsg())
		}

	case schema.Date:
		if !parses(val, dateLayout) {
			mismatch(fmt.Sprintf("expected date format YYYY-mm-dd (%s=%s).", spec.Name, s))
		}

	case schema.DateTime:
		if !parses(val, dateTimeLayout) {
			mismatch(fmt.Sprintf("expected date format YYYY-mm-dd HH:ii:ss (%s=%s).", spec.Name, s))
		}
	}

	if n := utf8.RuneCountInString(s); n > spec.Width {
		warns = append(warns, Warning{
			Kind:  Truncated,
			Field: spec.Name,
			Message: fmt.Sprintf("char length of %d greater than column size of %d (%s=%s).  TRUNCATING.",
				n, spec.Width, spec.Name, s),
		})
		if spec.Type == schema.Double {
			s = TruncateFloat(s, spec.Width)
		} else {
			s = Truncate(s, spec.Width)
		}
	}

	return s, warns, nil
}

func (v *Validator) isSentinel(s string) bool {
	list := v.Sentinels
	if list == nil {
		list = DefaultSentinels
	}
	for _, x := range list {
		if s == x {
			return true
		}
	}
	return false
}

func parses(val header.Value, layout string) bool {
	if val.Kind != header.KindString {
		return false
	}
	_, err := time.Parse(layout, val.S)
	return err == nil
}
