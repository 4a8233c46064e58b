// Package audit cross-checks the keywords present in a record against the
// schema. Its findings are advisory: they never change the table output.
package audit

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"dep/internal/header"
	"dep/internal/schema"
)

// DefaultSkips are header keywords never reported as unexpected.
var DefaultSkips = []string{"SIMPLE", "COMMENT", "PROGTL1", "PROGTL2", "PROGTL3"}

// DefaultAllowMissing are non-nullable schema fields that may be absent
// because they are filled in later.
var DefaultAllowMissing = []string{"PROGTITL", "PROPINT"}

// AdvisoryKind classifies an audit finding.
type AdvisoryKind string

const (
	UnexpectedKeyword AdvisoryKind = "unexpected_keyword"
	MissingRequired   AdvisoryKind = "missing_required"
)

// Advisory is one audit finding.
type Advisory struct {
	Kind    AdvisoryKind
	Keyword string
	Message string
}

func (a Advisory) String() string { return a.Message }

// SkipPattern decides whether a keyword is excluded from the unexpected
// keyword pass.
type SkipPattern struct {
	raw   string
	match func(string) bool
}

// ParseSkip builds a SkipPattern. Patterns are "prefix:X", "exact:X",
// "regexp:X", "substring:X" or a bare X, which matches as a substring.
func ParseSkip(p string) (SkipPattern, error) {
	kind, arg, ok := strings.Cut(p, ":")
	if !ok {
		kind, arg = "substring", p
	}
	var m func(string) bool
	switch kind {
	case "substring":
		m = func(k string) bool { return strings.Contains(k, arg) }
	case "prefix":
		m = func(k string) bool { return strings.HasPrefix(k, arg) }
	case "exact":
		m = func(k string) bool { return k == arg }
	case "regexp":
		re, err := regexp.Compile(arg)
		if err != nil {
			return SkipPattern{}, fmt.Errorf("skip pattern %q: %w", p, err)
		}
		m = re.MatchString
	default:
		// Keywords may legitimately contain ':'; treat unknown kinds as text.
		arg = p
		m = func(k string) bool { return strings.Contains(k, arg) }
	}
	if arg == "" {
		return SkipPattern{}, fmt.Errorf("skip pattern %q: empty", p)
	}
	return SkipPattern{raw: p, match: m}, nil
}

func (s SkipPattern) Match(keyword string) bool { return s.match != nil && s.match(keyword) }
func (s SkipPattern) String() string            { return s.raw }

// Auditor runs the two coverage passes for one schema.
type Auditor struct {
	schema       *schema.Schema
	skips        []SkipPattern
	allowMissing map[string]bool
}

// New returns an Auditor using DefaultSkips plus extra (instrument specific)
// patterns, and DefaultAllowMissing.
func New(s *schema.Schema, extra []string) (*Auditor, error) {
	a := &Auditor{schema: s, allowMissing: map[string]bool{}}
	for _, p := range append(append([]string{}, DefaultSkips...), extra...) {
		sp, err := ParseSkip(p)
		if err != nil {
			return nil, err
		}
		a.skips = append(a.skips, sp)
	}
	for _, k := range DefaultAllowMissing {
		a.allowMissing[k] = true
	}
	return a, nil
}

// Allow adds keywords that may be missing from a record even when the
// schema marks them non-nullable.
func (a *Auditor) Allow(keywords ...string) {
	for _, k := range keywords {
		a.allowMissing[k] = true
	}
}

func (a *Auditor) skipped(keyword string) bool {
	for _, s := range a.skips {
		if s.Match(keyword) {
			return true
		}
	}
	return false
}

// Audit reports record keys unknown to the schema (in record order) and
// non-nullable schema fields missing from the record (in schema order).
func (a *Auditor) Audit(rec header.Record) []Advisory {
	var out []Advisory
	for _, k := range rec.Keys() {
		if a.schema.Has(k) || a.skipped(k) {
			continue
		}
		out = append(out, Advisory{
			Kind:    UnexpectedKeyword,
			Keyword: k,
			Message: fmt.Sprintf("audit: header keyword %q not found in metadata definition file", k),
		})
	}
	for _, f := range a.schema.Fields {
		if f.Nullable || a.allowMissing[f.Name] || rec.Has(f.Name) {
			continue
		}
		out = append(out, Advisory{
			Kind:    MissingRequired,
			Keyword: f.Name,
			Message: fmt.Sprintf("audit: non-null metadata keyword %q not found in header", f.Name),
		})
	}
	return out
}

// Report is the keyword set difference between a record and a schema.
type Report struct {
	HeaderOnly []string
	SchemaOnly []string
}

// KeywordReport lists record keys missing from the schema and schema fields
// missing from the record, both sorted. No skip or allow lists apply.
func KeywordReport(s *schema.Schema, rec header.Record) Report {
	var r Report
	for _, k := range rec.Keys() {
		if !s.Has(k) {
			r.HeaderOnly = append(r.HeaderOnly, k)
		}
	}
	for _, f := range s.Fields {
		if !rec.Has(f.Name) {
			r.SchemaOnly = append(r.SchemaOnly, f.Name)
		}
	}
	sort.Strings(r.HeaderOnly)
	sort.Strings(r.SchemaOnly)
	return r
}
