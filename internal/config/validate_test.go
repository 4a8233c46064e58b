package config

import (
	"strings"
	"testing"
)

func validRun() Run {
	r := Run{
		Instrument: "KPF",
		UTDate:     "2024-01-31",
		Schema:     "keywords.format.KPF",
		Records:    "records.jsonl",
		Manifests:  []Manifest{{Name: "FITS", Suffix: ".fits"}},
		Storage:    Storage{Kind: "sqlite", DSN: "archive.db", StatusTable: "koa_status"},
	}
	r.Defaults()
	return r
}

func findIssue(issues []Issue, path string) (Issue, bool) {
	for _, iss := range issues {
		if iss.Path == path {
			return iss, true
		}
	}
	return Issue{}, false
}

func TestValidateRun_Valid(t *testing.T) {
	t.Parallel()

	if issues := ValidateRun(validRun()); len(issues) != 0 {
		t.Fatalf("ValidateRun(valid) = %v", issues)
	}
}

func TestValidateRun_Issues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(r *Run)
		path   string
		sev    IssueSeverity
	}{
		{"missing instrument", func(r *Run) { r.Instrument = "" }, "instrument", SeverityError},
		{"bad ut date", func(r *Run) { r.UTDate = "31-01-2024" }, "ut_date", SeverityError},
		{"bad end time", func(r *Run) { r.EndTime = "20:00" }, "end_time", SeverityError},
		{"missing schema", func(r *Run) { r.Schema = " " }, "schema", SeverityError},
		{"missing records", func(r *Run) { r.Records = "" }, "records", SeverityError},
		{"empty skip", func(r *Run) { r.KeywordSkips = []string{"prefix:"} }, "keyword_skips[0]", SeverityError},
		{"manifest algo", func(r *Run) { r.Manifests[0].Algo = "sha1" }, "manifests[0].algo", SeverityError},
		{"manifest pattern", func(r *Run) { r.Manifests[0].Pattern = "(" }, "manifests[0].pattern", SeverityError},
		{"manifest unfiltered", func(r *Run) { r.Manifests[0].Suffix = "" }, "manifests[0]", SeverityWarning},
		{"manifest duplicate", func(r *Run) { r.Manifests = append(r.Manifests, Manifest{Name: "FITS", Suffix: ".x"}) }, "manifests[1].name", SeverityError},
		{"negative workers", func(r *Run) { r.Runtime.RenderWorkers = -1 }, "runtime.render_workers", SeverityError},
		{"unknown storage", func(r *Run) { r.Storage.Kind = "oracle" }, "storage.kind", SeverityWarning},
		{"missing dsn", func(r *Run) { r.Storage.DSN = "" }, "storage.dsn", SeverityError},
		{"same tables", func(r *Run) { r.Storage.Table = "koa_status" }, "storage.status_table", SeverityError},
		{"tables without kind", func(r *Run) { r.Storage.Kind = "" }, "storage.kind", SeverityWarning},
		{"pushgateway without url", func(r *Run) { r.Metrics.Backend = "pushgateway" }, "metrics.pushgateway_url", SeverityError},
		{"datadog without addr", func(r *Run) { r.Metrics.Backend = "datadog" }, "metrics.datadog_addr", SeverityError},
		{"unknown metrics", func(r *Run) { r.Metrics.Backend = "statsd" }, "metrics.backend", SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := validRun()
			tt.mutate(&r)
			issues := ValidateRun(r)
			iss, ok := findIssue(issues, tt.path)
			if !ok {
				t.Fatalf("no issue at %s; got %v", tt.path, issues)
			}
			if iss.Severity != tt.sev {
				t.Fatalf("severity = %s, want %s (%v)", iss.Severity, tt.sev, iss)
			}
			if HasErrors(issues) != (tt.sev == SeverityError) {
				t.Fatalf("HasErrors = %v for %v", HasErrors(issues), issues)
			}
		})
	}
}

func TestIssueError(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "storage.dsn", Message: "must not be empty"}
	if got := iss.Error(); !strings.Contains(got, "error at storage.dsn: must not be empty") {
		t.Fatalf("Error() = %q", got)
	}
}
