package config

import (
	"fmt"
	"regexp"
	"strings"

	"dep/internal/audit"
	"dep/internal/koaid"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one lint finding. Path is a dotted path into the config, e.g.
// "storage.dsn" or "manifests[1].pattern".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateRun lints r, normally after Defaults. It does not mutate r.
func ValidateRun(r Run) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(r.Instrument) == "" {
		add(SeverityError, "instrument", "instrument must not be empty")
	}
	if _, err := koaid.ParseUTDate(r.UTDate); err != nil {
		add(SeverityError, "ut_date", "ut_date %q is not a YYYY-MM-DD date", r.UTDate)
	}
	if r.EndTime != "" {
		if _, err := koaid.NewChecker("2000-01-01", r.EndTime); err != nil {
			add(SeverityError, "end_time", "end_time %q is not HH:MM:SS", r.EndTime)
		}
	}
	if strings.TrimSpace(r.Schema) == "" {
		add(SeverityError, "schema", "schema path must not be empty")
	}
	if strings.TrimSpace(r.Records) == "" {
		add(SeverityError, "records", "records path must not be empty")
	}
	if strings.TrimSpace(r.IDColumn) == "" {
		add(SeverityError, "id_column", "id_column must not be empty")
	}
	for i, p := range r.KeywordSkips {
		if _, err := audit.ParseSkip(p); err != nil {
			add(SeverityError, fmt.Sprintf("keyword_skips[%d]", i), "%v", err)
		}
	}

	issues = append(issues, validateManifests(r.Manifests)...)
	issues = append(issues, validateRuntime(r.Runtime)...)
	issues = append(issues, validateStorage(r.Storage)...)
	issues = append(issues, validateMetrics(r.Metrics)...)
	return issues
}

func validateManifests(ms []Manifest) []Issue {
	var issues []Issue
	seen := map[string]bool{}
	for i, m := range ms {
		path := fmt.Sprintf("manifests[%d]", i)
		if strings.TrimSpace(m.Name) == "" {
			issues = append(issues, Issue{SeverityError, path + ".name", "manifest name must not be empty"})
		} else if seen[m.Name] {
			issues = append(issues, Issue{SeverityError, path + ".name", fmt.Sprintf("duplicate manifest name %q", m.Name)})
		}
		seen[m.Name] = true

		switch m.Algo {
		case "", "md5", "xxh3":
		default:
			issues = append(issues, Issue{SeverityError, path + ".algo", fmt.Sprintf("unknown algo %q; want md5 or xxh3", m.Algo)})
		}
		if m.Pattern != "" {
			if _, err := regexp.Compile(m.Pattern); err != nil {
				issues = append(issues, Issue{SeverityError, path + ".pattern", fmt.Sprintf("invalid pattern: %v", err)})
			}
		}
		if m.Suffix == "" && m.Pattern == "" {
			issues = append(issues, Issue{SeverityWarning, path, "no suffix or pattern; every file under root is listed"})
		}
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue
	for _, f := range []struct {
		path string
		v    int
	}{
		{"runtime.render_workers", r.RenderWorkers},
		{"runtime.compare_workers", r.CompareWorkers},
		{"runtime.manifest_workers", r.ManifestWorkers},
		{"runtime.batch_size", r.BatchSize},
	} {
		if f.v < 0 {
			issues = append(issues, Issue{SeverityError, f.path, f.path[len("runtime."):] + " must not be negative"})
		}
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		if s.Table != "" || s.StatusTable != "" {
			issues = append(issues, Issue{SeverityWarning, "storage.kind", "tables configured but storage.kind is empty; nothing will be archived"})
		}
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{SeverityWarning, "storage.kind", fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind)})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.dsn", "storage.dsn must not be empty"})
	}
	if s.Table == "" && s.StatusTable == "" {
		issues = append(issues, Issue{SeverityWarning, "storage", "neither table nor status_table is set; storage is a no-op"})
	}
	if s.Table != "" && s.Table == s.StatusTable {
		issues = append(issues, Issue{SeverityError, "storage.status_table", "status_table must differ from table"})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "pushgateway backend requires pushgateway_url"})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "datadog backend requires datadog_addr"})
		}
	default:
		issues = append(issues, Issue{SeverityWarning, "metrics.backend", fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend)})
	}
	return issues
}
