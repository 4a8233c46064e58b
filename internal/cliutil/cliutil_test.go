package cliutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dep/internal/config"
)

func TestLoadRun_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	body := "instrument: KPF\nut_date: \"2024-01-31\"\nschema: s.format\nrecords: r.jsonl\nmetrics:\n  backend: datadog\n  datadog_addr: 127.0.0.1:8125\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	env := map[string]string{"METRICS_BACKEND": "pushgateway", "PUSHGATEWAY_URL": "http://env:9091"}

	r, issues, err := LoadRun(path, func(k string) string { return env[k] }, func(r *config.Run) {
		r.Metrics.PushgatewayURL = "http://flag:9091"
	})
	if err != nil {
		t.Fatalf("LoadRun error = %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
	if r.Metrics.Backend != "pushgateway" || r.Metrics.PushgatewayURL != "http://flag:9091" {
		t.Fatalf("metrics = %+v", r.Metrics)
	}
	if r.Output.Prefix != "20240131" {
		t.Fatalf("defaults not applied: prefix %q", r.Output.Prefix)
	}
}

func TestLoadRun_Errors(t *testing.T) {
	if _, _, err := LoadRun(filepath.Join(t.TempDir(), "none.json"), nil, nil); err == nil {
		t.Error("missing config: want error")
	}
	bad := func(k string) string {
		if k == "DEP_RENDER_WORKERS" {
			return "many"
		}
		return ""
	}
	if _, _, err := LoadRun("", bad, nil); err == nil {
		t.Error("bad env: want error")
	}

	_, issues, err := LoadRun("", func(string) string { return "" }, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !config.HasErrors(issues) {
		t.Fatalf("blank run should not lint clean: %v", issues)
	}
}

func TestPrintIssues(t *testing.T) {
	var b strings.Builder
	hasErr := PrintIssues(&b, []config.Issue{
		{Severity: config.SeverityWarning, Path: "storage", Message: "no tables"},
		{Severity: config.SeverityError, Path: "schema", Message: "empty"},
	})
	if !hasErr {
		t.Fatal("want errors reported")
	}
	want := "warning: storage: no tables\nerror: schema: empty\n"
	if b.String() != want {
		t.Fatalf("output = %q, want %q", b.String(), want)
	}
}

func TestInitMetrics_FallsBackToNop(t *testing.T) {
	for _, m := range []config.Metrics{
		{Backend: "none"},
		{Backend: "statsd"},
		{Backend: "pushgateway"},
		{Backend: "datadog"},
	} {
		flush := InitMetrics(m, "dep", nil, true)
		if flush == nil {
			t.Fatalf("%s: nil flush", m.Backend)
		}
		flush()
	}
}
