// Package cliutil holds the start-up steps shared by the command binaries:
// loading and linting a run config and installing the metrics backend.
package cliutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"dep/internal/config"
	"dep/internal/metrics"
	"dep/internal/metrics/datadog"
	"dep/internal/metrics/prompush"
)

// LoadRun reads the config at path (an empty path starts from a blank run),
// then applies environment overrides, override (command-line flags) and
// defaults, in that order. It returns the run with its lint issues.
func LoadRun(path string, getenv func(string) string, override func(*config.Run)) (*config.Run, []config.Issue, error) {
	r := &config.Run{}
	if path != "" {
		var err error
		if r, err = config.Load(path); err != nil {
			return nil, nil, err
		}
	}
	if err := r.ApplyEnv(getenv); err != nil {
		return nil, nil, err
	}
	if override != nil {
		override(r)
	}
	r.Defaults()
	return r, config.ValidateRun(*r), nil
}

// PrintIssues writes one line per issue to w and reports whether any of them
// is an error.
func PrintIssues(w io.Writer, issues []config.Issue) bool {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	return config.HasErrors(issues)
}

// InitMetrics installs the backend selected by m and returns the function
// that flushes it. An unusable backend leaves metrics disabled.
func InitMetrics(m config.Metrics, job string, grouping map[string]string, verbose bool) (flush func()) {
	var b metrics.Backend
	switch m.Backend {
	case "pushgateway":
		pb, err := prompush.NewBackend(job, m.PushgatewayURL, grouping)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", m.PushgatewayURL, m.Backend, job)
		b = pb

	case "datadog":
		ns := m.Namespace
		if ns != "" && !strings.HasSuffix(ns, ".") {
			ns += "."
		}
		tags := append([]string{"job:" + job}, m.Tags...)
		for k, v := range grouping {
			tags = append(tags, k+":"+v)
		}
		db, err := datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, Namespace: ns, GlobalTags: tags})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: addr=%v, backend=%v, namespace=%v", m.DatadogAddr, m.Backend, ns)
		b = db

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", m.Backend)
		}
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", m.Backend)
		return func() {}
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

// Fatalf prints to stderr and exits 1.
func Fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
