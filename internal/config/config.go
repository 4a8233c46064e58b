// Package config defines the configuration model of a metadata generation
// run. A run file is JSON, or YAML when its extension is .yaml or .yml:
//
//	{
//	  "job": "nightly",
//	  "instrument": "KPF",
//	  "ut_date": "2024-01-31",
//	  "schema": "tables/keywords.format.KPF",
//	  "records": "lev0/records.jsonl",
//	  "output": {"dir": "lev0"},
//	  "storage": {"kind": "sqlite", "dsn": "archive.db", "status_table": "koa_status"},
//	  "metrics": {"backend": "pushgateway", "pushgateway_url": "http://pushgateway:9091"}
//	}
//
// Defaults fills in unset fields; ValidateRun lints the result.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Run is the top-level run configuration.
type Run struct {
	// Job labels metrics and status rows.
	Job        string `json:"job" yaml:"job"`
	Instrument string `json:"instrument" yaml:"instrument"`
	// UTDate is the observing date, "2006-01-02" (slashes accepted).
	UTDate string `json:"ut_date" yaml:"ut_date"`
	// EndTime is the end of the observing window, "HH:MM:SS" UT.
	EndTime string `json:"end_time" yaml:"end_time"`
	// Dev enables advisory notes in the log.
	Dev bool `json:"dev" yaml:"dev"`

	Schema  string `json:"schema" yaml:"schema"`
	Records string `json:"records" yaml:"records"`
	Output  Output `json:"output" yaml:"output"`

	IDColumn     string   `json:"id_column" yaml:"id_column"`
	Sentinels    []string `json:"sentinels" yaml:"sentinels"`
	KeywordSkips []string `json:"keyword_skips" yaml:"keyword_skips"`
	AllowMissing []string `json:"allow_missing" yaml:"allow_missing"`
	Science      Science  `json:"science" yaml:"science"`

	Manifests []Manifest `json:"manifests" yaml:"manifests"`
	Runtime   Runtime    `json:"runtime" yaml:"runtime"`
	Storage   Storage    `json:"storage" yaml:"storage"`
	Metrics   Metrics    `json:"metrics" yaml:"metrics"`
	Compare   Compare    `json:"compare" yaml:"compare"`
}

// Output locates the generated files.
type Output struct {
	Dir string `json:"dir" yaml:"dir"`
	// Prefix names the outputs: <prefix>.metadata.table, <prefix>.filelist.table.
	// It defaults to the UT date as YYYYMMDD.
	Prefix string `json:"prefix" yaml:"prefix"`
	// ExtTables writes one table per record extension.
	ExtTables bool `json:"ext_tables" yaml:"ext_tables"`
}

// Science decides which records count as science files in the status row.
type Science struct {
	Keyword string   `json:"keyword" yaml:"keyword"`
	Values  []string `json:"values" yaml:"values"`
}

// Manifest configures one checksum table, written as
// <prefix>.<name>.md5sum.table (or .xxh3sum.table).
type Manifest struct {
	Name    string `json:"name" yaml:"name"`
	Root    string `json:"root" yaml:"root"`
	Suffix  string `json:"suffix" yaml:"suffix"`
	Pattern string `json:"pattern" yaml:"pattern"`
	Algo    string `json:"algo" yaml:"algo"`
}

// Runtime controls concurrency and batching.
type Runtime struct {
	RenderWorkers   int `json:"render_workers" yaml:"render_workers"`
	CompareWorkers  int `json:"compare_workers" yaml:"compare_workers"`
	ManifestWorkers int `json:"manifest_workers" yaml:"manifest_workers"`
	BatchSize       int `json:"batch_size" yaml:"batch_size"`
}

// Storage selects the archive backend. An empty Kind disables storage.
type Storage struct {
	Kind string `json:"kind" yaml:"kind"`
	DSN  string `json:"dsn" yaml:"dsn"`
	// Table receives the exported metadata rows; empty skips the export.
	Table string `json:"table" yaml:"table"`
	// StatusTable receives one row per run; empty skips the status row.
	StatusTable     string `json:"status_table" yaml:"status_table"`
	AutoCreateTable bool   `json:"auto_create_table" yaml:"auto_create_table"`
}

// Metrics selects the metrics backend: "pushgateway", "datadog" or "none".
type Metrics struct {
	Backend        string   `json:"backend" yaml:"backend"`
	PushgatewayURL string   `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string   `json:"datadog_addr" yaml:"datadog_addr"`
	Namespace      string   `json:"namespace" yaml:"namespace"`
	Tags           []string `json:"tags" yaml:"tags"`
}

// Compare configures table comparison runs.
type Compare struct {
	SkipColumns        []string `json:"skip_columns" yaml:"skip_columns"`
	SkipColumnWarnings bool     `json:"skip_column_warnings" yaml:"skip_column_warnings"`
}

// Load decodes the run file at path, by extension: .yaml and .yml are YAML,
// everything else JSON. Defaults and environment overrides are not applied.
func Load(path string) (*Run, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var r Run
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return &r, nil
}

// Defaults fills unset fields in place.
func (r *Run) Defaults() {
	if r.Job == "" {
		r.Job = "dep"
	}
	if r.EndTime == "" {
		r.EndTime = "20:00:00"
	}
	if r.IDColumn == "" {
		r.IDColumn = "KOAID"
	}
	if r.Output.Dir == "" {
		r.Output.Dir = "."
	}
	if r.Output.Prefix == "" {
		r.Output.Prefix = strings.NewReplacer("-", "", "/", "").Replace(r.UTDate)
	}
	if r.Science.Keyword == "" {
		r.Science.Keyword = "KOAIMTYP"
	}
	if len(r.Science.Values) == 0 {
		r.Science.Values = []string{"object"}
	}
	for i := range r.Manifests {
		m := &r.Manifests[i]
		if m.Root == "" {
			m.Root = r.Output.Dir
		}
		if m.Algo == "" {
			m.Algo = "md5"
		}
	}
	if r.Runtime.RenderWorkers <= 0 {
		r.Runtime.RenderWorkers = runtime.GOMAXPROCS(0)
	}
	if r.Runtime.CompareWorkers <= 0 {
		r.Runtime.CompareWorkers = runtime.GOMAXPROCS(0)
	}
	if r.Runtime.ManifestWorkers <= 0 {
		r.Runtime.ManifestWorkers = runtime.GOMAXPROCS(0)
	}
	if r.Runtime.BatchSize <= 0 {
		r.Runtime.BatchSize = 500
	}
	if r.Metrics.Backend == "" {
		r.Metrics.Backend = "none"
	}
	if r.Metrics.Namespace == "" {
		r.Metrics.Namespace = "dep"
	}
	if len(r.Compare.SkipColumns) == 0 {
		r.Compare.SkipColumns = []string{"DQA_DATE", "DQA_VERS"}
	}
}

// ApplyEnv overrides runtime knobs from the environment:
// DEP_RENDER_WORKERS, METRICS_BACKEND and PUSHGATEWAY_URL. Unparsable worker
// counts are reported and leave the config unchanged.
func (r *Run) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("DEP_RENDER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("DEP_RENDER_WORKERS=%q: want a positive integer", v)
		}
		r.Runtime.RenderWorkers = n
	}
	if v := getenv("METRICS_BACKEND"); v != "" {
		r.Metrics.Backend = v
	}
	if v := getenv("PUSHGATEWAY_URL"); v != "" {
		r.Metrics.PushgatewayURL = v
	}
	return nil
}

// TablePath is the generated metadata table.
func (r *Run) TablePath() string {
	return filepath.Join(r.Output.Dir, r.Output.Prefix+".metadata.table")
}

// FileListPath is the generated file list table.
func (r *Run) FileListPath() string {
	return filepath.Join(r.Output.Dir, r.Output.Prefix+".filelist.table")
}

// ManifestPath is the checksum table written for m.
func (r *Run) ManifestPath(m Manifest) string {
	kind := "md5sum"
	if m.Algo == "xxh3" {
		kind = "xxh3sum"
	}
	return filepath.Join(r.Output.Dir, fmt.Sprintf("%s.%s.%s.table", r.Output.Prefix, m.Name, kind))
}
