// Command metacompare compares metadata tables against the first one given
// and prints every discrepancy. It exits 1 when a table cannot be loaded and,
// with -strict, 2 when any warning was reported.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"dep/internal/cliutil"
	"dep/internal/compare"
	"dep/internal/config"
	"dep/internal/metrics"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	fs := flag.NewFlagSet("metacompare", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath           string
		skipCols          string
		idColumn          string
		metricsBackendFlg string
		pushGatewayURLFlg string
		skipColWarn       bool
		strict            bool
		workers           int
	)
	fs.StringVar(&cfgPath, "config", "", "run config path; its compare section sets the defaults")
	fs.StringVar(&skipCols, "skip-cols", "", "comma-separated columns to ignore (default DQA_DATE,DQA_VERS)")
	fs.StringVar(&idColumn, "id-column", "", "column identifying a row (default KOAID)")
	fs.BoolVar(&skipColWarn, "skip-col-warn", false, "suppress column-set warnings")
	fs.BoolVar(&strict, "strict", false, "exit 2 when any warning is reported")
	fs.IntVar(&workers, "workers", 0, "concurrent comparisons (default GOMAXPROCS)")
	fs.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none)")
	fs.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	paths := fs.Args()
	if len(paths) < 2 {
		fmt.Fprintln(stderr, "usage: metacompare [flags] base.table candidate.table...")
		return 1
	}

	r := &config.Run{}
	if cfgPath != "" {
		var err error
		if r, err = config.Load(cfgPath); err != nil {
			fmt.Fprintf(stderr, "load config: %v\n", err)
			return 1
		}
	}
	if err := r.ApplyEnv(getenv); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	if skipCols != "" {
		r.Compare.SkipColumns = splitList(skipCols)
	}
	if skipColWarn {
		r.Compare.SkipColumnWarnings = true
	}
	if idColumn != "" {
		r.IDColumn = idColumn
	}
	if workers > 0 {
		r.Runtime.CompareWorkers = workers
	}
	if metricsBackendFlg != "" {
		r.Metrics.Backend = metricsBackendFlg
	}
	if pushGatewayURLFlg != "" {
		r.Metrics.PushgatewayURL = pushGatewayURLFlg
	}
	r.Defaults()

	flush := cliutil.InitMetrics(r.Metrics, r.Job, nil, false)
	defer flush()

	start := time.Now()
	reports, err := compare.CompareFiles(ctx, paths, compare.Options{
		SkipColumns:        r.Compare.SkipColumns,
		SkipColumnWarnings: r.Compare.SkipColumnWarnings,
		IDColumn:           r.IDColumn,
		Workers:            r.Runtime.CompareWorkers,
	})
	metrics.RecordStep(r.Job, "compare", err, time.Since(start))
	if err != nil {
		fmt.Fprintf(stderr, "compare: %v\n", err)
		return 1
	}

	total := 0
	for _, rep := range reports {
		fmt.Fprintln(stdout, rep.Label)
		byKind := map[compare.WarningKind]int64{}
		for _, w := range rep.Warnings {
			fmt.Fprintln(stdout, w.Message)
			byKind[w.Kind]++
		}
		for k, n := range byKind {
			metrics.RecordCompareWarnings(r.Job, string(k), n)
		}
		total += len(rep.Warnings)
	}
	log.Printf("compare: tables=%d warnings=%d", len(paths), total)

	if strict && total > 0 {
		return 2
	}
	return 0
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
