// Command metatable generates the metadata table of one instrument and UT
// date from a stream of decoded file headers, writes the file list, extension
// tables and checksum manifests next to it, and optionally archives the rows
// and a run status record in a database.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"dep/internal/cliutil"
	"dep/internal/config"

	// register all backends with the storage factory.
	_ "dep/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		schemaPath        string
		recordsPath       string
		outDir            string
		metricsBackendFlg string
		pushGatewayURLFlg string
		dev               bool
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "run config path (JSON, or YAML by extension)")
	flag.StringVar(&schemaPath, "schema", "", "metadata definition file (overrides config schema)")
	flag.StringVar(&recordsPath, "records", "", "JSON-lines header records (overrides config records)")
	flag.StringVar(&outDir, "out", "", "output directory (overrides config output.dir)")
	flag.BoolVar(&dev, "dev", false, "log advisory keyword notes")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	r, issues, err := cliutil.LoadRun(cfgPath, os.Getenv, func(r *config.Run) {
		if schemaPath != "" {
			r.Schema = schemaPath
		}
		if recordsPath != "" {
			r.Records = recordsPath
		}
		if outDir != "" {
			r.Output.Dir = outDir
		}
		if dev {
			r.Dev = true
		}
		if metricsBackendFlg != "" {
			r.Metrics.Backend = metricsBackendFlg
		}
		if pushGatewayURLFlg != "" {
			r.Metrics.PushgatewayURL = pushGatewayURLFlg
		}
	})
	if err != nil {
		cliutil.Fatalf("load config: %v", err)
	}
	if cliutil.PrintIssues(os.Stderr, issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	flush := cliutil.InitMetrics(r.Metrics, r.Job, map[string]string{"instrument": r.Instrument}, *verbose)

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("run: instrument=%s ut_date=%s schema=%s records=%s out=%s storage=%s",
			r.Instrument, r.UTDate, r.Schema, r.Records, r.Output.Dir, r.Storage.Kind)
	}

	res, err := generate(ctx, r)
	flush()
	if err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed records=%d sci_files=%d manifests=%d in %s",
			res.Counters.Records, res.SciFiles, res.ManifestFiles, time.Since(start).Truncate(time.Millisecond))
	}
}
