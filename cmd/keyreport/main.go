// Command keyreport prints, for each record of a JSON-lines records file,
// the header keywords missing from a metadata definition file and the
// definition keywords missing from the header.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"dep/internal/audit"
	"dep/internal/parser/jsonl"
	"dep/internal/schema"
	"dep/internal/table"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keyreport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	schemaPath := fs.String("schema", "", "metadata definition file")
	recordsPath := fs.String("records", "", "JSON-lines header records")
	file := fs.String("file", "", "report only the record of this source file")
	idColumn := fs.String("id-column", table.DefaultIDColumn, "column identifying a record")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *schemaPath == "" || *recordsPath == "" {
		fmt.Fprintln(stderr, "usage: keyreport -schema FILE -records FILE [-file NAME]")
		return 1
	}

	s, err := schema.Load(*schemaPath)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	f, err := os.Open(*recordsPath)
	if err != nil {
		fmt.Fprintf(stderr, "open records: %v\n", err)
		return 1
	}
	defer f.Close()
	recs, err := jsonl.ReadAll(ctx, f, *idColumn)
	if err != nil {
		fmt.Fprintf(stderr, "read records: %v\n", err)
		return 1
	}

	matched := 0
	for _, rec := range recs {
		if *file != "" && rec.File != *file {
			continue
		}
		matched++
		rep := audit.KeywordReport(s, rec)
		fmt.Fprintf(stdout, "%s (%s)\n", rec.File, rec.ID)
		fmt.Fprintf(stdout, "  in header, not in definition (%d): %s\n", len(rep.HeaderOnly), strings.Join(rep.HeaderOnly, " "))
		fmt.Fprintf(stdout, "  in definition, not in header (%d): %s\n", len(rep.SchemaOnly), strings.Join(rep.SchemaOnly, " "))
	}
	if *file != "" && matched == 0 {
		fmt.Fprintf(stderr, "no record for file %q\n", *file)
		return 1
	}
	return 0
}
