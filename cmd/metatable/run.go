package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"dep/internal/audit"
	"dep/internal/config"
	"dep/internal/header"
	"dep/internal/koaid"
	"dep/internal/manifest"
	"dep/internal/metrics"
	"dep/internal/parser/jsonl"
	"dep/internal/schema"
	"dep/internal/storage"
	"dep/internal/table"
	"dep/internal/validate"
)

// result summarizes one generation run.
type result struct {
	Counters      validate.Counters
	Rejected      int   // records dropped by the id checks
	SciFiles      int64 // written records counted as science files
	ExtTables     int
	ManifestFiles int
	Exported      int64
}

// Function variables used to introduce test seams.
var (
	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return storage.New(ctx, cfg)
	}
)

// step runs fn and records it as one metrics step.
func step(job, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(job, name, err, time.Since(start))
	if err != nil {
		log.Printf("step %s failed: %v", name, err)
	}
	return err
}

// generate executes one run:
//
//	schema → records (sorted by file) → id checks → [audit] → metadata table
//	       → file list → [extension tables] → manifests → [export] → [status]
//
// The metadata table is written to a temporary file and renamed into place
// only when every record validated. When a status table is configured a
// status row is written whatever the outcome.
func generate(ctx context.Context, r *config.Run) (res result, err error) {
	utDate, err := koaid.ParseUTDate(r.UTDate)
	if err != nil {
		return res, fmt.Errorf("ut date: %w", err)
	}

	status := storage.NewStatus(r.Job, r.Instrument, utDate)
	defer func() {
		if r.Storage.Kind == "" || r.Storage.StatusTable == "" {
			return
		}
		status.Finish(res.Counters, res.SciFiles, err)
		if serr := writeStatus(ctx, r, status); serr != nil {
			log.Printf("status: %v", serr)
			if err == nil {
				err = serr
			}
		}
	}()

	var s *schema.Schema
	if err = step(r.Job, "schema", func() (serr error) {
		s, serr = schema.Load(r.Schema)
		return serr
	}); err != nil {
		return res, err
	}

	var recs []header.Record
	if err = step(r.Job, "read", func() (rerr error) {
		recs, rerr = readRecords(ctx, r.Records, r.IDColumn)
		return rerr
	}); err != nil {
		return res, err
	}

	recs, res.Rejected, err = admitRecords(r, recs)
	if err != nil {
		return res, err
	}
	metrics.RecordRecords(r.Job, metrics.KindRejectedID, int64(res.Rejected))

	if r.Dev {
		if err = auditRecords(r, s, recs); err != nil {
			return res, err
		}
	}

	if err = step(r.Job, "render", func() (werr error) {
		res.Counters, werr = writeTable(ctx, r, s, recs)
		return werr
	}); err != nil {
		return res, err
	}
	res.SciFiles = countScience(r.Science, recs)

	if err = step(r.Job, "filelist", func() error { return writeFileList(r, recs) }); err != nil {
		return res, err
	}

	if r.Output.ExtTables {
		if err = step(r.Job, "ext_tables", func() (eerr error) {
			res.ExtTables, eerr = writeExtTables(r, recs)
			return eerr
		}); err != nil {
			return res, err
		}
	}

	if err = step(r.Job, "manifest", func() (merr error) {
		res.ManifestFiles, merr = writeManifests(ctx, r)
		return merr
	}); err != nil {
		return res, err
	}

	if r.Storage.Kind != "" && r.Storage.Table != "" {
		if err = step(r.Job, "export", func() (xerr error) {
			res.Exported, xerr = exportRows(ctx, r, s)
			return xerr
		}); err != nil {
			return res, err
		}
	}
	return res, nil
}

// readRecords decodes the records file and orders it by source file name.
func readRecords(ctx context.Context, path, idColumn string) ([]header.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	recs, err := jsonl.ReadAll(ctx, f, idColumn)
	if err != nil {
		return nil, fmt.Errorf("read records %s: %w", path, err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].File < recs[j].File })
	return recs, nil
}

// admitRecords drops records whose identifier is empty, malformed, a
// duplicate or outside the run window.
func admitRecords(r *config.Run, recs []header.Record) ([]header.Record, int, error) {
	c, err := koaid.NewChecker(r.UTDate, r.EndTime)
	if err != nil {
		return nil, 0, fmt.Errorf("id checker: %w", err)
	}
	kept := recs[:0:0]
	rejected := 0
	for _, rec := range recs {
		if err := c.Check(rec.ID, rec.File); err != nil {
			log.Printf("koaid: dropping record: %v", err)
			rejected++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, rejected, nil
}

func auditRecords(r *config.Run, s *schema.Schema, recs []header.Record) error {
	a, err := audit.New(s, r.KeywordSkips)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	a.Allow(r.AllowMissing...)
	var n int64
	for _, rec := range recs {
		for _, adv := range a.Audit(rec) {
			log.Printf("%s: %s", rec.File, adv)
			n++
		}
	}
	metrics.RecordRecords(r.Job, metrics.KindAdvisory, n)
	return nil
}

// writeAtomic writes path through a temporary sibling that is renamed into
// place when fn succeeds. A failed write leaves the temporary file behind.
func writeAtomic(path string, fn func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func writeTable(ctx context.Context, r *config.Run, s *schema.Schema, recs []header.Record) (validate.Counters, error) {
	if err := os.MkdirAll(r.Output.Dir, 0o755); err != nil {
		return validate.Counters{}, fmt.Errorf("output dir: %w", err)
	}

	var c validate.Counters
	err := writeAtomic(r.TablePath(), func(out io.Writer) error {
		w := table.NewWriter(out, s)
		w.Validator = &validate.Validator{Sentinels: r.Sentinels, Dev: r.Dev}
		w.Workers = r.Runtime.RenderWorkers
		if err := w.WritePreamble(); err != nil {
			return err
		}
		var werr error
		c, werr = w.WriteRecords(ctx, recs)
		return werr
	})

	metrics.RecordRecords(r.Job, metrics.KindWritten, c.Records)
	metrics.RecordRecords(r.Job, metrics.KindTypeMismatch, c.TypeMismatch)
	metrics.RecordRecords(r.Job, metrics.KindTruncation, c.Truncation)

	var nv *validate.NullViolationError
	if errors.As(err, &nv) {
		metrics.RecordRecords(r.Job, metrics.KindNullViolation, 1)
	}
	if err != nil {
		return c, fmt.Errorf("metadata table %s: %w", r.TablePath(), err)
	}
	log.Printf("table: wrote %s records=%d", r.TablePath(), c.Records)
	return c, nil
}

func writeFileList(r *config.Run, recs []header.Record) error {
	entries := make([]table.FileEntry, len(recs))
	for i, rec := range recs {
		entries[i] = table.FileEntry{File: rec.File, ID: rec.ID}
	}
	return writeAtomic(r.FileListPath(), func(w io.Writer) error {
		return table.WriteFileList(w, entries)
	})
}

func writeExtTables(r *config.Run, recs []header.Record) (int, error) {
	n := 0
	for _, rec := range recs {
		for i, ext := range rec.Extensions {
			path := filepath.Join(r.Output.Dir, table.ExtTableName(rec.ID, i+1, ext.Name))
			if err := writeAtomic(path, func(w io.Writer) error {
				return table.WriteExtTable(w, ext.Name, ext.Columns, ext.Rows)
			}); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// countScience counts records whose science keyword holds one of the
// configured values, ignoring case.
func countScience(sc config.Science, recs []header.Record) int64 {
	var n int64
	for _, rec := range recs {
		v, src := rec.Resolve(sc.Keyword)
		if src == header.FromNone || !v.IsString() {
			continue
		}
		for _, want := range sc.Values {
			if strings.EqualFold(strings.TrimSpace(v.S), want) {
				n++
				break
			}
		}
	}
	return n
}

func writeManifests(ctx context.Context, r *config.Run) (int, error) {
	total := 0
	for _, m := range r.Manifests {
		filter := manifest.Filter{Suffix: m.Suffix}
		if m.Pattern != "" {
			re, err := regexp.Compile(m.Pattern)
			if err != nil {
				return total, fmt.Errorf("manifest %s: %w", m.Name, err)
			}
			filter.Pattern = re
		}
		out := r.ManifestPath(m)
		n, err := manifest.WriteFile(ctx, m.Root, out, filter, manifest.Options{
			Algo:    manifest.Algo(m.Algo),
			Workers: r.Runtime.ManifestWorkers,
		})
		if err != nil {
			return total, fmt.Errorf("manifest %s: %w", m.Name, err)
		}
		log.Printf("manifest: wrote %s files=%d", out, n)
		total += n
	}
	return total, nil
}

func exportRows(ctx context.Context, r *config.Run, s *schema.Schema) (int64, error) {
	t, err := table.Load(r.TablePath())
	if err != nil {
		return 0, err
	}
	td := storage.TableFromSchema(r.Storage.Table, s, r.IDColumn)
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:    r.Storage.Kind,
		DSN:     r.Storage.DSN,
		Table:   td.FQN,
		Columns: td.ColumnNames(),
	})
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	if r.Storage.AutoCreateTable {
		if err := storage.EnsureTable(ctx, r.Storage.Kind, repo, td); err != nil {
			return 0, err
		}
	}
	return storage.ExportTable(ctx, repo, td, t, r.Runtime.BatchSize)
}

func writeStatus(ctx context.Context, r *config.Run, st storage.Status) error {
	td := storage.StatusTable(r.Storage.StatusTable)
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:    r.Storage.Kind,
		DSN:     r.Storage.DSN,
		Table:   td.FQN,
		Columns: td.ColumnNames(),
	})
	if err != nil {
		return err
	}
	defer repo.Close()

	if r.Storage.AutoCreateTable {
		if err := storage.EnsureTable(ctx, r.Storage.Kind, repo, td); err != nil {
			return err
		}
	}
	if err := storage.WriteStatus(ctx, repo, st); err != nil {
		return err
	}
	log.Printf("status: run_id=%s status=%s files=%d", st.RunID, st.Status, st.FilesArchived)
	return nil
}
