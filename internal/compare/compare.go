// Package compare reconciles metadata tables produced by different runs.
//
// Every table after the first is compared against the first (the base). Rows
// are aligned by the id column, columns by name, and cells are compared with
// a tolerant equality rule (see ValuesDiffer).
package compare

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"dep/internal/table"
)

// DefaultSkipColumns are columns expected to differ between runs.
var DefaultSkipColumns = []string{"DQA_DATE", "DQA_VERS"}

// ErrNoIDColumn is returned when a table lacks the id column.
var ErrNoIDColumn = errors.New("id column not found")

// WarningKind classifies a comparison warning.
type WarningKind string

const (
	ColumnNotInBase      WarningKind = "column_not_in_base"
	ColumnNotInCandidate WarningKind = "column_not_in_candidate"
	RowNotInBase         WarningKind = "row_not_in_base"
	RowNotInCandidate    WarningKind = "row_not_in_candidate"
	ValueMismatch        WarningKind = "value_mismatch"
)

// Warning is one discrepancy between the base and a candidate table.
type Warning struct {
	Kind     WarningKind
	RecordID string
	Column   string
	Message  string
}

// Report lists the discrepancies of one candidate table.
type Report struct {
	Label     string
	Base      string
	Candidate string
	Warnings  []Warning
}

// Messages returns the warning messages in report order.
func (r Report) Messages() []string {
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.Message
	}
	return out
}

// Options tune a comparison. The zero value compares on KOAID, skips
// DefaultSkipColumns and uses GOMAXPROCS workers.
type Options struct {
	// SkipColumns are excluded from column and value checks. Nil means
	// DefaultSkipColumns.
	SkipColumns []string
	// SkipColumnWarnings suppresses column-set warnings.
	SkipColumnWarnings bool
	IDColumn           string
	Workers            int
}

func (o Options) withDefaults() Options {
	if o.SkipColumns == nil {
		o.SkipColumns = DefaultSkipColumns
	}
	if o.IDColumn == "" {
		o.IDColumn = table.DefaultIDColumn
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// CompareFiles loads every path and compares them. If any table cannot be
// loaded no reports are returned; a missing path matches table.ErrNoSuchFile.
func CompareFiles(ctx context.Context, paths []string, opts Options) ([]Report, error) {
	opts = opts.withDefaults()
	tables := make([]*table.Table, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := table.Load(p)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Compare(ctx, tables, opts)
}

// Compare compares tables[1:] against tables[0]. Reports are in input order.
func Compare(ctx context.Context, tables []*table.Table, opts Options) ([]Report, error) {
	if len(tables) < 2 {
		return nil, nil
	}
	opts = opts.withDefaults()
	for _, t := range tables {
		if !hasColumn(t, opts.IDColumn) {
			return nil, fmt.Errorf("%s: %w: %s", t.Name, ErrNoIDColumn, opts.IDColumn)
		}
	}

	skip := make(map[string]bool, len(opts.SkipColumns))
	for _, c := range opts.SkipColumns {
		skip[c] = true
	}
	base := newIndexed(tables[0], opts.IDColumn)

	reports := make([]Report, len(tables)-1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 1; i < len(tables); i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i-1] = compareOne(base, newIndexed(tables[i], opts.IDColumn), i, skip, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

type indexed struct {
	t    *table.Table
	id   string
	cols map[string]bool
	rows map[string]int
}

func newIndexed(t *table.Table, idCol string) *indexed {
	ix := &indexed{
		t:    t,
		id:   idCol,
		cols: make(map[string]bool, len(t.Columns)),
		rows: make(map[string]int, len(t.Rows)),
	}
	for _, c := range t.Columns {
		ix.cols[c] = true
	}
	for i, r := range t.Rows {
		id := r.Values[idCol]
		if _, dup := ix.rows[id]; !dup {
			ix.rows[id] = i
		}
	}
	return ix
}

func (ix *indexed) rowID(i int) string { return ix.t.Rows[i].Values[ix.id] }

func compareOne(base, cand *indexed, i int, skip map[string]bool, opts Options) Report {
	r := Report{
		Label:     fmt.Sprintf("==> comparing (0)%s to (%d)%s:", filepath.Base(base.t.Name), i, filepath.Base(cand.t.Name)),
		Base:      base.t.Name,
		Candidate: cand.t.Name,
	}
	warn := func(w Warning) { r.Warnings = append(r.Warnings, w) }

	var shared []string
	for _, c := range cand.t.Columns {
		if base.cols[c] {
			shared = append(shared, c)
			continue
		}
		if !skip[c] && !opts.SkipColumnWarnings {
			warn(Warning{
				Kind:    ColumnNotInBase,
				Column:  c,
				Message: fmt.Sprintf("Meta compare: MD%d col %q not in MD0 col list.", i, c),
			})
		}
	}
	for _, c := range base.t.Columns {
		if !cand.cols[c] && !skip[c] && !opts.SkipColumnWarnings {
			warn(Warning{
				Kind:    ColumnNotInCandidate,
				Column:  c,
				Message: fmt.Sprintf("Meta compare: MD0 col %q not in MD%d col list.", c, i),
			})
		}
	}

	var ids []string
	seen := map[string]bool{}
	for n := range cand.t.Rows {
		id := cand.rowID(n)
		if _, ok := base.rows[id]; !ok {
			warn(Warning{
				Kind:     RowNotInBase,
				RecordID: id,
				Message:  fmt.Sprintf("Meta compare: CANNOT FIND KOAID %q in MD0", id),
			})
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for n := range base.t.Rows {
		id := base.rowID(n)
		if _, ok := cand.rows[id]; !ok {
			warn(Warning{
				Kind:     RowNotInCandidate,
				RecordID: id,
				Message:  fmt.Sprintf("Meta compare: CANNOT FIND KOAID %q in MD%d", id, i),
			})
		}
	}

	for _, id := range ids {
		row0 := base.t.Rows[base.rows[id]].Values
		row1 := cand.t.Rows[cand.rows[id]].Values
		for _, c := range shared {
			if skip[c] {
				continue
			}
			v0, v1 := row0[c], row1[c]
			if ValuesDiffer(v0, v1, c) {
				warn(Warning{
					Kind:     ValueMismatch,
					RecordID: id,
					Column:   c,
					Message:  fmt.Sprintf("Meta compare: %s: col %q: (0)%q != (%d)%q", id, c, v0, i, v1),
				})
			}
		}
	}
	return r
}

func hasColumn(t *table.Table, name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
