package table

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"dep/internal/header"
	"dep/internal/schema"
	"dep/internal/validate"
)

// Writer renders records into a table stream.
//
// Records are validated by Workers goroutines; a single writer owns the
// output and emits lines in input order. Warnings are logged and counted in
// that same order, so logs and counters do not depend on scheduling.
type Writer struct {
	Schema    *schema.Schema
	Validator *validate.Validator

	// Workers is the number of render goroutines (<=0 means GOMAXPROCS).
	Workers int

	// Logf receives warnings and the run summary. Nil means log.Printf.
	Logf func(format string, args ...any)

	out *bufio.Writer
}

// NewWriter returns a Writer for s writing to w with a zero-value validator.
func NewWriter(w io.Writer, s *schema.Schema) *Writer {
	return &Writer{
		Schema:    s,
		Validator: &validate.Validator{},
		out:       bufio.NewWriterSize(w, 64<<10),
	}
}

func (w *Writer) logf(format string, args ...any) {
	if w.Logf != nil {
		w.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// WritePreamble writes the four preamble lines.
func (w *Writer) WritePreamble() error {
	for _, line := range Preamble(w.Schema) {
		if _, err := w.out.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("write preamble: %w", err)
		}
	}
	return w.out.Flush()
}

type rendered struct {
	idx   int
	line  string
	warns []validate.Warning
	err   error
}

// WriteRecords renders and writes recs in order and returns the run's warning
// counters. The first record that fails validation stops the run: every line
// before it is written and flushed, no line after it is.
func (w *Writer) WriteRecords(ctx context.Context, recs []header.Record) (validate.Counters, error) {
	if err := ctx.Err(); err != nil {
		return validate.Counters{}, err
	}
	workers := w.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	v := w.Validator
	if v == nil {
		v = &validate.Validator{}
	}

	var tally validate.Tally
	g, gctx := errgroup.WithContext(ctx)

	jobs := make(chan int)
	results := make(chan rendered, workers)
	// window bounds the number of rendered lines waiting for their turn.
	window := make(chan struct{}, workers*4)

	g.Go(func() error {
		defer close(jobs)
		for i := range recs {
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		g.Go(func() error {
			defer wg.Done()
			for i := range jobs {
				line, warns, err := RenderRecord(w.Schema, v, recs[i])
				select {
				case results <- rendered{idx: i, line: line, warns: warns, err: err}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	g.Go(func() error {
		pending := make(map[int]rendered, workers*4)
		next := 0
		for r := range results {
			pending[r.idx] = r
			for {
				p, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++

				for _, warn := range p.warns {
					w.logf("%s", warn)
				}
				tally.Add(p.warns)
				if p.err != nil {
					w.logf("table: record %q failed: %v", recs[p.idx].File, p.err)
					return p.err
				}
				if _, err := w.out.WriteString(p.line + "\n"); err != nil {
					return fmt.Errorf("write record %d: %w", p.idx, err)
				}
				tally.Record()
				<-window
			}
		}
		return nil
	})

	err := g.Wait()
	if ferr := w.out.Flush(); ferr != nil && err == nil {
		err = fmt.Errorf("flush table: %w", ferr)
	}

	c := tally.Snapshot()
	if c.TypeMismatch > 0 {
		w.logf("table: found %d data type mismatches (search \"metadata check\" in log)", c.TypeMismatch)
	}
	if c.Truncation > 0 {
		w.logf("table: found %d data truncations (search \"metadata check\" in log)", c.Truncation)
	}
	w.logf("table: records_written=%d type_mismatch=%d truncation=%d", c.Records, c.TypeMismatch, c.Truncation)
	return c, err
}
