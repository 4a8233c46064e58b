package storage

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"dep/internal/schema"
	"dep/internal/table"
)

// DefaultBatchSize is the export batch size used when none is configured.
const DefaultBatchSize = 500

// ExportTable copies the rows of a loaded metadata table into repo, typed per
// td. Columns of td missing from the table export as NULL.
func ExportTable(ctx context.Context, repo Repository, td TableDef, t *table.Table, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	cols := td.ColumnNames()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, batchSize)
	go func() {
		defer close(in)
		for _, r := range t.Rows {
			row := make([]any, len(td.Columns))
			for i, c := range td.Columns {
				raw, ok := r.Values[c.Name]
				if !ok {
					continue
				}
				v, err := ExportValue(c, raw)
				if err != nil {
					log.Printf("storage: record %q column %s exported as NULL: %v", r.ID, c.Name, err)
				}
				row[i] = v
			}
			select {
			case in <- row:
			case <-ctx.Done():
				return
			}
		}
	}()

	n, err := LoadBatches(ctx, cols, in, batchSize, repo.CopyFrom)
	if err != nil {
		return n, fmt.Errorf("storage: export %s: %w", td.FQN, err)
	}
	log.Printf("storage: exported table=%s rows=%d", td.FQN, n)
	return n, nil
}

// ExportValue converts one rendered table cell to the Go value stored for c.
// The null marker and empty non-char cells are nil. A value that does not
// parse as its column type is nil with a non-nil error.
func ExportValue(c ColumnDef, raw string) (any, error) {
	if raw == "null" {
		return nil, nil
	}
	if raw == "" && c.Type != schema.Char {
		return nil, nil
	}
	switch c.Type {
	case schema.Integer:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", raw)
		}
		return n, nil
	case schema.Double:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("not a double: %q", raw)
		}
		return f, nil
	case schema.Date:
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, fmt.Errorf("not a date: %q", raw)
		}
		return d, nil
	case schema.DateTime:
		d, err := time.Parse(time.DateTime, raw)
		if err != nil {
			return nil, fmt.Errorf("not a datetime: %q", raw)
		}
		return d, nil
	default:
		return raw, nil
	}
}
