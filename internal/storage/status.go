package storage

import (
	"context"
	"fmt"
	"time"

	"dep/internal/schema"
	"dep/internal/validate"

	"github.com/google/uuid"
)

// Run status values.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Status is one archive status row: the outcome of a single generation run
// for one instrument and UT date.
type Status struct {
	RunID         uuid.UUID
	Job           string
	Instrument    string
	UTDate        time.Time
	FilesArchived int64 // records written to the metadata table
	SciFiles      int64 // science records among them
	TypeMismatch  int64
	Truncation    int64
	Status        string
	Message       string
	CreatedAt     time.Time
}

// NewStatus starts a status row for a run. The run id is a random UUID.
func NewStatus(job, instrument string, utDate time.Time) Status {
	return Status{
		RunID:      uuid.New(),
		Job:        job,
		Instrument: instrument,
		UTDate:     utDate,
		Status:     StatusComplete,
	}
}

// Finish records the run's counters and outcome. A non-nil err marks the run
// failed and keeps its message.
func (s *Status) Finish(c validate.Counters, sciFiles int64, err error) {
	s.FilesArchived = c.Records
	s.TypeMismatch = c.TypeMismatch
	s.Truncation = c.Truncation
	s.SciFiles = sciFiles
	s.CreatedAt = time.Now().UTC()
	if err != nil {
		s.Status = StatusFailed
		s.Message = err.Error()
	}
}

// StatusTable returns the definition of the status table named fqn.
func StatusTable(fqn string) TableDef {
	return TableDef{FQN: fqn, Columns: []ColumnDef{
		{Name: "run_id", Type: schema.Char, Width: 36, PrimaryKey: true},
		{Name: "job", Type: schema.Char, Width: 64, Nullable: true},
		{Name: "instrument", Type: schema.Char, Width: 16},
		{Name: "ut_date", Type: schema.Date},
		{Name: "files_arch", Type: schema.Integer},
		{Name: "sci_files", Type: schema.Integer},
		{Name: "type_mismatch", Type: schema.Integer},
		{Name: "truncation", Type: schema.Integer},
		{Name: "status", Type: schema.Char, Width: 16},
		{Name: "message", Type: schema.Char, Width: 1024, Nullable: true},
		{Name: "created_at", Type: schema.DateTime},
	}}
}

// Row returns the status values aligned to StatusTable's columns.
func (s Status) Row() []any {
	var msg any
	if s.Message != "" {
		msg = validate.Truncate(s.Message, 1024)
	}
	var job any
	if s.Job != "" {
		job = s.Job
	}
	return []any{
		s.RunID.String(),
		job,
		s.Instrument,
		s.UTDate,
		s.FilesArchived,
		s.SciFiles,
		s.TypeMismatch,
		s.Truncation,
		s.Status,
		msg,
		s.CreatedAt,
	}
}

// WriteStatus inserts s into repo, whose table has StatusTable's columns.
func WriteStatus(ctx context.Context, repo Repository, s Status) error {
	cols := StatusTable("").ColumnNames()
	n, err := repo.CopyFrom(ctx, cols, [][]any{s.Row()})
	if err != nil {
		return fmt.Errorf("storage: write status %s: %w", s.RunID, err)
	}
	if n != 1 {
		return fmt.Errorf("storage: write status %s: inserted %d rows", s.RunID, n)
	}
	return nil
}
