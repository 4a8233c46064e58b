package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dep/internal/schema"
	"dep/internal/storage"
	"dep/internal/table"
	"dep/internal/validate"
)

func openRepo(t *testing.T, dsn, tableName string) *wrappedRepo {
	t.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: dsn, Table: tableName})
	if err != nil {
		t.Fatalf("NewRepository(%q) error = %v", dsn, err)
	}
	w := &wrappedRepo{Repository: r, closeFn: closeFn}
	t.Cleanup(w.Close)
	return w
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatal("empty DSN: want error")
	}
}

func TestDialect(t *testing.T) {
	t.Parallel()

	stmt, err := Dialect.BuildCreateTable(storage.TableDef{FQN: "main.meta", Columns: []storage.ColumnDef{
		{Name: "KOAID", Type: schema.Char, Width: 28, PrimaryKey: true},
		{Name: "EXPTIME", Type: schema.Double, Nullable: true},
	}})
	if err != nil {
		t.Fatal(err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"main\".\"meta\" (\n  \"KOAID\" TEXT NOT NULL,\n  \"EXPTIME\" REAL,\n  PRIMARY KEY (\"KOAID\")\n);"
	if stmt != want {
		t.Fatalf("DDL =\n%s\nwant\n%s", stmt, want)
	}
}

func TestExportAndStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "archive.db")

	s, err := schema.New([]schema.FieldSpec{
		{Name: "KOAID", Type: schema.Char, Width: 28},
		{Name: "FRAMENO", Type: schema.Integer, Width: 8, Nullable: true},
		{Name: "EXPTIME", Type: schema.Double, Width: 8, Nullable: true},
		{Name: "DATE_OBS", Type: schema.Date, Width: 10, Nullable: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	meta := openRepo(t, dsn, "meta")
	td := storage.TableFromSchema("meta", s, "KOAID")
	if err := storage.EnsureTable(ctx, "sqlite", meta, td); err != nil {
		t.Fatalf("EnsureTable(meta) error = %v", err)
	}
	// Idempotent.
	if err := storage.EnsureTable(ctx, "sqlite", meta, td); err != nil {
		t.Fatalf("second EnsureTable(meta) error = %v", err)
	}

	tbl := &table.Table{Name: "meta", Columns: s.Names()}
	for i, id := range []string{"KB.20240131.00001.00", "KB.20240131.00002.00", "KB.20240131.00003.00"} {
		tbl.Rows = append(tbl.Rows, table.Row{ID: id, Values: map[string]string{
			"KOAID":    id,
			"FRAMENO":  []string{"1", "null", "3"}[i],
			"EXPTIME":  "30.0",
			"DATE_OBS": "2024-01-31",
		}})
	}
	n, err := storage.ExportTable(ctx, meta, td, tbl, 2)
	if err != nil {
		t.Fatalf("ExportTable error = %v", err)
	}
	if n != 3 {
		t.Fatalf("ExportTable = %d, want 3", n)
	}
	if got, err := meta.Count(ctx); err != nil || got != 3 {
		t.Fatalf("Count() = %d, %v; want 3", got, err)
	}

	var nulls int
	if err := meta.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "meta" WHERE "FRAMENO" IS NULL`).Scan(&nulls); err != nil {
		t.Fatal(err)
	}
	if nulls != 1 {
		t.Fatalf("NULL FRAMENO rows = %d, want 1", nulls)
	}

	// Duplicate ids violate the primary key.
	if _, err := storage.ExportTable(ctx, meta, td, tbl, 10); err == nil || !strings.Contains(err.Error(), "UNIQUE") {
		t.Fatalf("re-export err = %v, want UNIQUE constraint failure", err)
	}

	status := openRepo(t, dsn, "koa_status")
	if err := storage.EnsureTable(ctx, "sqlite", status, storage.StatusTable("koa_status")); err != nil {
		t.Fatalf("EnsureTable(status) error = %v", err)
	}
	st := storage.NewStatus("nightly", "KPF", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	st.Finish(validate.Counters{Records: 3, Truncation: 1}, 2, nil)
	if err := storage.WriteStatus(ctx, status, st); err != nil {
		t.Fatalf("WriteStatus error = %v", err)
	}

	var (
		runID, state string
		files, sci   int64
	)
	row := status.db.QueryRowContext(ctx, `SELECT run_id, status, files_arch, sci_files FROM koa_status`)
	if err := row.Scan(&runID, &state, &files, &sci); err != nil {
		t.Fatal(err)
	}
	if runID != st.RunID.String() || state != storage.StatusComplete || files != 3 || sci != 2 {
		t.Fatalf("status row = %s %s %d %d", runID, state, files, sci)
	}
}

func TestCopyFrom_RowLengthMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := openRepo(t, ":memory:", "t")
	if err := r.Exec(ctx, `CREATE TABLE "t" ("a" TEXT, "b" TEXT)`); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CopyFrom(ctx, []string{"a", "b"}, [][]any{{"x"}}); err == nil {
		t.Fatal("short row: want error")
	}
	if n, err := r.CopyFrom(ctx, []string{"a", "b"}, nil); err != nil || n != 0 {
		t.Fatalf("empty CopyFrom = %d, %v", n, err)
	}
	if got, _ := r.Count(ctx); got != 0 {
		t.Fatalf("Count() = %d after rolled back insert, want 0", got)
	}
}
