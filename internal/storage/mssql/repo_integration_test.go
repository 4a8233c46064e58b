//go:build integration

package mssql

import (
	"context"
	"os"
	"testing"
	"time"

	"dep/internal/storage"
	"dep/internal/validate"
)

// getTestDSN reads MSSQL_TEST_DSN and skips the test when it is empty.
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MSSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MSSQL_TEST_DSN not set; skipping MSSQL integration tests")
	}
	return dsn
}

// TestStatusRoundTripIntegration creates the status table on a real server
// and writes one row through the bulk copy path.
func TestStatusRoundTripIntegration(t *testing.T) {
	dsn := getTestDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const tableName = "dbo.dep_status_integration"
	repo, closeFn, err := NewRepository(ctx, Config{DSN: dsn, Table: tableName})
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	defer closeFn()

	_ = repo.Exec(ctx, "IF OBJECT_ID(N'"+tableName+"', N'U') IS NOT NULL DROP TABLE "+tableName)
	if err := storage.EnsureTable(ctx, "mssql", repo, storage.StatusTable(tableName)); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}

	st := storage.NewStatus("integration", "KPF", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	st.Finish(validate.Counters{Records: 2}, 1, nil)
	if err := storage.WriteStatus(ctx, repo, st); err != nil {
		t.Fatalf("WriteStatus() error = %v", err)
	}
}
