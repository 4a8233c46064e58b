package mssql

import (
	"context"
	"strings"

	"dep/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo adapts *Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect guards CREATE TABLE with an OBJECT_ID check; SQL Server has no
// CREATE TABLE IF NOT EXISTS.
var Dialect = storage.Dialect{
	Quote:   msIdent,
	MapType: func(c storage.ColumnDef) string { return MapType(c.Type, c.Width) },
	Head: func(fqn string, t storage.TableDef) string {
		return "IF OBJECT_ID(N'" + strings.ReplaceAll(fqn, "'", "''") + "', N'U') IS NULL\nCREATE TABLE " + fqn
	},
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:     cfg.DSN,
			Table:   cfg.Table,
			Columns: cfg.Columns,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("mssql", Dialect.BuildCreateTable)
}
