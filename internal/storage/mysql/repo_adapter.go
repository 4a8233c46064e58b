package mysql

import (
	"context"

	"dep/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

// wrappedRepo adapts *Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close closes the underlying connection pool.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// Dialect renders CREATE TABLE IF NOT EXISTS with backtick identifiers.
var Dialect = storage.Dialect{
	Quote:   quoteIdent,
	MapType: func(c storage.ColumnDef) string { return MapType(c.Type, c.Width) },
	Head: func(fqn string, _ storage.TableDef) string {
		return "CREATE TABLE IF NOT EXISTS " + fqn
	},
	Tail: " DEFAULT CHARSET=utf8mb4",
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
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
	storage.RegisterDDL("mysql", Dialect.BuildCreateTable)
}
