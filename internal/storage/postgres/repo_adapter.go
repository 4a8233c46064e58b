package postgres

import (
	"context"

	"dep/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to *Repository and
// running the close function returned by NewRepository.
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

// Dialect renders CREATE TABLE IF NOT EXISTS with pgx-sanitized identifiers.
var Dialect = storage.Dialect{
	Quote:   quoteIdent,
	MapType: func(c storage.ColumnDef) string { return MapType(c.Type, c.Width) },
	Head: func(fqn string, _ storage.TableDef) string {
		return "CREATE TABLE IF NOT EXISTS " + fqn
	},
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
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
	storage.RegisterDDL("postgres", Dialect.BuildCreateTable)
}
