// Package storage contains the storage-agnostic contracts used to archive a
// generation run: exporting metadata table rows and recording the run status.
//
// Concrete backends (sqlite, postgres, mssql, mysql) register a Factory and a
// DDL builder at init time; importing dep/internal/storage/all enables them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects a backend and its target table.
type Config struct {
	Kind    string   // registered backend kind, e.g. "sqlite"
	DSN     string   // backend-specific connection string
	Table   string   // target table, optionally schema-qualified
	Columns []string // ordered destination columns
}

// Repository is the minimal write contract shared by all backends.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns and returns the number of
	// rows inserted.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (registered: %v)", cfg.Kind, ListKinds())
	}
	repo, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", cfg.Kind, err)
	}
	return repo, nil
}

// ListKinds returns the registered backend kinds, sorted.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
