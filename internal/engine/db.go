package engine

import (
	"errors"
	"log/slog"
	"os"

	"github.com/tuannm99/novaheap/internal"
	"github.com/tuannm99/novaheap/internal/catalog"
	"github.com/tuannm99/novaheap/internal/sql/ast"
	"github.com/tuannm99/novaheap/internal/sql/executor"
	"github.com/tuannm99/novaheap/internal/storage"
)

var ErrDatabaseClosed = errors.New("novaheap: database is closed")

type DatabaseOperation interface {
	Execute(stmt ast.Statement) (*executor.Result, error)
	Catalog() *catalog.Catalog
	Close() error
}

var _ DatabaseOperation = (*Database)(nil)

// Database wires a block store provider, the catalog and the executor.
type Database struct {
	provider storage.Provider
	cat      *catalog.Catalog
	exec     *executor.Executor
	closed   bool
}

// Open installs the logger described by cfg as the slog default, builds
// the storage provider and bootstraps the catalog on it.
func Open(cfg *internal.NovaHeapConfig) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.SetDefault(internal.NewLogger(cfg, os.Stderr))

	backend, err := storage.GetBackend(cfg.Storage.Backend)
	if err != nil {
		return nil, err
	}
	p, err := storage.NewProvider(backend, cfg.Storage.Dir, cfg.Storage.BlockSize, cfg.Storage.SegmentBlocks)
	if err != nil {
		return nil, err
	}
	slog.Info("engine: open",
		"backend", backend.String(),
		"dir", cfg.Storage.Dir,
		"block_size", cfg.Storage.BlockSize,
	)
	return OpenProvider(p, catalog.Options{CacheSize: cfg.Catalog.CacheSize})
}

// OpenProvider is Open over an existing provider.
func OpenProvider(p storage.Provider, opts catalog.Options) (*Database, error) {
	cat, err := catalog.Open(p, opts)
	if err != nil {
		return nil, err
	}
	return &Database{
		provider: p,
		cat:      cat,
		exec:     executor.NewExecutor(cat),
	}, nil
}

func (db *Database) Execute(stmt ast.Statement) (*executor.Result, error) {
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	return db.exec.Execute(stmt)
}

func (db *Database) Catalog() *catalog.Catalog   { return db.cat }
func (db *Database) Provider() storage.Provider { return db.provider }

func (db *Database) Close() error {
	if db.closed {
		return nil
	}
	db.closed = true
	return db.cat.Close()
}
