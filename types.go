// Package novaheap is the top-level facade for the novaheap engine.
package novaheap

import "github.com/tuannm99/novaheap/internal/engine"

type Database = engine.Database

// Open opens the database described by the YAML config at path; an empty
// path uses the defaults plus NOVAHEAP_* environment overrides.
func Open(path string) (*Database, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	return engine.Open(cfg)
}
