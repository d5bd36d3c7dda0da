package snapshot

import (
	"fmt"

	"github.com/loykin/tracklink/internal/link"
)

// Config selects a snapshot backend.
type Config struct {
	Type string `toml:"type" yaml:"type" json:"type"` // "file" or "memory"
	Path string `toml:"path,omitempty" yaml:"path,omitempty" json:"path,omitempty"`
}

// Store persists the full link snapshot. The registry calls Save after every
// mutation (write-through) and Load exactly once at startup. Save always
// receives the whole mapping; backends overwrite their previous state rather
// than appending.
type Store interface {
	// Load returns the last saved snapshot, or an empty (non-nil) map when
	// nothing has been saved yet.
	Load() (map[string]*link.Link, error)
	// Save durably replaces the previous snapshot with snap.
	Save(snap map[string]*link.Link) error
	Close() error
}

// New builds a store from config. An empty type defaults to "file".
func New(cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("snapshot type file requires path")
		}
		return NewFileStore(cfg.Path), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot type: %s", cfg.Type)
	}
}
