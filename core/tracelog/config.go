package tracelog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/arbitrage/core/model"
)

// Config selects and configures the trace backend.
type Config struct {
	Backend    string `json:"backend"` // "", "none", "jsonl", "rotating" or "sqlite"
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// Validate checks the backend name and path.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "none":
		return nil
	case "jsonl", "rotating", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("trace: %s backend requires a path", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("trace: unknown backend %q", c.Backend)
	}
}

// Open builds the configured store. An empty backend yields a NopStore.
func Open(c Config) (Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var (
		s   Store
		err error
	)
	switch c.Backend {
	case "jsonl":
		s, err = NewJSONLStore(c.Path)
	case "rotating":
		size := c.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		s, err = NewRotatingJSONLStore(c.Path, size, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		s, err = NewSQLiteStore(c.Path)
	default:
		return NopStore{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s trace store: %w", c.Backend, err)
	}
	return s, nil
}

// Recorder appends each simulated step to a Store. It satisfies the
// simulation observer contract. The first append error is kept and later
// steps are skipped.
type Recorder struct {
	Ctx      context.Context
	Store    Store
	RunID    string
	Strategy string

	mu  sync.Mutex
	err error
}

// OnStep persists rec.
func (r *Recorder) OnStep(rec model.DispatchRecord, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	ctx := r.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	r.err = r.Store.Append(ctx, Entry{RunID: r.RunID, Strategy: r.Strategy, DispatchRecord: rec})
}

// Err returns the first append error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
