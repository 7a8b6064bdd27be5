package factory

import (
	"fmt"
	"sync"

	"github.com/indieinfra/ingest/config"
	"github.com/indieinfra/ingest/storage/report"
)

// Factory builds a session reporter for the provided report config.
type Factory func(*config.Report) (report.Reporter, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds or replaces a reporter factory for the given strategy name.
func Register(strategy string, factory Factory) {
	mu.Lock()
	registry[strategy] = factory
	mu.Unlock()
}

func Get(strategy string) (Factory, bool) {
	mu.RLock()
	f, ok := registry[strategy]
	mu.RUnlock()
	return f, ok
}

func Create(cfg *config.Report) (report.Reporter, error) {
	f, ok := Get(cfg.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown report strategy %q", cfg.Strategy)
	}
	return f(cfg)
}

func init() {
	Register("noop", func(cfg *config.Report) (report.Reporter, error) {
		return report.NoopReporter{}, nil
	})

	Register("sql", func(cfg *config.Report) (report.Reporter, error) {
		return report.NewSQLReporter(cfg.SQL)
	})

	Register("d1", func(cfg *config.Report) (report.Reporter, error) {
		return report.NewD1Reporter(cfg.D1)
	})
}
