package cache

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/todmy/faers-signals/internal/signal"
)

// Tiered checks a fast cache before a shared one and back-fills the fast tier on hits.
// Errors from the shared tier are logged and treated as misses.
type Tiered struct {
	memory Cache
	shared Cache
	logger *logrus.Logger
}

// NewTiered creates a two-level cache
func NewTiered(memory, shared Cache, logger *logrus.Logger) *Tiered {
	return &Tiered{
		memory: memory,
		shared: shared,
		logger: logger,
	}
}

// Get retrieves a result from the first tier that has it
func (t *Tiered) Get(ctx context.Context, key string) (*signal.Result, bool, error) {
	if result, ok, _ := t.memory.Get(ctx, key); ok {
		return result, true, nil
	}

	result, ok, err := t.shared.Get(ctx, key)
	if err != nil {
		t.logger.WithError(err).WithField("cache_key", key).Warn("Shared cache read failed")
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}

	_ = t.memory.Set(ctx, key, result)
	return result, true, nil
}

// Set stores a result in both tiers
func (t *Tiered) Set(ctx context.Context, key string, result *signal.Result) error {
	_ = t.memory.Set(ctx, key, result)
	if err := t.shared.Set(ctx, key, result); err != nil {
		t.logger.WithError(err).WithField("cache_key", key).Warn("Shared cache write failed")
	}
	return nil
}
