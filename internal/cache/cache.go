package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/todmy/faers-signals/internal/signal"
	"github.com/todmy/faers-signals/pkg/models"
)

// Cache stores analysis results keyed by the content hash of their inputs
type Cache interface {
	// Get retrieves a result; the bool reports a hit
	Get(ctx context.Context, key string) (*signal.Result, bool, error)

	// Set stores a result
	Set(ctx context.Context, key string, result *signal.Result) error
}

// Key derives a deterministic cache key from the query drug, the engine
// parameters and the case collection. Case order does not matter; any change
// to a case id, flag or term produces a different key.
func Key(drug string, cfg signal.Config, cases []models.Case) string {
	h := sha256.New()
	fmt.Fprintf(h, "drug=%s\nmin_count=%d\nalpha=%g\n", strings.ToLower(strings.TrimSpace(drug)), cfg.MinCount, cfg.Alpha)

	lines := make([]string, len(cases))
	for i, c := range cases {
		terms := append([]string(nil), c.EventTerms...)
		sort.Strings(terms)
		lines[i] = fmt.Sprintf("%s|%t|%t|%s", c.CaseID, c.IsQueryDrug, c.IsPrimarySuspectQueryDrug, strings.Join(terms, "\x1f"))
	}
	sort.Strings(lines)
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}

	return hex.EncodeToString(h.Sum(nil))[:32]
}

// NoOpCache is a cache that doesn't cache anything
type NoOpCache struct{}

func (c *NoOpCache) Get(ctx context.Context, key string) (*signal.Result, bool, error) {
	return nil, false, nil
}

func (c *NoOpCache) Set(ctx context.Context, key string, result *signal.Result) error {
	return nil
}
