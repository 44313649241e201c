package metadata

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss indicates a cache has no stored result for a query.
var ErrCacheMiss = errors.New("metadata: cache miss")

// ResultCache stores resolved results keyed by Query.CacheKey. Fetch returns
// ErrCacheMiss when nothing is stored; any other error is treated as a miss
// by CacheHook and as a logged, non-fatal fault by the runner's write-back.
type ResultCache interface {
	Fetch(ctx context.Context, key string) (Result, error)
	Store(ctx context.Context, key string, result Result, ttl time.Duration) error
}
