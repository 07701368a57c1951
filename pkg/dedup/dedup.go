package dedup

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by a Memory store after Close.
var ErrClosed = errors.New("dedup: store is closed")

// Store records processed keys.
//
// TTL semantics for Set: positive values expire the mark after that duration,
// zero uses the store's default TTL, and negative values keep it forever.
type Store interface {
	Has(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
