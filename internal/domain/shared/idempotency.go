package shared

import (
	"context"
	"time"
)

// IdempotencyStore marks keys as claimed for a bounded time.
// The rate synchronizer uses it so that only one instance fetches a given day.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl.
	// Returns true if the key was newly claimed, false if it was already held.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if key is currently claimed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so the next attempt can proceed
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
