package coderelay

import (
	"context"
	"time"

	"github.com/franciscosanchezn/tg-game-api/internal/models"
)

// Store holds pending code-relay logins keyed by normalized username. Every method must
// be atomic with respect to a single key; implementations shared between processes
// (Redis) get this from server-side scripts.
type Store interface {
	// Put inserts or overwrites the record for rec.Username, expiring after ttl.
	Put(ctx context.Context, rec models.PendingAuthentication, ttl time.Duration) error
	// Get returns nil, nil when no live record exists.
	Get(ctx context.Context, username string) (*models.PendingAuthentication, error)
	// Attach sets code and platform id on an existing record without touching its
	// expiry. It reports false when there is nothing to attach to.
	Attach(ctx context.Context, username, code string, platformID int64) (bool, error)
	// DeleteIfMatches removes the record only if its code and expiry still equal the
	// given ones, and returns the removed record. A concurrent re-initiate or attach
	// makes it a no-op returning nil.
	DeleteIfMatches(ctx context.Context, username, code string, expiresAt time.Time) (*models.PendingAuthentication, error)
	// RecordFailure adds one wrong attempt to the record if its expiry still equals
	// expiresAt and returns the new count. A missing or replaced record yields 0.
	RecordFailure(ctx context.Context, username string, expiresAt time.Time) (int, error)
	// Len counts live records.
	Len(ctx context.Context) (int, error)
}
