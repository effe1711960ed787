package coderelay

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/franciscosanchezn/tg-game-api/internal/models"
)

// MemoryStore keeps pending logins in process memory. The cache's expiration loop is
// the periodic sweep; the mutex makes read-modify-write operations atomic per key.
// It must not be used when more than one process serves logins.
type MemoryStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, models.PendingAuthentication]
}

// NewMemoryStore starts the expiration loop. Call Close to stop it.
func NewMemoryStore() *MemoryStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, models.PendingAuthentication](),
	)

	go cache.Start()

	return &MemoryStore{cache: cache}
}

func (s *MemoryStore) Put(_ context.Context, rec models.PendingAuthentication, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		s.cache.Delete(rec.Username)
		return nil
	}
	s.cache.Set(rec.Username, rec, ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, username string) (*models.PendingAuthentication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(username)
	if item == nil {
		return nil, nil
	}
	rec := item.Value()
	return &rec, nil
}

func (s *MemoryStore) Attach(_ context.Context, username, code string, platformID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(username)
	if item == nil {
		return false, nil
	}

	remaining := time.Until(item.ExpiresAt())
	if remaining <= 0 {
		return false, nil
	}

	rec := item.Value()
	rec.Code = code
	rec.PlatformID = platformID
	s.cache.Set(username, rec, remaining)
	return true, nil
}

func (s *MemoryStore) DeleteIfMatches(_ context.Context, username, code string, expiresAt time.Time) (*models.PendingAuthentication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(username)
	if item == nil {
		return nil, nil
	}

	rec := item.Value()
	if rec.Code != code || !rec.ExpiresAt.Equal(expiresAt) {
		return nil, nil
	}
	s.cache.Delete(username)
	return &rec, nil
}

func (s *MemoryStore) RecordFailure(_ context.Context, username string, expiresAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(username)
	if item == nil {
		return 0, nil
	}

	rec := item.Value()
	remaining := time.Until(item.ExpiresAt())
	if !rec.ExpiresAt.Equal(expiresAt) || remaining <= 0 {
		return 0, nil
	}
	rec.Attempts++
	s.cache.Set(username, rec, remaining)
	return rec.Attempts, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.cache.DeleteExpired()
	return s.cache.Len(), nil
}

// Close stops the expiration loop.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
