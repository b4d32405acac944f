package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldops/workdesk/model"
)

// DedupStore suppresses repeat alerts. MarkIfNew records a key and
// reports whether it was the first occurrence; a false return means
// the same (order, class, day) alert was already sent.
type DedupStore interface {
	MarkIfNew(ctx context.Context, key model.AlertKey) (bool, error)
}

// keyTTL bounds how long a dedup mark survives. Keys embed the
// calendar day, so anything past two days is unreachable anyway.
const keyTTL = 48 * time.Hour

// --- MemoryDedupStore ---

// MemoryDedupStore is an in-memory DedupStore with TTL support.
// Suitable for testing and single-instance deployments.
type MemoryDedupStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryDedupStore creates a new in-memory dedup store.
func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// MarkIfNew records the key, returning true only on first sight.
func (s *MemoryDedupStore) MarkIfNew(_ context.Context, key model.AlertKey) (bool, error) {
	k := key.String()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expiresAt, exists := s.entries[k]; exists && now.Before(expiresAt) {
		return false, nil
	}
	s.entries[k] = now.Add(keyTTL)
	return true, nil
}

// Sweep drops expired entries. Called periodically so the map does not
// grow without bound.
func (s *MemoryDedupStore) Sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, expiresAt := range s.entries {
		if now.After(expiresAt) {
			delete(s.entries, k)
		}
	}
}

// Len returns the number of entries (including expired ones). For testing.
func (s *MemoryDedupStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// --- RedisDedupStore ---

// RedisDedupStore is a Redis-backed DedupStore. SetNX makes the
// first-occurrence check atomic across instances.
type RedisDedupStore struct {
	client redis.Cmdable
}

// NewRedisDedupStore creates a new Redis-backed dedup store.
func NewRedisDedupStore(client redis.Cmdable) *RedisDedupStore {
	return &RedisDedupStore{client: client}
}

// MarkIfNew records the key via SET NX, returning true only on first sight.
func (s *RedisDedupStore) MarkIfNew(ctx context.Context, key model.AlertKey) (bool, error) {
	k := key.String()
	first, err := s.client.SetNX(ctx, k, "1", keyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %q: %w", k, err)
	}
	return first, nil
}

// HealthCheck verifies Redis connectivity.
func (s *RedisDedupStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
