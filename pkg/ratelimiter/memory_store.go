package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// bucket represents a token bucket state.
type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time // Used by cleanup to identify stale buckets
}

// MemoryStore implements the Store interface using in-memory storage.
// Suitable for single-instance deployments and tests; multi-instance
// deployments should use the Redis store so limits apply cluster-wide.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemoryStore creates a new in-memory store. Stale buckets are removed
// in the background every cleanupInterval; pass 0 to disable cleanup.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*bucket),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

// ConsumeTokens attempts to consume tokens from the bucket.
func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	b, exists := ms.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     config.Capacity,
			lastRefill: now,
			lastAccess: now,
		}
		ms.buckets[key] = b
	}

	// Refill: add tokens for each whole interval elapsed, capped at capacity.
	elapsed := now.Sub(b.lastRefill)
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervalsElapsed := int(min(int64(elapsed/config.RefillInterval), maxIntervals))

	if intervalsElapsed > 0 {
		b.tokens = min(b.tokens+intervalsElapsed*config.RefillRate, config.Capacity)
		b.lastRefill = now
	}

	b.tokens -= tokens
	b.lastAccess = now

	return b.tokens, b.lastRefill.Add(config.RefillInterval), nil
}

// Reset clears the bucket for the given key.
func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.buckets, key)
	return nil
}

// Close stops the background cleanup goroutine.
func (ms *MemoryStore) Close() {
	ms.stopOnce.Do(func() { close(ms.stopCleanup) })
}

func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * ms.cleanupInterval)
			ms.mu.Lock()
			for key, b := range ms.buckets {
				if b.lastAccess.Before(cutoff) {
					delete(ms.buckets, key)
				}
			}
			ms.mu.Unlock()
		case <-ms.stopCleanup:
			return
		}
	}
}
