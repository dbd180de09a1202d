// Package ratelimit provides fixed-window request counting behind a
// pluggable store, so single-instance deployments can run on process
// memory while horizontally scaled ones swap in the redis-backed store
// without touching callers.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Store counts requests per key in fixed windows. The first request in a
// window starts it; counts do not carry over between windows, which permits
// up to 2x burst at the boundary — accepted for simplicity.
type Store interface {
	CheckAndConsume(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

type windowEntry struct {
	count     int
	resetTime time.Time
}

// MemoryStore keeps windows in process memory. Entries are created lazily
// and deleted by a periodic sweep once their window has passed. Per-process
// state means best-effort protection only when running multiple instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*windowEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	go s.sweep(sweepInterval)
	return s
}

func (s *MemoryStore) CheckAndConsume(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if !ok || now.After(e.resetTime) {
		e = &windowEntry{count: 0, resetTime: now.Add(window)}
		s.entries[key] = e
	}

	e.count++
	remaining := limit - e.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   e.count <= limit,
		Remaining: remaining,
		ResetIn:   e.resetTime.Sub(now),
	}, nil
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.resetTime) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the sweep goroutine.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}
