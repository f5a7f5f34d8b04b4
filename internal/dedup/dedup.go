// Package dedup makes webhook re-delivery safe: an event id that was seen
// within its TTL is not processed again. Check and mark are one atomic
// operation so concurrent handlers for the same id cannot both pass.
package dedup

import (
	"context"
	"sync"
	"time"
)

// Guard is the idempotency contract.
//
// CheckAndMark reports whether the event id was already marked and, if not,
// marks it with the given TTL in the same step. Cleanup removes marks whose
// TTL has elapsed and reports how many were removed; backends with native
// key expiry report zero.
type Guard interface {
	CheckAndMark(ctx context.Context, eventID string, ttl time.Duration) (seen bool, err error)
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

// MemGuard is an in-process Guard.
type MemGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time // event id -> expiry
}

// NewMemGuard initializes an empty in-process guard.
func NewMemGuard() *MemGuard {
	return &MemGuard{seen: make(map[string]time.Time)}
}

// CheckAndMark implements Guard. The whole check-then-mark runs under one
// lock acquisition.
func (g *MemGuard) CheckAndMark(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if exp, ok := g.seen[eventID]; ok && exp.After(now) {
		return true, nil
	}
	g.seen[eventID] = now.Add(ttl)
	return false, nil
}

// Cleanup removes expired marks.
func (g *MemGuard) Cleanup(_ context.Context, now time.Time) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var removed int
	for id, exp := range g.seen {
		if !exp.After(now) {
			delete(g.seen, id)
			removed++
		}
	}
	return removed, nil
}
