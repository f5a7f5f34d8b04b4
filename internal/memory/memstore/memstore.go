// Package memstore provides an in-process implementation of memory.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linnemanlabs/concierge/internal/memory"
)

// Store holds conversation entries in memory. Suitable for single-instance
// deployments and tests.
type Store struct {
	mu        sync.RWMutex
	retention time.Duration
	entries   []memory.Entry
}

// New initializes a Store with the given retention window.
func New(retention time.Duration) *Store {
	return &Store{retention: retention}
}

// Add appends an entry, filling generated fields when unset.
func (s *Store) Add(_ context.Context, e memory.Entry) (memory.Entry, error) {
	e = memory.Normalize(e, s.retention)

	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	return e, nil
}

// Recent returns up to limit unexpired entries for the user, newest first.
// Expired entries are skipped; they are reclaimed by Cleanup.
func (s *Store) Recent(_ context.Context, userID string, limit int) ([]memory.Entry, error) {
	if limit <= 0 {
		limit = 5
	}
	now := time.Now()

	s.mu.RLock()
	var out []memory.Entry
	for _, e := range s.entries {
		if e.UserID == userID && e.ExpiresAt.After(now) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Cleanup removes entries whose expiry is at or before now. The slice is
// swapped under the write lock, so concurrent readers see either the old or
// the new snapshot, never a partial purge.
func (s *Store) Cleanup(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0:0]
	for _, e := range s.entries {
		if e.ExpiresAt.After(now) {
			kept = append(kept, e)
		}
	}
	removed := len(s.entries) - len(kept)
	s.entries = kept
	return removed, nil
}
