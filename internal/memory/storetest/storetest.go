// Package storetest holds the contract test suite shared by every
// memory.Store implementation, so retention semantics are proven once and
// hold for each backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/concierge/internal/memory"
)

// Retention is the window factories should configure their store with.
const Retention = 30 * 24 * time.Hour

// Options adjusts the suite for backend capabilities.
type Options struct {
	// ReportsRemovals is false for backends that enforce expiry natively and
	// therefore report zero explicit removals from Cleanup.
	ReportsRemovals bool
}

// Factory builds a fresh store for one test.
type Factory func(t *testing.T) memory.Store

// Run executes the contract suite against the given factory.
func Run(t *testing.T, factory Factory, opts Options) {
	t.Run("AddFillsGeneratedFields", func(t *testing.T) {
		s := factory(t)
		got, err := s.Add(context.Background(), memory.Entry{UserID: "U1", UserText: "hi"})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if got.ID == "" {
			t.Error("expected generated ID")
		}
		if got.Timestamp.IsZero() {
			t.Error("expected generated timestamp")
		}
		if !got.ExpiresAt.After(got.Timestamp) {
			t.Errorf("expiry %v not after timestamp %v", got.ExpiresAt, got.Timestamp)
		}
		if want := got.Timestamp.Add(Retention); !got.ExpiresAt.Equal(want) {
			t.Errorf("expiry = %v, want timestamp+retention %v", got.ExpiresAt, want)
		}
	})

	t.Run("AddHonorsExpiryOverride", func(t *testing.T) {
		s := factory(t)
		override := time.Now().Add(time.Hour).Truncate(time.Microsecond)
		got, err := s.Add(context.Background(), memory.Entry{UserID: "U1", ExpiresAt: override})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if !got.ExpiresAt.Equal(override) {
			t.Errorf("expiry = %v, want override %v", got.ExpiresAt, override)
		}
	})

	t.Run("RecentNewestFirstWithLimit", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		base := time.Now().Add(-time.Minute)
		for i := range 4 {
			_, err := s.Add(ctx, memory.Entry{
				ID:        fmt.Sprintf("m-%d", i),
				UserID:    "U1",
				Timestamp: base.Add(time.Duration(i) * time.Second),
				UserText:  fmt.Sprintf("turn %d", i),
			})
			if err != nil {
				t.Fatalf("Add %d: %v", i, err)
			}
		}
		_, _ = s.Add(ctx, memory.Entry{ID: "other", UserID: "U2", Timestamp: base})

		got, err := s.Recent(ctx, "U1", 3)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		for i, want := range []string{"m-3", "m-2", "m-1"} {
			if got[i].ID != want {
				t.Errorf("got[%d] = %s, want %s", i, got[i].ID, want)
			}
		}
	})

	t.Run("RecentSkipsExpired", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		_, _ = s.Add(ctx, memory.Entry{ID: "dead", UserID: "U1", ExpiresAt: time.Now().Add(-time.Minute)})
		_, _ = s.Add(ctx, memory.Entry{ID: "live", UserID: "U1"})

		got, err := s.Recent(ctx, "U1", 10)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(got) != 1 || got[0].ID != "live" {
			t.Errorf("got %v, want only the live entry", got)
		}
	})

	t.Run("CleanupRemovesOnlyExpired", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		now := time.Now()
		_, _ = s.Add(ctx, memory.Entry{ID: "dead-1", UserID: "U1", ExpiresAt: now.Add(-time.Hour)})
		_, _ = s.Add(ctx, memory.Entry{ID: "dead-2", UserID: "U2", ExpiresAt: now.Add(-time.Minute)})
		_, _ = s.Add(ctx, memory.Entry{ID: "live", UserID: "U1", ExpiresAt: now.Add(time.Hour)})

		removed, err := s.Cleanup(ctx, now)
		if err != nil {
			t.Fatalf("Cleanup: %v", err)
		}
		if opts.ReportsRemovals && removed != 2 {
			t.Errorf("removed = %d, want 2", removed)
		}
		if !opts.ReportsRemovals && removed != 0 {
			t.Errorf("removed = %d, want 0 for native-expiry backend", removed)
		}

		got, err := s.Recent(ctx, "U1", 10)
		if err != nil {
			t.Fatalf("Recent: %v", err)
		}
		if len(got) != 1 || got[0].ID != "live" {
			t.Errorf("got %v, want only the live entry after cleanup", got)
		}

		// Idempotent: a second run removes nothing.
		removed, err = s.Cleanup(ctx, now)
		if err != nil {
			t.Fatalf("Cleanup again: %v", err)
		}
		if removed != 0 {
			t.Errorf("second cleanup removed = %d, want 0", removed)
		}
	})

	t.Run("CleanupConcurrentWithReads", func(t *testing.T) {
		s := factory(t)
		ctx := context.Background()
		for i := range 50 {
			exp := time.Now().Add(time.Hour)
			if i%2 == 0 {
				exp = time.Now().Add(-time.Hour)
			}
			_, _ = s.Add(ctx, memory.Entry{ID: fmt.Sprintf("c-%d", i), UserID: "U1", ExpiresAt: exp})
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 20 {
				_, _ = s.Cleanup(ctx, time.Now())
			}
		}()
		go func() {
			defer wg.Done()
			for range 20 {
				entries, err := s.Recent(ctx, "U1", 50)
				if err != nil {
					continue
				}
				for _, e := range entries {
					if !e.ExpiresAt.After(time.Now().Add(-time.Second)) {
						t.Error("reader observed an expired entry")
						return
					}
				}
			}
		}()
		wg.Wait()
	})
}
