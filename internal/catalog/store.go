package catalog

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Store holds profiles and knowledge items in memory. Reads during triage take
// the read lock; sync upserts item-by-item under the write lock, so a reader
// sees each record either before or after its upsert, never half-written.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	items    map[string]Item
}

// NewStore initializes an empty Store.
func NewStore() *Store {
	return &Store{
		profiles: make(map[string]Profile),
		items:    make(map[string]Item),
	}
}

// UpsertProfiles inserts or replaces profiles keyed by user ID. Profiles
// without a user ID are counted as failed and skipped.
func (s *Store) UpsertProfiles(profiles []Profile) UpsertSummary {
	var sum UpsertSummary

	for _, p := range profiles {
		p.UserID = strings.TrimSpace(p.UserID)
		if p.UserID == "" {
			sum.Failed++
			continue
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = time.Now()
		}

		s.mu.Lock()
		if _, ok := s.profiles[p.UserID]; ok {
			sum.Updated++
		} else {
			sum.Imported++
		}
		s.profiles[p.UserID] = p
		s.mu.Unlock()
	}

	return sum
}

// UpsertItems inserts or replaces knowledge items keyed by item ID. Items
// without a title are counted as failed and skipped. Priority is clamped to
// zero or above.
func (s *Store) UpsertItems(items []Item) UpsertSummary {
	var sum UpsertSummary

	for _, it := range items {
		if it.Title == "" {
			sum.Failed++
			continue
		}
		it.ID = strings.TrimSpace(it.ID)
		if it.ID == "" {
			it.ID = newID("knowledge")
		}
		it.Category = strings.ToLower(it.Category)
		if it.Category == "" {
			it.Category = "job"
		}
		if it.Priority < 0 {
			it.Priority = 0
		}

		s.mu.Lock()
		if _, ok := s.items[it.ID]; ok {
			sum.Updated++
		} else {
			sum.Imported++
		}
		s.items[it.ID] = it
		s.mu.Unlock()
	}

	return sum
}

// Profile looks up a profile by user ID.
func (s *Store) Profile(userID string) (*Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[strings.TrimSpace(userID)]
	if !ok {
		return nil, false
	}
	cp := p
	return &cp, true
}

// Query describes one knowledge search.
type Query struct {
	Text    string
	Profile *Profile
	Limit   int
	Now     time.Time
}

// scored pairs an item with its ranking score during search.
type scored struct {
	item  Item
	score float64
}

// Search ranks knowledge items against the query text and profile and returns
// the best matches, best first. Items whose deadline has passed relative to
// q.Now are excluded. The order is a deterministic total order: score
// descending, then earliest deadline (no deadline sorts last), then item ID.
func (s *Store) Search(q Query) []Item {
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}

	tokens := tokenize(q.Text)

	var profileTags []string
	var profileLocation string
	if q.Profile != nil {
		for _, t := range q.Profile.InterestTags {
			profileTags = append(profileTags, strings.ToLower(t))
		}
		profileLocation = strings.ToLower(strings.TrimSpace(q.Profile.Location))
	}

	s.mu.RLock()
	candidates := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		candidates = append(candidates, it)
	}
	s.mu.RUnlock()

	var results []scored
	for _, it := range candidates {
		if !it.Deadline.IsZero() && it.Deadline.Before(now) {
			continue
		}

		bag := strings.ToLower(strings.Join([]string{
			it.Category, it.Title, it.Summary, it.Eligibility, it.Location,
			strings.Join(it.Tags, " "),
		}, " "))

		var score float64
		for _, tok := range tokens {
			if strings.Contains(bag, tok) {
				score++
			}
		}

		itemTags := make(map[string]bool, len(it.Tags))
		for _, t := range it.Tags {
			itemTags[strings.ToLower(t)] = true
		}
		for _, t := range profileTags {
			if itemTags[t] {
				score += 2
			}
		}

		if profileLocation != "" && strings.Contains(strings.ToLower(it.Location), profileLocation) {
			score++
		}

		for _, tok := range tokens {
			if tok == it.Category {
				score += 2
				break
			}
		}

		score += float64(min(it.Priority, 3)) * 0.35

		if score > 0 {
			results = append(results, scored{item: it, score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.score != b.score {
			return a.score > b.score
		}
		ad, bd := deadlineKey(a.item.Deadline), deadlineKey(b.item.Deadline)
		if ad != bd {
			return ad < bd
		}
		return a.item.ID < b.item.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]Item, len(results))
	for i, r := range results {
		out[i] = r.item
	}
	return out
}

// deadlineKey maps a deadline to a sortable value with "no deadline" last.
func deadlineKey(d time.Time) int64 {
	if d.IsZero() {
		return int64(1)<<62 - 1
	}
	return d.UnixNano()
}

// tokenize lower-cases the text and splits it into word-like runs. Splitting
// on anything that is not a letter or digit keeps both Latin words and CJK
// runs intact as tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
