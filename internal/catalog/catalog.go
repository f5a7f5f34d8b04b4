// Package catalog holds the talent profiles and knowledge items that triage
// reads. It is read-mostly: writes happen only through bulk sync upserts.
package catalog

import "time"

// Profile is a talent profile keyed by channel user ID.
type Profile struct {
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Language     string    `json:"language_pref"`
	InterestTags []string  `json:"interest_tags"`
	Location     string    `json:"location"`
	CareerGoal   string    `json:"career_goal"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Item is a knowledge entry: a job, audition, school, or similar opportunity.
// A zero Deadline means the item never expires.
type Item struct {
	ID          string    `json:"item_id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Eligibility string    `json:"eligibility"`
	Location    string    `json:"location"`
	Deadline    time.Time `json:"deadline,omitempty"`
	URL         string    `json:"url"`
	Tags        []string  `json:"tags"`
	Priority    int       `json:"priority"`
}

// UpsertSummary reports the outcome of a bulk upsert.
type UpsertSummary struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}
