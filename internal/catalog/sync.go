package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Named configuration errors. Sync from a sheet without the URL configured is
// an operator problem, not a per-message runtime condition, so it surfaces to
// the caller instead of degrading.
var (
	ErrProfilesSheetURLMissing  = errors.New("catalog: profiles sheet CSV URL is not configured")
	ErrKnowledgeSheetURLMissing = errors.New("catalog: knowledge sheet CSV URL is not configured")
)

// SyncConfig holds the tabular sources for bulk sync.
type SyncConfig struct {
	ProfilesCSVPath   string
	KnowledgeCSVPath  string
	ProfilesSheetURL  string
	KnowledgeSheetURL string
}

// SyncSummary reports combined upsert counts plus the per-kind breakdown.
type SyncSummary struct {
	Imported  int           `json:"imported"`
	Updated   int           `json:"updated"`
	Failed    int           `json:"failed"`
	Profiles  UpsertSummary `json:"profiles"`
	Knowledge UpsertSummary `json:"knowledge"`
}

// Syncer loads profiles and knowledge items from CSV (local file or published
// sheet URL) and upserts them into the Store.
type Syncer struct {
	store  *Store
	cfg    SyncConfig
	client *http.Client
}

// NewSyncer creates a Syncer for the given store and sources.
func NewSyncer(store *Store, cfg SyncConfig) *Syncer {
	return &Syncer{
		store:  store,
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Sync loads both sources and upserts the normalized records. source is "csv"
// (local files, falling back to seed data when a file is absent) or "sheet"
// (published CSV URLs, which must be configured).
func (s *Syncer) Sync(ctx context.Context, source string) (SyncSummary, error) {
	if source != "sheet" {
		source = "csv"
	}

	profilesText, err := s.loadProfiles(ctx, source)
	if err != nil {
		return SyncSummary{}, err
	}
	knowledgeText, err := s.loadKnowledge(ctx, source)
	if err != nil {
		return SyncSummary{}, err
	}

	profileRows, err := parseCSV(profilesText)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("parse profiles csv: %w", err)
	}
	knowledgeRows, err := parseCSV(knowledgeText)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("parse knowledge csv: %w", err)
	}

	profiles := make([]Profile, 0, len(profileRows))
	for _, row := range profileRows {
		profiles = append(profiles, normalizeProfile(row))
	}
	items := make([]Item, 0, len(knowledgeRows))
	for _, row := range knowledgeRows {
		items = append(items, normalizeItem(row))
	}

	ps := s.store.UpsertProfiles(profiles)
	ks := s.store.UpsertItems(items)

	return SyncSummary{
		Imported:  ps.Imported + ks.Imported,
		Updated:   ps.Updated + ks.Updated,
		Failed:    ps.Failed + ks.Failed,
		Profiles:  ps,
		Knowledge: ks,
	}, nil
}

func (s *Syncer) loadProfiles(ctx context.Context, source string) (string, error) {
	if source == "sheet" {
		if s.cfg.ProfilesSheetURL == "" {
			return "", ErrProfilesSheetURLMissing
		}
		return s.fetch(ctx, s.cfg.ProfilesSheetURL)
	}
	return readFileOrSeed(s.cfg.ProfilesCSVPath, seedProfilesCSV)
}

func (s *Syncer) loadKnowledge(ctx context.Context, source string) (string, error) {
	if source == "sheet" {
		if s.cfg.KnowledgeSheetURL == "" {
			return "", ErrKnowledgeSheetURLMissing
		}
		return s.fetch(ctx, s.cfg.KnowledgeSheetURL)
	}
	return readFileOrSeed(s.cfg.KnowledgeCSVPath, seedKnowledgeCSV)
}

func (s *Syncer) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch csv: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch csv: %s returned %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read csv body: %w", err)
	}
	return string(body), nil
}

// readFileOrSeed reads a local CSV, substituting the built-in seed data when
// the file does not exist. Other filesystem errors propagate.
func readFileOrSeed(path, seed string) (string, error) {
	if path == "" {
		return seed, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return seed, nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

// parseCSV reads header-first CSV into header->value row maps.
func parseCSV(text string) ([]map[string]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[strings.TrimSpace(h)] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func normalizeProfile(row map[string]string) Profile {
	return Profile{
		UserID:       firstOf(row, "user_id", "line_user_id", "id"),
		DisplayName:  firstOf(row, "display_name", "name"),
		Language:     firstOf(row, "language_pref", "language"),
		InterestTags: parseTagList(firstOf(row, "interest_tags", "tags", "interests")),
		Location:     row["location"],
		CareerGoal:   firstOf(row, "career_goal", "goal"),
		UpdatedAt:    parseTime(row["updated_at"]),
	}
}

func normalizeItem(row map[string]string) Item {
	return Item{
		ID:          firstOf(row, "item_id", "id"),
		Category:    strings.ToLower(firstOf(row, "category")),
		Title:       row["title"],
		Summary:     firstOf(row, "summary", "description"),
		Eligibility: row["eligibility"],
		Location:    row["location"],
		Deadline:    parseDate(firstOf(row, "deadline_iso", "deadline")),
		URL:         firstOf(row, "url", "link"),
		Tags:        parseTagList(firstOf(row, "tags", "interest_tags")),
		Priority:    parsePriority(row["priority"]),
	}
}

func firstOf(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(row[k]); v != "" {
			return v
		}
	}
	return ""
}

var tagSplitRe = regexp.MustCompile(`[|,;]+`)

func parseTagList(value string) []string {
	if value == "" {
		return nil
	}
	var tags []string
	for _, t := range tagSplitRe.Split(value, -1) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func parsePriority(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseDate accepts either a bare date or a full RFC 3339 timestamp.
func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

// Seed data used when no local CSV has been provisioned yet, so a fresh
// deployment can answer something sensible before the first real sync.
const seedProfilesCSV = `user_id,display_name,language_pref,interest_tags,location,career_goal,updated_at
U1001,Yuki,ja,"audition|school|tokyo",Tokyo,voice actor,2026-02-01T00:00:00Z
U1002,Emma,en,"job|acting|online",Los Angeles,on-camera role,2026-02-01T00:00:00Z
U1003,Ren,ja,"job|commercial|osaka",Osaka,commercial talent,2026-02-01T00:00:00Z
`

const seedKnowledgeCSV = `item_id,category,title,summary,eligibility,location,deadline_iso,url,tags,priority
K001,audition,Tokyo Voice Audition 2026,Anime voice role shortlist,JP work permit required,Tokyo,2026-04-30,https://example.com/audition/tokyo-voice,"audition|tokyo|voice",3
K002,job,Remote Creator School Scholarship,Online training for creators,Beginner-friendly,Online,2026-05-20,https://example.com/school/creator-scholarship,"school|online|training",2
K003,job,Osaka Commercial Casting Call,Brand commercial shooting,Prior camera experience preferred,Osaka,2026-03-25,https://example.com/job/osaka-commercial,"job|commercial|osaka",2
K004,school,LA Weekend Acting Workshop,Short intensive acting workshop,English communication required,Los Angeles,2026-03-10,https://example.com/school/la-weekend,"school|acting|losangeles",1
`
