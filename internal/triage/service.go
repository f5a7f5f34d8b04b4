package triage

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/concierge/internal/catalog"
	"github.com/linnemanlabs/concierge/internal/classify"
	"github.com/linnemanlabs/concierge/internal/dedup"
	"github.com/linnemanlabs/concierge/internal/escalate"
	"github.com/linnemanlabs/concierge/internal/memory"
	"github.com/linnemanlabs/concierge/internal/reply"
)

// Classifier determines the intent of a message.
type Classifier interface {
	Classify(ctx context.Context, in classify.Input) classify.Result
}

// Generator drafts the outgoing reply for each action branch.
type Generator interface {
	Answer(ctx context.Context, in reply.AnswerInput) string
	ClarifyingQuestion(userText, preferred string) string
	EscalationNotice(userText, preferred string) string
}

// Escalator records an escalation and notifies the manager.
type Escalator interface {
	Escalate(ctx context.Context, item *escalate.Item, intent string, confidence float64)
}

// Service is the business boundary for inquiry triage.
type Service struct {
	catalog    *catalog.Store
	memory     memory.Store
	guard      dedup.Guard
	classifier Classifier
	generator  Generator
	escalator  Escalator
	thresholds Thresholds
	dedupTTL   time.Duration
	metrics    *Metrics
	logger     log.Logger

	userLocks [userLockShards]sync.Mutex
}

const userLockShards = 256

// NewService creates an inquiry triage service. escalator may be nil when no
// escalation channel is configured; metrics may be nil.
func NewService(
	cat *catalog.Store,
	mem memory.Store,
	guard dedup.Guard,
	classifier Classifier,
	generator Generator,
	escalator Escalator,
	thresholds Thresholds,
	dedupTTL time.Duration,
	metrics *Metrics,
	logger log.Logger,
) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		catalog:    cat,
		memory:     mem,
		guard:      guard,
		classifier: classifier,
		generator:  generator,
		escalator:  escalator,
		thresholds: thresholds,
		dedupTTL:   dedupTTL,
		metrics:    metrics,
		logger:     logger,
	}
}

// userLock returns the mutex serializing all handling for one user id.
// Callers may fan out across users, but check-then-mark and
// read-then-append for a single user must never interleave. The table is
// sharded by hash so it stays fixed-size no matter how many users are
// seen; a shard collision only over-serializes two users for one turn.
func (s *Service) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.userLocks[h.Sum32()%userLockShards]
}

// Handle runs one event through the pipeline: dedup, classification,
// knowledge lookup, confidence policy, reply drafting, and conversation
// logging. The returned Result carries the reply text; delivery is the
// caller's job.
func (s *Service) Handle(ctx context.Context, ev Event) (*Result, error) {
	// A zero or pre-epoch timestamp (missing field upstream) would make
	// deadline filtering see 1970 and resurrect expired knowledge items.
	if ev.Timestamp.Unix() <= 0 {
		ev.Timestamp = time.Now()
	}

	eventID := s.eventID(ev)

	text := strings.TrimSpace(ev.Text)
	if ev.UserID == "" || text == "" {
		s.observeStatus(StatusIgnored)
		return &Result{Status: StatusIgnored, Reason: "non_text_or_missing_user", EventID: eventID}, nil
	}

	l := s.userLock(ev.UserID)
	l.Lock()
	defer l.Unlock()

	seen, err := s.guard.CheckAndMark(ctx, eventID, s.dedupTTL)
	if err != nil {
		// fail open: processing a rare duplicate beats dropping a real inquiry
		s.logger.Warn(ctx, "dedup guard unavailable", "event_id", eventID, "error", err.Error())
	}
	if seen {
		s.observeStatus(StatusDuplicate)
		return &Result{Status: StatusDuplicate, EventID: eventID}, nil
	}

	if normalized := strings.ToLower(text); normalized == "whoami" || normalized == "/whoami" {
		return s.handleWhoami(ctx, ev, eventID)
	}

	profile := s.profile(ev.UserID)
	recent := s.recent(ctx, ev.UserID)

	classification := s.classifier.Classify(ctx, classify.Input{
		Message: ev.Text,
		Profile: profile,
		Recent:  recent,
	})
	if s.metrics != nil {
		s.metrics.Classifications.WithLabelValues(string(classification.Intent), classification.Source).Inc()
		if classification.Degraded {
			s.metrics.ClassifierFallbacks.Inc()
		}
	}

	matches := s.catalog.Search(catalog.Query{Text: ev.Text, Profile: profile, Limit: 5, Now: ev.Timestamp})
	confidence := ComputeConfidence(classification, matches, profile)

	alreadyClarified := false
	for _, e := range recent {
		if e.Action == memory.ActionClarified {
			alreadyClarified = true
			break
		}
	}

	action := DecideAction(confidence, classification.Intent, classification.Sensitive, alreadyClarified, s.thresholds)

	language := ""
	if profile != nil {
		language = profile.Language
	}

	var replyText string
	var escalation *escalate.Item
	switch action {
	case ActionAnswer:
		replyText = s.generator.Answer(ctx, reply.AnswerInput{
			UserText: ev.Text,
			Language: language,
			Profile:  profile,
			Intent:   classification.Intent,
			Matches:  matches,
		})
	case ActionClarify:
		replyText = s.generator.ClarifyingQuestion(ev.Text, language)
	case ActionEscalate:
		replyText = s.generator.EscalationNotice(ev.Text, language)

		suggested := ""
		reason := escalate.ReasonLowConfidence
		if classification.Sensitive {
			reason = escalate.ReasonSensitive
		} else {
			suggested = s.generator.Answer(ctx, reply.AnswerInput{
				UserText: ev.Text,
				Language: language,
				Profile:  profile,
				Intent:   classification.Intent,
				Matches:  matches,
			})
		}
		escalation = escalate.NewItem(ev.UserID, ev.Text, reason, suggested)
		if s.escalator != nil {
			s.escalator.Escalate(ctx, escalation, string(classification.Intent), confidence)
		}
		if s.metrics != nil {
			s.metrics.Escalations.WithLabelValues(reason).Inc()
		}
	}

	entry := s.addLog(ctx, memory.Entry{
		UserID:        ev.UserID,
		UserText:      ev.Text,
		AssistantText: replyText,
		Intent:        string(classification.Intent),
		Confidence:    confidence,
		Action:        logAction(action),
	})

	s.observeStatus(StatusProcessed)
	if s.metrics != nil {
		s.metrics.Actions.WithLabelValues(string(action)).Inc()
		s.metrics.Confidence.Observe(confidence)
	}
	s.logger.Info(ctx, "inquiry processed",
		"event_id", eventID,
		"intent", string(classification.Intent),
		"action", string(action),
		"confidence", confidence,
		"matches", len(matches),
		"degraded", classification.Degraded,
	)

	return &Result{
		Status:         StatusProcessed,
		EventID:        eventID,
		Action:         action,
		ReplyText:      replyText,
		Confidence:     confidence,
		Classification: classification,
		Profile:        profile,
		Matches:        matches,
		Escalation:     escalation,
		Log:            entry,
	}, nil
}

func (s *Service) handleWhoami(ctx context.Context, ev Event, eventID string) (*Result, error) {
	replyText := fmt.Sprintf("Your LINE userId:\n%s", ev.UserID)

	entry := s.addLog(ctx, memory.Entry{
		UserID:        ev.UserID,
		UserText:      ev.Text,
		AssistantText: replyText,
		Intent:        string(classify.IntentWhoami),
		Confidence:    1,
		Action:        memory.ActionAnswered,
	})

	s.observeStatus(StatusProcessed)
	if s.metrics != nil {
		s.metrics.Actions.WithLabelValues(string(ActionAnswer)).Inc()
	}

	return &Result{
		Status:     StatusProcessed,
		EventID:    eventID,
		Action:     ActionAnswer,
		ReplyText:  replyText,
		Confidence: 1,
		Classification: classify.Result{
			Intent:     classify.IntentWhoami,
			Confidence: 1,
			Source:     classify.SourceHeuristic,
			Reason:     "utility command",
		},
		Profile: s.profile(ev.UserID),
		Matches: []catalog.Item{},
		Log:     entry,
	}, nil
}

func (s *Service) eventID(ev Event) string {
	if ev.ID != "" {
		return ev.ID
	}
	userID := ev.UserID
	if userID == "" {
		userID = "unknown"
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("%s:%d", userID, ts.UnixMilli())
}

func (s *Service) profile(userID string) *catalog.Profile {
	if p, ok := s.catalog.Profile(userID); ok {
		return p
	}
	return nil
}

func (s *Service) recent(ctx context.Context, userID string) []memory.Entry {
	recent, err := s.memory.Recent(ctx, userID, 5)
	if err != nil {
		s.logger.Warn(ctx, "recent context unavailable", "user_id", userID, "error", err.Error())
		return nil
	}
	return recent
}

func (s *Service) addLog(ctx context.Context, e memory.Entry) *memory.Entry {
	saved, err := s.memory.Add(ctx, e)
	if err != nil {
		s.logger.Error(ctx, err, "conversation log write failed", "user_id", e.UserID)
		return nil
	}
	return &saved
}

func (s *Service) observeStatus(st Status) {
	if s.metrics != nil {
		s.metrics.Events.WithLabelValues(string(st)).Inc()
	}
}

func logAction(a Action) string {
	switch a {
	case ActionAnswer:
		return memory.ActionAnswered
	case ActionClarify:
		return memory.ActionClarified
	default:
		return memory.ActionEscalated
	}
}
