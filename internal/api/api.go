// Package api exposes the HTTP surface: the LINE webhook, admin operations,
// and manager draft generation.
package api

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/concierge/internal/authmw"
	"github.com/linnemanlabs/concierge/internal/catalog"
	"github.com/linnemanlabs/concierge/internal/line"
	"github.com/linnemanlabs/concierge/internal/reply"
	"github.com/linnemanlabs/concierge/internal/retention"
	"github.com/linnemanlabs/concierge/internal/triage"
)

// TriageService defines the inquiry pipeline operation the webhook needs.
type TriageService interface {
	Handle(ctx context.Context, ev triage.Event) (*triage.Result, error)
}

// Sender delivers replies and pushes through the messaging API.
type Sender interface {
	ReplyText(ctx context.Context, replyToken, text string) (line.SendResult, error)
	PushText(ctx context.Context, to, text string) (line.SendResult, error)
}

// Syncer imports profiles and knowledge items from a source.
type Syncer interface {
	Sync(ctx context.Context, source string) (catalog.SyncSummary, error)
}

// RetentionService sweeps expired log entries and dedup marks.
type RetentionService interface {
	Cleanup(ctx context.Context, now time.Time) (retention.Summary, error)
}

// Drafter produces manager outreach draft candidates.
type Drafter interface {
	Drafts(ctx context.Context, in reply.DraftInput) []string
}

// Config carries the webhook and admin settings the handlers need.
type Config struct {
	ChannelSecret        string
	AllowUnsignedWebhook bool
	AdminAPIKey          string
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger    log.Logger
	svc       TriageService
	sender    Sender
	syncer    Syncer
	retention RetentionService
	drafter   Drafter
	cfg       Config
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService, sender Sender, syncer Syncer, ret RetentionService, drafter Drafter, cfg Config) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger:    logger,
		svc:       svc,
		sender:    sender,
		syncer:    syncer,
		retention: ret,
		drafter:   drafter,
		cfg:       cfg,
	}
}

// RegisterRoutes attaches API endpoints to the router. Admin and manager
// routes sit behind the x-admin-key check.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Post("/api/line/webhook", a.handleWebhook)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authmw.AdminKey(a.cfg.AdminAPIKey))
		r.Post("/line/push", a.handlePush)
		r.Post("/profiles/sync", a.handleSync)
		r.Post("/retention/cleanup", a.handleCleanup)
	})

	r.Route("/api/manager", func(r chi.Router) {
		r.Use(authmw.AdminKey(a.cfg.AdminAPIKey))
		r.Post("/draft-sentences", a.handleDraftSentences)
	})
}
