// Package retention removes expired conversation log entries and dedup
// marks, on demand and on a cron schedule.
package retention

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	rcron "github.com/robfig/cron/v3"

	"github.com/linnemanlabs/concierge/internal/dedup"
	"github.com/linnemanlabs/concierge/internal/memory"
)

// Summary reports one cleanup pass.
type Summary struct {
	RemovedLogs  int `json:"removed_logs"`
	RemovedDedup int `json:"removed_dedup"`
}

// Service sweeps expired entries out of the conversation log and dedup guard.
type Service struct {
	memory memory.Store
	guard  dedup.Guard
	log    log.Logger
}

// NewService creates a retention service.
func NewService(mem memory.Store, guard dedup.Guard, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{memory: mem, guard: guard, log: logger}
}

// Cleanup removes everything expired as of now. Backends with native expiry
// report zero removals.
func (s *Service) Cleanup(ctx context.Context, now time.Time) (Summary, error) {
	removedLogs, err := s.memory.Cleanup(ctx, now)
	if err != nil {
		return Summary{}, err
	}
	removedDedup, err := s.guard.Cleanup(ctx, now)
	if err != nil {
		return Summary{RemovedLogs: removedLogs}, err
	}
	return Summary{RemovedLogs: removedLogs, RemovedDedup: removedDedup}, nil
}

// Scheduler runs Cleanup on a cron schedule.
type Scheduler struct {
	cron *rcron.Cron
	log  log.Logger
}

// NewScheduler creates a scheduler running svc.Cleanup per the cron spec
// (standard five-field syntax). Start it with Start; Stop waits for a running
// sweep to finish.
func NewScheduler(svc *Service, spec string, logger log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.Nop()
	}
	c := rcron.New()
	_, err := c.AddFunc(spec, func() {
		ctx := context.Background()
		summary, err := svc.Cleanup(ctx, time.Now())
		if err != nil {
			logger.Error(ctx, err, "scheduled retention sweep failed")
			return
		}
		logger.Info(ctx, "retention sweep complete",
			"removed_logs", summary.RemovedLogs,
			"removed_dedup", summary.RemovedDedup,
		)
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, log: logger}, nil
}

// Start begins running scheduled sweeps in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and blocks until any in-flight sweep completes.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
