package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/metrics"
	"github.com/iliyamo/script-review-portal/internal/service"
)

const jobTimeout = 2 * time.Minute

// Scheduler wraps a cron runner whose jobs never overlap themselves.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  log,
	}
}

func (s *Scheduler) add(spec, name string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("job panicked", zap.String("job", name), zap.Any("panic", r))
			}
		}()
		start := time.Now()
		if err := fn(ctx); err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.log.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
	return err
}

// AddAudit schedules the integrity audit. Violations are logged per script
// and exported through the audit gauge.
func (s *Scheduler) AddAudit(spec string, src AuditSource) error {
	return s.add(spec, "integrity-audit", func(ctx context.Context) error {
		return RunAudit(ctx, src, s.log)
	})
}

// RunAudit performs one audit pass.
func RunAudit(ctx context.Context, src AuditSource, log *zap.Logger) error {
	rep, err := Audit(ctx, src)
	if err != nil {
		return err
	}
	metrics.AuditViolations.Set(float64(len(rep.Findings)))
	for _, f := range rep.Findings {
		log.Warn("integrity audit violation",
			zap.String("script_id", f.Row.Script.ID),
			zap.String("status", string(f.Row.Script.Status)),
			zap.String("review_status", string(f.Row.ReviewStatus)),
			zap.Strings("problems", f.Problems))
	}
	log.Info("integrity audit finished", zap.Int("scripts", len(rep.Rows)), zap.Int("violations", len(rep.Findings)))
	return nil
}

// AddDraftSweep schedules the eviction of idle rubric forms.
func (s *Scheduler) AddDraftSweep(spec string, drafts *service.DraftRegistry, idle time.Duration) error {
	return s.add(spec, "draft-sweep", func(ctx context.Context) error {
		if n := drafts.Sweep(ctx, idle); n > 0 {
			s.log.Info("idle drafts evicted", zap.Int("count", n))
		}
		return nil
	})
}

// TokenStore drops refresh tokens that can no longer be used.
type TokenStore interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// AddTokenCleanup schedules removal of refresh tokens dead for longer than
// grace. Recently revoked rows are kept for the logs.
func (s *Scheduler) AddTokenCleanup(spec string, tokens TokenStore, grace time.Duration) error {
	return s.add(spec, "token-cleanup", func(ctx context.Context) error {
		n, err := tokens.DeleteStale(ctx, time.Now().UTC().Add(-grace))
		if err != nil {
			return err
		}
		if n > 0 {
			s.log.Info("stale refresh tokens deleted", zap.Int64("count", n))
		}
		return nil
	})
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler: jobs still running at shutdown")
	}
}
