// Package scheduler runs the renewal sweep on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron"
)

// Sweeper runs one renewal sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (*services.SweepReport, error)
}

// Scheduler triggers Sweeper on a cron spec in UTC. Ticks that fire while a
// sweep is still running are dropped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	running atomic.Bool
}

func New(spec string, sweeper Sweeper) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.NewWithLocation(time.UTC),
		sweeper: sweeper,
		timeout: 30 * time.Minute,
	}
	if err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, errors.Wrapf(err, "invalid sweep schedule %q", spec)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("renewal scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("renewal scheduler stopped")
}

func (s *Scheduler) tick() {
	s.runOnce(context.Background())
}

// runOnce returns false when another sweep was in progress.
func (s *Scheduler) runOnce(parent context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		slog.Warn("renewal sweep still running, skipping tick")
		return false
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		slog.Error("renewal sweep failed", "action", "auto_renew", "error", err.Error())
		sentry.CaptureException(err)
	}
	return true
}
