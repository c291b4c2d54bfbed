package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"cv-tailor/internal/shared/metrics"
	"cv-tailor/internal/shared/telemetry"
)

const (
	DefaultTTL           = time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// Sweeper periodically removes expired sessions from a Store.
type Sweeper struct {
	store    Store
	ttl      time.Duration
	interval time.Duration
	cron     *cron.Cron
}

// NewSweeper constructs a Sweeper. Zero durations take the defaults.
func NewSweeper(store Store, ttl, interval time.Duration) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start schedules the sweep job.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.SweepOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	s.cron.Start()
	telemetry.Info("sessions.sweeper_started", map[string]any{
		"ttl":      s.ttl.String(),
		"interval": s.interval.String(),
	})
	return nil
}

// Stop waits for a running sweep to finish, then sweeps one last time.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.SweepOnce(ctx)
}

// SweepOnce runs a single sweep and returns the number of removed sessions.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	removed, err := s.store.Sweep(ctx, s.ttl)
	if err != nil {
		telemetry.Error("sessions.sweep_failed", map[string]any{"error": err.Error()})
		return 0
	}
	if removed > 0 {
		metrics.AddSessionsSwept(removed)
		telemetry.Info("sessions.sweep", map[string]any{"removed": removed})
	}
	return removed
}
