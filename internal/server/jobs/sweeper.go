// Package jobs contains background maintenance tasks run on a schedule.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/anandakmagar/authguard/internal/logging"
)

// Purger removes expired records and reports how many were deleted.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically purges expired password reset codes. Expiry is always
// enforced on presentation as well, so the sweep is pure housekeeping.
type Sweeper struct {
	cron   *cron.Cron
	purger Purger
	spec   string
	logger logging.Logger
}

// NewSweeper constructs a sweeper with a cron schedule spec such as
// "@every 10m".
func NewSweeper(purger Purger, spec string, logger logging.Logger) *Sweeper {
	return &Sweeper{
		cron:   cron.New(),
		purger: purger,
		spec:   spec,
		logger: logger.With("module", "sweeper"),
	}
}

// Run installs the schedule and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.sweep(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info(ctx, "sweeper started", "schedule", s.spec)

	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info(ctx, "sweeper stopped")
	return nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error(ctx, "purge failed", "error", err.Error())
		return
	}
	if n > 0 {
		s.logger.Info(ctx, "expired reset codes purged", "count", n)
	}
}
