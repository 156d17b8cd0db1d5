package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// Scheduler runs refresh cycles on a cron schedule. It shares nothing with
// the serve process except the database.
type Scheduler struct {
	cron     *cron.Cron
	ingester *Ingester
	logger   log.Logger
}

// NewScheduler creates a Scheduler around the given ingester.
func NewScheduler(ingester *Ingester, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		ingester: ingester,
		logger:   logger,
	}
}

// Start registers the refresh job under the given cron spec (e.g. "@hourly")
// and starts the schedule. A failed cycle is logged; the schedule keeps
// running.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		report, err := s.ingester.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled refresh failed",
				"error", err,
				"urls_fetched", report.URLsFetched)
			return
		}
		s.logger.Info("scheduled refresh succeeded",
			"chunks_written", report.ChunksWritten,
			"duration", report.Duration)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	s.cron.Start()
	s.logger.Info("refresh scheduler started", "spec", spec)
	return nil
}

// Stop halts the schedule and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("refresh scheduler stopped")
}
