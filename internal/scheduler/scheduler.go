package scheduler

import (
	"context"
	"fmt"

	"stockfeed/internal/ingest"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers ingestion runs on a cron schedule for daemon mode.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *ingest.Orchestrator
	opts         ingest.Options
	logger       *zap.Logger
}

func New(orchestrator *ingest.Orchestrator, opts ingest.Options, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithSeconds()),
		orchestrator: orchestrator,
		opts:         opts,
		logger:       logger,
	}
}

// Register adds the ingestion job under the given cron spec (with seconds).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runIngestion); err != nil {
		return fmt.Errorf("register ingestion task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

// RunNow executes the ingestion job immediately, outside the schedule.
func (s *Scheduler) RunNow() {
	s.runIngestion()
}

func (s *Scheduler) runIngestion() {
	s.logger.Info("scheduled ingestion triggered")

	summary, err := s.orchestrator.Run(context.Background(), s.opts)
	if err != nil {
		s.logger.Error("scheduled ingestion failed", zap.Error(err))
		return
	}

	s.logger.Info("scheduled ingestion finished",
		zap.Int("symbols", len(summary.Results)),
		zap.Int("failed_symbols", summary.FailedSymbols()),
		zap.Int("imported", summary.Imported()),
	)
}
