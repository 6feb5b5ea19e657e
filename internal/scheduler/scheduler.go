// Package scheduler runs the recurring background jobs: provider syncs and
// the nightly accuracy check that retrains the model when it drifts.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/ingest"
	"github.com/matchpulse/predict-api/internal/models"
)

// Syncer pulls provider data for the configured seasons.
type Syncer interface {
	SyncAll(ctx context.Context, competition string, seasons []int) ([]ingest.Result, error)
}

// Retrainer is the auto-retrain policy entry point.
type Retrainer interface {
	AutoRetrain(ctx context.Context) (*models.RetrainResult, error)
}

const jobTimeout = 15 * time.Minute

type Config struct {
	IngestCron  string
	AnalyzeCron string
	Competition string
	Seasons     []int
}

// Scheduler owns the cron loop. Jobs get their own timeout contexts so a
// stuck provider call cannot wedge the schedule.
type Scheduler struct {
	cfg     Config
	sync    Syncer
	retrain Retrainer
	cron    *cron.Cron
	logger  *zap.SugaredLogger
}

func New(cfg Config, sync Syncer, retrain Retrainer, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		sync:    sync,
		retrain: retrain,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.IngestCron, s.runSync); err != nil {
		return fmt.Errorf("schedule ingest job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.AnalyzeCron, s.runAutoRetrain); err != nil {
		return fmt.Errorf("schedule analyze job: %w", err)
	}

	s.cron.Start()
	s.logger.Infow("scheduler started",
		"ingest_cron", s.cfg.IngestCron,
		"analyze_cron", s.cfg.AnalyzeCron)
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Infow("scheduler stopped")
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	results, err := s.sync.SyncAll(ctx, s.cfg.Competition, s.cfg.Seasons)
	if err != nil {
		s.logger.Errorw("scheduled sync failed", "error", err)
		return
	}
	for _, res := range results {
		s.logger.Infow("scheduled sync finished",
			"season", res.Season,
			"fetched", res.Fetched,
			"inserted", res.Inserted,
			"updated", res.Updated,
			"enqueued", res.Enqueued)
	}
}

func (s *Scheduler) runAutoRetrain() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result, err := s.retrain.AutoRetrain(ctx)
	if err != nil {
		s.logger.Errorw("auto-retrain failed", "error", err)
		return
	}
	if result == nil {
		s.logger.Infow("auto-retrain skipped, recent accuracy above floor")
		return
	}
	s.logger.Infow("auto-retrain finished",
		"algorithm", result.Algorithm,
		"new_version", result.NewVersion,
		"promoted", result.Promoted,
		"val_accuracy", result.NewMetrics.ValAccuracy)
}
