// Package worker implements the buffered worker pool behind ingestion.
// Match updates are enqueued as jobs and drained in batches, so a full
// season resync never blocks the sync loop on feature computation.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/features"
	"github.com/matchpulse/predict-api/internal/models"
)

var (
	jobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchpulse_feature_jobs_enqueued_total",
		Help: "Total number of feature build jobs enqueued",
	})

	jobsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchpulse_feature_jobs_processed_total",
		Help: "Total number of feature build jobs completed",
	})

	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchpulse_feature_jobs_failed_total",
		Help: "Total number of feature build jobs that failed",
	})

	jobsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchpulse_feature_jobs_dropped_total",
		Help: "Total number of feature build jobs dropped during shutdown",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchpulse_feature_queue_depth",
		Help: "Current depth of the feature build queue",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "matchpulse_feature_batch_duration_seconds",
		Help:    "Duration of feature build batches",
		Buckets: prometheus.DefBuckets,
	})
)

// Job asks for the feature vector of one match to be (re)built.
type Job struct {
	Match     models.Match
	Timestamp time.Time
}

// FeatureBuilder computes and persists per-match feature vectors.
type FeatureBuilder interface {
	Build(ctx context.Context, m *models.Match) (*features.Row, error)
	Upsert(ctx context.Context, row *features.Row) error
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	Builder       FeatureBuilder
	Logger        *zap.Logger
}

// Pool drains feature build jobs in batches.
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
}

func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4096
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	go p.reportQueueDepth()

	p.logger.Infow("worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop drains the queue and waits for in-flight batches to flush.
func (p *Pool) Stop() {
	p.logger.Info("stopping worker pool")
	p.cancel()
	close(p.jobQueue)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// Enqueue schedules a feature rebuild for a match.
func (p *Pool) Enqueue(m models.Match) bool {
	// protect against sending on a closed channel during shutdown
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("failed to enqueue job, pool stopped", "match_id", m.ID)
		}
	}()

	// nil until Start; a nil channel never fires in the select
	var stopped <-chan struct{}
	if p.ctx != nil {
		stopped = p.ctx.Done()
	}

	select {
	case p.jobQueue <- Job{Match: m, Timestamp: time.Now()}:
		jobsEnqueued.Inc()
		return true
	case <-stopped:
		jobsDropped.Inc()
		return false
	default:
		// queue full; the scheduler re-enqueues on the next sync pass
		jobsDropped.Inc()
		return false
	}
}

// QueueDepth returns the current queue size.
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]Job, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		failed := p.processBatch(batch)
		batchDuration.Observe(time.Since(start).Seconds())
		jobsProcessed.Add(float64(len(batch) - failed))
		if failed > 0 {
			jobsFailed.Add(float64(failed))
			p.logger.Warnw("batch finished with failures",
				"worker", id, "batch", len(batch), "failed", failed)
		}
		batch = batch[:0]
	}

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, job)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-p.ctx.Done():
			flush()
			return
		}
	}
}

// processBatch rebuilds features for each distinct match in the batch and
// returns the failure count. Shutdown must still flush, so the batch runs on
// a fresh context.
func (p *Pool) processBatch(batch []Job) int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seen := make(map[int64]bool, len(batch))
	var failed int
	for _, job := range batch {
		if seen[job.Match.ID] {
			continue
		}
		seen[job.Match.ID] = true

		row, err := p.config.Builder.Build(ctx, &job.Match)
		if err != nil {
			p.logger.Errorw("feature build failed", "match_id", job.Match.ID, "error", err)
			failed++
			continue
		}
		if err := p.config.Builder.Upsert(ctx, row); err != nil {
			p.logger.Errorw("feature upsert failed", "match_id", job.Match.ID, "error", err)
			failed++
		}
	}
	return failed
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
