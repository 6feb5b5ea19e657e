package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/features"
	"github.com/matchpulse/predict-api/internal/models"
)

// mockBuilder records which matches were built and upserted.
type mockBuilder struct {
	mu       sync.Mutex
	built    []int64
	upserted []int64
	buildErr error
}

func (m *mockBuilder) Build(_ context.Context, match *models.Match) (*features.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buildErr != nil {
		return nil, m.buildErr
	}
	m.built = append(m.built, match.ID)
	return &features.Row{MatchID: match.ID, SchemaVersion: features.SchemaVersion}, nil
}

func (m *mockBuilder) Upsert(_ context.Context, row *features.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, row.MatchID)
	return nil
}

func (m *mockBuilder) upsertedIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.upserted))
	copy(out, m.upserted)
	return out
}

// newTestPool builds a pool without starting workers, so queue behavior can
// be tested in isolation.
func newTestPool(cfg PoolConfig) *Pool {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	pool := &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
	pool.ctx, pool.cancel = context.WithCancel(context.Background())
	return pool
}

func TestEnqueueFull(t *testing.T) {
	pool := newTestPool(PoolConfig{QueueSize: 1})
	defer pool.cancel()

	if !pool.Enqueue(models.Match{ID: 1}) {
		t.Fatal("failed to enqueue first job")
	}

	start := time.Now()
	enqueued := pool.Enqueue(models.Match{ID: 2})
	elapsed := time.Since(start)

	if enqueued {
		t.Error("Enqueue should return false when queue is full")
	}
	if elapsed > 10*time.Millisecond {
		t.Errorf("Enqueue took %v on a full queue, expected immediate return", elapsed)
	}
}

func TestQueueDepth(t *testing.T) {
	pool := newTestPool(PoolConfig{QueueSize: 8})
	defer pool.cancel()

	for i := int64(1); i <= 3; i++ {
		if !pool.Enqueue(models.Match{ID: i}) {
			t.Fatalf("failed to enqueue job %d", i)
		}
	}
	if got := pool.QueueDepth(); got != 3 {
		t.Errorf("QueueDepth = %d, want 3", got)
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	pool := NewPool(PoolConfig{QueueSize: 4, Logger: zap.NewNop()})

	if !pool.Enqueue(models.Match{ID: 1}) {
		t.Error("Enqueue on an un-started pool should buffer the job")
	}
	if got := pool.QueueDepth(); got != 1 {
		t.Errorf("QueueDepth = %d, want 1", got)
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	pool := newTestPool(PoolConfig{QueueSize: 4})
	pool.Stop()

	if pool.Enqueue(models.Match{ID: 1}) {
		t.Error("Enqueue should return false after Stop")
	}
}

func TestWorkersDrainQueue(t *testing.T) {
	builder := &mockBuilder{}
	cfg := PoolConfig{
		WorkerCount:   2,
		QueueSize:     32,
		BatchSize:     4,
		FlushInterval: 5 * time.Millisecond,
		Builder:       builder,
		Logger:        zap.NewNop(),
	}
	pool := NewPool(cfg)
	pool.Start(context.Background())

	for i := int64(1); i <= 10; i++ {
		if !pool.Enqueue(models.Match{ID: i}) {
			t.Fatalf("failed to enqueue job %d", i)
		}
	}
	pool.Stop()

	got := builder.upsertedIDs()
	if len(got) != 10 {
		t.Fatalf("upserted %d rows, want 10", len(got))
	}
	seen := make(map[int64]bool, len(got))
	for _, id := range got {
		seen[id] = true
	}
	for i := int64(1); i <= 10; i++ {
		if !seen[i] {
			t.Errorf("match %d was never upserted", i)
		}
	}
}

func TestBatchDeduplicatesMatches(t *testing.T) {
	builder := &mockBuilder{}
	pool := newTestPool(PoolConfig{QueueSize: 8, Builder: builder})
	defer pool.cancel()

	batch := []Job{
		{Match: models.Match{ID: 7}},
		{Match: models.Match{ID: 7}},
		{Match: models.Match{ID: 9}},
	}
	if failed := pool.processBatch(batch); failed != 0 {
		t.Fatalf("processBatch failed %d jobs, want 0", failed)
	}
	if got := builder.upsertedIDs(); len(got) != 2 {
		t.Errorf("upserted %d rows, want 2 after dedup", len(got))
	}
}

func TestBatchCountsBuildFailures(t *testing.T) {
	builder := &mockBuilder{buildErr: errors.New("db unavailable")}
	pool := newTestPool(PoolConfig{QueueSize: 8, Builder: builder})
	defer pool.cancel()

	batch := []Job{
		{Match: models.Match{ID: 1}},
		{Match: models.Match{ID: 2}},
	}
	if failed := pool.processBatch(batch); failed != 2 {
		t.Errorf("processBatch failed = %d, want 2", failed)
	}
	if got := builder.upsertedIDs(); len(got) != 0 {
		t.Errorf("upserted %d rows, want 0 when builds fail", len(got))
	}
}
