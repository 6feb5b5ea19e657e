package scheduler

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/ingest"
	"github.com/matchpulse/predict-api/internal/models"
)

type mockSyncer struct {
	calls   int
	seasons []int
	err     error
}

func (m *mockSyncer) SyncAll(ctx context.Context, competition string, seasons []int) ([]ingest.Result, error) {
	m.calls++
	m.seasons = seasons
	if m.err != nil {
		return nil, m.err
	}
	return []ingest.Result{{Competition: competition, Season: seasons[0]}}, nil
}

type mockRetrainer struct {
	calls  int
	result *models.RetrainResult
	err    error
}

func (m *mockRetrainer) AutoRetrain(ctx context.Context) (*models.RetrainResult, error) {
	m.calls++
	return m.result, m.err
}

func newTestScheduler(sync Syncer, retrain Retrainer) *Scheduler {
	return New(Config{
		IngestCron:  "0 */6 * * *",
		AnalyzeCron: "30 3 * * *",
		Competition: "PL",
		Seasons:     []int{2024, 2025},
	}, sync, retrain, zap.NewNop().Sugar())
}

func TestStartRegistersJobs(t *testing.T) {
	s := newTestScheduler(&mockSyncer{}, &mockRetrainer{})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if got := len(s.cron.Entries()); got != 2 {
		t.Errorf("registered jobs = %d, want 2", got)
	}
}

func TestStartRejectsBadCron(t *testing.T) {
	s := New(Config{IngestCron: "not a cron spec", AnalyzeCron: "30 3 * * *"},
		&mockSyncer{}, &mockRetrainer{}, zap.NewNop().Sugar())
	if err := s.Start(); err == nil {
		t.Fatal("expected error for malformed cron spec")
	}
}

func TestRunSyncPassesConfig(t *testing.T) {
	sync := &mockSyncer{}
	s := newTestScheduler(sync, &mockRetrainer{})

	s.runSync()
	if sync.calls != 1 {
		t.Fatalf("sync calls = %d, want 1", sync.calls)
	}
	if len(sync.seasons) != 2 || sync.seasons[1] != 2025 {
		t.Errorf("seasons = %v, want [2024 2025]", sync.seasons)
	}
}

func TestRunSyncSurvivesFailure(t *testing.T) {
	sync := &mockSyncer{err: errors.New("provider down")}
	s := newTestScheduler(sync, &mockRetrainer{})

	s.runSync()
	s.runSync()
	if sync.calls != 2 {
		t.Errorf("sync calls = %d, want 2", sync.calls)
	}
}

func TestRunAutoRetrain(t *testing.T) {
	retrain := &mockRetrainer{result: &models.RetrainResult{Algorithm: "xgb", Promoted: true}}
	s := newTestScheduler(&mockSyncer{}, retrain)

	s.runAutoRetrain()
	if retrain.calls != 1 {
		t.Errorf("retrain calls = %d, want 1", retrain.calls)
	}
}

func TestRunAutoRetrainSkip(t *testing.T) {
	// nil result means the accuracy floor held; the job must not error
	retrain := &mockRetrainer{}
	s := newTestScheduler(&mockSyncer{}, retrain)

	s.runAutoRetrain()
	if retrain.calls != 1 {
		t.Errorf("retrain calls = %d, want 1", retrain.calls)
	}
}
