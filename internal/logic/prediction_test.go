package logic

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/features"
	"github.com/matchpulse/predict-api/internal/ml"
	"github.com/matchpulse/predict-api/internal/models"
)

func scheduledMatch(id int64) *models.Match {
	return &models.Match{
		ID: id, Competition: "PL", Season: 2025, Matchday: 10,
		UTCDate: time.Date(2025, 11, 1, 15, 0, 0, 0, time.UTC),
		Status:  models.StatusScheduled, HomeTeamID: 57, AwayTeamID: 61,
	}
}

// trainedStore promotes a model fitted over the full schema so Predict has a
// real artifact to serve.
func trainedStore(t *testing.T) *ml.Store {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	d := &ml.Dataset{}
	for i := 0; i < 150; i++ {
		label := i % 3
		values := map[string]float64{
			"diff_form_ppg": float64(label-1)*2 + rng.NormFloat64()*0.3,
			"diff_position": float64(label-1) * 5,
			"home_flag":     1,
		}
		d.Append(int64(i+1), features.Vector(values), label, 1)
	}

	m, err := ml.Train(d, nil, features.SchemaVersion, features.Columns, ml.TrainOptions{
		Algorithm:  ml.AlgorithmLogReg,
		MinSamples: 50,
		Seed:       1,
	})
	if err != nil {
		t.Fatalf("train fixture model: %v", err)
	}

	store := ml.NewStore(t.TempDir(), features.SchemaVersion, zap.NewNop().Sugar())
	if err := store.Promote(m); err != nil {
		t.Fatalf("promote fixture model: %v", err)
	}
	return store
}

// predictionDB serves a persisted feature row and records prediction upserts.
func predictionDB(values map[string]float64) (*MockDB, *atomic.Int64) {
	payload, _ := json.Marshal(values)
	quality, _ := json.Marshal(models.DataQuality{HomeMatches: 9, AwayMatches: 8, H2HMatches: 4})
	upserts := new(atomic.Int64)

	db := &MockDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			if strings.Contains(sql, "match_features") {
				return &MockRow{Values: []any{
					features.SchemaVersion, []byte(payload), []byte(quality), time.Now().UTC(),
				}}
			}
			return &MockRow{Err: pgx.ErrNoRows}
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			if strings.Contains(sql, "INSERT INTO predictions") {
				upserts.Add(1)
			}
			return pgconn.CommandTag{}, nil
		},
	}
	return db, upserts
}

func newPredictionService(t *testing.T, db *MockDB, matches MatchService) PredictionService {
	t.Helper()
	builder := features.NewBuilder(db, 5, 5, 10)
	return NewPredictionService(db, matches, builder, trainedStore(t), zap.NewNop().Sugar())
}

func TestPredictHappyPath(t *testing.T) {
	db, upserts := predictionDB(map[string]float64{
		"diff_form_ppg": 2.1,
		"diff_position": 5,
		"home_flag":     1,
	})
	matches := &MockMatchService{
		GetMatchFunc: func(ctx context.Context, id int64) (*models.Match, error) {
			return scheduledMatch(id), nil
		},
	}

	resp, err := newPredictionService(t, db, matches).Predict(context.Background(), 42)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	sum := resp.Probs.Away + resp.Probs.Draw + resp.Probs.Home
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("probabilities sum to %v, want 1 within 1e-6", sum)
	}
	if best, _ := resp.Probs.ArgMax(); best != models.OutcomeHome {
		t.Errorf("predicted outcome = %d, want home win for a strong home edge", best)
	}
	if len(resp.TopFeatures) != 5 {
		t.Errorf("TopFeatures = %d entries, want 5", len(resp.TopFeatures))
	}
	for i := 1; i < len(resp.TopFeatures); i++ {
		if math.Abs(resp.TopFeatures[i].Contribution) > math.Abs(resp.TopFeatures[i-1].Contribution) {
			t.Error("TopFeatures must be ordered by magnitude")
		}
	}
	if resp.ModelVersion == "" {
		t.Error("ModelVersion must be set")
	}
	if resp.DataQuality == nil || resp.DataQuality.HomeMatches != 9 {
		t.Errorf("DataQuality = %+v, want the persisted quality report", resp.DataQuality)
	}
	if upserts.Load() != 1 {
		t.Errorf("prediction upserts = %d, want 1", upserts.Load())
	}
}

func TestPredictUnknownMatch(t *testing.T) {
	matches := &MockMatchService{
		GetMatchFunc: func(ctx context.Context, id int64) (*models.Match, error) {
			return nil, apperrors.NotFoundf("match %d not found", id)
		},
	}
	db, _ := predictionDB(nil)

	_, err := newPredictionService(t, db, matches).Predict(context.Background(), 404)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPredictFinishedMatchRejected(t *testing.T) {
	matches := &MockMatchService{
		GetMatchFunc: func(ctx context.Context, id int64) (*models.Match, error) {
			m := scheduledMatch(id)
			m.Status = models.StatusFinished
			hs, as := 2, 1
			m.HomeScore, m.AwayScore = &hs, &as
			return m, nil
		},
	}
	db, _ := predictionDB(nil)

	_, err := newPredictionService(t, db, matches).Predict(context.Background(), 7)
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation for a finished match", err)
	}
}

func TestPredictSurvivesRecordFailure(t *testing.T) {
	db, _ := predictionDB(map[string]float64{
		"diff_form_ppg": 2.1,
		"home_flag":     1,
	})
	db.ExecFunc = func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
		if strings.Contains(sql, "INSERT INTO predictions") {
			return pgconn.CommandTag{}, errors.New("connection reset")
		}
		return pgconn.CommandTag{}, nil
	}
	matches := &MockMatchService{
		GetMatchFunc: func(ctx context.Context, id int64) (*models.Match, error) {
			return scheduledMatch(id), nil
		},
	}

	// a failed predictions write only costs the analysis loop a data point
	resp, err := newPredictionService(t, db, matches).Predict(context.Background(), 42)
	if err != nil {
		t.Fatalf("Predict: %v, want success despite record failure", err)
	}
	if sum := resp.Probs.Away + resp.Probs.Draw + resp.Probs.Home; math.Abs(sum-1) > 1e-6 {
		t.Errorf("probabilities sum to %v, want 1 within 1e-6", sum)
	}
}

func TestPredictWithoutModel(t *testing.T) {
	db, _ := predictionDB(map[string]float64{"home_flag": 1})
	matches := &MockMatchService{
		GetMatchFunc: func(ctx context.Context, id int64) (*models.Match, error) {
			return scheduledMatch(id), nil
		},
	}
	builder := features.NewBuilder(db, 5, 5, 10)
	emptyStore := ml.NewStore(t.TempDir(), features.SchemaVersion, zap.NewNop().Sugar())
	svc := NewPredictionService(db, matches, builder, emptyStore, zap.NewNop().Sugar())

	_, err := svc.Predict(context.Background(), 42)
	if !errors.Is(err, apperrors.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestPredictBatchPerItemErrors(t *testing.T) {
	db, _ := predictionDB(map[string]float64{
		"diff_form_ppg": 2.1,
		"home_flag":     1,
	})
	matches := &MockMatchService{
		GetMatchFunc: func(ctx context.Context, id int64) (*models.Match, error) {
			if id == 404 {
				return nil, apperrors.NotFoundf("match %d not found", id)
			}
			return scheduledMatch(id), nil
		},
	}
	svc := newPredictionService(t, db, matches)

	items, err := svc.PredictBatch(context.Background(), []int64{1, 404, 2})
	if err != nil {
		t.Fatalf("PredictBatch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	if items[0].Prediction == nil || items[0].Error != nil {
		t.Errorf("item 0 = %+v, want a prediction", items[0])
	}
	if items[1].Error == nil || items[1].Error.Code != "not_found" {
		t.Errorf("item 1 error = %+v, want not_found", items[1].Error)
	}
	if items[2].Prediction == nil {
		t.Errorf("item 2 = %+v, want a prediction", items[2])
	}
}

func TestPredictBatchLimits(t *testing.T) {
	db, _ := predictionDB(nil)
	svc := newPredictionService(t, db, &MockMatchService{})

	if _, err := svc.PredictBatch(context.Background(), nil); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty batch err = %v, want ErrValidation", err)
	}

	big := make([]int64, 51)
	for i := range big {
		big[i] = int64(i + 1)
	}
	if _, err := svc.PredictBatch(context.Background(), big); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("oversized batch err = %v, want ErrValidation", err)
	}
}

func TestFeaturesEndpointPayload(t *testing.T) {
	db, _ := predictionDB(map[string]float64{"diff_form_ppg": 1.5, "home_flag": 1})
	matches := &MockMatchService{
		GetMatchFunc: func(ctx context.Context, id int64) (*models.Match, error) {
			return scheduledMatch(id), nil
		},
	}
	svc := newPredictionService(t, db, matches)

	resp, err := svc.Features(context.Background(), 42)
	if err != nil {
		t.Fatalf("Features: %v", err)
	}
	if resp.SchemaVersion != features.SchemaVersion {
		t.Errorf("SchemaVersion = %s, want %s", resp.SchemaVersion, features.SchemaVersion)
	}
	if resp.Features["diff_form_ppg"] != 1.5 {
		t.Errorf("diff_form_ppg = %v, want 1.5", resp.Features["diff_form_ppg"])
	}
}
