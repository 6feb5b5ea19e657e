package logic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/features"
	"github.com/matchpulse/predict-api/internal/ml"
	"github.com/matchpulse/predict-api/internal/models"
)

const (
	topContributions = 5
	maxBatchSize     = 50
	batchConcurrency = 8
)

// PredictionService serves outcome probabilities for scheduled matches.
type PredictionService interface {
	Predict(ctx context.Context, matchID int64) (*models.PredictionResponse, error)
	PredictBatch(ctx context.Context, matchIDs []int64) ([]models.BatchPredictionItem, error)
	Features(ctx context.Context, matchID int64) (*models.FeaturesResponse, error)
}

type predictionService struct {
	db      PgPool
	matches MatchService
	builder *features.Builder
	store   *ml.Store
	logger  *zap.SugaredLogger
}

func NewPredictionService(db PgPool, matches MatchService, builder *features.Builder, store *ml.Store, logger *zap.SugaredLogger) PredictionService {
	return &predictionService{db: db, matches: matches, builder: builder, store: store, logger: logger}
}

// Predict computes (or refreshes) the prediction for one upcoming match and
// records it for the later mistake analysis.
func (s *predictionService) Predict(ctx context.Context, matchID int64) (*models.PredictionResponse, error) {
	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Finished() {
		return nil, apperrors.Validationf("match %d is already finished", matchID)
	}

	model, err := s.store.Active()
	if err != nil {
		return nil, err
	}

	row, err := s.featureRow(ctx, match)
	if err != nil {
		return nil, err
	}

	vector := features.Vector(row.Values)
	if err := model.ValidateVector(vector); err != nil {
		return nil, fmt.Errorf("%s: %w", err, apperrors.ErrModelUnavailable)
	}

	probs := model.Predict(vector)

	resp := &models.PredictionResponse{
		MatchID:      match.ID,
		Competition:  match.Competition,
		Kickoff:      match.UTCDate,
		HomeTeamID:   match.HomeTeamID,
		AwayTeamID:   match.AwayTeamID,
		Probs:        probs,
		TopFeatures:  topFeatures(model.Columns, model.Contributions(vector)),
		ModelVersion: model.Version,
		DataQuality:  &row.Quality,
	}

	if err := s.recordPrediction(ctx, resp); err != nil {
		// the prediction itself is still good; the analysis loop just loses
		// this data point
		s.logger.Warnw("failed to record prediction", "match_id", match.ID, "error", err)
	}
	return resp, nil
}

// PredictBatch fans out over the ids with bounded concurrency. Individual
// failures become per-item error entries; the batch as a whole only fails on
// malformed input.
func (s *predictionService) PredictBatch(ctx context.Context, matchIDs []int64) ([]models.BatchPredictionItem, error) {
	if len(matchIDs) == 0 {
		return nil, apperrors.Validationf("match_ids must not be empty")
	}
	if len(matchIDs) > maxBatchSize {
		return nil, apperrors.Validationf("batch size %d exceeds limit %d", len(matchIDs), maxBatchSize)
	}

	items := make([]models.BatchPredictionItem, len(matchIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, id := range matchIDs {
		i, id := i, id
		g.Go(func() error {
			pred, err := s.Predict(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			items[i] = models.BatchPredictionItem{MatchID: id}
			if err != nil {
				items[i].Error = &models.ErrorPayload{
					Code:    apperrors.Code(err),
					Message: err.Error(),
				}
				return nil
			}
			items[i].Prediction = pred
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// Features exposes the raw feature row for debugging.
func (s *predictionService) Features(ctx context.Context, matchID int64) (*models.FeaturesResponse, error) {
	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	row, err := s.featureRow(ctx, match)
	if err != nil {
		return nil, err
	}
	return &models.FeaturesResponse{
		MatchID:       matchID,
		SchemaVersion: row.SchemaVersion,
		Features:      row.Values,
		BuiltAt:       row.BuiltAt,
	}, nil
}

// featureRow serves the persisted row when current, building on the fly
// otherwise.
func (s *predictionService) featureRow(ctx context.Context, match *models.Match) (*features.Row, error) {
	row, err := s.builder.Load(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}
	row, err = s.builder.Build(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("build features for match %d: %w", match.ID, err)
	}
	if err := s.builder.Upsert(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *predictionService) recordPrediction(ctx context.Context, p *models.PredictionResponse) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO predictions (match_id, prob_away, prob_draw, prob_home, model_version, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (match_id) DO UPDATE SET
			prob_away = EXCLUDED.prob_away,
			prob_draw = EXCLUDED.prob_draw,
			prob_home = EXCLUDED.prob_home,
			model_version = EXCLUDED.model_version,
			created_at = NOW()`,
		p.MatchID, p.Probs.Away, p.Probs.Draw, p.Probs.Home, p.ModelVersion)
	return err
}

// topFeatures ranks contributions by magnitude, keeping the sign.
func topFeatures(names []string, contributions []float64) []models.FeatureContribution {
	out := make([]models.FeatureContribution, 0, len(names))
	for i, name := range names {
		if i >= len(contributions) {
			break
		}
		out = append(out, models.FeatureContribution{Name: name, Contribution: contributions[i]})
	}
	sort.Slice(out, func(i, j int) bool {
		return math.Abs(out[i].Contribution) > math.Abs(out[j].Contribution)
	})
	if len(out) > topContributions {
		out = out[:topContributions]
	}
	return out
}
