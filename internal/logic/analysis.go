package logic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/features"
	"github.com/matchpulse/predict-api/internal/ml"
	"github.com/matchpulse/predict-api/internal/models"
)

const (
	highConfidence = 0.6
	lowConfidence  = 0.4
	rankedListSize = 10
)

// AnalysisConfig carries the training-policy knobs from configuration.
type AnalysisConfig struct {
	Competition      string
	TrainSeasons     []int
	ValidationSeason int
	MinTrainSamples  int
	ErrorWeightCap   float64
	PromoteTolerance float64
	AutoRetrainFloor float64
	RandomSeed       int64
}

// AnalysisService evaluates stored predictions against results and drives
// the retraining loop.
type AnalysisService interface {
	Analyze(ctx context.Context, filter models.AnalysisFilter) (*models.AnalysisResult, error)
	Retrain(ctx context.Context, req models.RetrainRequest) (*models.RetrainResult, error)
	AutoRetrain(ctx context.Context) (*models.RetrainResult, error)
}

type analysisService struct {
	db     PgPool
	store  *ml.Store
	cfg    AnalysisConfig
	logger *zap.SugaredLogger
}

func NewAnalysisService(db PgPool, store *ml.Store, cfg AnalysisConfig, logger *zap.SugaredLogger) AnalysisService {
	return &analysisService{db: db, store: store, cfg: cfg, logger: logger}
}

// Analyze joins finished matches to their stored predictions inside the
// filter window and aggregates the error profile. An empty window yields a
// zero-count result.
func (s *analysisService) Analyze(ctx context.Context, filter models.AnalysisFilter) (*models.AnalysisResult, error) {
	matchErrors, err := s.collectErrors(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &models.AnalysisResult{TotalMatches: len(matchErrors)}
	if len(matchErrors) == 0 {
		return result, nil
	}

	var logLossSum, confidenceSum float64
	for _, me := range matchErrors {
		logLossSum += me.LogLoss
		confidenceSum += me.Confidence

		if me.Correct {
			result.ErrorDistribution.CorrectPredictions++
			if me.Confidence < lowConfidence {
				result.ConfidenceAnalysis.LowConfidenceCorrect++
			}
		} else {
			result.ErrorDistribution.IncorrectPredictions++
			if me.Confidence > highConfidence {
				result.ConfidenceAnalysis.HighConfidenceErrors++
			}
		}

		switch me.ActualOutcome {
		case models.OutcomeHome:
			result.OutcomeAnalysis.HomeWins++
		case models.OutcomeDraw:
			result.OutcomeAnalysis.Draws++
		case models.OutcomeAway:
			result.OutcomeAnalysis.AwayWins++
		}
	}

	n := float64(len(matchErrors))
	result.OverallAccuracy = float64(result.ErrorDistribution.CorrectPredictions) / n
	result.AverageLogLoss = logLossSum / n
	result.ConfidenceAnalysis.AverageConfidence = confidenceSum / n

	sorted := make([]models.MatchError, len(matchErrors))
	copy(sorted, matchErrors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LogLoss > sorted[j].LogLoss })

	worst := rankedListSize
	if worst > len(sorted) {
		worst = len(sorted)
	}
	result.WorstPredictions = append(result.WorstPredictions, sorted[:worst]...)

	best := make([]models.MatchError, len(sorted))
	copy(best, sorted)
	sort.Slice(best, func(i, j int) bool { return best[i].LogLoss < best[j].LogLoss })
	top := rankedListSize
	if top > len(best) {
		top = len(best)
	}
	result.BestPredictions = append(result.BestPredictions, best[:top]...)

	return result, nil
}

// Retrain trains a candidate on the configured season split, optionally
// weighting matches the stored predictions got wrong, and promotes it only
// when validation accuracy does not regress beyond the tolerance.
func (s *analysisService) Retrain(ctx context.Context, req models.RetrainRequest) (*models.RetrainResult, error) {
	old, err := s.store.Active()
	if err != nil && !errors.Is(err, apperrors.ErrModelUnavailable) {
		return nil, err
	}

	if old != nil && !req.Force {
		newSamples, err := s.countNewSamples(ctx, old.TrainedAt)
		if err != nil {
			return nil, err
		}
		if newSamples == 0 {
			return nil, apperrors.Validationf(
				"no finished matches since the active model was trained; set force to retrain anyway")
		}
	}

	var weightSince time.Time
	if req.DaysBack > 0 {
		weightSince = time.Now().UTC().AddDate(0, 0, -req.DaysBack)
	}
	train, err := s.loadDataset(ctx, s.cfg.TrainSeasons, req.ErrorWeighting, weightSince)
	if err != nil {
		return nil, err
	}
	val, err := s.loadDataset(ctx, []int{s.cfg.ValidationSeason}, false, time.Time{})
	if err != nil {
		return nil, err
	}

	candidate, err := ml.Train(train, val, features.SchemaVersion, features.Columns, ml.TrainOptions{
		Algorithm:  req.Algorithm,
		MinSamples: s.cfg.MinTrainSamples,
		Seed:       s.cfg.RandomSeed,
	})
	if err != nil {
		return nil, err
	}

	result := &models.RetrainResult{
		Algorithm:    req.Algorithm,
		NewVersion:   candidate.Version,
		NewMetrics:   candidate.Metrics,
		TotalSamples: train.Len(),
		RetrainedAt:  time.Now().UTC(),
	}
	if old != nil {
		result.OldVersion = old.Version
		m := old.Metrics
		result.OldMetrics = &m
		n, err := s.countNewSamples(ctx, old.TrainedAt)
		if err == nil {
			result.NewSamples = n
		}
	} else {
		result.NewSamples = train.Len()
	}

	promote := old == nil ||
		candidate.Metrics.ValAccuracy >= old.Metrics.ValAccuracy-s.cfg.PromoteTolerance
	if promote {
		if err := s.store.Promote(candidate); err != nil {
			return nil, err
		}
	} else {
		if err := s.store.Save(candidate); err != nil {
			return nil, err
		}
		s.logger.Infow("candidate not promoted",
			"candidate", candidate.Version,
			"candidate_val_accuracy", candidate.Metrics.ValAccuracy,
			"active_val_accuracy", old.Metrics.ValAccuracy,
			"tolerance", s.cfg.PromoteTolerance)
	}
	result.Promoted = promote

	return result, nil
}

// AutoRetrain is the nightly policy: analyze the last week and retrain with
// error weighting when accuracy dropped under the configured floor. Returns
// nil when no retrain was needed.
func (s *analysisService) AutoRetrain(ctx context.Context) (*models.RetrainResult, error) {
	analysis, err := s.Analyze(ctx, models.AnalysisFilter{DaysBack: 7})
	if err != nil {
		return nil, err
	}
	if analysis.TotalMatches < 10 {
		s.logger.Infow("auto-retrain skipped, too few evaluated matches",
			"matches", analysis.TotalMatches)
		return nil, nil
	}
	if analysis.OverallAccuracy >= s.cfg.AutoRetrainFloor {
		s.logger.Infow("auto-retrain skipped, accuracy above floor",
			"accuracy", analysis.OverallAccuracy,
			"floor", s.cfg.AutoRetrainFloor)
		return nil, nil
	}

	s.logger.Warnw("accuracy under floor, retraining",
		"accuracy", analysis.OverallAccuracy,
		"floor", s.cfg.AutoRetrainFloor)
	return s.Retrain(ctx, models.RetrainRequest{
		Algorithm:      ml.AlgorithmBoost,
		ErrorWeighting: true,
		Force:          true,
	})
}

func (s *analysisService) collectErrors(ctx context.Context, filter models.AnalysisFilter) ([]models.MatchError, error) {
	query := `
		SELECT m.id, m.home_score, m.away_score, p.prob_away, p.prob_draw, p.prob_home
		FROM matches m
		JOIN predictions p ON p.match_id = m.id
		WHERE m.status = 'FINISHED' AND m.competition = $1`
	args := []any{s.cfg.Competition}

	if filter.DaysBack > 0 {
		args = append(args, filter.DaysBack)
		query += fmt.Sprintf(" AND m.utc_date >= NOW() - make_interval(days => $%d)", len(args))
	}
	if filter.Season > 0 {
		args = append(args, filter.Season)
		query += fmt.Sprintf(" AND m.season = $%d", len(args))
	}
	if filter.Matchday > 0 {
		args = append(args, filter.Matchday)
		query += fmt.Sprintf(" AND m.matchday = $%d", len(args))
	}
	query += " ORDER BY m.utc_date ASC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("collect prediction errors: %w", err)
	}
	defer rows.Close()

	var out []models.MatchError
	for rows.Next() {
		var (
			m     models.Match
			probs models.Probabilities
		)
		if err := rows.Scan(&m.ID, &m.HomeScore, &m.AwayScore,
			&probs.Away, &probs.Draw, &probs.Home); err != nil {
			return nil, err
		}
		m.Status = models.StatusFinished
		actual, ok := m.Outcome()
		if !ok {
			continue
		}
		predicted, confidence := probs.ArgMax()
		out = append(out, models.MatchError{
			MatchID:          m.ID,
			ActualOutcome:    actual,
			PredictedOutcome: predicted,
			LogLoss:          ml.SampleLogLoss(probs, actual),
			Confidence:       confidence,
			Correct:          predicted == actual,
		})
	}
	return out, rows.Err()
}

// loadDataset assembles feature vectors and labels for finished matches of
// the given seasons. With error weighting enabled, matches whose stored
// prediction missed get weight 1 + min(logLoss, cap); a non-zero weightSince
// limits the reweighting to matches played after it.
func (s *analysisService) loadDataset(ctx context.Context, seasons []int, errorWeighting bool, weightSince time.Time) (*ml.Dataset, error) {
	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.utc_date, m.home_score, m.away_score, f.features,
		       p.prob_away, p.prob_draw, p.prob_home
		FROM matches m
		JOIN match_features f ON f.match_id = m.id AND f.schema_version = $1
		LEFT JOIN predictions p ON p.match_id = m.id
		WHERE m.status = 'FINISHED' AND m.competition = $2 AND m.season = ANY($3)
		ORDER BY m.utc_date ASC`,
		features.SchemaVersion, s.cfg.Competition, seasons)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	defer rows.Close()

	d := &ml.Dataset{}
	for rows.Next() {
		var (
			m          models.Match
			payload    []byte
			pa, pd, ph *float64
		)
		if err := rows.Scan(&m.ID, &m.UTCDate, &m.HomeScore, &m.AwayScore, &payload, &pa, &pd, &ph); err != nil {
			return nil, err
		}
		m.Status = models.StatusFinished
		outcome, ok := m.Outcome()
		if !ok {
			continue
		}

		var values map[string]float64
		if err := json.Unmarshal(payload, &values); err != nil {
			s.logger.Warnw("skipping match with corrupt feature row", "match_id", m.ID)
			continue
		}

		weight := 1.0
		if errorWeighting && pa != nil && pd != nil && ph != nil &&
			(weightSince.IsZero() || m.UTCDate.After(weightSince)) {
			probs := models.Probabilities{Away: *pa, Draw: *pd, Home: *ph}
			weight = ml.ErrorWeight(ml.SampleLogLoss(probs, outcome), s.cfg.ErrorWeightCap)
		}

		d.Append(m.ID, features.Vector(values), outcome, weight)
	}
	return d, rows.Err()
}

func (s *analysisService) countNewSamples(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM matches
		WHERE status = 'FINISHED' AND competition = $1 AND updated_at > $2`,
		s.cfg.Competition, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count new samples: %w", err)
	}
	return n, nil
}
