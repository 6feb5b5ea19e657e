package handlers

import (
	"context"

	"github.com/matchpulse/predict-api/internal/ingest"
	"github.com/matchpulse/predict-api/internal/logic"
	"github.com/matchpulse/predict-api/internal/models"
)

// MockMatchService
type MockMatchService struct {
	ListMatchesFunc func(ctx context.Context, filter logic.MatchFilter) ([]models.Match, error)
	GetMatchFunc    func(ctx context.Context, id int64) (*models.Match, error)
	ListTeamsFunc   func(ctx context.Context) ([]models.Team, error)
}

func (m *MockMatchService) ListMatches(ctx context.Context, filter logic.MatchFilter) ([]models.Match, error) {
	if m.ListMatchesFunc != nil {
		return m.ListMatchesFunc(ctx, filter)
	}
	return nil, nil
}

func (m *MockMatchService) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(ctx, id)
	}
	return &models.Match{ID: id}, nil
}

func (m *MockMatchService) ListTeams(ctx context.Context) ([]models.Team, error) {
	if m.ListTeamsFunc != nil {
		return m.ListTeamsFunc(ctx)
	}
	return nil, nil
}

// MockStandingsService
type MockStandingsService struct {
	GetStandingsFunc func(ctx context.Context, competition string, season int) ([]logic.StandingRow, error)
}

func (m *MockStandingsService) GetStandings(ctx context.Context, competition string, season int) ([]logic.StandingRow, error) {
	if m.GetStandingsFunc != nil {
		return m.GetStandingsFunc(ctx, competition, season)
	}
	return nil, nil
}

// MockPredictionService
type MockPredictionService struct {
	PredictFunc      func(ctx context.Context, matchID int64) (*models.PredictionResponse, error)
	PredictBatchFunc func(ctx context.Context, matchIDs []int64) ([]models.BatchPredictionItem, error)
	FeaturesFunc     func(ctx context.Context, matchID int64) (*models.FeaturesResponse, error)
}

func (m *MockPredictionService) Predict(ctx context.Context, matchID int64) (*models.PredictionResponse, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, matchID)
	}
	return &models.PredictionResponse{MatchID: matchID}, nil
}

func (m *MockPredictionService) PredictBatch(ctx context.Context, matchIDs []int64) ([]models.BatchPredictionItem, error) {
	if m.PredictBatchFunc != nil {
		return m.PredictBatchFunc(ctx, matchIDs)
	}
	return nil, nil
}

func (m *MockPredictionService) Features(ctx context.Context, matchID int64) (*models.FeaturesResponse, error) {
	if m.FeaturesFunc != nil {
		return m.FeaturesFunc(ctx, matchID)
	}
	return &models.FeaturesResponse{MatchID: matchID}, nil
}

// MockAnalysisService
type MockAnalysisService struct {
	AnalyzeFunc func(ctx context.Context, filter models.AnalysisFilter) (*models.AnalysisResult, error)
	RetrainFunc func(ctx context.Context, req models.RetrainRequest) (*models.RetrainResult, error)
}

func (m *MockAnalysisService) Analyze(ctx context.Context, filter models.AnalysisFilter) (*models.AnalysisResult, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, filter)
	}
	return &models.AnalysisResult{}, nil
}

func (m *MockAnalysisService) Retrain(ctx context.Context, req models.RetrainRequest) (*models.RetrainResult, error) {
	if m.RetrainFunc != nil {
		return m.RetrainFunc(ctx, req)
	}
	return &models.RetrainResult{Algorithm: req.Algorithm}, nil
}

func (m *MockAnalysisService) AutoRetrain(ctx context.Context) (*models.RetrainResult, error) {
	return nil, nil
}

// MockFantasyService
type MockFantasyService struct {
	PlayerPredictionsFunc   func(ctx context.Context, position string, limit int) ([]models.FantasyPrediction, error)
	TransferSuggestionsFunc func(ctx context.Context, req models.TransferRequest) ([]models.TransferSuggestion, error)
	DifferentialPicksFunc   func(ctx context.Context, riskTolerance string) ([]models.DifferentialPick, error)
}

func (m *MockFantasyService) PlayerPredictions(ctx context.Context, position string, limit int) ([]models.FantasyPrediction, error) {
	if m.PlayerPredictionsFunc != nil {
		return m.PlayerPredictionsFunc(ctx, position, limit)
	}
	return nil, nil
}

func (m *MockFantasyService) TransferSuggestions(ctx context.Context, req models.TransferRequest) ([]models.TransferSuggestion, error) {
	if m.TransferSuggestionsFunc != nil {
		return m.TransferSuggestionsFunc(ctx, req)
	}
	return nil, nil
}

func (m *MockFantasyService) DifferentialPicks(ctx context.Context, riskTolerance string) ([]models.DifferentialPick, error) {
	if m.DifferentialPicksFunc != nil {
		return m.DifferentialPicksFunc(ctx, riskTolerance)
	}
	return nil, nil
}

// MockSyncer
type MockSyncer struct {
	SyncAllFunc func(ctx context.Context, competition string, seasons []int) ([]ingest.Result, error)
}

func (m *MockSyncer) SyncAll(ctx context.Context, competition string, seasons []int) ([]ingest.Result, error) {
	if m.SyncAllFunc != nil {
		return m.SyncAllFunc(ctx, competition, seasons)
	}
	return nil, nil
}

// MockQueue
type MockQueue struct {
	Depth int
}

func (m *MockQueue) QueueDepth() int { return m.Depth }
