package models

import "time"

// AnalysisFilter selects the window of finished matches to evaluate.
// Exactly one of the fields is typically set; all three may combine.
type AnalysisFilter struct {
	DaysBack int `json:"days_back,omitempty" validate:"omitempty,min=1,max=3650"`
	Season   int `json:"season,omitempty" validate:"omitempty,min=1900"`
	Matchday int `json:"matchday,omitempty" validate:"omitempty,min=1,max=60"`
}

// MatchError is the per-match evaluation of a stored prediction against the
// actual outcome.
type MatchError struct {
	MatchID          int64   `json:"match_id"`
	ActualOutcome    int     `json:"actual_outcome"`
	PredictedOutcome int     `json:"predicted_outcome"`
	LogLoss          float64 `json:"log_loss"`
	Confidence       float64 `json:"confidence"`
	Correct          bool    `json:"correct"`
}

// AnalysisResult aggregates prediction errors over a window. A window with no
// finished-and-predicted matches yields a zero-count result, not an error.
type AnalysisResult struct {
	TotalMatches    int     `json:"total_matches"`
	OverallAccuracy float64 `json:"overall_accuracy"`
	AverageLogLoss  float64 `json:"average_log_loss"`

	ErrorDistribution struct {
		CorrectPredictions   int `json:"correct_predictions"`
		IncorrectPredictions int `json:"incorrect_predictions"`
	} `json:"error_distribution"`

	OutcomeAnalysis struct {
		HomeWins int `json:"home_wins"`
		Draws    int `json:"draws"`
		AwayWins int `json:"away_wins"`
	} `json:"outcome_analysis"`

	ConfidenceAnalysis struct {
		HighConfidenceErrors int     `json:"high_confidence_errors"`
		LowConfidenceCorrect int     `json:"low_confidence_correct"`
		AverageConfidence    float64 `json:"average_confidence"`
	} `json:"confidence_analysis"`

	WorstPredictions []MatchError `json:"worst_predictions"`
	BestPredictions  []MatchError `json:"best_predictions"`
}

// RetrainRequest drives the mistake-learning retraining loop.
type RetrainRequest struct {
	Algorithm      string `json:"algorithm" validate:"required,oneof=xgb rf lr"`
	DaysBack       int    `json:"days_back,omitempty" validate:"omitempty,min=1,max=3650"`
	ErrorWeighting bool   `json:"error_weighting"`
	Force          bool   `json:"force"`
}

// ModelMetrics is the persisted training evaluation of one artifact.
type ModelMetrics struct {
	TrainAccuracy float64 `json:"train_accuracy"`
	ValAccuracy   float64 `json:"val_accuracy"`
	TrainLogLoss  float64 `json:"train_logloss"`
	ValLogLoss    float64 `json:"val_logloss"`
	TrainBrier    float64 `json:"train_brier"`
	ValBrier      float64 `json:"val_brier"`
}

// RetrainResult reports the old and new metric sets so the caller (or the
// auto-retrain policy) decides whether the candidate was worth keeping.
type RetrainResult struct {
	Algorithm    string        `json:"algorithm"`
	OldVersion   string        `json:"old_version,omitempty"`
	NewVersion   string        `json:"new_version"`
	OldMetrics   *ModelMetrics `json:"old_metrics,omitempty"`
	NewMetrics   ModelMetrics  `json:"new_metrics"`
	Promoted     bool          `json:"promoted"`
	NewSamples   int           `json:"new_samples"`
	TotalSamples int           `json:"total_samples"`
	RetrainedAt  time.Time     `json:"retrained_at"`
}
