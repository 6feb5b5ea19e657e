package models

import "time"

// Probabilities is the three-way outcome distribution for a match.
// Invariant: Away + Draw + Home == 1 within 1e-6.
type Probabilities struct {
	Away float64 `json:"away"`
	Draw float64 `json:"draw"`
	Home float64 `json:"home"`
}

// Vector returns the distribution ordered [away, draw, home], matching the
// outcome label values.
func (p Probabilities) Vector() [3]float64 {
	return [3]float64{p.Away, p.Draw, p.Home}
}

// ArgMax returns the most likely outcome class and its probability.
func (p Probabilities) ArgMax() (int, float64) {
	v := p.Vector()
	best, bestP := 0, v[0]
	for i := 1; i < 3; i++ {
		if v[i] > bestP {
			best, bestP = i, v[i]
		}
	}
	return best, bestP
}

// PredictionRecord is a stored prediction for one match, compared against the
// actual outcome once the match finishes.
type PredictionRecord struct {
	MatchID      int64         `json:"match_id"`
	Probs        Probabilities `json:"probs"`
	ModelVersion string        `json:"model_version"`
	CreatedAt    time.Time     `json:"created_at"`
}

// FeatureContribution is one entry of the naive per-feature contribution
// breakdown returned with a prediction (weighted value, sign preserved).
type FeatureContribution struct {
	Name         string  `json:"name"`
	Contribution float64 `json:"contribution"`
}

// PredictionResponse is the predict endpoint payload.
type PredictionResponse struct {
	MatchID      int64                 `json:"match_id"`
	Competition  string                `json:"competition"`
	Kickoff      time.Time             `json:"kickoff"`
	HomeTeamID   int64                 `json:"home_team_id"`
	AwayTeamID   int64                 `json:"away_team_id"`
	Probs        Probabilities         `json:"probs"`
	TopFeatures  []FeatureContribution `json:"top_features"`
	ModelVersion string                `json:"model_version"`
	DataQuality  *DataQuality          `json:"data_quality,omitempty"`
}

// DataQuality reports how much history backed the feature vector.
type DataQuality struct {
	HomeMatches int `json:"home_matches"`
	AwayMatches int `json:"away_matches"`
	H2HMatches  int `json:"h2h_matches"`
}

// BatchPredictionItem is one entry of a batch response: either a prediction
// or a per-item error, never both.
type BatchPredictionItem struct {
	MatchID    int64               `json:"match_id"`
	Prediction *PredictionResponse `json:"prediction,omitempty"`
	Error      *ErrorPayload       `json:"error,omitempty"`
}

// ErrorPayload is the structured error body used across the API.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FeaturesResponse is the debug features endpoint payload.
type FeaturesResponse struct {
	MatchID       int64              `json:"match_id"`
	SchemaVersion string             `json:"schema_version"`
	Features      map[string]float64 `json:"features"`
	BuiltAt       time.Time          `json:"built_at"`
}
