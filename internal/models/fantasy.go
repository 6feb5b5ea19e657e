package models

// FPL bootstrap-static payload, reduced to the fields the fantasy module uses.

// FantasyBootstrap is the FPL reference dataset: players, teams, gameweeks.
type FantasyBootstrap struct {
	Events   []FantasyEvent  `json:"events"`
	Teams    []FantasyTeam   `json:"teams"`
	Elements []FantasyPlayer `json:"elements"`
}

type FantasyEvent struct {
	ID        int  `json:"id"`
	IsCurrent bool `json:"is_current"`
	Finished  bool `json:"finished"`
}

type FantasyTeam struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// FantasyPlayer is one FPL element. Costs are in tenths of a million.
type FantasyPlayer struct {
	ID                int    `json:"id"`
	FirstName         string `json:"first_name"`
	SecondName        string `json:"second_name"`
	Team              int    `json:"team"`
	ElementType       int    `json:"element_type"`
	NowCost           int    `json:"now_cost"`
	TotalPoints       int    `json:"total_points"`
	Minutes           int    `json:"minutes"`
	GoalsScored       int    `json:"goals_scored"`
	Assists           int    `json:"assists"`
	Form              string `json:"form"`
	PointsPerGame     string `json:"points_per_game"`
	SelectedByPercent string `json:"selected_by_percent"`
	ChanceOfPlaying   *int   `json:"chance_of_playing_next_round"`
}

// FantasyPrediction is a per-player points forecast.
type FantasyPrediction struct {
	PlayerID        int     `json:"player_id"`
	Name            string  `json:"name"`
	Team            string  `json:"team"`
	Position        string  `json:"position"`
	Price           float64 `json:"price"`
	PredictedPoints float64 `json:"predicted_points"`
	Confidence      float64 `json:"confidence"`
	RiskScore       float64 `json:"risk_score"`
	ValueScore      float64 `json:"value_score"`
	Ownership       float64 `json:"ownership"`
}

// TransferSuggestion recommends replacing one squad player with another of the
// same position.
type TransferSuggestion struct {
	PlayerOut           string  `json:"player_out"`
	PlayerIn            string  `json:"player_in"`
	PredictedPointsGain float64 `json:"predicted_points_gain"`
	Confidence          float64 `json:"confidence"`
	RiskLevel           string  `json:"risk_level"`
	CostImpact          float64 `json:"cost_impact"`
	Reasoning           string  `json:"reasoning"`
}

// TransferRequest is the transfer suggestions endpoint payload.
type TransferRequest struct {
	CurrentTeam []int   `json:"current_team" validate:"required,min=1,max=15,dive,min=1"`
	Budget      float64 `json:"budget" validate:"min=0"`
}

// DifferentialPick is a low-ownership player flagged as high upside.
type DifferentialPick struct {
	Name                  string  `json:"name"`
	Team                  string  `json:"team"`
	Position              string  `json:"position"`
	Price                 float64 `json:"price"`
	Ownership             float64 `json:"ownership"`
	PredictedPoints       float64 `json:"predicted_points"`
	ValueScore            float64 `json:"value_score"`
	RiskScore             float64 `json:"risk_score"`
	Confidence            float64 `json:"confidence"`
	DifferentialPotential float64 `json:"differential_potential"`
	RiskLevel             string  `json:"risk_level"`
	Reasoning             string  `json:"reasoning"`
}
