package models

import "time"

// Match statuses as reported by the provider.
const (
	StatusScheduled = "SCHEDULED"
	StatusTimed     = "TIMED"
	StatusInPlay    = "IN_PLAY"
	StatusPaused    = "PAUSED"
	StatusFinished  = "FINISHED"
	StatusPostponed = "POSTPONED"
	StatusCancelled = "CANCELLED"
)

// Match is one fixture. Score fields are nil until the provider reports a
// finished match; a finished match is immutable.
type Match struct {
	ID          int64     `json:"id"`
	Competition string    `json:"competition"`
	Season      int       `json:"season"`
	Matchday    int       `json:"matchday"`
	UTCDate     time.Time `json:"utc_date"`
	Status      string    `json:"status"`
	HomeTeamID  int64     `json:"home_team_id"`
	AwayTeamID  int64     `json:"away_team_id"`
	HomeScore   *int      `json:"home_score,omitempty"`
	AwayScore   *int      `json:"away_score,omitempty"`
	Venue       string    `json:"venue,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Finished reports whether the match has a final result.
func (m *Match) Finished() bool {
	return m.Status == StatusFinished && m.HomeScore != nil && m.AwayScore != nil
}

// Outcome returns the three-way label for a finished match:
// 2 = home win, 1 = draw, 0 = away win. The second return is false for
// matches without a final score.
func (m *Match) Outcome() (int, bool) {
	if m.HomeScore == nil || m.AwayScore == nil {
		return 0, false
	}
	switch {
	case *m.HomeScore > *m.AwayScore:
		return OutcomeHome, true
	case *m.HomeScore < *m.AwayScore:
		return OutcomeAway, true
	default:
		return OutcomeDraw, true
	}
}

// Outcome class indices. The probability vector is ordered [away, draw, home],
// matching the label values.
const (
	OutcomeAway = 0
	OutcomeDraw = 1
	OutcomeHome = 2
)

// statusRank orders the forward path scheduled -> in-play -> finished.
// Postponed and cancelled are absorbing side exits from any non-final state.
var statusRank = map[string]int{
	StatusScheduled: 0,
	StatusTimed:     0,
	StatusInPlay:    1,
	StatusPaused:    1,
	StatusFinished:  2,
}

// CanTransition reports whether a status update from old to new is legal.
// Transitions are monotonic: a match never moves backwards, and the
// finished/postponed/cancelled states are terminal.
func CanTransition(old, new string) bool {
	if old == new {
		return true
	}
	switch old {
	case StatusFinished, StatusPostponed, StatusCancelled:
		return false
	}
	if new == StatusPostponed || new == StatusCancelled {
		return true
	}
	oldRank, ok := statusRank[old]
	if !ok {
		return true // unknown upstream status, accept the update
	}
	newRank, ok := statusRank[new]
	if !ok {
		return true
	}
	return newRank >= oldRank
}

// Team is static reference data, refreshed periodically.
type Team struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	TLA       string `json:"tla,omitempty"`
	CrestURL  string `json:"crest_url,omitempty"`
}

// StandingSnapshot is one team's table row as of a matchday. Recomputed on
// each ingestion pass; only the latest row per (season, matchday, team) is
// kept.
type StandingSnapshot struct {
	Season       int    `json:"season"`
	Matchday     int    `json:"matchday"`
	TeamID       int64  `json:"team_id"`
	Position     int    `json:"position"`
	PlayedGames  int    `json:"played_games"`
	Won          int    `json:"won"`
	Drawn        int    `json:"drawn"`
	Lost         int    `json:"lost"`
	Points       int    `json:"points"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
	GoalDiff     int    `json:"goal_diff"`
	Form         string `json:"form,omitempty"`
}
