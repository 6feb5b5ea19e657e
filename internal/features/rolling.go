package features

import (
	"time"

	"github.com/matchpulse/predict-api/internal/models"
)

// TeamResult is one completed match from a single team's perspective.
type TeamResult struct {
	Kickoff      time.Time
	GoalsFor     int
	GoalsAgainst int
	Home         bool
}

// Points returns the league points earned in this result.
func (r TeamResult) Points() int {
	switch {
	case r.GoalsFor > r.GoalsAgainst:
		return 3
	case r.GoalsFor == r.GoalsAgainst:
		return 1
	default:
		return 0
	}
}

// Form holds the rolling-window aggregates for one side of a fixture.
type Form struct {
	PPG                  float64
	GoalsForPerMatch     float64
	GoalsAgainstPerMatch float64
	GoalDiffPerMatch     float64
	RestDays             float64
	MatchesAvailable     int
}

// LeaguePriors are the fallback values used when a team has no usable
// history (newly promoted sides, season start). Computed from the season
// when enough finished matches exist, otherwise the documented defaults.
type LeaguePriors struct {
	PPG          float64
	GoalsFor     float64
	GoalsAgainst float64
	RestDays     float64
}

// DefaultPriors are the cold-start fallbacks when the season itself has too
// little data to average over.
func DefaultPriors() LeaguePriors {
	return LeaguePriors{PPG: 1.0, GoalsFor: 1.3, GoalsAgainst: 1.3, RestDays: 7.0}
}

// RollingForm computes a team's form over the last `window` completed results
// strictly before the fixture kickoff. Results must be sorted by kickoff
// ascending. Missing history degrades to the league priors instead of
// erroring.
func RollingForm(results []TeamResult, kickoff time.Time, window int, priors LeaguePriors) Form {
	// keep only completed matches before kickoff
	var prior []TeamResult
	for _, r := range results {
		if r.Kickoff.Before(kickoff) {
			prior = append(prior, r)
		}
	}

	if len(prior) == 0 {
		return Form{
			PPG:                  priors.PPG,
			GoalsForPerMatch:     priors.GoalsFor,
			GoalsAgainstPerMatch: priors.GoalsAgainst,
			GoalDiffPerMatch:     priors.GoalsFor - priors.GoalsAgainst,
			RestDays:             priors.RestDays,
		}
	}

	tail := prior
	if len(tail) > window {
		tail = tail[len(tail)-window:]
	}

	var points, gf, ga int
	for _, r := range tail {
		points += r.Points()
		gf += r.GoalsFor
		ga += r.GoalsAgainst
	}

	n := float64(len(tail))
	form := Form{
		PPG:                  float64(points) / n,
		GoalsForPerMatch:     float64(gf) / n,
		GoalsAgainstPerMatch: float64(ga) / n,
		GoalDiffPerMatch:     float64(gf-ga) / n,
		MatchesAvailable:     len(prior),
	}

	// rest days from the most recent completed match
	last := prior[len(prior)-1]
	form.RestDays = kickoff.Sub(last.Kickoff).Hours() / 24
	if form.RestDays <= 0 {
		form.RestDays = priors.RestDays
	}

	return form
}

// ResultsForTeam projects finished matches onto one team's perspective,
// skipping rows without a final score.
func ResultsForTeam(matches []models.Match, teamID int64) []TeamResult {
	var out []TeamResult
	for _, m := range matches {
		if m.HomeScore == nil || m.AwayScore == nil {
			continue
		}
		if m.HomeTeamID == teamID {
			out = append(out, TeamResult{
				Kickoff:      m.UTCDate,
				GoalsFor:     *m.HomeScore,
				GoalsAgainst: *m.AwayScore,
				Home:         true,
			})
		} else if m.AwayTeamID == teamID {
			out = append(out, TeamResult{
				Kickoff:      m.UTCDate,
				GoalsFor:     *m.AwayScore,
				GoalsAgainst: *m.HomeScore,
			})
		}
	}
	return out
}
