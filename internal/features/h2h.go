package features

import (
	"time"

	"github.com/matchpulse/predict-api/internal/models"
)

// HeadToHead holds aggregates over prior meetings between the two sides,
// oriented from the home team's perspective.
type HeadToHead struct {
	WinRate          float64
	DrawRate         float64
	GoalDiff         float64
	AvgGoals         float64
	HomeVenueWinRate float64
	Matches          int
}

// HeadToHeadStats aggregates the last `limit` finished meetings between the
// two teams strictly before kickoff. With no prior meetings the win rate
// defaults to an uninformative 0.5 and everything else to zero.
func HeadToHeadStats(meetings []models.Match, homeID, awayID int64, kickoff time.Time, limit int) HeadToHead {
	var prior []models.Match
	for _, m := range meetings {
		if !m.Finished() || !m.UTCDate.Before(kickoff) {
			continue
		}
		if (m.HomeTeamID == homeID && m.AwayTeamID == awayID) ||
			(m.HomeTeamID == awayID && m.AwayTeamID == homeID) {
			prior = append(prior, m)
		}
	}
	if len(prior) > limit {
		prior = prior[len(prior)-limit:]
	}

	if len(prior) == 0 {
		return HeadToHead{WinRate: 0.5}
	}

	var wins, draws, gd, goals int
	var venueWins, venueMeetings int
	for _, m := range prior {
		hs, as := *m.HomeScore, *m.AwayScore
		// orient for/against to the upcoming home side
		gfFor, gfAgainst := hs, as
		if m.HomeTeamID == awayID {
			gfFor, gfAgainst = as, hs
		}
		switch {
		case gfFor > gfAgainst:
			wins++
		case gfFor == gfAgainst:
			draws++
		}
		gd += gfFor - gfAgainst
		goals += hs + as

		if m.HomeTeamID == homeID {
			venueMeetings++
			if hs > as {
				venueWins++
			}
		}
	}

	n := float64(len(prior))
	h := HeadToHead{
		WinRate:  float64(wins) / n,
		DrawRate: float64(draws) / n,
		GoalDiff: float64(gd) / n,
		AvgGoals: float64(goals) / n,
		Matches:  len(prior),
	}
	if venueMeetings > 0 {
		h.HomeVenueWinRate = float64(venueWins) / float64(venueMeetings)
	}
	return h
}
