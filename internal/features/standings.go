package features

import "github.com/matchpulse/predict-api/internal/models"

// TablePosition holds the standings-derived features for one side.
type TablePosition struct {
	Position      float64
	Points        float64
	GoalDiff      float64
	RankDelta     float64
	TableStrength float64
}

const (
	// midTablePosition is the cold-start standing when no snapshot exists
	// for a team (first matchdays of a season).
	midTablePosition = 10.0
)

// PositionAt resolves a team's standing from the snapshot taken at the
// given matchday, falling back to mid-table defaults when no snapshot is
// available. RankDelta is the position change over `deltaWindow` matchdays
// (positive = climbed the table).
func PositionAt(snapshots []models.StandingSnapshot, teamID int64, matchday, deltaWindow int) TablePosition {
	cur := lookup(snapshots, teamID, matchday)
	if cur == nil {
		return TablePosition{
			Position:      midTablePosition,
			TableStrength: 1.0 / midTablePosition,
		}
	}

	pos := TablePosition{
		Position:      float64(cur.Position),
		Points:        float64(cur.Points),
		GoalDiff:      float64(cur.GoalDiff),
		TableStrength: 1.0 / float64(cur.Position),
	}

	if prev := lookup(snapshots, teamID, matchday-deltaWindow); prev != nil {
		pos.RankDelta = float64(prev.Position - cur.Position)
	}

	return pos
}

// lookup finds the snapshot for teamID at the latest matchday <= want.
func lookup(snapshots []models.StandingSnapshot, teamID int64, want int) *models.StandingSnapshot {
	if want < 1 {
		return nil
	}
	var best *models.StandingSnapshot
	for i := range snapshots {
		s := &snapshots[i]
		if s.TeamID != teamID || s.Matchday > want {
			continue
		}
		if best == nil || s.Matchday > best.Matchday {
			best = s
		}
	}
	return best
}
