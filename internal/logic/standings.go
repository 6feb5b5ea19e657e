package logic

import (
	"context"
	"fmt"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/models"
)

// StandingRow is one table row of the latest snapshot, joined with the team.
type StandingRow struct {
	models.StandingSnapshot
	TeamName string `json:"team_name"`
	TeamTLA  string `json:"team_tla,omitempty"`
}

type standingsService struct {
	db PgPool
}

func NewStandingsService(db PgPool) StandingsService {
	return &standingsService{db: db}
}

type StandingsService interface {
	GetStandings(ctx context.Context, competition string, season int) ([]StandingRow, error)
}

// GetStandings returns the latest snapshot of the season's table.
func (s *standingsService) GetStandings(ctx context.Context, competition string, season int) ([]StandingRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.season, s.matchday, s.team_id, s.position, s.played_games,
		       s.won, s.drawn, s.lost, s.points, s.goals_for, s.goals_against,
		       s.goal_diff, s.form, COALESCE(t.name, ''), COALESCE(t.tla, '')
		FROM standings s
		LEFT JOIN teams t ON t.id = s.team_id
		WHERE s.competition = $1 AND s.season = $2
		  AND s.matchday = (
			SELECT MAX(matchday) FROM standings
			WHERE competition = $1 AND season = $2
		  )
		ORDER BY s.position ASC`,
		competition, season)
	if err != nil {
		return nil, fmt.Errorf("get standings: %w", err)
	}
	defer rows.Close()

	var out []StandingRow
	for rows.Next() {
		var r StandingRow
		if err := rows.Scan(&r.Season, &r.Matchday, &r.TeamID, &r.Position,
			&r.PlayedGames, &r.Won, &r.Drawn, &r.Lost, &r.Points,
			&r.GoalsFor, &r.GoalsAgainst, &r.GoalDiff, &r.Form,
			&r.TeamName, &r.TeamTLA); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperrors.NotFoundf("no standings for %s season %d", competition, season)
	}
	return out, nil
}
