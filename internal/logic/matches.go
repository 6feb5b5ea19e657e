package logic

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/models"
)

const matchColumns = `id, competition, season, matchday, utc_date, status,
	home_team_id, away_team_id, home_score, away_score, venue, updated_at`

// MatchFilter narrows the match listing.
type MatchFilter struct {
	Competition string
	Season      int
	Matchday    int
	Status      string
	TeamID      int64
	Limit       int
}

type matchService struct {
	db PgPool
}

func NewMatchService(db PgPool) MatchService {
	return &matchService{db: db}
}

// MatchService reads cached fixtures and teams.
type MatchService interface {
	ListMatches(ctx context.Context, filter MatchFilter) ([]models.Match, error)
	GetMatch(ctx context.Context, id int64) (*models.Match, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
}

func (s *matchService) ListMatches(ctx context.Context, filter MatchFilter) ([]models.Match, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Competition != "" {
		add("competition = $%d", filter.Competition)
	}
	if filter.Season > 0 {
		add("season = $%d", filter.Season)
	}
	if filter.Matchday > 0 {
		add("matchday = $%d", filter.Matchday)
	}
	if filter.Status != "" {
		add("status = $%d", strings.ToUpper(filter.Status))
	}
	if filter.TeamID > 0 {
		args = append(args, filter.TeamID)
		conds = append(conds, fmt.Sprintf("(home_team_id = $%d OR away_team_id = $%d)", len(args), len(args)))
	}

	query := "SELECT " + matchColumns + " FROM matches"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY utc_date ASC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var m models.Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *matchService) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	var m models.Match
	err := scanMatch(s.db.QueryRow(ctx,
		"SELECT "+matchColumns+" FROM matches WHERE id = $1", id), &m)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFoundf("match %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get match %d: %w", id, err)
	}
	return &m, nil
}

func (s *matchService) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, short_name, tla, crest_url FROM teams ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var out []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.ShortName, &t.TLA, &t.CrestURL); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanMatch(row pgx.Row, m *models.Match) error {
	return row.Scan(&m.ID, &m.Competition, &m.Season, &m.Matchday, &m.UTCDate,
		&m.Status, &m.HomeTeamID, &m.AwayTeamID, &m.HomeScore, &m.AwayScore,
		&m.Venue, &m.UpdatedAt)
}
