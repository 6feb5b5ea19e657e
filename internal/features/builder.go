package features

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"

	"github.com/matchpulse/predict-api/internal/models"
)

// Querier is the slice of pgxpool.Pool the builder needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Builder assembles the per-match feature vector from cached provider data.
type Builder struct {
	db          Querier
	window      int
	deltaWindow int
	h2hLimit    int
}

func NewBuilder(db Querier, window, deltaWindow, h2hLimit int) *Builder {
	return &Builder{db: db, window: window, deltaWindow: deltaWindow, h2hLimit: h2hLimit}
}

// Row is a persisted feature vector for one match.
type Row struct {
	MatchID       int64
	SchemaVersion string
	Values        map[string]float64
	Quality       models.DataQuality
	BuiltAt       time.Time
}

// Build computes the feature map for one fixture. It never fails on thin
// history - rolling form degrades to league priors, standings to mid-table,
// head-to-head to an uninformative 0.5 - so every scheduled match gets a
// vector plus a DataQuality report the caller can surface.
func (b *Builder) Build(ctx context.Context, m *models.Match) (*Row, error) {
	var (
		homeForm, awayForm Form
		homePos, awayPos   TablePosition
		h2h                HeadToHead
	)

	priors, err := b.leaguePriors(ctx, m.Competition, m.Season)
	if err != nil {
		return nil, fmt.Errorf("league priors: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results, err := b.teamResults(gctx, m.Competition, m.Season, m.HomeTeamID)
		if err != nil {
			return fmt.Errorf("home form: %w", err)
		}
		homeForm = RollingForm(results, m.UTCDate, b.window, priors)
		return nil
	})

	g.Go(func() error {
		results, err := b.teamResults(gctx, m.Competition, m.Season, m.AwayTeamID)
		if err != nil {
			return fmt.Errorf("away form: %w", err)
		}
		awayForm = RollingForm(results, m.UTCDate, b.window, priors)
		return nil
	})

	g.Go(func() error {
		snaps, err := b.standings(gctx, m.Competition, m.Season)
		if err != nil {
			return fmt.Errorf("standings: %w", err)
		}
		homePos = PositionAt(snaps, m.HomeTeamID, m.Matchday-1, b.deltaWindow)
		awayPos = PositionAt(snaps, m.AwayTeamID, m.Matchday-1, b.deltaWindow)
		return nil
	})

	g.Go(func() error {
		meetings, err := b.meetings(gctx, m.HomeTeamID, m.AwayTeamID)
		if err != nil {
			return fmt.Errorf("head to head: %w", err)
		}
		h2h = HeadToHeadStats(meetings, m.HomeTeamID, m.AwayTeamID, m.UTCDate, b.h2hLimit)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	values := map[string]float64{
		"home_form_ppg":                homeForm.PPG,
		"away_form_ppg":                awayForm.PPG,
		"diff_form_ppg":                homeForm.PPG - awayForm.PPG,
		"home_goals_for_per_match":     homeForm.GoalsForPerMatch,
		"away_goals_for_per_match":     awayForm.GoalsForPerMatch,
		"home_goals_against_per_match": homeForm.GoalsAgainstPerMatch,
		"away_goals_against_per_match": awayForm.GoalsAgainstPerMatch,
		"home_goal_diff_per_match":     homeForm.GoalDiffPerMatch,
		"away_goal_diff_per_match":     awayForm.GoalDiffPerMatch,
		"home_rest_days":               homeForm.RestDays,
		"away_rest_days":               awayForm.RestDays,
		"diff_rest_days":               homeForm.RestDays - awayForm.RestDays,

		"home_position":       homePos.Position,
		"away_position":       awayPos.Position,
		"diff_position":       awayPos.Position - homePos.Position,
		"home_rank_delta":     homePos.RankDelta,
		"away_rank_delta":     awayPos.RankDelta,
		"diff_rank_delta":     homePos.RankDelta - awayPos.RankDelta,
		"diff_points":         homePos.Points - awayPos.Points,
		"diff_goal_diff":      homePos.GoalDiff - awayPos.GoalDiff,
		"home_table_strength": homePos.TableStrength,
		"away_table_strength": awayPos.TableStrength,

		"h2h_win_rate":            h2h.WinRate,
		"h2h_draw_rate":           h2h.DrawRate,
		"h2h_goal_diff":           h2h.GoalDiff,
		"h2h_avg_goals":           h2h.AvgGoals,
		"h2h_home_venue_win_rate": h2h.HomeVenueWinRate,
		"h2h_matches_count":       float64(h2h.Matches),

		"home_flag": 1,
	}

	return &Row{
		MatchID:       m.ID,
		SchemaVersion: SchemaVersion,
		Values:        values,
		Quality: models.DataQuality{
			HomeMatches: homeForm.MatchesAvailable,
			AwayMatches: awayForm.MatchesAvailable,
			H2HMatches:  h2h.Matches,
		},
		BuiltAt: time.Now().UTC(),
	}, nil
}

// Upsert persists a feature row, replacing any earlier build for the match.
func (b *Builder) Upsert(ctx context.Context, row *Row) error {
	payload, err := json.Marshal(row.Values)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	quality, err := json.Marshal(row.Quality)
	if err != nil {
		return fmt.Errorf("marshal quality: %w", err)
	}
	_, err = b.db.Exec(ctx, `
		INSERT INTO match_features (match_id, schema_version, features, quality, built_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (match_id) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			features = EXCLUDED.features,
			quality = EXCLUDED.quality,
			built_at = EXCLUDED.built_at,
			updated_at = NOW()`,
		row.MatchID, row.SchemaVersion, payload, quality, row.BuiltAt)
	if err != nil {
		return fmt.Errorf("upsert features for match %d: %w", row.MatchID, err)
	}
	return nil
}

// Load fetches the persisted feature row for a match, or nil when no row
// exists or the row predates the current schema version.
func (b *Builder) Load(ctx context.Context, matchID int64) (*Row, error) {
	row := &Row{MatchID: matchID}
	var payload, quality []byte
	err := b.db.QueryRow(ctx, `
		SELECT schema_version, features, quality, built_at
		FROM match_features
		WHERE match_id = $1`, matchID).
		Scan(&row.SchemaVersion, &payload, &quality, &row.BuiltAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load features for match %d: %w", matchID, err)
	}
	if row.SchemaVersion != SchemaVersion {
		return nil, nil
	}
	if err := json.Unmarshal(payload, &row.Values); err != nil {
		return nil, fmt.Errorf("decode features for match %d: %w", matchID, err)
	}
	if err := json.Unmarshal(quality, &row.Quality); err != nil {
		return nil, fmt.Errorf("decode quality for match %d: %w", matchID, err)
	}
	return row, nil
}

func (b *Builder) leaguePriors(ctx context.Context, competition string, season int) (LeaguePriors, error) {
	var finished int
	var avgHome, avgAway float64
	err := b.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(AVG(home_score), 0),
		       COALESCE(AVG(away_score), 0)
		FROM matches
		WHERE competition = $1 AND season = $2 AND status = 'FINISHED'`,
		competition, season).Scan(&finished, &avgHome, &avgAway)
	if err != nil {
		return LeaguePriors{}, err
	}
	// too thin to average over, use the documented cold-start defaults
	if finished < 20 {
		return DefaultPriors(), nil
	}
	perTeam := (avgHome + avgAway) / 2
	return LeaguePriors{
		PPG:          1.35, // league mean points per game is fixed by the scoring system
		GoalsFor:     perTeam,
		GoalsAgainst: perTeam,
		RestDays:     7.0,
	}, nil
}

func (b *Builder) teamResults(ctx context.Context, competition string, season int, teamID int64) ([]TeamResult, error) {
	rows, err := b.db.Query(ctx, `
		SELECT utc_date, home_team_id, away_team_id, home_score, away_score
		FROM matches
		WHERE competition = $1 AND season = $2 AND status = 'FINISHED'
		  AND (home_team_id = $3 OR away_team_id = $3)
		ORDER BY utc_date ASC`,
		competition, season, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamResult
	for rows.Next() {
		var (
			kickoff        time.Time
			homeID, awayID int64
			hs, as         int
		)
		if err := rows.Scan(&kickoff, &homeID, &awayID, &hs, &as); err != nil {
			return nil, err
		}
		r := TeamResult{Kickoff: kickoff, GoalsFor: hs, GoalsAgainst: as, Home: true}
		if awayID == teamID {
			r.GoalsFor, r.GoalsAgainst = as, hs
			r.Home = false
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (b *Builder) standings(ctx context.Context, competition string, season int) ([]models.StandingSnapshot, error) {
	rows, err := b.db.Query(ctx, `
		SELECT season, matchday, team_id, position, played_games, won, drawn, lost,
		       points, goals_for, goals_against, goal_diff
		FROM standings
		WHERE competition = $1 AND season = $2
		ORDER BY matchday ASC, position ASC`,
		competition, season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StandingSnapshot
	for rows.Next() {
		var s models.StandingSnapshot
		if err := rows.Scan(&s.Season, &s.Matchday, &s.TeamID, &s.Position,
			&s.PlayedGames, &s.Won, &s.Drawn, &s.Lost,
			&s.Points, &s.GoalsFor, &s.GoalsAgainst, &s.GoalDiff); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (b *Builder) meetings(ctx context.Context, homeID, awayID int64) ([]models.Match, error) {
	rows, err := b.db.Query(ctx, `
		SELECT id, competition, season, matchday, utc_date, status,
		       home_team_id, away_team_id, home_score, away_score
		FROM matches
		WHERE status = 'FINISHED'
		  AND ((home_team_id = $1 AND away_team_id = $2)
		    OR (home_team_id = $2 AND away_team_id = $1))
		ORDER BY utc_date ASC`,
		homeID, awayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.Competition, &m.Season, &m.Matchday,
			&m.UTCDate, &m.Status, &m.HomeTeamID, &m.AwayTeamID,
			&m.HomeScore, &m.AwayScore); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
