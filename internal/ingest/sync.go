// Package ingest pulls fixtures, standings and team data from the provider
// into Postgres. Syncs are idempotent: unchanged rows are skipped, status
// updates respect the forward-only match lifecycle, and finished matches are
// never rewritten.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/features"
	"github.com/matchpulse/predict-api/internal/models"
)

// Source is the provider surface the sync needs. The bool reports data
// served from the stale cache during a provider outage.
type Source interface {
	Matches(ctx context.Context, competition string, season int) ([]models.Match, bool, error)
	Standings(ctx context.Context, competition string, season int) ([]models.StandingSnapshot, bool, error)
	Teams(ctx context.Context, competition string, season int) ([]models.Team, bool, error)
}

// Enqueuer schedules feature rebuilds for changed matches.
type Enqueuer interface {
	Enqueue(m models.Match) bool
}

// Locker is the Redis surface used to keep concurrent sync runs from
// overlapping.
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const (
	syncLockKey = "ingest:lock"
	syncLockTTL = 10 * time.Minute
)

// ErrSyncInProgress is returned when the Redis lock is already held by
// another sync run.
var ErrSyncInProgress = errors.New("another sync is already running")

// Service runs the ingestion passes.
type Service struct {
	source Source
	db     features.Querier
	pool   Enqueuer
	locker Locker
	logger *zap.SugaredLogger
}

func NewService(source Source, db features.Querier, pool Enqueuer, locker Locker, logger *zap.SugaredLogger) *Service {
	return &Service{source: source, db: db, pool: pool, locker: locker, logger: logger}
}

// Result summarizes one sync pass.
type Result struct {
	Competition string `json:"competition"`
	Season      int    `json:"season"`
	Fetched     int    `json:"fetched"`
	Inserted    int    `json:"inserted"`
	Updated     int    `json:"updated"`
	Skipped     int    `json:"skipped"`
	Enqueued    int    `json:"enqueued"`
	Teams       int    `json:"teams"`
	Standings   int    `json:"standings"`
	Stale       bool   `json:"stale"`
}

// SyncAll runs teams, matches and standings for every configured season
// under a Redis lock so overlapping cron fires and manual triggers cannot
// race each other.
func (s *Service) SyncAll(ctx context.Context, competition string, seasons []int) ([]Result, error) {
	if s.locker != nil {
		ok, err := s.locker.SetNX(ctx, syncLockKey, time.Now().Unix(), syncLockTTL).Result()
		if err != nil {
			s.logger.Warnw("sync lock check failed, proceeding without lock", "error", err)
		} else if !ok {
			return nil, ErrSyncInProgress
		} else {
			defer s.locker.Del(context.WithoutCancel(ctx), syncLockKey)
		}
	}

	var results []Result
	for _, season := range seasons {
		res, err := s.SyncSeason(ctx, competition, season)
		if err != nil {
			return results, fmt.Errorf("sync season %d: %w", season, err)
		}
		results = append(results, *res)
	}
	return results, nil
}

// SyncSeason ingests one competition season: teams, fixtures, standings.
// Changed matches are queued for feature rebuild; when a result changed, the
// season's remaining scheduled matches are rebuilt too, since their rolling
// form now reflects the new result.
func (s *Service) SyncSeason(ctx context.Context, competition string, season int) (*Result, error) {
	res := &Result{Competition: competition, Season: season}

	teams, teamsStale, err := s.syncTeams(ctx, competition, season)
	if err != nil {
		return nil, err
	}
	res.Teams = teams
	res.Stale = res.Stale || teamsStale

	matches, matchesStale, err := s.source.Matches(ctx, competition, season)
	if err != nil {
		return nil, fmt.Errorf("fetch matches: %w", err)
	}
	res.Fetched = len(matches)
	res.Stale = res.Stale || matchesStale

	resultChanged := false
	for i := range matches {
		m := &matches[i]
		change, err := s.upsertMatch(ctx, m)
		if err != nil {
			return nil, err
		}
		switch change {
		case changeInserted:
			res.Inserted++
		case changeUpdated:
			res.Updated++
		case changeSkipped:
			res.Skipped++
			continue
		}
		if m.Finished() {
			resultChanged = true
		}
		if s.pool != nil && s.pool.Enqueue(*m) {
			res.Enqueued++
		}
	}

	if resultChanged {
		n, err := s.enqueueScheduled(ctx, competition, season)
		if err != nil {
			s.logger.Warnw("failed to requeue scheduled matches", "season", season, "error", err)
		}
		res.Enqueued += n
	}

	standings, standingsStale, err := s.syncStandings(ctx, competition, season)
	if err != nil {
		// standings lag fixtures on the provider side; a miss is not fatal
		s.logger.Warnw("standings sync failed", "season", season, "error", err)
	}
	res.Standings = standings
	res.Stale = res.Stale || standingsStale

	s.logger.Infow("season synced",
		"competition", competition,
		"season", season,
		"fetched", res.Fetched,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"enqueued", res.Enqueued,
		"stale", res.Stale,
	)
	return res, nil
}

type matchChange int

const (
	changeSkipped matchChange = iota
	changeInserted
	changeUpdated
)

// upsertMatch writes one match, honoring status monotonicity and the
// immutability of finished results.
func (s *Service) upsertMatch(ctx context.Context, m *models.Match) (matchChange, error) {
	var (
		oldStatus        string
		oldHome, oldAway *int
		oldDate          time.Time
	)
	err := s.db.QueryRow(ctx,
		`SELECT status, home_score, away_score, utc_date FROM matches WHERE id = $1`, m.ID).
		Scan(&oldStatus, &oldHome, &oldAway, &oldDate)

	exists := err == nil
	if exists {
		if oldStatus == models.StatusFinished {
			return changeSkipped, nil
		}
		if !models.CanTransition(oldStatus, m.Status) {
			s.logger.Warnw("rejecting backwards status transition",
				"match_id", m.ID, "from", oldStatus, "to", m.Status)
			return changeSkipped, nil
		}
		if oldStatus == m.Status && oldDate.Equal(m.UTCDate) &&
			intPtrEq(oldHome, m.HomeScore) && intPtrEq(oldAway, m.AwayScore) {
			return changeSkipped, nil
		}
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO matches (id, competition, season, matchday, utc_date, status,
			home_team_id, away_team_id, home_score, away_score, venue, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (id) DO UPDATE SET
			matchday = EXCLUDED.matchday,
			utc_date = EXCLUDED.utc_date,
			status = EXCLUDED.status,
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			venue = EXCLUDED.venue,
			updated_at = NOW()`,
		m.ID, m.Competition, m.Season, m.Matchday, m.UTCDate, m.Status,
		m.HomeTeamID, m.AwayTeamID, m.HomeScore, m.AwayScore, m.Venue)
	if err != nil {
		return changeSkipped, fmt.Errorf("upsert match %d: %w", m.ID, err)
	}

	if exists {
		return changeUpdated, nil
	}
	return changeInserted, nil
}

func (s *Service) enqueueScheduled(ctx context.Context, competition string, season int) (int, error) {
	if s.pool == nil {
		return 0, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, competition, season, matchday, utc_date, status, home_team_id, away_team_id
		FROM matches
		WHERE competition = $1 AND season = $2 AND status IN ($3, $4)`,
		competition, season, models.StatusScheduled, models.StatusTimed)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.Competition, &m.Season, &m.Matchday,
			&m.UTCDate, &m.Status, &m.HomeTeamID, &m.AwayTeamID); err != nil {
			return n, err
		}
		if s.pool.Enqueue(m) {
			n++
		}
	}
	return n, rows.Err()
}

func (s *Service) syncTeams(ctx context.Context, competition string, season int) (int, bool, error) {
	teams, stale, err := s.source.Teams(ctx, competition, season)
	if err != nil {
		return 0, false, fmt.Errorf("fetch teams: %w", err)
	}
	for _, t := range teams {
		_, err := s.db.Exec(ctx, `
			INSERT INTO teams (id, name, short_name, tla, crest_url)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				short_name = EXCLUDED.short_name,
				tla = EXCLUDED.tla,
				crest_url = EXCLUDED.crest_url`,
			t.ID, t.Name, t.ShortName, t.TLA, t.CrestURL)
		if err != nil {
			return 0, stale, fmt.Errorf("upsert team %d: %w", t.ID, err)
		}
	}
	return len(teams), stale, nil
}

func (s *Service) syncStandings(ctx context.Context, competition string, season int) (int, bool, error) {
	snaps, stale, err := s.source.Standings(ctx, competition, season)
	if err != nil {
		return 0, false, fmt.Errorf("fetch standings: %w", err)
	}
	for _, snap := range snaps {
		_, err := s.db.Exec(ctx, `
			INSERT INTO standings (competition, season, matchday, team_id, position,
				played_games, won, drawn, lost, points, goals_for, goals_against, goal_diff, form)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (competition, season, matchday, team_id) DO UPDATE SET
				position = EXCLUDED.position,
				played_games = EXCLUDED.played_games,
				won = EXCLUDED.won,
				drawn = EXCLUDED.drawn,
				lost = EXCLUDED.lost,
				points = EXCLUDED.points,
				goals_for = EXCLUDED.goals_for,
				goals_against = EXCLUDED.goals_against,
				goal_diff = EXCLUDED.goal_diff,
				form = EXCLUDED.form`,
			competition, snap.Season, snap.Matchday, snap.TeamID, snap.Position,
			snap.PlayedGames, snap.Won, snap.Drawn, snap.Lost, snap.Points,
			snap.GoalsFor, snap.GoalsAgainst, snap.GoalDiff, snap.Form)
		if err != nil {
			return 0, stale, fmt.Errorf("upsert standing for team %d: %w", snap.TeamID, err)
		}
	}
	return len(snaps), stale, nil
}

func intPtrEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
