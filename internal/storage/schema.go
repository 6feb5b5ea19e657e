// Package storage owns the Postgres schema. Migrations are plain
// CREATE IF NOT EXISTS statements run at startup, applied in order.
package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the minimal connection surface the migrator needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		short_name TEXT NOT NULL DEFAULT '',
		tla TEXT NOT NULL DEFAULT '',
		crest_url TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS matches (
		id BIGINT PRIMARY KEY,
		competition TEXT NOT NULL,
		season INTEGER NOT NULL,
		matchday INTEGER NOT NULL,
		utc_date TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		home_team_id BIGINT NOT NULL,
		away_team_id BIGINT NOT NULL,
		home_score INTEGER,
		away_score INTEGER,
		venue TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_competition_season ON matches(competition, season)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_utc_date ON matches(utc_date)`,

	`CREATE TABLE IF NOT EXISTS standings (
		competition TEXT NOT NULL,
		season INTEGER NOT NULL,
		matchday INTEGER NOT NULL,
		team_id BIGINT NOT NULL,
		position INTEGER NOT NULL,
		played_games INTEGER NOT NULL,
		won INTEGER NOT NULL,
		drawn INTEGER NOT NULL,
		lost INTEGER NOT NULL,
		points INTEGER NOT NULL,
		goals_for INTEGER NOT NULL,
		goals_against INTEGER NOT NULL,
		goal_diff INTEGER NOT NULL,
		form TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (competition, season, matchday, team_id)
	)`,

	`CREATE TABLE IF NOT EXISTS match_features (
		match_id BIGINT PRIMARY KEY REFERENCES matches(id),
		schema_version TEXT NOT NULL,
		features JSONB NOT NULL,
		quality JSONB,
		built_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_match_features_schema ON match_features(schema_version)`,

	`CREATE TABLE IF NOT EXISTS predictions (
		match_id BIGINT PRIMARY KEY REFERENCES matches(id),
		prob_away DOUBLE PRECISION NOT NULL,
		prob_draw DOUBLE PRECISION NOT NULL,
		prob_home DOUBLE PRECISION NOT NULL,
		model_version TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate brings the schema up to date. Statements are idempotent, so
// re-running on every boot is safe.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
