package ingest

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matchpulse/predict-api/internal/models"
)

// MockSource implements Source with canned provider payloads.
type MockSource struct {
	MatchesFunc   func(ctx context.Context, competition string, season int) ([]models.Match, bool, error)
	StandingsFunc func(ctx context.Context, competition string, season int) ([]models.StandingSnapshot, bool, error)
	TeamsFunc     func(ctx context.Context, competition string, season int) ([]models.Team, bool, error)
}

func (m *MockSource) Matches(ctx context.Context, competition string, season int) ([]models.Match, bool, error) {
	if m.MatchesFunc != nil {
		return m.MatchesFunc(ctx, competition, season)
	}
	return nil, false, nil
}

func (m *MockSource) Standings(ctx context.Context, competition string, season int) ([]models.StandingSnapshot, bool, error) {
	if m.StandingsFunc != nil {
		return m.StandingsFunc(ctx, competition, season)
	}
	return nil, false, nil
}

func (m *MockSource) Teams(ctx context.Context, competition string, season int) ([]models.Team, bool, error) {
	if m.TeamsFunc != nil {
		return m.TeamsFunc(ctx, competition, season)
	}
	return nil, false, nil
}

// MockEnqueuer records enqueued matches.
type MockEnqueuer struct {
	Enqueued []models.Match
}

func (m *MockEnqueuer) Enqueue(match models.Match) bool {
	m.Enqueued = append(m.Enqueued, match)
	return true
}

// storedMatch is the subset of match state the fake DB tracks.
type storedMatch struct {
	Status    string
	HomeScore *int
	AwayScore *int
	UTCDate   time.Time
}

// MockDB is an in-memory stand-in for the Postgres pool, routing by query
// shape the way the sync service issues statements.
type MockDB struct {
	Matches      map[int64]*storedMatch
	Scheduled    []models.Match
	TeamUpserts  int
	TableUpserts int
}

func NewMockDB() *MockDB {
	return &MockDB{Matches: make(map[int64]*storedMatch)}
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if strings.Contains(sql, "FROM matches WHERE id") {
		id := args[0].(int64)
		stored, ok := m.Matches[id]
		if !ok {
			return &MockRow{Err: pgx.ErrNoRows}
		}
		return &MockRow{Values: []any{stored.Status, stored.HomeScore, stored.AwayScore, stored.UTCDate}}
	}
	return &MockRow{Err: pgx.ErrNoRows}
}

func (m *MockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if strings.Contains(sql, "status IN") {
		rows := &MockRows{}
		for _, sm := range m.Scheduled {
			rows.Rows = append(rows.Rows, []any{
				sm.ID, sm.Competition, sm.Season, sm.Matchday,
				sm.UTCDate, sm.Status, sm.HomeTeamID, sm.AwayTeamID,
			})
		}
		return rows, nil
	}
	return &MockRows{}, nil
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "INSERT INTO matches"):
		id := args[0].(int64)
		stored := &storedMatch{
			Status:  args[5].(string),
			UTCDate: args[4].(time.Time),
		}
		if hs, ok := args[8].(*int); ok {
			stored.HomeScore = hs
		}
		if as, ok := args[9].(*int); ok {
			stored.AwayScore = as
		}
		m.Matches[id] = stored
	case strings.Contains(sql, "INSERT INTO teams"):
		m.TeamUpserts++
	case strings.Contains(sql, "INSERT INTO standings"):
		m.TableUpserts++
	}
	return pgconn.CommandTag{}, nil
}

// MockRow scans canned values into the caller's destinations.
type MockRow struct {
	Values []any
	Err    error
}

func (r *MockRow) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return assign(dest, r.Values)
}

// MockRows is a minimal pgx.Rows over canned value rows.
type MockRows struct {
	Rows [][]any
	idx  int
	err  error
}

func (r *MockRows) Close()                                       {}
func (r *MockRows) Err() error                                   { return r.err }
func (r *MockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *MockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *MockRows) Values() ([]any, error)                       { return nil, nil }
func (r *MockRows) RawValues() [][]byte                          { return nil }
func (r *MockRows) Conn() *pgx.Conn                              { return nil }

func (r *MockRows) Next() bool {
	r.idx++
	return r.idx <= len(r.Rows)
}

func (r *MockRows) Scan(dest ...any) error {
	return assign(dest, r.Rows[r.idx-1])
}

func assign(dest, src []any) error {
	for i := range dest {
		if i >= len(src) {
			break
		}
		dv := reflect.ValueOf(dest[i]).Elem()
		if src[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		dv.Set(reflect.ValueOf(src[i]))
	}
	return nil
}
