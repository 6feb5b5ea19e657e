package logic

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matchpulse/predict-api/internal/models"
)

// MockDB routes pool calls to test-provided functions.
type MockDB struct {
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *MockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return &MockRows{}, nil
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFunc != nil {
		return m.QueryRowFunc(ctx, sql, args...)
	}
	return &MockRow{Err: pgx.ErrNoRows}
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// MockRow scans canned values.
type MockRow struct {
	Values []any
	Err    error
}

func (r *MockRow) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return assignValues(dest, r.Values)
}

// MockRows is a minimal pgx.Rows over canned rows.
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
	return assignValues(dest, r.Rows[r.idx-1])
}

func assignValues(dest, src []any) error {
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

// MockMatchService serves canned matches.
type MockMatchService struct {
	GetMatchFunc    func(ctx context.Context, id int64) (*models.Match, error)
	ListMatchesFunc func(ctx context.Context, filter MatchFilter) ([]models.Match, error)
	ListTeamsFunc   func(ctx context.Context) ([]models.Team, error)
}

func (m *MockMatchService) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockMatchService) ListMatches(ctx context.Context, filter MatchFilter) ([]models.Match, error) {
	if m.ListMatchesFunc != nil {
		return m.ListMatchesFunc(ctx, filter)
	}
	return nil, nil
}

func (m *MockMatchService) ListTeams(ctx context.Context) ([]models.Team, error) {
	if m.ListTeamsFunc != nil {
		return m.ListTeamsFunc(ctx)
	}
	return nil, nil
}

// MockBootstrapSource serves a canned fantasy bootstrap.
type MockBootstrapSource struct {
	Data *models.FantasyBootstrap
	Err  error
}

func (m *MockBootstrapSource) Bootstrap(ctx context.Context) (*models.FantasyBootstrap, error) {
	return m.Data, m.Err
}
