package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/ingest"
	"github.com/matchpulse/predict-api/internal/logic"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// FeatureQueue is the feature-build worker pool surface exposed over HTTP.
type FeatureQueue interface {
	QueueDepth() int
}

// Syncer triggers a full provider sync.
type Syncer interface {
	SyncAll(ctx context.Context, competition string, seasons []int) ([]ingest.Result, error)
}

type Config struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
	Queue    FeatureQueue
	Logger   *zap.Logger

	Competition string
	Seasons     []int

	// Services
	Matches    logic.MatchService
	Standings  logic.StandingsService
	Prediction logic.PredictionService
	Analysis   logic.AnalysisService
	Fantasy    logic.FantasyService
	Sync       Syncer
}

type Handler struct {
	pg          *pgxpool.Pool
	redis       *redis.Client
	queue       FeatureQueue
	logger      *zap.SugaredLogger
	validator   *validator.Validate
	competition string
	seasons     []int
	matches     logic.MatchService
	standings   logic.StandingsService
	prediction  logic.PredictionService
	analysis    logic.AnalysisService
	fantasy     logic.FantasyService
	sync        Syncer
}

func New(cfg Config) *Handler {
	return &Handler{
		pg:          cfg.Postgres,
		redis:       cfg.Redis,
		queue:       cfg.Queue,
		logger:      cfg.Logger.Sugar(),
		validator:   validator.New(),
		competition: cfg.Competition,
		seasons:     cfg.Seasons,
		matches:     cfg.Matches,
		standings:   cfg.Standings,
		prediction:  cfg.Prediction,
		analysis:    cfg.Analysis,
		fantasy:     cfg.Fantasy,
		sync:        cfg.Sync,
	}
}
