// Command trainer is the operator CLI for the offline side of the system:
// pulling provider data, rebuilding feature rows, training and promoting
// models, and inspecting prediction accuracy without going through HTTP.
//
// Usage:
//
//	trainer sync
//	trainer build-features [-season 2024]
//	trainer train [-algorithm xgb] [-error-weighting] [-force]
//	trainer analyze [-days-back 30]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/config"
	"github.com/matchpulse/predict-api/internal/features"
	"github.com/matchpulse/predict-api/internal/ingest"
	"github.com/matchpulse/predict-api/internal/logic"
	"github.com/matchpulse/predict-api/internal/ml"
	"github.com/matchpulse/predict-api/internal/models"
	"github.com/matchpulse/predict-api/internal/provider"
	"github.com/matchpulse/predict-api/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fatal("config: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fatal("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pg, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		fatal("postgres: %v", err)
	}
	defer pg.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		fatal("redis url: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := storage.Migrate(ctx, pg); err != nil {
		fatal("migrate: %v", err)
	}

	app := &trainer{cfg: cfg, pg: pg, rdb: rdb, sugar: sugar}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "sync":
		err = app.runSync(ctx, args)
	case "build-features":
		err = app.runBuildFeatures(ctx, args)
	case "train":
		err = app.runTrain(ctx, args)
	case "analyze":
		err = app.runAnalyze(ctx, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal("%s: %v", cmd, err)
	}
}

type trainer struct {
	cfg   *config.Config
	pg    *pgxpool.Pool
	rdb   *redis.Client
	sugar *zap.SugaredLogger
}

func (t *trainer) builder() *features.Builder {
	return features.NewBuilder(t.pg, t.cfg.RollingWindow, t.cfg.RankDeltaWindow, t.cfg.HeadToHeadLimit)
}

func (t *trainer) store() *ml.Store {
	return ml.NewStore(t.cfg.ArtifactDir, features.SchemaVersion, t.sugar)
}

func (t *trainer) analysis() logic.AnalysisService {
	return logic.NewAnalysisService(t.pg, t.store(), logic.AnalysisConfig{
		Competition:      t.cfg.CompetitionCode,
		TrainSeasons:     t.cfg.TrainSeasons(),
		ValidationSeason: t.cfg.ValidationSeason(),
		MinTrainSamples:  t.cfg.MinTrainSamples,
		ErrorWeightCap:   t.cfg.ErrorWeightCap,
		PromoteTolerance: t.cfg.PromoteTolerance,
		AutoRetrainFloor: t.cfg.AutoRetrainFloor,
		RandomSeed:       t.cfg.RandomSeed,
	}, t.sugar)
}

// runSync pulls the provider data for every configured season. Feature rows
// for changed matches are rebuilt inline rather than through the worker pool.
func (t *trainer) runSync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	season := fs.Int("season", 0, "sync a single season")
	fs.Parse(args)

	client := provider.NewClient(t.cfg.ProviderBaseURL, t.cfg.ProviderAPIKey,
		t.cfg.ProviderTimeout, t.cfg.ProviderCacheTTL, t.rdb, t.sugar)
	svc := ingest.NewService(client, t.pg, inlineBuilder{ctx, t.builder(), t.sugar}, t.rdb, t.sugar)

	seasons := t.cfg.Seasons
	if *season != 0 {
		seasons = []int{*season}
	}

	results, err := svc.SyncAll(ctx, t.cfg.CompetitionCode, seasons)
	if err != nil {
		return err
	}
	return printJSON(results)
}

// runBuildFeatures rebuilds feature rows for a season's finished matches,
// which is needed once before the first training run.
func (t *trainer) runBuildFeatures(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build-features", flag.ExitOnError)
	season := fs.Int("season", 0, "restrict to one season")
	fs.Parse(args)

	matches := logic.NewMatchService(t.pg)
	listed, err := matches.ListMatches(ctx, logic.MatchFilter{
		Competition: t.cfg.CompetitionCode,
		Season:      *season,
		Status:      models.StatusFinished,
		Limit:       500,
	})
	if err != nil {
		return err
	}

	builder := t.builder()
	built := 0
	for _, m := range listed {
		row, err := builder.Build(ctx, &m)
		if err != nil {
			t.sugar.Warnw("feature build failed", "match_id", m.ID, "error", err)
			continue
		}
		if err := builder.Upsert(ctx, row); err != nil {
			return fmt.Errorf("upsert features for match %d: %w", m.ID, err)
		}
		built++
	}
	t.sugar.Infow("feature build finished", "matches", len(listed), "built", built)
	return nil
}

func (t *trainer) runTrain(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	algorithm := fs.String("algorithm", ml.AlgorithmBoost, "xgb, rf or lr")
	errorWeighting := fs.Bool("error-weighting", false, "weight samples by past prediction mistakes")
	force := fs.Bool("force", false, "retrain even without new samples")
	fs.Parse(args)

	result, err := t.analysis().Retrain(ctx, models.RetrainRequest{
		Algorithm:      *algorithm,
		ErrorWeighting: *errorWeighting,
		Force:          *force,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func (t *trainer) runAnalyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	daysBack := fs.Int("days-back", 30, "evaluation window in days")
	season := fs.Int("season", 0, "restrict to one season")
	matchday := fs.Int("matchday", 0, "restrict to one matchday")
	fs.Parse(args)

	result, err := t.analysis().Analyze(ctx, models.AnalysisFilter{
		DaysBack: *daysBack,
		Season:   *season,
		Matchday: *matchday,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

// inlineBuilder satisfies the sync service's enqueue interface by building
// feature rows synchronously, so the CLI needs no worker pool.
type inlineBuilder struct {
	ctx     context.Context
	builder *features.Builder
	sugar   *zap.SugaredLogger
}

func (b inlineBuilder) Enqueue(m models.Match) bool {
	row, err := b.builder.Build(b.ctx, &m)
	if err != nil {
		b.sugar.Warnw("feature build failed", "match_id", m.ID, "error", err)
		return false
	}
	if err := b.builder.Upsert(b.ctx, row); err != nil {
		b.sugar.Warnw("feature upsert failed", "match_id", m.ID, "error", err)
		return false
	}
	return true
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: trainer <sync|build-features|train|analyze> [flags]")
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
