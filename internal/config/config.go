package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Stores
	PostgresURL string
	RedisURL    string

	// Upstream provider (football-data.org compatible)
	ProviderBaseURL  string
	ProviderAPIKey   string
	ProviderTimeout  time.Duration
	ProviderCacheTTL time.Duration

	// FPL API
	FantasyBaseURL  string
	FantasyCacheTTL time.Duration

	// Competition scope
	CompetitionCode string
	Seasons         []int

	// Feature engineering
	RollingWindow   int
	RankDeltaWindow int
	HeadToHeadLimit int

	// Model
	ArtifactDir      string
	MinTrainSamples  int
	ErrorWeightCap   float64
	PromoteTolerance float64
	AutoRetrainFloor float64
	RandomSeed       int64

	// Feature-build worker pool
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration

	// Scheduler
	IngestCron  string
	AnalyzeCron string
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		ProviderBaseURL:  getEnv("PROVIDER_BASE_URL", "https://api.football-data.org/v4"),
		ProviderTimeout:  getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),
		ProviderCacheTTL: getEnvDuration("PROVIDER_CACHE_TTL", time.Hour),

		FantasyBaseURL:  getEnv("FANTASY_BASE_URL", "https://fantasy.premierleague.com/api"),
		FantasyCacheTTL: getEnvDuration("FANTASY_CACHE_TTL", time.Hour),

		CompetitionCode: getEnv("COMPETITION_CODE", "PL"),

		RollingWindow:   getEnvInt("ROLLING_WINDOW", 5),
		RankDeltaWindow: getEnvInt("RANK_DELTA_WINDOW", 5),
		HeadToHeadLimit: getEnvInt("H2H_LIMIT", 10),

		ArtifactDir:      getEnv("ARTIFACT_DIR", "artifacts"),
		MinTrainSamples:  getEnvInt("MIN_TRAIN_SAMPLES", 50),
		ErrorWeightCap:   getEnvFloat("ERROR_WEIGHT_CAP", 2.0),
		PromoteTolerance: getEnvFloat("PROMOTE_TOLERANCE", 0.01),
		AutoRetrainFloor: getEnvFloat("AUTO_RETRAIN_FLOOR", 0.45),
		RandomSeed:       int64(getEnvInt("RANDOM_SEED", 42)),

		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		QueueSize:     getEnvInt("QUEUE_SIZE", 5000),
		BatchSize:     getEnvInt("BATCH_SIZE", 100),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 2*time.Second),

		IngestCron:  getEnv("INGEST_CRON", "0 */6 * * *"),
		AnalyzeCron: getEnv("ANALYZE_CRON", "30 3 * * *"),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Season scope; the newest season is held out for validation
	seasons := getEnv("SEASONS", "2020,2021,2022,2023,2024")
	for _, s := range strings.Split(seasons, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			year, err := strconv.Atoi(trimmed)
			if err != nil {
				return nil, fmt.Errorf("invalid SEASONS entry %q", trimmed)
			}
			cfg.Seasons = append(cfg.Seasons, year)
		}
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
		return nil, err
	}
	if cfg.ProviderAPIKey, err = getEnvRequired("PROVIDER_API_KEY"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// TrainSeasons returns every configured season except the validation season.
func (c *Config) TrainSeasons() []int {
	if len(c.Seasons) <= 1 {
		return c.Seasons
	}
	return c.Seasons[:len(c.Seasons)-1]
}

// ValidationSeason returns the newest configured season.
func (c *Config) ValidationSeason() int {
	if len(c.Seasons) == 0 {
		return 0
	}
	return c.Seasons[len(c.Seasons)-1]
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
