package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/models"
)

const fantasyCacheKey = "fantasy:bootstrap"

// FantasyClient fetches the fantasy game's bootstrap dataset. The endpoint
// is unauthenticated but heavily rate limited, so the whole payload is cached
// in Redis between gameweeks.
type FantasyClient struct {
	baseURL    string
	cacheTTL   time.Duration
	httpClient *http.Client
	redis      RedisClient
	logger     *zap.SugaredLogger
	maxRetries int
	retryDelay time.Duration
}

func NewFantasyClient(baseURL string, timeout, cacheTTL time.Duration, rdb RedisClient, logger *zap.SugaredLogger) *FantasyClient {
	return &FantasyClient{
		baseURL:    baseURL,
		cacheTTL:   cacheTTL,
		redis:      rdb,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Bootstrap returns the players/teams/gameweeks reference dataset.
func (c *FantasyClient) Bootstrap(ctx context.Context) (*models.FantasyBootstrap, error) {
	if c.redis != nil {
		if cached, err := c.redis.Get(ctx, fantasyCacheKey).Bytes(); err == nil {
			var b models.FantasyBootstrap
			if err := json.Unmarshal(cached, &b); err == nil {
				return &b, nil
			}
			c.logger.Warnw("discarding corrupt fantasy cache entry")
		}
	}

	body, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var b models.FantasyBootstrap
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("decode fantasy bootstrap: %w", err)
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, fantasyCacheKey, body, c.cacheTTL).Err(); err != nil {
			c.logger.Warnw("failed to cache fantasy bootstrap", "error", err)
		}
	}
	return &b, nil
}

func (c *FantasyClient) fetch(ctx context.Context) ([]byte, error) {
	url := c.baseURL + "/bootstrap-static/"

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create fantasy request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("fantasy request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read fantasy response: %w", err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return body, nil
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = fmt.Errorf("fantasy status %d: %w", resp.StatusCode, apperrors.ErrUpstreamUnavailable)
			continue
		default:
			return nil, fmt.Errorf("fantasy status %d: %w", resp.StatusCode, apperrors.ErrUpstreamUnavailable)
		}
	}

	return nil, lastErr
}
