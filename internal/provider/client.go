// Package provider wraps the upstream football data API and the fantasy
// game API behind cached, retrying clients. Responses are cached in Redis so
// repeated ingestion passes inside the TTL never hit the provider's rate
// limits, and a long-lived stale copy backs every key so a provider outage
// degrades to slightly old data instead of failing the sync.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/models"
)

const (
	maxRetries = 3
	retryDelay = 1 * time.Second
	staleTTL   = 7 * 24 * time.Hour
)

// RedisClient is the slice of redis.Client the provider clients need.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Client talks to the football data provider.
type Client struct {
	baseURL    string
	apiKey     string
	cacheTTL   time.Duration
	httpClient *http.Client
	redis      RedisClient
	logger     *zap.SugaredLogger
	maxRetries int
	retryDelay time.Duration
}

func NewClient(baseURL, apiKey string, timeout, cacheTTL time.Duration, rdb RedisClient, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		cacheTTL:   cacheTTL,
		redis:      rdb,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Matches fetches the full fixture list for a competition season. The stale
// flag reports that the upstream was down and a cached copy was served.
func (c *Client) Matches(ctx context.Context, competition string, season int) ([]models.Match, bool, error) {
	body, stale, err := c.get(ctx, fmt.Sprintf("competitions/%s/matches", competition),
		map[string]string{"season": strconv.Itoa(season)})
	if err != nil {
		return nil, false, err
	}

	var resp matchesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, stale, fmt.Errorf("decode matches response: %w", err)
	}

	out := make([]models.Match, 0, len(resp.Matches))
	for _, wm := range resp.Matches {
		kickoff, err := time.Parse(time.RFC3339, wm.UTCDate)
		if err != nil {
			c.logger.Warnw("skipping match with bad kickoff", "match_id", wm.ID, "utc_date", wm.UTCDate)
			continue
		}
		m := models.Match{
			ID:          wm.ID,
			Competition: competition,
			Season:      season,
			Matchday:    wm.Matchday,
			UTCDate:     kickoff,
			Status:      wm.Status,
			HomeTeamID:  wm.HomeTeam.ID,
			AwayTeamID:  wm.AwayTeam.ID,
			Venue:       wm.Venue,
		}
		if wm.Status == models.StatusFinished {
			m.HomeScore = wm.Score.FullTime.Home
			m.AwayScore = wm.Score.FullTime.Away
		}
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UTCDate.Before(out[j].UTCDate) })
	return out, stale, nil
}

// Standings fetches the current total table for a competition season.
func (c *Client) Standings(ctx context.Context, competition string, season int) ([]models.StandingSnapshot, bool, error) {
	body, stale, err := c.get(ctx, fmt.Sprintf("competitions/%s/standings", competition),
		map[string]string{"season": strconv.Itoa(season)})
	if err != nil {
		return nil, false, err
	}

	var resp standingsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, stale, fmt.Errorf("decode standings response: %w", err)
	}

	var out []models.StandingSnapshot
	for _, block := range resp.Standings {
		if block.Type != "TOTAL" {
			continue
		}
		for _, row := range block.Table {
			out = append(out, models.StandingSnapshot{
				Season:       season,
				Matchday:     resp.Season.CurrentMatchday,
				TeamID:       row.Team.ID,
				Position:     row.Position,
				PlayedGames:  row.PlayedGames,
				Won:          row.Won,
				Drawn:        row.Draw,
				Lost:         row.Lost,
				Points:       row.Points,
				GoalsFor:     row.GoalsFor,
				GoalsAgainst: row.GoalsAgainst,
				GoalDiff:     row.GoalDifference,
				Form:         row.Form,
			})
		}
	}
	return out, stale, nil
}

// Teams fetches the team reference data for a competition season.
func (c *Client) Teams(ctx context.Context, competition string, season int) ([]models.Team, bool, error) {
	body, stale, err := c.get(ctx, fmt.Sprintf("competitions/%s/teams", competition),
		map[string]string{"season": strconv.Itoa(season)})
	if err != nil {
		return nil, false, err
	}

	var resp teamsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, stale, fmt.Errorf("decode teams response: %w", err)
	}

	out := make([]models.Team, 0, len(resp.Teams))
	for _, wt := range resp.Teams {
		out = append(out, models.Team{
			ID:        wt.ID,
			Name:      wt.Name,
			ShortName: wt.ShortName,
			TLA:       wt.TLA,
			CrestURL:  wt.Crest,
		})
	}
	return out, stale, nil
}

// get serves from the Redis response cache when fresh, otherwise fetches
// with bounded retries. On upstream failure a stale cached copy is served
// instead of the error, flagged so callers can mark the data as stale.
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, bool, error) {
	cacheKey := "provider:" + path
	for _, k := range sortedKeys(params) {
		cacheKey += ":" + k + "=" + params[k]
	}

	if c.redis != nil {
		if cached, err := c.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			return cached, false, nil
		}
	}

	body, err := c.fetch(ctx, path, params)
	if err != nil {
		if c.redis != nil {
			if stale, serr := c.redis.Get(ctx, cacheKey+":stale").Bytes(); serr == nil {
				c.logger.Warnw("provider unavailable, serving stale copy", "path", path, "error", err)
				return stale, true, nil
			}
		}
		return nil, false, err
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, cacheKey, body, c.cacheTTL).Err(); err != nil {
			c.logger.Warnw("failed to cache provider response", "path", path, "error", err)
		}
		if err := c.redis.Set(ctx, cacheKey+":stale", body, staleTTL).Err(); err != nil {
			c.logger.Warnw("failed to store stale copy", "path", path, "error", err)
		}
	}
	return body, false, nil
}

func (c *Client) fetch(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Infow("retrying provider request", "path", path, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create provider request: %w", err)
		}
		req.Header.Set("X-Auth-Token", c.apiKey)
		req.Header.Set("Accept", "application/json")
		if len(params) > 0 {
			q := req.URL.Query()
			for k, v := range params {
				q.Add(k, v)
			}
			req.URL.RawQuery = q.Encode()
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("provider request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read provider response: %w", err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return body, nil
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = fmt.Errorf("provider status %d: %w", resp.StatusCode, apperrors.ErrUpstreamUnavailable)
			continue
		case http.StatusNotFound:
			return nil, fmt.Errorf("provider resource %s: %w", path, apperrors.ErrNotFound)
		default:
			return nil, fmt.Errorf("provider status %d: %s: %w", resp.StatusCode, string(body), apperrors.ErrUpstreamUnavailable)
		}
	}

	return nil, lastErr
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
