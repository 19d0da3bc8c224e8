// Package tvdb is a minimal client for the TheTVDB v4 API covering what
// episode resolution needs: series search, series detail, and per-season or
// air-date episode listings in a requested order and language.
package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"retitle/internal/config"
	"retitle/internal/logging"
)

// Typed failures callers classify with errors.Is. Everything else the client
// returns is a transport or decoding error wrapped with context.
var (
	ErrAPIKeyMissing  = errors.New("catalog api key is not configured")
	ErrSeriesNotFound = errors.New("series not found")
	ErrAuthFailed     = errors.New("catalog authentication failed")
	ErrRateLimited    = errors.New("catalog api rate limited")
	ErrAPIError       = errors.New("catalog api error")
)

// Season orderings accepted by the episodes endpoint.
const (
	OrderAired = "official"
	OrderDVD   = "dvd"
)

// OrderFromConfig maps the user-facing order names (aired, dvd) onto the
// endpoint's season-type segment.
func OrderFromConfig(order string) string {
	if strings.EqualFold(strings.TrimSpace(order), "dvd") {
		return OrderDVD
	}
	return OrderAired
}

// Client talks to the TheTVDB v4 API. Requests authenticate with a bearer
// token obtained from /login and cached until shortly before expiry.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a catalog client from the catalog config section.
func New(cfg config.Catalog, logger *slog.Logger, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "catalog"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// authenticate obtains or refreshes the bearer token.
func (c *Client) authenticate(ctx context.Context) error {
	c.mu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the write lock.
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	body, err := json.Marshal(loginRequest{APIKey: c.apiKey})
	if err != nil {
		return fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("authentication failed", logging.Int("status", resp.StatusCode))
		return ErrAuthFailed
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}

	c.token = payload.Data.Token
	// Tokens last a month; refreshing daily keeps a safe margin.
	c.tokenExpiry = time.Now().Add(24 * time.Hour)

	c.logger.Debug("authenticated")
	return nil
}

// SearchSeries queries the catalog for series matching name. An empty result
// list is not an error; the caller decides what a miss means.
func (c *Client) SearchSeries(ctx context.Context, name string) ([]Series, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("search query must not be empty")
	}
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", name)
	params.Set("type", "series")

	var payload searchResponse
	if err := c.get(ctx, c.baseURL+"/search", params, &payload); err != nil {
		return nil, err
	}

	results := make([]Series, 0, len(payload.Data))
	for _, item := range payload.Data {
		if item.Type != "series" {
			continue
		}
		results = append(results, normalizeSearchResult(item))
	}

	c.logger.Debug("series search",
		logging.String("query", name),
		logging.Int("results", len(results)))
	return results, nil
}

// GetSeries fetches one series by id. A missing id yields ErrSeriesNotFound.
func (c *Client) GetSeries(ctx context.Context, id int64) (*Series, error) {
	if id <= 0 {
		return nil, errors.New("series id must be positive")
	}
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	var payload seriesResponse
	if err := c.get(ctx, fmt.Sprintf("%s/series/%d", c.baseURL, id), nil, &payload); err != nil {
		return nil, err
	}

	series := normalizeDetail(payload.Data)
	return &series, nil
}

// SeasonEpisodes lists one season's episodes in the given order (official or
// dvd) and language (3-letter code). Pages are followed until exhausted.
func (c *Client) SeasonEpisodes(ctx context.Context, id int64, order, lang string, season int) ([]Episode, error) {
	if id <= 0 {
		return nil, errors.New("series id must be positive")
	}
	if season < 0 {
		return nil, errors.New("season must not be negative")
	}
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/series/%d/episodes/%s/%s", c.baseURL, id, url.PathEscape(order), url.PathEscape(lang))

	var episodes []Episode
	for page := 0; ; page++ {
		params := url.Values{}
		params.Set("season", strconv.Itoa(season))
		params.Set("page", strconv.Itoa(page))

		var payload episodesResponse
		if err := c.get(ctx, endpoint, params, &payload); err != nil {
			return nil, err
		}
		for _, item := range payload.Data.Episodes {
			episodes = append(episodes, normalizeEpisode(item))
		}
		if payload.Links.Next == "" {
			break
		}
	}
	return episodes, nil
}

// EpisodeByAirDate finds the episode originally aired on the given date, or
// nil when the catalog has none.
func (c *Client) EpisodeByAirDate(ctx context.Context, id int64, order, lang string, aired time.Time) (*Episode, error) {
	if id <= 0 {
		return nil, errors.New("series id must be positive")
	}
	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/series/%d/episodes/%s/%s", c.baseURL, id, url.PathEscape(order), url.PathEscape(lang))
	params := url.Values{}
	params.Set("airDate", aired.Format("2006-01-02"))
	params.Set("page", "0")

	var payload episodesResponse
	if err := c.get(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Data.Episodes) == 0 {
		return nil, nil
	}
	episode := normalizeEpisode(payload.Data.Episodes[0])
	return &episode, nil
}

// get performs an authenticated GET and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// Every GET here is series-scoped; a 404 means the id is unknown.
		return ErrSeriesNotFound
	case http.StatusUnauthorized:
		// Token may have expired server-side; drop it so the next call
		// re-authenticates.
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return fmt.Errorf("%w: unauthorized", ErrAPIError)
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

func normalizeSearchResult(item searchResult) Series {
	id, _ := strconv.ParseInt(item.TvdbID, 10, 64)
	year, _ := strconv.Atoi(item.Year)
	if year == 0 && len(item.FirstAirTime) >= 4 {
		year, _ = strconv.Atoi(item.FirstAirTime[:4])
	}
	return Series{
		ID:       id,
		Name:     item.Name,
		Year:     year,
		Status:   item.Status,
		Overview: item.Overview,
	}
}

func normalizeDetail(detail seriesDetail) Series {
	year, _ := strconv.Atoi(detail.Year)
	if year == 0 && len(detail.FirstAired) >= 4 {
		year, _ = strconv.Atoi(detail.FirstAired[:4])
	}
	return Series{
		ID:       detail.ID,
		Name:     detail.Name,
		Year:     year,
		Status:   detail.Status.Name,
		Overview: detail.Overview,
	}
}

func normalizeEpisode(item episodeItem) Episode {
	return Episode{
		ID:     item.ID,
		Name:   item.Name,
		Season: item.SeasonNumber,
		Number: item.Number,
		Aired:  item.Aired,
	}
}
