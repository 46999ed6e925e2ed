// Package tmdb looks titles up in The Movie Database by IMDb id.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voyagen/watchvault/internal/models"
)

const (
	DefaultBaseURL     = "https://api.themoviedb.org/3"
	defaultHTTPTimeout = 30 * time.Second
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("tmdb: api key not configured")

// Client is a lightweight TMDB HTTP client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a TMDB client. An empty baseURL uses DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type findResponse struct {
	MovieResults []models.TMDBFindResult `json:"movie_results"`
	TVResults    []models.TMDBFindResult `json:"tv_results"`
}

type errorResponse struct {
	StatusMessage string `json:"status_message"`
}

// FindByIMDbID returns the first TMDB match for imdbID among movies or, for
// series, TV shows. It returns nil, nil when there is no match.
func (c *Client) FindByIMDbID(ctx context.Context, imdbID string, mediaType models.MediaType) (*models.TMDBFindResult, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	params := url.Values{
		"api_key":         {c.apiKey},
		"language":        {"en-US"},
		"external_source": {"imdb_id"},
	}
	endpoint := c.baseURL + "/find/" + url.PathEscape(strings.TrimSpace(imdbID)) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(body, &e)
		return nil, fmt.Errorf("tmdb API %d: %s", resp.StatusCode, e.StatusMessage)
	}

	var found findResponse
	if err := json.Unmarshal(body, &found); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := found.MovieResults
	if mediaType == models.MediaTypeSeries {
		results = found.TVResults
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}
