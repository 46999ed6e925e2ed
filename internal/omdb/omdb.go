// Package omdb is a small client for the OMDb metadata API.
package omdb

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
	DefaultBaseURL     = "https://www.omdbapi.com/"
	defaultHTTPTimeout = 30 * time.Second
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("omdb: api key not configured")

// Client is a lightweight OMDb HTTP client.
type Client struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates an OMDb client. An empty baseURL uses DefaultBaseURL and
// a zero timeout uses 30s.
func NewClient(apiKey, baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// OMDb answers HTTP 200 even for misses and flags them in the body.
type envelope struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

func (e envelope) ok() bool { return strings.EqualFold(e.Response, "True") }

type searchResponse struct {
	envelope
	Search       []models.SearchResult `json:"Search"`
	TotalResults string                `json:"totalResults"`
}

type detailResponse struct {
	envelope
	models.ExternalMetadata
}

// Search runs a free-text search. A response with the error flag set (no
// matches, too many results) yields an empty slice and no error. Hits that
// cannot be list entries, such as episodes and games, are dropped.
func (c *Client) Search(ctx context.Context, text string) ([]models.SearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []models.SearchResult{}, nil
	}
	var resp searchResponse
	if err := c.get(ctx, url.Values{"s": {text}}, &resp); err != nil {
		return nil, err
	}
	results := []models.SearchResult{}
	if !resp.ok() {
		return results, nil
	}
	for _, r := range resp.Search {
		if r.Type.Valid() {
			results = append(results, r)
		}
	}
	return results, nil
}

// ByID fetches the detail record for an IMDb id. It returns nil, nil when
// OMDb has no such title.
func (c *Client) ByID(ctx context.Context, imdbID string) (*models.ExternalMetadata, error) {
	return c.detail(ctx, url.Values{"i": {strings.TrimSpace(imdbID)}})
}

// ByTitle fetches the detail record for an exact title. It returns nil, nil
// when OMDb has no such title.
func (c *Client) ByTitle(ctx context.Context, title string) (*models.ExternalMetadata, error) {
	return c.detail(ctx, url.Values{"t": {strings.TrimSpace(title)}})
}

func (c *Client) detail(ctx context.Context, params url.Values) (*models.ExternalMetadata, error) {
	var resp detailResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, nil
	}
	md := resp.ExternalMetadata
	return &md, nil
}

func (c *Client) get(ctx context.Context, params url.Values, dst any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e envelope
		_ = json.Unmarshal(body, &e)
		return fmt.Errorf("omdb API %d: %s", resp.StatusCode, e.Error)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
