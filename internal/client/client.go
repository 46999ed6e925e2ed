// Package client talks to the WatchVault REST service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/voyagen/watchvault/internal/models"
)

const defaultHTTPTimeout = 30 * time.Second

var (
	// ErrNotFound matches an *APIError with status 404.
	ErrNotFound = errors.New("not found")
	// ErrConflict matches an *APIError with status 409.
	ErrConflict = errors.New("conflict")
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Status int
	Detail string
	Fields map[string]string // set for 422 responses
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + e.Fields[k]
		}
		return fmt.Sprintf("watchvault %d: %s", e.Status, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("watchvault %d: %s", e.Status, e.Detail)
}

// Is lets errors.Is match the sentinel for the response status.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// Client is a WatchVault REST client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL (e.g. "http://localhost:4000").
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListOptions narrows a list fetch. Sort must be one the service can order
// by; empty uses the service default.
type ListOptions struct {
	MediaType models.MediaType
	Sort      string
}

type mediaEnvelope struct {
	Media models.Media `json:"media"`
}

// FetchList returns the entries of one list.
func (c *Client) FetchList(ctx context.Context, kind models.ListKind, opts ListOptions) ([]models.Media, error) {
	q := url.Values{"watched": {strconv.FormatBool(kind.Watched())}}
	if opts.MediaType != "" && opts.MediaType != models.MediaTypeAll {
		q.Set("mediaType", string(opts.MediaType))
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	var resp struct {
		Media []models.Media `json:"media"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/movies", q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Media == nil {
		resp.Media = []models.Media{}
	}
	return resp.Media, nil
}

// Get returns one entry.
func (c *Client) Get(ctx context.Context, id string) (*models.Media, error) {
	var resp mediaEnvelope
	if err := c.do(ctx, http.MethodGet, "/v1/movies/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Media, nil
}

// Create adds an entry.
func (c *Client) Create(ctx context.Context, in models.MediaCreate) (*models.Media, error) {
	var resp mediaEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/movies", nil, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Media, nil
}

// Update applies a partial update.
func (c *Client) Update(ctx context.Context, id string, in models.MediaUpdate) (*models.Media, error) {
	var resp mediaEnvelope
	if err := c.do(ctx, http.MethodPut, "/v1/movies/"+url.PathEscape(id), nil, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Media, nil
}

// Delete removes an entry and returns the service's confirmation message.
func (c *Client) Delete(ctx context.Context, id string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodDelete, "/v1/movies/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// MarkWatched moves a to-watch entry into the watched list.
func (c *Client) MarkWatched(ctx context.Context, id string, in models.WatchedInput) (*models.Media, error) {
	var resp mediaEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/movies/"+url.PathEscape(id)+"/watched", nil, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Media, nil
}

// RefreshRatings asks the service to re-fetch an entry's external ratings.
func (c *Client) RefreshRatings(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/movies/"+url.PathEscape(id)+"/ratings/refresh", nil, nil, nil)
}

// RefreshAllRatings asks the service to re-fetch the external ratings of
// every entry. It matches ErrConflict while a full refresh is running.
func (c *Client) RefreshAllRatings(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/ratings/refresh", nil, nil, nil)
}

// Search runs an OMDb search through the service.
func (c *Client) Search(ctx context.Context, text string) ([]models.SearchResult, error) {
	var resp struct {
		Results []models.SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/search", url.Values{"s": {text}}, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []models.SearchResult{}
	}
	return resp.Results, nil
}

// Lookup fetches OMDb metadata by IMDb id, or by exact title when imdbID is
// empty. It returns nil, nil when the title is unknown.
func (c *Client) Lookup(ctx context.Context, imdbID, title string) (*models.ExternalMetadata, error) {
	q := url.Values{}
	if imdbID != "" {
		q.Set("i", imdbID)
	} else {
		q.Set("t", title)
	}
	var resp struct {
		Metadata models.ExternalMetadata `json:"metadata"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/lookup", q, nil, &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resp.Metadata, nil
}

type errorBody struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, dst any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(respBody, &eb)
		if eb.Detail == "" && len(eb.Errors) == 0 {
			eb.Detail = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Detail: eb.Detail, Fields: eb.Errors}
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, dst); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
