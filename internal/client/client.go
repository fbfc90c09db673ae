// Package client talks to a running VerseLens search API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/verselens-search-api/internal/models"
)

// Client is an HTTP client for the search API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL, e.g.
// http://localhost:8001/api/v1
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// Health checks that the API is up
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// Status returns the index status
func (c *Client) Status(ctx context.Context) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Build requests an index build. An empty translation uses the server default.
func (c *Client) Build(ctx context.Context, translation string, force bool) (*models.BuildResponse, error) {
	q := url.Values{}
	if translation != "" {
		q.Set("translation", translation)
	}
	if force {
		q.Set("force", strconv.FormatBool(force))
	}

	var out models.BuildResponse
	if err := c.do(ctx, http.MethodPost, "/build-index", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a semantic search. A nil k uses the server default.
func (c *Client) Search(ctx context.Context, query string, k *int) (*models.SearchResponse, error) {
	var out models.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/search", nil, models.SearchRequest{Query: query, K: k}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Translations lists available and cached translations
func (c *Client) Translations(ctx context.Context) (*models.TranslationsResponse, error) {
	var out models.TranslationsResponse
	if err := c.do(ctx, http.MethodGet, "/translations", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chapter fetches one chapter of a book for reading
func (c *Client) Chapter(ctx context.Context, translation, book string, chapter int) (*models.ChapterResponse, error) {
	path := fmt.Sprintf("/bible/%s/%s/%d", url.PathEscape(translation), url.PathEscape(book), chapter)
	var out models.ChapterResponse
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
