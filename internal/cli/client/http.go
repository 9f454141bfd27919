package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/domain"
)

const (
	envAPIURL = "ARCHIVESEARCH_API_URL"

	defaultAPIURL = "http://localhost:8080"

	// archive fetches may take up to two minutes server side
	defaultRequestTimeout = 150 * time.Second
)

// APIClient calls an archivesearchd server
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates an APIClient for baseURL
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: normalizeAPIURL(baseURL),
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client (for testing)
func (c *APIClient) WithHTTPClient(httpClient *http.Client) *APIClient {
	c.httpClient = httpClient
	return c
}

// APIResponse is the server's response envelope
type APIResponse struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
	Domain string          `json:"domain,omitempty"`
}

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Code       string
	Domain     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// SearchResult mirrors the /api/search payload
type SearchResult struct {
	Domain string `json:"domain"`
	domain.SearchOutcome
	GeneratedAt        time.Time `json:"generated_at"`
	GeneratedAtDisplay string    `json:"generated_at_display"`
}

// Search runs a search on the server
func (c *APIClient) Search(ctx context.Context, rawURL, query string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("url", rawURL)
	if query != "" {
		params.Set("query", query)
	}

	resp, err := c.Get(ctx, "/api/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var result SearchResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search result: %w", err)
	}
	return &result, nil
}

// Get performs a GET request and decodes the envelope
func (c *APIClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
			}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       apiResp.Code,
			Domain:     apiResp.Domain,
			Message:    apiResp.Error,
		}
	}

	return &apiResp, nil
}
