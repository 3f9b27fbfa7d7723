package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
)

const (
	ErrUnavailable = "SEARCH_UNAVAILABLE"
	ErrFailed      = "SEARCH_FAILED"

	DefaultEndpoint   = "https://api.search.brave.com/res/v1/web/search"
	DefaultMaxResults = 5
	MaxResults        = 8
)

type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Result is the payload returned to the assistant for a searchWeb call.
// Results is never nil so it always encodes as an array.
type Result struct {
	Query   string `json:"query,omitempty"`
	Results []Hit  `json:"results"`
	Error   string `json:"error,omitempty"`
}

// Client wraps the web search API.
type Client struct {
	http     *http.Client
	apiKey   string
	endpoint string
	logger   *zap.Logger
}

func New(httpClient *http.Client, apiKey, endpoint string, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: httpClient, apiKey: apiKey, endpoint: endpoint, logger: logger}
}

// ClampResults applies the default for 0 and the [1, MaxResults] bounds.
func ClampResults(n int) int {
	switch {
	case n == 0:
		return DefaultMaxResults
	case n < 1:
		return 1
	case n > MaxResults:
		return MaxResults
	}
	return n
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search never returns an error; failures are reported in Result.Error.
func (c *Client) Search(ctx context.Context, query string, maxResults int) Result {
	if c.apiKey == "" {
		return Result{Error: ErrUnavailable, Results: []Hit{}}
	}
	maxResults = ClampResults(maxResults)

	hits, err := c.search(ctx, query, maxResults)
	if err != nil {
		c.logger.Warn("web search failed", zap.String("query", query), zap.Error(err))
		return Result{Error: ErrFailed, Results: []Hit{}}
	}
	return Result{Query: query, Results: hits}
}

func (c *Client) search(ctx context.Context, query string, count int) ([]Hit, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned unexpected status code: %d", resp.StatusCode)
	}

	var raw braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(raw.Web.Results))
	for _, r := range raw.Web.Results {
		if len(hits) == count {
			break
		}
		hits = append(hits, Hit{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return hits, nil
}
