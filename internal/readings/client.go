// Package readings fetches raw sensor rows from the remote readings endpoint.
package readings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"thermograph/internal/modules/sensor/types"
)

const maxErrorBody = 512

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

// Fetcher is what the UI shell depends on.
type Fetcher interface {
	Fetch(ctx context.Context, start, end string) (types.RawTable, error)
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient returns a client for baseURL. A nil httpClient means
// http.DefaultClient; a nil logger means slog.Default().
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse readings url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: u, httpClient: httpClient, logger: logger}, nil
}

// Params returns the query parameters sent for a date range.
func Params(start, end string) url.Values {
	return url.Values{
		"start": []string{start},
		"end":   []string{end},
	}
}

// Fetch issues a single GET for [start, end] and decodes the JSON array body.
// Every failure is returned to the caller.
func (c *Client) Fetch(ctx context.Context, start, end string) (types.RawTable, error) {
	u := *c.baseURL
	q := u.Query()
	for k, v := range Params(start, end) {
		q[k] = v
	}
	u.RawQuery = q.Encode()

	c.logger.Info("fetching readings", "start", start, "end", end, "url", u.Redacted())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get readings: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("close readings body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read readings body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(snippet),
		}
	}

	var table types.RawTable
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}

	c.logger.Debug("fetched readings", "rows", len(table))
	return table, nil
}
