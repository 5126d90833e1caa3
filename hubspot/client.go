// ABOUTME: Rate-limited HTTP client for the HubSpot CRM v3 API
// ABOUTME: Bearer auth via oauth2, request pacing, and bounded retry on 429/5xx
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.hubapi.com"

	// MaxPageSize is the API's hard per-page ceiling.
	MaxPageSize = 200

	// DefaultResultCap is the API's hard limit on total results per search
	// query; windows expected to exceed it are subdivided.
	DefaultResultCap = 10000

	// maxRequestBody guards against oversized search payloads.
	maxRequestBody = 1 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	TokenSource    oauth2.TokenSource
	HTTPClient     *http.Client // overrides TokenSource wiring when set
	RequestsPerSec float64
	PageSize       int
	ResultCap      int
	Retry          RetryPolicy
	Logger         *slog.Logger
}

// Client issues paced, retried requests against the CRM API. Safe for use
// from multiple goroutines; the limiter paces all of them together so the
// process never exceeds the configured ceiling.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	retry     RetryPolicy
	pageSize  int
	resultCap int
	log       *slog.Logger
}

// New builds a Client. Zero option fields fall back to production defaults.
func New(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if opts.TokenSource != nil {
			httpClient = oauth2.NewClient(context.Background(), opts.TokenSource)
		} else {
			httpClient = &http.Client{}
		}
	}

	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}

	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	resultCap := opts.ResultCap
	if resultCap <= 0 {
		resultCap = DefaultResultCap
	}

	retry := opts.Retry
	if retry.MaxRetries == 0 && retry.BaseDelay == 0 {
		retry = DefaultRetryPolicy()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:   baseURL,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		retry:     retry,
		pageSize:  pageSize,
		resultCap: resultCap,
		log:       logger,
	}
}

// do issues one API call, pacing through the limiter and retrying transient
// failures with backoff. The response body is decoded into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		if len(payload) > maxRequestBody {
			return fmt.Errorf("request body %d bytes exceeds ceiling %d", len(payload), maxRequestBody)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	state := c.retry.newState()
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if delay, ok := state.Next(); ok {
				c.log.Warn("request failed, retrying", "path", path, "attempt", state.Attempts(), "delay", delay, "error", err)
				if werr := sleepContext(ctx, delay); werr != nil {
					return werr
				}
				continue
			}
			return fmt.Errorf("request to %s failed after %d retries: %w", path, state.Attempts(), err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode %s response: %w", path, err)
			}
			return nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		if apiErr.Transient() {
			if delay, ok := state.Next(); ok {
				c.log.Warn("transient API error, backing off", "path", path, "status", resp.StatusCode, "attempt", state.Attempts(), "delay", delay)
				if werr := sleepContext(ctx, delay); werr != nil {
					return werr
				}
				continue
			}
			return fmt.Errorf("retries exhausted for %s: %w", path, apiErr)
		}
		return apiErr
	}
}

// searchPage fetches one page of search results for objectType.
func (c *Client) searchPage(ctx context.Context, objectType string, req searchRequest) (*searchResponse, error) {
	var resp searchResponse
	path := fmt.Sprintf("/crm/v3/objects/%s/search", objectType)
	if err := c.do(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListObjects walks the plain GET listing for objectType, used for full
// syncs where no time filter applies.
func (c *Client) ListObjects(ctx context.Context, objectType string, properties []string, associations []string) ([]RawRecord, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", c.pageSize))
	query.Set("archived", "false")
	if len(properties) > 0 {
		query.Set("properties", strings.Join(properties, ","))
	}
	if len(associations) > 0 {
		query.Set("associations", strings.Join(associations, ","))
	}

	path := fmt.Sprintf("/crm/v3/objects/%s", objectType)
	var out []RawRecord
	after := ""
	for {
		if after != "" {
			query.Set("after", after)
		}
		var page listResponse
		if err := c.do(ctx, http.MethodGet, path, query, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		if page.Paging == nil || page.Paging.Next == nil || page.Paging.Next.After == "" {
			return out, nil
		}
		after = page.Paging.Next.After
	}
}

// Owners fetches all CRM users.
func (c *Client) Owners(ctx context.Context) ([]Owner, error) {
	query := url.Values{}
	query.Set("limit", "100")

	var out []Owner
	after := ""
	for {
		if after != "" {
			query.Set("after", after)
		}
		var page ownersResponse
		if err := c.do(ctx, http.MethodGet, "/crm/v3/owners", query, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		if page.Paging == nil || page.Paging.Next == nil || page.Paging.Next.After == "" {
			return out, nil
		}
		after = page.Paging.Next.After
	}
}

// Pipelines fetches the pipeline/stage definitions for objectType
// (typically "deals").
func (c *Client) Pipelines(ctx context.Context, objectType string) ([]Pipeline, error) {
	var resp pipelinesResponse
	path := fmt.Sprintf("/crm/v3/pipelines/%s", objectType)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}
