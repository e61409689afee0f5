// Package exchange is the REST/JSON client for the InTuition Exchange API.
package exchange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/coinsforcollege/intuitionexchange-sub003/internal/domain"
	"github.com/coinsforcollege/intuitionexchange-sub003/internal/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnauthorized is returned when the exchange rejects the bearer token.
var ErrUnauthorized = errors.New("exchange: unauthorized")

// APIError is a non-2xx answer from the exchange.
// 5xx and 429 unwrap to domain.ErrNetwork, 401/403 to ErrUnauthorized,
// every other status to domain.ErrBusinessRule.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("exchange HTTP %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("exchange HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500:
		return domain.ErrNetwork
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	default:
		return domain.ErrBusinessRule
	}
}

// Client calls the exchange API. GET requests are retried on 429, 5xx and
// transport errors; POST requests only on 429 so a payment is never submitted twice.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retrier    *retry.Retrier
	limiter    *rate.Limiter
}

// NewClient creates an unauthenticated client. requestsPerSecond <= 0 disables the outbound limit.
func NewClient(baseURL string, maxRetries int, baseDelay time.Duration, requestsPerSecond float64) *Client {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = max(1, int(requestsPerSecond))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retrier: retry.New(
			retry.WithMaxRetries(maxRetries),
			retry.WithInitialInterval(baseDelay),
		),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// WithToken returns a client that authenticates as the given user.
// The copy shares the HTTP client and rate limiter with its parent.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	return c.do(ctx, http.MethodGet, path, nil, nil, dest)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, headers map[string]string, dest any) error {
	return c.do(ctx, http.MethodPost, path, body, headers, dest)
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, dest any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
	}

	respBody, err := retry.DoWithData(ctx, c.retrier, func(ctx context.Context) ([]byte, error) {
		return c.attempt(ctx, method, path, payload, headers)
	})
	if err != nil {
		return err
	}

	if dest == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("parsing JSON from %s: %w: %w", path, domain.ErrNetwork, err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, retry.Permanent(err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrNetwork, err)
		if method != http.MethodGet || ctx.Err() != nil {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("reading response: %w: %w", domain.ErrNetwork, err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	apiErr := parseAPIError(resp.StatusCode, data)
	retryable := resp.StatusCode == http.StatusTooManyRequests ||
		(method == http.MethodGet && resp.StatusCode >= 500)
	if retryable {
		return nil, apiErr
	}
	return nil, retry.Permanent(apiErr)
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
