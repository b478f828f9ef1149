package cafe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"cafe_admin/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	maxListPages    = 100
)

var (
	ErrUnauthorized    = errors.New("cafe unauthorized")
	ErrNotFound        = errors.New("cafe resource not found")
	ErrInvalidResponse = errors.New("cafe invalid response")
)

// TokenSource supplies the bearer token for each request. Sources that also
// implement Invalidate() are told when the backend rejects the token.
type TokenSource interface {
	AccessToken() string
}

type invalidator interface {
	Invalidate()
}

type anonymousKey struct{}

// withoutToken marks requests made with ctx as sent without the session token.
func withoutToken(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

type APIError struct {
	StatusCode int
	Status     string
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("cafe api error: %s: %s", e.Status, e.Detail)
	case e.Body != "":
		return fmt.Sprintf("cafe api error: %s: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("cafe api error: %s", e.Status)
	}
}

// DetailOf returns the server-provided message carried by err, if any.
func DetailOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

type Client struct {
	http   *resty.Client
	tokens TokenSource
	logger *zap.Logger
}

func NewClient(cfg config.Config, tokens TokenSource, logger *zap.Logger) *Client {
	logger = logger.Named("cafe")

	httpClient := resty.New().
		SetBaseURL(cfg.APIBaseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetAuthScheme("Bearer").
		SetTimeout(cfg.Timeout).
		SetRetryCount(1).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryIdempotent)

	c := &Client{
		http:   httpClient,
		tokens: tokens,
		logger: logger,
	}

	httpClient.OnBeforeRequest(c.prepareRequest)
	httpClient.OnAfterResponse(c.observeResponse)

	return c
}

// retryIdempotent retries GETs once on transport errors, 429 and 5xx.
// Mutations are never retried so a slow backend cannot produce duplicate orders.
func retryIdempotent(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return resp.StatusCode() == 0
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (c *Client) prepareRequest(_ *resty.Client, req *resty.Request) error {
	anonymous, _ := req.Context().Value(anonymousKey{}).(bool)
	if c.tokens != nil && !anonymous {
		if token := strings.TrimSpace(c.tokens.AccessToken()); token != "" {
			req.SetAuthToken(token)
		}
	}
	if req.Header.Get(requestIDHeader) == "" {
		req.SetHeader(requestIDHeader, uuid.NewString())
	}
	return nil
}

func (c *Client) observeResponse(_ *resty.Client, resp *resty.Response) error {
	c.logger.Debug("backend call",
		zap.String("method", resp.Request.Method),
		zap.String("url", resp.Request.URL),
		zap.Int("status", resp.StatusCode()),
		zap.String("request_id", resp.Request.Header.Get(requestIDHeader)),
		zap.Duration("elapsed", resp.Time()),
	)

	// Only a rejected bearer token ends the session; a failed login does not.
	if resp.StatusCode() == http.StatusUnauthorized && resp.Request.Token != "" {
		if inv, ok := c.tokens.(invalidator); ok {
			c.logger.Warn("backend rejected token; session invalidated")
			inv.Invalidate()
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result).ForceContentType("application/json")
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if resp != nil && resp.IsSuccess() {
			return fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, method, path, err)
		}
		return fmt.Errorf("cafe request: %w", err)
	}
	if resp.IsError() {
		return apiErrorFromResponse(resp)
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// listAll walks a paginated list endpoint following "next" links. Endpoints
// that answer with a bare array are accepted as a single page.
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var items []T
	next := path

	for pages := 0; next != ""; pages++ {
		if pages >= maxListPages {
			return nil, fmt.Errorf("%w: %s: more than %d pages", ErrInvalidResponse, path, maxListPages)
		}

		var raw json.RawMessage
		if err := c.doGet(ctx, next, &raw); err != nil {
			return nil, err
		}

		var bare []T
		if err := json.Unmarshal(raw, &bare); err == nil {
			return append(items, bare...), nil
		}

		var resp page[T]
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, path, err)
		}
		items = append(items, resp.Results...)
		next = strings.TrimSpace(resp.Next)
	}

	return items, nil
}

func apiErrorFromResponse(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Detail:     detailFromBody(resp.Body()),
		Body:       body,
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	default:
		return apiErr
	}
}

// detailFromBody extracts a human message from an error body: "detail", then
// "message", then field validation errors as "field: message" pairs.
func detailFromBody(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s: %s", key, v))
		case []any:
			msgs := make([]string, 0, len(v))
			for _, m := range v {
				if s, ok := m.(string); ok {
					msgs = append(msgs, s)
				}
			}
			if len(msgs) > 0 {
				parts = append(parts, fmt.Sprintf("%s: %s", key, strings.Join(msgs, " ")))
			}
		}
	}
	return strings.Join(parts, "; ")
}
