// Package hostlink connects the node to its host environment: actions
// arrive on a WebSocket feed and outcomes leave over HTTP or the same feed.
package hostlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/anikeaty08/linera-game/pkg/gamedto"
)

// HeaderProvider returns extra headers for each request and handshake.
type HeaderProvider func() map[string]string

// Client talks to the host HTTP API with fasthttp.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	timeout  time.Duration
	retryMax int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithRetry(n int) Option { return func(c *Client) { c.retryMax = n } }

func WithHeaderProvider(h HeaderProvider) Option { return func(c *Client) { c.headers = h } }

// WithDial swaps the dialer, e.g. for an in-memory listener.
func WithDial(d fasthttp.DialFunc) Option { return func(c *Client) { c.http.Dial = d } }

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 32},
		timeout:  10 * time.Second,
		retryMax: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BearerToken is a HeaderProvider for a static API token.
func BearerToken(token string) HeaderProvider {
	return func() map[string]string {
		if strings.TrimSpace(token) == "" {
			return nil
		}
		return map[string]string{"Authorization": "Bearer " + token}
	}
}

// PostOutcome is retried on 5xx; the host dedupes on request id.
func (c *Client) PostOutcome(ctx context.Context, r gamedto.OutcomeReport) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/outcomes", r, nil, true)
}

func (c *Client) PostNotice(ctx context.Context, n gamedto.Notice) error {
	return c.doJSON(ctx, fasthttp.MethodPost, "/notices", n, nil, true)
}

func (c *Client) Health(ctx context.Context) (*gamedto.HealthResponse, error) {
	var out gamedto.HealthResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/health", nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		req.SetBody(body)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, backoff(attempt-1)); err != nil {
				return lastErr
			}
		}
		if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
			lastErr = fmt.Errorf("%s %s: %w", method, path, err)
			continue
		}
		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = &StatusError{Path: path, Code: status, Body: truncate(string(resp.Body()), 512)}
			if !retryable(status) {
				return lastErr
			}
			continue
		}
		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode %s: %w", path, err)
			}
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("request not attempted")
	}
	return lastErr
}

type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("host api %s: status=%d body=%s", e.Path, e.Code, e.Body)
}

func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		return dl
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff doubles from 100ms and caps at 3.2s.
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func retryable(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
