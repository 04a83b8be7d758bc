package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lepinkainen/feed-timeline/pkg/urlutils"
)

// feedAccept is sent on every fetch so servers doing content negotiation return a feed
const feedAccept = "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"

// ClientConfig represents HTTP client configuration
type ClientConfig struct {
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string
	MaxBodyBytes int64
	// HostDelay is the minimum interval between two requests to the same host
	HostDelay time.Duration
}

// DefaultConfig returns default HTTP client configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:      10 * time.Second,
		UserAgent:    "feed-timeline/1.0",
		Headers:      make(map[string]string),
		MaxBodyBytes: 10 << 20,
	}
}

// Client fetches raw feed documents
type Client struct {
	client  *http.Client
	config  *ClientConfig
	limiter HostRateLimiter
}

// NewClient creates a new HTTP client with the given configuration
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	var limiter HostRateLimiter = NewNoOpRateLimiter()
	if config.HostDelay > 0 {
		limiter = NewHostDelayLimiter(config.HostDelay)
	}

	return &Client{
		// deadlines come from the per-fetch context
		client:  &http.Client{},
		config:  config,
		limiter: limiter,
	}
}

// WithRateLimiter replaces the per-host rate limiter
func (c *Client) WithRateLimiter(limiter HostRateLimiter) *Client {
	if limiter == nil {
		limiter = NewNoOpRateLimiter()
	}
	c.limiter = limiter
	return c
}

// Fetch retrieves the body at url in a single attempt bounded by timeout.
// A timeout of zero or less uses the configured default. Any failure yields ok=false.
func (c *Client) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, bool) {
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := c.fetch(ctx, url)
	if err != nil {
		slog.Debug("Feed fetch failed", "url", url, "error", err)
		return nil, false
	}

	slog.Debug("Fetched feed", "url", url, "bytes", len(body))
	return body, true
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	if !urlutils.IsFeedURL(url) {
		return nil, fmt.Errorf("invalid feed URL %q", url)
	}

	if err := c.limiter.Wait(ctx, urlutils.Host(url)); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if err := EnsureSuccess(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	slog.Debug("Feed response", "url", url, "status", resp.StatusCode, "content_type", GetContentType(resp))

	return ReadLimitedBody(resp, c.config.MaxBodyBytes)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", feedAccept)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}
}
