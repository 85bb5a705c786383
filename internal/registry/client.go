// Package registry provides the npm registry client used by the scanner.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/dnscache"
)

const defaultTimeout = 30 * time.Second

// Client is an HTTP client for registry metadata requests. It carries the
// bearer credential and proxy configuration shared by all workers for the
// duration of a run.
type Client struct {
	http      *http.Client
	token     string
	userAgent string
	proxy     *url.URL
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithProxy routes requests through the given HTTP/HTTPS proxy. If username
// is non-empty, basic-auth credentials are embedded in the proxy URL.
func WithProxy(proxyURL, username, password string) Option {
	return func(c *Client) {
		u, err := ProxyURL(proxyURL, username, password)
		if err != nil {
			return
		}
		c.proxy = u
	}
}

// ProxyURL parses a proxy address and embeds basic-auth credentials when a
// username is provided.
func ProxyURL(proxyURL, username, password string) (*url.URL, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}
	if username != "" {
		u.User = url.UserPassword(username, password)
	}
	return u, nil
}

// NewClient creates a Client with the given options.
func NewClient(opts ...Option) *Client {
	// DNS cache with 5 minute refresh interval
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	c := &Client{
		userAgent: "npmscan/1.0",
	}

	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if c.proxy != nil {
				return c.proxy, nil
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
			}
			return nil, fmt.Errorf("failed to dial any resolved IP")
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c.http = &http.Client{
		Timeout:   defaultTimeout,
		Transport: transport,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON issues a single GET and decodes the JSON response into v.
// Non-2xx responses are returned as *HTTPError. There is no retry: lookup
// failures are recorded by the caller, not retried.
func (c *Client) GetJSON(ctx context.Context, reqURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching metadata: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        reqURL,
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
