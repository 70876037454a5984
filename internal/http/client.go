// Package http provides the pooled HTTP client shared by the crawler and
// the injection workers.
package http

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PentesterFlow/xssprobe/internal/errors"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 5 * 1024 * 1024

// Client issues the GET and POST requests of a scan.
type Client struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
	cookies   []*http.Cookie
	retrier   *errors.Retrier
	breakers  *errors.Breakers
	mu        sync.RWMutex
}

// Config holds configuration for the HTTP client.
type Config struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	UserAgent           string
	Headers             map[string]string
	Cookies             map[string]string
	SkipTLSVerify       bool
	Retries             int
	// BreakerThreshold opens a per-host circuit after that many consecutive
	// transport failures. 0 disables it.
	BreakerThreshold int
}

// DefaultConfig returns defaults sized for the default worker count.
func DefaultConfig() Config {
	return Config{
		Timeout:             10 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     20,
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		SkipTLSVerify:       true,
	}
}

// PoolFor sizes the connection pool so every worker can hold a connection.
func (c Config) PoolFor(workers int) Config {
	if workers > c.MaxConnsPerHost {
		c.MaxConnsPerHost = workers
	}
	if workers > c.MaxIdleConnsPerHost {
		c.MaxIdleConnsPerHost = workers
	}
	if workers > c.MaxIdleConns {
		c.MaxIdleConns = workers
	}
	return c
}

// New creates a client.
func New(config Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.SkipTLSVerify,
		},
	}

	retry := errors.DefaultRetryConfig()
	retry.MaxRetries = config.Retries

	c := &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: config.UserAgent,
		headers:   config.Headers,
		retrier:   errors.NewRetrier(retry),
	}
	if config.BreakerThreshold > 0 {
		c.breakers = errors.NewBreakers(config.BreakerThreshold, errors.DefaultCooldown)
	}
	c.SetCookies(config.Cookies)
	return c
}

// SetCookies replaces the cookies sent with every request.
func (c *Client) SetCookies(cookies map[string]string) {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		list = append(list, &http.Cookie{Name: name, Value: cookies[name]})
	}

	c.mu.Lock()
	c.cookies = list
	c.mu.Unlock()
}

// SetHeaders sets custom headers for all requests.
func (c *Client) SetHeaders(headers map[string]string) {
	c.mu.Lock()
	c.headers = headers
	c.mu.Unlock()
}

// Response is a fully read HTTP response.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        string
	Duration    time.Duration
}

// IsHTML reports whether the server declared an HTML body.
func (r *Response) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "text/html")
}

// Get fetches targetURL.
func (c *Client) Get(ctx context.Context, targetURL string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, targetURL, nil)
}

// PostForm submits values form-encoded to targetURL.
func (c *Client) PostForm(ctx context.Context, targetURL string, values url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodPost, targetURL, values)
}

// Do sends values to targetURL. For POST they form the body; for any other
// method they are merged into the query string, replacing existing keys.
// Transient failures are retried when the client was configured to.
func (c *Client) Do(ctx context.Context, method, targetURL string, values url.Values) (*Response, error) {
	var host string
	if c.breakers != nil {
		if u, err := url.Parse(targetURL); err == nil {
			host = strings.ToLower(u.Host)
			if state, ok := c.breakers.Allow(host); !ok {
				return nil, errors.NewCircuitOpenError(targetURL, state)
			}
		}
	}

	resp, result := errors.DoWithResult(ctx, c.retrier, "http_"+strings.ToLower(method), targetURL,
		func(ctx context.Context) (*Response, error) {
			return c.do(ctx, method, targetURL, values)
		})
	if host != "" {
		t := errors.GetErrorType(result.LastError)
		c.breakers.Record(host, !result.Success && (t == errors.Network || t == errors.Timeout))
	}
	if !result.Success {
		return resp, result.LastError
	}
	return resp, nil
}

// BreakerStates reports per-host circuit states, or nil when disabled.
func (c *Client) BreakerStates() map[string]errors.CircuitState {
	if c.breakers == nil {
		return nil
	}
	return c.breakers.States()
}

func (c *Client) do(ctx context.Context, method, targetURL string, values url.Values) (*Response, error) {
	start := time.Now()

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(values.Encode())
	} else if len(values) > 0 {
		merged, err := MergeQuery(targetURL, values)
		if err != nil {
			return nil, errors.NewParseError(targetURL, "request_creation", err)
		}
		targetURL = merged
	}

	req, err := http.NewRequestWithContext(ctx, method, targetURL, body)
	if err != nil {
		return nil, errors.NewParseError(targetURL, "request_creation", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	c.mu.RLock()
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	c.mu.RUnlock()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Categorize(err, targetURL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.NewNetworkError(targetURL, "body_read", err)
	}

	return &Response{
		URL:         targetURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        string(data),
		Duration:    time.Since(start),
	}, nil
}

// MergeQuery sets values on the query of rawURL.
func MergeQuery(rawURL string, values url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range values {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
