package transmission

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/jfxdev/go-transmission/request"
)

const (
	// DefaultURL is the RPC endpoint of a local daemon with stock settings.
	DefaultURL = "http://localhost:9091/transmission/rpc"

	DefaultRequestTimeout = 30 * time.Second
	DefaultRateBurst      = 1

	// SessionIDHeader carries the CSRF token in both directions.
	SessionIDHeader = "X-Transmission-Session-Id"
)

// New builds a client. No request is sent until the first call.
func New(config Config) (*Client, error) {
	config, err := withDefaults(config)
	if err != nil {
		return nil, err
	}

	c := &Client{}
	c.apply(config)
	return c, nil
}

// Update replaces the configuration and forgets the cached session id.
func (c *Client) Update(config Config) error {
	config, err := withDefaults(config)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.apply(config)
	c.sessionID = ""
	c.rpcVersion = 0
	return nil
}

func withDefaults(config Config) (Config, error) {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	u, err := url.Parse(config.URL)
	if err != nil {
		return config, NewClientError(ErrorCodeInvalidArgument, "invalid RPC URL", err, true)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return config, invalidArgument("unsupported URL scheme %q", u.Scheme)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.RateLimit > 0 && config.RateBurst <= 0 {
		config.RateBurst = DefaultRateBurst
	}
	return config, nil
}

// apply expects c.mu to be held or the client to be unpublished.
func (c *Client) apply(config Config) {
	c.config = config

	c.client = config.HTTPClient
	if c.client == nil {
		c.client = &http.Client{Timeout: config.RequestTimeout}
	}

	c.limiter = nil
	if config.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}

	switch {
	case config.Logger != nil:
		c.logger = config.Logger
	case config.Debug:
		c.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		c.logger = slog.New(slog.DiscardHandler)
	}
	c.logger = c.logger.With("component", "transmission", "url", config.URL)
}

func (c *Client) log() *slog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

func (c *Client) snapshot() (Config, *http.Client, *rate.Limiter) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config, c.client, c.limiter
}

// SessionID returns the cached session id, empty before negotiation.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) setSessionID(id string) {
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}

func (c *Client) nextTag() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tag++
	return c.tag
}

// acquireSessionID probes the endpoint with a bare GET; the daemon answers
// 409 with a fresh id in the response header.
func (c *Client) acquireSessionID(ctx context.Context) (string, error) {
	c.setSessionID("")
	config, client, _ := c.snapshot()

	resp, err := request.Do(http.MethodGet, config.URL,
		request.WithContext(ctx),
		request.WithClient(client),
		request.WithBasicAuth(config.Username, config.Password),
	)
	if err != nil {
		return "", ClassifyError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return "", authError(resp.StatusCode)
	case http.StatusConflict:
		return c.renewSessionID(resp)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", protocolError(
			fmt.Sprintf("Unexpected response from Transmission RPC. Status: %d, Response: %s", resp.StatusCode, body),
			nil,
		)
	}
}

// renewSessionID caches the id carried by a 409 response.
func (c *Client) renewSessionID(resp *http.Response) (string, error) {
	id := resp.Header.Get(SessionIDHeader)
	if id == "" {
		return "", sessionError("session id missing on conflict response", nil)
	}

	c.setSessionID(id)
	config, _, _ := c.snapshot()
	config.Metrics.sessionRenewed()
	c.log().Debug("session id renewed")
	return id, nil
}

// Close drops the cached session id and idle connections. Transmission has
// no logout call, so Close never talks to the daemon.
func (c *Client) Close() error {
	_, client, _ := c.snapshot()
	c.setSessionID("")
	client.CloseIdleConnections()
	return nil
}
