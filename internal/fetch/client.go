package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/danmuck/mergectl/internal/observability"
)

const maxBodyBytes = 4 * 1024 * 1024

// Config tunes the fetcher.
type Config struct {
	MaxRetries    int
	Timeout       time.Duration
	SlowThreshold time.Duration
	Keywords      []string
	Backoff       BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		Timeout:       5 * time.Second,
		SlowThreshold: 500 * time.Millisecond,
		Backoff: BackoffConfig{
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// Client fetches URLs with bounded retries and classification callbacks.
type Client struct {
	cfg     Config
	http    *http.Client
	handler Handler
	clock   clockwork.Clock
	rng     *rand.Rand
	tracker *Tracker
	log     zerolog.Logger
}

func NewClient(cfg Config, handler Handler, clock clockwork.Clock, log zerolog.Logger) *Client {
	if handler == nil {
		handler = NopHandler{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		handler: handler,
		clock:   clock,
		rng:     rand.New(rand.NewSource(clock.Now().UnixNano())),
		tracker: NewTracker(),
		log:     log,
	}
}

// Tracker exposes the accumulating run statistics.
func (c *Client) Tracker() *Tracker {
	return c.tracker
}

// Fetch retrieves one URL, retrying transient failures. Client errors (4xx)
// never retry; server errors, timeouts, and connection failures retry up to
// MaxRetries with backoff.
func (c *Client) Fetch(ctx context.Context, url string) bool {
	totalAttempts := 1 + c.cfg.MaxRetries
	lastReason := "unknown"

	for attempt := 1; attempt <= totalAttempts; attempt++ {
		c.tracker.RecordRequest()
		start := c.clock.Now()
		status, body, err := c.do(ctx, url)
		latency := c.clock.Since(start)

		if err == nil {
			c.tracker.RecordLatency(latency, c.cfg.SlowThreshold)
			c.tracker.RecordStatus(status)
			if latency > c.cfg.SlowThreshold {
				c.handler.OnSlowResponse(url, latency)
			}

			switch {
			case status >= 200 && status < 300:
				observability.RecordFetchRequest("success", latency)
				c.handler.OnSuccess(url, status, latency)
				c.checkKeywords(url, body)
				return true
			case status >= 400 && status < 500:
				observability.RecordFetchRequest("client_error", latency)
				c.handler.OnClientError(url, status)
				return false
			default:
				observability.RecordFetchRequest("server_error", latency)
				c.handler.OnServerError(url, status, attempt)
				lastReason = "server_error"
			}
		} else if isTimeout(err) {
			lastReason = "timeout"
			c.tracker.RecordError("timeout")
			observability.RecordFetchRequest("timeout", latency)
			c.handler.OnTimeout(url, attempt, c.cfg.Timeout)
		} else {
			lastReason = "connection"
			c.tracker.RecordError("connection")
			observability.RecordFetchRequest("connection", latency)
			c.handler.OnConnectionError(url, attempt, err)
		}

		if attempt < totalAttempts {
			wait := NextBackoffDelay(c.cfg.Backoff, attempt, c.rng)
			c.tracker.RecordRetry()
			c.handler.OnRetry(url, attempt+1, wait, lastReason)
			select {
			case <-c.clock.After(wait):
			case <-ctx.Done():
				return false
			}
			continue
		}

		c.handler.OnMaxRetries(url, attempt, lastReason)
		return false
	}
	return false
}

// FetchAll drains the URL list and returns the run summary.
func (c *Client) FetchAll(ctx context.Context, urls []string) Summary {
	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}
		ok := c.Fetch(ctx, url)
		c.tracker.RecordURL(ok)
		c.log.Debug().Str("url", url).Bool("ok", ok).Msg("url fetched")
	}
	return c.tracker.Summary()
}

func (c *Client) do(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) checkKeywords(url string, body []byte) {
	if len(body) == 0 {
		return
	}
	for _, kw := range c.cfg.Keywords {
		if kw == "" {
			continue
		}
		if bytes.Contains(body, []byte(kw)) {
			c.handler.OnBodyMatch(url, kw)
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
