// Package fetch performs HTTP GETs with bounded retries and exponential
// backoff. Every remote source goes through a Fetcher.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/Jaculabilis/intake-sources/internal/config"
	"github.com/Jaculabilis/intake-sources/internal/logging"
)

const (
	requestTimeout  = 30 * time.Second
	maxResponseSize = 16 << 20
)

// ErrExhausted is returned when every attempt of a fetch failed.
var ErrExhausted = errors.New("retries exhausted")

// Fetcher issues GET requests, retrying failed attempts with a doubling
// backoff. No state is carried between calls apart from the request pacer.
type Fetcher struct {
	client    *http.Client
	attempts  int
	backoff   time.Duration
	userAgent string
	limiter   *rate.Limiter
	logger    *log.Logger

	// permanent reports errors that no retry can fix.
	permanent func(error) bool

	// sleep waits between attempts. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client used for every attempt.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithPermanent marks errors for which is reports true as final. Such an
// error ends Get after the attempt that produced it.
func WithPermanent(is func(error) bool) Option {
	return func(f *Fetcher) { f.permanent = is }
}

// New creates a Fetcher from the request configuration.
func New(cfg config.RequestConfig, opts ...Option) *Fetcher {
	limit := rate.Inf
	if cfg.Interval.Duration > 0 {
		limit = rate.Every(cfg.Interval.Duration)
	}

	f := &Fetcher{
		client:    &http.Client{Timeout: requestTimeout},
		attempts:  max(cfg.Retry, 1),
		backoff:   cfg.Backoff.Duration,
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logging.Discard(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches url, retrying transport errors and non-2xx statuses. The caller
// must close the response body. After the last failed attempt the returned
// error wraps ErrExhausted.
func (f *Fetcher) Get(ctx context.Context, url string) (*http.Response, error) {
	backoff := f.backoff
	var lastErr error

	for attempt := 1; attempt <= f.attempts; attempt++ {
		resp, err := f.try(ctx, url)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if f.permanent != nil && f.permanent(err) {
			f.logger.Error("failed to fetch", "url", url, "attempt", attempt, "err", err)
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}

		f.logger.Warn("error fetching", "attempt", attempt, "of", f.attempts, "url", url, "err", err)
		if attempt == f.attempts {
			break
		}
		f.logger.Info("retrying", "url", url, "in", backoff)
		if err := f.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}

	f.logger.Error("failed to fetch", "url", url, "tries", f.attempts)
	return nil, fmt.Errorf("fetch %s: %w after %d attempts: %w", url, ErrExhausted, f.attempts, lastErr)
}

// GetJSON fetches url and decodes the JSON response into v. Decoding errors
// are not retried.
func (f *Fetcher) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := f.Get(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (f *Fetcher) try(ctx context.Context, url string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
