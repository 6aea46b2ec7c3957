// Package fetch is the outbound HTTP client shared by search, transcript and
// article collaborators: per-domain pacing, optional robots.txt checks,
// bounded bodies and retries on transient failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/askweb/internal/metrics"
	"github.com/ppiankov/askweb/internal/model"
	"github.com/ppiankov/askweb/internal/util"
	"github.com/ppiankov/askweb/internal/worker"
	"go.uber.org/zap"
)

const maxAttempts = 3

// fetchSleepFunc is swapped out in tests
var fetchSleepFunc = time.Sleep

// ErrRobotsDisallowed is returned when robots.txt forbids fetching a page
var ErrRobotsDisallowed = errors.New("blocked by robots.txt")

// StatusError is a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher performs outbound HTTP requests
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	logger     *zap.Logger
}

// NewFetcher creates a new Fetcher. When respectRobots is set, FetchWithRetry
// consults robots.txt before fetching a page.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, respectRobots bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		logger:    zap.NewNop(),
	}
	if respectRobots {
		f.robots = util.NewRobotsChecker(userAgent, timeout)
	}
	return f
}

// NewFromConfig builds a Fetcher from the HTTP and rate limiting sections
func NewFromConfig(cfg *model.Config, logger *zap.Logger) *Fetcher {
	f := NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes, cfg.HTTP.RespectRobots,
		cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
	if cfg.RateLimiting.RequestsPerSecond > 0 {
		f.SetLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize))
	}
	f.SetLogger(logger)
	return f
}

// SetLimiter paces requests per domain
func (f *Fetcher) SetLimiter(l *worker.Limiter) {
	f.limiter = l
}

// SetLogger sets the logger (nil disables logging)
func (f *Fetcher) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	f.logger = l
}

// UserAgent returns the configured User-Agent
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// FetchResult contains a response body and metadata
type FetchResult struct {
	Body        []byte
	StatusCode  int
	ContentType string
	FinalURL    string
}

// Text returns the body as a string
func (r *FetchResult) Text() string {
	return string(r.Body)
}

// RequestFunc builds a fresh request for each attempt
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Fetch retrieves a page with a single GET
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	return f.Do(ctx, f.pageRequest(rawURL))
}

// FetchWithRetry retrieves a page, honouring robots.txt when enabled and retrying
// transient failures (5xx, 429, network errors) with exponential backoff.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			metrics.FetchesTotal.WithLabelValues("robots_blocked").Inc()
			return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
		}
		if delay > 0 && f.limiter != nil {
			if err := f.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}
	}
	return f.DoWithRetry(ctx, f.pageRequest(rawURL))
}

// DoWithRetry runs build+send up to three times, backing off between transient failures
func (f *Fetcher) DoWithRetry(ctx context.Context, build RequestFunc) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := f.Do(ctx, build)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt < maxAttempts-1 {
			wait := time.Duration(500*(1<<attempt)) * time.Millisecond
			metrics.FetchesTotal.WithLabelValues("retry").Inc()
			f.logger.Debug("retrying fetch", zap.Int("attempt", attempt+1), zap.Duration("wait", wait), zap.Error(err))
			fetchSleepFunc(wait)
		}
	}
	return nil, lastErr
}

// Do sends one request built by build and reads the bounded body
func (f *Fetcher) Do(ctx context.Context, build RequestFunc) (*FetchResult, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, req.URL.String()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.FetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.FetchesTotal.WithLabelValues("error").Inc()
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		metrics.FetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read body: %w", err)
	}

	metrics.FetchesTotal.WithLabelValues("ok").Inc()
	return &FetchResult{
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

func (f *Fetcher) pageRequest(rawURL string) RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return req, nil
	}
}

// isRetryableFetchError reports whether an error is transient: 5xx, 429 or a
// transport failure. Request construction and body read errors are permanent.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.Code)
	}

	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		codeText, _, _ := strings.Cut(rest, " ")
		code, convErr := strconv.Atoi(codeText)
		return convErr == nil && retryableStatus(code)
	}
	return strings.HasPrefix(msg, "fetch: ")
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
