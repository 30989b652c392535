package spotify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ewilliams-labs/artistcompare/internal/logging"
)

const (
	defaultMaxAttempts = 1
	defaultBackoff     = 500 * time.Millisecond
)

// transport rate-limits outbound calls and, when maxAttempts is above one,
// repeats requests that failed with 429, 5xx or a transport error. Catalog
// lookups are plain GETs, so repeating them has no side effects.
type transport struct {
	base        http.RoundTripper
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	logger      *slog.Logger
}

func newTransport(base http.RoundTripper, maxAttempts int, backoff time.Duration, rps float64, logger *slog.Logger) *transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &transport{
		base:        base,
		limiter:     rate.NewLimiter(limit, burst),
		maxAttempts: maxAttempts,
		baseBackoff: backoff,
		logger:      logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("spotify adapter: rate limiter: %w", err)
		}

		r := req
		if attempt > 0 {
			r = req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("spotify adapter: reset request body: %w", err)
				}
				r.Body = body
			}
		}

		resp, err := t.base.RoundTrip(r)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry || attempt == t.maxAttempts-1 {
			return resp, err
		}

		if err != nil {
			t.logger.Warn("retrying request after error",
				"attempt", attempt+1, "max_attempts", t.maxAttempts, "path", req.URL.Path, "error", err)
		} else {
			t.logger.Warn("retrying request after status",
				"attempt", attempt+1, "max_attempts", t.maxAttempts, "path", req.URL.Path, "status", resp.StatusCode)
			_ = resp.Body.Close()
		}

		backoff := t.baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("spotify adapter: request failed after %d attempts", t.maxAttempts)
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}

	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}

	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}

	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("spotify adapter: request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
