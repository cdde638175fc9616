package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleeper  func(time.Duration)
}

// do runs fn until it succeeds, fails permanently, or the attempt budget is
// exhausted.
func (p retryPolicy) do(ctx context.Context, op string, fn func() error) error {
	attempts := max(p.attempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		delay, retry := p.delay(ctx, err, attempt)
		if !retry {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}
	if attempts == 1 {
		return fmt.Errorf("%s: %w", op, lastErr)
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (p retryPolicy) delay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var empty *emptyContentError
	if errors.As(err, &empty) {
		return p.backoff(attempt), true
	}
	var status *statusError
	if errors.As(err, &status) {
		if status.Code != http.StatusRequestTimeout && status.Code != http.StatusTooManyRequests && status.Code < http.StatusInternalServerError {
			return 0, false
		}
		if status.RetryAfter > 0 {
			return p.clamp(status.RetryAfter), true
		}
		return p.backoff(attempt), true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return p.backoff(attempt), true
	}
	return 0, false
}

// backoff doubles base per attempt: 1 -> base, 2 -> 2*base, 3 -> 4*base.
func (p retryPolicy) backoff(attempt int) time.Duration {
	if p.base <= 0 {
		return 0
	}
	delay := p.base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.max > 0 && delay >= p.max {
			break
		}
	}
	return p.clamp(delay)
}

func (p retryPolicy) clamp(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if p.max > 0 && delay > p.max {
		return p.max
	}
	return delay
}

func (p retryPolicy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d, true
		}
	}
	return 0, false
}
