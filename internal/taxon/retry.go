package taxon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrMalformedResponse marks a 200 response whose body could not be decoded.
// It is not retried.
var ErrMalformedResponse = errors.New("malformed taxonomic service response")

// StatusError is a non-2xx (or 204) response from the authority.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("taxonomic service returned %d %s", e.Code, http.StatusText(e.Code))
}

// IsTransient reports whether err is worth retrying: transport failures,
// timeouts, 429 and 5xx responses. Cancellation by the caller is not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedResponse) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}

	// Transport failures: dial errors, resets, per-attempt timeouts.
	return true
}

// RetryPolicy is the explicit retry configuration passed to each request.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
	MaxBackoff     time.Duration
	Retryable      func(error) bool
}

// DefaultRetryPolicy returns 3 attempts with exponential backoff from 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		Multiplier:     2,
		MaxBackoff:     10 * time.Second,
		Retryable:      IsTransient,
	}
}

// Delay returns the wait before attempt n+1, given attempt n (1-based) failed.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= p.multiplier()
	}
	if p.MaxBackoff > 0 && time.Duration(d) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(d)
}

func (p RetryPolicy) multiplier() float64 {
	if p.Multiplier < 1 {
		return 1
	}
	return p.Multiplier
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable == nil {
		return IsTransient(err)
	}
	return p.Retryable(err)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. It returns the last error and the number of attempts.
func (p RetryPolicy) Do(ctx context.Context, sleep SleepFunc, fn func(context.Context) error) (int, error) {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !p.retryable(err) || attempt >= p.attempts() {
			return attempt, err
		}
		if serr := sleep(ctx, p.Delay(attempt)); serr != nil {
			return attempt, errors.Join(err, serr)
		}
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
