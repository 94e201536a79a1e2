package spotify

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/jpillora/backoff"
	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"bettershuffle/internal/core"
)

// classifyError wraps an API failure as a *core.RemoteError. Throttling, server
// errors and network failures are transient; every other API error is a rejection.
// Context errors pass through unchanged.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	kind := core.RemoteRejected
	if status, ok := apiStatus(err); ok {
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			kind = core.RemoteTransient
		}
	} else {
		var netErr net.Error
		if errors.As(err, &netErr) {
			kind = core.RemoteTransient
		}
	}

	return &core.RemoteError{Op: op, Kind: kind, Err: err}
}

func apiStatus(err error) (int, bool) {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status, true
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Status, true
	}
	return 0, false
}

type retryPolicy struct {
	maxRetries int
	minDelay   time.Duration
	maxDelay   time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxRetries: core.DefaultMaxRetries,
		minDelay:   core.DefaultRetryMinDelay,
		maxDelay:   core.DefaultRetryMaxDelay,
	}
}

// withRetry runs fn until it succeeds, fails with a non-transient error or the
// retry budget is spent.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	b := &backoff.Backoff{
		Min:    c.retry.minDelay,
		Max:    c.retry.maxDelay,
		Factor: 2,
		Jitter: true,
	}

	for {
		err := fn()
		if err == nil {
			return nil
		}
		if !core.IsTransient(err) || int(b.Attempt()) >= c.retry.maxRetries {
			return err
		}

		delay := b.Duration()
		c.logger.Warn("Transient Spotify failure, retrying",
			zap.String("op", op),
			zap.Float64("attempt", b.Attempt()),
			zap.Duration("delay", delay),
			zap.Error(err))

		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
