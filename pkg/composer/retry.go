package composer

import (
	"context"
	"errors"
	"net"
	"time"

	k8serrors "k8s.io/apimachinery/pkg/api/errors"
)

const (
	defaultCallTimeout = 10 * time.Second
	maxRetries         = 2
	retryBackoff       = 500 * time.Millisecond
)

// do runs one cluster API call with a bounded timeout, retrying a
// small number of times on transient transport errors. Non-transient
// failures (malformed spec, forbidden, conflicts) surface immediately.
func (c *Composer) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		err = fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}

		if !isTransient(err) || attempt == maxRetries {
			break
		}

		c.log.Warn("transient cluster error, retrying",
			"op", op, "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff):
		}
	}

	return err
}

func isTransient(err error) bool {
	if k8serrors.IsServerTimeout(err) ||
		k8serrors.IsTimeout(err) ||
		k8serrors.IsTooManyRequests(err) ||
		k8serrors.IsServiceUnavailable(err) ||
		k8serrors.IsInternalError(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
