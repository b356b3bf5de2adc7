package transport

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// errRetriesExhausted reports that the connect attempt budget is spent.
var errRetriesExhausted = errors.New("connect attempts exhausted")

// connectRetry paces repeated connects to one endpoint. Its budget is
// Config.ConnectAttempts in total, the first attempt included.
type connectRetry struct {
	backoff BackoffConfig
	limit   int
	failed  int
	rng     *rand.Rand
}

func newConnectRetry(cfg Config, rng *rand.Rand) *connectRetry {
	limit := cfg.ConnectAttempts
	if limit < 1 {
		limit = 1
	}
	return &connectRetry{backoff: cfg.Backoff, limit: limit, rng: rng}
}

// attempt is the 1-based number of the attempt about to run.
func (r *connectRetry) attempt() int {
	return r.failed + 1
}

// delay is the pause after the current number of failures. Growth stops at
// MaxDelay; jitter draws uniformly from the upper half of the interval.
func (r *connectRetry) delay() time.Duration {
	b := r.backoff
	if b.InitialDelay <= 0 || r.failed == 0 {
		return 0
	}
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := b.InitialDelay
	for i := 1; i < r.failed; i++ {
		if b.MaxDelay > 0 && d >= b.MaxDelay {
			break
		}
		d = time.Duration(float64(d) * mult)
	}
	if b.MaxDelay > 0 && d > b.MaxDelay {
		d = b.MaxDelay
	}
	if b.Jitter && r.rng != nil && d > 1 {
		half := d / 2
		d = half + time.Duration(r.rng.Int63n(int64(d-half)+1))
	}
	return d
}

// fail records a failed attempt and blocks until the next one may start.
// It returns errRetriesExhausted when no attempts remain, and the context
// error when ctx ends first or its deadline would cut the pause short.
func (r *connectRetry) fail(ctx context.Context) error {
	r.failed++
	if r.failed >= r.limit {
		return errRetriesExhausted
	}
	d := r.delay()
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < d {
		return context.DeadlineExceeded
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
