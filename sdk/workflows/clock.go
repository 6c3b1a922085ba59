package workflows

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the time source used while polling a synchronous run.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type clockAdapter struct {
	c clock.Clock
}

// NewClock adapts c. A nil c uses the wall clock.
func NewClock(c clock.Clock) Clock {
	if c == nil {
		c = clock.New()
	}
	return clockAdapter{c: c}
}

func (a clockAdapter) Now() time.Time {
	return a.c.Now()
}

func (a clockAdapter) Since(t time.Time) time.Duration {
	return a.c.Since(t)
}

func (a clockAdapter) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := a.c.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
