package clock

import (
	"context"
	"time"
)

// Clock allows injecting time in services. Sleep exists so retry backoff can
// run in tests without real delays; it must return early when ctx is
// cancelled.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// NewSystem returns a clock backed by time.Now and real timers.
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fixed is a clock frozen at one instant. Sleep returns immediately and
// records the requested durations so tests can assert backoff schedules.
type Fixed struct {
	now   time.Time
	Slept []time.Duration
}

// NewFixed returns a clock that always reports the same instant.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	return f.now
}

func (f *Fixed) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Slept = append(f.Slept, d)
	return nil
}

// Advance moves the frozen instant forward.
func (f *Fixed) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}
