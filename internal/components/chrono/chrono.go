package chrono

import (
	"context"
	"time"
)

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in UTC.
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct{}

func NewStandardImpl() StandardImpl {
	return StandardImpl{}
}

func (StandardImpl) Now() time.Time {
	return time.Now().UTC()
}

func (StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fake is a clock that never blocks, Sleep advances the clock instead.
type Fake struct {
	Current time.Time
	Slept   []time.Duration
}

func (f *Fake) Now() time.Time {
	return f.Current
}

func (f *Fake) Sleep(_ context.Context, d time.Duration) error {
	f.Slept = append(f.Slept, d)
	f.Current = f.Current.Add(d)
	return nil
}
