// Package pace provides the cooperative frame pacing used by worlds.
package pace

import (
	"context"
	"time"
)

// Pacer blocks until the next frame is due.
type Pacer interface {
	// Wait blocks until the next period elapses or ctx is done.
	Wait(ctx context.Context) error
	// Stop releases the pacer.
	Stop()
}

// Factory creates a pacer for the given frame period.
type Factory func(period time.Duration) Pacer

// Ticker is the Factory backed by time.Ticker.
func Ticker(period time.Duration) Pacer {
	return tickerPacer{time.NewTicker(period)}
}

type tickerPacer struct {
	t *time.Ticker
}

func (p tickerPacer) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.t.C:
		return nil
	}
}

func (p tickerPacer) Stop() { p.t.Stop() }

// Immediate is a Factory whose pacers never wait. It is meant for tests and
// offline rendering.
func Immediate(time.Duration) Pacer {
	return immediate{}
}

type immediate struct{}

func (immediate) Wait(ctx context.Context) error { return ctx.Err() }
func (immediate) Stop()                          {}
