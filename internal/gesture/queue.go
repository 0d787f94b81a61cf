package gesture

import (
	"log/slog"
	"sync/atomic"
)

// Queue is the single-slot channel between the sensor task and the render
// loop. Offers never block: when the slot is taken, the new command is
// dropped and logged.
type Queue struct {
	ch      chan Command
	logger  *slog.Logger
	dropped atomic.Uint64
}

// NewQueue creates an empty queue.
func NewQueue(logger *slog.Logger) *Queue {
	return &Queue{
		ch:     make(chan Command, 1),
		logger: logger,
	}
}

// Offer tries to enqueue cmd and reports whether it was accepted.
func (q *Queue) Offer(cmd Command) bool {
	select {
	case q.ch <- cmd:
		return true
	default:
		q.dropped.Add(1)
		q.logger.Warn(
			"command channel buffer is full, dropping command",
			"command", cmd)
		return false
	}
}

// Poll returns the queued command without blocking.
func (q *Queue) Poll() (Command, bool) {
	select {
	case cmd := <-q.ch:
		return cmd, true
	default:
		return Command{}, false
	}
}

// Dropped returns the number of commands dropped so far.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
