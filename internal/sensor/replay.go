package sensor

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Replay plays back a recorded distance trace.
type Replay struct {
	mu      sync.Mutex
	samples []uint8
	next    int
	loop    bool
}

var _ Proximity = (*Replay)(nil)

// NewReplay creates a replay over samples. When loop is true the trace
// restarts after the last sample; otherwise Distance returns io.EOF.
func NewReplay(samples []uint8, loop bool) *Replay {
	return &Replay{samples: samples, loop: loop}
}

// Distance returns the next sample.
func (r *Replay) Distance(ctx context.Context) (uint8, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next >= len(r.samples) {
		if !r.loop || len(r.samples) == 0 {
			return 0, io.EOF
		}
		r.next = 0
	}

	d := r.samples[r.next]
	r.next++
	return d, nil
}

// ParseTrace reads one reading per line. Blank lines and lines starting
// with # are skipped.
func ParseTrace(r io.Reader) ([]uint8, error) {
	var samples []uint8

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		v, err := strconv.ParseUint(text, 10, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		samples = append(samples, uint8(v))
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read trace")
	}
	return samples, nil
}
