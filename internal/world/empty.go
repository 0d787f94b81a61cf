package world

import (
	"context"
	"time"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/led"
)

const emptyPeriod = 50 * time.Millisecond

// Empty shows a single flat color, black unless configured otherwise. It is
// the world shown while the installation is powered off.
type Empty struct {
	base
	color led.RGBColor
}

// NewEmpty creates the Empty world.
func NewEmpty(sink led.Sink, env Env) *Empty {
	return &Empty{
		base:  newBase(sink, env, emptyPeriod),
		color: env.OffColor,
	}
}

func (e *Empty) Kind() Kind { return KindEmpty }

func (e *Empty) Tick(ctx context.Context) error {
	e.owned().SetBackground(e.color)
	return e.wait(ctx)
}

func (e *Empty) OnDirection(gesture.Direction) {}
