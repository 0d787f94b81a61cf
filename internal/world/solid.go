package world

import (
	"context"
	"time"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/gradient"
	"github.com/exor2008/Pleiades/internal/led"
)

const (
	solidPeriod = 50 * time.Millisecond
	solidHues   = 75
)

// Solid fills the whole matrix with one color picked along a rainbow.
type Solid struct {
	base
	colormap *gradient.Gradient
	hue      *CooldownValue
}

// NewSolid creates the Solid world with a random starting hue.
func NewSolid(sink led.Sink, env Env) *Solid {
	colormap := gradient.New(8)
	colormap.Add(0.0, led.RGB(255, 0, 255))
	colormap.Add(0.15, led.RGB(255, 0, 0))
	colormap.Add(0.3, led.RGB(255, 255, 0))
	colormap.Add(0.45, led.RGB(0, 255, 0))
	colormap.Add(0.6, led.RGB(0, 255, 255))
	colormap.Add(0.75, led.RGB(0, 0, 255))
	colormap.Add(0.9, led.RGB(255, 255, 255))
	colormap.Add(1.01, led.RGB(255, 255, 255))

	return &Solid{
		base:     newBase(sink, env, solidPeriod),
		colormap: colormap,
		hue:      NewCooldownValue(env.RNG.Int(0, solidHues), 0, solidHues, 0),
	}
}

func (s *Solid) Kind() Kind { return KindSolid }

// Color returns the color currently shown.
func (s *Solid) Color() led.RGBColor {
	return s.colormap.Get(float64(s.hue.Value()) / solidHues)
}

func (s *Solid) Tick(ctx context.Context) error {
	s.owned().SetBackground(s.Color())
	return s.wait(ctx)
}

// OnDirection walks the hue forwards on Up and backwards on Down.
func (s *Solid) OnDirection(d gesture.Direction) {
	switch d {
	case gesture.Up:
		s.hue.Up()
	case gesture.Down:
		s.hue.Down()
	}
}
