package world

import (
	"context"
	"time"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/gradient"
	"github.com/exor2008/Pleiades/internal/led"
	"github.com/exor2008/Pleiades/internal/noise"
)

const (
	firePeriod      = 10 * time.Millisecond
	fireSparkChance = 700 // one in
	fireMinHeight   = 2
	// fireHeadroom is how many rows the tallest flame leaves free at the
	// default bias.
	fireHeadroom = 6
)

type spark struct {
	x, y int
}

// Fire draws a row of flames whose heights follow a Perlin noise field over
// time. Now and then a spark breaks off a flame and drifts upwards.
type Fire struct {
	base
	rng      *noise.RNG
	perlin   *noise.Perlin
	colormap *gradient.Gradient

	sparks []spark
	// bias shifts every flame height; 0 means the default headroom.
	bias   *CooldownValue
	t      int
}

// NewFire creates the Fire world.
func NewFire(sink led.Sink, env Env) *Fire {
	colormap := gradient.New(4)
	colormap.Add(0.0, led.RGB(50, 0, 5))
	colormap.Add(0.2, led.RGB(141, 5, 0))
	colormap.Add(0.8, led.RGB(230, 10, 0))
	colormap.Add(1.1, led.RGB(230, 25, 0))

	return &Fire{
		base:     newBase(sink, env, firePeriod),
		rng:      env.RNG,
		perlin:   env.RNG.NewPerlin(),
		colormap: colormap,
		sparks:   make([]spark, 0, sink.Width()),
		bias:     NewCooldownValue(0, -4, 4, 2),
	}
}

func (f *Fire) Kind() Kind { return KindFire }

func (f *Fire) Tick(ctx context.Context) error {
	s := f.owned()
	s.Clear()

	h := s.Height()
	for x := 0; x < s.Width(); x++ {
		height := f.flameHeight(x, h)

		for y := h - height; y < h; y++ {
			s.Write(x, y, f.colormap.Get(flameTemp(h-1-y, height)))
		}

		if height < h-1 && f.rng.Chance(fireSparkChance) && len(f.sparks) < cap(f.sparks) {
			f.sparks = append(f.sparks, spark{x: x, y: h - 1 - height})
		}
	}

	f.moveSparks(s.Width())
	for _, sp := range f.sparks {
		s.Write(sp.x, sp.y, f.colormap.Get(f.rng.Float(0.7, 1.0)))
	}

	f.t++
	return f.wait(ctx)
}

// flameTemp is the gradient position of the row that sits row LEDs above the
// base of a flame: 0 at the base, 1 at the tip.
func flameTemp(row, height int) float64 {
	return float64(row) / float64(max(height-1, 1))
}

func (f *Fire) flameHeight(x, h int) int {
	n := f.perlin.Sample(float64(x)/2.6, float64(f.t)/10)
	n = clamp((n-0.3)/0.25, 0, 1)

	height := int(n * float64(h-fireHeadroom+f.bias.Value()))
	return min(max(height, fireMinHeight), h)
}

func (f *Fire) moveSparks(width int) {
	alive := f.sparks[:0]
	for _, sp := range f.sparks {
		sp.y--
		sp.x += f.rng.Int(-1, 2)
		if sp.x >= 0 && sp.x < width && sp.y >= 0 {
			alive = append(alive, sp)
		}
	}
	f.sparks = alive
}

// OnDirection raises the flames on Up and lowers them on Down.
func (f *Fire) OnDirection(d gesture.Direction) {
	switch d {
	case gesture.Up:
		f.bias.Up()
	case gesture.Down:
		f.bias.Down()
	}
}
