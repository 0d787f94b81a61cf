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
	auroraPeriod     = 10 * time.Millisecond
	auroraPatterns   = 6
	auroraSpawnEvery = 50 // ticks
	auroraLifetime   = 300
	auroraValueStep  = 32
)

// aurora is one still noise pattern that fades in and out over its lifetime.
type aurora struct {
	data     []float64 // wiring order
	lifetime int
	t        int
}

// envelope rises linearly over the first half of the lifetime and falls over
// the second.
func (a *aurora) envelope() float64 {
	half := float64(a.lifetime) / 2
	t := float64(a.t)
	if t <= half {
		return t / half
	}
	return 1 - (t-half)/half
}

// NorthenLight layers slowly fading noise patterns in aurora colors.
type NorthenLight struct {
	base
	rng      *noise.RNG
	colormap *gradient.Gradient

	patterns  []*aurora
	sum       []float64
	t         int
	lastSpawn int
	// value gates brightness changes; the gradient keeps the level itself.
	value     *CooldownValue
}

// NewNorthenLight creates the NorthenLight world.
func NewNorthenLight(sink led.Sink, env Env) *NorthenLight {
	colormap := gradient.New(6)
	colormap.Add(0.0, led.Black)
	colormap.Add(0.1, led.Black)
	colormap.Add(0.25, led.RGB(10, 30, 60))
	colormap.Add(0.5, led.RGB(2, 237, 80))
	colormap.Add(0.75, led.RGB(108, 134, 206))
	colormap.Add(1.01, led.RGB(70, 30, 100))

	steps := gradient.MaxValue / auroraValueStep
	return &NorthenLight{
		base:      newBase(sink, env, auroraPeriod),
		rng:       env.RNG,
		colormap:  colormap,
		patterns:  make([]*aurora, 0, auroraPatterns),
		sum:       make([]float64, sink.Len()),
		lastSpawn: -1000,
		value:     NewCooldownValue(steps, 0, steps, 2),
	}
}

func (n *NorthenLight) Kind() Kind { return KindNorthenLight }

func (n *NorthenLight) Tick(ctx context.Context) error {
	s := n.owned()

	if len(n.patterns) < cap(n.patterns) && n.t-n.lastSpawn > auroraSpawnEvery {
		n.patterns = append(n.patterns, n.newAurora(s))
		n.lastSpawn = n.t
	}

	for i := range n.sum {
		n.sum[i] = 0
	}
	for _, p := range n.patterns {
		p.t++
		k := p.envelope()
		for i, v := range p.data {
			n.sum[i] += v * k
		}
	}

	for i, v := range n.sum {
		s.WriteLinear(i, n.colormap.Get(clamp(v, 0, 1)))
	}

	alive := n.patterns[:0]
	for _, p := range n.patterns {
		if p.t <= p.lifetime {
			alive = append(alive, p)
		}
	}
	n.patterns = alive

	n.t++
	return n.wait(ctx)
}

func (n *NorthenLight) newAurora(s led.Sink) *aurora {
	perlin := n.rng.NewPerlin()
	cutoff := n.rng.Float(0.47, 0.55)
	shift := n.rng.Float(0.1, 0.8)
	layout := s.Layout()

	a := &aurora{
		data:     make([]float64, s.Len()),
		lifetime: auroraLifetime + n.rng.Int(-100, 100),
	}

	for x := 0; x < layout.Width; x++ {
		for y := 0; y < layout.Height; y++ {
			v := perlin.Sample(float64(x+n.t)/5, float64(y+n.t)/5) - cutoff
			if v > 0 {
				v = min(v+shift, 1)
			} else {
				v = 0
			}
			a.data[layout.Index(x, y)] = v
		}
	}

	return a
}

// OnDirection brightens the aurora on Up and dims it on Down.
func (n *NorthenLight) OnDirection(d gesture.Direction) {
	switch d {
	case gesture.Up:
		if n.value.Up() {
			n.colormap.ChangeValue(+auroraValueStep)
		}
	case gesture.Down:
		if n.value.Down() {
			n.colormap.ChangeValue(-auroraValueStep)
		}
	}
}
