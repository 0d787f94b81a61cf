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
	starryPeriod     = 50 * time.Millisecond
	starryStars      = 5
	starryInitStars  = 1
	starrySpawnEvery = 10 // steps
	starryRiseEvery  = 2  // columns moved per row risen
	starryFrames     = 25
	starryFramesMin  = 10
	starryFramesMax  = 30
)

type star struct {
	x, y int
	rise int // steps since the star last rose
	temp float64
}

// StarryNight drifts faint stars across a dark noise sky. Each star slides
// one column per step and rises one row every other step.
type StarryNight struct {
	base
	rng      *noise.RNG
	colormap *gradient.Gradient

	sky        frame
	fade       crossfader
	stars      []star
	sinceSpawn int
	t          int
	// frames is the number of ticks between two steps.
	frames     *CooldownValue
}

// NewStarryNight creates the StarryNight world.
func NewStarryNight(sink led.Sink, env Env) *StarryNight {
	colormap := gradient.New(7)
	for _, bp := range []struct {
		pos float64
		c   led.RGBColor
	}{
		{0.0, led.RGB(133, 152, 205)},
		{0.16, led.RGB(221, 148, 133)},
		{0.33, led.RGB(139, 195, 230)},
		{0.5, led.RGB(188, 146, 183)},
		{0.66, led.RGB(186, 244, 251)},
		{0.83, led.RGB(234, 211, 194)},
		{1.01, led.RGB(220, 221, 225)},
	} {
		// Stars stay faint next to the sky.
		colormap.Add(bp.pos, led.RGB(bp.c.R()/5, bp.c.G()/5, bp.c.B()/5))
	}

	n := &StarryNight{
		base:     newBase(sink, env, starryPeriod),
		rng:      env.RNG,
		colormap: colormap,
		stars:    make([]star, 0, starryStars),
		frames:   NewCooldownValue(starryFrames, starryFramesMin, starryFramesMax, 1),
	}

	n.sky = n.paintSky(sink.Layout())
	n.fade = newCrossfader(n.sky.clone())
	for i := 0; i < starryInitStars; i++ {
		n.stars = append(n.stars, n.newStar(sink.Width(), sink.Height()))
	}
	return n
}

// paintSky renders the static background once.
func (n *StarryNight) paintSky(layout led.Serpentine) frame {
	bg := gradient.New(3)
	bg.Add(0.0, led.Black)
	bg.Add(0.8, led.RGB(1, 2, 3))
	bg.Add(1.01, led.RGB(3, 1, 3))

	perlin := n.rng.NewPerlin()
	offset := n.rng.Int(0, 100)
	shift := n.rng.Float(0.1, 0.8)

	sky := newFrame(layout)
	for x := 0; x < layout.Width; x++ {
		for y := 0; y < layout.Height; y++ {
			v := perlin.Sample(float64(x+offset)/5, float64(y+offset)/5) - 0.45
			if v > 0 {
				v = min(v+shift, 1)
			} else {
				v = 0
			}
			sky.set(x, y, bg.GetNoised(v, -0.1, 0.1, n.rng))
		}
	}
	return sky
}

func (n *StarryNight) newStar(w, h int) star {
	return star{
		x:    n.rng.Int(0, w),
		y:    h - 1,
		temp: n.rng.Float(0, 1),
	}
}

func (n *StarryNight) Kind() Kind { return KindStarryNight }

func (n *StarryNight) Tick(ctx context.Context) error {
	s := n.owned()

	frames := n.frames.Value()
	phase := n.t % frames
	if phase == 0 {
		n.fade.push(n.step(s.Width(), s.Height()))
	}

	n.fade.draw(s, float64(phase)/float64(frames-1))

	n.t++
	return n.wait(ctx)
}

func (n *StarryNight) step(w, h int) frame {
	if len(n.stars) < cap(n.stars) && n.sinceSpawn >= starrySpawnEvery {
		n.stars = append(n.stars, n.newStar(w, h))
		n.sinceSpawn = 0
	} else {
		n.sinceSpawn++
	}

	out := n.sky.clone()
	alive := n.stars[:0]
	for _, st := range n.stars {
		st.x = (st.x + 1) % w
		if st.rise++; st.rise >= starryRiseEvery {
			st.y--
			st.rise = 0
		}

		out.set(st.x, st.y, n.colormap.GetNoised(st.temp, -0.1, 0.1, n.rng))
		if st.x < w-2 {
			out.set(st.x+1, st.y, n.colormap.GetNoised(st.temp, -0.1, 0.1, n.rng))
		}

		if st.y > 0 {
			alive = append(alive, st)
		}
	}
	n.stars = alive

	return out
}

// OnDirection speeds the sky up on Up and slows it down on Down.
func (n *StarryNight) OnDirection(d gesture.Direction) {
	switch d {
	case gesture.Up:
		n.frames.Down()
	case gesture.Down:
		n.frames.Up()
	}
}
