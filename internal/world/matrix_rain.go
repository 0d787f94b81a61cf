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
	rainPeriod = 30 * time.Millisecond
	// rainDensity is the default spawn density in tenths: a letter spawns on
	// a tick with probability density/10.
	rainDensity = 3
)

// letter is a falling glyph, or the fading trail it leaves behind.
type letter struct {
	x, y     int
	falling  bool
	temp     float64
	coolRate float64

	moveAfter int // ticks left until the next step down
	moveEvery int
}

// fall advances a falling letter and reports whether it moved one row down.
func (l *letter) fall(rng *noise.RNG) bool {
	if l.moveAfter > 0 {
		l.moveAfter--
		return false
	}
	l.y++
	l.moveAfter = l.moveEvery
	l.temp = clamp(l.temp+rng.Float(-0.2, 0.2), 0.8, 1.0)
	return true
}

// MatrixRain is the falling green code effect. Each falling letter leaves a
// trail of stationary letters that cool down and disappear.
type MatrixRain struct {
	base
	rng      *noise.RNG
	colormap *gradient.Gradient

	letters []letter
	trail   []letter
	columns []int // shuffled bag of spawn columns
	density *CooldownValue
}

// NewMatrixRain creates the Matrix world.
func NewMatrixRain(sink led.Sink, env Env) *MatrixRain {
	colormap := gradient.New(3)
	colormap.Add(0.0, led.Black)
	colormap.Add(0.8, led.RGB(5, 50, 5))
	colormap.Add(1.01, led.RGB(50, 150, 50))

	return &MatrixRain{
		base:     newBase(sink, env, rainPeriod),
		rng:      env.RNG,
		colormap: colormap,
		letters:  make([]letter, 0, 2*sink.Len()),
		density:  NewCooldownValue(rainDensity, 1, 9, 2),
	}
}

func (m *MatrixRain) Kind() Kind { return KindMatrix }

func (m *MatrixRain) Tick(ctx context.Context) error {
	s := m.owned()
	s.Clear()

	m.spawn(s.Width())
	m.process()
	m.retire(s.Height())

	for _, l := range m.letters {
		s.Write(l.x, l.y, m.colormap.Get(l.temp))
	}

	return m.wait(ctx)
}

func (m *MatrixRain) spawn(width int) {
	if len(m.letters) == cap(m.letters) {
		return
	}
	if m.rng.Float(0, 1) < 1-float64(m.density.Value())/10 {
		return
	}

	every := m.rng.Int(1, 12)
	m.letters = append(m.letters, letter{
		x:         m.nextColumn(width),
		falling:   true,
		temp:      m.rng.Float(0.8, 1.0),
		coolRate:  m.rng.Float(0.005, 0.015),
		moveAfter: every,
		moveEvery: every,
	})
}

func (m *MatrixRain) process() {
	m.trail = m.trail[:0]
	for i := range m.letters {
		l := &m.letters[i]
		if !l.falling {
			l.temp = max(l.temp-l.coolRate, 0)
			continue
		}
		if l.fall(m.rng) {
			m.trail = append(m.trail, letter{
				x:        l.x,
				y:        l.y - 1,
				temp:     l.temp - 0.2,
				coolRate: l.coolRate,
			})
		}
	}

	for _, l := range m.trail {
		if len(m.letters) == cap(m.letters) {
			break
		}
		m.letters = append(m.letters, l)
	}
}

func (m *MatrixRain) retire(height int) {
	alive := m.letters[:0]
	for _, l := range m.letters {
		if l.falling && l.y < height || !l.falling && l.temp > 0 {
			alive = append(alive, l)
		}
	}
	m.letters = alive
}

// nextColumn draws columns from a shuffled bag so every column gets a letter
// before any column gets a second one.
func (m *MatrixRain) nextColumn(width int) int {
	if len(m.columns) == 0 {
		m.columns = m.rng.Perm(width)
	}
	x := m.columns[len(m.columns)-1]
	m.columns = m.columns[:len(m.columns)-1]
	return x
}

// OnDirection makes the rain denser on Up and sparser on Down.
func (m *MatrixRain) OnDirection(d gesture.Direction) {
	switch d {
	case gesture.Up:
		m.density.Up()
	case gesture.Down:
		m.density.Down()
	}
}
