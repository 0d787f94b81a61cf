package gradient

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exor2008/Pleiades/internal/led"
	"github.com/exor2008/Pleiades/internal/noise"
)

func blackToWhite() *Gradient {
	g := New(2)
	g.Add(1.0, led.RGB(255, 255, 255))
	g.Add(0.0, led.Black)
	return g
}

func TestGet(t *testing.T) {
	g := blackToWhite()

	assert.Equal(t, led.Black, g.Get(0))
	assert.Equal(t, led.RGB(127, 127, 127), g.Get(0.5))
	assert.Equal(t, g.Get(0.25), g.Get(0.25))

	assert.Panics(t, func() { g.Get(1.0) }, "no breakpoint after the last one")
	assert.Panics(t, func() { g.Get(1.5) })
	assert.Panics(t, func() { g.Get(-0.1) })
	assert.Panics(t, func() { g.Get(math.NaN()) })
}

func TestGetIsMonotonic(t *testing.T) {
	g := blackToWhite()

	prev := g.Get(0)
	for v := 0.01; v < 1; v += 0.01 {
		c := g.Get(v)
		assert.GreaterOrEqual(t, c.R(), prev.R(), "at %v", v)
		prev = c
	}
}

func TestAddSorts(t *testing.T) {
	g := New(4)
	g.Add(1.01, led.RGB(3, 3, 3))
	g.Add(0.0, led.RGB(0, 0, 0))
	g.Add(0.5, led.RGB(2, 2, 2))
	g.Add(math.NaN(), led.RGB(9, 9, 9))

	points := g.Breakpoints()
	require.Len(t, points, 4)
	assert.Equal(t, 0.0, points[0].Pos)
	assert.Equal(t, 0.5, points[1].Pos)
	assert.Equal(t, 1.01, points[2].Pos)
}

func TestAddOverflowPanics(t *testing.T) {
	g := blackToWhite()
	assert.Panics(t, func() { g.Add(0.5, led.Black) })
}

func TestGetNoised(t *testing.T) {
	g := New(2)
	g.Add(0, led.Black)
	g.Add(1.01, led.RGB(101, 101, 101))
	rng := noise.NewRNG(9)

	for i := 0; i < 200; i++ {
		// Values pushed below zero or above one are clamped, never fatal.
		c := g.GetNoised(0.05, -0.1, 0.1, rng)
		assert.LessOrEqual(t, c.R(), uint8(16))

		c = g.GetNoised(0.98, -0.1, 0.1, rng)
		assert.GreaterOrEqual(t, c.R(), uint8(86))
	}
}

func TestChangeValue(t *testing.T) {
	g := New(2)
	g.Add(0, led.Black)
	g.Add(1.01, led.RGB(200, 100, 0))

	g.ChangeValue(+10)
	assert.Equal(t, MaxValue, g.Value())
	assert.Equal(t, led.RGB(200, 100, 0), g.Breakpoints()[1].RGB)

	g.ChangeValue(-128)
	dimmed := g.Breakpoints()[1].RGB
	assert.Less(t, dimmed.R(), uint8(200))
	assert.InDelta(t, 100, int(dimmed.R()), 2)
	assert.InDelta(t, 50, int(dimmed.G()), 2)

	g.ChangeValue(-1000)
	assert.Equal(t, 1, g.Value())

	g.ChangeValue(+1000)
	assert.Equal(t, led.RGB(200, 100, 0), g.Breakpoints()[1].RGB)
}
