package world

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/led"
	"github.com/exor2008/Pleiades/internal/noise"
	"github.com/exor2008/Pleiades/internal/pace"
)

var allKinds = []Kind{
	KindEmpty,
	KindFire,
	KindNorthenLight,
	KindMatrix,
	KindVoronoi,
	KindStarryNight,
	KindSolid,
}

func testEnv() Env {
	return Env{
		RNG:    noise.NewRNG(1234),
		Pace:   pace.Immediate,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func tickN(t *testing.T, w World, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		require.NoError(t, w.Tick(ctx))
		require.NoError(t, w.Flush(ctx))
	}
}

func TestKindStrings(t *testing.T) {
	for _, k := range allKinds {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("lava")
	assert.Error(t, err)
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.Equal(t, len(allKinds)-1, Worlds)
}

func TestBuildReleaseRoundTrip(t *testing.T) {
	for _, k := range allKinds {
		t.Run(k.String(), func(t *testing.T) {
			sink := led.NewMatrix(16, 16, led.Discard)

			w := Build(k, sink, testEnv())
			assert.Equal(t, k, w.Kind())

			back := w.Release()
			assert.Same(t, sink, back)
			assert.Equal(t, 256, back.Len())

			assert.Panics(t, func() { w.Release() })
			assert.Panics(t, func() { _ = w.Tick(context.Background()) })
			assert.Panics(t, func() { _ = w.Flush(context.Background()) })
		})
	}
}

func TestBuildUnknownPanics(t *testing.T) {
	sink := led.NewMatrix(4, 4, led.Discard)
	assert.Panics(t, func() { Build(Kind(Worlds+1), sink, testEnv()) })
}

func TestWorldsRun(t *testing.T) {
	sizes := []struct{ w, h int }{
		{16, 16},
		{8, 5},
		{3, 3},
	}

	for _, k := range allKinds {
		for _, size := range sizes {
			t.Run(k.String(), func(t *testing.T) {
				sink := led.NewMatrix(size.w, size.h, led.Discard)
				w := Build(k, sink, testEnv())
				defer w.Release()

				for i := 0; i < 40; i++ {
					tickN(t, w, 25)
					dir := gesture.Up
					if i%3 == 0 {
						dir = gesture.Down
					}
					w.OnDirection(dir)
				}
			})
		}
	}
}

func TestTickHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, k := range allKinds {
		w := Build(k, led.NewMatrix(4, 4, led.Discard), testEnv())
		assert.ErrorIs(t, w.Tick(ctx), context.Canceled, k.String())
		w.Release()
	}
}

func TestEmptyShowsOffColor(t *testing.T) {
	env := testEnv()
	env.OffColor = led.RGB(1, 2, 3)

	sink := led.NewMatrix(4, 4, led.Discard)
	sink.SetBackground(led.RGB(200, 200, 200))

	tickN(t, NewEmpty(sink, env), 1)
	for _, c := range sink.LEDs() {
		assert.Equal(t, led.RGB(1, 2, 3), c)
	}
}

func TestSolid(t *testing.T) {
	sink := led.NewMatrix(4, 4, led.Discard)
	s := NewSolid(sink, testEnv())
	s.hue = NewCooldownValue(10, 0, solidHues, 0)

	tickN(t, s, 1)
	before := s.Color()
	for _, c := range sink.LEDs() {
		assert.Equal(t, before, c)
	}

	s.OnDirection(gesture.Up)
	assert.Equal(t, 11, s.hue.Value())
	tickN(t, s, 1)
	assert.NotEqual(t, before, s.Color())
	assert.Equal(t, s.Color(), sink.Read(3, 3))
}

func TestFireDrawsFlames(t *testing.T) {
	sink := led.NewMatrix(16, 16, led.Discard)
	f := NewFire(sink, testEnv())

	for i := 0; i < 100; i++ {
		tickN(t, f, 1)

		// Every column burns at least two rows at the bottom.
		for x := 0; x < 16; x++ {
			assert.NotEqual(t, led.Black, sink.Read(x, 15))
			assert.NotEqual(t, led.Black, sink.Read(x, 14))
		}
		assert.LessOrEqual(t, len(f.sparks), 16)
	}
}

func TestFireTipIsBrightest(t *testing.T) {
	assert.Equal(t, 0.0, flameTemp(0, 6))
	assert.Equal(t, 1.0, flameTemp(5, 6))
	assert.Equal(t, 0.0, flameTemp(0, 1))

	sink := led.NewMatrix(4, 16, led.Discard)
	f := NewFire(sink, testEnv())
	tickN(t, f, 1)

	// Find a column and compare its base with its tip.
	for x := 0; x < 4; x++ {
		top := 0
		for top < 16 && sink.Read(x, top) == led.Black {
			top++
		}
		if top >= 15 {
			continue
		}
		base, tip := sink.Read(x, 15), sink.Read(x, top)
		assert.Equal(t, f.colormap.Get(0), base)
		assert.Greater(t, tip.R(), base.R())
	}
}

func TestFireBiasCooldown(t *testing.T) {
	f := NewFire(led.NewMatrix(8, 8, led.Discard), testEnv())

	f.OnDirection(gesture.Up)
	assert.Equal(t, 1, f.bias.Value())
	f.OnDirection(gesture.Up)
	f.OnDirection(gesture.Up)
	assert.Equal(t, 1, f.bias.Value(), "changes are rate limited")
	f.OnDirection(gesture.Up)
	assert.Equal(t, 2, f.bias.Value())
}

func TestFireSparksRise(t *testing.T) {
	f := NewFire(led.NewMatrix(8, 8, led.Discard), testEnv())
	f.sparks = append(f.sparks, spark{x: 2, y: 1}, spark{x: 4, y: 4})

	f.moveSparks(8)
	require.Len(t, f.sparks, 2)
	assert.Equal(t, 0, f.sparks[0].y)
	assert.Equal(t, 3, f.sparks[1].y)
	assert.InDelta(t, 4, f.sparks[1].x, 1)

	f.sparks = f.sparks[1:]
	for i := 0; i < 4; i++ {
		f.moveSparks(8)
	}
	assert.Empty(t, f.sparks)
}

func TestMatrixRainLetters(t *testing.T) {
	sink := led.NewMatrix(16, 16, led.Discard)
	m := NewMatrixRain(sink, testEnv())
	for i := 0; i < 30; i++ {
		m.OnDirection(gesture.Up)
	}
	assert.Equal(t, 9, m.density.Value())

	var falling, trails int
	for i := 0; i < 300; i++ {
		tickN(t, m, 1)
		require.LessOrEqual(t, len(m.letters), cap(m.letters))
		for _, l := range m.letters {
			require.True(t, l.y >= 0 && l.y < 16)
			if l.falling {
				falling++
			} else {
				trails++
				require.Greater(t, l.temp, 0.0)
			}
		}
	}
	assert.NotZero(t, falling)
	assert.NotZero(t, trails)
}

func TestMatrixRainColumnsAreShuffled(t *testing.T) {
	m := NewMatrixRain(led.NewMatrix(6, 4, led.Discard), testEnv())

	seen := make(map[int]bool)
	for i := 0; i < 6; i++ {
		seen[m.nextColumn(6)] = true
	}
	assert.Len(t, seen, 6)
}

func TestNorthenLightPatterns(t *testing.T) {
	sink := led.NewMatrix(16, 16, led.Discard)
	n := NewNorthenLight(sink, testEnv())

	tickN(t, n, 1)
	assert.Len(t, n.patterns, 1)

	for i := 0; i < 2000; i++ {
		tickN(t, n, 1)
		require.LessOrEqual(t, len(n.patterns), auroraPatterns)
		for _, p := range n.patterns {
			require.LessOrEqual(t, p.t, p.lifetime)
		}
	}

	n.OnDirection(gesture.Down)
	assert.Less(t, n.colormap.Value(), 255)
}

func TestAuroraEnvelope(t *testing.T) {
	a := &aurora{lifetime: 100}
	assert.Equal(t, 0.0, a.envelope())
	a.t = 50
	assert.Equal(t, 1.0, a.envelope())
	a.t = 75
	assert.InDelta(t, 0.5, a.envelope(), 1e-9)
	a.t = 100
	assert.InDelta(t, 0.0, a.envelope(), 1e-9)
}

func TestVoronoiPoints(t *testing.T) {
	sink := led.NewMatrix(16, 16, led.Discard)
	v := NewVoronoi(sink, testEnv())
	assert.Len(t, v.seeds, voronoiPoints)

	v.OnDirection(gesture.Up)
	v.OnDirection(gesture.Up)
	tickN(t, v, voronoiFade+1)
	assert.Len(t, v.seeds, voronoiPoints+2)

	for i := 0; i < 10; i++ {
		v.OnDirection(gesture.Down)
	}
	tickN(t, v, voronoiFade+1)
	assert.Len(t, v.seeds, voronoiMin)

	for _, p := range v.seeds {
		assert.True(t, p.x >= 0 && p.x < 16 && p.y >= 0 && p.y < 16)
	}
}

func TestVoronoiBorderIsLit(t *testing.T) {
	sink := led.NewMatrix(8, 8, led.Discard)
	v := NewVoronoi(sink, testEnv())

	// The grid edge is always a boundary.
	for x := 0; x < 8; x++ {
		assert.True(t, v.isBoundary(x, 0, 8, 8))
		assert.True(t, v.isBoundary(x, 7, 8, 8))
	}
}

func TestCrossfader(t *testing.T) {
	layout := led.Serpentine{Width: 2, Height: 2}
	sink := led.NewMatrix(2, 2, led.Discard)

	first := newFrame(layout)
	first.set(1, 0, led.RGB(100, 0, 0))
	fade := newCrossfader(first)

	next := first.clone()
	next.set(1, 0, led.RGB(0, 0, 200))
	next.set(0, 1, led.RGB(50, 50, 50))
	fade.push(next)
	assert.Equal(t, led.RGB(100, 0, 0), first.leds[layout.Index(1, 0)], "clone is independent")

	fade.draw(sink, 0)
	assert.Equal(t, led.RGB(100, 0, 0), sink.Read(1, 0))
	assert.Equal(t, led.Black, sink.Read(0, 1))

	fade.draw(sink, 0.5)
	assert.Equal(t, led.RGB(50, 0, 100), sink.Read(1, 0))
	assert.Equal(t, led.RGB(25, 25, 25), sink.Read(0, 1))

	fade.draw(sink, 1)
	assert.Equal(t, led.RGB(0, 0, 200), sink.Read(1, 0))
}

func TestWrap(t *testing.T) {
	assert.Equal(t, 15, wrap(-1, 16))
	assert.Equal(t, 0, wrap(16, 16))
	assert.Equal(t, 5, wrap(5, 16))
}

func TestStarryNight(t *testing.T) {
	sink := led.NewMatrix(16, 16, led.Discard)
	n := NewStarryNight(sink, testEnv())
	require.Len(t, n.stars, starryInitStars)

	n.OnDirection(gesture.Up)
	assert.Equal(t, starryFrames-1, n.frames.Value())
	n.OnDirection(gesture.Down) // swallowed by the cooldown
	assert.Equal(t, starryFrames-1, n.frames.Value())
	n.OnDirection(gesture.Down)
	assert.Equal(t, starryFrames, n.frames.Value())

	for i := 0; i < 3000; i++ {
		tickN(t, n, 1)
		require.LessOrEqual(t, len(n.stars), starryStars)
		for _, st := range n.stars {
			require.True(t, st.y > 0 && st.y < 16)
		}
	}
}
