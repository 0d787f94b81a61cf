package world

import (
	"context"
	"math"
	"time"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/gradient"
	"github.com/exor2008/Pleiades/internal/led"
	"github.com/exor2008/Pleiades/internal/noise"
)

const (
	voronoiPeriod   = 20 * time.Millisecond
	voronoiFade     = 10 // ticks per cross-fade
	voronoiTimeStep = 1e-3
	voronoiPoints   = 5
	voronoiMin      = 2
	voronoiMax      = 20
	// voronoiTurn is the probability that a point keeps its heading.
	voronoiTurn = 0.6
)

// seed is a wandering Voronoi site.
type seed struct {
	x, y   int
	dx, dy int
}

func (p *seed) move(w, h int) {
	p.x = wrap(p.x+p.dx, w)
	p.y = wrap(p.y+p.dy, h)
}

func wrap(v, n int) int {
	return (v%n + n) % n
}

// Voronoi draws the boundaries between the cells of wandering seed points.
// Every cell outlines itself in its own palette, which slowly shifts as time
// passes. Consecutive frames are cross-faded.
type Voronoi struct {
	base
	rng       *noise.RNG
	colormaps []*gradient.Gradient

	seeds  []seed
	owner  [][]int
	fade   crossfader
	t      int
	time   float64
	points *CooldownValue
}

// NewVoronoi creates the Voronoi world.
func NewVoronoi(sink led.Sink, env Env) *Voronoi {
	w, h := sink.Width(), sink.Height()

	v := &Voronoi{
		base:      newBase(sink, env, voronoiPeriod),
		rng:       env.RNG,
		colormaps: voronoiColormaps(),
		seeds:     make([]seed, 0, voronoiMax),
		owner:     make([][]int, w),
		time:      math.Pi / 2,
		points:    NewCooldownValue(voronoiPoints, voronoiMin, voronoiMax, 0),
	}
	for x := range v.owner {
		v.owner[x] = make([]int, h)
	}

	v.fade = newCrossfader(v.step(sink.Layout()))
	return v
}

func voronoiColormaps() []*gradient.Gradient {
	palettes := [][3]led.RGBColor{
		{led.RGB(1, 52, 89), led.RGB(122, 39, 1), led.RGB(108, 194, 189)},
		{led.RGB(3, 32, 52), led.RGB(227, 81, 0), led.RGB(90, 129, 158)},
		{led.RGB(7, 115, 167), led.RGB(254, 83, 0), led.RGB(125, 122, 162)},
		{led.RGB(1, 1, 1), led.RGB(254, 164, 1), led.RGB(246, 126, 125)},
		{led.RGB(0, 12, 12), led.RGB(254, 218, 121), led.RGB(255, 193, 167)},
	}

	colormaps := make([]*gradient.Gradient, len(palettes))
	for i, p := range palettes {
		g := gradient.New(3)
		g.Add(0.0, p[0])
		g.Add(0.5, p[1])
		g.Add(1.01, p[2])
		colormaps[i] = g
	}
	return colormaps
}

func (v *Voronoi) Kind() Kind { return KindVoronoi }

func (v *Voronoi) Tick(ctx context.Context) error {
	s := v.owned()

	v.time += voronoiTimeStep
	if v.t == 0 {
		v.fade.push(v.step(s.Layout()))
	}

	v.fade.draw(s, float64(v.t)/voronoiFade)

	v.t++
	if v.t > voronoiFade {
		v.t = 0
	}
	return v.wait(ctx)
}

// step renders the current cell boundaries into a fresh frame and then moves
// the seeds.
func (v *Voronoi) step(layout led.Serpentine) frame {
	w, h := layout.Width, layout.Height
	v.resize(w, h)

	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			v.owner[x][y] = v.nearest(x, y)
		}
	}

	out := newFrame(layout)
	phase := (math.Sin(v.time) + 1) / 2
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			if v.isBoundary(x, y, w, h) {
				owner := v.owner[x][y]
				out.set(x, y, v.colormaps[owner%len(v.colormaps)].Get(phase))
			}
		}
	}

	for i := range v.seeds {
		p := &v.seeds[i]
		if v.rng.Float(0, 1) > voronoiTurn {
			p.dx, p.dy = v.rng.Int(-1, 2), v.rng.Int(-1, 2)
		}
		p.move(w, h)
	}

	return out
}

// resize spawns or drops seeds until their count matches the target.
func (v *Voronoi) resize(w, h int) {
	want := v.points.Value()
	if len(v.seeds) > want {
		v.seeds = v.seeds[:want]
	}
	for len(v.seeds) < want {
		v.seeds = append(v.seeds, seed{
			x:  v.rng.Int(0, w),
			y:  v.rng.Int(0, h),
			dx: v.rng.Int(-1, 2),
			dy: v.rng.Int(-1, 2),
		})
	}
}

func (v *Voronoi) nearest(x, y int) int {
	best, bestDist := 0, math.MaxInt
	for i, p := range v.seeds {
		dx, dy := x-p.x, y-p.y
		if d := dx*dx + dy*dy; d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// isBoundary reports whether (x, y) lies on the grid edge or touches a cell
// owned by another seed.
func (v *Voronoi) isBoundary(x, y, w, h int) bool {
	if x == 0 || y == 0 || x == w-1 || y == h-1 {
		return true
	}

	owner := v.owner[x][y]
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if v.owner[x+dx][y+dy] != owner {
				return true
			}
		}
	}
	return false
}

// OnDirection adds a seed on Up and removes one on Down. The change shows up
// at the next cross-fade.
func (v *Voronoi) OnDirection(d gesture.Direction) {
	switch d {
	case gesture.Up:
		v.points.Up()
	case gesture.Down:
		v.points.Down()
	}
}
