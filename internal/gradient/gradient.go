// Package gradient maps scalar positions onto colors by interpolating between
// sorted breakpoints.
package gradient

import (
	"fmt"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/exor2008/Pleiades/internal/led"
	"github.com/exor2008/Pleiades/internal/noise"
)

// MaxValue is the brightness level of a gradient that has not been dimmed.
const MaxValue = 255

// Breakpoint anchors a color at a position.
type Breakpoint struct {
	Pos float64
	RGB led.RGBColor

	base led.RGBColor
	hsv  [3]float64
}

// Gradient is a fixed-capacity list of breakpoints kept sorted by position.
type Gradient struct {
	points []Breakpoint
	value  int
}

// New creates an empty gradient that can hold up to capacity breakpoints.
func New(capacity int) *Gradient {
	return &Gradient{
		points: make([]Breakpoint, 0, capacity),
		value:  MaxValue,
	}
}

// Add inserts a breakpoint. It panics if the gradient is full: the capacity
// is decided when the palette is written, so overflowing it is a bug.
func (g *Gradient) Add(pos float64, c led.RGBColor) {
	if len(g.points) == cap(g.points) {
		panic(fmt.Sprintf("gradient: capacity %d exceeded", cap(g.points)))
	}

	p := Breakpoint{Pos: pos, base: c}
	h, s, v := toColorful(c).Hsv()
	p.hsv = [3]float64{h, s, v}
	g.points = append(g.points, g.shade(p))

	sort.SliceStable(g.points, func(i, j int) bool {
		return less(g.points[i].Pos, g.points[j].Pos)
	})
}

// less orders positions, treating NaN as equal to everything.
func less(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return a < b
}

// Len returns the number of breakpoints.
func (g *Gradient) Len() int { return len(g.points) }

// Breakpoints returns a copy of the breakpoints in order.
func (g *Gradient) Breakpoints() []Breakpoint {
	return append([]Breakpoint(nil), g.points...)
}

// Get returns the color at v. It panics if no breakpoint lies strictly after
// v or if v lies before the first breakpoint; palettes therefore end with a
// sentinel above 1.0.
func (g *Gradient) Get(v float64) led.RGBColor {
	right := -1
	for i, p := range g.points {
		if p.Pos > v {
			right = i
			break
		}
	}
	if right < 1 {
		panic(fmt.Sprintf("gradient: value %v outside covered domain", v))
	}

	l, r := g.points[right-1], g.points[right]
	coef := (v - l.Pos) / (r.Pos - l.Pos)

	var out led.RGBColor
	for i := range out {
		c1, c2 := float64(l.RGB[i]), float64(r.RGB[i])
		out[i] = uint8(c1 + (c2-c1)*coef)
	}
	return out
}

// GetNoised perturbs v by a uniform offset in [min, max), clamps it into
// [0, 1] and returns the color there.
func (g *Gradient) GetNoised(v, min, max float64, rng *noise.RNG) led.RGBColor {
	v += rng.Float(min, max)
	return g.Get(math.Min(math.Max(v, 0), 1))
}

// ChangeValue shifts the brightness level by delta. The level saturates
// within [1, MaxValue] and scales the HSV value of every breakpoint.
func (g *Gradient) ChangeValue(delta int) {
	g.value = min(max(g.value+delta, 1), MaxValue)
	for i := range g.points {
		g.points[i] = g.shade(g.points[i])
	}
}

// Value returns the current brightness level.
func (g *Gradient) Value() int { return g.value }

func (g *Gradient) shade(p Breakpoint) Breakpoint {
	if g.value == MaxValue {
		p.RGB = p.base
		return p
	}
	scale := float64(g.value) / MaxValue
	r, gr, b := colorful.Hsv(p.hsv[0], p.hsv[1], p.hsv[2]*scale).Clamped().RGB255()
	p.RGB = led.RGB(r, gr, b)
	return p
}

func toColorful(c led.RGBColor) colorful.Color {
	return colorful.Color{
		R: float64(c.R()) / 255,
		G: float64(c.G()) / 255,
		B: float64(c.B()) / 255,
	}
}
