// Package world implements the generative patterns shown on the matrix and
// the Switch that moves the pixel sink between them.
package world

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/led"
	"github.com/exor2008/Pleiades/internal/noise"
	"github.com/exor2008/Pleiades/internal/pace"
)

// World is one generative pattern. A World owns its sink from construction
// until Release.
type World interface {
	// Kind returns the kind of the world.
	Kind() Kind
	// Tick advances the pattern by one step, drawing into the sink, and then
	// waits for the world's frame period. It does not flush.
	Tick(ctx context.Context) error
	// Flush pushes the sink to hardware.
	Flush(ctx context.Context) error
	// OnDirection tunes a world-specific parameter.
	OnDirection(d gesture.Direction)
	// Release tears the world down and hands its sink back. The world must
	// not be used afterwards.
	Release() led.Sink
}

// Kind identifies a world. Kinds are ordered as the Switch cycles them;
// KindEmpty doubles as the powered-off world.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindFire
	KindNorthenLight
	KindMatrix
	KindVoronoi
	KindStarryNight
	KindSolid
)

// Worlds is the number of selectable worlds, not counting Empty.
const Worlds = int(KindSolid)

var kindNames = [...]string{
	KindEmpty:        "empty",
	KindFire:         "fire",
	KindNorthenLight: "northen_light",
	KindMatrix:       "matrix",
	KindVoronoi:      "voronoi",
	KindStarryNight:  "starry_night",
	KindSolid:        "solid",
}

// String returns a string representation of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind parses the name returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown world %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Env holds what every world needs besides its sink.
type Env struct {
	RNG    *noise.RNG
	Pace   pace.Factory
	Logger *slog.Logger
	// OffColor is what the Empty world shows.
	OffColor led.RGBColor
}

// Build constructs a world of the given kind that takes ownership of sink.
func Build(kind Kind, sink led.Sink, env Env) World {
	switch kind {
	case KindEmpty:
		return NewEmpty(sink, env)
	case KindFire:
		return NewFire(sink, env)
	case KindNorthenLight:
		return NewNorthenLight(sink, env)
	case KindMatrix:
		return NewMatrixRain(sink, env)
	case KindVoronoi:
		return NewVoronoi(sink, env)
	case KindStarryNight:
		return NewStarryNight(sink, env)
	case KindSolid:
		return NewSolid(sink, env)
	default:
		panic("world: cannot build " + kind.String())
	}
}

// base carries the sink and pacer shared by every world.
type base struct {
	sink  led.Sink
	pacer pace.Pacer
}

func newBase(sink led.Sink, env Env, period time.Duration) base {
	return base{sink: sink, pacer: env.Pace(period)}
}

// owned returns the sink, panicking if the world was released.
func (b *base) owned() led.Sink {
	if b.sink == nil {
		panic("world: sink used after release")
	}
	return b.sink
}

func (b *base) Flush(ctx context.Context) error {
	return b.owned().Flush(ctx)
}

func (b *base) Release() led.Sink {
	s := b.owned()
	b.pacer.Stop()
	b.sink = nil
	return s
}

func (b *base) wait(ctx context.Context) error {
	return b.pacer.Wait(ctx)
}

// frame is a full picture in wiring order, kept by the worlds that fade
// from one step to the next.
type frame struct {
	layout led.Serpentine
	leds   led.LEDs
}

func newFrame(layout led.Serpentine) frame {
	return frame{layout: layout, leds: led.NewLEDs(layout.Count())}
}

func (f frame) set(x, y int, c led.RGBColor) {
	f.leds[f.layout.Index(x, y)] = c
}

func (f frame) clone() frame {
	return frame{layout: f.layout, leds: f.leds.Clone()}
}

// crossfader blends the previous step into the next one.
type crossfader struct {
	old, next frame
	mixed     led.LEDs
}

func newCrossfader(first frame) crossfader {
	return crossfader{
		old:   first.clone(),
		next:  first,
		mixed: led.NewLEDs(len(first.leds)),
	}
}

// push starts a fade from the current target to next.
func (c *crossfader) push(next frame) {
	c.old, c.next = c.next, next
}

// draw writes the blend at alpha into s.
func (c *crossfader) draw(s led.Sink, alpha float64) {
	led.MixInto(c.mixed, c.old.leds, c.next.leds, alpha)
	for i, col := range c.mixed {
		s.WriteLinear(i, col)
	}
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
