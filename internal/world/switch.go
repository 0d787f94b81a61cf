package world

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/led"
)

// Switch owns the active world and moves the sink from world to world as
// commands arrive. Index 0 is the powered-off Empty world; indices 1 through
// Worlds cycle the selectable ones.
type Switch struct {
	env    Env
	logger *slog.Logger
	world  World

	counter int
	prev    int
	on      bool
}

// NewSwitch creates a switch showing initial. Starting on KindEmpty starts
// powered off, ready to power on into the first world.
func NewSwitch(sink led.Sink, env Env, initial Kind) *Switch {
	s := &Switch{
		env:    env,
		logger: env.Logger,
		prev:   int(KindFire),
	}

	s.counter = int(initial)
	s.on = initial != KindEmpty
	s.world = s.build(s.counter, sink)
	return s
}

// World returns the active world.
func (s *Switch) World() World { return s.world }

// Kind returns the kind of the active world.
func (s *Switch) Kind() Kind { return s.world.Kind() }

// Index returns the active world index, 0 when powered off.
func (s *Switch) Index() int { return s.counter }

// IsOn reports whether the installation is powered on.
func (s *Switch) IsOn() bool { return s.on }

// Handle applies a command.
func (s *Switch) Handle(cmd gesture.Command) {
	s.logger.Debug("handling command", "command", cmd, "world", s.Kind())

	switch cmd.Kind {
	case gesture.Swing:
		s.SwitchWorld()
	case gesture.SwitchPower:
		s.SwitchPower()
	case gesture.Level:
		s.world.OnDirection(cmd.Direction)
	default:
		panic("world: unknown command " + cmd.String())
	}
}

// SwitchWorld moves to the next selectable world, wrapping after the last.
// It does nothing while powered off.
func (s *Switch) SwitchWorld() {
	if !s.on {
		s.logger.Debug("ignoring world switch while powered off")
		return
	}
	s.transition(s.counter%Worlds + 1)
}

// SwitchPower toggles power. Powering off remembers the active world and
// shows Empty; powering on rebuilds the remembered world from scratch.
func (s *Switch) SwitchPower() {
	if s.on {
		s.prev = s.counter
		s.on = false
		s.transition(int(KindEmpty))
		return
	}

	s.on = true
	s.transition(s.prev)
}

// Step runs one tick of the active world and flushes it.
func (s *Switch) Step(ctx context.Context) error {
	if err := s.world.Tick(ctx); err != nil {
		return err
	}
	return s.world.Flush(ctx)
}

// Close releases the active world and returns the sink.
func (s *Switch) Close() led.Sink {
	return s.world.Release()
}

func (s *Switch) transition(index int) {
	sink := s.world.Release()
	s.counter = index
	s.world = s.build(index, sink)

	s.logger.Info(
		"switched world",
		"world", s.world.Kind(),
		"index", index,
		"on", s.on)
}

func (s *Switch) build(index int, sink led.Sink) World {
	if index < 0 || index > Worlds {
		panic(fmt.Sprintf("world: index %d out of range [0, %d]", index, Worlds))
	}
	return Build(Kind(index), sink, s.env)
}
