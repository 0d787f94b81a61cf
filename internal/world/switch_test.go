package world

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/led"
)

func TestSwitchCyclesWorlds(t *testing.T) {
	sink := led.NewMatrix(8, 8, led.Discard)
	s := NewSwitch(sink, testEnv(), KindFire)
	require.True(t, s.IsOn())

	want := []Kind{
		KindNorthenLight,
		KindMatrix,
		KindVoronoi,
		KindStarryNight,
		KindSolid,
		KindFire, // wraps past Solid, skipping Empty
		KindNorthenLight,
	}
	for _, k := range want {
		s.Handle(gesture.Command{Kind: gesture.Swing})
		assert.Equal(t, k, s.Kind())
		assert.Equal(t, int(k), s.Index())
		require.NoError(t, s.Step(context.Background()))
	}

	assert.Same(t, sink, s.Close())
}

func TestSwitchPowerRestoresWorld(t *testing.T) {
	sink := led.NewMatrix(8, 8, led.Discard)
	s := NewSwitch(sink, testEnv(), KindVoronoi)
	s.SwitchWorld() // StarryNight

	before := s.Index()
	s.SwitchPower()
	assert.False(t, s.IsOn())
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, KindEmpty, s.Kind())
	require.NoError(t, s.Step(context.Background()))

	s.SwitchPower()
	assert.True(t, s.IsOn())
	assert.Equal(t, before, s.Index())
	assert.Equal(t, KindStarryNight, s.Kind())

	assert.Same(t, sink, s.Close())
}

func TestSwitchIgnoresSwingWhileOff(t *testing.T) {
	s := NewSwitch(led.NewMatrix(4, 4, led.Discard), testEnv(), KindSolid)
	s.Handle(gesture.Command{Kind: gesture.SwitchPower})
	require.False(t, s.IsOn())

	s.Handle(gesture.Command{Kind: gesture.Swing})
	assert.False(t, s.IsOn())
	assert.Equal(t, 0, s.Index())

	s.Handle(gesture.Command{Kind: gesture.SwitchPower})
	assert.Equal(t, KindSolid, s.Kind())
}

func TestSwitchStartsOff(t *testing.T) {
	s := NewSwitch(led.NewMatrix(4, 4, led.Discard), testEnv(), KindEmpty)
	assert.False(t, s.IsOn())
	assert.Equal(t, 0, s.Index())

	s.SwitchPower()
	assert.True(t, s.IsOn())
	assert.Equal(t, KindFire, s.Kind())
}

func TestSwitchPowerRebuildsFresh(t *testing.T) {
	s := NewSwitch(led.NewMatrix(4, 4, led.Discard), testEnv(), KindStarryNight)
	first := s.World()

	s.SwitchPower()
	s.SwitchPower()

	assert.NotSame(t, first, s.World())
	assert.Panics(t, func() { first.Release() }, "old world gave up its sink")
}

func TestSwitchLevelReachesWorld(t *testing.T) {
	s := NewSwitch(led.NewMatrix(4, 4, led.Discard), testEnv(), KindSolid)
	solid := s.World().(*Solid)
	solid.hue = NewCooldownValue(10, 0, solidHues, 0)

	s.Handle(gesture.LevelCommand(gesture.Up))
	assert.Equal(t, 11, solid.hue.Value())
	s.Handle(gesture.LevelCommand(gesture.Down))
	s.Handle(gesture.LevelCommand(gesture.Down))
	assert.Equal(t, 9, solid.hue.Value())
	assert.Equal(t, KindSolid, s.Kind())
}

func TestSwitchIndexInvariant(t *testing.T) {
	s := NewSwitch(led.NewMatrix(4, 4, led.Discard), testEnv(), KindFire)
	cmds := []gesture.Command{
		{Kind: gesture.Swing},
		{Kind: gesture.SwitchPower},
		{Kind: gesture.Swing},
		{Kind: gesture.SwitchPower},
		{Kind: gesture.Swing},
		gesture.LevelCommand(gesture.Up),
	}

	for i := 0; i < 50; i++ {
		s.Handle(cmds[i%len(cmds)])
		assert.GreaterOrEqual(t, s.Index(), 0)
		assert.LessOrEqual(t, s.Index(), Worlds)
		assert.Equal(t, s.IsOn(), s.Index() != 0)
	}
}

func TestSwitchBuildOutOfRangePanics(t *testing.T) {
	s := NewSwitch(led.NewMatrix(4, 4, led.Discard), testEnv(), KindFire)
	assert.Panics(t, func() { s.build(Worlds+1, s.World().Release()) })
}
