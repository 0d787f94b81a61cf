package led

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordDriver struct {
	frames [][]byte
	err    error
	closed bool
}

func (d *recordDriver) Write(rgb []byte) error {
	if d.err != nil {
		return d.err
	}
	d.frames = append(d.frames, append([]byte(nil), rgb...))
	return nil
}

func (d *recordDriver) Close() error {
	d.closed = true
	return nil
}

func TestSerpentineIndex(t *testing.T) {
	s := Serpentine{Width: 4, Height: 3}

	tests := []struct {
		x, y  int
		index int
	}{
		{0, 0, 0},
		{0, 2, 2},
		{1, 0, 5},
		{1, 2, 3},
		{2, 1, 7},
		{3, 0, 11},
		{3, 2, 9},
	}

	for _, test := range tests {
		assert.Equal(t, test.index, s.Index(test.x, test.y), "(%d, %d)", test.x, test.y)
		x, y := s.Coord(test.index)
		assert.Equal(t, test.x, x)
		assert.Equal(t, test.y, y)
	}

	assert.Panics(t, func() { s.Index(4, 0) })
	assert.Panics(t, func() { s.Index(0, -1) })
}

func TestSerpentineIsBijective(t *testing.T) {
	s := Serpentine{Width: 16, Height: 16}
	seen := make(map[int]bool, s.Count())
	for x := 0; x < s.Width; x++ {
		for y := 0; y < s.Height; y++ {
			seen[s.Index(x, y)] = true
		}
	}
	assert.Len(t, seen, s.Count())
}

func TestMatrixFlush(t *testing.T) {
	drv := &recordDriver{}
	m := NewMatrix(2, 2, drv)

	m.Write(1, 0, RGB(1, 2, 3))
	m.WriteLinear(0, RGB(9, 9, 9))
	assert.Equal(t, RGB(1, 2, 3), m.Read(1, 0))
	assert.Equal(t, RGB(9, 9, 9), m.Read(0, 0))

	require.NoError(t, m.Flush(context.Background()))
	require.Len(t, drv.frames, 1)
	// (1, 0) sits at the end of the strip because column 1 runs upwards.
	assert.Equal(t, []byte{9, 9, 9, 0, 0, 0, 0, 0, 0, 1, 2, 3}, drv.frames[0])

	m.SetBackground(RGB(4, 4, 4))
	assert.Equal(t, RGB(4, 4, 4), m.Read(1, 1))
	m.Clear()
	assert.Equal(t, Black, m.Read(1, 1))

	require.NoError(t, m.Close())
	assert.True(t, drv.closed)
}

func TestMatrixFlushErrors(t *testing.T) {
	drv := &recordDriver{err: errors.New("bus gone")}
	m := NewMatrix(1, 1, drv)
	err := m.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus gone")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Flush(ctx), context.Canceled)
}

func TestMix(t *testing.T) {
	a := RGB(0, 100, 200)
	b := RGB(100, 100, 0)

	assert.Equal(t, a, Mix(a, b, 0))
	assert.Equal(t, b, Mix(a, b, 1))
	assert.Equal(t, RGB(50, 100, 100), Mix(a, b, 0.5))
}

func TestMixInto(t *testing.T) {
	a := LEDs{RGB(0, 0, 0), RGB(200, 100, 0)}
	b := a.Clone()
	b.Fill(RGB(100, 100, 100))
	assert.Equal(t, RGB(200, 100, 0), a[1], "clone does not alias")

	dst := NewLEDs(2)
	MixInto(dst, a, b, 0.5)
	assert.Equal(t, LEDs{RGB(50, 50, 50), RGB(150, 100, 50)}, dst)
}

func TestColorText(t *testing.T) {
	var c RGBColor
	require.NoError(t, c.UnmarshalText([]byte("#ff8001")))
	assert.Equal(t, RGB(0xff, 0x80, 0x01), c)
	assert.Equal(t, "#ff8001", c.String())

	assert.Error(t, c.UnmarshalText([]byte("#fff")))
	assert.Error(t, c.UnmarshalText([]byte("zzzzzz")))
}

func TestTee(t *testing.T) {
	a, b := &recordDriver{}, &recordDriver{}
	tee := Tee{a, b}

	require.NoError(t, tee.Write([]byte{1, 2, 3}))
	assert.Len(t, a.frames, 1)
	assert.Len(t, b.frames, 1)

	a.err = errors.New("bus gone")
	err := tee.Write([]byte{4, 5, 6})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus gone")
	assert.Len(t, b.frames, 2, "later drivers still get the frame")

	require.NoError(t, tee.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
