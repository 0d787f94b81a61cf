// Package led contains the frame buffer that generative worlds draw into and
// the driver boundary that pushes frames to hardware.
package led

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Driver abstracts the physical LED output. Drivers receive frames in wiring
// order as packed RGB triplets.
type Driver interface {
	// Write pushes an RGB frame to hardware. len(rgb) is always 3 times the
	// number of LEDs.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}

// Sink is the capability worlds use to draw. Coordinates are logical: x is
// the column, y is the row with 0 at the top.
type Sink interface {
	// Write sets the pixel at the given coordinate.
	Write(x, y int, c RGBColor)
	// WriteLinear sets the pixel at the given wiring-order index.
	WriteLinear(i int, c RGBColor)
	// Read returns the pixel at the given coordinate.
	Read(x, y int) RGBColor
	// Clear turns every pixel off.
	Clear()
	// SetBackground sets every pixel to c.
	SetBackground(c RGBColor)
	// Flush pushes the buffer to hardware. It returns once the driver has
	// accepted the whole frame.
	Flush(ctx context.Context) error

	Width() int
	Height() int
	// Len returns the number of addressable pixels.
	Len() int
	// Layout returns the coordinate mapping used by the sink.
	Layout() Serpentine
}

// Serpentine maps grid coordinates onto a single strip folded column by
// column: even columns run top to bottom, odd columns bottom to top.
type Serpentine struct {
	Width  int // columns
	Height int // LEDs per column
}

// Index returns the wiring-order index of (x, y).
func (s Serpentine) Index(x, y int) int {
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
		panic(fmt.Sprintf("led: coordinate (%d, %d) outside %dx%d grid", x, y, s.Width, s.Height))
	}
	if x%2 == 0 {
		return x*s.Height + y
	}
	return x*s.Height + (s.Height - y) - 1
}

// Coord is the inverse of Index.
func (s Serpentine) Coord(i int) (x, y int) {
	x = i / s.Height
	y = i % s.Height
	if x%2 == 1 {
		y = s.Height - y - 1
	}
	return x, y
}

// Count returns the number of LEDs in the grid.
func (s Serpentine) Count() int {
	return s.Width * s.Height
}

// Matrix is the Sink backed by an in-memory strip and a Driver.
type Matrix struct {
	layout Serpentine
	leds   LEDs
	driver Driver
}

var _ Sink = (*Matrix)(nil)

// NewMatrix creates a width x height matrix that flushes into driver.
func NewMatrix(width, height int, driver Driver) *Matrix {
	l := Serpentine{Width: width, Height: height}
	return &Matrix{
		layout: l,
		leds:   NewLEDs(l.Count()),
		driver: driver,
	}
}

func (m *Matrix) Write(x, y int, c RGBColor) {
	m.leds[m.layout.Index(x, y)] = c
}

func (m *Matrix) WriteLinear(i int, c RGBColor) {
	m.leds[i] = c
}

func (m *Matrix) Read(x, y int) RGBColor {
	return m.leds[m.layout.Index(x, y)]
}

func (m *Matrix) Clear() {
	m.leds.Fill(Black)
}

func (m *Matrix) SetBackground(c RGBColor) {
	m.leds.Fill(c)
}

func (m *Matrix) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.driver.Write(m.leds.AsPixels()); err != nil {
		return errors.Wrap(err, "failed to write frame to driver")
	}
	return nil
}

func (m *Matrix) Width() int         { return m.layout.Width }
func (m *Matrix) Height() int        { return m.layout.Height }
func (m *Matrix) Len() int           { return len(m.leds) }
func (m *Matrix) Layout() Serpentine { return m.layout }

// LEDs returns the underlying strip in wiring order.
func (m *Matrix) LEDs() LEDs { return m.leds }

// Close closes the driver.
func (m *Matrix) Close() error {
	return m.driver.Close()
}
