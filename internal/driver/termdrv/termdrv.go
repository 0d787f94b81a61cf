// Package termdrv renders the LED matrix in a terminal and turns key presses
// into gesture commands, so the installation can be run without hardware.
package termdrv

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"

	"github.com/exor2008/Pleiades/internal/gesture"
	"github.com/exor2008/Pleiades/internal/led"
)

// ErrQuit is returned by Input when the user asks to quit.
var ErrQuit = errors.New("quit requested")

// cellsPerLED is how many terminal columns one LED takes, to keep pixels
// roughly square.
const cellsPerLED = 2

// Driver draws each frame onto a tcell screen.
type Driver struct {
	screen tcell.Screen
	layout led.Serpentine
	once   sync.Once
}

var _ led.Driver = (*Driver)(nil)

// Open takes over the controlling terminal.
func Open(layout led.Serpentine) (*Driver, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create screen")
	}
	if err := screen.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize screen")
	}
	return New(screen, layout), nil
}

// New draws onto an initialized screen.
func New(screen tcell.Screen, layout led.Serpentine) *Driver {
	screen.HideCursor()
	screen.Clear()
	return &Driver{
		screen: screen,
		layout: layout,
	}
}

// Write draws a frame given in wiring order.
func (d *Driver) Write(rgb []byte) error {
	if len(rgb) != 3*d.layout.Count() {
		return errors.Errorf("frame has %d bytes, want %d", len(rgb), 3*d.layout.Count())
	}

	for i := 0; i < d.layout.Count(); i++ {
		x, y := d.layout.Coord(i)
		style := Style(led.RGB(rgb[3*i], rgb[3*i+1], rgb[3*i+2]))
		for c := 0; c < cellsPerLED; c++ {
			d.screen.SetContent(x*cellsPerLED+c, y, ' ', nil, style)
		}
	}

	d.screen.Show()
	return nil
}

// Close restores the terminal.
func (d *Driver) Close() error {
	d.once.Do(d.screen.Fini)
	return nil
}

// Style returns the cell style used to show c.
func Style(c led.RGBColor) tcell.Style {
	return tcell.StyleDefault.Background(tcell.NewRGBColor(int32(c.R()), int32(c.G()), int32(c.B())))
}

// Input reads key presses until ctx is done, the screen is closed or the
// user quits. Each recognized key is passed to offer.
//
//	space       swing (next world)
//	p, enter    switch power
//	up, k       level up
//	down, j     level down
//	q, esc      quit
func (d *Driver) Input(ctx context.Context, offer func(gesture.Command) bool) error {
	stop := context.AfterFunc(ctx, func() {
		d.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	for {
		ev := d.screen.PollEvent()
		if ev == nil {
			return nil
		}

		switch ev := ev.(type) {
		case *tcell.EventInterrupt:
			if err := ctx.Err(); err != nil {
				return err
			}
		case *tcell.EventResize:
			d.screen.Sync()
		case *tcell.EventKey:
			cmd, action := keyAction(ev.Key(), ev.Rune())
			switch action {
			case actionQuit:
				return ErrQuit
			case actionCommand:
				offer(cmd)
			}
		}
	}
}

type action uint8

const (
	actionNone action = iota
	actionCommand
	actionQuit
)

func keyAction(key tcell.Key, r rune) (gesture.Command, action) {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return gesture.Command{}, actionQuit
	case tcell.KeyEnter:
		return gesture.Command{Kind: gesture.SwitchPower}, actionCommand
	case tcell.KeyUp:
		return gesture.LevelCommand(gesture.Up), actionCommand
	case tcell.KeyDown:
		return gesture.LevelCommand(gesture.Down), actionCommand
	case tcell.KeyRune:
		switch r {
		case ' ':
			return gesture.Command{Kind: gesture.Swing}, actionCommand
		case 'p':
			return gesture.Command{Kind: gesture.SwitchPower}, actionCommand
		case 'k':
			return gesture.LevelCommand(gesture.Up), actionCommand
		case 'j':
			return gesture.LevelCommand(gesture.Down), actionCommand
		case 'q':
			return gesture.Command{}, actionQuit
		}
	}
	return gesture.Command{}, actionNone
}
