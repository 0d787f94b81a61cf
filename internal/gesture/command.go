package gesture

import "fmt"

// Direction is the direction of a level adjustment.
type Direction uint8

const (
	Up Direction = iota
	Down
)

// String returns a string representation of the direction.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// CommandKind is the kind of user intent recognized from a gesture.
type CommandKind uint8

const (
	// Swing is a quick swipe in front of the sensor. It cycles worlds.
	Swing CommandKind = iota
	// SwitchPower is a long hold close to the sensor. It toggles power.
	SwitchPower
	// Level is a slow approach or retreat while holding. It tunes the active
	// world.
	Level
)

// String returns a string representation of the command kind.
func (k CommandKind) String() string {
	switch k {
	case Swing:
		return "swing"
	case SwitchPower:
		return "switch_power"
	case Level:
		return "level"
	default:
		return fmt.Sprintf("CommandKind(%d)", k)
	}
}

// Command is a single user intent. Direction is only meaningful for Level.
type Command struct {
	Kind      CommandKind
	Direction Direction
}

// LevelCommand returns a Level command in the given direction.
func LevelCommand(d Direction) Command {
	return Command{Kind: Level, Direction: d}
}

func (c Command) String() string {
	if c.Kind == Level {
		return "level(" + c.Direction.String() + ")"
	}
	return c.Kind.String()
}
