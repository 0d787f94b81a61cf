// Package gesture turns a stream of proximity readings into user commands.
package gesture

import "fmt"

// State is the state of the gesture state machine.
type State uint8

const (
	// StateCheck waits for a hand to show up in front of the sensor.
	StateCheck State = iota
	// StateSwing follows a hand that has been seen for a few samples.
	StateSwing
	// StateRecord tracks a hand that stayed long enough to be a deliberate
	// hold.
	StateRecord
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateCheck:
		return "check"
	case StateSwing:
		return "swing"
	case StateRecord:
		return "record"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

const (
	successThreshold = 3   // samples before a hand counts as present
	swingDuration    = 25  // samples after which a gesture is a hold
	powerDistance    = 200 // readings at or above this are "very close"
	powerDuration    = 20  // close samples needed to toggle power
	levelSettle      = 5   // samples between level comparisons
	levelThreshold   = 1   // minimum reading change for a level step
)

// StateMachine classifies distance samples. It is not safe for concurrent
// use; the sensor task owns it.
type StateMachine struct {
	state State

	success  int
	power    int
	updown   int
	recorded int
	initDist int

	pending    Command
	hasPending bool
}

// NewStateMachine creates a state machine in the Check state.
func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// State returns the current state.
func (m *StateMachine) State() State {
	return m.state
}

// TakeCommand returns the pending command, if any, and clears it.
func (m *StateMachine) TakeCommand() (Command, bool) {
	if !m.hasPending {
		return Command{}, false
	}
	cmd := m.pending
	m.pending, m.hasPending = Command{}, false
	return cmd, true
}

// Feed advances the state machine by one distance sample.
func (m *StateMachine) Feed(distance uint8) {
	d := int(distance)

	switch m.state {
	case StateCheck:
		m.check(d)
	case StateSwing:
		m.swing(d)
	case StateRecord:
		m.record(d)
	default:
		panic("gesture: invalid state " + m.state.String())
	}
}

func (m *StateMachine) check(d int) {
	if d <= 1 {
		m.reset()
		return
	}

	m.success++
	if m.success > successThreshold+1 {
		m.recorded = m.success
		m.state = StateSwing
	}
}

func (m *StateMachine) swing(d int) {
	if d == 0 {
		m.emit(Command{Kind: Swing})
		m.reset()
		return
	}

	if m.recorded <= swingDuration {
		m.recorded++
		return
	}

	m.initDist = d
	m.state = StateRecord
}

func (m *StateMachine) record(d int) {
	switch {
	case d >= powerDistance:
		switch {
		case m.power < powerDuration:
			m.power++
		case m.power == powerDuration:
			m.emit(Command{Kind: SwitchPower})
			m.power++
			m.updown = 0
		}

	case d == 0:
		m.reset()

	case m.updown > levelSettle:
		delta := m.initDist - d
		switch {
		case delta < -levelThreshold:
			m.emitLevel(Down, d)
		case delta > levelThreshold:
			m.emitLevel(Up, d)
		}

	default:
		m.updown++
	}
}

func (m *StateMachine) emitLevel(dir Direction, d int) {
	m.emit(LevelCommand(dir))
	m.updown = 0
	// Power progress that has not fired starts over. A power toggle that
	// already fired stays saturated until the hand leaves.
	if m.power <= powerDuration {
		m.power = 0
	}
	m.initDist = d
}

func (m *StateMachine) emit(cmd Command) {
	m.pending, m.hasPending = cmd, true
}

// reset zeroes every counter and returns to Check. The pending command is
// left for TakeCommand.
func (m *StateMachine) reset() {
	m.state = StateCheck
	m.success = 0
	m.power = 0
	m.updown = 0
	m.recorded = 0
	m.initDist = 0
}
