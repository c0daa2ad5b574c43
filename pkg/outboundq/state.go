package outboundq

import "go.uber.org/atomic"

// state is the queue's lifecycle state machine.
type state int32

// Valid states.
const (
	stateRunning state = iota
	stateQuiescing
	stateDraining
	stateStopped
)

// String implements fmt.Stringer.
func (s state) String() string {
	switch s {
	case stateRunning:
		return "Running"
	case stateQuiescing:
		return "Quiescing"
	case stateDraining:
		return "Draining"
	case stateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

func (q *OutboundQ) setState(s state) { q.state.Store(int32(s)) }
func (q *OutboundQ) getState() state  { return state(q.state.Load()) }
