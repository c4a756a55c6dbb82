package merge

// State tracks the worker's position in the protocol lifecycle.
type State int

const (
	StateAwaitingRange State = iota
	StateModeSelected
	StateEmitting
	StateWaiting
	StateExchangingHeads
	StateDoneSent
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingRange:
		return "AWAITING_RANGE"
	case StateModeSelected:
		return "MODE_SELECTED"
	case StateEmitting:
		return "EMITTING"
	case StateWaiting:
		return "WAITING"
	case StateExchangingHeads:
		return "EXCHANGING_HEADS"
	case StateDoneSent:
		return "DONE_SENT"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "INVALID"
	}
}
