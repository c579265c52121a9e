package registry

type State int

const (
	StateActive     State = iota // Eligible for selection
	StateRecovering              // Passed one probe after failing
	StateInactive                // Last probe failed
)

// Next returns the state after a probe with the given outcome.
// A failure always deactivates. An inactive provider needs two consecutive
// successes before it is selectable again.
func (s State) Next(probeOK bool) State {
	if !probeOK {
		return StateInactive
	}

	if s == StateInactive {
		return StateRecovering
	}

	return StateActive
}

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateRecovering:
		return "RECOVERING"
	case StateInactive:
		return "INACTIVE"
	default:
		return "UNKNOWN"
	}
}
