package session

// State is where a session is in its read-evaluate-report cycle.
type State int

const (
	Idle State = iota
	AwaitingInput
	Evaluating
	Reporting
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingInput:
		return "awaiting-input"
	case Evaluating:
		return "evaluating"
	case Reporting:
		return "reporting"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Mode selects batch or interactive behaviour.
type Mode int

const (
	ModeBatch Mode = iota
	ModeInteractive
)

func (m Mode) String() string {
	if m == ModeInteractive {
		return "interactive"
	}
	return "batch"
}
