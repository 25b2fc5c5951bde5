package recorder

// State is a recording session's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateAcquiringDevice
	StateRecording
	StateStopping
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiringDevice:
		return "acquiring_device"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Observer is told about every state change. It runs with the session lock
// held and must not call back into the session.
type Observer func(sessionID string, from, to State)
