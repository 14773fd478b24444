package pipeline

import "fmt"

// State is the lifecycle state of a run.
type State int32

// Run lifecycle: Idle -> Running -> {Completing, Aborting} -> {Completed, Failed, Cancelled}.
const (
	Idle State = iota
	Running
	Completing
	Aborting
	Completed
	Failed
	Cancelled
)

var stateNames = [...]string{
	Idle:       "idle",
	Running:    "running",
	Completing: "completing",
	Aborting:   "aborting",
	Completed:  "completed",
	Failed:     "failed",
	Cancelled:  "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// MarshalText encodes the state name, so states read well in JSON events.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("pipeline: unknown state %q", text)
}
