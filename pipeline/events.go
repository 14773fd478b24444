package pipeline

import (
	"time"

	"github.com/kbukum/gostream/errors"
	"github.com/kbukum/gostream/events"
)

// Run event kinds published on a Bus given with WithEvents.
const (
	EventRunStarted   events.Kind = "run.started"
	EventRunState     events.Kind = "run.state"
	EventRunCompleted events.Kind = "run.completed"
)

// RunEvent describes a run lifecycle change.
type RunEvent struct {
	RunID    string            `json:"run_id"`
	Pipeline string            `json:"pipeline"`
	State    State             `json:"state"`
	Time     time.Time         `json:"time"`
	Result   *RunEventResult   `json:"result,omitempty"`
	Error    *errors.ErrorBody `json:"error,omitempty"`
}

// RunEventResult carries the counters of a finished run.
type RunEventResult struct {
	Produced   uint64 `json:"produced"`
	Delivered  uint64 `json:"delivered"`
	DurationMs int64  `json:"duration_ms"`
}

// Bus is the event bus type runs publish to.
type Bus = events.Bus[RunEvent]

// NewBus returns a bus for run events.
func NewBus() *Bus {
	return events.NewBus[RunEvent]()
}
