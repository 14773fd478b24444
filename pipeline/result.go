package pipeline

import (
	"time"

	"github.com/kbukum/gostream/errors"
)

// Result is the outcome of a run, delivered once to the completion
// callback and returned by Run.Wait.
type Result struct {
	RunID  string
	Status State
	// Err is nil when Status is Completed, otherwise an *errors.AppError
	// with one of the pipeline codes.
	Err error
	// Produced counts chunks taken from the source; Delivered counts chunks
	// the sink accepted.
	Produced  uint64
	Delivered uint64
	Duration  time.Duration
	// Links holds per-link counters in pipeline order.
	Links []LinkStats
}

// OK reports whether the run completed.
func (r Result) OK() bool { return r.Status == Completed }

// Descriptor returns the serialisable error body, or the zero value for a
// completed run.
func (r Result) Descriptor() errors.ErrorBody {
	if r.Err == nil {
		return errors.ErrorBody{}
	}
	return errors.Wrap(r.Err).Body()
}
