package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/gostream/errors"
	"github.com/kbukum/gostream/events"
	"github.com/kbukum/gostream/logger"
	"github.com/kbukum/gostream/observability"
)

// Controller owns a stage chain and drives it as a single run.
type Controller struct {
	source     Source
	transforms []Transform
	sink       Sink

	cfg       Config
	name      string
	runID     string
	log       *logger.Logger
	metrics   *Metrics
	bus       *Bus
	callbacks []func(Result)

	started atomic.Bool
}

// New builds a controller for source -> transforms... -> sink. It fails
// when a stage is nil or the link config is invalid.
func New(source Source, transforms []Transform, sink Sink, opts ...Option) (*Controller, error) {
	c := newController(source, transforms, sink, opts)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// RunPipeline runs the chain to completion and returns its result. An
// invalid chain fails without starting; the callback still fires once.
func RunPipeline(ctx context.Context, source Source, transforms []Transform, sink Sink, opts ...Option) Result {
	c := newController(source, transforms, sink, opts)
	if err := c.validate(); err != nil {
		res := Result{RunID: c.runID, Status: Failed, Err: err}
		for _, cb := range c.callbacks {
			cb(res)
		}
		return res
	}
	return c.Start(ctx).Wait()
}

func newController(source Source, transforms []Transform, sink Sink, opts []Option) *Controller {
	c := &Controller{
		source:     source,
		transforms: transforms,
		sink:       sink,
		name:       "pipeline",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg.ApplyDefaults()
	if c.log == nil {
		c.log = logger.GetGlobalLogger()
	}
	if c.metrics == nil {
		c.metrics = globalMetrics()
	}
	if c.runID == "" {
		c.runID = uuid.NewString()
	}
	return c
}

func (c *Controller) validate() error {
	if c.source == nil {
		return errors.ContractViolation("source", 0, stderrors.New("source is nil"))
	}
	for i, t := range c.transforms {
		if t == nil {
			return errors.ContractViolation(fmt.Sprintf("transform-%d", i+1), i+1, stderrors.New("transform is nil"))
		}
	}
	if c.sink == nil {
		return errors.ContractViolation("sink", len(c.transforms)+1, stderrors.New("sink is nil"))
	}
	return c.cfg.Validate()
}

// Config returns the effective link sizing.
func (c *Controller) Config() Config { return c.cfg }

// Run is one execution of a controller's chain.
type Run struct {
	c      *Controller
	id     string
	log    *logger.Logger
	ctx    context.Context
	cancel context.CancelCauseFunc

	state  atomic.Int32
	done   chan struct{}
	once   sync.Once
	result Result

	// Scheduler state, owned by the run goroutine.
	links       []*Link
	nodes       []*transformNode
	sourceName  string
	sinkName    string
	sourceEnded bool
	produced    uint64
	delivered   uint64
}

type transformNode struct {
	t       Transform
	name    string
	index   int
	in, out *Link
	pending []Chunk
	flushed bool
}

// Start launches the run on its own goroutine. A controller runs once;
// starting it again returns a run that has already failed.
func (c *Controller) Start(ctx context.Context) *Run {
	r := &Run{
		c:    c,
		id:   c.runID,
		done: make(chan struct{}),
		log: c.log.WithComponent("pipeline").WithFields(logger.Fields(
			logger.FieldRunID, c.runID,
			"pipeline", c.name,
		)),
	}

	if !c.started.CompareAndSwap(false, true) {
		r.cancel = func(error) {}
		r.result = Result{
			RunID:  r.id,
			Status: Failed,
			Err:    errors.ContractViolation(c.name, 0, stderrors.New("controller already started")),
		}
		r.state.Store(int32(Failed))
		close(r.done)
		return r
	}

	r.ctx, r.cancel = context.WithCancelCause(ctx)
	r.build()
	r.state.Store(int32(Running))
	go r.loop()
	return r
}

func (r *Run) build() {
	c := r.c
	k := len(c.transforms)
	r.links = make([]*Link, k+1)
	for i := range r.links {
		r.links[i] = newLink(c.cfg)
	}
	r.nodes = make([]*transformNode, k)
	for i, t := range c.transforms {
		r.nodes[i] = &transformNode{
			t:     t,
			name:  stageName(t, fmt.Sprintf("transform-%d", i+1)),
			index: i + 1,
			in:    r.links[i],
			out:   r.links[i+1],
		}
	}
	r.sourceName = stageName(c.source, "source")
	r.sinkName = stageName(c.sink, "sink")
}

// ID returns the run id.
func (r *Run) ID() string { return r.id }

// State returns the current lifecycle state.
func (r *Run) State() State { return State(r.state.Load()) }

// Done is closed once the run reached its terminal state and every
// callback returned.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run ends and returns its result. Callbacks must not
// call Wait.
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Cancel aborts the run with a PIPELINE_CANCELLED error. It is safe to call
// at any time, more than once.
func (r *Run) Cancel() {
	r.cancel(ErrCancelled)
}

func (r *Run) setState(s State) {
	prev := State(r.state.Swap(int32(s)))
	if prev == s {
		return
	}
	r.log.Debug("run state changed", logger.Fields("from", prev.String(), logger.FieldState, s.String()))
	r.publish(EventRunState, RunEvent{State: s})
}

func (r *Run) publish(kind events.Kind, e RunEvent) {
	if r.c.bus == nil {
		return
	}
	e.RunID = r.id
	e.Pipeline = r.c.name
	e.Time = time.Now().UTC()
	r.c.bus.Publish(kind, e)
}

func (r *Run) loop() {
	start := time.Now()
	ctx, span := observability.StartSpan(r.ctx, observability.SpanPipelineRun, trace.WithAttributes(
		attribute.String(observability.AttrRunID, r.id),
		attribute.String(observability.AttrPipeline, r.c.name),
	))
	r.c.metrics.runStarted(ctx, r.c.name)
	r.publish(EventRunStarted, RunEvent{State: Running})
	r.log.Debug("run started", logger.Fields("transforms", len(r.nodes)))

	status, err := r.scheduleSafe(ctx)
	r.disposeAll()
	r.cancel(nil)

	res := Result{
		RunID:     r.id,
		Status:    status,
		Err:       err,
		Produced:  r.produced,
		Delivered: r.delivered,
		Duration:  time.Since(start),
		Links:     make([]LinkStats, len(r.links)),
	}
	for i, l := range r.links {
		res.Links[i] = l.stats()
	}

	span.SetAttributes(
		attribute.String(observability.AttrStatus, status.String()),
		attribute.Int64(observability.AttrChunks, int64(r.delivered)),
	)
	r.c.metrics.runFinished(ctx, r.c.name, res)
	observability.EndSpan(span, err)
	r.finish(res)
}

func (r *Run) finish(res Result) {
	r.once.Do(func() {
		r.result = res
		r.setState(res.Status)

		fields := logger.Fields(
			logger.FieldStatus, res.Status.String(),
			"produced", res.Produced,
			"delivered", res.Delivered,
			logger.FieldDuration, res.Duration.Milliseconds(),
		)
		if res.Err != nil {
			r.log.WithError(res.Err).Warn("run ended", fields)
		} else {
			r.log.Info("run completed", fields)
		}

		ev := RunEvent{
			State: res.Status,
			Result: &RunEventResult{
				Produced:   res.Produced,
				Delivered:  res.Delivered,
				DurationMs: res.Duration.Milliseconds(),
			},
		}
		if res.Err != nil {
			body := res.Descriptor()
			ev.Error = &body
		}
		r.publish(EventRunCompleted, ev)

		for _, cb := range r.c.callbacks {
			cb(res)
		}
		close(r.done)
	})
}

// scheduleSafe turns a panicking stage into a failed run.
func (r *Run) scheduleSafe(ctx context.Context) (status State, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.setState(Aborting)
			status = Failed
			err = errors.ContractViolation(r.c.name, 0, fmt.Errorf("stage panicked: %v", p))
		}
	}()
	return r.schedule(ctx)
}

// schedule sweeps the chain from the sink back to the source; each stage
// performs at most one unit of work per sweep. Demand therefore reaches the
// source only after every downstream stage had its turn, so a failure
// anywhere stops the source within the same sweep.
func (r *Run) schedule(ctx context.Context) (State, error) {
	sinkIdx := len(r.nodes) + 1
	sinkIn := r.links[len(r.links)-1]

	for {
		if ctx.Err() != nil {
			return r.cancelled(ctx)
		}
		progress := false

		if c, ok := sinkIn.pop(); ok {
			if err := r.c.sink.Consume(ctx, c); err != nil {
				return r.abort(ctx, errors.SinkFailed(r.sinkName, sinkIdx, err))
			}
			r.delivered++
			r.c.metrics.chunk(ctx, r.c.name, r.sinkName)
			progress = true
		} else if sinkIn.Ended() {
			r.setState(Completing)
			if err := r.c.sink.Finish(ctx); err != nil {
				return r.abort(ctx, errors.SinkFailed(r.sinkName, sinkIdx, err))
			}
			return Completed, nil
		}

		for j := len(r.nodes) - 1; j >= 0; j-- {
			moved, err := r.stepTransform(ctx, r.nodes[j])
			if err != nil {
				return r.abort(ctx, err)
			}
			progress = progress || moved
		}

		if !r.sourceEnded && r.links[0].hasDemand() {
			if err := r.stepSource(ctx); err != nil {
				return r.abort(ctx, err)
			}
			progress = true
		}

		if !progress {
			return r.abort(ctx, errors.ContractViolation(r.c.name, 0, ErrStalled))
		}
	}
}

func (r *Run) stepSource(ctx context.Context) error {
	c, ok, err := r.c.source.Next(ctx)
	if err != nil {
		if stderrors.Is(err, ErrSourceExhausted) {
			return errors.ContractViolation(r.sourceName, 0, err)
		}
		return errors.SourceFailed(r.sourceName, 0, err)
	}
	if !ok {
		r.sourceEnded = true
		r.links[0].end()
		r.setState(Completing)
		return nil
	}
	if err := r.links[0].push(c); err != nil {
		return errors.ContractViolation(r.sourceName, 0, err)
	}
	r.produced++
	r.c.metrics.chunk(ctx, r.c.name, r.sourceName)
	return nil
}

// stepTransform moves pending output first; only when nothing is pending
// does the transform get new input or its flush call.
func (r *Run) stepTransform(ctx context.Context, n *transformNode) (bool, error) {
	var progress bool
	switch {
	case len(n.pending) > 0:
	case n.in.Len() > 0:
		c, _ := n.in.pop()
		outs, err := n.t.Process(ctx, c)
		if err != nil {
			return true, errors.TransformFailed(n.name, n.index, err)
		}
		n.pending = outs
		progress = true
		r.c.metrics.chunk(ctx, r.c.name, n.name)
	case n.in.Drained() && !n.flushed:
		n.flushed = true
		outs, err := n.t.Flush(ctx)
		if err != nil {
			return true, errors.TransformFailed(n.name, n.index, err)
		}
		n.pending = outs
		progress = true
	}

	for len(n.pending) > 0 && n.out.hasDemand() {
		if err := n.out.push(n.pending[0]); err != nil {
			return true, errors.ContractViolation(n.name, n.index, err)
		}
		n.pending = n.pending[1:]
		progress = true
	}
	if len(n.pending) == 0 {
		n.pending = nil
		if n.flushed && !n.out.Ended() {
			n.out.end()
			progress = true
		}
	}
	return progress, nil
}

// abort classifies a stage failure. A stage failing after the run context
// ended is reported as a cancellation.
func (r *Run) abort(ctx context.Context, err error) (State, error) {
	if ctx.Err() != nil {
		return r.cancelled(ctx)
	}
	r.setState(Aborting)
	return Failed, err
}

func (r *Run) cancelled(ctx context.Context) (State, error) {
	r.setState(Aborting)
	cause := context.Cause(ctx)
	if !stderrors.Is(cause, ErrCancelled) {
		cause = fmt.Errorf("%w: %w", ErrCancelled, cause)
	}
	return Cancelled, errors.Cancelled(cause)
}

// disposeAll disposes every stage once, in pipeline order. Failures are
// logged and do not change the result.
func (r *Run) disposeAll() {
	try := func(name string, stage any) {
		if err := dispose(stage); err != nil {
			r.log.WithError(err).Warn("stage dispose failed", logger.Fields(logger.FieldStage, name))
		}
	}
	try(r.sourceName, r.c.source)
	for _, n := range r.nodes {
		try(n.name, n.t)
	}
	try(r.sinkName, r.c.sink)
}
