package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kbukum/gostream/errors"
	"github.com/kbukum/gostream/events"
	"github.com/kbukum/gostream/logger"
)

func TestMain(m *testing.M) {
	logger.SetGlobalLogger(logger.Nop())
	goleak.VerifyTestMain(m)
}

var errBoom = stderrors.New("boom")

// scriptedSource emits payloads in order and fails on call failAt (1-based)
// when failAt > 0.
type scriptedSource struct {
	payloads []string
	failAt   int
	calls    int
	disposed int
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Next(context.Context) (Chunk, bool, error) {
	s.calls++
	if s.failAt > 0 && s.calls == s.failAt {
		return Chunk{}, false, errBoom
	}
	if s.calls > len(s.payloads) {
		return Chunk{}, false, nil
	}
	return StringChunk(s.payloads[s.calls-1]), true, nil
}

func (s *scriptedSource) Dispose() error {
	s.disposed++
	return nil
}

// blockingSource emits nothing and blocks until its context ends.
type blockingSource struct {
	entered chan struct{}
}

func (s *blockingSource) Next(ctx context.Context) (Chunk, bool, error) {
	close(s.entered)
	<-ctx.Done()
	return Chunk{}, false, ctx.Err()
}

// recordingSink accepts chunks until failAt (1-based) and counts lifecycle calls.
type recordingSink struct {
	Capture
	failAt   int
	failErr  error
	consumed int
	disposed int
}

func (s *recordingSink) Consume(ctx context.Context, c Chunk) error {
	s.consumed++
	if s.failAt > 0 && s.consumed == s.failAt {
		return s.failErr
	}
	return s.Capture.Consume(ctx, c)
}

func (s *recordingSink) Dispose() error {
	s.disposed++
	return nil
}

type disposingTransform struct {
	Transform
	disposed int
}

func (t *disposingTransform) Dispose() error {
	t.disposed++
	return nil
}

func lines() []string {
	return []string{"hello world\n", "this is a test\n", "node.js streams are powerful\n", "goodbye\n"}
}

func TestRunPipeline_Uppercase(t *testing.T) {
	sink := NewCapture()
	res := RunPipeline(context.Background(), FromStrings(lines()...), []Transform{Uppercase()}, sink)

	require.NoError(t, res.Err)
	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, "HELLO WORLD\nTHIS IS A TEST\nNODE.JS STREAMS ARE POWERFUL\nGOODBYE\n", sink.String())
	assert.True(t, sink.Finished())
	assert.Equal(t, uint64(4), res.Produced)
	assert.Equal(t, uint64(4), res.Delivered)
	assert.Equal(t, errors.ErrorBody{}, res.Descriptor())
}

func TestRunPipeline_SourceFailureAfterThreeChunks(t *testing.T) {
	src := &scriptedSource{payloads: []string{"a", "b", "c", "d"}, failAt: 4}
	sink := &recordingSink{}

	res := RunPipeline(context.Background(), src, nil, sink)

	assert.Equal(t, Failed, res.Status)
	assert.True(t, errors.HasCode(res.Err, errors.ErrCodeSourceFailed))
	assert.ErrorIs(t, res.Err, errBoom)
	assert.Len(t, sink.Chunks(), 3)
	assert.False(t, sink.Finished())

	desc := res.Descriptor()
	assert.Equal(t, errors.ErrCodeSourceFailed, desc.Code)
	assert.Equal(t, "scripted", desc.Details["stage"])
	assert.Equal(t, 0, desc.Details["index"])
}

func TestRunPipeline_SinkPeerClosedStopsSource(t *testing.T) {
	src := &scriptedSource{payloads: []string{"1", "2", "3", "4", "5"}}
	sink := &recordingSink{failAt: 3, failErr: ErrPeerClosed}

	res := RunPipeline(context.Background(), src, nil, sink)

	assert.Equal(t, Failed, res.Status)
	assert.True(t, errors.HasCode(res.Err, errors.ErrCodeSinkFailed))
	assert.ErrorIs(t, res.Err, ErrPeerClosed)
	assert.Len(t, sink.Chunks(), 2)
	assert.Equal(t, 3, src.calls, "source must not be asked for chunk 4 or 5")
	assert.False(t, sink.Finished())
}

func TestRunPipeline_PreservesOrder(t *testing.T) {
	var input []string
	var want strings.Builder
	for i := 0; i < 200; i++ {
		line := strings.Repeat(string(rune('a'+i%26)), i%7+1) + "\n"
		input = append(input, line)
		want.WriteString(strings.ToUpper(line))
	}

	var seqs []uint64
	sink := &recordingSink{}
	observer := SinkFunc(func(ctx context.Context, c Chunk) error {
		seqs = append(seqs, c.Seq())
		return sink.Consume(ctx, c)
	})

	res := RunPipeline(context.Background(),
		FromStrings(input...),
		[]Transform{LineSplitter(), Uppercase(), Lowercase(), Uppercase()},
		observer,
		WithConfig(Config{LinkCapacity: 2, HighWatermark: 2, LowWatermark: 1}),
	)

	require.NoError(t, res.Err)
	assert.Equal(t, want.String(), sink.String())
	for i, seq := range seqs {
		require.Equal(t, uint64(i+1), seq, "sequence numbers are dense and start at 1")
	}
}

func TestRunPipeline_BoundedLinks(t *testing.T) {
	fanOut := NewStateful("fan-out", 0, func(n int, p []byte) (int, [][]byte, error) {
		outs := make([][]byte, 10)
		for i := range outs {
			outs[i] = p
		}
		return n + 1, outs, nil
	}, nil)

	sink := NewCapture()
	cfg := Config{LinkCapacity: 3, HighWatermark: 3, LowWatermark: 1}
	res := RunPipeline(context.Background(), FromStrings("x", "y", "z"), []Transform{fanOut}, sink, WithConfig(cfg))

	require.NoError(t, res.Err)
	assert.Equal(t, strings.Repeat("x", 10)+strings.Repeat("y", 10)+strings.Repeat("z", 10), sink.String())
	require.Len(t, res.Links, 2)
	for i, l := range res.Links {
		assert.LessOrEqual(t, l.Peak, cfg.LinkCapacity, "link %d exceeded capacity", i)
		assert.Zero(t, l.Len)
	}
	assert.Equal(t, uint64(30), res.Links[1].Pushed)
	assert.Positive(t, res.Links[1].Pauses)
	assert.Equal(t, 3, fanOut.State())
}

func TestRunPipeline_CallbackFiresOnce(t *testing.T) {
	tests := []struct {
		name   string
		source Source
		sink   Sink
		want   State
	}{
		{"completed", FromStrings("a", "b"), NewCapture(), Completed},
		{"failed", &scriptedSource{payloads: []string{"a"}, failAt: 1}, NewCapture(), Failed},
		{"invalid chain", FromStrings("a"), nil, Failed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			var got Result
			res := RunPipeline(context.Background(), tc.source, nil, tc.sink, WithCallback(func(r Result) {
				calls.Add(1)
				got = r
			}))
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, tc.want, res.Status)
			assert.Equal(t, res.Status, got.Status)
		})
	}
}

func TestRunPipeline_TransformFailureDisposesStages(t *testing.T) {
	src := &scriptedSource{payloads: []string{"a", "b", "c", "d", "e"}}
	calls := 0
	failing := &disposingTransform{Transform: &erroringTransform{after: 2, calls: &calls}}
	sink := &recordingSink{}

	res := RunPipeline(context.Background(), src, []Transform{failing}, sink)

	assert.Equal(t, Failed, res.Status)
	assert.True(t, errors.HasCode(res.Err, errors.ErrCodeTransformFailed))
	assert.ErrorIs(t, res.Err, errBoom)
	assert.Equal(t, 1, src.disposed)
	assert.Equal(t, 1, failing.disposed)
	assert.Equal(t, 1, sink.disposed)
	assert.LessOrEqual(t, src.calls, 3, "demand stops once the transform fails")
	assert.False(t, sink.Finished())
}

type erroringTransform struct {
	after int
	calls *int
}

func (t *erroringTransform) Process(_ context.Context, in Chunk) ([]Chunk, error) {
	*t.calls++
	if *t.calls > t.after {
		return nil, errBoom
	}
	return []Chunk{in}, nil
}

func (t *erroringTransform) Flush(context.Context) ([]Chunk, error) { return nil, nil }

func TestRunPipeline_DisposesOnSuccess(t *testing.T) {
	src := &scriptedSource{payloads: []string{"a"}}
	tr := &disposingTransform{Transform: Uppercase()}
	sink := &recordingSink{}

	res := RunPipeline(context.Background(), src, []Transform{tr}, sink)

	require.NoError(t, res.Err)
	assert.Equal(t, 1, src.disposed)
	assert.Equal(t, 1, tr.disposed)
	assert.Equal(t, 1, sink.disposed)
	assert.Equal(t, "A", sink.String())
}

func TestRunPipeline_PureTransformsAreIdempotent(t *testing.T) {
	run := func(input []string) string {
		sink := NewCapture()
		res := RunPipeline(context.Background(), FromStrings(input...), []Transform{Uppercase()}, sink)
		require.NoError(t, res.Err)
		return sink.String()
	}
	first := run(lines())
	assert.Equal(t, first, run(lines()))

	sink := NewCapture()
	res := RunPipeline(context.Background(), FromStrings(first), []Transform{Uppercase(), Uppercase()}, sink)
	require.NoError(t, res.Err)
	assert.Equal(t, first, sink.String())
}

func TestRun_Cancel(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{})}
	sink := NewCapture()
	c, err := New(src, nil, sink)
	require.NoError(t, err)

	run := c.Start(context.Background())
	<-src.entered
	run.Cancel()
	res := run.Wait()

	assert.Equal(t, Cancelled, res.Status)
	assert.Equal(t, Cancelled, run.State())
	assert.True(t, errors.HasCode(res.Err, errors.ErrCodeCancelled))
	assert.ErrorIs(t, res.Err, ErrCancelled)
	assert.False(t, sink.Finished())

	run.Cancel()
	select {
	case <-run.Done():
	default:
		t.Fatal("expected Done to be closed")
	}
}

func TestRun_ParentContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := RunPipeline(ctx, &blockingSource{entered: make(chan struct{})}, nil, NewCapture())

	assert.Equal(t, Cancelled, res.Status)
	assert.ErrorIs(t, res.Err, ErrCancelled)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestRun_AlreadyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &scriptedSource{payloads: []string{"a"}}

	res := RunPipeline(ctx, src, nil, NewCapture())

	assert.Equal(t, Cancelled, res.Status)
	assert.Zero(t, src.calls)
	assert.Equal(t, 1, src.disposed)
}

func TestController_StartTwice(t *testing.T) {
	c, err := New(FromStrings("a"), nil, NewCapture())
	require.NoError(t, err)

	first := c.Start(context.Background()).Wait()
	second := c.Start(context.Background()).Wait()

	assert.Equal(t, Completed, first.Status)
	assert.Equal(t, Failed, second.Status)
	assert.True(t, errors.HasCode(second.Err, errors.ErrCodeContractViolation))
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name       string
		source     Source
		transforms []Transform
		sink       Sink
		opts       []Option
		code       errors.ErrorCode
	}{
		{"nil source", nil, nil, NewCapture(), nil, errors.ErrCodeContractViolation},
		{"nil transform", FromStrings(), []Transform{Uppercase(), nil}, NewCapture(), nil, errors.ErrCodeContractViolation},
		{"nil sink", FromStrings(), nil, nil, nil, errors.ErrCodeContractViolation},
		{"bad config", FromStrings(), nil, NewCapture(), []Option{WithConfig(Config{LinkCapacity: 4, HighWatermark: 5, LowWatermark: 1})}, errors.ErrCodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.source, tc.transforms, tc.sink, tc.opts...)
			assert.Nil(t, c)
			assert.True(t, errors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestRunPipeline_SourceReadPastEnd(t *testing.T) {
	src := SourceFunc(func(context.Context) (Chunk, bool, error) {
		return Chunk{}, false, ErrSourceExhausted
	})
	res := RunPipeline(context.Background(), src, nil, NewCapture())

	assert.Equal(t, Failed, res.Status)
	assert.True(t, errors.HasCode(res.Err, errors.ErrCodeContractViolation))
	assert.ErrorIs(t, res.Err, ErrSourceExhausted)
}

func TestRunPipeline_PanickingStage(t *testing.T) {
	bad := MapFunc("panics", func([]byte) []byte { panic("bad stage") })
	res := RunPipeline(context.Background(), FromStrings("a"), []Transform{bad}, NewCapture())

	assert.Equal(t, Failed, res.Status)
	assert.True(t, errors.HasCode(res.Err, errors.ErrCodeContractViolation))
}

func TestRunPipeline_FinishFailure(t *testing.T) {
	sink := &finishFailSink{}
	res := RunPipeline(context.Background(), FromStrings("a"), nil, sink)

	assert.Equal(t, Failed, res.Status)
	assert.True(t, errors.HasCode(res.Err, errors.ErrCodeSinkFailed))
	assert.Equal(t, uint64(1), res.Delivered)
}

type finishFailSink struct{}

func (finishFailSink) Consume(context.Context, Chunk) error { return nil }
func (finishFailSink) Finish(context.Context) error         { return errBoom }

func TestRunPipeline_EmptySource(t *testing.T) {
	sink := NewCapture()
	res := RunPipeline(context.Background(), FromStrings(), []Transform{LineSplitter()}, sink)

	require.NoError(t, res.Err)
	assert.True(t, sink.Finished())
	assert.Empty(t, sink.Bytes())
}

func TestRunPipeline_PublishesEvents(t *testing.T) {
	bus := NewBus()
	var got []RunEvent
	var kinds []events.Kind
	unsubscribe := bus.Subscribe(events.Wildcard, func(k events.Kind, e RunEvent) {
		kinds = append(kinds, k)
		got = append(got, e)
	})
	defer unsubscribe()

	res := RunPipeline(context.Background(), FromStrings("a", "b"), nil, NewCapture(),
		WithEvents(bus), WithName("demo"), WithRunID("run-1"))
	require.NoError(t, res.Err)

	require.NotEmpty(t, kinds)
	assert.Equal(t, EventRunStarted, kinds[0])
	assert.Equal(t, EventRunCompleted, kinds[len(kinds)-1])
	assert.Contains(t, kinds, EventRunState)

	last := got[len(got)-1]
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, "demo", last.Pipeline)
	assert.Equal(t, Completed, last.State)
	require.NotNil(t, last.Result)
	assert.Equal(t, uint64(2), last.Result.Delivered)
	assert.Nil(t, last.Error)
}

func TestRunPipeline_DrainsWhileCompleting(t *testing.T) {
	bus := NewBus()
	var trace []string
	defer bus.Subscribe(EventRunState, func(_ events.Kind, e RunEvent) {
		trace = append(trace, "state:"+e.State.String())
	})()
	sink := SinkFunc(func(_ context.Context, c Chunk) error {
		trace = append(trace, "chunk:"+c.String())
		return nil
	})

	res := RunPipeline(context.Background(), FromStrings("a", "b"), []Transform{Uppercase()}, sink,
		WithEvents(bus), WithLogger(logger.Nop()))
	require.NoError(t, res.Err)

	completing := slices.Index(trace, "state:completing")
	require.GreaterOrEqual(t, completing, 0, "trace: %v", trace)
	assert.Less(t, completing, slices.Index(trace, "chunk:B"), "source end must precede the final drain: %v", trace)
	assert.Equal(t, "state:completed", trace[len(trace)-1])
}

func TestRunPipeline_FailedEventCarriesError(t *testing.T) {
	bus := NewBus()
	var completed RunEvent
	bus.Subscribe(EventRunCompleted, func(_ events.Kind, e RunEvent) { completed = e })

	RunPipeline(context.Background(), &scriptedSource{failAt: 1}, nil, NewCapture(), WithEvents(bus))

	assert.Equal(t, Failed, completed.State)
	require.NotNil(t, completed.Error)
	assert.Equal(t, errors.ErrCodeSourceFailed, completed.Error.Code)
}

func TestRunPipeline_Logs(t *testing.T) {
	var buf bytes.Buffer
	res := RunPipeline(context.Background(), FromStrings("a"), nil, NewCapture(),
		WithLogger(logger.NewWithWriter(&buf, "debug", "test")), WithRunID("run-log"))
	require.NoError(t, res.Err)

	out := buf.String()
	assert.Contains(t, out, "run completed")
	assert.Contains(t, out, `"run_id":"run-log"`)
	assert.Contains(t, out, `"component":"pipeline"`)
}
