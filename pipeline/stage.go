package pipeline

import "context"

// Source is a pull-based producer. Next returns the next chunk, or
// ok == false at end of stream. The controller calls Next only when the
// first link has demand and never again after end of stream.
type Source interface {
	Next(ctx context.Context) (chunk Chunk, ok bool, err error)
}

// Transform consumes one chunk and produces zero or more. Flush is called
// once after the upstream end of stream, when every upstream chunk has been
// processed.
type Transform interface {
	Process(ctx context.Context, in Chunk) ([]Chunk, error)
	Flush(ctx context.Context) ([]Chunk, error)
}

// Sink is the terminal stage. Consume returns once the chunk's side effect
// has been handed off. Finish is called once at end of stream.
type Sink interface {
	Consume(ctx context.Context, c Chunk) error
	Finish(ctx context.Context) error
}

// Disposer is implemented by stages holding resources. Dispose is called
// once per stage when the run reaches a terminal state.
type Disposer interface {
	Dispose() error
}

// Named is implemented by stages that report a name in errors, logs and
// events.
type Named interface {
	Name() string
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context) (Chunk, bool, error)

// Next calls f(ctx).
func (f SourceFunc) Next(ctx context.Context) (Chunk, bool, error) { return f(ctx) }

// SinkFunc adapts a function to a Sink with a no-op Finish.
type SinkFunc func(ctx context.Context, c Chunk) error

// Consume calls f(ctx, c).
func (f SinkFunc) Consume(ctx context.Context, c Chunk) error { return f(ctx, c) }

// Finish does nothing.
func (f SinkFunc) Finish(context.Context) error { return nil }

func stageName(stage any, fallback string) string {
	if n, ok := stage.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fallback
}

func dispose(stage any) error {
	if d, ok := stage.(Disposer); ok {
		return d.Dispose()
	}
	return nil
}
