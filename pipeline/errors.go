package pipeline

import stderrors "errors"

// Sentinels matched with errors.Is against run errors.
var (
	// ErrSourceExhausted is reported when a source is read past end of stream.
	ErrSourceExhausted = stderrors.New("source read after end of stream")
	// ErrPeerClosed is reported by network sinks whose peer went away.
	ErrPeerClosed = stderrors.New("peer closed the connection")
	// ErrCancelled is the cause of every cancelled run.
	ErrCancelled = stderrors.New("pipeline cancelled")
	// ErrStalled is reported when a scheduler sweep makes no progress.
	ErrStalled = stderrors.New("pipeline made no progress")
)
