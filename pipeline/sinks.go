package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"sync"

	"github.com/spf13/afero"

	"github.com/kbukum/gostream/resilience"
)

// ToWriter returns a sink writing every payload to w. Writers with a
// Flush method are flushed after each write.
func ToWriter(w io.Writer) Sink {
	return &writerSink{w: w}
}

type writerSink struct {
	w io.Writer
}

func (s *writerSink) Name() string { return "writer" }

func (s *writerSink) Consume(_ context.Context, c Chunk) error {
	if _, err := s.w.Write(c.Bytes()); err != nil {
		return err
	}
	return flush(s.w)
}

func (s *writerSink) Finish(context.Context) error { return flush(s.w) }

func flush(w io.Writer) error {
	switch f := w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Flush() }:
		f.Flush()
	}
	return nil
}

// Capture is a sink collecting every chunk in memory. It is safe to read
// from other goroutines while a run is active.
type Capture struct {
	mu       sync.Mutex
	chunks   []Chunk
	buf      bytes.Buffer
	finished bool
}

// NewCapture returns an empty capture sink.
func NewCapture() *Capture { return &Capture{} }

// Name returns "capture".
func (s *Capture) Name() string { return "capture" }

// Consume records c.
func (s *Capture) Consume(_ context.Context, c Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, c)
	s.buf.Write(c.Bytes())
	return nil
}

// Finish marks the capture complete.
func (s *Capture) Finish(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
	return nil
}

// Chunks returns the received chunks in arrival order.
func (s *Capture) Chunks() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Chunk(nil), s.chunks...)
}

// Bytes returns the concatenated payloads.
func (s *Capture) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}

// String returns the concatenated payloads as a string.
func (s *Capture) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// Finished reports whether Finish was called.
func (s *Capture) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// ToFile returns a sink writing to path on fs. The file is created on the
// first chunk (or on Finish for an empty stream) and synced on Finish.
func ToFile(fs afero.Fs, path string) Sink {
	return &fileSink{fs: fs, path: path}
}

type fileSink struct {
	fs   afero.Fs
	path string
	f    afero.File
}

func (s *fileSink) Name() string { return "file" }

func (s *fileSink) ensureOpen() error {
	if s.f != nil {
		return nil
	}
	f, err := s.fs.Create(s.path)
	if err != nil {
		return err
	}
	s.f = f
	return nil
}

func (s *fileSink) Consume(_ context.Context, c Chunk) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	_, err := s.f.Write(c.Bytes())
	return err
}

func (s *fileSink) Finish(context.Context) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if err := s.f.Sync(); err != nil {
		return err
	}
	f := s.f
	s.f = nil
	return f.Close()
}

func (s *fileSink) Dispose() error {
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil
	return f.Close()
}

// Retrying decorates sink so a failed Consume is retried per cfg. Peer
// disconnects and cancellation are never retried.
func Retrying(sink Sink, cfg resilience.RetryConfig) Sink {
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = resilience.DefaultRetryIf
	}
	cfg.RetryIf = func(err error) bool {
		if stderrors.Is(err, ErrPeerClosed) || stderrors.Is(err, ErrCancelled) {
			return false
		}
		return retryIf(err)
	}
	return &retryingSink{sink: sink, cfg: cfg}
}

type retryingSink struct {
	sink Sink
	cfg  resilience.RetryConfig
}

func (s *retryingSink) Name() string { return stageName(s.sink, "sink") }

func (s *retryingSink) Consume(ctx context.Context, c Chunk) error {
	return resilience.RetryFunc(ctx, s.cfg, func(ctx context.Context) error {
		return s.sink.Consume(ctx, c)
	})
}

func (s *retryingSink) Finish(ctx context.Context) error { return s.sink.Finish(ctx) }

func (s *retryingSink) Dispose() error { return dispose(s.sink) }
