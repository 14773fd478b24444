package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"sync"

	"github.com/spf13/afero"
)

// DefaultReadSize is the chunk size of reader-backed sources.
const DefaultReadSize = 32 * 1024

const maxEmptyReads = 100

// guard tracks end of stream and one-shot disposal for reference sources.
type guard struct {
	exhausted bool
	closed    sync.Once
	closeErr  error
}

func (g *guard) check() error {
	if g.exhausted {
		return ErrSourceExhausted
	}
	return nil
}

func (g *guard) exhaust() { g.exhausted = true }

func (g *guard) closeOnce(fn func() error) error {
	g.closed.Do(func() { g.closeErr = fn() })
	return g.closeErr
}

// FromSlice returns a source emitting each payload as one chunk.
func FromSlice(payloads [][]byte) Source {
	chunks := make([]Chunk, len(payloads))
	for i, p := range payloads {
		chunks[i] = NewChunk(p)
	}
	return &sliceSource{chunks: chunks}
}

// FromStrings returns a source emitting each string as one chunk.
func FromStrings(items ...string) Source {
	chunks := make([]Chunk, len(items))
	for i, s := range items {
		chunks[i] = StringChunk(s)
	}
	return &sliceSource{chunks: chunks}
}

type sliceSource struct {
	chunks []Chunk
	next   int
	guard
}

func (s *sliceSource) Name() string { return "slice" }

func (s *sliceSource) Next(context.Context) (Chunk, bool, error) {
	if err := s.check(); err != nil {
		return Chunk{}, false, err
	}
	if s.next >= len(s.chunks) {
		s.exhaust()
		return Chunk{}, false, nil
	}
	c := s.chunks[s.next]
	s.next++
	return c, true, nil
}

// FromReader returns a source reading up to size bytes per chunk from r.
// When r is an io.Closer it is closed on dispose.
func FromReader(r io.Reader, size int) Source {
	if size <= 0 {
		size = DefaultReadSize
	}
	return &readerSource{name: "reader", r: r, buf: make([]byte, size)}
}

// FromFile returns a source streaming path from fs. The file is opened on
// the first read so a missing file fails the run as a source error.
func FromFile(fs afero.Fs, path string, size int) Source {
	if size <= 0 {
		size = DefaultReadSize
	}
	return &readerSource{
		name: "file",
		open: func() (io.Reader, error) { return fs.Open(path) },
		buf:  make([]byte, size),
	}
}

type readerSource struct {
	name string
	r    io.Reader
	open func() (io.Reader, error)
	buf  []byte
	eof  bool
	guard
}

func (s *readerSource) Name() string { return s.name }

func (s *readerSource) Next(ctx context.Context) (Chunk, bool, error) {
	if err := s.check(); err != nil {
		return Chunk{}, false, err
	}
	if s.r == nil {
		r, err := s.open()
		if err != nil {
			return Chunk{}, false, err
		}
		s.r = r
	}
	for empty := 0; !s.eof; empty++ {
		if empty >= maxEmptyReads {
			return Chunk{}, false, io.ErrNoProgress
		}
		if err := ctx.Err(); err != nil {
			return Chunk{}, false, err
		}
		n, err := s.r.Read(s.buf)
		if stderrors.Is(err, io.EOF) {
			s.eof = true
		} else if err != nil {
			return Chunk{}, false, err
		}
		if n > 0 {
			return NewChunk(s.buf[:n]), true, nil
		}
	}
	s.exhaust()
	return Chunk{}, false, nil
}

func (s *readerSource) Dispose() error {
	return s.closeOnce(func() error {
		if c, ok := s.r.(io.Closer); ok {
			return c.Close()
		}
		return nil
	})
}
