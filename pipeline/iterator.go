package pipeline

import "context"

// Iterator provides pull-based sequential access to a stream of values.
// Next returns (zero, false, nil) when exhausted.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// FromIterator adapts a byte-slice iterator to a Source. The iterator is
// closed when the run ends.
func FromIterator(name string, it Iterator[[]byte]) Source {
	return &iteratorSource{name: name, it: it}
}

type iteratorSource struct {
	name string
	it   Iterator[[]byte]
	guard
}

func (s *iteratorSource) Name() string { return s.name }

func (s *iteratorSource) Next(ctx context.Context) (Chunk, bool, error) {
	if err := s.check(); err != nil {
		return Chunk{}, false, err
	}
	p, ok, err := s.it.Next(ctx)
	if err != nil {
		return Chunk{}, false, err
	}
	if !ok {
		s.exhaust()
		return Chunk{}, false, nil
	}
	return NewChunk(p), true, nil
}

func (s *iteratorSource) Dispose() error {
	return s.closeOnce(s.it.Close)
}
