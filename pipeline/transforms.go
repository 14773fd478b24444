package pipeline

import (
	"bytes"
	"context"
	"maps"
	"slices"
)

// MapFunc returns a stateless 1:1 transform applying fn to every payload.
func MapFunc(name string, fn func([]byte) []byte) Transform {
	return &mapTransform{name: name, fn: fn}
}

type mapTransform struct {
	name string
	fn   func([]byte) []byte
}

func (t *mapTransform) Name() string { return t.name }

func (t *mapTransform) Process(_ context.Context, in Chunk) ([]Chunk, error) {
	return []Chunk{NewChunk(t.fn(in.Bytes()))}, nil
}

func (t *mapTransform) Flush(context.Context) ([]Chunk, error) { return nil, nil }

// Uppercase maps every payload to upper case.
func Uppercase() Transform { return MapFunc("uppercase", bytes.ToUpper) }

// Lowercase maps every payload to lower case.
func Lowercase() Transform { return MapFunc("lowercase", bytes.ToLower) }

// ProcessFunc advances a Stateful transform's state by one payload.
type ProcessFunc[S any] func(state S, payload []byte) (S, [][]byte, error)

// FlushFunc emits whatever a Stateful transform's final state still holds.
type FlushFunc[S any] func(state S) ([][]byte, error)

// Stateful is a transform whose cross-chunk memory is an explicit value
// threaded through every process call.
type Stateful[S any] struct {
	name    string
	state   S
	process ProcessFunc[S]
	flush   FlushFunc[S]
}

// NewStateful returns a transform starting from initial. flush may be nil.
func NewStateful[S any](name string, initial S, process ProcessFunc[S], flush FlushFunc[S]) *Stateful[S] {
	return &Stateful[S]{name: name, state: initial, process: process, flush: flush}
}

// Name returns the transform name.
func (t *Stateful[S]) Name() string { return t.name }

// State returns the current state value.
func (t *Stateful[S]) State() S { return t.state }

// Process feeds one payload through the process function. The state only
// advances when it succeeds.
func (t *Stateful[S]) Process(_ context.Context, in Chunk) ([]Chunk, error) {
	next, outs, err := t.process(t.state, in.Bytes())
	if err != nil {
		return nil, err
	}
	t.state = next
	return toChunks(outs), nil
}

// Flush emits the output of the flush function for the final state.
func (t *Stateful[S]) Flush(context.Context) ([]Chunk, error) {
	if t.flush == nil {
		return nil, nil
	}
	outs, err := t.flush(t.state)
	if err != nil {
		return nil, err
	}
	return toChunks(outs), nil
}

func toChunks(payloads [][]byte) []Chunk {
	if len(payloads) == 0 {
		return nil
	}
	chunks := make([]Chunk, len(payloads))
	for i, p := range payloads {
		chunks[i] = NewChunk(p)
	}
	return chunks
}

// LineSplitter re-chunks the stream at '\n'. Each output chunk is one line
// including its terminator; an unterminated tail is emitted on flush.
func LineSplitter() *Stateful[[]byte] {
	return NewStateful("lines", []byte(nil),
		func(tail []byte, payload []byte) ([]byte, [][]byte, error) {
			buf := append(tail, payload...)
			var lines [][]byte
			for {
				i := bytes.IndexByte(buf, '\n')
				if i < 0 {
					break
				}
				lines = append(lines, buf[:i+1])
				buf = buf[i+1:]
			}
			return bytes.Clone(buf), lines, nil
		},
		func(tail []byte) ([][]byte, error) {
			if len(tail) == 0 {
				return nil, nil
			}
			return [][]byte{tail}, nil
		},
	)
}

var namedTransforms = map[string]func() Transform{
	"upper": Uppercase,
	"lower": Lowercase,
	"lines": func() Transform { return LineSplitter() },
}

// TransformByName returns a fresh instance of a registered transform.
func TransformByName(name string) (Transform, bool) {
	factory, ok := namedTransforms[name]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// TransformNames lists the registered transform names in sorted order.
func TransformNames() []string {
	return slices.Sorted(maps.Keys(namedTransforms))
}
