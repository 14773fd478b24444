package pipeline

// Chunk is an immutable unit of data flowing through a pipeline.
// The payload is copied on construction and must not be modified through
// the slice returned by Bytes.
type Chunk struct {
	data []byte
	seq  uint64
}

// NewChunk returns a chunk holding a copy of p.
func NewChunk(p []byte) Chunk {
	data := make([]byte, len(p))
	copy(data, p)
	return Chunk{data: data}
}

// StringChunk returns a chunk holding s.
func StringChunk(s string) Chunk {
	return Chunk{data: []byte(s)}
}

// Bytes returns the payload.
func (c Chunk) Bytes() []byte { return c.data }

// String returns the payload as a string.
func (c Chunk) String() string { return string(c.data) }

// Len returns the payload size in bytes.
func (c Chunk) Len() int { return len(c.data) }

// Seq returns the sequence number stamped by the link the chunk last
// entered. Sequence numbers start at 1 and are dense per link; a chunk that
// has not passed through a link reports 0.
func (c Chunk) Seq() uint64 { return c.seq }

func (c Chunk) withSeq(seq uint64) Chunk {
	c.seq = seq
	return c
}
