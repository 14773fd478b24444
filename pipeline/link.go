package pipeline

import "fmt"

// Link is the bounded FIFO between two adjacent stages. It pauses its
// producer once it holds HighWatermark chunks and resumes once it has
// drained to LowWatermark. A Link never holds more than its capacity.
//
// Links are owned and driven by a single run; they are not safe for
// concurrent use.
type Link struct {
	buf   []Chunk
	head  int
	size  int
	high  int
	low   int
	seq   uint64
	ended bool

	paused bool
	peak   int
	pauses int
}

func newLink(cfg Config) *Link {
	return &Link{
		buf:  make([]Chunk, cfg.LinkCapacity),
		high: cfg.HighWatermark,
		low:  cfg.LowWatermark,
	}
}

// Len returns the number of buffered chunks.
func (l *Link) Len() int { return l.size }

// Cap returns the link capacity.
func (l *Link) Cap() int { return len(l.buf) }

// Paused reports whether the producer is currently held back.
func (l *Link) Paused() bool { return l.paused }

// Ended reports whether the producer signalled end of stream.
func (l *Link) Ended() bool { return l.ended }

// Drained reports whether the link is ended and empty.
func (l *Link) Drained() bool { return l.ended && l.size == 0 }

// hasDemand reports whether the producer may push another chunk.
func (l *Link) hasDemand() bool {
	return !l.ended && !l.paused && l.size < len(l.buf)
}

func (l *Link) push(c Chunk) error {
	if l.ended {
		return fmt.Errorf("push after end of stream")
	}
	if l.size == len(l.buf) {
		return fmt.Errorf("push on full link (capacity %d)", len(l.buf))
	}
	l.seq++
	l.buf[(l.head+l.size)%len(l.buf)] = c.withSeq(l.seq)
	l.size++
	if l.size > l.peak {
		l.peak = l.size
	}
	if !l.paused && l.size >= l.high {
		l.paused = true
		l.pauses++
	}
	return nil
}

func (l *Link) pop() (Chunk, bool) {
	if l.size == 0 {
		return Chunk{}, false
	}
	c := l.buf[l.head]
	l.buf[l.head] = Chunk{}
	l.head = (l.head + 1) % len(l.buf)
	l.size--
	if l.paused && l.size <= l.low {
		l.paused = false
	}
	return c, true
}

func (l *Link) end() { l.ended = true }

// LinkStats is a snapshot of a link's counters taken when a run ends.
type LinkStats struct {
	Capacity int    `json:"capacity"`
	Len      int    `json:"len"`
	Peak     int    `json:"peak"`
	Pauses   int    `json:"pauses"`
	Pushed   uint64 `json:"pushed"`
}

func (l *Link) stats() LinkStats {
	return LinkStats{
		Capacity: len(l.buf),
		Len:      l.size,
		Peak:     l.peak,
		Pauses:   l.pauses,
		Pushed:   l.seq,
	}
}
