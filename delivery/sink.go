package delivery

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kbukum/gostream/pipeline"
)

const contentType = "text/plain"

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// ResponseSink writes a stream to an HTTP response as a file attachment.
// Headers are committed with the first chunk, or at Finish for an empty
// stream, so a failure before any byte leaves the response untouched.
// Each chunk is flushed to the client before Consume returns.
type ResponseSink struct {
	peer     context.Context
	w        http.ResponseWriter
	rc       *http.ResponseController
	filename string

	committed bool
	written   int64
}

var (
	_ pipeline.Sink  = (*ResponseSink)(nil)
	_ pipeline.Named = (*ResponseSink)(nil)
)

// NewResponseSink returns a sink for w announcing the body as filename.
// peer is the request context; once it is done the client is considered
// gone.
func NewResponseSink(peer context.Context, w http.ResponseWriter, filename string) *ResponseSink {
	return &ResponseSink{peer: peer, w: w, rc: http.NewResponseController(w), filename: filename}
}

// Name implements pipeline.Named.
func (s *ResponseSink) Name() string { return "http-response" }

// Committed reports whether the status line and headers were sent.
func (s *ResponseSink) Committed() bool { return s.committed }

// Written returns the number of body bytes accepted by the writer.
func (s *ResponseSink) Written() int64 { return s.written }

func (s *ResponseSink) commit() {
	if s.committed {
		return
	}
	h := s.w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", `attachment; filename="`+quoteEscaper.Replace(s.filename)+`"`)
	h.Set("X-Content-Type-Options", "nosniff")
	s.w.WriteHeader(http.StatusOK)
	s.committed = true
}

// Consume writes one chunk and flushes it. Write failures and a done peer
// context mean the client is gone and are reported as pipeline.ErrPeerClosed.
func (s *ResponseSink) Consume(_ context.Context, c pipeline.Chunk) error {
	if err := s.peerErr(); err != nil {
		return err
	}
	s.commit()
	if c.Len() == 0 {
		return nil
	}
	n, err := s.w.Write(c.Bytes())
	s.written += int64(n)
	if err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrPeerClosed, err)
	}
	if err := s.flush(); err != nil {
		return err
	}
	return s.peerErr()
}

// Finish commits the headers of an empty stream and flushes the tail.
func (s *ResponseSink) Finish(context.Context) error {
	if err := s.peerErr(); err != nil {
		return err
	}
	s.commit()
	return s.flush()
}

func (s *ResponseSink) peerErr() error {
	if s.peer.Err() == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", pipeline.ErrPeerClosed, context.Cause(s.peer))
}

func (s *ResponseSink) flush() error {
	if err := s.rc.Flush(); err != nil && !stderrors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("%w: %v", pipeline.ErrPeerClosed, err)
	}
	return nil
}
