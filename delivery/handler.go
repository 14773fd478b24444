package delivery

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/gostream/catalog"
	"github.com/kbukum/gostream/errors"
	"github.com/kbukum/gostream/logger"
	"github.com/kbukum/gostream/pipeline"
	"github.com/kbukum/gostream/resilience"
	"github.com/kbukum/gostream/server"
	"github.com/kbukum/gostream/server/middleware"
)

// HeaderRunID names the run that produced a delivery.
const HeaderRunID = "X-Run-Id"

// PipelineName labels delivery runs in logs, metrics and events.
const PipelineName = "file-delivery"

// Handler streams catalog files to HTTP clients through a pipeline.
type Handler struct {
	catalog  *catalog.Catalog
	cfg      pipeline.Config
	bulkhead *resilience.Bulkhead
	bus      *pipeline.Bus
	metrics  *pipeline.Metrics
	log      *logger.Logger
	onResult []func(pipeline.Result)

	// runs is cancelled by Shutdown and parents every delivery run.
	runs     context.Context
	shutdown context.CancelFunc
}

// Option configures a Handler.
type Option func(*Handler)

// WithEvents publishes delivery run events on bus.
func WithEvents(bus *pipeline.Bus) Option {
	return func(h *Handler) { h.bus = bus }
}

// WithMetrics records delivery runs to m.
func WithMetrics(m *pipeline.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the handler logger.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithCallback calls fn with the result of every delivery run.
func WithCallback(fn func(pipeline.Result)) Option {
	return func(h *Handler) { h.onResult = append(h.onResult, fn) }
}

// WithConcurrency bounds simultaneous deliveries. Requests wait up to
// maxWait for a slot and are rejected with 503 afterwards.
func WithConcurrency(maxConcurrent int, maxWait time.Duration) Option {
	return func(h *Handler) {
		h.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          PipelineName,
			MaxConcurrent: maxConcurrent,
			MaxWait:       maxWait,
		})
	}
}

// New returns a handler serving files from cat with the given link sizing.
func New(cat *catalog.Catalog, cfg pipeline.Config, opts ...Option) *Handler {
	h := &Handler{catalog: cat, cfg: cfg}
	h.runs, h.shutdown = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.GetGlobalLogger()
	}
	h.log = h.log.WithComponent("delivery")
	if h.bulkhead == nil {
		WithConcurrency(0, 0)(h)
	}
	return h
}

// Register mounts the file routes. Upload bodies are limited to maxUpload.
func (h *Handler) Register(r gin.IRoutes, maxUpload string) {
	r.GET("/files", h.List)
	r.GET("/files/:name", h.Deliver)
	r.PUT("/files/:name", middleware.GinBodySizeLimit(maxUpload), h.Upload)
}

// InUse returns the number of deliveries in flight.
func (h *Handler) InUse() int { return h.bulkhead.InUse() }

// Shutdown cancels every delivery in flight. Runs end as cancelled.
func (h *Handler) Shutdown() { h.shutdown() }

// Deliver streams the named file. The optional repeatable transform query
// parameter inserts named transforms in the given order.
func (h *Handler) Deliver(c *gin.Context) {
	name := c.Param("name")

	source, err := h.catalog.Source(name)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	transforms, err := parseTransforms(c.QueryArray("transform"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	runID := uuid.NewString()
	c.Header(HeaderRunID, runID)

	err = h.bulkhead.Execute(c.Request.Context(), func(context.Context) error {
		h.stream(c.Request.Context(), c, name, runID, source, transforms)
		return nil
	})
	if err != nil {
		h.log.Warn("Delivery rejected", map[string]interface{}{
			"file":   name,
			"run_id": runID,
			"error":  err.Error(),
		})
		server.RespondWithError(c, errors.ServiceUnavailable("file delivery").WithCause(err))
	}
}

// stream runs the delivery. peer is the request context: a client that goes
// away fails the sink with pipeline.ErrPeerClosed instead of cancelling the
// run, which only Shutdown does.
func (h *Handler) stream(peer context.Context, c *gin.Context, name, runID string, source pipeline.Source, transforms []pipeline.Transform) {
	// Deliveries may outlast the server write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	ctx, cancel := context.WithCancel(context.WithoutCancel(peer))
	defer cancel()
	stop := context.AfterFunc(h.runs, cancel)
	defer stop()

	sink := NewResponseSink(peer, c.Writer, name)
	opts := []pipeline.Option{
		pipeline.WithName(PipelineName),
		pipeline.WithRunID(runID),
		pipeline.WithConfig(h.cfg),
		pipeline.WithLogger(h.log),
		pipeline.WithEvents(h.bus),
	}
	if h.metrics != nil {
		opts = append(opts, pipeline.WithMetrics(h.metrics))
	}
	for _, fn := range h.onResult {
		opts = append(opts, pipeline.WithCallback(fn))
	}
	res := pipeline.RunPipeline(ctx, source, transforms, sink, opts...)

	fields := map[string]interface{}{
		"file":      name,
		"run_id":    runID,
		"status":    res.Status.String(),
		"bytes":     sink.Written(),
		"chunks":    res.Delivered,
		"duration":  res.Duration.String(),
		"committed": sink.Committed(),
	}
	if res.OK() {
		h.log.Info("File delivered", fields)
		return
	}

	fields["error"] = res.Err.Error()
	if !sink.Committed() {
		h.log.Warn("Delivery failed before response", fields)
		server.RespondWithError(c, res.Err)
		return
	}
	// The status line is gone; dropping the connection is the only way to
	// tell the client the body is incomplete.
	h.log.Warn("Delivery aborted mid-stream", fields)
	panic(http.ErrAbortHandler)
}

// List returns every file in the catalog.
func (h *Handler) List(c *gin.Context) {
	entries, err := h.catalog.List()
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	server.RespondOKWithMeta(c, entries, &server.Meta{Total: len(entries)})
}

// Upload stores the request body under the given name.
func (h *Handler) Upload(c *gin.Context) {
	name := c.Param("name")
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			server.RespondWithError(c, errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("Request body exceeds %d bytes.", tooLarge.Limit),
				http.StatusRequestEntityTooLarge))
			return
		}
		server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return
	}
	if err := h.catalog.Write(name, data); err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.log.Info("File uploaded", map[string]interface{}{"file": name, "bytes": len(data)})
	server.RespondNoContent(c)
}

func parseTransforms(names []string) ([]pipeline.Transform, error) {
	var transforms []pipeline.Transform
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			t, ok := pipeline.TransformByName(name)
			if !ok {
				return nil, errors.InvalidInput("transform", fmt.Sprintf(
					"unknown transform %q, expected one of %s", name, strings.Join(pipeline.TransformNames(), ", ")))
			}
			transforms = append(transforms, t)
		}
	}
	return transforms, nil
}
