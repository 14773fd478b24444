package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/gostream/observability"
)

// Metrics holds the instruments a run records to.
type Metrics struct {
	chunks   metric.Int64Counter
	runs     metric.Int64Counter
	active   metric.Int64UpDownCounter
	duration metric.Float64Histogram
	pauses   metric.Int64Counter
}

// NewMetrics creates pipeline instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	chunks, err := meter.Int64Counter("pipeline.chunks",
		metric.WithDescription("Chunks moved through a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.chunks counter: %w", err)
	}
	runs, err := meter.Int64Counter("pipeline.runs",
		metric.WithDescription("Finished runs by terminal status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.runs counter: %w", err)
	}
	active, err := meter.Int64UpDownCounter("pipeline.runs.active",
		metric.WithDescription("Runs currently executing"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.runs.active counter: %w", err)
	}
	duration, err := meter.Float64Histogram("pipeline.run.duration",
		metric.WithDescription("Run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.run.duration histogram: %w", err)
	}
	pauses, err := meter.Int64Counter("pipeline.backpressure.pauses",
		metric.WithDescription("Times a link paused its producer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.backpressure.pauses counter: %w", err)
	}
	return &Metrics{chunks: chunks, runs: runs, active: active, duration: duration, pauses: pauses}, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// globalMetrics returns instruments on the global meter provider, which
// forwards to whatever provider observability.Setup installs later.
func globalMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(observability.Meter())
		if err == nil {
			defaultMetrics = m
		}
	})
	return defaultMetrics
}

func (m *Metrics) runStarted(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1, metric.WithAttributes(attribute.String("pipeline", name)))
}

func (m *Metrics) chunk(ctx context.Context, name, stage string) {
	if m == nil {
		return
	}
	m.chunks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pipeline", name),
		attribute.String("stage", stage),
	))
}

func (m *Metrics) runFinished(ctx context.Context, name string, res Result) {
	if m == nil {
		return
	}
	pipelineAttr := attribute.String("pipeline", name)
	m.active.Add(ctx, -1, metric.WithAttributes(pipelineAttr))
	m.runs.Add(ctx, 1, metric.WithAttributes(pipelineAttr, attribute.String("status", res.Status.String())))
	m.duration.Record(ctx, res.Duration.Seconds(), metric.WithAttributes(pipelineAttr))

	var pauses int
	for _, l := range res.Links {
		pauses += l.Pauses
	}
	if pauses > 0 {
		m.pauses.Add(ctx, int64(pauses), metric.WithAttributes(pipelineAttr))
	}
}
