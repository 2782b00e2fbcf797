package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/critter-hpc/critter/pathvec"
	"github.com/critter-hpc/critter/record"
)

// OtelStream is the richer §6 visualisation-stream backend
// (SPEC_FULL.md §10.3): each completed iteration becomes a root span
// carrying the job-wide critical-path totals, with one child-shaped span
// per symbol carrying that symbol's inclusive/exclusive breakdown,
// exportable to any OTLP collector.
type OtelStream struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewOtelStream dials the OTLP endpoint configured via the standard
// OTEL_EXPORTER_OTLP_* environment variables (otlptracegrpc.New's
// default behavior) and installs a batching span processor.
func NewOtelStream(ctx context.Context, serviceName string) (*OtelStream, error) {
	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: otlptracegrpc exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)
	return &OtelStream{
		tracer:   tp.Tracer(serviceName),
		shutdown: tp.Shutdown,
	}, nil
}

// Write implements record.Stream.
func (s *OtelStream) Write(n *record.Node) error {
	ctx := context.Background()

	_, root := s.tracer.Start(ctx, "critter.iteration", trace.WithAttributes(
		attribute.String("session_id", n.SessionID),
		attribute.Int("iteration", n.Iteration),
		attribute.Float64("path.runtime", n.PathTotals[pathvec.RunTime]),
		attribute.Float64("path.bytes", n.PathTotals[pathvec.Bytes]),
		attribute.Float64("path.comm_time", n.PathTotals[pathvec.CommTime]),
		attribute.Float64("path.idle_time", n.PathTotals[pathvec.IdleTime]),
		attribute.Float64("volumetric.runtime", n.VolTotals[pathvec.RunTime]),
		attribute.Float64("volumetric.bytes", n.VolTotals[pathvec.Bytes]),
	))
	root.End()

	for name, acc := range n.Symbols {
		_, span := s.tracer.Start(ctx, name, trace.WithAttributes(
			attribute.Int64("num_calls", acc.NumCalls),
			attribute.Float64("inclusive.runtime", acc.Inclusive[pathvec.RunTime]),
			attribute.Float64("exclusive.runtime", acc.Exclusive[pathvec.RunTime]),
			attribute.Float64("inclusive.comm_time", acc.Inclusive[pathvec.CommTime]),
			attribute.Float64("exclusive.comm_time", acc.Exclusive[pathvec.CommTime]),
		))
		span.End()
	}
	return nil
}

// Close implements record.Stream, flushing and shutting down the
// underlying TracerProvider.
func (s *OtelStream) Close() error {
	return s.shutdown(context.Background())
}

var _ record.Stream = (*OtelStream)(nil)
