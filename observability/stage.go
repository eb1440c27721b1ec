package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/yttext/errors"
)

// Stage status values recorded on spans and the stage histogram.
const (
	StageOK    = "ok"
	StageError = "error"
)

// Stage is a traced, timed pipeline step.
type Stage struct {
	name    string
	start   time.Time
	span    trace.Span
	metrics *Metrics
}

// StartStage opens a span named name and starts the stage clock.
func StartStage(ctx context.Context, metrics *Metrics, name string, attrs ...attribute.KeyValue) (context.Context, *Stage) {
	ctx, span := StartSpan(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Stage{
		name:    name,
		start:   time.Now(),
		span:    span,
		metrics: metrics,
	}
}

// End closes the span, recording err and its error code when non-nil,
// and returns the stage duration.
func (s *Stage) End(ctx context.Context, err error) time.Duration {
	d := time.Since(s.start)
	status := StageOK
	if err != nil {
		status = StageError
		s.span.RecordError(err)
		s.span.SetAttributes(attribute.String(AttrErrorCode, string(errors.CodeOf(err))))
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.SetAttributes(
		attribute.Int64(AttrDurationMs, d.Milliseconds()),
		attribute.String(AttrStatus, status),
	)
	s.span.End()
	s.metrics.RecordStage(ctx, s.name, status, d)
	return d
}
