package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/deps"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/markdown"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/storage"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/types"
)

const storageScopeName = "github.com/langadventurellc/trellis-mcp-sub003/storage"

// InstrumentedStorage wraps storage.Storage with OTel tracing and metrics.
// Every method gets a span and is counted in trellis.storage.* metrics.
// Use WrapStorage to create one; it returns the original store unchanged when
// telemetry is disabled.
type InstrumentedStorage struct {
	inner       storage.Storage
	tracer      trace.Tracer
	ops         metric.Int64Counter
	dur         metric.Float64Histogram
	errs        metric.Int64Counter
	objectGauge metric.Int64Gauge
}

// WrapStorage returns s decorated with OTel instrumentation.
// When telemetry is disabled, s is returned as-is.
func WrapStorage(s storage.Storage) storage.Storage {
	if !Enabled() {
		return s
	}
	m := Meter(storageScopeName)
	ops, _ := m.Int64Counter("trellis.storage.operations",
		metric.WithDescription("Total storage operations executed"),
	)
	dur, _ := m.Float64Histogram("trellis.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("trellis.storage.errors",
		metric.WithDescription("Total storage operation errors"),
	)
	objectGauge, _ := m.Int64Gauge("trellis.object.count",
		metric.WithDescription("Objects found by the last inventory scan"),
	)
	return &InstrumentedStorage{
		inner:       s,
		tracer:      Tracer(storageScopeName),
		ops:         ops,
		dur:         dur,
		errs:        errs,
		objectGauge: objectGauge,
	}
}

// op starts a span and records a metric for the named storage operation.
func (s *InstrumentedStorage) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("trellis.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "storage."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (s *InstrumentedStorage) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	s.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func objectAttrs(kind types.Kind, id string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("trellis.kind", string(kind)),
		attribute.String("trellis.object.id", id),
	}
}

func (s *InstrumentedStorage) Root() string { return s.inner.Root() }

func (s *InstrumentedStorage) GetObject(ctx context.Context, kind types.Kind, id string) (*markdown.Document, error) {
	attrs := objectAttrs(kind, id)
	ctx, span, t := s.op(ctx, "GetObject", attrs...)
	v, err := s.inner.GetObject(ctx, kind, id)
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) CreateObject(ctx context.Context, obj *types.Object, body string, extra map[string]any) (string, error) {
	var attrs []attribute.KeyValue
	if obj != nil {
		attrs = append(objectAttrs(obj.Kind, obj.ID), attribute.Bool("trellis.standalone", obj.IsStandalone()))
	}
	ctx, span, t := s.op(ctx, "CreateObject", attrs...)
	p, err := s.inner.CreateObject(ctx, obj, body, extra)
	s.done(ctx, span, t, err, attrs...)
	return p, err
}

func (s *InstrumentedStorage) UpdatePrerequisites(ctx context.Context, kind types.Kind, id string, prereqs []string) error {
	attrs := append(objectAttrs(kind, id), attribute.Int("trellis.prerequisite.count", len(prereqs)))
	ctx, span, t := s.op(ctx, "UpdatePrerequisites", attrs...)
	err := s.inner.UpdatePrerequisites(ctx, kind, id, prereqs)
	s.done(ctx, span, t, err, attrs...)
	return err
}

func (s *InstrumentedStorage) UpdateStatus(ctx context.Context, kind types.Kind, id string, status types.Status) (string, error) {
	attrs := append(objectAttrs(kind, id), attribute.String("trellis.status", string(status)))
	ctx, span, t := s.op(ctx, "UpdateStatus", attrs...)
	p, err := s.inner.UpdateStatus(ctx, kind, id, status)
	s.done(ctx, span, t, err, attrs...)
	return p, err
}

func (s *InstrumentedStorage) CompleteTask(ctx context.Context, id string) (string, error) {
	attrs := objectAttrs(types.KindTask, id)
	ctx, span, t := s.op(ctx, "CompleteTask", attrs...)
	p, err := s.inner.CompleteTask(ctx, id)
	s.done(ctx, span, t, err, attrs...)
	return p, err
}

func (s *InstrumentedStorage) ListChildren(ctx context.Context, kind types.Kind, id string) ([]types.ChildSummary, error) {
	attrs := objectAttrs(kind, id)
	ctx, span, t := s.op(ctx, "ListChildren", attrs...)
	v, err := s.inner.ListChildren(ctx, kind, id)
	if err == nil {
		span.SetAttributes(attribute.Int("trellis.result.count", len(v)))
	}
	s.done(ctx, span, t, err, attrs...)
	return v, err
}

func (s *InstrumentedStorage) Inventory(ctx context.Context) (*deps.Inventory, error) {
	ctx, span, t := s.op(ctx, "Inventory")
	v, err := s.inner.Inventory(ctx)
	s.done(ctx, span, t, err)
	if err == nil && v != nil {
		s.recordCounts(ctx, v)
	}
	return v, err
}

func (s *InstrumentedStorage) Validate(ctx context.Context) (*deps.Report, error) {
	ctx, span, t := s.op(ctx, "Validate")
	v, err := s.inner.Validate(ctx)
	if v != nil {
		span.SetAttributes(
			attribute.Int("trellis.result.count", v.Objects),
			attribute.Int("trellis.finding.count", len(v.Findings)),
		)
	}
	s.done(ctx, span, t, err)
	return v, err
}

// recordCounts records object counts as gauge snapshots, broken down by kind.
func (s *InstrumentedStorage) recordCounts(ctx context.Context, inv *deps.Inventory) {
	counts := make(map[types.Kind]int64, len(types.AllKinds))
	for _, obj := range inv.Objects {
		counts[obj.Kind]++
	}
	for _, k := range types.AllKinds {
		s.objectGauge.Record(ctx, counts[k], metric.WithAttributes(attribute.String("kind", string(k))))
	}
}
