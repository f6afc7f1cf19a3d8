package telemetry

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrMethod     = attribute.Key("http.request.method")
	attrPath       = attribute.Key("url.path")
	attrStatus     = attribute.Key("http.response.status_code")
	attrResource   = attribute.Key("school.resource")
	attrErrorKind  = attribute.Key("school.error.kind")
	attrRequestErr = attribute.Key("school.request.error")
)

type metrics struct {
	requests      metric.Int64Counter
	latency       metric.Float64Histogram
	errors        metric.Float64Histogram
	invalidations metric.Int64Counter
}

// RequestData captures the metadata recorded for each backend call.
type RequestData struct {
	Method   string
	Path     string
	Resource string
	Status   int
	// ErrorKind is the taxonomy name ("timeout", "server", ...) when the
	// call failed.
	ErrorKind string
	Duration  time.Duration
	Error     error
}

// InvalidationData captures a cross-store invalidation delivery.
type InvalidationData struct {
	Resource    string
	Subscribers int
}

func newMetrics(m meterProvider) (*metrics, error) {
	if m == nil {
		return &metrics{}, nil
	}
	requests, err := m.Int64Counter("school.client.requests.total", metric.WithDescription("Total number of backend calls issued by the client."))
	if err != nil {
		return nil, err
	}
	latency, err := m.Float64Histogram("school.client.latency.ms", metric.WithDescription("Backend call latency in milliseconds."), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	errorRate, err := m.Float64Histogram("school.client.errors.rate", metric.WithDescription("Per-call error indicator (0 or 1)."), metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}
	invalidations, err := m.Int64Counter("school.sync.invalidations.total", metric.WithDescription("Total number of cross-store invalidation deliveries."))
	if err != nil {
		return nil, err
	}
	return &metrics{
		requests:      requests,
		latency:       latency,
		errors:        errorRate,
		invalidations: invalidations,
	}, nil
}

func (m *metrics) RecordRequest(ctx context.Context, data RequestData) {
	if m == nil || m.requests == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, 6)
	if data.Method != "" {
		attrs = append(attrs, attrMethod.String(data.Method))
	}
	if data.Path != "" {
		attrs = append(attrs, attrPath.String(data.Path))
	}
	if data.Resource != "" {
		attrs = append(attrs, attrResource.String(data.Resource))
	}
	if data.Status != 0 {
		attrs = append(attrs, attrStatus.Int(data.Status))
	}
	if kind := strings.TrimSpace(data.ErrorKind); kind != "" {
		attrs = append(attrs, attrErrorKind.String(kind))
	}
	errFlag := data.Error != nil
	attrs = append(attrs, attrRequestErr.Bool(errFlag))

	m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	if data.Duration > 0 && m.latency != nil {
		m.latency.Record(ctx, float64(data.Duration.Milliseconds()), metric.WithAttributes(attrs...))
	}
	if m.errors != nil {
		if errFlag {
			m.errors.Record(ctx, 1, metric.WithAttributes(attrs...))
		} else {
			m.errors.Record(ctx, 0, metric.WithAttributes(attrs...))
		}
	}
}

func (m *metrics) RecordInvalidation(ctx context.Context, data InvalidationData) {
	if m == nil || m.invalidations == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attrResource.String(strings.TrimSpace(data.Resource)),
		attribute.Int("school.sync.subscribers", data.Subscribers),
	}
	m.invalidations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// meterProvider is the subset of metric.Meter we rely on, which makes
// dependency injection straightforward in tests.
type meterProvider interface {
	Int64Counter(name string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error)
	Float64Histogram(name string, opts ...metric.Float64HistogramOption) (metric.Float64Histogram, error)
}
