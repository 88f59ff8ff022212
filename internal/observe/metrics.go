// Package observe provides application-wide observability primitives for
// Polyvox: OpenTelemetry metrics and the SDK provider setup.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Polyvox metrics.
const meterName = "github.com/polyvox/polyvox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// RecognitionDuration tracks speech recognition latency per window.
	RecognitionDuration metric.Float64Histogram

	// TranslationDuration tracks translation latency per target language.
	TranslationDuration metric.Float64Histogram

	// --- Counters ---

	// TranscriptsEmitted counts finalized transcripts by reconciliation
	// outcome. Use with attribute: attribute.String("decision", ...)
	TranscriptsEmitted metric.Int64Counter

	// QueueDrops counts units dropped on full stage queues. Use with
	// attribute: attribute.String("stage", ...)
	QueueDrops metric.Int64Counter

	// EventsPublished counts broadcast events by type. Use with attribute:
	//   attribute.String("event_type", ...)
	EventsPublished metric.Int64Counter

	// StageErrors counts non-fatal stage failures. Use with attribute:
	//   attribute.String("stage", ...)
	StageErrors metric.Int64Counter

	// --- Gauges ---

	// Subscribers tracks the number of registered event subscribers.
	Subscribers metric.Int64UpDownCounter

	// AudioLevel records the most recent RMS audio level as a gauge.
	AudioLevel metric.Float64Gauge
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for recognition and translation latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RecognitionDuration, err = m.Float64Histogram("polyvox.recognition.duration",
		metric.WithDescription("Latency of speech recognition per audio window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslationDuration, err = m.Float64Histogram("polyvox.translation.duration",
		metric.WithDescription("Latency of translation per target language."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TranscriptsEmitted, err = m.Int64Counter("polyvox.transcripts.emitted",
		metric.WithDescription("Total finalized transcripts by reconciliation decision."),
	); err != nil {
		return nil, err
	}
	if met.QueueDrops, err = m.Int64Counter("polyvox.queue.drops",
		metric.WithDescription("Total units dropped on full stage queues, by stage."),
	); err != nil {
		return nil, err
	}
	if met.EventsPublished, err = m.Int64Counter("polyvox.events.published",
		metric.WithDescription("Total broadcast events by type."),
	); err != nil {
		return nil, err
	}
	if met.StageErrors, err = m.Int64Counter("polyvox.stage.errors",
		metric.WithDescription("Total non-fatal stage failures, by stage."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.Subscribers, err = m.Int64UpDownCounter("polyvox.subscribers",
		metric.WithDescription("Number of registered event subscribers."),
	); err != nil {
		return nil, err
	}
	if met.AudioLevel, err = m.Float64Gauge("polyvox.audio.level",
		metric.WithDescription("Most recent RMS audio level."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordRecognition records one recognition call's latency and status.
func (m *Metrics) RecordRecognition(ctx context.Context, seconds float64, status string) {
	m.RecognitionDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordTranslation records one per-target translation call's latency.
func (m *Metrics) RecordTranslation(ctx context.Context, seconds float64, target, status string) {
	m.TranslationDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("target", target),
			attribute.String("status", status),
		),
	)
}

// RecordQueueDrop records a unit dropped on a full stage queue.
func (m *Metrics) RecordQueueDrop(ctx context.Context, stage string) {
	m.QueueDrops.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordTranscript records a finalized transcript by reconciliation decision.
func (m *Metrics) RecordTranscript(ctx context.Context, decision string) {
	m.TranscriptsEmitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("decision", decision)),
	)
}

// RecordEvent records a published broadcast event.
func (m *Metrics) RecordEvent(ctx context.Context, eventType string) {
	m.EventsPublished.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event_type", eventType)),
	)
}

// RecordStageError records a non-fatal stage failure.
func (m *Metrics) RecordStageError(ctx context.Context, stage string) {
	m.StageErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}
