// Package observe provides application-wide observability primitives for
// Aura: OpenTelemetry metrics with a Prometheus exporter bridge so the
// standard /metrics endpoint keeps working.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Aura metrics.
const meterName = "github.com/aurafin/aura"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ChunkUploadDuration tracks per-chunk upload latency to the
	// recognition service.
	ChunkUploadDuration metric.Float64Histogram

	// FinalizeDuration tracks how long transcript finalization takes once
	// recording stops.
	FinalizeDuration metric.Float64Histogram

	// CollaboratorRequests counts calls to backing services. Use with
	// attributes:
	//   attribute.String("collaborator", ...), attribute.String("operation", ...), attribute.String("status", ...)
	CollaboratorRequests metric.Int64Counter

	// CollaboratorErrors counts failed calls to backing services. Use with
	// attributes:
	//   attribute.String("collaborator", ...), attribute.String("operation", ...)
	CollaboratorErrors metric.Int64Counter

	// IntentResolutions counts resolved utterances by winning strategy.
	// Use with attribute:
	//   attribute.String("strategy", ...)
	IntentResolutions metric.Int64Counter

	// TransferOutcomes counts transfer attempts by final outcome
	// (completed, declined, rejected, cancelled, failed).
	TransferOutcomes metric.Int64Counter

	// ActiveRecordings tracks the number of capture sessions currently
	// streaming audio.
	ActiveRecordings metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// chunk uploads and finalization round-trips.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ChunkUploadDuration, err = m.Float64Histogram("aura.chunk_upload.duration",
		metric.WithDescription("Latency of individual audio chunk uploads."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FinalizeDuration, err = m.Float64Histogram("aura.finalize.duration",
		metric.WithDescription("Latency of transcript finalization after recording stops."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.CollaboratorRequests, err = m.Int64Counter("aura.collaborator.requests",
		metric.WithDescription("Total collaborator requests by collaborator, operation, and status."),
	); err != nil {
		return nil, err
	}
	if met.CollaboratorErrors, err = m.Int64Counter("aura.collaborator.errors",
		metric.WithDescription("Total collaborator errors by collaborator and operation."),
	); err != nil {
		return nil, err
	}
	if met.IntentResolutions, err = m.Int64Counter("aura.intent.resolutions",
		metric.WithDescription("Total resolved utterances by winning strategy."),
	); err != nil {
		return nil, err
	}
	if met.TransferOutcomes, err = m.Int64Counter("aura.transfer.outcomes",
		metric.WithDescription("Total transfer attempts by final outcome."),
	); err != nil {
		return nil, err
	}

	if met.ActiveRecordings, err = m.Int64UpDownCounter("aura.active_recordings",
		metric.WithDescription("Number of capture sessions currently streaming audio."),
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

// RecordCollaboratorRequest records a collaborator request counter increment
// with the standard attribute set, bumping the error counter as well when the
// status is not "ok".
func (m *Metrics) RecordCollaboratorRequest(ctx context.Context, collaborator, operation, status string) {
	m.CollaboratorRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("collaborator", collaborator),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
	if status != "ok" {
		m.CollaboratorErrors.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("collaborator", collaborator),
				attribute.String("operation", operation),
			),
		)
	}
}

// RecordIntentResolution records which strategy produced the accepted
// interpretation of an utterance.
func (m *Metrics) RecordIntentResolution(ctx context.Context, strategy string) {
	m.IntentResolutions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("strategy", strategy)),
	)
}

// RecordTransferOutcome records the terminal outcome of a transfer attempt.
func (m *Metrics) RecordTransferOutcome(ctx context.Context, outcome string) {
	m.TransferOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
