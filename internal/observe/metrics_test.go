package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"aura.chunk_upload.duration", m.ChunkUploadDuration},
		{"aura.finalize.duration", m.FinalizeDuration},
	}
	for _, h := range histograms {
		h.h.Record(ctx, 0.123)
	}

	rm := collect(t, reader)
	for _, h := range histograms {
		if findMetric(rm, h.name) == nil {
			t.Errorf("metric %q was not recorded", h.name)
		}
	}
}

func TestRecordCollaboratorRequest_ErrorBumpsBothCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCollaboratorRequest(ctx, "bank", "balance", "ok")
	m.RecordCollaboratorRequest(ctx, "bank", "balance", "error")

	rm := collect(t, reader)

	requests := findMetric(rm, "aura.collaborator.requests")
	if requests == nil {
		t.Fatal("collaborator requests metric missing")
	}
	sum, ok := requests.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("requests data type = %T, want Sum[int64]", requests.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("requests total = %d, want 2", total)
	}

	errsMetric := findMetric(rm, "aura.collaborator.errors")
	if errsMetric == nil {
		t.Fatal("collaborator errors metric missing")
	}
	errSum, ok := errsMetric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("errors data type = %T, want Sum[int64]", errsMetric.Data)
	}
	var errTotal int64
	for _, dp := range errSum.DataPoints {
		errTotal += dp.Value
	}
	if errTotal != 1 {
		t.Errorf("errors total = %d, want 1", errTotal)
	}
}

func TestRecordIntentResolutionAndTransferOutcome(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordIntentResolution(ctx, "classification")
	m.RecordTransferOutcome(ctx, "completed")

	rm := collect(t, reader)
	if findMetric(rm, "aura.intent.resolutions") == nil {
		t.Error("intent resolutions metric missing")
	}
	if findMetric(rm, "aura.transfer.outcomes") == nil {
		t.Error("transfer outcomes metric missing")
	}
}

func TestActiveRecordingsUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveRecordings.Add(ctx, 1)
	m.ActiveRecordings.Add(ctx, -1)

	rm := collect(t, reader)
	gauge := findMetric(rm, "aura.active_recordings")
	if gauge == nil {
		t.Fatal("active recordings metric missing")
	}
	sum, ok := gauge.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("gauge data type = %T, want Sum[int64]", gauge.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 0 {
		t.Errorf("active recordings = %d, want 0", total)
	}
}
