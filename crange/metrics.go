package crange

// Observability, grounded on observability/stats.go + exporter.go's
// otel-meter-provider setup: a Recorder wraps the counters and
// histogram this collection emits, and NewRecorder wires the same
// exporter pair the teacher uses (prometheus for scrape, stdoutmetric
// for local debugging) plus the contrib runtime instrumentation so GC
// pause and goroutine counts sit next to collection metrics during the
// concurrency stress tests. A List built without WithMetrics uses
// NoOpRecorder, so metrics never gate correctness.

import (
	"context"
	"time"

	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/benz9527/crange"

// Recorder records the handful of signals this collection's own
// correctness story depends on being observable: how often find-and-
// lock had to restart, how often addIndex/delIndex exhausted their
// bounded CAS retries (a degrade, not a failure, but worth watching),
// how many nodes a reclaim sweep freed, and the distribution of window
// sizes Replace was called with.
type Recorder struct {
	lockRestarts   metric.Int64Counter
	indexExhausted metric.Int64Counter
	reclaimed      metric.Int64Counter
	windowSize     metric.Int64Histogram
}

func newRecorder(meter metric.Meter) (*Recorder, error) {
	lockRestarts, err := meter.Int64Counter(
		"crange.lock.restarts",
		metric.WithDescription("find-and-lock revalidation restarts"),
	)
	if err != nil {
		return nil, err
	}
	indexExhausted, err := meter.Int64Counter(
		"crange.index.cas_exhausted",
		metric.WithDescription("addIndex/delIndex bounded-retry exhaustion events"),
	)
	if err != nil {
		return nil, err
	}
	reclaimed, err := meter.Int64Counter(
		"crange.epoch.reclaimed",
		metric.WithDescription("nodes freed by an epoch sweep"),
	)
	if err != nil {
		return nil, err
	}
	windowSize, err := meter.Int64Histogram(
		"crange.window.size",
		metric.WithDescription("node count of the overlap chain at Replace time"),
	)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		lockRestarts:   lockRestarts,
		indexExhausted: indexExhausted,
		reclaimed:      reclaimed,
		windowSize:     windowSize,
	}, nil
}

// NoOpRecorder returns a Recorder backed by the global no-op meter
// provider, used whenever a caller doesn't supply one via WithMetrics.
func NoOpRecorder() *Recorder {
	rec, _ := newRecorder(otel.GetMeterProvider().Meter(meterName))
	return rec
}

// NewPrometheusRecorder wires a Prometheus-scrapeable meter provider —
// the teacher's "product environment" exporter in
// observability/exporter.go's newPrometheusMetricsExporter — plus Go
// runtime metrics, and returns both the Recorder and a shutdown func.
func NewPrometheusRecorder() (*Recorder, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	if err := otelruntime.Start(otelruntime.WithMeterProvider(mp)); err != nil {
		return nil, nil, err
	}
	rec, err := newRecorder(mp.Meter(meterName))
	if err != nil {
		return nil, nil, err
	}
	return rec, mp.Shutdown, nil
}

// NewConsoleRecorder wires the teacher's "test/dev environment"
// exporter — stdoutmetric on a periodic reader — for local debugging.
func NewConsoleRecorder(interval, timeout time.Duration) (*Recorder, func(context.Context) error, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(interval),
		sdkmetric.WithTimeout(timeout),
	)))
	rec, err := newRecorder(mp.Meter(meterName))
	if err != nil {
		return nil, nil, err
	}
	return rec, mp.Shutdown, nil
}

func (r *Recorder) RecordLockRestart() {
	if r == nil {
		return
	}
	r.lockRestarts.Add(context.Background(), 1)
}

func (r *Recorder) RecordIndexExhausted() {
	if r == nil {
		return
	}
	r.indexExhausted.Add(context.Background(), 1)
}

func (r *Recorder) RecordReclaimed(n int) {
	if r == nil || n == 0 {
		return
	}
	r.reclaimed.Add(context.Background(), int64(n))
}

func (r *Recorder) RecordWindowSize(n int) {
	if r == nil {
		return
	}
	r.windowSize.Record(context.Background(), int64(n))
}
