package prometheus

import (
	"strconv"
	"time"
)

// Metrics holds every metric the engine records.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal    CounterVec
	HTTPRequestDuration  HistogramVec
	HTTPRequestsInFlight GaugeVec

	// Dissociation engine
	TransformsTotal           CounterVec
	TransformDuration         HistogramVec
	ReverseTransformRowsTotal CounterVec
	ReverseTransformDuration  HistogramVec
	RegistryCompounds         GaugeVec
	EquilibriumRecordsLoaded  CounterVec
	EquilibriumRecordsSkipped CounterVec

	// Infrastructure
	CacheRequestsTotal   CounterVec
	StoreDuration        HistogramVec
	EventsPublishedTotal CounterVec
	WorkerMessagesTotal  CounterVec
	ErrorsTotal          CounterVec
}

// Buckets in seconds.
var (
	DefaultHTTPDurationBuckets  = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	DefaultBatchDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}
	DefaultStoreDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewMetrics registers every metric on collector.
func NewMetrics(collector MetricsCollector) *Metrics {
	m := &Metrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total",
		"HTTP requests by route and status.", "method", "path", "status")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds",
		"HTTP request latency.", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPRequestsInFlight = collector.RegisterGauge("http_requests_in_flight",
		"HTTP requests currently being served.")

	m.TransformsTotal = collector.RegisterCounter("transforms_total",
		"Legendre transforms by outcome (ok, missing, error).", "outcome")
	m.TransformDuration = collector.RegisterHistogram("transform_duration_seconds",
		"Latency of a single compound transform.", DefaultHTTPDurationBuckets)
	m.ReverseTransformRowsTotal = collector.RegisterCounter("reverse_transform_rows_total",
		"Measured reactions reverse-transformed, by outcome (kept, excluded).", "outcome")
	m.ReverseTransformDuration = collector.RegisterHistogram("reverse_transform_duration_seconds",
		"Latency of a reverse-transform batch.", DefaultBatchDurationBuckets)
	m.RegistryCompounds = collector.RegisterGauge("registry_compounds",
		"Compounds cached in the dissociation registry.")
	m.EquilibriumRecordsLoaded = collector.RegisterCounter("equilibrium_records_loaded_total",
		"Equilibrium records applied to the registry, by source.", "source")
	m.EquilibriumRecordsSkipped = collector.RegisterCounter("equilibrium_records_skipped_total",
		"Equilibrium records skipped for malformed structures, by source.", "source")

	m.CacheRequestsTotal = collector.RegisterCounter("cache_requests_total",
		"Transform cache lookups by result (hit, miss).", "result")
	m.StoreDuration = collector.RegisterHistogram("store_operation_duration_seconds",
		"Row store latency by driver and operation.", DefaultStoreDurationBuckets, "driver", "operation")
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total",
		"Events published by topic and status.", "topic", "status")
	m.WorkerMessagesTotal = collector.RegisterCounter("worker_messages_total",
		"Reverse-transform requests handled by the worker, by status.", "status")
	m.ErrorsTotal = collector.RegisterCounter("errors_total",
		"Errors by component and code.", "component", "code")

	return m
}

// NewNopMetrics returns metrics that record nothing.
func NewNopMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal:         noopCounterVec{},
		HTTPRequestDuration:       noopHistogramVec{},
		HTTPRequestsInFlight:      noopGaugeVec{},
		TransformsTotal:           noopCounterVec{},
		TransformDuration:         noopHistogramVec{},
		ReverseTransformRowsTotal: noopCounterVec{},
		ReverseTransformDuration:  noopHistogramVec{},
		RegistryCompounds:         noopGaugeVec{},
		EquilibriumRecordsLoaded:  noopCounterVec{},
		EquilibriumRecordsSkipped: noopCounterVec{},
		CacheRequestsTotal:        noopCounterVec{},
		StoreDuration:             noopHistogramVec{},
		EventsPublishedTotal:      noopCounterVec{},
		WorkerMessagesTotal:       noopCounterVec{},
		ErrorsTotal:               noopCounterVec{},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordTransform records a transform outcome: "ok", "missing" or "error".
func (m *Metrics) RecordTransform(outcome string, d time.Duration) {
	m.TransformsTotal.WithLabelValues(outcome).Inc()
	m.TransformDuration.WithLabelValues().Observe(d.Seconds())
}

// StartReverseTransform starts timing a batch; stop the timer once it succeeds.
func (m *Metrics) StartReverseTransform() *Timer {
	return NewTimer(m.ReverseTransformDuration.WithLabelValues())
}

// RecordReverseTransform counts the rows of a finished batch.
func (m *Metrics) RecordReverseTransform(kept, excluded int) {
	m.ReverseTransformRowsTotal.WithLabelValues("kept").Add(float64(kept))
	m.ReverseTransformRowsTotal.WithLabelValues("excluded").Add(float64(excluded))
}

// TrackInFlight marks one request as being served and returns its release.
func (m *Metrics) TrackInFlight() func() {
	g := m.HTTPRequestsInFlight.WithLabelValues()
	g.Inc()
	return g.Dec
}

// RecordCacheAccess records a transform cache lookup.
func (m *Metrics) RecordCacheAccess(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordStoreOperation records a row store call and counts its failure.
func (m *Metrics) RecordStoreOperation(driver, op string, d time.Duration, err error) {
	m.StoreDuration.WithLabelValues(driver, op).Observe(d.Seconds())
	if err != nil {
		m.ErrorsTotal.WithLabelValues("store", op).Inc()
	}
}

// RecordEvent records a publish attempt.
func (m *Metrics) RecordEvent(topic string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublishedTotal.WithLabelValues(topic, status).Inc()
}

// RecordError counts an error by component and code.
func (m *Metrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
