package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Save outcomes recorded by MetricsService.RecordSave.
const (
	SaveOutcomeFastForward = "fast_forward"
	SaveOutcomeMerged      = "merged"
	SaveOutcomeNoop        = "noop"
	SaveOutcomeFailed      = "failed"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	saves           *prometheus.CounterVec
	mergedEvents    *prometheus.CounterVec
	storageDuration *prometheus.HistogramVec
	storageFailures *prometheus.CounterVec
	calendars       prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	saves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_saves_total",
		Help: "Calendar saves by outcome",
	}, []string{"outcome"})

	mergedEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_merge_events_total",
		Help: "Events resolved by three-way merges, by resolution",
	}, []string{"resolution"})

	storageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calendar_storage_duration_seconds",
		Help:    "Duration of durable calendar storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	storageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_storage_failures_total",
		Help: "Failed durable calendar storage operations",
	}, []string{"operation"})

	calendars := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "calendars_loaded",
		Help: "Number of calendars held in memory",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, saves, mergedEvents, storageDuration, storageFailures, calendars, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		saves:           saves,
		mergedEvents:    mergedEvents,
		storageDuration: storageDuration,
		storageFailures: storageFailures,
		calendars:       calendars,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSave counts a save by outcome.
func (m *MetricsService) RecordSave(outcome string) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(outcome).Inc()
}

// RecordMerge counts how events were resolved by a merge.
func (m *MetricsService) RecordMerge(adopted, removed int) {
	if m == nil {
		return
	}
	m.mergedEvents.WithLabelValues("adopted").Add(float64(adopted))
	m.mergedEvents.WithLabelValues("removed").Add(float64(removed))
}

// ObserveStorage records the latency of a durable operation and counts it
// as failed when err is non-nil.
func (m *MetricsService) ObserveStorage(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.storageFailures.WithLabelValues(operation).Inc()
	}
}

// SetCalendarCount updates the loaded calendars gauge.
func (m *MetricsService) SetCalendarCount(n int) {
	if m == nil {
		return
	}
	m.calendars.Set(float64(n))
}
