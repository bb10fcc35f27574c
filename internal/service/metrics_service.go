package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer and sheet actions.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	sheetActions     *prometheus.CounterVec
	calculations     prometheus.Counter
	validEntries     prometheus.Counter
	invalidEntries   prometheus.Counter
	lastRowBlocked   prometheus.Counter
	activeSheets     prometheus.Gauge
	exportsGenerated *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
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

	sheetActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gradesheet_actions_total",
		Help: "Sheet actions applied, by action",
	}, []string{"action"})

	calculations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gradesheet_calculations_total",
		Help: "Statistics passes computed",
	})

	validEntries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gradesheet_valid_entries_total",
		Help: "Grades accepted across all calculations",
	})

	invalidEntries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gradesheet_invalid_entries_total",
		Help: "Grades rejected across all calculations",
	})

	lastRowBlocked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gradesheet_last_row_blocked_total",
		Help: "Attempts to remove the last discipline",
	})

	activeSheets := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gradesheet_sheets_active",
		Help: "Sheets currently stored",
	})

	exportsGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gradesheet_exports_total",
		Help: "Sheet exports rendered, by format",
	}, []string{"format"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sheetActions, calculations, validEntries, invalidEntries, lastRowBlocked, activeSheets, exportsGenerated, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		sheetActions:     sheetActions,
		calculations:     calculations,
		validEntries:     validEntries,
		invalidEntries:   invalidEntries,
		lastRowBlocked:   lastRowBlocked,
		activeSheets:     activeSheets,
		exportsGenerated: exportsGenerated,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSheetAction counts a successfully applied sheet action.
func (m *MetricsService) RecordSheetAction(action string) {
	if m == nil {
		return
	}
	m.sheetActions.WithLabelValues(action).Inc()
}

// RecordCalculation tracks the outcome of a statistics pass.
func (m *MetricsService) RecordCalculation(valid, invalid int) {
	if m == nil {
		return
	}
	m.calculations.Inc()
	m.validEntries.Add(float64(valid))
	m.invalidEntries.Add(float64(invalid))
}

// RecordLastRowBlocked counts refused removals of the last row.
func (m *MetricsService) RecordLastRowBlocked() {
	if m == nil {
		return
	}
	m.lastRowBlocked.Inc()
}

// SetActiveSheets updates the stored sheet gauge.
func (m *MetricsService) SetActiveSheets(n int) {
	if m == nil {
		return
	}
	m.activeSheets.Set(float64(n))
}

// RecordExport counts a rendered export.
func (m *MetricsService) RecordExport(format string) {
	if m == nil {
		return
	}
	m.exportsGenerated.WithLabelValues(format).Inc()
}
