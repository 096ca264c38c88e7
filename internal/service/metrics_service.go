package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/escolare/portal-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the import pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	importRuns      *prometheus.CounterVec
	importStudents  *prometheus.CounterVec
	guardiansMerged prometheus.Counter
}

// NewMetricsService registers the collectors.
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

	importRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_runs_total",
		Help: "Completed import runs by final status",
	}, []string{"status"})

	importStudents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_students_total",
		Help: "Student groups handled by import runs",
	}, []string{"result"})

	guardiansMerged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "import_guardians_merged_total",
		Help: "Guardian role-set merges performed during imports",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, importRuns, importStudents, guardiansMerged, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		importRuns:      importRuns,
		importStudents:  importStudents,
		guardiansMerged: guardiansMerged,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordImportRun counts a finished run by status.
func (s *MetricsService) RecordImportRun(status models.ImportStatus) {
	s.importRuns.WithLabelValues(string(status)).Inc()
}

// RecordImportStudents counts handled student groups.
func (s *MetricsService) RecordImportStudents(processed, failed int) {
	if processed > 0 {
		s.importStudents.WithLabelValues("processed").Add(float64(processed))
	}
	if failed > 0 {
		s.importStudents.WithLabelValues("failed").Add(float64(failed))
	}
}

// RecordGuardianMerges counts role-set merges.
func (s *MetricsService) RecordGuardianMerges(count int) {
	if count > 0 {
		s.guardiansMerged.Add(float64(count))
	}
}
