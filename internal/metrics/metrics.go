package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioextract_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audioextract_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7 minutes
		},
		[]string{"method", "endpoint"},
	)

	// Extraction Metrics
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioextract_extractions_total",
			Help: "Total number of extraction requests by mode, format and outcome",
		},
		[]string{"mode", "format", "outcome"},
	)

	ToolRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audioextract_tool_run_duration_seconds",
			Help:    "Duration of yt-dlp subprocess runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17 minutes
		},
		[]string{"mode"},
	)

	ToolRunsInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audioextract_tool_runs_in_progress",
			Help: "Number of yt-dlp subprocesses currently running",
		},
		[]string{"mode"},
	)

	OutputSizeBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audioextract_output_size_bytes",
			Help:    "Size of produced audio files in bytes",
			Buckets: prometheus.ExponentialBuckets(256*1024, 2, 12), // 256KB to 512MB
		},
		[]string{"format"},
	)

	// Workspace Metrics
	WorkspaceCleanupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audioextract_workspace_cleanup_failures_total",
			Help: "Total number of scratch workspaces that could not be fully removed",
		},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioextract_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audioextract_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioextract_storage_bytes_transferred_total",
			Help: "Total bytes transferred to storage",
		},
		[]string{"operation"},
	)

	// Rate limit Metrics
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioextract_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"backend"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audioextract_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordExtraction records a finished info or download request
func RecordExtraction(mode, format, outcome string) {
	ExtractionsTotal.WithLabelValues(mode, format, outcome).Inc()
}

// ToolRunStarted marks a subprocess as running and returns a func to record its end
func ToolRunStarted(mode string) func(duration float64) {
	ToolRunsInProgress.WithLabelValues(mode).Inc()
	return func(duration float64) {
		ToolRunsInProgress.WithLabelValues(mode).Dec()
		ToolRunDuration.WithLabelValues(mode).Observe(duration)
	}
}

// RecordOutput records the size of a produced audio file
func RecordOutput(format string, size int64) {
	OutputSizeBytes.WithLabelValues(format).Observe(float64(size))
}

// RecordCleanupFailure records a workspace that was not fully removed
func RecordCleanupFailure() {
	WorkspaceCleanupFailuresTotal.Inc()
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordRateLimited records a rejected request
func RecordRateLimited(backend string) {
	RateLimitedTotal.WithLabelValues(backend).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
