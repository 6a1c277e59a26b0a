// Package metrics defines Prometheus instrumentation for the emotion
// analysis pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the emotion audio service.
type Metrics struct {
	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsEnded   prometheus.Counter
	SessionActive   prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Chunk recorder metrics
	ChunksRecorded  prometheus.Counter
	ChunksDiscarded prometheus.Counter
	ChunkSize       prometheus.Histogram
	ChunkDuration   prometheus.Histogram

	// Analysis queue metrics
	QueueDepth   prometheus.Gauge
	QueueFlushes prometheus.Counter
	LateResults  prometheus.Counter

	// Analysis backend metrics
	AnalysisRequests  prometheus.Counter
	AnalysisSuccesses prometheus.Counter
	AnalysisFailures  prometheus.Counter
	AnalysisDuration  prometheus.Histogram
	EmotionsDetected  *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emotion_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionsEnded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emotion_sessions_ended_total",
			Help: "Total number of recording sessions ended",
		}),
		SessionActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "emotion_session_active",
			Help: "Whether a recording session is currently active (0 or 1)",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "emotion_session_duration_seconds",
			Help:    "Duration of recording sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(30, 2, 10), // 30s to ~4 hours
		}),

		ChunksRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emotion_chunks_recorded_total",
			Help: "Total number of audio chunks emitted by the recorder",
		}),
		ChunksDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emotion_chunks_discarded_total",
			Help: "Total number of chunks discarded below the minimum size",
		}),
		ChunkSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "emotion_chunk_size_bytes",
			Help:    "Size of emitted audio chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(8192, 2, 10), // 8KB to ~8MB
		}),
		ChunkDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "emotion_chunk_duration_seconds",
			Help:    "Audio duration of emitted chunks",
			Buckets: prometheus.LinearBuckets(0, 5, 8), // 0 to 35s
		}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "emotion_analysis_queue_depth",
			Help: "Current number of chunks waiting for analysis",
		}),
		QueueFlushes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emotion_analysis_queue_flushes_total",
			Help: "Total number of backlog flushes triggered by sustained failures",
		}),
		LateResults: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emotion_late_results_total",
			Help: "Total number of analysis results discarded after session end",
		}),

		AnalysisRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emotion_analysis_requests_total",
			Help: "Total number of analysis requests sent to the backend",
		}),
		AnalysisSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emotion_analysis_successes_total",
			Help: "Total number of successful analysis requests",
		}),
		AnalysisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "emotion_analysis_failures_total",
			Help: "Total number of failed analysis requests",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "emotion_analysis_duration_seconds",
			Help:    "Duration of analysis requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		EmotionsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "emotion_detected_total",
			Help: "Total number of detected emotions by label",
		}, []string{"emotion"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "emotion_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "emotion_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "emotion_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordSessionStarted marks a session start.
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
	m.SessionActive.Set(1)
}

// RecordSessionEnded marks a session end and records its duration.
func (m *Metrics) RecordSessionEnded(durationSeconds float64) {
	m.SessionsEnded.Inc()
	m.SessionActive.Set(0)
	m.SessionDuration.Observe(durationSeconds)
}

// RecordChunk records an emitted chunk's size and audio duration.
func (m *Metrics) RecordChunk(sizeBytes int, durationSeconds float64) {
	m.ChunksRecorded.Inc()
	m.ChunkSize.Observe(float64(sizeBytes))
	m.ChunkDuration.Observe(durationSeconds)
}

// RecordChunkDiscarded counts a chunk dropped below the minimum size.
func (m *Metrics) RecordChunkDiscarded() {
	m.ChunksDiscarded.Inc()
}

// SetQueueDepth sets the current analysis queue depth.
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// RecordQueueFlush counts a backlog flush.
func (m *Metrics) RecordQueueFlush() {
	m.QueueFlushes.Inc()
}

// RecordLateResult counts a result discarded because its session ended.
func (m *Metrics) RecordLateResult() {
	m.LateResults.Inc()
}

// RecordAnalysisSuccess records a completed analysis request.
func (m *Metrics) RecordAnalysisSuccess(durationSeconds float64) {
	m.AnalysisRequests.Inc()
	m.AnalysisSuccesses.Inc()
	m.AnalysisDuration.Observe(durationSeconds)
}

// RecordAnalysisFailure records a failed analysis request.
func (m *Metrics) RecordAnalysisFailure() {
	m.AnalysisRequests.Inc()
	m.AnalysisFailures.Inc()
}

// RecordEmotion counts a detected emotion label.
func (m *Metrics) RecordEmotion(emotion string) {
	m.EmotionsDetected.WithLabelValues(emotion).Inc()
}

// RecordHTTPRequest records an HTTP API request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP API error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
