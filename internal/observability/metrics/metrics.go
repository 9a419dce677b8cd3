// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speech_translation_relay"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Recognizer metrics
	RecognitionEvents  *prometheus.CounterVec
	RecognizerRestarts prometheus.Counter
	RecognizerErrors   *prometheus.CounterVec

	// Segmenter metrics
	Flushes            *prometheus.CounterVec
	SegmentsEmitted    prometheus.Counter
	SegmentsSuppressed *prometheus.CounterVec

	// Translation metrics
	TranslationRequests prometheus.Counter
	TranslationRetries  prometheus.Counter
	TranslationFailures prometheus.Counter
	TranslationSkipped  prometheus.Counter
	TranslationLatency  prometheus.Histogram

	// Playback metrics
	PlaybackQueueDepth prometheus.Gauge
	PlaybackReleased   prometheus.Counter
	PlaybackErrors     prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of translation sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active translation sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of translation sessions in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),

		RecognitionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_events_total",
			Help:      "Total number of recognition events received",
		}, []string{"type"}),
		RecognizerRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognizer_restarts_total",
			Help:      "Total number of recognizer stream restarts after end of stream",
		}),
		RecognizerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognizer_errors_total",
			Help:      "Total number of recognizer errors",
		}, []string{"error_type"}),

		Flushes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_flushes_total",
			Help:      "Total number of segment flush triggers",
		}, []string{"trigger"}),
		SegmentsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_emitted_total",
			Help:      "Total number of sequence-numbered segments emitted",
		}),
		SegmentsSuppressed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_suppressed_total",
			Help:      "Total number of flushes that emitted no segment",
		}, []string{"reason"}),

		TranslationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_requests_total",
			Help:      "Total number of segments submitted for translation",
		}),
		TranslationRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_retries_total",
			Help:      "Total number of translation request retries",
		}),
		TranslationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_failures_total",
			Help:      "Total number of segments dropped after retry exhaustion",
		}),
		TranslationSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_skipped_total",
			Help:      "Total number of segments skipped by the minimum length guard",
		}),
		TranslationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_latency_seconds",
			Help:      "End-to-end translation latency per segment in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		PlaybackQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_queue_depth",
			Help:      "Number of translation results waiting for ordered release",
		}),
		PlaybackReleased: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_released_total",
			Help:      "Total number of translation results released to the sink",
		}),
		PlaybackErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_errors_total",
			Help:      "Total number of sink errors during playback",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordRecognitionEvent records an interim or final recognition event.
func (m *Metrics) RecordRecognitionEvent(final bool) {
	if final {
		m.RecognitionEvents.WithLabelValues("final").Inc()
	} else {
		m.RecognitionEvents.WithLabelValues("interim").Inc()
	}
}

// RecordRecognizerRestart records a recognizer stream restart.
func (m *Metrics) RecordRecognizerRestart() {
	m.RecognizerRestarts.Inc()
}

// RecordRecognizerError records a recognizer error by type.
func (m *Metrics) RecordRecognizerError(errorType string) {
	m.RecognizerErrors.WithLabelValues(errorType).Inc()
}

// RecordFlush records a flush trigger firing.
func (m *Metrics) RecordFlush(trigger string) {
	m.Flushes.WithLabelValues(trigger).Inc()
}

// RecordSegmentEmitted records a segment being emitted with a sequence number.
func (m *Metrics) RecordSegmentEmitted() {
	m.SegmentsEmitted.Inc()
}

// RecordSegmentSuppressed records a flush that emitted nothing.
func (m *Metrics) RecordSegmentSuppressed(reason string) {
	m.SegmentsSuppressed.WithLabelValues(reason).Inc()
}

// RecordTranslation records a completed translation attempt cycle.
func (m *Metrics) RecordTranslation(err error, latencySeconds float64) {
	m.TranslationRequests.Inc()
	m.TranslationLatency.Observe(latencySeconds)
	if err != nil {
		m.TranslationFailures.Inc()
	}
}

// RecordTranslationRetry records one delayed retry.
func (m *Metrics) RecordTranslationRetry() {
	m.TranslationRetries.Inc()
}

// RecordTranslationSkipped records a segment skipped by the length guard.
func (m *Metrics) RecordTranslationSkipped() {
	m.TranslationSkipped.Inc()
}

// RecordPlaybackEnqueued records a result entering the pending queue.
func (m *Metrics) RecordPlaybackEnqueued() {
	m.PlaybackQueueDepth.Inc()
}

// RecordPlaybackReleased records a result released to the sink.
func (m *Metrics) RecordPlaybackReleased(err error) {
	m.PlaybackQueueDepth.Dec()
	m.PlaybackReleased.Inc()
	if err != nil {
		m.PlaybackErrors.Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
