// Package metrics registers the Prometheus instruments for the streaming
// pipeline and serves them over the shared HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every instrument the gateway exports.
type Metrics struct {
	// Audio pipeline
	FramesCaptured   prometheus.Counter
	BuffersFlushed   *prometheus.CounterVec
	AudioBytes       prometheus.Counter
	CompressionRatio prometheus.Histogram
	BufferDuration   prometheus.Histogram

	// Sessions
	ActiveSessions  prometheus.Gauge
	SessionsOpened  prometheus.Counter
	SessionsClosed  prometheus.Counter
	SessionDuration prometheus.Histogram

	// Recognition
	RecognizingEvents prometheus.Counter
	RecognizedEvents  prometheus.Counter
	EngineFailures    prometheus.Counter

	// Protocol and transport
	ProtocolErrors  prometheus.Counter
	CodecErrors     *prometheus.CounterVec
	OutboundDropped prometheus.Counter
	PingsSent       prometheus.Counter
	Reconnects      prometheus.Counter
}

// New registers all instruments against reg. Pass a fresh registry in tests
// to avoid duplicate-registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_frames_captured_total",
			Help: "Total number of audio frames pushed into the buffering stage",
		}),
		BuffersFlushed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "speech_buffers_flushed_total",
			Help: "Total number of buffer flushes by trigger",
		}, []string{"reason"}),
		AudioBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_audio_bytes_total",
			Help: "Total PCM bytes accepted for recognition",
		}),
		CompressionRatio: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "speech_compression_ratio",
			Help:    "Compressed over original payload size per buffer",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		BufferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "speech_buffer_duration_seconds",
			Help:    "Audio duration of flushed buffers",
			Buckets: prometheus.LinearBuckets(0.05, 0.05, 12),
		}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "speech_active_sessions",
			Help: "Current number of open streaming sessions",
		}),
		SessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_sessions_opened_total",
			Help: "Total number of streaming sessions opened",
		}),
		SessionsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_sessions_closed_total",
			Help: "Total number of streaming sessions closed",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "speech_session_duration_seconds",
			Help:    "Lifetime of streaming sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),

		RecognizingEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_recognizing_events_total",
			Help: "Total interim transcript events delivered",
		}),
		RecognizedEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_recognized_events_total",
			Help: "Total final transcript events delivered",
		}),
		EngineFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_engine_failures_total",
			Help: "Total recognition engine failures",
		}),

		ProtocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_protocol_errors_total",
			Help: "Total malformed or out-of-state messages rejected",
		}),
		CodecErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "speech_codec_errors_total",
			Help: "Total audio payload decode failures by kind",
		}, []string{"kind"}),
		OutboundDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_outbound_dropped_total",
			Help: "Total outbound frames dropped because the session buffer was full",
		}),
		PingsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_pings_sent_total",
			Help: "Total keepalive pings sent",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "speech_reconnects_total",
			Help: "Total client reconnect attempts",
		}),
	}
}

func (m *Metrics) RecordFlush(reason string, durationSeconds, ratio float64, pcmBytes int) {
	m.BuffersFlushed.WithLabelValues(reason).Inc()
	m.BufferDuration.Observe(durationSeconds)
	m.CompressionRatio.Observe(ratio)
	m.AudioBytes.Add(float64(pcmBytes))
}

func (m *Metrics) RecordSessionOpened() {
	m.SessionsOpened.Inc()
	m.ActiveSessions.Inc()
}

func (m *Metrics) RecordSessionClosed(durationSeconds float64) {
	m.SessionsClosed.Inc()
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordCodecError(kind string) {
	m.CodecErrors.WithLabelValues(kind).Inc()
}
