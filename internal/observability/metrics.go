package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stream outcomes recorded by StreamOutcomes.
const (
	OutcomeReplied   = "replied"
	OutcomeCompleted = "completed"
	OutcomeTimeout   = "timeout"
	OutcomeUpstream  = "upstream_error"
	OutcomeInternal  = "internal_error"
)

// Scoring outcomes recorded by ScoringAttempts.
const (
	ScoringSucceeded = "done"
	ScoringRetried   = "retry"
	ScoringGaveUp    = "failed"
)

var (
	// StreamOutcomes counts finished reply streams by how they ended.
	StreamOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_stream_outcomes_total",
			Help: "Reply streams by terminal outcome.",
		},
		[]string{"outcome"},
	)

	// StreamDuration observes the wall time from candidate turn to terminal event.
	StreamDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_stream_duration_seconds",
			Help:    "Duration of reply streams in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// StreamChunks counts text chunks relayed from the model.
	StreamChunks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_stream_chunks_total",
			Help: "Text chunks received from the model.",
		},
	)

	// StreamsAbandoned counts streams whose client left before the end.
	StreamsAbandoned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_streams_abandoned_total",
			Help: "Reply streams whose client disconnected mid-stream.",
		},
	)

	// ScoringAttempts counts interview scoring attempts by result.
	ScoringAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_scoring_attempts_total",
			Help: "Interview scoring attempts by result.",
		},
		[]string{"result"},
	)

	// ScoringQueueDepth gauges task IDs waiting in the in-process queue.
	ScoringQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_scoring_queue_depth",
			Help: "Scoring tasks waiting for a worker.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		StreamOutcomes, StreamDuration, StreamChunks, StreamsAbandoned,
		ScoringAttempts, ScoringQueueDepth,
	)
}
