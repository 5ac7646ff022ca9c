package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssessmentsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellspring_assessments_scored_total",
			Help: "Assessments scored, by type, resulting tier and mode (submit, reassess, preview)",
		},
		[]string{"assessment_type", "risk_tier", "mode"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellspring_validation_failures_total",
			Help: "Submissions rejected by answer schema validation",
		},
		[]string{"assessment_type"},
	)

	// UnknownAnswers counts answers that fell through to the default score.
	UnknownAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellspring_unknown_answers_total",
			Help: "Answers without a score table entry that were scored with the question default",
		},
		[]string{"assessment_type", "question"},
	)

	RecordMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellspring_record_mutations_total",
			Help: "Assessment record mutations by operation",
		},
		[]string{"assessment_type", "operation"},
	)

	LockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wellspring_record_lock_wait_seconds",
			Help:    "Time spent acquiring the per-user assessment lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"backend"},
	)

	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wellspring_event_publish_failures_total",
			Help: "Lifecycle events that could not be published",
		},
	)
)
