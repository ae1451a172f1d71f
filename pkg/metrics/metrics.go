// Package metrics provides Prometheus metrics for clover.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal tracks classified candidates by pass, entity kind and decision
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "decisions_total",
			Help:      "Total number of classified match candidates by decision",
		},
		[]string{"pass", "kind", "decision"},
	)

	// InvalidInputsTotal tracks names skipped because they were absent
	InvalidInputsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "invalid_inputs_total",
			Help:      "Total number of absent names skipped during matching",
		},
		[]string{"pass", "side"},
	)

	// QueriesTotal tracks query names matched
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "queries_total",
			Help:      "Total number of query names matched against a reference set",
		},
		[]string{"pass", "kind"},
	)

	// PassDuration tracks batch pass duration in seconds
	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "batch",
			Name:      "pass_duration_seconds",
			Help:      "Duration of batch matching passes in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"pass", "status"},
	)

	// ReferenceSetSize tracks the size of the last loaded reference set
	ReferenceSetSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "batch",
			Name:      "reference_set_size",
			Help:      "Number of normalized names in the last loaded reference set",
		},
		[]string{"pass"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of Kafka messages published",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish latency
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)
)

// RecordDecision records one classified candidate
func RecordDecision(pass, kind, decision string) {
	DecisionsTotal.WithLabelValues(pass, kind, decision).Inc()
}

// RecordInvalidInputs records absent names on the query or reference side
func RecordInvalidInputs(pass, side string, count int) {
	if count <= 0 {
		return
	}
	InvalidInputsTotal.WithLabelValues(pass, side).Add(float64(count))
}

// RecordQuery records one matched query name
func RecordQuery(pass, kind string) {
	QueriesTotal.WithLabelValues(pass, kind).Inc()
}

// RecordPass records a finished batch pass
func RecordPass(pass, status string, durationSeconds float64, referenceCount int) {
	PassDuration.WithLabelValues(pass, status).Observe(durationSeconds)
	ReferenceSetSize.WithLabelValues(pass).Set(float64(referenceCount))
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}
