// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IntentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_intents_classified_total",
			Help: "Total number of utterances classified, by intent and classifier source",
		},
		[]string{"intent", "source"},
	)

	ClassifierFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_classifier_fallbacks_total",
			Help: "Total number of remote classifier calls that fell back to the rule table",
		},
		[]string{"reason"},
	)

	ClassifierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "steward_classifier_duration_seconds",
			Help:    "Duration of intent classification in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	ActionsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_actions_executed_total",
			Help: "Total number of dispatched actions, by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	ConversationTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steward_conversation_turns_total",
			Help: "Total number of assistant turns, by kind and resulting state",
		},
		[]string{"kind", "state"},
	)

	PendingActions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "steward_pending_actions",
			Help: "Number of pending actions held in the in-memory store",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "steward_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
