package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docuchat_chat_turns_total",
		Help: "Chat turns served, labelled by outcome.",
	}, []string{"outcome"})

	chatTurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docuchat_chat_turn_duration_seconds",
		Help:    "End-to-end latency of a chat turn.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	logAppendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docuchat_log_append_failures_total",
		Help: "Turns whose answer was produced but whose log append failed.",
	})

	documentsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docuchat_documents_ingested_total",
		Help: "Documents successfully ingested.",
	})

	documentsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docuchat_documents_deleted_total",
		Help: "Documents successfully deleted.",
	})

	logsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docuchat_logs_pruned_total",
		Help: "Conversation log rows removed by retention.",
	})
)
