// Package metrics holds the Prometheus collectors shared by the chat server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chat",
			Name:      "sessions_connected",
			Help:      "Live websocket sessions.",
		},
	)

	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "messages_appended_total",
			Help:      "Chat events appended to the log, by consent stamp.",
		},
		[]string{"ai_enabled"},
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "delivery_failures_total",
			Help:      "Per-recipient send failures during broadcast.",
		},
	)

	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "sessions_evicted_total",
			Help:      "Sessions removed after a failed delivery.",
		},
	)

	MemoryUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "memory_upserts_total",
			Help:      "Memory records written to the vector store.",
		},
		[]string{"chat_type"},
	)

	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "collaborator_fallbacks_total",
			Help:      "LLM calls that failed or returned malformed output and were replaced by a fallback.",
		},
		[]string{"feature"},
	)
)
