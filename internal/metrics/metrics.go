package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "webhook",
			Name:      "messages_total",
			Help:      "Inbound messages handled, by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	CompletionFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "completion",
			Name:      "failures_total",
			Help:      "Completion calls answered with the fallback reply",
		},
	)

	DispatchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "dispatch",
			Name:      "failures_total",
			Help:      "Outbound replies that could not be delivered",
		},
		[]string{"channel"},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Document store failures swallowed by the relay",
		},
		[]string{"op"},
	)

	SignInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "console",
			Name:      "signins_total",
			Help:      "Operator sign-in attempts by outcome",
		},
		[]string{"outcome"},
	)

	SessionsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "relay",
			Subsystem: "console",
			Name:      "sessions_purged_total",
			Help:      "Expired operator sessions removed by the sweeper",
		},
	)
)
