// Package metrics exposes the relay's Prometheus counters and gauges on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nestrelay",
		Name:      "connections_open",
		Help:      "Currently open WebSocket connections.",
	})

	SubscriptionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nestrelay",
		Name:      "subscriptions_open",
		Help:      "Currently open REQ subscriptions.",
	})

	NegentropySessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nestrelay",
		Name:      "negentropy_sessions_open",
		Help:      "Currently open NIP-77 negentropy sessions.",
	})

	EventsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nestrelay",
		Name:      "events_admitted_total",
		Help:      "Events admitted and acknowledged with OK true.",
	})

	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nestrelay",
		Name:      "events_rejected_total",
		Help:      "Events rejected by the policy pipeline, labeled by reason prefix.",
	}, []string{"reason"})

	QueriesServed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nestrelay",
		Name:      "queries_served_total",
		Help:      "REQ and COUNT queries answered.",
	})

	StoreSizeEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nestrelay",
		Name:      "store_size_events",
		Help:      "Approximate number of events currently stored.",
	})
)
