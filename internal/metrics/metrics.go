// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "guessroom",
		Name:      "rooms_active",
		Help:      "Rooms currently held by the registry.",
	})

	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "guessroom",
		Name:      "rooms_created_total",
		Help:      "Rooms allocated since start.",
	})

	RoomsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guessroom",
		Name:      "rooms_evicted_total",
		Help:      "Rooms removed by the idle sweep, by occupancy.",
	}, []string{"occupancy"})

	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guessroom",
		Name:      "room_events_total",
		Help:      "Room events emitted, by type.",
	}, []string{"type"})

	RejectedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "guessroom",
		Name:      "rejected_requests_total",
		Help:      "Socket requests answered with an error, by error code.",
	}, []string{"reason"})

	Connections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "guessroom",
		Name:      "connections",
		Help:      "Open sockets, by role.",
	}, []string{"role"})
)
