package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_requests_created_total",
		Help: "Ride requests accepted by intake.",
	})

	passengersMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_passengers_matched_total",
		Help: "Passengers committed to a pool.",
	})

	poolsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_pools_created_total",
		Help: "Pools committed by matching cycles.",
	})

	cancellations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_cancellations_total",
		Help: "Successful ride cancellations.",
	})

	leaseConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_lease_conflicts_total",
		Help: "Operations that gave up after exhausting lease retries.",
	})
)
