package resilience

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Total number of attempts across retried operations",
	}, []string{"operation", "result"})

	breakerStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_state_changes_total",
		Help: "Total number of circuit breaker state transitions",
	}, []string{"breaker", "from", "to"})
)

func recordRetry(operation string, attempts int, success bool) {
	retryAttemptsTotal.WithLabelValues(operation, strconv.FormatBool(success)).Add(float64(attempts + 1))
}

func recordBreakerTransition(breaker, from, to string) {
	breakerStateTransitions.WithLabelValues(breaker, from, to).Inc()
}
