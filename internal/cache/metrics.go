package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_operations_total",
			Help: "Cache operations by namespace, operation and outcome",
		},
		[]string{"namespace", "operation", "outcome"},
	)

	invalidatedKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_cache_invalidated_keys_total",
			Help: "Number of cache keys removed by invalidation",
		},
	)
)

func observe(namespace, operation, outcome string) {
	operations.WithLabelValues(namespace, operation, outcome).Inc()
}
