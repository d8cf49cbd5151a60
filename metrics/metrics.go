// Package metrics registra as métricas Prometheus do serviço de staking.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staking",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Número de operações de staking por resultado",
	}, []string{"operation", "result"})

	tokensMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staking",
		Subsystem: "ledger",
		Name:      "tokens_total",
		Help:      "Tokens movimentados por operações confirmadas",
	}, []string{"operation"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "staking",
		Subsystem: "ledger",
		Name:      "operation_duration_seconds",
		Help:      "Duração das operações de staking em segundos",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

// Observe registra o resultado de uma operação.
func Observe(operation string, amount uint64, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operations.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(seconds)
	if err == nil && amount > 0 {
		tokensMoved.WithLabelValues(operation).Add(float64(amount))
	}
}
