package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// callbackMetrics counts provider callback deliveries by endpoint and outcome.
type callbackMetrics struct {
	callbacks *prometheus.CounterVec
	orders    *prometheus.CounterVec
}

func newCallbackMetrics() *callbackMetrics {
	m := &callbackMetrics{
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kassa",
			Name:      "callback_requests_total",
			Help:      "Provider callback deliveries by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kassa",
			Name:      "order_reconciliations_total",
			Help:      "Order reconciliation outcomes by delivery path.",
		}, []string{"path", "outcome"}),
	}
	prometheus.MustRegister(m.callbacks, m.orders)
	return m
}

func (m *callbackMetrics) callback(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(endpoint, outcome).Inc()
}

func (m *callbackMetrics) reconciliation(path, outcome string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(path, outcome).Inc()
}
