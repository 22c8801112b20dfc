package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(gatewayRequestsTotal, gatewayLatencyMs) }

var (
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radpanel_gateway_requests_total",
			Help: "Provisioning gateway calls by operation and result.",
		},
		[]string{"op", "result"}, // result: ok, not_found, conflict, error
	)

	gatewayLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radpanel_gateway_latency_ms",
			Help:    "Provisioning gateway call latency in milliseconds.",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"op"},
	)
)

func ObserveGateway(op, result string, latencyMs int64) {
	gatewayRequestsTotal.WithLabelValues(norm(op), norm(result)).Inc()
	gatewayLatencyMs.WithLabelValues(norm(op)).Observe(float64(latencyMs))
}
