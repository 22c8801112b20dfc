package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(paymentsTotal, ordersTotal, walletAdjustmentsTotal) }

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radpanel_payments_total",
			Help: "Payment receipts by resulting status.",
		},
		[]string{"status"}, // pending, approved, rejected
	)

	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radpanel_orders_total",
			Help: "Order state changes by resulting status.",
		},
		[]string{"status"},
	)

	walletAdjustmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radpanel_wallet_adjustments_total",
			Help: "Wallet mutations by audit transaction type.",
		},
		[]string{"type"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func IncOrder(status string) {
	ordersTotal.WithLabelValues(norm(status)).Inc()
}

// AddOrders counts n orders reaching status at once, as the expiry sweep does.
func AddOrders(status string, n int) {
	if n > 0 {
		ordersTotal.WithLabelValues(norm(status)).Add(float64(n))
	}
}

func IncWalletAdjustment(txType string) {
	walletAdjustmentsTotal.WithLabelValues(norm(txType)).Inc()
}
