package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "collector"

var (
	// WalletsGenerated counts payment wallets issued per network
	WalletsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallets_generated_total",
		Help:      "Payment wallets generated, by network.",
	}, []string{"network"})

	// Sweeps counts sweep attempts per network and outcome
	Sweeps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeps_total",
		Help:      "Sweep attempts, by network and result.",
	}, []string{"network", "result"})

	// SweptAmount sums swept value per currency in display units
	SweptAmount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "swept_amount_total",
		Help:      "Value moved to treasury, by currency.",
	}, []string{"currency"})

	// ActiveWatches tracks addresses currently monitored
	ActiveWatches = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_watches",
		Help:      "Deposit addresses under watch, by network.",
	}, []string{"network"})

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		WalletsGenerated,
		Sweeps,
		SweptAmount,
		ActiveWatches,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// Handler serves the collector registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
