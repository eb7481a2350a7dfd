package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "regimeedge",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of signal endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regimeedge",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by signal endpoint",
		},
		[]string{"endpoint"},
	)

	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "regimeedge",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Price provider requests by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "regimeedge",
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Open websocket signal streams",
		},
	)
)

// Register adds the collectors to reg once. A nil reg means the default registry.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	once.Do(func() {
		reg.MustRegister(APILatency, APIErrors, ProviderRequests, StreamClients)
	})
}
