package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal   *prometheus.CounterVec
	regimePValue   prometheus.Gauge
	regimeActive   prometheus.Gauge
	regimeDefaults prometheus.Counter
	windowFailures prometheus.Counter
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a recorder registered on reg. A nil reg means the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		signalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimeedge_signals_total",
				Help: "Signals generated by direction and price source",
			},
			[]string{"direction", "source"},
		),
		regimePValue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "regimeedge_regime_p_value",
			Help: "Latest rolling causality p-value",
		}),
		regimeActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "regimeedge_regime_active",
			Help: "1 when the causality regime is active",
		}),
		regimeDefaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "regimeedge_regime_defaulted_total",
			Help: "Regime evaluations that fell back to the inactive state",
		}),
		windowFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "regimeedge_window_failures_total",
			Help: "Rolling windows whose causality test failed and scored 1.0",
		}),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimeedge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "regimeedge_last_price",
				Help: "Last price used for a symbol",
			},
			[]string{"symbol"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regimeedge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal counts a generated signal.
func (r *Recorder) RecordSignal(direction, source string) {
	r.signalsTotal.WithLabelValues(direction, source).Inc()
}

// RecordRegime publishes the latest regime state.
func (r *Recorder) RecordRegime(active bool, pValue float64, defaulted bool) {
	r.regimePValue.Set(pValue)
	if active {
		r.regimeActive.Set(1)
	} else {
		r.regimeActive.Set(0)
	}
	if defaulted {
		r.regimeDefaults.Inc()
	}
}

func (r *Recorder) RecordWindowFailures(n int) {
	if n > 0 {
		r.windowFailures.Add(float64(n))
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
