package signaling

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry       *prometheus.Registry
	peersConnected prometheus.Gauge
	signalsRelayed *prometheus.CounterVec
	signalsDropped *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		peersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signaling_peers_connected",
			Help: "Number of peers holding an open signaling session",
		}),
		signalsRelayed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaling_signals_relayed_total",
				Help: "Signals forwarded to their target peer",
			},
			[]string{"type"},
		),
		signalsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaling_signals_dropped_total",
				Help: "Signals that could not be delivered",
			},
			[]string{"reason"},
		),
	}
	m.registry.MustRegister(m.peersConnected, m.signalsRelayed, m.signalsDropped)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
