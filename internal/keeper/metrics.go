package keeper

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "curator"

// Settlement results used as the "result" label.
const (
	ResultRewarded = "rewarded" // a content entry won
	ResultEmpty    = "empty"    // no content, round only reset
	ResultError    = "error"
)

// Metrics are the keeper's prometheus collectors.
type Metrics struct {
	Settlements *prometheus.CounterVec
	LastHeight  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "settlements_total",
				Help:      "Rounds settled by the keeper, by result",
			},
			[]string{"result"},
		),
		LastHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      "last_block_height",
				Help:      "Height of the last block used as the settlement clock",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Settlements, m.LastHeight)
	}
	return m
}
