/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package observable

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors recorded by a Store.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	active     *prometheus.GaugeVec
	batchSize  *prometheus.HistogramVec
}

// NewMetrics creates the collectors, prefixed with name, and registers them
// with reg. A nil reg leaves them unregistered.
func NewMetrics(name string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_operation_duration_seconds",
				Help:    "Duration of store operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_operations",
				Help: "Number of in-flight store operations",
			},
			[]string{"operation"},
		),
		batchSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_batch_size",
				Help:    "Rows per batch operation",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 500, 1000},
			},
			[]string{"operation"},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.operations, m.duration, m.active, m.batchSize} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
