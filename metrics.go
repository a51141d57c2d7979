package pgbulk

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by processors.
// A nil *Metrics records nothing.
type Metrics struct {
	flushes        *prometheus.CounterVec
	flushedRecords prometheus.Counter
	failures       *prometheus.CounterVec
	duration       prometheus.Histogram
}

// NewMetrics creates the flush collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		// flushes counts batches handed to the write handler, by trigger.
		flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgbulk_flushes_total",
				Help: "Total number of batches handed to the write handler",
			},
			[]string{"trigger"},
		),
		flushedRecords: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pgbulk_flushed_records_total",
				Help: "Total number of records written by successful flushes",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pgbulk_flush_failures_total",
				Help: "Total number of flushes the write handler rejected",
			},
			[]string{"trigger"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pgbulk_flush_duration_seconds",
				Help:    "Time spent in the write handler per flush",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.flushes, m.flushedRecords, m.failures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(trigger string, records int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.flushes.WithLabelValues(trigger).Inc()
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.failures.WithLabelValues(trigger).Inc()
		return
	}
	m.flushedRecords.Add(float64(records))
}
