// Package metrics exposes batch activity as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pakfetch"

// Metrics records what the tasks of a batch do. It satisfies
// download.Observer.
type Metrics struct {
	Verifications   *prometheus.CounterVec
	Attempts        prometheus.Counter
	AttemptFailures prometheus.Counter
	Bytes           prometheus.Counter
	Entries         *prometheus.CounterVec
	BatchDuration   prometheus.Histogram

	reg prometheus.Registerer
}

// New registers the collectors with reg. Passing a fresh
// prometheus.NewRegistry keeps them off the global default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of file verifications, by result.",
		}, []string{"result"}),

		Attempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_attempts_total",
			Help:      "Total number of download attempts started.",
		}),

		AttemptFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_attempt_failures_total",
			Help:      "Total number of download attempts that failed and were retried.",
		}),

		Bytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Total bytes written to destination files.",
		}),

		Entries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_satisfied_total",
			Help:      "Entries that verified, by whether a download was needed.",
		}, []string{"outcome"}),

		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of completed batches.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),

		reg: reg,
	}
}

func (m *Metrics) Verified(_ string, satisfied bool) {
	result := "mismatch"
	if satisfied {
		result = "match"
	}
	m.Verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) AttemptStarted(string) { m.Attempts.Inc() }

func (m *Metrics) AttemptFailed(string, error) { m.AttemptFailures.Inc() }

func (m *Metrics) BytesWritten(n int64) { m.Bytes.Add(float64(n)) }

// EntryDone counts a satisfied entry.
func (m *Metrics) EntryDone(alreadyPresent bool) {
	outcome := "downloaded"
	if alreadyPresent {
		outcome = "present"
	}
	m.Entries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBatch(d time.Duration) {
	m.BatchDuration.Observe(d.Seconds())
}

// WatchSlots exports the admission counter as two gauges read on scrape.
func (m *Metrics) WatchSlots(inUse, limit func() int) {
	f := promauto.With(m.reg)

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "slots_in_use",
		Help:      "Admission slots currently held by transfers.",
	}, func() float64 { return float64(inUse()) })

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "slots_limit",
		Help:      "Maximum number of concurrent transfers.",
	}, func() float64 { return float64(limit()) })
}
