// Package metrics records per-run counters for the book transaction.
//
// There is no long-running process to scrape, so the Prometheus
// implementation keeps its own registry and writes it out in the
// node-exporter textfile format at the end of a run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/tozd/go/errors"
)

// Recorder receives one observation per processed book.
type Recorder interface {
	// ObserveBook records a finished transaction. status is "changed",
	// "unchanged" or "failed".
	ObserveBook(status string, rewritten, entryFailures int, durationSeconds float64)
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) ObserveBook(string, int, int, float64) {}

// Prom implements Recorder backed by Prometheus collectors on a private
// registry.
type Prom struct {
	reg           *prometheus.Registry
	books         *prometheus.CounterVec
	rewritten     prometheus.Counter
	entryFailures prometheus.Counter
	duration      *prometheus.HistogramVec
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		reg: prometheus.NewRegistry(),
		books: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "books_processed_total",
			Help:      "Books processed by status",
		}, []string{"status"}),
		rewritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_rewritten_total",
			Help:      "Archive entries rewritten",
		}),
		entryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entry_failures_total",
			Help:      "Archive entries that could not be read or written",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "book_duration_seconds",
			Help:      "Transaction duration seconds by status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	p.reg.MustRegister(p.books, p.rewritten, p.entryFailures, p.duration)
	return p
}

func (p *Prom) ObserveBook(status string, rewritten, entryFailures int, durationSeconds float64) {
	p.books.WithLabelValues(status).Inc()
	p.rewritten.Add(float64(rewritten))
	p.entryFailures.Add(float64(entryFailures))
	p.duration.WithLabelValues(status).Observe(durationSeconds)
}

// Gatherer exposes the private registry.
func (p *Prom) Gatherer() prometheus.Gatherer {
	return p.reg
}

// WriteTextfile writes the current values to path for the node exporter's
// textfile collector. The file is replaced atomically.
func (p *Prom) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.reg); err != nil {
		return errors.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
