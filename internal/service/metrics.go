package service

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	commands  *prometheus.CounterVec
	conflicts prometheus.Counter
	attempts  prometheus.Histogram
	published *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "commands_total",
			Help:      "Inventory commands handled, by command and outcome.",
		}, []string{"command", "outcome"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "write_conflicts_total",
			Help:      "Conditional writes rejected because another writer got there first.",
		}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "inventory",
			Name:      "mutation_attempts",
			Help:      "Read-decide-write cycles needed per mutation.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "events_published_total",
			Help:      "Events handed to the publisher, by event and result.",
		}, []string{"event", "result"}),
	}

	reg.MustRegister(m.commands, m.conflicts, m.attempts, m.published)
	return m
}

func (m *Metrics) observeCommand(command, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, result).Inc()
}

func (m *Metrics) observeConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) observeAttempts(n int) {
	if m == nil {
		return
	}
	m.attempts.Observe(float64(n))
}

func (m *Metrics) observePublished(event string, err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	m.published.WithLabelValues(event, result).Inc()
}

type observedPublisher struct {
	next    Publisher
	metrics *Metrics
}

func (p observedPublisher) Publish(ctx context.Context, event domain.Event) error {
	err := p.next.Publish(ctx, event)
	p.metrics.observePublished(event.EventName(), err)
	return err
}
