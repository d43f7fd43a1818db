package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EventMetrics counts events written to the journal.
type EventMetrics struct {
	recorded *prometheus.CounterVec
	failures prometheus.Counter
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *EventMetrics
)

// Events returns the metrics registry tracking journalled engine events.
func Events() *EventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = NewEventMetrics(prometheus.DefaultRegisterer)
	})
	return eventRegistry
}

// NewEventMetrics builds an event counter set bound to reg.
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	m := &EventMetrics{
		recorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "recorded_total",
			Help:      "Count of engine events journalled segmented by type.",
		}, []string{"type"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "journal_failures_total",
			Help:      "Count of event batches the journal failed to persist.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.recorded, m.failures)
	}
	return m
}

// RecordEvent increments the counter for the supplied event type.
func (m *EventMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(eventType))
	if normalized == "" {
		normalized = "unknown"
	}
	m.recorded.WithLabelValues(normalized).Inc()
}

// RecordFailure counts a batch that could not be persisted.
func (m *EventMetrics) RecordFailure() {
	if m == nil {
		return
	}
	m.failures.Inc()
}
