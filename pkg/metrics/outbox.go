package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts relay outcomes per event type.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	dead      *prometheus.CounterVec
}

// NewOutboxMetrics registers outbox relay metrics on reg. A nil registerer yields no-op metrics.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	newCounter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      name,
			Help:      help,
		}, []string{"event_type"})
	}
	m := &OutboxMetrics{
		published: newCounter("published_total", "Outbox events delivered to every sink."),
		failed:    newCounter("failed_total", "Outbox delivery attempts that will be retried."),
		dead:      newCounter("dead_lettered_total", "Outbox events moved to the dead letter table."),
	}
	reg.MustRegister(m.published, m.failed, m.dead)
	return m
}

func (o *OutboxMetrics) IncPublished(eventType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (o *OutboxMetrics) IncFailed(eventType string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (o *OutboxMetrics) IncDeadLettered(eventType string) {
	if o == nil || o.dead == nil {
		return
	}
	o.dead.WithLabelValues(normalizeLabel(eventType)).Inc()
}
