// Package metrics provides the platform's internal Prometheus
// instrumentation: orchestrator throughput, rule engine performance,
// translator outcomes, and WebSocket fabric fan-out.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector registered by the platform.
type Metrics struct {
	TasksSubmitted   prometheus.Counter
	TasksProcessed   prometheus.Counter
	TasksFailed      prometheus.Counter
	QueueDepth       prometheus.Gauge
	AgentsRegistered prometheus.Gauge

	RuleExecutionsTotal   *prometheus.CounterVec
	RuleExecutionDuration *prometheus.HistogramVec
	RuleDetectionsTotal   *prometheus.CounterVec

	TranslationsTotal *prometheus.CounterVec

	WSConnectionsActive prometheus.Gauge
	WSMessagesSent      prometheus.Counter
	WSMessagesDropped   prometheus.Counter

	AuditChangesTotal   prometheus.Counter
	AuditRollbacksTotal *prometheus.CounterVec
}

// New creates and registers the platform's metrics against registerer. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the global
// default registerer.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchestrator_tasks_submitted_total",
			Help: "Total tasks accepted by submit_task.",
		}),
		TasksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchestrator_tasks_processed_total",
			Help: "Total tasks that completed execution successfully.",
		}),
		TasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchestrator_tasks_failed_total",
			Help: "Total tasks that completed execution with failure.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orchestrator_queue_depth",
			Help: "Current depth of the task queue.",
		}),
		AgentsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orchestrator_agents_registered",
			Help: "Current number of registered agents.",
		}),
		RuleExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rule_engine_executions_total",
			Help: "Total rule executions by outcome.",
		}, []string{"rule_id", "outcome"}),
		RuleExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rule_engine_execution_duration_seconds",
			Help:    "Rule execution duration in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"rule_id"}),
		RuleDetectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rule_engine_detections_total",
			Help: "Total FAIL outcomes (flagged detections) by rule.",
		}, []string{"rule_id"}),
		TranslationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_messages_total",
			Help: "Total translations by result.",
		}, []string{"from_protocol", "to_protocol", "result"}),
		WSConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_fabric_connections_active",
			Help: "Current pooled WebSocket connections.",
		}),
		WSMessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_fabric_messages_sent_total",
			Help: "Total frames successfully handed to a connection's transport.",
		}),
		WSMessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_fabric_messages_dropped_total",
			Help: "Total frames dropped due to outbound queue overflow.",
		}),
		AuditChangesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_changes_total",
			Help: "Total change records journaled.",
		}),
		AuditRollbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_rollbacks_total",
			Help: "Total rollback requests by terminal status.",
		}, []string{"status"}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.TasksSubmitted, m.TasksProcessed, m.TasksFailed, m.QueueDepth, m.AgentsRegistered,
			m.RuleExecutionsTotal, m.RuleExecutionDuration, m.RuleDetectionsTotal,
			m.TranslationsTotal,
			m.WSConnectionsActive, m.WSMessagesSent, m.WSMessagesDropped,
			m.AuditChangesTotal, m.AuditRollbacksTotal,
		)
	}
	return m
}
