package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты вызова узла для метки outcome.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

var (
	// NodeInvocations — вызовы узлов по имени и результату.
	NodeInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kira_node_invocations_total",
		Help: "Total node invocations by node name and outcome",
	}, []string{"node", "outcome"})

	// NodeFailures — отказы узлов по коду исключения.
	NodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kira_node_failures_total",
		Help: "Total failed node invocations by exception code",
	}, []string{"kind"})

	// Evaluations — завершённые вычисления по статусу.
	Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kira_evaluations_total",
		Help: "Total evaluations by final status",
	}, []string{"status"})

	// EvaluationDuration — длительность вычисления программы.
	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kira_evaluation_duration_seconds",
		Help:    "Duration of script evaluations",
		Buckets: prometheus.DefBuckets,
	})

	// HTTPRequests — запросы к API по методу и коду ответа.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kira_api_http_requests_total",
		Help: "Total HTTP requests handled by kira-api",
	}, []string{"method", "code"})

	// SchedulerTicks — проходы планировщика.
	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kira_scheduler_ticks_total",
		Help: "Total scheduler ticks",
	})
)
