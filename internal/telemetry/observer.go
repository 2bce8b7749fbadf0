package telemetry

import (
	"log/slog"

	"github.com/shaiso/Kira/internal/engine"
)

// LogObserver пишет каждый вызов узла в лог на уровне DEBUG.
func LogObserver(logger *slog.Logger) engine.Observer {
	return engine.ObserverFunc(func(ev engine.InvocationEvent) {
		attrs := []any{
			"node", ev.Node,
			"outputs", ev.Outputs,
			"depth", ev.Depth,
			"duration_ms", ev.Duration.Milliseconds(),
		}
		if ev.Failures > 0 {
			attrs = append(attrs, "failures", ev.Failures, "kind", ev.FailureKind)
		}
		logger.Debug("node invoked", attrs...)
	})
}

// MetricsObserver считает вызовы узлов в Prometheus.
func MetricsObserver() engine.Observer {
	return engine.ObserverFunc(func(ev engine.InvocationEvent) {
		if ev.Failures == 0 {
			NodeInvocations.WithLabelValues(ev.Node, OutcomeOK).Inc()
			return
		}
		NodeInvocations.WithLabelValues(ev.Node, OutcomeFailed).Inc()
		NodeFailures.WithLabelValues(ev.FailureKind).Inc()
	})
}
