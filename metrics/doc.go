/*
Package metrics provides [Collector], which records registry activity and exposes it to Prometheus.

	col := metrics.NewCollector("intercept")
	prometheus.MustRegister(col)
	hub := bus.NewHub(logger, events.WithObserver(col))

Metrics are labeled by event kind. Counts of active handlers and registrations are also labeled by phase, and dispatches are labeled by result.
*/
package metrics
