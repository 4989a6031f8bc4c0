/*
Package metrics provides Prometheus metrics collection and exposition for the
dataprocessor runtime.

Metrics are registered once, at package init, via prometheus.MustRegister and
exposed over HTTP for scraping through Handler(). Categories:

  - Queue depth: lp/hp/result queue sizes per manager.
  - Worker: processing rate, total processed count, worker status counts.
  - Lifecycle: supervisor and manager state gauges.
  - Commands: received-command counters, dispatch latency.
  - Forwarding: payloads ingested/dropped, results forwarded.

# Usage

	http.Handle("/metrics", metrics.Handler())

	timer := metrics.NewTimer()
	// ... do work ...
	timer.ObserveDurationVec(metrics.ProcessDataDuration, managerName)
*/
package metrics
