/*
Package monitoring provides Prometheus metrics for the embedding host.

# Overview

Every component of the embedding core accepts an optional *Metrics. A nil
value records nothing, so tests and library callers that do not care about
metrics pass nil.

# Metrics

  - hostembed_connects_total{outcome}: Connect attempts by outcome
  - hostembed_instances_active: instances currently connected
  - hostembed_hook_events_total{result}: move/resize-end dispatch decisions
  - hostembed_resizes_total{origin}: geometry fix-ups (connect, host, hook)
  - hostembed_terminations_total{step}: which termination step ended a process
  - hostembed_acquire_duration_seconds: main window acquisition latency
  - hostembed_uptime_seconds
  - hostembed_http_requests_total{method,route,status}: status API requests
  - hostembed_http_request_duration_seconds{method,route}

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	metrics.RecordConnect(monitoring.OutcomeConnected)

# Status API

	router.Use(monitoring.Middleware(metrics))

	router.GET("/metrics", gin.WrapH(monitoring.Handler(reg)))
*/
package monitoring
