// Package server assembles the local status API of the embedding host.
//
// The API is optional and only started when an address is configured. It
// reports connections, collected messages, the tool catalog and Prometheus
// metrics, and lets a local controller focus, re-fit or close connections.
//
// Middleware stack:
//   - panic recovery
//   - request ids
//   - structured request logging
//   - request metrics
//   - CORS restricted to the configured origins
//   - per-client rate limiting
//
// Example Usage:
//
//	srv := server.NewServer(cfg.Server, handlers, metrics, registry, logger)
//	go srv.Run()
//	defer srv.Close(ctx)
package server
