// Package http provides the handlers of the local status API.
//
// Endpoints:
//   - Health: / and /health
//   - Connections: /connections, /connections/:id, /connections/:id/focus,
//     /connections/resize
//   - Messages: /messages
//   - Tools: /tools
//
// Every response is JSON. Unknown connection ids answer 404 and malformed
// ids 400.
//
// Example Usage:
//
//	handlers := http.NewHandlers(manager, collector, catalog, metrics)
//	router.GET("/health", handlers.Health)
//	router.POST("/connections/:id/focus", handlers.FocusConnection)
package http
