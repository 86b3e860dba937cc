// Package middleware provides gin middleware for the local status API:
// request ids, CORS restricted to configured origins, per-client rate
// limiting and structured request logging.
package middleware
