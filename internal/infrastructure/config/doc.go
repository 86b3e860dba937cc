// Package config provides 12-factor configuration for the embedding host.
//
// Configuration is loaded from environment variables with defaults. The CLI
// may override individual values with flags.
//
// Configuration Sections:
//   - Embed: maximum wait for window acquisition and termination, self-resize
//     grace window, force-kill wait, IME placeholder title
//   - Tools: external tool catalog location and file pattern
//   - Logging: log level and output format
//   - Server: local status API address (also serving /metrics), CORS origins
//     and rate limit
//   - Launch: per-tool launch breaker threshold and cooldown
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	acq := embed.NewAcquirer(ws, cfg.Embed.PlaceholderTitle)
//
// Environment Variables:
//   - EMBED_MAX_WAIT, EMBED_RESIZE_GRACE, EMBED_KILL_WAIT, EMBED_PLACEHOLDER_TITLE
//   - TOOLS_PATH, TOOLS_PATTERN
//   - LOG_LEVEL, LOG_DEV
//   - SERVER_ADDR, SERVER_ALLOW_ORIGINS, SERVER_RATE_LIMIT, SERVER_RATE_BURST
//   - LAUNCH_BREAKER_FAILURES, LAUNCH_BREAKER_COOLDOWN
package config
