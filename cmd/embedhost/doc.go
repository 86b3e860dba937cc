// Command embedhost launches an external tool for one connection and embeds
// its main window into a native host container window.
//
// The tool catalog, timing and logging come from environment variables (see
// package config). When SERVER_ADDR or -addr is set, a local status API is
// served as well.
//
// Usage:
//
//	embedhost -tool PuTTY -container 0x1A2B -name db01 -host db01.internal -port 22
//
// The host exits when the embedded program exits or on SIGINT/SIGTERM, after
// closing the program.
package main
