// Package tools is the configuration provider for external tools.
//
// A tool names an executable, an argument template and whether its main
// window should be embedded into the host. Catalogs are read from YAML, TOML
// or JSON files:
//
//	tools:
//	  - display_name: PuTTY
//	    file_name: "%ProgramFiles%\\PuTTY\\putty.exe"
//	    arguments: "-ssh %USERNAME%@%HOSTNAME% -P %PORT%"
//	    try_integrate: true
//
// Lookup is by exact display name, the same key connections store.
package tools
