// Package types provides data structures shared by the tool catalog, the
// argument parser and the embedding core.
//
// Core Types:
//   - Connection: endpoint values an external tool is launched for
//
// Example Usage:
//
//	conn := &types.Connection{
//	    Name:         "db01",
//	    Hostname:     "db01.internal",
//	    Port:         22,
//	    ExternalTool: "PuTTY",
//	}
package types
