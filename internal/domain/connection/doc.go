// Package connection tracks the embedded connections open in one host.
//
// The Manager opens connections into container windows, keeps track of the
// focused one, propagates container resizes and closes connections, either
// one at a time or all at once on shutdown. Connections whose foreign
// process exits drop out of the manager on their own.
package connection
