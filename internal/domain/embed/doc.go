// Package embed hosts a foreign application window inside a container
// window owned by this process.
//
// An Instance drives one embedding through its lifecycle:
//
//	Uninitialized -> Acquiring -> Embedded -> Connected -> Closing -> Closed
//
// Connect launches the configured tool, waits for its main window, re-parents
// it into the container, fits it to the container and registers it with the
// Bus. The Bus receives move/resize-end notifications from the window system
// and re-fits windows that were moved from outside, ignoring notifications
// that follow the instance's own geometry changes. Close unregisters the
// window, ends the process through the Terminator and removes the hook.
//
// Failures never escape as panics or errors past Connect's boolean; they are
// reported to a messages.Sink, and Instance.LastError keeps the cause.
package embed
