// Package platform abstracts the native window system and OS processes.
//
// WindowSystem covers the handful of window-manager operations embedding
// needs: finding a process's main window, re-parenting, positioning, focus,
// polite close requests and a move/resize-end hook scoped to one process.
// Process and Launcher cover starting a program with shell-execute semantics
// and ending it.
//
// On Windows the implementation is Win32 through golang.org/x/sys/windows.
// Hooks are installed out-of-context on a dedicated goroutine locked to an OS
// thread that runs a message loop, since WinEvent callbacks are delivered
// through the installing thread's message queue.
//
// Other platforms get a launcher that runs programs through /bin/sh and a
// window system whose operations return ErrUnsupported.
package platform
