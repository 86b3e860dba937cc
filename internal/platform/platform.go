package platform

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by window operations on platforms without a
// native backend.
var ErrUnsupported = errors.New("window embedding is not supported on this platform")

// Handle is an opaque native window identifier. Zero means no window.
type Handle uintptr

// IsZero reports whether h names no window
func (h Handle) IsZero() bool { return h == 0 }

// Size is a width and height in pixels
type Size struct {
	Width  int
	Height int
}

// IsEmpty reports whether the size has no area
func (s Size) IsEmpty() bool { return s.Width == 0 && s.Height == 0 }

// Rect is a position and size in the parent's client coordinates
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// FrameMetrics are the non-client dimensions of a sizable top-level window
type FrameMetrics struct {
	BorderWidth   int
	BorderHeight  int
	CaptionHeight int
}

// PosFlags control SetWindowPos behaviour
type PosFlags uint32

const (
	NoSize         PosFlags = 0x0001
	NoMove         PosFlags = 0x0002
	NoZOrder       PosFlags = 0x0004
	NoSendChanging PosFlags = 0x0400
)

// EventSystemMoveSizeEnd is the window-manager notification sent when a
// move or resize of a window has finished.
const EventSystemMoveSizeEnd uint32 = 0x000B

// Event is one raw window-manager notification
type Event struct {
	Type   uint32
	Window Handle
	Object int32
	Child  int32
	Thread uint32
	Time   uint32
}

// HookToken identifies one installed native hook. Zero means none.
type HookToken uintptr

// WindowSystem is the native windowing surface the embedding core drives.
type WindowSystem interface {
	// MainWindow returns the main top-level window of pid and its title.
	// A zero handle means the process has no main window yet.
	MainWindow(pid int) (Handle, string, error)
	// WaitForInputIdle waits until pid is waiting for user input.
	WaitForInputIdle(pid int, timeout time.Duration) error
	SetParent(child, parent Handle) error
	SetWindowPos(h Handle, r Rect, flags PosFlags) error
	SetForeground(h Handle) error
	// PostClose asks the window to close as if the user closed it.
	PostClose(h Handle) error
	ClientSize(h Handle) (Size, error)
	Parent(h Handle) (Handle, error)
	FrameMetrics() FrameMetrics
	// HookMoveSizeEnd installs a move/resize-end hook scoped to pid.
	// fn may be called on a thread owned by the window system.
	HookMoveSizeEnd(pid int, fn func(Event)) (HookToken, error)
	Unhook(token HookToken) error
}

// Process is a launched foreign process
type Process interface {
	PID() int
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	HasExited() bool
	// SetMainWindow records the window found for the process. A reparented
	// window is no longer top-level, so CloseMainWindow targets this handle
	// and searches only when none was recorded.
	SetMainWindow(h Handle)
	// CloseMainWindow asks the process to exit gracefully.
	CloseMainWindow() error
	// WaitForExit waits up to timeout and reports whether the process exited.
	WaitForExit(timeout time.Duration) bool
	Kill() error
	// Release frees native resources held for the process.
	Release() error
}

// Command describes a process to start with shell-execute semantics
type Command struct {
	FileName   string
	Arguments  string
	WorkingDir string
	Elevated   bool
}

// Launcher starts processes
type Launcher interface {
	Start(cmd Command) (Process, error)
}

// Container is the host-owned surface a foreign window is embedded into
type Container interface {
	Handle() Handle
	ParentHandle() Handle
	Size() Size
}

// WindowContainer reads container geometry from the window system
type WindowContainer struct {
	ws     WindowSystem
	handle Handle
}

// NewWindowContainer wraps a native host window as a Container
func NewWindowContainer(ws WindowSystem, handle Handle) *WindowContainer {
	return &WindowContainer{ws: ws, handle: handle}
}

func (c *WindowContainer) Handle() Handle { return c.handle }

// ParentHandle returns the container's parent, or zero if it cannot be read
func (c *WindowContainer) ParentHandle() Handle {
	parent, err := c.ws.Parent(c.handle)
	if err != nil {
		return 0
	}
	return parent
}

// Size returns the container's client size, or an empty size on error
func (c *WindowContainer) Size() Size {
	size, err := c.ws.ClientSize(c.handle)
	if err != nil {
		return Size{}
	}
	return size
}
