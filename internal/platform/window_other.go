//go:build !windows

package platform

import "time"

// unsupported keeps non-Windows builds working; every window operation
// reports ErrUnsupported.
type unsupported struct{}

// NewWindowSystem returns a window system that supports nothing on this
// platform.
func NewWindowSystem() WindowSystem {
	return unsupported{}
}

func (unsupported) MainWindow(int) (Handle, string, error)              { return 0, "", ErrUnsupported }
func (unsupported) WaitForInputIdle(int, time.Duration) error           { return ErrUnsupported }
func (unsupported) SetParent(Handle, Handle) error                      { return ErrUnsupported }
func (unsupported) SetWindowPos(Handle, Rect, PosFlags) error           { return ErrUnsupported }
func (unsupported) SetForeground(Handle) error                          { return ErrUnsupported }
func (unsupported) PostClose(Handle) error                              { return ErrUnsupported }
func (unsupported) ClientSize(Handle) (Size, error)                     { return Size{}, ErrUnsupported }
func (unsupported) Parent(Handle) (Handle, error)                       { return 0, ErrUnsupported }
func (unsupported) FrameMetrics() FrameMetrics                          { return FrameMetrics{} }
func (unsupported) HookMoveSizeEnd(int, func(Event)) (HookToken, error) { return 0, ErrUnsupported }
func (unsupported) Unhook(HookToken) error                              { return nil }
