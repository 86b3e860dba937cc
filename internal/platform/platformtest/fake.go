// Package platformtest provides in-memory fakes of the platform interfaces.
package platformtest

import (
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
)

// PosCall is one recorded SetWindowPos call
type PosCall struct {
	Window platform.Handle
	Rect   platform.Rect
	Flags  platform.PosFlags
}

type mainWindow struct {
	handle platform.Handle
	title  string
}

type hook struct {
	pid int
	fn  func(platform.Event)
}

// WindowSystem is a fake platform.WindowSystem that records every call.
// Set the exported error fields to make the matching operation fail.
type WindowSystem struct {
	SetParentErr     error
	SetWindowPosErr  error
	SetForegroundErr error
	PostCloseErr     error
	HookErr          error
	UnhookErr        error
	IdleErr          error

	Metrics platform.FrameMetrics

	mu          sync.Mutex
	windows     map[int]mainWindow
	lookups     map[int]int
	clientSizes map[platform.Handle]platform.Size
	parents     map[platform.Handle]platform.Handle
	hooks       map[platform.HookToken]hook
	nextToken   platform.HookToken

	positions   []PosCall
	foreground  []platform.Handle
	closes      []platform.Handle
	reparents   [][2]platform.Handle
	idleWaits   []int
	unhooked    []platform.HookToken
	windowAfter map[int]int
}

// NewWindowSystem returns an empty fake with typical frame metrics
func NewWindowSystem() *WindowSystem {
	return &WindowSystem{
		Metrics:     platform.FrameMetrics{BorderWidth: 8, BorderHeight: 8, CaptionHeight: 23},
		windows:     make(map[int]mainWindow),
		lookups:     make(map[int]int),
		clientSizes: make(map[platform.Handle]platform.Size),
		parents:     make(map[platform.Handle]platform.Handle),
		hooks:       make(map[platform.HookToken]hook),
		windowAfter: make(map[int]int),
	}
}

// SetMainWindow makes h with title the main window of pid
func (f *WindowSystem) SetMainWindow(pid int, h platform.Handle, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[pid] = mainWindow{handle: h, title: title}
}

// RevealAfter hides pid's main window for the first n lookups
func (f *WindowSystem) RevealAfter(pid, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windowAfter[pid] = n
}

// SetClientSize sets the client size reported for h
func (f *WindowSystem) SetClientSize(h platform.Handle, s platform.Size) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clientSizes[h] = s
}

func (f *WindowSystem) MainWindow(pid int) (platform.Handle, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookups[pid]++
	if f.lookups[pid] <= f.windowAfter[pid] {
		return 0, "", nil
	}
	w := f.windows[pid]
	// a re-parented window is a child and no longer a top-level candidate
	if !f.parents[w.handle].IsZero() {
		return 0, "", nil
	}
	return w.handle, w.title, nil
}

func (f *WindowSystem) WaitForInputIdle(pid int, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idleWaits = append(f.idleWaits, pid)
	return f.IdleErr
}

func (f *WindowSystem) SetParent(child, parent platform.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetParentErr != nil {
		return f.SetParentErr
	}
	f.reparents = append(f.reparents, [2]platform.Handle{child, parent})
	f.parents[child] = parent
	return nil
}

func (f *WindowSystem) SetWindowPos(h platform.Handle, r platform.Rect, flags platform.PosFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetWindowPosErr != nil {
		return f.SetWindowPosErr
	}
	f.positions = append(f.positions, PosCall{Window: h, Rect: r, Flags: flags})
	return nil
}

func (f *WindowSystem) SetForeground(h platform.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetForegroundErr != nil {
		return f.SetForegroundErr
	}
	f.foreground = append(f.foreground, h)
	return nil
}

func (f *WindowSystem) PostClose(h platform.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PostCloseErr != nil {
		return f.PostCloseErr
	}
	f.closes = append(f.closes, h)
	return nil
}

func (f *WindowSystem) ClientSize(h platform.Handle) (platform.Size, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.clientSizes[h]
	if !ok {
		return platform.Size{}, errors.New("no such window")
	}
	return s, nil
}

func (f *WindowSystem) Parent(h platform.Handle) (platform.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parents[h], nil
}

func (f *WindowSystem) FrameMetrics() platform.FrameMetrics {
	return f.Metrics
}

func (f *WindowSystem) HookMoveSizeEnd(pid int, fn func(platform.Event)) (platform.HookToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.HookErr != nil {
		return 0, f.HookErr
	}
	f.nextToken++
	f.hooks[f.nextToken] = hook{pid: pid, fn: fn}
	return f.nextToken, nil
}

func (f *WindowSystem) Unhook(token platform.HookToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unhooked = append(f.unhooked, token)
	delete(f.hooks, token)
	return f.UnhookErr
}

// Fire delivers e to every hook installed for pid, on the caller's goroutine
func (f *WindowSystem) Fire(pid int, e platform.Event) {
	f.mu.Lock()
	var fns []func(platform.Event)
	for _, h := range f.hooks {
		if h.pid == pid {
			fns = append(fns, h.fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// ActiveHooks returns the number of installed hooks
func (f *WindowSystem) ActiveHooks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hooks)
}

// Unhooked returns the tokens passed to Unhook
func (f *WindowSystem) Unhooked() []platform.HookToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.HookToken(nil), f.unhooked...)
}

// Positions returns the recorded SetWindowPos calls
func (f *WindowSystem) Positions() []PosCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PosCall(nil), f.positions...)
}

// ResetPositions forgets recorded SetWindowPos calls
func (f *WindowSystem) ResetPositions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = nil
}

// Closes returns the windows PostClose was called with
func (f *WindowSystem) Closes() []platform.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Handle(nil), f.closes...)
}

// Reparents returns the recorded (child, parent) pairs
func (f *WindowSystem) Reparents() [][2]platform.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]platform.Handle(nil), f.reparents...)
}

// Foregrounded returns the windows brought to the foreground
func (f *WindowSystem) Foregrounded() []platform.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Handle(nil), f.foreground...)
}

// Lookups returns how often MainWindow was asked about pid
func (f *WindowSystem) Lookups(pid int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[pid]
}

// IdleWaits returns the pids WaitForInputIdle was called with
func (f *WindowSystem) IdleWaits() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.idleWaits...)
}

// Container is a fake platform.Container with a settable size
type Container struct {
	mu     sync.Mutex
	handle platform.Handle
	parent platform.Handle
	size   platform.Size
}

// NewContainer returns a container window h with parent and size
func NewContainer(h, parent platform.Handle, size platform.Size) *Container {
	return &Container{handle: h, parent: parent, size: size}
}

func (c *Container) Handle() platform.Handle       { return c.handle }
func (c *Container) ParentHandle() platform.Handle { return c.parent }

func (c *Container) Size() platform.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// SetSize changes the reported size
func (c *Container) SetSize(s platform.Size) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = s
}
