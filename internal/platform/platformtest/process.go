package platformtest

import (
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
)

// Process is a fake platform.Process. By default it ignores graceful close
// requests and exits when killed. A process started by a Launcher with
// windows posts its close through that WindowSystem, so a close fails the
// way it would natively once the window can no longer be found.
type Process struct {
	// ExitOnClose makes CloseMainWindow end the process
	ExitOnClose bool
	// IgnoreKill makes Kill leave the process running
	IgnoreKill bool

	CloseErr   error
	KillErr    error
	ReleaseErr error
	// PanicOn names a step ("close", "kill", "release") that panics
	PanicOn string

	pid int

	mu       sync.Mutex
	windows  *WindowSystem
	window   platform.Handle
	exited   bool
	done     chan struct{}
	closes   int
	kills    int
	releases int
	events   []string
}

// NewProcess returns a running fake process
func NewProcess(pid int) *Process {
	return &Process{pid: pid, done: make(chan struct{})}
}

func (p *Process) PID() int { return p.pid }

func (p *Process) Done() <-chan struct{} { return p.done }

func (p *Process) HasExited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

// Exit ends the process as if it quit on its own
func (p *Process) Exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exitLocked()
}

func (p *Process) exitLocked() {
	if !p.exited {
		p.exited = true
		close(p.done)
	}
}

// WithWindows makes close requests go through ws
func (p *Process) WithWindows(ws *WindowSystem) *Process {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.windows = ws
	return p
}

func (p *Process) SetMainWindow(h platform.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.window = h
}

func (p *Process) CloseMainWindow() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closes++
	if p.PanicOn == "close" {
		panic("close main window")
	}
	if p.CloseErr != nil {
		return p.CloseErr
	}
	if p.windows != nil {
		h := p.window
		if h.IsZero() {
			h, _, _ = p.windows.MainWindow(p.pid)
		}
		if h.IsZero() {
			return fmt.Errorf("process %d has no main window", p.pid)
		}
		if err := p.windows.PostClose(h); err != nil {
			return err
		}
		p.events = append(p.events, fmt.Sprintf("close %#x", uintptr(h)))
	} else {
		p.events = append(p.events, "close")
	}
	if p.ExitOnClose {
		p.exitLocked()
	}
	return nil
}

func (p *Process) WaitForExit(timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *Process) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.kills++
	p.events = append(p.events, "kill")
	if p.PanicOn == "kill" {
		panic("kill")
	}
	if p.KillErr != nil {
		return p.KillErr
	}
	if !p.IgnoreKill {
		p.exitLocked()
	}
	return nil
}

func (p *Process) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.releases++
	p.events = append(p.events, "release")
	if p.PanicOn == "release" {
		panic("release")
	}
	return p.ReleaseErr
}

// Calls returns how often close, kill and release were called
func (p *Process) Calls() (closes, kills, releases int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes, p.kills, p.releases
}

// Events returns the termination steps taken, in order. A close that
// reached a window is recorded with its handle, as in "close 0xabc".
func (p *Process) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// Launcher is a fake platform.Launcher. Each Start returns the next queued
// process, or a new one with an increasing pid.
type Launcher struct {
	Err error

	mu      sync.Mutex
	windows *WindowSystem
	queue   []*Process
	started []platform.Command
	procs   []*Process
	nextPID int
}

// NewLauncher returns a launcher whose processes start at pid 1000
func NewLauncher() *Launcher {
	return &Launcher{nextPID: 1000}
}

// WithWindows links every process started from now on to ws
func (l *Launcher) WithWindows(ws *WindowSystem) *Launcher {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows = ws
	return l
}

// Queue makes the following Start calls return procs in order
func (l *Launcher) Queue(procs ...*Process) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, procs...)
}

func (l *Launcher) Start(cmd platform.Command) (platform.Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.started = append(l.started, cmd)
	if l.Err != nil {
		return nil, l.Err
	}

	var p *Process
	if len(l.queue) > 0 {
		p, l.queue = l.queue[0], l.queue[1:]
	} else {
		l.nextPID++
		p = NewProcess(l.nextPID)
	}
	if l.windows != nil {
		p.mu.Lock()
		if p.windows == nil {
			p.windows = l.windows
		}
		p.mu.Unlock()
	}
	l.procs = append(l.procs, p)
	return p, nil
}

// Started returns every command passed to Start
func (l *Launcher) Started() []platform.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]platform.Command(nil), l.started...)
}

// Processes returns every process handed out
func (l *Launcher) Processes() []*Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Process(nil), l.procs...)
}
