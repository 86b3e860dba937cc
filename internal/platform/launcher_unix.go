//go:build unix

package platform

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ExecLauncher starts processes through /bin/sh so the argument string is
// split the way a shell would split it. Elevation is not supported and the
// flag is ignored.
type ExecLauncher struct {
	ws WindowSystem
}

// NewLauncher returns the launcher for this platform
func NewLauncher(ws WindowSystem) Launcher {
	return &ExecLauncher{ws: ws}
}

func (l *ExecLauncher) Start(c Command) (Process, error) {
	if c.FileName == "" {
		return nil, errors.New("no file name to start")
	}

	line := "exec '" + strings.ReplaceAll(c.FileName, "'", `'\''`) + "'"
	if c.Arguments != "" {
		line += " " + c.Arguments
	}

	cmd := exec.Command("/bin/sh", "-c", line)
	cmd.Dir = c.WorkingDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %q: %w", c.FileName, err)
	}

	p := &execProcess{ws: l.ws, cmd: cmd, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

type execProcess struct {
	ws  WindowSystem
	cmd *exec.Cmd

	mu     sync.Mutex
	window Handle
	exited bool
	done   chan struct{}
}

func (p *execProcess) wait() {
	_ = p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()

	close(p.done)
}

func (p *execProcess) PID() int { return p.cmd.Process.Pid }

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) HasExited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *execProcess) SetMainWindow(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.window = h
}

// CloseMainWindow posts a close to the recorded window, or to the main
// window the window system can find, and falls back to SIGTERM.
func (p *execProcess) CloseMainWindow() error {
	p.mu.Lock()
	exited, hwnd := p.exited, p.window
	p.mu.Unlock()

	if exited {
		return nil
	}
	if hwnd.IsZero() {
		hwnd, _, _ = p.ws.MainWindow(p.PID())
	}
	if !hwnd.IsZero() {
		return p.ws.PostClose(hwnd)
	}
	return p.signal(syscall.SIGTERM)
}

func (p *execProcess) WaitForExit(timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *execProcess) Kill() error {
	return p.signal(syscall.SIGKILL)
}

func (p *execProcess) signal(sig syscall.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exited {
		return nil
	}
	if err := p.cmd.Process.Signal(sig); err != nil {
		return fmt.Errorf("signal %s to %d: %w", sig, p.PID(), err)
	}
	return nil
}

// Release is a no-op; the wait goroutine reaps the child.
func (p *execProcess) Release() error {
	return nil
}
