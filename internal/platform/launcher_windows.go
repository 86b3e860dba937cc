//go:build windows

package platform

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	shell32             = windows.NewLazySystemDLL("shell32.dll")
	procShellExecuteExW = shell32.NewProc("ShellExecuteExW")
)

const (
	seeMaskNoCloseProcess = 0x00000040
	seeMaskFlagNoUI       = 0x00000400
	swShowNormal          = 1
)

// shellExecuteInfo mirrors SHELLEXECUTEINFOW
type shellExecuteInfo struct {
	cbSize       uint32
	fMask        uint32
	hwnd         uintptr
	verb         *uint16
	file         *uint16
	parameters   *uint16
	directory    *uint16
	show         int32
	instApp      uintptr
	idList       uintptr
	class        *uint16
	keyClass     uintptr
	hotKey       uint32
	iconOrMonior uintptr
	process      windows.Handle
}

// ShellLauncher starts processes through ShellExecuteEx so that documents,
// URLs and elevated launches behave the way the shell would run them.
type ShellLauncher struct {
	ws WindowSystem
}

// NewLauncher returns the native launcher. ws is used to find the main
// window of launched processes when they are asked to close.
func NewLauncher(ws WindowSystem) Launcher {
	return &ShellLauncher{ws: ws}
}

func (l *ShellLauncher) Start(cmd Command) (Process, error) {
	if cmd.FileName == "" {
		return nil, errors.New("no file name to start")
	}

	info := shellExecuteInfo{
		fMask: seeMaskNoCloseProcess | seeMaskFlagNoUI,
		show:  swShowNormal,
	}
	info.cbSize = uint32(unsafe.Sizeof(info))

	var err error
	if info.file, err = windows.UTF16PtrFromString(cmd.FileName); err != nil {
		return nil, err
	}
	if cmd.Arguments != "" {
		if info.parameters, err = windows.UTF16PtrFromString(cmd.Arguments); err != nil {
			return nil, err
		}
	}
	if cmd.WorkingDir != "" {
		if info.directory, err = windows.UTF16PtrFromString(cmd.WorkingDir); err != nil {
			return nil, err
		}
	}
	if cmd.Elevated {
		info.verb, _ = windows.UTF16PtrFromString("runas")
	}

	ok, _, callErr := procShellExecuteExW.Call(uintptr(unsafe.Pointer(&info)))
	if ok == 0 {
		return nil, fmt.Errorf("ShellExecuteEx %q: %w", cmd.FileName, callErr)
	}
	if info.process == 0 {
		// the shell handed the request to an already running instance
		return nil, fmt.Errorf("ShellExecuteEx %q: no process handle returned", cmd.FileName)
	}

	pid, err := windows.GetProcessId(info.process)
	if err != nil {
		windows.CloseHandle(info.process)
		return nil, fmt.Errorf("GetProcessId: %w", err)
	}

	p := &shellProcess{
		ws:     l.ws,
		handle: info.process,
		pid:    int(pid),
		done:   make(chan struct{}),
	}
	go p.wait()
	return p, nil
}

// shellProcess owns the process handle returned by ShellExecuteEx. The
// handle is closed once the process has exited.
type shellProcess struct {
	ws  WindowSystem
	pid int

	mu     sync.Mutex
	handle windows.Handle
	window Handle
	exited bool
	done   chan struct{}
}

func (p *shellProcess) wait() {
	windows.WaitForSingleObject(p.handle, windows.INFINITE)

	p.mu.Lock()
	p.exited = true
	windows.CloseHandle(p.handle)
	p.handle = 0
	p.mu.Unlock()

	close(p.done)
}

func (p *shellProcess) PID() int { return p.pid }

func (p *shellProcess) Done() <-chan struct{} { return p.done }

func (p *shellProcess) HasExited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *shellProcess) SetMainWindow(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.window = h
}

func (p *shellProcess) CloseMainWindow() error {
	p.mu.Lock()
	exited, hwnd := p.exited, p.window
	p.mu.Unlock()

	if exited {
		return nil
	}
	if hwnd.IsZero() {
		var err error
		if hwnd, _, err = p.ws.MainWindow(p.pid); err != nil {
			return err
		}
	}
	if hwnd.IsZero() {
		return fmt.Errorf("process %d has no main window", p.pid)
	}
	return p.ws.PostClose(hwnd)
}

func (p *shellProcess) WaitForExit(timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *shellProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exited {
		return nil
	}
	if err := windows.TerminateProcess(p.handle, 1); err != nil {
		return fmt.Errorf("TerminateProcess %d: %w", p.pid, err)
	}
	return nil
}

// Release detaches from the process. The handle itself is closed by the
// wait goroutine when the process exits.
func (p *shellProcess) Release() error {
	return nil
}
