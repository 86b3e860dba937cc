//go:build windows

package platform

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetParent            = user32.NewProc("SetParent")
	procGetParent            = user32.NewProc("GetParent")
	procGetWindow            = user32.NewProc("GetWindow")
	procSetWindowPos         = user32.NewProc("SetWindowPos")
	procSetForegroundWindow  = user32.NewProc("SetForegroundWindow")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetClientRect        = user32.NewProc("GetClientRect")
	procGetSystemMetrics     = user32.NewProc("GetSystemMetrics")
	procPostMessageW         = user32.NewProc("PostMessageW")
	procPostThreadMessageW   = user32.NewProc("PostThreadMessageW")
	procPeekMessageW         = user32.NewProc("PeekMessageW")
	procGetMessageW          = user32.NewProc("GetMessageW")
	procTranslateMessage     = user32.NewProc("TranslateMessage")
	procDispatchMessageW     = user32.NewProc("DispatchMessageW")
	procSetWinEventHook      = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent       = user32.NewProc("UnhookWinEvent")
	procWaitForInputIdle     = user32.NewProc("WaitForInputIdle")
)

const (
	gwOwner = 4

	smCyCaption   = 4
	smCxSizeFrame = 32
	smCySizeFrame = 33

	wmClose = 0x0010
	wmApp   = 0x8000

	pmNoRemove = 0x0000

	wineventOutOfContext = 0x0000

	waitTimeout = 0x00000102
)

type point struct{ x, y int32 }

type msg struct {
	hwnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

type rect struct{ left, top, right, bottom int32 }

// Win32 is the WindowSystem backed by user32.
type Win32 struct {
	hooks *hookThread
}

// NewWindowSystem returns the native window system
func NewWindowSystem() WindowSystem {
	return &Win32{hooks: defaultHookThread}
}

// mainWindowQuery is filled by enumWindowsProc. EnumWindows is synchronous,
// so one query at a time is guarded by enumMu.
type mainWindowQuery struct {
	pid   uint32
	found windows.HWND
}

var (
	enumMu    sync.Mutex
	enumQuery *mainWindowQuery

	enumWindowsProc = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid != enumQuery.pid {
			return 1
		}
		owner, _, _ := procGetWindow.Call(uintptr(hwnd), gwOwner)
		if owner != 0 || !windows.IsWindowVisible(hwnd) {
			return 1
		}
		enumQuery.found = hwnd
		return 0
	})
)

// MainWindow mirrors the usual "main window" rule: the first visible,
// unowned top-level window of the process.
func (w *Win32) MainWindow(pid int) (Handle, string, error) {
	enumMu.Lock()
	enumQuery = &mainWindowQuery{pid: uint32(pid)}
	// EnumWindows reports an error when the callback stops enumeration early.
	_ = windows.EnumWindows(enumWindowsProc, nil)
	found := enumQuery.found
	enumQuery = nil
	enumMu.Unlock()

	if found == 0 {
		return 0, "", nil
	}
	return Handle(found), windowText(found), nil
}

func windowText(hwnd windows.HWND) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

func (w *Win32) WaitForInputIdle(pid int, timeout time.Duration) error {
	h, err := windows.OpenProcess(windows.SYNCHRONIZE|windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	r, _, callErr := procWaitForInputIdle.Call(uintptr(h), uintptr(timeout.Milliseconds()))
	switch uint32(r) {
	case 0:
		return nil
	case waitTimeout:
		return fmt.Errorf("process %d not idle after %s", pid, timeout)
	default:
		return fmt.Errorf("WaitForInputIdle: %w", callErr)
	}
}

func (w *Win32) SetParent(child, parent Handle) error {
	r, _, err := procSetParent.Call(uintptr(child), uintptr(parent))
	if r == 0 && !errors.Is(err, windows.ERROR_SUCCESS) {
		return fmt.Errorf("SetParent: %w", err)
	}
	return nil
}

func (w *Win32) SetWindowPos(h Handle, r Rect, flags PosFlags) error {
	ok, _, err := procSetWindowPos.Call(
		uintptr(h),
		0,
		uintptr(r.X),
		uintptr(r.Y),
		uintptr(r.Width),
		uintptr(r.Height),
		uintptr(flags),
	)
	if ok == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}
	return nil
}

func (w *Win32) SetForeground(h Handle) error {
	ok, _, _ := procSetForegroundWindow.Call(uintptr(h))
	if ok == 0 {
		return fmt.Errorf("SetForegroundWindow refused for window %#x", uintptr(h))
	}
	return nil
}

func (w *Win32) PostClose(h Handle) error {
	ok, _, err := procPostMessageW.Call(uintptr(h), wmClose, 0, 0)
	if ok == 0 {
		return fmt.Errorf("PostMessage(WM_CLOSE): %w", err)
	}
	return nil
}

func (w *Win32) ClientSize(h Handle) (Size, error) {
	var rc rect
	ok, _, err := procGetClientRect.Call(uintptr(h), uintptr(unsafe.Pointer(&rc)))
	if ok == 0 {
		return Size{}, fmt.Errorf("GetClientRect: %w", err)
	}
	return Size{Width: int(rc.right - rc.left), Height: int(rc.bottom - rc.top)}, nil
}

func (w *Win32) Parent(h Handle) (Handle, error) {
	r, _, err := procGetParent.Call(uintptr(h))
	if r == 0 && !errors.Is(err, windows.ERROR_SUCCESS) {
		return 0, fmt.Errorf("GetParent: %w", err)
	}
	return Handle(r), nil
}

func (w *Win32) FrameMetrics() FrameMetrics {
	return FrameMetrics{
		BorderWidth:   systemMetric(smCxSizeFrame),
		BorderHeight:  systemMetric(smCySizeFrame),
		CaptionHeight: systemMetric(smCyCaption),
	}
}

func systemMetric(index uintptr) int {
	r, _, _ := procGetSystemMetrics.Call(index)
	return int(int32(r))
}

func (w *Win32) HookMoveSizeEnd(pid int, fn func(Event)) (HookToken, error) {
	var token HookToken
	var hookErr error

	w.hooks.run(func() {
		h, _, err := procSetWinEventHook.Call(
			uintptr(EventSystemMoveSizeEnd),
			uintptr(EventSystemMoveSizeEnd),
			0,
			winEventProc,
			uintptr(pid),
			0,
			wineventOutOfContext,
		)
		if h == 0 {
			hookErr = fmt.Errorf("SetWinEventHook: %w", err)
			return
		}
		w.hooks.add(h, fn)
		token = HookToken(h)
	})

	return token, hookErr
}

func (w *Win32) Unhook(token HookToken) error {
	if token == 0 {
		return nil
	}

	var unhookErr error
	w.hooks.run(func() {
		w.hooks.remove(uintptr(token))
		ok, _, err := procUnhookWinEvent.Call(uintptr(token))
		if ok == 0 {
			unhookErr = fmt.Errorf("UnhookWinEvent: %w", err)
		}
	})
	return unhookErr
}

// winEventProc is the single native callback shared by every hook; it routes
// to the sink registered for the hook handle.
var winEventProc = windows.NewCallback(func(hook, event, hwnd, idObject, idChild, thread, evtime uintptr) uintptr {
	defaultHookThread.deliver(hook, Event{
		Type:   uint32(event),
		Window: Handle(hwnd),
		Object: int32(idObject),
		Child:  int32(idChild),
		Thread: uint32(thread),
		Time:   uint32(evtime),
	})
	return 0
})

var defaultHookThread = &hookThread{
	reqs:  make(chan func(), 16),
	ready: make(chan struct{}),
	sinks: make(map[uintptr]func(Event)),
}

// hookThread owns the OS thread hooks are installed on and pumps its
// message queue so out-of-context WinEvents get delivered.
type hookThread struct {
	once  sync.Once
	tid   uint32
	reqs  chan func()
	ready chan struct{}

	mu    sync.RWMutex
	sinks map[uintptr]func(Event)
}

func (t *hookThread) start() {
	go func() {
		runtime.LockOSThread()
		t.tid = windows.GetCurrentThreadId()

		// Force creation of the thread's message queue before anyone posts to it.
		var m msg
		procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, wmApp, wmApp, pmNoRemove)
		close(t.ready)

		for {
			r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(r) <= 0 {
				return
			}
			if m.hwnd == 0 && m.message == wmApp {
				t.drain()
				continue
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
		}
	}()
	<-t.ready
}

// run executes fn on the hook thread and waits for it
func (t *hookThread) run(fn func()) {
	t.once.Do(t.start)

	done := make(chan struct{})
	t.reqs <- func() {
		defer close(done)
		fn()
	}
	procPostThreadMessageW.Call(uintptr(t.tid), wmApp, 0, 0)
	<-done
}

func (t *hookThread) drain() {
	for {
		select {
		case fn := <-t.reqs:
			fn()
		default:
			return
		}
	}
}

func (t *hookThread) add(hook uintptr, fn func(Event)) {
	t.mu.Lock()
	t.sinks[hook] = fn
	t.mu.Unlock()
}

func (t *hookThread) remove(hook uintptr) {
	t.mu.Lock()
	delete(t.sinks, hook)
	t.mu.Unlock()
}

func (t *hookThread) deliver(hook uintptr, e Event) {
	t.mu.RLock()
	fn := t.sinks[hook]
	t.mu.RUnlock()

	if fn != nil {
		fn(e)
	}
}
