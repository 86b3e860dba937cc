package embed

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/tools"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/logging"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/messages"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/types"
	"go.uber.org/zap"
)

// State is an instance's lifecycle state
type State int

const (
	StateUninitialized State = iota
	StateAcquiring
	StateEmbedded
	StateConnected
	StateClosing
	StateClosed
)

// String returns the lowercase state name
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAcquiring:
		return "acquiring"
	case StateEmbedded:
		return "embedded"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Messages reported to the sink
const (
	msgConnectionFailed = "Connection failed"
	msgFocusFailed      = "Focusing the integrated application failed"
	msgResizeFailed     = "Resizing the integrated application failed"
	msgUnhookFailed     = "Removing the move/resize hook failed"
)

var errInterrupted = errors.New("closed while connecting")

// Instance embeds one external tool window for one connection. Connect
// blocks for up to the host's max wait and cannot be cancelled; call it off
// any goroutine that must stay responsive. Focus, Resize and Close may be
// called from any goroutine.
type Instance struct {
	id        id.InstanceID
	host      *Host
	conn      *types.Connection
	container platform.Container
	logger    *logging.Logger

	mu            sync.Mutex
	state         State              // Protected by mu
	tool          *tools.Tool        // Protected by mu
	process       platform.Process   // Protected by mu
	handle        platform.Handle    // Protected by mu
	title         string             // Protected by mu
	hook          platform.HookToken // Protected by mu
	nonIntegrated bool               // Protected by mu
	lastErr       error              // Protected by mu
	listeners     []func(*Instance)  // Protected by mu

	// unix nanoseconds of the last self-initiated resize
	lastResize atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	closed   sync.Once
}

func zapInstance(i *Instance) zap.Field {
	return zap.String("instance", i.id.String())
}

// ID returns the instance id
func (i *Instance) ID() id.InstanceID { return i.id }

// Connection returns the connection the instance was created for
func (i *Instance) Connection() *types.Connection { return i.conn }

// State returns the current lifecycle state
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Handle returns the embedded window, or zero before embedding and after Close
func (i *Instance) Handle() platform.Handle {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.handle
}

// Title returns the embedded window's title at acquisition
func (i *Instance) Title() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.title
}

// Tool returns the resolved tool, if Initialize or Connect found one
func (i *Instance) Tool() (tools.Tool, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.tool == nil {
		return tools.Tool{}, false
	}
	return *i.tool, true
}

// LastError returns why the last Initialize or Connect returned false.
// errors.Is(err, ErrNonIntegrated) identifies the benign case.
func (i *Instance) LastError() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastErr
}

// NonIntegrated reports whether Connect started the tool without embedding it
func (i *Instance) NonIntegrated() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.nonIntegrated
}

// LastResize is when the instance last changed its window's geometry
func (i *Instance) LastResize() time.Time {
	n := i.lastResize.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// OnClosed registers fn to run once the instance is closed, whether by Close
// or because the foreign process exited. Listeners run at most once.
func (i *Instance) OnClosed(fn func(*Instance)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, fn)
}

// Initialize resolves the connection's external tool. A connection without a
// tool name initializes without one. It returns false if the tool is unknown.
func (i *Instance) Initialize() bool {
	if !i.conn.HasTool() {
		return true
	}
	_, err := i.resolveTool()
	if err != nil {
		i.host.sink.AddMessage(messages.Error, fmt.Sprintf("Could not find external tool: %s", i.conn.ExternalTool))
		i.setError(err)
		i.host.metrics.RecordConnect(monitoring.OutcomeConfigError)
		return false
	}
	return true
}

func (i *Instance) resolveTool() (tools.Tool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.tool != nil {
		return *i.tool, nil
	}
	if !i.conn.HasTool() {
		return tools.Tool{}, fmt.Errorf("%w: connection names no tool", ErrToolNotFound)
	}
	tool, ok := i.host.tools.Lookup(i.conn.ExternalTool)
	if !ok {
		return tools.Tool{}, fmt.Errorf("%w: %q", ErrToolNotFound, i.conn.ExternalTool)
	}
	i.tool = &tool
	return tool, nil
}

// Connect launches the tool and embeds its main window into the container.
// It returns true once the instance is Connected. On false the instance is
// Closed with no window registered and no hook installed; LastError tells a
// failure apart from a tool configured to run without integration.
func (i *Instance) Connect() bool {
	i.mu.Lock()
	if i.state != StateUninitialized {
		state := i.state
		i.mu.Unlock()
		i.setError(fmt.Errorf("connect in state %s", state))
		return false
	}
	i.state = StateAcquiring
	i.mu.Unlock()

	tool, err := i.resolveTool()
	if err != nil {
		i.host.sink.AddExceptionMessage(msgConnectionFailed, err)
		i.abort(nil, err, monitoring.OutcomeConfigError)
		return false
	}

	sink := i.host.sink
	sink.AddMessage(messages.Information, "Attempting to start: "+tool.DisplayName)

	if !tool.TryIntegrate {
		return i.startDetached(tool)
	}

	proc, err := i.host.launcher.Start(tool, i.conn)
	if err != nil {
		sink.AddExceptionMessage(msgConnectionFailed, err)
		i.abort(nil, err, monitoring.OutcomeLaunchError)
		return false
	}
	log := i.logger.With(zap.String("tool", tool.DisplayName), zap.Int("pid", proc.PID()))

	if err := i.host.ws.WaitForInputIdle(proc.PID(), i.host.maxWait); err != nil {
		log.Debug("process not input idle", zap.Error(err))
	}

	handle, title, err := i.host.acquirer.Acquire(proc, i.host.maxWait)
	if err != nil {
		sink.AddExceptionMessage(msgConnectionFailed, err)
		i.abort(proc, err, monitoring.OutcomeTimeout)
		return false
	}
	proc.SetMainWindow(handle)

	i.mu.Lock()
	if i.state != StateAcquiring {
		i.mu.Unlock()
		i.abort(proc, errInterrupted, monitoring.OutcomeEmbedError)
		return false
	}
	i.state = StateEmbedded
	i.handle = handle
	i.title = title
	i.mu.Unlock()

	if err := Embed(i.host.ws, handle, i.container.Handle()); err != nil {
		sink.AddExceptionMessage(msgConnectionFailed, err)
		i.abort(proc, err, monitoring.OutcomeEmbedError)
		return false
	}

	sink.AddMessage(messages.Information, "Integrated the external application into the connection panel")
	sink.AddMessage(messages.Information, fmt.Sprintf("Application handle: %#x", uintptr(handle)))
	sink.AddMessage(messages.Information, "Application title: "+title)
	sink.AddMessage(messages.Information, fmt.Sprintf("Panel parent handle: %#x", uintptr(i.container.ParentHandle())))

	i.stampResize()
	i.fit(handle, monitoring.ResizeConnect)

	if err := i.host.bus.Register(handle, i); err != nil {
		sink.AddExceptionMessage(msgConnectionFailed, err)
		i.abort(proc, err, monitoring.OutcomeEmbedError)
		return false
	}

	token, err := i.host.bus.Hook(proc.PID())
	if err != nil {
		i.host.bus.Unregister(handle)
		sink.AddExceptionMessage(msgConnectionFailed, err)
		i.abort(proc, err, monitoring.OutcomeHookError)
		return false
	}

	i.mu.Lock()
	if i.state != StateEmbedded {
		i.mu.Unlock()
		i.host.bus.Unregister(handle)
		_ = i.host.bus.Unhook(token)
		i.abort(proc, errInterrupted, monitoring.OutcomeEmbedError)
		return false
	}
	i.state = StateConnected
	i.process = proc
	i.hook = token
	i.lastErr = nil
	i.mu.Unlock()

	i.host.metrics.RecordConnect(monitoring.OutcomeConnected)
	i.host.metrics.InstanceConnected()
	log.Info("connected", zap.Uintptr("hwnd", uintptr(handle)), zap.String("title", title))

	go i.watch(proc)
	return true
}

// startDetached runs a tool that opts out of embedding and reports the
// benign false
func (i *Instance) startDetached(tool tools.Tool) bool {
	if err := i.host.launcher.Detach(tool, i.conn); err != nil {
		i.host.sink.AddExceptionMessage(msgConnectionFailed, err)
		i.abort(nil, err, monitoring.OutcomeLaunchError)
		return false
	}

	i.host.sink.AddMessage(messages.Information, fmt.Sprintf(
		"Assuming no other errors occurred immediately before this message regarding %s, the next \"closed by user\" message can be ignored",
		tool.DisplayName))

	i.mu.Lock()
	i.nonIntegrated = true
	i.state = StateClosed
	i.lastErr = fmt.Errorf("%w: %s", ErrNonIntegrated, tool.DisplayName)
	i.mu.Unlock()

	i.host.metrics.RecordConnect(monitoring.OutcomeNonIntegrated)
	i.logger.Info("tool started without integration", zap.String("tool", tool.DisplayName))
	return false
}

// abort ends a failed Connect. The launched process, if any, is terminated.
func (i *Instance) abort(proc platform.Process, err error, outcome string) {
	if proc != nil {
		_ = i.host.terminator.Terminate(proc, i.host.maxWait)
	}

	i.mu.Lock()
	i.state = StateClosed
	i.handle = 0
	i.lastErr = err
	i.mu.Unlock()

	i.host.metrics.RecordConnect(outcome)
	i.logger.Warn("connect failed", zap.String("outcome", outcome), zap.Error(err))
}

// watch closes the instance when the foreign process exits on its own
func (i *Instance) watch(proc platform.Process) {
	select {
	case <-proc.Done():
		i.logger.Info("foreign process exited", zap.Int("pid", proc.PID()))
		i.Close()
	case <-i.stop:
	}
}

// Focus gives the embedded window input focus. Failures are reported.
func (i *Instance) Focus() {
	i.mu.Lock()
	h, state := i.handle, i.state
	i.mu.Unlock()

	if state != StateConnected {
		i.host.sink.AddExceptionMessage(msgFocusFailed, ErrNotConnected)
		return
	}
	if err := i.host.ws.SetForeground(h); err != nil {
		i.host.sink.AddExceptionMessage(msgFocusFailed, err)
	}
}

// Resize fits the embedded window to the container's current size. Every
// call stamps the resize time; only a Connected instance moves its window.
func (i *Instance) Resize() {
	i.resize(monitoring.ResizeHost)
}

// Resync re-fits the window after the window system reported an external
// move or resize
func (i *Instance) Resync() {
	i.resize(monitoring.ResizeHook)
}

func (i *Instance) resize(origin string) {
	i.stampResize()

	i.mu.Lock()
	h, state := i.handle, i.state
	i.mu.Unlock()

	if state != StateConnected {
		return
	}
	i.fit(h, origin)
}

func (i *Instance) stampResize() {
	i.lastResize.Store(i.host.clock.Now().UnixNano())
}

// fit applies the container geometry to h. An empty container is skipped.
func (i *Instance) fit(h platform.Handle, origin string) {
	size := i.container.Size()
	if size.IsEmpty() {
		return
	}

	if tool, ok := i.Tool(); ok {
		i.host.sink.AddMessage(messages.Debug, fmt.Sprintf("Resizing: %s", tool.DisplayName))
	}

	r := ComputeGeometry(size, i.host.ws.FrameMetrics())
	if err := ApplyGeometry(i.host.ws, h, r); err != nil {
		i.host.sink.AddExceptionMessage(msgResizeFailed, err)
		return
	}
	i.host.metrics.RecordResize(origin)
	i.logger.Debug("window fitted",
		zap.String("origin", origin),
		zap.Int("width", size.Width),
		zap.Int("height", size.Height))
}

// Close tears the instance down: the window leaves the registry, the
// process is terminated, the hook is removed and OnClosed listeners run.
// It is safe to call in any state and more than once.
func (i *Instance) Close() {
	i.mu.Lock()
	if i.state == StateClosing {
		i.mu.Unlock()
		return
	}
	prev := i.state
	h, proc, token := i.handle, i.process, i.hook
	i.state = StateClosing
	i.process = nil
	i.hook = 0
	i.mu.Unlock()

	i.stopOnce.Do(func() { close(i.stop) })

	// The registry entry goes first so a notification racing with Close
	// finds nothing to re-fit.
	if !h.IsZero() {
		i.host.bus.Unregister(h)
	}
	if proc != nil {
		_ = i.host.terminator.Terminate(proc, i.host.maxWait)
	}
	if err := i.host.bus.Unhook(token); err != nil {
		i.host.sink.AddExceptionMessage(msgUnhookFailed, err)
	}

	i.mu.Lock()
	i.state = StateClosed
	i.handle = 0
	listeners := i.listeners
	i.mu.Unlock()

	if prev == StateConnected {
		i.host.metrics.InstanceClosed()
		i.logger.Info("closed")
	}

	i.closed.Do(func() {
		for _, fn := range listeners {
			fn(i)
		}
	})
}

func (i *Instance) setError(err error) {
	i.mu.Lock()
	i.lastErr = err
	i.mu.Unlock()
}
