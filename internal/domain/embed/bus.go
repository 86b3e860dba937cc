package embed

import (
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/logging"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultResizeGrace is how long after its own resize an instance ignores
// move/resize-end notifications for its window.
const DefaultResizeGrace = 3 * time.Second

// Target is a window registered with the Bus
type Target interface {
	// LastResize is when the target last changed its own geometry
	LastResize() time.Time
	// Resync re-fits the window after an external move or resize
	Resync()
}

// Bus routes window-system move/resize-end notifications to the registered
// instance owning the window. It holds the handle registry shared by every
// instance of a host.
//
// The grace window is a heuristic: an external resize that lands within it
// after the instance's own resize is dropped and not re-fitted.
type Bus struct {
	ws      platform.WindowSystem
	grace   time.Duration
	clock   Clock
	logger  *logging.Logger
	metrics *monitoring.Metrics
	chatter rate.Sometimes

	mu      sync.RWMutex
	targets map[platform.Handle]Target // Protected by mu
}

// NewBus creates a bus that suppresses notifications within grace of a
// target's own resize
func NewBus(ws platform.WindowSystem, grace time.Duration) *Bus {
	return &Bus{
		ws:      ws,
		grace:   grace,
		clock:   SystemClock,
		logger:  logging.NewNop(),
		chatter: rate.Sometimes{First: 5, Interval: 10 * time.Second},
		targets: make(map[platform.Handle]Target),
	}
}

// WithClock replaces the wall clock, for tests
func (b *Bus) WithClock(c Clock) *Bus {
	b.clock = c
	return b
}

// WithLogger sets the logger
func (b *Bus) WithLogger(l *logging.Logger) *Bus {
	b.logger = logging.OrNop(l).Component("bus")
	return b
}

// WithMetrics adds dispatch tracking
func (b *Bus) WithMetrics(m *monitoring.Metrics) *Bus {
	b.metrics = m
	return b
}

// Register maps h to t. A handle can be registered once.
func (b *Bus) Register(h platform.Handle, t Target) error {
	if h.IsZero() {
		return fmt.Errorf("%w: cannot register a zero handle", ErrEmbed)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.targets[h]; exists {
		return fmt.Errorf("%w: window %#x is already registered", ErrEmbed, uintptr(h))
	}
	b.targets[h] = t
	return nil
}

// Unregister removes h and reports whether it was registered
func (b *Bus) Unregister(h platform.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.targets[h]; !exists {
		return false
	}
	delete(b.targets, h)
	return true
}

// Lookup returns the target registered for h
func (b *Bus) Lookup(h platform.Handle) (Target, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.targets[h]
	return t, ok
}

// Len returns the number of registered windows
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.targets)
}

// Hook installs the window-system hook for pid, delivering to Dispatch
func (b *Bus) Hook(pid int) (platform.HookToken, error) {
	token, err := b.ws.HookMoveSizeEnd(pid, b.Dispatch)
	if err != nil {
		return 0, fmt.Errorf("hook move/resize-end for process %d: %w", pid, err)
	}
	b.logger.Debug("hook installed", zap.Int("pid", pid), zap.Uintptr("token", uintptr(token)))
	return token, nil
}

// Unhook removes a hook installed by Hook. A zero token is a no-op.
func (b *Bus) Unhook(token platform.HookToken) error {
	if token == 0 {
		return nil
	}
	if err := b.ws.Unhook(token); err != nil {
		return fmt.Errorf("unhook %#x: %w", uintptr(token), err)
	}
	return nil
}

// Dispatch handles one notification. It may run on a window-system thread
// concurrently with Register and Unregister.
func (b *Bus) Dispatch(e platform.Event) {
	// sub-element notifications, e.g. items inside a list box
	if e.Object != 0 || e.Child != 0 {
		b.record(monitoring.HookIgnoredChild, e)
		return
	}
	if e.Type != platform.EventSystemMoveSizeEnd {
		b.record(monitoring.HookIgnoredType, e)
		return
	}

	t, ok := b.Lookup(e.Window)
	if !ok {
		b.record(monitoring.HookUnknownHandle, e)
		return
	}

	if !b.clock.Now().After(t.LastResize().Add(b.grace)) {
		b.record(monitoring.HookSuppressed, e)
		return
	}

	b.metrics.RecordHookEvent(monitoring.HookResynchronized)
	b.logger.Debug("external move/resize, re-fitting", zap.Uintptr("hwnd", uintptr(e.Window)))
	t.Resync()
}

func (b *Bus) record(result string, e platform.Event) {
	b.metrics.RecordHookEvent(result)
	b.chatter.Do(func() {
		b.logger.Debug("notification ignored",
			zap.String("result", result),
			zap.Uint32("event", e.Type),
			zap.Uintptr("hwnd", uintptr(e.Window)),
			zap.Int32("object", e.Object),
			zap.Int32("child", e.Child))
	})
}
