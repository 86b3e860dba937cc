package embed

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/logging"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"go.uber.org/zap"
)

// DefaultPlaceholderTitle is the title of the input-method window some
// programs show before their real main window.
const DefaultPlaceholderTitle = "Default IME"

// Acquirer waits for a launched process to show its main window
type Acquirer struct {
	ws          platform.WindowSystem
	clock       Clock
	placeholder string
	logger      *logging.Logger
	metrics     *monitoring.Metrics
}

// NewAcquirer creates an acquirer that rejects windows titled placeholder
func NewAcquirer(ws platform.WindowSystem, placeholder string) *Acquirer {
	return &Acquirer{
		ws:          ws,
		clock:       SystemClock,
		placeholder: placeholder,
		logger:      logging.NewNop(),
	}
}

// WithClock replaces the wall clock, for tests
func (a *Acquirer) WithClock(c Clock) *Acquirer {
	a.clock = c
	return a
}

// WithLogger sets the logger
func (a *Acquirer) WithLogger(l *logging.Logger) *Acquirer {
	a.logger = logging.OrNop(l).Component("acquire")
	return a
}

// WithMetrics adds acquisition latency tracking
func (a *Acquirer) WithMetrics(m *monitoring.Metrics) *Acquirer {
	a.metrics = m
	return a
}

// Acquire polls p for its main window until one with a title other than the
// placeholder appears or timeout has elapsed since the first poll. It never
// returns a zero handle without an error, and never gives up before timeout.
func (a *Acquirer) Acquire(p platform.Process, timeout time.Duration) (platform.Handle, string, error) {
	pid := p.PID()
	start := a.clock.Now()
	deadline := start.Add(timeout)

	var polls int
	var lastErr error
	var skipped bool
	for {
		polls++
		h, title, err := a.ws.MainWindow(pid)
		switch {
		case err != nil:
			lastErr = err
		case h.IsZero():
		case title == a.placeholder:
			if !skipped {
				skipped = true
				a.logger.Debug("skipping placeholder window", zap.Int("pid", pid), zap.Uintptr("hwnd", uintptr(h)))
			}
		default:
			elapsed := a.clock.Now().Sub(start)
			a.metrics.ObserveAcquire(elapsed)
			a.logger.Debug("main window acquired",
				zap.Int("pid", pid),
				zap.Uintptr("hwnd", uintptr(h)),
				zap.String("title", title),
				zap.Int("polls", polls),
				zap.Duration("elapsed", elapsed))
			return h, title, nil
		}

		if !a.clock.Now().Before(deadline) {
			break
		}
		a.clock.Yield()
	}

	a.metrics.ObserveAcquire(a.clock.Now().Sub(start))
	err := fmt.Errorf("%w: process %d after %s", ErrAcquisitionTimeout, pid, timeout)
	if lastErr != nil {
		err = fmt.Errorf("%w: last error: %w", err, lastErr)
	}
	return 0, "", err
}
