package embed

import (
	"fmt"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/logging"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/messages"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultKillWait bounds the wait for a killed process to be reaped
const DefaultKillWait = time.Second

// Messages reported when a termination step fails
const (
	msgCloseFailed   = "Closing the integrated application failed"
	msgKillFailed    = "Killing the integrated application failed"
	msgDisposeFailed = "Disposing the integrated application failed"
)

// Terminator ends a foreign process: a polite close of its main window, a
// bounded wait, a forced kill and finally releasing the process. A failing
// step is reported and the next step still runs.
type Terminator struct {
	sink     messages.Sink
	killWait time.Duration
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewTerminator creates a terminator reporting to sink
func NewTerminator(sink messages.Sink, killWait time.Duration) *Terminator {
	if sink == nil {
		sink = messages.Discard{}
	}
	if killWait <= 0 {
		killWait = DefaultKillWait
	}
	return &Terminator{sink: sink, killWait: killWait, logger: logging.NewNop()}
}

// WithLogger sets the logger
func (t *Terminator) WithLogger(l *logging.Logger) *Terminator {
	t.logger = logging.OrNop(l).Component("terminate")
	return t
}

// WithMetrics adds termination tracking
func (t *Terminator) WithMetrics(m *monitoring.Metrics) *Terminator {
	t.metrics = m
	return t
}

// Terminate ends p, waiting up to timeout for it to close on request before
// killing it. It returns every step failure combined; each has already been
// reported to the sink.
func (t *Terminator) Terminate(p platform.Process, timeout time.Duration) error {
	if p == nil {
		return nil
	}
	log := t.logger.With(zap.Int("pid", p.PID()))

	var errs error
	step := func(context string, fn func() error) {
		if err := guard(fn); err != nil {
			t.sink.AddExceptionMessage(context, err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", context, err))
		}
	}

	if p.HasExited() {
		return nil
	}

	step(msgCloseFailed, func() error {
		if err := p.CloseMainWindow(); err != nil {
			return err
		}
		p.WaitForExit(timeout)
		return nil
	})
	if p.HasExited() {
		log.Debug("process closed on request")
		t.metrics.RecordTermination(monitoring.StepGraceful)
		return errs
	}

	step(msgKillFailed, func() error {
		if err := p.Kill(); err != nil {
			return err
		}
		p.WaitForExit(t.killWait)
		return nil
	})
	if p.HasExited() {
		log.Info("process killed after not closing", zap.Duration("timeout", timeout))
		t.metrics.RecordTermination(monitoring.StepKill)
		return errs
	}

	step(msgDisposeFailed, p.Release)
	if errs != nil {
		t.metrics.RecordTermination(monitoring.StepFailed)
	} else {
		t.metrics.RecordTermination(monitoring.StepRelease)
	}
	log.Warn("process still running, released", zap.Error(errs))
	return errs
}

// guard runs fn, turning a panic into an error so later steps still run
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
