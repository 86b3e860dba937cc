package embed

import (
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/tools"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/logging"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/messages"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/types"
)

// ToolLookup resolves a tool name to its metadata
type ToolLookup interface {
	Lookup(name string) (tools.Tool, bool)
}

// Host holds the collaborators shared by every embedded instance: the window
// system, the tool catalog, the launcher and one Bus.
type Host struct {
	ws         platform.WindowSystem
	tools      ToolLookup
	sink       messages.Sink
	launcher   *Launcher
	acquirer   *Acquirer
	bus        *Bus
	terminator *Terminator
	clock      Clock
	maxWait    time.Duration
	logger     *logging.Logger
	metrics    *monitoring.Metrics
}

// NewHost creates a host. cfg supplies the wait bounds, the resize grace
// window and the placeholder title; zero fields fall back to defaults.
func NewHost(cfg config.EmbedConfig, ws platform.WindowSystem, launcher platform.Launcher, catalog ToolLookup, sink messages.Sink) *Host {
	if sink == nil {
		sink = messages.Discard{}
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = config.Default().Embed.MaxWait
	}
	if cfg.ResizeGrace <= 0 {
		cfg.ResizeGrace = DefaultResizeGrace
	}
	if cfg.PlaceholderTitle == "" {
		cfg.PlaceholderTitle = DefaultPlaceholderTitle
	}

	return &Host{
		ws:         ws,
		tools:      catalog,
		sink:       sink,
		launcher:   NewLauncher(launcher),
		acquirer:   NewAcquirer(ws, cfg.PlaceholderTitle),
		bus:        NewBus(ws, cfg.ResizeGrace),
		terminator: NewTerminator(sink, cfg.KillWait),
		clock:      SystemClock,
		maxWait:    cfg.MaxWait,
		logger:     logging.NewNop(),
	}
}

// WithLogger sets the logger of the host and its parts
func (h *Host) WithLogger(l *logging.Logger) *Host {
	h.logger = logging.OrNop(l).Component("embed")
	h.launcher.WithLogger(h.logger)
	h.acquirer.WithLogger(h.logger)
	h.bus.WithLogger(h.logger)
	h.terminator.WithLogger(h.logger)
	return h
}

// WithMetrics adds metrics tracking to the host and its parts
func (h *Host) WithMetrics(m *monitoring.Metrics) *Host {
	h.metrics = m
	h.acquirer.WithMetrics(m)
	h.bus.WithMetrics(m)
	h.terminator.WithMetrics(m)
	return h
}

// WithBreakers guards launches with per-tool circuit breakers
func (h *Host) WithBreakers(g *resilience.Group) *Host {
	h.launcher.WithBreakers(g)
	return h
}

// WithEnv replaces the environment used by argument templating
func (h *Host) WithEnv(lookup func(string) (string, bool)) *Host {
	h.launcher.WithEnv(lookup)
	return h
}

// WithClock replaces the wall clock, for tests
func (h *Host) WithClock(c Clock) *Host {
	h.clock = c
	h.acquirer.WithClock(c)
	h.bus.WithClock(c)
	return h
}

// Bus returns the notification bus shared by the host's instances
func (h *Host) Bus() *Bus { return h.bus }

// MaxWait returns the acquisition and termination bound
func (h *Host) MaxWait() time.Duration { return h.maxWait }

// NewInstance creates an uninitialized instance embedding conn's tool into
// container
func (h *Host) NewInstance(conn *types.Connection, container platform.Container) *Instance {
	i := &Instance{
		id:        id.NewInstanceID(),
		host:      h,
		conn:      conn,
		container: container,
		state:     StateUninitialized,
		stop:      make(chan struct{}),
	}
	i.logger = h.logger.With(zapInstance(i))
	return i
}
