package embed

import (
	"fmt"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/arguments"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/tools"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/logging"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/types"
	"go.uber.org/zap"
)

// Launcher starts external tools for connections. File name, arguments and
// working directory are expanded against the connection before launch.
type Launcher struct {
	launcher platform.Launcher
	breakers *resilience.Group
	env      func(string) (string, bool)
	logger   *logging.Logger
}

// NewLauncher wraps a platform launcher
func NewLauncher(l platform.Launcher) *Launcher {
	return &Launcher{launcher: l, logger: logging.NewNop()}
}

// WithBreakers fails launches fast for tools that keep failing to start
func (l *Launcher) WithBreakers(g *resilience.Group) *Launcher {
	l.breakers = g
	return l
}

// WithEnv replaces the environment used for unknown placeholders
func (l *Launcher) WithEnv(lookup func(string) (string, bool)) *Launcher {
	l.env = lookup
	return l
}

// WithLogger sets the logger
func (l *Launcher) WithLogger(logger *logging.Logger) *Launcher {
	l.logger = logging.OrNop(logger).Component("launcher")
	return l
}

// Command expands tool's templates for conn
func (l *Launcher) Command(tool tools.Tool, conn *types.Connection) platform.Command {
	p := arguments.New(conn)
	if l.env != nil {
		p.WithEnv(l.env)
	}
	return platform.Command{
		FileName:   p.Parse(tool.FileName),
		Arguments:  p.Parse(tool.Arguments),
		WorkingDir: p.Parse(tool.WorkingDir),
		Elevated:   tool.RunElevated,
	}
}

// Start launches tool for conn. Errors wrap ErrLaunch.
func (l *Launcher) Start(tool tools.Tool, conn *types.Connection) (platform.Process, error) {
	cmd := l.Command(tool, conn)

	var proc platform.Process
	run := func() error {
		var err error
		proc, err = l.launcher.Start(cmd)
		return err
	}

	var err error
	if l.breakers != nil {
		err = l.breakers.Get(tool.DisplayName).Execute(run)
	} else {
		err = run()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLaunch, tool.DisplayName, err)
	}

	l.logger.Info("tool started",
		zap.String("tool", tool.DisplayName),
		zap.String("file", cmd.FileName),
		zap.Bool("elevated", cmd.Elevated),
		zap.Int("pid", proc.PID()))
	return proc, nil
}

// Detach launches tool for conn without keeping the process
func (l *Launcher) Detach(tool tools.Tool, conn *types.Connection) error {
	proc, err := l.Start(tool, conn)
	if err != nil {
		return err
	}
	if err := proc.Release(); err != nil {
		l.logger.Warn("release detached process", zap.String("tool", tool.DisplayName), zap.Error(err))
	}
	return nil
}
