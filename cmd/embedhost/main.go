package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/connection"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/embed"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/tools"
	handlers "github.com/GriffinCanCode/AgentOS/hostembed/internal/http"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/logging"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/messages"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/server"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/types"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type options struct {
	container   string
	addr        string
	dev         bool
	passwordEnv string
	conn        types.Connection
}

func parseFlags(args []string) (*options, error) {
	var o options
	fs := flag.NewFlagSet("embedhost", flag.ContinueOnError)
	fs.StringVar(&o.conn.ExternalTool, "tool", "", "External tool to launch (catalog display name)")
	fs.StringVar(&o.container, "container", "", "Native handle of the host container window, decimal or 0x hex")
	fs.StringVar(&o.conn.Name, "name", "", "Connection name")
	fs.StringVar(&o.conn.Hostname, "host", "", "Remote hostname")
	fs.IntVar(&o.conn.Port, "port", 0, "Remote port")
	fs.StringVar(&o.conn.Username, "user", "", "Username")
	fs.StringVar(&o.conn.Domain, "domain", "", "Domain")
	fs.StringVar(&o.conn.Description, "description", "", "Description")
	fs.StringVar(&o.conn.MacAddress, "mac", "", "MAC address")
	fs.StringVar(&o.conn.UserField, "userfield", "", "Free-form user field")
	fs.StringVar(&o.passwordEnv, "password-env", "HOSTEMBED_PASSWORD", "Environment variable holding the password")
	fs.StringVar(&o.addr, "addr", "", "Status API address, overrides SERVER_ADDR")
	fs.BoolVar(&o.dev, "dev", false, "Development logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if o.conn.ExternalTool == "" {
		return nil, errors.New("-tool is required")
	}
	o.conn.Password = os.Getenv(o.passwordEnv)
	return &o, nil
}

// parseHandle reads a native window handle in decimal or 0x hex form
func parseHandle(s string) (platform.Handle, error) {
	if s == "" {
		return 0, errors.New("-container is required")
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid container handle %q", s)
	}
	return platform.Handle(v), nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	logCfg := logging.Config{Level: cfg.Logging.Level, Development: opts.dev || cfg.Logging.Development}
	if opts.dev {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	containerHandle, err := parseHandle(opts.container)
	if err != nil {
		return err
	}

	catalog, err := tools.Load(cfg.Tools.Path, cfg.Tools.Pattern)
	if err != nil {
		return err
	}
	logger.Info("tool catalog loaded", zap.String("path", cfg.Tools.Path), zap.Int("tools", catalog.Len()))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)

	breakers := resilience.NewGroup(resilience.Settings{
		Failures: cfg.Launch.BreakerFailures,
		Cooldown: cfg.Launch.BreakerCooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("launch breaker state changed",
				zap.String("tool", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	ws := platform.NewWindowSystem()
	collector := messages.NewCollector(logger, messages.DefaultCapacity)
	host := embed.NewHost(cfg.Embed, ws, platform.NewLauncher(ws), catalog, collector).
		WithLogger(logger).
		WithMetrics(metrics).
		WithBreakers(breakers)
	manager := connection.NewManager(host).WithLogger(logger)

	errChan := make(chan error, 1)
	var srv *server.Server
	if cfg.Server.Addr != "" {
		if !opts.dev {
			gin.SetMode(gin.ReleaseMode)
		}
		srv = server.NewServer(cfg.Server, handlers.NewHandlers(manager, collector, catalog, metrics), metrics, reg, logger)
		go func() {
			if err := srv.Run(); err != nil {
				errChan <- err
			}
		}()
	}

	closed := make(chan struct{}, 1)
	manager.OnClosed(func(id.ConnectionID) {
		select {
		case closed <- struct{}{}:
		default:
		}
	})

	info, err := manager.Open(&opts.conn, platform.NewWindowContainer(ws, containerHandle))
	switch {
	case errors.Is(err, embed.ErrNonIntegrated):
		logger.Info("tool started without integration", zap.String("tool", opts.conn.ExternalTool))
		return shutdown(cfg, manager, srv, logger)
	case err != nil:
		_ = shutdown(cfg, manager, srv, logger)
		return err
	}
	logger.Info("connection embedded",
		zap.String("id", info.ID.String()),
		zap.String("tool", info.Tool),
		zap.Uintptr("hwnd", uintptr(info.Window)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutting down")
		return shutdown(cfg, manager, srv, logger)
	case err := <-errChan:
		_ = shutdown(cfg, manager, srv, logger)
		return fmt.Errorf("status API: %w", err)
	case <-closed:
		logger.Info("embedded program exited")
		return shutdown(cfg, manager, srv, logger)
	}
}

// shutdown closes every connection, then the status API
func shutdown(cfg *config.Config, manager *connection.Manager, srv *server.Server, logger *logging.Logger) error {
	timeout := cfg.Embed.MaxWait + cfg.Embed.KillWait + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := manager.CloseAll(ctx)
	if err != nil {
		logger.Warn("connections left open", zap.Error(err))
	}
	if srv != nil {
		if serr := srv.Close(ctx); serr != nil {
			logger.Warn("status API shutdown", zap.Error(serr))
		}
	}
	return err
}
