// Package main implements the dynamic-graph daemon. It builds an entity
// graph from configuration, runs the evaluation loop at the configured
// control period, and exposes the running graph through Prometheus
// metrics and the NATS remote API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nim65s/dynamic-graph/config"
	"github.com/nim65s/dynamic-graph/dot"
	"github.com/nim65s/dynamic-graph/engine"
	"github.com/nim65s/dynamic-graph/entities"
	"github.com/nim65s/dynamic-graph/entity"
	"github.com/nim65s/dynamic-graph/health"
	"github.com/nim65s/dynamic-graph/logger"
	"github.com/nim65s/dynamic-graph/metric"
	"github.com/nim65s/dynamic-graph/natsclient"
	"github.com/nim65s/dynamic-graph/remote"
	"github.com/nim65s/dynamic-graph/service"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "dg"
)

// healthInterval is how often the monitor snapshots component health
// and the engine's terminal states are checked.
const healthInterval = 5 * time.Second

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Daemon failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, slogger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid", "graph", cfg.Graph.Name)
		return nil
	}

	reg := entity.NewRegistry()
	if err := entities.Register(reg); err != nil {
		return fmt.Errorf("register entity classes: %w", err)
	}

	metricsRegistry := metric.NewMetricsRegistry()

	if cliCfg.DryRun {
		return dryRun(cfg, reg, slogger, metricsRegistry)
	}

	ctx := context.Background()
	natsClient, err := connectNATS(ctx, cfg, metricsRegistry)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer func() { _ = natsClient.Close(ctx) }()
	}

	eng, err := buildEngine(cfg, reg, slogger, metricsRegistry, natsClient)
	if err != nil {
		return err
	}

	monitor := health.NewMonitor()

	remoteServer, err := buildRemoteServer(cfg, reg, natsClient, eng, monitor, slogger, metricsRegistry)
	if err != nil {
		return err
	}

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
	}

	return supervise(ctx, cliCfg, slogger, eng, remoteServer, metricsServer, monitor, natsClient)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	slogger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(slogger)

	slog.Info("Starting dynamic-graph daemon",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, slogger, false, nil
}

// loadConfiguration loads the config file (or bare defaults when no
// file is given) and applies the CLI overrides on top.
func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.NATSURL != "" {
		cfg.NATS.URLs = []string{cliCfg.NATSURL}
	}
	if cliCfg.MetricsPort != 0 {
		cfg.Metrics.Port = cliCfg.MetricsPort
	}

	return cfg, nil
}

// dryRun builds the graph, renders it as DOT on stdout and exits
// without starting anything.
func dryRun(cfg *config.Config, reg *entity.Registry, slogger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry) error {
	if _, err := engine.FromConfig(cfg, reg, slogger, metricsRegistry); err != nil {
		return fmt.Errorf("build graph: %w", err)
	}
	if err := dot.Write(cfg.Graph.Name, reg, os.Stdout); err != nil {
		return fmt.Errorf("render graph: %w", err)
	}
	return nil
}

// connectNATS connects when the remote API wants a broker. The engine
// runs fine without one.
func connectNATS(ctx context.Context, cfg *config.Config,
	metricsRegistry *metric.MetricsRegistry) (*natsclient.Client, error) {
	if !cfg.Remote.Enabled {
		slog.Info("Remote API disabled, skipping NATS connection")
		return nil, nil
	}

	url := "nats://localhost:4222"
	if len(cfg.NATS.URLs) > 0 {
		url = cfg.NATS.URLs[0]
	}

	opts := []natsclient.ClientOption{
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithMetrics(metricsRegistry),
	}
	if cfg.NATS.Name != "" {
		opts = append(opts, natsclient.WithName(cfg.NATS.Name))
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}

	client, err := natsclient.NewClient(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("Connecting to NATS", "url", url)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}

	return client, nil
}

// buildEngine assembles the graph and its evaluation loop. With NATS up,
// entity log streams also publish to the graph's log subject.
func buildEngine(cfg *config.Config, reg *entity.Registry, slogger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry, natsClient *natsclient.Client) (*engine.Engine, error) {
	var sinks []logger.Sink
	if natsClient != nil {
		sinks = append(sinks, logger.NewNATSSink(cfg.Graph.Name, natsClient.GetConnection(), slogger))
	}

	eng, err := engine.FromConfig(cfg, reg, slogger, metricsRegistry, sinks...)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	slog.Info("Graph assembled",
		"graph", eng.Graph(),
		"entities", reg.Size(),
		"terminals", len(eng.Terminals()),
		"period", eng.Period())
	return eng, nil
}

// buildRemoteServer wires the introspection API to the live graph and
// the engine's submit queue.
func buildRemoteServer(cfg *config.Config, reg *entity.Registry, natsClient *natsclient.Client,
	eng *engine.Engine, monitor *health.Monitor, slogger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry) (*remote.Server, error) {
	if !cfg.Remote.Enabled || natsClient == nil {
		return nil, nil
	}

	server, err := remote.NewServer(cfg.Graph.Name, reg, natsClient,
		remote.WithSubjectPrefix(cfg.Remote.SubjectPrefix),
		remote.WithSubmitter(eng),
		remote.WithMonitor(monitor),
		remote.WithLogger(slogger),
		remote.WithMetrics(metricsRegistry),
	)
	if err != nil {
		return nil, fmt.Errorf("create remote server: %w", err)
	}
	return server, nil
}

// supervise runs the engine, metrics endpoint and remote API until a
// shutdown signal arrives or the engine reaches a terminal state.
func supervise(
	ctx context.Context,
	cliCfg *CLIConfig,
	slogger *slog.Logger,
	eng *engine.Engine,
	remoteServer *remote.Server,
	metricsServer *metric.Server,
	monitor *health.Monitor,
	natsClient *natsclient.Client,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	g, gctx := errgroup.WithContext(signalCtx)

	g.Go(func() error {
		if err := eng.Start(gctx); err != nil {
			return fmt.Errorf("start engine: %w", err)
		}
		<-gctx.Done()
		if err := eng.Stop(cliCfg.ShutdownTimeout); err != nil {
			slogger.Warn("Engine stop reported error", "error", err)
		}
		return nil
	})

	if remoteServer != nil {
		g.Go(func() error {
			if err := remoteServer.Start(gctx); err != nil {
				return fmt.Errorf("start remote server: %w", err)
			}
			<-gctx.Done()
			if err := remoteServer.Stop(cliCfg.ShutdownTimeout); err != nil {
				slogger.Warn("Remote server stop reported error", "error", err)
			}
			return nil
		})
	}

	if metricsServer != nil {
		g.Go(func() error {
			slogger.Info("Metrics server listening", "address", metricsServer.Address())
			return metricsServer.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			return metricsServer.Stop()
		})
	}

	g.Go(func() error {
		return watchHealth(gctx, signalCancel, monitor, eng, remoteServer, natsClient)
	})

	slogger.Info("dynamic-graph daemon started", "graph", eng.Graph())

	if err := g.Wait(); err != nil {
		return err
	}
	slogger.Info("Shutdown complete")
	return nil
}

// watchHealth keeps the monitor current and turns engine terminal
// states into daemon shutdown: a failed engine brings the daemon down
// with an error, a finished run (tick budget reached) shuts it down
// cleanly.
func watchHealth(
	ctx context.Context,
	shutdown context.CancelFunc,
	monitor *health.Monitor,
	eng *engine.Engine,
	remoteServer *remote.Server,
	natsClient *natsclient.Client,
) error {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			monitor.Update("engine", eng.Health())
			if remoteServer != nil {
				monitor.Update("remote", remoteServer.Health())
			}
			if natsClient != nil {
				if natsClient.IsHealthy() {
					monitor.UpdateHealthy("nats", "connected")
				} else {
					monitor.UpdateUnhealthy("nats", "connection unhealthy")
				}
			}

			switch eng.Status() {
			case service.StatusFailed:
				return fmt.Errorf("engine failed: %s", eng.Health().Message)
			case service.StatusStopped:
				slog.Info("Engine run complete, shutting down")
				shutdown()
				return nil
			}
		}
	}
}
