// Package main runs the kinetic simulator: a WebSocket server that streams synthetic
// JSON shaped by client-supplied templates, plus the fixed-schema kinetic demo stream.
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

	"github.com/choi857/kinetic-simulator/config"
	"github.com/choi857/kinetic-simulator/generator"
	"github.com/choi857/kinetic-simulator/health"
	"github.com/choi857/kinetic-simulator/metric"
	"github.com/choi857/kinetic-simulator/natsclient"
	"github.com/choi857/kinetic-simulator/output/kinetic"
	"github.com/choi857/kinetic-simulator/output/websocket"
	"github.com/choi857/kinetic-simulator/pkg/worker"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "kinetic-simulator"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

// app is everything the binary starts and stops
type app struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	nats     *natsclient.Client
	sched    *worker.Scheduler
	stream   *websocket.Server
	demo     *kinetic.Broadcaster
	metrics  *metric.Server
}

func run(args []string) error {
	cliCfg, err := parseFlags(args)
	if err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		cliCfg.usage()
		return nil
	}

	logger := setupLogger(os.Stdout, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := config.Load(cliCfg.ConfigPath, cliCfg.ConfigRequired)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	slog.Info("Starting kinetic simulator",
		"version", Version,
		"build_time", BuildTime,
		"port", cfg.Server.Port,
		"path", cfg.Server.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return a.run(ctx, cliCfg.ShutdownTimeout)
}

// setup builds every component; nothing is listening yet when it returns
func setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}

	var core *metric.Metrics
	if cfg.Metrics.Enabled {
		a.registry = metric.NewMetricsRegistry()
		core = a.registry.CoreMetrics()
		a.metrics = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, a.registry)
	}

	var mirror websocket.Mirror
	if cfg.NATS.Enabled {
		opts := []natsclient.ClientOption{
			natsclient.WithName(cfg.NATS.ClientName),
			natsclient.WithLogger(logger),
		}
		if core != nil {
			opts = append(opts, natsclient.WithMetrics(core))
		}
		client, err := natsclient.NewClient(cfg.NATS.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("create NATS client: %w", err)
		}
		slog.Info("Connecting to NATS", "url", cfg.NATS.URL)
		if err := client.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		a.nats = client
		mirror = natsclient.NewMirror(client, cfg.NATS.SubjectPrefix)
	}

	a.sched = worker.NewScheduler(worker.SchedulerConfig{
		Workers:       cfg.Worker.Workers,
		QueueSize:     cfg.Worker.QueueSize,
		Logger:        logger,
		Registry:      a.registry,
		MetricsPrefix: "scheduler",
	})
	if err := a.sched.Start(ctx); err != nil {
		a.closeNATS()
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	stream, err := websocket.NewServer(websocket.Config{
		Port:            cfg.Server.Port,
		Path:            cfg.Server.Path,
		GracePeriod:     cfg.Stream.GracePeriod.D(),
		ReadTimeout:     cfg.Server.ReadTimeout.D(),
		WriteTimeout:    cfg.Server.WriteTimeout.D(),
		PingInterval:    cfg.Server.PingInterval.D(),
		MaxMessageSize:  cfg.Server.MaxMessageSize,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Scheduler:       a.sched,
		Generator:       generator.New(generator.WithLogger(logger)),
		MetricsRegistry: a.registry,
		Mirror:          mirror,
		Logger:          logger,
	})
	if err != nil {
		a.abort()
		return nil, fmt.Errorf("create stream server: %w", err)
	}
	a.stream = stream

	if cfg.Kinetic.Enabled {
		demo, err := kinetic.New(kinetic.Config{
			Path:            cfg.Kinetic.Path,
			Interval:        cfg.Kinetic.Interval.D(),
			WriteTimeout:    cfg.Server.WriteTimeout.D(),
			Scheduler:       a.sched,
			MetricsRegistry: a.registry,
			Logger:          logger,
		})
		if err != nil {
			a.abort()
			return nil, fmt.Errorf("create kinetic broadcaster: %w", err)
		}
		demo.Register(stream)
		a.demo = demo
	}

	monitor := health.NewMonitor()
	monitor.Register("stream", stream)
	if a.nats != nil {
		monitor.Register("nats", a.nats)
	}
	stream.Handle("GET /health", monitor.Handler(appName))

	return a, nil
}

// run serves until ctx is cancelled or a server fails, then shuts everything down
func (a *app) run(ctx context.Context, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.demo != nil {
		if err := a.demo.Start(); err != nil {
			a.shutdown(shutdownTimeout)
			return fmt.Errorf("start kinetic broadcaster: %w", err)
		}
	}

	g.Go(func() error { return a.stream.Start(gctx) })
	if a.metrics != nil {
		g.Go(a.metrics.Start)
		slog.Info("Metrics available", "address", a.metrics.Address())
	}
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			slog.Info("Received shutdown signal")
		}
		a.shutdown(shutdownTimeout)
		return nil
	})

	slog.Info("Kinetic simulator started", "url", a.stream.URL())
	if err := g.Wait(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	slog.Info("Kinetic simulator shutdown complete")
	return nil
}

// shutdown stops components in reverse start order within timeout
func (a *app) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.demo != nil {
		a.demo.Stop(remaining(ctx))
	}
	if err := a.stream.Stop(remaining(ctx)); err != nil {
		slog.Error("Error stopping stream server", "error", err)
	}
	if a.metrics != nil {
		if err := a.metrics.Stop(ctx); err != nil {
			slog.Error("Error stopping metrics server", "error", err)
		}
	}
	if err := a.sched.Stop(remaining(ctx)); err != nil {
		slog.Error("Error stopping scheduler", "error", err)
	}
	a.closeNATS()
}

func (a *app) abort() {
	_ = a.sched.Stop(time.Second)
	a.closeNATS()
}

func (a *app) closeNATS() {
	if a.nats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.nats.Close(ctx); err != nil {
		slog.Error("Error closing NATS client", "error", err)
	}
}

func remaining(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return time.Second
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return time.Millisecond
}
