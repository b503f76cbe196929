// Package main is the entry point for the hwpulse hardware monitor.
// It initializes configuration, opens the hardware tree, starts the
// polling engine and its watchdog, and runs either the terminal
// dashboard, a headless logging loop, or a Windows service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hwpulse/monitor/internal/config"
	"github.com/hwpulse/monitor/internal/engine"
	"github.com/hwpulse/monitor/internal/hardware"
	"github.com/hwpulse/monitor/internal/models"
	"github.com/hwpulse/monitor/internal/scheduler"
	"github.com/hwpulse/monitor/internal/service"
	"github.com/hwpulse/monitor/internal/ui"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file (default: auto-discover)")
	showVersion = flag.Bool("version", false, "Show version and exit")
	headless    = flag.Bool("headless", false, "Log snapshots instead of running the dashboard")
	initConfig  = flag.Bool("init", false, "Write the default configuration file and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("hwpulse-monitor %s\n", version)
		os.Exit(0)
	}

	if *initConfig {
		path := *configPath
		if path == "" {
			path = "monitor.yaml"
		}
		if err := config.WriteConfig(config.DefaultConfig(), path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// A Windows service has no terminal; force headless there.
	isService := service.IsWindowsService()
	logger := initLogger(cfg, *headless || isService)
	defer logger.Sync()

	logger.Info("Starting hwpulse monitor",
		zap.String("version", version),
		zap.Duration("poll_interval", cfg.Polling.Interval.Duration))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if isService {
		logger.Info("Running as Windows service")
		svc := service.New(logger, func(ctx context.Context) {
			runMonitor(ctx, nil, cfg, logger, true)
		})
		if err := svc.Run(); err != nil {
			logger.Fatal("Service failed", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	runMonitor(ctx, cancel, cfg, logger, *headless)
	logger.Info("Monitor stopped")
}

// runMonitor opens the hardware tree, builds the engine and runs the
// chosen frontend until the context is cancelled. A hardware open
// failure is not fatal: the monitor stays up in degraded mode showing
// the failure instead of readings.
func runMonitor(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger, headless bool) {
	var eng *engine.Engine

	tree, openErr := hardware.Open(ctx, logger.Named("hardware"))
	if openErr != nil {
		logger.Error("Hardware tree failed to open, running degraded", zap.Error(openErr))
	} else {
		var err error
		eng, err = engine.New(tree, policyFrom(cfg), logger.Named("engine"))
		if err != nil {
			logger.Error("Engine construction failed, running degraded", zap.Error(err))
			openErr = err
			tree.Close()
		} else {
			defer func() {
				if err := eng.Close(); err != nil {
					logger.Warn("Engine close failed", zap.Error(err))
				}
			}()
		}
	}

	if headless {
		runHeadless(ctx, cfg, logger, eng)
		return
	}
	runDashboard(ctx, cancel, cfg, logger, eng, openErr)
}

func policyFrom(cfg *config.Config) engine.Policy {
	return engine.Policy{
		MinPollGap: cfg.Polling.MinGap.Duration,
		StaleAfter: cfg.Polling.StaleAfter.Duration,
	}
}

// runHeadless logs every snapshot until cancelled. Absent readings log
// as explicit nulls so "0 measured" and "no data" stay distinguishable
// downstream.
func runHeadless(ctx context.Context, cfg *config.Config, logger *zap.Logger, eng *engine.Engine) {
	if eng == nil {
		<-ctx.Done()
		return
	}

	runner := scheduler.New(eng, cfg, logger.Named("scheduler"))
	runner.OnSnapshot(func(s *models.Snapshot) {
		fields := []zap.Field{
			zap.Bool("thorough", s.Thorough),
			zap.Float64p("cpu_temp", s.CPUTemp),
			zap.Float64p("cpu_load", s.CPULoad),
			zap.Float64p("gpu_temp", s.GPUTemp),
			zap.Float64p("gpu_load", s.GPULoad),
			zap.Float64p("memory_temp", s.MemoryTemp),
		}
		for _, d := range s.Disks {
			fields = append(fields, zap.Float64p("disk:"+d.Name, d.Temp))
		}
		logger.Info("Snapshot", fields...)
	})
	runner.Start(ctx)
}

// runDashboard runs the terminal dashboard, feeding it snapshots from
// the poll driver. Quitting the dashboard shuts the whole monitor down.
func runDashboard(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger, eng *engine.Engine, initErr error) {
	p := tea.NewProgram(ui.NewModel(), tea.WithAltScreen())

	if eng == nil {
		go p.Send(ui.DegradedMsg{Err: initErr})
	} else {
		runner := scheduler.New(eng, cfg, logger.Named("scheduler"))
		runner.OnSnapshot(func(s *models.Snapshot) {
			p.Send(ui.SnapshotMsg{Snapshot: s})
		})
		go runner.Start(ctx)
	}

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		logger.Error("Dashboard failed", zap.Error(err))
	}
	if cancel != nil {
		cancel()
	}
}

// initLogger creates a zap logger based on the configuration. The file
// sink is structured JSON with size-based rotation; the console core is
// only attached in headless mode so log lines never corrupt the
// dashboard.
func initLogger(cfg *config.Config, console bool) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}
	if cfg.Logging.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.Logging.File,
				MaxSize:    cfg.Logging.MaxSizeMB,
				MaxBackups: cfg.Logging.MaxBackups,
			}),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...))
}
