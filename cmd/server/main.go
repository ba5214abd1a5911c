package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadscout/internal/config"
	"leadscout/internal/handler"
	"leadscout/internal/service"
	"leadscout/pkg/logger"
)

type Application struct {
	configPath string
	debug      bool
}

func main() {
	app := &Application{}

	flag.StringVar(&app.configPath, "config", "", "Configuration file path")
	flag.BoolVar(&app.debug, "debug", false, "Enable debug mode")
	flag.Parse()

	if err := app.Run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func (app *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.NewManager().Load(app.configPath)
	if err != nil {
		return err
	}
	if app.debug {
		cfg.Logger.Level = "debug"
	}
	logger.SetLogger(logger.New(cfg.Logger))
	lg := logger.GetLogger().WithField("component", "server")

	comps, err := service.NewComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	runs := service.NewRunService(ctx, service.NewRunnerFactory(cfg, comps), comps.Store)

	scheduler, err := service.NewScheduler(cfg.Schedule.Time, cfg.Schedule.RunOnStart, func(ctx context.Context) {
		if _, err := runs.RunNow(ctx, nil); err != nil {
			lg.WithError(err).Warn("Scheduled run did not complete cleanly")
		}
	})
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		lg.Info("Shutdown signal received")
		cancel()
	}()

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		scheduler.Run(ctx)
	}()

	web := handler.NewApp(handler.NewController(runs))
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- web.Listen(addr)
	}()
	lg.WithField("addr", addr).Info("Server started")

	select {
	case <-ctx.Done():
	case err := <-listenErr:
		if err != nil {
			lg.WithError(err).Error("HTTP listener stopped")
		}
		cancel()
	}
	lg.Info("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := web.ShutdownWithContext(shutdownCtx); err != nil {
		lg.WithError(err).Warn("HTTP shutdown incomplete")
	}

	// the active run, scheduled or triggered, sees the cancelled context and
	// exports what it has before the store is closed
	runs.Shutdown()
	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		lg.Warn("Scheduler did not stop before the shutdown deadline")
	}
	lg.Info("Server stopped")
	return nil
}
