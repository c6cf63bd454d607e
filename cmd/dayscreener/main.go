package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/app"
	"DayScreener/internal/config"
	"DayScreener/internal/logging"
	"DayScreener/internal/scheduler"
	"DayScreener/internal/server"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("config validation", zap.Error(err))
	}
	log.Info("dayscreener starting", zap.String("config", cfgPath))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("init application", zap.Error(err))
	}
	defer a.Close()

	sched := scheduler.NewScheduler(ctx, a.Pipeline, a.Location, log)
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.AlertCron); err != nil {
		log.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Telegram.Polling && a.Telegram != nil {
		go a.Telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, running a cycle now")
		go sched.RunNow()
	}

	srv := server.New(cfg.Server.Addr, a.Pipeline, a.Metrics, log)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info("dayscreener is running, press Ctrl+C to stop")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info("shutdown signal received, stopping")
	case err := <-errCh:
		if err != nil {
			log.Error("http server exited", zap.Error(err))
		}
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	log.Info("dayscreener stopped")
}
