// Package main implements the reversi API server with optional persistence
// and a replay cache for shared game links.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reversi/cmd/reversi-server/cli"
	"reversi/internal/bootstrap"
	"reversi/internal/codec"
	"reversi/internal/processor"
	"reversi/internal/service"
	"reversi/internal/storage"
	transport "reversi/internal/transport/http"
)

const (
	gracefulShutdownTimeout = time.Second * 5
)

func main() {
	// Database maintenance subcommands
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "CLI error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var (
		cfgPath   = flag.String("config", "", "Optional config file (yaml, json or toml)")
		dev       = flag.Bool("dev", false, "Development mode (relaxed rate limits, console logs)")
		accessLog = flag.Bool("access-log", false, "Log every request to stdout")
		pidPath   = flag.String("pid", "", "Optional path to write PID file")
		pidLock   = flag.Bool("pid-lock", false, "Lock PID file to allow only one instance (requires -pid)")
	)
	flag.Parse()

	cfg, err := bootstrap.Setup(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dev {
		cfg.Dev = true
	}

	log, err := bootstrap.NewLogger(cfg.Dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	codec.SetLogger(log.Named("codec"))

	if *pidLock && *pidPath == "" {
		log.Fatal("-pid-lock flag requires the -pid flag to be set")
	}
	if *pidPath != "" {
		cleanup, err := managePIDFile(*pidPath, *pidLock)
		if err != nil {
			log.Fatalw("failed to manage PID file", "error", err)
		}
		defer cleanup()
		log.Infow("PID file created", "path", *pidPath, "lock", *pidLock)
	}

	// 1. Storage (optional)
	var store *storage.Store
	if cfg.StoragePath != "" {
		store, err = storage.NewStore(cfg.StoragePath, cfg.Dev, log.Named("storage"))
		if err != nil {
			log.Fatalw("failed to initialize storage", "path", cfg.StoragePath, "error", err)
		}
		if err := store.InitDB(); err != nil {
			log.Fatalw("failed to initialize schema", "error", err)
		}
		log.Infow("persistent storage enabled", "path", cfg.StoragePath)
	} else {
		log.Info("persistent storage disabled (set REVERSI_STORAGE_PATH to enable)")
	}

	// 2. Replay cache
	replayCache, err := cfg.ReplayCache(context.Background(), log.Named("cache"))
	if err != nil {
		log.Fatalw("failed to connect replay cache", "error", err)
	}
	defer replayCache.Close()

	// 3. Service with engine factory
	svc := service.New(service.Config{
		MaxGames:          cfg.MaxGames,
		EngineLoadTimeout: cfg.EngineLoadTimeout(),
	}, store, cfg.EngineFactory(log.Named("scorer")), log.Named("service"))

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go svc.RunCleanupJob(cleanupCtx, service.CleanupJobInterval)

	// 4. Processor
	proc := processor.New(svc, replayCache, cfg.EngineBudget(), log.Named("processor"))

	// 5. HTTP
	app := transport.NewFiberApp(proc, svc, transport.Config{
		DevMode:   cfg.Dev,
		AccessLog: *accessLog,
	}, log.Named("http"))

	go func() {
		log.Infow("reversi API server starting",
			"addr", cfg.Addr(),
			"dev", cfg.Dev,
			"scorer", cfg.ScorerPath,
			"redis", cfg.RedisURL != "",
		)
		if err := app.Listen(cfg.Addr()); err != nil {
			log.Errorw("API server listen error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	if err = app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warnw("server forced to shutdown", "error", err)
	}

	if err = proc.Close(gracefulShutdownTimeout); err != nil {
		log.Warnw("processor close error", "error", err)
	}

	cleanupCancel()

	// Disposes engines and closes storage
	if err = svc.Shutdown(gracefulShutdownTimeout); err != nil {
		log.Warnw("service shutdown error", "error", err)
	}

	log.Info("server exited")
}
