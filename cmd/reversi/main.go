// Package main implements a terminal reversi game against the configured scorer.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"reversi/internal/bootstrap"
	"reversi/internal/cli"
	"reversi/internal/codec"
	"reversi/internal/processor"
	"reversi/internal/service"
	"reversi/internal/storage"
	clitransport "reversi/internal/transport/cli"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "Optional config file (yaml, json or toml)")
		shareURL = flag.String("share-url", "https://reversi.example/share/", "Prefix for printed share links")
		history  = flag.String("history", ".reversi_history", "Readline history file, empty disables")
		verbose  = flag.Bool("log", false, "Write diagnostic logs to stderr")
	)
	flag.Parse()

	cfg, err := bootstrap.Setup(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The terminal owns stdout, diagnostics stay quiet unless asked for
	log := zap.NewNop().Sugar()
	if *verbose {
		if log, err = bootstrap.NewLogger(true); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
	}
	codec.SetLogger(log.Named("codec"))

	var store *storage.Store
	if cfg.StoragePath != "" {
		if store, err = storage.NewStore(cfg.StoragePath, false, log.Named("storage")); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
			os.Exit(1)
		}
		if err := store.InitDB(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize schema: %v\n", err)
			os.Exit(1)
		}
	}

	svc := service.New(service.Config{
		EngineLoadTimeout: cfg.EngineLoadTimeout(),
	}, store, cfg.EngineFactory(log.Named("scorer")), log.Named("service"))
	proc := processor.New(svc, nil, cfg.EngineBudget(), log.Named("processor"))
	defer func() {
		proc.Close(time.Second)
		svc.Shutdown(time.Second)
	}()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     *history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open terminal: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	view := cli.New(rl, os.Stdout)
	handler := clitransport.New(proc, svc, view, *shareURL)

	view.ShowWelcome()
	handler.Run()
}
