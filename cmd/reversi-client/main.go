// Package main implements an interactive client for the reversi server API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"reversi/internal/bootstrap"
	"reversi/internal/cli"
	"reversi/internal/client/api"

	"github.com/chzyer/readline"
	"go.uber.org/zap"
)

func main() {
	var (
		server  = flag.String("server", "http://localhost:8080", "Server base URL")
		history = flag.String("history", ".reversi_client_history", "Readline history file, empty disables")
		debug   = flag.Bool("log", false, "Log API calls to stderr")
	)
	flag.Parse()

	log := zap.NewNop().Sugar()
	if *debug {
		var err error
		if log, err = bootstrap.NewLogger(true); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "reversi> ",
		HistoryFile:     *history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open terminal: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	s := &session{
		client: api.New(*server, log.Named("api")),
		view:   cli.New(rl, os.Stdout),
	}
	s.view.ShowMessage("Reversi API client")
	s.view.ShowMessage("API: " + s.client.BaseURL)
	s.view.ShowMessage("Type 'help' for commands\n")

	run(rl, NewRegistry(s))
}

// run reads lines until exit or EOF
func run(input cli.LineReader, registry *Registry) {
	for {
		input.SetPrompt(buildPrompt(registry.session))
		line, err := input.Readline()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			registry.session.view.ShowError(err)
			return
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit", "x":
			return
		}
		registry.Execute(line)
	}
}

func buildPrompt(s *session) string {
	if s.game == nil {
		return "reversi> "
	}
	id := s.game.GameID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("reversi [%s %s %s]> ", id, s.game.State, s.game.Turn)
}
