// Package main is the bundled scorer process. It speaks the line protocol on
// stdin/stdout and answers with the greedy positional scorer.
package main

import (
	"flag"
	"fmt"
	"os"

	"reversi/internal/bootstrap"
	"reversi/internal/engine"
)

func main() {
	dev := flag.Bool("dev", false, "Console logs on stderr")
	flag.Parse()

	// stdout carries the protocol, zap writes to stderr
	log, err := bootstrap.NewLogger(*dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := engine.Serve(os.Stdin, os.Stdout, engine.Greedy, log.Named("scorer")); err != nil {
		log.Errorw("scorer stopped", "error", err)
		os.Exit(1)
	}
}
