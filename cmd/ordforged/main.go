// Ordforge minting engine daemon.
//
// Usage:
//
//	ordforged [--network=signet --content-dir=...]  Run engine
//	ordforged --help                                Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ordforge/ordforge/config"
	"github.com/ordforge/ordforge/internal/engine"
)

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	e, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := e.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		e.Stop()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	e.Stop()
}
