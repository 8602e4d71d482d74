package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hbomb79/Abode/internal"
	"github.com/hbomb79/Abode/pkg/logger"
	"github.com/mitchellh/go-homedir"
)

var log = logger.Get("Main")

// main is the entry point to the program. The user configuration is
// loaded from the path provided (or its default location in the users
// home directory) before Abode is constructed and started. Cancellation
// is wired to SIGINT/SIGTERM so an interrupted server drains cleanly.
func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file (default ~/.config/abode/config.yaml)")
	logLevel := flag.Int("log-level", int(logger.INFO.Level()), "minimum log level to output (0=verbose)")
	flag.Parse()

	logger.SetMinLoggingLevel(*logLevel)

	path := *configPath
	if path == "" {
		home, err := homedir.Dir()
		if err != nil {
			log.Emit(logger.FATAL, "Failed to derive user home directory: %v\n", err)
			os.Exit(1)
		}

		path = filepath.Join(home, ".config", "abode", "config.yaml")
	}

	config := internal.AbodeConfig{}
	if err := config.LoadFromFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration from %s: %v\n", path, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	abode := internal.New(config)
	if err := abode.Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Abode stopped with error: %v\n", err)
		os.Exit(1)
	}
}
