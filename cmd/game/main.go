package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tatianab/voidwalkers/internal/app"
	"github.com/tatianab/voidwalkers/internal/config"
	"github.com/tatianab/voidwalkers/internal/logging"
	"github.com/tatianab/voidwalkers/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = "voidwalkers.log"
	}
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, OutputPath: logFile})
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	game, err := app.Open(ctx, cfg, log)
	if err != nil {
		fmt.Printf("Error starting game: %v\n", err)
		os.Exit(1)
	}
	defer game.Close()

	if err := tui.Run(game.Session); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
