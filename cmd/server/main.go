package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tatianab/voidwalkers/internal/api"
	"github.com/tatianab/voidwalkers/internal/app"
	"github.com/tatianab/voidwalkers/internal/config"
	"github.com/tatianab/voidwalkers/internal/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, OutputPath: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	game, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to start game", zap.Error(err))
	}
	defer game.Close()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewServer(game.Session, api.Options{
			AudioDir:   cfg.AudioDir,
			Limiter:    api.NewClientLimiter(cfg.ClientRateLimit, cfg.ClientRateBurst),
			TrustProxy: cfg.TrustProxy,
		}, log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
