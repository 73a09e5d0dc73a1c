package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studyloop/tutor-backend/internal/app"
	"github.com/studyloop/tutor-backend/internal/platform/logger"
)

func main() {
	cfg := app.LoadConfig()

	log, err := logger.New(cfg.Mode)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := a.Close(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
