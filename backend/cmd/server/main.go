package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BioHazard786/Synctube/backend/internal/config"
	"github.com/BioHazard786/Synctube/backend/internal/logging"
	"github.com/BioHazard786/Synctube/backend/internal/server"
	"github.com/BioHazard786/Synctube/backend/internal/signaling"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The hub owns routing; the registry owns room membership.
	hub := signaling.NewHub(signaling.NewRegistry())
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.NewRouter(hub, cfg),
	}

	go func() {
		slog.Info("starting signaling server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Hijacked websocket connections are not tracked by Shutdown; stopping
	// the hub closes their send queues and lets the pumps exit.
	stopHub()
	<-hub.Done()
}
