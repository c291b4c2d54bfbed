package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"cv-tailor/internal/bootstrap"
	"cv-tailor/internal/shared/config"
	"cv-tailor/internal/shared/server"
	"cv-tailor/internal/shared/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var configPath, port string
	pflag.StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "Path to a YAML config file")
	pflag.StringVarP(&port, "port", "p", "", "Listen port (overrides PORT)")
	pflag.Parse()

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fatal("config.load_failed", err)
	}
	if port != "" {
		cfg.Port = port
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		fatal("bootstrap.failed", err)
	}
	defer app.Close()

	if err := app.Sweeper.Start(); err != nil {
		fatal("sessions.sweeper_failed", err)
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		telemetry.Info("server.start", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server.failed", err)
		}
	}()

	<-ctx.Done()
	telemetry.Info("server.shutdown", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	app.Sweeper.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("server.shutdown_failed", map[string]any{"error": err.Error()})
	}
}

func fatal(msg string, err error) {
	telemetry.Error(msg, map[string]any{"error": err.Error()})
	os.Exit(1)
}
