package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/tracklink"
	"github.com/loykin/tracklink/internal/logger"
)

// runServe runs the daemon until SIGINT/SIGTERM.
func runServe(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=config.toml or provide as argument")
	}

	cfg, err := tracklink.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	lg := logger.New(cfg.Log)
	slog.SetDefault(lg)

	svc, err := tracklink.New(tracklink.Options{
		Snapshot:   cfg.Snapshot,
		SendBuffer: cfg.Relay.SendBuffer,
		Logger:     lg,
	})
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}
	defer svc.Close()

	// History sinks are best-effort exports; a sink that cannot connect at
	// startup fails the daemon so misconfigurations surface early.
	sinks := make([]tracklink.HistorySink, 0, len(cfg.HistorySinks))
	for _, dsn := range cfg.HistorySinks {
		s, err := tracklink.NewHistorySink(dsn)
		if err != nil {
			return fmt.Errorf("history sink %q: %w", dsn, err)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) > 0 {
		svc.SetHistorySinks(sinks...)
		lg.Info("history sinks configured", "count", len(sinks))
	}

	if err := tracklink.RegisterMetricsDefault(); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if cfg.Server.MetricsListen != "" {
		go func() {
			if err := tracklink.ServeMetrics(cfg.Server.MetricsListen); err != nil {
				lg.Error("metrics server stopped", "error", err)
			}
		}()
		lg.Info("metrics listening", "addr", cfg.Server.MetricsListen)
	}

	srv, err := tracklink.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, svc, lg)
	if err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	lg.Info("tracklink daemon listening", "addr", cfg.Server.Listen, "base_path", cfg.Server.BasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	lg.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Warn("http shutdown", "error", err)
	}
	return nil
}
