// Command sigrelay serves the signature image relay and the reference
// signature registry.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/soocke/sigdesk-go/server"
)

func main() {
	cfgPath := pflag.StringP("config", "c", "", "config file (JSON or YAML)")
	addr := pflag.StringP("addr", "a", "", "listen address, overrides config")
	debug := pflag.Bool("debug", false, "debug logging")
	pflag.Parse()

	cfg, cfgErr := server.LoadConfig(*cfgPath)
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	if cfgErr != nil {
		logger.Error("config invalid", "path", *cfgPath, "error", cfgErr)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = srv.Close() }()
	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server.shutdown")
}
