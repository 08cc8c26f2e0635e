package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/soocke/sigdesk-go/app"
	"github.com/soocke/sigdesk-go/config"
	"github.com/soocke/sigdesk-go/domain/transparency"
)

func main() {
	cfgPath := pflag.StringP("config", "c", "sigdesk.json", "config file (JSON or YAML)")
	processIn := pflag.String("process", "", "filter this image file and exit")
	out := pflag.StringP("out", "o", "", "output PNG for -process")
	noAutoCrop := pflag.Bool("no-autocrop", false, "keep the full canvas in -process mode")
	debugMode := pflag.Bool("debug", false, "debug logging and runtime stats")
	pflag.Parse()

	cfg, cfgErr := config.Load(*cfgPath)
	if *debugMode {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	logger := NewLogger(ParseLevel(cfg.LogLevel))
	if errors.Is(cfgErr, transparency.ErrInvertedThresholds) {
		logger.Warn("config adjusted", "path", *cfgPath, "error", cfgErr)
		cfgErr = nil
	}

	if *processIn != "" {
		if err := runProcess(*processIn, *out, cfg.Transparency, cfg.AutoCrop && !*noAutoCrop, logger); err != nil {
			logger.Error("signature.process failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if cfgErr != nil {
		logger.Error("config invalid", "path", *cfgPath, "error", cfgErr)
		os.Exit(1)
	}
	store := config.NewStore(cfg, *cfgPath, logger)
	application, err := app.NewApp("Signature Desk", 720, 640, store, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	logger.Info("sigdesk started", slog.String("config", *cfgPath), slog.String("api", cfg.APIURL))
	application.Start()
}
