package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/soocke/sigdesk-go/domain/transparency"
)

// defaultOutput derives "<name>-signature.png" next to the input.
func defaultOutput(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + "-signature.png"
}

// runProcess filters one local image without the crop stage and writes a PNG.
func runProcess(in, out string, s transparency.Settings, autoCrop bool, logger *slog.Logger) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}
	png, err := transparency.Process(data, s, autoCrop)
	if err != nil {
		return fmt.Errorf("process %s: %w", in, err)
	}
	if out == "" {
		out = defaultOutput(in)
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("signature.process", "in", in, "out", out, "bytes", len(png), "settings", s.String(), "auto_crop", autoCrop)
	return nil
}
