package config

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/soocke/sigdesk-go/domain/transparency"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transparency.White != 235 || cfg.Transparency.Black != 35 || !cfg.Transparency.Advanced {
		t.Fatalf("unexpected transparency defaults %+v", cfg.Transparency)
	}
	if !cfg.AutoCrop || cfg.FetchConcurrency != 4 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	cfg := DefaultConfig()
	cfg.APIURL = "https://desk.example/api"
	cfg.Transparency.White = 240
	cfg.Transparency.Advanced = false
	cfg.SelectionW, cfg.SelectionH = 300, 120
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.APIURL != cfg.APIURL || got.Transparency.White != 240 || got.Transparency.Advanced {
		t.Fatalf("round trip mismatch %+v", got)
	}
	if !got.HasSelection() {
		t.Fatalf("selection lost")
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yaml := "api_url: https://yaml.example/api\ntransparency:\n  white_threshold: 220\n  black_threshold: 20\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SIGDESK_TOKEN", "secret")
	t.Setenv("SIGDESK_TRANSPARENCY_BLACK_THRESHOLD", "10")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "https://yaml.example/api" || cfg.Token != "secret" {
		t.Fatalf("unexpected endpoints %+v", cfg)
	}
	if cfg.Transparency.White != 220 || cfg.Transparency.Black != 10 {
		t.Fatalf("unexpected thresholds %+v", cfg.Transparency)
	}
}

func TestValidate_InvertedThresholdsReset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transparency.White = 200
	cfg.Transparency.Black = 250
	if err := cfg.Validate(); !errors.Is(err, transparency.ErrInvertedThresholds) {
		t.Fatalf("expected ErrInvertedThresholds, got %v", err)
	}
	if cfg.Transparency.White != 235 || cfg.Transparency.Black != 35 {
		t.Fatalf("expected defaults, got %+v", cfg.Transparency)
	}
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	_ = os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStore_SetTransparencyPersistsAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sigdesk.json")
	s := NewStore(DefaultConfig(), path, nil)
	var got []transparency.Settings
	s.OnTransparencyChange(func(ts transparency.Settings, autoCrop bool) { got = append(got, ts) })
	s.SetTransparency(transparency.Settings{White: 250, Black: 10, Advanced: false})
	if len(got) != 1 || got[0].White != 250 {
		t.Fatalf("listener not called: %+v", got)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Transparency.White != 250 || loaded.Transparency.Advanced {
		t.Fatalf("settings not persisted: %+v", loaded.Transparency)
	}
}

func TestStore_Region(t *testing.T) {
	s := NewStore(nil, "", nil)
	if s.Region() != nil {
		t.Fatalf("expected no region")
	}
	if err := s.SaveRegion(image.Rect(10, 20, 110, 70)); err != nil {
		t.Fatalf("save region: %v", err)
	}
	if r := s.Region(); r == nil || *r != image.Rect(10, 20, 110, 70) {
		t.Fatalf("unexpected region %v", r)
	}
	_ = s.SaveRegion(image.Rectangle{})
	if s.Region() != nil {
		t.Fatalf("region not cleared")
	}
}
