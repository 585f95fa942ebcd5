package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not be an error, got %v", err)
	}
	if cfg.PanSpeed != 10 || cfg.MinZoom != 0.05 || cfg.MaxZoom != 10 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "dataset_root: /data/cows\npan_speed: 25\nwheel_zoom_step: 0.2\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatasetRoot != "/data/cows" || cfg.PanSpeed != 25 || cfg.WheelZoomStep != 0.2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Untouched fields keep defaults.
	if cfg.KeyZoomFactor != 1.2 {
		t.Fatalf("expected default key zoom factor, got %v", cfg.KeyZoomFactor)
	}
}

func TestValidateClamps(t *testing.T) {
	cfg := &Config{PanSpeed: -3, MinZoom: 0, MaxZoom: 0, WheelZoomStep: 5, KeyZoomFactor: 0.5, FitMargin: 2}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.PanSpeed != 10 || cfg.MinZoom != 0.05 || cfg.MaxZoom <= cfg.MinZoom {
		t.Fatalf("zoom/pan not clamped: %+v", cfg)
	}
	if cfg.WheelZoomStep != 0.1 || cfg.KeyZoomFactor != 1.2 || cfg.FitMargin != 0.9 {
		t.Fatalf("steps not clamped: %+v", cfg)
	}
}

func TestLoadMalformedFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\n -not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if cfg.PanSpeed != 10 {
		t.Fatalf("expected defaults on parse error, got %+v", cfg)
	}
}
