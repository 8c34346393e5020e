package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadAndResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"model_dir": "/data/models",
		"texture_dir": "tex",
		"output_dir": "/data/out",
		"scale": 0.08,
		"skip_physics": true,
		"workers": 4
	}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	cfg.Resolve(Flags{})

	if cfg.ModelDir != "/data/models" {
		t.Fatalf("model dir: %q", cfg.ModelDir)
	}
	// Relative texture dir resolves against the model dir.
	if cfg.TextureDir != filepath.Join("/data/models", "tex") {
		t.Fatalf("texture dir: %q", cfg.TextureDir)
	}
	if cfg.OutputDir != "/data/out" {
		t.Fatalf("output dir: %q", cfg.OutputDir)
	}
	if cfg.Scale != 0.08 || !cfg.SkipPhysics || cfg.Workers != 4 {
		t.Fatalf("settings: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestResolveFlagOverrides(t *testing.T) {
	cfg := Config{ModelDir: "/a", Scale: 0.1, Workers: 2}
	cfg.Resolve(Flags{ModelDir: "/b", Scale: 0.5, Workers: 8})

	if cfg.ModelDir != "/b" || cfg.Scale != 0.5 || cfg.Workers != 8 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestResolveDefaults(t *testing.T) {
	var cfg Config
	cfg.Resolve(Flags{})

	if cfg.Scale != 1.0 {
		t.Fatalf("scale default: %f", cfg.Scale)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Fatalf("workers default: %d", cfg.Workers)
	}
	if cfg.ModelDir == "" {
		t.Fatalf("model dir default empty")
	}
	if cfg.TextureDir != cfg.ModelDir {
		t.Fatalf("texture dir default: %q", cfg.TextureDir)
	}
}
