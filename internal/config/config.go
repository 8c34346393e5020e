package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config holds the paths and import settings the command-line tools share.
type Config struct {
	// Paths
	ModelDir   string `json:"model_dir"`
	TextureDir string `json:"texture_dir"`
	OutputDir  string `json:"output_dir"`

	// Import settings
	Scale       float32 `json:"scale"`
	SkipMorphs  bool    `json:"skip_morphs"`
	SkipPhysics bool    `json:"skip_physics"`
	Workers     int     `json:"workers"`
}

// Load reads a JSON config file. Fields not set in the file keep their zero
// values until Resolve fills defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	ModelDir   string
	TextureDir string
	OutputDir  string
	Scale      float64
	Workers    int
}

// Resolve applies flag overrides and fills remaining empty fields with
// defaults. Relative texture/output paths resolve against the model dir.
func (c *Config) Resolve(flags Flags) {
	if flags.ModelDir != "" {
		c.ModelDir = flags.ModelDir
	}
	if flags.TextureDir != "" {
		c.TextureDir = flags.TextureDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Scale > 0 {
		c.Scale = float32(flags.Scale)
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	if c.ModelDir == "" {
		c.ModelDir, _ = os.Getwd()
	}
	if c.TextureDir == "" {
		c.TextureDir = c.ModelDir
	} else if !filepath.IsAbs(c.TextureDir) {
		c.TextureDir = filepath.Join(c.ModelDir, c.TextureDir)
	}
	if c.OutputDir != "" && !filepath.IsAbs(c.OutputDir) {
		c.OutputDir = filepath.Join(c.ModelDir, c.OutputDir)
	}

	if c.Scale <= 0 {
		c.Scale = 1.0
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}
