package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pmx-importer/internal/batch"
	"pmx-importer/internal/config"
)

func main() {
	configPath := flag.String("config", "", "JSON config file")
	modelDir := flag.String("models", "", "Directory to scan for .pmx files")
	texDir := flag.String("textures", "", "Texture directory")
	outDir := flag.String("out", "", "Output directory for manifest.json")
	scale := flag.Float64("scale", 0, "Uniform scale applied to positions")
	workers := flag.Int("workers", 0, "Worker goroutines (default: NumCPU)")
	quiet := flag.Bool("quiet", false, "Suppress progress output")
	flag.Parse()

	var cfg config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.Resolve(config.Flags{
		ModelDir:   *modelDir,
		TextureDir: *texDir,
		OutputDir:  *outDir,
		Scale:      *scale,
		Workers:    *workers,
	})

	files, err := findModels(cfg.ModelDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan %s: %v\n", cfg.ModelDir, err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No .pmx files under %s\n", cfg.ModelDir)
		os.Exit(1)
	}

	fmt.Printf("Importing %d models with %d workers\n", len(files), cfg.Workers)
	start := time.Now()

	results := batch.Run(batch.Config{
		TextureDir:  cfg.TextureDir,
		Scale:       cfg.Scale,
		SkipMorphs:  cfg.SkipMorphs,
		SkipPhysics: cfg.SkipPhysics,
		Workers:     cfg.Workers,
		Quiet:       *quiet,
	}, files)

	failed := 0
	warned := 0
	for _, r := range results {
		if !r.Success {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %s\n", r.Path, r.Error)
			continue
		}
		if len(r.Warnings) > 0 {
			warned++
		}
	}

	fmt.Printf("Done in %.2fs: %d ok, %d failed, %d with warnings\n",
		time.Since(start).Seconds(), len(results)-failed, failed, warned)

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Create output dir: %v\n", err)
			os.Exit(1)
		}
		manifest := filepath.Join(cfg.OutputDir, "manifest.json")
		if err := batch.WriteManifest(manifest, results); err != nil {
			fmt.Fprintf(os.Stderr, "Write manifest: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Manifest written to %s\n", manifest)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func findModels(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pmx") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
