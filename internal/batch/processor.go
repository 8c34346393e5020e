// Package batch imports many model files concurrently, each into its own
// in-memory scene, and reports per-file results.
package batch

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pmx-importer/internal/importer"
	"pmx-importer/internal/scene"
)

// Config holds shared resources for a batch run. Each worker imports into a
// fresh scene; only the result slots are shared, one per input file.
type Config struct {
	TextureDir  string
	Scale       float32
	SkipMorphs  bool
	SkipPhysics bool
	Workers     int
	Quiet       bool
}

// Result holds the outcome of importing one file.
type Result struct {
	Path      string   `json:"path"`
	Name      string   `json:"name,omitempty"`
	Vertices  int      `json:"vertices,omitempty"`
	Bones     int      `json:"bones,omitempty"`
	Materials int      `json:"materials,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
}

// Run imports all files using a worker pool and returns one result per file,
// in input order.
func Run(cfg Config, files []string) []Result {
	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	done := make(chan struct{})
	if !cfg.Quiet {
		go func() {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						elapsed := time.Since(start).Seconds()
						fmt.Printf("  [%d/%d] %.1f models/sec\n", p, total, float64(p)/elapsed)
					}
				}
			}
		}()
	}

	fileChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range fileChan {
				results[idx] = importOne(cfg, files[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range files {
		fileChan <- i
	}
	close(fileChan)

	wg.Wait()
	close(done)

	return results
}

func importOne(cfg Config, path string) Result {
	target := scene.NewMemory()
	sum, err := importer.Import(path, target, importer.Options{
		Scale:         cfg.Scale,
		ImportMorphs:  !cfg.SkipMorphs,
		ImportPhysics: !cfg.SkipPhysics,
		TextureDir:    cfg.TextureDir,
	})
	if err != nil {
		return Result{Path: path, Error: err.Error()}
	}
	return Result{
		Path:      path,
		Name:      sum.Name,
		Vertices:  sum.Vertices,
		Bones:     sum.Bones,
		Materials: sum.Materials,
		Warnings:  sum.Warnings,
		Success:   true,
	}
}
