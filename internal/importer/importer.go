// Package importer sequences a model import: read the file, decode it, and
// reconstruct the scene through the injected collaborator. It reports
// progress at fixed checkpoints and converts failures into typed errors.
package importer

import (
	"fmt"
	"os"

	"pmx-importer/internal/builder"
	"pmx-importer/internal/pmx"
	"pmx-importer/internal/scene"
	"pmx-importer/internal/texture"
)

// Options is the caller-supplied options bag.
type Options struct {
	Scale         float32
	ImportMorphs  bool
	ImportPhysics bool

	// TextureDir, when set, is indexed and every texture the model references
	// is resolved against it; unresolved textures become warnings.
	TextureDir string

	// Progress receives checkpoint notifications (vertices, materials, faces,
	// bones, morphs, physics, finalize). May be nil.
	Progress builder.ProgressFunc
}

// DefaultOptions returns the options a plain import uses.
func DefaultOptions() Options {
	return Options{Scale: 1.0, ImportMorphs: true, ImportPhysics: true}
}

// Summary is the result of a completed import.
type Summary = builder.Summary

// Import reads and decodes the model at path, then builds it into target.
// On a mandatory failure the error is returned immediately; scene objects
// already created by completed passes are left for the caller to clean up.
// Callers that need all-or-nothing semantics import into a scratch scene and
// discard it on error.
func Import(path string, target scene.Collaborator, opts Options) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return ImportBytes(path, data, target, opts)
}

// ImportBytes is Import for an already-loaded byte buffer.
func ImportBytes(path string, data []byte, target scene.Collaborator, opts Options) (*Summary, error) {
	doc, err := pmx.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}

	sum, err := builder.Build(doc, target, builder.Options{
		Scale:         opts.Scale,
		ImportMorphs:  opts.ImportMorphs,
		ImportPhysics: opts.ImportPhysics,
	}, opts.Progress)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}

	if opts.TextureDir != "" {
		probeTextures(doc, opts.TextureDir, sum)
	}
	return sum, nil
}

// probeTextures resolves every referenced texture against the texture
// directory and records a warning for each one that cannot be found. Shading
// is the host's concern; this only surfaces broken references early.
func probeTextures(doc *pmx.Document, dir string, sum *Summary) {
	idx := texture.BuildIndex(dir)
	for _, tex := range doc.Textures {
		if tex == "" {
			continue
		}
		if _, ok := idx.ResolvePath(tex); !ok {
			sum.Warnings = append(sum.Warnings, fmt.Sprintf("texture %q not found under %s", tex, dir))
		}
	}
}
