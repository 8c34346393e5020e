package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"pmx-importer/internal/importer"
	"pmx-importer/internal/scene"
)

func main() {
	scale := flag.Float64("scale", 1.0, "Uniform scale applied to positions")
	skipMorphs := flag.Bool("no-morphs", false, "Skip morph targets")
	skipPhysics := flag.Bool("no-physics", false, "Skip rigid bodies and joints")
	texDir := flag.String("textures", "", "Texture directory to probe references against")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pmximport [flags] <model.pmx>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	target := scene.NewMemory()
	start := time.Now()

	sum, err := importer.Import(path, target, importer.Options{
		Scale:         float32(*scale),
		ImportMorphs:  !*skipMorphs,
		ImportPhysics: !*skipPhysics,
		TextureDir:    *texDir,
		Progress: func(stage string) {
			fmt.Printf("  %s\n", stage)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Imported %q in %.2fs\n", sum.Name, time.Since(start).Seconds())
	fmt.Printf("Vertices: %d  Faces: %d  Materials: %d  Bones: %d\n",
		sum.Vertices, sum.Faces, sum.Materials, sum.Bones)
	fmt.Printf("Morphs: %d (skipped %d)  RigidBodies: %d  Joints: %d\n",
		sum.Morphs, sum.SkippedMorphs, sum.RigidBodies, sum.Joints)

	if len(sum.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(sum.Warnings))
		for _, w := range sum.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
}
