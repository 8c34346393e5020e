package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"

	"pmx-importer/internal/pmx"
	"pmx-importer/internal/texture"
)

// pmxtex lists the textures a model references, resolves them against a
// texture directory, and optionally re-encodes each as a WebP preview.
func main() {
	texDir := flag.String("textures", "", "Texture directory (defaults to the model's directory)")
	outDir := flag.String("out", "", "Write WebP previews of resolved textures to this directory")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pmxtex [flags] <model.pmx>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(1)
	}
	doc, err := pmx.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decode error: %v\n", err)
		os.Exit(1)
	}

	dir := *texDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	index := texture.BuildIndex(dir)
	cache := texture.NewCache(index)

	fmt.Printf("Model %q references %d textures (%d files indexed under %s)\n",
		doc.Name, len(doc.Textures), index.Len(), dir)

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Create output dir: %v\n", err)
			os.Exit(1)
		}
	}

	missing := 0
	for i, ref := range doc.Textures {
		resolved, ok := index.ResolvePath(ref)
		if !ok {
			fmt.Printf("  [%d] %s: NOT FOUND\n", i, ref)
			missing++
			continue
		}

		img := cache.Resolve(ref)
		if img == nil {
			fmt.Printf("  [%d] %s: decode failed (%s)\n", i, ref, resolved)
			missing++
			continue
		}

		b := img.Bounds()
		fmt.Printf("  [%d] %s: %dx%d (%s)\n", i, ref, b.Dx(), b.Dy(), resolved)

		if *outDir != "" {
			if err := writeWebP(*outDir, ref, img); err != nil {
				fmt.Fprintf(os.Stderr, "  [%d] %s: %v\n", i, ref, err)
			}
		}
	}

	if missing > 0 {
		fmt.Printf("%d of %d textures unresolved\n", missing, len(doc.Textures))
		os.Exit(1)
	}
}

func writeWebP(dir, ref string, img *image.NRGBA) error {
	base := filepath.Base(strings.ReplaceAll(ref, "\\", "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	out := filepath.Join(dir, stem+".webp")

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("WebP encode %s: %w", out, err)
	}
	return nil
}
