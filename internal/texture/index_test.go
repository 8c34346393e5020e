package texture

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestIndexResolvesExactPath(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "tex", "body.png"), 2, 2)

	idx := BuildIndex(dir)
	if idx.Len() != 1 {
		t.Fatalf("indexed %d files, want 1", idx.Len())
	}

	got, ok := idx.ResolvePath("tex/body.png")
	if !ok {
		t.Fatalf("exact path not resolved")
	}
	if got != filepath.Join(dir, "tex", "body.png") {
		t.Fatalf("resolved to %s", got)
	}
}

func TestIndexResolvesWindowsPath(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "tex", "body.png"), 2, 2)

	idx := BuildIndex(dir)
	if _, ok := idx.ResolvePath(`tex\Body.PNG`); !ok {
		t.Fatalf("backslash/case variant not resolved")
	}
}

func TestIndexStemFallback(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "moved", "face.png"), 2, 2)

	idx := BuildIndex(dir)
	// The reference points at the old layout; the stem still matches.
	got, ok := idx.ResolvePath("textures/face.png")
	if !ok {
		t.Fatalf("stem fallback failed")
	}
	if got != filepath.Join(dir, "moved", "face.png") {
		t.Fatalf("resolved to %s", got)
	}
}

func TestIndexMisses(t *testing.T) {
	idx := BuildIndex(t.TempDir())
	if _, ok := idx.ResolvePath("nothing.png"); ok {
		t.Fatalf("resolved a missing texture")
	}
	if _, ok := idx.ResolvePath(""); ok {
		t.Fatalf("resolved an empty reference")
	}
}

func TestIndexSkipsNonImageFiles(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "body.png"), 2, 2)
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	idx := BuildIndex(dir)
	if idx.Len() != 1 {
		t.Fatalf("indexed %d files, want 1", idx.Len())
	}
}

func TestLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, path, 4, 3)

	img, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("bounds: %v", img.Bounds())
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestCacheResolve(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "body.png"), 2, 2)
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cache := NewCache(BuildIndex(dir))

	first := cache.Resolve("body.png")
	if first == nil {
		t.Fatalf("resolve failed")
	}
	if second := cache.Resolve("body.png"); second != first {
		t.Fatalf("cache returned a different image")
	}

	// Failed loads are cached as nil, not retried into an error.
	if img := cache.Resolve("broken.png"); img != nil {
		t.Fatalf("broken texture resolved")
	}
	if img := cache.Resolve("missing.png"); img != nil {
		t.Fatalf("missing texture resolved")
	}
}
