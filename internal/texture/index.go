package texture

import (
	"os"
	"path/filepath"
	"strings"
)

// imageExts lists the texture file types models commonly reference. The spa
// and sph extensions are sphere-map images (BMP payloads in practice).
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tga":  true,
	".bmp":  true,
	".spa":  true,
	".sph":  true,
}

// Index maps texture references to filesystem paths. Lookups are
// case-insensitive and tolerate backslash separators, since model files are
// typically authored on Windows.
type Index struct {
	root    string
	entries map[string]string // normalized relative path → full path
	stems   map[string]string // lowercase stem → full path
}

// BuildIndex scans dir recursively for texture files.
func BuildIndex(dir string) *Index {
	idx := &Index{
		root:    dir,
		entries: make(map[string]string),
		stems:   make(map[string]string),
	}

	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !imageExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		idx.entries[normalize(rel)] = path

		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if _, exists := idx.stems[stem]; !exists {
			idx.stems[stem] = path
		}
		return nil
	})

	return idx
}

func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.ToLower(filepath.ToSlash(filepath.Clean(filepath.FromSlash(p))))
}

// ResolvePath returns the filesystem path for a texture reference, or
// ("", false). The exact relative path wins; a bare stem match is the
// fallback for references whose directory layout moved.
func (idx *Index) ResolvePath(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if path, ok := idx.entries[normalize(ref)]; ok {
		return path, true
	}

	base := filepath.Base(strings.ReplaceAll(ref, "\\", "/"))
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	path, ok := idx.stems[stem]
	return path, ok
}

// Len returns the number of indexed texture files.
func (idx *Index) Len() int {
	return len(idx.entries)
}
