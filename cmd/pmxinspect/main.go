package main

import (
	"fmt"
	"os"

	"pmx-importer/internal/pmx"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: pmxinspect <model.pmx> [...]")
		os.Exit(2)
	}

	failed := 0
	for _, arg := range os.Args[1:] {
		data, err := os.ReadFile(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read error %s: %v\n", arg, err)
			failed++
			continue
		}
		doc, err := pmx.Decode(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Decode error %s: %v\n", arg, err)
			failed++
			continue
		}
		printDocument(arg, doc)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func printDocument(path string, doc *pmx.Document) {
	h := doc.Header
	fmt.Printf("\n=== %s ===\n", path)
	fmt.Printf("Name: %q (%q)\n", doc.Name, doc.NameEN)
	fmt.Printf("Version: %.1f  encoding=%d  extraUV=%d  widths v=%d t=%d m=%d b=%d mo=%d r=%d\n",
		h.Version, h.Encoding, h.ExtraUVs,
		h.VertexIndexSize, h.TextureIndexSize, h.MaterialIndexSize,
		h.BoneIndexSize, h.MorphIndexSize, h.RigidBodyIndexSize)
	fmt.Printf("Vertices: %d  Faces: %d  Textures: %d\n", len(doc.Vertices), len(doc.Faces), len(doc.Textures))
	fmt.Printf("Materials: %d  Bones: %d  Morphs: %d\n", len(doc.Materials), len(doc.Bones), len(doc.Morphs))
	fmt.Printf("RigidBodies: %d  Joints: %d\n", len(doc.RigidBodies), len(doc.Joints))

	kinds := make(map[string]int)
	for i := range doc.Vertices {
		switch doc.Vertices[i].Skin.(type) {
		case pmx.SingleBind:
			kinds["BDEF1"]++
		case pmx.DualBind:
			kinds["BDEF2"]++
		case pmx.QuadBind:
			kinds["BDEF4"]++
		case pmx.SphericalBind:
			kinds["SDEF"]++
		}
	}
	fmt.Printf("Skin bindings: %v\n", kinds)

	ik := 0
	for i := range doc.Bones {
		if doc.Bones[i].IsIK {
			ik++
		}
	}
	fmt.Printf("IK bones: %d\n", ik)

	for i, m := range doc.Materials {
		tex := "-"
		if m.TextureIndex >= 0 && int(m.TextureIndex) < len(doc.Textures) {
			tex = doc.Textures[m.TextureIndex]
		}
		fmt.Printf("  Material[%d] %q: tris=%d tex=%s\n", i, m.Name, m.FaceVertexCount/3, tex)
	}
}
