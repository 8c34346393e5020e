package pmx

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"pmx-importer/internal/pmx/pmxtest"
)

func TestDecodeSingleTriangle(t *testing.T) {
	doc, err := Decode(pmxtest.SingleTriangle())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if doc.Name != "tri" {
		t.Fatalf("name: got %q, want %q", doc.Name, "tri")
	}
	if len(doc.Vertices) != 3 {
		t.Fatalf("vertices: got %d, want 3", len(doc.Vertices))
	}
	if len(doc.Faces) != 1 {
		t.Fatalf("faces: got %d, want 1", len(doc.Faces))
	}
	if doc.Faces[0] != [3]uint32{0, 1, 2} {
		t.Fatalf("face: got %v", doc.Faces[0])
	}
	if len(doc.Materials) != 1 || doc.Materials[0].FaceVertexCount != 3 {
		t.Fatalf("materials: got %+v", doc.Materials)
	}
	if len(doc.Bones) != 1 || doc.Bones[0].ParentIndex != -1 {
		t.Fatalf("bones: got %+v", doc.Bones)
	}

	for i, v := range doc.Vertices {
		bind, ok := v.Skin.(SingleBind)
		if !ok {
			t.Fatalf("vertex %d: skin is %T, want SingleBind", i, v.Skin)
		}
		if bind.Bone != 0 {
			t.Fatalf("vertex %d: bone %d, want 0", i, bind.Bone)
		}
	}
}

func TestDecodeDeterministic(t *testing.T) {
	data := pmxtest.SingleTriangle()
	a, err := Decode(data)
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}
	b, err := Decode(data)
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("decode is not deterministic")
	}
}

func TestDecodeTruncatedAtEveryLength(t *testing.T) {
	data := pmxtest.SingleTriangle()
	for n := 0; n < len(data); n++ {
		doc, err := Decode(data[:n])
		if err == nil {
			// Prefixes ending exactly at a section boundary after the bone
			// section are complete models with empty trailing sections.
			if len(doc.Bones) == 1 {
				continue
			}
			t.Fatalf("decode of %d-byte prefix succeeded unexpectedly", n)
		}
	}
}

func TestDecodeStopsCleanlyAfterBones(t *testing.T) {
	// Some exporters emit nothing after the bone section.
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(0) // vertices
	w.I32(0) // faces
	w.I32(0) // textures
	w.I32(0) // materials
	w.I32(1)
	w.Bone("root", 0, 0, 0, -1)

	doc, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(doc.Bones) != 1 {
		t.Fatalf("bones: got %d, want 1", len(doc.Bones))
	}
	if len(doc.Morphs) != 0 || len(doc.RigidBodies) != 0 || len(doc.Joints) != 0 {
		t.Fatalf("trailing sections should be empty: %+v", doc)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	data := pmxtest.SingleTriangle()
	data[0] = 'Q'
	if _, err := Decode(data); !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("bad magic: got %v, want ErrInvalidHeader", err)
	}
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Raw([]byte("PMX "))
	w.F32(3.0)
	w.U8(8)
	w.Raw(make([]byte, 8))

	if _, err := Decode(w.Bytes()); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("version 3.0: got %v, want ErrUnsupportedVersion", err)
	}
}

func TestDecodeBadIndexWidth(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Raw([]byte("PMX "))
	w.F32(2.0)
	w.U8(8)
	w.U8(1) // UTF-8
	w.U8(0)
	w.U8(3) // invalid vertex index width
	w.Raw(make([]byte, 5))

	if _, err := Decode(w.Bytes()); !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("width 3: got %v, want ErrInvalidHeader", err)
	}
}

func TestDecodeInvalidWeightTag(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(1)
	w.Vec3(0, 0, 0)
	w.Vec3(0, 1, 0)
	w.Vec2(0, 0)
	w.U8(9) // unknown skin tag

	var weight *InvalidWeightTypeError
	_, err := Decode(w.Bytes())
	if !errors.As(err, &weight) {
		t.Fatalf("tag 9: got %v, want InvalidWeightTypeError", err)
	}
	if weight.Tag != 9 {
		t.Fatalf("tag: got %d, want 9", weight.Tag)
	}
}

func TestDecodeQDEFAsQuad(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(1)
	w.Vec3(0, 0, 0)
	w.Vec3(0, 1, 0)
	w.Vec2(0, 0)
	w.U8(4) // QDEF shares the BDEF4 layout
	for i := 0; i < 4; i++ {
		w.Index(int32(i), 1)
	}
	w.F32(0.25)
	w.F32(0.25)
	w.F32(0.25)
	w.F32(0.25)
	w.F32(1)
	w.I32(0) // faces
	w.I32(0) // textures
	w.I32(0) // materials
	w.I32(0) // bones

	doc, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	bind, ok := doc.Vertices[0].Skin.(QuadBind)
	if !ok {
		t.Fatalf("skin is %T, want QuadBind", doc.Vertices[0].Skin)
	}

	var sum float32
	for _, wt := range bind.Weights {
		sum += wt
	}
	if math.Abs(float64(sum-1)) > 1e-4 {
		t.Fatalf("quad weights sum to %f", sum)
	}
}

func TestDecodeSDEF(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(1)
	w.Vec3(0, 0, 0)
	w.Vec3(0, 1, 0)
	w.Vec2(0, 0)
	w.U8(3) // SDEF
	w.Index(0, 1)
	w.Index(1, 1)
	w.F32(0.7)
	w.Vec3(1, 2, 3) // center
	w.Vec3(4, 5, 6) // r0
	w.Vec3(7, 8, 9) // r1
	w.F32(1)
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(2)
	w.Bone("a", 0, 0, 0, -1)
	w.Bone("b", 0, 1, 0, 0)

	doc, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	bind, ok := doc.Vertices[0].Skin.(SphericalBind)
	if !ok {
		t.Fatalf("skin is %T, want SphericalBind", doc.Vertices[0].Skin)
	}
	if bind.WeightA != 0.7 || bind.Center.X() != 1 || bind.R1.Z() != 9 {
		t.Fatalf("SDEF payload: %+v", bind)
	}
}

func TestDecodeFaceCountNotDivisibleByThree(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(1)
	w.VertexSingle(0, 0, 0, 0)
	w.I32(4) // not a multiple of 3
	w.Raw([]byte{0, 0, 0, 0})

	var corrupt *CorruptSectionError
	_, err := Decode(w.Bytes())
	if !errors.As(err, &corrupt) || corrupt.Section != "faces" {
		t.Fatalf("face count 4: got %v, want faces CorruptSectionError", err)
	}
}

func TestDecodeFaceVertexOutOfRange(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(2)
	w.VertexSingle(0, 0, 0, 0)
	w.VertexSingle(1, 0, 0, 0)
	w.I32(3)
	w.U8(0)
	w.U8(1)
	w.U8(5) // only 2 vertices exist

	var corrupt *CorruptSectionError
	_, err := Decode(w.Bytes())
	if !errors.As(err, &corrupt) || corrupt.Section != "faces" {
		t.Fatalf("face index 5: got %v, want faces CorruptSectionError", err)
	}
}

func TestDecodeRejectsHugeCount(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(1 << 30) // far above the section cap

	var corrupt *CorruptSectionError
	_, err := Decode(w.Bytes())
	if !errors.As(err, &corrupt) {
		t.Fatalf("huge vertex count: got %v, want CorruptSectionError", err)
	}
}

func TestDecodeUTF16ModelInfo(t *testing.T) {
	w := &pmxtest.Writer{Encoding: 0}
	w.Header()
	w.ModelInfo("初音ミク", "Miku", "コメント", "")
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(0)

	doc, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if doc.Name != "初音ミク" || doc.NameEN != "Miku" || doc.Comment != "コメント" {
		t.Fatalf("model info: %q %q %q", doc.Name, doc.NameEN, doc.Comment)
	}
}

func TestDecodeWideIndexWidths(t *testing.T) {
	w := pmxtest.NewWriter()
	w.HeaderWidths([6]uint8{2, 4, 4, 2, 2, 4})
	w.ModelInfo("m", "", "", "")

	w.I32(3)
	for i := 0; i < 3; i++ {
		w.Vec3(float32(i), 0, 0)
		w.Vec3(0, 1, 0)
		w.Vec2(0, 0)
		w.U8(0)
		w.Index(0, 2) // bone index, 2 bytes
		w.F32(1)
	}

	w.I32(3)
	w.U16(0)
	w.U16(1)
	w.U16(2)

	w.I32(0) // textures

	w.I32(1)
	w.Text("mat")
	w.Text("")
	w.Vec4(1, 1, 1, 1)
	w.Vec3(0, 0, 0)
	w.F32(5)
	w.Vec3(0, 0, 0)
	w.U8(0)
	w.Vec4(0, 0, 0, 1)
	w.F32(1)
	w.Index(-1, 4)
	w.Index(-1, 4)
	w.U8(0)
	w.U8(0)
	w.Index(-1, 4)
	w.Text("")
	w.I32(3)

	w.I32(1)
	w.Text("root")
	w.Text("")
	w.Vec3(0, 0, 0)
	w.Index(-1, 2)
	w.I32(0)
	w.U16(0)
	w.Vec3(0, 0, 0)

	doc, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(doc.Vertices) != 3 || len(doc.Faces) != 1 || len(doc.Bones) != 1 {
		t.Fatalf("counts: v=%d f=%d b=%d", len(doc.Vertices), len(doc.Faces), len(doc.Bones))
	}
	if doc.Materials[0].TextureIndex != -1 {
		t.Fatalf("texture index: got %d, want -1", doc.Materials[0].TextureIndex)
	}
}

func TestDecodeExtraUVChannels(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Raw([]byte("PMX "))
	w.F32(2.1)
	w.U8(8)
	w.U8(1) // UTF-8
	w.U8(2) // two extra UV channels
	for i := 0; i < 6; i++ {
		w.U8(1)
	}
	w.ModelInfo("m", "", "", "")

	w.I32(1)
	w.Vec3(0, 0, 0)
	w.Vec3(0, 1, 0)
	w.Vec2(0.5, 0.5)
	w.Vec4(1, 2, 3, 4) // extra UV 0
	w.Vec4(5, 6, 7, 8) // extra UV 1
	w.U8(0)
	w.Index(0, 1)
	w.F32(1)

	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(1)
	w.Bone("root", 0, 0, 0, -1)

	doc, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	v := doc.Vertices[0]
	if len(v.ExtraUVs) != 2 {
		t.Fatalf("extra UVs: got %d, want 2", len(v.ExtraUVs))
	}
	if v.ExtraUVs[1].W() != 8 {
		t.Fatalf("extra UV payload: %+v", v.ExtraUVs)
	}
}

func TestDecodeMorphs(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(1)
	w.VertexSingle(0, 0, 0, 0)
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(1)
	w.Bone("root", 0, 0, 0, -1)

	w.I32(3) // morphs

	// Vertex morph with one offset.
	w.Text("smile")
	w.Text("")
	w.U8(1) // panel
	w.U8(1) // vertex kind
	w.I32(1)
	w.Index(0, 1)
	w.Vec3(0, 0.5, 0)

	// Bone morph: decoded as unhandled but must keep the cursor aligned.
	w.Text("pose")
	w.Text("")
	w.U8(2)
	w.U8(2) // bone kind
	w.I32(1)
	w.Index(0, 1)
	w.Vec3(0, 0, 0)
	w.Vec4(0, 0, 0, 1)

	// Material morph.
	w.Text("fade")
	w.Text("")
	w.U8(4)
	w.U8(8) // material kind
	w.I32(1)
	w.Index(-1, 1) // all materials
	w.U8(0)        // multiplicative
	w.Vec4(1, 1, 1, 0.5)
	w.Vec4(1, 1, 1, 1)
	w.Vec3(1, 1, 1)
	w.Vec4(0, 0, 0, 1)
	w.F32(1)
	w.Vec4(1, 1, 1, 1)
	w.Vec4(1, 1, 1, 1)
	w.Vec4(1, 1, 1, 1)

	w.I32(0) // display frames
	w.I32(0) // rigid bodies
	w.I32(0) // joints

	doc, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(doc.Morphs) != 3 {
		t.Fatalf("morphs: got %d, want 3", len(doc.Morphs))
	}

	vo, ok := doc.Morphs[0].Offsets.(VertexOffsets)
	if !ok || len(vo) != 1 || vo[0].Offset.Y() != 0.5 {
		t.Fatalf("vertex morph: %+v", doc.Morphs[0].Offsets)
	}

	uo, ok := doc.Morphs[1].Offsets.(UnhandledOffsets)
	if !ok || uo.Kind != MorphKindBone || uo.Count != 1 {
		t.Fatalf("bone morph: %+v", doc.Morphs[1].Offsets)
	}

	mo, ok := doc.Morphs[2].Offsets.(MaterialOffsets)
	if !ok || len(mo) != 1 || mo[0].MaterialIndex != -1 || mo[0].Additive {
		t.Fatalf("material morph: %+v", doc.Morphs[2].Offsets)
	}
}

func TestDecodeUnknownMorphKind(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(0)

	w.I32(1)
	w.Text("bad")
	w.Text("")
	w.U8(0)
	w.U8(42) // no such kind
	w.I32(0)

	var corrupt *CorruptSectionError
	_, err := Decode(w.Bytes())
	if !errors.As(err, &corrupt) || corrupt.Section != "morphs" {
		t.Fatalf("morph kind 42: got %v, want morphs CorruptSectionError", err)
	}
}

func TestDecodeIKBone(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(3)
	w.Bone("root", 0, 0, 0, -1)
	w.Bone("leg", 0, 1, 0, 0)
	w.IKBone("ik", 0, 2, 0, 0, 1, 10, []int32{1})

	doc, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	ik := doc.Bones[2]
	if !ik.IsIK || ik.IKTarget != 1 || ik.IKLoopCount != 10 {
		t.Fatalf("IK bone: %+v", ik)
	}
	if len(ik.IKLinks) != 1 || ik.IKLinks[0].BoneIndex != 1 || ik.IKLinks[0].HasLimit {
		t.Fatalf("IK links: %+v", ik.IKLinks)
	}
}

func TestDecodePhysicsSections(t *testing.T) {
	w := pmxtest.NewWriter()
	w.Header()
	w.ModelInfo("m", "", "", "")
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(0)
	w.I32(1)
	w.Bone("root", 0, 0, 0, -1)
	w.I32(0) // morphs
	w.I32(0) // display frames

	w.I32(2)
	w.RigidBody("bodyA", 0, ShapeSphere, 1)
	w.RigidBody("bodyB", -1, ShapeBox, 0)

	w.I32(1)
	w.Joint("jointAB", 0, 1)

	doc, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(doc.RigidBodies) != 2 {
		t.Fatalf("rigid bodies: got %d, want 2", len(doc.RigidBodies))
	}
	if doc.RigidBodies[0].BoneIndex != 0 || doc.RigidBodies[1].BoneIndex != -1 {
		t.Fatalf("body bone indices: %+v", doc.RigidBodies)
	}
	if doc.RigidBodies[1].Shape != ShapeBox {
		t.Fatalf("body shape: got %d", doc.RigidBodies[1].Shape)
	}
	if len(doc.Joints) != 1 || doc.Joints[0].BodyA != 0 || doc.Joints[0].BodyB != 1 {
		t.Fatalf("joints: %+v", doc.Joints)
	}
}

func TestDecodeMaterialFaceVertexTotal(t *testing.T) {
	doc, err := Decode(pmxtest.SingleTriangle())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	var total int32
	for _, m := range doc.Materials {
		total += m.FaceVertexCount
	}
	if int(total) != len(doc.Faces)*3 {
		t.Fatalf("material face vertex total %d, faces %d", total, len(doc.Faces))
	}
}
