package pmx

import "github.com/go-gl/mathgl/mgl32"

// Header holds the format version and the per-table index byte widths.
type Header struct {
	Version  float32
	Encoding uint8 // 0: UTF-16LE, 1: UTF-8
	ExtraUVs uint8 // number of additional vec4 UV channels (0-4)

	VertexIndexSize    uint8
	TextureIndexSize   uint8
	MaterialIndexSize  uint8
	BoneIndexSize      uint8
	MorphIndexSize     uint8
	RigidBodyIndexSize uint8
}

// Document is the immutable in-memory model produced by Decode. It holds no
// references into host scene objects; all cross-references are positional
// indices into its own tables.
type Document struct {
	Header Header

	Name      string
	NameEN    string
	Comment   string
	CommentEN string

	Vertices      []Vertex
	Faces         [][3]uint32
	Textures      []string
	Materials     []Material
	Bones         []Bone
	Morphs        []Morph
	DisplayFrames []DisplayFrame
	RigidBodies   []RigidBody
	Joints        []Joint
}

// Vertex is one mesh vertex with its skin binding.
type Vertex struct {
	Position  mgl32.Vec3
	Normal    mgl32.Vec3
	UV        mgl32.Vec2
	ExtraUVs  []mgl32.Vec4
	Skin      SkinBinding
	EdgeScale float32
}

// SkinBinding is the tagged skin-weight variant attached to a vertex.
// Exactly one concrete type matches each wire tag.
type SkinBinding interface {
	skinBinding()
}

// SingleBind assigns the whole vertex to one bone (BDEF1).
type SingleBind struct {
	Bone int32
}

// DualBind splits the vertex between two bones (BDEF2);
// bone B's weight is 1 - WeightA.
type DualBind struct {
	BoneA, BoneB int32
	WeightA      float32
}

// QuadBind spreads the vertex over up to four bones (BDEF4/QDEF).
// Zero-weight slots are legal and skipped on apply.
type QuadBind struct {
	Bones   [4]int32
	Weights [4]float32
}

// SphericalBind is the spherical deform variant (SDEF). Center/R0/R1 are
// retained for downstream deform but basic skinning uses only the weights.
type SphericalBind struct {
	BoneA, BoneB int32
	WeightA      float32
	Center       mgl32.Vec3
	R0, R1       mgl32.Vec3
}

func (SingleBind) skinBinding()    {}
func (DualBind) skinBinding()      {}
func (QuadBind) skinBinding()      {}
func (SphericalBind) skinBinding() {}

// Material describes one material record. Materials partition the face list:
// each covers FaceVertexCount/3 consecutive triangles in declaration order.
type Material struct {
	Name   string
	NameEN string

	Diffuse  mgl32.Vec4
	Specular mgl32.Vec3
	Shine    float32
	Ambient  mgl32.Vec3

	Flags     uint8
	EdgeColor mgl32.Vec4
	EdgeSize  float32

	TextureIndex       int32 // -1: none
	SphereTextureIndex int32
	SphereMode         uint8
	SharedToon         bool
	ToonTextureIndex   int32

	Comment         string
	FaceVertexCount int32
}

// TailRef describes where a bone's tail points: at another bone by index, or
// at an offset from the head. Linked is valid when LinkedBone >= 0.
type TailRef struct {
	Linked     bool
	LinkedBone int32
	Offset     mgl32.Vec3
}

// IKLink is one bone in an IK chain, with optional per-axis angle limits.
type IKLink struct {
	BoneIndex int32
	HasLimit  bool
	MinAngle  mgl32.Vec3
	MaxAngle  mgl32.Vec3
}

// AdditionalTransform is rotation/translation inherited from another bone.
type AdditionalTransform struct {
	SourceBone  int32
	Ratio       float32
	Rotation    bool
	Translation bool
}

// Bone flag bits (wire format).
const (
	BoneFlagTailLinked     uint16 = 0x0001
	BoneFlagRotatable      uint16 = 0x0002
	BoneFlagTranslatable   uint16 = 0x0004
	BoneFlagVisible        uint16 = 0x0008
	BoneFlagEnabled        uint16 = 0x0010
	BoneFlagIK             uint16 = 0x0020
	BoneFlagInheritRotate  uint16 = 0x0100
	BoneFlagInheritMove    uint16 = 0x0200
	BoneFlagFixedAxis      uint16 = 0x0400
	BoneFlagLocalAxis      uint16 = 0x0800
	BoneFlagAfterPhysics   uint16 = 0x1000
	BoneFlagExternalParent uint16 = 0x2000
)

// Bone is one bone record. ParentIndex is -1 for roots and may reference a
// bone declared later in the file.
type Bone struct {
	Name   string
	NameEN string

	Position    mgl32.Vec3
	ParentIndex int32
	Layer       int32
	Flags       uint16

	Tail TailRef

	Additional *AdditionalTransform

	FixedAxis  mgl32.Vec3
	LocalXAxis mgl32.Vec3
	LocalZAxis mgl32.Vec3

	ExternalParentKey int32

	IsIK        bool
	IKTarget    int32
	IKLoopCount int32
	IKAngleStep float32
	IKLinks     []IKLink
}

// Morph kinds (wire format tag values).
const (
	MorphKindGroup    uint8 = 0
	MorphKindVertex   uint8 = 1
	MorphKindBone     uint8 = 2
	MorphKindUV       uint8 = 3
	MorphKindUV1      uint8 = 4
	MorphKindUV2      uint8 = 5
	MorphKindUV3      uint8 = 6
	MorphKindUV4      uint8 = 7
	MorphKindMaterial uint8 = 8
	MorphKindFlip     uint8 = 9
	MorphKindImpulse  uint8 = 10
)

// Morph is one morph target. Offsets holds the variant matching Kind; kinds
// the reconstructor does not consume decode to UnhandledOffsets so no data
// is silently dropped.
type Morph struct {
	Name   string
	NameEN string
	Panel  uint8
	Kind   uint8

	Offsets MorphOffsets
}

// MorphOffsets is the tagged offset-list variant of a morph.
type MorphOffsets interface {
	morphOffsets()
}

// VertexOffsets moves vertices relative to the basis shape.
type VertexOffsets []VertexMorphOffset

// VertexMorphOffset displaces one vertex.
type VertexMorphOffset struct {
	VertexIndex int32
	Offset      mgl32.Vec3
}

// MaterialOffsets blends parameters into existing materials.
type MaterialOffsets []MaterialMorphOffset

// MaterialMorphOffset blends one material; MaterialIndex -1 means all.
type MaterialMorphOffset struct {
	MaterialIndex int32
	Additive      bool
	Diffuse       mgl32.Vec4
	Specular      mgl32.Vec4
	Ambient       mgl32.Vec3
	EdgeColor     mgl32.Vec4
	EdgeSize      float32
	Texture       mgl32.Vec4
	SphereTexture mgl32.Vec4
	ToonTexture   mgl32.Vec4
}

// UnhandledOffsets preserves the raw kind and element count of a morph kind
// the reconstructor does not apply.
type UnhandledOffsets struct {
	Kind  uint8
	Count int32
}

func (VertexOffsets) morphOffsets()    {}
func (MaterialOffsets) morphOffsets()  {}
func (UnhandledOffsets) morphOffsets() {}

// DisplayFrame groups bones/morphs for UI display. Retained so sections that
// follow it parse correctly; reconstruction ignores it.
type DisplayFrame struct {
	Name     string
	NameEN   string
	Special  bool
	Elements []DisplayElement
}

// DisplayElement is one frame entry: a bone (Kind 0) or a morph (Kind 1).
type DisplayElement struct {
	Kind  uint8
	Index int32
}

// Rigid body collision shapes.
const (
	ShapeSphere  uint8 = 0
	ShapeBox     uint8 = 1
	ShapeCapsule uint8 = 2
)

// Rigid body simulation modes.
const (
	PhysicsModeStatic      uint8 = 0 // follows its bone, collision only
	PhysicsModeDynamic     uint8 = 1
	PhysicsModeDynamicBone uint8 = 2
)

// RigidBody is one physics body. BoneIndex -1 means unattached.
type RigidBody struct {
	Name   string
	NameEN string

	BoneIndex int32

	Group         uint8
	CollisionMask uint16

	Shape    uint8
	Size     mgl32.Vec3
	Position mgl32.Vec3
	Rotation mgl32.Vec3

	Mass           float32
	LinearDamping  float32
	AngularDamping float32
	Restitution    float32
	Friction       float32

	Mode uint8
}

// Joint links two rigid bodies with linear/angular limits and spring
// constants. Body indices of -1 (or out of range) degrade to an
// unconstrained joint at reconstruction.
type Joint struct {
	Name   string
	NameEN string

	Kind uint8

	BodyA, BodyB int32

	Position mgl32.Vec3
	Rotation mgl32.Vec3

	LinearLower  mgl32.Vec3
	LinearUpper  mgl32.Vec3
	AngularLower mgl32.Vec3
	AngularUpper mgl32.Vec3

	SpringLinear  mgl32.Vec3
	SpringAngular mgl32.Vec3
}
