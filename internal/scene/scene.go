// Package scene defines the host-scene capability the reconstructor consumes.
// The import core never talks to a host application directly; it only calls
// this interface, which keeps decoding and reconstruction testable without
// any host present.
package scene

import "github.com/go-gl/mathgl/mgl32"

// Opaque handles for scene objects. Values are meaningful only to the
// collaborator that issued them.
type (
	MeshHandle        int
	VertexGroupHandle int
	BoneHandle        int
	MaterialHandle    int
	ShapeKeyHandle    int
	BodyHandle        int
	JointHandle       int
)

// AssignMode controls how a weight assignment combines with an existing one.
type AssignMode int

const (
	Replace AssignMode = iota
	Add
)

// MaterialProps carries the material parameters the host needs to create a
// material. TexturePath is empty when the material has no texture.
type MaterialProps struct {
	Name        string
	Diffuse     mgl32.Vec4
	Specular    mgl32.Vec3
	Shine       float32
	Ambient     mgl32.Vec3
	TexturePath string
	SphereMode  uint8
}

// MaterialBlend is a morph's parameter blend applied to an existing material.
type MaterialBlend struct {
	Additive  bool
	Diffuse   mgl32.Vec4
	Specular  mgl32.Vec4
	Ambient   mgl32.Vec3
	EdgeColor mgl32.Vec4
}

// Transform places a physics object in the scene.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // Euler XYZ radians
	Size     mgl32.Vec3
}

// LimitRange is a per-axis lower/upper bound pair.
type LimitRange struct {
	Lower mgl32.Vec3
	Upper mgl32.Vec3
}

// Collaborator is the scene-mutation capability injected into the
// reconstructor. All calls happen on the importing goroutine, in pass order;
// implementations need no locking for the import itself.
type Collaborator interface {
	CreateMesh(name string, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2, faces [][3]uint32) (MeshHandle, error)

	CreateVertexGroup(mesh MeshHandle, name string) (VertexGroupHandle, error)
	AssignWeight(group VertexGroupHandle, vertex int, weight float32, mode AssignMode) error

	CreateBone(name string, head, tail mgl32.Vec3, parent *BoneHandle) (BoneHandle, error)
	CreateIKConstraint(bone, target BoneHandle, chainLength, iterations int) error
	SetBoneAngleLimits(bone BoneHandle, min, max mgl32.Vec3) error

	CreateMaterial(props MaterialProps) (MaterialHandle, error)
	AssignFacesToMaterial(mesh MeshHandle, firstFace, faceCount int, material MaterialHandle) error
	ApplyMaterialBlend(material MaterialHandle, blend MaterialBlend) error

	CreateShapeKey(mesh MeshHandle, name string) (ShapeKeyHandle, error)
	SetShapeKeyOffset(key ShapeKeyHandle, vertex int, offset mgl32.Vec3) error

	CreateRigidBody(name string, shape uint8, transform Transform, mass, friction, restitution float32) (BodyHandle, error)
	AttachBodyToBone(body BodyHandle, bone BoneHandle) error
	CreateJoint(name string, bodyA, bodyB *BodyHandle, transform Transform, linear, angular LimitRange) (JointHandle, error)
}
