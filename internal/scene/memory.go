package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Memory is an in-memory Collaborator. It records every created object so
// tests and the command-line tools can inspect the reconstructed scene graph.
type Memory struct {
	Meshes      []*MemoryMesh
	Bones       []*MemoryBone
	Materials   []*MemoryMaterial
	RigidBodies []*MemoryBody
	Joints      []*MemoryJoint
	IKs         []MemoryIK
}

// MemoryMesh is one recorded mesh with its groups, face assignments, and
// shape keys.
type MemoryMesh struct {
	Name      string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Faces     [][3]uint32

	Groups    []*MemoryGroup
	FaceMats  []int // material handle per face, -1 unassigned
	ShapeKeys []*MemoryShapeKey
}

// MemoryGroup is one vertex group: vertex index to accumulated weight.
type MemoryGroup struct {
	Name    string
	Weights map[int]float32
}

// MemoryBone is one recorded bone.
type MemoryBone struct {
	Name       string
	Head, Tail mgl32.Vec3
	Parent     int // bone handle, -1 for roots

	HasLimits bool
	MinAngle  mgl32.Vec3
	MaxAngle  mgl32.Vec3
}

// MemoryIK is one recorded IK constraint.
type MemoryIK struct {
	Bone        BoneHandle
	Target      BoneHandle
	ChainLength int
	Iterations  int
}

// MemoryMaterial is one recorded material with any morph blends applied.
type MemoryMaterial struct {
	Props  MaterialProps
	Blends []MaterialBlend
}

// MemoryShapeKey is one recorded shape key.
type MemoryShapeKey struct {
	Name    string
	Offsets map[int]mgl32.Vec3
}

// MemoryBody is one recorded rigid body.
type MemoryBody struct {
	Name        string
	Shape       uint8
	Transform   Transform
	Mass        float32
	Friction    float32
	Restitution float32
	Bone        int // bone handle, -1 unattached
}

// MemoryJoint is one recorded joint. BodyA/BodyB are -1 when unconstrained.
type MemoryJoint struct {
	Name         string
	BodyA, BodyB int
	Transform    Transform
	Linear       LimitRange
	Angular      LimitRange
}

// NewMemory returns an empty in-memory scene.
func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) mesh(h MeshHandle) (*MemoryMesh, error) {
	if int(h) < 0 || int(h) >= len(s.Meshes) {
		return nil, fmt.Errorf("scene: unknown mesh handle %d", h)
	}
	return s.Meshes[h], nil
}

func (s *Memory) CreateMesh(name string, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2, faces [][3]uint32) (MeshHandle, error) {
	if len(normals) != len(positions) || len(uvs) != len(positions) {
		return 0, fmt.Errorf("scene: mesh %q: attribute counts differ", name)
	}
	faceMats := make([]int, len(faces))
	for i := range faceMats {
		faceMats[i] = -1
	}
	s.Meshes = append(s.Meshes, &MemoryMesh{
		Name:      name,
		Positions: positions,
		Normals:   normals,
		UVs:       uvs,
		Faces:     faces,
		FaceMats:  faceMats,
	})
	return MeshHandle(len(s.Meshes) - 1), nil
}

func (s *Memory) CreateVertexGroup(mesh MeshHandle, name string) (VertexGroupHandle, error) {
	m, err := s.mesh(mesh)
	if err != nil {
		return 0, err
	}
	m.Groups = append(m.Groups, &MemoryGroup{Name: name, Weights: make(map[int]float32)})
	return VertexGroupHandle(len(m.Groups) - 1), nil
}

// group resolves a vertex group handle across the single mesh an import
// creates. Handles are scoped to the most recently created mesh.
func (s *Memory) group(h VertexGroupHandle) (*MemoryGroup, error) {
	if len(s.Meshes) == 0 {
		return nil, fmt.Errorf("scene: no mesh for group handle %d", h)
	}
	m := s.Meshes[len(s.Meshes)-1]
	if int(h) < 0 || int(h) >= len(m.Groups) {
		return nil, fmt.Errorf("scene: unknown vertex group handle %d", h)
	}
	return m.Groups[h], nil
}

func (s *Memory) AssignWeight(group VertexGroupHandle, vertex int, weight float32, mode AssignMode) error {
	g, err := s.group(group)
	if err != nil {
		return err
	}
	if mode == Add {
		g.Weights[vertex] += weight
		return nil
	}
	g.Weights[vertex] = weight
	return nil
}

func (s *Memory) CreateBone(name string, head, tail mgl32.Vec3, parent *BoneHandle) (BoneHandle, error) {
	parentIdx := -1
	if parent != nil {
		if int(*parent) < 0 || int(*parent) >= len(s.Bones) {
			return 0, fmt.Errorf("scene: bone %q: unknown parent handle %d", name, *parent)
		}
		parentIdx = int(*parent)
	}
	s.Bones = append(s.Bones, &MemoryBone{Name: name, Head: head, Tail: tail, Parent: parentIdx})
	return BoneHandle(len(s.Bones) - 1), nil
}

func (s *Memory) CreateIKConstraint(bone, target BoneHandle, chainLength, iterations int) error {
	for _, h := range []BoneHandle{bone, target} {
		if int(h) < 0 || int(h) >= len(s.Bones) {
			return fmt.Errorf("scene: unknown bone handle %d", h)
		}
	}
	s.IKs = append(s.IKs, MemoryIK{Bone: bone, Target: target, ChainLength: chainLength, Iterations: iterations})
	return nil
}

func (s *Memory) SetBoneAngleLimits(bone BoneHandle, min, max mgl32.Vec3) error {
	if int(bone) < 0 || int(bone) >= len(s.Bones) {
		return fmt.Errorf("scene: unknown bone handle %d", bone)
	}
	b := s.Bones[bone]
	b.HasLimits = true
	b.MinAngle = min
	b.MaxAngle = max
	return nil
}

func (s *Memory) CreateMaterial(props MaterialProps) (MaterialHandle, error) {
	s.Materials = append(s.Materials, &MemoryMaterial{Props: props})
	return MaterialHandle(len(s.Materials) - 1), nil
}

func (s *Memory) AssignFacesToMaterial(mesh MeshHandle, firstFace, faceCount int, material MaterialHandle) error {
	m, err := s.mesh(mesh)
	if err != nil {
		return err
	}
	if firstFace < 0 || firstFace+faceCount > len(m.Faces) {
		return fmt.Errorf("scene: face range [%d,%d) outside mesh %q", firstFace, firstFace+faceCount, m.Name)
	}
	for i := firstFace; i < firstFace+faceCount; i++ {
		m.FaceMats[i] = int(material)
	}
	return nil
}

func (s *Memory) ApplyMaterialBlend(material MaterialHandle, blend MaterialBlend) error {
	if int(material) < 0 || int(material) >= len(s.Materials) {
		return fmt.Errorf("scene: unknown material handle %d", material)
	}
	s.Materials[material].Blends = append(s.Materials[material].Blends, blend)
	return nil
}

func (s *Memory) CreateShapeKey(mesh MeshHandle, name string) (ShapeKeyHandle, error) {
	m, err := s.mesh(mesh)
	if err != nil {
		return 0, err
	}
	m.ShapeKeys = append(m.ShapeKeys, &MemoryShapeKey{Name: name, Offsets: make(map[int]mgl32.Vec3)})
	return ShapeKeyHandle(len(m.ShapeKeys) - 1), nil
}

func (s *Memory) SetShapeKeyOffset(key ShapeKeyHandle, vertex int, offset mgl32.Vec3) error {
	if len(s.Meshes) == 0 {
		return fmt.Errorf("scene: no mesh for shape key handle %d", key)
	}
	m := s.Meshes[len(s.Meshes)-1]
	if int(key) < 0 || int(key) >= len(m.ShapeKeys) {
		return fmt.Errorf("scene: unknown shape key handle %d", key)
	}
	if vertex < 0 || vertex >= len(m.Positions) {
		return fmt.Errorf("scene: shape key vertex %d outside mesh", vertex)
	}
	m.ShapeKeys[key].Offsets[vertex] = offset
	return nil
}

func (s *Memory) CreateRigidBody(name string, shape uint8, transform Transform, mass, friction, restitution float32) (BodyHandle, error) {
	s.RigidBodies = append(s.RigidBodies, &MemoryBody{
		Name:        name,
		Shape:       shape,
		Transform:   transform,
		Mass:        mass,
		Friction:    friction,
		Restitution: restitution,
		Bone:        -1,
	})
	return BodyHandle(len(s.RigidBodies) - 1), nil
}

func (s *Memory) AttachBodyToBone(body BodyHandle, bone BoneHandle) error {
	if int(body) < 0 || int(body) >= len(s.RigidBodies) {
		return fmt.Errorf("scene: unknown body handle %d", body)
	}
	if int(bone) < 0 || int(bone) >= len(s.Bones) {
		return fmt.Errorf("scene: unknown bone handle %d", bone)
	}
	s.RigidBodies[body].Bone = int(bone)
	return nil
}

func (s *Memory) CreateJoint(name string, bodyA, bodyB *BodyHandle, transform Transform, linear, angular LimitRange) (JointHandle, error) {
	toIdx := func(h *BodyHandle) (int, error) {
		if h == nil {
			return -1, nil
		}
		if int(*h) < 0 || int(*h) >= len(s.RigidBodies) {
			return 0, fmt.Errorf("scene: joint %q: unknown body handle %d", name, *h)
		}
		return int(*h), nil
	}
	a, err := toIdx(bodyA)
	if err != nil {
		return 0, err
	}
	b, err := toIdx(bodyB)
	if err != nil {
		return 0, err
	}
	s.Joints = append(s.Joints, &MemoryJoint{
		Name:      name,
		BodyA:     a,
		BodyB:     b,
		Transform: transform,
		Linear:    linear,
		Angular:   angular,
	})
	return JointHandle(len(s.Joints) - 1), nil
}
