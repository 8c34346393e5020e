// Package builder reconstructs a scene graph from a decoded model document.
// It runs strictly ordered passes over the document; geometry, weights, and
// materials are mandatory, while constraints, morphs, and physics degrade to
// per-element warnings.
package builder

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"pmx-importer/internal/pmx"
	"pmx-importer/internal/scene"
	"pmx-importer/internal/skeleton"
)

// Options controls reconstruction.
type Options struct {
	Scale         float32
	ImportMorphs  bool
	ImportPhysics bool
}

// DefaultOptions returns the options a plain import uses.
func DefaultOptions() Options {
	return Options{Scale: 1.0, ImportMorphs: true, ImportPhysics: true}
}

// ProgressFunc receives one-way stage notifications. It must not block; there
// is no cancellation channel, an import runs to completion or fails outright.
type ProgressFunc func(stage string)

// Summary reports what an import produced and what it skipped.
type Summary struct {
	Name          string
	Vertices      int
	Faces         int
	Materials     int
	Bones         int
	Morphs        int
	SkippedMorphs int
	RigidBodies   int
	Joints        int

	Warnings []string
}

func (s *Summary) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// MaterialFaceCountError reports materials whose declared face-vertex counts
// do not partition the face list exactly.
type MaterialFaceCountError struct {
	Declared int
	Actual   int
}

func (e *MaterialFaceCountError) Error() string {
	return fmt.Sprintf("builder: materials declare %d triangles, mesh has %d", e.Declared, e.Actual)
}

// HostRejectedError wraps a collaborator failure during a mandatory pass.
type HostRejectedError struct {
	Op  string
	Err error
}

func (e *HostRejectedError) Error() string {
	return fmt.Sprintf("builder: host rejected %s: %v", e.Op, e.Err)
}

func (e *HostRejectedError) Unwrap() error {
	return e.Err
}

// builder holds the per-import reconstruction tables. Each table is
// positional: index i maps the document's element i to its scene handle.
// Tables are append-only during their construction pass and read-only after.
type builder struct {
	doc    *pmx.Document
	target scene.Collaborator
	opts   Options
	sum    *Summary

	mesh   scene.MeshHandle
	groups []*scene.VertexGroupHandle // lazily created, nil until first weight
	bones  []scene.BoneHandle
	mats   []scene.MaterialHandle
	bodies []*scene.BodyHandle // nil where creation failed

	basis bool // basis shape key exists
}

// Build reconstructs doc into target and returns the import summary. The
// progress callback may be nil.
func Build(doc *pmx.Document, target scene.Collaborator, opts Options, progress ProgressFunc) (*Summary, error) {
	if opts.Scale == 0 {
		opts.Scale = 1.0
	}
	step := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	b := &builder{
		doc:    doc,
		target: target,
		opts:   opts,
		sum:    &Summary{Name: doc.Name},
	}

	step("vertices")
	if err := b.geometryPass(); err != nil {
		return nil, err
	}
	if err := b.weightPass(); err != nil {
		return nil, err
	}

	step("materials")
	if err := b.materialPass(); err != nil {
		return nil, err
	}
	step("faces")
	if err := b.facePass(); err != nil {
		return nil, err
	}

	step("bones")
	if err := b.bonePass(); err != nil {
		return nil, err
	}
	b.constraintPass()

	step("morphs")
	if opts.ImportMorphs {
		b.morphPass()
	}

	step("physics")
	if opts.ImportPhysics {
		b.physicsPass()
	}

	step("finalize")
	b.sum.Vertices = len(doc.Vertices)
	b.sum.Faces = len(doc.Faces)
	return b.sum, nil
}

// geometryPass creates the single mesh from the document's vertices and
// faces. Skinning tables are sized here; groups themselves are created
// lazily when the weight pass first touches a bone.
func (b *builder) geometryPass() error {
	doc := b.doc
	positions := make([]mgl32.Vec3, len(doc.Vertices))
	normals := make([]mgl32.Vec3, len(doc.Vertices))
	uvs := make([]mgl32.Vec2, len(doc.Vertices))
	for i := range doc.Vertices {
		positions[i] = doc.Vertices[i].Position.Mul(b.opts.Scale)
		normals[i] = doc.Vertices[i].Normal
		uvs[i] = doc.Vertices[i].UV
	}

	name := doc.Name
	if name == "" {
		name = "model"
	}
	mesh, err := b.target.CreateMesh(name, positions, normals, uvs, doc.Faces)
	if err != nil {
		return &HostRejectedError{Op: "create_mesh", Err: err}
	}
	b.mesh = mesh
	b.groups = make([]*scene.VertexGroupHandle, len(doc.Bones))
	return nil
}

// group returns the vertex group for a bone, creating and naming it on first
// use. A bone index outside the bone table is a dangling mandatory reference.
func (b *builder) group(bone int32) (scene.VertexGroupHandle, error) {
	if bone < 0 || int(bone) >= len(b.groups) {
		return 0, &pmx.DanglingIndexError{Kind: "bone", Index: bone}
	}
	if b.groups[bone] != nil {
		return *b.groups[bone], nil
	}
	h, err := b.target.CreateVertexGroup(b.mesh, b.doc.Bones[bone].Name)
	if err != nil {
		return 0, &HostRejectedError{Op: "create_vertex_group", Err: err}
	}
	b.groups[bone] = &h
	return h, nil
}

func (b *builder) assign(bone int32, vertex int, weight float32, mode scene.AssignMode) error {
	g, err := b.group(bone)
	if err != nil {
		return err
	}
	if err := b.target.AssignWeight(g, vertex, weight, mode); err != nil {
		return &HostRejectedError{Op: "assign_weight", Err: err}
	}
	return nil
}

// weightPass applies every vertex's skin binding. Dual variants replace;
// quad variants accumulate, because a vertex may carry the same bone in more
// than one slot. Zero-weight quad slots are skipped, never assigned.
func (b *builder) weightPass() error {
	for i := range b.doc.Vertices {
		switch bind := b.doc.Vertices[i].Skin.(type) {
		case pmx.SingleBind:
			if err := b.assign(bind.Bone, i, 1.0, scene.Replace); err != nil {
				return err
			}

		case pmx.DualBind:
			if err := b.assign(bind.BoneA, i, bind.WeightA, scene.Replace); err != nil {
				return err
			}
			if err := b.assign(bind.BoneB, i, 1.0-bind.WeightA, scene.Replace); err != nil {
				return err
			}

		case pmx.SphericalBind:
			// Basic skinning treats SDEF as the dual case; center/r0/r1 stay
			// in the document for downstream deformers.
			if err := b.assign(bind.BoneA, i, bind.WeightA, scene.Replace); err != nil {
				return err
			}
			if err := b.assign(bind.BoneB, i, 1.0-bind.WeightA, scene.Replace); err != nil {
				return err
			}

		case pmx.QuadBind:
			for slot := range bind.Bones {
				if bind.Weights[slot] <= 0 {
					continue
				}
				if err := b.assign(bind.Bones[slot], i, bind.Weights[slot], scene.Add); err != nil {
					return err
				}
			}

		default:
			return fmt.Errorf("builder: vertex %d has no skin binding", i)
		}
	}
	return nil
}

func (b *builder) texturePath(index int32) string {
	if index < 0 || int(index) >= len(b.doc.Textures) {
		return ""
	}
	return b.doc.Textures[index]
}

func (b *builder) materialPass() error {
	b.mats = make([]scene.MaterialHandle, len(b.doc.Materials))
	for i := range b.doc.Materials {
		m := &b.doc.Materials[i]
		h, err := b.target.CreateMaterial(scene.MaterialProps{
			Name:        m.Name,
			Diffuse:     m.Diffuse,
			Specular:    m.Specular,
			Shine:       m.Shine,
			Ambient:     m.Ambient,
			TexturePath: b.texturePath(m.TextureIndex),
			SphereMode:  m.SphereMode,
		})
		if err != nil {
			return &HostRejectedError{Op: "create_material", Err: err}
		}
		b.mats[i] = h
	}
	b.sum.Materials = len(b.mats)
	return nil
}

// facePass assigns faces to materials positionally: each material consumes
// FaceVertexCount/3 consecutive triangles in declaration order. The
// partition must cover the face list exactly.
func (b *builder) facePass() error {
	declared := 0
	for i := range b.doc.Materials {
		fv := int(b.doc.Materials[i].FaceVertexCount)
		if fv < 0 || fv%3 != 0 {
			return &MaterialFaceCountError{Declared: fv, Actual: len(b.doc.Faces) * 3}
		}
		declared += fv / 3
	}
	if declared != len(b.doc.Faces) {
		return &MaterialFaceCountError{Declared: declared, Actual: len(b.doc.Faces)}
	}

	first := 0
	for i := range b.doc.Materials {
		count := int(b.doc.Materials[i].FaceVertexCount) / 3
		if err := b.target.AssignFacesToMaterial(b.mesh, first, count, b.mats[i]); err != nil {
			return &HostRejectedError{Op: "assign_faces_to_material", Err: err}
		}
		first += count
	}
	return nil
}

// bonePass validates the hierarchy, then creates every bone with its parent
// attached at creation. Parents may be declared after their children, so
// creation recurses up the (already verified acyclic) parent chain; the
// handle table is complete before any constraint wiring starts.
func (b *builder) bonePass() error {
	doc := b.doc
	if err := skeleton.ValidateHierarchy(doc.Bones); err != nil {
		return err
	}

	b.bones = make([]scene.BoneHandle, len(doc.Bones))
	created := make([]bool, len(doc.Bones))

	var ensure func(i int32) error
	ensure = func(i int32) error {
		if created[i] {
			return nil
		}
		bone := &doc.Bones[i]
		var parent *scene.BoneHandle
		if bone.ParentIndex >= 0 {
			if err := ensure(bone.ParentIndex); err != nil {
				return err
			}
			parent = &b.bones[bone.ParentIndex]
		}
		head := bone.Position.Mul(b.opts.Scale)
		tail := skeleton.TailPosition(doc.Bones, int(i), b.opts.Scale)
		h, err := b.target.CreateBone(bone.Name, head, tail, parent)
		if err != nil {
			return &HostRejectedError{Op: "create_bone", Err: err}
		}
		b.bones[i] = h
		created[i] = true
		return nil
	}

	for i := range doc.Bones {
		if err := ensure(int32(i)); err != nil {
			return err
		}
	}
	b.sum.Bones = len(b.bones)
	return nil
}

// constraintPass wires IK constraints and angle limits. Everything here is
// best-effort: a malformed constraint is skipped with a warning and never
// aborts the import.
func (b *builder) constraintPass() {
	for i := range b.doc.Bones {
		bone := &b.doc.Bones[i]
		if !bone.IsIK {
			continue
		}
		if bone.IKTarget < 0 || int(bone.IKTarget) >= len(b.bones) {
			b.sum.warnf("bone %q: IK target %d does not exist, constraint skipped", bone.Name, bone.IKTarget)
			continue
		}
		err := b.target.CreateIKConstraint(b.bones[i], b.bones[bone.IKTarget], len(bone.IKLinks), int(bone.IKLoopCount))
		if err != nil {
			b.sum.warnf("bone %q: IK constraint rejected: %v", bone.Name, err)
			continue
		}
		// Angle limits land on the linked bone, not the IK bone itself.
		for _, link := range bone.IKLinks {
			if !link.HasLimit {
				continue
			}
			if link.BoneIndex < 0 || int(link.BoneIndex) >= len(b.bones) {
				b.sum.warnf("bone %q: IK link %d does not exist, limit skipped", bone.Name, link.BoneIndex)
				continue
			}
			if err := b.target.SetBoneAngleLimits(b.bones[link.BoneIndex], link.MinAngle, link.MaxAngle); err != nil {
				b.sum.warnf("bone %q: angle limit rejected: %v", b.doc.Bones[link.BoneIndex].Name, err)
			}
		}
	}

	for i := range b.doc.Bones {
		add := b.doc.Bones[i].Additional
		if add == nil {
			continue
		}
		if add.SourceBone < 0 || int(add.SourceBone) >= len(b.bones) {
			b.sum.warnf("bone %q: inherit source %d does not exist", b.doc.Bones[i].Name, add.SourceBone)
		}
	}
}

// morphPass creates shape keys for vertex morphs and blends material morphs
// into existing materials. A basis key is ensured before the first target.
// Unhandled morph kinds are counted and reported, never fatal.
func (b *builder) morphPass() {
	for i := range b.doc.Morphs {
		morph := &b.doc.Morphs[i]
		switch offsets := morph.Offsets.(type) {
		case pmx.VertexOffsets:
			if !b.ensureBasis() {
				return
			}
			key, err := b.target.CreateShapeKey(b.mesh, morph.Name)
			if err != nil {
				b.sum.warnf("morph %q: shape key rejected: %v", morph.Name, err)
				continue
			}
			for _, o := range offsets {
				if o.VertexIndex < 0 || int(o.VertexIndex) >= len(b.doc.Vertices) {
					b.sum.warnf("morph %q: vertex %d does not exist, offset skipped", morph.Name, o.VertexIndex)
					continue
				}
				if err := b.target.SetShapeKeyOffset(key, int(o.VertexIndex), o.Offset.Mul(b.opts.Scale)); err != nil {
					b.sum.warnf("morph %q: offset rejected: %v", morph.Name, err)
				}
			}
			b.sum.Morphs++

		case pmx.MaterialOffsets:
			applied := false
			for _, o := range offsets {
				blend := scene.MaterialBlend{
					Additive:  o.Additive,
					Diffuse:   o.Diffuse,
					Specular:  o.Specular,
					Ambient:   o.Ambient,
					EdgeColor: o.EdgeColor,
				}
				if o.MaterialIndex < 0 {
					// -1 targets every material.
					for _, h := range b.mats {
						if err := b.target.ApplyMaterialBlend(h, blend); err != nil {
							b.sum.warnf("morph %q: blend rejected: %v", morph.Name, err)
						}
					}
					applied = true
					continue
				}
				if int(o.MaterialIndex) >= len(b.mats) {
					b.sum.warnf("morph %q: material %d does not exist, blend skipped", morph.Name, o.MaterialIndex)
					continue
				}
				if err := b.target.ApplyMaterialBlend(b.mats[o.MaterialIndex], blend); err != nil {
					b.sum.warnf("morph %q: blend rejected: %v", morph.Name, err)
					continue
				}
				applied = true
			}
			if applied {
				b.sum.Morphs++
			}

		case pmx.UnhandledOffsets:
			b.sum.SkippedMorphs++
			b.sum.warnf("morph %q: kind %d not supported, skipped", morph.Name, offsets.Kind)
		}
	}
}

func (b *builder) ensureBasis() bool {
	if b.basis {
		return true
	}
	if _, err := b.target.CreateShapeKey(b.mesh, "Basis"); err != nil {
		b.sum.warnf("basis shape key rejected: %v", err)
		return false
	}
	b.basis = true
	return true
}

// physicsPass creates rigid bodies and the joints linking them. A body or
// joint referencing a missing element degrades to an unattached or
// unconstrained object.
func (b *builder) physicsPass() {
	scale := b.opts.Scale
	b.bodies = make([]*scene.BodyHandle, len(b.doc.RigidBodies))

	for i := range b.doc.RigidBodies {
		rb := &b.doc.RigidBodies[i]
		h, err := b.target.CreateRigidBody(rb.Name, rb.Shape, scene.Transform{
			Position: rb.Position.Mul(scale),
			Rotation: rb.Rotation,
			Size:     rb.Size.Mul(scale),
		}, rb.Mass, rb.Friction, rb.Restitution)
		if err != nil {
			b.sum.warnf("rigid body %q rejected: %v", rb.Name, err)
			continue
		}
		b.bodies[i] = &h
		b.sum.RigidBodies++

		if rb.BoneIndex < 0 {
			continue
		}
		if int(rb.BoneIndex) >= len(b.bones) {
			b.sum.warnf("rigid body %q: bone %d does not exist, left unattached", rb.Name, rb.BoneIndex)
			continue
		}
		if err := b.target.AttachBodyToBone(h, b.bones[rb.BoneIndex]); err != nil {
			b.sum.warnf("rigid body %q: attach rejected: %v", rb.Name, err)
		}
	}

	for i := range b.doc.Joints {
		j := &b.doc.Joints[i]
		bodyA := b.lookupBody(j.BodyA, j.Name)
		bodyB := b.lookupBody(j.BodyB, j.Name)

		_, err := b.target.CreateJoint(j.Name, bodyA, bodyB, scene.Transform{
			Position: j.Position.Mul(scale),
			Rotation: j.Rotation,
		}, scene.LimitRange{
			Lower: j.LinearLower.Mul(scale),
			Upper: j.LinearUpper.Mul(scale),
		}, scene.LimitRange{
			Lower: j.AngularLower,
			Upper: j.AngularUpper,
		})
		if err != nil {
			b.sum.warnf("joint %q rejected: %v", j.Name, err)
			continue
		}
		b.sum.Joints++
	}
}

// lookupBody resolves a joint's rigid-body reference, warning and returning
// nil (unconstrained side) when the index points nowhere.
func (b *builder) lookupBody(index int32, joint string) *scene.BodyHandle {
	if index < 0 {
		return nil
	}
	if int(index) >= len(b.bodies) || b.bodies[index] == nil {
		b.sum.warnf("joint %q: rigid body %d does not exist, left unconstrained", joint, index)
		return nil
	}
	return b.bodies[index]
}
