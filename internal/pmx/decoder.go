package pmx

import (
	"fmt"
)

// maxSectionCount caps per-section element counts. Anything above this is a
// corrupt count, not a real model; it keeps a bad file from driving an
// unbounded allocation.
const maxSectionCount = 16 << 20

var magic = [4]byte{'P', 'M', 'X', ' '}

// Decode parses a PMX 2.0/2.1 byte buffer into a Document. Decoding is pure:
// it touches no host state and the same bytes always yield the same document.
func Decode(data []byte) (*Document, error) {
	d := &decoder{r: newReader(data), doc: &Document{}}

	if err := d.header(); err != nil {
		return nil, err
	}
	if err := d.textInfo(); err != nil {
		return nil, fmt.Errorf("pmx: model info: %w", err)
	}
	if err := d.vertices(); err != nil {
		return nil, fmt.Errorf("pmx: vertices: %w", err)
	}
	if err := d.faces(); err != nil {
		return nil, fmt.Errorf("pmx: faces: %w", err)
	}
	if err := d.textures(); err != nil {
		return nil, fmt.Errorf("pmx: textures: %w", err)
	}
	if err := d.materials(); err != nil {
		return nil, fmt.Errorf("pmx: materials: %w", err)
	}
	if err := d.bones(); err != nil {
		return nil, fmt.Errorf("pmx: bones: %w", err)
	}

	// Some exporters stop after the bone section. A file ending exactly at a
	// section boundary decodes with the remaining sections empty; ending
	// mid-record is still a truncation error.
	for _, section := range []struct {
		name string
		fn   func() error
	}{
		{"morphs", d.morphs},
		{"display frames", d.displayFrames},
		{"rigid bodies", d.rigidBodies},
		{"joints", d.joints},
	} {
		if d.r.remaining() == 0 {
			break
		}
		if err := section.fn(); err != nil {
			return nil, fmt.Errorf("pmx: %s: %w", section.name, err)
		}
	}

	return d.doc, nil
}

type decoder struct {
	r   *reader
	doc *Document
}

func (d *decoder) text() (string, error) {
	return d.r.readText(d.doc.Header.Encoding)
}

// count reads a section's 4-byte element count and rejects negative or
// implausibly large values.
func (d *decoder) count(section string) (int, error) {
	n, err := d.r.readI32()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > maxSectionCount {
		return 0, &CorruptSectionError{Section: section, Reason: fmt.Sprintf("element count %d", n)}
	}
	return int(n), nil
}

func (d *decoder) header() error {
	m, err := d.r.take(4)
	if err != nil {
		return err
	}
	if [4]byte(m) != magic {
		return fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, m)
	}

	h := &d.doc.Header
	if h.Version, err = d.r.readF32(); err != nil {
		return err
	}
	if h.Version < 2.0 || h.Version > 2.1 {
		return fmt.Errorf("%w: %.1f", ErrUnsupportedVersion, h.Version)
	}

	headerSize, err := d.r.readU8()
	if err != nil {
		return err
	}
	if headerSize != 8 {
		return fmt.Errorf("%w: header size %d", ErrInvalidHeader, headerSize)
	}

	flags, err := d.r.take(8)
	if err != nil {
		return err
	}
	h.Encoding = flags[0]
	h.ExtraUVs = flags[1]
	h.VertexIndexSize = flags[2]
	h.TextureIndexSize = flags[3]
	h.MaterialIndexSize = flags[4]
	h.BoneIndexSize = flags[5]
	h.MorphIndexSize = flags[6]
	h.RigidBodyIndexSize = flags[7]

	if h.Encoding > 1 {
		return fmt.Errorf("%w: encoding flag %d", ErrInvalidHeader, h.Encoding)
	}
	if h.ExtraUVs > 4 {
		return fmt.Errorf("%w: %d extra UV channels", ErrInvalidHeader, h.ExtraUVs)
	}
	for _, w := range []uint8{
		h.VertexIndexSize, h.TextureIndexSize, h.MaterialIndexSize,
		h.BoneIndexSize, h.MorphIndexSize, h.RigidBodyIndexSize,
	} {
		if w != 1 && w != 2 && w != 4 {
			return fmt.Errorf("%w: index width %d", ErrInvalidHeader, w)
		}
	}
	return nil
}

func (d *decoder) textInfo() error {
	var err error
	if d.doc.Name, err = d.text(); err != nil {
		return err
	}
	if d.doc.NameEN, err = d.text(); err != nil {
		return err
	}
	if d.doc.Comment, err = d.text(); err != nil {
		return err
	}
	d.doc.CommentEN, err = d.text()
	return err
}

func (d *decoder) vertices() error {
	n, err := d.count("vertices")
	if err != nil {
		return err
	}
	h := d.doc.Header
	d.doc.Vertices = make([]Vertex, n)
	for i := range d.doc.Vertices {
		v := &d.doc.Vertices[i]
		if v.Position, err = d.r.readVec3(); err != nil {
			return err
		}
		if v.Normal, err = d.r.readVec3(); err != nil {
			return err
		}
		if v.UV, err = d.r.readVec2(); err != nil {
			return err
		}
		for j := uint8(0); j < h.ExtraUVs; j++ {
			extra, err := d.r.readVec4()
			if err != nil {
				return err
			}
			v.ExtraUVs = append(v.ExtraUVs, extra)
		}
		if v.Skin, err = d.skinBinding(); err != nil {
			return err
		}
		if v.EdgeScale, err = d.r.readF32(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) skinBinding() (SkinBinding, error) {
	tag, err := d.r.readU8()
	if err != nil {
		return nil, err
	}
	boneWidth := d.doc.Header.BoneIndexSize

	switch tag {
	case 0: // BDEF1
		bone, err := d.r.readIndex(boneWidth)
		if err != nil {
			return nil, err
		}
		return SingleBind{Bone: bone}, nil

	case 1: // BDEF2
		var b DualBind
		if b.BoneA, err = d.r.readIndex(boneWidth); err != nil {
			return nil, err
		}
		if b.BoneB, err = d.r.readIndex(boneWidth); err != nil {
			return nil, err
		}
		if b.WeightA, err = d.r.readF32(); err != nil {
			return nil, err
		}
		return b, nil

	case 2, 4: // BDEF4 and QDEF share the same layout
		var b QuadBind
		for i := range b.Bones {
			if b.Bones[i], err = d.r.readIndex(boneWidth); err != nil {
				return nil, err
			}
		}
		for i := range b.Weights {
			if b.Weights[i], err = d.r.readF32(); err != nil {
				return nil, err
			}
		}
		return b, nil

	case 3: // SDEF
		var b SphericalBind
		if b.BoneA, err = d.r.readIndex(boneWidth); err != nil {
			return nil, err
		}
		if b.BoneB, err = d.r.readIndex(boneWidth); err != nil {
			return nil, err
		}
		if b.WeightA, err = d.r.readF32(); err != nil {
			return nil, err
		}
		if b.Center, err = d.r.readVec3(); err != nil {
			return nil, err
		}
		if b.R0, err = d.r.readVec3(); err != nil {
			return nil, err
		}
		if b.R1, err = d.r.readVec3(); err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, &InvalidWeightTypeError{Tag: tag}
	}
}

func (d *decoder) faces() error {
	// The count is in face vertices, three per triangle.
	n, err := d.count("faces")
	if err != nil {
		return err
	}
	if n%3 != 0 {
		return &CorruptSectionError{Section: "faces", Reason: fmt.Sprintf("vertex count %d not divisible by 3", n)}
	}
	width := d.doc.Header.VertexIndexSize
	vertexCount := uint32(len(d.doc.Vertices))

	d.doc.Faces = make([][3]uint32, n/3)
	for i := range d.doc.Faces {
		for j := 0; j < 3; j++ {
			idx, err := d.r.readVertexIndex(width)
			if err != nil {
				return err
			}
			if idx >= vertexCount {
				return &CorruptSectionError{Section: "faces", Reason: fmt.Sprintf("vertex index %d out of range", idx)}
			}
			d.doc.Faces[i][j] = idx
		}
	}
	return nil
}

func (d *decoder) textures() error {
	n, err := d.count("textures")
	if err != nil {
		return err
	}
	d.doc.Textures = make([]string, n)
	for i := range d.doc.Textures {
		if d.doc.Textures[i], err = d.text(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) materials() error {
	n, err := d.count("materials")
	if err != nil {
		return err
	}
	texWidth := d.doc.Header.TextureIndexSize

	d.doc.Materials = make([]Material, n)
	for i := range d.doc.Materials {
		m := &d.doc.Materials[i]
		if m.Name, err = d.text(); err != nil {
			return err
		}
		if m.NameEN, err = d.text(); err != nil {
			return err
		}
		if m.Diffuse, err = d.r.readVec4(); err != nil {
			return err
		}
		if m.Specular, err = d.r.readVec3(); err != nil {
			return err
		}
		if m.Shine, err = d.r.readF32(); err != nil {
			return err
		}
		if m.Ambient, err = d.r.readVec3(); err != nil {
			return err
		}
		if m.Flags, err = d.r.readU8(); err != nil {
			return err
		}
		if m.EdgeColor, err = d.r.readVec4(); err != nil {
			return err
		}
		if m.EdgeSize, err = d.r.readF32(); err != nil {
			return err
		}
		if m.TextureIndex, err = d.r.readIndex(texWidth); err != nil {
			return err
		}
		if m.SphereTextureIndex, err = d.r.readIndex(texWidth); err != nil {
			return err
		}
		if m.SphereMode, err = d.r.readU8(); err != nil {
			return err
		}
		shared, err := d.r.readU8()
		if err != nil {
			return err
		}
		m.SharedToon = shared != 0
		if m.SharedToon {
			// Shared toon references the built-in toon01..toon10 set.
			if m.ToonTextureIndex, err = d.r.readIndex(1); err != nil {
				return err
			}
		} else {
			if m.ToonTextureIndex, err = d.r.readIndex(texWidth); err != nil {
				return err
			}
		}
		if m.Comment, err = d.text(); err != nil {
			return err
		}
		if m.FaceVertexCount, err = d.r.readI32(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) bones() error {
	n, err := d.count("bones")
	if err != nil {
		return err
	}
	boneWidth := d.doc.Header.BoneIndexSize

	d.doc.Bones = make([]Bone, n)
	for i := range d.doc.Bones {
		b := &d.doc.Bones[i]
		b.Tail.LinkedBone = -1
		b.IKTarget = -1

		if b.Name, err = d.text(); err != nil {
			return err
		}
		if b.NameEN, err = d.text(); err != nil {
			return err
		}
		if b.Position, err = d.r.readVec3(); err != nil {
			return err
		}
		if b.ParentIndex, err = d.r.readIndex(boneWidth); err != nil {
			return err
		}
		if b.Layer, err = d.r.readI32(); err != nil {
			return err
		}
		if b.Flags, err = d.r.readU16(); err != nil {
			return err
		}

		if b.Flags&BoneFlagTailLinked != 0 {
			b.Tail.Linked = true
			if b.Tail.LinkedBone, err = d.r.readIndex(boneWidth); err != nil {
				return err
			}
		} else {
			if b.Tail.Offset, err = d.r.readVec3(); err != nil {
				return err
			}
		}

		if b.Flags&(BoneFlagInheritRotate|BoneFlagInheritMove) != 0 {
			add := &AdditionalTransform{
				Rotation:    b.Flags&BoneFlagInheritRotate != 0,
				Translation: b.Flags&BoneFlagInheritMove != 0,
			}
			if add.SourceBone, err = d.r.readIndex(boneWidth); err != nil {
				return err
			}
			if add.Ratio, err = d.r.readF32(); err != nil {
				return err
			}
			b.Additional = add
		}

		if b.Flags&BoneFlagFixedAxis != 0 {
			if b.FixedAxis, err = d.r.readVec3(); err != nil {
				return err
			}
		}
		if b.Flags&BoneFlagLocalAxis != 0 {
			if b.LocalXAxis, err = d.r.readVec3(); err != nil {
				return err
			}
			if b.LocalZAxis, err = d.r.readVec3(); err != nil {
				return err
			}
		}
		if b.Flags&BoneFlagExternalParent != 0 {
			if b.ExternalParentKey, err = d.r.readI32(); err != nil {
				return err
			}
		}

		if b.Flags&BoneFlagIK != 0 {
			b.IsIK = true
			if b.IKTarget, err = d.r.readIndex(boneWidth); err != nil {
				return err
			}
			if b.IKLoopCount, err = d.r.readI32(); err != nil {
				return err
			}
			if b.IKAngleStep, err = d.r.readF32(); err != nil {
				return err
			}
			linkCount, err := d.count("IK links")
			if err != nil {
				return err
			}
			b.IKLinks = make([]IKLink, linkCount)
			for j := range b.IKLinks {
				link := &b.IKLinks[j]
				if link.BoneIndex, err = d.r.readIndex(boneWidth); err != nil {
					return err
				}
				limit, err := d.r.readU8()
				if err != nil {
					return err
				}
				link.HasLimit = limit != 0
				if link.HasLimit {
					if link.MinAngle, err = d.r.readVec3(); err != nil {
						return err
					}
					if link.MaxAngle, err = d.r.readVec3(); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (d *decoder) morphs() error {
	n, err := d.count("morphs")
	if err != nil {
		return err
	}
	h := d.doc.Header

	d.doc.Morphs = make([]Morph, n)
	for i := range d.doc.Morphs {
		m := &d.doc.Morphs[i]
		if m.Name, err = d.text(); err != nil {
			return err
		}
		if m.NameEN, err = d.text(); err != nil {
			return err
		}
		if m.Panel, err = d.r.readU8(); err != nil {
			return err
		}
		if m.Kind, err = d.r.readU8(); err != nil {
			return err
		}
		count, err := d.count("morph offsets")
		if err != nil {
			return err
		}

		switch m.Kind {
		case MorphKindVertex:
			offsets := make(VertexOffsets, count)
			for j := range offsets {
				if offsets[j].VertexIndex, err = d.r.readIndex(h.VertexIndexSize); err != nil {
					return err
				}
				if offsets[j].Offset, err = d.r.readVec3(); err != nil {
					return err
				}
			}
			m.Offsets = offsets

		case MorphKindMaterial:
			offsets := make(MaterialOffsets, count)
			for j := range offsets {
				o := &offsets[j]
				if o.MaterialIndex, err = d.r.readIndex(h.MaterialIndexSize); err != nil {
					return err
				}
				additive, err := d.r.readU8()
				if err != nil {
					return err
				}
				o.Additive = additive != 0
				if o.Diffuse, err = d.r.readVec4(); err != nil {
					return err
				}
				if o.Specular, err = d.r.readVec4(); err != nil {
					return err
				}
				if o.Ambient, err = d.r.readVec3(); err != nil {
					return err
				}
				if o.EdgeColor, err = d.r.readVec4(); err != nil {
					return err
				}
				if o.EdgeSize, err = d.r.readF32(); err != nil {
					return err
				}
				if o.Texture, err = d.r.readVec4(); err != nil {
					return err
				}
				if o.SphereTexture, err = d.r.readVec4(); err != nil {
					return err
				}
				if o.ToonTexture, err = d.r.readVec4(); err != nil {
					return err
				}
			}
			m.Offsets = offsets

		default:
			if err = d.skipMorphOffsets(m.Kind, count); err != nil {
				return err
			}
			m.Offsets = UnhandledOffsets{Kind: m.Kind, Count: int32(count)}
		}
	}
	return nil
}

// skipMorphOffsets consumes the payload of morph kinds the reconstructor does
// not apply, so the cursor stays aligned for the sections that follow.
func (d *decoder) skipMorphOffsets(kind uint8, count int) error {
	h := d.doc.Header
	var per int
	switch kind {
	case MorphKindGroup, MorphKindFlip:
		per = int(h.MorphIndexSize) + 4 // morph index + ratio
	case MorphKindBone:
		per = int(h.BoneIndexSize) + 12 + 16 // bone index + translation + quaternion
	case MorphKindUV, MorphKindUV1, MorphKindUV2, MorphKindUV3, MorphKindUV4:
		per = int(h.VertexIndexSize) + 16 // vertex index + vec4 offset
	case MorphKindImpulse:
		per = int(h.RigidBodyIndexSize) + 1 + 12 + 12 // body index + local flag + velocity + torque
	default:
		return &CorruptSectionError{Section: "morphs", Reason: fmt.Sprintf("unknown morph kind %d", kind)}
	}
	_, err := d.r.take(per * count)
	return err
}

func (d *decoder) displayFrames() error {
	n, err := d.count("display frames")
	if err != nil {
		return err
	}
	h := d.doc.Header

	d.doc.DisplayFrames = make([]DisplayFrame, n)
	for i := range d.doc.DisplayFrames {
		f := &d.doc.DisplayFrames[i]
		if f.Name, err = d.text(); err != nil {
			return err
		}
		if f.NameEN, err = d.text(); err != nil {
			return err
		}
		special, err := d.r.readU8()
		if err != nil {
			return err
		}
		f.Special = special != 0
		count, err := d.count("display frame elements")
		if err != nil {
			return err
		}
		f.Elements = make([]DisplayElement, count)
		for j := range f.Elements {
			e := &f.Elements[j]
			if e.Kind, err = d.r.readU8(); err != nil {
				return err
			}
			width := h.BoneIndexSize
			if e.Kind != 0 {
				width = h.MorphIndexSize
			}
			if e.Index, err = d.r.readIndex(width); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *decoder) rigidBodies() error {
	n, err := d.count("rigid bodies")
	if err != nil {
		return err
	}
	boneWidth := d.doc.Header.BoneIndexSize

	d.doc.RigidBodies = make([]RigidBody, n)
	for i := range d.doc.RigidBodies {
		rb := &d.doc.RigidBodies[i]
		if rb.Name, err = d.text(); err != nil {
			return err
		}
		if rb.NameEN, err = d.text(); err != nil {
			return err
		}
		if rb.BoneIndex, err = d.r.readIndex(boneWidth); err != nil {
			return err
		}
		if rb.Group, err = d.r.readU8(); err != nil {
			return err
		}
		if rb.CollisionMask, err = d.r.readU16(); err != nil {
			return err
		}
		if rb.Shape, err = d.r.readU8(); err != nil {
			return err
		}
		if rb.Size, err = d.r.readVec3(); err != nil {
			return err
		}
		if rb.Position, err = d.r.readVec3(); err != nil {
			return err
		}
		if rb.Rotation, err = d.r.readVec3(); err != nil {
			return err
		}
		if rb.Mass, err = d.r.readF32(); err != nil {
			return err
		}
		if rb.LinearDamping, err = d.r.readF32(); err != nil {
			return err
		}
		if rb.AngularDamping, err = d.r.readF32(); err != nil {
			return err
		}
		if rb.Restitution, err = d.r.readF32(); err != nil {
			return err
		}
		if rb.Friction, err = d.r.readF32(); err != nil {
			return err
		}
		if rb.Mode, err = d.r.readU8(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) joints() error {
	n, err := d.count("joints")
	if err != nil {
		return err
	}
	bodyWidth := d.doc.Header.RigidBodyIndexSize

	d.doc.Joints = make([]Joint, n)
	for i := range d.doc.Joints {
		j := &d.doc.Joints[i]
		if j.Name, err = d.text(); err != nil {
			return err
		}
		if j.NameEN, err = d.text(); err != nil {
			return err
		}
		if j.Kind, err = d.r.readU8(); err != nil {
			return err
		}
		if j.BodyA, err = d.r.readIndex(bodyWidth); err != nil {
			return err
		}
		if j.BodyB, err = d.r.readIndex(bodyWidth); err != nil {
			return err
		}
		if j.Position, err = d.r.readVec3(); err != nil {
			return err
		}
		if j.Rotation, err = d.r.readVec3(); err != nil {
			return err
		}
		if j.LinearLower, err = d.r.readVec3(); err != nil {
			return err
		}
		if j.LinearUpper, err = d.r.readVec3(); err != nil {
			return err
		}
		if j.AngularLower, err = d.r.readVec3(); err != nil {
			return err
		}
		if j.AngularUpper, err = d.r.readVec3(); err != nil {
			return err
		}
		if j.SpringLinear, err = d.r.readVec3(); err != nil {
			return err
		}
		if j.SpringAngular, err = d.r.readVec3(); err != nil {
			return err
		}
	}
	return nil
}
