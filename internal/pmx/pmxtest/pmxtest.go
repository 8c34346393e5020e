// Package pmxtest builds synthetic PMX byte streams for tests. It writes the
// wire format directly and does not depend on the decoder, so round-trip
// tests exercise real parsing.
package pmxtest

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// Writer accumulates a little-endian PMX byte stream.
type Writer struct {
	buf      bytes.Buffer
	Encoding uint8 // 0: UTF-16LE, 1: UTF-8
}

// NewWriter returns a Writer emitting UTF-8 text fields.
func NewWriter() *Writer {
	return &Writer{Encoding: 1}
}

// Bytes returns the accumulated stream.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the current stream length.
func (w *Writer) Len() int {
	return w.buf.Len()
}

func (w *Writer) U8(v uint8)   { w.buf.WriteByte(v) }
func (w *Writer) U16(v uint16) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *Writer) I32(v int32)  { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *Writer) U32(v uint32) { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *Writer) F32(v float32) {
	binary.Write(&w.buf, binary.LittleEndian, math.Float32bits(v))
}

func (w *Writer) Vec2(x, y float32)       { w.F32(x); w.F32(y) }
func (w *Writer) Vec3(x, y, z float32)    { w.F32(x); w.F32(y); w.F32(z) }
func (w *Writer) Vec4(x, y, z, m float32) { w.F32(x); w.F32(y); w.F32(z); w.F32(m) }

// Raw appends bytes verbatim.
func (w *Writer) Raw(b []byte) { w.buf.Write(b) }

// Text writes a length-prefixed string in the writer's encoding.
func (w *Writer) Text(s string) {
	if w.Encoding == 0 {
		units := utf16.Encode([]rune(s))
		w.I32(int32(len(units) * 2))
		for _, u := range units {
			w.U16(u)
		}
		return
	}
	w.I32(int32(len(s)))
	w.buf.WriteString(s)
}

// Header writes the magic, version 2.0 tag, and an all-1-byte-index header
// with the writer's text encoding.
func (w *Writer) Header() {
	w.HeaderWidths([6]uint8{1, 1, 1, 1, 1, 1})
}

// HeaderWidths writes the header with explicit index widths in the order
// vertex, texture, material, bone, morph, rigid body.
func (w *Writer) HeaderWidths(widths [6]uint8) {
	w.Raw([]byte("PMX "))
	w.F32(2.0)
	w.U8(8)
	w.U8(w.Encoding)
	w.U8(0) // extra UV channels
	for _, width := range widths {
		w.U8(width)
	}
}

// ModelInfo writes the four name/comment text fields.
func (w *Writer) ModelInfo(name, nameEN, comment, commentEN string) {
	w.Text(name)
	w.Text(nameEN)
	w.Text(comment)
	w.Text(commentEN)
}

// Index writes an index value at the given byte width.
func (w *Writer) Index(v int32, width uint8) {
	switch width {
	case 1:
		w.U8(uint8(int8(v)))
	case 2:
		w.U16(uint16(int16(v)))
	default:
		w.I32(v)
	}
}

// VertexSingle writes one BDEF1 vertex with a 1-byte bone index.
func (w *Writer) VertexSingle(x, y, z float32, bone int32) {
	w.Vec3(x, y, z)    // position
	w.Vec3(0, 1, 0)    // normal
	w.Vec2(0, 0)       // uv
	w.U8(0)            // BDEF1
	w.Index(bone, 1)
	w.F32(1) // edge scale
}

// VertexDual writes one BDEF2 vertex with 1-byte bone indices.
func (w *Writer) VertexDual(x, y, z float32, boneA, boneB int32, weightA float32) {
	w.Vec3(x, y, z)
	w.Vec3(0, 1, 0)
	w.Vec2(0, 0)
	w.U8(1)
	w.Index(boneA, 1)
	w.Index(boneB, 1)
	w.F32(weightA)
	w.F32(1)
}

// VertexQuad writes one BDEF4 vertex with 1-byte bone indices.
func (w *Writer) VertexQuad(x, y, z float32, bones [4]int32, weights [4]float32) {
	w.Vec3(x, y, z)
	w.Vec3(0, 1, 0)
	w.Vec2(0, 0)
	w.U8(2)
	for _, b := range bones {
		w.Index(b, 1)
	}
	for _, wt := range weights {
		w.F32(wt)
	}
	w.F32(1)
}

// Material writes one material record with 1-byte texture indices covering
// faceVertexCount face vertices.
func (w *Writer) Material(name string, textureIndex int32, faceVertexCount int32) {
	w.Text(name)
	w.Text("")
	w.Vec4(1, 1, 1, 1) // diffuse
	w.Vec3(0, 0, 0)    // specular
	w.F32(5)           // shine
	w.Vec3(0.5, 0.5, 0.5)
	w.U8(0)            // flags
	w.Vec4(0, 0, 0, 1) // edge color
	w.F32(1)           // edge size
	w.Index(textureIndex, 1)
	w.Index(-1, 1) // sphere texture
	w.U8(0)        // sphere mode
	w.U8(0)        // per-model toon
	w.Index(-1, 1)
	w.Text("")
	w.I32(faceVertexCount)
}

// Bone writes one minimal bone record: offset tail, no IK, no inheritance.
func (w *Writer) Bone(name string, x, y, z float32, parent int32) {
	w.Text(name)
	w.Text("")
	w.Vec3(x, y, z)
	w.Index(parent, 1)
	w.I32(0)        // layer
	w.U16(0)        // flags: tail is an offset
	w.Vec3(0, 0, 0) // tail offset
}

// IKBone writes one IK bone with the given target and links (no limits).
func (w *Writer) IKBone(name string, x, y, z float32, parent, target int32, loops int32, links []int32) {
	w.Text(name)
	w.Text("")
	w.Vec3(x, y, z)
	w.Index(parent, 1)
	w.I32(0)
	w.U16(0x0020) // IK flag
	w.Vec3(0, 0, 0)
	w.Index(target, 1)
	w.I32(loops)
	w.F32(1)
	w.I32(int32(len(links)))
	for _, link := range links {
		w.Index(link, 1)
		w.U8(0) // no angle limit
	}
}

// RigidBody writes one rigid body record with a 1-byte bone index.
func (w *Writer) RigidBody(name string, bone int32, shape uint8, mass float32) {
	w.Text(name)
	w.Text("")
	w.Index(bone, 1)
	w.U8(0)            // group
	w.U16(0xFFFF)      // collision mask
	w.U8(shape)
	w.Vec3(1, 1, 1)    // size
	w.Vec3(0, 0, 0)    // position
	w.Vec3(0, 0, 0)    // rotation
	w.F32(mass)
	w.F32(0.5) // linear damping
	w.F32(0.5) // angular damping
	w.F32(0)   // restitution
	w.F32(0.5) // friction
	w.U8(0)    // mode
}

// Joint writes one joint record with 1-byte body indices and zero limits.
func (w *Writer) Joint(name string, bodyA, bodyB int32) {
	w.Text(name)
	w.Text("")
	w.U8(0) // spring 6DOF
	w.Index(bodyA, 1)
	w.Index(bodyB, 1)
	w.Vec3(0, 0, 0) // position
	w.Vec3(0, 0, 0) // rotation
	w.Vec3(0, 0, 0) // linear lower
	w.Vec3(0, 0, 0) // linear upper
	w.Vec3(0, 0, 0) // angular lower
	w.Vec3(0, 0, 0) // angular upper
	w.Vec3(0, 0, 0) // spring linear
	w.Vec3(0, 0, 0) // spring angular
}

// SingleTriangle returns a complete minimal model: three BDEF1 vertices on
// bone 0, one triangle, one material covering it, and one bone.
func SingleTriangle() []byte {
	w := NewWriter()
	w.Header()
	w.ModelInfo("tri", "tri", "", "")

	w.I32(3)
	w.VertexSingle(0, 0, 0, 0)
	w.VertexSingle(1, 0, 0, 0)
	w.VertexSingle(0, 1, 0, 0)

	w.I32(3) // face vertex count
	w.U8(0)
	w.U8(1)
	w.U8(2)

	w.I32(0) // textures

	w.I32(1)
	w.Material("mat", -1, 3)

	w.I32(1)
	w.Bone("root", 0, 0, 0, -1)

	w.I32(0) // morphs
	w.I32(0) // display frames
	w.I32(0) // rigid bodies
	w.I32(0) // joints
	return w.Bytes()
}
