// Package skeleton validates and lays out bone hierarchies before scene
// reconstruction touches them.
package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"pmx-importer/internal/pmx"
)

// MinBoneLength is the shortest bone the scene accepts. Bones shorter than
// this after tail placement are expanded along defaultTailOffset.
const MinBoneLength = 1e-4

// defaultTailOffset points a tail-less bone a short way up its local Y axis
// so no zero-length bone is ever created.
var defaultTailOffset = mgl32.Vec3{0, 0.1, 0}

// ValidateHierarchy checks every parent index and rejects parent cycles,
// self-parenting included. It runs before any bone is created so a corrupt
// hierarchy never reaches the host.
func ValidateHierarchy(bones []pmx.Bone) error {
	n := int32(len(bones))
	for i := range bones {
		p := bones[i].ParentIndex
		if p >= n {
			return &pmx.DanglingIndexError{Kind: "bone parent", Index: p}
		}
	}

	// Walk each parent chain; revisiting a bone on the chain being walked
	// means a cycle. Finished chains short-circuit later walks.
	state := make([]uint8, len(bones)) // 0 unseen, 1 on current chain, 2 done
	for i := range bones {
		at := int32(i)
		for at >= 0 && state[at] == 0 {
			state[at] = 1
			at = bones[at].ParentIndex
		}
		if at >= 0 && state[at] == 1 {
			return &pmx.CorruptSectionError{
				Section: "bones",
				Reason:  fmt.Sprintf("parent cycle through bone %d", at),
			}
		}
		at = int32(i)
		for at >= 0 && state[at] == 1 {
			state[at] = 2
			at = bones[at].ParentIndex
		}
	}
	return nil
}

// TailPosition computes a bone's tail in scaled model space. A linked tail
// points at the linked bone's head; an offset tail adds the offset to the
// head; anything degenerate falls back to a short default offset. The result
// always sits at least MinBoneLength from the head.
func TailPosition(bones []pmx.Bone, index int, scale float32) mgl32.Vec3 {
	b := bones[index]
	head := b.Position.Mul(scale)

	var tail mgl32.Vec3
	switch {
	case b.Tail.Linked && b.Tail.LinkedBone >= 0 && int(b.Tail.LinkedBone) < len(bones):
		tail = bones[b.Tail.LinkedBone].Position.Mul(scale)
	case !b.Tail.Linked:
		tail = head.Add(b.Tail.Offset.Mul(scale))
	default:
		tail = head.Add(defaultTailOffset)
	}

	return EnsureMinLength(head, tail)
}

// EnsureMinLength returns tail, moved if necessary so the bone is at least
// MinBoneLength long. This invariant holds after every structural bone edit,
// not only at import.
func EnsureMinLength(head, tail mgl32.Vec3) mgl32.Vec3 {
	d := tail.Sub(head)
	if d.Len() >= MinBoneLength {
		return tail
	}
	return head.Add(defaultTailOffset)
}
