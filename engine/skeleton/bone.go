package skeleton

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/cespare/xxhash/v2"
)

// BoneHasher maps a bone name to the identifier baked clips use for their curves.
// It must be deterministic and agree with the hasher used by the baking pipeline.
type BoneHasher func(name string) uint32

// HashBoneName is the default BoneHasher: the low 32 bits of the xxhash64 of the name.
//
// Parameters:
//   - name: the bone name
//
// Returns:
//   - uint32: the bone identifier
func HashBoneName(name string) uint32 {
	return uint32(xxhash.Sum64String(name))
}

// BoneTransform is a skeleton transform handle owned by the host scene graph. The runtime
// reads it when capturing cross-fade poses and writes the blended local pose each tick.
type BoneTransform interface {
	// Local returns the bone's current local pose.
	Local() common.Transform
	// SetLocal overwrites the bone's local pose.
	SetLocal(t common.Transform)
}

// Bone is a minimal in-memory BoneTransform for hosts without a scene graph.
type Bone struct {
	local common.Transform
}

var _ BoneTransform = &Bone{}

// NewBone creates a bone resting at the given local pose.
//
// Parameters:
//   - rest: the initial local pose
//
// Returns:
//   - *Bone: the bone
func NewBone(rest common.Transform) *Bone {
	return &Bone{local: rest}
}

func (b *Bone) Local() common.Transform {
	return b.local
}

func (b *Bone) SetLocal(t common.Transform) {
	b.local = t
}
