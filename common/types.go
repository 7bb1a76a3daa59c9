// package common contains common types that are used throughout this runtime. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Transform is a bone-local pose: a translation and a unit rotation quaternion.
// Baked clip frames, captured cross-fade poses and rest poses all share this layout.
type Transform struct {
	// Position is the local translation (x, y, z).
	Position [3]float32 `yaml:"pos" json:"pos"`
	// Rotation is the local rotation quaternion in (x, y, z, w) order.
	Rotation [4]float32 `yaml:"rot" json:"rot"`
}

// IdentityTransform returns a transform with zero translation and identity rotation.
//
// Returns:
//   - Transform: the identity pose
func IdentityTransform() Transform {
	return Transform{Rotation: QuatIdentity()}
}
