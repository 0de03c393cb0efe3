package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and orientation in 3D space
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// NewTransformAt creates a transform at position with the given rotation.
// A zero quaternion is replaced by the identity.
func NewTransformAt(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	if rotation.Len() < Epsilon {
		rotation = mgl64.QuatIdent()
	}
	rotation = rotation.Normalize()

	return Transform{
		Position:        position,
		Rotation:        rotation,
		InverseRotation: rotation.Inverse(),
	}
}

// LocalToWorld transforms a point from local space to world space
func (t Transform) LocalToWorld(point mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(point).Add(t.Position)
}

// WorldToLocal transforms a world point into local space
func (t Transform) WorldToLocal(point mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotation.Rotate(point.Sub(t.Position))
}

// Child returns the transform of a sub-shape placed at offset in local space
func (t Transform) Child(offset mgl64.Vec3) Transform {
	return Transform{
		Position:        t.LocalToWorld(offset),
		Rotation:        t.Rotation,
		InverseRotation: t.InverseRotation,
	}
}
