package collision

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// SphereSphere collides when the center distance is below the radius sum.
// Coincident centers fall back to +Y as the normal.
func SphereSphere(a *actor.Sphere, transformA actor.Transform, b *actor.Sphere, transformB actor.Transform) (Contact, bool) {
	delta := transformB.Position.Sub(transformA.Position)
	distance := delta.Len()
	radiusSum := a.Radius + b.Radius

	if distance >= radiusSum {
		return Contact{}, false
	}

	normal := actor.NormalizeOr(delta, up)

	return Contact{
		Point:       transformA.Position.Add(normal.Mul(a.Radius)),
		Normal:      normal,
		Penetration: radiusSum - distance,
	}, true
}

// SphereBox clamps the sphere center into box space to find the closest point.
// When the center is inside the box, the face of least penetration is used;
// axes are checked X, Y, Z and the first one wins exact ties.
func SphereBox(sphere *actor.Sphere, sphereTransform actor.Transform, box *actor.Box, boxTransform actor.Transform) (Contact, bool) {
	local := boxTransform.WorldToLocal(sphereTransform.Position)
	he := box.HalfExtents

	closest := mgl64.Vec3{
		actor.Clamp(local.X(), -he.X(), he.X()),
		actor.Clamp(local.Y(), -he.Y(), he.Y()),
		actor.Clamp(local.Z(), -he.Z(), he.Z()),
	}

	diff := local.Sub(closest)
	distSqr := diff.LenSqr()
	if distSqr > sphere.Radius*sphere.Radius {
		return Contact{}, false
	}

	// Center outside the box
	if distSqr > actor.Epsilon*actor.Epsilon {
		distance := math.Sqrt(distSqr)
		// box -> sphere, in box space
		outward := diff.Mul(1.0 / distance)

		return Contact{
			Point:       boxTransform.LocalToWorld(closest),
			Normal:      boxTransform.Rotation.Rotate(outward).Mul(-1),
			Penetration: sphere.Radius - distance,
		}, true
	}

	// Center inside the box
	axis := 0
	depth := math.Inf(1)
	for i := 0; i < 3; i++ {
		faceDepth := he[i] - math.Abs(local[i])
		if faceDepth < depth {
			depth = faceDepth
			axis = i
		}
	}

	sign := 1.0
	if local[axis] < 0 {
		sign = -1.0
	}
	var outward mgl64.Vec3
	outward[axis] = sign

	facePoint := local
	facePoint[axis] = sign * he[axis]

	return Contact{
		Point:       boxTransform.LocalToWorld(facePoint),
		Normal:      boxTransform.Rotation.Rotate(outward).Mul(-1),
		Penetration: depth + sphere.Radius,
	}, true
}

// SpherePlane collides when the signed distance of the center is at most the radius
func SpherePlane(sphere *actor.Sphere, sphereTransform actor.Transform, plane *actor.Plane, planeTransform actor.Transform) (Contact, bool) {
	planeNormal, offset := plane.WorldPlane(planeTransform)
	distance := planeNormal.Dot(sphereTransform.Position) - offset

	if distance > sphere.Radius {
		return Contact{}, false
	}

	return Contact{
		Point:       sphereTransform.Position.Sub(planeNormal.Mul(sphere.Radius)),
		Normal:      planeNormal.Mul(-1),
		Penetration: sphere.Radius - distance,
	}, true
}
