package marble

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

type RaycastHit struct {
	Body     *actor.RigidBody
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64 // from the segment start
}

// Raycast returns the nearest body hit by the segment from -> to, testing
// bounding spheres (planes are tested exactly). Triggers are ignored.
func (w *World) Raycast(from, to mgl64.Vec3) (RaycastHit, bool) {
	direction, ok := actor.SafeNormalize(to.Sub(from))
	if !ok {
		return RaycastHit{}, false
	}
	maxDistance := to.Sub(from).Len()

	var closestHit RaycastHit
	hit := false

	for _, body := range w.Bodies {
		if body.IsTrigger {
			continue
		}

		var hitInfo RaycastHit
		var found bool
		if plane, isPlane := body.Shape.(*actor.Plane); isPlane {
			hitInfo, found = raycastPlane(from, direction, plane, body.Transform)
		} else {
			hitInfo, found = raycastSphere(from, direction, body.BoundingSphere())
		}

		if !found || hitInfo.Distance > maxDistance {
			continue
		}
		// strict comparison: the first body in insertion order wins ties
		if !hit || hitInfo.Distance < closestHit.Distance {
			closestHit = hitInfo
			closestHit.Body = body
			hit = true
		}
	}

	return closestHit, hit
}

func raycastSphere(origin, direction mgl64.Vec3, sphere actor.BoundingSphere) (RaycastHit, bool) {
	t, ok := sphere.IntersectRay(origin, direction)
	if !ok {
		return RaycastHit{}, false
	}

	point := origin.Add(direction.Mul(t))
	return RaycastHit{
		Point:    point,
		Normal:   actor.NormalizeOr(point.Sub(sphere.Center), direction.Mul(-1)),
		Distance: t,
	}, true
}

func raycastPlane(origin, direction mgl64.Vec3, plane *actor.Plane, transform actor.Transform) (RaycastHit, bool) {
	normal, offset := plane.WorldPlane(transform)

	denom := normal.Dot(direction)
	if math.Abs(denom) < actor.Epsilon {
		return RaycastHit{}, false
	}
	t := (offset - normal.Dot(origin)) / denom
	if t < 0 {
		return RaycastHit{}, false
	}

	// face the ray
	if denom > 0 {
		normal = normal.Mul(-1)
	}

	return RaycastHit{
		Point:    origin.Add(direction.Mul(t)),
		Normal:   normal,
		Distance: t,
	}, true
}
