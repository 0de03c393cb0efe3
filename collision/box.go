package collision

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// BoxBox is an approximation: it overlaps the world-space AABBs of both boxes,
// so rotation only matters through the extents it produces and the bounding
// sphere test that comes first. The normal is the
// world axis of least overlap (X, Y, Z, first wins ties) and the contact point
// is the midpoint between the centers.
func BoxBox(a *actor.Box, transformA actor.Transform, b *actor.Box, transformB actor.Transform) (Contact, bool) {
	// rotated AABBs reach past the boxes' corners; boxes whose bounding
	// spheres are apart cannot touch whatever their AABBs say
	if !a.BoundingSphere(transformA).Overlaps(b.BoundingSphere(transformB)) {
		return Contact{}, false
	}

	aabbA := a.ComputeAABB(transformA)
	aabbB := b.ComputeAABB(transformB)

	overlap := aabbA.Overlap(aabbB)
	if overlap.X() <= 0 || overlap.Y() <= 0 || overlap.Z() <= 0 {
		return Contact{}, false
	}

	axis := 0
	for i := 1; i < 3; i++ {
		if overlap[i] < overlap[axis] {
			axis = i
		}
	}

	delta := transformB.Position.Sub(transformA.Position)
	var normal mgl64.Vec3
	if delta[axis] < 0 {
		normal[axis] = -1
	} else {
		normal[axis] = 1
	}

	return Contact{
		Point:       transformA.Position.Add(transformB.Position).Mul(0.5),
		Normal:      normal,
		Penetration: overlap[axis],
	}, true
}

// BoxPlane uses the signed distance of the deepest vertex; the contact point
// is the average of every vertex at or below the plane.
func BoxPlane(box *actor.Box, boxTransform actor.Transform, plane *actor.Plane, planeTransform actor.Transform) (Contact, bool) {
	planeNormal, offset := plane.WorldPlane(planeTransform)

	deepest := math.Inf(1)
	var sum mgl64.Vec3
	count := 0

	for _, corner := range box.Corners(boxTransform) {
		distance := planeNormal.Dot(corner) - offset
		deepest = math.Min(deepest, distance)
		if distance <= 0 {
			sum = sum.Add(corner)
			count++
		}
	}

	if deepest > 0 || count == 0 {
		return Contact{}, false
	}

	return Contact{
		Point:       sum.Mul(1.0 / float64(count)),
		Normal:      planeNormal.Mul(-1),
		Penetration: -deepest,
	}, true
}
