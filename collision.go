package marble

import (
	"github.com/akmonengine/marble/actor"
	"github.com/akmonengine/marble/collision"
	"github.com/akmonengine/marble/constraint"
)

// BroadPhase bins every body into the spatial grid and returns the candidate
// pairs that survive the cheap rejection tests, in body-index order.
func BroadPhase(spatialGrid *SpatialGrid, bodies []*actor.RigidBody) []Pair {
	spatialGrid.Clear()
	for i, body := range bodies {
		spatialGrid.Insert(i, body)
	}

	return spatialGrid.FindPairs(bodies, CanCollide)
}

// CanCollide applies the broad-phase rejection tests to a pair:
// kinematic pairs never collide, two resting bodies cannot start a collision,
// the group/mask filters must accept each other, and the bounding spheres must touch.
func CanCollide(bodyA, bodyB *actor.RigidBody) bool {
	if bodyA == bodyB {
		return false
	}
	if bodyA.IsKinematic() && bodyB.IsKinematic() {
		return false
	}
	if !bodyA.IsActive() && !bodyB.IsActive() {
		return false
	}
	if !bodyA.CanCollideWith(bodyB) {
		return false
	}

	return bodyA.BoundingSphere().Overlaps(bodyB.BoundingSphere())
}

// NarrowPhase runs the exact shape test on each candidate pair and returns one
// contact per colliding pair. The normal points from BodyA toward BodyB.
func NarrowPhase(pairs []Pair) []*constraint.ContactConstraint {
	contacts := make([]*constraint.ContactConstraint, 0, len(pairs))

	for _, pair := range pairs {
		contact, hit := collision.Collide(
			pair.BodyA.Shape, pair.BodyA.Transform,
			pair.BodyB.Shape, pair.BodyB.Transform,
		)
		if !hit {
			continue
		}

		contacts = append(contacts, &constraint.ContactConstraint{
			BodyA:       pair.BodyA,
			BodyB:       pair.BodyB,
			Point:       contact.Point,
			Normal:      contact.Normal,
			Penetration: contact.Penetration,
		})
	}

	return contacts
}
