package constraint

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Distance keeps the anchors of two bodies between MinDistance and MaxDistance
type Distance struct {
	Joint
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3 // world point when BodyB is nil
	MinDistance  float64
	MaxDistance  float64
}

// NewDistance links the centers of two bodies. Pass a nil bodyB and set
// LocalAnchorB to pin bodyA to a world point.
func NewDistance(bodyA, bodyB *actor.RigidBody, minDistance, maxDistance, stiffness float64) *Distance {
	return &Distance{
		Joint:       Joint{BodyA: bodyA, BodyB: bodyB, Stiffness: stiffness},
		MinDistance: minDistance,
		MaxDistance: maxDistance,
	}
}

func (d *Distance) Type() Type { return TypeDistance }

func (d *Distance) Solve(dt float64) {
	if !d.ready() {
		return
	}

	anchorA, anchorB := d.worldAnchors(d.LocalAnchorA, d.LocalAnchorB)
	delta := anchorB.Sub(anchorA)
	distance := delta.Len()

	target := distance
	if distance < d.MinDistance {
		target = d.MinDistance
	} else if distance > d.MaxDistance {
		target = d.MaxDistance
	}
	if math.Abs(distance-target) < actor.Epsilon {
		return
	}

	n := actor.NormalizeOr(delta, mgl64.Vec3{0, 1, 0})
	d.correctAlong(n, distance-target, d.stiffness())
}
