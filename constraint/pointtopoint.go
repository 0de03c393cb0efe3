package constraint

import (
	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// PointToPoint pins an anchor on BodyA to an anchor on BodyB (a ball joint)
type PointToPoint struct {
	Joint
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3 // world point when BodyB is nil
}

func NewPointToPoint(bodyA, bodyB *actor.RigidBody, localAnchorA, localAnchorB mgl64.Vec3, stiffness float64) *PointToPoint {
	return &PointToPoint{
		Joint:        Joint{BodyA: bodyA, BodyB: bodyB, Stiffness: stiffness},
		LocalAnchorA: localAnchorA,
		LocalAnchorB: localAnchorB,
	}
}

func (p *PointToPoint) Type() Type { return TypePointToPoint }

func (p *PointToPoint) Solve(dt float64) {
	if !p.ready() {
		return
	}

	pinAnchors(&p.Joint, p.LocalAnchorA, p.LocalAnchorB, p.stiffness())
}

// pinAnchors closes the gap between two anchors
func pinAnchors(j *Joint, localA, localB mgl64.Vec3, stiffness float64) {
	anchorA, anchorB := j.worldAnchors(localA, localB)
	gap := anchorB.Sub(anchorA)

	n, ok := actor.SafeNormalize(gap)
	if !ok {
		return
	}
	j.correctAlong(n, gap.Len(), stiffness)
}
