package constraint

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Type tags each joint variant
type Type int

const (
	TypeDistance Type = iota
	TypePointToPoint
	TypeHinge
	TypeSlider
)

func (t Type) String() string {
	switch t {
	case TypeDistance:
		return "distance"
	case TypePointToPoint:
		return "point-to-point"
	case TypeHinge:
		return "hinge"
	case TypeSlider:
		return "slider"
	}

	return "unknown"
}

// Constraint is a joint between BodyA and an optional BodyB. Solve applies a
// single direct correction; it is not an iterative solver.
type Constraint interface {
	Type() Type
	Solve(dt float64)
	Bodies() (*actor.RigidBody, *actor.RigidBody)
	Enabled() bool
	Enable()
	Disable()
}

// ComputeRestitution: if one bounces, it bounces
func ComputeRestitution(matA, matB actor.Material) float64 {
	return math.Max(matA.Restitution, matB.Restitution)
}

// ComputeFriction: the slipperiest surface wins
func ComputeFriction(matA, matB actor.Material) float64 {
	return math.Min(matA.Friction, matB.Friction)
}

// Joint holds what every constraint variant shares.
// A nil BodyB anchors the joint to world space.
type Joint struct {
	BodyA     *actor.RigidBody
	BodyB     *actor.RigidBody
	Stiffness float64 // 0.0 - 1.0
	disabled  bool
}

func (j *Joint) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return j.BodyA, j.BodyB
}

func (j *Joint) Enabled() bool {
	return !j.disabled
}

func (j *Joint) Enable() {
	j.disabled = false
}

func (j *Joint) Disable() {
	j.disabled = true
}

func (j *Joint) ready() bool {
	return !j.disabled && j.BodyA != nil
}

func (j *Joint) stiffness() float64 {
	return actor.Clamp(j.Stiffness, 0, 1)
}

func (j *Joint) inverseMasses() (float64, float64) {
	wB := 0.0
	if j.BodyB != nil {
		wB = j.BodyB.InverseMass()
	}

	return j.BodyA.InverseMass(), wB
}

// worldAnchors returns both anchors in world space. Without BodyB, localB is
// already a world point.
func (j *Joint) worldAnchors(localA, localB mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	anchorA := j.BodyA.LocalToWorld(localA)
	if j.BodyB == nil {
		return anchorA, localB
	}

	return anchorA, j.BodyB.LocalToWorld(localB)
}

func (j *Joint) velocityB() mgl64.Vec3 {
	if j.BodyB == nil {
		return mgl64.Vec3{}
	}

	return j.BodyB.Velocity
}

// correctAlong closes a violation measured along the unit direction n, which
// points from A's anchor to B's anchor. A positive violation means the anchors are
// too far apart. The relative velocity that would grow the violation is removed too.
func (j *Joint) correctAlong(n mgl64.Vec3, violation float64, stiffness float64) {
	wA, wB := j.inverseMasses()
	w := wA + wB
	if w < actor.Epsilon || math.Abs(violation) < actor.Epsilon {
		return
	}

	shift := violation * stiffness / w
	j.moveBy(n.Mul(shift*wA), n.Mul(-shift*wB))

	relative := j.velocityB().Sub(j.BodyA.Velocity).Dot(n)
	if (violation > 0 && relative > 0) || (violation < 0 && relative < 0) {
		dv := relative * stiffness / w
		j.pushBy(n.Mul(dv*wA), n.Mul(-dv*wB))
	}
}

// dampRelative removes a relative velocity (B minus A) split by inverse mass
func (j *Joint) dampRelative(relative mgl64.Vec3, stiffness float64) {
	wA, wB := j.inverseMasses()
	w := wA + wB
	if w < actor.Epsilon || relative.LenSqr() < actor.Epsilon*actor.Epsilon {
		return
	}

	dv := relative.Mul(stiffness / w)
	j.pushBy(dv.Mul(wA), dv.Mul(-wB))
}

func (j *Joint) moveBy(deltaA, deltaB mgl64.Vec3) {
	if !j.BodyA.IsKinematic() {
		j.BodyA.WakeUp()
		j.BodyA.Transform.Position = j.BodyA.Transform.Position.Add(deltaA)
	}
	if j.BodyB != nil && !j.BodyB.IsKinematic() {
		j.BodyB.WakeUp()
		j.BodyB.Transform.Position = j.BodyB.Transform.Position.Add(deltaB)
	}
}

func (j *Joint) pushBy(deltaA, deltaB mgl64.Vec3) {
	if !j.BodyA.IsKinematic() {
		j.BodyA.Velocity = j.BodyA.Velocity.Add(deltaA)
	}
	if j.BodyB != nil && !j.BodyB.IsKinematic() {
		j.BodyB.Velocity = j.BodyB.Velocity.Add(deltaB)
	}
}

// canRotate reports whether constraints may change the orientation of body
func canRotate(body *actor.RigidBody) bool {
	return body != nil && !body.IsKinematic() && !body.FixedRotation
}
