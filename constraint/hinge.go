package constraint

import (
	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Hinge pins a pivot like PointToPoint and keeps the hinge axis of BodyB
// aligned with the hinge axis of BodyA, leaving rotation about it free.
type Hinge struct {
	Joint
	LocalPivotA mgl64.Vec3
	LocalPivotB mgl64.Vec3 // world point when BodyB is nil
	LocalAxisA  mgl64.Vec3
	LocalAxisB  mgl64.Vec3 // world axis when BodyB is nil
}

func NewHinge(bodyA, bodyB *actor.RigidBody, localPivotA, localPivotB, localAxisA, localAxisB mgl64.Vec3, stiffness float64) *Hinge {
	return &Hinge{
		Joint:       Joint{BodyA: bodyA, BodyB: bodyB, Stiffness: stiffness},
		LocalPivotA: localPivotA,
		LocalPivotB: localPivotB,
		LocalAxisA:  localAxisA,
		LocalAxisB:  localAxisB,
	}
}

func (h *Hinge) Type() Type { return TypeHinge }

func (h *Hinge) Solve(dt float64) {
	if !h.ready() {
		return
	}
	stiffness := h.stiffness()

	pinAnchors(&h.Joint, h.LocalPivotA, h.LocalPivotB, stiffness)

	axisA, axisB, ok := h.worldAxes()
	if !ok {
		return
	}

	// Rotate B onto A's axis; when B cannot turn, turn A onto B's axis instead
	switch {
	case canRotate(h.BodyB):
		alignAxis(h.BodyB, axisB, axisA, stiffness)
	case canRotate(h.BodyA):
		alignAxis(h.BodyA, axisA, axisB, stiffness)
	}

	// Only spin about the hinge axis survives
	axis := axisA
	relative := h.angularVelocityB().Sub(h.BodyA.AngularVelocity)
	offAxis := relative.Sub(axis.Mul(relative.Dot(axis))).Mul(stiffness)

	rotA, rotB := canRotate(h.BodyA), canRotate(h.BodyB)
	switch {
	case rotA && rotB:
		h.BodyA.AngularVelocity = h.BodyA.AngularVelocity.Add(offAxis.Mul(0.5))
		h.BodyB.AngularVelocity = h.BodyB.AngularVelocity.Sub(offAxis.Mul(0.5))
	case rotB:
		h.BodyB.AngularVelocity = h.BodyB.AngularVelocity.Sub(offAxis)
	case rotA:
		h.BodyA.AngularVelocity = h.BodyA.AngularVelocity.Add(offAxis)
	}
}

// WorldAxes returns both hinge axes in world space
func (h *Hinge) worldAxes() (mgl64.Vec3, mgl64.Vec3, bool) {
	axisA, okA := actor.SafeNormalize(h.BodyA.Transform.Rotation.Rotate(h.LocalAxisA))

	localB := h.LocalAxisB
	if h.BodyB != nil {
		localB = h.BodyB.Transform.Rotation.Rotate(localB)
	}
	axisB, okB := actor.SafeNormalize(localB)

	return axisA, axisB, okA && okB
}

func (h *Hinge) angularVelocityB() mgl64.Vec3 {
	if h.BodyB == nil {
		return mgl64.Vec3{}
	}

	return h.BodyB.AngularVelocity
}

// alignAxis turns body by the stiffness-scaled minimal rotation taking from onto to
func alignAxis(body *actor.RigidBody, from, to mgl64.Vec3, stiffness float64) {
	full := mgl64.QuatBetweenVectors(from, to)
	partial := mgl64.QuatNlerp(mgl64.QuatIdent(), full, stiffness)

	body.WakeUp()
	body.Transform = actor.NewTransformAt(body.Transform.Position, partial.Mul(body.Transform.Rotation))
}
