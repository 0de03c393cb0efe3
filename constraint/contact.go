package constraint

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultCorrectionPercent is the share of the residual penetration
	// removed by positional correction each step. Typical range: 0.2 - 0.8
	DefaultCorrectionPercent = 0.4
	// DefaultSlop is the penetration left alone to avoid jitter on resting contacts
	DefaultSlop = 0.01
	// DefaultRestingSpeed is the approach speed under which a contact supports
	// the bodies it touches instead of letting them sink
	DefaultRestingSpeed = 0.5
	// SupportOffset is how far from under the center of mass a resting
	// contact may be and still carry the body's weight
	SupportOffset = 0.05
)

// ResolveSettings tunes how contacts are resolved
type ResolveSettings struct {
	CorrectionPercent float64
	Slop              float64
	// RestingSpeed: contacts approaching slower than this do not bounce
	RestingSpeed float64
}

// DefaultResolveSettings returns the documented defaults
func DefaultResolveSettings() ResolveSettings {
	return ResolveSettings{
		CorrectionPercent: DefaultCorrectionPercent,
		Slop:              DefaultSlop,
		RestingSpeed:      DefaultRestingSpeed,
	}
}

// ContactConstraint is one detected contact between two bodies.
// Normal points from BodyA toward BodyB.
type ContactConstraint struct {
	BodyA       *actor.RigidBody
	BodyB       *actor.RigidBody
	Point       mgl64.Vec3
	Normal      mgl64.Vec3
	Penetration float64

	// Filled by Resolve
	Impulse       float64 // normal impulse magnitude
	ApproachSpeed float64 // normal speed at which the bodies were closing
	RelativeSpeed float64 // full relative speed at the contact point before the impulse
}

// IsTrigger reports whether either body only reports overlaps
func (c *ContactConstraint) IsTrigger() bool {
	return c.BodyA.IsTrigger || c.BodyB.IsTrigger
}

// NormalVelocity returns the relative velocity of B with respect to A at the
// contact point, projected on the normal. Negative means approaching.
func (c *ContactConstraint) NormalVelocity() float64 {
	relativeVel := c.BodyB.VelocityAt(c.Point).Sub(c.BodyA.VelocityAt(c.Point))

	return relativeVel.Dot(c.Normal)
}

// Support cancels the accumulated force pushing each body into the other when
// the contact is nearly at rest, acting as the normal force of a resting contact.
// A body is only held up when the contact point lies under its center of mass;
// off-center contacts leave gravity its torque so the body can tip over.
func (c *ContactConstraint) Support(restingSpeed float64) bool {
	if math.Abs(c.NormalVelocity()) > restingSpeed {
		return false
	}

	supportedB := c.supports(c.BodyB) && c.BodyB.ResistForce(c.Normal)
	supportedA := c.supports(c.BodyA) && c.BodyA.ResistForce(c.Normal.Mul(-1))

	return supportedA || supportedB
}

// supports reports whether the contact point is within SupportOffset of the
// line through the body's center along the normal
func (c *ContactConstraint) supports(body *actor.RigidBody) bool {
	if body.IsKinematic() {
		return false
	}
	r := c.Point.Sub(body.Transform.Position)
	lateral := r.Sub(c.Normal.Mul(r.Dot(c.Normal)))

	return lateral.Len() <= SupportOffset
}

// Resolve applies the restitution impulse, friction, and positional correction.
// Separating or stationary contacts are skipped entirely.
func (c *ContactConstraint) Resolve(settings ResolveSettings) (float64, bool) {
	bodyA := c.BodyA
	bodyB := c.BodyB

	invMassA := bodyA.InverseMass()
	invMassB := bodyB.InverseMass()
	if invMassA+invMassB < 1e-12 {
		return 0, false
	}

	relativeVel := bodyB.VelocityAt(c.Point).Sub(bodyA.VelocityAt(c.Point))
	normalVel := relativeVel.Dot(c.Normal)
	c.RelativeSpeed = relativeVel.Len()
	c.ApproachSpeed = math.Max(0, -normalVel)
	if normalVel >= 0 {
		return 0, false
	}

	IA_inv := bodyA.GetInverseInertiaWorld()
	IB_inv := bodyB.GetInverseInertiaWorld()
	rA := c.Point.Sub(bodyA.Transform.Position)
	rB := c.Point.Sub(bodyB.Transform.Position)

	// ========== NORMAL IMPULSE (restitution) ==========
	restitution := ComputeRestitution(bodyA.Material, bodyB.Material)
	if c.ApproachSpeed < settings.RestingSpeed {
		restitution = 0
	}
	effectiveMassNormal := effectiveMass(c.Normal, invMassA, invMassB, rA, rB, IA_inv, IB_inv)

	lambdaNormal := -(1 + restitution) * normalVel / effectiveMassNormal
	c.applyImpulse(c.Normal.Mul(lambdaNormal), rA, rB, IA_inv, IB_inv)

	// ========== TANGENTIAL IMPULSE (friction) ==========
	friction := ComputeFriction(bodyA.Material, bodyB.Material)
	relativeVel = bodyB.VelocityAt(c.Point).Sub(bodyA.VelocityAt(c.Point))
	tangentVel := relativeVel.Sub(c.Normal.Mul(relativeVel.Dot(c.Normal)))

	if tangentDir, ok := actor.SafeNormalize(tangentVel); ok && friction > 0 {
		tangentSpeed := tangentVel.Len()
		effectiveMassTangent := effectiveMass(tangentDir, invMassA, invMassB, rA, rB, IA_inv, IB_inv)

		// Exactly cancelling the tangential velocity is the most friction can
		// do; Coulomb's law bounds it further by μ * |λn|
		lambdaTangent := math.Min(tangentSpeed/effectiveMassTangent, friction*lambdaNormal)
		c.applyImpulse(tangentDir.Mul(-lambdaTangent), rA, rB, IA_inv, IB_inv)
	}

	// ========== POSITIONAL CORRECTION ==========
	correction := math.Max(c.Penetration-settings.Slop, 0) / (invMassA + invMassB) * settings.CorrectionPercent
	if correction > 0 {
		if !bodyA.IsKinematic() {
			bodyA.Transform.Position = bodyA.Transform.Position.Sub(c.Normal.Mul(correction * invMassA))
		}
		if !bodyB.IsKinematic() {
			bodyB.Transform.Position = bodyB.Transform.Position.Add(c.Normal.Mul(correction * invMassB))
		}
	}

	c.Impulse = lambdaNormal

	return lambdaNormal, true
}

// applyImpulse gives +impulse to B and -impulse to A at the contact point
func (c *ContactConstraint) applyImpulse(impulse, rA, rB mgl64.Vec3, IA_inv, IB_inv mgl64.Mat3) {
	if !c.BodyA.IsKinematic() {
		c.BodyA.WakeUp()
		c.BodyA.Velocity = c.BodyA.Velocity.Sub(impulse.Mul(c.BodyA.InverseMass()))
		c.BodyA.AngularVelocity = c.BodyA.AngularVelocity.Add(IA_inv.Mul3x1(rA.Cross(impulse.Mul(-1))))
	}
	if !c.BodyB.IsKinematic() {
		c.BodyB.WakeUp()
		c.BodyB.Velocity = c.BodyB.Velocity.Add(impulse.Mul(c.BodyB.InverseMass()))
		c.BodyB.AngularVelocity = c.BodyB.AngularVelocity.Add(IB_inv.Mul3x1(rB.Cross(impulse)))
	}
}

// effectiveMass returns the inverse effective mass along direction. For a
// central contact (lever arms parallel to the direction) the angular terms
// vanish and this is invMassA + invMassB.
func effectiveMass(direction mgl64.Vec3, invMassA, invMassB float64, rA, rB mgl64.Vec3, IA_inv, IB_inv mgl64.Mat3) float64 {
	rAxD := rA.Cross(direction)
	rBxD := rB.Cross(direction)

	angularA := IA_inv.Mul3x1(rAxD).Dot(rAxD)
	angularB := IB_inv.Mul3x1(rBxD).Dot(rBxD)

	return invMassA + invMassB + angularA + angularB
}
