package constraint

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Slider lets BodyB travel along an axis fixed in BodyA's frame, between
// MinTravel and MaxTravel. Motion across the axis is removed.
type Slider struct {
	Joint
	LocalAnchorA mgl64.Vec3
	LocalAnchorB mgl64.Vec3 // world point when BodyB is nil
	LocalAxis    mgl64.Vec3 // in BodyA's frame
	MinTravel    float64
	MaxTravel    float64
}

// NewSlider creates a slider with unlimited travel; set MinTravel/MaxTravel to bound it
func NewSlider(bodyA, bodyB *actor.RigidBody, localAxis mgl64.Vec3, stiffness float64) *Slider {
	return &Slider{
		Joint:     Joint{BodyA: bodyA, BodyB: bodyB, Stiffness: stiffness},
		LocalAxis: localAxis,
		MinTravel: math.Inf(-1),
		MaxTravel: math.Inf(1),
	}
}

func (s *Slider) Type() Type { return TypeSlider }

// Travel returns the current position of B's anchor along the slider axis
func (s *Slider) Travel() float64 {
	axis, ok := s.worldAxis()
	if !ok || s.BodyA == nil {
		return 0
	}
	anchorA, anchorB := s.worldAnchors(s.LocalAnchorA, s.LocalAnchorB)

	return anchorB.Sub(anchorA).Dot(axis)
}

func (s *Slider) Solve(dt float64) {
	if !s.ready() {
		return
	}
	axis, ok := s.worldAxis()
	if !ok {
		return
	}
	stiffness := s.stiffness()

	anchorA, anchorB := s.worldAnchors(s.LocalAnchorA, s.LocalAnchorB)
	separation := anchorB.Sub(anchorA)

	along := separation.Dot(axis)
	perpendicular := separation.Sub(axis.Mul(along))
	excess := along - actor.Clamp(along, s.MinTravel, s.MaxTravel)

	violation := perpendicular.Add(axis.Mul(excess))
	if n, ok := actor.SafeNormalize(violation); ok {
		s.correctAlong(n, violation.Len(), stiffness)
	}

	// Drift across the axis is never allowed
	relative := s.velocityB().Sub(s.BodyA.Velocity)
	s.dampRelative(relative.Sub(axis.Mul(relative.Dot(axis))), stiffness)
}

func (s *Slider) worldAxis() (mgl64.Vec3, bool) {
	if s.BodyA == nil {
		return mgl64.Vec3{}, false
	}

	return actor.SafeNormalize(s.BodyA.Transform.Rotation.Rotate(s.LocalAxis))
}
