// Package field implements time-bounded force generators that change the
// velocity of any body within their range.
package field

import (
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// MagneticMultiplier scales a magnetic field's pull on bodies flagged IsMagnetic
const MagneticMultiplier = 3.0

type Type int

const (
	// Radial pushes bodies away from the center (pulls with a negative strength)
	Radial Type = iota
	// Directional pushes every body along Direction
	Directional
	// Vortex swirls bodies around the vertical axis through the center
	Vortex
	// Magnetic attracts bodies toward the center
	Magnetic
)

func (t Type) String() string {
	switch t {
	case Radial:
		return "radial"
	case Directional:
		return "directional"
	case Vortex:
		return "vortex"
	case Magnetic:
		return "magnetic"
	}

	return "unknown"
}

// ForceField affects every dynamic body closer than Radius to Position while
// it is active. CreatedAt and Duration are simulation seconds.
type ForceField struct {
	Position  mgl64.Vec3
	Type      Type
	Strength  float64
	Radius    float64
	Decay     float64    // falloff exponent
	Direction mgl64.Vec3 // Directional only
	CreatedAt float64
	Duration  float64 // math.Inf(1) never expires

	// Fade scales the strength from 1 down to 0 over Duration. Nil keeps it constant.
	Fade ease.TweenFunc
	fade *gween.Tween
}

// NewForceField creates a constant field of the given type
func NewForceField(fieldType Type, position mgl64.Vec3, strength, radius, decay, now, duration float64) *ForceField {
	return &ForceField{
		Position:  position,
		Type:      fieldType,
		Strength:  strength,
		Radius:    radius,
		Decay:     decay,
		CreatedAt: now,
		Duration:  duration,
	}
}

// NewExplosion creates a short radial blast whose strength drops off quickly
func NewExplosion(position mgl64.Vec3, strength, radius, now, duration float64) *ForceField {
	f := NewForceField(Radial, position, strength, radius, 1, now, duration)
	f.Fade = ease.OutExpo

	return f
}

// NewWindGust creates a directional push that swells and settles over its duration
func NewWindGust(position, direction mgl64.Vec3, strength, radius, now, duration float64) *ForceField {
	f := NewForceField(Directional, position, strength, radius, 0, now, duration)
	f.Direction = actor.NormalizeOr(direction, mgl64.Vec3{1, 0, 0})
	f.Fade = ease.InOutSine

	return f
}

func NewVortex(position mgl64.Vec3, strength, radius, now, duration float64) *ForceField {
	return NewForceField(Vortex, position, strength, radius, 1, now, duration)
}

func NewMagnet(position mgl64.Vec3, strength, radius, now, duration float64) *ForceField {
	return NewForceField(Magnetic, position, strength, radius, 2, now, duration)
}

// IsActive reports whether the field has not yet exceeded its duration
func (f *ForceField) IsActive(now float64) bool {
	return now-f.CreatedAt <= f.Duration
}

// Age returns the seconds elapsed since the field was created
func (f *ForceField) Age(now float64) float64 {
	return math.Max(0, now-f.CreatedAt)
}

// Magnitude returns strength * (1 - distance/radius)^decay scaled by the fade
// envelope, before any dt scaling. Outside the radius it is zero.
func (f *ForceField) Magnitude(distance, now float64) float64 {
	if f.Radius <= 0 || distance > f.Radius {
		return 0
	}

	falloff := math.Pow(actor.Clamp(1-distance/f.Radius, 0, 1), f.Decay)

	return f.Strength * falloff * f.FadeFactor(now)
}

// FadeFactor returns the envelope in [0, 1] at time now
func (f *ForceField) FadeFactor(now float64) float64 {
	if f.Fade == nil || math.IsInf(f.Duration, 1) || f.Duration <= 0 {
		return 1
	}
	if f.fade == nil {
		f.fade = gween.New(1, 0, float32(f.Duration), f.Fade)
	}

	current, _ := f.fade.Set(float32(f.Age(now)))

	return actor.Clamp(float64(current), 0, 1)
}

// ApplyToObject adds the field's velocity change for this tick to body.
// Expired fields, kinematic bodies and bodies out of range are left alone.
func (f *ForceField) ApplyToObject(body *actor.RigidBody, now, dt float64) {
	if body == nil || body.IsKinematic() || !f.IsActive(now) {
		return
	}

	offset := body.Transform.Position.Sub(f.Position)
	distance := offset.Len()
	if distance > f.Radius {
		return
	}

	magnitude := f.Magnitude(distance, now)
	if magnitude == 0 {
		return
	}

	direction, ok := f.direction(body, offset)
	if !ok {
		return
	}
	if f.Type == Magnetic && body.IsMagnetic {
		magnitude *= MagneticMultiplier
	}

	body.AddVelocity(direction.Mul(magnitude * dt))
}

// direction returns the unit direction the field pushes body along.
// It fails when the body sits where the direction is undefined.
func (f *ForceField) direction(body *actor.RigidBody, offset mgl64.Vec3) (mgl64.Vec3, bool) {
	switch f.Type {
	case Radial:
		return actor.SafeNormalize(offset)
	case Directional:
		return actor.SafeNormalize(f.Direction)
	case Vortex:
		// perpendicular to the radius in the horizontal plane
		return actor.SafeNormalize(mgl64.Vec3{offset.Z(), 0, -offset.X()})
	case Magnetic:
		return actor.SafeNormalize(offset.Mul(-1))
	}

	return mgl64.Vec3{}, false
}
