package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// ErrInvalidMass is the cause of mass validation errors
var ErrInvalidMass = errors.New("invalid mass")

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeKinematic bodies have infinite mass: impulses, constraints and
	// fields never move them. They move only when their position or velocity
	// is set explicitly (e.g., ground, walls, moving platforms).
	BodyTypeKinematic
)

// BodyID is the handle a World assigns to a body. Zero means unregistered.
type BodyID uint32

// Category tags a body with its gameplay role so hosts can iterate one kind
type Category uint8

const (
	CategoryGeneric Category = iota
	CategoryBall
	CategoryObstacle
	CategoryTerrain
	CategoryPowerUp
)

func (c Category) String() string {
	switch c {
	case CategoryGeneric:
		return "generic"
	case CategoryBall:
		return "ball"
	case CategoryObstacle:
		return "obstacle"
	case CategoryTerrain:
		return "terrain"
	case CategoryPowerUp:
		return "powerup"
	}

	return "unknown"
}

// Default collision filter: group 1, collides with everything
const (
	DefaultCollisionGroup uint32 = 1
	DefaultCollisionMask  uint32 = math.MaxUint32
)

type Material struct {
	Friction       float64 `yaml:"friction"`        // 0 = ice
	Restitution    float64 `yaml:"restitution"`     // 0= no rebound, 1= perfect restitution
	LinearDamping  float64 `yaml:"linear_damping"`  // fraction of linear velocity lost per second, 0.0 - 1.0
	AngularDamping float64 `yaml:"angular_damping"` // fraction of angular velocity lost per second, 0.0 - 1.0
	GravityScale   float64 `yaml:"gravity_scale"`   // 1 = regular gravity
}

// DefaultMaterial returns the material given to new bodies
func DefaultMaterial() Material {
	return Material{
		Friction:       0.5,
		Restitution:    0.2,
		LinearDamping:  0.01,
		AngularDamping: 0.05,
		GravityScale:   1.0,
	}
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	Id       BodyID
	Category Category
	UserData any

	// Spatial properties
	Transform Transform

	// Linear motion
	Velocity mgl64.Vec3 // Linear velocity (m/s)

	// Angular motion
	AngularVelocity     mgl64.Vec3 // rad/s
	InverseInertiaLocal mgl64.Mat3

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	mass        float64
	inverseMass float64

	IsSleeping bool
	SleepTimer float64

	// Physical properties
	Material      Material
	BodyType      BodyType // Dynamic or Kinematic
	IsTrigger     bool     // reports overlaps, never resolved
	FixedRotation bool     // angular velocity is held at zero
	IsMagnetic    bool     // magnetic fields pull this body harder

	CollisionGroup uint32
	CollisionMask  uint32

	// LastCollision is the last body this one resolved a contact against
	LastCollision *RigidBody
	inContact     bool

	// Collision shape
	Shape Shape
}

// NewRigidBody creates a new rigid body with the given properties.
// mass is ignored for kinematic bodies; dynamic bodies need a positive finite mass.
func NewRigidBody(transform Transform, shape Shape, bodyType BodyType, mass float64) (*RigidBody, error) {
	if shape == nil {
		return nil, errors.Wrap(ErrInvalidShape, "rigid body needs a shape")
	}
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "rigid body")
	}
	if !isFiniteVec(transform.Position) {
		return nil, errors.Errorf("rigid body position %v is not finite", transform.Position)
	}

	rb := &RigidBody{
		Transform:      NewTransformAt(transform.Position, transform.Rotation),
		Shape:          shape,
		BodyType:       bodyType,
		Material:       DefaultMaterial(),
		CollisionGroup: DefaultCollisionGroup,
		CollisionMask:  DefaultCollisionMask,
	}

	if bodyType == BodyTypeKinematic {
		rb.mass = math.Inf(1)
		return rb, nil
	}

	if shape.Type() == ShapeTypePlane {
		return nil, errors.Wrap(ErrInvalidShape, "a plane can only be kinematic")
	}
	if !(mass > 0) || math.IsInf(mass, 0) {
		return nil, errors.Wrapf(ErrInvalidMass, "dynamic body mass %v must be positive and finite", mass)
	}

	rb.mass = mass
	rb.inverseMass = 1.0 / mass
	rb.InverseInertiaLocal = shape.ComputeInertia(mass).Inv()

	return rb, nil
}

func (rb *RigidBody) Mass() float64 {
	return rb.mass
}

// InverseMass is always zero for kinematic bodies
func (rb *RigidBody) InverseMass() float64 {
	if rb.BodyType == BodyTypeKinematic {
		return 0
	}

	return rb.inverseMass
}

func (rb *RigidBody) IsKinematic() bool {
	return rb.BodyType == BodyTypeKinematic
}

func (rb *RigidBody) IsAwake() bool {
	return !rb.IsSleeping
}

// IsActive reports whether the body can start a collision this step:
// awake dynamic bodies, and kinematic bodies that are being moved.
func (rb *RigidBody) IsActive() bool {
	if rb.IsSleeping {
		return false
	}
	if rb.BodyType == BodyTypeKinematic {
		return rb.Velocity.LenSqr() > 0 || rb.AngularVelocity.LenSqr() > 0
	}

	return true
}

// CanCollideWith checks the group/mask filters in both directions
func (rb *RigidBody) CanCollideWith(other *RigidBody) bool {
	return rb.CollisionGroup&other.CollisionMask != 0 && other.CollisionGroup&rb.CollisionMask != 0
}

func (rb *RigidBody) BoundingSphere() BoundingSphere {
	return rb.Shape.BoundingSphere(rb.Transform)
}

// LocalToWorld transforms a point given in body space into world space
func (rb *RigidBody) LocalToWorld(point mgl64.Vec3) mgl64.Vec3 {
	return rb.Transform.LocalToWorld(point)
}

// VelocityAt returns the velocity of the body material at a world point
func (rb *RigidBody) VelocityAt(point mgl64.Vec3) mgl64.Vec3 {
	r := point.Sub(rb.Transform.Position)

	return rb.Velocity.Add(rb.AngularVelocity.Cross(r))
}

// ============================================================================
// Contacts
// ============================================================================

// RecordContact marks that a contact against other was resolved this step
func (rb *RigidBody) RecordContact(other *RigidBody) {
	rb.LastCollision = other
	rb.inContact = true
}

// InContact reports whether a contact was resolved since the last ResetContact
func (rb *RigidBody) InContact() bool {
	return rb.inContact
}

func (rb *RigidBody) ResetContact() {
	rb.inContact = false
}

// ============================================================================
// Forces
// ============================================================================

func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if rb.BodyType == BodyTypeKinematic {
		return
	}
	rb.WakeUp()
	rb.accumulatedForce = rb.accumulatedForce.Add(force)
}

// AccumulateForce adds a force without waking the body or resetting its
// sleep timer. The world feeds gravity and wind through it every tick.
func (rb *RigidBody) AccumulateForce(force mgl64.Vec3) {
	if rb.BodyType == BodyTypeKinematic {
		return
	}
	rb.accumulatedForce = rb.accumulatedForce.Add(force)
}

// AddForceAtPoint adds a force applied at a world point, producing a torque
func (rb *RigidBody) AddForceAtPoint(force, point mgl64.Vec3) {
	if rb.BodyType == BodyTypeKinematic {
		return
	}
	rb.AddForce(force)
	rb.AddTorque(point.Sub(rb.Transform.Position).Cross(force))
}

func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if rb.BodyType == BodyTypeKinematic {
		return
	}
	rb.WakeUp()
	rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
}

// ApplyImpulse changes velocity instantly by an impulse applied at a world point
func (rb *RigidBody) ApplyImpulse(impulse, point mgl64.Vec3) {
	if rb.BodyType == BodyTypeKinematic {
		return
	}
	rb.WakeUp()

	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.InverseMass()))
	r := point.Sub(rb.Transform.Position)
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.GetInverseInertiaWorld().Mul3x1(r.Cross(impulse)))
}

// AddVelocity applies an instantaneous velocity change, ignoring mass
func (rb *RigidBody) AddVelocity(deltaV mgl64.Vec3) {
	if rb.BodyType == BodyTypeKinematic {
		return
	}
	rb.WakeUp()
	rb.Velocity = rb.Velocity.Add(deltaV)
}

// ResistForce cancels the part of the accumulated force pushing into a
// supporting surface whose normal points toward this body. It reports whether
// any force was cancelled.
func (rb *RigidBody) ResistForce(surfaceNormal mgl64.Vec3) bool {
	into := rb.accumulatedForce.Dot(surfaceNormal)
	if into >= 0 {
		return false
	}
	rb.accumulatedForce = rb.accumulatedForce.Sub(surfaceNormal.Mul(into))

	return true
}

func (rb *RigidBody) AccumulatedForce() mgl64.Vec3 {
	return rb.accumulatedForce
}

func (rb *RigidBody) AccumulatedTorque() mgl64.Vec3 {
	return rb.accumulatedTorque
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// ============================================================================
// Explicit state changes
// ============================================================================

func (rb *RigidBody) SetPosition(position mgl64.Vec3) {
	rb.WakeUp()
	rb.Transform.Position = position
}

func (rb *RigidBody) SetRotation(rotation mgl64.Quat) {
	rb.WakeUp()
	rb.Transform = NewTransformAt(rb.Transform.Position, rotation)
}

func (rb *RigidBody) SetVelocity(velocity mgl64.Vec3) {
	rb.WakeUp()
	rb.Velocity = velocity
}

func (rb *RigidBody) SetAngularVelocity(angularVelocity mgl64.Vec3) {
	rb.WakeUp()
	rb.AngularVelocity = angularVelocity
}

// ============================================================================
// Integration
// ============================================================================

// Integrate advances the body by dt with semi-implicit Euler: velocities first
// (forces, damping, speed clamp), then position and orientation.
func (rb *RigidBody) Integrate(dt float64, maxSpeed float64) {
	if rb.IsSleeping {
		return
	}

	if rb.BodyType == BodyTypeKinematic {
		rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))
		rb.integrateRotation(dt)
		return
	}

	// Linear
	rb.Velocity = rb.Velocity.Add(rb.accumulatedForce.Mul(rb.inverseMass * dt))
	rb.Velocity = rb.Velocity.Mul(dampingFactor(rb.Material.LinearDamping, dt))
	rb.Velocity = ClampLength(rb.Velocity, maxSpeed)
	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	// Angular
	if rb.FixedRotation {
		rb.AngularVelocity = mgl64.Vec3{}
		return
	}
	angularAccel := rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAccel.Mul(dt))
	rb.AngularVelocity = rb.AngularVelocity.Mul(dampingFactor(rb.Material.AngularDamping, dt))

	rb.integrateRotation(dt)
}

func (rb *RigidBody) integrateRotation(dt float64) {
	if rb.AngularVelocity.LenSqr() == 0 {
		return
	}

	// q' = q + 0.5 * (ω, 0) * q * dt
	omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	qDot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
	rb.Transform.Rotation = rb.Transform.Rotation.Add(qDot.Scale(dt)).Normalize()
	rb.Transform.InverseRotation = rb.Transform.Rotation.Inverse()
}

// dampingFactor returns (1 - damping)^dt
func dampingFactor(damping, dt float64) float64 {
	return math.Pow(1.0-Clamp(damping, 0, 1), dt)
}

// ============================================================================
// Sleep
// ============================================================================

// TrySleep puts the body to sleep once both speeds stayed under their
// thresholds for timeThreshold seconds. A body in contact never sleeps.
func (rb *RigidBody) TrySleep(dt, linearThreshold, angularThreshold, timeThreshold float64) {
	if rb.BodyType == BodyTypeKinematic || rb.IsSleeping {
		return
	}
	if rb.inContact {
		rb.SleepTimer = 0
		return
	}

	if rb.Velocity.Len() < linearThreshold && rb.AngularVelocity.Len() < angularThreshold {
		rb.SleepTimer += dt
		if rb.SleepTimer >= timeThreshold {
			rb.Sleep()
		}
	} else {
		rb.SleepTimer = 0
	}
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTimer = 0.0

	rb.ClearForces()
	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
}

func (rb *RigidBody) WakeUp() {
	rb.IsSleeping = false
	rb.SleepTimer = 0.0
}

// ============================================================================
// Inertia
// ============================================================================

// GetInverseInertiaWorld returns R * I_local^-1 * R^T, or zero when the body
// cannot rotate in response to impulses.
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.BodyType == BodyTypeKinematic || rb.FixedRotation {
		return mgl64.Mat3{}
	}

	R := rb.Transform.Rotation.Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}
