// Package marble is a single-threaded rigid-body simulation core: bodies with
// simple shapes, contacts with restitution and friction, joints, force fields
// and raycasts, advanced one fixed tick at a time.
package marble

import (
	"io"
	"log"
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/akmonengine/marble/constraint"
	"github.com/akmonengine/marble/field"
	"github.com/go-gl/mathgl/mgl64"
)

// World owns every body, joint and force field of one simulation.
// It is not safe for concurrent use; mutate it only between steps.
type World struct {
	// Bodies in insertion order; this order drives pair iteration
	Bodies      []*actor.RigidBody
	Gravity     mgl64.Vec3 // m/s²
	Wind        mgl64.Vec3 // N, added to every awake dynamic body
	Constraints []constraint.Constraint
	Fields      []*field.ForceField
	SpatialGrid *SpatialGrid

	Events Events

	config Config
	logger *log.Logger

	byID   map[actor.BodyID]*actor.RigidBody
	nextID actor.BodyID
	time   float64
	impact float64

	// contacts detected during the current step
	contacts []*constraint.ContactConstraint
}

// NewWorld creates an empty world. cfg is used as given; start from DefaultConfig.
func NewWorld(cfg Config) *World {
	return &World{
		Gravity:     cfg.Gravity,
		Wind:        cfg.Wind,
		SpatialGrid: NewSpatialGrid(cfg.GridCellSize, cfg.GridCells),
		Events:      NewEvents(),
		config:      cfg,
		logger:      log.New(io.Discard, "", 0),
		byID:        make(map[actor.BodyID]*actor.RigidBody),
	}
}

// SetLogger routes the world's diagnostics to logger; nil silences them
func (w *World) SetLogger(logger *log.Logger) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	w.logger = logger
}

func (w *World) Config() Config {
	return w.config
}

// Time returns the simulated seconds elapsed so far
func (w *World) Time() float64 {
	return w.time
}

// ============================================================================
// Registry
// ============================================================================

// AddBody registers body and assigns its id. Adding a body twice is a no-op.
func (w *World) AddBody(body *actor.RigidBody) actor.BodyID {
	if body == nil {
		return 0
	}
	if existing, ok := w.byID[body.Id]; ok && existing == body {
		return body.Id
	}

	w.nextID++
	body.Id = w.nextID
	w.byID[body.Id] = body
	w.Bodies = append(w.Bodies, body)

	return body.Id
}

// RemoveBody unregisters body along with every joint attached to it
func (w *World) RemoveBody(body *actor.RigidBody) {
	if body == nil {
		return
	}

	k := -1
	for i, b := range w.Bodies {
		if b == body {
			k = i
			break
		}
	}
	if k == -1 {
		return
	}

	w.Bodies = append(w.Bodies[:k], w.Bodies[k+1:]...)
	delete(w.byID, body.Id)

	n := 0
	for _, c := range w.Constraints {
		bodyA, bodyB := c.Bodies()
		if bodyA == body || bodyB == body {
			continue
		}
		w.Constraints[n] = c
		n++
	}
	clear(w.Constraints[n:])
	w.Constraints = w.Constraints[:n]

	w.Events.forget(body)
}

// Body returns the body registered under id, or nil
func (w *World) Body(id actor.BodyID) *actor.RigidBody {
	return w.byID[id]
}

// BodiesIn returns the bodies of a category in insertion order
func (w *World) BodiesIn(category actor.Category) []*actor.RigidBody {
	bodies := make([]*actor.RigidBody, 0)
	for _, body := range w.Bodies {
		if body.Category == category {
			bodies = append(bodies, body)
		}
	}

	return bodies
}

// ============================================================================
// Global parameters
// ============================================================================

func (w *World) SetGravity(gravity mgl64.Vec3) {
	w.Gravity = gravity
}

func (w *World) SetWind(wind mgl64.Vec3) {
	w.Wind = wind
}

// SetDefaultMaterial changes the material given to bodies spawned from now on
func (w *World) SetDefaultMaterial(material actor.Material) {
	w.config.DefaultMaterial = material
}

// ============================================================================
// Joints and fields
// ============================================================================

func (w *World) AddConstraint(c constraint.Constraint) {
	if c == nil {
		return
	}
	w.Constraints = append(w.Constraints, c)
}

func (w *World) RemoveConstraint(c constraint.Constraint) {
	for i, existing := range w.Constraints {
		if existing == c {
			w.Constraints = append(w.Constraints[:i], w.Constraints[i+1:]...)
			return
		}
	}
}

// AddField registers a force field. Its CreatedAt is left untouched; use
// Time() when building it.
func (w *World) AddField(f *field.ForceField) {
	if f == nil {
		return
	}
	w.Fields = append(w.Fields, f)
}

// PruneFields removes expired fields and returns how many were dropped
func (w *World) PruneFields() int {
	n := 0
	for _, f := range w.Fields {
		if f.IsActive(w.time) {
			w.Fields[n] = f
			n++
		}
	}
	removed := len(w.Fields) - n
	clear(w.Fields[n:])
	w.Fields = w.Fields[:n]

	return removed
}

// ============================================================================
// Collision signals
// ============================================================================

// OnCollision registers a listener called in-line for every resolved contact
func (w *World) OnCollision(listener func(CollisionEvent)) {
	w.Events.Subscribe(ON_CONTACT, func(event Event) {
		listener(event.(CollisionEvent))
	})
}

// ImpactForce returns the largest recent closing speed of a resolved
// contact, fading at the configured ImpactDecay per second.
func (w *World) ImpactForce() float64 {
	return w.impact
}

// ============================================================================
// Step
// ============================================================================

// Step advances the simulation by exactly dt, in a fixed order:
// forces, detection, contact resolution, joints, integration, force reset
// and sleep check. Events are flushed at the end.
func (w *World) Step(dt float64) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}

	w.applyForces(dt)
	w.findCollisions()
	w.resolveCollisions(dt)
	w.solveConstraints(dt)
	w.integrate(dt)
	w.clearForces()
	w.trySleep(dt)

	w.time += dt

	w.Events.processSleepEvents(w.Bodies)
	w.Events.flush()
}

// applyForces adds gravity and wind to every awake dynamic body, then lets
// each active force field change velocities directly.
func (w *World) applyForces(dt float64) {
	for _, body := range w.Bodies {
		if body.IsKinematic() || body.IsSleeping {
			continue
		}

		body.AccumulateForce(w.Gravity.Mul(body.Mass() * body.Material.GravityScale))
		if w.Wind.LenSqr() > 0 {
			body.AccumulateForce(w.Wind)
		}
	}

	for _, f := range w.Fields {
		if !f.IsActive(w.time) {
			continue
		}
		for _, body := range w.Bodies {
			f.ApplyToObject(body, w.time, dt)
		}
	}
}

func (w *World) findCollisions() {
	w.contacts = NarrowPhase(BroadPhase(w.SpatialGrid, w.Bodies))
}

// resolveCollisions records trigger overlaps and resolves the other contacts
// in detection order. Listeners hear about each resolved contact right away.
func (w *World) resolveCollisions(dt float64) {
	for _, body := range w.Bodies {
		body.ResetContact()
	}
	w.impact = math.Max(0, w.impact-w.config.ImpactDecay*dt)

	settings := w.config.resolveSettings()
	for _, contact := range w.contacts {
		w.Events.recordPair(contact.BodyA, contact.BodyB)
		if contact.IsTrigger() {
			continue
		}

		contact.Support(w.config.RestingSpeed)

		impulse, resolved := contact.Resolve(settings)
		if !resolved {
			continue
		}

		contact.BodyA.RecordContact(contact.BodyB)
		contact.BodyB.RecordContact(contact.BodyA)
		w.impact = math.Max(w.impact, contact.RelativeSpeed)

		w.Events.emit(CollisionEvent{
			BodyA:   contact.BodyA,
			BodyB:   contact.BodyB,
			Point:   contact.Point,
			Normal:  contact.Normal,
			Impulse: impulse,
			Time:    w.time,
		})
	}
}

func (w *World) solveConstraints(dt float64) {
	for _, c := range w.Constraints {
		if c.Enabled() {
			c.Solve(dt)
		}
	}
}

func (w *World) integrate(dt float64) {
	for _, body := range w.Bodies {
		body.Integrate(dt, w.config.MaxSpeed)
	}
}

func (w *World) clearForces() {
	for _, body := range w.Bodies {
		body.ClearForces()
	}
}

// trySleep puts bodies to sleep once they stayed slow long enough
func (w *World) trySleep(dt float64) {
	for _, body := range w.Bodies {
		body.TrySleep(dt, w.config.SleepLinearThreshold, w.config.SleepAngularThreshold, w.config.SleepTime)
	}
}

// ============================================================================
// Queries
// ============================================================================

// OverlapSphere returns the bodies whose bounding sphere touches the given
// sphere, in insertion order.
func (w *World) OverlapSphere(center mgl64.Vec3, radius float64) []*actor.RigidBody {
	query := actor.BoundingSphere{Center: center, Radius: radius}

	w.SpatialGrid.Clear()
	for i, body := range w.Bodies {
		w.SpatialGrid.Insert(i, body)
	}

	bodies := make([]*actor.RigidBody, 0)
	for _, idx := range w.SpatialGrid.Query(query) {
		if body := w.Bodies[idx]; body.BoundingSphere().Overlaps(query) {
			bodies = append(bodies, body)
		}
	}

	return bodies
}
