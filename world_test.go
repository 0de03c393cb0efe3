package marble

import (
	"bytes"
	"log"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/akmonengine/marble/actor"
	"github.com/akmonengine/marble/constraint"
	"github.com/akmonengine/marble/field"
	"github.com/go-gl/mathgl/mgl64"
)

const tick = 1.0 / 60.0

func newTestWorld(gravity mgl64.Vec3) *World {
	cfg := DefaultConfig()
	cfg.Gravity = gravity

	return NewWorld(cfg)
}

func createKinematicBox(tb testing.TB, position, halfExtents mgl64.Vec3) *actor.RigidBody {
	tb.Helper()

	rb := createTestBox(tb, position, halfExtents)
	rb.BodyType = actor.BodyTypeKinematic

	return rb
}

// =============================================================================
// Registry
// =============================================================================

func TestWorld_AddBody(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{})
	a := createTestSphere(t, mgl64.Vec3{}, 1)
	b := createTestSphere(t, mgl64.Vec3{5, 0, 0}, 1)

	idA := world.AddBody(a)
	idB := world.AddBody(b)

	if idA != 1 || idB != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", idA, idB)
	}
	if world.AddBody(a) != idA || len(world.Bodies) != 2 {
		t.Error("adding a body twice should be a no-op")
	}
	if world.Body(idB) != b || world.Body(99) != nil {
		t.Error("Body() lookup failed")
	}
	if world.AddBody(nil) != 0 {
		t.Error("nil body should not get an id")
	}
}

func TestWorld_RemoveBody_DropsJoints(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{})
	a := createTestSphere(t, mgl64.Vec3{}, 0.1)
	b := createTestSphere(t, mgl64.Vec3{2, 0, 0}, 0.1)
	c := createTestSphere(t, mgl64.Vec3{4, 0, 0}, 0.1)
	for _, body := range []*actor.RigidBody{a, b, c} {
		world.AddBody(body)
	}

	world.AddConstraint(constraint.NewDistance(a, b, 2, 2, 1))
	kept := constraint.NewDistance(b, c, 2, 2, 1)
	world.AddConstraint(kept)
	world.AddConstraint(constraint.NewPointToPoint(a, nil, mgl64.Vec3{}, mgl64.Vec3{}, 1))

	world.RemoveBody(a)

	if len(world.Bodies) != 2 || world.Body(a.Id) != nil {
		t.Error("body was not removed")
	}
	if len(world.Constraints) != 1 || world.Constraints[0] != kept {
		t.Errorf("constraints = %v, want only the b-c joint", world.Constraints)
	}

	// removing an unknown body is harmless
	world.RemoveBody(a)
	world.RemoveBody(nil)
	world.Step(tick)
}

func TestWorld_BodiesIn(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{})
	ball := createTestSphere(t, mgl64.Vec3{}, 1)
	ball.Category = actor.CategoryBall
	wall := createKinematicBox(t, mgl64.Vec3{5, 0, 0}, mgl64.Vec3{1, 1, 1})
	wall.Category = actor.CategoryObstacle
	other := createTestSphere(t, mgl64.Vec3{0, 5, 0}, 1)
	other.Category = actor.CategoryBall

	world.AddBody(ball)
	world.AddBody(wall)
	world.AddBody(other)

	balls := world.BodiesIn(actor.CategoryBall)
	if len(balls) != 2 || balls[0] != ball || balls[1] != other {
		t.Errorf("BodiesIn(ball) = %v", balls)
	}
	if len(world.BodiesIn(actor.CategoryPowerUp)) != 0 {
		t.Error("expected no power-ups")
	}
}

// =============================================================================
// Step
// =============================================================================

func TestWorld_Step_RestingContact(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{0, -9.81, 0})
	ground := createTestPlane(t, 0)
	ball := createTestSphere(t, mgl64.Vec3{0, 3, 0}, 1)
	world.AddBody(ground)
	world.AddBody(ball)

	for i := 0; i < 300; i++ {
		world.Step(tick)
	}

	if y := ball.Transform.Position.Y(); math.Abs(y-1) > 0.05 {
		t.Errorf("ball rests at y = %v, want 1 ± 0.05", y)
	}
	if math.Abs(ball.Velocity.Y()) > 1e-6 {
		t.Errorf("ball still moving: %v", ball.Velocity)
	}
	if !ball.IsSleeping {
		t.Error("resting ball should have fallen asleep")
	}
	if ground.Transform.Position != (mgl64.Vec3{}) {
		t.Error("kinematic ground moved")
	}
}

func TestWorld_Step_ElasticHeadOn(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{})
	a := createTestSphere(t, mgl64.Vec3{0, 0, 0}, 0.5)
	b := createTestSphere(t, mgl64.Vec3{0.95, 0, 0}, 0.5)
	for _, body := range []*actor.RigidBody{a, b} {
		body.Material.Restitution = 1
		body.Material.Friction = 0
		body.Material.LinearDamping = 0
		world.AddBody(body)
	}
	a.Velocity = mgl64.Vec3{1, 0, 0}
	b.Velocity = mgl64.Vec3{-1, 0, 0}

	world.Step(tick)

	if !vecNear(a.Velocity, mgl64.Vec3{-1, 0, 0}, 1e-9) {
		t.Errorf("a.Velocity = %v, want (-1,0,0)", a.Velocity)
	}
	if !vecNear(b.Velocity, mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("b.Velocity = %v, want (1,0,0)", b.Velocity)
	}
	momentum := a.Velocity.Add(b.Velocity)
	if momentum.Len() > 1e-9 {
		t.Errorf("momentum not conserved: %v", momentum)
	}
}

func TestWorld_Step_KinematicUnaffected(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{0, -9.81, 0})
	platform := createKinematicBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0.5, 2})
	platform.Velocity = mgl64.Vec3{0.5, 0, 0}
	ball := createTestSphere(t, mgl64.Vec3{0, 2, 0}, 0.5)
	world.AddBody(platform)
	world.AddBody(ball)

	world.AddField(field.NewExplosion(mgl64.Vec3{0, -1, 0}, 50, 10, 0, 1))

	for i := 0; i < 60; i++ {
		world.Step(tick)
	}

	want := mgl64.Vec3{0.5, 0, 0}
	if !vecNear(platform.Transform.Position, want, 1e-9) {
		t.Errorf("platform at %v, want %v", platform.Transform.Position, want)
	}
	if platform.Velocity != (mgl64.Vec3{0.5, 0, 0}) {
		t.Errorf("platform velocity changed to %v", platform.Velocity)
	}
}

func TestWorld_Step_DistanceJoint(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{0, -9.81, 0})
	anchor := createTestSphere(t, mgl64.Vec3{0, 0, 0}, 0.1)
	anchor.BodyType = actor.BodyTypeKinematic
	bob := createTestSphere(t, mgl64.Vec3{0, -2, 0}, 0.1)
	world.AddBody(anchor)
	world.AddBody(bob)
	world.AddConstraint(constraint.NewDistance(anchor, bob, 1, 1, 1))

	for i := 0; i < 120; i++ {
		world.Step(tick)
	}

	if d := bob.Transform.Position.Len(); math.Abs(d-1) > 0.05 {
		t.Errorf("distance = %v, want 1 ± 0.05", d)
	}
}

func TestWorld_Step_Trigger(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{})
	zone := createTestSphere(t, mgl64.Vec3{0, 0, 0}, 1)
	zone.IsTrigger = true
	ball := createTestSphere(t, mgl64.Vec3{0.5, 0, 0}, 0.5)
	ball.Material.LinearDamping = 0
	ball.Velocity = mgl64.Vec3{-1, 0, 0}
	world.AddBody(zone)
	world.AddBody(ball)

	capture := &eventCapture{}
	world.Events.Subscribe(TRIGGER_ENTER, capture.capture)
	world.Events.Subscribe(COLLISION_ENTER, capture.capture)
	contacts := 0
	world.OnCollision(func(CollisionEvent) { contacts++ })

	world.Step(tick)

	if ball.Velocity != (mgl64.Vec3{-1, 0, 0}) {
		t.Errorf("trigger changed velocity to %v", ball.Velocity)
	}
	if !equalTypes(capture.types(), []EventType{TRIGGER_ENTER}) {
		t.Errorf("events = %v, want trigger-enter", capture.types())
	}
	if contacts != 0 {
		t.Errorf("trigger produced %d contact signals", contacts)
	}
}

func TestWorld_Step_SleepEvent(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{0, -9.81, 0})
	world.AddBody(createTestPlane(t, 0))
	ball := createTestSphere(t, mgl64.Vec3{0, 1, 0}, 1)
	world.AddBody(ball)

	sleeps := 0
	world.Events.Subscribe(ON_SLEEP, func(event Event) {
		if event.(SleepEvent).Body == ball {
			sleeps++
		}
	})

	for i := 0; i < 90; i++ {
		world.Step(tick)
	}

	if !ball.IsSleeping || sleeps != 1 {
		t.Errorf("IsSleeping = %v, sleep events = %d, want true and 1", ball.IsSleeping, sleeps)
	}

	// waking it back up is reported too
	woken := false
	world.Events.Subscribe(ON_WAKE, func(Event) { woken = true })
	ball.ApplyImpulse(mgl64.Vec3{0, 5, 0}, ball.Transform.Position)
	world.Step(tick)
	if !woken {
		t.Error("expected a wake event")
	}
}

func TestWorld_OnCollision_AndImpact(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{0, -9.81, 0})
	ground := createTestPlane(t, 0)
	ball := createTestSphere(t, mgl64.Vec3{0, 3, 0}, 1)
	world.AddBody(ground)
	world.AddBody(ball)

	var events []CollisionEvent
	world.OnCollision(func(event CollisionEvent) {
		events = append(events, event)
	})

	peak := 0.0
	for i := 0; i < 90; i++ {
		world.Step(tick)
		peak = math.Max(peak, world.ImpactForce())
	}

	if len(events) == 0 {
		t.Fatal("no collision signal")
	}
	first := events[0]
	if first.BodyA != ground || first.BodyB != ball {
		t.Error("BodyA should be the ground, added first")
	}
	if !vecNear(first.Normal, mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("normal = %v, want up", first.Normal)
	}
	if first.Impulse <= 0 || first.Time <= 0 {
		t.Errorf("impulse = %v, time = %v", first.Impulse, first.Time)
	}
	// a 2 m drop lands at about 6.3 m/s
	if peak < 5 || peak > 7 {
		t.Errorf("peak impact = %v, want about 6.3", peak)
	}

	for i := 0; i < 60; i++ {
		world.Step(tick)
	}
	if world.ImpactForce() != 0 {
		t.Errorf("impact did not decay: %v", world.ImpactForce())
	}
}

func TestWorld_ImpactForce_UsesFullRelativeSpeed(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{})
	world.AddBody(createTestPlane(t, 0))
	ball := createTestSphere(t, mgl64.Vec3{0, 0.95, 0}, 1)
	ball.Velocity = mgl64.Vec3{3, -4, 0}
	world.AddBody(ball)

	world.Step(tick)

	if impact := world.ImpactForce(); math.Abs(impact-5) > 1e-9 {
		t.Errorf("ImpactForce() = %v, want 5 for a (3,-4,0) glancing hit", impact)
	}
}

func TestWorld_Step_Wind(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{})
	world.SetWind(mgl64.Vec3{2, 0, 0})
	ball := createTestSphere(t, mgl64.Vec3{}, 1)
	world.AddBody(ball)

	world.Step(0.5)

	if ball.Velocity.X() <= 0.9 || ball.Velocity.X() > 1 {
		t.Errorf("Velocity = %v, want about (1,0,0)", ball.Velocity)
	}
}

func TestWorld_Step_GravityScale(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{0, -10, 0})
	floating := createTestSphere(t, mgl64.Vec3{}, 1)
	floating.Material.GravityScale = 0
	heavy := createTestSphere(t, mgl64.Vec3{10, 0, 0}, 1)
	heavy.Material.GravityScale = 2
	heavy.Material.LinearDamping = 0
	world.AddBody(floating)
	world.AddBody(heavy)

	world.Step(0.1)

	if floating.Velocity != (mgl64.Vec3{}) {
		t.Errorf("floating body moved: %v", floating.Velocity)
	}
	if math.Abs(heavy.Velocity.Y()+2) > 1e-9 {
		t.Errorf("heavy.Velocity = %v, want (0,-2,0)", heavy.Velocity)
	}
}

func TestWorld_Step_TiltedBoxFallsFlat(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{0, -9.81, 0})
	world.AddBody(createTestPlane(t, 0))
	crate := createTestBox(t, mgl64.Vec3{0, 3, 0}, mgl64.Vec3{0.5, 0.5, 0.5})
	crate.Transform.Rotation = mgl64.QuatRotate(0.1, mgl64.Vec3{1, 0, 0})
	world.AddBody(crate)

	for i := 0; i < 15*60; i++ {
		world.Step(tick)
	}

	// one of the box axes must end up vertical
	alignment := 0.0
	for _, axis := range []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		alignment = math.Max(alignment, math.Abs(crate.Transform.Rotation.Rotate(axis).Y()))
	}
	if alignment < 0.99 {
		t.Errorf("box did not fall flat, best axis alignment = %v", alignment)
	}
	if y := crate.Transform.Position.Y(); math.Abs(y-0.5) > 0.05 {
		t.Errorf("box rests at y = %v, want 0.5 ± 0.05", y)
	}
	if crate.AngularVelocity.Len() > 0.1 {
		t.Errorf("box still spinning: %v", crate.AngularVelocity)
	}
}

func TestWorld_Step_Fields(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{})
	ball := createTestSphere(t, mgl64.Vec3{1, 0, 0}, 0.5)
	world.AddBody(ball)
	world.AddField(field.NewExplosion(mgl64.Vec3{}, 10, 5, world.Time(), 0.05))

	world.Step(tick)
	if ball.Velocity.X() <= 0 {
		t.Fatalf("explosion did not push the ball: %v", ball.Velocity)
	}

	for i := 0; i < 5; i++ {
		world.Step(tick)
	}
	if removed := world.PruneFields(); removed != 1 || len(world.Fields) != 0 {
		t.Errorf("PruneFields() = %d, fields left %d", removed, len(world.Fields))
	}
}

func TestWorld_Step_InvalidDelta(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{0, -9.81, 0})
	ball := createTestSphere(t, mgl64.Vec3{}, 1)
	world.AddBody(ball)

	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		world.Step(dt)
	}

	if world.Time() != 0 || ball.Transform.Position != (mgl64.Vec3{}) {
		t.Error("invalid time steps should be ignored")
	}
}

func TestWorld_Deterministic(t *testing.T) {
	build := func() *World {
		world := newTestWorld(mgl64.Vec3{0, -9.81, 0})
		world.AddBody(createTestPlane(t, 0))
		for i := 0; i < 12; i++ {
			x := float64(i%4) * 0.9
			z := float64(i/4) * 0.9
			world.AddBody(createTestSphere(t, mgl64.Vec3{x, 1 + float64(i)*0.3, z}, 0.5))
		}
		world.AddBody(createTestBox(t, mgl64.Vec3{1, 6, 1}, mgl64.Vec3{0.5, 0.5, 0.5}))
		return world
	}

	first, second := build(), build()
	for i := 0; i < 240; i++ {
		first.Step(tick)
		second.Step(tick)
	}

	for i := range first.Bodies {
		if first.Bodies[i].Transform != second.Bodies[i].Transform || first.Bodies[i].Velocity != second.Bodies[i].Velocity {
			t.Fatalf("body %d diverged", i)
		}
	}
}

func TestWorld_OverlapSphere(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{})
	near := createTestSphere(t, mgl64.Vec3{1, 0, 0}, 0.5)
	far := createTestSphere(t, mgl64.Vec3{20, 0, 0}, 0.5)
	ground := createTestPlane(t, -5)
	world.AddBody(near)
	world.AddBody(far)
	world.AddBody(ground)

	found := world.OverlapSphere(mgl64.Vec3{}, 1)

	if len(found) != 2 || found[0] != near || found[1] != ground {
		t.Errorf("OverlapSphere() = %v, want near body and ground", found)
	}
}

func TestWorld_SetLogger(t *testing.T) {
	world := newTestWorld(mgl64.Vec3{})
	var buf bytes.Buffer
	world.SetLogger(log.New(&buf, "", 0))

	stepper := NewStepper(world, 0.1, 2)
	stepper.Advance(1)

	if !strings.Contains(buf.String(), "dropped") {
		t.Errorf("log = %q, want a dropped-time warning", buf.String())
	}

	world.SetLogger(nil)
	stepper.Advance(1)
}

// =============================================================================
// Broad phase soundness
// =============================================================================

// bruteForcePairs tests every pair with the same rejection rules
func bruteForcePairs(bodies []*actor.RigidBody) map[[2]int]bool {
	pairs := make(map[[2]int]bool)
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			if CanCollide(bodies[i], bodies[j]) {
				pairs[[2]int{i, j}] = true
			}
		}
	}
	return pairs
}

func gridPairs(bodies []*actor.RigidBody, cellSize float64, cells int) map[[2]int]bool {
	index := make(map[*actor.RigidBody]int, len(bodies))
	for i, body := range bodies {
		index[body] = i
	}

	pairs := make(map[[2]int]bool)
	for _, pair := range BroadPhase(NewSpatialGrid(cellSize, cells), bodies) {
		pairs[[2]int{index[pair.BodyA], index[pair.BodyB]}] = true
	}
	return pairs
}

func randomBodies(t testing.TB, rng *rand.Rand, count int) []*actor.RigidBody {
	bodies := make([]*actor.RigidBody, 0, count+1)
	bodies = append(bodies, createTestPlane(t, -20))
	for i := 0; i < count; i++ {
		position := mgl64.Vec3{rng.Float64()*40 - 20, rng.Float64()*40 - 20, rng.Float64()*40 - 20}
		var body *actor.RigidBody
		switch rng.Intn(3) {
		case 0:
			body = createTestSphere(t, position, 0.1+rng.Float64()*3)
		case 1:
			body = createTestBox(t, position, mgl64.Vec3{0.1 + rng.Float64()*2, 0.1 + rng.Float64()*2, 0.1 + rng.Float64()*2})
			body.SetRotation(mgl64.AnglesToQuat(rng.Float64()*math.Pi, rng.Float64()*math.Pi, rng.Float64()*math.Pi, mgl64.XYZ))
		default:
			body = createTestSphere(t, position, 0.1+rng.Float64()*40)
		}
		if rng.Intn(5) == 0 {
			body.BodyType = actor.BodyTypeKinematic
		}
		if rng.Intn(6) == 0 {
			body.Sleep()
		}
		bodies = append(bodies, body)
	}
	return bodies
}

func comparePairs(t *testing.T, bodies []*actor.RigidBody, cellSize float64, cells int) {
	t.Helper()

	expected := bruteForcePairs(bodies)
	got := gridPairs(bodies, cellSize, cells)

	if len(got) != len(expected) {
		t.Errorf("grid found %d pairs, brute force %d", len(got), len(expected))
	}
	for pair := range expected {
		if !got[pair] {
			t.Errorf("grid missed pair %v", pair)
		}
	}
}

func TestBroadPhase_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, cellSize := range []float64{0.5, 2, 8} {
		for round := 0; round < 10; round++ {
			comparePairs(t, randomBodies(t, rng, 80), cellSize, 64)
		}
	}
}

func FuzzBroadPhase(f *testing.F) {
	f.Add(int64(1), 2.0, uint8(40))
	f.Add(int64(7), 0.25, uint8(10))
	f.Add(int64(99), 16.0, uint8(100))

	f.Fuzz(func(t *testing.T, seed int64, cellSize float64, count uint8) {
		if !(cellSize > 0.05) || cellSize > 1e3 {
			t.Skip()
		}
		rng := rand.New(rand.NewSource(seed))
		comparePairs(t, randomBodies(t, rng, int(count)), cellSize, 128)
	})
}

func BenchmarkWorldStep(b *testing.B) {
	world := newTestWorld(mgl64.Vec3{0, -9.81, 0})
	world.AddBody(createTestPlane(b, 0))
	for i := 0; i < 500; i++ {
		position := mgl64.Vec3{float64(i%10) * 1.5, 1 + float64(i/100)*1.5, float64((i/10)%10) * 1.5}
		world.AddBody(createTestSphere(b, position, 0.5))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		world.Step(tick)
	}
}
