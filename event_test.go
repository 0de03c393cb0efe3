package marble

import (
	"testing"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// createTestBody creates a minimal RigidBody for event testing
func createTestBody(t *testing.T, id actor.BodyID, isTrigger, isSleeping bool) *actor.RigidBody {
	t.Helper()

	rb := createTestSphere(t, mgl64.Vec3{}, 1)
	rb.Id = id
	rb.IsTrigger = isTrigger
	rb.IsSleeping = isSleeping

	return rb
}

type eventCapture struct {
	events []Event
}

func (ec *eventCapture) capture(event Event) {
	ec.events = append(ec.events, event)
}

func (ec *eventCapture) types() []EventType {
	types := make([]EventType, len(ec.events))
	for i, event := range ec.events {
		types[i] = event.Type()
	}
	return types
}

func (ec *eventCapture) reset() {
	ec.events = ec.events[:0]
}

func subscribeAll(events *Events, capture *eventCapture) {
	for eventType := TRIGGER_ENTER; eventType <= ON_CONTACT; eventType++ {
		events.Subscribe(eventType, capture.capture)
	}
}

func equalTypes(a, b []EventType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEvents_Lifecycle(t *testing.T) {
	tests := []struct {
		name    string
		trigger bool
		enter   EventType
		stay    EventType
		exit    EventType
	}{
		{"collision", false, COLLISION_ENTER, COLLISION_STAY, COLLISION_EXIT},
		{"trigger", true, TRIGGER_ENTER, TRIGGER_STAY, TRIGGER_EXIT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := NewEvents()
			capture := &eventCapture{}
			subscribeAll(&events, capture)

			bodyA := createTestBody(t, 1, tt.trigger, false)
			bodyB := createTestBody(t, 2, false, false)

			steps := []struct {
				touching bool
				expected []EventType
			}{
				{true, []EventType{tt.enter}},
				{true, []EventType{tt.stay}},
				{true, []EventType{tt.stay}},
				{false, []EventType{tt.exit}},
				{false, nil},
				{true, []EventType{tt.enter}},
			}

			for i, step := range steps {
				capture.reset()
				if step.touching {
					events.recordPair(bodyB, bodyA)
				}
				events.flush()

				if !equalTypes(capture.types(), step.expected) {
					t.Fatalf("step %d: events %v, want %v", i, capture.types(), step.expected)
				}
			}
		})
	}
}

func TestEvents_PairOrderedById(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	events.Subscribe(COLLISION_ENTER, capture.capture)

	low := createTestBody(t, 3, false, false)
	high := createTestBody(t, 7, false, false)

	events.recordPair(high, low)
	events.recordPair(low, high)
	events.flush()

	if len(capture.events) != 1 {
		t.Fatalf("got %d events, want 1 for a pair recorded twice", len(capture.events))
	}
	enter := capture.events[0].(CollisionEnterEvent)
	if enter.BodyA != low || enter.BodyB != high {
		t.Error("BodyA should be the body with the lower id")
	}
}

func TestEvents_DeterministicOrder(t *testing.T) {
	bodies := make([]*actor.RigidBody, 6)
	for i := range bodies {
		bodies[i] = createTestBody(t, actor.BodyID(i+1), false, false)
	}

	var runs [][]actor.BodyID
	for run := 0; run < 5; run++ {
		events := NewEvents()
		var order []actor.BodyID
		events.Subscribe(COLLISION_ENTER, func(event Event) {
			enter := event.(CollisionEnterEvent)
			order = append(order, enter.BodyA.Id, enter.BodyB.Id)
		})

		events.recordPair(bodies[5], bodies[0])
		events.recordPair(bodies[2], bodies[1])
		events.recordPair(bodies[0], bodies[3])
		events.recordPair(bodies[4], bodies[2])
		events.flush()

		runs = append(runs, order)
	}

	expected := []actor.BodyID{1, 4, 1, 6, 2, 3, 3, 5}
	for _, order := range runs {
		if len(order) != len(expected) {
			t.Fatalf("order = %v, want %v", order, expected)
		}
		for i := range expected {
			if order[i] != expected[i] {
				t.Fatalf("order = %v, want %v", order, expected)
			}
		}
	}
}

func TestEvents_SleepingPairsAreQuiet(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	bodyA := createTestBody(t, 1, false, true)
	bodyB := createTestBody(t, 2, false, true)

	events.recordPair(bodyA, bodyB)
	events.flush()

	if len(capture.events) != 0 {
		t.Errorf("two sleeping bodies produced %v", capture.types())
	}

	// one awake body is enough
	bodyB.IsSleeping = false
	events.recordPair(bodyA, bodyB)
	events.flush()

	if !equalTypes(capture.types(), []EventType{COLLISION_ENTER}) {
		t.Fatalf("events = %v, want enter", capture.types())
	}

	// falling asleep together ends the contact, waking starts a new one
	capture.reset()
	bodyB.IsSleeping = true
	events.recordPair(bodyA, bodyB)
	events.flush()
	if !equalTypes(capture.types(), []EventType{COLLISION_EXIT}) {
		t.Fatalf("events = %v, want exit", capture.types())
	}

	capture.reset()
	events.recordPair(bodyA, bodyB)
	events.flush()
	if len(capture.events) != 0 {
		t.Fatalf("still asleep, got %v", capture.types())
	}

	bodyA.IsSleeping = false
	events.recordPair(bodyA, bodyB)
	events.flush()
	if !equalTypes(capture.types(), []EventType{COLLISION_ENTER}) {
		t.Errorf("events = %v, want enter after waking", capture.types())
	}
}

func TestEvents_SleepAndWake(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	body := createTestBody(t, 1, false, false)
	bodies := []*actor.RigidBody{body}

	// first sighting only records the state
	events.processSleepEvents(bodies)
	events.flush()
	if len(capture.events) != 0 {
		t.Fatalf("first sighting produced %v", capture.types())
	}

	body.Sleep()
	events.processSleepEvents(bodies)
	events.flush()
	if !equalTypes(capture.types(), []EventType{ON_SLEEP}) {
		t.Fatalf("events = %v, want sleep", capture.types())
	}
	if capture.events[0].(SleepEvent).Body != body {
		t.Error("SleepEvent carries the wrong body")
	}

	capture.reset()
	events.processSleepEvents(bodies)
	events.flush()
	if len(capture.events) != 0 {
		t.Fatalf("unchanged state produced %v", capture.types())
	}

	body.WakeUp()
	events.processSleepEvents(bodies)
	events.flush()
	if !equalTypes(capture.types(), []EventType{ON_WAKE}) {
		t.Fatalf("events = %v, want wake", capture.types())
	}
}

func TestEvents_EmitIsImmediate(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	bodyA := createTestBody(t, 1, false, false)
	bodyB := createTestBody(t, 2, false, false)

	events.emit(CollisionEvent{BodyA: bodyA, BodyB: bodyB, Impulse: 2.5, Time: 1})

	if !equalTypes(capture.types(), []EventType{ON_CONTACT}) {
		t.Fatalf("events = %v, want contact before flush", capture.types())
	}
	if capture.events[0].(CollisionEvent).Impulse != 2.5 {
		t.Error("CollisionEvent lost its impulse")
	}
}

func TestEvents_Forget(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	bodyA := createTestBody(t, 1, false, false)
	bodyB := createTestBody(t, 2, false, false)

	events.recordPair(bodyA, bodyB)
	events.processSleepEvents([]*actor.RigidBody{bodyA})
	events.flush()
	capture.reset()

	events.forget(bodyA)
	events.flush()

	// a removed body must not produce an Exit
	if len(capture.events) != 0 {
		t.Errorf("forgotten body produced %v", capture.types())
	}
	if _, tracked := events.sleepStates[bodyA]; tracked {
		t.Error("sleep state still tracked")
	}
}

func TestEvents_MultipleListeners(t *testing.T) {
	var events Events
	first, second := &eventCapture{}, &eventCapture{}
	events.Subscribe(COLLISION_ENTER, first.capture)
	events.Subscribe(COLLISION_ENTER, second.capture)

	events.recordPair(createTestBody(t, 1, false, false), createTestBody(t, 2, false, false))
	events.flush()

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Errorf("listeners got %d and %d events, want 1 each", len(first.events), len(second.events))
	}
}

func TestEventType_String(t *testing.T) {
	tests := map[EventType]string{
		TRIGGER_ENTER:  "trigger-enter",
		COLLISION_STAY: "collision-stay",
		COLLISION_EXIT: "collision-exit",
		ON_SLEEP:       "sleep",
		ON_CONTACT:     "contact",
		EventType(200): "unknown",
	}

	for eventType, want := range tests {
		if got := eventType.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
