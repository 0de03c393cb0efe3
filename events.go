package marble

import (
	"sort"

	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	TRIGGER_ENTER EventType = iota
	COLLISION_ENTER
	TRIGGER_STAY
	COLLISION_STAY
	TRIGGER_EXIT
	COLLISION_EXIT
	ON_SLEEP
	ON_WAKE
	// ON_CONTACT is delivered in-line, once per resolved contact, while the
	// step is running. Every other event is buffered until the step ends.
	ON_CONTACT
)

type EventType uint8

func (t EventType) String() string {
	switch t {
	case TRIGGER_ENTER:
		return "trigger-enter"
	case COLLISION_ENTER:
		return "collision-enter"
	case TRIGGER_STAY:
		return "trigger-stay"
	case COLLISION_STAY:
		return "collision-stay"
	case TRIGGER_EXIT:
		return "trigger-exit"
	case COLLISION_EXIT:
		return "collision-exit"
	case ON_SLEEP:
		return "sleep"
	case ON_WAKE:
		return "wake"
	case ON_CONTACT:
		return "contact"
	}

	return "unknown"
}

// pairKey identifies a pair of bodies regardless of order
type pairKey struct {
	bodyA *actor.RigidBody
	bodyB *actor.RigidBody
}

// makePairKey orders the pair by body id
func makePairKey(bodyA, bodyB *actor.RigidBody) pairKey {
	if bodyB.Id < bodyA.Id {
		bodyA, bodyB = bodyB, bodyA
	}

	return pairKey{bodyA: bodyA, bodyB: bodyB}
}

func (p pairKey) less(other pairKey) bool {
	if p.bodyA.Id != other.bodyA.Id {
		return p.bodyA.Id < other.bodyA.Id
	}

	return p.bodyB.Id < other.bodyB.Id
}

func (p pairKey) isTrigger() bool {
	return p.bodyA.IsTrigger || p.bodyB.IsTrigger
}

// Event is implemented by every event delivered to listeners
type Event interface {
	Type() EventType
}

// Trigger events
type TriggerEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerStayEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerStayEvent) Type() EventType { return TRIGGER_STAY }

type TriggerExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

// Collision events
type CollisionEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Body *actor.RigidBody
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.RigidBody
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// CollisionEvent describes one resolved contact.
// Normal points away from BodyA's surface toward BodyB.
type CollisionEvent struct {
	BodyA   *actor.RigidBody
	BodyB   *actor.RigidBody
	Point   mgl64.Vec3
	Normal  mgl64.Vec3
	Impulse float64 // normal impulse magnitude
	Time    float64 // simulation seconds
}

func (e CollisionEvent) Type() EventType { return ON_CONTACT }

// EventListener is called synchronously for each event
type EventListener func(event Event)

// Events dispatches typed events to subscribed listeners
type Events struct {
	listeners map[EventType][]EventListener

	// buffered until flush
	buffer []Event

	// Enter/Stay/Exit detection
	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool

	sleepStates map[*actor.RigidBody]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
		sleepStates:         make(map[*actor.RigidBody]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	if e.listeners == nil {
		*e = NewEvents()
	}
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordPair marks two bodies as touching during the current step
func (e *Events) recordPair(bodyA, bodyB *actor.RigidBody) {
	e.currentActivePairs[makePairKey(bodyA, bodyB)] = true
}

// emit delivers an event immediately, bypassing the buffer
func (e *Events) emit(event Event) {
	for _, listener := range e.listeners[event.Type()] {
		listener(event)
	}
}

// forget drops all tracking state held for body
func (e *Events) forget(body *actor.RigidBody) {
	delete(e.sleepStates, body)
	for pair := range e.previousActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.previousActivePairs, pair)
		}
	}
	for pair := range e.currentActivePairs {
		if pair.bodyA == body || pair.bodyB == body {
			delete(e.currentActivePairs, pair)
		}
	}
}

// sortedPairs returns the keys of a pair set ordered by body id
func sortedPairs(set map[pairKey]bool) []pairKey {
	pairs := make([]pairKey, 0, len(set))
	for pair := range set {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].less(pairs[j]) })

	return pairs
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit.
// A pair whose bodies both sleep no longer counts as touching: it exits, and
// enters again once one of them wakes.
func (e *Events) processCollisionEvents() {
	for pair := range e.currentActivePairs {
		if pair.bodyA.IsSleeping && pair.bodyB.IsSleeping {
			delete(e.currentActivePairs, pair)
		}
	}

	for _, pair := range sortedPairs(e.currentActivePairs) {
		trigger := pair.isTrigger()
		if e.previousActivePairs[pair] {
			if trigger {
				e.buffer = append(e.buffer, TriggerStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			} else {
				e.buffer = append(e.buffer, CollisionStayEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			}
		} else {
			if trigger {
				e.buffer = append(e.buffer, TriggerEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			} else {
				e.buffer = append(e.buffer, CollisionEnterEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
			}
		}
	}

	for _, pair := range sortedPairs(e.previousActivePairs) {
		if e.currentActivePairs[pair] {
			continue
		}
		if pair.isTrigger() {
			e.buffer = append(e.buffer, TriggerExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		} else {
			e.buffer = append(e.buffer, CollisionExitEvent{BodyA: pair.bodyA, BodyB: pair.bodyB})
		}
	}

	// Swap for next step and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

func (e *Events) processSleepEvents(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		trackedState, exists := e.sleepStates[body]
		if !exists {
			e.sleepStates[body] = body.IsSleeping
			continue
		}

		if !trackedState && body.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body] = true
		} else if trackedState && !body.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body] = false
		}
	}
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processCollisionEvents()

	for _, event := range e.buffer {
		e.emit(event)
	}
	e.buffer = e.buffer[:0]
}
