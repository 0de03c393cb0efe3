// Package collision implements the narrow phase: exact per shape-pair tests
// returning a single contact point, normal and penetration depth.
package collision

import (
	"github.com/akmonengine/marble/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Contact describes how two shapes touch.
// Normal always points from the first shape toward the second.
type Contact struct {
	Point       mgl64.Vec3
	Normal      mgl64.Vec3
	Penetration float64
}

// Flip returns the same contact seen from the second shape
func (c Contact) Flip() Contact {
	return Contact{
		Point:       c.Point,
		Normal:      c.Normal.Mul(-1),
		Penetration: c.Penetration,
	}
}

// up is the fallback normal when the geometry gives no direction
var up = mgl64.Vec3{0, 1, 0}

// Collide dispatches on the shape pair. Pairs without a test (plane-plane,
// unknown shapes) report no contact.
func Collide(shapeA actor.Shape, transformA actor.Transform, shapeB actor.Shape, transformB actor.Transform) (Contact, bool) {
	if shapeA == nil || shapeB == nil {
		return Contact{}, false
	}

	if compound, ok := shapeA.(*actor.Compound); ok {
		return collideCompound(compound, transformA, shapeB, transformB)
	}
	if compound, ok := shapeB.(*actor.Compound); ok {
		contact, hit := collideCompound(compound, transformB, shapeA, transformA)
		return contact.Flip(), hit
	}

	switch a := proxy(shapeA).(type) {
	case *actor.Sphere:
		switch b := proxy(shapeB).(type) {
		case *actor.Sphere:
			return SphereSphere(a, transformA, b, transformB)
		case *actor.Box:
			return SphereBox(a, transformA, b, transformB)
		case *actor.Plane:
			return SpherePlane(a, transformA, b, transformB)
		}
	case *actor.Box:
		switch b := proxy(shapeB).(type) {
		case *actor.Sphere:
			contact, hit := SphereBox(b, transformB, a, transformA)
			return contact.Flip(), hit
		case *actor.Box:
			return BoxBox(a, transformA, b, transformB)
		case *actor.Plane:
			return BoxPlane(a, transformA, b, transformB)
		}
	case *actor.Plane:
		switch b := proxy(shapeB).(type) {
		case *actor.Sphere:
			contact, hit := SpherePlane(b, transformB, a, transformA)
			return contact.Flip(), hit
		case *actor.Box:
			contact, hit := BoxPlane(b, transformB, a, transformA)
			return contact.Flip(), hit
		}
	}

	return Contact{}, false
}

// proxy replaces a cylinder by the sphere standing in for it
func proxy(shape actor.Shape) actor.Shape {
	if cylinder, ok := shape.(*actor.Cylinder); ok {
		return &actor.Sphere{Radius: cylinder.ProxyRadius()}
	}

	return shape
}

// collideCompound tests every child and keeps the deepest contact
func collideCompound(compound *actor.Compound, transform actor.Transform, other actor.Shape, otherTransform actor.Transform) (Contact, bool) {
	var best Contact
	hit := false

	for _, child := range compound.Children {
		contact, ok := Collide(child.Shape, transform.Child(child.Offset), other, otherTransform)
		if !ok {
			continue
		}
		if !hit || contact.Penetration > best.Penetration {
			best = contact
			hit = true
		}
	}

	return best, hit
}
