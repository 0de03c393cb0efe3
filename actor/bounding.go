package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BoundingSphere is the cheap rejection volume every shape exposes.
// An infinite radius (planes) overlaps everything.
type BoundingSphere struct {
	Center mgl64.Vec3
	Radius float64
}

// IsInfinite reports whether the sphere is unbounded
func (s BoundingSphere) IsInfinite() bool {
	return math.IsInf(s.Radius, 1)
}

// Overlaps reports whether the center distance does not exceed the radius sum
func (s BoundingSphere) Overlaps(other BoundingSphere) bool {
	if s.IsInfinite() || other.IsInfinite() {
		return true
	}
	radiusSum := s.Radius + other.Radius

	return s.Center.Sub(other.Center).LenSqr() <= radiusSum*radiusSum
}

// ContainsPoint reports whether point lies inside or on the sphere
func (s BoundingSphere) ContainsPoint(point mgl64.Vec3) bool {
	if s.IsInfinite() {
		return true
	}

	return point.Sub(s.Center).LenSqr() <= s.Radius*s.Radius
}

// IntersectRay returns the smallest positive distance along the unit direction
// at which the ray enters (or, from inside, leaves) the sphere.
func (s BoundingSphere) IntersectRay(origin, direction mgl64.Vec3) (float64, bool) {
	if s.IsInfinite() {
		return 0, false
	}

	oc := origin.Sub(s.Center)
	b := oc.Dot(direction)
	c := oc.LenSqr() - s.Radius*s.Radius

	discriminant := b*b - c
	if discriminant < 0 {
		return 0, false
	}
	sqrtD := math.Sqrt(discriminant)

	t := -b - sqrtD
	if t <= 0 {
		t = -b + sqrtD
	}
	if t <= 0 {
		return 0, false
	}

	return t, true
}

// mergeSpheres returns a sphere enclosing all of the given spheres
func mergeSpheres(spheres []BoundingSphere) BoundingSphere {
	if len(spheres) == 0 {
		return BoundingSphere{}
	}

	bounds := AABB{
		Min: spheres[0].Center.Sub(mgl64.Vec3{spheres[0].Radius, spheres[0].Radius, spheres[0].Radius}),
		Max: spheres[0].Center.Add(mgl64.Vec3{spheres[0].Radius, spheres[0].Radius, spheres[0].Radius}),
	}
	for _, s := range spheres[1:] {
		for i := 0; i < 3; i++ {
			bounds.Min[i] = math.Min(bounds.Min[i], s.Center[i]-s.Radius)
			bounds.Max[i] = math.Max(bounds.Max[i], s.Center[i]+s.Radius)
		}
	}

	center := bounds.Center()
	radius := 0.0
	for _, s := range spheres {
		radius = math.Max(radius, s.Center.Sub(center).Len()+s.Radius)
	}

	return BoundingSphere{Center: center, Radius: radius}
}
