package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// ErrInvalidShape is the cause of every shape construction error
var ErrInvalidShape = errors.New("invalid shape")

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
	ShapeTypeCylinder
	ShapeTypePlane
	ShapeTypeCompound
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeSphere:
		return "sphere"
	case ShapeTypeBox:
		return "box"
	case ShapeTypeCylinder:
		return "cylinder"
	case ShapeTypePlane:
		return "plane"
	case ShapeTypeCompound:
		return "compound"
	}

	return "unknown"
}

// Shape is the interface that all collision shapes implement.
// Shapes hold no per-frame state: every query takes the owner's transform.
type Shape interface {
	Type() ShapeType
	// BoundingSphere returns a sphere enclosing the shape at the given transform
	BoundingSphere(transform Transform) BoundingSphere
	// ComputeAABB calculates the axis-aligned bounding box at the given transform
	ComputeAABB(transform Transform) AABB
	ComputeInertia(mass float64) mgl64.Mat3
	Validate() error
}

// ============================================================================
// Sphere
// ============================================================================

// Sphere represents a spherical collision shape
type Sphere struct {
	Radius float64
}

// NewSphere creates a validated sphere
func NewSphere(radius float64) (*Sphere, error) {
	s := &Sphere{Radius: radius}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Sphere) Type() ShapeType { return ShapeTypeSphere }

func (s *Sphere) Validate() error {
	if !(s.Radius > 0) || math.IsInf(s.Radius, 0) {
		return errors.Wrapf(ErrInvalidShape, "sphere radius %v must be positive and finite", s.Radius)
	}

	return nil
}

func (s *Sphere) BoundingSphere(transform Transform) BoundingSphere {
	return BoundingSphere{Center: transform.Position, Radius: s.Radius}
}

// ComputeAABB calculates the axis-aligned bounding box for the sphere
func (s *Sphere) ComputeAABB(transform Transform) AABB {
	// Sphere AABB is not affected by rotation, only by position
	radiusVec := mgl64.Vec3{s.Radius, s.Radius, s.Radius}

	return AABB{
		Min: transform.Position.Sub(radiusVec),
		Max: transform.Position.Add(radiusVec),
	}
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	// I = (2/5) * m * r²
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius

	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

// ============================================================================
// Box
// ============================================================================

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
}

// NewBox creates a validated box
func NewBox(halfExtents mgl64.Vec3) (*Box, error) {
	b := &Box{HalfExtents: halfExtents}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

func (b *Box) Validate() error {
	for i := 0; i < 3; i++ {
		if !(b.HalfExtents[i] > 0) || math.IsInf(b.HalfExtents[i], 0) {
			return errors.Wrapf(ErrInvalidShape, "box half extents %v must be positive and finite", b.HalfExtents)
		}
	}

	return nil
}

// Corners returns the 8 corners of the box in world space
func (b *Box) Corners(transform Transform) [8]mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()
	local := [8]mgl64.Vec3{
		{-hx, -hy, -hz},
		{+hx, -hy, -hz},
		{-hx, +hy, -hz},
		{+hx, +hy, -hz},
		{-hx, -hy, +hz},
		{+hx, -hy, +hz},
		{-hx, +hy, +hz},
		{+hx, +hy, +hz},
	}

	var corners [8]mgl64.Vec3
	for i, c := range local {
		corners[i] = transform.LocalToWorld(c)
	}

	return corners
}

func (b *Box) ComputeAABB(transform Transform) AABB {
	corners := b.Corners(transform)
	lower := corners[0]
	upper := corners[0]

	for _, c := range corners[1:] {
		for i := 0; i < 3; i++ {
			lower[i] = math.Min(lower[i], c[i])
			upper[i] = math.Max(upper[i], c[i])
		}
	}

	return AABB{Min: lower, Max: upper}
}

// BoundingSphere encloses the world AABB of the box, so that the axis-aligned
// box-box approximation never reports a contact outside of it.
func (b *Box) BoundingSphere(transform Transform) BoundingSphere {
	aabb := b.ComputeAABB(transform)

	return BoundingSphere{
		Center: transform.Position,
		Radius: aabb.Max.Sub(aabb.Min).Mul(0.5).Len(),
	}
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	// I = (m/12) * (dimension1² + dimension2²)
	factor := mass / 12.0

	return mgl64.Diag3(mgl64.Vec3{
		factor * (y*y + z*z),
		factor * (x*x + z*z),
		factor * (x*x + y*y),
	})
}

// ============================================================================
// Cylinder
// ============================================================================

// Cylinder is a capped cylinder whose axis is the local Y axis.
// Collision treats it as a sphere of radius ProxyRadius.
type Cylinder struct {
	Radius float64
	Height float64
}

// NewCylinder creates a validated cylinder
func NewCylinder(radius, height float64) (*Cylinder, error) {
	c := &Cylinder{Radius: radius, Height: height}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Cylinder) Type() ShapeType { return ShapeTypeCylinder }

func (c *Cylinder) Validate() error {
	if !(c.Radius > 0) || math.IsInf(c.Radius, 0) {
		return errors.Wrapf(ErrInvalidShape, "cylinder radius %v must be positive and finite", c.Radius)
	}
	if !(c.Height > 0) || math.IsInf(c.Height, 0) {
		return errors.Wrapf(ErrInvalidShape, "cylinder height %v must be positive and finite", c.Height)
	}

	return nil
}

// ProxyRadius is the radius of the sphere standing in for the cylinder in narrow phase
func (c *Cylinder) ProxyRadius() float64 {
	return math.Max(c.Radius, c.Height/2)
}

func (c *Cylinder) BoundingSphere(transform Transform) BoundingSphere {
	halfHeight := c.Height / 2

	return BoundingSphere{
		Center: transform.Position,
		Radius: math.Sqrt(c.Radius*c.Radius + halfHeight*halfHeight),
	}
}

func (c *Cylinder) ComputeAABB(transform Transform) AABB {
	box := Box{HalfExtents: mgl64.Vec3{c.Radius, c.Height / 2, c.Radius}}

	return box.ComputeAABB(transform)
}

func (c *Cylinder) ComputeInertia(mass float64) mgl64.Mat3 {
	r2 := c.Radius * c.Radius
	side := mass * (3*r2 + c.Height*c.Height) / 12.0

	return mgl64.Diag3(mgl64.Vec3{side, mass * r2 / 2.0, side})
}

// ============================================================================
// Plane
// ============================================================================

// Plane represents an infinite plane collision shape.
// In world space the plane holds every point p with n·p = n·position + Distance,
// where n is Normal rotated by the owner's rotation.
type Plane struct {
	Normal   mgl64.Vec3 // Plane normal (normalized by NewPlane)
	Distance float64    // Signed offset from the owner's position along the normal
}

// NewPlane creates a plane with a normalized normal
func NewPlane(normal mgl64.Vec3, distance float64) (*Plane, error) {
	n, ok := SafeNormalize(normal)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidShape, "plane normal %v has no direction", normal)
	}
	p := &Plane{Normal: n, Distance: distance}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Plane) Type() ShapeType { return ShapeTypePlane }

func (p *Plane) Validate() error {
	if _, ok := SafeNormalize(p.Normal); !ok {
		return errors.Wrapf(ErrInvalidShape, "plane normal %v has no direction", p.Normal)
	}
	if math.IsNaN(p.Distance) || math.IsInf(p.Distance, 0) {
		return errors.Wrapf(ErrInvalidShape, "plane distance %v must be finite", p.Distance)
	}

	return nil
}

// WorldPlane returns the unit world normal and the offset d such that the
// plane is n·p = d.
func (p *Plane) WorldPlane(transform Transform) (mgl64.Vec3, float64) {
	normal := NormalizeOr(transform.Rotation.Rotate(p.Normal), mgl64.Vec3{0, 1, 0})

	return normal, normal.Dot(transform.Position) + p.Distance
}

// SignedDistance returns the distance of point above the plane
func (p *Plane) SignedDistance(transform Transform, point mgl64.Vec3) float64 {
	normal, offset := p.WorldPlane(transform)

	return normal.Dot(point) - offset
}

func (p *Plane) BoundingSphere(transform Transform) BoundingSphere {
	return BoundingSphere{Center: transform.Position, Radius: math.Inf(1)}
}

func (p *Plane) ComputeAABB(transform Transform) AABB {
	const infinity = 1e10

	return AABB{
		Min: mgl64.Vec3{-infinity, -infinity, -infinity},
		Max: mgl64.Vec3{infinity, infinity, infinity},
	}
}

func (p *Plane) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

// ============================================================================
// Compound
// ============================================================================

// Child is a sub-shape of a Compound, placed at Offset in the compound's local space
type Child struct {
	Shape  Shape
	Offset mgl64.Vec3
}

// Compound groups several finite shapes into one rigid collision shape
type Compound struct {
	Children []Child
}

// NewCompound creates a validated compound shape
func NewCompound(children ...Child) (*Compound, error) {
	c := &Compound{Children: children}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Compound) Type() ShapeType { return ShapeTypeCompound }

func (c *Compound) Validate() error {
	if len(c.Children) == 0 {
		return errors.Wrap(ErrInvalidShape, "compound has no children")
	}
	for i, child := range c.Children {
		if child.Shape == nil {
			return errors.Wrapf(ErrInvalidShape, "compound child %d has no shape", i)
		}
		if child.Shape.Type() == ShapeTypePlane {
			return errors.Wrapf(ErrInvalidShape, "compound child %d is an infinite plane", i)
		}
		if err := child.Shape.Validate(); err != nil {
			return errors.Wrapf(err, "compound child %d", i)
		}
	}

	return nil
}

func (c *Compound) BoundingSphere(transform Transform) BoundingSphere {
	spheres := make([]BoundingSphere, len(c.Children))
	for i, child := range c.Children {
		spheres[i] = child.Shape.BoundingSphere(transform.Child(child.Offset))
	}

	return mergeSpheres(spheres)
}

func (c *Compound) ComputeAABB(transform Transform) AABB {
	var bounds AABB
	for i, child := range c.Children {
		aabb := child.Shape.ComputeAABB(transform.Child(child.Offset))
		if i == 0 {
			bounds = aabb
			continue
		}
		for k := 0; k < 3; k++ {
			bounds.Min[k] = math.Min(bounds.Min[k], aabb.Min[k])
			bounds.Max[k] = math.Max(bounds.Max[k], aabb.Max[k])
		}
	}

	return bounds
}

// ComputeInertia splits the mass evenly between children and moves each child
// tensor to the compound origin with the parallel axis theorem.
func (c *Compound) ComputeInertia(mass float64) mgl64.Mat3 {
	if len(c.Children) == 0 {
		return mgl64.Mat3{}
	}
	childMass := mass / float64(len(c.Children))

	var inertia mgl64.Mat3
	for _, child := range c.Children {
		d := child.Offset
		shift := mgl64.Ident3().Mul(d.Dot(d)).Sub(d.OuterProd3(d)).Mul(childMass)
		inertia = inertia.Add(child.Shape.ComputeInertia(childMass)).Add(shift)
	}

	return inertia
}
