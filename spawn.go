package marble

import (
	"io"
	"strings"

	"github.com/akmonengine/marble/actor"
	"github.com/akmonengine/marble/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var ErrUnknownShape = errors.New("unknown shape type")

// ============================================================================
// Definitions
// ============================================================================

// ShapeDef describes a shape by type tag and parameters
type ShapeDef struct {
	Type        string     `yaml:"type"`
	Radius      float64    `yaml:"radius,omitempty"`
	Height      float64    `yaml:"height,omitempty"`
	HalfExtents mgl64.Vec3 `yaml:"half_extents,omitempty"`
	Normal      mgl64.Vec3 `yaml:"normal,omitempty"`
	Distance    float64    `yaml:"distance,omitempty"`
	// Offset places this shape inside a compound parent
	Offset   mgl64.Vec3 `yaml:"offset,omitempty"`
	Children []ShapeDef `yaml:"children,omitempty"`
}

// MaterialDef overrides selected fields of the world's default material
type MaterialDef struct {
	Friction       *float64 `yaml:"friction,omitempty"`
	Restitution    *float64 `yaml:"restitution,omitempty"`
	LinearDamping  *float64 `yaml:"linear_damping,omitempty"`
	AngularDamping *float64 `yaml:"angular_damping,omitempty"`
	GravityScale   *float64 `yaml:"gravity_scale,omitempty"`
}

// BodyDef is a request to spawn one body
type BodyDef struct {
	Name     string   `yaml:"name,omitempty"`
	Category string   `yaml:"category,omitempty"`
	Shape    ShapeDef `yaml:"shape"`

	Position        mgl64.Vec3 `yaml:"position,omitempty"`
	Rotation        mgl64.Vec3 `yaml:"rotation,omitempty"` // Euler angles in degrees, applied X then Y then Z
	Velocity        mgl64.Vec3 `yaml:"velocity,omitempty"`
	AngularVelocity mgl64.Vec3 `yaml:"angular_velocity,omitempty"`

	Mass          float64     `yaml:"mass,omitempty"`
	Kinematic     bool        `yaml:"kinematic,omitempty"`
	Trigger       bool        `yaml:"trigger,omitempty"`
	FixedRotation bool        `yaml:"fixed_rotation,omitempty"`
	Magnetic      bool        `yaml:"magnetic,omitempty"`
	Material      MaterialDef `yaml:"material,omitempty"`

	// nil keeps the defaults
	Group *uint32 `yaml:"group,omitempty"`
	Mask  *uint32 `yaml:"mask,omitempty"`
}

// JointDef links two bodies of a scene by name. An empty BodyB anchors the
// joint to world space.
type JointDef struct {
	Type      string     `yaml:"type"` // distance, point_to_point, hinge, slider
	BodyA     string     `yaml:"body_a"`
	BodyB     string     `yaml:"body_b,omitempty"`
	AnchorA   mgl64.Vec3 `yaml:"anchor_a,omitempty"`
	AnchorB   mgl64.Vec3 `yaml:"anchor_b,omitempty"`
	Axis      mgl64.Vec3 `yaml:"axis,omitempty"`
	Min       float64    `yaml:"min,omitempty"`
	Max       float64    `yaml:"max,omitempty"`
	Stiffness float64    `yaml:"stiffness,omitempty"`
}

// SceneDef is a set of bodies and joints spawned together
type SceneDef struct {
	Bodies []BodyDef  `yaml:"bodies"`
	Joints []JointDef `yaml:"joints,omitempty"`
}

// LoadScene decodes a YAML scene. Unknown keys are rejected.
func LoadScene(r io.Reader) (SceneDef, error) {
	var scene SceneDef

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&scene); err != nil && !errors.Is(err, io.EOF) {
		return SceneDef{}, errors.Wrap(err, "decode scene")
	}

	return scene, nil
}

// ============================================================================
// Parsing
// ============================================================================

// ParseShapeType maps a shape tag onto its ShapeType
func ParseShapeType(tag string) (actor.ShapeType, error) {
	for t := actor.ShapeTypeSphere; t <= actor.ShapeTypeCompound; t++ {
		if strings.EqualFold(tag, t.String()) {
			return t, nil
		}
	}

	return 0, errors.Wrapf(ErrUnknownShape, "%q", tag)
}

// ParseCategory maps a category name onto its Category; empty is generic
func ParseCategory(name string) (actor.Category, error) {
	if name == "" {
		return actor.CategoryGeneric, nil
	}
	for c := actor.CategoryGeneric; c <= actor.CategoryPowerUp; c++ {
		if strings.EqualFold(name, c.String()) {
			return c, nil
		}
	}

	return 0, errors.Errorf("unknown category %q", name)
}

// Build creates the shape described by d
func (d ShapeDef) Build() (actor.Shape, error) {
	shapeType, err := ParseShapeType(d.Type)
	if err != nil {
		return nil, err
	}

	switch shapeType {
	case actor.ShapeTypeSphere:
		return actor.NewSphere(d.Radius)
	case actor.ShapeTypeBox:
		return actor.NewBox(d.HalfExtents)
	case actor.ShapeTypeCylinder:
		return actor.NewCylinder(d.Radius, d.Height)
	case actor.ShapeTypePlane:
		return actor.NewPlane(d.Normal, d.Distance)
	case actor.ShapeTypeCompound:
		children := make([]actor.Child, 0, len(d.Children))
		for i, childDef := range d.Children {
			child, err := childDef.Build()
			if err != nil {
				return nil, errors.Wrapf(err, "child %d", i)
			}
			children = append(children, actor.Child{Shape: child, Offset: childDef.Offset})
		}
		return actor.NewCompound(children...)
	}

	return nil, errors.Wrapf(ErrUnknownShape, "%q", d.Type)
}

func (d MaterialDef) apply(base actor.Material) actor.Material {
	if d.Friction != nil {
		base.Friction = *d.Friction
	}
	if d.Restitution != nil {
		base.Restitution = *d.Restitution
	}
	if d.LinearDamping != nil {
		base.LinearDamping = *d.LinearDamping
	}
	if d.AngularDamping != nil {
		base.AngularDamping = *d.AngularDamping
	}
	if d.GravityScale != nil {
		base.GravityScale = *d.GravityScale
	}

	return base
}

// ============================================================================
// Spawning
// ============================================================================

// Spawn validates def, builds the body and adds it to the world.
// Nothing is added when an error is returned.
func (w *World) Spawn(def BodyDef) (*actor.RigidBody, error) {
	body, err := w.build(def)
	if err != nil {
		w.logger.Printf("marble: spawn %q rejected: %v", def.Name, err)
		return nil, err
	}
	w.AddBody(body)

	return body, nil
}

func (w *World) build(def BodyDef) (*actor.RigidBody, error) {
	shape, err := def.Shape.Build()
	if err != nil {
		return nil, errors.Wrap(err, "shape")
	}
	category, err := ParseCategory(def.Category)
	if err != nil {
		return nil, err
	}
	material := def.Material.apply(w.config.DefaultMaterial)
	if err := validateMaterial(material); err != nil {
		return nil, errors.Wrap(err, "material")
	}

	bodyType := actor.BodyTypeDynamic
	if def.Kinematic {
		bodyType = actor.BodyTypeKinematic
	}
	rotation := mgl64.AnglesToQuat(
		mgl64.DegToRad(def.Rotation.X()),
		mgl64.DegToRad(def.Rotation.Y()),
		mgl64.DegToRad(def.Rotation.Z()),
		mgl64.XYZ,
	)

	body, err := actor.NewRigidBody(actor.NewTransformAt(def.Position, rotation), shape, bodyType, def.Mass)
	if err != nil {
		return nil, err
	}

	body.Category = category
	body.Material = material
	body.Velocity = def.Velocity
	body.AngularVelocity = def.AngularVelocity
	body.IsTrigger = def.Trigger
	body.FixedRotation = def.FixedRotation
	body.IsMagnetic = def.Magnetic
	if def.Group != nil {
		body.CollisionGroup = *def.Group
	}
	if def.Mask != nil {
		body.CollisionMask = *def.Mask
	}
	if def.Name != "" {
		body.UserData = def.Name
	}

	return body, nil
}

// SpawnScene spawns every body of scene, then its joints. Bodies are returned
// by name. On error nothing is added to the world.
func (w *World) SpawnScene(scene SceneDef) (map[string]*actor.RigidBody, error) {
	bodies := make([]*actor.RigidBody, 0, len(scene.Bodies))
	named := make(map[string]*actor.RigidBody, len(scene.Bodies))

	for i, def := range scene.Bodies {
		body, err := w.build(def)
		if err != nil {
			return nil, errors.Wrapf(err, "body %d (%q)", i, def.Name)
		}
		if def.Name != "" {
			if _, duplicate := named[def.Name]; duplicate {
				return nil, errors.Errorf("body %d: duplicate name %q", i, def.Name)
			}
			named[def.Name] = body
		}
		bodies = append(bodies, body)
	}

	joints := make([]constraint.Constraint, 0, len(scene.Joints))
	for i, def := range scene.Joints {
		joint, err := buildJoint(def, named)
		if err != nil {
			return nil, errors.Wrapf(err, "joint %d", i)
		}
		joints = append(joints, joint)
	}

	for _, body := range bodies {
		w.AddBody(body)
	}
	for _, joint := range joints {
		w.AddConstraint(joint)
	}

	return named, nil
}

func buildJoint(def JointDef, named map[string]*actor.RigidBody) (constraint.Constraint, error) {
	bodyA, ok := named[def.BodyA]
	if !ok {
		return nil, errors.Errorf("unknown body_a %q", def.BodyA)
	}
	var bodyB *actor.RigidBody
	if def.BodyB != "" {
		if bodyB, ok = named[def.BodyB]; !ok {
			return nil, errors.Errorf("unknown body_b %q", def.BodyB)
		}
	}

	stiffness := def.Stiffness
	if stiffness == 0 {
		stiffness = 1
	}

	switch strings.ToLower(def.Type) {
	case "distance":
		joint := constraint.NewDistance(bodyA, bodyB, def.Min, def.Max, stiffness)
		joint.LocalAnchorA = def.AnchorA
		joint.LocalAnchorB = def.AnchorB
		return joint, nil
	case "point_to_point":
		return constraint.NewPointToPoint(bodyA, bodyB, def.AnchorA, def.AnchorB, stiffness), nil
	case "hinge":
		return constraint.NewHinge(bodyA, bodyB, def.AnchorA, def.AnchorB, def.Axis, def.Axis, stiffness), nil
	case "slider":
		joint := constraint.NewSlider(bodyA, bodyB, def.Axis, stiffness)
		joint.LocalAnchorA = def.AnchorA
		joint.LocalAnchorB = def.AnchorB
		if def.Min != 0 || def.Max != 0 {
			joint.MinTravel = def.Min
			joint.MaxTravel = def.Max
		}
		return joint, nil
	}

	return nil, errors.Errorf("unknown joint type %q", def.Type)
}
