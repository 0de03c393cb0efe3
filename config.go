package marble

import (
	"io"
	"math"

	"github.com/akmonengine/marble/actor"
	"github.com/akmonengine/marble/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds every tunable of a World. Start from DefaultConfig.
type Config struct {
	Gravity mgl64.Vec3 `yaml:"gravity"`
	// Wind is a force added to every awake dynamic body each tick
	Wind mgl64.Vec3 `yaml:"wind"`

	// Fixed-step accumulator, see Stepper
	TickSize    float64 `yaml:"tick_size"`
	MaxSubsteps int     `yaml:"max_substeps"`

	// MaxSpeed clamps linear speed after integration; .inf disables it
	MaxSpeed float64 `yaml:"max_speed"`

	SleepLinearThreshold  float64 `yaml:"sleep_linear_threshold"`
	SleepAngularThreshold float64 `yaml:"sleep_angular_threshold"`
	SleepTime             float64 `yaml:"sleep_time"`

	CorrectionPercent float64 `yaml:"correction_percent"`
	Slop              float64 `yaml:"slop"`
	RestingSpeed      float64 `yaml:"resting_speed"`

	// ImpactDecay is how fast ImpactForce falls back to zero, per second
	ImpactDecay float64 `yaml:"impact_decay"`

	// DefaultMaterial is given to spawned bodies without a material override
	DefaultMaterial actor.Material `yaml:"default_material"`

	GridCellSize float64 `yaml:"grid_cell_size"`
	GridCells    int     `yaml:"grid_cells"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:               mgl64.Vec3{0, -9.81, 0},
		TickSize:              1.0 / 60.0,
		MaxSubsteps:           5,
		MaxSpeed:              100,
		SleepLinearThreshold:  0.05,
		SleepAngularThreshold: 0.05,
		SleepTime:             0.5,
		CorrectionPercent:     constraint.DefaultCorrectionPercent,
		Slop:                  constraint.DefaultSlop,
		RestingSpeed:          constraint.DefaultRestingSpeed,
		ImpactDecay:           20,
		DefaultMaterial:       actor.DefaultMaterial(),
		GridCellSize:          4,
		GridCells:             1024,
	}
}

// LoadConfig reads a YAML document over the defaults. Unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports the first out-of-range setting, wrapping ErrInvalidConfig
func (c Config) Validate() error {
	for _, v := range []struct {
		name  string
		value mgl64.Vec3
	}{{"gravity", c.Gravity}, {"wind", c.Wind}} {
		for _, component := range v.value {
			if math.IsNaN(component) || math.IsInf(component, 0) {
				return errors.Wrapf(ErrInvalidConfig, "%s %v must be finite", v.name, v.value)
			}
		}
	}

	checks := []struct {
		ok  bool
		msg string
	}{
		{c.TickSize > 0 && !math.IsInf(c.TickSize, 0), "tick_size must be positive"},
		{c.MaxSubsteps >= 1, "max_substeps must be at least 1"},
		{c.MaxSpeed > 0, "max_speed must be positive"},
		{c.SleepLinearThreshold >= 0, "sleep_linear_threshold must not be negative"},
		{c.SleepAngularThreshold >= 0, "sleep_angular_threshold must not be negative"},
		{c.SleepTime >= 0, "sleep_time must not be negative"},
		{c.CorrectionPercent >= 0 && c.CorrectionPercent <= 1, "correction_percent must be within 0..1"},
		{c.Slop >= 0, "slop must not be negative"},
		{c.RestingSpeed >= 0, "resting_speed must not be negative"},
		{c.ImpactDecay >= 0, "impact_decay must not be negative"},
		{c.GridCellSize > 0 && !math.IsInf(c.GridCellSize, 0), "grid_cell_size must be positive"},
		{c.GridCells >= 1, "grid_cells must be at least 1"},
	}
	for _, check := range checks {
		if !check.ok {
			return errors.Wrap(ErrInvalidConfig, check.msg)
		}
	}

	if err := validateMaterial(c.DefaultMaterial); err != nil {
		return errors.Wrap(err, "default_material")
	}

	return nil
}

func validateMaterial(m actor.Material) error {
	switch {
	case !(m.Friction >= 0):
		return errors.Wrapf(ErrInvalidConfig, "friction %v must not be negative", m.Friction)
	case !(m.Restitution >= 0 && m.Restitution <= 1):
		return errors.Wrapf(ErrInvalidConfig, "restitution %v must be within 0..1", m.Restitution)
	case !(m.LinearDamping >= 0 && m.LinearDamping <= 1):
		return errors.Wrapf(ErrInvalidConfig, "linear_damping %v must be within 0..1", m.LinearDamping)
	case !(m.AngularDamping >= 0 && m.AngularDamping <= 1):
		return errors.Wrapf(ErrInvalidConfig, "angular_damping %v must be within 0..1", m.AngularDamping)
	case math.IsNaN(m.GravityScale) || math.IsInf(m.GravityScale, 0):
		return errors.Wrapf(ErrInvalidConfig, "gravity_scale %v must be finite", m.GravityScale)
	}

	return nil
}

func (c Config) resolveSettings() constraint.ResolveSettings {
	return constraint.ResolveSettings{
		CorrectionPercent: c.CorrectionPercent,
		Slop:              c.Slop,
		RestingSpeed:      c.RestingSpeed,
	}
}
