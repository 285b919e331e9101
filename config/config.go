// Package config provides configuration loading and access for the
// simulation. It mirrors the parameter record described by the core
// specification: a flat set of nested groups handed by reference to each
// component's initialize step.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// SPHType selects the fluid-force/pre-interaction formulation.
type SPHType string

const (
	SSPH   SPHType = "ssph"
	DISPH  SPHType = "disph"
	GSPH   SPHType = "gsph"
	GDISPH SPHType = "gdisph"
)

// KernelType selects the smoothing kernel family.
type KernelType string

const (
	CubicSpline KernelType = "cubic_spline"
	Wendland    KernelType = "wendland"
)

// Config holds every parameter group consumed by the simulation core.
type Config struct {
	SimulationName string     `yaml:"simulation_name"`
	Dimension      int        `yaml:"dimension"`
	SPHType        SPHType    `yaml:"sph_type"`
	Kernel         KernelType `yaml:"kernel"`
	TwoAndHalfSim  bool       `yaml:"two_and_half_sim"`

	Time             TimeConfig             `yaml:"time"`
	CFL              CFLConfig              `yaml:"cfl"`
	AV               AVConfig               `yaml:"av"`
	AC               ACConfig               `yaml:"ac"`
	Tree             TreeConfig             `yaml:"tree"`
	Physics          PhysicsConfig          `yaml:"physics"`
	Periodic         PeriodicConfig         `yaml:"periodic"`
	Gravity          GravityConfig          `yaml:"gravity"`
	GSPHOpts         GSPHConfig             `yaml:"gsph"`
	DensityRelaxation DensityRelaxationConfig `yaml:"density_relaxation"`
	Resume           ResumeConfig           `yaml:"resume"`
	Checkpointing    CheckpointingConfig    `yaml:"checkpointing"`
	HeatingCooling   HeatingCoolingConfig   `yaml:"heating_cooling"`

	Derived DerivedConfig `yaml:"-"`
}

// TimeConfig bounds the integration loop.
type TimeConfig struct {
	Start  float64 `yaml:"start"`
	End    float64 `yaml:"end"`
	Output float64 `yaml:"output"`
	Energy float64 `yaml:"energy"`
}

// CFLConfig holds the Courant numbers used by TimeStep.
type CFLConfig struct {
	Sound float64 `yaml:"sound"`
	Force float64 `yaml:"force"`
	Ene   float64 `yaml:"ene"`
}

// AVConfig configures artificial viscosity and its switches.
type AVConfig struct {
	Alpha                float64 `yaml:"alpha"`
	UseBalsaraSwitch     bool    `yaml:"use_balsara_switch"`
	UseTimeDependentAV   bool    `yaml:"use_time_dependent_av"`
	AlphaMax             float64 `yaml:"alpha_max"`
	AlphaMin             float64 `yaml:"alpha_min"`
	Epsilon              float64 `yaml:"epsilon"`
}

// ACConfig configures artificial conductivity.
type ACConfig struct {
	Alpha   float64 `yaml:"alpha"`
	IsValid bool    `yaml:"is_valid"`
}

// TreeConfig bounds the Barnes-Hut octree.
type TreeConfig struct {
	MaxLevel        int `yaml:"max_level"`
	LeafParticleNum int `yaml:"leaf_particle_num"`
}

// PhysicsConfig holds the fluid's thermodynamic and resolution parameters.
type PhysicsConfig struct {
	NeighborNumber     float64 `yaml:"neighbor_number"`
	Gamma              float64 `yaml:"gamma"`
	IterativeSML       bool    `yaml:"iterative_sml"`
}

// PeriodicConfig configures minimum-image wrap.
type PeriodicConfig struct {
	IsValid  bool      `yaml:"is_valid"`
	RangeMax [3]float64 `yaml:"range_max"`
	RangeMin [3]float64 `yaml:"range_min"`
}

// GravityConfig configures self-gravity.
type GravityConfig struct {
	IsValid  bool    `yaml:"is_valid"`
	Constant float64 `yaml:"constant"`
	Theta    float64 `yaml:"theta"`
}

// GSPHConfig configures the Godunov-SPH reconstruction.
type GSPHConfig struct {
	Is2ndOrder      bool `yaml:"is_2nd_order"`
	ForceCorrection bool `yaml:"force_correction"`
}

// DensityRelaxationConfig configures the optional Lane-Emden relaxation pass.
type DensityRelaxationConfig struct {
	IsValid          bool    `yaml:"is_valid"`
	MaxIterations    int     `yaml:"max_iterations"`
	Tolerance        float64 `yaml:"tolerance"`
	DampingFactor    float64 `yaml:"damping_factor"`
	VelocityThreshold float64 `yaml:"velocity_threshold"`
	TableFile        string  `yaml:"table_file"`
	AlphaScaling     float64 `yaml:"alpha_scaling"`
}

// ResumeConfig controls loading from a prior checkpoint.
type ResumeConfig struct {
	CheckpointFile string `yaml:"checkpoint_file"`
}

// CheckpointingConfig controls automatic checkpoint writing.
type CheckpointingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Interval    float64 `yaml:"interval"`
	MaxKeep     int     `yaml:"max_keep"`
	OnInterrupt bool    `yaml:"on_interrupt"`
	Directory   string  `yaml:"directory"`
}

// HeatingCoolingConfig configures the optional linear source term on u.
type HeatingCoolingConfig struct {
	IsValid     bool    `yaml:"is_valid"`
	HeatingRate float64 `yaml:"heating_rate"`
	CoolingRate float64 `yaml:"cooling_rate"`
}

// DerivedConfig holds values computed once after loading.
type DerivedConfig struct {
	EffectiveDim int     // kernel dimension: 2 if TwoAndHalfSim, else Dimension
	NeighborArea float64 // A_d: 2, pi, 4pi/3 for d_eff 1,2,3
}

var global *Config

// Init loads configuration from path, or embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()
	return cfg, nil
}

// Validate checks parameter combinations that would otherwise surface as
// confusing failures deep inside the solver. Returns ConfigInvalid-class
// errors.
func (c *Config) Validate() error {
	if c.Dimension < 1 || c.Dimension > 3 {
		return fmt.Errorf("config: dimension must be 1, 2, or 3, got %d", c.Dimension)
	}
	if c.Time.End < c.Time.Start {
		return fmt.Errorf("config: time.end (%g) < time.start (%g)", c.Time.End, c.Time.Start)
	}
	if c.AV.UseTimeDependentAV && c.AV.AlphaMax < c.AV.AlphaMin {
		return fmt.Errorf("config: av.alpha_max (%g) < av.alpha_min (%g)", c.AV.AlphaMax, c.AV.AlphaMin)
	}
	switch c.SPHType {
	case SSPH, DISPH, GSPH, GDISPH:
	default:
		return fmt.Errorf("config: unknown sph_type %q", c.SPHType)
	}
	switch c.Kernel {
	case CubicSpline, Wendland:
	default:
		return fmt.Errorf("config: unknown kernel %q", c.Kernel)
	}
	return nil
}

// computeDerived fills in values derived from the loaded config.
func (c *Config) computeDerived() {
	if c.TwoAndHalfSim {
		c.Derived.EffectiveDim = 2
	} else {
		c.Derived.EffectiveDim = c.Dimension
	}
	switch c.Derived.EffectiveDim {
	case 1:
		c.Derived.NeighborArea = 2.0
	case 2:
		c.Derived.NeighborArea = 3.14159265358979323846
	default:
		c.Derived.NeighborArea = 4.0 / 3.0 * 3.14159265358979323846
	}
}
