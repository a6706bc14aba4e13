package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/physics"
)

const (
	DefaultDt       = 0.1
	DefaultDuration = 10.0
	DefaultKp       = 1.0
	DefaultKi       = 0.1
	DefaultKd       = 0.01
	DefaultSetpoint = 200.0
	DefaultSubsteps = 10
)

const (
	ModeClosed = "closed"
	ModeOpen   = "open"
)

const (
	IntegratorEuler   = "euler"
	IntegratorRK4     = "rk4"
	IntegratorSubStep = "substep"
)

type Config struct {
	Plant      string             `yaml:"plant"`
	Params     map[string]float64 `yaml:"params,omitempty"`
	Mode       string             `yaml:"mode"`
	Command    float64            `yaml:"command"`
	Controller control.Gains      `yaml:"controller"`
	Integrator string             `yaml:"integrator"`
	Substeps   int                `yaml:"substeps,omitempty"`
	Dt         float64            `yaml:"dt"`
	Duration   float64            `yaml:"duration"`
	InitState  []float64          `yaml:"init_state,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Plant:      string(physics.KindThermal),
		Mode:       ModeClosed,
		Integrator: IntegratorEuler,
		Substeps:   DefaultSubsteps,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Controller: control.Gains{
			Kp:       DefaultKp,
			Ki:       DefaultKi,
			Kd:       DefaultKd,
			Setpoint: DefaultSetpoint,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOnto(path, DefaultConfig())
}

// LoadOnto decodes the file over a copy of base; fields absent from the
// file keep the values of base.
func LoadOnto(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy so presets can be modified safely.
func (c *Config) Clone() *Config {
	out := *c
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	if c.InitState != nil {
		out.InitState = append([]float64(nil), c.InitState...)
	}
	if c.Controller.Limits != nil {
		l := *c.Controller.Limits
		out.Controller.Limits = &l
	}
	return &out
}

func (c *Config) Validate() error {
	dim, err := physics.StateDim(physics.Kind(c.Plant))
	if err != nil {
		return err
	}
	switch c.Mode {
	case ModeClosed, ModeOpen:
	default:
		return fmt.Errorf("unknown mode: %q (want %s or %s)", c.Mode, ModeClosed, ModeOpen)
	}
	switch c.Integrator {
	case IntegratorEuler, IntegratorRK4:
	case IntegratorSubStep:
		if c.Substeps < 1 {
			return fmt.Errorf("%w: substeps=%d", dynamo.ErrInvalidParameter, c.Substeps)
		}
	default:
		return fmt.Errorf("unknown integrator: %s", c.Integrator)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt=%g", dynamo.ErrInvalidTimestep, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration=%g", dynamo.ErrInvalidDuration, c.Duration)
	}
	if len(c.InitState) != 0 && len(c.InitState) != dim {
		return fmt.Errorf("%w: init_state has %d values, %s expects %d",
			dynamo.ErrDimensionMismatch, len(c.InitState), c.Plant, dim)
	}
	if c.Mode == ModeClosed {
		return c.Controller.Validate()
	}
	return nil
}

// GetInitState returns the configured initial state, or the plant's rest
// state: ambient/fill temperature for thermal plants, zero otherwise.
func (c *Config) GetInitState() []float64 {
	if len(c.InitState) != 0 {
		return append([]float64(nil), c.InitState...)
	}

	kind := physics.Kind(c.Plant)
	params, err := physics.DefaultParams(kind)
	if err != nil {
		return nil
	}
	for k, v := range c.Params {
		params[k] = v
	}

	switch kind {
	case physics.KindThermal:
		return []float64{params["ambient"]}
	case physics.KindExtendedThermal:
		return []float64{params["fill"]}
	case physics.KindSpringMass:
		return []float64{0, 0}
	default:
		return []float64{0}
	}
}

func (c *Config) SimConfig() dynamo.Config {
	return dynamo.Config{Dt: c.Dt, Duration: c.Duration, ValidateState: true}
}
