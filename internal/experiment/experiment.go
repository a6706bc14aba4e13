package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/dynamo"
)

// Experiment is one configured run: a fresh plant, controller and integrator
// built from a config. Experiments are single-use; build a new one per run.
type Experiment struct {
	cfg       *config.Config
	plant     dynamo.System
	simulator *dynamo.Simulator
	logger    *zap.Logger
}

type Option func(*Experiment)

func WithLogger(l *zap.Logger) Option {
	return func(e *Experiment) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	return NewWithRegistry(NewRegistry(), cfg, opts...)
}

func NewWithRegistry(reg *Registry, cfg *config.Config, opts ...Option) (*Experiment, error) {
	e := &Experiment{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	plant, err := reg.GetPlant(cfg.Plant, cfg.Params)
	if err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(cfg.Integrator, cfg.Substeps)
	if err != nil {
		return nil, err
	}
	ctrl, err := reg.GetController(cfg)
	if err != nil {
		return nil, err
	}

	e.plant = plant
	e.simulator = dynamo.New(plant, integ, ctrl,
		dynamo.WithLogger(e.logger.With(zap.String("plant", cfg.Plant), zap.String("mode", cfg.Mode))))
	for _, m := range reg.DefaultMetrics(cfg, plant) {
		e.simulator.AddMetric(m)
	}
	return e, nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	spec := e.RunSpec()
	return e.simulator.Run(ctx, spec.X0, spec.Config)
}

// RunSpec exposes the experiment as one entry of a dynamo.Sweep.
func (e *Experiment) RunSpec() dynamo.RunSpec {
	return dynamo.RunSpec{
		Sim:    e.simulator,
		X0:     dynamo.State(e.cfg.GetInitState()),
		Config: e.cfg.SimConfig(),
	}
}

// GetSimulator returns the underlying simulator for adding observers.
func (e *Experiment) GetSimulator() *dynamo.Simulator {
	return e.simulator
}

func (e *Experiment) Plant() dynamo.System {
	return e.plant
}

func (e *Experiment) Config() *config.Config {
	return e.cfg
}
