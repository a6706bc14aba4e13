package dynamo

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type Simulator struct {
	dyn        System
	integrator Integrator
	controller Controller
	metrics    []Metric
	observers  []Observer
	logger     *zap.Logger
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(dyn System, integrator Integrator, controller Controller, opts ...Option) *Simulator {
	s := &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run advances the loop for Config.Steps ticks and records every tick.
// On divergence it returns the partial record with Diverged set together
// with a *SimulationError wrapping ErrDiverging.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	run, err := s.Begin(x0, cfg)
	if err != nil {
		return nil, err
	}

	result := newResult(run.steps)
	s.logger.Debug("run started",
		zap.Int("steps", run.steps),
		zap.Float64("dt", cfg.Dt),
		zap.Float64s("x0", x0),
	)

	for !run.Done() {
		select {
		case <-ctx.Done():
			result.Final, result.FinalTime = run.State(), run.Time()
			result.StepsTaken = run.tick
			return result, ctx.Err()
		default:
		}

		sample, stepErr := run.Step()
		if sample.State != nil {
			result.append(sample)
		}
		if stepErr != nil {
			result.Final, result.FinalTime = run.State(), run.Time()
			result.StepsTaken = run.tick
			result.Diverged = run.diverged
			s.collectMetrics(result)
			if run.diverged {
				s.logger.Warn("run diverged",
					zap.Int("step", run.tick),
					zap.Float64("t", run.Time()),
				)
			}
			return result, stepErr
		}
	}

	result.Final, result.FinalTime = run.State(), run.Time()
	result.StepsTaken = run.tick
	s.collectMetrics(result)

	s.logger.Debug("run finished",
		zap.Int("steps", result.StepsTaken),
		zap.Float64("final_output", s.dyn.Output(result.Final)),
	)
	return result, nil
}

// RunWithCallback drives the loop without recording; callback returning
// false stops the run early.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 State, cfg Config, callback func(Sample) bool) error {
	run, err := s.Begin(x0, cfg)
	if err != nil {
		return err
	}

	for !run.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sample, err := run.Step()
		if sample.State != nil && !callback(sample) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Begin validates cfg and x0 and returns a run positioned at tick zero.
func (s *Simulator) Begin(x0 State, cfg Config) (*Run, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d components, plant expects %d",
			ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	return &Run{
		sim:   s,
		cfg:   cfg,
		x:     x0.Clone(),
		steps: cfg.Steps(),
	}, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidTimestep, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidDuration, cfg.Duration)
	}
	return nil
}

func (s *Simulator) collectMetrics(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// Run is one in-progress simulation. It is advanced one tick at a time by
// Step and owns its state exclusively.
type Run struct {
	sim      *Simulator
	cfg      Config
	x        State
	t        float64
	tick     int
	steps    int
	diverged bool
}

func (r *Run) Done() bool { return r.tick >= r.steps || r.diverged }

func (r *Run) State() State { return r.x.Clone() }

func (r *Run) Time() float64 { return r.t }

func (r *Run) Tick() int { return r.tick }

func (r *Run) Steps() int { return r.steps }

// Step reads the plant output, asks the controller for a command, records
// the pre-update sample and advances the plant by one dt.
func (r *Run) Step() (Sample, error) {
	s := r.sim
	dt := r.cfg.Dt

	y := s.dyn.Output(r.x)
	u, err := s.controller.Compute(y, dt)
	if err != nil {
		return Sample{}, &SimulationError{Step: r.tick, Time: r.t, State: r.x.Clone(), Wrapped: err}
	}

	sample := Sample{Time: r.t, Output: y, Command: u, State: r.x.Clone()}

	for _, m := range s.metrics {
		m.Observe(sample.State, y, u, r.t)
	}
	for _, obs := range s.observers {
		obs.OnStep(sample.State, y, u, r.t)
	}

	newX := s.integrator.Step(s.dyn, r.x, u, r.t, dt)
	if r.cfg.ValidateState && !newX.IsValid() {
		r.diverged = true
		return sample, &SimulationError{Step: r.tick, Time: r.t, State: newX, Wrapped: ErrDiverging}
	}

	r.x = newX
	r.t += dt
	r.tick++
	return sample, nil
}
