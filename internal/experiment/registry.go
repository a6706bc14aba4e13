package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/integrators"
	"github.com/san-kum/loopsim/internal/metrics"
	"github.com/san-kum/loopsim/internal/physics"
)

type Registry struct {
	integrators map[string]func(substeps int) (dynamo.Integrator, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func(int) (dynamo.Integrator, error)),
	}

	r.integrators[config.IntegratorEuler] = func(int) (dynamo.Integrator, error) {
		return integrators.NewEuler(), nil
	}
	r.integrators[config.IntegratorRK4] = func(int) (dynamo.Integrator, error) {
		return integrators.NewRK4(), nil
	}
	r.integrators[config.IntegratorSubStep] = func(n int) (dynamo.Integrator, error) {
		return integrators.NewSubStep(nil, n)
	}

	return r
}

func (r *Registry) GetPlant(name string, params map[string]float64) (dynamo.System, error) {
	return physics.New(physics.Kind(name), params)
}

func (r *Registry) GetIntegrator(name string, substeps int) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(substeps)
}

// GetController returns a PID for closed-loop configs and a constant command
// source for open-loop ones.
func (r *Registry) GetController(cfg *config.Config) (dynamo.Controller, error) {
	switch cfg.Mode {
	case config.ModeClosed:
		return control.NewPID(cfg.Controller)
	case config.ModeOpen:
		return control.NewConstant(cfg.Command), nil
	default:
		return nil, fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func (r *Registry) ListPlants() []string {
	kinds := physics.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns the tracking metrics for closed-loop runs plus
// control effort and energy drift, which apply to every run.
func (r *Registry) DefaultMetrics(cfg *config.Config, dyn dynamo.System) []dynamo.Metric {
	var ms []dynamo.Metric
	if cfg.Mode == config.ModeClosed {
		ms = append(ms, metrics.Tracking(cfg.Controller.Setpoint)...)
	}
	ms = append(ms, metrics.NewControlEffort())
	if physics.Kind(cfg.Plant) == physics.KindSpringMass {
		ms = append(ms, metrics.NewEnergyDrift(dyn))
	}
	return ms
}
