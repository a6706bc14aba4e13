package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/experiment"
	"github.com/san-kum/loopsim/internal/metrics"
)

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run of a scenario. Preset, when set, is applied first
// and the inline config fields override it.
type ScenarioStep struct {
	Preset        string `yaml:"preset"`
	config.Config `yaml:",inline"`
	SaveAs        string `yaml:"save_as"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// StepConfig resolves the effective config of a step: defaults, then the
// preset, then every non-zero inline field.
func (s ScenarioStep) StepConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Plant != "" {
		cfg.Plant = s.Plant
	}
	if s.Preset != "" {
		p := config.GetPreset(cfg.Plant, s.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %s/%s", cfg.Plant, s.Preset)
		}
		cfg = p
	}

	if s.Params != nil {
		cfg.Params = s.Params
	}
	if s.Mode != "" {
		cfg.Mode = s.Mode
	}
	if s.Command != 0 {
		cfg.Command = s.Command
	}
	if s.Controller != (config.Config{}).Controller {
		cfg.Controller = s.Controller
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Substeps != 0 {
		cfg.Substeps = s.Substeps
	}
	if s.Dt != 0 {
		cfg.Dt = s.Dt
	}
	if s.Duration != 0 {
		cfg.Duration = s.Duration
	}
	if s.InitState != nil {
		cfg.InitState = s.InitState
	}
	return cfg, cfg.Validate()
}

type StepResult struct {
	Name   string
	Config *config.Config
	Result *dynamo.Result
}

// RunScenario executes the steps in order. A diverged step is kept and the
// scenario continues; any other error stops it.
func RunScenario(ctx context.Context, scenario *Scenario, logger *zap.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.StepConfig()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		name := step.SaveAs
		if name == "" {
			name = fmt.Sprintf("step%d_%s", i+1, cfg.Plant)
		}
		logger.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.String("name", name),
		)

		exp, err := experiment.New(cfg, experiment.WithLogger(logger))
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil && (result == nil || !result.Diverged) {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Name: name, Config: cfg, Result: result})
	}

	return results, nil
}

// ParameterSweep runs one closed- or open-loop config across evenly spaced
// values of a plant parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Workers   int
}

type SweepResult struct {
	ParamValue  float64
	FinalOutput float64
	Metrics     map[string]float64
	Diverged    bool
}

func (s *ParameterSweep) values() []float64 {
	if s.NumSteps == 1 {
		return []float64{s.ParamMin}
	}
	out := make([]float64, s.NumSteps)
	step := (s.ParamMax - s.ParamMin) / float64(s.NumSteps-1)
	for i := range out {
		out[i] = s.ParamMin + float64(i)*step
	}
	return out
}

// RunSweep evaluates every parameter value in parallel, each on a freshly
// built experiment. Diverged runs are reported, not treated as errors.
func RunSweep(ctx context.Context, sweep *ParameterSweep, logger *zap.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("%w: sweep steps=%d", dynamo.ErrInvalidParameter, sweep.NumSteps)
	}
	values := sweep.values()
	exps := make([]*experiment.Experiment, len(values))

	s := dynamo.NewSweep(len(values)).WithWorkers(sweep.Workers)
	s.KeepDiverged = true

	runs, err := s.Run(ctx, func(i int) (dynamo.RunSpec, error) {
		cfg := sweep.Base.Clone()
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, 1)
		}
		cfg.Params[sweep.ParamName] = values[i]

		exp, err := experiment.New(cfg, experiment.WithLogger(logger))
		if err != nil {
			return dynamo.RunSpec{}, fmt.Errorf("%s=%g: %w", sweep.ParamName, values[i], err)
		}
		exps[i] = exp
		return exp.RunSpec(), nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(values))
	for i, res := range runs {
		results[i] = SweepResult{
			ParamValue:  values[i],
			FinalOutput: exps[i].Plant().Output(res.Final),
			Metrics:     res.Metrics,
			Diverged:    res.Diverged,
		}
	}
	return results, nil
}

// MonteCarloConfig perturbs the initial state of Base uniformly by up to
// ±Perturbation per component.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
	Workers      int
}

type MonteCarloResult struct {
	TrialID   int
	InitState dynamo.State
	Final     dynamo.State
	Diverged  bool
	// Settled is true when a closed-loop trial ends inside the settling band.
	Settled bool
}

// RunMonteCarlo draws all initial states up front from a seeded source so
// the trials are reproducible, then runs them in parallel.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, logger *zap.Logger) ([]MonteCarloResult, error) {
	if cfg.NumTrials < 1 {
		return nil, fmt.Errorf("%w: trials=%d", dynamo.ErrInvalidParameter, cfg.NumTrials)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	base := cfg.Base.GetInitState()

	inits := make([]dynamo.State, cfg.NumTrials)
	for trial := range inits {
		x := make(dynamo.State, len(base))
		for i, v := range base {
			x[i] = v + (rng.Float64()-0.5)*2*cfg.Perturbation
		}
		inits[trial] = x
	}

	s := dynamo.NewSweep(cfg.NumTrials).WithWorkers(cfg.Workers)
	s.KeepDiverged = true

	runs, err := s.Run(ctx, func(i int) (dynamo.RunSpec, error) {
		c := cfg.Base.Clone()
		c.InitState = inits[i]
		exp, err := experiment.New(c, experiment.WithLogger(logger))
		if err != nil {
			return dynamo.RunSpec{}, err
		}
		return exp.RunSpec(), nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, cfg.NumTrials)
	for i, res := range runs {
		settled := false
		if st, ok := res.Metrics["settling_time"]; ok {
			settled = !res.Diverged && st != metrics.NotSettled
		}
		results[i] = MonteCarloResult{
			TrialID:   i,
			InitState: inits[i],
			Final:     res.Final,
			Diverged:  res.Diverged,
			Settled:   settled,
		}
	}
	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (settled, diverged int) {
	for _, r := range results {
		if r.Settled {
			settled++
		}
		if r.Diverged {
			diverged++
		}
	}
	return
}
