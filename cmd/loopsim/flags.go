package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/control"
)

var (
	configFile string
	preset     string
	params     []string
	mode       string
	command    float64
	kp         float64
	ki         float64
	kd         float64
	setpoint   float64
	offset     float64
	umin       float64
	umax       float64
	integrator string
	substeps   int
	dt         float64
	duration   float64
	initState  []float64
)

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringArrayVarP(&params, "param", "p", nil, "plant parameter name=value (repeatable)")
	f.StringVar(&mode, "mode", config.ModeClosed, "loop mode: closed or open")
	f.Float64Var(&command, "command", 0, "fixed command for open loop")
	f.Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	f.Float64Var(&ki, "ki", config.DefaultKi, "pid ki")
	f.Float64Var(&kd, "kd", config.DefaultKd, "pid kd")
	f.Float64Var(&setpoint, "setpoint", config.DefaultSetpoint, "pid setpoint")
	f.Float64Var(&offset, "offset", 0, "pid output offset")
	f.Float64Var(&umin, "u-min", 0, "lower command limit (with --u-max)")
	f.Float64Var(&umax, "u-max", 0, "upper command limit (with --u-min)")
	f.StringVar(&integrator, "integrator", config.IntegratorEuler, "integrator: euler, rk4 or substep")
	f.IntVar(&substeps, "substeps", config.DefaultSubsteps, "inner steps per dt for substep")
	f.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration")
	f.Float64SliceVar(&initState, "init", nil, "initial state (comma separated)")
}

// buildConfig layers defaults, preset, config file and explicitly set flags,
// in that order, and validates the result.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	plant := ""
	if len(args) > 0 {
		plant = args[0]
		cfg.Plant = plant
	}

	if preset != "" {
		if plant == "" {
			return nil, fmt.Errorf("--preset needs a plant argument")
		}
		p := config.GetPreset(plant, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(plant))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.LoadOnto(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if plant != "" {
			cfg.Plant = plant
		}
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Mode = mode
	}
	if flags.Changed("command") {
		cfg.Command = command
	}
	if flags.Changed("kp") {
		cfg.Controller.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.Controller.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.Controller.Kd = kd
	}
	if flags.Changed("setpoint") {
		cfg.Controller.Setpoint = setpoint
	}
	if flags.Changed("offset") {
		cfg.Controller.Offset = offset
	}
	if flags.Changed("u-min") || flags.Changed("u-max") {
		if !flags.Changed("u-min") || !flags.Changed("u-max") {
			return nil, fmt.Errorf("--u-min and --u-max must be given together")
		}
		cfg.Controller.Limits = &control.Limits{Min: umin, Max: umax}
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("substeps") {
		cfg.Substeps = substeps
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("init") {
		cfg.InitState = initState
	}

	if len(params) > 0 {
		parsed, err := parseParams(params)
		if err != nil {
			return nil, err
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(parsed))
		}
		for k, v := range parsed {
			cfg.Params[k] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseParams(kvs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(kvs))
	for _, kv := range kvs {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q, want name=value", kv)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", kv, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}
