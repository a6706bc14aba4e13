package config

import "github.com/san-kum/loopsim/internal/control"

var Presets = map[string]map[string]*Config{
	"thermal": {
		"closed": {
			Plant: "thermal", Mode: ModeClosed, Integrator: IntegratorEuler, Dt: 0.1, Duration: 10,
			Params:     map[string]float64{"k": 0.1, "ambient": 20},
			Controller: control.Gains{Kp: 1.0, Ki: 0.1, Kd: 0.01, Setpoint: 200},
		},
		"open": {
			Plant: "thermal", Mode: ModeOpen, Command: 30, Integrator: IntegratorEuler, Dt: 0.1, Duration: 200,
			Params: map[string]float64{"k": 0.1, "ambient": 20},
		},
		"p-only": {
			Plant: "thermal", Mode: ModeClosed, Integrator: IntegratorEuler, Dt: 0.1, Duration: 100,
			Params:     map[string]float64{"k": 0.1, "ambient": 20},
			Controller: control.Gains{Kp: 2.0, Setpoint: 100},
		},
	},
	"thermal_ext": {
		"closed": {
			Plant: "thermal_ext", Mode: ModeClosed, Integrator: IntegratorSubStep, Substeps: DefaultSubsteps,
			Dt: 1, Duration: 1000,
			Params:     map[string]float64{"tau": 50, "eps": 0.1, "q": 0.05, "fill": 20},
			Controller: control.Gains{Kp: 5, Ki: 0.2, Setpoint: 40},
		},
		"open": {
			Plant: "thermal_ext", Mode: ModeOpen, Command: 60, Integrator: IntegratorSubStep, Substeps: DefaultSubsteps,
			Dt: 1, Duration: 2000,
			Params: map[string]float64{"tau": 50, "eps": 0.1, "q": 0.05, "fill": 20},
		},
	},
	"motor": {
		"closed": {
			Plant: "motor", Mode: ModeClosed, Integrator: IntegratorEuler, Dt: 0.1, Duration: 30,
			Controller: control.Gains{Kp: 1.0, Ki: 0.1, Setpoint: 10},
		},
		"open": {
			Plant: "motor", Mode: ModeOpen, Command: 2, Integrator: IntegratorEuler, Dt: 0.1, Duration: 10,
		},
	},
	"spring_mass": {
		"open": {
			Plant: "spring_mass", Mode: ModeOpen, Command: 10, Integrator: IntegratorEuler, Dt: 0.01, Duration: 5,
			Params: map[string]float64{"mass": 1, "stiffness": 20, "damping": 5},
		},
		"closed": {
			Plant: "spring_mass", Mode: ModeClosed, Integrator: IntegratorRK4, Dt: 0.01, Duration: 30,
			Params:     map[string]float64{"mass": 1, "stiffness": 20, "damping": 5},
			Controller: control.Gains{Kp: 50, Ki: 20, Kd: 5, Setpoint: 1},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(plant, preset string) *Config {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	cfg, ok := plantPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(plant string) []string {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(plantPresets))
	for name := range plantPresets {
		names = append(names, name)
	}
	return names
}
