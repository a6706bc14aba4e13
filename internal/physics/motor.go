package physics

import "github.com/san-kum/loopsim/internal/dynamo"

type MotorParams struct {
	Gain float64 `yaml:"gain"` // acceleration per unit command
	Drag float64 `yaml:"drag"` // optional linear drag c; 0 gives a pure integrator
}

func (p MotorParams) Validate() error {
	return firstError(
		requirePositive("gain", p.Gain),
		requireNonNegative("drag", p.Drag),
	)
}

// Motor is the speed model dv/dt = gain*u - c*v. With c = 0 the command
// integrates straight into speed and there is no open-loop equilibrium.
type Motor struct {
	params MotorParams
}

func NewMotor(p MotorParams) (*Motor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Motor{params: p}, nil
}

func (m *Motor) StateDim() int { return 1 }

func (m *Motor) Derive(x dynamo.State, u float64, t float64) dynamo.State {
	return dynamo.State{m.params.Gain*u - m.params.Drag*x[0]}
}

func (m *Motor) Output(x dynamo.State) float64 { return x[0] }

func (m *Motor) Equilibrium(u float64) (float64, bool) {
	if m.params.Drag == 0 {
		return 0, false
	}
	return m.params.Gain * u / m.params.Drag, true
}

func (m *Motor) Params() MotorParams { return m.params }

func (m *Motor) GetParams() map[string]float64 {
	return map[string]float64{
		"gain": m.params.Gain,
		"drag": m.params.Drag,
	}
}
