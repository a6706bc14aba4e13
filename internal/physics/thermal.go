package physics

import "github.com/san-kum/loopsim/internal/dynamo"

const (
	DefaultHeatLoss = 0.1
	DefaultAmbient  = 20.0
)

// ThermalParams describes a body losing heat to its surroundings while a
// heater injects a flux proportional to the command.
type ThermalParams struct {
	K       float64 `yaml:"k"`       // heat-loss coefficient, 1/s
	Ambient float64 `yaml:"ambient"` // ambient temperature
	Gain    float64 `yaml:"gain"`    // flux per unit command
}

func (p ThermalParams) Validate() error {
	return firstError(
		requirePositive("k", p.K),
		requireFinite("ambient", p.Ambient),
		requireFinite("gain", p.Gain),
	)
}

// Thermal is the first-order heat-loss model dT/dt = gain*u - k*(T - Tamb).
type Thermal struct {
	params ThermalParams
}

func NewThermal(p ThermalParams) (*Thermal, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Thermal{params: p}, nil
}

func (th *Thermal) StateDim() int { return 1 }

func (th *Thermal) Derive(x dynamo.State, u float64, t float64) dynamo.State {
	return dynamo.State{th.params.Gain*u - th.params.K*(x[0]-th.params.Ambient)}
}

func (th *Thermal) Output(x dynamo.State) float64 { return x[0] }

func (th *Thermal) Equilibrium(u float64) (float64, bool) {
	return th.params.Ambient + th.params.Gain*u/th.params.K, true
}

func (th *Thermal) Params() ThermalParams { return th.params }

func (th *Thermal) GetParams() map[string]float64 {
	return map[string]float64{
		"k":       th.params.K,
		"ambient": th.params.Ambient,
		"gain":    th.params.Gain,
	}
}
