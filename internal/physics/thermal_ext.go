package physics

import "github.com/san-kum/loopsim/internal/dynamo"

// ExtendedThermalParams parameterises a body coupled to a fixed surrounding
// temperature Tf and to a heater whose temperature is the command.
type ExtendedThermalParams struct {
	Tau  float64 `yaml:"tau"`  // time constant towards Tf
	Eps  float64 `yaml:"eps"`  // heat-capacity ratio of the heater element
	Q    float64 `yaml:"q"`    // heater coupling rate
	Fill float64 `yaml:"fill"` // surrounding temperature Tf
}

func (p ExtendedThermalParams) Validate() error {
	if err := firstError(
		requirePositive("tau", p.Tau),
		requireFinite("eps", p.Eps),
		requireNonNegative("q", p.Q),
		requireFinite("fill", p.Fill),
	); err != nil {
		return err
	}
	if 1+p.Eps <= 0 {
		return dynamo.InvalidParameter("eps", p.Eps, "1+eps must be positive")
	}
	return nil
}

// ExtendedThermal models heater influence as a temperature rather than a flux:
//
//	dT/dt = (Tf - T) / (tau*(1+eps)) + Q/(1+eps) * (Tq - T)
//
// where the command u is the heater temperature Tq.
type ExtendedThermal struct {
	params ExtendedThermalParams
}

func NewExtendedThermal(p ExtendedThermalParams) (*ExtendedThermal, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &ExtendedThermal{params: p}, nil
}

func (e *ExtendedThermal) StateDim() int { return 1 }

func (e *ExtendedThermal) Derive(x dynamo.State, u float64, t float64) dynamo.State {
	p := e.params
	T := x[0]
	scale := 1 + p.Eps
	return dynamo.State{(p.Fill-T)/(p.Tau*scale) + p.Q/scale*(u-T)}
}

func (e *ExtendedThermal) Output(x dynamo.State) float64 { return x[0] }

// Equilibrium is the weighted mean of Tf and the heater temperature; the
// (1+eps) factor cancels.
func (e *ExtendedThermal) Equilibrium(u float64) (float64, bool) {
	p := e.params
	return (p.Fill/p.Tau + p.Q*u) / (1/p.Tau + p.Q), true
}

func (e *ExtendedThermal) Params() ExtendedThermalParams { return e.params }

func (e *ExtendedThermal) GetParams() map[string]float64 {
	return map[string]float64{
		"tau":  e.params.Tau,
		"eps":  e.params.Eps,
		"q":    e.params.Q,
		"fill": e.params.Fill,
	}
}
