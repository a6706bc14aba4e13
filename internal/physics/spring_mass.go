package physics

import "github.com/san-kum/loopsim/internal/dynamo"

const (
	DefaultMass      = 1.0
	DefaultStiffness = 20.0
	DefaultDamping   = 5.0
)

type SpringMassParams struct {
	Mass      float64 `yaml:"mass"`
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
}

func (p SpringMassParams) Validate() error {
	return firstError(
		requirePositive("mass", p.Mass),
		requireNonNegative("stiffness", p.Stiffness),
		requireNonNegative("damping", p.Damping),
	)
}

// SpringMassDamper is a single mass on a spring and dashpot driven by the
// command as an external force. State is [x, v].
type SpringMassDamper struct {
	params SpringMassParams
}

func NewSpringMassDamper(p SpringMassParams) (*SpringMassDamper, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &SpringMassDamper{params: p}, nil
}

func (s *SpringMassDamper) StateDim() int { return 2 }

func (s *SpringMassDamper) Derive(x dynamo.State, u float64, t float64) dynamo.State {
	pos, vel := x[0], x[1]
	acc := (u - s.params.Damping*vel - s.params.Stiffness*pos) / s.params.Mass
	return dynamo.State{vel, acc}
}

// Output is the position.
func (s *SpringMassDamper) Output(x dynamo.State) float64 { return x[0] }

func (s *SpringMassDamper) Equilibrium(u float64) (float64, bool) {
	if s.params.Stiffness == 0 {
		return 0, false
	}
	return u / s.params.Stiffness, true
}

func (s *SpringMassDamper) Energy(x dynamo.State) float64 {
	pos, vel := x[0], x[1]
	return 0.5*s.params.Mass*vel*vel + 0.5*s.params.Stiffness*pos*pos
}

func (s *SpringMassDamper) Params() SpringMassParams { return s.params }

func (s *SpringMassDamper) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":      s.params.Mass,
		"stiffness": s.params.Stiffness,
		"damping":   s.params.Damping,
	}
}
