package physics

import (
	"fmt"
	"sort"

	"github.com/san-kum/loopsim/internal/dynamo"
)

// Kind selects a plant variant.
type Kind string

const (
	KindThermal         Kind = "thermal"
	KindExtendedThermal Kind = "thermal_ext"
	KindMotor           Kind = "motor"
	KindSpringMass      Kind = "spring_mass"
)

var defaults = map[Kind]map[string]float64{
	KindThermal:         {"k": DefaultHeatLoss, "ambient": DefaultAmbient, "gain": 1},
	KindExtendedThermal: {"tau": 50, "eps": 0.1, "q": 0.05, "fill": DefaultAmbient},
	KindMotor:           {"gain": 1, "drag": 0},
	KindSpringMass:      {"mass": DefaultMass, "stiffness": DefaultStiffness, "damping": DefaultDamping},
}

var stateDims = map[Kind]int{
	KindThermal:         1,
	KindExtendedThermal: 1,
	KindMotor:           1,
	KindSpringMass:      2,
}

func Kinds() []Kind {
	kinds := make([]Kind, 0, len(defaults))
	for k := range defaults {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// DefaultParams returns a copy of the default parameters of a variant.
func DefaultParams(kind Kind) (map[string]float64, error) {
	d, ok := defaults[kind]
	if !ok {
		return nil, fmt.Errorf("unknown plant: %s", kind)
	}
	out := make(map[string]float64, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out, nil
}

func StateDim(kind Kind) (int, error) {
	n, ok := stateDims[kind]
	if !ok {
		return 0, fmt.Errorf("unknown plant: %s", kind)
	}
	return n, nil
}

// New builds a plant of the given kind. params override the defaults;
// unknown names are rejected.
func New(kind Kind, params map[string]float64) (dynamo.System, error) {
	p, err := DefaultParams(kind)
	if err != nil {
		return nil, err
	}
	for name, v := range params {
		if _, ok := p[name]; !ok {
			return nil, fmt.Errorf("%w: %s has no parameter %q", dynamo.ErrInvalidParameter, kind, name)
		}
		p[name] = v
	}

	switch kind {
	case KindThermal:
		return NewThermal(ThermalParams{K: p["k"], Ambient: p["ambient"], Gain: p["gain"]})
	case KindExtendedThermal:
		return NewExtendedThermal(ExtendedThermalParams{Tau: p["tau"], Eps: p["eps"], Q: p["q"], Fill: p["fill"]})
	case KindMotor:
		return NewMotor(MotorParams{Gain: p["gain"], Drag: p["drag"]})
	default:
		return NewSpringMassDamper(SpringMassParams{Mass: p["mass"], Stiffness: p["stiffness"], Damping: p["damping"]})
	}
}
