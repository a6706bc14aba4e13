package dynamo

import "math"

// State is the plant state vector. Its length is fixed for a run and equals
// the plant's StateDim.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a single-input plant: dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u float64, t float64) State
	StateDim() int
	// Output is the observable value fed back to the controller.
	Output(x State) float64
}

// Equilibrium is implemented by plants whose steady state under a constant
// command is known in closed form. ok is false when no equilibrium exists.
type Equilibrium interface {
	Equilibrium(u float64) (output float64, ok bool)
}

type Integrator interface {
	Step(dyn System, x State, u float64, t float64, dt float64) State
}

// Controller produces the manipulated variable from the latest measurement.
// Implementations own their accumulator state; one instance drives one run.
type Controller interface {
	Compute(measured float64, dt float64) (float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, output, u float64, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, output, u float64, t float64)
}

type Configurable interface {
	GetParams() map[string]float64
}

type Config struct {
	Dt       float64
	Duration float64
	// ValidateState halts the run on NaN/Inf and reports ErrDiverging.
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		ValidateState: true,
	}
}

// Steps is the fixed iteration count of a run.
func (c Config) Steps() int {
	return int(math.Round(c.Duration / c.Dt))
}

// Sample is one tick of a simulation record, taken before the state update
// of that tick.
type Sample struct {
	Time    float64
	Output  float64
	Command float64
	State   State
}

// Result is the append-only record of one run.
type Result struct {
	Times      []float64
	Outputs    []float64
	Commands   []float64
	States     []State
	Final      State
	FinalTime  float64
	StepsTaken int
	Diverged   bool
	Metrics    map[string]float64
}

func newResult(steps int) *Result {
	return &Result{
		Times:    make([]float64, 0, steps),
		Outputs:  make([]float64, 0, steps),
		Commands: make([]float64, 0, steps),
		States:   make([]State, 0, steps),
		Metrics:  make(map[string]float64),
	}
}

func (r *Result) append(s Sample) {
	r.Times = append(r.Times, s.Time)
	r.Outputs = append(r.Outputs, s.Output)
	r.Commands = append(r.Commands, s.Command)
	r.States = append(r.States, s.State)
}

func (r *Result) Len() int { return len(r.Times) }

func (r *Result) Sample(i int) Sample {
	return Sample{
		Time:    r.Times[i],
		Output:  r.Outputs[i],
		Command: r.Commands[i],
		State:   r.States[i],
	}
}

// Tail returns the last frac of the recorded outputs, at least one sample.
func (r *Result) Tail(frac float64) []float64 {
	n := len(r.Outputs)
	if n == 0 {
		return nil
	}
	k := int(math.Ceil(float64(n) * frac))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return r.Outputs[n-k:]
}
