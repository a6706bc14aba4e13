package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/loopsim/internal/dynamo"
)

const (
	DefaultTailFraction = 0.1
	DefaultSettlingBand = 0.02
	// NotSettled is the settling time of a run that ends outside the band.
	NotSettled = -1.0
)

// trace keeps the observed output and time series for the tracking metrics.
type trace struct {
	times   []float64
	outputs []float64
}

func (tr *trace) observe(output, t float64) {
	tr.times = append(tr.times, t)
	tr.outputs = append(tr.outputs, output)
}

func (tr *trace) reset() {
	tr.times = tr.times[:0]
	tr.outputs = tr.outputs[:0]
}

// SteadyStateError is |setpoint - mean output| over the final fraction of
// the run.
type SteadyStateError struct {
	trace
	setpoint float64
	tail     float64
}

func NewSteadyStateError(setpoint, tail float64) *SteadyStateError {
	if tail <= 0 || tail > 1 {
		tail = DefaultTailFraction
	}
	return &SteadyStateError{setpoint: setpoint, tail: tail}
}

func (m *SteadyStateError) Name() string { return "steady_state_error" }

func (m *SteadyStateError) Observe(x dynamo.State, output, u float64, t float64) {
	m.observe(output, t)
}

func (m *SteadyStateError) Value() float64 {
	n := len(m.outputs)
	if n == 0 {
		return 0
	}
	k := int(math.Ceil(float64(n) * m.tail))
	if k < 1 {
		k = 1
	}
	return math.Abs(m.setpoint - stat.Mean(m.outputs[n-k:], nil))
}

func (m *SteadyStateError) Reset() { m.reset() }

// IAE is the integral of |setpoint - output| over time, trapezoidal rule.
type IAE struct {
	trace
	setpoint float64
}

func NewIAE(setpoint float64) *IAE {
	return &IAE{setpoint: setpoint}
}

func (m *IAE) Name() string { return "iae" }

func (m *IAE) Observe(x dynamo.State, output, u float64, t float64) {
	m.observe(output, t)
}

func (m *IAE) Value() float64 {
	if len(m.times) < 2 {
		return 0
	}
	errs := make([]float64, len(m.outputs))
	for i, y := range m.outputs {
		errs[i] = math.Abs(m.setpoint - y)
	}
	return integrate.Trapezoidal(m.times, errs)
}

func (m *IAE) Reset() { m.reset() }

// Overshoot is the peak excursion past the setpoint as a percentage of the
// initial step size. A run that starts at the setpoint reports zero.
type Overshoot struct {
	trace
	setpoint float64
}

func NewOvershoot(setpoint float64) *Overshoot {
	return &Overshoot{setpoint: setpoint}
}

func (m *Overshoot) Name() string { return "overshoot" }

func (m *Overshoot) Observe(x dynamo.State, output, u float64, t float64) {
	m.observe(output, t)
}

func (m *Overshoot) Value() float64 {
	if len(m.outputs) == 0 {
		return 0
	}
	step := m.setpoint - m.outputs[0]
	if step == 0 {
		return 0
	}

	var excess float64
	if step > 0 {
		excess = floats.Max(m.outputs) - m.setpoint
	} else {
		excess = m.setpoint - floats.Min(m.outputs)
	}
	if excess <= 0 {
		return 0
	}
	return 100 * excess / math.Abs(step)
}

func (m *Overshoot) Reset() { m.reset() }

// SettlingTime is the first time after which the output stays within band
// (a fraction of the initial step) of the setpoint. It reports NotSettled
// when the output is still outside the band at the last sample.
type SettlingTime struct {
	trace
	setpoint float64
	band     float64
}

func NewSettlingTime(setpoint, band float64) *SettlingTime {
	if band <= 0 {
		band = DefaultSettlingBand
	}
	return &SettlingTime{setpoint: setpoint, band: band}
}

func (m *SettlingTime) Name() string { return "settling_time" }

func (m *SettlingTime) Observe(x dynamo.State, output, u float64, t float64) {
	m.observe(output, t)
}

func (m *SettlingTime) Value() float64 {
	n := len(m.outputs)
	if n == 0 {
		return NotSettled
	}

	scale := math.Abs(m.setpoint - m.outputs[0])
	if scale == 0 {
		scale = math.Abs(m.setpoint)
	}
	if scale == 0 {
		scale = 1
	}
	tol := m.band * scale

	last := -1
	for i, y := range m.outputs {
		if math.Abs(y-m.setpoint) > tol {
			last = i
		}
	}
	switch {
	case last == -1:
		return m.times[0]
	case last == n-1:
		return NotSettled
	default:
		return m.times[last+1]
	}
}

func (m *SettlingTime) Reset() { m.reset() }

// Tracking returns the standard set of closed-loop metrics for a setpoint.
func Tracking(setpoint float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewSteadyStateError(setpoint, DefaultTailFraction),
		NewIAE(setpoint),
		NewOvershoot(setpoint),
		NewSettlingTime(setpoint, DefaultSettlingBand),
	}
}
