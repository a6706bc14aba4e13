package control

import (
	"fmt"
	"math"

	"github.com/san-kum/loopsim/internal/dynamo"
)

// Limits bounds the command returned by the controller. The integral is not
// affected, so windup still happens under sustained error.
type Limits struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (l Limits) clamp(v float64) float64 {
	return math.Max(l.Min, math.Min(l.Max, v))
}

type Gains struct {
	Kp       float64 `yaml:"kp"`
	Ki       float64 `yaml:"ki"`
	Kd       float64 `yaml:"kd"`
	Setpoint float64 `yaml:"setpoint"`
	Offset   float64 `yaml:"offset"`
	Limits   *Limits `yaml:"limits,omitempty"`
}

func (g Gains) Validate() error {
	for name, v := range map[string]float64{
		"kp": g.Kp, "ki": g.Ki, "kd": g.Kd, "setpoint": g.Setpoint, "offset": g.Offset,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return dynamo.InvalidParameter(name, v, "must be finite")
		}
	}
	if g.Limits != nil && g.Limits.Min > g.Limits.Max {
		return fmt.Errorf("%w: limits min %g > max %g", dynamo.ErrInvalidParameter, g.Limits.Min, g.Limits.Max)
	}
	return nil
}

// PID is a textbook positional PID. Integral and previous error start at
// zero and are only ever reset by constructing a new controller.
type PID struct {
	gains    Gains
	integral float64
	prevErr  float64
}

func NewPID(g Gains) (*PID, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &PID{gains: g}, nil
}

func (p *PID) Compute(measured float64, dt float64) (float64, error) {
	if dt <= 0 {
		return 0, fmt.Errorf("%w: got %g", dynamo.ErrInvalidTimestep, dt)
	}

	err := p.gains.Setpoint - measured

	proportional := p.gains.Kp * err

	p.integral += err * dt
	integralTerm := p.gains.Ki * p.integral

	derivative := (err - p.prevErr) / dt
	derivativeTerm := p.gains.Kd * derivative

	u := p.gains.Offset + proportional + integralTerm + derivativeTerm
	p.prevErr = err

	if p.gains.Limits != nil {
		u = p.gains.Limits.clamp(u)
	}
	return u, nil
}

// Integral returns the accumulated sum of error*dt.
func (p *PID) Integral() float64 { return p.integral }

func (p *PID) PrevError() float64 { return p.prevErr }

func (p *PID) Gains() Gains { return p.gains }

// GetParams returns the gains for display.
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":       p.gains.Kp,
		"Ki":       p.gains.Ki,
		"Kd":       p.gains.Kd,
		"Setpoint": p.gains.Setpoint,
		"Offset":   p.gains.Offset,
	}
}
