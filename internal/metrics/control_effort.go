package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/loopsim/internal/dynamo"
)

// ControlEffort is the mean absolute command over the run.
type ControlEffort struct {
	name     string
	commands []float64
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x dynamo.State, output, u float64, t float64) {
	c.commands = append(c.commands, math.Abs(u))
}

func (c *ControlEffort) Value() float64 {
	if len(c.commands) == 0 {
		return 0
	}
	return stat.Mean(c.commands, nil)
}

func (c *ControlEffort) Reset() {
	c.commands = c.commands[:0]
}
