package control

// Constant is the open-loop command source: it ignores the measurement.
type Constant struct {
	u float64
}

func NewConstant(u float64) *Constant {
	return &Constant{u: u}
}

func (c *Constant) Compute(measured float64, dt float64) (float64, error) {
	return c.u, nil
}

func (c *Constant) GetParams() map[string]float64 {
	return map[string]float64{"u": c.u}
}
