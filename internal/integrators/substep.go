package integrators

import (
	"fmt"

	"github.com/san-kum/loopsim/internal/dynamo"
)

const DefaultSubsteps = 10

// SubStep integrates a macro-interval [t, t+dt] with the command held
// constant, taking n inner steps of dt/n and returning only the end state.
// It models a controller that updates less often than the physics is
// resolved.
type SubStep struct {
	inner dynamo.Integrator
	n     int
}

// NewSubStep wraps inner; a nil inner defaults to RK4.
func NewSubStep(inner dynamo.Integrator, n int) (*SubStep, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: substeps=%d (must be at least 1)", dynamo.ErrInvalidParameter, n)
	}
	if inner == nil {
		inner = NewRK4()
	}
	return &SubStep{inner: inner, n: n}, nil
}

func (s *SubStep) Substeps() int { return s.n }

func (s *SubStep) Step(dyn dynamo.System, x dynamo.State, u float64, t, dt float64) dynamo.State {
	h := dt / float64(s.n)
	cur := x
	for i := 0; i < s.n; i++ {
		cur = s.inner.Step(dyn, cur, u, t+float64(i)*h, h)
	}
	return cur
}
