package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a non-physical plant or integrator parameter.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrInvalidTimestep indicates dt <= 0.
	ErrInvalidTimestep = errors.New("dynamo: timestep must be positive")

	// ErrInvalidDuration indicates a non-positive run duration.
	ErrInvalidDuration = errors.New("dynamo: duration must be positive")

	// ErrDiverging indicates NaN or Inf in the plant state during a run.
	ErrDiverging = errors.New("dynamo: simulation diverged (NaN or Inf in state)")

	// ErrDimensionMismatch indicates mismatched state/system dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// InvalidParameter builds an ErrInvalidParameter with the offending name and value.
func InvalidParameter(name string, value float64, why string) error {
	return fmt.Errorf("%w: %s=%g (%s)", ErrInvalidParameter, name, value, why)
}
