package physics

import (
	"math"

	"github.com/san-kum/loopsim/internal/dynamo"
)

func requirePositive(name string, v float64) error {
	if err := requireFinite(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return dynamo.InvalidParameter(name, v, "must be positive")
	}
	return nil
}

func requireNonNegative(name string, v float64) error {
	if err := requireFinite(name, v); err != nil {
		return err
	}
	if v < 0 {
		return dynamo.InvalidParameter(name, v, "must not be negative")
	}
	return nil
}

func requireFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return dynamo.InvalidParameter(name, v, "must be finite")
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
