package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/loopsim/internal/dynamo"
)

type decay struct{ rate float64 }

func (d *decay) StateDim() int                  { return 1 }
func (d *decay) Output(x dynamo.State) float64 { return x[0] }
func (d *decay) Derive(x dynamo.State, u float64, t float64) dynamo.State {
	return dynamo.State{-d.rate*x[0] + u}
}

func TestEulerSingleStep(t *testing.T) {
	x := NewEuler().Step(&decay{rate: 2}, dynamo.State{3}, 1, 0, 0.1)

	want := 3 + 0.1*(-2*3+1)
	if x[0] != want {
		t.Errorf("expected %v, got %v", want, x[0])
	}
}

func TestEulerFirstOrderError(t *testing.T) {
	dyn := &decay{rate: 1}
	exact := math.Exp(-1)

	errAt := func(dt float64) float64 {
		integ := NewEuler()
		x := dynamo.State{1}
		n := int(math.Round(1 / dt))
		for i := 0; i < n; i++ {
			x = integ.Step(dyn, x, 0, float64(i)*dt, dt)
		}
		return math.Abs(x[0] - exact)
	}

	coarse := errAt(0.01)
	fine := errAt(0.001)

	ratio := coarse / fine
	if ratio < 8 || ratio > 12 {
		t.Errorf("error should shrink ~10x with 10x smaller dt, got ratio %.2f", ratio)
	}
}

func TestSubStepMatchesInnerSteps(t *testing.T) {
	dyn := &decay{rate: 0.7}
	sub, err := NewSubStep(NewEuler(), 10)
	if err != nil {
		t.Fatal(err)
	}

	dt := 0.1
	h := dt / 10

	direct := dynamo.State{5}
	for i := 0; i < 10; i++ {
		direct = NewEuler().Step(dyn, direct, 2, float64(i)*h, h)
	}

	got := sub.Step(dyn, dynamo.State{5}, 2, 0, dt)
	if got[0] != direct[0] {
		t.Errorf("sub-stepped result %v differs from %v", got[0], direct[0])
	}
}

func TestSubStepMoreAccurateThanEuler(t *testing.T) {
	dyn := &decay{rate: 3}
	dt := 0.2
	exact := math.Exp(-3 * dt)

	sub, err := NewSubStep(nil, DefaultSubsteps)
	if err != nil {
		t.Fatal(err)
	}

	coarse := NewEuler().Step(dyn, dynamo.State{1}, 0, 0, dt)
	fine := sub.Step(dyn, dynamo.State{1}, 0, 0, dt)

	if math.Abs(fine[0]-exact) >= math.Abs(coarse[0]-exact) {
		t.Errorf("sub-stepped error %e should beat euler error %e",
			math.Abs(fine[0]-exact), math.Abs(coarse[0]-exact))
	}
	if math.Abs(fine[0]-exact) > 1e-6 {
		t.Errorf("sub-stepped rk4 error too large: %e", math.Abs(fine[0]-exact))
	}
}

func TestSubStepInvalid(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := NewSubStep(nil, n); err == nil {
			t.Errorf("expected error for %d substeps", n)
		}
	}
}

func TestDeterministic(t *testing.T) {
	integs := map[string]func() dynamo.Integrator{
		"euler":   func() dynamo.Integrator { return NewEuler() },
		"rk4":     func() dynamo.Integrator { return NewRK4() },
		"substep": func() dynamo.Integrator {
			sub, _ := NewSubStep(nil, 7)
			return sub
		},
	}

	for name, mk := range integs {
		a, b := dynamo.State{1, 0}, dynamo.State{1, 0}
		ia, ib := mk(), mk()
		for i := 0; i < 200; i++ {
			a = ia.Step(&harmonicOscillator{}, a, 0.3, float64(i)*0.05, 0.05)
			b = ib.Step(&harmonicOscillator{}, b, 0.3, float64(i)*0.05, 0.05)
		}
		if a[0] != b[0] || a[1] != b[1] {
			t.Errorf("%s: runs differ: %v vs %v", name, a, b)
		}
	}
}
