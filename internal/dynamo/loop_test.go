package dynamo_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/integrators"
	"github.com/san-kum/loopsim/internal/physics"
)

func thermal(t *testing.T, k, ambient float64) *physics.Thermal {
	t.Helper()
	p, err := physics.NewThermal(physics.ThermalParams{K: k, Ambient: ambient, Gain: 1})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func springMass(t *testing.T, m, k, b float64) *physics.SpringMassDamper {
	t.Helper()
	p, err := physics.NewSpringMassDamper(physics.SpringMassParams{Mass: m, Stiffness: k, Damping: b})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func pid(t *testing.T, g control.Gains) *control.PID {
	t.Helper()
	c, err := control.NewPID(g)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func run(t *testing.T, dyn dynamo.System, integ dynamo.Integrator, ctrl dynamo.Controller, x0 dynamo.State, dt, duration float64) *dynamo.Result {
	t.Helper()
	sim := dynamo.New(dyn, integ, ctrl)
	res, err := sim.Run(context.Background(), x0, dynamo.Config{Dt: dt, Duration: duration, ValidateState: true})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return res
}

func TestOpenLoopThermalEquilibrium(t *testing.T) {
	plant := thermal(t, 0.1, 20)
	if eq, _ := plant.Equilibrium(30); math.Abs(eq-320) > 1e-9 {
		t.Errorf("expected equilibrium 320, got %v", eq)
	}

	res := run(t, plant, integrators.NewEuler(), control.NewConstant(30), dynamo.State{20}, 0.1, 200)

	if math.Abs(res.Final[0]-320) > 1 {
		t.Errorf("expected 320 ± 1, got %v", res.Final[0])
	}
	for i, u := range res.Commands {
		if u != 30 {
			t.Fatalf("command %d: expected 30, got %v", i, u)
		}
	}
}

func TestOpenLoopEulerMatchesSubStep(t *testing.T) {
	sub, err := integrators.NewSubStep(integrators.NewRK4(), 10)
	if err != nil {
		t.Fatal(err)
	}

	euler := run(t, thermal(t, 0.1, 20), integrators.NewEuler(), control.NewConstant(30), dynamo.State{20}, 0.1, 30)
	fine := run(t, thermal(t, 0.1, 20), sub, control.NewConstant(30), dynamo.State{20}, 0.1, 30)

	if euler.Len() != fine.Len() {
		t.Fatalf("record lengths differ: %d vs %d", euler.Len(), fine.Len())
	}
	tol := 0.1 * 300 * 0.1
	for i := range euler.Outputs {
		if math.Abs(euler.Outputs[i]-fine.Outputs[i]) > tol {
			t.Fatalf("sample %d: euler %v vs substep %v", i, euler.Outputs[i], fine.Outputs[i])
		}
	}
}

func TestOpenLoopSpringMassEquilibrium(t *testing.T) {
	res := run(t, springMass(t, 1, 20, 5), integrators.NewEuler(), control.NewConstant(10), dynamo.State{0, 0}, 0.01, 5)

	if res.StepsTaken != 500 {
		t.Errorf("expected 500 steps, got %d", res.StepsTaken)
	}
	if math.Abs(res.Final[0]-0.5) > 0.02 {
		t.Errorf("expected position 0.5 ± 0.02, got %v", res.Final[0])
	}
	if math.Abs(res.Final[1]) > 0.02 {
		t.Errorf("expected velocity 0 ± 0.02, got %v", res.Final[1])
	}
	if len(res.States[0]) != 2 {
		t.Errorf("expected both state components per sample, got %v", res.States[0])
	}
}

func TestOpenLoopSpringMassCoarseSubStep(t *testing.T) {
	sub, err := integrators.NewSubStep(nil, 10)
	if err != nil {
		t.Fatal(err)
	}

	res := run(t, springMass(t, 1, 20, 5), sub, control.NewConstant(10), dynamo.State{0, 0}, 0.05, 5)

	if res.StepsTaken != 100 {
		t.Errorf("expected 100 steps, got %d", res.StepsTaken)
	}
	if math.Abs(res.Final[0]-0.5) > 0.02 || math.Abs(res.Final[1]) > 0.02 {
		t.Errorf("expected (0.5, 0), got %v", res.Final)
	}
}

func TestOpenLoopMotorIntegratesCommand(t *testing.T) {
	motor, err := physics.NewMotor(physics.MotorParams{Gain: 1})
	if err != nil {
		t.Fatal(err)
	}

	res := run(t, motor, integrators.NewEuler(), control.NewConstant(2), dynamo.State{0}, 0.1, 10)

	if math.Abs(res.Final[0]-20) > 1e-9 {
		t.Errorf("expected speed 20, got %v", res.Final[0])
	}
	if _, ok := motor.Equilibrium(2); ok {
		t.Error("motor without drag should have no equilibrium")
	}
}

func TestClosedLoopThermalReachesSetpoint(t *testing.T) {
	ctrl := pid(t, control.Gains{Kp: 1.0, Ki: 0.1, Kd: 0.01, Setpoint: 200})
	res := run(t, thermal(t, 0.1, 20), integrators.NewEuler(), ctrl, dynamo.State{20}, 0.1, 10)

	if res.Len() != 100 {
		t.Fatalf("expected 100 samples, got %d", res.Len())
	}
	for i, y := range res.Tail(0.1) {
		if math.Abs(y-200) > 5 {
			t.Errorf("tail sample %d: expected 200 ± 5, got %v", i, y)
		}
	}
}

func TestClosedLoopProportionalOffset(t *testing.T) {
	const kp, k, ambient, setpoint = 2.0, 0.1, 20.0, 100.0

	ctrl := pid(t, control.Gains{Kp: kp, Setpoint: setpoint})
	res := run(t, thermal(t, k, ambient), integrators.NewEuler(), ctrl, dynamo.State{ambient}, 0.1, 100)

	gap := setpoint - res.Final[0]
	expected := k * (setpoint - ambient) / (kp + k)

	if gap <= 1 {
		t.Errorf("expected a steady-state gap above 1, got %v", gap)
	}
	if math.Abs(gap-expected) > 0.01 {
		t.Errorf("expected gap %v, got %v", expected, gap)
	}
}

func TestClosedLoopIntegralRemovesOffset(t *testing.T) {
	ctrl := pid(t, control.Gains{Kp: 2, Ki: 0.05, Setpoint: 100})
	res := run(t, thermal(t, 0.1, 20), integrators.NewEuler(), ctrl, dynamo.State{20}, 0.1, 300)

	if gap := math.Abs(100 - res.Final[0]); gap >= 0.01 {
		t.Errorf("expected offset below 0.01, got %v", gap)
	}
}

func TestClosedLoopLargerIntegralGainConvergesFaster(t *testing.T) {
	gapAfter := func(ki float64) float64 {
		ctrl := pid(t, control.Gains{Kp: 2, Ki: ki, Setpoint: 100})
		res := run(t, thermal(t, 0.1, 20), integrators.NewEuler(), ctrl, dynamo.State{20}, 0.1, 20)
		return math.Abs(100 - res.Final[0])
	}

	if fast, slow := gapAfter(0.2), gapAfter(0.05); fast >= slow {
		t.Errorf("ki=0.2 gap %v should be below ki=0.05 gap %v", fast, slow)
	}
}

func TestClosedLoopSpringMassHoldsSetpoint(t *testing.T) {
	ctrl := pid(t, control.Gains{Kp: 50, Ki: 20, Kd: 5, Setpoint: 1})
	res := run(t, springMass(t, 1, 20, 5), integrators.NewRK4(), ctrl, dynamo.State{0, 0}, 0.01, 30)

	if math.Abs(res.Final[0]-1) > 0.01 || math.Abs(res.Final[1]) > 0.01 {
		t.Errorf("expected (1, 0), got %v", res.Final)
	}
}

func TestClosedLoopReplayIsBitIdentical(t *testing.T) {
	once := func() *dynamo.Result {
		ctrl := pid(t, control.Gains{Kp: 1.0, Ki: 0.1, Kd: 0.01, Setpoint: 200})
		return run(t, thermal(t, 0.1, 20), integrators.NewRK4(), ctrl, dynamo.State{20}, 0.1, 10)
	}

	a, b := once(), once()
	for i := range a.Outputs {
		if a.Outputs[i] != b.Outputs[i] || a.Commands[i] != b.Commands[i] {
			t.Fatalf("sample %d differs between replays", i)
		}
	}
}

func TestClosedLoopDivergenceKeepsPartialRecord(t *testing.T) {
	stiff := springMass(t, 1, 1e6, 0)
	sim := dynamo.New(stiff, integrators.NewEuler(), control.NewConstant(1))

	res, err := sim.Run(context.Background(), dynamo.State{1, 0}, dynamo.Config{Dt: 0.1, Duration: 1000, ValidateState: true})

	if !errors.Is(err, dynamo.ErrDiverging) {
		t.Fatalf("expected ErrDiverging, got %v", err)
	}
	if !res.Diverged {
		t.Error("expected Diverged to be set")
	}
	if res.Len() >= 10000 {
		t.Errorf("expected an early halt, got %d samples", res.Len())
	}
	if !res.Final.IsValid() {
		t.Errorf("final state should be the last finite state, got %v", res.Final)
	}
}

func buildThermalPID(gains []float64) dynamo.Builder {
	return func(i int) (dynamo.RunSpec, error) {
		ctrl, err := control.NewPID(control.Gains{Kp: gains[i], Setpoint: 100})
		if err != nil {
			return dynamo.RunSpec{}, err
		}
		plant, err := physics.NewThermal(physics.ThermalParams{K: 0.1, Ambient: 20, Gain: 1})
		if err != nil {
			return dynamo.RunSpec{}, err
		}
		return dynamo.RunSpec{
			Sim:    dynamo.New(plant, integrators.NewEuler(), ctrl),
			X0:     dynamo.State{20},
			Config: dynamo.Config{Dt: 0.1, Duration: 100},
		}, nil
	}
}

func TestSweepKeepsOrder(t *testing.T) {
	gains := []float64{0.5, 1, 2, 4}
	build := buildThermalPID(gains)

	results, err := dynamo.NewSweep(len(gains)).WithWorkers(2).Run(context.Background(), build)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(gains) {
		t.Fatalf("expected %d results, got %d", len(gains), len(results))
	}

	for i, kp := range gains {
		serial, err := build(i)
		if err != nil {
			t.Fatal(err)
		}
		want, err := serial.Sim.Run(context.Background(), serial.X0, serial.Config)
		if err != nil {
			t.Fatal(err)
		}
		for j := range want.Outputs {
			if results[i].Outputs[j] != want.Outputs[j] {
				t.Fatalf("kp=%v: sample %d differs from serial run", kp, j)
			}
		}
	}

	// Larger proportional gain leaves a smaller offset.
	for i := 1; i < len(results); i++ {
		if results[i].Final[0] <= results[i-1].Final[0] {
			t.Errorf("kp=%v should end above kp=%v", gains[i], gains[i-1])
		}
	}
}

func TestSweepErrors(t *testing.T) {
	failing := func(i int) (dynamo.RunSpec, error) {
		_, err := physics.NewThermal(physics.ThermalParams{K: -1})
		return dynamo.RunSpec{}, err
	}

	tests := []struct {
		name  string
		runs  int
		build dynamo.Builder
	}{
		{"build error", 3, failing},
		{"negative run count", -1, buildThermalPID(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := dynamo.NewSweep(tt.runs).Run(context.Background(), tt.build)
			if !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
			if results != nil {
				t.Error("expected no results")
			}
		})
	}
}

func TestSweepZeroRuns(t *testing.T) {
	results, err := dynamo.NewSweep(0).Run(context.Background(), buildThermalPID(nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
