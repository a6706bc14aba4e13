// Package dynamo provides the simulation core for single-input control loops.
//
// The package defines the interfaces and types shared by plants, integrators
// and controllers:
//
//   - [State]: plant state vector
//   - [System]: plant dynamics (dX/dt = f(X, u, t)) plus its observable output
//   - [Integrator]: fixed-step numerical integrator
//   - [Controller]: command source, either a feedback law or a constant
//   - [Simulator]: the driver that couples them and records a [Result]
//
// # Example
//
//	plant, _ := physics.NewThermal(physics.ThermalParams{K: 0.1, Ambient: 20, Gain: 1})
//	pid, _ := control.NewPID(control.Gains{Kp: 1, Ki: 0.1, Kd: 0.01, Setpoint: 200})
//	sim := dynamo.New(plant, integrators.NewEuler(), pid)
//	result, _ := sim.Run(ctx, dynamo.State{20}, dynamo.Config{Dt: 0.1, Duration: 10})
//
// # Thread Safety
//
// Simulator instances, controllers and integrators are NOT thread-safe and
// carry per-run state. For parallel runs use [Sweep], which builds a fresh
// set of instances for every run.
package dynamo
