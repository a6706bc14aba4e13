// Package control provides command sources for the simulation loop.
//
// Both implement [dynamo.Controller]:
//
//   - [PID]: Proportional-Integral-Derivative feedback (closed loop)
//   - [Constant]: fixed command (open loop)
//
// # Usage
//
//	pid, err := control.NewPID(control.Gains{Kp: 1.0, Ki: 0.1, Kd: 0.01, Setpoint: 200})
//	sim := dynamo.New(plant, integ, pid)
//	// Controller.Compute is called once per tick with the measured output
//
// The PID applies no anti-windup and no derivative filtering. Output
// clamping is available through [Limits] and is off by default.
package control
