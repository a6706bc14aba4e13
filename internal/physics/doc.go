// Package physics provides the plant models driven by the control loop.
//
// Each model implements [dynamo.System] and validates its parameters at
// construction, so a constructed plant is always physically meaningful:
//
//   - [Thermal]: heat-loss model, command is a heater flux
//   - [ExtendedThermal]: command is a heater temperature
//   - [Motor]: speed model, optional linear drag
//   - [SpringMassDamper]: second-order position/velocity model
//
// Plants with a closed-form steady state also implement [dynamo.Equilibrium]:
//
//	plant, _ := physics.New(physics.KindThermal, map[string]float64{"k": 0.1})
//	if eq, ok := plant.(dynamo.Equilibrium); ok {
//	    target, _ := eq.Equilibrium(30)
//	}
package physics
