// Package analysis turns simulation records into phase portraits and
// crossing times.
//
//   - [FromResult]: position/velocity (or any two state components) trajectory
//   - [PhasePortrait.ASCII]: terminal rendering of a portrait
//   - [UpCrossings]: interpolated times at which a signal rises through a level
//
// A lightly damped spring-mass-damper spirals into its equilibrium:
//
//	p, err := analysis.FromResult(result, 0, 1)
//	fmt.Print(p.ASCII(60, 20))
package analysis
