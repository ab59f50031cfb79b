// Package analysis looks at rollouts in bulk and in the phase plane.
//
//   - [SweepTheta0]: rollouts across initial disturbances, with mean and
//     standard deviation of each metric
//   - [SweepGain]: rollouts across one gain with the others fixed
//   - [PhasePortrait], [ScatterASCII]: theta/omega trajectory for the terminal
//   - [SettlingTime]: when the error enters and stays inside a band
//
// # Example
//
//	res, err := analysis.SweepTheta0(ctx, sim.DefaultRolloutConfig(),
//		analysis.Linspace(0.5, 5, 10), control.Heuristic)
package analysis
