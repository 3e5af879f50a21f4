// Package opt wraps derivative-free optimizers behind a small interface so
// the detection pipeline can polish circle poses without caring which
// algorithm runs underneath.
package opt

// Optimizer minimizes a black-box objective over a bounded parameter box.
type Optimizer interface {
	// Run minimizes eval over the box [lower, upper] in dim dimensions and
	// returns the best parameter vector found with its cost.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}
