package opt

import (
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter runs the mayfly swarm optimizer. Population size must be at
// least 20; the library rejects smaller swarms.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly returns a mayfly optimizer with a fixed iteration and
// population budget. The seed makes runs reproducible.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run minimizes eval within the bounds. The library only supports one
// scalar bound pair for all dimensions, so the first entries of lower and
// upper apply across the whole box.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = lower[0]
	config.UpperBound = upper[0]
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		// Degenerate configs fall back to the box center.
		zero := make([]float64, dim)
		return zero, eval(zero)
	}
	return result.GlobalBest.Position, result.GlobalBest.Cost
}
