package opt

import (
	"math"
	"testing"
)

func sumSquares(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func TestMayflyFindsMinimum(t *testing.T) {
	lower := []float64{-10, -10, -10}
	upper := []float64{10, 10, 10}

	best, cost := NewMayfly(100, 20, 42).Run(sumSquares, lower, upper, 3)

	if len(best) != 3 {
		t.Fatalf("got %d parameters, want 3", len(best))
	}
	if cost > 0.1 {
		t.Errorf("cost = %g, want near 0", cost)
	}
	for i, v := range best {
		if math.Abs(v) > 1 {
			t.Errorf("parameter %d = %g, want near 0", i, v)
		}
	}
}

func TestMayflyStaysInBounds(t *testing.T) {
	lower := []float64{-2, -2, -2}
	upper := []float64{2, 2, 2}

	best, _ := NewMayfly(60, 24, 7).Run(func(x []float64) float64 {
		// Push the optimum onto the boundary.
		return sumSquares([]float64{x[0] - 5, x[1], x[2]})
	}, lower, upper, 3)

	for i, v := range best {
		if v < lower[i]-1e-9 || v > upper[i]+1e-9 {
			t.Errorf("parameter %d = %g escapes [%g, %g]", i, v, lower[i], upper[i])
		}
	}
}

func TestMayflyDeterministic(t *testing.T) {
	lower := []float64{-5, -5}
	upper := []float64{5, 5}

	_, cost1 := NewMayfly(50, 20, 123).Run(sumSquares, lower, upper, 2)
	_, cost2 := NewMayfly(50, 20, 123).Run(sumSquares, lower, upper, 2)

	if cost1 != cost2 {
		t.Errorf("same seed gave costs %g and %g", cost1, cost2)
	}
}
