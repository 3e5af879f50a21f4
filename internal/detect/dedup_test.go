package detect

import (
	"math/rand"
	"sort"
	"testing"
)

func TestDeduplicateKeepsStrongest(t *testing.T) {
	in := []Circle{
		{X: 100, Y: 100, R: 30, Coverage: 0.9},
		{X: 104, Y: 103, R: 31, Coverage: 0.5},
		{X: 300, Y: 300, R: 30, Coverage: 0.8},
	}
	out := Deduplicate(in, 10)
	if len(out) != 2 {
		t.Fatalf("kept %d circles, want 2", len(out))
	}
	if out[0].Coverage != 0.9 || out[1].Coverage != 0.8 {
		t.Errorf("kept coverages %g, %g; want 0.9, 0.8 in input order", out[0].Coverage, out[1].Coverage)
	}
}

func TestDeduplicateChain(t *testing.T) {
	// A-B and B-C are within range, A-C is not. The strongest end of the
	// chain claims its neighbor; the far end survives.
	ends := Deduplicate([]Circle{
		{X: 0, Y: 0, Coverage: 0.9},
		{X: 8, Y: 0, Coverage: 0.8},
		{X: 16, Y: 0, Coverage: 0.7},
	}, 10)
	if len(ends) != 2 || ends[0].X != 0 || ends[1].X != 16 {
		t.Errorf("chain with strong end kept %v, want x=0 and x=16", ends)
	}

	// With the middle strongest, it claims both ends.
	mid := Deduplicate([]Circle{
		{X: 0, Y: 0, Coverage: 0.8},
		{X: 8, Y: 0, Coverage: 0.9},
		{X: 16, Y: 0, Coverage: 0.7},
	}, 10)
	if len(mid) != 1 || mid[0].X != 8 {
		t.Errorf("chain with strong middle kept %v, want only x=8", mid)
	}
}

func TestDeduplicateEqualCoverage(t *testing.T) {
	out := Deduplicate([]Circle{
		{X: 50, Y: 50, Coverage: 0.6},
		{X: 55, Y: 50, Coverage: 0.6},
	}, 10)
	if len(out) != 1 || out[0].X != 50 {
		t.Errorf("equal coverage kept %v, want the earlier detection", out)
	}
}

func TestDeduplicateDisabled(t *testing.T) {
	in := []Circle{
		{X: 0, Y: 0, Coverage: 0.5},
		{X: 1, Y: 0, Coverage: 0.4},
	}
	if out := Deduplicate(in, 0); len(out) != 2 {
		t.Errorf("dist 0 removed circles: %v", out)
	}
	if out := Deduplicate(in[:1], 10); len(out) != 1 {
		t.Errorf("single circle removed: %v", out)
	}
}

// naiveDeduplicate is the quadratic reference: greedy claims in stable
// coverage order, survivors in input order.
func naiveDeduplicate(circles []Circle, dist float64) []Circle {
	order := make([]int, len(circles))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return circles[order[a]].Coverage > circles[order[b]].Coverage
	})

	claimed := make([]bool, len(circles))
	var kept []int
	for _, i := range order {
		if claimed[i] {
			continue
		}
		kept = append(kept, i)
		for j := range circles {
			if circles[i].Dist(circles[j]) <= dist {
				claimed[j] = true
			}
		}
	}
	sort.Ints(kept)
	out := make([]Circle, len(kept))
	for k, i := range kept {
		out[k] = circles[i]
	}
	return out
}

func TestDeduplicateMatchesNaive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	var circles []Circle
	for c := 0; c < 60; c++ {
		cx := rng.Float64() * 2000
		cy := rng.Float64() * 2000
		for k := 0; k < 5; k++ {
			circles = append(circles, Circle{
				X:        cx + (rng.Float64()-0.5)*30,
				Y:        cy + (rng.Float64()-0.5)*30,
				R:        20 + rng.Float64()*10,
				Coverage: rng.Float64(),
			})
		}
	}

	const dist = 20
	got := Deduplicate(circles, dist)
	want := naiveDeduplicate(circles, dist)

	if len(got) != len(want) {
		t.Fatalf("kept %d circles, naive keeps %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("survivor %d = %+v, naive has %+v", i, got[i], want[i])
		}
	}
}
