package observe

import (
	"testing"

	"rewriteengine/internal/grid"
	"rewriteengine/internal/rule"
	"rewriteengine/internal/symmetry"
)

// buildBtoWRule builds a single-cell "B -> W" rule with no symmetry
// expansion, against a 5-cell line grid.
func buildBtoWRule(t *testing.T) (*grid.Grid, []*rule.Rule, int, int) {
	g, err := grid.Load(5, 1, 1, []grid.AlphabetEntry{{Symbol: 'B'}, {Symbol: 'W'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	bv, _ := g.ValueOf('B')
	wv, _ := g.ValueOf('W')

	triv, err := symmetry.ParseString(true, "", nil)
	if err != nil {
		t.Fatalf("parse string: %v", err)
	}
	rules, err := rule.Build(g, rule.Spec{In: "B", Out: "W"}, triv)
	if err != nil {
		t.Fatalf("build rule: %v", err)
	}
	return g, rules, bv, wv
}

func TestBackwardPotentialsDecreaseTowardFutureSet(t *testing.T) {
	g, rules, bv, wv := buildBtoWRule(t)

	future := make([]grid.Mask, 5)
	for i := range future {
		future[i] = grid.BitMask(wv)
	}

	pot := ComputeBackwardPotentials(g, rules, future, 0)
	for i := 0; i < 5; i++ {
		if d := pot.At(i, wv); d != 0 {
			t.Fatalf("cell %d: expected potential 0 for already-future value W, got %d", i, d)
		}
		if d := pot.At(i, bv); d != 1 {
			t.Fatalf("cell %d: expected potential 1 for B via one rule application, got %d", i, d)
		}
	}
}

func TestMinToFutureReturnsMinusOneWhenUnreachable(t *testing.T) {
	g, _, bv, _ := buildBtoWRule(t)
	_ = bv

	// A future set with no rules at all: nothing can ever change, so any
	// future that doesn't match the current value stays at -1.
	empty := make([]grid.Mask, 5)
	for i := range empty {
		empty[i] = grid.Mask{} // impossible to satisfy
	}
	pot := ComputeBackwardPotentials(g, nil, empty, 0)
	for i := 0; i < 5; i++ {
		if d := pot.MinToFuture(i, grid.BitMask(1)); d != -1 {
			t.Fatalf("cell %d: expected unreachable (-1), got %d", i, d)
		}
	}
}
