package observe

import (
	"testing"

	"rewriteengine/internal/grid"
)

func buildLineGrid(t *testing.T) (*grid.Grid, int, int) {
	g, err := grid.Load(5, 1, 1, []grid.AlphabetEntry{{Symbol: 'B'}, {Symbol: 'W'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	bv, _ := g.ValueOf('B')
	wv, _ := g.ValueOf('W')
	return g, bv, wv
}

func TestFutureSetDefaultsToCurrentValueWhenUnregistered(t *testing.T) {
	g, bv, _ := buildLineGrid(t)
	future, ok := FutureSet(g, map[int]grid.Mask{})
	if !ok {
		t.Fatalf("expected feasible future set")
	}
	want := grid.BitMask(bv)
	for i := range future {
		if future[i] != want {
			t.Fatalf("cell %d: expected singleton mask pinning current value, got %v", i, future[i])
		}
	}
}

func TestFutureSetUsesRegisteredObservation(t *testing.T) {
	g, bv, wv := buildLineGrid(t)
	future, ok := FutureSet(g, map[int]grid.Mask{bv: grid.BitMask(wv)})
	if !ok {
		t.Fatalf("expected feasible future set")
	}
	for i := range future {
		if !future[i].Test(wv) {
			t.Fatalf("cell %d: expected observation's To mask, got %v", i, future[i])
		}
	}
}

func TestFutureSetInfeasibleOnEmptyMask(t *testing.T) {
	g, bv, _ := buildLineGrid(t)
	var empty grid.Mask
	_, ok := FutureSet(g, map[int]grid.Mask{bv: empty})
	if ok {
		t.Fatalf("expected infeasible future set when a registered To mask is empty")
	}
}

func TestSatisfiedChecksEveryCell(t *testing.T) {
	g, bv, wv := buildLineGrid(t)
	future := make([]grid.Mask, 5)
	for i := range future {
		future[i] = grid.BitMask(bv)
	}
	state := g.State()
	if !Satisfied(state, future) {
		t.Fatalf("expected all-B state to satisfy all-B future")
	}
	state2 := append([]uint8(nil), state...)
	state2[2] = uint8(wv)
	if Satisfied(state2, future) {
		t.Fatalf("expected mismatched cell to fail Satisfied")
	}
}
