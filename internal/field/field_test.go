package field

import (
	"testing"

	"rewriteengine/internal/grid"
)

func TestComputeDistanceFromZeroSource(t *testing.T) {
	g, err := grid.Load(5, 1, 1, []grid.AlphabetEntry{{Symbol: 'A'}, {Symbol: 'Z'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	zv, _ := g.ValueOf('Z')
	g.BeginTurn()
	g.Set(0, 0, 0, uint8(zv))

	f := &Field{Zero: zv}
	pot, ok := f.Compute(g)
	if !ok {
		t.Fatalf("non-essential field should not fail")
	}
	for x := 0; x < 5; x++ {
		if got := pot.At(g, x, 0, 0); got != int32(x) {
			t.Fatalf("expected distance %d at x=%d, got %d", x, x, got)
		}
	}
}

func TestEssentialFieldFailsWhenUnreached(t *testing.T) {
	g, err := grid.Load(3, 1, 1, []grid.AlphabetEntry{{Symbol: 'A'}, {Symbol: 'Z'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	zv, _ := g.ValueOf('Z')
	f := &Field{Zero: zv, Essential: true}
	_, ok := f.Compute(g)
	if ok {
		t.Fatalf("expected essential field with no source present to fail")
	}
}

func TestSubstrateBlocksPropagation(t *testing.T) {
	g, err := grid.Load(3, 1, 1, []grid.AlphabetEntry{{Symbol: 'A'}, {Symbol: 'Z'}, {Symbol: 'X'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	zv, _ := g.ValueOf('Z')
	av, _ := g.ValueOf('A')
	xv, _ := g.ValueOf('X')
	g.BeginTurn()
	g.Set(0, 0, 0, uint8(zv))
	g.Set(1, 0, 0, uint8(xv)) // blocks propagation to x=2

	substrate := grid.BitMask(av)
	f := &Field{Zero: zv, Substrate: substrate}
	pot, _ := f.Compute(g)
	if pot.At(g, 2, 0, 0) != -1 {
		t.Fatalf("expected x=2 unreachable behind blocking cell, got %d", pot.At(g, 2, 0, 0))
	}
}

func TestOneValueSeedsSecondaryFrontierAtDistanceOne(t *testing.T) {
	g, err := grid.Load(5, 1, 1, []grid.AlphabetEntry{{Symbol: 'A'}, {Symbol: 'Z'}, {Symbol: 'O'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	zv, _ := g.ValueOf('Z')
	ov, _ := g.ValueOf('O')
	g.BeginTurn()
	g.Set(4, 0, 0, uint8(ov))

	f := &Field{Zero: zv, One: ov, HasOne: true}
	pot, _ := f.Compute(g)
	if pot.At(g, 4, 0, 0) != 1 {
		t.Fatalf("expected One-valued cell itself to have potential 1, got %d", pot.At(g, 4, 0, 0))
	}
	if pot.At(g, 3, 0, 0) != 2 {
		t.Fatalf("expected neighbor of One cell to have potential 2, got %d", pot.At(g, 3, 0, 0))
	}
}
