package observe

import (
	"testing"

	"rewriteengine/internal/grid"
)

func TestSearchFindsTrajectoryToAllWhite(t *testing.T) {
	g, rules, bv, wv := buildBtoWRule(t)
	_ = bv

	future := make([]grid.Mask, 5)
	for i := range future {
		future[i] = grid.BitMask(wv)
	}
	pot := ComputeBackwardPotentials(g, rules, future, 0)

	s := NewSearch(g, rules, future, pot, 1.0, 0, 16)
	for {
		done, _ := s.Step()
		if done {
			break
		}
	}

	traj := s.Result()
	if len(traj) == 0 {
		t.Fatalf("expected a non-empty trajectory")
	}
	last := traj[len(traj)-1]
	if !Satisfied(last, future) {
		t.Fatalf("final trajectory state does not satisfy future set: %v", last)
	}
	if len(traj) != 6 {
		t.Fatalf("expected 5 sequential single-cell flips (depth 5, 6 snapshots), got %d snapshots", len(traj))
	}
}

func TestSearchReturnsNoResultWhenInfeasible(t *testing.T) {
	g, err := grid.Load(3, 1, 1, []grid.AlphabetEntry{{Symbol: 'B'}, {Symbol: 'W'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	wv, _ := g.ValueOf('W')

	future := make([]grid.Mask, 3)
	for i := range future {
		future[i] = grid.BitMask(wv)
	}
	// No rules at all: the state can never change, so the goal (all White
	// from an all-Black start) is unreachable.
	pot := ComputeBackwardPotentials(g, nil, future, 0)

	s := NewSearch(g, nil, future, pot, 1.0, 0, 16)
	for {
		done, _ := s.Step()
		if done {
			break
		}
	}
	if res := s.Result(); res != nil {
		t.Fatalf("expected nil result for infeasible search, got %v", res)
	}
}

func TestSearchYieldsProgressAcrossMultipleSteps(t *testing.T) {
	g, rules, _, wv := buildBtoWRule(t)

	future := make([]grid.Mask, 5)
	for i := range future {
		future[i] = grid.BitMask(wv)
	}
	pot := ComputeBackwardPotentials(g, rules, future, 0)

	s := NewSearch(g, rules, future, pot, 1.0, 0, 1) // yield after every single expansion
	calls := 0
	for {
		done, _ := s.Step()
		calls++
		if done {
			break
		}
		if calls > 10000 {
			t.Fatalf("search did not converge within a reasonable number of yields")
		}
	}
	if calls < 2 {
		t.Fatalf("expected search to require multiple Step calls with yieldEvery=1, got %d", calls)
	}
}
