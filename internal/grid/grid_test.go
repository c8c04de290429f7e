package grid

import "testing"

func bw(t *testing.T) *Grid {
	g, err := Load(5, 5, 1, []AlphabetEntry{{Symbol: 'B'}, {Symbol: 'W'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return g
}

func TestLoadAssignsValuesInOrder(t *testing.T) {
	g := bw(t)
	if v, _ := g.ValueOf('B'); v != 0 {
		t.Fatalf("B should be value 0, got %d", v)
	}
	if v, _ := g.ValueOf('W'); v != 1 {
		t.Fatalf("W should be value 1, got %d", v)
	}
	if g.Legend() != "BW" {
		t.Fatalf("legend = %q", g.Legend())
	}
}

func TestUnionSymbolMask(t *testing.T) {
	g, err := Load(1, 1, 1, []AlphabetEntry{
		{Symbol: 'A'}, {Symbol: 'B'}, {Symbol: 'C'},
		{Symbol: 'U', Union: []rune{'A', 'C'}},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	uv, _ := g.ValueOf('U')
	av, _ := g.ValueOf('A')
	cv, _ := g.ValueOf('C')
	mask := g.MaskOf(uv)
	if !mask.Test(av) || !mask.Test(cv) {
		t.Fatalf("union mask %v missing member bits", mask)
	}
	bv, _ := g.ValueOf('B')
	if mask.Test(bv) {
		t.Fatalf("union mask %v should not include non-member B", mask)
	}
}

func TestUndeclaredUnionMemberErrors(t *testing.T) {
	_, err := Load(1, 1, 1, []AlphabetEntry{
		{Symbol: 'A'},
		{Symbol: 'U', Union: []rune{'Z'}},
	})
	if err == nil {
		t.Fatalf("expected error for undeclared union member")
	}
}

func TestSetRecordsChangesOnlyOnActualChange(t *testing.T) {
	g := bw(t)
	g.BeginTurn()
	if !g.Set(0, 0, 0, 1) {
		t.Fatalf("first write should report a change")
	}
	if g.Set(0, 0, 0, 1) {
		t.Fatalf("writing the same value again should not record a change")
	}
	changes := g.ChangesSince(0)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
}

func TestClearResetsStateAndLog(t *testing.T) {
	g := bw(t)
	g.BeginTurn()
	g.Set(1, 1, 0, 1)
	g.Clear()
	if g.At(1, 1, 0) != 0 {
		t.Fatalf("state not cleared")
	}
	if len(g.ChangesSince(0)) != 0 {
		t.Fatalf("change log not cleared")
	}
}

func TestMatchesChecksEveryInputCell(t *testing.T) {
	g := bw(t)
	// A 1x2 pattern requiring B then W at (0,0) and (0,1).
	bVal, _ := g.ValueOf('B')
	wVal, _ := g.ValueOf('W')
	input := []Mask{BitMask(bVal), BitMask(wVal)}
	g.BeginTurn()
	g.Set(0, 1, 0, uint8(wVal))
	if !g.Matches(input, 1, 2, 1, 0, 0, 0) {
		t.Fatalf("expected pattern to match after setting (0,1) to W")
	}
	g.Set(0, 1, 0, uint8(bVal))
	if g.Matches(input, 1, 2, 1, 0, 0, 0) {
		t.Fatalf("expected pattern not to match once (0,1) reverted to B")
	}
}

func TestAlphabetCloseInvariant(t *testing.T) {
	g := bw(t)
	for _, v := range g.State() {
		if int(v) >= g.C {
			t.Fatalf("state value %d out of alphabet range [0,%d)", v, g.C)
		}
	}
}
