package rule

import (
	"testing"

	"rewriteengine/internal/grid"
	"rewriteengine/internal/symmetry"
)

func bwGrid(t *testing.T) *grid.Grid {
	g, err := grid.Load(5, 5, 1, []grid.AlphabetEntry{{Symbol: 'B'}, {Symbol: 'W'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return g
}

func TestBuildSimpleRuleNoSymmetry(t *testing.T) {
	g := bwGrid(t)
	sym := symmetry.NewGroup(true) // identity only
	rules, err := Build(g, Spec{In: "B", Out: "W"}, sym)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	r := rules[0]
	if r.IMX != 1 || r.IMY != 1 || r.IMZ != 1 {
		t.Fatalf("unexpected dims %d,%d,%d", r.IMX, r.IMY, r.IMZ)
	}
	bVal, _ := g.ValueOf('B')
	wVal, _ := g.ValueOf('W')
	if !r.Input[0].Test(bVal) {
		t.Fatalf("input should accept B")
	}
	if r.Output[0] != uint8(wVal) {
		t.Fatalf("output should write W, got %d", r.Output[0])
	}
}

func TestBuildAsymmetricPatternExpandsUnderFullGroup(t *testing.T) {
	g := bwGrid(t)
	sym := symmetry.NewGroup(true, symmetry.ReflectX, symmetry.RotateXY)
	// "BW" as a 1-row, 2-cell pattern has no rotational symmetry, but the
	// reflection across its long axis maps it onto itself, so the 8-element
	// group yields 4 distinct variants: BW and WB horizontally and vertically.
	rules, err := Build(g, Spec{In: "BW", Out: "WB"}, sym)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(rules) != 4 {
		t.Fatalf("expected 4 distinct expansions, got %d", len(rules))
	}
}

func TestBuildSymmetricPatternDeduplicates(t *testing.T) {
	g := bwGrid(t)
	sym := symmetry.NewGroup(true, symmetry.ReflectX, symmetry.RotateXY)
	// A single cell pattern is invariant under every transform.
	rules, err := Build(g, Spec{In: "B", Out: "W"}, sym)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected dedup down to 1 rule, got %d", len(rules))
	}
}

func TestBuildWildcardOutputIsDontCare(t *testing.T) {
	g := bwGrid(t)
	sym := symmetry.NewGroup(true)
	rules, err := Build(g, Spec{In: "BB", Out: "W*"}, sym)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if rules[0].Output[1] != DontCare {
		t.Fatalf("expected second output cell to be DontCare")
	}
}

func TestBuildMismatchedDimensionsErrors(t *testing.T) {
	g := bwGrid(t)
	sym := symmetry.NewGroup(true)
	_, err := Build(g, Spec{In: "BB", Out: "W"}, sym)
	if err == nil {
		t.Fatalf("expected error for mismatched input/output dimensions")
	}
}

func TestIShiftsCoverEveryInputCell(t *testing.T) {
	g := bwGrid(t)
	sym := symmetry.NewGroup(true)
	rules, err := Build(g, Spec{In: "BW", Out: "WB"}, sym)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	bVal, _ := g.ValueOf('B')
	wVal, _ := g.ValueOf('W')
	r := rules[0]
	if len(r.IShifts[bVal]) != 1 || r.IShifts[bVal][0] != (Offset{DX: 0, DY: 0, DZ: 0}) {
		t.Fatalf("B ishift wrong: %v", r.IShifts[bVal])
	}
	if len(r.IShifts[wVal]) != 1 || r.IShifts[wVal][0] != (Offset{DX: 1, DY: 0, DZ: 0}) {
		t.Fatalf("W ishift wrong: %v", r.IShifts[wVal])
	}
}
