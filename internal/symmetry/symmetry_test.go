package symmetry

import "testing"

func TestAll8And48Sizes(t *testing.T) {
	if n := len(All8()); n != 8 {
		t.Fatalf("All8 returned %d elements, want 8", n)
	}
	if n := len(All48()); n != 48 {
		t.Fatalf("All48 returned %d elements, want 48", n)
	}
}

func TestTrivialGroupIsIdentityOnly(t *testing.T) {
	g := NewGroup(true)
	if len(g.Elements()) != 1 {
		t.Fatalf("trivial group should have 1 element, got %d", len(g.Elements()))
	}
	if !g.Contains(Identity) {
		t.Fatalf("trivial group must contain identity")
	}
}

func TestParseStringXGeneratesTwoElementGroup(t *testing.T) {
	g, err := ParseString(true, "(x)", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(g.Elements()) != 2 {
		t.Fatalf("(x) should generate a 2-element group, got %d", len(g.Elements()))
	}
}

func TestParseStringFullDihedralGroup(t *testing.T) {
	g, err := ParseString(true, "(xa)", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(g.Elements()) != 8 {
		t.Fatalf("reflection+rotation generators should produce the full 8-element group, got %d", len(g.Elements()))
	}
}

func TestParseStringInheritsParentWhenEmpty(t *testing.T) {
	parent, _ := ParseString(true, "(x)", nil)
	g, err := ParseString(true, "", parent)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g != parent {
		t.Fatalf("empty symmetry string should inherit parent group by reference")
	}
}

// TestClosureSoundness checks spec.md property 3: expanding a pattern over
// group G, then re-applying any sigma in G, permutes the expansion set.
func TestClosureSoundness(t *testing.T) {
	g := NewGroup(true, ReflectX, RotateXY)

	dx, dy, dz := 2, 3, 1
	pattern := []int{0, 1, 2, 3, 4, 5}

	type variant struct {
		dx, dy, dz int
		cells      map[[3]int]int
	}

	apply := func(m Matrix3) variant {
		ndx, ndy, ndz := TransformDims(m, dx, dy, dz)
		cells := map[[3]int]int{}
		for z := 0; z < dz; z++ {
			for y := 0; y < dy; y++ {
				for x := 0; x < dx; x++ {
					nx, ny, nz := MapCoord(m, x, y, z, dx, dy, dz)
					cells[[3]int{nx, ny, nz}] = pattern[x+y*dx+z*dx*dy]
				}
			}
		}
		return variant{dx: ndx, dy: ndy, dz: ndz, cells: cells}
	}

	variantKey := func(v variant) string {
		s := ""
		for z := 0; z < v.dz; z++ {
			for y := 0; y < v.dy; y++ {
				for x := 0; x < v.dx; x++ {
					s += string(rune('0' + v.cells[[3]int{x, y, z}]))
				}
			}
		}
		return s
	}

	expansion := map[string]bool{}
	for _, m := range g.Elements() {
		expansion[variantKey(apply(m))] = true
	}

	// Re-applying any sigma in G to every variant in the expansion set
	// must stay within the expansion set (the set is permuted, not grown).
	for _, sigma := range g.Elements() {
		for _, m := range g.Elements() {
			composed := Mul(sigma, m)
			if !expansion[variantKey(apply(composed))] {
				t.Fatalf("composed transform escaped the expansion set")
			}
		}
	}
}
