package interp

import (
	"testing"

	"rewriteengine/internal/grid"
	"rewriteengine/internal/node"
	"rewriteengine/internal/rule"
	"rewriteengine/internal/symmetry"
)

func buildOneRuleTree(t *testing.T) (*node.Node, *grid.Grid) {
	g, err := grid.Load(5, 5, 1, []grid.AlphabetEntry{{Symbol: 'B'}, {Symbol: 'W'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	triv, err := symmetry.ParseString(true, "", nil)
	if err != nil {
		t.Fatalf("symmetry: %v", err)
	}
	rules, err := rule.Build(g, rule.Spec{In: "B", Out: "W"}, triv)
	if err != nil {
		t.Fatalf("build rule: %v", err)
	}
	return &node.Node{Kind: node.KindOne, Rules: rules}, g
}

func TestRunEmitsOneSnapshotPerApplyThenFinalOnFail(t *testing.T) {
	root, g := buildOneRuleTree(t)
	ip := New(root, g, 0, 0, nil)

	var snaps []Snapshot
	final := ip.Run(func(s Snapshot) { snaps = append(snaps, s) })

	if final != node.FAIL {
		t.Fatalf("expected terminal FAIL once the grid is exhausted, got %v", final)
	}
	// 25 SUCCESS applies plus one terminal FAIL snapshot.
	if len(snaps) != 26 {
		t.Fatalf("expected 26 snapshots (25 applies + 1 terminal), got %d", len(snaps))
	}
	last := snaps[len(snaps)-1]
	for _, v := range last.State {
		wv, _ := g.ValueOf('W')
		if int(v) != wv {
			t.Fatalf("expected final snapshot to be all W")
		}
	}
}

func TestRunIsDeterministicAcrossReexecution(t *testing.T) {
	root1, g1 := buildOneRuleTree(t)
	ip1 := New(root1, g1, 42, 0, nil)
	var snaps1 []Snapshot
	ip1.Run(func(s Snapshot) { snaps1 = append(snaps1, s) })

	root2, g2 := buildOneRuleTree(t)
	ip2 := New(root2, g2, 42, 0, nil)
	var snaps2 []Snapshot
	ip2.Run(func(s Snapshot) { snaps2 = append(snaps2, s) })

	if len(snaps1) != len(snaps2) {
		t.Fatalf("snapshot count differs across re-execution: %d vs %d", len(snaps1), len(snaps2))
	}
	for i := range snaps1 {
		if string(snaps1[i].State) != string(snaps2[i].State) {
			t.Fatalf("snapshot %d diverged across re-execution", i)
		}
	}
}

func TestStepCapTerminatesEarly(t *testing.T) {
	root, g := buildOneRuleTree(t)
	ip := New(root, g, 0, 3, nil)

	var snaps []Snapshot
	final := ip.Run(func(s Snapshot) { snaps = append(snaps, s) })
	if final != node.FAIL {
		t.Fatalf("expected FAIL once the outer step cap is reached, got %v", final)
	}
	if len(snaps) != 4 {
		t.Fatalf("expected 3 applies + 1 terminal snapshot, got %d", len(snaps))
	}
}
