package node

import (
	"sort"

	"rewriteengine/internal/grid"
	"rewriteengine/internal/matcher"
)

// runAll implements §4.5 "All": shuffle the match list with the node's
// RNG, then apply in order, skipping matches whose output footprint
// overlaps a cell already written this step.
func (n *Node) runAll(ctx *Context) bool {
	count := n.mm.Count()
	if count == 0 {
		return false
	}
	// Snapshot the match list before applying anything: mutating n.mm
	// mid-pass (via swap-remove) would relocate later entries into
	// already-visited or already-passed indices and silently drop them.
	matches := make([]matcher.Match, count)
	for i := 0; i < count; i++ {
		matches[i] = n.mm.At(i)
	}
	order := make([]int, count)
	for i := range order {
		order[i] = i
	}
	ctx.RNG.Shuffle(order)

	written := map[grid.Cell]bool{}
	applied := false
	for _, idx := range order {
		m := matches[idx]
		r := n.Rules[m.RuleIndex]
		if !ctx.Grid.Matches(r.Input, r.IMX, r.IMY, r.IMZ, m.X, m.Y, m.Z) {
			continue
		}
		footprint := matcher.Footprint(r, m.X, m.Y, m.Z)
		if conflicts(footprint, written) {
			continue
		}
		if matcher.Apply(ctx.Grid, r, m.X, m.Y, m.Z) {
			applied = true
			n.lastFired[m.RuleIndex] = true
			for _, c := range footprint {
				written[c] = true
			}
		}
	}
	return applied
}

func conflicts(footprint []grid.Cell, written map[grid.Cell]bool) bool {
	for _, c := range footprint {
		if written[c] {
			return true
		}
	}
	return false
}

// runPrl implements §4.5 "Prl": apply every currently valid match
// independently, in deterministic (rule-index, z, y, x) write order.
func (n *Node) runPrl(ctx *Context) bool {
	count := n.mm.Count()
	if count == 0 {
		return false
	}
	matches := make([]matcher.Match, 0, count)
	for i := 0; i < count; i++ {
		m := n.mm.At(i)
		r := n.Rules[m.RuleIndex]
		if ctx.Grid.Matches(r.Input, r.IMX, r.IMY, r.IMZ, m.X, m.Y, m.Z) {
			matches = append(matches, m)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.RuleIndex != b.RuleIndex {
			return a.RuleIndex < b.RuleIndex
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	applied := false
	for _, m := range matches {
		r := n.Rules[m.RuleIndex]
		if matcher.Apply(ctx.Grid, r, m.X, m.Y, m.Z) {
			applied = true
			n.lastFired[m.RuleIndex] = true
		}
	}
	return applied
}
