// Package observe implements observation goal states, backward potential
// propagation, and the bounded best-first trajectory search over rule
// applications described in spec.md §4.6.
package observe

import "rewriteengine/internal/grid"

// Observation ties a source value to the set of values it must eventually
// become.
type Observation struct {
	From int
	To   grid.Mask
}

// FutureSet computes, per cell, the mask of acceptable terminal values:
// the registered observation's To mask if the cell's current value has
// one, otherwise the singleton mask of its current value (it must not
// change). ok is false iff some cell's resulting mask is empty —
// infeasible from the start.
func FutureSet(g *grid.Grid, obs map[int]grid.Mask) ([]grid.Mask, bool) {
	n := g.MX * g.MY * g.MZ
	future := make([]grid.Mask, n)
	for i := 0; i < n; i++ {
		v := int(g.State()[i])
		if to, ok := obs[v]; ok {
			future[i] = to
		} else {
			future[i] = grid.BitMask(v)
		}
		if future[i].IsZero() {
			return future, false
		}
	}
	return future, true
}

// Satisfied reports whether state already satisfies every cell's future
// mask.
func Satisfied(state []uint8, future []grid.Mask) bool {
	for i, v := range state {
		if !future[i].Test(int(v)) {
			return false
		}
	}
	return true
}
