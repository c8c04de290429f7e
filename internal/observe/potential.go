package observe

import (
	"rewriteengine/internal/grid"
	"rewriteengine/internal/rule"
)

// Potentials holds, per cell and per alphabet value w, the minimum number
// of rule applications needed before that cell can hold w and have that
// satisfy the future set from w onward (-1 if no bound was found within
// the search cap).
type Potentials struct {
	c    int
	dist [][]int32 // dist[cellIdx][value]
}

// At returns the potential for cell i reaching value w, or -1.
func (p *Potentials) At(cellIdx, w int) int32 {
	return p.dist[cellIdx][w]
}

// MinToFuture returns the minimum potential, over every value accepted by
// future[cellIdx], or -1 if none are reachable.
func (p *Potentials) MinToFuture(cellIdx int, future grid.Mask) int32 {
	best := int32(-1)
	for w := 0; w < p.c; w++ {
		if !future.Test(w) {
			continue
		}
		d := p.dist[cellIdx][w]
		if d < 0 {
			continue
		}
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}

// DefaultCap bounds the backward-potential fixed-point iteration; chosen
// comfortably above any grid diameter used in the test scenarios while
// still terminating quickly on a non-convergent (infeasible) future set.
const DefaultCap = 64

// ComputeBackwardPotentials runs the multi-source BFS over (cell, value)
// pairs described in spec.md §4.6: level 0 is the future set itself;
// level t+1 adds (cell, w) whenever some rule, anchored so its output at
// cell is w, has every other input cell already satisfiable at level t.
func ComputeBackwardPotentials(g *grid.Grid, rules []*rule.Rule, future []grid.Mask, cap int) *Potentials {
	if cap <= 0 {
		cap = DefaultCap
	}
	n := g.MX * g.MY * g.MZ
	p := &Potentials{c: g.C, dist: make([][]int32, n)}
	for i := 0; i < n; i++ {
		p.dist[i] = make([]int32, g.C)
		for w := 0; w < g.C; w++ {
			if future[i].Test(w) {
				p.dist[i][w] = 0
			} else {
				p.dist[i][w] = -1
			}
		}
	}

	mx, my, mz := g.MX, g.MY, g.MZ

	satisfiableAt := func(cellIdx int, mask grid.Mask, t int32) bool {
		for w := 0; w < p.c; w++ {
			if !mask.Test(w) {
				continue
			}
			d := p.dist[cellIdx][w]
			if d >= 0 && d <= t {
				return true
			}
		}
		return false
	}

	for t := int32(0); t < int32(cap); t++ {
		changed := false
		for _, r := range rules {
			for z0 := 0; z0+r.IMZ <= mz; z0++ {
				for y0 := 0; y0+r.IMY <= my; y0++ {
					for x0 := 0; x0+r.IMX <= mx; x0++ {
						if !inputSatisfiableAt(g, r, x0, y0, z0, satisfiableAt, t) {
							continue
						}
						for k := 0; k < r.OMZ; k++ {
							for j := 0; j < r.OMY; j++ {
								for i := 0; i < r.OMX; i++ {
									w := r.Output[i+j*r.OMX+k*r.OMX*r.OMY]
									if w == rule.DontCare {
										continue
									}
									cellIdx := g.Index(x0+i, y0+j, z0+k)
									if p.dist[cellIdx][w] < 0 || p.dist[cellIdx][w] > t+1 {
										p.dist[cellIdx][w] = t + 1
										changed = true
									}
								}
							}
						}
					}
				}
			}
		}
		if !changed {
			break
		}
	}
	return p
}

func inputSatisfiableAt(g *grid.Grid, r *rule.Rule, x0, y0, z0 int, satisfiableAt func(int, grid.Mask, int32) bool, t int32) bool {
	for k := 0; k < r.IMZ; k++ {
		for j := 0; j < r.IMY; j++ {
			for i := 0; i < r.IMX; i++ {
				mask := r.Input[i+j*r.IMX+k*r.IMX*r.IMY]
				cellIdx := g.Index(x0+i, y0+j, z0+k)
				if !satisfiableAt(cellIdx, mask, t) {
					return false
				}
			}
		}
	}
	return true
}
