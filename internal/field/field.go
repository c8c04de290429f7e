// Package field computes BFS-based scalar potentials over the grid,
// used to bias rewrite-rule selection and to seed backward-potential
// search heuristics.
package field

import "rewriteengine/internal/grid"

// Field describes one scalar potential to maintain.
type Field struct {
	// Zero is the value whose cells seed the BFS frontier at potential 0.
	Zero int
	// One, if HasOne, seeds an additional frontier at potential 1 — a
	// second source kind with one extra step of cost baked in, letting a
	// single field fuse two source symbols with different base costs.
	One    int
	HasOne bool
	// Substrate is the set of values the BFS may step through besides the
	// source cells themselves. A zero Substrate mask is treated as "every
	// value is passable".
	Substrate grid.Mask

	Essential bool
	Recompute bool
}

// Potential holds one computed field's result.
type Potential struct {
	Dist []int32 // per cell, BFS distance; -1 if unreached
}

// At returns the potential at (x,y,z), or -1 if out of bounds.
func (p *Potential) At(g *grid.Grid, x, y, z int) int32 {
	if !g.InBounds(x, y, z) {
		return -1
	}
	return p.Dist[g.Index(x, y, z)]
}

var neighbors2D = [4][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}}
var neighbors3D = [6][3]int{
	{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1},
}

// Compute runs a multi-source BFS over g: cells holding Zero seed the
// frontier at distance 0 (and cells holding One, if HasOne, at distance
// 1); the frontier expands through cells whose value is in Substrate (or
// through any cell, if Substrate is the zero mask). ok is false iff the
// field is Essential and no cell was reached (spec.md §4.4 step 4).
func (f *Field) Compute(g *grid.Grid) (*Potential, bool) {
	n := g.MX * g.MY * g.MZ
	dist := make([]int32, n)
	for i := range dist {
		dist[i] = -1
	}

	passable := func(v uint8) bool {
		if f.Substrate.IsZero() {
			return true
		}
		return f.Substrate.Test(int(v))
	}

	type qitem struct{ x, y, z int }
	var queue []qitem
	reached := false

	for z := 0; z < g.MZ; z++ {
		for y := 0; y < g.MY; y++ {
			for x := 0; x < g.MX; x++ {
				v := g.At(x, y, z)
				idx := g.Index(x, y, z)
				if int(v) == f.Zero {
					dist[idx] = 0
					queue = append(queue, qitem{x, y, z})
					reached = true
				} else if f.HasOne && int(v) == f.One {
					dist[idx] = 1
					queue = append(queue, qitem{x, y, z})
					reached = true
				}
			}
		}
	}

	neighbors := neighbors2D[:]
	if g.MZ > 1 {
		neighbors = neighbors3D[:]
	}

	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		curIdx := g.Index(cur.x, cur.y, cur.z)
		for _, d := range neighbors {
			nx, ny, nz := cur.x+d[0], cur.y+d[1], cur.z+d[2]
			if !g.InBounds(nx, ny, nz) {
				continue
			}
			nIdx := g.Index(nx, ny, nz)
			if dist[nIdx] != -1 {
				continue
			}
			if !passable(g.At(nx, ny, nz)) {
				continue
			}
			dist[nIdx] = dist[curIdx] + 1
			queue = append(queue, qitem{nx, ny, nz})
		}
	}

	if f.Essential && !reached {
		return &Potential{Dist: dist}, false
	}
	return &Potential{Dist: dist}, true
}
