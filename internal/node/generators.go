package node

import (
	"math"
	"sort"

	"rewriteengine/internal/grid"
)

// runPath implements the supplemented Path generator (SPEC_FULL.md
// §4.1): BFS from every cell holding PathFrom to the nearest cell
// holding PathTo, stepping only through PathOn-masked cells, then
// writes PathColor along the shortest reconstructed path. FAILs if no
// From cell reaches a To cell within Gen constraints.
func (n *Node) runPath(ctx *Context) bool {
	g := ctx.Grid
	count := g.MX * g.MY * g.MZ

	prev := make([]int, count)
	dist := make([]int32, count)
	for i := range dist {
		dist[i] = -1
		prev[i] = -1
	}

	var queue []int
	for z := 0; z < g.MZ; z++ {
		for y := 0; y < g.MY; y++ {
			for x := 0; x < g.MX; x++ {
				v := int(g.At(x, y, z))
				idx := g.Index(x, y, z)
				if n.Gen.PathFrom.Test(v) {
					dist[idx] = 0
					queue = append(queue, idx)
				}
			}
		}
	}
	if len(queue) == 0 {
		return false
	}

	neighbors := [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	target := -1
	for head := 0; head < len(queue) && target < 0; head++ {
		cur := queue[head]
		x, y, z := cur%g.MX, (cur/g.MX)%g.MY, cur/(g.MX*g.MY)
		if n.Gen.PathTo.Test(int(g.At(x, y, z))) && dist[cur] > 0 {
			target = cur
			break
		}
		for _, d := range neighbors {
			nx, ny, nz := x+d[0], y+d[1], z+d[2]
			if !g.InBounds(nx, ny, nz) {
				continue
			}
			nidx := g.Index(nx, ny, nz)
			if dist[nidx] != -1 {
				continue
			}
			v := g.At(nx, ny, nz)
			if !n.Gen.PathOn.Test(int(v)) && !n.Gen.PathTo.Test(int(v)) {
				continue
			}
			dist[nidx] = dist[cur] + 1
			prev[nidx] = cur
			queue = append(queue, nidx)
			if n.Gen.PathTo.Test(int(v)) {
				target = nidx
			}
		}
	}
	if target < 0 {
		return false
	}

	var path []int
	for at := target; at != -1; at = prev[at] {
		path = append(path, at)
	}
	applied := false
	for _, idx := range path {
		x, y, z := idx%g.MX, (idx/g.MX)%g.MY, idx/(g.MX*g.MY)
		if g.Set(x, y, z, n.Gen.PathColor) {
			applied = true
		}
	}
	return applied
}

// runMap implements the supplemented Map generator: a fixed-ratio
// per-value lookup substitution over the whole grid, the in-place
// degenerate case (MapN == 1) of the scale-up described in
// SPEC_FULL.md §4.1 — the fixed-size Grid here has no resize operation,
// so larger MapN entries are written with the source cell as the
// block's lowest (x,y) corner, clipped to bounds.
func (n *Node) runMap(ctx *Context) bool {
	g := ctx.Grid
	applied := false
	for z := 0; z < g.MZ; z++ {
		for y := 0; y < g.MY; y++ {
			for x := 0; x < g.MX; x++ {
				v := g.At(x, y, z)
				block, ok := n.Gen.MapTable[v]
				if !ok {
					continue
				}
				side := n.Gen.MapN
				if side <= 0 {
					side = 1
				}
				for j := 0; j < side; j++ {
					for i := 0; i < side; i++ {
						if i*side+j >= len(block) {
							continue
						}
						nx, ny := x+i, y+j
						if !g.InBounds(nx, ny, z) {
							continue
						}
						if g.Set(nx, ny, z, block[i*side+j]) {
							applied = true
						}
					}
				}
			}
		}
	}
	return applied
}

// runConvolution implements the supplemented Convolution generator:
// grounded in alan-ay-Game-of-Life's step function, generalized from a
// fixed B3/S23 rule to an arbitrary per-value neighbor-count kernel and
// a popcount -> output-value rewrite table.
func (n *Node) runConvolution(ctx *Context) bool {
	g := ctx.Grid
	kernel := n.Gen.Kernel
	if len(kernel) == 0 {
		kernel = [][2]int{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}}
	}

	next := make([]uint8, len(g.State()))
	copy(next, g.State())
	applied := false

	for z := 0; z < g.MZ; z++ {
		for y := 0; y < g.MY; y++ {
			for x := 0; x < g.MX; x++ {
				count := 0
				for _, off := range kernel {
					nx, ny := x+off[0], y+off[1]
					if n.Gen.Periodic {
						nx = ((nx % g.MX) + g.MX) % g.MX
						ny = ((ny % g.MY) + g.MY) % g.MY
					} else if !g.InBounds(nx, ny, z) {
						continue
					}
					if n.Gen.Values.Test(int(g.At(nx, ny, z))) {
						count++
					}
				}
				if w, ok := n.Gen.Rewrites[count]; ok {
					idx := g.Index(x, y, z)
					next[idx] = w
				}
			}
		}
	}

	for z := 0; z < g.MZ; z++ {
		for y := 0; y < g.MY; y++ {
			for x := 0; x < g.MX; x++ {
				idx := g.Index(x, y, z)
				if g.State()[idx] != next[idx] {
					if g.Set(x, y, z, next[idx]) {
						applied = true
					}
				}
			}
		}
	}
	return applied
}

// patternKey canonicalizes an NxN tile of values sampled from the grid.
type patternKey string

func tileKey(vals []uint8) patternKey {
	return patternKey(vals)
}

// runOverlap implements the supplemented Overlap generator: a minimal
// WaveFunctionCollapse-style pass. Every call samples every SampleN
// x SampleN tile of the current grid (z = 0 plane) as the pattern pool,
// weighted by observed frequency, picks a random tile position, and
// overwrites it with a tile chosen proportionally to frequency among all
// sampled tiles; the tile's agreement with the surrounding content is
// not checked.
func (n *Node) runOverlap(ctx *Context) bool {
	g := ctx.Grid
	side := n.Gen.SampleN
	if side <= 0 {
		side = 3
	}
	if g.MX < side || g.MY < side {
		return false
	}

	freq := map[patternKey]int{}
	tiles := map[patternKey][]uint8{}
	for y := 0; y+side <= g.MY; y++ {
		for x := 0; x+side <= g.MX; x++ {
			vals := make([]uint8, side*side)
			for j := 0; j < side; j++ {
				for i := 0; i < side; i++ {
					vals[j*side+i] = g.At(x+i, y+j, 0)
				}
			}
			k := tileKey(vals)
			freq[k]++
			tiles[k] = vals
		}
	}
	if len(tiles) == 0 {
		return false
	}

	x0 := ctx.RNG.Intn(g.MX - side + 1)
	y0 := ctx.RNG.Intn(g.MY - side + 1)

	type cand struct {
		k patternKey
		w int
	}
	var cands []cand
	for k, w := range freq {
		cands = append(cands, cand{k, w})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].k < cands[j].k })
	total := 0
	for _, c := range cands {
		total += c.w
	}
	target := ctx.RNG.Intn(total)
	var chosen patternKey
	running := 0
	for _, c := range cands {
		running += c.w
		if target < running {
			chosen = c.k
			break
		}
	}

	vals := tiles[chosen]
	applied := false
	for j := 0; j < side; j++ {
		for i := 0; i < side; i++ {
			if g.Set(x0+i, y0+j, 0, vals[j*side+i]) {
				applied = true
			}
		}
	}
	return applied
}

// runConvchain implements the supplemented Convchain generator: boolean
// (2-symbol) Markov-chain texture synthesis over a fixed-size
// neighborhood. A random cell is proposed to flip; the proposal is
// accepted with Metropolis probability exp(-delta/Temperature), where
// delta is the change in neighbor-disagreement energy, mirroring the
// original Convchain's core loop.
func (n *Node) runConvchain(ctx *Context) bool {
	g := ctx.Grid
	side := n.Gen.SampleN
	if side <= 0 {
		side = 1
	}
	temp := n.Gen.Temperature
	if temp <= 0 {
		temp = 1
	}

	x := ctx.RNG.Intn(g.MX)
	y := ctx.RNG.Intn(g.MY)
	cur := g.At(x, y, 0)
	flipped := uint8(1) - cur
	if cur > 1 {
		flipped = 0
	}

	before := energyAround(g, x, y, side)
	g.Set(x, y, 0, flipped)
	after := energyAround(g, x, y, side)

	delta := after - before
	if delta <= 0 || ctx.RNG.Float64() < math.Exp(-delta/temp) {
		return cur != flipped
	}
	g.Set(x, y, 0, cur)
	return false
}

// energyAround counts unlike-value adjacent pairs in the side x side
// window centered on (x,y) — a simple local-disagreement energy whose
// minimization drives the chain toward blocky, low-noise textures.
func energyAround(g *grid.Grid, x, y, side int) float64 {
	r := side / 2
	var e float64
	for j := -r; j <= r; j++ {
		for i := -r; i <= r; i++ {
			cx, cy := x+i, y+j
			if !g.InBounds(cx, cy, 0) {
				continue
			}
			v := g.At(cx, cy, 0)
			if g.InBounds(cx+1, cy, 0) && g.At(cx+1, cy, 0) != v {
				e++
			}
			if g.InBounds(cx, cy+1, 0) && g.At(cx, cy+1, 0) != v {
				e++
			}
		}
	}
	return e
}
