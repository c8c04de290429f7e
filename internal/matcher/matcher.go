// Package matcher maintains, per rewrite node, the live list of rule
// matches against the shared grid: a full rescan from scratch, and an
// incremental rescan driven by the grid's change log.
package matcher

import (
	"rewriteengine/internal/grid"
	"rewriteengine/internal/rule"
)

// Match is an anchor position at which a rule's input pattern fits.
type Match struct {
	RuleIndex int
	X, Y, Z   int
}

// Matcher owns the dense match list and per-rule occupancy mask for one
// rewrite node's rule set.
type Matcher struct {
	g     *grid.Grid
	rules []*rule.Rule

	matches []Match
	// pos[(r,x,y,z)] -> index into matches, so occupancy and swap-remove
	// are both O(1). This plays the role of spec.md's "matchMask" bit
	// grid; it doubles as the index needed for O(1) removal.
	pos map[matchKey]int

	lastMatchedTurn int // -1 means a full rescan is needed
}

type matchKey struct {
	r, x, y, z int
}

// New constructs a Matcher for rules against g. The matcher starts in the
// "needs full rescan" state.
func New(g *grid.Grid, rules []*rule.Rule) *Matcher {
	return &Matcher{
		g:               g,
		rules:           rules,
		pos:             map[matchKey]int{},
		lastMatchedTurn: -1,
	}
}

// Reset forces the next Refresh to perform a full rescan.
func (m *Matcher) Reset() {
	m.matches = m.matches[:0]
	m.pos = map[matchKey]int{}
	m.lastMatchedTurn = -1
}

// Count returns the number of live (not-yet-invalidated) matches.
func (m *Matcher) Count() int {
	return len(m.matches)
}

// At returns the match at index i.
func (m *Matcher) At(i int) Match {
	return m.matches[i]
}

// All returns the live match list. Callers must not mutate it directly.
func (m *Matcher) All() []Match {
	return m.matches
}

func (m *Matcher) add(k matchKey) {
	if _, ok := m.pos[k]; ok {
		return
	}
	m.pos[k] = len(m.matches)
	m.matches = append(m.matches, Match{RuleIndex: k.r, X: k.x, Y: k.y, Z: k.z})
}

// RemoveAt swap-removes the match at index i.
func (m *Matcher) RemoveAt(i int) {
	mm := m.matches[i]
	last := len(m.matches) - 1
	k := matchKey{mm.RuleIndex, mm.X, mm.Y, mm.Z}
	delete(m.pos, k)

	if i != last {
		moved := m.matches[last]
		m.matches[i] = moved
		m.pos[matchKey{moved.RuleIndex, moved.X, moved.Y, moved.Z}] = i
	}
	m.matches = m.matches[:last]
}

// Validate re-verifies the match at index i against the current grid; if
// it no longer holds, it is swap-removed and Validate returns false.
func (m *Matcher) Validate(i int) bool {
	mm := m.matches[i]
	r := m.rules[mm.RuleIndex]
	if m.g.Matches(r.Input, r.IMX, r.IMY, r.IMZ, mm.X, mm.Y, mm.Z) {
		return true
	}
	m.RemoveAt(i)
	return false
}

// Refresh brings the match list up to date with the grid's current turn,
// performing a full rescan if the matcher has never scanned (or was
// Reset), or an incremental rescan driven by the change log otherwise.
// turn is the index of the current turn (grid.TurnCount()-1).
func (m *Matcher) Refresh(turn int) {
	if m.lastMatchedTurn < 0 {
		m.fullRescan()
	} else {
		for t := m.lastMatchedTurn; t <= turn; t++ {
			m.incrementalRescan(t)
		}
	}
	m.lastMatchedTurn = turn
}

func (m *Matcher) fullRescan() {
	m.matches = m.matches[:0]
	m.pos = map[matchKey]int{}

	mx, my, mz := m.g.MX, m.g.MY, m.g.MZ
	for ri, r := range m.rules {
		for z0 := 0; z0 < mz; z0 += r.IMZ {
			for y0 := 0; y0 < my; y0 += r.IMY {
				for x0 := 0; x0 < mx; x0 += r.IMX {
					v := int(m.g.At(x0, y0, z0))
					for _, off := range r.IShifts[v] {
						sx, sy, sz := x0-off.DX, y0-off.DY, z0-off.DZ
						if !boxFits(sx, sy, sz, r.IMX, r.IMY, r.IMZ, mx, my, mz) {
							continue
						}
						k := matchKey{ri, sx, sy, sz}
						if _, ok := m.pos[k]; ok {
							continue
						}
						if m.g.Matches(r.Input, r.IMX, r.IMY, r.IMZ, sx, sy, sz) {
							m.add(k)
						}
					}
				}
			}
		}
	}
}

func (m *Matcher) incrementalRescan(turn int) {
	cells := m.g.ChangesSince(turn)
	mx, my, mz := m.g.MX, m.g.MY, m.g.MZ
	for _, c := range cells {
		// Invalidate every existing match whose input box covers the
		// changed cell: any anchor within IMX/IMY/IMZ of c in each
		// dimension could have had c inside its pattern, regardless of
		// what value that pattern cell required there.
		for ri, r := range m.rules {
			for dz := 0; dz < r.IMZ; dz++ {
				for dy := 0; dy < r.IMY; dy++ {
					for dx := 0; dx < r.IMX; dx++ {
						sx, sy, sz := c.X-dx, c.Y-dy, c.Z-dz
						if idx, ok := m.pos[matchKey{ri, sx, sy, sz}]; ok {
							m.Validate(idx)
						}
					}
				}
			}
		}

		v := int(m.g.At(c.X, c.Y, c.Z))
		for ri, r := range m.rules {
			for _, off := range r.IShifts[v] {
				sx, sy, sz := c.X-off.DX, c.Y-off.DY, c.Z-off.DZ
				if !boxFits(sx, sy, sz, r.IMX, r.IMY, r.IMZ, mx, my, mz) {
					continue
				}
				k := matchKey{ri, sx, sy, sz}
				if _, ok := m.pos[k]; ok {
					continue
				}
				if m.g.Matches(r.Input, r.IMX, r.IMY, r.IMZ, sx, sy, sz) {
					m.add(k)
				}
			}
		}
	}
}

func boxFits(x, y, z, dx, dy, dz, mx, my, mz int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x+dx <= mx && y+dy <= my && z+dz <= mz
}

// Apply writes r's output at anchor (x,y,z): every output cell that is not
// DontCare and differs from the grid's current value is written and
// logged to the change log. Returns true iff at least one cell changed.
func Apply(g *grid.Grid, r *rule.Rule, x, y, z int) bool {
	wrote := false
	for k := 0; k < r.OMZ; k++ {
		for j := 0; j < r.OMY; j++ {
			for i := 0; i < r.OMX; i++ {
				v := r.Output[i+j*r.OMX+k*r.OMX*r.OMY]
				if v == rule.DontCare {
					continue
				}
				if g.Set(x+i, y+j, z+k, v) {
					wrote = true
				}
			}
		}
	}
	return wrote
}

// Footprint reports the set of cells r would write at anchor (x,y,z),
// ignoring DontCare cells. Used by All to detect per-step write conflicts.
func Footprint(r *rule.Rule, x, y, z int) []grid.Cell {
	var cells []grid.Cell
	for k := 0; k < r.OMZ; k++ {
		for j := 0; j < r.OMY; j++ {
			for i := 0; i < r.OMX; i++ {
				if r.Output[i+j*r.OMX+k*r.OMX*r.OMY] == rule.DontCare {
					continue
				}
				cells = append(cells, grid.Cell{X: x + i, Y: y + j, Z: z + k})
			}
		}
	}
	return cells
}
