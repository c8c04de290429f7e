// Package grid owns the engine's mutable symbolic state: the alphabet
// mapping, the state array, and a per-turn change log used by the matcher
// for incremental rescans.
package grid

import "fmt"

// Cell is a 3D grid coordinate. MZ == 1 marks a 2D grid.
type Cell struct {
	X, Y, Z int
}

// AlphabetEntry describes one declared symbol: its code point and, for
// union symbols, the set of first-class members it stands in for.
type AlphabetEntry struct {
	Symbol rune
	Union  []rune // nil/empty for a first-class symbol
}

// Grid is the engine's shared symbolic state.
type Grid struct {
	MX, MY, MZ int
	C          int

	characters []rune
	values     map[rune]int

	// mask[v] is the bitmask of first-class values that value v's symbol
	// matches against. First-class symbols have exactly one bit set.
	mask []Mask

	state []uint8

	changes []Cell
	first   []int // first[turn] = index into changes where that turn started
}

// Load constructs a Grid of the given dimensions over the given alphabet.
// MZ must be >= 1 (MZ == 1 denotes a 2D grid). Union symbols must refer
// only to previously or later declared first-class symbols; this is
// resolved in a second pass so declaration order does not matter.
func Load(mx, my, mz int, alphabet []AlphabetEntry) (*Grid, error) {
	if mx <= 0 || my <= 0 || mz <= 0 {
		return nil, fmt.Errorf("grid: non-positive dimension (%d,%d,%d)", mx, my, mz)
	}
	if len(alphabet) == 0 || len(alphabet) > 255 {
		return nil, fmt.Errorf("grid: alphabet size %d out of range (1..255)", len(alphabet))
	}

	g := &Grid{
		MX: mx, MY: my, MZ: mz,
		C:      len(alphabet),
		values: make(map[rune]int, len(alphabet)),
	}

	for i, e := range alphabet {
		if _, dup := g.values[e.Symbol]; dup {
			return nil, fmt.Errorf("grid: duplicate symbol %q", e.Symbol)
		}
		g.characters = append(g.characters, e.Symbol)
		g.values[e.Symbol] = i
	}

	g.mask = make([]Mask, len(alphabet))
	for i, e := range alphabet {
		if len(e.Union) == 0 {
			g.mask[i] = BitMask(i)
			continue
		}
		var m Mask
		for _, member := range e.Union {
			v, ok := g.values[member]
			if !ok {
				return nil, fmt.Errorf("grid: union symbol %q references undeclared member %q", e.Symbol, member)
			}
			m.Set(v)
		}
		g.mask[i] = m
	}

	g.state = make([]uint8, mx*my*mz)
	g.changes = nil
	g.first = []int{0}
	return g, nil
}

// Index returns the flat state-array index for (x,y,z). Callers are
// responsible for bounds checks; the spec gives grid.matches no exception
// path and neither does this.
func (g *Grid) Index(x, y, z int) int {
	return x + y*g.MX + z*g.MX*g.MY
}

// InBounds reports whether (x,y,z) lies within the grid.
func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && x < g.MX && y >= 0 && y < g.MY && z >= 0 && z < g.MZ
}

// At returns the value stored at (x,y,z).
func (g *Grid) At(x, y, z int) uint8 {
	return g.state[g.Index(x, y, z)]
}

// ValueOf returns the numeric value of a declared symbol.
func (g *Grid) ValueOf(sym rune) (int, bool) {
	v, ok := g.values[sym]
	return v, ok
}

// MaskOf returns the bitmask a symbol's value matches against (itself for
// a first-class symbol, its member set for a union symbol).
func (g *Grid) MaskOf(value int) Mask {
	return g.mask[value]
}

// Characters returns the alphabet in value order (index i is the symbol
// whose numeric value is i).
func (g *Grid) Characters() []rune {
	return g.characters
}

// Legend renders the alphabet as a string of length C, position = value,
// matching the snapshot output contract in spec.md §6.
func (g *Grid) Legend() string {
	return string(g.characters)
}

// State returns the raw state array. Callers must not retain a mutable
// alias across a Clear/write boundary; the interpreter's snapshots copy it.
func (g *Grid) State() []uint8 {
	return g.state
}

// Clear resets all cells to 0 and discards the change log.
func (g *Grid) Clear() {
	for i := range g.state {
		g.state[i] = 0
	}
	g.changes = g.changes[:0]
	g.first = g.first[:0]
	g.first = append(g.first, 0)
}

// BeginTurn records the start offset of a new turn in the change log. The
// matcher consults first[turn] to know which suffix of changes is new.
func (g *Grid) BeginTurn() {
	g.first = append(g.first, len(g.changes))
}

// TurnCount returns the number of entries in first: one more than the
// number of BeginTurn calls since construction or the last Clear, so the
// current turn's index is TurnCount()-1.
func (g *Grid) TurnCount() int {
	return len(g.first)
}

// ChangesSince returns the slice of changes recorded from turn (inclusive)
// onward. turn must be a valid index into first.
func (g *Grid) ChangesSince(turn int) []Cell {
	if turn < 0 || turn >= len(g.first) {
		return nil
	}
	return g.changes[g.first[turn]:]
}

// Set writes value v at (x,y,z) and appends the cell to the current turn's
// change log if the value actually changed. Returns true if a write
// happened.
func (g *Grid) Set(x, y, z int, v uint8) bool {
	idx := g.Index(x, y, z)
	if g.state[idx] == v {
		return false
	}
	g.state[idx] = v
	g.changes = append(g.changes, Cell{X: x, Y: y, Z: z})
	return true
}

// Scratch returns a lightweight Grid sharing this grid's alphabet and
// dimensions but backed by an independent copy of state, with an empty
// change log. Used by search to explore hypothetical trajectories without
// touching the live grid.
func (g *Grid) Scratch(state []uint8) *Grid {
	cp := make([]uint8, len(state))
	copy(cp, state)
	return &Grid{
		MX: g.MX, MY: g.MY, MZ: g.MZ, C: g.C,
		characters: g.characters,
		values:     g.values,
		mask:       g.mask,
		state:      cp,
		first:      []int{0},
	}
}

// Matches reports whether rule r's input pattern fits the grid with its
// lower corner anchored at (x,y,z). input is the rule's flattened
// per-cell accept-bitmask; dims give the pattern's bounding box.
func (g *Grid) Matches(input []Mask, imx, imy, imz, x, y, z int) bool {
	for k := 0; k < imz; k++ {
		for j := 0; j < imy; j++ {
			for i := 0; i < imx; i++ {
				want := input[i+j*imx+k*imx*imy]
				if want.IsZero() {
					continue // sentinel: "don't care" never installed by the parser, kept defensive
				}
				v := g.At(x+i, y+j, z+k)
				if !want.Test(int(v)) {
					return false
				}
			}
		}
	}
	return true
}
