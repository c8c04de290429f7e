// Package symmetry enumerates the 8 planar and 48 cubic symmetry
// operations and builds symmetry-subgroup closures used to expand a rule
// over a declared symmetry string.
package symmetry

import (
	"fmt"
	"sort"
)

// Matrix3 is a signed permutation matrix: axis r of the output is
// sign[r] * (input axis perm[r]). The full set of such matrices (6
// permutations x 8 sign patterns) is exactly the 48-element symmetry
// group of the cube; restricting to perm[2]==2 and sign[2]==+1 gives the
// 8-element symmetry group of the square (z untouched).
type Matrix3 struct {
	Perm [3]int
	Sign [3]int8 // +1 or -1
}

// Identity is the no-op transform.
var Identity = Matrix3{Perm: [3]int{0, 1, 2}, Sign: [3]int8{1, 1, 1}}

// key returns a small integer uniquely identifying a Matrix3, used for
// deduplication and as a map key.
func (m Matrix3) key() int {
	k := 0
	for i := 0; i < 3; i++ {
		k = k*3 + m.Perm[i]
	}
	for i := 0; i < 3; i++ {
		s := 0
		if m.Sign[i] < 0 {
			s = 1
		}
		k = k*2 + s
	}
	return k
}

// Mul composes two transforms: (a*b) applied to a point equals a applied
// to (b applied to the point).
func Mul(a, b Matrix3) Matrix3 {
	var out Matrix3
	for r := 0; r < 3; r++ {
		// Output axis r of (a*b) reads input axis a.Perm[r] of b's output,
		// i.e. source axis b.Perm[a.Perm[r]], with combined sign.
		src := b.Perm[a.Perm[r]]
		out.Perm[r] = src
		out.Sign[r] = a.Sign[r] * b.Sign[a.Perm[r]]
	}
	return out
}

// Inverse returns the transform undoing m (valid since signed permutation
// matrices are orthogonal: the inverse is the transpose).
func (m Matrix3) Inverse() Matrix3 {
	var inv Matrix3
	for r := 0; r < 3; r++ {
		inv.Perm[m.Perm[r]] = r
		inv.Sign[m.Perm[r]] = m.Sign[r]
	}
	return inv
}

// Generators usable when parsing a symmetry string.
var (
	ReflectX = Matrix3{Perm: [3]int{0, 1, 2}, Sign: [3]int8{-1, 1, 1}}
	ReflectY = Matrix3{Perm: [3]int{0, 1, 2}, Sign: [3]int8{1, -1, 1}}
	ReflectZ = Matrix3{Perm: [3]int{0, 1, 2}, Sign: [3]int8{1, 1, -1}}
	RotateXY = Matrix3{Perm: [3]int{1, 0, 2}, Sign: [3]int8{-1, 1, 1}} // 90 deg about z
	RotateXZ = Matrix3{Perm: [3]int{2, 1, 0}, Sign: [3]int8{-1, 1, 1}} // 90 deg about y
	RotateYZ = Matrix3{Perm: [3]int{0, 2, 1}, Sign: [3]int8{1, -1, 1}} // 90 deg about x
)

// All48 enumerates the full cubic symmetry group: every signed permutation
// of the three axes (3! permutations x 2^3 signs = 48 elements).
func All48() []Matrix3 {
	perms := permutations3()
	var out []Matrix3
	for _, p := range perms {
		for sx := int8(1); sx >= -1; sx -= 2 {
			for sy := int8(1); sy >= -1; sy -= 2 {
				for sz := int8(1); sz >= -1; sz -= 2 {
					out = append(out, Matrix3{Perm: p, Sign: [3]int8{sx, sy, sz}})
				}
			}
		}
	}
	return out
}

// All8 enumerates the planar symmetry group (dihedral group of the
// square): the subset of All48 that leaves z fixed and unflipped.
func All8() []Matrix3 {
	var out []Matrix3
	for _, m := range All48() {
		if m.Perm[2] == 2 && m.Sign[2] == 1 {
			out = append(out, m)
		}
	}
	return out
}

func permutations3() [][3]int {
	idx := [3]int{0, 1, 2}
	var out [][3]int
	var permute func(k int)
	permute = func(k int) {
		if k == len(idx) {
			out = append(out, idx)
			return
		}
		for i := k; i < len(idx); i++ {
			idx[k], idx[i] = idx[i], idx[k]
			permute(k + 1)
			idx[k], idx[i] = idx[i], idx[k]
		}
	}
	permute(0)
	return out
}

// Group is a closed set of transforms (closed under Mul and Inverse,
// containing Identity).
type Group struct {
	elems []Matrix3
	set   map[int]bool
}

// NewGroup builds the closure of generators under composition, restricted
// to the ambient 8- or 48-element universe depending on is2D.
func NewGroup(is2D bool, generators ...Matrix3) *Group {
	universe := All48()
	if is2D {
		universe = All8()
	}
	allowed := make(map[int]Matrix3, len(universe))
	for _, m := range universe {
		allowed[m.key()] = m
	}

	g := &Group{set: map[int]bool{}}
	frontier := []Matrix3{Identity}
	g.add(Identity)
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		for _, gen := range generators {
			if _, ok := allowed[gen.key()]; !ok {
				continue // generator outside the ambient universe (e.g. a 3D-only reflection in a 2D grid)
			}
			cand := Mul(gen, next)
			if !g.set[cand.key()] {
				g.add(cand)
				frontier = append(frontier, cand)
			}
		}
	}
	sort.Slice(g.elems, func(i, j int) bool { return g.elems[i].key() < g.elems[j].key() })
	return g
}

func (g *Group) add(m Matrix3) {
	if !g.set[m.key()] {
		g.set[m.key()] = true
		g.elems = append(g.elems, m)
	}
}

// Elements returns the group's members in a stable order.
func (g *Group) Elements() []Matrix3 {
	return g.elems
}

// Contains reports whether m is a member of the group.
func (g *Group) Contains(m Matrix3) bool {
	return g.set[m.key()]
}

// ParseString parses a symmetry attribute string such as "()", "(x)",
// "(xy)" into the generated subgroup. An empty or "()" string yields the
// trivial group (identity only, i.e. no symmetry expansion). Recognized
// letters are x, y, z (axis reflections) and a, b, c (90-degree rotations
// about z, y, x respectively). parent, if non-nil, is used when str is the
// empty string to mean "inherit the enclosing node's symmetry".
func ParseString(is2D bool, str string, parent *Group) (*Group, error) {
	str = trimParens(str)
	if str == "" {
		if parent != nil {
			return parent, nil
		}
		return NewGroup(is2D), nil
	}

	var gens []Matrix3
	for _, ch := range str {
		switch ch {
		case 'x':
			gens = append(gens, ReflectX)
		case 'y':
			gens = append(gens, ReflectY)
		case 'z':
			gens = append(gens, ReflectZ)
		case 'a':
			gens = append(gens, RotateXY)
		case 'b':
			gens = append(gens, RotateXZ)
		case 'c':
			gens = append(gens, RotateYZ)
		default:
			return nil, fmt.Errorf("symmetry: unknown generator letter %q in %q", ch, str)
		}
	}
	return NewGroup(is2D, gens...), nil
}

func trimParens(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '(' || r == ')' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// TransformDims returns the (possibly permuted) dimensions of a pattern
// box of dimensions (dx,dy,dz) after m is applied; cell values are moved
// separately with MapCoord.
func TransformDims(m Matrix3, dx, dy, dz int) (ndx, ndy, ndz int) {
	dims := [3]int{dx, dy, dz}
	return dims[m.Perm[0]], dims[m.Perm[1]], dims[m.Perm[2]]
}

// MapCoord maps a source coordinate (x,y,z) within a box of dims
// (dx,dy,dz) to its destination coordinate under m.
func MapCoord(m Matrix3, x, y, z, dx, dy, dz int) (nx, ny, nz int) {
	src := [3]int{x, y, z}
	dims := [3]int{dx, dy, dz}
	out := [3]int{}
	for r := 0; r < 3; r++ {
		axis := m.Perm[r]
		v := src[axis]
		if m.Sign[r] < 0 {
			v = dims[axis] - 1 - v
		}
		out[r] = v
	}
	return out[0], out[1], out[2]
}
