// Package rule implements the rewrite rule type: input/output patterns,
// wildcard mask, per-cell trigger shifts, and symmetry-closure expansion.
package rule

import (
	"fmt"
	"strings"

	"rewriteengine/internal/grid"
	"rewriteengine/internal/symmetry"
)

// Offset is a 3D cell offset within a rule's input box.
type Offset struct {
	DX, DY, DZ int
}

// Rule is an immutable, fully expanded rewrite rule.
type Rule struct {
	IMX, IMY, IMZ int
	OMX, OMY, OMZ int

	Input  []grid.Mask // per input cell, accepted value bitmask
	Output []uint8     // per output cell, value or DontCare

	P float64

	// IShifts[v] lists every input-cell offset at which value v is
	// accepted, used by the matcher to enumerate match-anchor candidates
	// from an observed grid value.
	IShifts [][]Offset

	Original bool
}

// Spec is the as-written rule before symmetry expansion.
type Spec struct {
	In, Out  string
	P        float64
	Symmetry string
}

// Build parses spec against g's alphabet and expands it over the
// symmetry group sym, returning one Rule per distinct transform (the
// as-written rule plus any genuinely distinct symmetric duplicates).
func Build(g *grid.Grid, spec Spec, sym *symmetry.Group) ([]*Rule, error) {
	inPat, err := parsePattern(spec.In)
	if err != nil {
		return nil, err
	}
	outPat, err := parsePattern(spec.Out)
	if err != nil {
		return nil, err
	}
	if inPat.DX != outPat.DX || inPat.DY != outPat.DY || inPat.DZ != outPat.DZ {
		return nil, fmt.Errorf("rule: input pattern %q and output pattern %q have different dimensions", spec.In, spec.Out)
	}

	input, err := compileInput(g, inPat)
	if err != nil {
		return nil, err
	}
	output, err := compileOutput(g, outPat)
	if err != nil {
		return nil, err
	}

	p := spec.P
	if p <= 0 {
		p = 1
	}

	dx, dy, dz := inPat.DX, inPat.DY, inPat.DZ

	seen := map[string]bool{}
	var out []*Rule

	for _, m := range sym.Elements() {
		ti, ndx, ndy, ndz := transformMasks(m, input, dx, dy, dz)
		to, _, _, _ := transformBytes(m, output, dx, dy, dz)

		key := canonicalKey(ti, to, ndx, ndy, ndz)
		if seen[key] {
			continue
		}
		seen[key] = true

		r := &Rule{
			IMX: ndx, IMY: ndy, IMZ: ndz,
			OMX: ndx, OMY: ndy, OMZ: ndz,
			Input:    ti,
			Output:   to,
			P:        p,
			Original: m == symmetry.Identity,
		}
		r.IShifts = buildIShifts(r.Input, ndx, ndy, ndz, g.C)
		out = append(out, r)
	}
	return out, nil
}

func transformMasks(m symmetry.Matrix3, cells []grid.Mask, dx, dy, dz int) ([]grid.Mask, int, int, int) {
	ndx, ndy, ndz := symmetry.TransformDims(m, dx, dy, dz)
	out := make([]grid.Mask, len(cells))
	for z := 0; z < dz; z++ {
		for y := 0; y < dy; y++ {
			for x := 0; x < dx; x++ {
				nx, ny, nz := symmetry.MapCoord(m, x, y, z, dx, dy, dz)
				out[nx+ny*ndx+nz*ndx*ndy] = cells[x+y*dx+z*dx*dy]
			}
		}
	}
	return out, ndx, ndy, ndz
}

func transformBytes(m symmetry.Matrix3, cells []uint8, dx, dy, dz int) ([]uint8, int, int, int) {
	ndx, ndy, ndz := symmetry.TransformDims(m, dx, dy, dz)
	out := make([]uint8, len(cells))
	for z := 0; z < dz; z++ {
		for y := 0; y < dy; y++ {
			for x := 0; x < dx; x++ {
				nx, ny, nz := symmetry.MapCoord(m, x, y, z, dx, dy, dz)
				out[nx+ny*ndx+nz*ndx*ndy] = cells[x+y*dx+z*dx*dy]
			}
		}
	}
	return out, ndx, ndy, ndz
}

func canonicalKey(input []grid.Mask, output []uint8, dx, dy, dz int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d,%d,%d|", dx, dy, dz)
	for _, m := range input {
		fmt.Fprintf(&sb, "%x.%x.%x.%x;", m[0], m[1], m[2], m[3])
	}
	sb.WriteByte('|')
	for _, v := range output {
		fmt.Fprintf(&sb, "%x;", v)
	}
	return sb.String()
}

// buildIShifts indexes every (value, offset) pair where the input cell at
// offset accepts value, across all C alphabet values including wildcard
// cells (which accept every value). Correctness does not depend on
// skipping wildcard cells; it only costs a few redundant candidates.
func buildIShifts(input []grid.Mask, dx, dy, dz, c int) [][]Offset {
	shifts := make([][]Offset, c)
	for z := 0; z < dz; z++ {
		for y := 0; y < dy; y++ {
			for x := 0; x < dx; x++ {
				mask := input[x+y*dx+z*dx*dy]
				for v := 0; v < c; v++ {
					if mask.Test(v) {
						shifts[v] = append(shifts[v], Offset{DX: x, DY: y, DZ: z})
					}
				}
			}
		}
	}
	return shifts
}
