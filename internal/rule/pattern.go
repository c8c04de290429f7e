package rule

import (
	"fmt"
	"strings"

	"rewriteengine/internal/grid"
)

// Pattern is a parsed input or output box: cells in row-major,
// plane-major order (x fastest, then y, then z), with dimensions.
type Pattern struct {
	DX, DY, DZ int
	Cells      []rune // one rune per cell, '*' for wildcard
}

// parsePattern parses the grammar from spec.md §6: planes separated by
// '/', rows separated by ',', cells concatenated with no separator. Every
// plane must have the same row count and every row the same cell count.
func parsePattern(s string) (Pattern, error) {
	planes := strings.Split(s, "/")
	var p Pattern
	p.DZ = len(planes)

	for zi, plane := range planes {
		rows := strings.Split(plane, ",")
		if zi == 0 {
			p.DY = len(rows)
		} else if len(rows) != p.DY {
			return Pattern{}, fmt.Errorf("rule: pattern %q has inconsistent row counts across planes", s)
		}
		for yi, row := range rows {
			cells := []rune(row)
			if zi == 0 && yi == 0 {
				p.DX = len(cells)
			} else if len(cells) != p.DX {
				return Pattern{}, fmt.Errorf("rule: pattern %q has inconsistent cell counts across rows", s)
			}
			p.Cells = append(p.Cells, cells...)
		}
	}
	if p.DX == 0 || p.DY == 0 || p.DZ == 0 {
		return Pattern{}, fmt.Errorf("rule: empty pattern %q", s)
	}
	return p, nil
}

// At returns the rune at local coordinate (x,y,z).
func (p Pattern) At(x, y, z int) rune {
	return p.Cells[x+y*p.DX+z*p.DX*p.DY]
}

// compileInput turns a parsed input pattern into a per-cell accept-mask,
// resolving each symbol (including union symbols) against g.
func compileInput(g *grid.Grid, p Pattern) ([]grid.Mask, error) {
	out := make([]grid.Mask, len(p.Cells))
	for i, sym := range p.Cells {
		if sym == '*' {
			out[i] = grid.FullMask(g.C)
			continue
		}
		v, ok := g.ValueOf(sym)
		if !ok {
			return nil, fmt.Errorf("rule: undeclared symbol %q in input pattern", sym)
		}
		out[i] = g.MaskOf(v)
	}
	return out, nil
}

// DontCare is the output sentinel meaning "leave this cell untouched".
const DontCare = 0xFF

// compileOutput turns a parsed output pattern into per-cell values, with
// DontCare standing in for '*'.
func compileOutput(g *grid.Grid, p Pattern) ([]uint8, error) {
	out := make([]uint8, len(p.Cells))
	for i, sym := range p.Cells {
		if sym == '*' {
			out[i] = DontCare
			continue
		}
		v, ok := g.ValueOf(sym)
		if !ok {
			return nil, fmt.Errorf("rule: undeclared symbol %q in output pattern", sym)
		}
		out[i] = uint8(v)
	}
	return out, nil
}
