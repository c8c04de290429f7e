package loader

import (
	"encoding/json"
	"fmt"
	"strconv"

	"rewriteengine/internal/grid"
	"rewriteengine/internal/node"
)

type pathGenDoc struct {
	From  string `json:"from"`
	To    string `json:"to"`
	On    string `json:"on"`
	Color string `json:"color"`
}

type mapGenDoc struct {
	Table map[string][]string `json:"table"`
	N     int                 `json:"n"`
}

type convolutionGenDoc struct {
	Kernel   [][2]int          `json:"kernel"`
	Values   string            `json:"values"`
	Rewrites map[string]string `json:"rewrites"`
	Periodic bool              `json:"periodic"`
}

type synthesisGenDoc struct {
	SampleN     int     `json:"sample_n"`
	Temperature float64 `json:"temperature"`
}

func symbolValue(g *grid.Grid, s, element string) (uint8, error) {
	if len(s) != 1 {
		return 0, &LoadError{Element: element, Msg: fmt.Sprintf("%q must be a single character", s)}
	}
	v, ok := g.ValueOf(rune(s[0]))
	if !ok {
		return 0, &LoadError{Element: element, Msg: fmt.Sprintf("undeclared symbol %q", s)}
	}
	return uint8(v), nil
}

func decodeGen(g *grid.Grid, kind node.Kind, raw json.RawMessage, n *node.Node) error {
	switch kind {
	case node.KindPath:
		var d pathGenDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return &LoadError{Element: "node.gen", Msg: err.Error()}
		}
		from, err := maskFromString(g, d.From)
		if err != nil {
			return err
		}
		to, err := maskFromString(g, d.To)
		if err != nil {
			return err
		}
		on, err := maskFromString(g, d.On)
		if err != nil {
			return err
		}
		color, err := symbolValue(g, d.Color, "node.gen.color")
		if err != nil {
			return err
		}
		n.Gen.PathFrom, n.Gen.PathTo, n.Gen.PathOn, n.Gen.PathColor = from, to, on, color
		return nil

	case node.KindMap:
		var d mapGenDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return &LoadError{Element: "node.gen", Msg: err.Error()}
		}
		table := map[uint8][]uint8{}
		for sym, block := range d.Table {
			key, err := symbolValue(g, sym, "node.gen.table")
			if err != nil {
				return err
			}
			var vals []uint8
			for _, b := range block {
				v, err := symbolValue(g, b, "node.gen.table")
				if err != nil {
					return err
				}
				vals = append(vals, v)
			}
			table[key] = vals
		}
		n.Gen.MapTable = table
		n.Gen.MapN = d.N
		if n.Gen.MapN == 0 {
			n.Gen.MapN = 1
		}
		return nil

	case node.KindConvolution:
		var d convolutionGenDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return &LoadError{Element: "node.gen", Msg: err.Error()}
		}
		values, err := maskFromString(g, d.Values)
		if err != nil {
			return err
		}
		rewrites := map[int]uint8{}
		for countStr, sym := range d.Rewrites {
			count, err := strconv.Atoi(countStr)
			if err != nil {
				return &LoadError{Element: "node.gen.rewrites", Msg: fmt.Sprintf("bad neighbor count key %q", countStr)}
			}
			v, err := symbolValue(g, sym, "node.gen.rewrites")
			if err != nil {
				return err
			}
			rewrites[count] = v
		}
		n.Gen.Kernel = d.Kernel
		n.Gen.Values = values
		n.Gen.Rewrites = rewrites
		n.Gen.Periodic = d.Periodic
		return nil

	case node.KindOverlap, node.KindConvchain:
		var d synthesisGenDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return &LoadError{Element: "node.gen", Msg: err.Error()}
		}
		n.Gen.SampleN = d.SampleN
		n.Gen.Temperature = d.Temperature
		return nil

	default:
		return nil
	}
}
