// Package loader decodes a program document (the already-parsed
// equivalent of spec.md §6's XML program tree) into a grid.Grid and a
// node.Node tree, validating structure against schemas/program.schema.json
// before any semantic interpretation.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"rewriteengine/internal/field"
	"rewriteengine/internal/grid"
	"rewriteengine/internal/node"
	"rewriteengine/internal/rule"
	"rewriteengine/internal/symmetry"
)

// InvariantError marks a breach of an internal invariant the loader
// itself is responsible for maintaining (as opposed to a LoadError,
// which reports a malformed document). Per spec.md §7 these are fatal.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "loader: internal invariant breach: " + e.Msg }

// LoadError reports a malformed program document: bad pattern, unknown
// symmetry, undeclared symbol. Per spec.md §7, load errors are
// non-recoverable and name the offending element.
type LoadError struct {
	Element string
	Msg     string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loader: %s: %s", e.Element, e.Msg)
}

// Doc is the decoded shape of a program document.
type Doc struct {
	Grid GridDoc `json:"grid"`
	Root NodeDoc `json:"root"`
}

type GridDoc struct {
	MX       int           `json:"mx"`
	MY       int           `json:"my"`
	MZ       int           `json:"mz"`
	Alphabet []AlphabetDoc `json:"alphabet"`
}

type AlphabetDoc struct {
	Symbol string   `json:"symbol"`
	Union  []string `json:"union,omitempty"`
}

type NodeDoc struct {
	Kind        string          `json:"kind"`
	Children    []NodeDoc       `json:"children,omitempty"`
	Rules       []RuleDoc       `json:"rules,omitempty"`
	Steps       int             `json:"steps,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Symmetry    string          `json:"symmetry,omitempty"`
	Observe     []ObserveDoc    `json:"observe,omitempty"`
	Field       []FieldDoc      `json:"field,omitempty"`
	Gen         json.RawMessage `json:"gen,omitempty"`
}

type RuleDoc struct {
	In       string  `json:"in"`
	Out      string  `json:"out"`
	P        float64 `json:"p,omitempty"`
	Symmetry string  `json:"symmetry,omitempty"`
}

type ObserveDoc struct {
	Value            string  `json:"value"`
	From             string  `json:"from,omitempty"`
	To               string  `json:"to"`
	Search           bool    `json:"search,omitempty"`
	Limit            int     `json:"limit,omitempty"`
	DepthCoefficient float64 `json:"depth_coefficient,omitempty"`
}

type FieldDoc struct {
	Zero      string `json:"zero"`
	One       string `json:"one,omitempty"`
	Substrate string `json:"substrate,omitempty"`
	Essential bool   `json:"essential,omitempty"`
	Recompute bool   `json:"recompute,omitempty"`
}

// Result bundles everything Load produces from a program document.
type Result struct {
	Grid   *grid.Grid
	Root   *node.Node
	Digest string // sha256 hex digest of the raw document bytes
}

// Load reads, schema-validates, and decodes the program document at
// path, then builds a grid.Grid and node.Node tree from it.
func Load(path, schemaPath string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}

	if schemaPath != "" {
		sch, err := jsonschema.Compile(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("loader: compile schema %s: %w", schemaPath, err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, &LoadError{Element: path, Msg: err.Error()}
		}
		if err := sch.Validate(generic); err != nil {
			return nil, &LoadError{Element: path, Msg: err.Error()}
		}
	}

	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &LoadError{Element: path, Msg: err.Error()}
	}

	res, err := FromDoc(doc)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	res.Digest = hex.EncodeToString(sum[:])
	return res, nil
}

// FromDoc builds a grid.Grid and node.Node tree from an already-decoded
// Doc, skipping file I/O and schema validation — the seam used by tests
// and by Load after its own schema check.
func FromDoc(doc Doc) (*Result, error) {
	g, err := buildGrid(doc.Grid)
	if err != nil {
		return nil, err
	}
	root, err := buildNode(g, doc.Root, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Grid: g, Root: root}, nil
}

func buildGrid(d GridDoc) (*grid.Grid, error) {
	entries := make([]grid.AlphabetEntry, 0, len(d.Alphabet))
	for _, a := range d.Alphabet {
		if len(a.Symbol) != 1 {
			return nil, &LoadError{Element: "grid.alphabet", Msg: fmt.Sprintf("symbol %q must be a single character", a.Symbol)}
		}
		entry := grid.AlphabetEntry{Symbol: rune(a.Symbol[0])}
		for _, u := range a.Union {
			if len(u) != 1 {
				return nil, &LoadError{Element: "grid.alphabet", Msg: fmt.Sprintf("union member %q must be a single character", u)}
			}
			entry.Union = append(entry.Union, rune(u[0]))
		}
		entries = append(entries, entry)
	}
	mz := d.MZ
	if mz == 0 {
		mz = 1
	}
	g, err := grid.Load(d.MX, d.MY, mz, entries)
	if err != nil {
		return nil, &LoadError{Element: "grid", Msg: err.Error()}
	}
	return g, nil
}

func maskFromString(g *grid.Grid, s string) (grid.Mask, error) {
	var m grid.Mask
	if s == "*" {
		return grid.FullMask(g.C), nil
	}
	for _, r := range s {
		v, ok := g.ValueOf(r)
		if !ok {
			return m, &LoadError{Element: "observe.to", Msg: fmt.Sprintf("undeclared symbol %q", r)}
		}
		m = m.Or(g.MaskOf(v))
	}
	return m, nil
}

func buildNode(g *grid.Grid, d NodeDoc, parentSym *symmetry.Group) (*node.Node, error) {
	is2D := g.MZ == 1
	sym, err := symmetry.ParseString(is2D, d.Symmetry, parentSym)
	if err != nil {
		return nil, &LoadError{Element: "node.symmetry", Msg: err.Error()}
	}

	kind, isControl, err := kindOf(d.Kind)
	if err != nil {
		return nil, err
	}

	n := &node.Node{Kind: kind, Steps: d.Steps, Temperature: d.Temperature}

	if isControl {
		for _, c := range d.Children {
			cn, err := buildNode(g, c, sym)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, cn)
		}
		return n, nil
	}

	for _, rd := range d.Rules {
		rsym := sym
		if rd.Symmetry != "" {
			rsym, err = symmetry.ParseString(is2D, rd.Symmetry, sym)
			if err != nil {
				return nil, &LoadError{Element: "rule.symmetry", Msg: err.Error()}
			}
		}
		rules, err := rule.Build(g, rule.Spec{In: rd.In, Out: rd.Out, P: rd.P, Symmetry: rd.Symmetry}, rsym)
		if err != nil {
			return nil, &LoadError{Element: "rule", Msg: err.Error()}
		}
		n.Rules = append(n.Rules, rules...)
	}

	for _, od := range d.Observe {
		if len(od.Value) != 1 {
			return nil, &LoadError{Element: "observe.value", Msg: fmt.Sprintf("value %q must be a single character", od.Value)}
		}
		v, ok := g.ValueOf(rune(od.Value[0]))
		if !ok {
			return nil, &LoadError{Element: "observe.value", Msg: fmt.Sprintf("undeclared symbol %q", od.Value)}
		}
		to, err := maskFromString(g, od.To)
		if err != nil {
			return nil, err
		}
		obs := node.Observe{Value: v, To: to, Search: od.Search, Limit: od.Limit, DepthCoefficient: od.DepthCoefficient}
		if od.From != "" {
			fv, ok := g.ValueOf(rune(od.From[0]))
			if !ok {
				return nil, &LoadError{Element: "observe.from", Msg: fmt.Sprintf("undeclared symbol %q", od.From)}
			}
			obs.From, obs.HasFrom = fv, true
		}
		n.Observes = append(n.Observes, obs)
	}

	for _, fd := range d.Field {
		if len(fd.Zero) != 1 {
			return nil, &LoadError{Element: "field.zero", Msg: fmt.Sprintf("zero %q must be a single character", fd.Zero)}
		}
		zv, ok := g.ValueOf(rune(fd.Zero[0]))
		if !ok {
			return nil, &LoadError{Element: "field.zero", Msg: fmt.Sprintf("undeclared symbol %q", fd.Zero)}
		}
		f := &field.Field{Zero: zv, Essential: fd.Essential, Recompute: fd.Recompute}
		if fd.One != "" {
			ov, ok := g.ValueOf(rune(fd.One[0]))
			if !ok {
				return nil, &LoadError{Element: "field.one", Msg: fmt.Sprintf("undeclared symbol %q", fd.One)}
			}
			f.One, f.HasOne = ov, true
		}
		if fd.Substrate != "" {
			sub, err := maskFromString(g, fd.Substrate)
			if err != nil {
				return nil, err
			}
			f.Substrate = sub
		}
		n.Fields = append(n.Fields, node.Field{F: f})
	}

	if len(d.Gen) > 0 {
		if err := decodeGen(g, kind, d.Gen, n); err != nil {
			return nil, err
		}
	}

	return n, nil
}

func kindOf(s string) (node.Kind, bool, error) {
	switch s {
	case "sequence":
		return node.KindSequence, true, nil
	case "markov":
		return node.KindMarkov, true, nil
	case "one":
		return node.KindOne, false, nil
	case "all":
		return node.KindAll, false, nil
	case "prl":
		return node.KindPrl, false, nil
	case "convchain":
		return node.KindConvchain, false, nil
	case "path":
		return node.KindPath, false, nil
	case "overlap":
		return node.KindOverlap, false, nil
	case "convolution":
		return node.KindConvolution, false, nil
	case "map":
		return node.KindMap, false, nil
	default:
		return 0, false, &LoadError{Element: "node.kind", Msg: fmt.Sprintf("unrecognized node kind %q", s)}
	}
}
