// Package node implements the rewrite-node tree: the tagged-union
// variants a program compiles to, the per-node run() algorithm of
// spec.md §4.4-4.6, and the depth-first cursor walk of §4.7.
package node

import (
	"math"

	"rewriteengine/internal/field"
	"rewriteengine/internal/grid"
	"rewriteengine/internal/matcher"
	"rewriteengine/internal/observe"
	"rewriteengine/internal/rng"
	"rewriteengine/internal/rule"
)

// Status is the outcome of a run() call or a cursor-walk step.
type Status int

const (
	SUCCESS Status = iota
	FAIL
	HALT
)

func (s Status) String() string {
	switch s {
	case SUCCESS:
		return "SUCCESS"
	case FAIL:
		return "FAIL"
	case HALT:
		return "HALT"
	default:
		return "UNKNOWN"
	}
}

// Kind tags the node variant a Node holds.
type Kind int

const (
	KindSequence Kind = iota
	KindMarkov
	KindOne
	KindAll
	KindPrl
	KindConvchain
	KindPath
	KindOverlap
	KindConvolution
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindMarkov:
		return "markov"
	case KindOne:
		return "one"
	case KindAll:
		return "all"
	case KindPrl:
		return "prl"
	case KindConvchain:
		return "convchain"
	case KindPath:
		return "path"
	case KindOverlap:
		return "overlap"
	case KindConvolution:
		return "convolution"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Context carries the shared, borrowed resources a node needs to run: the
// grid and the single RNG stream shared by the whole tree.
// Spec.md §9 calls for an explicit context value over a back-pointer to
// the interpreter; this is that value.
type Context struct {
	Grid *grid.Grid
	RNG  *rng.Rng
}

// Observe is one <observe> child: value/from/to plus the search knobs.
type Observe struct {
	Value, From int
	HasFrom     bool
	To          grid.Mask

	Search           bool
	Limit            int
	DepthCoefficient float64
}

// Field is one <field> child.
type Field struct {
	F *field.Field
}

// Node is a tagged-union tree node. Exactly the fields relevant to Kind
// are meaningful; the loader populates them per variant.
type Node struct {
	Kind Kind

	// Sequence/Markov.
	Children []*Node
	n        int // cursor: current child index, -1 when not entered

	// Rewrite-node fields (One/All/Prl and the supplemented generators).
	Rules       []*rule.Rule
	Steps       int
	Temperature float64
	Observes    []Observe
	Fields      []Field

	// Supplemented generator parameters (SPEC_FULL.md §4.1).
	Gen GenParams

	// Run-time state, reset by Reset().
	counter         int
	lastFired       []bool
	futureComputed  bool
	future          []grid.Mask
	potentials      *observe.Potentials
	search          *observe.Search
	trajectory      [][]uint8
	trajectoryStep  int
	mm              *matcher.Matcher
	fieldPotentials []*field.Potential
	fieldsComputed  bool
}

// GenParams bundles the parameters of the supplemented non-rewrite
// generator kinds (Path, Map, Convolution, Overlap, Convchain), each
// used only when Kind selects it.
type GenParams struct {
	// Path: connect From-masked cells to To-masked cells through On-masked
	// cells, writing Color along the path.
	PathFrom, PathTo, PathOn grid.Mask
	PathColor                uint8

	// Map: a per-cell lookup, NxN output block per input cell.
	MapTable map[uint8][]uint8
	MapN     int

	// Convolution: neighbourhood kernel plus per-count-bucket output rule.
	Kernel      [][2]int // (dx,dy) offsets, flattened 2D only (dz always 0)
	Values      grid.Mask
	Rewrites    map[int]uint8 // popcount -> written value
	Periodic    bool

	// Overlap/Convchain: sampled-pattern synthesis parameters.
	SampleN     int
	Temperature float64
}

// NewSequence/NewMarkov construct control-flow nodes.
func NewSequence(children ...*Node) *Node {
	return &Node{Kind: KindSequence, Children: children, n: -1}
}

func NewMarkov(children ...*Node) *Node {
	return &Node{Kind: KindMarkov, Children: children, n: -1}
}

// Reset clears a node's run-time state so the next run() starts clean
// (counter, observation/search memo, field memo, and the Sequence/Markov
// child cursor), then resets every child recursively.
func (n *Node) Reset() {
	n.counter = 0
	n.lastFired = make([]bool, len(n.Rules))
	n.futureComputed = false
	n.future = nil
	n.potentials = nil
	n.search = nil
	n.trajectory = nil
	n.trajectoryStep = 0
	n.mm = nil
	n.fieldPotentials = nil
	n.fieldsComputed = false
	n.n = -1
	for _, c := range n.Children {
		c.Reset()
	}
}

// LastFired reports whether rule i fired during the node's most recent
// successful run.
func (n *Node) LastFired(i int) bool {
	if i < 0 || i >= len(n.lastFired) {
		return false
	}
	return n.lastFired[i]
}

// Run executes one run() call per spec.md §4.4. For rewrite-node kinds
// (One/All/Prl and the generators) it performs the full
// future-set/search/match/field/select pipeline; Sequence/Markov delegate
// to Walk and should not be called directly with Run.
func (n *Node) Run(ctx *Context) Status {
	if n.Steps > 0 && n.counter >= n.Steps {
		return FAIL
	}

	if len(n.Observes) > 0 && !n.futureComputed {
		st := n.computeFuture(ctx)
		if st != SUCCESS {
			return st
		}
	}

	if n.mm == nil {
		n.mm = matcher.New(ctx.Grid, n.Rules)
	}
	n.mm.Refresh(ctx.Grid.TurnCount() - 1)

	if len(n.Fields) > 0 {
		st := n.computeFields(ctx)
		if st != SUCCESS {
			return st
		}
	}

	applied := n.selectAndApply(ctx)
	if !applied {
		return FAIL
	}
	n.counter++
	return SUCCESS
}

// computeFuture drives §4.6: the non-search path computes the future set
// and backward potentials once; the search path advances a resumable
// Search coroutine, returning HALT with no further node state changed
// until it completes.
func (n *Node) computeFuture(ctx *Context) Status {
	obsMap := map[int]grid.Mask{}
	searchWanted := false
	var sObs Observe
	for _, o := range n.Observes {
		obsMap[o.Value] = o.To
		if o.Search {
			searchWanted = true
			sObs = o
		}
	}

	future, ok := observe.FutureSet(ctx.Grid, obsMap)
	if !ok {
		return FAIL
	}
	n.future = future

	if !searchWanted {
		n.potentials = observe.ComputeBackwardPotentials(ctx.Grid, n.Rules, future, 0)
		n.futureComputed = true
		return SUCCESS
	}

	if n.potentials == nil {
		n.potentials = observe.ComputeBackwardPotentials(ctx.Grid, n.Rules, future, 0)
	}
	if n.search == nil {
		limit := sObs.Limit
		n.search = observe.NewSearch(ctx.Grid, n.Rules, future, n.potentials, sObs.DepthCoefficient, limit, 0)
	}

	done, _ := n.search.Step()
	if !done {
		return HALT
	}

	traj := n.search.Result()
	if len(traj) == 0 {
		return FAIL
	}
	n.trajectory = traj
	n.trajectoryStep = 0
	n.futureComputed = true
	return SUCCESS
}

func (n *Node) computeFields(ctx *Context) Status {
	anyComputed := false
	if n.fieldPotentials == nil {
		n.fieldPotentials = make([]*field.Potential, len(n.Fields))
	}
	for i, f := range n.Fields {
		if n.fieldPotentials[i] != nil && !f.F.Recompute {
			anyComputed = true
			continue
		}
		pot, ok := f.F.Compute(ctx.Grid)
		if !ok {
			if f.F.Essential {
				return FAIL
			}
			continue
		}
		n.fieldPotentials[i] = pot
		anyComputed = true
	}
	if !anyComputed {
		return FAIL
	}
	n.fieldsComputed = true
	return SUCCESS
}

// selectAndApply applies §4.5. If this node holds a completed search
// trajectory it instead replays the next recorded state transition.
func (n *Node) selectAndApply(ctx *Context) bool {
	if n.trajectory != nil {
		return n.replayTrajectoryStep(ctx)
	}

	switch n.Kind {
	case KindOne:
		return n.runOne(ctx)
	case KindAll:
		return n.runAll(ctx)
	case KindPrl:
		return n.runPrl(ctx)
	case KindConvchain:
		return n.runConvchain(ctx)
	case KindPath:
		return n.runPath(ctx)
	case KindOverlap:
		return n.runOverlap(ctx)
	case KindConvolution:
		return n.runConvolution(ctx)
	case KindMap:
		return n.runMap(ctx)
	default:
		return false
	}
}

func (n *Node) replayTrajectoryStep(ctx *Context) bool {
	if n.trajectoryStep+1 >= len(n.trajectory) {
		return false
	}
	n.trajectoryStep++
	target := n.trajectory[n.trajectoryStep]
	mx, my, mz := ctx.Grid.MX, ctx.Grid.MY, ctx.Grid.MZ
	for z := 0; z < mz; z++ {
		for y := 0; y < my; y++ {
			for x := 0; x < mx; x++ {
				idx := ctx.Grid.Index(x, y, z)
				ctx.Grid.Set(x, y, z, target[idx])
			}
		}
	}
	return true
}

// runOne implements §4.5 "One": weighted sampling with re-verification on
// staleness, retrying until the list empties.
func (n *Node) runOne(ctx *Context) bool {
	for n.mm.Count() > 0 {
		idx := n.weightedSample(ctx)
		if idx < 0 {
			return false
		}
		if !n.mm.Validate(idx) {
			continue
		}
		m := n.mm.At(idx)
		r := n.Rules[m.RuleIndex]
		if matcher.Apply(ctx.Grid, r, m.X, m.Y, m.Z) {
			n.lastFired[m.RuleIndex] = true
			return true
		}
		n.mm.RemoveAt(idx)
	}
	return false
}

func (n *Node) weightedSample(ctx *Context) int {
	count := n.mm.Count()
	if count == 0 {
		return -1
	}
	weights := make([]float64, count)
	total := 0.0
	for i := 0; i < count; i++ {
		m := n.mm.At(i)
		r := n.Rules[m.RuleIndex]
		w := r.P
		if n.Temperature > 0 {
			w *= math.Exp(n.potentialBias(ctx, m) / n.Temperature)
		}
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return ctx.RNG.Intn(count)
	}
	target := ctx.RNG.Float64() * total
	running := 0.0
	for i, w := range weights {
		running += w
		if target < running {
			return i
		}
	}
	return count - 1
}

// potentialBias sums the field-or-observation potential at every output
// cell a match would write, per spec.md §4.5. Per §9's open-question
// resolution, a rule's output cell with no backward potential on record
// contributes 0, not a penalty.
func (n *Node) potentialBias(ctx *Context, m matcher.Match) float64 {
	r := n.Rules[m.RuleIndex]
	var total float64
	for _, c := range matcher.Footprint(r, m.X, m.Y, m.Z) {
		idx := ctx.Grid.Index(c.X, c.Y, c.Z)
		if n.potentials != nil && n.future != nil {
			if d := n.potentials.MinToFuture(idx, n.future[idx]); d > 0 {
				total += float64(d)
			}
			continue
		}
		for _, fp := range n.fieldPotentials {
			if fp == nil {
				continue
			}
			total += float64(fp.At(ctx.Grid, c.X, c.Y, c.Z))
		}
	}
	return total
}
