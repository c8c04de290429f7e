package observe

import (
	"container/heap"

	"rewriteengine/internal/grid"
	"rewriteengine/internal/matcher"
	"rewriteengine/internal/rule"
)

// searchNode is one partial trajectory on the best-first frontier.
type searchNode struct {
	state    []uint8
	depth    int
	priority float64
	seq      int // insertion order, breaks priority ties deterministically
	parent   *searchNode
}

type nodeHeap []*searchNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)        { *h = append(*h, x.(*searchNode)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Search is a resumable best-first search over rule-application
// trajectories. Call Step repeatedly; it processes up to YieldEvery
// expansions per call and reports progress so callers can implement the
// engine's cooperative HALT suspension point.
type Search struct {
	g          *grid.Grid
	rules      []*rule.Rule
	future     []grid.Mask
	potentials *Potentials
	depthCoeff float64
	limit      int // <= 0 means unbounded
	yieldEvery int

	visited      map[string]bool
	frontier     nodeHeap
	seq          int
	visitedCount int
	done         bool
	trajectory   [][]uint8
	found        bool
}

// NewSearch constructs a search seeded at g's current state.
func NewSearch(g *grid.Grid, rules []*rule.Rule, future []grid.Mask, potentials *Potentials, depthCoeff float64, limit, yieldEvery int) *Search {
	if yieldEvery <= 0 {
		yieldEvery = 256
	}
	s := &Search{
		g: g, rules: rules, future: future, potentials: potentials,
		depthCoeff: depthCoeff, limit: limit, yieldEvery: yieldEvery,
		visited: map[string]bool{},
	}
	root := &searchNode{state: cloneState(g.State()), depth: 0}
	root.priority = s.heuristic(root.state)
	heap.Init(&s.frontier)
	heap.Push(&s.frontier, root)
	s.visited[stateKey(root.state)] = true
	return s
}

func cloneState(s []uint8) []uint8 {
	cp := make([]uint8, len(s))
	copy(cp, s)
	return cp
}

func stateKey(s []uint8) string {
	return string(s)
}

func (s *Search) heuristic(state []uint8) float64 {
	var total float64
	for i, v := range state {
		if s.future[i].Test(int(v)) {
			continue
		}
		d := s.potentials.MinToFuture(i, s.future[i])
		if d < 0 {
			return 1e18 // unreachable: push far to the back of the frontier
		}
		total += float64(d)
	}
	return total
}

// Step processes up to s.yieldEvery frontier expansions. done reports
// whether the search has concluded (solution found or frontier
// exhausted/limit reached); visited is the cumulative expansion count,
// reported as the cooperative progress signal.
func (s *Search) Step() (done bool, visited int) {
	if s.done {
		return true, s.visitedCount
	}

	processed := 0
	for processed < s.yieldEvery {
		if s.frontier.Len() == 0 {
			s.done = true
			break
		}
		if s.limit > 0 && s.visitedCount >= s.limit {
			s.done = true
			break
		}

		cur := heap.Pop(&s.frontier).(*searchNode)
		s.visitedCount++
		processed++

		if Satisfied(cur.state, s.future) {
			s.done = true
			s.found = true
			s.trajectory = reconstruct(cur)
			break
		}

		for _, m := range matchesAgainst(s.g, cur.state, s.rules) {
			child := applyMatch(s.g, cur.state, s.rules[m.RuleIndex], m)
			key := stateKey(child)
			if s.visited[key] {
				continue
			}
			s.visited[key] = true
			s.seq++
			node := &searchNode{state: child, depth: cur.depth + 1, seq: s.seq, parent: cur}
			node.priority = float64(node.depth) + s.depthCoeff*s.heuristic(child)
			heap.Push(&s.frontier, node)
		}
	}
	return s.done, s.visitedCount
}

// Result is only meaningful once Step has reported done; it returns the
// trajectory (length depth+1) on success, or an empty trajectory on
// exhaustion without a solution.
func (s *Search) Result() [][]uint8 {
	if !s.found {
		return nil
	}
	return s.trajectory
}

func reconstruct(n *searchNode) [][]uint8 {
	var rev [][]uint8
	for cur := n; cur != nil; cur = cur.parent {
		rev = append(rev, cur.state)
	}
	out := make([][]uint8, len(rev))
	for i, s := range rev {
		out[len(rev)-1-i] = s
	}
	return out
}

func matchesAgainst(g *grid.Grid, state []uint8, rules []*rule.Rule) []matcher.Match {
	scratch := g.Scratch(state)
	scratch.BeginTurn()
	m := matcher.New(scratch, rules)
	m.Refresh(0)
	return append([]matcher.Match(nil), m.All()...)
}

func applyMatch(g *grid.Grid, state []uint8, r *rule.Rule, m matcher.Match) []uint8 {
	scratch := g.Scratch(state)
	scratch.BeginTurn()
	matcher.Apply(scratch, r, m.X, m.Y, m.Z)
	return scratch.State()
}
