// Package interp implements the engine's outer driver: a lazy,
// pull-based snapshot producer over a node tree, per spec.md §4.7 and
// the "generator coroutines" re-architecture note in §9 (a hand-written
// state machine over an explicit cursor, rather than a language
// coroutine).
package interp

import (
	"log"

	"github.com/google/uuid"

	"rewriteengine/internal/grid"
	"rewriteengine/internal/node"
	"rewriteengine/internal/rng"
)

// Snapshot is the observable tuple emitted to the renderer (spec.md §6).
type Snapshot struct {
	State      []byte
	Legend     string
	FX, FY, FZ int
}

// Interpreter drives root against g, producing one Snapshot per outer
// tick in which the tree made observable progress, until the root
// returns FAIL or the outer step cap is exhausted; a SUCCESS tick emits
// its snapshot and the run continues.
type Interpreter struct {
	RunID uuid.UUID

	root *node.Node
	g    *grid.Grid
	ctx  *node.Context
	log  *log.Logger

	maxSteps int
	ticks    int

	finished    bool
	finalStatus node.Status
	stepCapped  bool
}

// New constructs an Interpreter over root and g, seeded deterministically
// from seed. steps <= 0 means unbounded outer ticks. logger may be nil,
// in which case diagnostics are discarded.
func New(root *node.Node, g *grid.Grid, seed int64, steps int, logger *log.Logger) *Interpreter {
	if logger == nil {
		logger = log.New(discard{}, "", 0)
	}
	root.Reset()
	return &Interpreter{
		RunID:    uuid.New(),
		root:     root,
		g:        g,
		ctx:      &node.Context{Grid: g, RNG: rng.New(seed)},
		log:      logger,
		maxSteps: steps,
	}
}

// StepCapped reports whether a FAIL outcome was caused by exhausting the
// outer step cap rather than the root node itself returning FAIL.
func (ip *Interpreter) StepCapped() bool { return ip.stepCapped }

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Step advances the interpreter by one outer tick. emitted reports
// whether a Snapshot was produced this call: false on HALT (search
// suspended mid-step; call Step again to resume) or once the run has
// already terminated on a prior call.
func (ip *Interpreter) Step() (snap Snapshot, status node.Status, emitted bool) {
	if ip.finished {
		return ip.snapshot(), ip.finalStatus, false
	}

	if ip.maxSteps > 0 && ip.ticks >= ip.maxSteps {
		ip.finished = true
		ip.finalStatus = node.FAIL
		ip.stepCapped = true
		ip.log.Printf("run %s: step cap %d reached", ip.RunID, ip.maxSteps)
		return ip.snapshot(), node.FAIL, true
	}

	ip.g.BeginTurn()
	st := node.Walk(ip.root, ip.ctx)

	switch st {
	case node.HALT:
		return Snapshot{}, node.HALT, false
	case node.SUCCESS:
		ip.ticks++
		return ip.snapshot(), node.SUCCESS, true
	default: // FAIL
		ip.finished = true
		ip.finalStatus = node.FAIL
		ip.log.Printf("run %s: root FAIL after %d ticks", ip.RunID, ip.ticks)
		return ip.snapshot(), node.FAIL, true
	}
}

// Run drives the interpreter to completion, invoking onSnapshot for
// every emitted snapshot, and returns the terminal status. Callers
// needing cooperative suspension (e.g. a wall-clock budget per tick)
// should call Step directly instead.
func (ip *Interpreter) Run(onSnapshot func(Snapshot)) node.Status {
	for {
		snap, status, emitted := ip.Step()
		if emitted && onSnapshot != nil {
			onSnapshot(snap)
		}
		if ip.finished {
			return status
		}
	}
}

func (ip *Interpreter) snapshot() Snapshot {
	state := make([]byte, len(ip.g.State()))
	copy(state, ip.g.State())
	return Snapshot{
		State:  state,
		Legend: ip.g.Legend(),
		FX:     ip.g.MX, FY: ip.g.MY, FZ: ip.g.MZ,
	}
}
