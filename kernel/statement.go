// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"github.com/gomlx/exceptions"
)

// Statement is one node of a loop-nest description: a loop level (ForStmt)
// or a body invocation (LambdaStmt). Statement trees are immutable once the
// Program is built and are shared read-only across all iterations and all
// execution units.
type Statement interface {
	isStatement()
}

// ForStmt is one loop level: it binds dimension Dim according to Pol and
// drives the enclosed statements once per live iteration. If CountSlot is
// non-negative the local loop index is additionally assigned to that
// parameter slot on every iteration (the counting "ForCount" form).
type ForStmt struct {
	Dim       int
	CountSlot int // -1 when the loop does not bind a count parameter.
	Pol       Policy
	Enclosed  []Statement
}

func (*ForStmt) isStatement() {}

// LambdaStmt invokes the user body with the argument tuple described by
// Dirs, already flattened from the ArgSpecs it was declared with.
type LambdaStmt struct {
	Dirs []Directive
}

func (*LambdaStmt) isStatement() {}

// For returns a loop level binding dimension dim with the given policy.
func For(dim int, pol Policy, enclosed ...Statement) Statement {
	return &ForStmt{Dim: dim, CountSlot: -1, Pol: pol, Enclosed: enclosed}
}

// ForCount returns a loop level binding dimension dim with the given
// policy, additionally assigning the local loop index to parameter slot.
func ForCount(dim, slot int, pol Policy, enclosed ...Statement) Statement {
	return &ForStmt{Dim: dim, CountSlot: slot, Pol: pol, Enclosed: enclosed}
}

// Lambda returns the innermost statement: invoke the user body with the
// values selected by args. Range specifications are expanded here, once.
func Lambda(args ...ArgSpec) Statement {
	return &LambdaStmt{Dirs: FlattenArgs(args...)}
}

// Program is a validated, immutable loop-nest description, ready to be
// compiled by any backend.
type Program struct {
	name  string
	stmts []Statement

	maxDim  int // Largest dimension id referenced, -1 if none.
	maxSlot int // Largest parameter slot id referenced, -1 if none.
	maxArgs int // Largest Lambda arity, for argument buffer sizing.
}

// NewProgram builds and validates a Program from the given statement tree.
//
// It panics (an exceptions.Panicf error with stack trace) if the tree
// violates its structural contract: a Seg or Offset directive referencing a
// dimension not bound by an enclosing For, a negative dimension or slot id,
// or a For enclosing no statements. Mask capacity against the backend's
// warp width is checked later, at compile time, since it is a property of
// the backend.
func NewProgram(name string, stmts ...Statement) *Program {
	p := &Program{name: name, stmts: stmts, maxDim: -1, maxSlot: -1}
	if len(stmts) == 0 {
		exceptions.Panicf("kernel.NewProgram(%q): program has no statements", name)
	}
	bound := make(map[int]bool)
	for _, s := range stmts {
		p.validate(s, bound)
	}
	return p
}

func (p *Program) validate(s Statement, bound map[int]bool) {
	switch stmt := s.(type) {
	case *ForStmt:
		if stmt.Dim < 0 {
			exceptions.Panicf("kernel.NewProgram(%q): For with negative dimension id %d", p.name, stmt.Dim)
		}
		if stmt.Dim > p.maxDim {
			p.maxDim = stmt.Dim
		}
		if stmt.CountSlot >= 0 && stmt.CountSlot > p.maxSlot {
			p.maxSlot = stmt.CountSlot
		}
		if len(stmt.Enclosed) == 0 {
			exceptions.Panicf("kernel.NewProgram(%q): For over dimension %d encloses no statements", p.name, stmt.Dim)
		}
		alreadyBound := bound[stmt.Dim]
		bound[stmt.Dim] = true
		for _, child := range stmt.Enclosed {
			p.validate(child, bound)
		}
		bound[stmt.Dim] = alreadyBound
	case *LambdaStmt:
		for _, dir := range stmt.Dirs {
			if dir.ID < 0 {
				exceptions.Panicf("kernel.NewProgram(%q): %s directive with negative id %d", p.name, dir.Kind, dir.ID)
			}
			switch dir.Kind {
			case DirectiveSeg, DirectiveOffset:
				if !bound[dir.ID] {
					exceptions.Panicf("kernel.NewProgram(%q): %s(%d) is not bound by any enclosing For",
						p.name, dir.Kind, dir.ID)
				}
				if dir.ID > p.maxDim {
					p.maxDim = dir.ID
				}
			case DirectiveParam:
				if dir.ID > p.maxSlot {
					p.maxSlot = dir.ID
				}
			}
		}
		if len(stmt.Dirs) > p.maxArgs {
			p.maxArgs = len(stmt.Dirs)
		}
	default:
		exceptions.Panicf("kernel.NewProgram(%q): unknown statement type %T", p.name, s)
	}
}

// Name returns the program's name, used in logs only.
func (p *Program) Name() string { return p.name }

// Statements returns the top-level statement list. Callers must treat the
// tree as read-only.
func (p *Program) Statements() []Statement { return p.stmts }

// MaxDim returns the largest dimension id the program references, or -1.
func (p *Program) MaxDim() int { return p.maxDim }

// MaxParamSlot returns the largest parameter slot id the program
// references, or -1. Reductions may reference higher slots; those are
// checked per launch.
func (p *Program) MaxParamSlot() int { return p.maxSlot }

// MaxArgs returns the largest Lambda arity in the program. Backends size
// per-unit argument buffers with it.
func (p *Program) MaxArgs() int { return p.maxArgs }

// CheckData panics unless data carries every dimension and parameter slot
// the program references. Backends call it on launch entry, before any
// execution starts; nothing is re-checked inside the nest.
func (p *Program) CheckData(data *Data) {
	if p.maxDim >= data.NumDims() {
		exceptions.Panicf("program %q references dimension %d but the iteration state only has %d segments",
			p.name, p.maxDim, data.NumDims())
	}
	if p.maxSlot >= data.NumParams() {
		exceptions.Panicf("program %q references parameter slot %d but the iteration state only has %d slots",
			p.name, p.maxSlot, data.NumParams())
	}
}
