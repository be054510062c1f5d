// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package seqgo

import (
	"github.com/gomlx/exceptions"

	"github.com/loopkit/loopkit/kernel"
)

// launch is the per-Run state threaded through the executor tree: the user
// body and a reusable argument buffer (sized once, at compile time, to the
// largest Lambda arity).
type launch struct {
	body        kernel.Body
	args        kernel.Args
	invocations int64
}

// executor is one compiled statement node.
//
// exec drives this loop level: it assigns the owned dimension's offset (and
// count slot, if any) into data for every iteration it drives, and invokes
// the enclosed executors once per iteration. active gates body side effects
// only; even inactive calls descend, so a single Run's control flow matches
// the hierarchical backends'.
type executor interface {
	exec(rt *launch, data *kernel.Data, active bool)
}

// executorBuilder resolves one For statement with an already-compiled
// enclosed list into an executor.
type executorBuilder func(stmt *kernel.ForStmt, enclosed []executor) executor

// executorBuilders is the (policy kind -> executor) dispatch table for this
// backend, consulted once per statement at compile time.
//
// On a single-unit backend every mapping policy collapses to the same
// software loop: lane and indexer coordinates are a property of hierarchical
// hardware that seqgo doesn't have, and the one unit must do all the work.
// The entries are kept separate anyway so unknown kinds fail loudly.
var executorBuilders = map[kernel.PolicyKind]executorBuilder{
	kernel.PolicySequential:   newForLoop,
	kernel.PolicyLaneDirect:   newForLoop,
	kernel.PolicyLaneLoop:     newForLoop,
	kernel.PolicyMaskedDirect: newForLoop,
	kernel.PolicyMaskedLoop:   newForLoop,
	kernel.PolicyIndexDirect:  newForLoop,
	kernel.PolicyIndexLoop:    newForLoop,
}

func compileList(stmts []kernel.Statement) []executor {
	out := make([]executor, len(stmts))
	for i, s := range stmts {
		out[i] = compileStatement(s)
	}
	return out
}

func compileStatement(s kernel.Statement) executor {
	switch stmt := s.(type) {
	case *kernel.ForStmt:
		builder, found := executorBuilders[stmt.Pol.Kind]
		if !found {
			exceptions.Panicf("seqgo: no executor for policy %s", stmt.Pol)
		}
		return builder(stmt, compileList(stmt.Enclosed))
	case *kernel.LambdaStmt:
		return &lambdaExec{dirs: stmt.Dirs}
	}
	exceptions.Panicf("seqgo: unknown statement type %T", s)
	return nil
}

// forLoop iterates a software counter 0..len-1 over its dimension.
type forLoop struct {
	dim       int
	countSlot int // -1 when absent.
	enclosed  []executor
}

func newForLoop(stmt *kernel.ForStmt, enclosed []executor) executor {
	return &forLoop{dim: stmt.Dim, countSlot: stmt.CountSlot, enclosed: enclosed}
}

func (f *forLoop) exec(rt *launch, data *kernel.Data, active bool) {
	length := data.SegmentLen(f.dim)
	for i := 0; i < length; i++ {
		data.AssignOffset(f.dim, i)
		if f.countSlot >= 0 {
			data.AssignParam(f.countSlot, i)
		}
		for _, child := range f.enclosed {
			child.exec(rt, data, active)
		}
	}
}

// lambdaExec invokes the user body with the bound argument tuple.
// Inactive iterations don't reach the body.
type lambdaExec struct {
	dirs []kernel.Directive
}

func (l *lambdaExec) exec(rt *launch, data *kernel.Data, active bool) {
	if !active {
		return
	}
	args := rt.args[:len(l.dirs)]
	kernel.BindArgs(l.dirs, data, args)
	rt.body(args)
	rt.invocations++
}
