// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package gridgo

import (
	"sync/atomic"

	"github.com/gomlx/exceptions"

	"github.com/loopkit/loopkit/backends"
	"github.com/loopkit/loopkit/kernel"
)

// unitRun is the per-unit view of one launch: the unit's coordinates in the
// hierarchy, the user body and a reusable argument buffer. It implements
// backends.Indexer, the coordinate capability the indexer policies consume.
type unitRun struct {
	cfg               Config
	block, warp, lane int

	body        kernel.Body
	args        kernel.Args
	invocations *atomic.Int64 // nil unless launch stats are enabled.
}

// Compile-time check.
var _ backends.Indexer = (*unitRun)(nil)

// Coordinate implements backends.Indexer.
func (u *unitRun) Coordinate(level kernel.Level) int {
	switch level {
	case kernel.LevelLane:
		return u.lane
	case kernel.LevelWarp:
		return u.warp
	default: // kernel.LevelBlock
		return u.block
	}
}

// GroupSize implements backends.Indexer.
func (u *unitRun) GroupSize(level kernel.Level) int {
	switch level {
	case kernel.LevelLane:
		return u.cfg.LanesPerWarp
	case kernel.LevelWarp:
		return u.cfg.WarpsPerBlock
	default: // kernel.LevelBlock
		return u.cfg.Blocks
	}
}

// executor is one compiled statement node. exec assigns the owned
// dimension's offset (and count slot, if any) for every iteration this unit
// drives, and descends into the enclosed executors with
// active && (local index < dimension length). Inactive units descend too,
// keeping all units of a group structurally aligned.
type executor interface {
	exec(u *unitRun, data *kernel.Data, active bool)
}

// executorBuilder resolves one For statement against this backend's
// hierarchy shape. Builders panic on specialization-time contract
// violations (mask wider than the warp).
type executorBuilder func(cfg Config, stmt *kernel.ForStmt, enclosed []executor) executor

// executorBuilders is the (policy kind -> executor) dispatch table for the
// grid backend, consulted once per statement at compile time.
var executorBuilders = map[kernel.PolicyKind]executorBuilder{
	kernel.PolicySequential:   newSeqLoop,
	kernel.PolicyLaneDirect:   newLaneDirect,
	kernel.PolicyLaneLoop:     newLaneLoop,
	kernel.PolicyMaskedDirect: newMaskedDirect,
	kernel.PolicyMaskedLoop:   newMaskedLoop,
	kernel.PolicyIndexDirect:  newIndexDirect,
	kernel.PolicyIndexLoop:    newIndexLoop,
}

func (e *Executable) compileList(stmts []kernel.Statement) []executor {
	out := make([]executor, len(stmts))
	for i, s := range stmts {
		out[i] = e.compileStatement(s)
	}
	return out
}

func (e *Executable) compileStatement(s kernel.Statement) executor {
	switch stmt := s.(type) {
	case *kernel.ForStmt:
		builder, found := executorBuilders[stmt.Pol.Kind]
		if !found {
			exceptions.Panicf("gridgo: no executor for policy %s", stmt.Pol)
		}
		return builder(e.backend.cfg, stmt, e.compileList(stmt.Enclosed))
	case *kernel.LambdaStmt:
		return &lambdaExec{dirs: stmt.Dirs}
	}
	exceptions.Panicf("gridgo: unknown statement type %T", s)
	return nil
}

// loopLevel is the part every For executor shares.
type loopLevel struct {
	dim       int
	countSlot int // -1 when absent.
	enclosed  []executor
}

func levelOf(stmt *kernel.ForStmt, enclosed []executor) loopLevel {
	return loopLevel{dim: stmt.Dim, countSlot: stmt.CountSlot, enclosed: enclosed}
}

// drive runs one iteration at local index i: bind offset (and count), then
// descend.
func (l *loopLevel) drive(u *unitRun, data *kernel.Data, i int, active bool) {
	data.AssignOffset(l.dim, i)
	if l.countSlot >= 0 {
		data.AssignParam(l.countSlot, i)
	}
	for _, child := range l.enclosed {
		child.exec(u, data, active)
	}
}

// seqLoop executes the level as a software loop on the calling unit,
// whatever its coordinates. Activity passes through unchanged.
type seqLoop struct{ loopLevel }

func newSeqLoop(_ Config, stmt *kernel.ForStmt, enclosed []executor) executor {
	return &seqLoop{levelOf(stmt, enclosed)}
}

func (x *seqLoop) exec(u *unitRun, data *kernel.Data, active bool) {
	length := data.SegmentLen(x.dim)
	for i := 0; i < length; i++ {
		x.drive(u, data, i, active)
	}
}

// laneDirect maps the unit's lane coordinate directly to the offset, one
// shot. Lanes beyond the dimension length descend inactive; lanes beyond
// the warp width never map, so the dimension is only covered when
// length <= LanesPerWarp (caller contract).
type laneDirect struct{ loopLevel }

func newLaneDirect(_ Config, stmt *kernel.ForStmt, enclosed []executor) executor {
	return &laneDirect{levelOf(stmt, enclosed)}
}

func (x *laneDirect) exec(u *unitRun, data *kernel.Data, active bool) {
	length := data.SegmentLen(x.dim)
	i := u.lane
	x.drive(u, data, i, active && i < length)
}

// laneLoop re-covers the dimension in chunks of the warp width: lane l
// handles offsets l, l+width, l+2*width, ... Every lane runs the same
// number of chunks; the trailing partial chunk runs with out-of-range lanes
// inactive.
type laneLoop struct{ loopLevel }

func newLaneLoop(_ Config, stmt *kernel.ForStmt, enclosed []executor) executor {
	return &laneLoop{levelOf(stmt, enclosed)}
}

func (x *laneLoop) exec(u *unitRun, data *kernel.Data, active bool) {
	length := data.SegmentLen(x.dim)
	init := u.lane
	stride := u.cfg.LanesPerWarp
	for ii := 0; ii < length; ii += stride {
		i := ii + init
		x.drive(u, data, i, active && i < length)
	}
}

// maskedDirect maps the masked, renumbered lane coordinate directly to the
// offset, one shot.
type maskedDirect struct {
	loopLevel
	mask kernel.BitMask
}

func newMaskedDirect(cfg Config, stmt *kernel.ForStmt, enclosed []executor) executor {
	checkMask(cfg, stmt.Pol.Mask)
	return &maskedDirect{loopLevel: levelOf(stmt, enclosed), mask: stmt.Pol.Mask}
}

func (x *maskedDirect) exec(u *unitRun, data *kernel.Data, active bool) {
	length := data.SegmentLen(x.dim)
	i := x.mask.MaskValue(u.lane)
	x.drive(u, data, i, active && i < length)
}

// maskedLoop strides the masked lane coordinate by the mask capacity until
// the dimension is covered.
type maskedLoop struct {
	loopLevel
	mask kernel.BitMask
}

func newMaskedLoop(cfg Config, stmt *kernel.ForStmt, enclosed []executor) executor {
	checkMask(cfg, stmt.Pol.Mask)
	return &maskedLoop{loopLevel: levelOf(stmt, enclosed), mask: stmt.Pol.Mask}
}

func (x *maskedLoop) exec(u *unitRun, data *kernel.Data, active bool) {
	length := data.SegmentLen(x.dim)
	init := x.mask.MaskValue(u.lane)
	stride := x.mask.MaxMaskedSize()
	for ii := 0; ii < length; ii += stride {
		i := ii + init
		x.drive(u, data, i, active && i < length)
	}
}

func checkMask(cfg Config, mask kernel.BitMask) {
	if mask.MaxMaskedSize() > cfg.LanesPerWarp {
		exceptions.Panicf("gridgo: %s has capacity %d, too large for the warp width %d",
			mask, mask.MaxMaskedSize(), cfg.LanesPerWarp)
	}
}

// indexDirect maps the unit's coordinate at an arbitrary hierarchy level
// directly to the offset, one shot. It generalizes laneDirect to any level
// through the Indexer capability instead of one executor per level.
type indexDirect struct {
	loopLevel
	level kernel.Level
}

func newIndexDirect(_ Config, stmt *kernel.ForStmt, enclosed []executor) executor {
	return &indexDirect{loopLevel: levelOf(stmt, enclosed), level: stmt.Pol.Level}
}

func (x *indexDirect) exec(u *unitRun, data *kernel.Data, active bool) {
	length := data.SegmentLen(x.dim)
	i := u.Coordinate(x.level)
	x.drive(u, data, i, active && i < length)
}

// indexLoop strides the coordinate at the chosen level by the group size at
// that level: the grid-stride (or warp-stride, or lane-stride) loop.
type indexLoop struct {
	loopLevel
	level kernel.Level
}

func newIndexLoop(_ Config, stmt *kernel.ForStmt, enclosed []executor) executor {
	return &indexLoop{loopLevel: levelOf(stmt, enclosed), level: stmt.Pol.Level}
}

func (x *indexLoop) exec(u *unitRun, data *kernel.Data, active bool) {
	length := data.SegmentLen(x.dim)
	init := u.Coordinate(x.level)
	stride := u.GroupSize(x.level)
	for ii := 0; ii < length; ii += stride {
		i := ii + init
		x.drive(u, data, i, active && i < length)
	}
}

// lambdaExec invokes the user body with the bound argument tuple.
// Inactive units reach this point too (barrier alignment) but never invoke
// the body.
type lambdaExec struct {
	dirs []kernel.Directive
}

func (l *lambdaExec) exec(u *unitRun, data *kernel.Data, active bool) {
	if !active {
		return
	}
	args := u.args[:len(l.dirs)]
	kernel.BindArgs(l.dirs, data, args)
	u.body(args)
	if u.invocations != nil {
		u.invocations.Add(1)
	}
}
