// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

// Package seqgo implements the sequential LoopKit backend: strictly
// single-threaded, no suspension points, deterministic iteration order
// equal to ascending index order.
//
// There is exactly one execution unit, so every loop policy -- lane-mapped,
// masked or indexer-mapped -- degenerates to the plain software loop over
// the whole dimension. A program compiled for seqgo visits the same set of
// iterations it would on a hierarchical backend.
package seqgo

import (
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/loopkit/loopkit/backends"
	"github.com/loopkit/loopkit/kernel"
)

// BackendName to be used in LOOPKIT_BACKEND to specify this backend.
const BackendName = "seq"

func init() {
	backends.Register(BackendName, New)
}

// New constructs a sequential Backend.
// There are no configurations, the string is simply ignored.
func New(_ string) (backends.Backend, error) {
	return &Backend{}, nil
}

// Backend implements the backends.Backend interface.
type Backend struct{}

// Compile-time check.
var _ backends.Backend = (*Backend)(nil)

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string {
	return "Sequential single-threaded backend"
}

// Compile implements backends.Backend. It resolves every statement to a
// sequential executor, once; launches reuse the resulting tree.
func (b *Backend) Compile(program *kernel.Program) backends.Executable {
	e := &Executable{
		program: program,
		id:      uuid.NewString(),
		root:    compileList(program.Statements()),
	}
	klog.V(1).Infof("seqgo: compiled program %q (exec %s)", program.Name(), e.id)
	return e
}

// Executable is a program compiled for the sequential backend.
type Executable struct {
	program *kernel.Program
	id      string
	root    []executor
}

// Compile-time check.
var _ backends.Executable = (*Executable)(nil)

// Run implements backends.Executable. The body sees dimension offsets in
// ascending order, one loop level at a time, all on the calling goroutine.
func (e *Executable) Run(data *kernel.Data, body kernel.Body, reductions ...kernel.Reduction) {
	e.program.CheckData(data)
	backends.CheckReductions(data, reductions)
	for _, r := range reductions {
		r.Init()
		data.AssignParam(r.Slot(), r.Identity())
	}
	rt := &launch{body: body, args: make(kernel.Args, e.program.MaxArgs())}
	for _, ex := range e.root {
		ex.exec(rt, data, true)
	}
	// Single unit: one combine of the unit-local accumulator, then resolve.
	for _, r := range reductions {
		r.Combine(data.Param(r.Slot()))
		r.Resolve()
	}
	if klog.V(2).Enabled() {
		klog.Infof("seqgo: program %q (exec %s) finished, %s body invocations",
			e.program.Name(), e.id, humanize.Comma(rt.invocations))
	}
}
