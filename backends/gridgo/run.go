// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package gridgo

import (
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"k8s.io/klog/v2"

	"github.com/loopkit/loopkit/backends"
	"github.com/loopkit/loopkit/kernel"
)

// Executable is a program compiled for the grid backend.
type Executable struct {
	backend *Backend
	program *kernel.Program
	id      string
	root    []executor
}

// Compile-time check.
var _ backends.Executable = (*Executable)(nil)

// Run implements backends.Executable.
//
// Every unit of the grid runs the compiled tree against its own clone of
// data, so the iteration state is never shared across units. Reductions are
// folded strictly bottom-up: a warp's lane partials are folded (in lane
// order) only after all its lanes joined, warp partials fold per block in
// warp order, and block partials are combined and resolved by this
// goroutine alone after the whole grid joined -- the single-writer
// guarantee Resolve requires.
func (e *Executable) Run(data *kernel.Data, body kernel.Body, reductions ...kernel.Reduction) {
	e.program.CheckData(data)
	backends.CheckReductions(data, reductions)

	cfg := e.backend.cfg
	var invocations *atomic.Int64
	if klog.V(2).Enabled() {
		invocations = new(atomic.Int64)
	}
	for _, r := range reductions {
		r.Init()
	}

	numWarps := cfg.Blocks * cfg.WarpsPerBlock
	var warpPartials [][]any // [block*WarpsPerBlock+warp][reduction]
	if len(reductions) > 0 {
		warpPartials = make([][]any, numWarps)
	}

	var grid sync.WaitGroup
	grid.Add(numWarps)
	for b := 0; b < cfg.Blocks; b++ {
		for w := 0; w < cfg.WarpsPerBlock; w++ {
			warpIdx := b*cfg.WarpsPerBlock + w
			block, warp := b, w
			runWarp := func() {
				defer grid.Done()
				partials := e.runWarp(data, body, reductions, block, warp, invocations)
				if warpPartials != nil {
					warpPartials[warpIdx] = partials
				}
			}
			// Never block waiting for a pool slot while spawning: fall back
			// to running the warp on this goroutine.
			if !e.backend.pool.TryGo(runWarp) {
				runWarp()
			}
		}
	}
	grid.Wait()

	if len(reductions) > 0 {
		for ri, r := range reductions {
			for b := 0; b < cfg.Blocks; b++ {
				blockPartial := r.Identity()
				for w := 0; w < cfg.WarpsPerBlock; w++ {
					blockPartial = r.Fold(blockPartial, warpPartials[b*cfg.WarpsPerBlock+w][ri])
				}
				r.Combine(blockPartial)
			}
			r.Resolve()
		}
	}

	if invocations != nil {
		klog.Infof("gridgo: program %q (exec %s) finished, %s body invocations across %s units",
			e.program.Name(), e.id,
			humanize.Comma(invocations.Load()),
			humanize.Comma(int64(cfg.Blocks*cfg.WarpsPerBlock*cfg.LanesPerWarp)))
	}
}

// runWarp drives all lanes of one warp and returns the warp's reduction
// partials, folded in lane order after the lane barrier.
func (e *Executable) runWarp(data *kernel.Data, body kernel.Body, reductions []kernel.Reduction,
	block, warp int, invocations *atomic.Int64) []any {
	cfg := e.backend.cfg
	pool := e.backend.pool

	var lanePartials [][]any
	if len(reductions) > 0 {
		lanePartials = make([][]any, cfg.LanesPerWarp)
	}

	var lanes sync.WaitGroup
	lanes.Add(cfg.LanesPerWarp)
	for l := 0; l < cfg.LanesPerWarp; l++ {
		lane := l
		runLane := func() {
			defer lanes.Done()
			u := &unitRun{
				cfg:         cfg,
				block:       block,
				warp:        warp,
				lane:        lane,
				body:        body,
				args:        make(kernel.Args, e.program.MaxArgs()),
				invocations: invocations,
			}
			// Unit-local iteration state: offsets and parameters are private
			// to this lane, segments are shared read-only.
			d := data.Clone()
			for _, r := range reductions {
				d.AssignParam(r.Slot(), r.Identity())
			}
			for _, ex := range e.root {
				ex.exec(u, d, true)
			}
			if lanePartials != nil {
				vals := make([]any, len(reductions))
				for ri, r := range reductions {
					vals[ri] = d.Param(r.Slot())
				}
				lanePartials[lane] = vals
			}
		}
		if !pool.TryGo(runLane) {
			runLane()
		}
	}
	// Warp barrier: this goroutine may hold a pool slot, lend it out while
	// waiting for the lanes.
	pool.Sleeping()
	lanes.Wait()
	pool.Woke()

	if lanePartials == nil {
		return nil
	}
	partials := make([]any, len(reductions))
	for ri, r := range reductions {
		acc := r.Identity()
		for l := 0; l < cfg.LanesPerWarp; l++ {
			acc = r.Fold(acc, lanePartials[l][ri])
		}
		partials[ri] = acc
	}
	return partials
}
