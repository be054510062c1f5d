// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

// Package unitpool schedules execution-unit goroutines with a soft cap on
// parallelism, so a grid with many more units than CPUs doesn't flood the
// runtime with runnable goroutines.
package unitpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool caps how many unit goroutines run at once. The cap is soft: the
// number of live goroutines can be higher, because units that declared
// themselves asleep (waiting at a hierarchy barrier) don't count against it.
type Pool struct {
	// maxParallelism is a soft target on the limit of parallel work.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Signaled whenever numRunning decreases.
	numRunning     int

	// sleepers is the number of units currently waiting at a barrier;
	// their slots are lent out while they wait.
	sleepers atomic.Int32
}

// New returns a Pool with the default parallelism (runtime.NumCPU()).
func New() *Pool {
	p := &Pool{maxParallelism: runtime.NumCPU()}
	p.cond = sync.Cond{L: &p.mu}
	return p
}

// MaxParallelism is the soft parallelism target.
// 0 disables parallelism (everything runs inline); -1 removes the cap.
func (p *Pool) MaxParallelism() int { return p.maxParallelism }

// SetMaxParallelism changes the soft target. Only call it before any unit
// starts running; changing it mid-launch is undefined.
func (p *Pool) SetMaxParallelism(n int) { p.maxParallelism = n }

// Each parallelism slot admits this many goroutines: waits and hand-offs
// mean a unit is rarely 100% runnable.
const goroutinesPerSlot = 2

// lockedIsFull reports whether every slot is taken.
// Must be called with p.mu held.
func (p *Pool) lockedIsFull() bool {
	if p.maxParallelism == 0 {
		return true
	}
	if p.maxParallelism < 0 {
		return false
	}
	return p.numRunning >= goroutinesPerSlot*p.maxParallelism+int(p.sleepers.Load())
}

// lockedGo starts unit in its own goroutine, keeping tabs on numRunning.
// Must be called with p.mu held.
func (p *Pool) lockedGo(unit func()) {
	p.numRunning++
	go func() {
		unit()
		p.mu.Lock()
		p.numRunning--
		p.cond.Signal()
		p.mu.Unlock()
	}()
}

// TryGo starts unit in its own goroutine if a slot is free, and reports
// whether it did. When it returns false the caller typically runs the unit
// inline -- that keeps launches deadlock-free: a spawner never blocks
// waiting for a slot while holding one.
func (p *Pool) TryGo(unit func()) bool {
	if p.maxParallelism < 0 {
		p.mu.Lock()
		p.lockedGo(unit)
		p.mu.Unlock()
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lockedIsFull() {
		return false
	}
	p.lockedGo(unit)
	return true
}

// Go waits for a slot and starts unit in its own goroutine.
//
// If parallelism is disabled (MaxParallelism is 0) the unit runs inline.
// Never call Go from a goroutine that already holds a slot unless it
// declared itself asleep first; use TryGo there instead.
func (p *Pool) Go(unit func()) {
	if p.maxParallelism == 0 {
		unit()
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.lockedIsFull() {
		p.cond.Wait()
	}
	p.lockedGo(unit)
}

// Sleeping declares the calling unit blocked at a barrier, lending its slot
// out until Woke is called.
func (p *Pool) Sleeping() {
	p.sleepers.Add(1)
	p.mu.Lock()
	p.cond.Signal()
	p.mu.Unlock()
}

// Woke declares the calling unit runnable again, after Sleeping.
func (p *Pool) Woke() {
	p.sleepers.Add(-1)
}
