// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package unitpool

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_RunsEveryUnit(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(3)

	const units = 50
	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(units)
	for i := 0; i < units; i++ {
		pool.Go(func() {
			defer wg.Done()
			runtime.Gosched()
			count.Add(1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(units), count.Load())
}

func TestGo_InlineWhenDisabled(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(0)

	ran := false
	pool.Go(func() { ran = true })
	// Ran inline: visible without any synchronization.
	assert.True(t, ran)
}

func TestTryGo_RefusesWhenFull(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(1)

	release := make(chan struct{})
	var wg sync.WaitGroup
	// Fill every slot with blocked units.
	started := 0
	for {
		wg.Add(1)
		ok := pool.TryGo(func() {
			defer wg.Done()
			<-release
		})
		if !ok {
			wg.Done()
			break
		}
		started++
	}
	require.Greater(t, started, 0)

	// Full: TryGo must refuse instead of blocking.
	assert.False(t, pool.TryGo(func() {}))

	close(release)
	wg.Wait()

	// Slots freed: TryGo accepts again.
	done := make(chan struct{})
	require.Eventually(t, func() bool {
		return pool.TryGo(func() { close(done) })
	}, time.Second, time.Millisecond)
	<-done
}

func TestSleeping_LendsTheSlotOut(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(1)

	barrier := make(chan struct{})
	var wg sync.WaitGroup

	// Saturate the pool with units that park at a barrier, declaring
	// themselves asleep. Each Sleeping call lends a slot to the next unit,
	// so all of them get to start even with parallelism 1.
	const units = 8
	woken := make(chan struct{}, units)
	for i := 0; i < units; i++ {
		wg.Add(1)
		pool.Go(func() {
			defer wg.Done()
			pool.Sleeping()
			<-barrier
			pool.Woke()
			woken <- struct{}{}
		})
	}
	close(barrier)
	wg.Wait()
	assert.Len(t, woken, units)
}

func TestGo_UnlimitedParallelism(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(-1)

	const units = 100
	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(units)
	for i := 0; i < units; i++ {
		pool.Go(func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(units), count.Load())
}
