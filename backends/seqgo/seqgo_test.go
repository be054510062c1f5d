// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package seqgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"

	"github.com/loopkit/loopkit/backends"
	"github.com/loopkit/loopkit/kernel"
	"github.com/loopkit/loopkit/reduce"
)

var backend backends.Backend

func init() {
	klog.InitFlags(nil)
}

func TestMain(m *testing.M) {
	var err error
	backend, err = backends.NewWithConfig(BackendName)
	if err != nil {
		panic(err)
	}
	m.Run()
}

func TestRun_VisitsEveryOffsetInOrder(t *testing.T) {
	const length = 10
	prog := kernel.NewProgram("visit", kernel.For(0, kernel.SeqExec(), kernel.Lambda(kernel.Offset(0))))
	exe := backend.Compile(prog)

	var visited []int
	exe.Run(kernel.NewData([]kernel.Segment{kernel.NewRange(0, length)}),
		func(args kernel.Args) { visited = append(visited, args.Int(0)) })

	require.Len(t, visited, length)
	for i, got := range visited {
		assert.Equal(t, i, got)
	}
}

func TestRun_SegmentDereference(t *testing.T) {
	// Seg directives hand the body the dereferenced iterate, Offset the raw
	// position.
	prog := kernel.NewProgram("deref",
		kernel.For(0, kernel.SeqExec(), kernel.Lambda(kernel.Seg(0), kernel.Offset(0))))
	exe := backend.Compile(prog)

	data := kernel.NewData([]kernel.Segment{kernel.NewList(30, 20, 10)})
	var pairs [][2]int
	exe.Run(data, func(args kernel.Args) {
		pairs = append(pairs, [2]int{args.Int(0), args.Int(1)})
	})
	assert.Equal(t, [][2]int{{30, 0}, {20, 1}, {10, 2}}, pairs)
}

func TestRun_NestedLoops(t *testing.T) {
	prog := kernel.NewProgram("nest2d",
		kernel.For(0, kernel.SeqExec(),
			kernel.For(1, kernel.SeqExec(),
				kernel.Lambda(kernel.OffsetRange(2)))))
	exe := backend.Compile(prog)

	data := kernel.NewData([]kernel.Segment{kernel.NewRange(0, 3), kernel.NewRange(0, 2)})
	var visited [][2]int
	exe.Run(data, func(args kernel.Args) {
		visited = append(visited, [2]int{args.Int(0), args.Int(1)})
	})
	want := [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {2, 0}, {2, 1}}
	assert.Equal(t, want, visited)
}

func TestRun_EveryPolicyCoversTheDimension(t *testing.T) {
	// On the single-unit backend every mapping policy degenerates to the
	// same ascending software loop.
	const length = 13
	policies := []kernel.Policy{
		kernel.SeqExec(),
		kernel.LaneDirect(),
		kernel.LaneLoop(),
		kernel.MaskedDirect(kernel.NewBitMask(2, 0)),
		kernel.MaskedLoop(kernel.NewBitMask(2, 0)),
		kernel.IndexDirect(kernel.LevelBlock),
		kernel.IndexLoop(kernel.LevelWarp),
	}
	for _, pol := range policies {
		t.Run(pol.String(), func(t *testing.T) {
			prog := kernel.NewProgram("cover", kernel.For(0, pol, kernel.Lambda(kernel.Offset(0))))
			exe := backend.Compile(prog)
			counts := make(map[int]int)
			exe.Run(kernel.NewData([]kernel.Segment{kernel.NewRange(0, length)}),
				func(args kernel.Args) { counts[args.Int(0)]++ })
			require.Len(t, counts, length)
			for i := 0; i < length; i++ {
				assert.Equalf(t, 1, counts[i], "offset %d", i)
			}
		})
	}
}

func TestRun_ForCountBindsLoopIndexInOrder(t *testing.T) {
	// The count parameter takes 0,1,...,L-1 in exactly that order.
	const length = 7
	prog := kernel.NewProgram("icount",
		kernel.ForCount(0, 0, kernel.SeqExec(),
			kernel.Lambda(kernel.Offset(0), kernel.Param(0))))
	exe := backend.Compile(prog)

	data := kernel.NewData([]kernel.Segment{kernel.NewRange(0, length)}, 0)
	var counts []int
	exe.Run(data, func(args kernel.Args) {
		assert.Equal(t, args.Int(0), args.Int(1)) // count == offset here
		counts = append(counts, args.Int(1))
	})
	require.Len(t, counts, length)
	for i, got := range counts {
		assert.Equal(t, i, got)
	}
}

func TestRun_SumReductionScenario(t *testing.T) {
	// Length-10 segment, sequential policy, one sum accumulator starting at
	// 0, body adds 1 each iteration: final result 10, offsets {0..9}.
	prog := kernel.NewProgram("sum10",
		kernel.For(0, kernel.SeqExec(),
			kernel.Lambda(kernel.Offset(0), kernel.Param(0))))
	exe := backend.Compile(prog)

	var result int
	red := reduce.NewReducer(0, reduce.Sum[int](), &result)
	data := kernel.NewData([]kernel.Segment{kernel.NewRange(0, 10)}, 0)

	seen := make(map[int]bool)
	exe.Run(data, func(args kernel.Args) {
		seen[args.Int(0)] = true
		acc := args.At(1)
		acc.Set(acc.Int() + 1)
	}, red)

	assert.Equal(t, 10, result)
	require.Len(t, seen, 10)

	// Re-running folds into the existing result: resolve is
	// read-modify-write against the external location.
	data = kernel.NewData([]kernel.Segment{kernel.NewRange(0, 10)}, 0)
	exe.Run(data, func(args kernel.Args) {
		acc := args.At(1)
		acc.Set(acc.Int() + 1)
	}, red)
	assert.Equal(t, 20, result)
}

func TestRun_MinReduction(t *testing.T) {
	prog := kernel.NewProgram("min",
		kernel.For(0, kernel.SeqExec(),
			kernel.Lambda(kernel.Seg(0), kernel.Param(0))))
	exe := backend.Compile(prog)

	result := reduce.Min[int]().Identity()
	red := reduce.NewReducer(0, reduce.Min[int](), &result)
	data := kernel.NewData([]kernel.Segment{kernel.NewList(42, -3, 17, 0)}, 0)
	exe.Run(data, func(args kernel.Args) {
		v := args.Int(0)
		acc := args.At(1)
		if v < acc.Int() {
			acc.Set(v)
		}
	}, red)
	assert.Equal(t, -3, result)
}

func TestRun_ChecksDataOnEntry(t *testing.T) {
	prog := kernel.NewProgram("checked", kernel.For(0, kernel.SeqExec(), kernel.Lambda(kernel.Seg(0))))
	exe := backend.Compile(prog)

	// Dimension 0 missing from the iteration state.
	require.Panics(t, func() {
		exe.Run(kernel.NewData(nil), func(kernel.Args) {})
	})
	// Reduction slot missing.
	require.Panics(t, func() {
		var result int
		exe.Run(kernel.NewData([]kernel.Segment{kernel.NewRange(0, 1)}),
			func(kernel.Args) {}, reduce.NewReducer(3, reduce.Sum[int](), &result))
	})
}
