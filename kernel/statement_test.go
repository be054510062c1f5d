// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgram_TracksShape(t *testing.T) {
	p := NewProgram("nest2d",
		For(0, SeqExec(),
			ForCount(1, 2, SeqExec(),
				Lambda(SegRange(2), Offset(1), Param(0)),
			),
		),
	)
	assert.Equal(t, "nest2d", p.Name())
	assert.Equal(t, 1, p.MaxDim())
	assert.Equal(t, 2, p.MaxParamSlot()) // the ForCount slot
	assert.Equal(t, 4, p.MaxArgs())
}

func TestNewProgram_RejectsMalformedTrees(t *testing.T) {
	// A Seg directive must be bound by an enclosing For.
	require.Panics(t, func() {
		NewProgram("unbound", For(0, SeqExec(), Lambda(Seg(1))))
	})
	// Offsets too.
	require.Panics(t, func() {
		NewProgram("unbound-offset", For(0, SeqExec(), Lambda(Offset(3))))
	})
	// A sibling loop does not bind a dimension for its neighbors.
	require.Panics(t, func() {
		NewProgram("sibling",
			For(0, SeqExec(), Lambda(Seg(0))),
			Lambda(Seg(0)),
		)
	})
	require.Panics(t, func() {
		NewProgram("negative-dim", For(-1, SeqExec(), Lambda(Offset(0))))
	})
	require.Panics(t, func() {
		NewProgram("empty-for", For(0, SeqExec()))
	})
	require.Panics(t, func() { NewProgram("empty") })
}

func TestNewProgram_SiblingsAfterNestedBindAreChecked(t *testing.T) {
	// Dimension 1 is bound only inside the inner loop; a Lambda after the
	// inner loop closed must not see it.
	require.Panics(t, func() {
		NewProgram("escaped",
			For(0, SeqExec(),
				For(1, SeqExec(), Lambda(Seg(1))),
				Lambda(Seg(1)),
			),
		)
	})
	// Params never need binding by a For.
	require.NotPanics(t, func() {
		NewProgram("param-only", For(0, SeqExec(), Lambda(Param(5))))
	})
}

func TestCheckData(t *testing.T) {
	p := NewProgram("check", For(1, SeqExec(), Lambda(Seg(1), Param(0))))

	require.NotPanics(t, func() {
		p.CheckData(NewData([]Segment{NewRange(0, 1), NewRange(0, 1)}, 0))
	})
	// Missing dimension 1.
	require.Panics(t, func() {
		p.CheckData(NewData([]Segment{NewRange(0, 1)}, 0))
	})
	// Missing parameter slot 0.
	require.Panics(t, func() {
		p.CheckData(NewData([]Segment{NewRange(0, 1), NewRange(0, 1)}))
	})
}

func TestBitMask(t *testing.T) {
	m := NewBitMask(2, 0)
	assert.Equal(t, 4, m.MaxMaskedSize())
	for raw := 0; raw < 8; raw++ {
		assert.Equal(t, raw%4, m.MaskValue(raw))
	}

	// Shift discards low bits before renumbering: lanes 4..7 map to 0..3.
	shifted := NewBitMask(2, 2)
	assert.Equal(t, 0, shifted.MaskValue(3))
	assert.Equal(t, 1, shifted.MaskValue(4))
	assert.Equal(t, 1, shifted.MaskValue(7))
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "Sequential", SeqExec().String())
	assert.Equal(t, "LaneLoop", LaneLoop().String())
	assert.Equal(t, "MaskedDirect[BitMask(width=2, shift=0)]", MaskedDirect(NewBitMask(2, 0)).String())
	assert.Equal(t, "IndexLoop[Block]", IndexLoop(LevelBlock).String())
}
