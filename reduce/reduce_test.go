// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package reduce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intOperators() map[string]Operator[int] {
	return map[string]Operator[int]{
		"sum":    Sum[int](),
		"prod":   Prod[int](),
		"max":    Max[int](),
		"min":    Min[int](),
		"bitand": BitAnd[int](),
		"bitor":  BitOr[int](),
	}
}

func TestOperators_IdentityRoundTrip(t *testing.T) {
	// init -> combine(identity, x) -> resolve against a target holding the
	// identity must yield exactly x.
	for name, op := range intOperators() {
		target := op.Identity()
		r := NewReducer(0, op, &target)
		r.Init()
		r.Combine(13)
		r.Resolve()
		assert.Equalf(t, 13, target, "operator %s", name)
	}
}

func TestOperators_Associativity(t *testing.T) {
	values := []int{-7, 0, 1, 3, 12, 255}
	for name, op := range intOperators() {
		for _, a := range values {
			for _, b := range values {
				for _, c := range values {
					left := op.Combine(op.Combine(a, b), c)
					right := op.Combine(a, op.Combine(b, c))
					require.Equalf(t, left, right, "operator %s with (%d,%d,%d)", name, a, b, c)
				}
			}
		}
	}
}

func TestOperators_Commutativity(t *testing.T) {
	values := []int{-7, 0, 1, 3, 12, 255}
	for name, op := range intOperators() {
		for _, a := range values {
			for _, b := range values {
				require.Equalf(t, op.Combine(a, b), op.Combine(b, a),
					"operator %s with (%d,%d)", name, a, b)
			}
		}
	}
}

func TestOperators_Identities(t *testing.T) {
	assert.Equal(t, 0, Sum[int]().Identity())
	assert.Equal(t, 1, Prod[int]().Identity())
	assert.Equal(t, math.MinInt, Max[int]().Identity())
	assert.Equal(t, math.MaxInt, Min[int]().Identity())
	assert.Equal(t, -1, BitAnd[int]().Identity())
	assert.Equal(t, 0, BitOr[int]().Identity())

	assert.Equal(t, uint8(math.MaxUint8), Min[uint8]().Identity())
	assert.Equal(t, uint8(0), Max[uint8]().Identity())
	assert.True(t, math.IsInf(float64(Max[float32]().Identity()), -1))
	assert.True(t, math.IsInf(Min[float64]().Identity(), 1))
}

func TestReducer_ResolveFoldsIntoTarget(t *testing.T) {
	// Resolve is a read-modify-write: it folds the working value into
	// whatever the external result already holds.
	target := 100
	r := NewReducer(2, Sum[int](), &target)
	assert.Equal(t, 2, r.Slot())
	assert.Equal(t, 0, r.Identity())

	r.Init()
	r.Combine(4)
	r.Combine(6)
	r.Resolve()
	assert.Equal(t, 110, target)
}

func TestReducer_FoldUsesOperator(t *testing.T) {
	var target float64
	r := NewReducer(0, Max[float64](), &target)
	assert.Equal(t, 3.5, r.Fold(3.5, -2.0))
	assert.Equal(t, 3.5, r.Fold(-2.0, 3.5))
}
