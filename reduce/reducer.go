// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package reduce

import (
	"math"

	"github.com/loopkit/loopkit/kernel"
)

// Reducer pairs a working value with the externally visible result location
// it resolves into. It implements kernel.Reduction over any Operator.
//
// The working value is meaningful only between Init and Resolve. After
// Resolve the external result has been updated exactly once; the Reducer
// must be re-initialized (by a new launch) before it is used again.
type Reducer[T any] struct {
	op     Operator[T]
	slot   int
	val    T
	target *T
}

// NewReducer binds parameter slot to an accumulator merged with op and
// resolved into target. The body reads and updates the accumulator through
// the Param(slot) directive.
func NewReducer[T any](slot int, op Operator[T], target *T) *Reducer[T] {
	return &Reducer[T]{op: op, slot: slot, target: target}
}

// Slot implements kernel.Reduction.
func (r *Reducer[T]) Slot() int { return r.slot }

// Identity implements kernel.Reduction.
func (r *Reducer[T]) Identity() any { return r.op.Identity() }

// Fold implements kernel.Reduction.
func (r *Reducer[T]) Fold(a, b any) any { return r.op.Combine(a.(T), b.(T)) }

// Init implements kernel.Reduction: working value <- identity.
func (r *Reducer[T]) Init() { r.val = r.op.Identity() }

// Combine implements kernel.Reduction: working value <- op(working, partial).
func (r *Reducer[T]) Combine(partial any) { r.val = r.op.Combine(r.val, partial.(T)) }

// Resolve implements kernel.Reduction: *target <- op(working, *target).
// The caller guarantees no other writer is active on target.
func (r *Reducer[T]) Resolve() { *r.target = r.op.Combine(r.val, *r.target) }

// Compile-time check.
var _ kernel.Reduction = (*Reducer[int])(nil)

// lowest returns the smallest representable value of T (-Inf for floats).
func lowest[T Number]() T {
	var v T
	switch p := any(&v).(type) {
	case *int:
		*p = math.MinInt
	case *int8:
		*p = math.MinInt8
	case *int16:
		*p = math.MinInt16
	case *int32:
		*p = math.MinInt32
	case *int64:
		*p = math.MinInt64
	case *float32:
		*p = float32(math.Inf(-1))
	case *float64:
		*p = math.Inf(-1)
	default:
		// Unsigned kinds: zero value is already the lowest.
	}
	return v
}

// highest returns the largest representable value of T (+Inf for floats).
func highest[T Number]() T {
	var v T
	switch p := any(&v).(type) {
	case *int:
		*p = math.MaxInt
	case *int8:
		*p = math.MaxInt8
	case *int16:
		*p = math.MaxInt16
	case *int32:
		*p = math.MaxInt32
	case *int64:
		*p = math.MaxInt64
	case *uint:
		*p = math.MaxUint
	case *uint8:
		*p = math.MaxUint8
	case *uint16:
		*p = math.MaxUint16
	case *uint32:
		*p = math.MaxUint32
	case *uint64:
		*p = math.MaxUint64
	case *uintptr:
		*p = ^uintptr(0)
	case *float32:
		*p = float32(math.Inf(1))
	case *float64:
		*p = math.Inf(1)
	}
	return v
}
