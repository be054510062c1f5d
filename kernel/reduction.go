// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package kernel

// Reduction is the engine-facing contract of one accumulator merged across
// execution units. Package reduce provides the generic implementation; the
// backends only see this interface.
//
// Lifecycle, per launch:
//  1. Init, exactly once, before the nest starts: working value <- identity.
//     Each unit's Data clone also gets Identity() assigned to Slot(), so the
//     body accumulates into a unit-local value.
//  2. Combine, zero or more times, with unit/group partials. Backends must
//     order combines hierarchically: all partials of a level are complete
//     before they are folded into the next level up. Fold is the pure
//     operator backends use for that intra-hierarchy folding.
//  3. Resolve, exactly once, after the nest: the externally visible result
//     location <- op(working value, previous result). The backend must
//     guarantee Resolve is the only writer of that location when it runs.
//
// Operators must be associative and commutative: hierarchical backends fold
// partials in unit order within a group but give no cross-group ordering.
type Reduction interface {
	// Slot returns the parameter slot the body accumulates into.
	Slot() int

	// Identity returns the operator's identity element.
	Identity() any

	// Fold applies the operator to two partials.
	Fold(a, b any) any

	// Init resets the working value to the identity.
	Init()

	// Combine folds a partial into the working value.
	Combine(partial any)

	// Resolve commits the working value into the external result,
	// exactly once.
	Resolve()
}
