// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

// Package reduce implements the three-phase reduction protocol used to
// merge per-unit accumulators into one externally visible result:
// initialize (working value <- identity), combine (working value <-
// op(working, partial)) and resolve (result <- op(working, previous
// result), exactly once).
//
// The protocol is backend-agnostic: the sequential backend combines once,
// hierarchical backends fold lane partials into warp partials, warp
// partials into block partials and block partials into the working value,
// each level strictly after all contributing units have finished. All
// provided operators are associative and commutative; non-commutative
// operators are out of contract because hierarchical backends fold in
// hardware-dependent orders.
package reduce

import (
	"golang.org/x/exp/constraints"
)

// Number is the constraint for the arithmetic and ordering operators.
type Number interface {
	constraints.Integer | constraints.Float
}

// Operator is a commutative, associative binary operator with an identity
// element.
type Operator[T any] interface {
	Identity() T
	Combine(a, b T) T
}

type opFunc[T any] struct {
	identity T
	combine  func(a, b T) T
}

func (o opFunc[T]) Identity() T      { return o.identity }
func (o opFunc[T]) Combine(a, b T) T { return o.combine(a, b) }

// Sum returns the addition operator, identity 0.
func Sum[T Number]() Operator[T] {
	return opFunc[T]{identity: 0, combine: func(a, b T) T { return a + b }}
}

// Prod returns the multiplication operator, identity 1.
func Prod[T Number]() Operator[T] {
	return opFunc[T]{identity: 1, combine: func(a, b T) T { return a * b }}
}

// Max returns the maximum operator. Its identity is the lowest value of T.
func Max[T Number]() Operator[T] {
	return opFunc[T]{identity: lowest[T](), combine: func(a, b T) T {
		if a > b {
			return a
		}
		return b
	}}
}

// Min returns the minimum operator. Its identity is the highest value of T.
func Min[T Number]() Operator[T] {
	return opFunc[T]{identity: highest[T](), combine: func(a, b T) T {
		if a < b {
			return a
		}
		return b
	}}
}

// BitAnd returns the bitwise-and operator, identity all-ones.
func BitAnd[T constraints.Integer]() Operator[T] {
	var zero T
	return opFunc[T]{identity: ^zero, combine: func(a, b T) T { return a & b }}
}

// BitOr returns the bitwise-or operator, identity 0.
func BitOr[T constraints.Integer]() Operator[T] {
	return opFunc[T]{identity: 0, combine: func(a, b T) T { return a | b }}
}
