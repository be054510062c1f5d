// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

// Package kernel defines the building blocks of a LoopKit loop nest: the
// iterate-space segments, the iteration state (Data), the statement tree
// describing each loop level and its execution policy, and the directives
// that decide which values are handed to the user's body on each iteration.
//
// A loop nest is described once as a Program and then compiled by a backend
// (see package backends) into an executable form. The same Program can be
// compiled by different backends -- sequential or hierarchical-parallel --
// and must visit the same set of iterations on all of them.
//
// To simplify error handling, construction-time contract violations panic
// with a stack trace. See package github.com/gomlx/exceptions.
package kernel

import "github.com/gomlx/exceptions"

// Body is the user-supplied loop body. It is invoked once per active
// iteration with the argument tuple selected by the innermost Lambda
// statement's directives.
//
// On parallel backends the body runs concurrently on many execution units;
// it must not share mutable state across units except through a Reduction.
type Body func(args Args)

// Value is one extracted argument handed to the Body.
//
// For Seg and Offset directives the integer value is extracted eagerly when
// the tuple is built. For Param directives the Value is a mutable alias into
// the iteration state's parameter slot, so the body can update an
// accumulator in place: the alias is modeled as an index into the Data-owned
// slot table, keeping ownership with the Data record.
type Value struct {
	kind DirectiveKind
	n    int // extracted value for Seg and Offset directives.
	data *Data
	id   int
}

// Int returns the value as an integer. For Param directives the current
// slot value must hold an int.
func (v Value) Int() int {
	if v.kind == DirectiveParam {
		return v.data.params[v.id].(int)
	}
	return v.n
}

// Get returns the current value. For Param directives it reads the slot at
// call time, so it observes in-place updates made earlier in the same
// iteration.
func (v Value) Get() any {
	if v.kind == DirectiveParam {
		return v.data.params[v.id]
	}
	return v.n
}

// Set updates the parameter slot this Value aliases.
// It is only valid for Param directives: segment iterates and offsets are
// read-only views of the iteration state.
func (v Value) Set(x any) {
	if v.kind != DirectiveParam {
		exceptions.Panicf("kernel.Value.Set: directive %s is read-only, only Param values can be set", v.kind)
	}
	v.data.params[v.id] = x
}

// Args is the positional argument tuple passed to a Body. Position i holds
// the value extracted for the i-th directive of the Lambda that triggered
// the call.
type Args []Value

// Int is shorthand for a.At(i).Int().
func (a Args) Int(i int) int { return a[i].Int() }

// At returns the i-th argument value.
func (a Args) At(i int) Value { return a[i] }
