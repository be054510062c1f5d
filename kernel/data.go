// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package kernel

// Data is the iteration state record of one loop-nest invocation: the
// segment bound to each dimension, the current offset within it, and the
// current value of each parameter slot.
//
// A Data is owned by the call that starts the nest. Statement executors
// mutate it in place while descending; parallel backends give every
// execution unit its own Clone, so units never share a Data. A dimension's
// offset is undefined until some enclosing loop level has assigned it.
type Data struct {
	segments []Segment
	offsets  []int
	params   []any
}

// NewData creates the iteration state for a nest over the given segments
// (indexed by dimension id) with the given initial parameter slot values
// (indexed by slot id).
func NewData(segments []Segment, params ...any) *Data {
	return &Data{
		segments: segments,
		offsets:  make([]int, len(segments)),
		params:   params,
	}
}

// NumDims returns the number of bound dimensions.
func (d *Data) NumDims() int { return len(d.segments) }

// NumParams returns the number of parameter slots.
func (d *Data) NumParams() int { return len(d.params) }

// Segment returns the segment bound to the given dimension.
func (d *Data) Segment(dim int) Segment { return d.segments[dim] }

// SegmentLen returns the trip count of the given dimension.
func (d *Data) SegmentLen(dim int) int { return d.segments[dim].Len() }

// AssignOffset sets the current offset of the given dimension.
// Called by statement executors, once per driven iteration.
func (d *Data) AssignOffset(dim, offset int) { d.offsets[dim] = offset }

// Offset returns the current offset of the given dimension.
func (d *Data) Offset(dim int) int { return d.offsets[dim] }

// AssignParam sets the current value of the given parameter slot.
func (d *Data) AssignParam(slot int, value any) { d.params[slot] = value }

// Param returns the current value of the given parameter slot.
func (d *Data) Param(slot int) any { return d.params[slot] }

// Clone returns a copy with its own offsets and parameter values.
// Segments are shared: they are read-only during execution.
func (d *Data) Clone() *Data {
	c := &Data{
		segments: d.segments,
		offsets:  make([]int, len(d.offsets)),
		params:   make([]any, len(d.params)),
	}
	copy(c.offsets, d.offsets)
	copy(c.params, d.params)
	return c
}
