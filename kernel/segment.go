// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package kernel

// Segment is an iterate space for one dimension of a loop nest: a bounded,
// random-access sequence of integer iterates.
//
// Segments are read-only during execution and may be shared across
// concurrently executing units. At(offset) for offset >= Len() is undefined
// behavior: the statement executors bounds-gate the body before extracting,
// and the extractor itself performs no checks (hot path).
type Segment interface {
	// Len returns the number of iterates in the segment.
	Len() int

	// At returns the iterate at the given offset, 0 <= offset < Len().
	At(offset int) int
}

// RangeSegment is the contiguous half-open interval [Begin, End).
type RangeSegment struct {
	Begin, End int
}

// NewRange returns the segment of iterates [begin, end).
func NewRange(begin, end int) RangeSegment { return RangeSegment{Begin: begin, End: end} }

func (s RangeSegment) Len() int { return s.End - s.Begin }

func (s RangeSegment) At(offset int) int { return s.Begin + offset }

// StridedSegment is the arithmetic sequence Begin, Begin+Stride, ... with
// the given number of iterates.
type StridedSegment struct {
	Begin, Stride, Count int
}

// NewStrided returns the segment {begin + i*stride : 0 <= i < count}.
func NewStrided(begin, stride, count int) StridedSegment {
	return StridedSegment{Begin: begin, Stride: stride, Count: count}
}

func (s StridedSegment) Len() int { return s.Count }

func (s StridedSegment) At(offset int) int { return s.Begin + offset*s.Stride }

// ListSegment iterates over an explicit list of indices, in order.
// The slice is not copied; callers must not mutate it while a nest runs.
type ListSegment struct {
	Indices []int
}

// NewList returns a segment over the given indices.
func NewList(indices ...int) ListSegment { return ListSegment{Indices: indices} }

func (s ListSegment) Len() int { return len(s.Indices) }

func (s ListSegment) At(offset int) int { return s.Indices[offset] }
