// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package kernel

import "fmt"

// PolicyKind selects how one loop level maps iterations onto the backend's
// execution units. Backends keep an explicit dispatch table from PolicyKind
// to an executor implementation; the pairing is resolved once, at compile
// time, never per iteration.
type PolicyKind int

const (
	// PolicySequential iterates a software counter 0..len-1 on the calling
	// unit. The trivial mapping, valid on every backend.
	PolicySequential PolicyKind = iota

	// PolicyLaneDirect assigns the unit's lane coordinate directly as the
	// offset, one shot, no software loop. Only covers the dimension when
	// len <= lanes per warp; out-of-range lanes still descend with
	// activity=false so they stay aligned at enclosed barriers.
	PolicyLaneDirect

	// PolicyLaneLoop is the strided variant of PolicyLaneDirect: lanes
	// re-cover the dimension in chunks of the warp width, so any length is
	// covered.
	PolicyLaneLoop

	// PolicyMaskedDirect maps a masked, renumbered subset of lanes directly
	// to offsets. The mask capacity must not exceed the warp width; that is
	// checked at compile time.
	PolicyMaskedDirect

	// PolicyMaskedLoop is the strided variant of PolicyMaskedDirect, with
	// stride equal to the mask capacity.
	PolicyMaskedLoop

	// PolicyIndexDirect maps the unit's coordinate at an arbitrary
	// hierarchy level (lane, warp or block) directly to offsets.
	PolicyIndexDirect

	// PolicyIndexLoop is the strided variant of PolicyIndexDirect, with
	// stride equal to the group size at the chosen level.
	PolicyIndexLoop
)

// String implements fmt.Stringer.
func (k PolicyKind) String() string {
	switch k {
	case PolicySequential:
		return "Sequential"
	case PolicyLaneDirect:
		return "LaneDirect"
	case PolicyLaneLoop:
		return "LaneLoop"
	case PolicyMaskedDirect:
		return "MaskedDirect"
	case PolicyMaskedLoop:
		return "MaskedLoop"
	case PolicyIndexDirect:
		return "IndexDirect"
	case PolicyIndexLoop:
		return "IndexLoop"
	}
	return "InvalidPolicyKind"
}

// Level names one level of a hierarchical backend's unit hierarchy.
// The sequential backend's hierarchy is degenerate: one unit at every level.
type Level int

const (
	// LevelLane is a lane within its warp.
	LevelLane Level = iota
	// LevelWarp is a warp within its block.
	LevelWarp
	// LevelBlock is a block within the grid.
	LevelBlock
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelLane:
		return "Lane"
	case LevelWarp:
		return "Warp"
	case LevelBlock:
		return "Block"
	}
	return "InvalidLevel"
}

// BitMask selects and renumbers a subset of lane coordinates: raw lane
// coordinates are shifted right by Shift and the low Width bits kept, so
// 2^Width consecutive (after shifting) lanes map onto masked coordinates
// 0..2^Width-1. Masks are fixed at Program construction.
type BitMask struct {
	// Width is the number of coordinate bits kept; capacity is 1<<Width.
	Width uint
	// Shift is the number of low bits of the raw coordinate discarded.
	Shift uint
}

// NewBitMask returns the mask keeping width bits after discarding shift
// low bits of the raw lane coordinate.
func NewBitMask(width, shift uint) BitMask { return BitMask{Width: width, Shift: shift} }

// MaskValue renumbers a raw lane coordinate into the masked coordinate
// space 0..MaxMaskedSize()-1.
func (m BitMask) MaskValue(raw int) int {
	return (raw >> m.Shift) & (1<<m.Width - 1)
}

// MaxMaskedSize is the capacity of the masked coordinate space.
func (m BitMask) MaxMaskedSize() int { return 1 << m.Width }

// String implements fmt.Stringer.
func (m BitMask) String() string {
	return fmt.Sprintf("BitMask(width=%d, shift=%d)", m.Width, m.Shift)
}

// Policy is the execution policy of one loop level: a mapping kind plus the
// kind-specific hierarchy level (Index* kinds) or lane mask (Masked* kinds).
type Policy struct {
	Kind  PolicyKind
	Level Level   // Only meaningful for PolicyIndexDirect and PolicyIndexLoop.
	Mask  BitMask // Only meaningful for PolicyMaskedDirect and PolicyMaskedLoop.
}

// SeqExec is the sequential policy: a software loop on the calling unit.
func SeqExec() Policy { return Policy{Kind: PolicySequential} }

// LaneDirect maps the lane coordinate directly to the offset, one shot.
func LaneDirect() Policy { return Policy{Kind: PolicyLaneDirect} }

// LaneLoop maps the lane coordinate to the offset, strided by the warp
// width until the dimension is covered.
func LaneLoop() Policy { return Policy{Kind: PolicyLaneLoop} }

// MaskedDirect maps the masked lane coordinate directly to the offset.
func MaskedDirect(mask BitMask) Policy {
	return Policy{Kind: PolicyMaskedDirect, Mask: mask}
}

// MaskedLoop maps the masked lane coordinate to the offset, strided by the
// mask capacity until the dimension is covered.
func MaskedLoop(mask BitMask) Policy {
	return Policy{Kind: PolicyMaskedLoop, Mask: mask}
}

// IndexDirect maps the unit coordinate at the given hierarchy level
// directly to the offset, one shot.
func IndexDirect(level Level) Policy {
	return Policy{Kind: PolicyIndexDirect, Level: level}
}

// IndexLoop maps the unit coordinate at the given hierarchy level to the
// offset, strided by the group size at that level.
func IndexLoop(level Level) Policy {
	return Policy{Kind: PolicyIndexLoop, Level: level}
}

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p.Kind {
	case PolicyMaskedDirect, PolicyMaskedLoop:
		return fmt.Sprintf("%s[%s]", p.Kind, p.Mask)
	case PolicyIndexDirect, PolicyIndexLoop:
		return fmt.Sprintf("%s[%s]", p.Kind, p.Level)
	}
	return p.Kind.String()
}
