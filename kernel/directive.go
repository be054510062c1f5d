// Copyright 2024-2026 The LoopKit Authors. SPDX-License-Identifier: Apache-2.0

package kernel

// DirectiveKind selects which part of the iteration state a directive binds.
type DirectiveKind int

const (
	// DirectiveSeg binds the dereferenced iterate: segment[id].At(offset[id]).
	DirectiveSeg DirectiveKind = iota

	// DirectiveOffset binds the raw integer offset within dimension id,
	// without dereferencing the segment.
	DirectiveOffset

	// DirectiveParam binds a mutable alias to parameter slot id.
	DirectiveParam
)

// String implements fmt.Stringer.
func (k DirectiveKind) String() string {
	switch k {
	case DirectiveSeg:
		return "Seg"
	case DirectiveOffset:
		return "Offset"
	case DirectiveParam:
		return "Param"
	}
	return "InvalidDirectiveKind"
}

// Directive identifies one value to extract from the iteration state and
// hand to the body: (kind, dimension or slot id). Directives are fixed when
// the Program is built and never depend on the iteration state.
type Directive struct {
	Kind DirectiveKind
	ID   int
}

// Seg is the directive binding the dereferenced iterate of dimension id.
func Seg(id int) Directive { return Directive{Kind: DirectiveSeg, ID: id} }

// Offset is the directive binding the raw offset of dimension id.
func Offset(id int) Directive { return Directive{Kind: DirectiveOffset, ID: id} }

// Param is the directive binding a mutable alias to parameter slot id.
func Param(id int) Directive { return Directive{Kind: DirectiveParam, ID: id} }

// ArgSpec is an element of a Lambda argument specification: either a single
// Directive or a compact range descriptor that expands to several.
type ArgSpec interface {
	directives() []Directive
}

// A single directive expands to itself.
func (d Directive) directives() []Directive { return []Directive{d} }

type rangeSpec struct {
	kind DirectiveKind
	n    int
}

func (r rangeSpec) directives() []Directive {
	out := make([]Directive, r.n)
	for i := range out {
		out[i] = Directive{Kind: r.kind, ID: i}
	}
	return out
}

// SegRange expands to Seg(0), Seg(1), ..., Seg(n-1).
func SegRange(n int) ArgSpec { return rangeSpec{kind: DirectiveSeg, n: n} }

// OffsetRange expands to Offset(0), ..., Offset(n-1).
func OffsetRange(n int) ArgSpec { return rangeSpec{kind: DirectiveOffset, n: n} }

// ParamRange expands to Param(0), ..., Param(n-1).
func ParamRange(n int) ArgSpec { return rangeSpec{kind: DirectiveParam, n: n} }

// FlattenArgs expands the given specifications into one flat directive list,
// preserving declaration order. It is pure structural rewriting: it runs
// once when the Program is built and does not depend on any iteration state.
// The empty specification flattens to the empty list.
func FlattenArgs(specs ...ArgSpec) []Directive {
	var out []Directive
	for _, spec := range specs {
		out = append(out, spec.directives()...)
	}
	return out
}

// extract resolves one directive against the current iteration state.
//
// There is deliberately no bounds checking here: the statement executors
// gate the body on activity before argument extraction happens.
func extract(dir Directive, data *Data) Value {
	switch dir.Kind {
	case DirectiveSeg:
		return Value{kind: DirectiveSeg, n: data.segments[dir.ID].At(data.offsets[dir.ID])}
	case DirectiveOffset:
		return Value{kind: DirectiveOffset, n: data.offsets[dir.ID]}
	default: // DirectiveParam
		return Value{kind: DirectiveParam, data: data, id: dir.ID}
	}
}

// BindArgs fills out with the value extracted for each directive, in list
// order. out must have length len(dirs); backends preallocate it once per
// execution unit and reuse it across iterations.
//
// This is the single place that decides what the user's body receives.
func BindArgs(dirs []Directive, data *Data, out Args) {
	for i, dir := range dirs {
		out[i] = extract(dir, data)
	}
}
