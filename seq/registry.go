package seq

import "sort"

// Op names one of the engine's operations.
type Op string

const (
	OpAddPadding    Op = "AddPadding"
	OpRemovePadding Op = "RemovePadding"
	OpGatherPadding Op = "GatherPadding"
)

// GradientSpec records how a forward operation participates in gradient
// computation: which operation inverts it exactly, which produces the
// gradient flowing back to its data input, and which produces the gradient
// for its padding templates.
type GradientSpec struct {
	Inverse          Op // exact algebraic inverse, "" if none
	DataGradient     Op // applied to the incoming gradient buffer
	TemplateGradient Op // applied when learned templates were supplied
}

// gradientRegistry is the static pairing table. AddPadding and
// RemovePadding invert each other; the gradient of an insertion w.r.t. its
// templates is the gather. GatherPadding itself is a reduction with no
// inverse and is not a forward op here.
var gradientRegistry = map[Op]GradientSpec{
	OpAddPadding: {
		Inverse:          OpRemovePadding,
		DataGradient:     OpRemovePadding,
		TemplateGradient: OpGatherPadding,
	},
	OpRemovePadding: {
		Inverse:      OpAddPadding,
		DataGradient: OpAddPadding,
	},
}

// GradientOf returns the gradient spec registered for op.
func GradientOf(op Op) (GradientSpec, bool) {
	spec, ok := gradientRegistry[op]
	return spec, ok
}

// InverseOf returns the exact inverse registered for op.
func InverseOf(op Op) (Op, bool) {
	spec, ok := gradientRegistry[op]
	if !ok || spec.Inverse == "" {
		return "", false
	}
	return spec.Inverse, true
}

// RegisteredOps lists the ops with gradient pairings, sorted by name.
func RegisteredOps() []Op {
	ops := make([]Op, 0, len(gradientRegistry))
	for op := range gradientRegistry {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}
