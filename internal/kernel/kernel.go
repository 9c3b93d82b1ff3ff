// Package kernel defines the binding surface between this repository and the
// underlying CAD kernel: shape queries and the pave-fill / boolean-operation
// driver. The kernel itself is an external collaborator — see
// internal/boxkernel for the one concrete implementation this repository
// ships, a pure-Go reference kernel over axis-aligned boxes.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by PaveFill when the deadline passes before the
// kernel's pave filler completes. The caller (internal/boolop) does not
// retry.
var ErrTimeout = errors.New("kernel: pave fill deadline exceeded")

// NegativeVolumeError is returned by Shape.Volume when the kernel reports a
// strictly negative volume. The boolean-op driver (internal/boolop) decides
// whether this is recoverable.
type NegativeVolumeError struct {
	Value float64
}

func (e *NegativeVolumeError) Error() string {
	return fmt.Sprintf("kernel: negative volume %v", e.Value)
}

// ShapeKind enumerates the B-rep hierarchy a Shape may occupy.
type ShapeKind int

const (
	KindUnknown ShapeKind = iota
	KindVertex
	KindEdge
	KindWire
	KindFace
	KindShell
	KindSolid
	KindCompSolid
	KindCompound
)

func (k ShapeKind) String() string {
	switch k {
	case KindVertex:
		return "VERTEX"
	case KindEdge:
		return "EDGE"
	case KindWire:
		return "WIRE"
	case KindFace:
		return "FACE"
	case KindShell:
		return "SHELL"
	case KindSolid:
		return "SOLID"
	case KindCompSolid:
		return "COMPSOLID"
	case KindCompound:
		return "COMPOUND"
	default:
		return "UNKNOWN"
	}
}

// Defect describes one validity problem found by IsValid, surfaced to logs
// only; it never alters control flow inside the core pipeline.
type Defect struct {
	SubShape string // e.g. "FACE#3"
	Reason   string
}

// OBB is an oriented bounding box. Axes are unit row vectors; Half holds the
// half-extents along each axis.
type OBB struct {
	Center [3]float64
	Half   [3]float64
	Axes   [3][3]float64
}

// Enlarge returns an OBB inflated symmetrically by eps along every axis.
func (b OBB) Enlarge(eps float64) OBB {
	out := b
	out.Half[0] += eps
	out.Half[1] += eps
	out.Half[2] += eps
	return out
}

// DisjointFrom reports whether b and o cannot possibly intersect, using the
// separating-axis test over both boxes' axes.
func (b OBB) DisjointFrom(o OBB) bool {
	axes := make([][3]float64, 0, 6)
	axes = append(axes, b.Axes[:]...)
	axes = append(axes, o.Axes[:]...)
	d := [3]float64{o.Center[0] - b.Center[0], o.Center[1] - b.Center[1], o.Center[2] - b.Center[2]}
	for _, ax := range axes {
		if separatingAxis(ax, b, o, d) {
			return true
		}
	}
	return false
}

func dot(a, c [3]float64) float64 { return a[0]*c[0] + a[1]*c[1] + a[2]*c[2] }

func separatingAxis(axis [3]float64, b, o OBB, d [3]float64) bool {
	if axis == ([3]float64{}) {
		return false
	}
	proj := func(box OBB) float64 {
		var r float64
		for i := 0; i < 3; i++ {
			r += box.Half[i] * absf(dot(axis, box.Axes[i]))
		}
		return r
	}
	dist := absf(dot(axis, d))
	return dist > proj(b)+proj(o)
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// Shape is an opaque handle to a kernel volume or sub-shape.
type Shape interface {
	Volume() (float64, error)
	OBB() OBB
	DistanceTo(other Shape) (float64, error)
	IsValid() (bool, []Defect)
	Kind() ShapeKind

	// IsNull reports whether this shape contains no points at all — the
	// canonical empty result of a boolean op between genuinely disjoint
	// operands. The classifier uses this, not Kind, to decide whether a
	// SECTION result contains any vertex: a non-null result is Touching
	// even when degenerate (a shared face, edge or vertex), a null result
	// is Distinct.
	IsNull() bool
}

// CutOrder selects which operand is subtracted from which in Cut.
type CutOrder int

const (
	CutIMinusJ CutOrder = iota
	CutJMinusI
)

// BoolResult is the outcome of one boolean operation.
type BoolResult struct {
	Shape           Shape
	FuzzyValueUsed  float64
	WarningsByPhase map[string]int
	ElapsedSeconds  float64
}

// PaveFilling is the opaque handle returned by a successful PaveFill; the
// subsequent Common/Cut/Section calls reuse the shared precomputation it
// represents.
type PaveFilling interface {
	Operands() (a, b Shape)
}

// Kernel is the full binding surface this repository requires. A production
// binding implements this against a real CAD kernel (e.g. via cgo); the
// reference implementation shipped here is internal/boxkernel.
type Kernel interface {
	// PaveFill runs the shared boolean-op precomputation. If ctx's deadline
	// passes before the kernel signals completion, PaveFill returns
	// ErrTimeout and no later phase is run for this pair.
	PaveFill(ctx context.Context, a, b Shape, eps float64) (PaveFilling, error)
	Common(pf PaveFilling) (BoolResult, error)
	Cut(pf PaveFilling, order CutOrder) (BoolResult, error)
	Section(pf PaveFilling) (BoolResult, error)
	Fuse(a, b Shape, eps float64) (BoolResult, error)

	// SameParameter reconciles 3-D and 2-D curve representations of shared
	// edges within s to within tol.
	SameParameter(s Shape, tol float64) (Shape, error)

	// AverageVertex builds a representative vertex for a cluster.
	AverageVertex(vs []Shape) (Shape, error)

	// Project finds the nearest parameter on curveOrSurface to point, and
	// the resulting distance.
	Project(curveOrSurface Shape, point [3]float64) (param []float64, dist float64, err error)
}

// Decomposer is an optional capability a concrete Kernel's Shape may
// implement: enumerating a leaf solid's constituent vertices, edges and
// faces, and the topology linking them. The merger (internal/merge)
// type-asserts to this rather than depending on any one concrete kernel; a
// Shape that doesn't implement it cannot be clustered.
type Decomposer interface {
	Vertices() []Shape
	Edges() []Shape
	Faces() []Shape
	Leaves() []Shape

	// EdgeEndpoints returns the two vertices bounding an EDGE shape.
	EdgeEndpoints() (a, b Shape)

	// FaceBoundary returns the edges bounding a FACE shape.
	FaceBoundary() []Shape
}

// Deadline is a convenience the callers of PaveFill use to derive a
// context.Context carrying the per-pair timeout.
func Deadline(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
