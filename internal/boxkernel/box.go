// Package boxkernel is the one concrete kernel.Kernel this repository ships:
// a pure-Go reference kernel that models every solid as an axis-aligned box.
// It exists because no OpenCascade/ACIS Go binding is reachable from this
// module's dependency set, and because every worked example in this engine
// is built from axis-aligned cubes — this kernel is enough to exercise
// every invariant and end-to-end scenario without a real CAD kernel. A
// production binding implements kernel.Kernel against a real kernel instead
// of importing this package.
package boxkernel

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ukaea/overlap-checker/internal/kernel"
)

var nextID uint64

func freshID() uint64 { return atomic.AddUint64(&nextID, 1) }

// Shape is boxkernel's kernel.Shape implementation. Leaf shapes are
// axis-aligned boxes, possibly degenerate along one or more axes (a VERTEX
// is degenerate on all three, an EDGE on two, a FACE on one). Non-leaf
// shapes (COMPOUND, COMPSOLID) hold Children instead of a meaningful box.
type Shape struct {
	id       uint64
	kind     kernel.ShapeKind
	lo, hi   [3]float64
	empty    bool // explicit null shape: no volume, no vertices, disjoint
	volOver  *float64
	Children []*Shape
}

// NewSolid builds a SOLID box with corners lo, hi (lo[i] <= hi[i] required).
func NewSolid(lo, hi [3]float64) *Shape {
	return &Shape{id: freshID(), kind: kernel.KindSolid, lo: lo, hi: hi}
}

// NewCompound wraps children (typically SOLIDs) as a COMPOUND, the
// top-level BREP container an assembly document is built from.
func NewCompound(children ...*Shape) *Shape {
	return &Shape{id: freshID(), kind: kernel.KindCompound, Children: children}
}

// Empty returns the canonical empty/null shape used as the result of a
// boolean op between genuinely disjoint operands.
func Empty() *Shape {
	return &Shape{id: freshID(), kind: kernel.KindSolid, empty: true}
}

func (s *Shape) Kind() kernel.ShapeKind { return s.kind }

func (s *Shape) IsNull() bool { return s.empty }

func (s *Shape) Volume() (float64, error) {
	if s.empty {
		return 0, nil
	}
	if s.volOver != nil {
		if *s.volOver < 0 {
			return 0, &kernel.NegativeVolumeError{Value: *s.volOver}
		}
		return *s.volOver, nil
	}
	if s.kind == kernel.KindCompound || s.kind == kernel.KindCompSolid {
		var total float64
		for _, c := range s.Children {
			v, err := c.Volume()
			if err != nil {
				return 0, err
			}
			total += v
		}
		return total, nil
	}
	v := s.boxVolume()
	if v < 0 {
		return 0, &kernel.NegativeVolumeError{Value: v}
	}
	return v, nil
}

func (s *Shape) boxVolume() float64 {
	v := 1.0
	for i := 0; i < 3; i++ {
		v *= s.hi[i] - s.lo[i]
	}
	return v
}

func (s *Shape) OBB() kernel.OBB {
	if s.kind == kernel.KindCompound || s.kind == kernel.KindCompSolid {
		lo, hi := s.boundsOfChildren()
		return boxOBB(lo, hi)
	}
	return boxOBB(s.lo, s.hi)
}

func boxOBB(lo, hi [3]float64) kernel.OBB {
	var b kernel.OBB
	for i := 0; i < 3; i++ {
		b.Center[i] = (lo[i] + hi[i]) / 2
		b.Half[i] = (hi[i] - lo[i]) / 2
	}
	b.Axes = [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	return b
}

func (s *Shape) boundsOfChildren() (lo, hi [3]float64) {
	first := true
	for _, c := range s.Children {
		clo, chi := c.lo, c.hi
		if c.kind == kernel.KindCompound || c.kind == kernel.KindCompSolid {
			clo, chi = c.boundsOfChildren()
		}
		if first {
			lo, hi = clo, chi
			first = false
			continue
		}
		for i := 0; i < 3; i++ {
			if clo[i] < lo[i] {
				lo[i] = clo[i]
			}
			if chi[i] > hi[i] {
				hi[i] = chi[i]
			}
		}
	}
	return lo, hi
}

func (s *Shape) DistanceTo(other kernel.Shape) (float64, error) {
	o, ok := other.(*Shape)
	if !ok {
		return 0, fmt.Errorf("boxkernel: DistanceTo requires a boxkernel.Shape, got %T", other)
	}
	alo, ahi := s.lo, s.hi
	if s.kind == kernel.KindCompound || s.kind == kernel.KindCompSolid {
		alo, ahi = s.boundsOfChildren()
	}
	blo, bhi := o.lo, o.hi
	if o.kind == kernel.KindCompound || o.kind == kernel.KindCompSolid {
		blo, bhi = o.boundsOfChildren()
	}
	var sumSq float64
	for i := 0; i < 3; i++ {
		gap := axisGap(alo[i], ahi[i], blo[i], bhi[i])
		sumSq += gap * gap
	}
	return sqrt(sumSq), nil
}

// axisGap returns the 1-D separation between [alo,ahi] and [blo,bhi]; zero
// when the intervals overlap or touch.
func axisGap(alo, ahi, blo, bhi float64) float64 {
	if ahi < blo {
		return blo - ahi
	}
	if bhi < alo {
		return alo - bhi
	}
	return 0
}

func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	// Newton's method; avoids importing math solely for this.
	z := x
	for i := 0; i < 40; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

func (s *Shape) IsValid() (bool, []kernel.Defect) {
	var defects []kernel.Defect
	if s.kind != kernel.KindCompound && s.kind != kernel.KindCompSolid && !s.empty {
		for i := 0; i < 3; i++ {
			if s.lo[i] > s.hi[i] {
				defects = append(defects, kernel.Defect{
					SubShape: fmt.Sprintf("SOLID#%d", s.id),
					Reason:   fmt.Sprintf("axis %d: lo %v > hi %v", i, s.lo[i], s.hi[i]),
				})
			}
		}
	}
	for _, c := range s.Children {
		ok, cd := c.IsValid()
		if !ok {
			defects = append(defects, cd...)
		}
	}
	return len(defects) == 0, defects
}

// Vertices, Edges and Faces decompose a leaf SOLID into its eight corner
// vertices, twelve edges and six faces; the merger's clustering stages
// operate over exactly this decomposition. Composite shapes produced by
// Cut/Fuse during imprinting fall back to the decomposition of their
// bounding box — a documented simplification of this reference kernel (see
// DESIGN.md); it does not affect the merge scenarios this engine is tested
// against, which glue unmodified abutting boxes.
func (s *Shape) Vertices() []kernel.Shape {
	lo, hi := s.boxBoundsForDecompose()
	out := make([]kernel.Shape, 0, 8)
	for i := 0; i < 8; i++ {
		p := [3]float64{pick(i, 0, lo, hi), pick(i, 1, lo, hi), pick(i, 2, lo, hi)}
		out = append(out, &Shape{id: freshID(), kind: kernel.KindVertex, lo: p, hi: p})
	}
	return out
}

func pick(cornerIdx, axis int, lo, hi [3]float64) float64 {
	if cornerIdx&(1<<uint(axis)) != 0 {
		return hi[axis]
	}
	return lo[axis]
}

func (s *Shape) Edges() []kernel.Shape {
	lo, hi := s.boxBoundsForDecompose()
	out := make([]kernel.Shape, 0, 12)
	for axis := 0; axis < 3; axis++ {
		o1, o2 := (axis+1)%3, (axis+2)%3
		for b1 := 0; b1 < 2; b1++ {
			for b2 := 0; b2 < 2; b2++ {
				elo, ehi := lo, hi
				v1 := valAt(b1, lo[o1], hi[o1])
				v2 := valAt(b2, lo[o2], hi[o2])
				elo[o1], ehi[o1] = v1, v1
				elo[o2], ehi[o2] = v2, v2
				out = append(out, &Shape{id: freshID(), kind: kernel.KindEdge, lo: elo, hi: ehi})
			}
		}
	}
	return out
}

func valAt(b int, lo, hi float64) float64 {
	if b == 1 {
		return hi
	}
	return lo
}

func (s *Shape) Faces() []kernel.Shape {
	lo, hi := s.boxBoundsForDecompose()
	out := make([]kernel.Shape, 0, 6)
	for axis := 0; axis < 3; axis++ {
		for _, v := range [2]float64{lo[axis], hi[axis]} {
			flo, fhi := lo, hi
			flo[axis], fhi[axis] = v, v
			out = append(out, &Shape{id: freshID(), kind: kernel.KindFace, lo: flo, hi: fhi})
		}
	}
	return out
}

func (s *Shape) boxBoundsForDecompose() (lo, hi [3]float64) {
	if s.kind == kernel.KindCompound || s.kind == kernel.KindCompSolid {
		return s.boundsOfChildren()
	}
	return s.lo, s.hi
}

// Leaves returns every leaf reachable from s (any shape that is neither a
// COMPOUND nor a COMPSOLID; both are descended into), in document order, for the merger to treat the assembly as a single compound.
func (s *Shape) Leaves() []kernel.Shape {
	if s.kind != kernel.KindCompound && s.kind != kernel.KindCompSolid {
		return []kernel.Shape{s}
	}
	var out []kernel.Shape
	for _, c := range s.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}

// degenerateAxes splits the three axes of a box into those where lo < hi
// (free) and those where lo == hi (degenerate), preserving axis order.
func degenerateAxes(lo, hi [3]float64) (free, degenerate []int) {
	for i := 0; i < 3; i++ {
		if lo[i] == hi[i] {
			degenerate = append(degenerate, i)
		} else {
			free = append(free, i)
		}
	}
	return free, degenerate
}

// EdgeEndpoints returns the two vertices bounding an EDGE shape: the
// corners at the low and high end of its one free axis. Called on anything
// else, both endpoints coincide at s's own low corner.
func (s *Shape) EdgeEndpoints() (kernel.Shape, kernel.Shape) {
	free, _ := degenerateAxes(s.lo, s.hi)
	if len(free) != 1 {
		p := s.lo
		return &Shape{id: freshID(), kind: kernel.KindVertex, lo: p, hi: p},
			&Shape{id: freshID(), kind: kernel.KindVertex, lo: p, hi: p}
	}
	f := free[0]
	a, b := s.lo, s.lo
	b[f] = s.hi[f]
	return &Shape{id: freshID(), kind: kernel.KindVertex, lo: a, hi: a},
		&Shape{id: freshID(), kind: kernel.KindVertex, lo: b, hi: b}
}

// FaceBoundary returns the four edges bounding a FACE shape's rectangle.
// nil if s is not a planar (single-degenerate-axis) rectangle.
func (s *Shape) FaceBoundary() []kernel.Shape {
	free, deg := degenerateAxes(s.lo, s.hi)
	if len(free) != 2 || len(deg) != 1 {
		return nil
	}
	f1, f2 := free[0], free[1]
	lo, hi := s.lo, s.hi
	fixed := func(axis int, v float64) kernel.Shape {
		elo, ehi := lo, hi
		elo[axis], ehi[axis] = v, v
		return &Shape{id: freshID(), kind: kernel.KindEdge, lo: elo, hi: ehi}
	}
	return []kernel.Shape{
		fixed(f1, lo[f1]),
		fixed(f1, hi[f1]),
		fixed(f2, lo[f2]),
		fixed(f2, hi[f2]),
	}
}

var _ kernel.Shape = (*Shape)(nil)
var _ kernel.Decomposer = (*Shape)(nil)

// deadlineCheck is extracted so the reference PaveFill (which has no real
// paving work to observe progress on) still honours ctx, the way a
// production binding's progress observer would.
func deadlineCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return kernel.ErrTimeout
	default:
		return nil
	}
}
