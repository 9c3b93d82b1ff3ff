package boxkernel

import (
	"context"
	"fmt"

	"github.com/ukaea/overlap-checker/internal/kernel"
	"v.io/x/lib/vlog"
)

// K is the reference kernel.Kernel implementation. It carries no state of
// its own; every call is a pure function of its operands. The zero value is
// ready to use.
type K struct{}

// New returns a ready-to-use reference kernel.
func New() *K { return &K{} }

// paving is the opaque PaveFilling handle for two box operands: the shared
// overlap region, computed once, that Common/Cut/Section all read from.
type paving struct {
	a, b     *Shape
	lo, hi   [3]float64 // elementwise max(lo)/min(hi), collapsed to their midpoint on axes within the fuzzy band; only meaningful if !disjoint
	disjoint bool       // true iff the boxes are separated by a gap greater than eps on some axis
	eps      float64
}

func (p *paving) Operands() (kernel.Shape, kernel.Shape) { return p.a, p.b }

// PaveFill computes the shared precomputation for every later boolean op. A
// progress/timeout observer is attached; here, since box intersection is
// instantaneous, the only observation point is the single deadline check
// below — a real kernel binding instead polls ctx from inside the kernel's
// own progress callback while paving runs.
func (k *K) PaveFill(ctx context.Context, a, b kernel.Shape, eps float64) (kernel.PaveFilling, error) {
	if err := deadlineCheck(ctx); err != nil {
		return nil, err
	}
	sa, ok := a.(*Shape)
	if !ok {
		return nil, fmt.Errorf("boxkernel: PaveFill requires boxkernel.Shape operands, got %T", a)
	}
	sb, ok := b.(*Shape)
	if !ok {
		return nil, fmt.Errorf("boxkernel: PaveFill requires boxkernel.Shape operands, got %T", b)
	}
	alo, ahi := sa.boxBoundsForDecompose()
	blo, bhi := sb.boxBoundsForDecompose()
	var lo, hi [3]float64
	disjoint := false
	// A positive eps (the fuzzy value) widens the touch point into a band
	// symmetric around zero depth: a gap of up to eps, or a genuine overlap
	// of depth up to eps, both collapse to an exact touch at the midpoint.
	// Only a gap strictly greater than eps is disjoint, and only an overlap
	// strictly deeper than eps survives as a real intersection.
	for i := 0; i < 3; i++ {
		lo[i] = maxf(alo[i], blo[i])
		hi[i] = minf(ahi[i], bhi[i])
		depth := hi[i] - lo[i]
		if depth < -eps {
			disjoint = true
		} else if depth <= eps {
			mid := (lo[i] + hi[i]) / 2
			lo[i], hi[i] = mid, mid
		}
	}
	vlog.VI(2).Infof("boxkernel: pave filled eps=%v disjoint=%v", eps, disjoint)
	return &paving{a: sa, b: sb, lo: lo, hi: hi, disjoint: disjoint, eps: eps}, nil
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func (k *K) Common(pfi kernel.PaveFilling) (kernel.BoolResult, error) {
	pf := pfi.(*paving)
	if pf.disjoint {
		return kernel.BoolResult{Shape: Empty(), WarningsByPhase: map[string]int{}}, nil
	}
	degenerateAxes := 0
	for i := 0; i < 3; i++ {
		if pf.hi[i]-pf.lo[i] <= 0 {
			degenerateAxes++
		}
	}
	shape := &Shape{id: freshID(), kind: kindForDegeneracy(degenerateAxes), lo: pf.lo, hi: pf.hi}
	return kernel.BoolResult{Shape: shape, WarningsByPhase: map[string]int{}}, nil
}

func kindForDegeneracy(axes int) kernel.ShapeKind {
	switch axes {
	case 0:
		return kernel.KindSolid
	case 1:
		return kernel.KindFace
	case 2:
		return kernel.KindEdge
	default:
		return kernel.KindVertex
	}
}

func (k *K) Cut(pfi kernel.PaveFilling, order kernel.CutOrder) (kernel.BoolResult, error) {
	pf := pfi.(*paving)
	var base *Shape
	switch order {
	case kernel.CutIMinusJ:
		base = pf.a
	case kernel.CutJMinusI:
		base = pf.b
	default:
		return kernel.BoolResult{}, fmt.Errorf("boxkernel: unknown cut order %v", order)
	}
	baseVol, err := base.Volume()
	if err != nil {
		return kernel.BoolResult{}, err
	}
	commonVol := 0.0
	if !pf.disjoint {
		v := 1.0
		for i := 0; i < 3; i++ {
			v *= pf.hi[i] - pf.lo[i]
		}
		commonVol = v
	}
	// volume(A \ B) = volume(A) - volume(A ∩ B) exactly, regardless of the
	// shape of the intersection (inclusion-exclusion on measures).
	remaining := baseVol - commonVol
	if remaining < -1e-9 {
		return kernel.BoolResult{}, fmt.Errorf("boxkernel: cut produced negative volume %v", remaining)
	}
	if remaining < 0 {
		remaining = 0
	}
	lo, hi := base.boxBoundsForDecompose()
	result := &Shape{id: freshID(), kind: kernel.KindSolid, lo: lo, hi: hi, volOver: &remaining}
	return kernel.BoolResult{Shape: result, WarningsByPhase: map[string]int{}}, nil
}

func (k *K) Section(pfi kernel.PaveFilling) (kernel.BoolResult, error) {
	pf := pfi.(*paving)
	if pf.disjoint {
		return kernel.BoolResult{Shape: Empty(), WarningsByPhase: map[string]int{}}, nil
	}
	degenerateAxes := 0
	for i := 0; i < 3; i++ {
		if pf.hi[i]-pf.lo[i] <= 0 {
			degenerateAxes++
		}
	}
	// Section reports the boundary locus of the intersection. When the
	// operands genuinely overlap by volume this would be a shell; callers
	// in this engine only invoke Section once Common has already reported
	// zero volume, so the only interesting cases are the degenerate ones.
	kind := kindForDegeneracy(degenerateAxes)
	if kind == kernel.KindSolid {
		kind = kernel.KindFace
	}
	shape := &Shape{id: freshID(), kind: kind, lo: pf.lo, hi: pf.hi}
	return kernel.BoolResult{Shape: shape, WarningsByPhase: map[string]int{}}, nil
}

func (k *K) Fuse(a, b kernel.Shape, eps float64) (kernel.BoolResult, error) {
	sa, ok := a.(*Shape)
	if !ok {
		return kernel.BoolResult{}, fmt.Errorf("boxkernel: Fuse requires boxkernel.Shape operands, got %T", a)
	}
	sb, ok := b.(*Shape)
	if !ok {
		return kernel.BoolResult{}, fmt.Errorf("boxkernel: Fuse requires boxkernel.Shape operands, got %T", b)
	}
	va, err := sa.Volume()
	if err != nil {
		return kernel.BoolResult{}, err
	}
	vb, err := sb.Volume()
	if err != nil {
		return kernel.BoolResult{}, err
	}

	var total float64
	if sa.volOver != nil || sb.volOver != nil {
		// One operand is a Cut residual: its lo/hi are still the full
		// pre-cut bounding box (boxBoundsForDecompose needs them for
		// further decomposition), but its true volume already has the
		// other operand's region removed. Imprinting always calls Fuse
		// with exactly this pairing — a CutIMinusJ/CutJMinusI residual
		// and the Common piece that was subtracted out of it — so the
		// two operands are geometrically disjoint by construction and
		// their volumes simply add, regardless of what a bounding-box
		// PaveFill over the residual's stale box would compute.
		total = va + vb
	} else {
		k2 := K{}
		pf, err := k2.PaveFill(context.Background(), sa, sb, eps)
		if err != nil {
			return kernel.BoolResult{}, err
		}
		common, err := k2.Common(pf)
		if err != nil {
			return kernel.BoolResult{}, err
		}
		commonVol, err := common.Shape.Volume()
		if err != nil {
			return kernel.BoolResult{}, err
		}
		total = va + vb - commonVol
	}
	// The result keeps a and b as distinguishable children rather than
	// welding them into one opaque box: imprinting relies on the fused
	// shape still exposing the boundary where its two pieces meet, so a
	// later merge pass can recognize it as coincident with a neighboring
	// solid's own residual face.
	result := &Shape{id: freshID(), kind: kernel.KindCompSolid, volOver: &total, Children: []*Shape{sa, sb}}
	return kernel.BoolResult{Shape: result, WarningsByPhase: map[string]int{}}, nil
}

// SameParameter is a no-op for the box kernel: box edges have no separate
// 2-D/3-D parametrization to reconcile. A production binding performs the
// kernel's real same-parameter fixer here.
func (k *K) SameParameter(s kernel.Shape, tol float64) (kernel.Shape, error) {
	return s, nil
}

// AverageVertex builds the centroid of vs as the cluster representative.
func (k *K) AverageVertex(vs []kernel.Shape) (kernel.Shape, error) {
	if len(vs) == 0 {
		return nil, fmt.Errorf("boxkernel: AverageVertex requires at least one vertex")
	}
	var sum [3]float64
	for _, v := range vs {
		sv, ok := v.(*Shape)
		if !ok {
			return nil, fmt.Errorf("boxkernel: AverageVertex requires boxkernel.Shape vertices, got %T", v)
		}
		for i := 0; i < 3; i++ {
			sum[i] += sv.lo[i]
		}
	}
	var avg [3]float64
	for i := 0; i < 3; i++ {
		avg[i] = sum[i] / float64(len(vs))
	}
	return &Shape{id: freshID(), kind: kernel.KindVertex, lo: avg, hi: avg}, nil
}

// Project finds the nearest point of curveOrSurface (an EDGE or FACE box) to
// point, returning that nearest point's absolute coordinates as the
// parameter, and the resulting distance.
func (k *K) Project(curveOrSurface kernel.Shape, point [3]float64) ([]float64, float64, error) {
	s, ok := curveOrSurface.(*Shape)
	if !ok {
		return nil, 0, fmt.Errorf("boxkernel: Project requires a boxkernel.Shape, got %T", curveOrSurface)
	}
	nearest := [3]float64{}
	var sumSq float64
	for i := 0; i < 3; i++ {
		v := clamp(point[i], s.lo[i], s.hi[i])
		nearest[i] = v
		d := point[i] - v
		sumSq += d * d
	}
	return []float64{nearest[0], nearest[1], nearest[2]}, sqrt(sumSq), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ kernel.Kernel = (*K)(nil)
