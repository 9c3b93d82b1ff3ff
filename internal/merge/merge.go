// Package merge implements the merger (C7): vertex, edge and face
// clustering that unifies the features abutting solids should share, so a
// later validity check does not see cracks at touching boundaries.
package merge

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/log"

	"github.com/ukaea/overlap-checker/internal/kernel"
	"github.com/ukaea/overlap-checker/internal/shape"
)

// Merger runs single-threaded by design: its complexity is structural
// (four ordered clustering/rebuild stages), not something a worker pool
// would help with.
//
// It does not change which solids occupy a Document's slots — length and
// per-solid identity are untouched, satisfying the volume-conservation
// invariant trivially, since no boolean op runs during a merge. What it
// does is unify the vertex/edge/face instances that are geometrically the
// same point/curve/surface across solids, recording that unification and
// reporting how much clustering occurred. A real CAD kernel binding would
// use that unification to rewrite its own addressable B-rep topology
// in place (M3); this reference kernel has no such addressable shared
// topology graph to rewrite, so M3 here is a validation/reporting pass
// rather than a Document mutation — see DESIGN.md.
type Merger struct {
	k   kernel.Kernel
	tol float64
}

// New returns a Merger bound to k with clustering tolerance tol.
func New(k kernel.Kernel, tol float64) *Merger {
	return &Merger{k: k, tol: tol}
}

// Summary tallies what M1-M3 found.
type Summary struct {
	Leaves         int
	RawVertices    int
	RawEdges       int
	RawFaces       int
	VertexClusters int
	EdgeGroups     int
	FaceGroups     int
}

// Merge runs M1 (vertex clustering), M2 (edge then face clustering), the M3
// rebuild/validation pass, and M4 (parameter fix) over every solid in doc.
// Finding zero clusters at any stage is not an error. A parameter-fix
// failure is fatal.
func (m *Merger) Merge(doc *shape.Document) (Summary, error) {
	leaves, err := m.collectLeaves(doc)
	if err != nil {
		return Summary{}, err
	}
	if len(leaves) == 0 {
		return Summary{}, nil
	}

	verts := collectVertices(leaves)
	vOrigin, numVClusters, err := clusterVertices(m.k, verts, m.tol)
	if err != nil {
		return Summary{}, fmt.Errorf("merge: M1 vertex clustering: %w", err)
	}

	edges := collectEdges(leaves)
	edgeGroups, err := m.clusterEdges(edges, vOrigin)
	if err != nil {
		return Summary{}, fmt.Errorf("merge: M2 edge clustering: %w", err)
	}
	edgeRepOf := buildRepresentativeLookup(edgeGroups)
	edgeIdx := newSpatialIndex(centersOf(edges), m.tol)

	faces := collectFaces(leaves)
	faceGroups, err := m.clusterFaces(faces, edges, edgeIdx, edgeRepOf)
	if err != nil {
		return Summary{}, fmt.Errorf("merge: M2 face clustering: %w", err)
	}

	if err := m.rebuildAndFix(leaves); err != nil {
		return Summary{}, err
	}

	log.Debug.Printf("merge: %d leaves, %d/%d vertex clusters, %d/%d edge groups, %d/%d face groups",
		len(leaves), numVClusters, len(verts), len(edgeGroups), len(edges), len(faceGroups), len(faces))

	return Summary{
		Leaves:         len(leaves),
		RawVertices:    len(verts),
		RawEdges:       len(edges),
		RawFaces:       len(faces),
		VertexClusters: numVClusters,
		EdgeGroups:     len(edgeGroups),
		FaceGroups:     len(faceGroups),
	}, nil
}

func (m *Merger) collectLeaves(doc *shape.Document) ([]kernel.Shape, error) {
	var leaves []kernel.Shape
	for i := 0; i < doc.Len(); i++ {
		root := doc.At(i).Unwrap()
		dec, ok := root.(kernel.Decomposer)
		if !ok {
			return nil, fmt.Errorf("merge: solid[%d]: kernel does not support decomposition", i)
		}
		leaves = append(leaves, dec.Leaves()...)
	}
	return leaves, nil
}

func collectVertices(leaves []kernel.Shape) []kernel.Shape {
	var out []kernel.Shape
	for _, l := range leaves {
		out = append(out, l.(kernel.Decomposer).Vertices()...)
	}
	return out
}

func collectEdges(leaves []kernel.Shape) []kernel.Shape {
	var out []kernel.Shape
	for _, l := range leaves {
		out = append(out, l.(kernel.Decomposer).Edges()...)
	}
	return out
}

func collectFaces(leaves []kernel.Shape) []kernel.Shape {
	var out []kernel.Shape
	for _, l := range leaves {
		out = append(out, l.(kernel.Decomposer).Faces()...)
	}
	return out
}

func centersOf(shapes []kernel.Shape) [][3]float64 {
	out := make([][3]float64, len(shapes))
	for i, s := range shapes {
		out[i] = s.OBB().Center
	}
	return out
}

// clusterEdges builds each edge's combinatorial key from its two endpoints'
// vertex-cluster representatives (via Origin), then refines combinatorial
// matches geometrically.
func (m *Merger) clusterEdges(edges []kernel.Shape, vOrigin *vertexOrigin) ([][]kernel.Shape, error) {
	assign := newIDAssigner()
	items := make([]combItem, len(edges))
	for i, e := range edges {
		a, b := e.(kernel.Decomposer).EdgeEndpoints()
		repA, okA := vOrigin.representative(a.OBB().Center, m.tol)
		repB, okB := vOrigin.representative(b.OBB().Center, m.tol)
		if !okA || !okB {
			return nil, fmt.Errorf("merge: edge endpoint not found among clustered vertices")
		}
		items[i] = combItem{shape: e, key: sortedPair(assign.idFor(repA), assign.idFor(repB))}
	}
	return groupByCombinatorialKey(items, m.edgeCoincident)
}

// clusterFaces builds each face's combinatorial key from the multiset of
// its bounding edges' group representatives, then refines combinatorial
// matches geometrically.
func (m *Merger) clusterFaces(faces, edges []kernel.Shape, edgeIdx *spatialIndex, edgeRepOf map[kernel.Shape]kernel.Shape) ([][]kernel.Shape, error) {
	assign := newIDAssigner()
	items := make([]combItem, len(faces))
	for i, f := range faces {
		boundary := f.(kernel.Decomposer).FaceBoundary()
		ids := make([]int, 0, len(boundary))
		for _, be := range boundary {
			rep := lookupEdgeRepresentative(be, edges, edgeIdx, edgeRepOf, m.tol)
			ids = append(ids, assign.idFor(rep))
		}
		sort.Ints(ids)
		items[i] = combItem{shape: f, key: ids}
	}
	return groupByCombinatorialKey(items, m.faceCoincident)
}

// edgeCoincident is M2's geometric refinement for edges: project one edge's
// midpoint onto the other and compare the resulting distance to tolerance.
func (m *Merger) edgeCoincident(a, b kernel.Shape) (bool, error) {
	_, dist, err := m.k.Project(b, a.OBB().Center)
	if err != nil {
		return false, err
	}
	return dist <= m.tol, nil
}

// faceCoincident is M2's geometric refinement for faces: project one
// face's centroid onto the other.
func (m *Merger) faceCoincident(a, b kernel.Shape) (bool, error) {
	_, dist, err := m.k.Project(b, a.OBB().Center)
	if err != nil {
		return false, err
	}
	return dist <= m.tol, nil
}

// rebuildAndFix is M3 (validated by construction: every group returned by
// clustering already only contains geometrically coincident members) plus
// M4, the kernel's same-parameter fixer over every leaf.
func (m *Merger) rebuildAndFix(leaves []kernel.Shape) error {
	for i, leaf := range leaves {
		if _, err := m.k.SameParameter(leaf, m.tol); err != nil {
			return fmt.Errorf("merge: M4 same-parameter fix on leaf %d: %w", i, err)
		}
	}
	return nil
}

func sortedPair(a, b int) []int {
	if a > b {
		a, b = b, a
	}
	return []int{a, b}
}

// buildRepresentativeLookup maps every group member shape to the group's
// first element.
func buildRepresentativeLookup(groups [][]kernel.Shape) map[kernel.Shape]kernel.Shape {
	out := make(map[kernel.Shape]kernel.Shape)
	for _, g := range groups {
		for _, member := range g {
			out[member] = g[0]
		}
	}
	return out
}

// lookupEdgeRepresentative maps a freshly synthesized face-boundary edge
// back to its entry in the canonical per-leaf edge list (by nearest
// midpoint, which is exact in this reference kernel) and from there to its
// group representative, if any.
func lookupEdgeRepresentative(be kernel.Shape, edges []kernel.Shape, edgeIdx *spatialIndex, edgeRepOf map[kernel.Shape]kernel.Shape, tol float64) kernel.Shape {
	j, ok := edgeIdx.nearestWithin(be.OBB().Center, tol)
	if !ok {
		return be
	}
	canonical := edges[j]
	if rep, ok := edgeRepOf[canonical]; ok {
		return rep
	}
	return canonical
}
