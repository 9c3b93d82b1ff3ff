package merge

import (
	"fmt"

	"github.com/ukaea/overlap-checker/internal/kernel"
)

// vertexOrigin is the M1 result: every input vertex's cluster representative,
// looked up by position rather than by object identity, since this
// reference kernel synthesizes a fresh Shape on every decomposition call
// even for geometrically identical corners.
type vertexOrigin struct {
	idx   *spatialIndex
	reps  []kernel.Shape // reps[clusterOf[i]] is vertex i's representative
	group []int          // clusterOf, parallel to idx.points
}

// representative returns the cluster representative nearest p, within tol.
// Every query this package makes is for a position that was itself a
// clustering input (an edge endpoint or face-boundary endpoint shares exact
// floating-point coordinates with some solid's corner), so this always
// succeeds in practice; a miss can only mean the caller passed a point this
// merge pass never saw.
func (o *vertexOrigin) representative(p [3]float64, tol float64) (kernel.Shape, bool) {
	j, ok := o.idx.nearestWithin(p, tol)
	if !ok {
		return nil, false
	}
	return o.reps[o.group[j]], true
}

// clusterVertices implements M1: flood-fill every vertex in verts into
// clusters whose members are pairwise within tol (transitively), electing
// one representative per cluster via the kernel's average-vertex helper.
func clusterVertices(k kernel.Kernel, verts []kernel.Shape, tol float64) (*vertexOrigin, int, error) {
	points := make([][3]float64, len(verts))
	for i, v := range verts {
		points[i] = v.OBB().Center
	}
	idx := newSpatialIndex(points, tol)

	group := make([]int, len(verts))
	for i := range group {
		group[i] = -1
	}
	numClusters := 0
	queue := make([]int, 0, len(verts))
	for start := range verts {
		if group[start] != -1 {
			continue
		}
		cluster := numClusters
		numClusters++
		group[start] = cluster
		queue = queue[:0]
		queue = append(queue, start)
		for len(queue) > 0 {
			cur := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			for _, j := range idx.neighbors(points[cur]) {
				if group[j] != -1 {
					continue
				}
				if distance(points[cur], points[j]) <= tol {
					group[j] = cluster
					queue = append(queue, j)
				}
			}
		}
	}

	reps := make([]kernel.Shape, numClusters)
	members := make([][]kernel.Shape, numClusters)
	for i, v := range verts {
		members[group[i]] = append(members[group[i]], v)
	}
	for c, ms := range members {
		if len(ms) == 1 {
			reps[c] = ms[0]
			continue
		}
		rep, err := k.AverageVertex(ms)
		if err != nil {
			return nil, 0, fmt.Errorf("merge: M1 average vertex for cluster %d: %w", c, err)
		}
		reps[c] = rep
	}

	return &vertexOrigin{idx: idx, reps: reps, group: group}, numClusters, nil
}
