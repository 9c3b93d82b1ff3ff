package merge

import (
	"github.com/biogo/store/llrb"
)

// cellKey is one occupant's grid cell, stored in an llrb tree so the index
// can be built by a single in-order traversal (Do) rather than a bespoke
// map, following the key-struct-plus-Insert pattern used elsewhere in this
// codebase's dependency pack for coordinate-keyed lookups.
type cellKey struct {
	cell [3]int64
	idx  int
}

func (k cellKey) Compare(c llrb.Comparable) int {
	o := c.(cellKey)
	for i := 0; i < 3; i++ {
		if k.cell[i] != o.cell[i] {
			if k.cell[i] < o.cell[i] {
				return -1
			}
			return 1
		}
	}
	return k.idx - o.idx
}

// spatialIndex buckets a fixed list of points into a uniform grid sized
// from the caller's tolerance, so that any two points within tol of each
// other are guaranteed to land in the same or a 26-neighbor-adjacent cell.
type spatialIndex struct {
	points   [][3]float64
	cellSize float64
	buckets  map[[3]int64][]int
}

func newSpatialIndex(points [][3]float64, tol float64) *spatialIndex {
	cellSize := tol
	if cellSize <= 0 {
		cellSize = 1e-9
	}
	tree := &llrb.Tree{}
	for i, p := range points {
		tree.Insert(cellKey{cell: cellOf(p, cellSize), idx: i})
	}
	buckets := make(map[[3]int64][]int)
	tree.Do(func(c llrb.Comparable) bool {
		e := c.(cellKey)
		buckets[e.cell] = append(buckets[e.cell], e.idx)
		return false
	})
	return &spatialIndex{points: points, cellSize: cellSize, buckets: buckets}
}

func cellOf(p [3]float64, cellSize float64) [3]int64 {
	var cell [3]int64
	for i, v := range p {
		cell[i] = int64(floorDiv(v, cellSize))
	}
	return cell
}

func floorDiv(v, cellSize float64) float64 {
	q := v / cellSize
	if q < 0 {
		i := int64(q)
		if float64(i) != q {
			i--
		}
		return float64(i)
	}
	return float64(int64(q))
}

// neighbors returns every indexed point sharing one of the 27 cells around
// p's own cell — a safe superset of every point within tol of p.
func (idx *spatialIndex) neighbors(p [3]float64) []int {
	base := cellOf(p, idx.cellSize)
	var out []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				cell := [3]int64{base[0] + dx, base[1] + dy, base[2] + dz}
				out = append(out, idx.buckets[cell]...)
			}
		}
	}
	return out
}

// nearestWithin returns the indexed point closest to p that is within tol,
// or ok=false if none qualifies.
func (idx *spatialIndex) nearestWithin(p [3]float64, tol float64) (best int, ok bool) {
	bestDist := tol
	ok = false
	for _, j := range idx.neighbors(p) {
		d := distance(p, idx.points[j])
		if d <= bestDist {
			bestDist = d
			best = j
			ok = true
		}
	}
	return best, ok
}

func distance(a, b [3]float64) float64 {
	var sumSq float64
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		sumSq += d * d
	}
	return sqrtf(sumSq)
}

func sqrtf(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 40; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}
