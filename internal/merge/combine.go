package merge

import (
	farm "github.com/dgryski/go-farm"

	"github.com/ukaea/overlap-checker/internal/kernel"
)

// idAssigner hands out small stable integers for representative shapes,
// encountered in first-seen order, so a combinatorial key can be built from
// plain ints instead of shape identity.
type idAssigner struct {
	ids  map[kernel.Shape]int
	next int
}

func newIDAssigner() *idAssigner { return &idAssigner{ids: map[kernel.Shape]int{}} }

func (a *idAssigner) idFor(s kernel.Shape) int {
	if id, ok := a.ids[s]; ok {
		return id
	}
	id := a.next
	a.next++
	a.ids[s] = id
	return id
}

// combItem is one EDGE or FACE candidate for M2 clustering: its combinatorial
// key is the sorted set of its Origin-bound child-shape ids (two vertex ids
// for an edge, the multiset of bounding-edge ids for a face).
type combItem struct {
	shape kernel.Shape
	key   []int
}

func combKeyHash(key []int) uint64 {
	buf := make([]byte, 8*len(key))
	for i, v := range key {
		u := uint64(v)
		for b := 0; b < 8; b++ {
			buf[i*8+b] = byte(u >> (8 * b))
		}
	}
	return farm.Hash64WithSeed(buf, 0)
}

func sameKey(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// groupByCombinatorialKey buckets items by a farm hash of their key, splits
// hash collisions by exact key comparison, then refines each exact-key
// bucket pairwise using coincident (the M2 geometric refinement). Singleton
// groups are dropped — only multi-member coincidence groups come back.
func groupByCombinatorialKey(items []combItem, coincident func(a, b kernel.Shape) (bool, error)) ([][]kernel.Shape, error) {
	hashBuckets := make(map[uint64][]int)
	for i, it := range items {
		h := combKeyHash(it.key)
		hashBuckets[h] = append(hashBuckets[h], i)
	}

	var groups [][]kernel.Shape
	for _, bucket := range hashBuckets {
		var exactGroups [][]int
		for _, i := range bucket {
			placed := false
			for g, eg := range exactGroups {
				if sameKey(items[eg[0]].key, items[i].key) {
					exactGroups[g] = append(eg, i)
					placed = true
					break
				}
			}
			if !placed {
				exactGroups = append(exactGroups, []int{i})
			}
		}
		for _, eg := range exactGroups {
			subGroups, err := splitByCoincidence(items, eg, coincident)
			if err != nil {
				return nil, err
			}
			for _, sg := range subGroups {
				if len(sg) < 2 {
					continue
				}
				shapes := make([]kernel.Shape, len(sg))
				for i, idx := range sg {
					shapes[i] = items[idx].shape
				}
				groups = append(groups, shapes)
			}
		}
	}
	return groups, nil
}

// splitByCoincidence refines one exact-key bucket into one or more
// geometric coincidence groups: item i joins an existing group g iff
// coincident is true against g's first member.
func splitByCoincidence(items []combItem, bucket []int, coincident func(a, b kernel.Shape) (bool, error)) ([][]int, error) {
	var groups [][]int
	for _, i := range bucket {
		placed := false
		for g, group := range groups {
			ok, err := coincident(items[i].shape, items[group[0]].shape)
			if err != nil {
				return nil, err
			}
			if ok {
				groups[g] = append(group, i)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []int{i})
		}
	}
	return groups, nil
}
