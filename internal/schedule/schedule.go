// Package schedule implements the pair scheduler: a pre-pass that computes
// every solid's oriented bounding box and volume in parallel, an oriented-
// bounding-box broad-phase index that prunes pairs too far apart to ever
// touch, and a single-consumer reporting loop that streams classified pairs
// out as CSV rows.
package schedule

import (
	"context"
	"sync"
	"time"

	"blainsmith.com/go/seahash"
	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/log"

	"github.com/ukaea/overlap-checker/internal/boolop"
	"github.com/ukaea/overlap-checker/internal/classify"
	"github.com/ukaea/overlap-checker/internal/kernel"
	"github.com/ukaea/overlap-checker/internal/pairio"
	"github.com/ukaea/overlap-checker/internal/pool"
	"github.com/ukaea/overlap-checker/internal/shape"
)

// Opts configures the scheduler.
type Opts struct {
	BBoxClearance        float64
	Ladder               []float64
	TimePerPair          time.Duration
	MaxCommonVolumeRatio float64
	ProgressInterval     time.Duration
}

// Summary is the end-of-stage tally the CLI uses to decide its exit code.
type Summary struct {
	Pairs       int
	Touches     int
	Overlaps    int
	BadOverlaps int
	Failed      int
}

type precomputed struct {
	obb    kernel.OBB
	vol    float64
	radius float64
}

// Precompute computes every solid's OBB and volume concurrently using a
// barrier group, then returns once all N are ready.
func Precompute(p *pool.Pool, doc *shape.Document) ([]precomputed, error) {
	n := doc.Len()
	out := make([]precomputed, n)
	var mu sync.Mutex
	var firstErr error
	barrier := p.Barrier()
	for i := 0; i < n; i++ {
		i := i
		barrier.Submit(func() {
			s := doc.At(i)
			obb := s.OrientedBBox()
			vol, err := s.Volume()
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			out[i] = precomputed{obb: obb, vol: vol, radius: boundingRadius(obb)}
		})
	}
	barrier.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func boundingRadius(b kernel.OBB) float64 {
	var sumSq float64
	for _, h := range b.Half {
		sumSq += h * h
	}
	return sqrt(sumSq)
}

func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 40; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// gridEntry is one solid's cell membership, stored in the llrb tree so the
// index can be built from a single in-order traversal (Do) rather than
// maintaining a bespoke map directly.
type gridEntry struct {
	hash    uint64
	ordinal int
}

func (e gridEntry) Compare(c llrb.Comparable) int {
	o := c.(gridEntry)
	if e.hash != o.hash {
		if e.hash < o.hash {
			return -1
		}
		return 1
	}
	return e.ordinal - o.ordinal
}

// obbIndex is a uniform spatial grid over solid centers, keyed by a seahash
// of each quantized cell. cellSize is chosen so that any two solids whose
// OBBs could possibly fail the disjointness test after inflation by
// clearance necessarily fall in the same or a face/edge/corner-adjacent
// cell — so scanning the 27-cell neighborhood around a solid's own cell is
// guaranteed not to miss a candidate pair.
type obbIndex struct {
	cellSize float64
	buckets  map[uint64][]int
}

func buildOBBIndex(pre []precomputed, clearance float64) *obbIndex {
	maxRadius := 0.0
	for _, p := range pre {
		if p.radius > maxRadius {
			maxRadius = p.radius
		}
	}
	cellSize := 2 * (maxRadius + clearance)
	if cellSize <= 0 {
		cellSize = 1
	}

	tree := &llrb.Tree{}
	for i, p := range pre {
		cell := cellOf(p.obb.Center, cellSize)
		tree.Insert(gridEntry{hash: hashCell(cell), ordinal: i})
	}
	buckets := make(map[uint64][]int)
	tree.Do(func(c llrb.Comparable) bool {
		e := c.(gridEntry)
		buckets[e.hash] = append(buckets[e.hash], e.ordinal)
		return false
	})
	return &obbIndex{cellSize: cellSize, buckets: buckets}
}

func cellOf(center [3]float64, cellSize float64) [3]int64 {
	var cell [3]int64
	for i, v := range center {
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

func hashCell(cell [3]int64) uint64 {
	var buf [24]byte
	for i, c := range cell {
		u := uint64(c)
		for b := 0; b < 8; b++ {
			buf[i*8+b] = byte(u >> (8 * b))
		}
	}
	return seahash.Sum64(buf[:])
}

// candidatesLessThan returns every indexed ordinal j < i sharing a
// neighboring cell with solid i's own cell.
func (idx *obbIndex) candidatesLessThan(i int, center [3]float64) []int {
	base := cellOf(center, idx.cellSize)
	seen := make(map[int]bool)
	var out []int
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				cell := [3]int64{base[0] + dx, base[1] + dy, base[2] + dz}
				for _, j := range idx.buckets[hashCell(cell)] {
					if j < i && !seen[j] {
						seen[j] = true
						out = append(out, j)
					}
				}
			}
		}
	}
	return out
}

type pairResult struct {
	pair    shape.Pair
	outcome classify.Outcome
	err     error
}

// Run executes the full C6 pass: OBB/volume precompute, broad-phase pair
// discovery, async classification, and a single-consumer CSV reporting
// loop. It returns once every submitted pair has been classified and
// written.
func Run(ctx context.Context, p *pool.Pool, driver *boolop.Driver, doc *shape.Document, w *pairio.Writer, opts Opts) (Summary, error) {
	pre, err := Precompute(p, doc)
	if err != nil {
		return Summary{}, err
	}
	idx := buildOBBIndex(pre, opts.BBoxClearance)

	am := pool.NewAsyncMap[pairResult](p)
	submitted := 0
	lastProgress := 0
	progressInterval := opts.ProgressInterval
	if progressInterval <= 0 {
		progressInterval = 5 * time.Second
	}

	for i := 0; i < doc.Len(); i++ {
		obbI := pre[i].obb.Enlarge(opts.BBoxClearance)
		for _, j := range idx.candidatesLessThan(i, pre[i].obb.Center) {
			obbJ := pre[j].obb.Enlarge(opts.BBoxClearance)
			if obbI.DisjointFrom(obbJ) {
				continue
			}
			pair := shape.NewPair(i, j)
			si, sj := doc.At(pair.I).Unwrap(), doc.At(pair.J).Unwrap()
			submitted++
			am.Submit(func() pairResult {
				outcome, err := classify.Classify(ctx, driver, si, sj, opts.Ladder, opts.TimePerPair)
				return pairResult{pair: pair, outcome: outcome, err: err}
			})
		}
	}

	summary := Summary{Pairs: submitted}
	start := time.Now()
	for received := 0; received < submitted; received++ {
		res, ok := am.Get()
		if !ok {
			break
		}
		if res.err != nil {
			return summary, res.err
		}
		switch res.outcome.Status {
		case classify.StatusFailed, classify.StatusTimeout:
			summary.Failed++
		case classify.StatusTouching:
			summary.Touches++
			if err := w.Write(pairio.Row{I: res.pair.I, J: res.pair.J, Status: pairio.StatusTouch}); err != nil {
				return summary, err
			}
		case classify.StatusOverlap:
			status := pairio.StatusOverlap
			ratio := opts.MaxCommonVolumeRatio
			if ratio <= 0 {
				ratio = 0.01
			}
			if res.outcome.VolCommon > ratio*minf(res.outcome.VolCutI, res.outcome.VolCutJ) {
				status = pairio.StatusBadOverlap
				summary.BadOverlaps++
			} else {
				summary.Overlaps++
			}
			row := pairio.Row{
				I: res.pair.I, J: res.pair.J, Status: status,
				VolCommon: res.outcome.VolCommon, VolI: res.outcome.VolCutI, VolJ: res.outcome.VolCutJ,
				HasVolumes: true,
			}
			if err := w.Write(row); err != nil {
				return summary, err
			}
		}
		if received-lastProgress >= 1 && time.Since(start) >= progressInterval {
			log.Info.Printf("schedule: %d/%d pairs classified", received+1, submitted)
			lastProgress = received
			start = time.Now()
		}
	}
	if err := w.Flush(); err != nil {
		return summary, err
	}
	return summary, nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
