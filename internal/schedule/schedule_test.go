package schedule

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaea/overlap-checker/internal/boolop"
	"github.com/ukaea/overlap-checker/internal/boxkernel"
	"github.com/ukaea/overlap-checker/internal/classify"
	"github.com/ukaea/overlap-checker/internal/pairio"
	"github.com/ukaea/overlap-checker/internal/pool"
	"github.com/ukaea/overlap-checker/internal/shape"
)

func newTestDoc() *shape.Document {
	// Three cubes: 0 and 1 overlap at a corner, 2 sits far away and touches
	// nothing.
	s0 := boxkernel.NewSolid([3]float64{0, 0, 0}, [3]float64{5, 5, 5})
	s1 := boxkernel.NewSolid([3]float64{4, 4, 4}, [3]float64{6, 6, 6})
	s2 := boxkernel.NewSolid([3]float64{100, 100, 100}, [3]float64{101, 101, 101})
	return shape.NewDocument([]shape.Solid{shape.Wrap(s0), shape.Wrap(s1), shape.Wrap(s2)})
}

func TestPrecomputeFillsEveryOrdinal(t *testing.T) {
	doc := newTestDoc()
	p := pool.New(2)
	defer p.Close()
	pre, err := Precompute(p, doc)
	require.NoError(t, err)
	require.Len(t, pre, 3)
	assert.InDelta(t, 125, pre[0].vol, 1e-9)
	assert.InDelta(t, 8, pre[1].vol, 1e-9)
	assert.InDelta(t, 1, pre[2].vol, 1e-9)
	assert.Greater(t, pre[0].radius, 0.0)
}

func TestOBBIndexFindsAdjacentPairButNotFarOne(t *testing.T) {
	doc := newTestDoc()
	p := pool.New(2)
	defer p.Close()
	pre, err := Precompute(p, doc)
	require.NoError(t, err)

	idx := buildOBBIndex(pre, 0.01)
	cands1 := idx.candidatesLessThan(1, pre[1].obb.Center)
	assert.Contains(t, cands1, 0)

	cands2 := idx.candidatesLessThan(2, pre[2].obb.Center)
	assert.NotContains(t, cands2, 0)
	assert.NotContains(t, cands2, 1)
}

func TestRunClassifiesOverlappingPairAndSkipsDistantOne(t *testing.T) {
	doc := newTestDoc()
	p := pool.New(4)
	defer p.Close()
	driver := boolop.New(boxkernel.New())

	var buf strings.Builder
	w := pairio.NewWriter(&buf)
	summary, err := Run(context.Background(), p, driver, doc, w, Opts{
		BBoxClearance:        0.1,
		Ladder:               classify.DefaultLadder,
		TimePerPair:          time.Second,
		MaxCommonVolumeRatio: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pairs)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.Overlaps+summary.BadOverlaps)

	rows, err := pairio.ReadAll(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0, rows[0].I)
	assert.Equal(t, 1, rows[0].J)
	assert.True(t, rows[0].HasVolumes)
}

func TestRunFlagsBadOverlapAboveRatioThreshold(t *testing.T) {
	// Cube 0 is huge; cube 1 barely pokes into a corner of it, so
	// vol_common (1) is tiny relative to cube 0's volume. It still exceeds
	// 0.0001 times the smaller CUT volume (cube 1's residual, 7), so the
	// pair is flagged bad_overlap.
	s0 := boxkernel.NewSolid([3]float64{0, 0, 0}, [3]float64{100, 100, 100})
	s1 := boxkernel.NewSolid([3]float64{99, 99, 99}, [3]float64{101, 101, 101})
	doc := shape.NewDocument([]shape.Solid{shape.Wrap(s0), shape.Wrap(s1)})

	p := pool.New(2)
	defer p.Close()
	driver := boolop.New(boxkernel.New())

	var buf strings.Builder
	w := pairio.NewWriter(&buf)
	summary, err := Run(context.Background(), p, driver, doc, w, Opts{
		BBoxClearance:        0.1,
		Ladder:               classify.DefaultLadder,
		TimePerPair:          time.Second,
		MaxCommonVolumeRatio: 0.0001,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BadOverlaps)
	assert.Equal(t, 0, summary.Overlaps)
}
