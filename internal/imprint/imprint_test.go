package imprint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaea/overlap-checker/internal/boolop"
	"github.com/ukaea/overlap-checker/internal/boxkernel"
	"github.com/ukaea/overlap-checker/internal/shape"
)

func cube(side float64, corner [3]float64) *boxkernel.Shape {
	hi := [3]float64{corner[0] + side, corner[1] + side, corner[2] + side}
	return boxkernel.NewSolid(corner, hi)
}

func driver() *boolop.Driver { return boolop.New(boxkernel.New()) }

// Corner-overlapping cubes: side 5 at the origin, side 2 at (4,4,4).
func TestCornerOverlapMergesIntoLargerCube(t *testing.T) {
	big := cube(5, [3]float64{0, 0, 0})
	small := cube(2, [3]float64{4, 4, 4})

	res, err := One(context.Background(), driver(), big, small, 0.1, time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusMergeIntoShape, res.Status)
	assert.InDelta(t, 1.0, res.VolCommon, 1e-6)

	volShape, err := res.ReplaceI.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 125.0, volShape, 1e-6)

	volTool, err := res.ReplaceJ.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 7.0, volTool, 1e-6)
}

func TestDistinctCubesLeaveBothUntouched(t *testing.T) {
	a := cube(5, [3]float64{0, 0, 0})
	b := cube(5, [3]float64{100, 100, 100})
	res, err := One(context.Background(), driver(), a, b, 0.1, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusDistinct, res.Status)
	assert.Nil(t, res.ReplaceI)
	assert.Nil(t, res.ReplaceJ)
}

// P2: volume conservation. Before imprinting, the shared region is claimed
// twice (once by each overlapping solid's own declared volume); after
// imprinting it is claimed once, by whichever operand absorbed COMMON. So
// Σ volume before, minus the double-counted overlap, equals Σ volume after.
func TestVolumeConservationAcrossImprint(t *testing.T) {
	big := cube(5, [3]float64{0, 0, 0})
	small := cube(2, [3]float64{4, 4, 4})
	volBigBefore, err := big.Volume()
	require.NoError(t, err)
	volSmallBefore, err := small.Volume()
	require.NoError(t, err)

	res, err := One(context.Background(), driver(), big, small, 0.1, time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusMergeIntoShape, res.Status)

	volShapeAfter, err := res.ReplaceI.Volume()
	require.NoError(t, err)
	volToolAfter, err := res.ReplaceJ.Volume()
	require.NoError(t, err)

	before := volBigBefore + volSmallBefore - res.VolCommon
	after := volShapeAfter + volToolAfter
	assert.InDelta(t, before, after, 1e-6)
}

func TestAllMutatesDocumentInPairOrder(t *testing.T) {
	big := shape.Wrap(cube(5, [3]float64{0, 0, 0}))
	small := shape.Wrap(cube(2, [3]float64{4, 4, 4}))
	untouched := shape.Wrap(cube(1, [3]float64{50, 50, 50}))
	doc := shape.NewDocument([]shape.Solid{big, small, untouched})

	results, failures, err := All(context.Background(), driver(), doc,
		[]shape.Pair{shape.NewPair(1, 0)}, 0.1, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, failures)
	require.Len(t, results, 1)
	assert.Equal(t, StatusMergeIntoShape, results[0].Status)

	vol0, err := doc.At(0).Volume()
	require.NoError(t, err)
	assert.InDelta(t, 125.0, vol0, 1e-6)
	vol1, err := doc.At(1).Volume()
	require.NoError(t, err)
	assert.InDelta(t, 7.0, vol1, 1e-6)
	vol2, err := doc.At(2).Volume()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vol2, 1e-6)
}

func TestAllCountsFailuresAndLeavesSlotsUntouched(t *testing.T) {
	a := shape.Wrap(cube(5, [3]float64{0, 0, 0}))
	b := shape.Wrap(cube(2, [3]float64{4, 4, 4}))
	doc := shape.NewDocument([]shape.Solid{a, b})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already done: PaveFill fails for every pair

	results, failures, err := All(ctx, driver(), doc, []shape.Pair{shape.NewPair(0, 1)}, 0.1, time.Second)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, 1, failures)

	vol0, err := doc.At(0).Volume()
	require.NoError(t, err)
	assert.InDelta(t, 125.0, vol0, 1e-6)
	vol1, err := doc.At(1).Volume()
	require.NoError(t, err)
	assert.InDelta(t, 8.0, vol1, 1e-6)
}
