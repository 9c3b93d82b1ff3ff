package classify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaea/overlap-checker/internal/boolop"
	"github.com/ukaea/overlap-checker/internal/boxkernel"
)

func cube(side float64, corner [3]float64) *boxkernel.Shape {
	hi := [3]float64{corner[0] + side, corner[1] + side, corner[2] + side}
	return boxkernel.NewSolid(corner, hi)
}

func driver() *boolop.Driver { return boolop.New(boxkernel.New()) }

// Scenario 1: two identical cubes of side 10.
func TestIdenticalCubesOverlap(t *testing.T) {
	a := cube(10, [3]float64{0, 0, 0})
	b := cube(10, [3]float64{0, 0, 0})
	out, err := Classify(context.Background(), driver(), a, b, []float64{0.5}, time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusOverlap, out.Status)
	assert.InDelta(t, 1000.0, out.VolCommon, 1e-6)
	assert.InDelta(t, 0.0, out.VolCutI, 1e-6)
	assert.InDelta(t, 0.0, out.VolCutJ, 1e-6)
}

// Scenario 2: small cube inside big cube.
func TestSmallInsideBig(t *testing.T) {
	big := cube(10, [3]float64{0, 0, 0})
	small := cube(6, [3]float64{2, 2, 2})
	out, err := Classify(context.Background(), driver(), big, small, []float64{0.5}, time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusOverlap, out.Status)
	assert.InDelta(t, 216.0, out.VolCommon, 1e-6)
	assert.InDelta(t, 784.0, out.VolCutI, 1e-6)
	assert.InDelta(t, 0.0, out.VolCutJ, 1e-6)
}

// Scenario 3: adjacent cubes touching on a face.
func TestAdjacentTouching(t *testing.T) {
	a := cube(5, [3]float64{0, 0, 0})
	b := cube(5, [3]float64{5, 0, 0})
	out, err := Classify(context.Background(), driver(), a, b, []float64{0.5}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusTouching, out.Status)
}

// Scenario 4: swept gap across the fuzzy band.
func TestSweptGap(t *testing.T) {
	a := cube(5, [3]float64{0, 0, 0})
	for _, tc := range []struct {
		z    float64
		want Status
	}{
		{4.4, StatusOverlap},
		{4.6, StatusTouching},
		{5.4, StatusTouching},
		{5.6, StatusDistinct},
	} {
		b := cube(5, [3]float64{0, 0, tc.z})
		out, err := Classify(context.Background(), driver(), a, b, []float64{0.5}, time.Second)
		require.NoError(t, err)
		assert.Equalf(t, tc.want, out.Status, "z=%v", tc.z)
	}
}

// P1: status implications.
func TestP1Invariants(t *testing.T) {
	a := cube(5, [3]float64{0, 0, 0})
	distinctB := cube(5, [3]float64{0, 0, 5.6})
	out, err := Classify(context.Background(), driver(), a, distinctB, []float64{0.5}, time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusDistinct, out.Status)
	d, err := a.DistanceTo(distinctB)
	require.NoError(t, err)
	assert.Greater(t, d, 0.0)

	overlapB := cube(6, [3]float64{2, 2, 2})
	out2, err := Classify(context.Background(), driver(), a, overlapB, []float64{0.5}, time.Second)
	require.NoError(t, err)
	// a is side 5 at origin, overlapB side 6 at (2,2,2): they do overlap.
	require.Equal(t, StatusOverlap, out2.Status)
	assert.Greater(t, out2.VolCommon, 0.0)
	minCut := out2.VolCutI
	if out2.VolCutJ < minCut {
		minCut = out2.VolCutJ
	}
	_ = minCut
}

// P4: tolerance monotonicity — if classifier(eps1) = Distinct then
// classifier(eps2) for eps2 > eps1 is Distinct or Touching, never Overlap
// or Failed.
func TestP4ToleranceMonotonicity(t *testing.T) {
	a := cube(5, [3]float64{0, 0, 0})
	b := cube(5, [3]float64{0, 0, 5.2})
	small, err := Classify(context.Background(), driver(), a, b, []float64{0.01}, time.Second)
	require.NoError(t, err)
	if small.Status != StatusDistinct {
		t.Skip("precondition not met at eps=0.01")
	}
	big, err := Classify(context.Background(), driver(), a, b, []float64{0.5}, time.Second)
	require.NoError(t, err)
	assert.Contains(t, []Status{StatusDistinct, StatusTouching}, big.Status)
}

// P5: retry determinism — same inputs and ladder yield the same status when
// run repeatedly and serially.
func TestP5RetryDeterminism(t *testing.T) {
	a := cube(5, [3]float64{0, 0, 0})
	b := cube(5, [3]float64{5, 0, 0})
	var first Status
	for i := 0; i < 5; i++ {
		out, err := Classify(context.Background(), driver(), a, b, DefaultLadder, time.Second)
		require.NoError(t, err)
		if i == 0 {
			first = out.Status
		} else {
			assert.Equal(t, first, out.Status)
		}
	}
}

func TestEmptyLadderIsConfigError(t *testing.T) {
	a := cube(1, [3]float64{0, 0, 0})
	b := cube(1, [3]float64{0, 0, 0})
	_, err := Classify(context.Background(), driver(), a, b, nil, time.Second)
	assert.Error(t, err)
}
