package boolop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaea/overlap-checker/internal/boxkernel"
	"github.com/ukaea/overlap-checker/internal/kernel"
)

func cube(side float64, corner [3]float64) *boxkernel.Shape {
	hi := [3]float64{corner[0] + side, corner[1] + side, corner[2] + side}
	return boxkernel.NewSolid(corner, hi)
}

func TestDriverCommonAndCut(t *testing.T) {
	d := New(boxkernel.New())
	a := cube(10, [3]float64{0, 0, 0})
	b := cube(6, [3]float64{2, 2, 2})
	pf, _, err := d.PaveFill(context.Background(), a, b, 0.001, time.Second)
	require.NoError(t, err)

	common, err := d.Common(pf)
	require.NoError(t, err)
	vol, err := common.Shape.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 216.0, vol, 1e-6)

	cutI, err := d.Cut(pf, kernel.CutIMinusJ)
	require.NoError(t, err)
	volI, err := cutI.Shape.Volume()
	require.NoError(t, err)
	assert.InDelta(t, 784.0, volI, 1e-6)
}

func TestReclassifyNegativeCommonWithinThreshold(t *testing.T) {
	d := New(boxkernel.New())
	// |vol_common| = 1, min(cut) = 100 -> ratio 0.01 <= 0.1 -> touching.
	outcome := d.ReclassifyNegativeCommon(-1, 100, 200)
	assert.Equal(t, NegativeCommonTouching, outcome)
}

func TestReclassifyNegativeCommonExceedsThreshold(t *testing.T) {
	d := New(boxkernel.New())
	// |vol_common| = 50, min(cut) = 100 -> ratio 0.5 > 0.1 -> failed.
	outcome := d.ReclassifyNegativeCommon(-50, 100, 200)
	assert.Equal(t, NegativeCommonFailed, outcome)
}

func TestPaveFillTimeout(t *testing.T) {
	d := New(blockingKernel{boxkernel.New()})
	a := cube(1, [3]float64{0, 0, 0})
	b := cube(1, [3]float64{0, 0, 0})
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)
	_, _, err := d.PaveFill(ctx, a, b, 0, time.Millisecond)
	assert.ErrorIs(t, err, kernel.ErrTimeout)
}

// blockingKernel's PaveFill reports ErrTimeout whenever ctx is already
// past its deadline, simulating a kernel progress observer that notices a
// cancelled pave.
type blockingKernel struct {
	*boxkernel.K
}

func (blockingKernel) PaveFill(ctx context.Context, a, b kernel.Shape, eps float64) (kernel.PaveFilling, error) {
	select {
	case <-ctx.Done():
		return nil, kernel.ErrTimeout
	default:
		return nil, nil
	}
}
