package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptsValidatesForAllThreeStages(t *testing.T) {
	o := DefaultOpts()
	assert.NoError(t, o.ValidateChecker())
	assert.NoError(t, o.ValidateImprinter())
	assert.NoError(t, o.ValidateMerger())
}

func TestValidateCheckerRejectsNegativeClearance(t *testing.T) {
	o := DefaultOpts()
	o.BBoxClearance = -1
	assert.Error(t, o.ValidateChecker())
}

func TestValidateCheckerRejectsRatioOutOfRange(t *testing.T) {
	for _, r := range []float64{0, 1, -0.5, 1.5} {
		o := DefaultOpts()
		o.MaxCommonVolumeRatio = r
		assert.Error(t, o.ValidateChecker(), "ratio %v should be rejected", r)
	}
}

func TestValidateCheckerRejectsEmptyLadder(t *testing.T) {
	o := DefaultOpts()
	o.ImprintLadder = nil
	assert.Error(t, o.ValidateChecker())
}

func TestValidateCheckerRejectsNegativeLadderValue(t *testing.T) {
	o := DefaultOpts()
	o.ImprintLadder = []float64{0.001, -0.1}
	assert.Error(t, o.ValidateChecker())
}

func TestValidateCheckerRejectsNonPositiveTimePerPair(t *testing.T) {
	o := DefaultOpts()
	o.TimePerPair = 0
	assert.Error(t, o.ValidateChecker())
}

func TestValidateMergerRejectsNegativeTolerance(t *testing.T) {
	o := DefaultOpts()
	o.MergeTolerance = -0.001
	assert.Error(t, o.ValidateMerger())
}

func TestFloatListFlagAccumulatesValues(t *testing.T) {
	var f FloatListFlag
	assert.NoError(t, f.Set("0.001"))
	assert.NoError(t, f.Set("0"))
	assert.Equal(t, []float64{0.001, 0}, f.Values)
	assert.Error(t, f.Set("not-a-number"))
}
