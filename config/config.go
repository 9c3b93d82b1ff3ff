// Package config holds the Opts shared by all three command-line front
// ends and the validation that turns a bad flag combination into a
// configuration error before any kernel work starts.
package config

import (
	"time"

	"github.com/grailbio/base/errors"

	"github.com/ukaea/overlap-checker/internal/classify"
)

// Opts is the union of every flag the three CLIs accept. Each binary only
// sets the fields it cares about; each Validate* method only checks fields
// relevant to its stage (a zero MergeTolerance, say, is fine for
// overlap-checker, which never reads it).
type Opts struct {
	// Threads is the worker pool size (-j). 0 means "use the host core
	// count", resolved by the caller, not by the Validate* methods.
	Threads int

	// BBoxClearance is the broad-phase OBB enlargement margin
	// (--bbox-clearance).
	BBoxClearance float64

	// ImprintLadder is the tolerance ladder the classifier retries through
	// (--imprint-tolerance, repeatable). overlap-imprinter sets it to its
	// single --imprint-tolerance value.
	ImprintLadder []float64

	// MaxCommonVolumeRatio is the bad_overlap threshold
	// (--max-common-volume-ratio).
	MaxCommonVolumeRatio float64

	// TimePerPair bounds a single pave-fill call (--time-per-pair).
	TimePerPair time.Duration

	// MergeTolerance is the merger's clustering/coincidence tolerance.
	MergeTolerance float64
}

// DefaultOpts mirrors the flag defaults named for overlap-checker: bbox
// clearance 0.5, ladder [0.001, 0], ratio 0.01, 60s per pair; the merger's
// own default tolerance is 0.001.
func DefaultOpts() Opts {
	ladder := make([]float64, len(classify.DefaultLadder))
	copy(ladder, classify.DefaultLadder)
	return Opts{
		BBoxClearance:        0.5,
		ImprintLadder:        ladder,
		MaxCommonVolumeRatio: 0.01,
		TimePerPair:          60 * time.Second,
		MergeTolerance:       0.001,
	}
}

// ValidateChecker checks the fields overlap-checker reads.
func (o Opts) ValidateChecker() error {
	if o.Threads < 0 {
		return errors.E(errors.Invalid, "config: thread count must be >= 0")
	}
	if o.BBoxClearance < 0 {
		return errors.E(errors.Invalid, "config: bbox clearance must be >= 0")
	}
	if err := validateLadder(o.ImprintLadder); err != nil {
		return err
	}
	if o.MaxCommonVolumeRatio <= 0 || o.MaxCommonVolumeRatio >= 1 {
		return errors.E(errors.Invalid, "config: max-common-volume-ratio must be in (0, 1)")
	}
	if o.TimePerPair <= 0 {
		return errors.E(errors.Invalid, "config: time-per-pair must be > 0")
	}
	return nil
}

// ValidateImprinter checks the fields overlap-imprinter reads.
func (o Opts) ValidateImprinter() error {
	return validateLadder(o.ImprintLadder)
}

// ValidateMerger checks the fields overlap-merger reads.
func (o Opts) ValidateMerger() error {
	if o.MergeTolerance < 0 {
		return errors.E(errors.Invalid, "config: merge tolerance must be >= 0")
	}
	return nil
}

func validateLadder(ladder []float64) error {
	if len(ladder) == 0 {
		return errors.E(errors.Invalid, "config: imprint-tolerance ladder must not be empty")
	}
	for _, eps := range ladder {
		if eps < 0 {
			return errors.E(errors.Invalid, "config: imprint-tolerance values must be >= 0")
		}
	}
	return nil
}
