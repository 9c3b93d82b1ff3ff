// Package boolop wraps kernel.Kernel's pave-fill plus COMMON/CUT/SECTION/
// FUSE into timeout-bounded calls, and owns the negative-common-volume
// workaround that the intersection classifier (internal/classify) relies
// on.
package boolop

import (
	"context"
	"time"

	"github.com/grailbio/base/log"

	"github.com/ukaea/overlap-checker/internal/kernel"
)

// NegativeVolumeRatio is the empirical threshold: a COMMON volume within
// this fraction of min(vol_cut_i, vol_cut_j) is reclassified as Touching
// rather than failed. Pinned here, not inlined, so it can be revisited by a
// single test and a single constant.
const NegativeVolumeRatio = 0.1

// Driver wraps a kernel.Kernel with timeout handling and the
// negative-volume workaround. It is safe for concurrent use: every method
// is a pure function of its arguments, so multiple pairs may be evaluated
// concurrently by multiple pool workers each holding their own Driver (or
// sharing one, since Driver itself holds no per-call state).
type Driver struct {
	k kernel.Kernel
}

// New wraps k.
func New(k kernel.Kernel) *Driver {
	return &Driver{k: k}
}

// Op tags which boolean operation produced a Result, for warning/metric
// bookkeeping.
type Op string

const (
	OpPaveFill Op = "pave_fill"
	OpCommon   Op = "common"
	OpCutI     Op = "cut_i"
	OpCutJ     Op = "cut_j"
	OpSection  Op = "section"
	OpFuse     Op = "fuse"
)

// Result is the tagged outcome of one driver call.
type Result struct {
	Op              Op
	Shape           kernel.Shape
	FuzzyValueUsed  float64
	WarningsByPhase map[string]int
	ElapsedSeconds  float64
}

// PaveFill runs the shared pave-fill precomputation under deadline: if the
// kernel's progress observer reports the deadline has passed, the driver
// returns kernel.ErrTimeout and no later phase runs for this pair.
func (d *Driver) PaveFill(ctx context.Context, a, b kernel.Shape, eps float64, timeout time.Duration) (kernel.PaveFilling, float64, error) {
	start := time.Now()
	cctx, cancel := kernel.Deadline(ctx, timeout)
	defer cancel()
	pf, err := d.k.PaveFill(cctx, a, b, eps)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return nil, elapsed, err
	}
	return pf, elapsed, nil
}

// Common runs COMMON. The negative-volume workaround is not applied here;
// callers apply it through ReclassifyNegativeCommon. Once pave-fill has
// completed, the later COMMON/CUT/SECTION phases are not
// further timed, since they are assumed fast relative to paving.
func (d *Driver) Common(pf kernel.PaveFilling) (Result, error) {
	start := time.Now()
	r, err := d.k.Common(pf)
	res := Result{Op: OpCommon, WarningsByPhase: r.WarningsByPhase, ElapsedSeconds: time.Since(start).Seconds()}
	if err != nil {
		return res, err
	}
	res.Shape = r.Shape
	res.FuzzyValueUsed = r.FuzzyValueUsed
	return res, nil
}

func (d *Driver) Cut(pf kernel.PaveFilling, order kernel.CutOrder) (Result, error) {
	start := time.Now()
	var op Op
	if order == kernel.CutIMinusJ {
		op = OpCutI
	} else {
		op = OpCutJ
	}
	r, err := d.k.Cut(pf, order)
	res := Result{Op: op, WarningsByPhase: r.WarningsByPhase, ElapsedSeconds: time.Since(start).Seconds()}
	if err != nil {
		return res, err
	}
	res.Shape = r.Shape
	res.FuzzyValueUsed = r.FuzzyValueUsed
	return res, nil
}

func (d *Driver) Section(pf kernel.PaveFilling) (Result, error) {
	start := time.Now()
	r, err := d.k.Section(pf)
	res := Result{Op: OpSection, WarningsByPhase: r.WarningsByPhase, ElapsedSeconds: time.Since(start).Seconds()}
	if err != nil {
		return res, err
	}
	res.Shape = r.Shape
	res.FuzzyValueUsed = r.FuzzyValueUsed
	return res, nil
}

// Fuse runs FUSE; it is not paving-timed since it is invoked only during
// imprinting, on already-classified pairs.
func (d *Driver) Fuse(a, b kernel.Shape, eps float64) (Result, error) {
	start := time.Now()
	r, err := d.k.Fuse(a, b, eps)
	res := Result{Op: OpFuse, WarningsByPhase: r.WarningsByPhase, ElapsedSeconds: time.Since(start).Seconds()}
	if err != nil {
		return res, err
	}
	res.Shape = r.Shape
	res.FuzzyValueUsed = r.FuzzyValueUsed
	return res, nil
}

// NegativeCommonOutcome is the result of applying the negative-volume
// workaround.
type NegativeCommonOutcome int

const (
	// NegativeCommonFailed means the negative volume exceeded the
	// threshold; the pair is a kernel-operation failure.
	NegativeCommonFailed NegativeCommonOutcome = iota
	// NegativeCommonTouching means the negative volume is within the
	// threshold and the pair should be reclassified Touching.
	NegativeCommonTouching
)

// ReclassifyNegativeCommon applies the workaround: if |vol_common| <= 0.1 *
// min(vol_cut_i, vol_cut_j) the pair is reclassified as Touching; if the
// negative value is larger the driver fails. volCommon must already be
// known negative; volCutI and volCutJ are the two CUT volumes for the same
// pair.
func (d *Driver) ReclassifyNegativeCommon(volCommon, volCutI, volCutJ float64) NegativeCommonOutcome {
	threshold := NegativeVolumeRatio * minf(volCutI, volCutJ)
	if absf(volCommon) <= threshold {
		log.Debug.Printf("boolop: reclassifying negative common volume %v (threshold %v) as touching", volCommon, threshold)
		return NegativeCommonTouching
	}
	return NegativeCommonFailed
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
