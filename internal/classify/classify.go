// Package classify implements the intersection classifier: a per-pair state
// machine on top of the boolean-op driver, with a caller-supplied tolerance
// ladder.
package classify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grailbio/base/log"

	"github.com/ukaea/overlap-checker/internal/boolop"
	"github.com/ukaea/overlap-checker/internal/kernel"
)

// Status is the tagged classification outcome.
type Status int

const (
	StatusFailed Status = iota
	StatusTimeout
	StatusDistinct
	StatusTouching
	StatusOverlap
)

func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusTimeout:
		return "timeout"
	case StatusDistinct:
		return "distinct"
	case StatusTouching:
		return "touching"
	case StatusOverlap:
		return "overlap"
	default:
		return "unknown"
	}
}

// Outcome is the result of classifying one pair.
// VolCommon/VolCutI/VolCutJ are only meaningful when Status == StatusOverlap.
type Outcome struct {
	Status                      Status
	VolCommon, VolCutI, VolCutJ float64
	FuzzyUsed                   float64
}

// DefaultLadder is the default tolerance ladder: [0.001, 0].
var DefaultLadder = []float64{0.001, 0}

// Classify runs the state machine over ladder, in order, returning the
// first outcome that is not a recoverable per-step failure. A PaveFill
// timeout is terminal — no retry. Exhausting the ladder without a PaveFill
// timeout yields StatusFailed. The returned error is non-nil only for an
// empty ladder or for a fatal, non-recoverable condition (a genuinely
// negative non-common volume, i.e. kernel misuse) that should abort the
// stage.
func Classify(ctx context.Context, driver *boolop.Driver, a, b kernel.Shape, ladder []float64, timeout time.Duration) (Outcome, error) {
	if len(ladder) == 0 {
		return Outcome{}, fmt.Errorf("classify: empty tolerance ladder")
	}
	for _, eps := range ladder {
		outcome, recoverable, err := classifyOnce(ctx, driver, a, b, eps, timeout)
		if err != nil {
			return Outcome{}, err
		}
		if outcome.Status == StatusTimeout {
			return outcome, nil
		}
		if recoverable {
			log.Debug.Printf("classify: eps=%v recoverable failure, trying next rung", eps)
			continue
		}
		return outcome, nil
	}
	return Outcome{Status: StatusFailed}, nil
}

// classifyOnce runs a single rung of the ladder. recoverable is true when
// the caller should retry at the next eps rather than treat this as the
// final answer.
func classifyOnce(ctx context.Context, driver *boolop.Driver, a, b kernel.Shape, eps float64, timeout time.Duration) (outcome Outcome, recoverable bool, fatal error) {
	pf, _, err := driver.PaveFill(ctx, a, b, eps, timeout)
	if err != nil {
		if errors.Is(err, kernel.ErrTimeout) {
			return Outcome{Status: StatusTimeout}, false, nil
		}
		// Kernel operation failure: recoverable, retry the next rung.
		return Outcome{Status: StatusFailed}, true, nil
	}

	commonRes, err := driver.Common(pf)
	if err != nil {
		var negErr *kernel.NegativeVolumeError
		if errors.As(err, &negErr) {
			return reclassifyNegativeCommon(driver, pf, eps, negErr.Value)
		}
		return Outcome{Status: StatusFailed}, true, nil
	}

	volCommon, err := commonRes.Shape.Volume()
	if err != nil {
		var negErr *kernel.NegativeVolumeError
		if errors.As(err, &negErr) {
			return reclassifyNegativeCommon(driver, pf, eps, negErr.Value)
		}
		return Outcome{Status: StatusFailed}, true, nil
	}

	if volCommon > 0 {
		cutI, err := driver.Cut(pf, kernel.CutIMinusJ)
		if err != nil {
			return Outcome{}, false, fmt.Errorf("classify: CUT i-j: %w", err)
		}
		cutJ, err := driver.Cut(pf, kernel.CutJMinusI)
		if err != nil {
			return Outcome{}, false, fmt.Errorf("classify: CUT j-i: %w", err)
		}
		volI, err := cutI.Shape.Volume()
		if err != nil {
			return Outcome{}, false, fmt.Errorf("classify: volume(cut i-j): %w", err)
		}
		volJ, err := cutJ.Shape.Volume()
		if err != nil {
			return Outcome{}, false, fmt.Errorf("classify: volume(cut j-i): %w", err)
		}
		return Outcome{
			Status:    StatusOverlap,
			VolCommon: volCommon,
			VolCutI:   volI,
			VolCutJ:   volJ,
			FuzzyUsed: eps,
		}, false, nil
	}

	sectionRes, err := driver.Section(pf)
	if err != nil {
		return Outcome{Status: StatusFailed}, true, nil
	}
	if sectionRes.Shape.IsNull() {
		return Outcome{Status: StatusDistinct, FuzzyUsed: eps}, false, nil
	}
	return Outcome{Status: StatusTouching, FuzzyUsed: eps}, false, nil
}

// reclassifyNegativeCommon implements the negative-volume workaround:
// compute both CUT volumes and compare |vol_common| against 10% of their
// minimum.
func reclassifyNegativeCommon(driver *boolop.Driver, pf kernel.PaveFilling, eps, negCommon float64) (Outcome, bool, error) {
	cutI, err := driver.Cut(pf, kernel.CutIMinusJ)
	if err != nil {
		return Outcome{}, false, fmt.Errorf("classify: CUT i-j during negative-volume check: %w", err)
	}
	cutJ, err := driver.Cut(pf, kernel.CutJMinusI)
	if err != nil {
		return Outcome{}, false, fmt.Errorf("classify: CUT j-i during negative-volume check: %w", err)
	}
	volI, err := cutI.Shape.Volume()
	if err != nil {
		return Outcome{}, false, fmt.Errorf("classify: volume(cut i-j) during negative-volume check: %w", err)
	}
	volJ, err := cutJ.Shape.Volume()
	if err != nil {
		return Outcome{}, false, fmt.Errorf("classify: volume(cut j-i) during negative-volume check: %w", err)
	}
	switch driver.ReclassifyNegativeCommon(negCommon, volI, volJ) {
	case boolop.NegativeCommonTouching:
		return Outcome{Status: StatusTouching, FuzzyUsed: eps}, false, nil
	default:
		// Exceeds the threshold: this is a per-pair failure, recovered
		// into the result stream like any other kernel-operation failure
		// — retry the next rung.
		return Outcome{Status: StatusFailed}, true, nil
	}
}
