// Package imprint rewrites overlapping solid pairs so their shared volume
// becomes an explicit child of whichever operand is larger, using the
// boolean-op driver directly rather than trusting a previously recorded
// classification.
package imprint

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/grailbio/base/log"

	"github.com/ukaea/overlap-checker/internal/boolop"
	"github.com/ukaea/overlap-checker/internal/kernel"
	"github.com/ukaea/overlap-checker/internal/shape"
)

// Status is the tagged outcome of imprinting one pair.
type Status int

const (
	StatusFailed Status = iota
	StatusDistinct
	StatusMergeIntoShape
	StatusMergeIntoTool
)

func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusDistinct:
		return "distinct"
	case StatusMergeIntoShape:
		return "merge_into_shape"
	case StatusMergeIntoTool:
		return "merge_into_tool"
	default:
		return "unknown"
	}
}

// Result is the outcome of imprinting one (i, j) pair. ReplaceI/ReplaceJ are
// only set when Status is MergeIntoShape or MergeIntoTool; they are the
// replacements for slot i and slot j respectively.
type Result struct {
	Status             Status
	ReplaceI, ReplaceJ kernel.Shape
	VolCommon          float64
}

// One re-derives the classification from scratch (pave-fill, COMMON, both
// CUTs) rather than trusting a stored status, and applies the fixed
// imprint recipe: if COMMON has no vertices the pair is left untouched;
// otherwise the operand whose CUT volume is smaller is the smaller solid,
// and COMMON is fused back into the other (larger) operand.
func One(ctx context.Context, driver *boolop.Driver, si, sj kernel.Shape, eps float64, timeout time.Duration) (Result, error) {
	pf, _, err := driver.PaveFill(ctx, si, sj, eps, timeout)
	if err != nil {
		return Result{Status: StatusFailed}, nil
	}

	commonRes, err := driver.Common(pf)
	if err != nil {
		return Result{Status: StatusFailed}, nil
	}
	if commonRes.Shape.IsNull() {
		return Result{Status: StatusDistinct}, nil
	}
	volCommon, err := commonRes.Shape.Volume()
	if err != nil {
		return Result{Status: StatusFailed}, nil
	}

	cutI, err := driver.Cut(pf, kernel.CutIMinusJ)
	if err != nil {
		return Result{}, fmt.Errorf("imprint: CUT i-j: %w", err)
	}
	cutJ, err := driver.Cut(pf, kernel.CutJMinusI)
	if err != nil {
		return Result{}, fmt.Errorf("imprint: CUT j-i: %w", err)
	}
	volI, err := cutI.Shape.Volume()
	if err != nil {
		return Result{}, fmt.Errorf("imprint: volume(cut i-j): %w", err)
	}
	volJ, err := cutJ.Shape.Volume()
	if err != nil {
		return Result{}, fmt.Errorf("imprint: volume(cut j-i): %w", err)
	}

	// The smaller CUT volume identifies the smaller solid; COMMON is fused
	// back into the other, larger one.
	if volJ < volI {
		fused, err := driver.Fuse(cutI.Shape, commonRes.Shape, eps)
		if err != nil {
			return Result{Status: StatusFailed}, nil
		}
		return Result{
			Status:    StatusMergeIntoShape,
			ReplaceI:  fused.Shape,
			ReplaceJ:  cutJ.Shape,
			VolCommon: volCommon,
		}, nil
	}
	fused, err := driver.Fuse(cutJ.Shape, commonRes.Shape, eps)
	if err != nil {
		return Result{Status: StatusFailed}, nil
	}
	return Result{
		Status:    StatusMergeIntoTool,
		ReplaceI:  cutI.Shape,
		ReplaceJ:  fused.Shape,
		VolCommon: volCommon,
	}, nil
}

// All imprints every pair against doc, in pair order sorted by (i, j) for
// reproducibility, mutating doc's slots in place as each pair resolves.
// A pair whose imprint fails leaves both its slots untouched and is
// counted in failures; the caller decides whether a non-zero failure
// count should refuse to persist doc.
func All(ctx context.Context, driver *boolop.Driver, doc *shape.Document, pairs []shape.Pair, eps float64, timeout time.Duration) ([]Result, int, error) {
	ordered := make([]shape.Pair, len(pairs))
	copy(ordered, pairs)
	sort.Slice(ordered, func(a, b int) bool {
		if ordered[a].I != ordered[b].I {
			return ordered[a].I < ordered[b].I
		}
		return ordered[a].J < ordered[b].J
	})

	results := make([]Result, 0, len(ordered))
	failures := 0
	for _, p := range ordered {
		si := doc.At(p.I).Unwrap()
		sj := doc.At(p.J).Unwrap()
		res, err := One(ctx, driver, si, sj, eps, timeout)
		if err != nil {
			return results, failures, fmt.Errorf("imprint: pair (%d,%d): %w", p.I, p.J, err)
		}
		results = append(results, res)

		switch res.Status {
		case StatusFailed:
			failures++
			log.Error.Printf("imprint: pair (%d,%d) failed, slots left untouched", p.I, p.J)
		case StatusDistinct:
			// no change
		case StatusMergeIntoShape, StatusMergeIntoTool:
			doc.Replace(p.I, shape.Wrap(res.ReplaceI))
			doc.Replace(p.J, shape.Wrap(res.ReplaceJ))
		}
	}
	return results, failures, nil
}
