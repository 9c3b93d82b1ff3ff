// Package shape implements the shape abstraction: a thin, pure-function
// layer over kernel.Shape, plus the Document the rest of the pipeline
// mutates in place.
package shape

import (
	"fmt"

	"github.com/grailbio/base/log"

	"github.com/ukaea/overlap-checker/internal/kernel"
)

// Solid is a thin wrapper around a kernel.Shape, exposing exactly the
// queries the rest of this engine needs: volume, oriented bbox, distance,
// validity.
type Solid struct {
	shape kernel.Shape
}

// Wrap adapts a raw kernel.Shape into a Solid.
func Wrap(s kernel.Shape) Solid { return Solid{shape: s} }

// Unwrap returns the underlying kernel.Shape for use by the boolean-op
// driver and merger, which both need the raw handle.
func (s Solid) Unwrap() kernel.Shape { return s.shape }

// Volume returns the solid's volume. A strictly negative kernel result is an
// error; small negative values near tolerance are the boolean-op driver's
// concern, not this layer's.
func (s Solid) Volume() (float64, error) {
	v, err := s.shape.Volume()
	if err != nil {
		return 0, fmt.Errorf("shape: volume query failed: %w", err)
	}
	if v < 0 {
		return 0, fmt.Errorf("shape: kernel returned negative volume %v", v)
	}
	return v, nil
}

// OrientedBBox returns the solid's oriented bounding box.
func (s Solid) OrientedBBox() kernel.OBB { return s.shape.OBB() }

// DistanceTo returns the minimum surface distance to other.
func (s Solid) DistanceTo(other Solid) (float64, error) {
	d, err := s.shape.DistanceTo(other.shape)
	if err != nil {
		return 0, fmt.Errorf("shape: distance query failed: %w", err)
	}
	return d, nil
}

// IsValid delegates to the kernel checker. Defects are for logs only; they
// never alter control flow inside the core.
func (s Solid) IsValid() (bool, []kernel.Defect) { return s.shape.IsValid() }

// LogDefects logs, at debug level, each defect IsValid reported for the
// solid at ordinal.
func (s Solid) LogDefects(ordinal int, defects []kernel.Defect) {
	for _, d := range defects {
		log.Debug.Printf("solid[%d]: invalid sub-shape %s: %s", ordinal, d.SubShape, d.Reason)
	}
}

// Document is the ordered sequence of solids the pipeline processes. Its
// length is fixed after loading; slots are replaced in place, never
// inserted, removed or reordered.
type Document struct {
	solids []Solid
}

// NewDocument builds a Document from the solids produced by the external
// loader. STEP/BREP extraction itself is out of scope for this package.
func NewDocument(solids []Solid) *Document {
	cp := make([]Solid, len(solids))
	copy(cp, solids)
	return &Document{solids: cp}
}

// Len returns N, the number of ordinals. It never changes after
// construction.
func (d *Document) Len() int { return len(d.solids) }

// At returns the solid currently occupying ordinal i.
func (d *Document) At(i int) Solid { return d.solids[i] }

// Replace overwrites ordinal i with a new solid (or compound): the i-th slot
// may be mutated, but it is never removed, reordered, or inserted-before.
func (d *Document) Replace(i int, s Solid) { d.solids[i] = s }

// All returns every solid in ordinal order. The returned slice aliases the
// Document's backing array; callers must not retain it across a Replace.
func (d *Document) All() []Solid { return d.solids }

// TotalVolume sums the volume of every solid; used to check the monotonic
// volume invariants the imprinter and merger must preserve.
func (d *Document) TotalVolume() (float64, error) {
	var total float64
	for i, s := range d.solids {
		v, err := s.Volume()
		if err != nil {
			return 0, fmt.Errorf("shape: solid[%d]: %w", i, err)
		}
		total += v
	}
	return total, nil
}

// Pair is an unordered pair (I, J) with I < J by construction; the scheduler
// enumerates candidates in either order, so callers normalize via NewPair.
type Pair struct {
	I, J int
}

// NewPair returns the pair (min(a,b), max(a,b)).
func NewPair(a, b int) Pair {
	if a < b {
		return Pair{I: a, J: b}
	}
	return Pair{I: b, J: a}
}
